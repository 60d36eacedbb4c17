package viewer

import (
	"context"
	"errors"
	"fmt"
)

var (
	// ErrClosed is returned by operations on a closed session.
	ErrClosed = errors.New("viewer closed")

	// ErrNotLoaded is returned when an operation needs a loaded document.
	ErrNotLoaded = errors.New("no document loaded")

	// ErrAlreadyOpened is returned when Open is called twice on a session.
	ErrAlreadyOpened = errors.New("document already opened")
)

// LoadFailedMessage is the user-facing message for a document that could not be opened.
const LoadFailedMessage = "Failed to load PDF file."

// DocumentLoadError reports that the document could not be opened.
type DocumentLoadError struct {
	URL string
	Err error
}

func (e *DocumentLoadError) Error() string {
	return fmt.Sprintf("failed to load document %s: %v", e.URL, e.Err)
}

func (e *DocumentLoadError) Unwrap() error { return e.Err }

// PageRenderError reports that one page failed to render on one surface.
type PageRenderError struct {
	Slot Slot
	Page int
	Err  error
}

func (e *PageRenderError) Error() string {
	return fmt.Sprintf("failed to render page %d on %s surface: %v", e.Page, e.Slot, e.Err)
}

func (e *PageRenderError) Unwrap() error { return e.Err }

// Message returns the user-facing text for the failure.
func (e *PageRenderError) Message() string {
	return fmt.Sprintf("Failed to render page %d", e.Page)
}

// isCancellation reports whether err only signals a superseded or abandoned render.
func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled)
}
