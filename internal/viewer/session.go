// Package viewer implements a headless reading session for paginated
// documents: single or facing-page layout, zoom, bookmarks, and cancellable
// per-surface rendering.
//
// A Session is safe for concurrent use. Renders run on their own goroutines
// and only draw to a surface while their ticket is still that surface's
// current ticket, so a slow render can never overwrite a newer page.
package viewer

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"math"
	"slices"
	"sync"
)

// Status is the lifecycle state of a session.
type Status string

const (
	StatusIdle      Status = "idle"
	StatusLoading   Status = "loading"
	StatusReady     Status = "ready"
	StatusRendering Status = "rendering"
	StatusError     Status = "error"
	StatusClosed    Status = "closed"
)

// Key is a keyboard key name as reported by the client.
type Key string

const (
	KeyArrowRight Key = "ArrowRight"
	KeyArrowLeft  Key = "ArrowLeft"
)

// Config configures a Session.
type Config struct {
	// Loader opens documents. Required.
	Loader Loader
	// Bookmarks persists bookmarks. Optional; without it bookmarks only
	// live as long as the session.
	Bookmarks BookmarkStore
	// Surfaces receive rendered pages. Nil entries default to a Canvas.
	Surfaces [2]Surface

	// Width and Height are the initial viewport size in pixels.
	Width  float64
	Height float64

	MobileBreakpoint float64
	ZoomStep         float64
	FitMargin        float64

	Logger *slog.Logger
}

// SurfaceState describes one surface in a State snapshot.
type SurfaceState struct {
	Slot      string `json:"slot"`
	Page      int    `json:"page"`
	Rendering bool   `json:"rendering"`
	Error     string `json:"error,omitempty"`
}

// State is an immutable snapshot of the observable session state.
type State struct {
	Status       Status         `json:"status"`
	DocumentID   string         `json:"document_id,omitempty"`
	CurrentPage  int            `json:"current_page"`
	PageCount    int            `json:"page_count"`
	Zoom         float64        `json:"zoom"`
	ZoomPercent  int            `json:"zoom_percent"`
	Layout       Layout         `json:"layout"`
	Label        string         `json:"label,omitempty"`
	IsBookmarked bool           `json:"is_bookmarked"`
	BookmarkPage int            `json:"bookmark_page,omitempty"`
	IsLoading    bool           `json:"is_loading"`
	IsRendering  bool           `json:"is_rendering"`
	IsFirstPage  bool           `json:"is_first_page"`
	IsLastPage   bool           `json:"is_last_page"`
	ErrorMessage string         `json:"error_message,omitempty"`
	Width        float64        `json:"width"`
	Height       float64        `json:"height"`
	Surfaces     []SurfaceState `json:"surfaces"`
}

// slotState tracks the render ticket of one surface.
type slotState struct {
	seq     uint64
	cancel  context.CancelFunc
	page    int
	pending bool
	errMsg  string
}

// Session is one reader attached to one document.
type Session struct {
	loader     Loader
	bookmarks  BookmarkStore
	surfaces   [2]Surface
	breakpoint float64
	zoomStep   float64
	fitMargin  float64
	logger     *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	// renders counts render goroutines that may still touch doc.
	renders sync.WaitGroup

	mu              sync.Mutex
	status          Status
	documentID      string
	doc             Document
	pageCount       int
	current         int
	zoom            float64
	layout          Layout
	width           float64
	height          float64
	pageWidth       float64
	pageHeight      float64
	bookmark        int
	bookmarkSeq     uint64
	loadErr         string
	slots           [2]slotState
	changed         chan struct{}
	listeners       []func(State)
	notifyQueue     []State
	notifying       bool
	closedPublished bool
}

// NewSession creates an idle session. Call Open to load a document.
func NewSession(cfg Config) *Session {
	if cfg.MobileBreakpoint <= 0 {
		cfg.MobileBreakpoint = DefaultMobileBreakpoint
	}
	if cfg.ZoomStep <= 1 {
		cfg.ZoomStep = DefaultZoomStep
	}
	if cfg.FitMargin <= 0 || cfg.FitMargin > 1 {
		cfg.FitMargin = DefaultFitMargin
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	for i := range cfg.Surfaces {
		if cfg.Surfaces[i] == nil {
			cfg.Surfaces[i] = NewCanvas()
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Session{
		loader:     cfg.Loader,
		bookmarks:  cfg.Bookmarks,
		surfaces:   cfg.Surfaces,
		breakpoint: cfg.MobileBreakpoint,
		zoomStep:   cfg.ZoomStep,
		fitMargin:  cfg.FitMargin,
		logger:     cfg.Logger,
		ctx:        ctx,
		cancel:     cancel,
		status:     StatusIdle,
		zoom:       1.0,
		width:      cfg.Width,
		height:     cfg.Height,
		layout:     LayoutFor(cfg.Width, cfg.MobileBreakpoint),
		changed:    make(chan struct{}),
	}
}

// Open loads the document at url and issues the first render pass. It
// blocks until the document is open or loading failed. A failed open leaves
// the session in StatusError; only Close is accepted afterwards.
func (s *Session) Open(ctx context.Context, documentID, url string) error {
	if s.loader == nil {
		return errors.New("viewer: no loader configured")
	}

	s.mu.Lock()
	switch s.status {
	case StatusIdle:
	case StatusClosed:
		s.mu.Unlock()
		return ErrClosed
	default:
		s.mu.Unlock()
		return ErrAlreadyOpened
	}
	s.status = StatusLoading
	s.documentID = documentID
	emit := s.publishLocked()
	s.mu.Unlock()
	emit()

	loadCtx, cancel := context.WithCancel(s.ctx)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	logger := s.logger.With("document_id", documentID)
	logger.Debug("opening document", "url", url)

	doc, pageWidth, pageHeight, err := s.openDocument(loadCtx, url)
	if err != nil {
		loadErr := &DocumentLoadError{URL: url, Err: err}
		s.mu.Lock()
		if s.status == StatusClosed {
			s.mu.Unlock()
			return ErrClosed
		}
		s.status = StatusError
		s.loadErr = LoadFailedMessage
		emit := s.publishLocked()
		s.mu.Unlock()
		emit()
		logger.Error("failed to load document", "error", err)
		return loadErr
	}

	bookmark := s.readBookmark(loadCtx, documentID)

	s.mu.Lock()
	if s.status == StatusClosed {
		s.mu.Unlock()
		if cerr := doc.Close(); cerr != nil {
			logger.Warn("failed to close document", "error", cerr)
		}
		return ErrClosed
	}
	pageCount := doc.PageCount()
	s.doc = doc
	s.pageCount = pageCount
	s.pageWidth = pageWidth
	s.pageHeight = pageHeight
	s.bookmark = bookmark
	s.current = 1
	if bookmark > 0 {
		s.current = min(bookmark, pageCount)
	}
	current := s.current
	s.layout = LayoutFor(s.width, s.breakpoint)
	s.status = StatusReady
	s.fitLocked()
	s.renderLocked()
	emit = s.publishLocked()
	s.mu.Unlock()
	emit()

	logger.Info("document opened", "pages", pageCount, "page", current)
	return nil
}

// openDocument loads the document and measures page 1 at scale 1.
func (s *Session) openDocument(ctx context.Context, url string) (Document, float64, float64, error) {
	doc, err := s.loader.Open(ctx, url)
	if err != nil {
		return nil, 0, 0, err
	}
	if doc.PageCount() < 1 {
		_ = doc.Close()
		return nil, 0, 0, errors.New("document has no pages")
	}
	first, err := doc.Page(ctx, 1)
	if err != nil {
		_ = doc.Close()
		return nil, 0, 0, fmt.Errorf("failed to read first page: %w", err)
	}
	vp := first.Viewport(1)
	return doc, vp.Width, vp.Height, nil
}

// readBookmark returns the stored bookmark or 0. Store failures are logged
// and treated as no bookmark.
func (s *Session) readBookmark(ctx context.Context, documentID string) int {
	if s.bookmarks == nil {
		return 0
	}
	page, err := s.storedBookmark(ctx, documentID)
	if err != nil {
		s.logger.Warn("could not read bookmark", "document_id", documentID, "error", err)
		return 0
	}
	return page
}

// storedBookmark reads the bookmark from the store, returning 0 when none
// is set.
func (s *Session) storedBookmark(ctx context.Context, documentID string) (int, error) {
	page, ok, err := s.bookmarks.Bookmark(ctx, documentID)
	if err != nil {
		return 0, err
	}
	if !ok || page < 1 {
		return 0, nil
	}
	return page, nil
}

// Close cancels pending renders, waits for them to return, and releases the
// document. Closing twice is a no-op.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.status == StatusClosed {
		s.mu.Unlock()
		return nil
	}
	s.status = StatusClosed
	documentID := s.documentID
	for i := range s.slots {
		st := &s.slots[i]
		if st.cancel != nil {
			st.cancel()
			st.cancel = nil
		}
		st.seq++
		st.pending = false
	}
	s.cancel()
	doc := s.doc
	s.doc = nil
	emit := s.publishLocked()
	s.mu.Unlock()
	emit()

	s.renders.Wait()
	if doc != nil {
		if err := doc.Close(); err != nil {
			return fmt.Errorf("failed to close document: %w", err)
		}
	}
	s.logger.Debug("viewer closed", "document_id", documentID)
	return nil
}

// GoToNextPage advances one page (mobile) or one spread. It is a no-op on
// the last page.
func (s *Session) GoToNextPage() error {
	return s.navigate(func() int { return nextPage(s.layout, s.current, s.pageCount) })
}

// GoToPreviousPage goes back one page or one spread. It is a no-op on the
// first page.
func (s *Session) GoToPreviousPage() error {
	return s.navigate(func() int { return prevPage(s.layout, s.current) })
}

func (s *Session) navigate(target func() int) error {
	s.mu.Lock()
	if err := s.loadedLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	page := target()
	if page == s.current {
		s.mu.Unlock()
		return nil
	}
	wasSingle := showsSinglePage(s.layout, s.current, s.pageCount)
	s.current = page
	if wasSingle != showsSinglePage(s.layout, s.current, s.pageCount) {
		s.fitLocked()
	}
	s.renderLocked()
	emit := s.publishLocked()
	s.mu.Unlock()
	emit()
	s.refreshBookmark()
	return nil
}

// refreshBookmark picks up bookmark changes made through the store by other
// sessions. A toggle that lands while the read is in flight wins.
func (s *Session) refreshBookmark() {
	if s.bookmarks == nil {
		return
	}
	s.mu.Lock()
	if s.loadedLocked() != nil {
		s.mu.Unlock()
		return
	}
	documentID, seq := s.documentID, s.bookmarkSeq
	s.mu.Unlock()

	page, err := s.storedBookmark(s.ctx, documentID)
	if err != nil {
		s.logger.Warn("could not refresh bookmark", "document_id", documentID, "error", err)
		return
	}

	s.mu.Lock()
	if s.loadedLocked() != nil || s.bookmarkSeq != seq || s.bookmark == page {
		s.mu.Unlock()
		return
	}
	s.bookmark = page
	s.bookmarkSeq++
	emit := s.publishLocked()
	s.mu.Unlock()
	emit()
}

// HandleKey maps arrow keys to navigation. It reports whether the key was
// acted on; keys are ignored while no document is loaded.
func (s *Session) HandleKey(key Key) bool {
	var err error
	switch key {
	case KeyArrowRight:
		err = s.GoToNextPage()
	case KeyArrowLeft:
		err = s.GoToPreviousPage()
	default:
		return false
	}
	return err == nil
}

// ZoomIn multiplies the zoom factor by the zoom step.
func (s *Session) ZoomIn() error {
	return s.setZoom(func(z float64) float64 { return z * s.zoomStep })
}

// ZoomOut divides the zoom factor by the zoom step.
func (s *Session) ZoomOut() error {
	return s.setZoom(func(z float64) float64 { return z / s.zoomStep })
}

func (s *Session) setZoom(next func(float64) float64) error {
	s.mu.Lock()
	if err := s.loadedLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	s.zoom = next(s.zoom)
	s.renderLocked()
	emit := s.publishLocked()
	s.mu.Unlock()
	emit()
	return nil
}

// FitToScreen sets the zoom so the visible page or spread fits the viewport.
func (s *Session) FitToScreen() error {
	s.mu.Lock()
	if err := s.loadedLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	if !s.fitLocked() {
		s.mu.Unlock()
		return nil
	}
	s.renderLocked()
	emit := s.publishLocked()
	s.mu.Unlock()
	emit()
	return nil
}

// fitLocked recomputes the zoom and reports whether it changed.
func (s *Session) fitLocked() bool {
	zoom, ok := fitZoom(s.layout, s.current, s.pageCount, s.pageWidth, s.pageHeight, s.width, s.height, s.fitMargin)
	if !ok || zoom == s.zoom {
		return false
	}
	s.zoom = zoom
	return true
}

// Resize updates the viewport, recomputing layout and fit.
func (s *Session) Resize(width, height float64) error {
	if width <= 0 || height <= 0 || math.IsNaN(width) || math.IsNaN(height) {
		return fmt.Errorf("invalid viewport %vx%v", width, height)
	}

	s.mu.Lock()
	if s.status == StatusClosed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.width = width
	s.height = height
	layout := LayoutFor(width, s.breakpoint)
	if s.loadedLocked() != nil {
		s.layout = layout
		emit := s.publishLocked()
		s.mu.Unlock()
		emit()
		return nil
	}

	layoutChanged := layout != s.layout
	s.layout = layout
	zoomChanged := s.fitLocked()
	if layoutChanged || zoomChanged {
		s.renderLocked()
	}
	emit := s.publishLocked()
	s.mu.Unlock()
	emit()
	return nil
}

// ToggleBookmark clears the bookmark when it is on the current page and
// otherwise moves it to the current page. State only changes once the store
// accepted the update.
func (s *Session) ToggleBookmark(ctx context.Context) error {
	s.mu.Lock()
	if err := s.loadedLocked(); err != nil {
		s.mu.Unlock()
		return err
	}
	documentID, current, bookmark := s.documentID, s.current, s.bookmark
	s.mu.Unlock()

	if s.bookmarks != nil {
		stored, err := s.storedBookmark(ctx, documentID)
		if err != nil {
			s.logger.Error("failed to read bookmark", "document_id", documentID, "error", err)
			return fmt.Errorf("failed to read bookmark: %w", err)
		}
		bookmark = stored
	}

	next := current
	if bookmark == current {
		next = 0
	}
	if s.bookmarks != nil {
		var err error
		if next == 0 {
			err = s.bookmarks.ClearBookmark(ctx, documentID)
		} else {
			err = s.bookmarks.SetBookmark(ctx, documentID, next)
		}
		if err != nil {
			s.logger.Error("failed to update bookmark", "document_id", documentID, "error", err)
			return fmt.Errorf("failed to update bookmark: %w", err)
		}
	}

	s.mu.Lock()
	if s.status == StatusClosed {
		s.mu.Unlock()
		return ErrClosed
	}
	s.bookmark = next
	s.bookmarkSeq++
	emit := s.publishLocked()
	s.mu.Unlock()
	emit()
	return nil
}

// loadedLocked returns nil when a document is open and usable.
func (s *Session) loadedLocked() error {
	switch s.status {
	case StatusReady, StatusRendering:
		return nil
	case StatusClosed:
		return ErrClosed
	default:
		return ErrNotLoaded
	}
}

// renderLocked issues a render pass for the current page assignment.
func (s *Session) renderLocked() {
	pages := assignPages(s.layout, s.current, s.pageCount)
	for _, slot := range Slots {
		s.startRenderLocked(slot, pages[slot], s.zoom)
	}
	s.updateStatusLocked()
}

// startRenderLocked cancels the surface's previous render and issues a new
// ticket. Page 0 clears the surface.
func (s *Session) startRenderLocked(slot Slot, page int, scale float64) {
	st := &s.slots[slot]
	if st.cancel != nil {
		st.cancel()
		st.cancel = nil
	}
	st.seq++
	st.page = page
	st.errMsg = ""

	if page == 0 {
		st.pending = false
		s.surfaces[slot].Clear()
		return
	}

	ctx, cancel := context.WithCancel(s.ctx)
	st.cancel = cancel
	st.pending = true
	s.renders.Add(1)
	go s.render(ctx, s.doc, slot, st.seq, page, scale)
}

// render runs one ticket and applies its result if the ticket is still current.
func (s *Session) render(ctx context.Context, doc Document, slot Slot, ticket uint64, page int, scale float64) {
	img, err := renderPage(ctx, doc, page, scale)

	s.mu.Lock()
	st := &s.slots[slot]
	if st.seq != ticket || s.status == StatusClosed {
		s.mu.Unlock()
		s.renders.Done()
		s.logger.Debug("discarded superseded render", "surface", slot, "page", page)
		return
	}
	if st.cancel != nil {
		st.cancel()
		st.cancel = nil
	}
	st.pending = false
	switch {
	case err == nil:
		s.surfaces[slot].Draw(page, img)
	case isCancellation(err):
		s.logger.Debug("render cancelled", "surface", slot, "page", page)
	default:
		rerr := &PageRenderError{Slot: slot, Page: page, Err: err}
		st.errMsg = rerr.Message()
		s.logger.Warn("page render failed", "document_id", s.documentID, "surface", slot, "page", page, "error", err)
	}
	s.updateStatusLocked()
	emit := s.publishLocked()
	s.mu.Unlock()
	s.renders.Done()
	emit()
}

func renderPage(ctx context.Context, doc Document, n int, scale float64) (image.Image, error) {
	page, err := doc.Page(ctx, n)
	if err != nil {
		return nil, err
	}
	img, err := page.Render(ctx, page.Viewport(scale))
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return img, nil
}

// updateStatusLocked moves between Ready and Rendering.
func (s *Session) updateStatusLocked() {
	if s.status != StatusReady && s.status != StatusRendering {
		return
	}
	if s.slots[Primary].pending || s.slots[Secondary].pending {
		s.status = StatusRendering
	} else {
		s.status = StatusReady
	}
}

// publishLocked wakes WaitIdle callers and returns a function that delivers
// the new state to listeners. Call the returned function after unlocking.
func (s *Session) publishLocked() func() {
	if s.status == StatusClosed {
		if s.closedPublished {
			return func() {}
		}
		s.closedPublished = true
	}
	close(s.changed)
	s.changed = make(chan struct{})
	if len(s.listeners) == 0 {
		return func() {}
	}
	s.notifyQueue = append(s.notifyQueue, s.stateLocked())
	return s.notify
}

// notify delivers queued snapshots in publish order. Only one goroutine
// delivers at a time; others leave their snapshot on the queue and return,
// so nothing reaches listeners after the Closed snapshot.
func (s *Session) notify() {
	s.mu.Lock()
	if s.notifying {
		s.mu.Unlock()
		return
	}
	s.notifying = true
	for len(s.notifyQueue) > 0 {
		state := s.notifyQueue[0]
		s.notifyQueue = s.notifyQueue[1:]
		listeners := slices.Clone(s.listeners)
		s.mu.Unlock()
		for _, fn := range listeners {
			fn(state)
		}
		s.mu.Lock()
	}
	s.notifyQueue = nil
	s.notifying = false
	s.mu.Unlock()
}

// OnChange registers a callback invoked after every state change. Callbacks
// run outside the session lock and may call back into the session.
// Snapshots arrive in publish order.
func (s *Session) OnChange(fn func(State)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// WaitIdle blocks until the session is neither loading nor rendering.
func (s *Session) WaitIdle(ctx context.Context) error {
	for {
		s.mu.Lock()
		busy := s.status == StatusLoading || s.status == StatusRendering
		ch := s.changed
		s.mu.Unlock()
		if !busy {
			return nil
		}
		select {
		case <-ch:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// State returns a snapshot of the observable state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stateLocked()
}

func (s *Session) stateLocked() State {
	st := State{
		Status:       s.status,
		DocumentID:   s.documentID,
		CurrentPage:  s.current,
		PageCount:    s.pageCount,
		Zoom:         s.zoom,
		ZoomPercent:  int(math.Round(s.zoom * 100)),
		Layout:       s.layout,
		BookmarkPage: s.bookmark,
		IsLoading:    s.status == StatusLoading,
		IsRendering:  s.status == StatusRendering,
		Width:        s.width,
		Height:       s.height,
		Surfaces:     make([]SurfaceState, 0, len(s.slots)),
	}
	loaded := s.loadedLocked() == nil
	if loaded {
		st.Label = pageLabel(s.layout, s.current, s.pageCount)
		st.IsBookmarked = s.bookmark != 0 && s.bookmark == s.current
		st.IsFirstPage = isFirstPage(s.current)
		st.IsLastPage = isLastPage(s.layout, s.current, s.pageCount)
	}
	if s.status == StatusError {
		st.ErrorMessage = s.loadErr
	}
	for _, slot := range Slots {
		ss := s.slots[slot]
		st.Surfaces = append(st.Surfaces, SurfaceState{
			Slot:      slot.String(),
			Page:      ss.page,
			Rendering: ss.pending,
			Error:     ss.errMsg,
		})
		if st.ErrorMessage == "" && ss.errMsg != "" {
			st.ErrorMessage = ss.errMsg
		}
	}
	return st
}

// Surface returns the surface bound to slot.
func (s *Session) Surface(slot Slot) Surface {
	return s.surfaces[slot]
}

// DocumentID returns the id passed to Open.
func (s *Session) DocumentID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.documentID
}
