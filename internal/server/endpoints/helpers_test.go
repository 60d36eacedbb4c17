package endpoints

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/jackzampolin/boighor/internal/assistant"
	"github.com/jackzampolin/boighor/internal/catalog"
	"github.com/jackzampolin/boighor/internal/reading"
	"github.com/jackzampolin/boighor/internal/storage"
	"github.com/jackzampolin/boighor/internal/viewer"
)

func TestErrorStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{catalog.ErrNotFound, http.StatusNotFound},
		{fmt.Errorf("wrapped: %w", reading.ErrSessionNotFound), http.StatusNotFound},
		{storage.ErrUnknownBucket, http.StatusNotFound},
		{fmt.Errorf("%w: missing author", catalog.ErrInvalid), http.StatusBadRequest},
		{storage.ErrInvalidPath, http.StatusBadRequest},
		{assistant.ErrUnknownKind, http.StatusBadRequest},
		{assistant.ErrUnsupportedFile, http.StatusBadRequest},
		{viewer.ErrNotLoaded, http.StatusConflict},
		{viewer.ErrClosed, http.StatusConflict},
		{reading.ErrTooManySessions, http.StatusTooManyRequests},
		{assistant.ErrNoProvider, http.StatusServiceUnavailable},
		{&assistant.GenerationError{Kind: assistant.KindSummary, Err: errors.New("boom")}, http.StatusBadGateway},
		{&assistant.ExtractionError{Err: errors.New("bad json")}, http.StatusBadGateway},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		if got := errorStatus(tt.err); got != tt.want {
			t.Errorf("errorStatus(%v) = %d, want %d", tt.err, got, tt.want)
		}
	}
}

func TestFormYear(t *testing.T) {
	tests := []struct {
		query   string
		want    int
		wantErr bool
	}{
		{"", 0, false},
		{"publicationYear=1929", 1929, false},
		{"publication_year=+1939", 1939, false},
		{"publicationYear=%201940%20", 1940, false},
		{"publicationYear=-5", 0, true},
		{"publication_year=soon", 0, true},
	}
	for _, tt := range tests {
		r, _ := http.NewRequest(http.MethodGet, "/api/books?"+tt.query, nil)
		got, err := formYear(r)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("formYear(%q) = %d, %v; want %d, wantErr %v", tt.query, got, err, tt.want, tt.wantErr)
		}
	}
}
