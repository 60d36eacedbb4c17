package endpoints

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image/png"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/boighor/internal/api"
	"github.com/jackzampolin/boighor/internal/reading"
	"github.com/jackzampolin/boighor/internal/svcctx"
	"github.com/jackzampolin/boighor/internal/viewer"
)

// ReaderResponse describes one reading session.
type ReaderResponse struct {
	ID        string       `json:"id"`
	BookID    string       `json:"book_id"`
	CreatedAt time.Time    `json:"created_at"`
	State     viewer.State `json:"state"`
}

// readerResponse waits for the session to settle when the request asks for
// it with ?wait=true. Waiting ends early if the client goes away.
func readerResponse(r *http.Request, rd *reading.Reader) ReaderResponse {
	if wait, _ := strconv.ParseBool(r.URL.Query().Get("wait")); wait {
		waitSettled(r.Context(), rd)
	}
	return ReaderResponse{ID: rd.ID, BookID: rd.BookID, CreatedAt: rd.CreatedAt, State: rd.Session.State()}
}

func waitSettled(ctx context.Context, rd *reading.Reader) {
	select {
	case <-rd.Loaded():
	case <-ctx.Done():
		return
	}
	_ = rd.Session.WaitIdle(ctx)
}

// readerPath builds a reader URL, adding ?wait=true when wait is set.
func readerPath(id, suffix string, wait bool) string {
	path := "/api/reader/" + id + suffix
	if wait {
		path += "?wait=true"
	}
	return path
}

// OpenReaderRequest starts a reading session.
type OpenReaderRequest struct {
	BookID string  `json:"book_id"`
	Width  float64 `json:"width" example:"1280"`
	Height float64 `json:"height" example:"800"`
}

// OpenReaderEndpoint handles POST /api/reader.
type OpenReaderEndpoint struct{}

func (e *OpenReaderEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/reader", e.handler
}

func (e *OpenReaderEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Open a book for reading
//	@Description	Starts a viewer session; the PDF loads in the background unless wait=true
//	@Tags			reader
//	@Accept			json
//	@Produce		json
//	@Param			request	body		OpenReaderRequest	true	"Book and viewport size"
//	@Param			wait	query		bool				false	"Wait for the first render"
//	@Success		201		{object}	ReaderResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		404		{object}	ErrorResponse
//	@Failure		429		{object}	ErrorResponse
//	@Router			/api/reader [post]
func (e *OpenReaderEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req OpenReaderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Width <= 0 || req.Height <= 0 {
		writeError(w, http.StatusBadRequest, "width and height must be positive")
		return
	}

	book, err := svcctx.CatalogFrom(ctx).Get(ctx, req.BookID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	rd, err := svcctx.ReadersFrom(ctx).Open(ctx, book.ID, book.PDFURL, req.Width, req.Height)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, readerResponse(r, rd))
}

func (e *OpenReaderEndpoint) Command(getServerURL func() string) *cobra.Command {
	var width, height float64
	var wait bool
	cmd := &cobra.Command{
		Use:   "open <book-id>",
		Short: "Open a book in a new reading session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/api/reader"
			if wait {
				path += "?wait=true"
			}
			var resp ReaderResponse
			req := OpenReaderRequest{BookID: args[0], Width: width, Height: height}
			if err := api.NewClient(getServerURL()).Post(cmd.Context(), path, req, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().Float64Var(&width, "width", 1280, "Viewport width in pixels")
	cmd.Flags().Float64Var(&height, "height", 800, "Viewport height in pixels")
	cmd.Flags().BoolVar(&wait, "wait", true, "Wait for the document to load and render")
	return cmd
}

// ListReadersEndpoint handles GET /api/reader.
type ListReadersEndpoint struct{}

func (e *ListReadersEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/reader", e.handler
}

func (e *ListReadersEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary	List reading sessions
//	@Tags		reader
//	@Produce	json
//	@Success	200	{array}	ReaderResponse
//	@Router		/api/reader [get]
func (e *ListReadersEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	readers := svcctx.ReadersFrom(r.Context()).List()
	resp := make([]ReaderResponse, 0, len(readers))
	for _, rd := range readers {
		resp = append(resp, ReaderResponse{ID: rd.ID, BookID: rd.BookID, CreatedAt: rd.CreatedAt, State: rd.Session.State()})
	}
	writeJSON(w, http.StatusOK, resp)
}

func (e *ListReadersEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List open reading sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp []ReaderResponse
			if err := api.NewClient(getServerURL()).Get(cmd.Context(), "/api/reader", &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// GetReaderEndpoint handles GET /api/reader/{id}.
type GetReaderEndpoint struct{}

func (e *GetReaderEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/reader/{id}", e.handler
}

func (e *GetReaderEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary	Get reading session state
//	@Tags		reader
//	@Produce	json
//	@Param		id		path		string	true	"Session ID"
//	@Param		wait	query		bool	false	"Wait until loading and rendering finished"
//	@Success	200		{object}	ReaderResponse
//	@Failure	404		{object}	ErrorResponse
//	@Router		/api/reader/{id} [get]
func (e *GetReaderEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	rd, err := svcctx.ReadersFrom(r.Context()).Get(r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, readerResponse(r, rd))
}

func (e *GetReaderEndpoint) Command(getServerURL func() string) *cobra.Command {
	var wait bool
	cmd := &cobra.Command{
		Use:   "get <session-id>",
		Short: "Show a reading session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp ReaderResponse
			if err := api.NewClient(getServerURL()).Get(cmd.Context(), readerPath(args[0], "", wait), &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().BoolVar(&wait, "wait", false, "Wait until loading and rendering finished")
	return cmd
}

// ReaderActions lists the actions accepted by ReaderActionEndpoint.
var ReaderActions = []string{"next", "prev", "zoom-in", "zoom-out", "fit", "bookmark"}

// applyAction runs one named viewer action.
func applyAction(ctx context.Context, s *viewer.Session, action string) error {
	switch action {
	case "next":
		return s.GoToNextPage()
	case "prev":
		return s.GoToPreviousPage()
	case "zoom-in":
		return s.ZoomIn()
	case "zoom-out":
		return s.ZoomOut()
	case "fit":
		return s.FitToScreen()
	case "bookmark":
		return s.ToggleBookmark(ctx)
	default:
		return fmt.Errorf("unknown action %q, want one of %s", action, strings.Join(ReaderActions, ", "))
	}
}

// ReaderActionEndpoint handles POST /api/reader/{id}/{action}.
type ReaderActionEndpoint struct{}

func (e *ReaderActionEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/reader/{id}/{action}", e.handler
}

func (e *ReaderActionEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Run a viewer action
//	@Description	next, prev, zoom-in, zoom-out, fit or bookmark
//	@Tags			reader
//	@Produce		json
//	@Param			id		path		string	true	"Session ID"
//	@Param			action	path		string	true	"Action"
//	@Param			wait	query		bool	false	"Wait for rendering"
//	@Success		200		{object}	ReaderResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		404		{object}	ErrorResponse
//	@Failure		409		{object}	ErrorResponse
//	@Router			/api/reader/{id}/{action} [post]
func (e *ReaderActionEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	rd, err := svcctx.ReadersFrom(r.Context()).Get(r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	action := r.PathValue("action")
	if !validAction(action) {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown action %q", action))
		return
	}
	if err := applyAction(r.Context(), rd.Session, action); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, readerResponse(r, rd))
}

func validAction(action string) bool {
	for _, a := range ReaderActions {
		if a == action {
			return true
		}
	}
	return false
}

func (e *ReaderActionEndpoint) Command(getServerURL func() string) *cobra.Command {
	var wait bool
	cmd := &cobra.Command{
		Use:       "do <session-id> <" + strings.Join(ReaderActions, "|") + ">",
		Short:     "Run a viewer action",
		Args:      cobra.ExactArgs(2),
		ValidArgs: ReaderActions,
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp ReaderResponse
			if err := api.NewClient(getServerURL()).Post(cmd.Context(), readerPath(args[0], "/"+args[1], wait), nil, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().BoolVar(&wait, "wait", true, "Wait for rendering")
	return cmd
}

// KeyRequest reports a key press.
type KeyRequest struct {
	Key string `json:"key" example:"ArrowRight"`
}

// KeyResponse reports whether the key was handled.
type KeyResponse struct {
	Handled bool `json:"handled"`
	ReaderResponse
}

// ReaderKeyEndpoint handles POST /api/reader/{id}/key.
type ReaderKeyEndpoint struct{}

func (e *ReaderKeyEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/reader/{id}/key", e.handler
}

func (e *ReaderKeyEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Send a key press
//	@Description	ArrowRight and ArrowLeft navigate; other keys are ignored
//	@Tags			reader
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string		true	"Session ID"
//	@Param			request	body		KeyRequest	true	"Key"
//	@Success		200		{object}	KeyResponse
//	@Failure		404		{object}	ErrorResponse
//	@Router			/api/reader/{id}/key [post]
func (e *ReaderKeyEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	rd, err := svcctx.ReadersFrom(r.Context()).Get(r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	var req KeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	handled := rd.Session.HandleKey(viewer.Key(req.Key))
	writeJSON(w, http.StatusOK, KeyResponse{Handled: handled, ReaderResponse: readerResponse(r, rd)})
}

func (e *ReaderKeyEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "key <session-id> <ArrowLeft|ArrowRight>",
		Short: "Send a key press to a reading session",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp KeyResponse
			if err := api.NewClient(getServerURL()).Post(cmd.Context(), readerPath(args[0], "/key", true), KeyRequest{Key: args[1]}, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// ResizeRequest reports a new viewport size.
type ResizeRequest struct {
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// ReaderResizeEndpoint handles POST /api/reader/{id}/resize.
type ReaderResizeEndpoint struct{}

func (e *ReaderResizeEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/reader/{id}/resize", e.handler
}

func (e *ReaderResizeEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Resize the viewport
//	@Description	Recomputes layout and fit
//	@Tags			reader
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"Session ID"
//	@Param			request	body		ResizeRequest	true	"Viewport size"
//	@Success		200		{object}	ReaderResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		404		{object}	ErrorResponse
//	@Router			/api/reader/{id}/resize [post]
func (e *ReaderResizeEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	rd, err := svcctx.ReadersFrom(r.Context()).Get(r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	var req ResizeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := rd.Session.Resize(req.Width, req.Height); err != nil {
		if errors.Is(err, viewer.ErrClosed) {
			writeServiceError(w, err)
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, readerResponse(r, rd))
}

func (e *ReaderResizeEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "resize <session-id> <width> <height>",
		Short: "Resize a reading session viewport",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			width, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return fmt.Errorf("invalid width: %w", err)
			}
			height, err := strconv.ParseFloat(args[2], 64)
			if err != nil {
				return fmt.Errorf("invalid height: %w", err)
			}
			var resp ReaderResponse
			req := ResizeRequest{Width: width, Height: height}
			if err := api.NewClient(getServerURL()).Post(cmd.Context(), readerPath(args[0], "/resize", true), req, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}

// ReaderSurfaceEndpoint handles GET /api/reader/{id}/surfaces/{slot}.
type ReaderSurfaceEndpoint struct{}

func (e *ReaderSurfaceEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/reader/{id}/surfaces/{slot}", e.handler
}

func (e *ReaderSurfaceEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Rendered page image
//	@Description	PNG of the page last drawn on the primary or secondary surface
//	@Tags			reader
//	@Produce		png
//	@Param			id		path	string	true	"Session ID"
//	@Param			slot	path	string	true	"primary.png or secondary.png"
//	@Success		200
//	@Failure		404	{object}	ErrorResponse
//	@Router			/api/reader/{id}/surfaces/{slot} [get]
func (e *ReaderSurfaceEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	rd, err := svcctx.ReadersFrom(r.Context()).Get(r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	slot, err := viewer.ParseSlot(strings.TrimSuffix(r.PathValue("slot"), ".png"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	canvas, ok := rd.Session.Surface(slot).(*viewer.Canvas)
	if !ok {
		writeError(w, http.StatusNotFound, "surface is not served over HTTP")
		return
	}
	img, page, version := canvas.Snapshot()
	if img == nil {
		writeError(w, http.StatusNotFound, "surface is empty")
		return
	}

	etag := fmt.Sprintf(`"%s-%d"`, rd.ID, version)
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("ETag", etag)
	w.Header().Set("X-Page", strconv.Itoa(page))
	w.Write(buf.Bytes())
}

func (e *ReaderSurfaceEndpoint) Command(getServerURL func() string) *cobra.Command {
	var outputFile string
	cmd := &cobra.Command{
		Use:   "surface <session-id> <primary|secondary>",
		Short: "Save the rendered page of a surface as PNG",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := api.NewClient(getServerURL()).GetRaw(cmd.Context(), "/api/reader/"+args[0]+"/surfaces/"+args[1]+".png")
			if err != nil {
				return err
			}
			if outputFile == "" {
				outputFile = args[1] + ".png"
			}
			if err := os.WriteFile(outputFile, data, 0o644); err != nil {
				return err
			}
			fmt.Printf("Wrote %s\n", outputFile)
			return nil
		},
	}
	cmd.Flags().StringVarP(&outputFile, "file", "f", "", "Output file (default: <slot>.png)")
	return cmd
}

// CloseReaderEndpoint handles DELETE /api/reader/{id}.
type CloseReaderEndpoint struct{}

func (e *CloseReaderEndpoint) Route() (string, string, http.HandlerFunc) {
	return "DELETE", "/api/reader/{id}", e.handler
}

func (e *CloseReaderEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary	Close a reading session
//	@Tags		reader
//	@Param		id	path	string	true	"Session ID"
//	@Success	204
//	@Failure	404	{object}	ErrorResponse
//	@Router		/api/reader/{id} [delete]
func (e *CloseReaderEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	if err := svcctx.ReadersFrom(r.Context()).Close(r.PathValue("id")); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (e *CloseReaderEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "close <session-id>",
		Short: "Close a reading session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := api.NewClient(getServerURL()).Delete(cmd.Context(), "/api/reader/"+args[0]); err != nil {
				return err
			}
			fmt.Printf("Closed %s\n", args[0])
			return nil
		},
	}
}
