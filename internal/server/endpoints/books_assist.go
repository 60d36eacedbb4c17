package endpoints

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/boighor/internal/api"
	"github.com/jackzampolin/boighor/internal/assistant"
	"github.com/jackzampolin/boighor/internal/catalog"
	"github.com/jackzampolin/boighor/internal/svcctx"
)

// GenerateRequest selects what to generate.
type GenerateRequest struct {
	Kind string `json:"kind" example:"summary"`
}

// GenerateResponse holds the generated text and the updated book.
type GenerateResponse struct {
	Kind string        `json:"kind"`
	Text string        `json:"text"`
	Book *catalog.Book `json:"book"`
}

// GenerateEndpoint handles POST /api/books/{id}/generate.
type GenerateEndpoint struct{}

func (e *GenerateEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/books/{id}/generate", e.handler
}

func (e *GenerateEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Generate book text
//	@Description	Writes a Bengali summary, author introduction or description and stores it on the book
//	@Tags			books
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"Book ID"
//	@Param			request	body		GenerateRequest	true	"summary, authorIntro or description"
//	@Success		200		{object}	GenerateResponse
//	@Failure		400		{object}	ErrorResponse
//	@Failure		404		{object}	ErrorResponse
//	@Failure		502		{object}	ErrorResponse
//	@Failure		503		{object}	ErrorResponse
//	@Router			/api/books/{id}/generate [post]
func (e *GenerateEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var req GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	kind, err := assistant.ParseKind(req.Kind)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	books := svcctx.CatalogFrom(ctx)
	book, err := books.Get(ctx, r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	text, err := svcctx.AssistantFrom(ctx).GenerateBookInfo(ctx, book.Title, book.Author, kind)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	var update catalog.Update
	switch kind {
	case assistant.KindSummary:
		update.Summary = &text
	case assistant.KindAuthorIntro:
		update.AuthorIntro = &text
	case assistant.KindDescription:
		update.Description = &text
	}
	book, err = books.Update(ctx, book.ID, update)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, GenerateResponse{Kind: string(kind), Text: text, Book: book})
}

func (e *GenerateEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:       "generate <book-id> <summary|authorIntro|description>",
		Short:     "Generate and store a Bengali text for a book",
		Args:      cobra.ExactArgs(2),
		ValidArgs: []string{string(assistant.KindSummary), string(assistant.KindAuthorIntro), string(assistant.KindDescription)},
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp GenerateResponse
			path := "/api/books/" + args[0] + "/generate"
			if err := api.NewClient(getServerURL()).Post(cmd.Context(), path, GenerateRequest{Kind: args[1]}, &resp); err != nil {
				return err
			}
			if api.GetOutputFormat() == api.OutputFormatJSON {
				return api.Output(resp)
			}
			fmt.Println(resp.Text)
			return nil
		},
	}
}

// AnalyzeEndpoint handles POST /api/books/analyze.
type AnalyzeEndpoint struct{}

func (e *AnalyzeEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/books/analyze", e.handler
}

func (e *AnalyzeEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Extract book details from a file
//	@Description	A cover image or PDF; PDFs also report their page count
//	@Tags			books
//	@Accept			mpfd
//	@Produce		json
//	@Param			file	formData	file	true	"Cover image or PDF"
//	@Success		200		{object}	assistant.Analysis
//	@Failure		400		{object}	ErrorResponse
//	@Failure		502		{object}	ErrorResponse
//	@Failure		503		{object}	ErrorResponse
//	@Router			/api/books/analyze [post]
func (e *AnalyzeEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	limit := maxUpload(ctx)
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("failed to parse form: %v", err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File["file"]
	if len(files) == 0 {
		writeError(w, http.StatusBadRequest, "no file uploaded")
		return
	}
	fh := files[0]
	data, err := multipartFile(fh, limit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	mimeType := fh.Header.Get("Content-Type")
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = http.DetectContentType(data)
	}

	analysis, err := svcctx.AssistantFrom(ctx).AnalyzeFile(ctx, fh.Filename, mimeType, data)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, analysis)
}

func (e *AnalyzeEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "analyze <file>",
		Short: "Extract title, author, genre and year from a cover or PDF",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path, err := filepath.Abs(args[0])
			if err != nil {
				return fmt.Errorf("invalid path %s: %w", args[0], err)
			}
			if _, err := os.Stat(path); err != nil {
				return err
			}
			var resp assistant.Analysis
			files := map[string]string{"file": path}
			if err := api.NewClient(getServerURL()).PostMultipart(cmd.Context(), "/api/books/analyze", nil, files, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
}
