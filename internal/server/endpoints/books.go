package endpoints

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/boighor/internal/api"
	"github.com/jackzampolin/boighor/internal/catalog"
	"github.com/jackzampolin/boighor/internal/ingest"
	"github.com/jackzampolin/boighor/internal/svcctx"
)

// defaultMaxUpload applies when no config is in context.
const defaultMaxUpload = 200 << 20

// maxUpload returns the multipart size limit from config.
func maxUpload(ctx context.Context) int64 {
	if cm := svcctx.ConfigFrom(ctx); cm != nil {
		if mb := cm.Get().Storage.MaxUploadMB; mb > 0 {
			return int64(mb) << 20
		}
	}
	return defaultMaxUpload
}

// ListBooksResponse is the response for listing books.
type ListBooksResponse struct {
	Books []catalog.Book `json:"books"`
	Total int            `json:"total"`
}

// ListBooksEndpoint handles GET /api/books.
type ListBooksEndpoint struct{}

func (e *ListBooksEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/books", e.handler
}

func (e *ListBooksEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		List books
//	@Description	Newest first; q filters by title or author
//	@Tags			books
//	@Produce		json
//	@Param			q	query		string	false	"Search text"
//	@Success		200	{object}	ListBooksResponse
//	@Failure		500	{object}	ErrorResponse
//	@Failure		503	{object}	ErrorResponse
//	@Router			/api/books [get]
func (e *ListBooksEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	books, err := svcctx.CatalogFrom(r.Context()).List(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ListBooksResponse{Books: books, Total: len(books)})
}

func (e *ListBooksEndpoint) Command(getServerURL func() string) *cobra.Command {
	var query string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List books",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := "/api/books"
			if query != "" {
				path += "?q=" + url.QueryEscape(query)
			}
			var resp ListBooksResponse
			if err := api.NewClient(getServerURL()).Get(cmd.Context(), path, &resp); err != nil {
				return err
			}
			return api.Output(resp)
		},
	}
	cmd.Flags().StringVarP(&query, "query", "q", "", "Filter by title or author")
	return cmd
}

// GetBookEndpoint handles GET /api/books/{id}.
type GetBookEndpoint struct{}

func (e *GetBookEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", "/api/books/{id}", e.handler
}

func (e *GetBookEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary	Get book by ID
//	@Tags		books
//	@Produce	json
//	@Param		id	path		string	true	"Book ID"
//	@Success	200	{object}	catalog.Book
//	@Failure	400	{object}	ErrorResponse
//	@Failure	404	{object}	ErrorResponse
//	@Failure	503	{object}	ErrorResponse
//	@Router		/api/books/{id} [get]
func (e *GetBookEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	book, err := svcctx.CatalogFrom(r.Context()).Get(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, book)
}

func (e *GetBookEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "get <book-id>",
		Short: "Get book details",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var book catalog.Book
			if err := api.NewClient(getServerURL()).Get(cmd.Context(), "/api/books/"+args[0], &book); err != nil {
				return err
			}
			return api.Output(book)
		},
	}
}

// CreateBookEndpoint handles POST /api/books with a multipart form.
type CreateBookEndpoint struct{}

var _ api.Endpoint = (*CreateBookEndpoint)(nil)

func (e *CreateBookEndpoint) Route() (string, string, http.HandlerFunc) {
	return "POST", "/api/books", e.handler
}

func (e *CreateBookEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Add a book
//	@Description	Uploads the cover and PDF, reads the page count and creates the record
//	@Tags			books
//	@Accept			mpfd
//	@Produce		json
//	@Param			title				formData	string	false	"Title (derived from the PDF name if empty)"
//	@Param			author				formData	string	true	"Author"
//	@Param			genre				formData	string	false	"Genre"
//	@Param			description			formData	string	false	"Description"
//	@Param			publicationYear		formData	int		false	"Publication year"
//	@Param			cover				formData	file	true	"Cover image"
//	@Param			pdf					formData	file	true	"Book PDF"
//	@Success		201	{object}	catalog.Book
//	@Failure		400	{object}	ErrorResponse
//	@Failure		500	{object}	ErrorResponse
//	@Failure		503	{object}	ErrorResponse
//	@Router			/api/books [post]
func (e *CreateBookEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUpload(r.Context()))
	if err := r.ParseMultipartForm(32 << 20); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("failed to parse form: %v", err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	year, err := formYear(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	req := ingest.Request{
		Title:           strings.TrimSpace(r.FormValue("title")),
		Author:          strings.TrimSpace(r.FormValue("author")),
		Genre:           strings.TrimSpace(r.FormValue("genre")),
		Description:     strings.TrimSpace(r.FormValue("description")),
		PublicationYear: year,
	}

	cover, coverHeader, err := r.FormFile("cover")
	if err != nil {
		writeError(w, http.StatusBadRequest, "cover image is required")
		return
	}
	defer cover.Close()
	pdf, pdfHeader, err := r.FormFile("pdf")
	if err != nil {
		writeError(w, http.StatusBadRequest, "pdf file is required")
		return
	}
	defer pdf.Close()
	req.Cover = ingest.File{Name: coverHeader.Filename, Content: cover}
	req.PDF = ingest.File{Name: pdfHeader.Filename, Content: pdf}

	book, err := svcctx.IngesterFrom(r.Context()).AddBook(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, book)
}

// formYear accepts publicationYear or publication_year; empty means unknown.
func formYear(r *http.Request) (int, error) {
	raw := r.FormValue("publicationYear")
	if raw == "" {
		raw = r.FormValue("publication_year")
	}
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	year, err := strconv.Atoi(raw)
	if err != nil || year < 0 {
		return 0, fmt.Errorf("invalid publication year %q", raw)
	}
	return year, nil
}

func (e *CreateBookEndpoint) Command(getServerURL func() string) *cobra.Command {
	var title, author, genre, description, coverPath, pdfPath string
	var year int
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Add a book from a cover image and a PDF",
		Long: `Upload a cover image and a PDF and create the catalog record.

The title is derived from the PDF file name when not provided.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			fields := map[string]string{
				"title":       title,
				"author":      author,
				"genre":       genre,
				"description": description,
			}
			if year > 0 {
				fields["publicationYear"] = strconv.Itoa(year)
			}
			files := map[string]string{"cover": coverPath, "pdf": pdfPath}

			var book catalog.Book
			if err := api.NewClient(getServerURL()).PostMultipart(cmd.Context(), "/api/books", fields, files, &book); err != nil {
				return err
			}
			return api.Output(book)
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "Book title")
	cmd.Flags().StringVar(&author, "author", "", "Book author")
	cmd.Flags().StringVar(&genre, "genre", "", "Genre")
	cmd.Flags().StringVar(&description, "description", "", "Description")
	cmd.Flags().IntVar(&year, "year", 0, "Publication year")
	cmd.Flags().StringVar(&coverPath, "cover", "", "Cover image file")
	cmd.Flags().StringVar(&pdfPath, "pdf", "", "PDF file")
	cmd.MarkFlagRequired("author")
	cmd.MarkFlagRequired("cover")
	cmd.MarkFlagRequired("pdf")
	return cmd
}

// UpdateBookEndpoint handles PATCH /api/books/{id}.
type UpdateBookEndpoint struct{}

func (e *UpdateBookEndpoint) Route() (string, string, http.HandlerFunc) {
	return "PATCH", "/api/books/{id}", e.handler
}

func (e *UpdateBookEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Update a book
//	@Description	Partial update; rating is clamped to 0-5
//	@Tags			books
//	@Accept			json
//	@Produce		json
//	@Param			id		path		string			true	"Book ID"
//	@Param			request	body		catalog.Update	true	"Fields to change"
//	@Success		200		{object}	catalog.Book
//	@Failure		400		{object}	ErrorResponse
//	@Failure		404		{object}	ErrorResponse
//	@Router			/api/books/{id} [patch]
func (e *UpdateBookEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	var req catalog.Update
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	book, err := svcctx.CatalogFrom(r.Context()).Update(r.Context(), r.PathValue("id"), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, book)
}

func (e *UpdateBookEndpoint) Command(getServerURL func() string) *cobra.Command {
	var title, author, genre, description string
	var year, rating int
	cmd := &cobra.Command{
		Use:   "update <book-id>",
		Short: "Update book fields",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var req catalog.Update
			flags := cmd.Flags()
			if flags.Changed("title") {
				req.Title = &title
			}
			if flags.Changed("author") {
				req.Author = &author
			}
			if flags.Changed("genre") {
				req.Genre = &genre
			}
			if flags.Changed("description") {
				req.Description = &description
			}
			if flags.Changed("year") {
				req.PublicationYear = &year
			}
			if flags.Changed("rating") {
				req.Rating = &rating
			}

			var book catalog.Book
			if err := api.NewClient(getServerURL()).Patch(cmd.Context(), "/api/books/"+args[0], req, &book); err != nil {
				return err
			}
			return api.Output(book)
		},
	}
	cmd.Flags().StringVar(&title, "title", "", "Book title")
	cmd.Flags().StringVar(&author, "author", "", "Book author")
	cmd.Flags().StringVar(&genre, "genre", "", "Genre")
	cmd.Flags().StringVar(&description, "description", "", "Description")
	cmd.Flags().IntVar(&year, "year", 0, "Publication year")
	cmd.Flags().IntVar(&rating, "rating", 0, "Rating 0-5")
	return cmd
}

// DeleteBookEndpoint handles DELETE /api/books/{id}.
type DeleteBookEndpoint struct{}

func (e *DeleteBookEndpoint) Route() (string, string, http.HandlerFunc) {
	return "DELETE", "/api/books/{id}", e.handler
}

func (e *DeleteBookEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Delete a book
//	@Description	Removes the cover and PDF, then the record
//	@Tags			books
//	@Param			id	path	string	true	"Book ID"
//	@Success		204
//	@Failure		400	{object}	ErrorResponse
//	@Failure		500	{object}	ErrorResponse
//	@Router			/api/books/{id} [delete]
func (e *DeleteBookEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	if err := svcctx.CatalogFrom(r.Context()).Delete(r.Context(), r.PathValue("id")); err != nil {
		writeServiceError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (e *DeleteBookEndpoint) Command(getServerURL func() string) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <book-id>",
		Short: "Delete a book and its files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := api.NewClient(getServerURL()).Delete(cmd.Context(), "/api/books/"+args[0]); err != nil {
				return err
			}
			fmt.Printf("Deleted %s\n", args[0])
			return nil
		},
	}
}

// multipartFile reads one uploaded file fully, capped at limit bytes.
func multipartFile(fh *multipart.FileHeader, limit int64) ([]byte, error) {
	if fh.Size > limit {
		return nil, fmt.Errorf("file %s is too large", fh.Filename)
	}
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open uploaded file: %w", err)
	}
	defer f.Close()
	data := make([]byte, fh.Size)
	if _, err := io.ReadFull(f, data); err != nil {
		return nil, fmt.Errorf("failed to read uploaded file: %w", err)
	}
	return data, nil
}
