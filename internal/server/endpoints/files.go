package endpoints

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/boighor/internal/api"
	"github.com/jackzampolin/boighor/internal/storage"
	"github.com/jackzampolin/boighor/internal/svcctx"
)

// maxThumbnailWidth bounds ?width so a request cannot upscale covers.
const maxThumbnailWidth = 2000

// FilesEndpoint handles GET /files/{bucket}/{path...}.
type FilesEndpoint struct{}

func (e *FilesEndpoint) Route() (string, string, http.HandlerFunc) {
	return "GET", storage.URLPrefix + "{bucket}/{path...}", e.handler
}

func (e *FilesEndpoint) RequiresInit() bool { return true }

// handler godoc
//
//	@Summary		Download a stored file
//	@Description	Covers accept ?width=N and are returned as a scaled JPEG
//	@Tags			files
//	@Produce		octet-stream
//	@Param			bucket	path	string	true	"covers or pdfs"
//	@Param			path	path	string	true	"Object path"
//	@Param			width	query	int		false	"Thumbnail width (covers only)"
//	@Success		200
//	@Failure		400	{object}	ErrorResponse
//	@Failure		404	{object}	ErrorResponse
//	@Router			/files/{bucket}/{path} [get]
func (e *FilesEndpoint) handler(w http.ResponseWriter, r *http.Request) {
	bucket := r.PathValue("bucket")
	objectPath := r.PathValue("path")

	f, err := svcctx.StorageFrom(r.Context()).Open(bucket, objectPath)
	if errors.Is(err, fs.ErrNotExist) {
		writeError(w, http.StatusNotFound, "file not found")
		return
	}
	if err != nil {
		writeServiceError(w, err)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	if raw := r.URL.Query().Get("width"); raw != "" && bucket == storage.Covers {
		width, err := strconv.Atoi(raw)
		if err != nil || width <= 0 || width > maxThumbnailWidth {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid width %q", raw))
			return
		}
		thumb, err := storage.Thumbnail(f, width)
		if err != nil {
			svcctx.LoggerFrom(r.Context()).Warn("thumbnail failed", "path", objectPath, "error", err)
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		w.Header().Set("Content-Type", "image/jpeg")
		w.Header().Set("Cache-Control", "public, max-age=86400")
		http.ServeContent(w, r, "", info.ModTime(), bytes.NewReader(thumb))
		return
	}

	w.Header().Set("Cache-Control", "public, max-age=86400")
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}

func (e *FilesEndpoint) Command(getServerURL func() string) *cobra.Command {
	var outputFile string
	var width int
	cmd := &cobra.Command{
		Use:   "download <url-or-path>",
		Short: "Download a stored cover or PDF",
		Long: `Download a file by the URL stored on a book, e.g.
  boighor api files download /files/covers/public/1700000000000_cover.png -f cover.png`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := strings.TrimPrefix(args[0], getServerURL())
			if width > 0 {
				path += "?width=" + strconv.Itoa(width)
			}
			data, err := api.NewClient(getServerURL()).GetRaw(cmd.Context(), path)
			if err != nil {
				return err
			}
			if outputFile == "" {
				outputFile = fmt.Sprintf("download-%d", time.Now().Unix())
			}
			if err := os.WriteFile(outputFile, data, 0o644); err != nil {
				return err
			}
			fmt.Printf("Wrote %d bytes to %s\n", len(data), outputFile)
			return nil
		},
	}
	cmd.Flags().StringVarP(&outputFile, "file", "f", "", "Output file")
	cmd.Flags().IntVar(&width, "width", 0, "Thumbnail width for covers")
	return cmd
}
