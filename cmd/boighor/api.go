package main

import (
	"context"
	"fmt"
	"image/png"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/boighor/internal/api"
	"github.com/jackzampolin/boighor/internal/catalog"
	"github.com/jackzampolin/boighor/internal/document"
	"github.com/jackzampolin/boighor/internal/ingest"
	"github.com/jackzampolin/boighor/internal/server/endpoints"
)

var serverURL string

var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "Commands that call the running server",
	Long: `API commands call the running Boighor server via HTTP.

These commands require a running server (boighor serve).
Use --server to specify a custom server URL.

Examples:
  boighor api health                  # Check server health
  boighor api books list --q শরৎ      # Search the catalog
  boighor api reader open <book-id>   # Open a reading session`,
}

var booksCmd = &cobra.Command{
	Use:   "books",
	Short: "Book catalog commands",
}

var readerCmd = &cobra.Command{
	Use:   "reader",
	Short: "Reading session commands",
}

var filesCmd = &cobra.Command{
	Use:   "files",
	Short: "Stored file commands",
}

// getServerURL returns the server URL at runtime (after flag parsing).
func getServerURL() string {
	return strings.TrimRight(serverURL, "/")
}

var importAuthor string

var importCmd = &cobra.Command{
	Use:   "import <dir>",
	Short: "Add every PDF in a directory as a book",
	Long: `Add every PDF in a directory as a separate book.

PDFs are uploaded in volume order (book-2.pdf before book-10.pdf). The cover
is the first page of each PDF, rendered locally, and the title is taken from
the file name.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		paths, err := filepath.Glob(filepath.Join(args[0], "*.pdf"))
		if err != nil {
			return err
		}
		if len(paths) == 0 {
			return fmt.Errorf("no PDFs found in %s", args[0])
		}

		loader := document.NewLoader(document.LoaderConfig{})
		client := api.NewClient(getServerURL())

		var added []catalog.Book
		for _, path := range ingest.SortPDFsByNumber(paths) {
			cover, err := renderCover(cmd.Context(), loader, path)
			if err != nil {
				return fmt.Errorf("%s: %w", filepath.Base(path), err)
			}
			var book catalog.Book
			err = client.PostMultipart(cmd.Context(), "/api/books",
				map[string]string{"author": importAuthor},
				map[string]string{"cover": cover, "pdf": path},
				&book,
			)
			os.Remove(cover)
			if err != nil {
				return fmt.Errorf("%s: %w", filepath.Base(path), err)
			}
			added = append(added, book)
		}
		return api.Output(added)
	},
}

// renderCover writes page 1 of the PDF at path to a temporary PNG and
// returns its name.
func renderCover(ctx context.Context, loader *document.Loader, path string) (string, error) {
	doc, err := loader.Open(ctx, path)
	if err != nil {
		return "", err
	}
	defer doc.Close()

	page, err := doc.Page(ctx, 1)
	if err != nil {
		return "", err
	}
	img, err := page.Render(ctx, page.Viewport(1.0))
	if err != nil {
		return "", err
	}

	f, err := os.CreateTemp("", "boighor-cover-*.png")
	if err != nil {
		return "", err
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		os.Remove(f.Name())
		return "", err
	}
	return f.Name(), nil
}

func init() {
	// Add --server flag to api command (persistent so all subcommands inherit it)
	apiCmd.PersistentFlags().StringVar(
		&serverURL, "server", "http://localhost:8080", "Server URL",
	)

	// Health endpoints at top level of api
	apiCmd.AddCommand((&endpoints.HealthEndpoint{}).Command(getServerURL))
	apiCmd.AddCommand((&endpoints.ReadyEndpoint{}).Command(getServerURL))
	apiCmd.AddCommand((&endpoints.StatusEndpoint{}).Command(getServerURL))

	for _, ep := range endpoints.BookCommands() {
		booksCmd.AddCommand(ep.Command(getServerURL))
	}
	importCmd.Flags().StringVar(&importAuthor, "author", "", "Author of every imported book")
	importCmd.MarkFlagRequired("author")
	booksCmd.AddCommand(importCmd)
	apiCmd.AddCommand(booksCmd)

	for _, ep := range endpoints.ReaderCommands() {
		readerCmd.AddCommand(ep.Command(getServerURL))
	}
	apiCmd.AddCommand(readerCmd)

	filesCmd.AddCommand((&endpoints.FilesEndpoint{}).Command(getServerURL))
	apiCmd.AddCommand(filesCmd)

	apiCmd.AddCommand((&endpoints.SwaggerEndpoint{}).Command(getServerURL))

	rootCmd.AddCommand(apiCmd)
}
