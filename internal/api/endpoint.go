package api

import (
	"net/http"

	"github.com/spf13/cobra"
)

// Endpoint pairs an HTTP route with the CLI command that calls it, so the
// server and "boighor api" stay in step.
type Endpoint interface {
	// Route returns the method, the ServeMux path pattern and the handler.
	Route() (method, path string, handler http.HandlerFunc)

	// RequiresInit reports whether the handler needs the services that are
	// only wired once DefraDB is up and the schema is applied.
	RequiresInit() bool

	// Command builds the cobra command for this endpoint. getServerURL is
	// evaluated when the command runs, after flags are parsed.
	Command(getServerURL func() string) *cobra.Command
}
