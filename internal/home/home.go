// Package home lays out the on-disk home directory: configuration, the
// DefraDB data directory and the file storage buckets.
package home

import (
	"fmt"
	"os"
	"path/filepath"
)

const (
	// DefaultDirName is created under the user's home directory.
	DefaultDirName = ".boighor"

	ConfigFileName = "config.yaml"
	PidFileName    = "server.pid"
	FilesDirName   = "files"
	DefraDirName   = "defradb"

	// BookmarksFileName holds bookmarks for the offline reader.
	BookmarksFileName = "bookmarks.yaml"
)

// Dir is a home directory.
type Dir struct {
	path string
}

// New returns the Dir at path, or ~/.boighor when path is empty.
func New(path string) (*Dir, error) {
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get user home directory: %w", err)
		}
		path = filepath.Join(home, DefaultDirName)
	}
	return &Dir{path: path}, nil
}

// Path returns the root of the home directory.
func (d *Dir) Path() string { return d.path }

// ConfigPath returns the default config file location.
func (d *Dir) ConfigPath() string { return filepath.Join(d.path, ConfigFileName) }

// PidPath returns where a running server records its pid.
func (d *Dir) PidPath() string { return filepath.Join(d.path, PidFileName) }

// FilesPath returns the root of the storage buckets.
func (d *Dir) FilesPath() string { return filepath.Join(d.path, FilesDirName) }

// BucketPath returns the directory backing one storage bucket.
func (d *Dir) BucketPath(bucket string) string { return filepath.Join(d.FilesPath(), bucket) }

// DefraPath returns the DefraDB data directory mounted into the container.
func (d *Dir) DefraPath() string { return filepath.Join(d.path, DefraDirName) }

// BookmarksPath returns the offline reader's bookmark file.
func (d *Dir) BookmarksPath() string { return filepath.Join(d.path, BookmarksFileName) }

// EnsureExists creates the home, files and DefraDB directories.
func (d *Dir) EnsureExists() error {
	for _, dir := range []string{d.FilesPath(), d.DefraPath()} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create %s: %w", dir, err)
		}
	}
	return nil
}

// ConfigExists reports whether the config file is present.
func (d *Dir) ConfigExists() bool {
	_, err := os.Stat(d.ConfigPath())
	return err == nil
}
