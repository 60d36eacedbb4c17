// Package storage keeps uploaded covers and PDFs in public buckets on the
// local filesystem and maps them to /files/<bucket>/<path> URLs.
package storage

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"strings"
	"time"
)

// Bucket names.
const (
	Covers = "covers"
	PDFs   = "pdfs"
)

// Buckets lists every bucket.
var Buckets = []string{Covers, PDFs}

// URLPrefix is the route public files are served under.
const URLPrefix = "/files/"

// ErrUnknownBucket is returned for bucket names outside Buckets.
var ErrUnknownBucket = errors.New("unknown bucket")

// ErrInvalidPath is returned for object paths that escape their bucket.
var ErrInvalidPath = errors.New("invalid object path")

var unsafeChars = regexp.MustCompile(`[^a-zA-Z0-9.\-_\x{0980}-\x{09FF}]`)

// Sanitize replaces every character outside ASCII letters and digits,
// ".-_", and the Bengali block with "_".
func Sanitize(name string) string {
	return unsafeChars.ReplaceAllString(name, "_")
}

// Config configures a Store.
type Config struct {
	// Root holds one directory per bucket.
	Root string
	// BaseURL is prepended to public URLs, e.g. "http://localhost:8080".
	// Empty yields root-relative URLs.
	BaseURL string
	Logger  *slog.Logger
	// Now is overridable for tests.
	Now func() time.Time
}

// Store is a filesystem-backed bucket store.
type Store struct {
	root    string
	baseURL string
	logger  *slog.Logger
	now     func() time.Time
}

// New creates the bucket directories under cfg.Root.
func New(cfg Config) (*Store, error) {
	if cfg.Root == "" {
		return nil, errors.New("storage root is required")
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	for _, b := range Buckets {
		if err := os.MkdirAll(filepath.Join(cfg.Root, b), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create bucket %s: %w", b, err)
		}
	}
	return &Store{
		root:    cfg.Root,
		baseURL: strings.TrimSuffix(cfg.BaseURL, "/"),
		logger:  cfg.Logger,
		now:     cfg.Now,
	}, nil
}

// ObjectPath returns the path a new upload named name is stored under.
func (s *Store) ObjectPath(name string) string {
	return fmt.Sprintf("public/%d_%s", s.now().UnixMilli(), Sanitize(name))
}

// Upload writes r into bucket and returns its public URL.
func (s *Store) Upload(bucket, name string, r io.Reader) (string, error) {
	objectPath := s.ObjectPath(name)
	full, err := s.resolve(bucket, objectPath)
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	f, err := os.OpenFile(full, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("failed to create %s: %w", objectPath, err)
	}
	n, err := io.Copy(f, r)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		os.Remove(full)
		return "", fmt.Errorf("failed to upload to %s: %w", bucket, err)
	}

	s.logger.Debug("stored file", "bucket", bucket, "path", objectPath, "bytes", n)
	return s.PublicURL(bucket, objectPath), nil
}

// PublicURL returns the URL serving objectPath.
func (s *Store) PublicURL(bucket, objectPath string) string {
	segments := strings.Split(objectPath, "/")
	for i, seg := range segments {
		segments[i] = url.PathEscape(seg)
	}
	return s.baseURL + URLPrefix + bucket + "/" + strings.Join(segments, "/")
}

// Open opens an object for reading.
func (s *Store) Open(bucket, objectPath string) (*os.File, error) {
	full, err := s.resolve(bucket, objectPath)
	if err != nil {
		return nil, err
	}
	return os.Open(full)
}

// Remove deletes an object. A missing object is not an error.
func (s *Store) Remove(bucket, objectPath string) error {
	full, err := s.resolve(bucket, objectPath)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete file from storage: %w", err)
	}
	return nil
}

// RemoveURL deletes the object a public URL points at. URLs that do not
// point into bucket are ignored.
func (s *Store) RemoveURL(bucket, rawURL string) error {
	objectPath, ok := PathFromURL(rawURL, bucket)
	if !ok {
		return nil
	}
	return s.Remove(bucket, objectPath)
}

// LocalPath maps a public URL to its file. It reports false for URLs that
// do not point at any bucket.
func (s *Store) LocalPath(rawURL string) (string, bool) {
	for _, b := range Buckets {
		objectPath, ok := PathFromURL(rawURL, b)
		if !ok {
			continue
		}
		full, err := s.resolve(b, objectPath)
		if err != nil {
			return "", false
		}
		return full, true
	}
	return "", false
}

func (s *Store) resolve(bucket, objectPath string) (string, error) {
	if !isBucket(bucket) {
		return "", fmt.Errorf("%w: %s", ErrUnknownBucket, bucket)
	}
	clean := path.Clean("/" + objectPath)
	if objectPath == "" || clean == "/" || clean != "/"+objectPath {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, objectPath)
	}
	return filepath.Join(s.root, bucket, filepath.FromSlash(clean[1:])), nil
}

func isBucket(name string) bool {
	for _, b := range Buckets {
		if b == name {
			return true
		}
	}
	return false
}

// PathFromURL returns the URL-decoded object path following "/<bucket>/" in
// rawURL's path.
func PathFromURL(rawURL, bucket string) (string, bool) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", false
	}
	p := u.EscapedPath()
	_, rest, found := strings.Cut(p, "/"+bucket+"/")
	if !found || rest == "" {
		return "", false
	}
	decoded, err := url.PathUnescape(rest)
	if err != nil {
		return "", false
	}
	return decoded, true
}
