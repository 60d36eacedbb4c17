// Package bookmarks persists one bookmarked page per document in a string
// key-value store.
package bookmarks

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"sync"

	"github.com/jackzampolin/boighor/internal/defra"
	"github.com/jackzampolin/boighor/internal/viewer"
)

// KeyPrefix is prepended to the document id to form the storage key.
const KeyPrefix = "bookmark-"

// Store is a durable string key-value store.
type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
	Delete(ctx context.Context, key string) error
}

// Key returns the storage key for a document.
func Key(documentID string) string {
	return KeyPrefix + documentID
}

// Bookmarks adapts a Store to viewer.BookmarkStore.
type Bookmarks struct {
	store Store
}

// New wraps store.
func New(store Store) *Bookmarks {
	return &Bookmarks{store: store}
}

// Bookmark implements viewer.BookmarkStore. Values that are not a positive
// integer read as no bookmark.
func (b *Bookmarks) Bookmark(ctx context.Context, documentID string) (int, bool, error) {
	raw, ok, err := b.store.Get(ctx, Key(documentID))
	if err != nil || !ok {
		return 0, false, err
	}
	page, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || page < 1 {
		return 0, false, nil
	}
	return page, true, nil
}

// SetBookmark implements viewer.BookmarkStore.
func (b *Bookmarks) SetBookmark(ctx context.Context, documentID string, page int) error {
	if page < 1 {
		return fmt.Errorf("invalid bookmark page %d", page)
	}
	return b.store.Set(ctx, Key(documentID), strconv.Itoa(page))
}

// ClearBookmark implements viewer.BookmarkStore.
func (b *Bookmarks) ClearBookmark(ctx context.Context, documentID string) error {
	return b.store.Delete(ctx, Key(documentID))
}

var _ viewer.BookmarkStore = (*Bookmarks)(nil)

// MemoryStore is a Store for tests and the local reader.
type MemoryStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{values: make(map[string]string)}
}

func (m *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.values[key]
	return v, ok, nil
}

func (m *MemoryStore) Set(_ context.Context, key, value string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.values[key] = value
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.values, key)
	return nil
}

// Collection is the DefraDB collection holding bookmarks.
const Collection = "Bookmark"

// DefraStore keeps values in the Bookmark collection, one document per key.
type DefraStore struct {
	client *defra.Client
}

// NewDefraStore creates a DefraStore.
func NewDefraStore(client *defra.Client) *DefraStore {
	return &DefraStore{client: client}
}

func (d *DefraStore) Get(ctx context.Context, key string) (string, bool, error) {
	docs, err := defra.NewQuery(Collection).Where("key", key).Fields("_docID", "value").Run(ctx, d.client)
	if err != nil {
		return "", false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	if len(docs) == 0 {
		return "", false, nil
	}
	value, _ := docs[0]["value"].(string)
	return value, true, nil
}

func (d *DefraStore) Set(ctx context.Context, key, value string) error {
	_, err := d.client.Upsert(ctx, Collection,
		map[string]any{"key": key},
		map[string]any{"key": key, "value": value},
		map[string]any{"value": value},
	)
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

func (d *DefraStore) Delete(ctx context.Context, key string) error {
	docs, err := defra.NewQuery(Collection).Where("key", key).Run(ctx, d.client)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", key, err)
	}
	for _, doc := range docs {
		id, _ := doc["_docID"].(string)
		if id == "" {
			continue
		}
		if err := d.client.Delete(ctx, Collection, id); err != nil {
			return fmt.Errorf("failed to delete %s: %w", key, err)
		}
	}
	return nil
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*DefraStore)(nil)
)
