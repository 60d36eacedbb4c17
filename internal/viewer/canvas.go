package viewer

import (
	"image"
	"sync"
)

// Canvas is an in-memory Surface holding the last drawn page.
type Canvas struct {
	mu      sync.RWMutex
	img     image.Image
	page    int
	version uint64
}

// NewCanvas returns an empty canvas.
func NewCanvas() *Canvas {
	return &Canvas{}
}

// Draw replaces the canvas contents.
func (c *Canvas) Draw(page int, img image.Image) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.img = img
	c.page = page
	c.version++
}

// Clear empties the canvas.
func (c *Canvas) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.img == nil && c.page == 0 {
		return
	}
	c.img = nil
	c.page = 0
	c.version++
}

// Snapshot returns the current image, its page (0 when empty) and a counter
// that increases on every change.
func (c *Canvas) Snapshot() (image.Image, int, uint64) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.img, c.page, c.version
}

var _ Surface = (*Canvas)(nil)
