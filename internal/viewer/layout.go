package viewer

import (
	"fmt"
	"math"
)

// Defaults used when Config leaves a field zero.
const (
	DefaultMobileBreakpoint = 768.0
	DefaultZoomStep         = 1.2
	DefaultFitMargin        = 0.95
)

// Layout is the page arrangement derived from the viewport width.
type Layout string

const (
	// LayoutMobile shows a single page.
	LayoutMobile Layout = "mobile"
	// LayoutSpread shows two facing pages, except for the cover.
	LayoutSpread Layout = "spread"
)

// LayoutFor returns the layout for a viewport of the given width.
func LayoutFor(width, breakpoint float64) Layout {
	if width < breakpoint {
		return LayoutMobile
	}
	return LayoutSpread
}

// Slot identifies one of the two drawing surfaces.
type Slot int

const (
	Primary Slot = iota
	Secondary
)

// Slots lists both surfaces in render order.
var Slots = [2]Slot{Primary, Secondary}

func (s Slot) String() string {
	switch s {
	case Primary:
		return "primary"
	case Secondary:
		return "secondary"
	default:
		return fmt.Sprintf("slot(%d)", int(s))
	}
}

// ParseSlot converts "primary" or "secondary" into a Slot.
func ParseSlot(name string) (Slot, error) {
	switch name {
	case "primary":
		return Primary, nil
	case "secondary":
		return Secondary, nil
	default:
		return 0, fmt.Errorf("unknown surface %q", name)
	}
}

// isFirstPage reports whether there is no previous page.
func isFirstPage(current int) bool {
	return current <= 1
}

// isLastPage reports whether there is no next page. In spread layout the
// last navigable page is pageCount-1, so a two page document stops on the
// cover.
func isLastPage(layout Layout, current, pageCount int) bool {
	if layout == LayoutMobile {
		return current >= pageCount
	}
	return current >= pageCount-1
}

// nextPage returns the page reached by moving forward, or current at the end.
func nextPage(layout Layout, current, pageCount int) int {
	if isLastPage(layout, current, pageCount) {
		return current
	}
	if layout == LayoutMobile {
		return current + 1
	}
	if current == 1 {
		return 2
	}
	return min(pageCount, current+2)
}

// prevPage returns the page reached by moving back, or current at the start.
func prevPage(layout Layout, current int) int {
	if isFirstPage(current) {
		return current
	}
	if layout == LayoutMobile {
		return current - 1
	}
	if current == 2 {
		return 1
	}
	return max(1, current-2)
}

// showsSinglePage reports whether only the primary surface is in use.
func showsSinglePage(layout Layout, current, pageCount int) bool {
	return layout == LayoutMobile || current == 1 || pageCount == 1
}

// assignPages returns the page each surface should show. Zero means the
// surface is cleared.
func assignPages(layout Layout, current, pageCount int) [2]int {
	if showsSinglePage(layout, current, pageCount) {
		return [2]int{current, 0}
	}
	if current+1 <= pageCount {
		return [2]int{current, current + 1}
	}
	return [2]int{current, 0}
}

// fitZoom computes the zoom that fits the visible content into the viewport.
// pageWidth and pageHeight are page 1's dimensions at scale 1. It returns
// false when any dimension is unusable.
func fitZoom(layout Layout, current, pageCount int, pageWidth, pageHeight, availWidth, availHeight, margin float64) (float64, bool) {
	if pageWidth <= 0 || pageHeight <= 0 || availWidth <= 0 || availHeight <= 0 {
		return 0, false
	}
	contentWidth := pageWidth
	if !showsSinglePage(layout, current, pageCount) {
		contentWidth = pageWidth * 2
	}
	scaleX := availWidth * margin / contentWidth
	scaleY := availHeight * margin / pageHeight
	return math.Min(scaleX, scaleY), true
}

// pageLabel renders the position indicator shown above the pages.
func pageLabel(layout Layout, current, pageCount int) string {
	if pageCount == 0 {
		return ""
	}
	if showsSinglePage(layout, current, pageCount) {
		return fmt.Sprintf("Page %d of %d", current, pageCount)
	}
	return fmt.Sprintf("Pages %d-%d of %d", current, min(current+1, pageCount), pageCount)
}
