// internal/dom/history.go
package dom

import (
	"strings"
	"sync"
)

// History accumulates every element observed on the current page, keyed by
// fingerprint. Entries survive across scans of the same page, so elements
// hidden by dynamic UI changes stay resolvable, and the map is cleared the
// first time a scan reports a different URL.
type History struct {
	mu       sync.RWMutex
	elements map[string]*Element
	lastURL  string
}

// NewHistory creates an empty element history.
func NewHistory() *History {
	return &History{elements: make(map[string]*Element)}
}

// Absorb merges a scan result taken at pageURL into the history. A URL
// change discards all prior entries first. Re-sighted elements keep their
// map entry but take on the fresh snapshot's mutable state.
func (h *History) Absorb(pageURL string, scanned []*Element) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if pageURL != h.lastURL {
		h.elements = make(map[string]*Element, len(scanned))
		h.lastURL = pageURL
	}

	for _, el := range scanned {
		fp := el.Fingerprint()
		if existing, ok := h.elements[fp]; ok {
			existing.Visible = el.Visible
			existing.InViewport = el.InViewport
			existing.Bounds = el.Bounds
			existing.HighlightIndex = el.HighlightIndex
			continue
		}
		h.elements[fp] = el
	}
}

// Lookup returns the element for a fingerprint, if known.
func (h *History) Lookup(fingerprint string) (*Element, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	el, ok := h.elements[fingerprint]
	return el, ok
}

// FingerprintFor reverse-maps a raw locator to a known fingerprint. An
// xpath locator must match exactly; a "#id" locator matches by id
// attribute. Used to key manually recorded actions that carry selectors
// instead of fingerprints.
func (h *History) FingerprintFor(locator string) (string, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if id, ok := strings.CutPrefix(locator, "#"); ok {
		for fp, el := range h.elements {
			if el.Attr("id") == id {
				return fp, true
			}
		}
		return "", false
	}
	for fp, el := range h.elements {
		if el.XPath == locator {
			return fp, true
		}
	}
	return "", false
}

// ByHighlightIndex returns the element carrying the given scan overlay
// index, if any.
func (h *History) ByHighlightIndex(index int) (*Element, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, el := range h.elements {
		if el.HighlightIndex == index {
			return el, true
		}
	}
	return nil, false
}

// Len reports the number of tracked elements.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.elements)
}

// URL returns the page URL the history currently describes.
func (h *History) URL() string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.lastURL
}

// Clear drops all entries and the remembered URL.
func (h *History) Clear() {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.elements = make(map[string]*Element)
	h.lastURL = ""
}
