// internal/dom/element.go
package dom

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"
	"strings"
)

// Bounds is the bounding box of an element in CSS pixels.
type Bounds struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Element is a snapshot of an interactive DOM node as reported by the
// in-page scan script.
type Element struct {
	Tag            string            `json:"tagName"`
	XPath          string            `json:"xpath"`
	Text           string            `json:"text"`
	Attrs          map[string]string `json:"attributes"`
	Visible        bool              `json:"isVisible"`
	Interactive    bool              `json:"isInteractive"`
	InViewport     bool              `json:"isInViewport"`
	Bounds         Bounds            `json:"bounds"`
	HighlightIndex int               `json:"highlightIndex"`

	fingerprint string
}

// fingerprintInput is the canonical identity document. Serialization follows
// declaration order, so identity can only change by editing this struct.
type fingerprintInput struct {
	Tag         string `json:"tag"`
	XPath       string `json:"xpath"`
	Text        string `json:"text"`
	Classes     string `json:"classes"`
	Type        string `json:"type"`
	ID          string `json:"id"`
	Name        string `json:"name"`
	Role        string `json:"role"`
	AriaLabel   string `json:"aria-label"`
	Placeholder string `json:"placeholder"`
}

// Attr returns the named attribute or "".
func (e *Element) Attr(name string) string {
	if e.Attrs == nil {
		return ""
	}
	return e.Attrs[name]
}

// normalizedClasses returns the class attribute with tokens sorted, so that
// reordered class lists do not change identity.
func (e *Element) normalizedClasses() string {
	raw := strings.Fields(e.Attr("class"))
	if len(raw) == 0 {
		return ""
	}
	sort.Strings(raw)
	return strings.Join(raw, " ")
}

// Fingerprint returns the stable identity hash of the element: a sha256 over
// the canonical identity fields. It is computed once and cached.
func (e *Element) Fingerprint() string {
	if e.fingerprint != "" {
		return e.fingerprint
	}
	in := fingerprintInput{
		Tag:         strings.ToLower(e.Tag),
		XPath:       e.XPath,
		Text:        strings.TrimSpace(e.Text),
		Classes:     e.normalizedClasses(),
		Type:        e.Attr("type"),
		ID:          e.Attr("id"),
		Name:        e.Attr("name"),
		Role:        e.Attr("role"),
		AriaLabel:   e.Attr("aria-label"),
		Placeholder: e.Attr("placeholder"),
	}
	// encoding/json emits struct fields in declaration order, which is all
	// the determinism the hash needs.
	payload, err := json.Marshal(in)
	if err != nil {
		// Marshaling a flat string struct cannot fail.
		panic(err)
	}
	sum := sha256.Sum256(payload)
	e.fingerprint = hex.EncodeToString(sum[:])
	return e.fingerprint
}

// Describe returns a short human-readable label for logging.
func (e *Element) Describe() string {
	var b strings.Builder
	b.WriteString("<")
	b.WriteString(strings.ToLower(e.Tag))
	if id := e.Attr("id"); id != "" {
		b.WriteString(" id=")
		b.WriteString(id)
	}
	if name := e.Attr("name"); name != "" {
		b.WriteString(" name=")
		b.WriteString(name)
	}
	b.WriteString(">")
	if text := strings.TrimSpace(e.Text); text != "" {
		if len(text) > 40 {
			text = text[:40] + "..."
		}
		b.WriteString(" ")
		b.WriteString(text)
	}
	return b.String()
}
