// internal/dom/history_test.go
package dom

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func namedElement(id, xpath string) *Element {
	return &Element{
		Tag:         "button",
		XPath:       xpath,
		Attrs:       map[string]string{"id": id},
		Visible:     true,
		Interactive: true,
	}
}

func TestHistory_AbsorbAndLookup(t *testing.T) {
	h := NewHistory()
	el := namedElement("submit", "/html[1]/body[1]/button[1]")
	h.Absorb("https://example.test/login", []*Element{el})

	got, ok := h.Lookup(el.Fingerprint())
	require.True(t, ok)
	assert.Same(t, el, got)
	assert.Equal(t, 1, h.Len())
	assert.Equal(t, "https://example.test/login", h.URL())
}

func TestHistory_ClearsOnURLChange(t *testing.T) {
	h := NewHistory()
	old := namedElement("submit", "/html[1]/body[1]/button[1]")
	h.Absorb("https://example.test/login", []*Element{old})

	fresh := namedElement("logout", "/html[1]/body[1]/a[1]")
	h.Absorb("https://example.test/home", []*Element{fresh})

	_, ok := h.Lookup(old.Fingerprint())
	assert.False(t, ok, "navigation must clear the old page's elements")
	_, ok = h.Lookup(fresh.Fingerprint())
	assert.True(t, ok)
	assert.Equal(t, 1, h.Len())
}

func TestHistory_RetainsHiddenElementsOnSamePage(t *testing.T) {
	h := NewHistory()
	menu := namedElement("menu", "/html[1]/body[1]/div[1]")
	h.Absorb("https://example.test/", []*Element{menu})

	// A later scan of the same page no longer sees the element (a dropdown
	// closed), but the history keeps it resolvable.
	other := namedElement("open", "/html[1]/body[1]/button[1]")
	h.Absorb("https://example.test/", []*Element{other})

	_, ok := h.Lookup(menu.Fingerprint())
	assert.True(t, ok, "same-page rescans must not evict elements")
	assert.Equal(t, 2, h.Len())
}

func TestHistory_AbsorbUpdatesMutableState(t *testing.T) {
	h := NewHistory()
	first := namedElement("cta", "/html[1]/body[1]/button[1]")
	h.Absorb("https://example.test/", []*Element{first})

	second := namedElement("cta", "/html[1]/body[1]/button[1]")
	second.Visible = false
	second.HighlightIndex = 5
	second.Bounds = Bounds{X: 10, Y: 20, Width: 30, Height: 40}
	h.Absorb("https://example.test/", []*Element{second})

	got, ok := h.Lookup(first.Fingerprint())
	require.True(t, ok)
	assert.False(t, got.Visible)
	assert.Equal(t, 5, got.HighlightIndex)
	assert.Equal(t, 30.0, got.Bounds.Width)
}

func TestHistory_FingerprintFor(t *testing.T) {
	h := NewHistory()
	el := namedElement("login", "/html[1]/body[1]/form[1]/button[1]")
	h.Absorb("https://example.test/", []*Element{el})

	t.Run("by exact xpath", func(t *testing.T) {
		fp, ok := h.FingerprintFor("/html[1]/body[1]/form[1]/button[1]")
		require.True(t, ok)
		assert.Equal(t, el.Fingerprint(), fp)
	})
	t.Run("by id selector", func(t *testing.T) {
		fp, ok := h.FingerprintFor("#login")
		require.True(t, ok)
		assert.Equal(t, el.Fingerprint(), fp)
	})
	t.Run("unknown locator", func(t *testing.T) {
		_, ok := h.FingerprintFor("#missing")
		assert.False(t, ok)
		_, ok = h.FingerprintFor("/html[1]/body[1]/div[9]")
		assert.False(t, ok)
	})
}

func TestHistory_Clear(t *testing.T) {
	h := NewHistory()
	h.Absorb("https://example.test/", []*Element{namedElement("a", "/html[1]/body[1]/a[1]")})
	h.Clear()
	assert.Equal(t, 0, h.Len())
	assert.Equal(t, "", h.URL())
}
