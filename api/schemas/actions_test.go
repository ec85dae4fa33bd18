// api/schemas/actions_test.go
package schemas

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseActionLogShapes(t *testing.T) {
	bare := `[
		{"type": "navigate", "args": {"url": "https://example.com"}},
		{"type": "click", "args": {"selector": "#login"}}
	]`
	envelope := `{"actions": [
		{"type": "navigate", "args": {"url": "https://example.com"}},
		{"type": "click", "args": {"selector": "#login"}}
	]}`

	for name, payload := range map[string]string{"bare array": bare, "envelope object": envelope} {
		t.Run(name, func(t *testing.T) {
			actions, err := ParseActionLog([]byte(payload))
			require.NoError(t, err)
			require.Len(t, actions, 2)
			assert.Equal(t, ActionNavigate, actions[0].Type)
			sel, ok := actions[1].StringArg("selector")
			require.True(t, ok)
			assert.Equal(t, "#login", sel)
		})
	}
}

func TestParseActionLogRejectsGarbage(t *testing.T) {
	cases := map[string]string{
		"empty input":     "",
		"not json":        "click the button",
		"missing actions": `{"steps": []}`,
		"broken array":    `[{"type": "click"`,
	}
	for name, payload := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseActionLog([]byte(payload))
			assert.Error(t, err)
		})
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	in := []Action{
		{Type: ActionNavigate, Args: map[string]any{"url": "https://example.com"}},
		{Type: ActionFill, Args: map[string]any{"selector": "#pw", "text": "${DB_PASS}"}, ScreenshotPath: "shots/0001.png"},
	}
	data, err := MarshalActionLog(in)
	require.NoError(t, err)

	out, err := ParseActionLog(data)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, in[0].Type, out[0].Type)
	assert.Equal(t, "shots/0001.png", out[1].ScreenshotPath)
	text, _ := out[1].StringArg("text")
	assert.Equal(t, "${DB_PASS}", text)
}

func TestFingerprintFromLocator(t *testing.T) {
	digest := strings.Repeat("ab", 32)
	got, ok := FingerprintFromLocator(FingerprintPrefix + digest)
	require.True(t, ok)
	assert.Equal(t, digest, got)

	// A CSS id selector is not a fingerprint reference.
	_, ok = FingerprintFromLocator("#login")
	assert.False(t, ok)
	_, ok = FingerprintFromLocator(digest)
	assert.False(t, ok)
}

func TestActionClassification(t *testing.T) {
	assert.True(t, Action{Type: ActionFill}.IsValueEntry())
	assert.True(t, Action{Type: ActionTypeText}.IsValueEntry())
	assert.False(t, Action{Type: ActionClick}.IsValueEntry())

	assert.True(t, Action{Type: ActionClick}.TargetsElement())
	assert.True(t, Action{Type: ActionHover}.TargetsElement())
	assert.False(t, Action{Type: ActionNavigate}.TargetsElement())
	assert.False(t, Action{Type: ActionScreenshot}.TargetsElement())
}

func TestActionClone(t *testing.T) {
	orig := Action{Type: ActionFill, Args: map[string]any{"selector": "#pw", "text": "hunter2"}}
	copied := orig.Clone()
	copied.Args["text"] = "masked"
	assert.Equal(t, "hunter2", orig.Args["text"])
}
