// internal/replay/engine_test.go
package replay

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hollowpoint9/retrace-cli/api/schemas"
)

// fakeDriver records every primitive call as a formatted string.
type fakeDriver struct {
	calls   []string
	failOn  string
	failErr error
}

func (f *fakeDriver) call(s string) error {
	f.calls = append(f.calls, s)
	if f.failOn != "" && s == f.failOn {
		return f.failErr
	}
	return nil
}

func (f *fakeDriver) Navigate(ctx context.Context, url string) error {
	return f.call("navigate " + url)
}
func (f *fakeDriver) Click(ctx context.Context, selector string) error {
	return f.call("click " + selector)
}
func (f *fakeDriver) Fill(ctx context.Context, selector, value string) error {
	return f.call("fill " + selector + " " + value)
}
func (f *fakeDriver) TypeText(ctx context.Context, selector, text string) error {
	return f.call("type " + selector + " " + text)
}
func (f *fakeDriver) SetChecked(ctx context.Context, selector string, checked bool) error {
	return f.call(fmt.Sprintf("check %s %t", selector, checked))
}
func (f *fakeDriver) SelectOption(ctx context.Context, selector, value string) error {
	return f.call("select " + selector + " " + value)
}
func (f *fakeDriver) Hover(ctx context.Context, selector string) error {
	return f.call("hover " + selector)
}
func (f *fakeDriver) WaitForSelector(ctx context.Context, selector string, timeout time.Duration) error {
	return f.call("wait " + selector)
}
func (f *fakeDriver) Screenshot(ctx context.Context, path string) error {
	return f.call("screenshot " + path)
}

func action(t schemas.ActionType, args map[string]any) schemas.Action {
	return schemas.Action{Type: t, Args: args}
}

func TestEngine_RunHappyPath(t *testing.T) {
	d := &fakeDriver{}
	e := New(d, nil, nil)

	err := e.Run(context.Background(), []schemas.Action{
		action(schemas.ActionNavigate, map[string]any{"url": "https://a.test"}),
		action(schemas.ActionClick, map[string]any{"selector": "#login"}),
		action(schemas.ActionFill, map[string]any{"selector": "#user", "text": "alice"}),
		action(schemas.ActionCheck, map[string]any{"selector": "#tos"}),
		action(schemas.ActionSelectOption, map[string]any{"selector": "#plan", "value": "pro"}),
		action(schemas.ActionWaitForSelector, map[string]any{"selector": "#done", "timeout": 2.0}),
	})
	require.NoError(t, err)

	want := []string{
		"navigate https://a.test",
		"click #login",
		"fill #user alice",
		"check #tos true",
		"select #plan pro",
		"wait #done",
	}
	if diff := cmp.Diff(want, d.calls); diff != "" {
		t.Errorf("driver call sequence mismatch (-want +got):\n%s", diff)
	}
}

func TestEngine_Determinism(t *testing.T) {
	log := []schemas.Action{
		action(schemas.ActionNavigate, map[string]any{"url": "https://a.test"}),
		action(schemas.ActionClick, map[string]any{"selector": "#go"}),
	}

	first := &fakeDriver{}
	require.NoError(t, New(first, nil, nil).Run(context.Background(), log))
	second := &fakeDriver{}
	require.NoError(t, New(second, nil, nil).Run(context.Background(), log))

	assert.Equal(t, first.calls, second.calls,
		"replaying the same log twice must issue the same call sequence")
}

func TestEngine_AbortsAtFailingIndex(t *testing.T) {
	d := &fakeDriver{failOn: "click #broken", failErr: errors.New("node not found")}
	e := New(d, nil, nil)

	err := e.Run(context.Background(), []schemas.Action{
		action(schemas.ActionNavigate, map[string]any{"url": "https://a.test"}),
		action(schemas.ActionClick, map[string]any{"selector": "#broken"}),
		action(schemas.ActionClick, map[string]any{"selector": "#never"}),
	})

	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, 1, stepErr.Index, "index is 0-based")
	assert.Equal(t, schemas.ActionClick, stepErr.Action.Type)
	assert.Len(t, d.calls, 2, "no step after the failure may execute")
}

func TestEngine_UnknownTypeAborts(t *testing.T) {
	d := &fakeDriver{}
	e := New(d, nil, nil)

	err := e.Run(context.Background(), []schemas.Action{
		action(schemas.ActionNavigate, map[string]any{"url": "https://a.test"}),
		action("teleport", map[string]any{"selector": "#x"}),
	})

	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.Equal(t, 1, stepErr.Index)
	assert.ErrorIs(t, err, ErrUnknownActionType)
}

func TestEngine_MalformedRecordAborts(t *testing.T) {
	testCases := []struct {
		name   string
		record schemas.Action
	}{
		{"no type", schemas.Action{Args: map[string]any{}}},
		{"nil args", schemas.Action{Type: schemas.ActionClick}},
		{"click without selector", action(schemas.ActionClick, map[string]any{})},
		{"navigate without url", action(schemas.ActionNavigate, map[string]any{})},
		{"fill without value", action(schemas.ActionFill, map[string]any{"selector": "#x"})},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := New(&fakeDriver{}, nil, nil).Run(context.Background(), []schemas.Action{tc.record})
			var stepErr *StepError
			require.ErrorAs(t, err, &stepErr)
			assert.Equal(t, 0, stepErr.Index)
			assert.ErrorIs(t, err, ErrMalformedRecord)
		})
	}
}

func TestEngine_ResolvesPlaceholdersFromEnv(t *testing.T) {
	t.Setenv("RETRACE_TEST_DB_PASS", "s3cr3t")
	d := &fakeDriver{}
	e := New(d, nil, nil)

	err := e.Run(context.Background(), []schemas.Action{
		action(schemas.ActionFill, map[string]any{"selector": "#pw", "text": "${RETRACE_TEST_DB_PASS}"}),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"fill #pw s3cr3t"}, d.calls)
}

func TestEngine_UnresolvedPlaceholderIsHardFailure(t *testing.T) {
	d := &fakeDriver{}
	e := New(d, nil, nil)

	err := e.Run(context.Background(), []schemas.Action{
		action(schemas.ActionFill, map[string]any{"selector": "#pw", "text": "${RETRACE_TEST_NOT_SET}"}),
	})

	var stepErr *StepError
	require.ErrorAs(t, err, &stepErr)
	assert.ErrorIs(t, err, ErrUnresolvedPlaceholder)
	assert.Empty(t, d.calls, "a literal placeholder must never reach the page")
}

func TestEngine_ResolvesFingerprintLocators(t *testing.T) {
	d := &fakeDriver{}
	resolve := func(ctx context.Context, fingerprint string) (string, error) {
		assert.Equal(t, "abc123", fingerprint)
		return "/html[1]/body[1]/button[2]", nil
	}
	e := New(d, resolve, nil)

	err := e.Run(context.Background(), []schemas.Action{
		action(schemas.ActionClick, map[string]any{"hash": "abc123"}),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"click /html[1]/body[1]/button[2]"}, d.calls)
}

func TestEngine_FingerprintWithoutResolverFails(t *testing.T) {
	err := New(&fakeDriver{}, nil, nil).Run(context.Background(), []schemas.Action{
		action(schemas.ActionClick, map[string]any{"hash": "abc123"}),
	})
	assert.ErrorIs(t, err, ErrMalformedRecord)
}

func TestEngine_ScreenshotUsesRecordPath(t *testing.T) {
	d := &fakeDriver{}
	e := New(d, nil, nil)

	err := e.Run(context.Background(), []schemas.Action{
		{Type: schemas.ActionScreenshot, Args: map[string]any{}, ScreenshotPath: "shots/step0.png"},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"screenshot shots/step0.png"}, d.calls)
}
