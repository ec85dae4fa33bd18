// internal/replay/engine.go
package replay

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hollowpoint9/retrace-cli/api/schemas"
	"github.com/hollowpoint9/retrace-cli/internal/secrets"
)

var (
	// ErrUnknownActionType marks a record whose type has no driver primitive.
	ErrUnknownActionType = errors.New("replay: unknown action type")
	// ErrMalformedRecord marks a record missing a required field.
	ErrMalformedRecord = errors.New("replay: malformed action record")
	// ErrUnresolvedPlaceholder marks an action that still carried a literal
	// ${NAME} when it was about to execute. It is never sent to the page.
	ErrUnresolvedPlaceholder = errors.New("replay: unresolved secret placeholder")
)

// Driver is the set of browser primitives replay dispatches to.
// Implemented by browser.Page.
type Driver interface {
	Navigate(ctx context.Context, url string) error
	Click(ctx context.Context, selector string) error
	Fill(ctx context.Context, selector, value string) error
	TypeText(ctx context.Context, selector, text string) error
	SetChecked(ctx context.Context, selector string, checked bool) error
	SelectOption(ctx context.Context, selector, value string) error
	Hover(ctx context.Context, selector string) error
	WaitForSelector(ctx context.Context, selector string, timeout time.Duration) error
	Screenshot(ctx context.Context, path string) error
}

// ResolveFunc maps an element fingerprint to a live locator.
type ResolveFunc func(ctx context.Context, fingerprint string) (string, error)

// StepError reports the first failing step of a replay: its 0-based index,
// the offending record and the underlying cause.
type StepError struct {
	Index  int
	Action schemas.Action
	Err    error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("replay aborted at step %d (%s): %v", e.Index, e.Action.Type, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }

// Engine re-executes a saved action list against a live page.
type Engine struct {
	driver  Driver
	resolve ResolveFunc
	logger  *zap.Logger
}

// New creates a replay engine. resolve may be nil when the log carries only
// raw selectors.
func New(driver Driver, resolve ResolveFunc, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{driver: driver, resolve: resolve, logger: logger.Named("replay")}
}

// Run replays the actions in order. The first failure of any kind aborts
// immediately with a *StepError; there is no skip-and-continue, because a
// trace with a silently missing step is meaningless.
func (e *Engine) Run(ctx context.Context, actions []schemas.Action) error {
	for i, action := range actions {
		e.logger.Info("Replaying step.",
			zap.Int("index", i), zap.String("type", string(action.Type)))
		if err := e.step(ctx, action); err != nil {
			e.logger.Error("Replay aborted.",
				zap.Int("index", i), zap.String("type", string(action.Type)), zap.Error(err))
			return &StepError{Index: i, Action: action, Err: err}
		}
	}
	e.logger.Info("Replay complete.", zap.Int("steps", len(actions)))
	return nil
}

func (e *Engine) step(ctx context.Context, action schemas.Action) error {
	if err := action.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrMalformedRecord, err)
	}

	resolved, err := e.resolveArgs(ctx, action)
	if err != nil {
		return err
	}
	return Dispatch(ctx, e.driver, resolved)
}

// resolveArgs substitutes ${NAME} placeholders in every string argument
// from the process environment, then maps a fingerprint locator to a live
// selector. Replay is meant to be portable, so the runtime secret table is
// never consulted.
func (e *Engine) resolveArgs(ctx context.Context, action schemas.Action) (schemas.Action, error) {
	out := action.Clone()
	for k, v := range out.Args {
		s, ok := v.(string)
		if !ok {
			continue
		}
		resolved, err := secrets.ResolveEnv(s)
		if err != nil {
			return schemas.Action{}, fmt.Errorf("%w: arg %q: %v", ErrUnresolvedPlaceholder, k, err)
		}
		out.Args[k] = resolved
	}

	if hash, ok := out.StringArg("hash"); ok && hash != "" {
		if e.resolve == nil {
			return schemas.Action{}, fmt.Errorf("%w: record carries a fingerprint but no resolver is available", ErrMalformedRecord)
		}
		selector, err := e.resolve(ctx, hash)
		if err != nil {
			return schemas.Action{}, fmt.Errorf("resolving fingerprint %s: %w", hash, err)
		}
		out.Args["selector"] = selector
		delete(out.Args, "hash")
	}
	return out, nil
}

// requireArg fetches a mandatory string argument.
func requireArg(action schemas.Action, key string) (string, error) {
	s, ok := action.StringArg(key)
	if !ok || s == "" {
		return "", fmt.Errorf("%w: %s record is missing %q", ErrMalformedRecord, action.Type, key)
	}
	return s, nil
}

// Dispatch issues a single fully-resolved action against the driver.
func Dispatch(ctx context.Context, d Driver, action schemas.Action) error {
	switch action.Type {
	case schemas.ActionNavigate:
		url, err := requireArg(action, "url")
		if err != nil {
			return err
		}
		return d.Navigate(ctx, url)

	case schemas.ActionClick:
		selector, err := requireArg(action, "selector")
		if err != nil {
			return err
		}
		return d.Click(ctx, selector)

	case schemas.ActionFill:
		selector, err := requireArg(action, "selector")
		if err != nil {
			return err
		}
		text, ok := action.StringArg("text")
		if !ok {
			text, ok = action.StringArg("value")
		}
		if !ok {
			return fmt.Errorf("%w: fill record has neither \"text\" nor \"value\"", ErrMalformedRecord)
		}
		return d.Fill(ctx, selector, text)

	case schemas.ActionTypeText:
		selector, err := requireArg(action, "selector")
		if err != nil {
			return err
		}
		text, ok := action.StringArg("text")
		if !ok {
			return fmt.Errorf("%w: type record is missing \"text\"", ErrMalformedRecord)
		}
		return d.TypeText(ctx, selector, text)

	case schemas.ActionCheck:
		selector, err := requireArg(action, "selector")
		if err != nil {
			return err
		}
		return d.SetChecked(ctx, selector, true)

	case schemas.ActionUncheck:
		selector, err := requireArg(action, "selector")
		if err != nil {
			return err
		}
		return d.SetChecked(ctx, selector, false)

	case schemas.ActionSelectOption:
		selector, err := requireArg(action, "selector")
		if err != nil {
			return err
		}
		value, err := requireArg(action, "value")
		if err != nil {
			return err
		}
		return d.SelectOption(ctx, selector, value)

	case schemas.ActionHover:
		selector, err := requireArg(action, "selector")
		if err != nil {
			return err
		}
		return d.Hover(ctx, selector)

	case schemas.ActionWaitForSelector:
		selector, err := requireArg(action, "selector")
		if err != nil {
			return err
		}
		var timeout time.Duration
		if secs, ok := action.Args["timeout"].(float64); ok && secs > 0 {
			timeout = time.Duration(secs * float64(time.Second))
		}
		return d.WaitForSelector(ctx, selector, timeout)

	case schemas.ActionScreenshot:
		path, ok := action.StringArg("path")
		if !ok || path == "" {
			path = action.ScreenshotPath
		}
		if path == "" {
			return fmt.Errorf("%w: screenshot record is missing a path", ErrMalformedRecord)
		}
		return d.Screenshot(ctx, path)

	default:
		return fmt.Errorf("%w: %q", ErrUnknownActionType, action.Type)
	}
}
