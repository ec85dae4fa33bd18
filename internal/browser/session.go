// internal/browser/session.go
package browser

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hollowpoint9/retrace-cli/api/schemas"
	"github.com/hollowpoint9/retrace-cli/internal/dom"
	"github.com/hollowpoint9/retrace-cli/internal/modectl"
	"github.com/hollowpoint9/retrace-cli/internal/recorder"
	"github.com/hollowpoint9/retrace-cli/internal/replay"
	"github.com/hollowpoint9/retrace-cli/internal/secrets"
)

// EmitBindingName is the window function the in-page hooks deliver their
// envelopes through.
const EmitBindingName = "__retraceEmit"

// Session binds one page to the recording machinery: the element scanner
// and resolver, the dual-channel recorder, the secret vault and the
// manual/agent mode controller.
type Session struct {
	page     *Page
	scanner  *dom.Scanner
	resolver *dom.Resolver
	recorder *recorder.Recorder
	control  *modectl.Controller
	vault    *secrets.Vault

	manualTimeout time.Duration
	logger        *zap.Logger
}

// NewSession assembles a recording session around an open page.
func NewSession(
	page *Page,
	scanner *dom.Scanner,
	resolver *dom.Resolver,
	rec *recorder.Recorder,
	control *modectl.Controller,
	vault *secrets.Vault,
	manualTimeout time.Duration,
	logger *zap.Logger,
) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		page:          page,
		scanner:       scanner,
		resolver:      resolver,
		recorder:      rec,
		control:       control,
		vault:         vault,
		manualTimeout: manualTimeout,
		logger:        logger.Named("session"),
	}
}

// Attach exposes the bridge binding and installs the manual-mode hooks both
// persistently and into the document already loaded.
func (s *Session) Attach(ctx context.Context) error {
	if err := s.page.Expose(ctx, EmitBindingName, s.handleBridge); err != nil {
		return fmt.Errorf("exposing bridge binding: %w", err)
	}

	hooks, err := ManualHooksScript()
	if err != nil {
		return err
	}
	if err := s.page.InjectOnNewDocument(ctx, hooks); err != nil {
		return fmt.Errorf("injecting manual hooks: %w", err)
	}
	// Persistent injection only covers future documents; the current one
	// needs the hooks evaluated directly.
	var ignored any
	if err := s.page.Evaluate(ctx, hooks, &ignored); err != nil {
		s.logger.Warn("Could not install hooks on the current document.", zap.Error(err))
	}
	return nil
}

// handleBridge processes one envelope from the page.
func (s *Session) handleBridge(payload string) (string, error) {
	ev, err := ParseBridgeEvent(payload)
	if err != nil {
		s.logger.Warn("Dropping bridge event.", zap.Error(err))
		return "", nil
	}

	switch ev.Kind {
	case BridgeEventMode:
		timeout := s.manualTimeout
		if ev.TimeoutSeconds > 0 {
			timeout = time.Duration(ev.TimeoutSeconds * float64(time.Second))
		}
		s.control.HandleModeChange(ev.IsManual, timeout)
	case BridgeEventAction:
		s.recorder.RecordManual(*ev.Action)
	}
	return "", nil
}

// Execute runs one agent-issued action through the full pipeline: wait for
// the resume gate, record, resolve the fingerprint locator, resolve secret
// placeholders, then dispatch to the page.
func (s *Session) Execute(ctx context.Context, action schemas.Action) error {
	if err := s.control.Wait(ctx); err != nil {
		return err
	}
	if err := action.Validate(); err != nil {
		return fmt.Errorf("%w: %v", replay.ErrMalformedRecord, err)
	}

	// The recorder sees the un-resolved action so placeholders, not raw
	// secrets, are what persists.
	s.recorder.RecordAgent(action)

	resolved := action.Clone()
	if hash, ok := resolved.StringArg("hash"); ok && hash != "" {
		selector, err := s.resolver.Resolve(ctx, hash)
		if err != nil {
			return err
		}
		resolved.Args["selector"] = selector
		delete(resolved.Args, "hash")
	}

	for k, v := range resolved.Args {
		str, ok := v.(string)
		if !ok {
			continue
		}
		substituted := s.vault.Resolve(str)
		if secrets.HasPlaceholder(substituted) {
			return fmt.Errorf("%w: arg %q", replay.ErrUnresolvedPlaceholder, k)
		}
		resolved.Args[k] = substituted
	}

	return replay.Dispatch(ctx, s.page, resolved)
}

// Scan refreshes the element view of the current page.
func (s *Session) Scan(ctx context.Context, highlight bool) ([]*dom.Element, error) {
	return s.scanner.Scan(ctx, dom.ScanOptions{Highlight: highlight})
}

// PopManual hands off the human actions recorded since the last call.
func (s *Session) PopManual() []schemas.Action {
	return s.recorder.PopManual()
}

// Merged returns the current merged action list.
func (s *Session) Merged() []schemas.Action {
	return s.recorder.Merged()
}

// Page returns the underlying browser page.
func (s *Session) Page() *Page { return s.page }

// Recorder returns the session's action recorder.
func (s *Session) Recorder() *recorder.Recorder { return s.recorder }

// Controller returns the session's mode controller.
func (s *Session) Controller() *modectl.Controller { return s.control }

// Resolver returns the session's selector resolver.
func (s *Session) Resolver() *dom.Resolver { return s.resolver }
