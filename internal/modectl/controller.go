// internal/modectl/controller.go
package modectl

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Mode names who is allowed to drive the page.
type Mode string

const (
	// ModeAgent means the automated driver may act.
	ModeAgent Mode = "AGENT"
	// ModeManual means a human has the page; the driver must wait.
	ModeManual Mode = "MANUAL"
)

// Prompter surfaces the timeout escalation to the human, in-page.
// Implemented by the browser session.
type Prompter interface {
	ShowResumePrompt(ctx context.Context, elapsed time.Duration) error
}

// Controller is the cooperative gate between the automated driver and a
// human who has taken over the page. The driver's single suspension point
// is Wait; everything else is signal plumbing.
type Controller struct {
	mu   sync.Mutex
	mode Mode
	// gate is closed while the mode is AGENT. Entering MANUAL swaps in a
	// fresh open channel; resuming AGENT closes it, releasing all waiters.
	gate chan struct{}
	// cancelWatcher stops the escalation watcher for the current manual
	// stint. Nil when no watcher is running.
	cancelWatcher context.CancelFunc

	prompter       Prompter
	promptInterval time.Duration
	logger         *zap.Logger
}

// closedGate returns an already-closed channel, the open-gate state.
func closedGate() chan struct{} {
	ch := make(chan struct{})
	close(ch)
	return ch
}

// New creates a controller in AGENT mode.
func New(prompter Prompter, promptInterval time.Duration, logger *zap.Logger) *Controller {
	if promptInterval <= 0 {
		promptInterval = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		mode:           ModeAgent,
		gate:           closedGate(),
		prompter:       prompter,
		promptInterval: promptInterval,
		logger:         logger.Named("modectl"),
	}
}

// Mode returns the current mode.
func (c *Controller) Mode() Mode {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.mode
}

// HandleModeChange processes a toggle signal from the page (or a
// programmatic call). isManual true suspends the driver and, when timeout
// is positive, starts an escalation watcher that prompts the human in-page
// once the manual stint outlives the timeout. isManual false resumes the
// driver and cancels any pending watcher.
func (c *Controller) HandleModeChange(isManual bool, timeout time.Duration) {
	c.mu.Lock()

	if isManual {
		if c.mode == ModeManual {
			c.mu.Unlock()
			return
		}
		c.mode = ModeManual
		c.gate = make(chan struct{})
		c.logger.Info("Manual mode engaged, driver suspended.",
			zap.Duration("timeout", timeout))

		var watchCtx context.Context
		if timeout > 0 && c.prompter != nil {
			watchCtx, c.cancelWatcher = context.WithCancel(context.Background())
			gate := c.gate
			go c.watch(watchCtx, gate, timeout)
		}
		c.mu.Unlock()
		return
	}

	if c.mode == ModeAgent {
		c.mu.Unlock()
		return
	}
	c.mode = ModeAgent
	close(c.gate)
	cancel := c.cancelWatcher
	c.cancelWatcher = nil
	c.mu.Unlock()

	// A stray watcher would pop a prompt after the human already resumed.
	if cancel != nil {
		cancel()
	}
	c.logger.Info("Agent mode resumed.")
}

// Wait blocks until the mode is AGENT. This is the driver's suspension
// point before every step it takes.
func (c *Controller) Wait(ctx context.Context) error {
	for {
		c.mu.Lock()
		gate := c.gate
		c.mu.Unlock()

		select {
		case <-gate:
			// The gate we waited on may have been replaced by a newer
			// manual stint between the close and our wake-up.
			c.mu.Lock()
			open := c.mode == ModeAgent
			c.mu.Unlock()
			if open {
				return nil
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

// watch escalates a long-running manual stint: after the initial timeout it
// prompts the human in-page, then re-prompts every prompt interval until
// the stint ends or the watcher is cancelled.
func (c *Controller) watch(ctx context.Context, gate chan struct{}, timeout time.Duration) {
	started := time.Now()
	delay := timeout
	for {
		timer := time.NewTimer(delay)
		select {
		case <-gate:
			timer.Stop()
			return
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}

		elapsed := time.Since(started)
		c.logger.Warn("Manual mode still active past timeout, prompting.",
			zap.Duration("elapsed", elapsed))
		if err := c.prompter.ShowResumePrompt(ctx, elapsed); err != nil {
			c.logger.Warn("Resume prompt failed.", zap.Error(err))
		}
		delay = c.promptInterval
	}
}
