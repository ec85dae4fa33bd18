// internal/browser/page.go
package browser

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/network"
	cdppage "github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hollowpoint9/retrace-cli/internal/config"
)

// Page is a single browser tab with the driver primitives the recorder and
// replay engines dispatch to.
type Page struct {
	id     string
	cfg    config.BrowserConfig
	logger *zap.Logger

	sessionCtx    context.Context
	sessionCancel context.CancelFunc

	mu       sync.Mutex
	isClosed bool
}

func newPage(allocCtx context.Context, cfg config.BrowserConfig, logger *zap.Logger) (*Page, error) {
	sessionCtx, cancel := chromedp.NewContext(allocCtx)
	p := &Page{
		id:            uuid.NewString(),
		cfg:           cfg,
		logger:        logger.Named("page"),
		sessionCtx:    sessionCtx,
		sessionCancel: cancel,
	}

	// Materialize the tab now so later calls see a live target.
	if err := chromedp.Run(sessionCtx, chromedp.Navigate("about:blank")); err != nil {
		cancel()
		return nil, fmt.Errorf("failed to open tab: %w", err)
	}
	return p, nil
}

// ID returns the page's session identifier.
func (p *Page) ID() string { return p.id }

// run executes chromedp actions under the session context, bounded by
// timeout and the caller's context.
func (p *Page) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	p.mu.Lock()
	if p.isClosed {
		p.mu.Unlock()
		return fmt.Errorf("page %s is closed", p.id)
	}
	sessionCtx := p.sessionCtx
	p.mu.Unlock()

	runCtx, cancel := context.WithTimeout(sessionCtx, timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	return chromedp.Run(runCtx, actions...)
}

// isXPath reports whether a selector should be treated as an XPath rather
// than a CSS query.
func isXPath(selector string) bool {
	return strings.HasPrefix(selector, "/") ||
		strings.HasPrefix(selector, "html/") ||
		strings.HasPrefix(selector, "xpath=")
}

// normalizeSelector strips the optional explicit "xpath=" prefix.
func normalizeSelector(selector string) string {
	return strings.TrimPrefix(selector, "xpath=")
}

// queryOption picks the chromedp lookup strategy for a selector.
func queryOption(selector string) chromedp.QueryOption {
	if isXPath(selector) {
		return chromedp.BySearch
	}
	return chromedp.ByQuery
}

// jsLocate builds a JavaScript expression evaluating to the first element
// matched by the selector, or null.
func jsLocate(selector string) string {
	sel := normalizeSelector(selector)
	if isXPath(selector) {
		return fmt.Sprintf(
			"document.evaluate(%q, document, null, XPathResult.FIRST_ORDERED_NODE_TYPE, null).singleNodeValue",
			sel)
	}
	return fmt.Sprintf("document.querySelector(%q)", sel)
}

// URL reports the page's current location.
func (p *Page) URL(ctx context.Context) (string, error) {
	var url string
	err := p.run(ctx, p.cfg.ActionTimeout, chromedp.Location(&url))
	return url, err
}

// Evaluate runs a JavaScript expression and unmarshals its result into out.
func (p *Page) Evaluate(ctx context.Context, expression string, out any) error {
	return p.run(ctx, p.cfg.ActionTimeout, chromedp.Evaluate(expression, out))
}

// Navigate loads a URL and waits for the document plus a settle period.
func (p *Page) Navigate(ctx context.Context, url string) error {
	p.logger.Debug("Navigating.", zap.String("url", url))
	return p.run(ctx, p.cfg.NavigationTimeout,
		chromedp.ActionFunc(func(ctx context.Context) error {
			if p.cfg.DisableCache {
				return network.SetCacheDisabled(true).Do(ctx)
			}
			return nil
		}),
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
		chromedp.Sleep(p.cfg.PostLoadWait),
	)
}

// Click clicks the first visible element matching the selector.
func (p *Page) Click(ctx context.Context, selector string) error {
	sel := normalizeSelector(selector)
	return p.run(ctx, p.cfg.ActionTimeout,
		chromedp.Click(sel, queryOption(selector), chromedp.NodeVisible))
}

// Fill replaces the element's value wholesale and fires a change event.
func (p *Page) Fill(ctx context.Context, selector, value string) error {
	sel := normalizeSelector(selector)
	return p.run(ctx, p.cfg.ActionTimeout,
		chromedp.SetValue(sel, value, queryOption(selector)))
}

// TypeText sends individual key events to the element.
func (p *Page) TypeText(ctx context.Context, selector, text string) error {
	sel := normalizeSelector(selector)
	return p.run(ctx, p.cfg.ActionTimeout,
		chromedp.SendKeys(sel, text, queryOption(selector)))
}

// SetChecked drives a checkbox or radio into the desired state.
func (p *Page) SetChecked(ctx context.Context, selector string, checked bool) error {
	expr := fmt.Sprintf(`(function(){
  const el = %s;
  if (!el) return false;
  if (el.checked !== %t) {
    el.checked = %t;
    el.dispatchEvent(new Event('change', {bubbles: true}));
  }
  return true;
})()`, jsLocate(selector), checked, checked)

	var ok bool
	if err := p.Evaluate(ctx, expr, &ok); err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("no element matches selector %q", selector)
	}
	return nil
}

// SelectOption sets a <select>'s value and fires the change event.
func (p *Page) SelectOption(ctx context.Context, selector, value string) error {
	expr := fmt.Sprintf(`(function(){
  const el = %s;
  if (!el) return false;
  el.value = %q;
  el.dispatchEvent(new Event('change', {bubbles: true}));
  return true;
})()`, jsLocate(selector), value)

	var ok bool
	if err := p.Evaluate(ctx, expr, &ok); err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("no element matches selector %q", selector)
	}
	return nil
}

// Hover dispatches pointer-over events to the element.
func (p *Page) Hover(ctx context.Context, selector string) error {
	expr := fmt.Sprintf(`(function(){
  const el = %s;
  if (!el) return false;
  for (const type of ['mouseover', 'mouseenter']) {
    el.dispatchEvent(new MouseEvent(type, {bubbles: true}));
  }
  return true;
})()`, jsLocate(selector))

	var ok bool
	if err := p.Evaluate(ctx, expr, &ok); err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("no element matches selector %q", selector)
	}
	return nil
}

// WaitForSelector blocks until the element is visible.
func (p *Page) WaitForSelector(ctx context.Context, selector string, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = p.cfg.ActionTimeout
	}
	sel := normalizeSelector(selector)
	return p.run(ctx, timeout,
		chromedp.WaitVisible(sel, queryOption(selector)))
}

// Screenshot captures the viewport to path, creating parent directories.
func (p *Page) Screenshot(ctx context.Context, path string) error {
	var buf []byte
	if err := p.run(ctx, p.cfg.ActionTimeout, chromedp.CaptureScreenshot(&buf)); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating screenshot dir: %w", err)
	}
	return os.WriteFile(path, buf, 0o644)
}

// InjectOnNewDocument registers a script that runs before every document in
// this tab, surviving navigations.
func (p *Page) InjectOnNewDocument(ctx context.Context, script string) error {
	return p.run(ctx, p.cfg.ActionTimeout, chromedp.ActionFunc(func(ctx context.Context) error {
		_, err := cdppage.AddScriptToEvaluateOnNewDocument(script).Do(ctx)
		return err
	}))
}

// Expose makes a Go callback callable from the page as window[name](payload).
func (p *Page) Expose(ctx context.Context, name string, fn chromedp.ExposedFunc) error {
	return p.run(ctx, p.cfg.ActionTimeout, chromedp.Expose(name, fn))
}

// ShowResumePrompt implements the mode controller's escalation: an in-page
// overlay asking the human to hand control back.
func (p *Page) ShowResumePrompt(ctx context.Context, elapsed time.Duration) error {
	script, err := ResumePromptScript()
	if err != nil {
		return err
	}
	call := fmt.Sprintf("(%s)(%d)", strings.TrimSpace(script), int(elapsed.Seconds()))
	var shown bool
	return p.Evaluate(ctx, call, &shown)
}

// Close tears the tab down. Safe to call more than once.
func (p *Page) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.isClosed {
		return nil
	}
	p.isClosed = true
	p.sessionCancel()
	p.logger.Debug("Page closed.", zap.String("page_id", p.id))
	return nil
}
