// internal/dom/scanner.go
package dom

import (
	"context"
	"fmt"
	"strings"

	jsoniter "github.com/json-iterator/go"
	"go.uber.org/zap"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Evaluator is the slice of a browser page the scanner needs: the current
// URL and the ability to evaluate a JavaScript expression.
type Evaluator interface {
	URL(ctx context.Context) (string, error)
	Evaluate(ctx context.Context, expression string, out any) error
}

// ScanOptions tune a single scan pass.
type ScanOptions struct {
	// Highlight draws numbered overlays on the elements found.
	Highlight bool
	// MaxElements caps the number of descriptors returned by the page.
	MaxElements int
}

// Scanner runs the embedded scan script against a page and folds the
// results into an element History.
type Scanner struct {
	page    Evaluator
	history *History
	logger  *zap.Logger
	maxEls  int
}

// NewScanner builds a scanner bound to a page and a history map.
func NewScanner(page Evaluator, history *History, maxElements int, logger *zap.Logger) *Scanner {
	if maxElements <= 0 {
		maxElements = 400
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scanner{
		page:    page,
		history: history,
		logger:  logger.Named("dom.scanner"),
		maxEls:  maxElements,
	}
}

// History exposes the scanner's backing element map.
func (s *Scanner) History() *History { return s.history }

// Scan evaluates the scan script on the current page and returns the
// elements found, after absorbing them into the history.
//
// A page where even `1+1` fails has a broken evaluation channel and yields
// ErrScanUnavailable. A blank page, or a page where only the scan script
// itself fails, yields an empty result and no error.
func (s *Scanner) Scan(ctx context.Context, opts ScanOptions) ([]*Element, error) {
	var probe int
	if err := s.page.Evaluate(ctx, "1+1", &probe); err != nil || probe != 2 {
		s.logger.Error("Page evaluation probe failed.", zap.Error(err))
		return nil, ErrScanUnavailable
	}

	pageURL, err := s.page.URL(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading page url: %w", err)
	}
	if pageURL == "" || pageURL == "about:blank" {
		s.logger.Debug("Blank page, nothing to scan.")
		return nil, nil
	}

	script, err := ScanScript()
	if err != nil {
		return nil, err
	}

	maxEls := s.maxEls
	if opts.MaxElements > 0 {
		maxEls = opts.MaxElements
	}
	call := fmt.Sprintf("(%s)({highlight:%t,maxElements:%d})",
		strings.TrimSpace(script), opts.Highlight, maxEls)

	var payload string
	if err := s.page.Evaluate(ctx, call, &payload); err != nil {
		// The page may forbid script injection (CSP) or be mid-navigation.
		// That degrades the scan, it does not break the session.
		s.logger.Warn("Scan script failed on page.",
			zap.String("url", pageURL), zap.Error(err))
		return nil, nil
	}

	var scanned []*Element
	if err := json.Unmarshal([]byte(payload), &scanned); err != nil {
		s.logger.Warn("Scan script returned malformed payload.",
			zap.String("url", pageURL), zap.Error(err))
		return nil, nil
	}

	s.history.Absorb(pageURL, scanned)
	s.logger.Debug("Scan complete.",
		zap.String("url", pageURL),
		zap.Int("found", len(scanned)),
		zap.Int("tracked", s.history.Len()))
	return scanned, nil
}
