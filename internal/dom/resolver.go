// internal/dom/resolver.go
package dom

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Resolver turns element fingerprints back into actionable xpath locators.
// When a fingerprint is missing from the history it triggers exactly one
// fresh scan before giving up, which covers elements that appeared after
// the last scan.
type Resolver struct {
	scanner *Scanner
	logger  *zap.Logger
}

// NewResolver builds a resolver on top of a scanner.
func NewResolver(scanner *Scanner, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{scanner: scanner, logger: logger.Named("dom.resolver")}
}

// Resolve maps a fingerprint to the element's xpath. Unknown fingerprints
// get one rescan-and-retry; after that the element is considered gone and
// ErrElementNotFound is returned.
func (r *Resolver) Resolve(ctx context.Context, fingerprint string) (string, error) {
	if el, ok := r.scanner.History().Lookup(fingerprint); ok {
		return el.XPath, nil
	}

	r.logger.Debug("Fingerprint missing from history, rescanning.",
		zap.String("fingerprint", fingerprint))
	if _, err := r.scanner.Scan(ctx, ScanOptions{Highlight: false}); err != nil {
		return "", fmt.Errorf("rescan for fingerprint %s: %w", fingerprint, err)
	}

	if el, ok := r.scanner.History().Lookup(fingerprint); ok {
		return el.XPath, nil
	}
	return "", fmt.Errorf("%w: %s", ErrElementNotFound, fingerprint)
}
