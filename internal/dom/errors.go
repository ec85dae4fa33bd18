// internal/dom/errors.go
package dom

import "errors"

var (
	// ErrScanUnavailable indicates the page's script channel is broken: even
	// a trivial expression cannot be evaluated, so no scan is possible.
	ErrScanUnavailable = errors.New("dom: page evaluation channel unavailable")

	// ErrElementNotFound indicates a fingerprint could not be resolved to a
	// live element even after a fresh scan.
	ErrElementNotFound = errors.New("dom: element not found for fingerprint")
)
