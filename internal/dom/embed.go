// internal/dom/embed.go
package dom

import (
	_ "embed"
	"fmt"
)

//go:embed assets/scan.js
var scanScript string

// ScanScript returns the embedded in-page scan function expression.
func ScanScript() (string, error) {
	if scanScript == "" {
		return "", fmt.Errorf("embedded scan.js is empty or failed to load")
	}
	return scanScript, nil
}
