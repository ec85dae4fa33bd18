// internal/browser/embed.go
package browser

import (
	_ "embed"
	"fmt"
)

//go:embed assets/manual_hooks.js
var manualHooksScript string

//go:embed assets/resume_prompt.js
var resumePromptScript string

// ManualHooksScript returns the persistent page script installing the
// manual-mode toggle and human-action reporting.
func ManualHooksScript() (string, error) {
	if manualHooksScript == "" {
		return "", fmt.Errorf("embedded manual_hooks.js is empty or failed to load")
	}
	return manualHooksScript, nil
}

// ResumePromptScript returns the escalation overlay function expression.
func ResumePromptScript() (string, error) {
	if resumePromptScript == "" {
		return "", fmt.Errorf("embedded resume_prompt.js is empty or failed to load")
	}
	return resumePromptScript, nil
}
