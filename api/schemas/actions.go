// api/schemas/actions.go
package schemas

import (
	"fmt"
	"regexp"
	"strings"

	jsoniter "github.com/json-iterator/go"
)

// json is the package-wide codec. We use jsoniter in compatible mode so the
// on-disk action logs stay readable by any standard JSON tooling.
var json = jsoniter.ConfigCompatibleWithStandardLibrary

// ActionType identifies what kind of step an Action describes.
type ActionType string

const (
	ActionNavigate        ActionType = "navigate"
	ActionClick           ActionType = "click"
	ActionFill            ActionType = "fill"
	ActionTypeText        ActionType = "type"
	ActionCheck           ActionType = "check"
	ActionUncheck         ActionType = "uncheck"
	ActionSelectOption    ActionType = "select_option"
	ActionHover           ActionType = "hover"
	ActionWaitForSelector ActionType = "wait_for_selector"
	ActionScreenshot      ActionType = "screenshot"
)

// Action is a single recorded (or to-be-replayed) browser step. Args is a
// flat map whose shape depends on Type: element actions carry a "selector"
// (or a resolved "hash"), navigate carries "url", value-entry actions carry
// "text" or "value".
type Action struct {
	Type           ActionType     `json:"type"`
	Args           map[string]any `json:"args"`
	ScreenshotPath string         `json:"screenshot_path,omitempty"`
}

// actionLog is the envelope form of a saved action list. Logs on disk may be
// either this object or a bare array; both are accepted on read.
type actionLog struct {
	Actions []Action `json:"actions"`
}

// valueEntryTypes are the action types whose arguments carry user-entered
// values and therefore pass through the sensitive-value mask.
var valueEntryTypes = map[ActionType]bool{
	ActionFill:     true,
	ActionTypeText: true,
}

// elementTypes are the action types that target a concrete page element and
// so participate in fingerprint-keyed merging.
var elementTypes = map[ActionType]bool{
	ActionClick:        true,
	ActionFill:         true,
	ActionTypeText:     true,
	ActionCheck:        true,
	ActionUncheck:      true,
	ActionSelectOption: true,
	ActionHover:        true,
}

// IsValueEntry reports whether the action enters a value into the page.
func (a Action) IsValueEntry() bool { return valueEntryTypes[a.Type] }

// TargetsElement reports whether the action addresses a specific DOM element.
func (a Action) TargetsElement() bool { return elementTypes[a.Type] }

// StringArg returns the named argument if present and a string.
func (a Action) StringArg(key string) (string, bool) {
	if a.Args == nil {
		return "", false
	}
	v, ok := a.Args[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// Locator returns the element locator the action was recorded against. A
// resolved fingerprint ("hash") takes precedence over a raw selector.
func (a Action) Locator() (string, bool) {
	if h, ok := a.StringArg("hash"); ok && h != "" {
		return FingerprintPrefix + h, true
	}
	if s, ok := a.StringArg("selector"); ok && s != "" {
		return s, true
	}
	return "", false
}

// Clone returns a deep copy of the action so that channel buffers hand out
// values the caller may mutate freely.
func (a Action) Clone() Action {
	out := a
	if a.Args != nil {
		out.Args = make(map[string]any, len(a.Args))
		for k, v := range a.Args {
			out.Args[k] = v
		}
	}
	return out
}

// Validate checks the structural invariants a record must satisfy before it
// can be replayed.
func (a Action) Validate() error {
	if a.Type == "" {
		return fmt.Errorf("action has no type")
	}
	if a.Args == nil {
		return fmt.Errorf("action %q has no args", a.Type)
	}
	return nil
}

// FingerprintPrefix marks a locator string as a fingerprint reference rather
// than a CSS/XPath selector.
const FingerprintPrefix = "#"

// fingerprintRe matches a bare sha256 hex digest.
var fingerprintRe = regexp.MustCompile(`^[0-9a-f]{64}$`)

// FingerprintFromLocator extracts the fingerprint digest from a locator of
// the form "#<hex>", if that is what the locator is.
func FingerprintFromLocator(locator string) (string, bool) {
	digest, ok := strings.CutPrefix(locator, FingerprintPrefix)
	if !ok {
		return "", false
	}
	if !fingerprintRe.MatchString(digest) {
		return "", false
	}
	return digest, true
}

// MarshalActionLog serializes an action list in the envelope form.
func MarshalActionLog(actions []Action) ([]byte, error) {
	return json.MarshalIndent(actionLog{Actions: actions}, "", "  ")
}

// ParseActionLog decodes a saved action list. Both accepted shapes are
// handled: a bare array of records, or an object with an "actions" key.
func ParseActionLog(data []byte) ([]Action, error) {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "" {
		return nil, fmt.Errorf("action log is empty")
	}
	if strings.HasPrefix(trimmed, "[") {
		var actions []Action
		if err := json.Unmarshal(data, &actions); err != nil {
			return nil, fmt.Errorf("malformed action array: %w", err)
		}
		return actions, nil
	}
	var envelope actionLog
	if err := json.Unmarshal(data, &envelope); err != nil {
		return nil, fmt.Errorf("malformed action log: %w", err)
	}
	if envelope.Actions == nil {
		return nil, fmt.Errorf(`action log object has no "actions" key`)
	}
	return envelope.Actions, nil
}
