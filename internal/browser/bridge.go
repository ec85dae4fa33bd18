// internal/browser/bridge.go
package browser

import (
	"fmt"

	jsoniter "github.com/json-iterator/go"

	"github.com/hollowpoint9/retrace-cli/api/schemas"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// BridgeEventKind discriminates the envelopes the page script emits.
type BridgeEventKind string

const (
	// BridgeEventMode is a manual/agent toggle signal.
	BridgeEventMode BridgeEventKind = "mode"
	// BridgeEventAction is a human-performed browser action.
	BridgeEventAction BridgeEventKind = "action"
)

// BridgeEvent is one message from the in-page hooks. Mode toggles may carry
// their own escalation timeout in seconds; zero means the configured default.
type BridgeEvent struct {
	Kind           BridgeEventKind `json:"kind"`
	IsManual       bool            `json:"is_manual"`
	TimeoutSeconds float64         `json:"timeout_seconds,omitempty"`
	Action         *schemas.Action `json:"action,omitempty"`
}

// ParseBridgeEvent decodes a payload the page delivered over the exposed
// binding.
func ParseBridgeEvent(payload string) (BridgeEvent, error) {
	var ev BridgeEvent
	if err := json.UnmarshalFromString(payload, &ev); err != nil {
		return BridgeEvent{}, fmt.Errorf("malformed bridge payload: %w", err)
	}
	switch ev.Kind {
	case BridgeEventMode:
		return ev, nil
	case BridgeEventAction:
		if ev.Action == nil {
			return BridgeEvent{}, fmt.Errorf("action event carries no action")
		}
		if err := ev.Action.Validate(); err != nil {
			return BridgeEvent{}, fmt.Errorf("invalid bridged action: %w", err)
		}
		return ev, nil
	default:
		return BridgeEvent{}, fmt.Errorf("unknown bridge event kind %q", ev.Kind)
	}
}
