// internal/recorder/recorder.go
package recorder

import (
	"sync"

	"go.uber.org/zap"

	"github.com/hollowpoint9/retrace-cli/api/schemas"
	"github.com/hollowpoint9/retrace-cli/internal/secrets"
)

// FingerprintIndex is the slice of the element history the recorder needs:
// reverse-mapping a raw locator to a known fingerprint. Implemented by
// dom.History.
type FingerprintIndex interface {
	FingerprintFor(locator string) (string, bool)
}

// entry is a recorded action plus its merge key, computed at record time
// against the then-current element history.
type entry struct {
	action schemas.Action
	key    string
	keyed  bool
}

// Recorder keeps two independent append-only action channels, one fed by
// the automated driver and one by the human, and maintains a merged view
// recomputed after every append.
type Recorder struct {
	mu sync.Mutex

	vault *secrets.Vault
	index FingerprintIndex

	agent  []entry
	manual []entry
	merged []schemas.Action

	// manualCursor marks how much of the manual channel has already been
	// handed off via PopManual. The records stay in the channel for merging.
	manualCursor int

	logger *zap.Logger
}

// New creates a recorder. index may be nil, in which case merge keys fall
// back to type+locator for every selector-bearing action.
func New(vault *secrets.Vault, index FingerprintIndex, logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{
		vault:  vault,
		index:  index,
		logger: logger.Named("recorder"),
	}
}

// RecordAgent appends an action to the agent channel.
func (r *Recorder) RecordAgent(action schemas.Action) {
	r.record(&r.agent, action, "agent")
}

// RecordManual appends an action to the manual channel.
func (r *Recorder) RecordManual(action schemas.Action) {
	r.record(&r.manual, action, "manual")
}

func (r *Recorder) record(channel *[]entry, action schemas.Action, name string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	masked := r.mask(action)
	e := entry{action: masked}
	e.key, e.keyed = r.mergeKey(masked)
	*channel = append(*channel, e)

	r.recomputeMergedLocked()
	r.logger.Debug("Recorded action.",
		zap.String("channel", name),
		zap.String("type", string(masked.Type)),
		zap.Bool("keyed", e.keyed))
}

// mask applies the sensitive-value mask to every string argument of a
// value-entry action. Only exact matches of a registered secret value are
// replaced.
func (r *Recorder) mask(action schemas.Action) schemas.Action {
	if r.vault == nil || !action.IsValueEntry() || action.Args == nil {
		return action
	}
	out := action.Clone()
	for k, v := range out.Args {
		if s, ok := v.(string); ok {
			out.Args[k] = r.vault.Mask(s)
		}
	}
	return out
}

// mergeKey computes the cross-channel match key for an action: the resolved
// element fingerprint when one is available, else type+locator. Actions that
// do not target an element carry no key and always pass through the merge.
func (r *Recorder) mergeKey(action schemas.Action) (string, bool) {
	if !action.TargetsElement() {
		return "", false
	}
	locator, ok := action.Locator()
	if !ok {
		return "", false
	}
	if fp, isFP := schemas.FingerprintFromLocator(locator); isFP {
		return fp, true
	}
	if r.index != nil {
		if fp, found := r.index.FingerprintFor(locator); found {
			return fp, true
		}
	}
	return string(action.Type) + "|" + locator, true
}

// PopManual returns the manual actions recorded since the previous call.
// Each record is handed off exactly once; the channel itself is retained so
// the merge stays complete.
func (r *Recorder) PopManual() []schemas.Action {
	r.mu.Lock()
	defer r.mu.Unlock()

	fresh := r.manual[r.manualCursor:]
	if len(fresh) == 0 {
		return nil
	}
	out := make([]schemas.Action, len(fresh))
	for i, e := range fresh {
		out[i] = e.action.Clone()
	}
	r.manualCursor = len(r.manual)
	return out
}

// Agent returns a copy of the agent channel.
func (r *Recorder) Agent() []schemas.Action {
	r.mu.Lock()
	defer r.mu.Unlock()
	return copyEntries(r.agent)
}

// Manual returns a copy of the manual channel.
func (r *Recorder) Manual() []schemas.Action {
	r.mu.Lock()
	defer r.mu.Unlock()
	return copyEntries(r.manual)
}

// Merged returns a copy of the current merged action list.
func (r *Recorder) Merged() []schemas.Action {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]schemas.Action, len(r.merged))
	for i, a := range r.merged {
		out[i] = a.Clone()
	}
	return out
}

// Reset clears both channels, the merged list and the hand-off cursor.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.agent = nil
	r.manual = nil
	r.merged = nil
	r.manualCursor = 0
}

func copyEntries(entries []entry) []schemas.Action {
	out := make([]schemas.Action, len(entries))
	for i, e := range entries {
		out[i] = e.action.Clone()
	}
	return out
}
