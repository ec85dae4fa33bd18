// internal/recorder/merge.go
package recorder

import "github.com/hollowpoint9/retrace-cli/api/schemas"

// recomputeMergedLocked rebuilds the merged list from scratch out of the two
// channels. The merged view is always a pure function of the channels'
// current contents; there is no incremental patching.
//
// A manual record overrides the agent record sharing its key, because a
// human correction of an automated step is authoritative. Unkeyed records
// (navigate, waits, screenshots) never cross-match and pass through from
// whichever channel produced them. Manual records whose key no agent record
// carries are appended at the end, in recorded order.
func (r *Recorder) recomputeMergedLocked() {
	// When the human repeated an action on the same element, the last manual
	// record for that key wins.
	manualWinner := make(map[string]int, len(r.manual))
	for i, e := range r.manual {
		if e.keyed {
			manualWinner[e.key] = i
		}
	}

	merged := make([]schemas.Action, 0, len(r.agent)+len(r.manual))
	consumed := make(map[string]bool, len(manualWinner))

	for _, e := range r.agent {
		if e.keyed {
			if winner, ok := manualWinner[e.key]; ok {
				if !consumed[e.key] {
					merged = append(merged, r.manual[winner].action)
					consumed[e.key] = true
				}
				// Further agent records on an already-consumed key are
				// covered by the same manual correction.
				continue
			}
		}
		merged = append(merged, e.action)
	}

	for i, e := range r.manual {
		if !e.keyed {
			merged = append(merged, e.action)
			continue
		}
		if consumed[e.key] || manualWinner[e.key] != i {
			continue
		}
		merged = append(merged, e.action)
		consumed[e.key] = true
	}

	r.merged = merged
}
