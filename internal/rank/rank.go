// Package rank resolves where the target business sits in a cell's result
// list, if it appears at all.
package rank

import (
	"github.com/sells-group/rankgrid/internal/match"
	"github.com/sells-group/rankgrid/internal/model"
)

// Extract scans records in provider order and returns the rank of the first
// record matching target. The record's own grouped rank is preferred, then
// its absolute rank, then its 1-based position in the list. Nil means the
// target is not present in the sampled results, which is a valid terminal
// outcome, not an error. A target with no identifying signal also yields nil: no
// matching is attempted without at least one signal.
func Extract(records []model.ResultRecord, target model.TargetBusiness) *int {
	if !target.HasSignal() {
		return nil
	}
	for i, rec := range records {
		if !match.Matches(rec, target) {
			continue
		}
		r := rec.RankGroup
		if r == 0 {
			r = rec.RankAbsolute
		}
		if r == 0 {
			r = i + 1
		}
		return &r
	}
	return nil
}

// Correct re-extracts the rank from a fuller record list and reports whether
// the previously recorded rank changed. The deeper competitor fetch can
// surface a match the original extraction missed. Idempotent: applying the
// same records twice never changes an already-corrected rank.
func Correct(current *int, records []model.ResultRecord, target model.TargetBusiness) (*int, bool) {
	found := Extract(records, target)
	if found == nil {
		return current, false
	}
	if current != nil && *current == *found {
		return current, false
	}
	return found, true
}
