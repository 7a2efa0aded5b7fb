// Package reconcile keeps a result's hand-marking entries in step with the assessment's
// current weighted hand-marking set.
//
// Reconciliation runs lazily whenever a result is read. Editing an assessment therefore never
// fans out across historical results; the next read of each result brings it up to date.
package reconcile

import (
	mapset "github.com/deckarep/golang-set/v2"

	"github.com/jjstretton/pasta/internal/domain/model"
)

// Change describes what Reconcile did to a result.
type Change struct {
	// Created holds the indexes into result.HandMarking of entries that were created
	// empty and still need to be persisted to obtain an id.
	Created []int
	// Dropped holds the snapshot entries that no longer apply.
	Dropped []model.HandMarkingResult
	// ResultChanged is true when the entry collection itself changed and the result
	// must be saved.
	ResultChanged bool
}

// Empty reports whether reconciliation left the result untouched.
func (c Change) Empty() bool {
	return len(c.Created) == 0 && len(c.Dropped) == 0 && !c.ResultChanged
}

// Reconcile rebuilds result.HandMarking from current. Entries whose weighted hand marking is
// still attached keep their id and marks; new weighted hand markings get an empty entry;
// entries for detached hand markings are dropped. Only hand markings whose GroupWork flag
// matches result.GroupResult apply.
func Reconcile(result *model.Result, current []model.WeightedHandMarking) Change {
	var change Change
	if result == nil {
		return change
	}

	snapshot := result.HandMarking
	initialCount := len(snapshot)

	byWeighted := make(map[int64]int, len(snapshot))
	for i, entry := range snapshot {
		if _, seen := byWeighted[entry.WeightedHandMarkingID]; !seen {
			byWeighted[entry.WeightedHandMarkingID] = i
		}
	}

	matched := mapset.NewThreadUnsafeSet[int]()
	rebuilt := make([]model.HandMarkingResult, 0, len(current))

	for _, whm := range current {
		if whm.GroupWork != result.GroupResult {
			continue
		}
		if idx, ok := byWeighted[whm.ID]; ok && !matched.Contains(idx) {
			matched.Add(idx)
			rebuilt = append(rebuilt, snapshot[idx])
			continue
		}
		change.Created = append(change.Created, len(rebuilt))
		rebuilt = append(rebuilt, model.HandMarkingResult{
			ResultID:              result.ID,
			WeightedHandMarkingID: whm.ID,
		})
	}

	for i, entry := range snapshot {
		if !matched.Contains(i) {
			change.Dropped = append(change.Dropped, entry)
		}
	}

	result.HandMarking = rebuilt
	change.ResultChanged = len(rebuilt) != initialCount || matched.Cardinality() != initialCount
	return change
}
