package task

// The ordering model is dense integer positions per list: every list's tasks
// occupy positions 0..N-1 with no gaps and no duplicates. Moves are planned
// as pure slice rewrites here and applied transactionally by the repository.

// ClampIndex bounds a requested insertion index to [0, count].
func ClampIndex(idx, count int) int {
	if idx < 0 {
		return 0
	}
	if idx > count {
		return count
	}
	return idx
}

// remove returns ids without taskID and reports whether it was present.
func remove(ids []string, taskID string) ([]string, bool) {
	out := make([]string, 0, len(ids))
	found := false
	for _, id := range ids {
		if id == taskID {
			found = true
			continue
		}
		out = append(out, id)
	}
	return out, found
}

// insertAt places taskID at the clamped index.
func insertAt(ids []string, taskID string, idx int) []string {
	idx = ClampIndex(idx, len(ids))
	out := make([]string, 0, len(ids)+1)
	out = append(out, ids[:idx]...)
	out = append(out, taskID)
	out = append(out, ids[idx:]...)
	return out
}

// MovePlan is the full post-move ordering of the affected list or lists.
// For a same-list move Source and Dest alias the same ordering.
type MovePlan struct {
	Source   []string
	Dest     []string
	SameList bool
}

// PlanSameListMove reorders one list: the task leaves its old slot and the
// requested index is clamped against the shrunken list, so positions stay
// dense after the rewrite.
func PlanSameListMove(ids []string, taskID string, toIndex int) (MovePlan, bool) {
	without, found := remove(ids, taskID)
	if !found {
		return MovePlan{}, false
	}
	ordered := insertAt(without, taskID, toIndex)
	return MovePlan{Source: ordered, Dest: ordered, SameList: true}, true
}

// PlanCrossListMove pulls the task out of the source ordering and inserts it
// into the destination ordering at the clamped index.
func PlanCrossListMove(src, dst []string, taskID string, toIndex int) (MovePlan, bool) {
	without, found := remove(src, taskID)
	if !found {
		return MovePlan{}, false
	}
	return MovePlan{
		Source: without,
		Dest:   insertAt(dst, taskID, toIndex),
	}, true
}

// PlanRemoval drops the task and returns the renumber-ready remainder.
func PlanRemoval(ids []string, taskID string) ([]string, bool) {
	return remove(ids, taskID)
}
