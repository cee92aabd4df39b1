package scheduler

import "sort"

// OrderedEntry is one row of a dense, 1-based catalog ordering.
type OrderedEntry struct {
	ID        string
	SortOrder int
}

// SortOrderUpdate instructs the store to move one row to a new position.
type SortOrderUpdate struct {
	ID        string
	SortOrder int
}

// AppendPosition returns the position a new entry receives when appended:
// one past the current maximum, or 1 for an empty catalog.
func AppendPosition(entries []OrderedEntry) int {
	maxOrder := 0
	for _, entry := range entries {
		if entry.SortOrder > maxOrder {
			maxOrder = entry.SortOrder
		}
	}
	return maxOrder + 1
}

// ShiftForInsert computes the batched updates that make room at position:
// every entry at or past the position moves up by one. Appending past the
// current maximum requires no shifts.
func ShiftForInsert(entries []OrderedEntry, position int) []SortOrderUpdate {
	updates := make([]SortOrderUpdate, 0)
	for _, entry := range entries {
		if entry.SortOrder >= position {
			updates = append(updates, SortOrderUpdate{ID: entry.ID, SortOrder: entry.SortOrder + 1})
		}
	}
	sort.Slice(updates, func(i, j int) bool { return updates[i].SortOrder > updates[j].SortOrder })
	return updates
}

// ShiftForRemove computes the batched updates that close the gap left at the
// removed position: every entry past it moves down by one.
func ShiftForRemove(entries []OrderedEntry, removed int) []SortOrderUpdate {
	updates := make([]SortOrderUpdate, 0)
	for _, entry := range entries {
		if entry.SortOrder > removed {
			updates = append(updates, SortOrderUpdate{ID: entry.ID, SortOrder: entry.SortOrder - 1})
		}
	}
	sort.Slice(updates, func(i, j int) bool { return updates[i].SortOrder < updates[j].SortOrder })
	return updates
}

// ApplyUpdates returns the ordering that results from applying the updates to
// the current entries. Unknown ids are reported as missing.
func ApplyUpdates(entries []OrderedEntry, updates []SortOrderUpdate) (applied []OrderedEntry, missing []string) {
	byID := make(map[string]int, len(entries))
	applied = make([]OrderedEntry, len(entries))
	copy(applied, entries)
	for i, entry := range applied {
		byID[entry.ID] = i
	}
	for _, update := range updates {
		i, ok := byID[update.ID]
		if !ok {
			missing = append(missing, update.ID)
			continue
		}
		applied[i].SortOrder = update.SortOrder
	}
	return applied, missing
}

// IsDense reports whether the entries occupy exactly the positions 1..N.
func IsDense(entries []OrderedEntry) bool {
	seen := make(map[int]struct{}, len(entries))
	for _, entry := range entries {
		if entry.SortOrder < 1 || entry.SortOrder > len(entries) {
			return false
		}
		if _, dup := seen[entry.SortOrder]; dup {
			return false
		}
		seen[entry.SortOrder] = struct{}{}
	}
	return len(seen) == len(entries)
}
