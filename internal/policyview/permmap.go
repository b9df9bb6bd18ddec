package policyview

import "github.com/cici0602/sepolicy-engine/internal/diag"

// MinWeight and MaxWeight are the permission-map weight bounds every
// entry must fall within (spec.md section 6 constants
// PERMMAP_MIN_WEIGHT/PERMMAP_MAX_WEIGHT).
const (
	MinWeight = 1
	MaxWeight = 10
)

// PermMapEntry is a single class/permission weighting.
type PermMapEntry struct {
	Weight    int
	Direction Direction
}

// PermMap is the auxiliary table assigning each (class, permission) a
// read/write direction and a weight in [MinWeight, MaxWeight]. Loading
// one is out of scope for the core (spec.md section 1); this is the
// shape the core consumes plus a small in-memory builder for tests.
type PermMap struct {
	entries map[int]map[int]PermMapEntry
}

// NewPermMap creates an empty permission map.
func NewPermMap() PermMap {
	return PermMap{entries: make(map[int]map[int]PermMapEntry)}
}

// Set assigns a direction/weight to (classID, permID). Returns
// InvalidInput if weight falls outside [MinWeight, MaxWeight].
func (m PermMap) Set(classID, permID int, dir Direction, weight int) error {
	if weight < MinWeight || weight > MaxWeight {
		return diag.New(diag.InvalidInput, "permission map weight %d out of range [%d,%d]", weight, MinWeight, MaxWeight)
	}
	if m.entries[classID] == nil {
		m.entries[classID] = make(map[int]PermMapEntry)
	}
	m.entries[classID][permID] = PermMapEntry{Weight: weight, Direction: dir}
	return nil
}

// Lookup returns the entry for (classID, permID), if mapped.
func (m PermMap) Lookup(classID, permID int) (PermMapEntry, bool) {
	if m.entries == nil {
		return PermMapEntry{}, false
	}
	cm, ok := m.entries[classID]
	if !ok {
		return PermMapEntry{}, false
	}
	e, ok := cm[permID]
	return e, ok
}
