// Package collision detects column ID collisions while a trace index is built.
package collision

import (
	"fmt"

	"github.com/arloliu/hierfit/errs"
)

// Tracker records the columns of one archive and the IDs they hash to.
// The zero value is not usable; create trackers with NewTracker.
type Tracker struct {
	ids   map[uint64]string // ID → column name
	names []string          // insertion order
}

// NewTracker creates a tracker sized for n columns.
func NewTracker(n int) *Tracker {
	return &Tracker{
		ids:   make(map[uint64]string, n),
		names: make([]string, 0, n),
	}
}

// Track registers a column name with its ID.
//
// Returns:
//   - errs.ErrInvalidColumnName for an empty name
//   - errs.ErrDuplicateColumn when name was tracked before
//   - errs.ErrHashCollision when a different name already owns id; the
//     index could not tell the two columns apart on lookup
func (t *Tracker) Track(name string, id uint64) error {
	if name == "" {
		return errs.ErrInvalidColumnName
	}

	if existing, ok := t.ids[id]; ok {
		if existing == name {
			return fmt.Errorf("%w: %q", errs.ErrDuplicateColumn, name)
		}

		return fmt.Errorf("%w: %q and %q share id 0x%016x", errs.ErrHashCollision, existing, name, id)
	}

	t.ids[id] = name
	t.names = append(t.names, name)

	return nil
}

// Lookup returns the column name tracked under id.
func (t *Tracker) Lookup(id uint64) (string, bool) {
	name, ok := t.ids[id]
	return name, ok
}

// Names returns the tracked names in insertion order.
func (t *Tracker) Names() []string {
	return t.names
}

// Count returns the number of tracked columns.
func (t *Tracker) Count() int {
	return len(t.names)
}

// Reset clears every tracked column and keeps the allocated capacity.
func (t *Tracker) Reset() {
	clear(t.ids)
	t.names = t.names[:0]
}
