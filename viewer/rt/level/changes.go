package level

import (
	"math/bits"

	"github.com/google/uuid"
)

// SectionSet is a set of section ids 0..MaxSection.
type SectionSet uint8

func (s SectionSet) Has(section int) bool {
	return section >= 0 && section <= MaxSection && s&(1<<section) != 0
}

// With returns s plus section. Ids outside 0..MaxSection are ignored.
func (s SectionSet) With(section int) SectionSet {
	if section < 0 || section > MaxSection {
		return s
	}
	return s | 1<<section
}

func (s SectionSet) Len() int {
	return bits.OnesCount8(uint8(s))
}

func (s SectionSet) Slice() []int {
	var out []int
	for i := 0; i <= MaxSection; i++ {
		if s.Has(i) {
			out = append(out, i)
		}
	}
	return out
}

// ChangeSet is what changed in a level since a subscriber last drained.
type ChangeSet struct {
	Instances SectionSet
	Collision bool
}

func (c ChangeSet) Empty() bool {
	return c.Instances == 0 && !c.Collision
}

// ChangeTracker fans scene edits out to every subscribed renderer. Each
// subscriber drains its own pending set once per frame, so one edit
// rebuilds the affected cache slots of every viewport exactly once.
//
// Like the rest of the viewer it is used from the render thread only.
type ChangeTracker struct {
	pending map[uuid.UUID]ChangeSet
}

func NewChangeTracker() *ChangeTracker {
	return &ChangeTracker{pending: make(map[uuid.UUID]ChangeSet)}
}

// Subscribe registers a new subscriber with nothing pending.
func (t *ChangeTracker) Subscribe() uuid.UUID {
	id := uuid.New()
	t.pending[id] = ChangeSet{}
	return id
}

func (t *ChangeTracker) Unsubscribe(id uuid.UUID) {
	delete(t.pending, id)
}

func (t *ChangeTracker) Subscribers() int {
	return len(t.pending)
}

// MarkInstancesChanged flags a section's instance list for every subscriber.
func (t *ChangeTracker) MarkInstancesChanged(section int) {
	for id, c := range t.pending {
		c.Instances = c.Instances.With(section)
		t.pending[id] = c
	}
}

// MarkCollisionChanged flags the collision mesh for every subscriber.
func (t *ChangeTracker) MarkCollisionChanged() {
	for id, c := range t.pending {
		c.Collision = true
		t.pending[id] = c
	}
}

// Pending returns the subscriber's changes without clearing them.
func (t *ChangeTracker) Pending(id uuid.UUID) ChangeSet {
	return t.pending[id]
}

// Drain returns and clears the subscriber's changes. Unknown ids drain
// nothing.
func (t *ChangeTracker) Drain(id uuid.UUID) ChangeSet {
	c, ok := t.pending[id]
	if !ok {
		return ChangeSet{}
	}
	t.pending[id] = ChangeSet{}
	return c
}
