package level

import (
	"errors"
	"fmt"
	"slices"

	"github.com/go-gl/mathgl/mgl32"
)

var ErrNoInstance = errors.New("instance not found")

// Editor is the only writer of a Level. Every mutation is reported to the
// change tracker so renderers rebuild the affected cache slots.
type Editor struct {
	level   *Level
	changes *ChangeTracker
}

func NewEditor(l *Level, changes *ChangeTracker) *Editor {
	return &Editor{level: l, changes: changes}
}

func (e *Editor) Level() *Level {
	return e.level
}

func (e *Editor) Changes() *ChangeTracker {
	return e.changes
}

func (e *Editor) MoveInstance(section int, id uint32, pos mgl32.Vec3) error {
	inst, ok := e.level.Instance(section, id)
	if !ok {
		return fmt.Errorf("%w: section %d id %d", ErrNoInstance, section, id)
	}
	inst.Pos = pos
	e.changes.MarkInstancesChanged(section)
	return nil
}

func (e *Editor) RotateInstance(section int, id uint32, rotX, rotY, rotZ uint16) error {
	inst, ok := e.level.Instance(section, id)
	if !ok {
		return fmt.Errorf("%w: section %d id %d", ErrNoInstance, section, id)
	}
	inst.RotX, inst.RotY, inst.RotZ = rotX, rotY, rotZ
	e.changes.MarkInstancesChanged(section)
	return nil
}

// AddInstance appends inst to the section, creating the section and its
// instance list when missing.
func (e *Editor) AddInstance(section int, inst Instance) error {
	if section < 0 || section > MaxSection {
		return fmt.Errorf("section %d out of range", section)
	}
	s := e.level.EnsureSection(section)
	if _, ok := s.Instance(inst.ID); ok {
		return fmt.Errorf("instance %d already exists in section %d", inst.ID, section)
	}
	s.Instances = append(s.Instances, inst)
	e.changes.MarkInstancesChanged(section)
	return nil
}

func (e *Editor) RemoveInstance(section int, id uint32) error {
	s, ok := e.level.Section(section)
	if !ok {
		return fmt.Errorf("%w: section %d id %d", ErrNoInstance, section, id)
	}
	i := slices.IndexFunc(s.Instances, func(inst Instance) bool { return inst.ID == id })
	if i < 0 {
		return fmt.Errorf("%w: section %d id %d", ErrNoInstance, section, id)
	}
	s.Instances = slices.Delete(s.Instances, i, i+1)
	e.changes.MarkInstancesChanged(section)
	return nil
}

// Replace swaps in the contents of next, e.g. after the level file was
// reloaded, and marks only what differs. The Level pointer held by
// renderers stays valid.
func (e *Editor) Replace(next *Level) ChangeSet {
	next.link()
	var changed ChangeSet
	if !sameCollision(e.level.Collision, next.Collision) {
		changed.Collision = true
	}
	for id := 0; id <= MaxSection; id++ {
		a, _ := e.level.Section(id)
		b, _ := next.Section(id)
		if a.HasInstances() != b.HasInstances() || !sameInstances(a, b) {
			changed.Instances = changed.Instances.With(id)
		}
	}

	*e.level = *next
	if changed.Collision {
		e.changes.MarkCollisionChanged()
	}
	for _, id := range changed.Instances.Slice() {
		e.changes.MarkInstancesChanged(id)
	}
	return changed
}

func sameInstances(a, b *Section) bool {
	var ai, bi []Instance
	if a != nil {
		ai = a.Instances
	}
	if b != nil {
		bi = b.Instances
	}
	return slices.Equal(ai, bi)
}

func sameCollision(a, b *ColData) bool {
	if a == nil || b == nil {
		return a == b
	}
	return slices.Equal(a.Vertices, b.Vertices) &&
		slices.Equal(a.Tris, b.Tris) &&
		slices.Equal(a.Triggers, b.Triggers)
}
