package level

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newEditor(t *testing.T) (*Editor, *ChangeTracker) {
	t.Helper()
	tr := NewChangeTracker()
	return NewEditor(Demo(), tr), tr
}

func TestEditorMoveMarksSection(t *testing.T) {
	ed, tr := newEditor(t)
	sub := tr.Subscribe()

	require.NoError(t, ed.MoveInstance(1, 12, mgl32.Vec3{5, 5, 5}))
	inst, ok := ed.Level().Instance(1, 12)
	require.True(t, ok)
	assert.Equal(t, mgl32.Vec3{5, 5, 5}, inst.Pos)

	c := tr.Drain(sub)
	assert.Equal(t, []int{1}, c.Instances.Slice())
	assert.False(t, c.Collision)

	err := ed.MoveInstance(1, 999, mgl32.Vec3{})
	assert.ErrorIs(t, err, ErrNoInstance)
	assert.True(t, tr.Drain(sub).Empty(), "failed edits mark nothing")
}

func TestEditorAddRotateRemove(t *testing.T) {
	ed, tr := newEditor(t)
	sub := tr.Subscribe()

	require.NoError(t, ed.AddInstance(5, Instance{ID: 1}))
	s, ok := ed.Level().Section(5)
	require.True(t, ok)
	assert.True(t, s.HasInstances())
	assert.Error(t, ed.AddInstance(5, Instance{ID: 1}), "duplicate ids are rejected")
	assert.Error(t, ed.AddInstance(8, Instance{ID: 2}))

	require.NoError(t, ed.RotateInstance(5, 1, 0, RotationUnits/4, 0))
	inst, _ := ed.Level().Instance(5, 1)
	assert.InDelta(t, 90, Degrees(inst.RotY), 0.01)

	require.NoError(t, ed.RemoveInstance(5, 1))
	_, ok = ed.Level().Instance(5, 1)
	assert.False(t, ok)
	assert.ErrorIs(t, ed.RemoveInstance(5, 1), ErrNoInstance)
	assert.ErrorIs(t, ed.RemoveInstance(6, 1), ErrNoInstance)

	assert.Equal(t, []int{5}, tr.Drain(sub).Instances.Slice())
}

func TestEditorReplaceMarksOnlyDifferences(t *testing.T) {
	ed, tr := newEditor(t)
	sub := tr.Subscribe()
	held := ed.Level()

	next := Demo()
	next.Sections[2].Instances[0].Pos = mgl32.Vec3{1, 1, 1}
	next.Sections[6] = &Section{Instances: []Instance{{ID: 60}}}

	changed := ed.Replace(next)
	assert.Equal(t, []int{2, 6}, changed.Instances.Slice())
	assert.False(t, changed.Collision)
	assert.Equal(t, changed, tr.Drain(sub))

	assert.Same(t, held, ed.Level(), "renderers keep their level pointer")
	inst, ok := held.Instance(6, 60)
	require.True(t, ok)
	assert.Equal(t, uint32(60), inst.ID)
	assert.Equal(t, 6, held.Sections[6].ID)

	next = Demo()
	next.Collision.Tris[0].Surface = 4
	changed = ed.Replace(next)
	assert.True(t, changed.Collision)
	assert.Equal(t, []int{6}, changed.Instances.Slice(), "section 6 is gone again")
}
