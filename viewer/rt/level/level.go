// Package level holds the read-only scene data the viewer draws: the
// collision mesh, and numbered sections of placed instances and trigger
// volumes.
package level

import (
	"sort"

	"github.com/go-gl/mathgl/mgl32"
)

const (
	// MaxSection is the highest section id the viewer draws.
	MaxSection = 7
	// NumSections counts section ids 0..MaxSection.
	NumSections = MaxSection + 1

	// RotationUnits is the fixed-point value of a full turn.
	RotationUnits = 65535
)

// ColTri indexes three vertices of the collision mesh.
type ColTri struct {
	Vert1   int `yaml:"v1"`
	Vert2   int `yaml:"v2"`
	Vert3   int `yaml:"v3"`
	Surface int `yaml:"surface"`
}

// ColTrigger is a collision tree node: a box given by two corners and an
// opaque flag pair.
type ColTrigger struct {
	X1    float32 `yaml:"x1"`
	Y1    float32 `yaml:"y1"`
	Z1    float32 `yaml:"z1"`
	X2    float32 `yaml:"x2"`
	Y2    float32 `yaml:"y2"`
	Z2    float32 `yaml:"z2"`
	Flag1 int32   `yaml:"flag1"`
	Flag2 int32   `yaml:"flag2"`
}

// Leaf reports whether both flags are equal and negative.
func (t ColTrigger) Leaf() bool {
	return t.Flag1 == t.Flag2 && t.Flag1 < 0
}

type ColData struct {
	Vertices []mgl32.Vec3 `yaml:"vertices"`
	Tris     []ColTri     `yaml:"tris"`
	Triggers []ColTrigger `yaml:"triggers,omitempty"`
}

// Triangle returns the three corners of tri. ok is false when an index is
// out of range.
func (c *ColData) Triangle(tri ColTri) (a, b, v mgl32.Vec3, ok bool) {
	n := len(c.Vertices)
	if tri.Vert1 < 0 || tri.Vert1 >= n || tri.Vert2 < 0 || tri.Vert2 >= n || tri.Vert3 < 0 || tri.Vert3 >= n {
		return a, b, v, false
	}
	return c.Vertices[tri.Vert1], c.Vertices[tri.Vert2], c.Vertices[tri.Vert3], true
}

// Instance is a placed object. Rotations are fixed-point angles where
// RotationUnits is a full turn.
type Instance struct {
	ID   uint32     `yaml:"id"`
	Pos  mgl32.Vec3 `yaml:"pos"`
	RotX uint16     `yaml:"rot_x"`
	RotY uint16     `yaml:"rot_y"`
	RotZ uint16     `yaml:"rot_z"`
}

// Degrees converts a fixed-point angle to degrees.
func Degrees(rot uint16) float32 {
	return float32(rot) / RotationUnits * 360
}

// Trigger is a box volume centered on Position with the given half extents,
// linked to instances of its own section.
type Trigger struct {
	ID          uint32     `yaml:"id"`
	Position    mgl32.Vec3 `yaml:"pos"`
	HalfExtents mgl32.Vec3 `yaml:"half_extents"`
	Flags       [2]int32   `yaml:"flags,flow"`
	Instances   []uint32   `yaml:"instances,flow"`

	// Section is the owning section id, set when the level is loaded.
	Section int `yaml:"-"`
}

// SmallestExtent is the smallest of the three half extents.
func (t *Trigger) SmallestExtent() float32 {
	return min(t.HalfExtents.X(), t.HalfExtents.Y(), t.HalfExtents.Z())
}

// Section groups instances and triggers. A nil slice means the section has
// no such sub-collection; an empty non-nil slice is an empty one.
type Section struct {
	ID        int        `yaml:"-"`
	Instances []Instance `yaml:"instances,omitempty"`
	Triggers  []Trigger  `yaml:"triggers,omitempty"`
}

func (s *Section) HasInstances() bool {
	return s != nil && s.Instances != nil
}

func (s *Section) HasTriggers() bool {
	return s != nil && s.Triggers != nil
}

func (s *Section) Instance(id uint32) (*Instance, bool) {
	if s == nil {
		return nil, false
	}
	for i := range s.Instances {
		if s.Instances[i].ID == id {
			return &s.Instances[i], true
		}
	}
	return nil, false
}

// InstanceLookup resolves a trigger link to the instance's current state.
type InstanceLookup interface {
	Instance(section int, id uint32) (*Instance, bool)
}

// Level is one loaded level.
type Level struct {
	Name      string           `yaml:"name,omitempty"`
	Collision *ColData         `yaml:"collision,omitempty"`
	Sections  map[int]*Section `yaml:"sections,omitempty"`
}

func New(name string) *Level {
	return &Level{Name: name, Sections: make(map[int]*Section)}
}

// Section returns the section with the given id, if present.
func (l *Level) Section(id int) (*Section, bool) {
	s, ok := l.Sections[id]
	return s, ok && s != nil
}

// EnsureSection returns the section with the given id, creating it empty.
func (l *Level) EnsureSection(id int) *Section {
	if l.Sections == nil {
		l.Sections = make(map[int]*Section)
	}
	s, ok := l.Sections[id]
	if !ok || s == nil {
		s = &Section{ID: id}
		l.Sections[id] = s
	}
	return s
}

func (l *Level) Instance(section int, id uint32) (*Instance, bool) {
	s, ok := l.Section(section)
	if !ok {
		return nil, false
	}
	return s.Instance(id)
}

// SectionIDs lists the present section ids in ascending order.
func (l *Level) SectionIDs() []int {
	ids := make([]int, 0, len(l.Sections))
	for id, s := range l.Sections {
		if s != nil {
			ids = append(ids, id)
		}
	}
	sort.Ints(ids)
	return ids
}

// link fills the back-references that are not stored in the file.
func (l *Level) link() {
	for id, s := range l.Sections {
		if s == nil {
			continue
		}
		s.ID = id
		for i := range s.Triggers {
			s.Triggers[i].Section = id
		}
	}
}
