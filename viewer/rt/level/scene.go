package level

import (
	"bytes"
	"fmt"
	"io"
	"os"

	"github.com/go-gl/mathgl/mgl32"
	"gopkg.in/yaml.v3"
)

// Load reads a level from a YAML scene file.
func Load(path string) (*Level, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read level: %w", err)
	}
	l, err := Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return l, nil
}

func Decode(r io.Reader) (*Level, error) {
	l := New("")
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(l); err != nil && err != io.EOF {
		return nil, fmt.Errorf("failed to parse level: %w", err)
	}
	if err := l.Validate(); err != nil {
		return nil, err
	}
	l.link()
	return l, nil
}

func Encode(w io.Writer, l *Level) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(l); err != nil {
		return fmt.Errorf("failed to encode level: %w", err)
	}
	return enc.Close()
}

// Validate checks section ids and collision indices.
func (l *Level) Validate() error {
	for id := range l.Sections {
		if id < 0 || id > MaxSection {
			return fmt.Errorf("section %d out of range 0..%d", id, MaxSection)
		}
	}
	if l.Collision == nil {
		return nil
	}
	for i, tri := range l.Collision.Tris {
		if _, _, _, ok := l.Collision.Triangle(tri); !ok {
			return fmt.Errorf("collision triangle %d references a missing vertex", i)
		}
	}
	return nil
}

// Demo builds a small level that exercises every drawing path: a terraced
// collision floor, collision nodes, and three sections of instances with
// linked trigger volumes.
func Demo() *Level {
	l := New("demo")

	col := &ColData{}
	const cells, cell = 8, float32(4)
	for z := 0; z <= cells; z++ {
		for x := 0; x <= cells; x++ {
			h := float32((x/3)+(z/3)) * 0.5
			col.Vertices = append(col.Vertices, mgl32.Vec3{
				(float32(x) - cells/2) * cell,
				h,
				(float32(z) - cells/2) * cell,
			})
		}
	}
	for z := 0; z < cells; z++ {
		for x := 0; x < cells; x++ {
			i := z*(cells+1) + x
			surface := (x + z) % 5
			col.Tris = append(col.Tris,
				ColTri{Vert1: i, Vert2: i + cells + 1, Vert3: i + 1, Surface: surface},
				ColTri{Vert1: i + 1, Vert2: i + cells + 1, Vert3: i + cells + 2, Surface: surface},
			)
		}
	}
	col.Triggers = []ColTrigger{
		{X1: -16, Y1: -1, Z1: -16, X2: 16, Y2: 4, Z2: 16, Flag1: 0, Flag2: 1},
		{X1: -16, Y1: -1, Z1: -16, X2: 0, Y2: 3, Z2: 0, Flag1: -1, Flag2: -1},
		{X1: 0, Y1: 0, Z1: 0, X2: 16, Y2: 4, Z2: 16, Flag1: -2, Flag2: -2},
	}
	l.Collision = col

	for s := 0; s < 3; s++ {
		sec := l.EnsureSection(s)
		sec.Instances = []Instance{}
		for n := 0; n < 4; n++ {
			sec.Instances = append(sec.Instances, Instance{
				ID:   uint32(s*10 + n),
				Pos:  mgl32.Vec3{float32(n*6 - 9), 2 + float32(s), float32(s*6 - 6)},
				RotY: uint16(n * RotationUnits / 8),
			})
		}
		sec.Triggers = []Trigger{{
			ID:          uint32(100 + s),
			Position:    mgl32.Vec3{0, 3 + float32(s), float32(s*6 - 6)},
			HalfExtents: mgl32.Vec3{2, 1.5, 1},
			Instances:   []uint32{uint32(s * 10), uint32(s*10 + 3)},
		}}
	}
	l.link()
	return l
}
