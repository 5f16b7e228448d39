package level

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sceneYAML = `
name: tiny
collision:
  vertices: [[0, 0, 0], [1, 0, 0], [0, 0, 1]]
  tris: [{v1: 0, v2: 1, v3: 2, surface: 3}]
  triggers:
    - {x1: -1, y1: -1, z1: -1, x2: 1, y2: 1, z2: 1, flag1: -1, flag2: -1}
sections:
  0:
    instances:
      - {id: 7, pos: [1, 2, 3]}
  2:
    triggers:
      - id: 40
        pos: [0, 1, 0]
        half_extents: [2, 3, 4]
        flags: [1, 2]
        instances: [7, 8]
`

func TestDecodeScene(t *testing.T) {
	l, err := Decode(strings.NewReader(sceneYAML))
	require.NoError(t, err)

	assert.Equal(t, "tiny", l.Name)
	require.NotNil(t, l.Collision)
	assert.Len(t, l.Collision.Tris, 1)
	assert.True(t, l.Collision.Triggers[0].Leaf())
	assert.Equal(t, []int{0, 2}, l.SectionIDs())

	inst, ok := l.Instance(0, 7)
	require.True(t, ok)
	assert.Equal(t, mgl32.Vec3{1, 2, 3}, inst.Pos)

	s2, ok := l.Section(2)
	require.True(t, ok)
	assert.False(t, s2.HasInstances())
	assert.True(t, s2.HasTriggers())
	tr := s2.Triggers[0]
	assert.Equal(t, 2, tr.Section, "triggers know their section")
	assert.Equal(t, []uint32{7, 8}, tr.Instances)
	assert.Equal(t, float32(2), tr.SmallestExtent())

	_, ok = l.Section(3)
	assert.False(t, ok)
}

func TestDecodeSceneRejectsBadData(t *testing.T) {
	_, err := Decode(strings.NewReader("collision:\n  vertices: [[0,0,0]]\n  tris: [{v1: 0, v2: 1, v3: 2}]\n"))
	assert.ErrorContains(t, err, "missing vertex")

	_, err = Decode(strings.NewReader("sections:\n  9: {}\n"))
	assert.ErrorContains(t, err, "out of range")

	_, err = Decode(strings.NewReader("colision: {}\n"))
	assert.Error(t, err, "unknown keys are rejected")

	l, err := Decode(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, l.Sections)
}

func TestEncodeDemoRoundTrip(t *testing.T) {
	demo := Demo()
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, demo))

	path := filepath.Join(t.TempDir(), "demo.yaml")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	back, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, demo.Collision, back.Collision)
	assert.Equal(t, demo.SectionIDs(), back.SectionIDs())
	for _, id := range demo.SectionIDs() {
		assert.Equal(t, demo.Sections[id], back.Sections[id])
	}

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestDemoLinksResolve(t *testing.T) {
	l := Demo()
	for _, id := range l.SectionIDs() {
		s := l.Sections[id]
		for _, tr := range s.Triggers {
			for _, link := range tr.Instances {
				_, ok := l.Instance(tr.Section, link)
				assert.True(t, ok, "section %d trigger %d link %d", id, tr.ID, link)
			}
		}
	}
}
