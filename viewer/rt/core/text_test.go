package core_test

import (
	"testing"

	"github.com/gekko3d/levelview/viewer/rt/core"
	"github.com/gekko3d/levelview/viewer/rt/core/coretest"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAtlas(t *testing.T) (*core.GlyphAtlas, *coretest.Device, *coretest.Fonts) {
	t.Helper()
	dev := coretest.NewDevice()
	fonts := coretest.NewFonts()
	return core.NewGlyphAtlas(fonts, dev, nil), dev, fonts
}

func TestGlyphAtlasCachesEntries(t *testing.T) {
	atlas, dev, fonts := newAtlas(t)

	a1, err := atlas.EnsureGlyph('A')
	require.NoError(t, err)
	a2, err := atlas.EnsureGlyph('A')
	require.NoError(t, err)
	assert.Same(t, a1, a2)
	assert.Equal(t, 1, fonts.Rasterized['A'])
	assert.Equal(t, float32(12), a1.Width)
	assert.Equal(t, float32(24), a1.Height)

	space, err := atlas.EnsureGlyph(' ')
	require.NoError(t, err)
	assert.Equal(t, core.NoTexture, space.Texture)
	assert.Equal(t, 1, dev.TexturesCreated, "whitespace gets no texture")
	assert.Equal(t, 2, atlas.Len())
}

func TestGlyphAtlasRemembersFailures(t *testing.T) {
	atlas, dev, fonts := newAtlas(t)
	fonts.Missing['X'] = true

	_, err := atlas.EnsureGlyph('X')
	require.ErrorIs(t, err, core.ErrNoGlyph)

	delete(fonts.Missing, 'X')
	_, err = atlas.EnsureGlyph('X')
	assert.ErrorIs(t, err, core.ErrNoGlyph, "a failed character is not retried")
	assert.Zero(t, fonts.Rasterized['X'])
	assert.Zero(t, dev.TexturesCreated)
}

func TestGlyphAtlasDispose(t *testing.T) {
	atlas, dev, _ := newAtlas(t)
	for _, r := range "AB " {
		_, err := atlas.EnsureGlyph(r)
		require.NoError(t, err)
	}
	atlas.Dispose()
	assert.Zero(t, atlas.Len())
	assert.Equal(t, 2, dev.TexturesReleased)
	assert.Empty(t, dev.Textures)

	atlas.Dispose()
	assert.Equal(t, 2, dev.TexturesReleased)

	_, err := atlas.EnsureGlyph('A')
	require.NoError(t, err)
	assert.Equal(t, 3, dev.TexturesCreated, "a disposed atlas refills on demand")
}

func TestDrawTextImmediateCentersString(t *testing.T) {
	atlas, _, _ := newAtlas(t)
	g := core.NewGeometry()
	core.DrawTextImmediate(g, atlas, "AB")

	require.Len(t, g.Batches, 2, "one draw per character")
	a := g.Batches[0].Vertices
	b := g.Batches[1].Vertices
	require.Len(t, a, 6)

	// 12x24 px glyphs at size 24: half width 0.25, height 1.
	assert.InDelta(t, -1.0/3-0.25, a[0].Pos[0], 1e-6)
	assert.InDelta(t, -1.0/3+0.25, a[1].Pos[0], 1e-6)
	assert.InDelta(t, 1, a[2].Pos[1], 1e-6)
	assert.InDelta(t, 1.0/3-0.25, b[0].Pos[0], 1e-6)
	assert.Equal(t, [2]float32{0, 1}, a[0].UV)
	assert.Equal(t, [2]float32{1, 0}, a[2].UV)
}

func TestDrawTextImmediateSkipsSpacesAndMissing(t *testing.T) {
	atlas, _, fonts := newAtlas(t)
	fonts.Missing['?'] = true
	g := core.NewGeometry()
	core.DrawTextImmediate(g, atlas, "A ?B")

	require.Len(t, g.Batches, 2)
	// Skipped characters still take their slot in the line.
	assert.InDelta(t, 5.0*(-1.0/3)+4*2.0/3+0.25, g.Batches[1].Vertices[1].Pos[0], 1e-6)
}

func TestTextBatcherQueueAndFlush(t *testing.T) {
	atlas, _, _ := newAtlas(t)
	tb := core.NewTextBatcher(atlas)

	tb.QueueText("AB", core.ColorWhite, mgl32.Vec3{0, 0, 0}, mgl32.Ident3(), 1)
	tb.QueueText("AB", core.ColorRed, mgl32.Vec3{10, 0, 0}, mgl32.Ident3(), 2)
	assert.Equal(t, 2*core.VerticesPerQuad, tb.Pending('A'))
	assert.Equal(t, 2*core.VerticesPerQuad, tb.Pending('B'))

	var f core.Frame
	f.Reset(640, 480)
	tb.Flush(&f)

	batches := f.Batches(core.SpaceWorld)
	require.Len(t, batches, 2, "one draw per distinct character")
	for _, b := range batches {
		assert.Len(t, b.Vertices, 12)
		assert.True(t, b.State.DepthTest)
		assert.NotEqual(t, core.NoTexture, b.State.Texture)
	}
	assert.Zero(t, tb.Pending('A'))
	assert.Zero(t, tb.Pending('B'))

	second := batches[0].Vertices[6]
	assert.InDelta(t, (-1.0/3-0.25)*2+10, second.Pos[0], 1e-5)
	assert.Equal(t, [4]float32(core.ColorRed), second.Color)

	f.Reset(640, 480)
	tb.Flush(&f)
	assert.Empty(t, f.Commands, "nothing pending after a flush")
}

func TestTextBatcherAppliesBasis(t *testing.T) {
	atlas, _, _ := newAtlas(t)
	tb := core.NewTextBatcher(atlas)

	// Quarter turn about Y: local +X becomes world -Z.
	basis := mgl32.Rotate3DY(mgl32.DegToRad(90))
	tb.QueueText("A", core.ColorWhite, mgl32.Vec3{0, 5, 0}, basis, 1)

	var f core.Frame
	tb.Flush(&f)
	v := f.Batches(core.SpaceWorld)[0].Vertices
	assert.InDelta(t, 0, v[0].Pos[0], 1e-6)
	assert.InDelta(t, 0.25, v[0].Pos[2], 1e-6)
	assert.InDelta(t, 5, v[0].Pos[1], 1e-6)
	assert.InDelta(t, 6, v[2].Pos[1], 1e-6)
}

func TestTextBatcherGrowsBuffers(t *testing.T) {
	atlas, _, _ := newAtlas(t)
	tb := core.NewTextBatcher(atlas)

	tb.QueueText("A", core.ColorWhite, mgl32.Vec3{}, mgl32.Ident3(), 1)
	assert.Equal(t, 256, tb.Capacity('A'))

	for i := 1; i < 43; i++ {
		tb.QueueText("A", core.ColorWhite, mgl32.Vec3{float32(i), 0, 0}, mgl32.Ident3(), 1)
	}
	assert.Equal(t, 43*core.VerticesPerQuad, tb.Pending('A'))
	assert.Equal(t, 512, tb.Capacity('A'))

	var f core.Frame
	tb.Flush(&f)
	v := f.Batches(core.SpaceWorld)[0].Vertices
	require.Len(t, v, 258)
	assert.InDelta(t, -0.25, v[0].Pos[0], 1e-6, "quads queued before growth survive it")
	assert.InDelta(t, 42-0.25, v[252].Pos[0], 1e-6)
}

func TestLayout2DAnchors(t *testing.T) {
	atlas, _, _ := newAtlas(t)

	width := atlas.MeasureText("AB", 24)
	assert.Equal(t, float32(24), width)

	left := atlas.Layout2D("AB", 0, 0, 24, core.AnchorTopLeft)
	require.Len(t, left, 2)
	assert.Equal(t, float32(0), left[0].Left)
	assert.Equal(t, float32(12), left[1].Left)
	assert.Equal(t, float32(6), left[0].Top)
	assert.Equal(t, float32(30), left[0].Bottom)

	middle := atlas.Layout2D("AB", 0, 0, 24, core.AnchorTopMiddle)
	assert.Equal(t, -width/2, middle[0].Left)

	right := atlas.Layout2D("AB", 100, 50, 24, core.AnchorBottomRight)
	assert.Equal(t, 100-width, right[0].Left)
	assert.Equal(t, float32(100), right[1].Right)
	assert.Equal(t, float32(50), right[0].Bottom)
	assert.Equal(t, float32(26), right[0].Top)

	half := atlas.Layout2D("AB", 0, 0, 12, core.AnchorBottomMiddle)
	assert.Equal(t, float32(-6), half[0].Left)
	assert.Equal(t, float32(0), half[0].Right)
}

func TestLayout2DSkipsMissingGlyphs(t *testing.T) {
	atlas, _, fonts := newAtlas(t)
	fonts.Missing['X'] = true

	placed := atlas.Layout2D("AXB", 0, 0, 24, core.AnchorTopLeft)
	require.Len(t, placed, 2)
	assert.Equal(t, 'B', placed[1].Rune)
	assert.Equal(t, float32(12), placed[1].Left)

	g := core.NewGeometry()
	core.DrawText2D(g, atlas, "A B", 0, 0, 24, core.AnchorTopLeft)
	require.Len(t, g.Batches, 2)
	assert.Equal(t, [3]float32{24, 30, 0}, g.Batches[1].Vertices[0].Pos)
}
