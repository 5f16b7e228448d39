package core

import (
	"unicode/utf8"

	"github.com/go-gl/mathgl/mgl32"
)

const (
	// Horizontal distance between glyph centers of world-space text.
	GlyphSpacing = float32(2.0 / 3.0)
	// VerticesPerQuad is the vertex cost of one glyph quad (two triangles).
	VerticesPerQuad = 6

	initialGlyphVertices = 256
)

var (
	quadUV = [4]mgl32.Vec2{{0, 1}, {1, 1}, {1, 0}, {0, 0}}
)

// billboardLayout walks s and reports, for every printable character, its
// horizontal center and half width plus its height in world units. The
// string is centered on x = 0.
func (a *GlyphAtlas) billboardLayout(s string, emit func(r rune, e *GlyphEntry, x, halfW, h float32)) {
	size := a.FontSize()
	x := float32(utf8.RuneCountInString(s)+1) * (-GlyphSpacing / 2)
	for _, r := range s {
		x += GlyphSpacing
		if r == ' ' {
			continue
		}
		e, err := a.EnsureGlyph(r)
		if err != nil || e.Texture == NoTexture {
			continue
		}
		emit(r, e, x, e.Width/(size*2), e.Height/size)
	}
}

// DrawTextImmediate records s into g at the current transform and color,
// one textured quad (and draw call) per character.
func DrawTextImmediate(g *Geometry, a *GlyphAtlas, s string) {
	a.billboardLayout(s, func(_ rune, e *GlyphEntry, x, w, h float32) {
		g.TexturedQuad(e.Texture, [4]mgl32.Vec3{
			{x - w, 0, 0},
			{x + w, 0, 0},
			{x + w, h, 0},
			{x - w, h, 0},
		}, quadUV)
	})
}

type glyphBuffer struct {
	texture  TextureHandle
	vertices []Vertex
	offset   int
}

// TextBatcher accumulates world-space text for a frame, one growable vertex
// buffer per character, and emits a single draw per character on Flush.
type TextBatcher struct {
	atlas   *GlyphAtlas
	buffers map[rune]*glyphBuffer
	order   []rune
}

func NewTextBatcher(atlas *GlyphAtlas) *TextBatcher {
	return &TextBatcher{
		atlas:   atlas,
		buffers: make(map[rune]*glyphBuffer),
	}
}

// QueueText lays s out like DrawTextImmediate, then scales by scale,
// rotates by basis and moves by offset.
func (t *TextBatcher) QueueText(s string, col Color, offset mgl32.Vec3, basis mgl32.Mat3, scale float32) {
	t.atlas.billboardLayout(s, func(r rune, e *GlyphEntry, x, w, h float32) {
		buf := t.buffer(r, e.Texture)
		corners := [4]mgl32.Vec3{
			{x - w, 0, 0},
			{x + w, 0, 0},
			{x + w, h, 0},
			{x - w, h, 0},
		}
		var v [4]Vertex
		for i, c := range corners {
			v[i] = Vertex{
				Pos:   basis.Mul3x1(c.Mul(scale)).Add(offset),
				UV:    quadUV[i],
				Color: col,
			}
		}
		buf.vertices[buf.offset+0] = v[0]
		buf.vertices[buf.offset+1] = v[1]
		buf.vertices[buf.offset+2] = v[2]
		buf.vertices[buf.offset+3] = v[0]
		buf.vertices[buf.offset+4] = v[2]
		buf.vertices[buf.offset+5] = v[3]
		buf.offset += VerticesPerQuad
	})
}

// buffer returns the character's buffer with room for one more quad,
// doubling its length when full.
func (t *TextBatcher) buffer(r rune, tex TextureHandle) *glyphBuffer {
	buf, ok := t.buffers[r]
	if !ok {
		buf = &glyphBuffer{texture: tex, vertices: make([]Vertex, initialGlyphVertices)}
		t.buffers[r] = buf
		t.order = append(t.order, r)
	}
	for buf.offset+VerticesPerQuad > len(buf.vertices) {
		grown := make([]Vertex, len(buf.vertices)*2)
		copy(grown, buf.vertices[:buf.offset])
		buf.vertices = grown
	}
	return buf
}

// Flush draws every character with pending vertices and resets its count.
// It must run after the frame's last QueueText and before submission.
func (t *TextBatcher) Flush(f *Frame) {
	for _, r := range t.order {
		buf := t.buffers[r]
		if buf.offset == 0 {
			continue
		}
		f.DrawBatch(SpaceWorld, Batch{
			State:    DrawState{Topology: TopologyTriangles, DepthTest: true, Texture: buf.texture},
			Vertices: buf.vertices[:buf.offset],
		})
		buf.offset = 0
	}
}

func (t *TextBatcher) Pending(r rune) int {
	if buf, ok := t.buffers[r]; ok {
		return buf.offset
	}
	return 0
}

func (t *TextBatcher) Capacity(r rune) int {
	if buf, ok := t.buffers[r]; ok {
		return len(buf.vertices)
	}
	return 0
}

// Anchor is the point of a 2D string that sits at the given position.
type Anchor uint8

const (
	AnchorTopLeft Anchor = iota
	AnchorTopMiddle
	AnchorTopRight
	AnchorBottomLeft
	AnchorBottomMiddle
	AnchorBottomRight
)

func (an Anchor) top() bool {
	return an <= AnchorTopRight
}

func (an Anchor) middle() bool {
	return an == AnchorTopMiddle || an == AnchorBottomMiddle
}

func (an Anchor) right() bool {
	return an == AnchorTopRight || an == AnchorBottomRight
}

// PlacedGlyph is a laid-out 2D character in pixels; Top < Bottom.
type PlacedGlyph struct {
	Rune   rune
	Entry  *GlyphEntry
	Left   float32
	Right  float32
	Top    float32
	Bottom float32
}

// MeasureText returns the pixel width of s at the given text size.
func (a *GlyphAtlas) MeasureText(s string, size float32) float32 {
	fac := size / a.FontSize()
	var w float32
	for _, r := range s {
		e, err := a.EnsureGlyph(r)
		if err != nil {
			continue
		}
		w += (e.Metrics.BearingX + e.Metrics.AdvanceX) * fac
	}
	return w
}

// Layout2D places s for the overlay. Middle and right anchors measure the
// whole string first and shift the start left by half or all of it.
func (a *GlyphAtlas) Layout2D(s string, x, y, size float32, anchor Anchor) []PlacedGlyph {
	fontSize := a.FontSize()
	fac := size / fontSize
	switch {
	case anchor.middle():
		x -= a.MeasureText(s, size) / 2
	case anchor.right():
		x -= a.MeasureText(s, size)
	}

	var out []PlacedGlyph
	for _, r := range s {
		e, err := a.EnsureGlyph(r)
		if err != nil {
			continue
		}
		m := e.Metrics
		x += m.BearingX * fac
		if r != ' ' && e.Texture != NoTexture {
			cw, ch := e.Width*fac, e.Height*fac
			var top, bottom float32
			if anchor.top() {
				top = y + (fontSize-m.BearingY)*fac
				bottom = top + ch
			} else {
				bottom = y + (m.Height-m.BearingY)*fac
				top = bottom - ch
			}
			out = append(out, PlacedGlyph{Rune: r, Entry: e, Left: x, Right: x + cw, Top: top, Bottom: bottom})
		}
		x += m.AdvanceX * fac
	}
	return out
}

// DrawText2D records overlay text into g in pixel coordinates.
func DrawText2D(g *Geometry, a *GlyphAtlas, s string, x, y, size float32, anchor Anchor) {
	for _, p := range a.Layout2D(s, x, y, size, anchor) {
		g.TexturedQuad(p.Entry.Texture, [4]mgl32.Vec3{
			{p.Left, p.Bottom, 0},
			{p.Right, p.Bottom, 0},
			{p.Right, p.Top, 0},
			{p.Left, p.Top, 0},
		}, quadUV)
	}
}
