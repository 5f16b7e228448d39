package core

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Vertex matches the WGSL VertexInput of the scene shader.
type Vertex struct {
	Pos    [3]float32
	Normal [3]float32 // zero for unlit geometry
	UV     [2]float32
	Color  [4]float32
}

type Color [4]float32

func RGB(r, g, b uint8) Color {
	return Color{float32(r) / 255, float32(g) / 255, float32(b) / 255, 1}
}

func (c Color) WithAlpha(a uint8) Color {
	c[3] = float32(a) / 255
	return c
}

type Topology uint8

const (
	TopologyTriangles Topology = iota
	TopologyLines
)

// DrawState is everything that splits one draw call from the next.
type DrawState struct {
	Topology  Topology
	DepthTest bool
	Texture   TextureHandle // NoTexture for plain colored geometry
	LineWidth float32
}

type Batch struct {
	State    DrawState
	Vertices []Vertex
}

// Geometry records primitives into GPU-ready batches. Positions are baked
// through a matrix stack at record time, so a recorded Geometry is
// independent of any later transform.
type Geometry struct {
	Batches []Batch

	model  mgl32.Mat4
	stack  []mgl32.Mat4
	color  Color
	normal mgl32.Vec3
	state  DrawState
}

func NewGeometry() *Geometry {
	g := &Geometry{}
	g.Reset()
	return g
}

func (g *Geometry) Reset() {
	g.Batches = g.Batches[:0]
	g.model = mgl32.Ident4()
	g.stack = g.stack[:0]
	g.color = Color{1, 1, 1, 1}
	g.normal = mgl32.Vec3{}
	g.state = DrawState{DepthTest: true, LineWidth: 1}
}

func (g *Geometry) Push() {
	g.stack = append(g.stack, g.model)
}

func (g *Geometry) Pop() {
	if len(g.stack) == 0 {
		return
	}
	g.model = g.stack[len(g.stack)-1]
	g.stack = g.stack[:len(g.stack)-1]
}

func (g *Geometry) Translate(x, y, z float32) {
	g.model = g.model.Mul4(mgl32.Translate3D(x, y, z))
}

// Rotate turns by deg degrees around axis.
func (g *Geometry) Rotate(deg float32, axis mgl32.Vec3) {
	g.model = g.model.Mul4(mgl32.HomogRotate3D(mgl32.DegToRad(deg), axis.Normalize()))
}

func (g *Geometry) Scale(x, y, z float32) {
	g.model = g.model.Mul4(mgl32.Scale3D(x, y, z))
}

func (g *Geometry) SetColor(c Color)        { g.color = c }
func (g *Geometry) SetNormal(n mgl32.Vec3)  { g.normal = n }
func (g *Geometry) SetDepthTest(on bool)    { g.state.DepthTest = on }
func (g *Geometry) SetLineWidth(w float32)  { g.state.LineWidth = w }
func (g *Geometry) Model() mgl32.Mat4       { return g.model }
func (g *Geometry) CurrentState() DrawState { return g.state }
func (g *Geometry) CurrentColor() Color     { return g.color }

// Triangles records one triangle per three points.
func (g *Geometry) Triangles(pts ...mgl32.Vec3) {
	b := g.batch(TopologyTriangles, NoTexture)
	for i := 0; i+2 < len(pts); i += 3 {
		b.Vertices = append(b.Vertices, g.vertex(pts[i], 0, 0), g.vertex(pts[i+1], 0, 0), g.vertex(pts[i+2], 0, 0))
	}
}

// Quads records two triangles per four points given in winding order.
func (g *Geometry) Quads(pts ...mgl32.Vec3) {
	b := g.batch(TopologyTriangles, NoTexture)
	for i := 0; i+3 < len(pts); i += 4 {
		a, bb, c, d := g.vertex(pts[i], 0, 0), g.vertex(pts[i+1], 0, 0), g.vertex(pts[i+2], 0, 0), g.vertex(pts[i+3], 0, 0)
		b.Vertices = append(b.Vertices, a, bb, c, a, c, d)
	}
}

// Lines records one segment per two points.
func (g *Geometry) Lines(pts ...mgl32.Vec3) {
	b := g.batch(TopologyLines, NoTexture)
	for i := 0; i+1 < len(pts); i += 2 {
		b.Vertices = append(b.Vertices, g.vertex(pts[i], 0, 0), g.vertex(pts[i+1], 0, 0))
	}
}

func (g *Geometry) LineStrip(pts ...mgl32.Vec3) {
	b := g.batch(TopologyLines, NoTexture)
	for i := 0; i+1 < len(pts); i++ {
		b.Vertices = append(b.Vertices, g.vertex(pts[i], 0, 0), g.vertex(pts[i+1], 0, 0))
	}
}

func (g *Geometry) LineLoop(pts ...mgl32.Vec3) {
	if len(pts) < 2 {
		return
	}
	g.LineStrip(pts...)
	g.Lines(pts[len(pts)-1], pts[0])
}

// TexturedQuad records a quad sampling tex; uv follows the corner order.
func (g *Geometry) TexturedQuad(tex TextureHandle, corners [4]mgl32.Vec3, uv [4]mgl32.Vec2) {
	b := g.batch(TopologyTriangles, tex)
	v := [4]Vertex{}
	for i := range corners {
		v[i] = g.vertex(corners[i], uv[i].X(), uv[i].Y())
	}
	b.Vertices = append(b.Vertices, v[0], v[1], v[2], v[0], v[2], v[3])
}

// Axes records a red/green/blue axis indicator at the current origin. Each
// axis runs from +0.5*size to -back*0.5*size.
func (g *Geometry) Axes(size, back float32) {
	s := IndicatorSize * size
	saved := g.color
	g.SetColor(Color{1, 0, 0, 1})
	g.Lines(mgl32.Vec3{s, 0, 0}, mgl32.Vec3{-s * back, 0, 0})
	g.SetColor(Color{0, 1, 0, 1})
	g.Lines(mgl32.Vec3{0, s, 0}, mgl32.Vec3{0, -s * back, 0})
	g.SetColor(Color{0, 0, 1, 1})
	g.Lines(mgl32.Vec3{0, 0, s}, mgl32.Vec3{0, 0, -s * back})
	g.color = saved
}

// BoxOutline records the twelve edges of an axis-aligned box as two open
// strips plus the remaining corner segments.
func (g *Geometry) BoxOutline(lo, hi mgl32.Vec3) {
	x1, y1, z1 := lo.Elem()
	x2, y2, z2 := hi.Elem()
	g.LineStrip(
		mgl32.Vec3{x1, y1, z1}, mgl32.Vec3{x2, y1, z1}, mgl32.Vec3{x2, y2, z1}, mgl32.Vec3{x1, y2, z1},
		mgl32.Vec3{x1, y1, z1}, mgl32.Vec3{x1, y1, z2}, mgl32.Vec3{x2, y1, z2}, mgl32.Vec3{x2, y1, z1},
	)
	g.LineStrip(
		mgl32.Vec3{x1, y1, z2}, mgl32.Vec3{x1, y2, z2}, mgl32.Vec3{x2, y2, z2}, mgl32.Vec3{x2, y1, z2},
	)
	g.Lines(
		mgl32.Vec3{x1, y2, z2}, mgl32.Vec3{x1, y2, z1},
		mgl32.Vec3{x2, y2, z2}, mgl32.Vec3{x2, y2, z1},
	)
}

func (g *Geometry) VertexCount() int {
	n := 0
	for _, b := range g.Batches {
		n += len(b.Vertices)
	}
	return n
}

func (g *Geometry) Empty() bool {
	return g.VertexCount() == 0
}

func (g *Geometry) vertex(p mgl32.Vec3, u, v float32) Vertex {
	wp := g.model.Mul4x1(p.Vec4(1)).Vec3()
	var n [3]float32
	if g.normal.Len() > 0 {
		n = g.model.Mul4x1(g.normal.Vec4(0)).Vec3().Normalize()
	}
	return Vertex{Pos: wp, Normal: n, UV: [2]float32{u, v}, Color: g.color}
}

// batch returns the open batch for the given topology, starting a new one
// when the draw state changed.
func (g *Geometry) batch(topo Topology, tex TextureHandle) *Batch {
	st := g.state
	st.Topology = topo
	st.Texture = tex
	if topo == TopologyTriangles {
		st.LineWidth = 0
	}
	if n := len(g.Batches); n > 0 && g.Batches[n-1].State == st {
		return &g.Batches[n-1]
	}
	g.Batches = append(g.Batches, Batch{State: st})
	return &g.Batches[len(g.Batches)-1]
}

// FlatNormal is the unit normal of the triangle a, b, c (counter-clockwise).
func FlatNormal(a, b, c mgl32.Vec3) mgl32.Vec3 {
	n := b.Sub(a).Cross(c.Sub(a))
	if n.Len() == 0 {
		return n
	}
	return n.Normalize()
}
