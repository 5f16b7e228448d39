package core

import (
	"math"
	"time"

	"github.com/go-gl/mathgl/mgl32"
)

const (
	MinRange     = 25
	MaxRange     = 500
	DefaultRange = 100

	// Held-key movement per tick is range/moveDivisor.
	moveDivisor = 250
	// The eye orbits range/orbitDivisor behind the focus position.
	orbitDivisor = 25
	nearDivisor  = 100

	wheelNotch = 120
	wheelStep  = 30

	// Dragging dragReference pixels turns the camera by a full pi radians,
	// whatever the viewport size.
	dragReference = 480
)

// CameraPose is the orbit camera state of one viewport.
type CameraPose struct {
	Position mgl32.Vec3
	Yaw      float32
	Pitch    float32
	Roll     float32 // not driven by input
	Range    float32
}

func (p CameraPose) Near() float32 {
	return p.Range / nearDivisor
}

type MoveFlags uint8

const (
	MoveForward MoveFlags = 1 << iota
	MoveBack
	MoveLeft
	MoveRight
	MoveUp
	MoveDown
)

type KeyBindings struct {
	Forward, Back, Left, Right, Up, Down Key
	Reset                                Key
}

func DefaultKeyBindings() KeyBindings {
	return KeyBindings{
		Forward: KeyW,
		Back:    KeyS,
		Left:    KeyA,
		Right:   KeyD,
		Up:      KeyE,
		Down:    KeyQ,
		Reset:   KeyR,
	}
}

func (b KeyBindings) flag(k Key) MoveFlags {
	switch k {
	case b.Forward:
		return MoveForward
	case b.Back:
		return MoveBack
	case b.Left:
		return MoveLeft
	case b.Right:
		return MoveRight
	case b.Up:
		return MoveUp
	case b.Down:
		return MoveDown
	}
	return 0
}

// TimingStat tracks the last, fastest and slowest duration of one render pass.
type TimingStat struct {
	Last    time.Duration
	Min     time.Duration
	Max     time.Duration
	Samples int
}

func (s *TimingStat) Record(d time.Duration) {
	s.Last = d
	if s.Samples == 0 || d < s.Min {
		s.Min = d
	}
	if d > s.Max {
		s.Max = d
	}
	s.Samples++
}

func (s *TimingStat) Reset() {
	*s = TimingStat{}
}

type FrameStats struct {
	Objects TimingStat
	HUD     TimingStat
}

func (s *FrameStats) Reset() {
	s.Objects.Reset()
	s.HUD.Reset()
}

// ViewportController owns the camera of one viewport. It is fed raw input
// events and sampled by a fixed-rate Tick; it is not safe for concurrent use.
type ViewportController struct {
	Pose        CameraPose
	Bindings    KeyBindings
	Stats       FrameStats
	FieldOfView float32 // radians
	Far         float32

	width, height int

	held     MoveFlags
	dragging bool
	pointer  bool
	lastX    float64
	lastY    float64
	dirty    bool
}

func NewViewportController(width, height int) *ViewportController {
	return &ViewportController{
		Pose:        CameraPose{Range: DefaultRange},
		Bindings:    DefaultKeyBindings(),
		FieldOfView: math.Pi / 3,
		Far:         1500,
		width:       width,
		height:      height,
	}
}

func (c *ViewportController) Resize(width, height int) {
	c.width, c.height = width, height
	c.dirty = true
}

func (c *ViewportController) Size() (int, int) {
	return c.width, c.height
}

func (c *ViewportController) Aspect() float32 {
	if c.width <= 0 || c.height <= 0 {
		return 1
	}
	return float32(c.width) / float32(c.height)
}

// Reset returns the camera to the origin and clears the frame statistics.
func (c *ViewportController) Reset() {
	c.Pose.Position = mgl32.Vec3{}
	c.Pose.Yaw, c.Pose.Pitch, c.Pose.Roll = 0, 0, 0
	c.Stats.Reset()
	c.dirty = true
}

// HandleKeyDown reports whether the key is one of the camera bindings.
func (c *ViewportController) HandleKeyDown(k Key) bool {
	c.dirty = true
	if k == c.Bindings.Reset {
		c.Reset()
		return true
	}
	f := c.Bindings.flag(k)
	c.held |= f
	return f != 0
}

func (c *ViewportController) HandleKeyUp(k Key) bool {
	f := c.Bindings.flag(k)
	c.held &^= f
	return f != 0
}

func (c *ViewportController) Held() MoveFlags {
	return c.held
}

func (c *ViewportController) HandleMouseDown(b MouseButton) {
	if b == MouseButtonLeft {
		c.dragging = true
	}
	c.dirty = true
}

func (c *ViewportController) HandleMouseUp(b MouseButton) {
	if b == MouseButtonLeft {
		c.dragging = false
	}
	c.dirty = true
}

func (c *ViewportController) Dragging() bool {
	return c.dragging
}

func (c *ViewportController) HandleMouseMove(x, y float64) {
	if c.dragging && c.pointer && c.width > 0 && c.height > 0 {
		dx := float32(x - c.lastX)
		dy := float32(y - c.lastY)
		c.Pose.Yaw += dx / 180 * math.Pi / (float32(c.width) / dragReference)
		c.Pose.Pitch += dy / 180 * math.Pi / (float32(c.height) / dragReference)
		c.Pose.Yaw = wrapAngle(c.Pose.Yaw)
		c.Pose.Pitch = mgl32.Clamp(c.Pose.Pitch, -math.Pi/2, math.Pi/2)
		c.dirty = true
	}
	c.lastX, c.lastY = x, y
	c.pointer = true
}

// HandleWheel takes a wheel delta in 1/120 notch units.
func (c *ViewportController) HandleWheel(delta float32) {
	c.Pose.Range -= delta / wheelNotch * wheelStep
	c.Pose.Range = mgl32.Clamp(c.Pose.Range, MinRange, MaxRange)
	c.dirty = true
}

// Tick applies held-key movement and reports whether the viewport needs a
// redraw. Movement is relative to the camera orientation.
func (c *ViewportController) Tick() bool {
	var h, v, d float32
	if c.held&MoveForward != 0 {
		d++
	}
	if c.held&MoveBack != 0 {
		d--
	}
	if c.held&MoveLeft != 0 {
		h++
	}
	if c.held&MoveRight != 0 {
		h--
	}
	if c.held&MoveUp != 0 {
		v--
	}
	if c.held&MoveDown != 0 {
		v++
	}

	moved := h != 0 || v != 0 || d != 0
	if moved {
		delta := mgl32.Vec3{h, v, d}.Mul(c.Pose.Range / moveDivisor)
		c.Pose.Position = c.Pose.Position.Sub(c.toWorld(delta))
	}

	redraw := moved || c.dirty
	c.dirty = false
	return redraw
}

// rotation maps world directions into camera space.
func (c *ViewportController) rotation() mgl32.Mat4 {
	return mgl32.HomogRotate3DX(c.Pose.Pitch).
		Mul4(mgl32.HomogRotate3DY(c.Pose.Yaw)).
		Mul4(mgl32.HomogRotate3DZ(c.Pose.Roll))
}

func (c *ViewportController) toWorld(v mgl32.Vec3) mgl32.Vec3 {
	return c.rotation().Transpose().Mul4x1(v.Vec4(0)).Vec3()
}

// Forward is the world-space view direction.
func (c *ViewportController) Forward() mgl32.Vec3 {
	return c.toWorld(mgl32.Vec3{0, 0, -1})
}

// Eye is the world-space camera position, behind the focus point.
func (c *ViewportController) Eye() mgl32.Vec3 {
	return c.Pose.Position.Sub(c.Forward().Mul(c.Pose.Range / orbitDivisor))
}

func (c *ViewportController) View() mgl32.Mat4 {
	eye := c.Eye()
	return c.rotation().Mul4(mgl32.Translate3D(-eye.X(), -eye.Y(), -eye.Z()))
}

// Projection uses a [0, 1] clip depth range.
func (c *ViewportController) Projection() mgl32.Mat4 {
	return clipDepthZeroToOne.Mul4(mgl32.Perspective(c.FieldOfView, c.Aspect(), c.Pose.Near(), c.Far))
}

func (c *ViewportController) ViewProjection() mgl32.Mat4 {
	return c.Projection().Mul4(c.View())
}

// Overlay maps pixel coordinates (origin top-left) to clip space.
func (c *ViewportController) Overlay() mgl32.Mat4 {
	w, h := float32(c.width), float32(c.height)
	if w <= 0 || h <= 0 {
		w, h = 1, 1
	}
	return clipDepthZeroToOne.Mul4(mgl32.Ortho(0, w, h, 0, -1, 10))
}

var clipDepthZeroToOne = mgl32.Mat4{
	1, 0, 0, 0,
	0, 1, 0, 0,
	0, 0, 0.5, 0,
	0, 0, 0.5, 1,
}

func wrapAngle(a float32) float32 {
	for a > math.Pi {
		a -= 2 * math.Pi
	}
	for a < -math.Pi {
		a += 2 * math.Pi
	}
	return a
}
