package app

import (
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/gekko3d/levelview"
	"github.com/gekko3d/levelview/viewer/rt/core"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

var ErrDisposed = errors.New("viewport disposed")

// SceneDrawer is the scene-specific part of a viewport. RenderObjects runs
// with the world transform active, RenderHUD in overlay pixel space.
type SceneDrawer interface {
	RenderObjects(v *Viewport)
	RenderHUD(v *Viewport)
}

// KeyHandler is implemented by drawers with their own key bindings. It
// reports whether the key was consumed.
type KeyHandler interface {
	HandleKey(k core.Key) bool
}

// Disposer is implemented by drawers that hold resources of their own.
type Disposer interface {
	Dispose()
}

// Viewport is the base of every 3D scene view: it owns the camera, the
// draw cache, the glyph atlas and text batcher, and builds one Frame per
// redraw. It is used from the render thread only.
type Viewport struct {
	ID     uuid.UUID
	Camera *core.ViewportController
	Clear  core.Color

	logger levelview.Logger
	device core.Device
	cache  *core.DrawCache
	atlas  *core.GlyphAtlas
	text   *core.TextBatcher
	drawer SceneDrawer

	frame    core.Frame
	live     []*core.Geometry
	liveUsed int

	redraw   bool
	disposed bool
}

func NewViewport(device core.Device, fonts core.FontService, width, height int, logger levelview.Logger) *Viewport {
	logger = levelview.OrNop(logger)
	atlas := core.NewGlyphAtlas(fonts, device, logger)
	return &Viewport{
		ID:     uuid.New(),
		Camera: core.NewViewportController(width, height),
		Clear:  core.Color(levelview.DefaultConfig().ClearColor),
		logger: logger,
		device: device,
		cache:  core.NewDrawCache(device, logger),
		atlas:  atlas,
		text:   core.NewTextBatcher(atlas),
		redraw: true,
	}
}

func (v *Viewport) SetDrawer(d SceneDrawer) {
	v.drawer = d
	v.redraw = true
}

// ApplyConfig takes the view settings of cfg. Font settings only apply to
// new viewports.
func (v *Viewport) ApplyConfig(cfg levelview.Config) {
	v.Clear = core.Color(cfg.ClearColor)
	v.Camera.FieldOfView = cfg.FieldOfView * math.Pi / 180
	v.Camera.Far = cfg.FarClip
	v.redraw = true
}

func (v *Viewport) Logger() levelview.Logger { return v.logger }
func (v *Viewport) Cache() *core.DrawCache   { return v.cache }
func (v *Viewport) Atlas() *core.GlyphAtlas  { return v.atlas }
func (v *Viewport) Text() *core.TextBatcher  { return v.text }
func (v *Viewport) Frame() *core.Frame       { return &v.frame }
func (v *Viewport) Disposed() bool           { return v.disposed }

// Invalidate requests a redraw on the next tick.
func (v *Viewport) Invalidate() {
	v.redraw = true
}

func (v *Viewport) NeedsRedraw() bool {
	return v.redraw
}

func (v *Viewport) Resize(width, height int) {
	v.Camera.Resize(width, height)
	v.redraw = true
}

// Tick advances held-key movement. It reports whether a redraw is due.
func (v *Viewport) Tick() bool {
	if v.Camera.Tick() {
		v.redraw = true
	}
	return v.redraw && !v.disposed
}

func (v *Viewport) HandleKeyDown(k core.Key) bool {
	used := v.Camera.HandleKeyDown(k)
	if h, ok := v.drawer.(KeyHandler); ok && h.HandleKey(k) {
		used = true
	}
	v.redraw = true
	return used
}

func (v *Viewport) HandleKeyUp(k core.Key) bool {
	return v.Camera.HandleKeyUp(k)
}

func (v *Viewport) HandleMouseDown(b core.MouseButton) {
	v.Camera.HandleMouseDown(b)
	v.redraw = true
}

func (v *Viewport) HandleMouseUp(b core.MouseButton) {
	v.Camera.HandleMouseUp(b)
	v.redraw = true
}

func (v *Viewport) HandleMouseMove(x, y float64) {
	v.Camera.HandleMouseMove(x, y)
	if v.Camera.Dragging() {
		v.redraw = true
	}
}

func (v *Viewport) HandleWheel(delta float32) {
	v.Camera.HandleWheel(delta)
	v.redraw = true
}

// Live returns an empty geometry for this frame only. Its vertices are
// referenced by the frame until submission.
func (v *Viewport) Live() *core.Geometry {
	if v.liveUsed == len(v.live) {
		v.live = append(v.live, core.NewGeometry())
	}
	g := v.live[v.liveUsed]
	v.liveUsed++
	g.Reset()
	return g
}

// Draw adds live world geometry to the frame.
func (v *Viewport) Draw(g *core.Geometry) {
	v.frame.Draw(core.SpaceWorld, g)
}

func (v *Viewport) DrawOverlay(g *core.Geometry) {
	v.frame.Draw(core.SpaceScreen, g)
}

// Replay adds a cached bundle to the frame.
func (v *Viewport) Replay(h core.BundleHandle) {
	v.frame.Replay(h)
}

// DrawCached replays the cache slot key, building it first if needed. A
// failed build is logged and drawn next frame instead.
func (v *Viewport) DrawCached(key string, build func(g *core.Geometry)) {
	h, err := v.cache.GetOrBuild(key, build)
	if err != nil {
		v.logger.Warnf("cache slot %s not drawn: %v", key, err)
		return
	}
	v.frame.Replay(h)
}

// DrawText2D draws overlay text in pixels from the top-left corner.
func (v *Viewport) DrawText2D(s string, x, y, size float32, anchor core.Anchor, col core.Color) {
	g := v.Live()
	g.SetDepthTest(false)
	g.SetColor(col)
	core.DrawText2D(g, v.atlas, s, x, y, size, anchor)
	v.DrawOverlay(g)
}

// QueueText batches world-space text until the end of RenderObjects.
func (v *Viewport) QueueText(s string, col core.Color, offset mgl32.Vec3, basis mgl32.Mat3, scale float32) {
	v.text.QueueText(s, col, offset, basis, scale)
}

// Billboard is the text basis that faces the camera.
func (v *Viewport) Billboard() mgl32.Mat3 {
	return v.Camera.View().Mat3().Transpose()
}

// RenderFrame records and submits one frame: focus axes, scene objects
// and batched text, then the HUD.
func (v *Viewport) RenderFrame() error {
	if v.disposed {
		return ErrDisposed
	}
	c := v.Camera
	w, h := c.Size()
	f := &v.frame
	f.Reset(w, h)
	f.Clear = v.Clear
	f.ViewProj = c.ViewProjection()
	f.Overlay = c.Overlay()
	f.Eye = c.Eye()
	v.liveUsed = 0

	// Focus indicator, mirrored in X like the scene data.
	axes := v.Live()
	p := c.Pose.Position
	axes.Translate(p.X(), p.Y(), p.Z())
	axes.Scale(-1, 1, 1)
	axes.Axes(1, 0.5)
	v.Draw(axes)

	start := time.Now()
	if v.drawer != nil {
		v.drawer.RenderObjects(v)
	}
	v.text.Flush(f)
	c.Stats.Objects.Record(time.Since(start))

	start = time.Now()
	if v.drawer != nil {
		v.drawer.RenderHUD(v)
	}
	c.Stats.HUD.Record(time.Since(start))

	v.redraw = false
	if err := v.device.Submit(f); err != nil {
		return fmt.Errorf("failed to submit frame: %w", err)
	}
	return nil
}

// Dispose releases every cache slot and glyph texture. Safe to call more
// than once.
func (v *Viewport) Dispose() {
	if v.disposed {
		return
	}
	v.disposed = true
	if d, ok := v.drawer.(Disposer); ok {
		d.Dispose()
	}
	v.cache.DisposeAll()
	v.atlas.Dispose()
	v.logger.Debugf("viewport %s disposed", v.ID)
}
