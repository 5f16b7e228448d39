// Package collision draws a level's collision mesh, collision tree nodes,
// instance markers and trigger volumes.
package collision

import (
	"fmt"
	"strconv"
	"time"

	"github.com/gekko3d/levelview"
	"github.com/gekko3d/levelview/viewer/rt/app"
	"github.com/gekko3d/levelview/viewer/rt/core"
	"github.com/gekko3d/levelview/viewer/rt/level"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

const (
	SlotCollision = "collision"
	SlotTriggers  = "triggers"

	ToggleNodesKey    = core.KeyC
	ToggleTriggersKey = core.KeyT

	triggerAlpha     = 128
	linkLineWidth    = 2
	hudTextSize      = 16
	hudLineHeight    = 20
	hudMargin        = 8
	triggerLabelLift = 0.5
)

// InstancesSlot is the cache slot of one section's instance markers.
func InstancesSlot(section int) string {
	return "instances:" + strconv.Itoa(section)
}

// Renderer is the scene drawer of a collision viewport.
type Renderer struct {
	scene   *level.Level
	lookup  level.InstanceLookup
	changes *level.ChangeTracker
	sub     uuid.UUID
	logger  levelview.Logger

	showNodes    bool
	showTriggers bool
}

// New attaches a collision renderer to vp. Marks made on changes after this
// call invalidate the matching cache slots on the next frame.
func New(vp *app.Viewport, scene *level.Level, changes *level.ChangeTracker) *Renderer {
	if changes == nil {
		changes = level.NewChangeTracker()
	}
	r := &Renderer{
		scene:   scene,
		lookup:  scene,
		changes: changes,
		sub:     changes.Subscribe(),
		logger:  vp.Logger(),
	}
	vp.SetDrawer(r)
	return r
}

// SetLookup replaces the resolver used for trigger links.
func (r *Renderer) SetLookup(l level.InstanceLookup) {
	r.lookup = l
}

func (r *Renderer) ShowNodes() bool    { return r.showNodes }
func (r *Renderer) ShowTriggers() bool { return r.showTriggers }

func (r *Renderer) HandleKey(k core.Key) bool {
	switch k {
	case ToggleNodesKey:
		r.showNodes = !r.showNodes
	case ToggleTriggersKey:
		r.showTriggers = !r.showTriggers
	default:
		return false
	}
	return true
}

// Dispose stops listening for changes. The viewport releases the cache.
func (r *Renderer) Dispose() {
	r.changes.Unsubscribe(r.sub)
}

func (r *Renderer) RenderObjects(v *app.Viewport) {
	r.applyChanges(v.Cache())

	if col := r.scene.Collision; col != nil {
		v.DrawCached(SlotCollision, func(g *core.Geometry) { buildCollision(g, col) })
		if r.showNodes {
			v.DrawCached(SlotTriggers, func(g *core.Geometry) { buildNodes(g, col) })
		}
	}

	for id := 0; id <= level.MaxSection; id++ {
		s, ok := r.scene.Section(id)
		if !ok || !s.HasInstances() {
			continue
		}
		v.DrawCached(InstancesSlot(id), func(g *core.Geometry) { buildInstances(g, v.Atlas(), s) })
	}

	if r.showTriggers {
		r.drawTriggers(v)
	}
}

func (r *Renderer) applyChanges(cache *core.DrawCache) {
	cs := r.changes.Drain(r.sub)
	if cs.Empty() {
		return
	}
	if cs.Collision {
		cache.Invalidate(SlotCollision)
		cache.Invalidate(SlotTriggers)
	}
	for _, id := range cs.Instances.Slice() {
		cache.Invalidate(InstancesSlot(id))
	}
	r.logger.Debugf("scene changes applied: collision=%v sections=%v", cs.Collision, cs.Instances.Slice())
}

func mirror(p mgl32.Vec3) mgl32.Vec3 {
	return mgl32.Vec3{-p.X(), p.Y(), p.Z()}
}

func buildCollision(g *core.Geometry, col *level.ColData) {
	for _, tri := range col.Tris {
		a, b, c, ok := col.Triangle(tri)
		if !ok {
			continue
		}
		a, b, c = mirror(a), mirror(b), mirror(c)
		g.SetColor(core.SurfaceColor(tri.Surface))
		g.SetNormal(core.FlatNormal(a, b, c))
		g.Triangles(a, b, c)
	}
}

func buildNodes(g *core.Geometry, col *level.ColData) {
	for _, n := range col.Triggers {
		if n.Leaf() {
			g.SetColor(core.ColorCyan)
		} else {
			g.SetColor(core.ColorRed)
		}
		g.BoxOutline(
			mgl32.Vec3{-n.X1, n.Y1, n.Z1},
			mgl32.Vec3{-n.X2, n.Y2, n.Z2},
		)
	}
}

func buildInstances(g *core.Geometry, atlas *core.GlyphAtlas, s *level.Section) {
	const half = core.IndicatorSize
	for _, inst := range s.Instances {
		g.Push()
		g.Translate(-inst.Pos.X(), inst.Pos.Y(), inst.Pos.Z())
		g.Rotate(-level.Degrees(inst.RotX), mgl32.Vec3{1, 0, 0})
		g.Rotate(-level.Degrees(inst.RotY), mgl32.Vec3{0, 1, 0})
		g.Rotate(-level.Degrees(inst.RotZ), mgl32.Vec3{0, 0, 1})
		g.Axes(0.5, 1)
		g.SetColor(core.SectionColor(s.ID))
		g.BoxOutline(
			mgl32.Vec3{-half, -half + 0.5, -half},
			mgl32.Vec3{half, half + 0.5, half},
		)
		g.SetColor(core.ColorWhite)
		core.DrawTextImmediate(g, atlas, strconv.FormatUint(uint64(inst.ID), 10))
		g.Pop()
	}
}

// drawTriggers records every trigger volume live. Links resolve against
// the current instance positions each frame.
func (r *Renderer) drawTriggers(v *app.Viewport) {
	g := v.Live()
	basis := v.Billboard()
	for id := 0; id <= level.MaxSection; id++ {
		s, ok := r.scene.Section(id)
		if !ok || !s.HasTriggers() {
			continue
		}
		for i := range s.Triggers {
			t := &s.Triggers[i]
			r.drawTrigger(g, t)
			top := mirror(t.Position).Add(mgl32.Vec3{0, t.HalfExtents.Y() + triggerLabelLift, 0})
			v.QueueText(strconv.FormatUint(uint64(t.ID), 10), core.ColorWhite, top, basis, 1)
		}
	}
	v.Draw(g)
}

func (r *Renderer) drawTrigger(g *core.Geometry, t *level.Trigger) {
	c1 := t.Position
	x, y, z := t.HalfExtents.Elem()
	col := core.SectionColor(t.Section).WithAlpha(triggerAlpha)

	g.Push()
	defer g.Pop()
	g.Translate(-c1.X(), c1.Y(), c1.Z())

	corners := [8]mgl32.Vec3{
		{-x, -y, -z}, {x, -y, -z}, {x, y, -z}, {-x, y, -z},
		{-x, -y, z}, {x, -y, z}, {x, y, z}, {-x, y, z},
	}
	faces := [6]struct {
		idx    [4]int
		normal mgl32.Vec3
	}{
		{[4]int{0, 1, 2, 3}, mgl32.Vec3{0, 0, -1}},
		{[4]int{4, 5, 6, 7}, mgl32.Vec3{0, 0, 1}},
		{[4]int{0, 4, 7, 3}, mgl32.Vec3{-1, 0, 0}},
		{[4]int{1, 5, 6, 2}, mgl32.Vec3{1, 0, 0}},
		{[4]int{0, 1, 5, 4}, mgl32.Vec3{0, -1, 0}},
		{[4]int{3, 2, 6, 7}, mgl32.Vec3{0, 1, 0}},
	}

	g.SetDepthTest(true)
	g.SetColor(col)
	for _, f := range faces {
		g.SetNormal(f.normal)
		g.Quads(corners[f.idx[0]], corners[f.idx[1]], corners[f.idx[2]], corners[f.idx[3]])
	}

	g.SetNormal(mgl32.Vec3{})
	g.SetDepthTest(false)
	g.SetLineWidth(linkLineWidth)
	for _, link := range t.Instances {
		inst, ok := r.lookup.Instance(t.Section, link)
		if !ok {
			continue
		}
		g.Lines(
			mgl32.Vec3{},
			mgl32.Vec3{-inst.Pos.X() + c1.X(), inst.Pos.Y() - c1.Y(), inst.Pos.Z() - c1.Z()},
		)
	}
	g.SetLineWidth(1)

	for _, f := range faces {
		g.LineLoop(corners[f.idx[0]], corners[f.idx[1]], corners[f.idx[2]], corners[f.idx[3]])
	}
	g.Axes(t.SmallestExtent()/2, 1)
	g.SetDepthTest(true)
}

func (r *Renderer) RenderHUD(v *app.Viewport) {
	c := v.Camera
	w, h := c.Size()
	p := c.Pose

	left := float32(hudMargin)
	top := float32(hudMargin)
	v.DrawText2D(fmt.Sprintf("Pos: %.2f, %.2f, %.2f", p.Position.X(), p.Position.Y(), p.Position.Z()),
		left, top, hudTextSize, core.AnchorTopLeft, core.ColorWhite)
	v.DrawText2D(fmt.Sprintf("Rot: %.1f, %.1f  Range: %.0f", mgl32.RadToDeg(p.Yaw), mgl32.RadToDeg(p.Pitch), p.Range),
		left, top+hudLineHeight, hudTextSize, core.AnchorTopLeft, core.ColorWhite)

	right := float32(w - hudMargin)
	v.DrawText2D("Objects: "+formatStat(c.Stats.Objects), right, top, hudTextSize, core.AnchorTopRight, core.ColorWhite)
	v.DrawText2D("HUD: "+formatStat(c.Stats.HUD), right, top+hudLineHeight, hudTextSize, core.AnchorTopRight, core.ColorWhite)

	bottom := float32(h - hudMargin)
	v.DrawText2D("WASD/QE move, drag rotate, wheel zoom, R reset",
		left, bottom, hudTextSize, core.AnchorBottomLeft, core.ColorWhite)
	v.DrawText2D(fmt.Sprintf("C: collision nodes [%s]  T: triggers [%s]", onOff(r.showNodes), onOff(r.showTriggers)),
		left, bottom-hudLineHeight, hudTextSize, core.AnchorBottomLeft, core.ColorWhite)
}

func formatStat(s core.TimingStat) string {
	return fmt.Sprintf("%.2f ms (min %.2f, max %.2f)", millis(s.Last), millis(s.Min), millis(s.Max))
}

func millis(d time.Duration) float64 {
	return float64(d.Microseconds()) / 1000
}

func onOff(b bool) string {
	if b {
		return "on"
	}
	return "off"
}
