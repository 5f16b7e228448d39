package app_test

import (
	"testing"

	"github.com/gekko3d/levelview"
	"github.com/gekko3d/levelview/viewer/rt/app"
	"github.com/gekko3d/levelview/viewer/rt/core"
	"github.com/gekko3d/levelview/viewer/rt/core/coretest"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingDrawer struct {
	objects, hud int
	keys         []core.Key
	disposed     int
	order        []string
}

func (d *recordingDrawer) RenderObjects(v *app.Viewport) {
	d.objects++
	d.order = append(d.order, "objects")
	v.DrawCached("cube", func(g *core.Geometry) {
		g.BoxOutline(mgl32.Vec3{-1, -1, -1}, mgl32.Vec3{1, 1, 1})
	})
	v.QueueText("AB", core.ColorWhite, mgl32.Vec3{}, mgl32.Ident3(), 1)
}

func (d *recordingDrawer) RenderHUD(v *app.Viewport) {
	d.hud++
	d.order = append(d.order, "hud")
	v.DrawText2D("hud", 0, 0, 12, core.AnchorTopLeft, core.ColorWhite)
}

func (d *recordingDrawer) HandleKey(k core.Key) bool {
	d.keys = append(d.keys, k)
	return k == core.KeyC
}

func (d *recordingDrawer) Dispose() {
	d.disposed++
}

func newViewport(t *testing.T) (*app.Viewport, *coretest.Device) {
	t.Helper()
	dev := coretest.NewDevice()
	return app.NewViewport(dev, coretest.NewFonts(), 640, 480, nil), dev
}

func TestRenderFrameDrawsMirroredFocusAxes(t *testing.T) {
	vp, dev := newViewport(t)
	vp.Camera.Pose.Position = mgl32.Vec3{10, 2, 3}

	require.NoError(t, vp.RenderFrame())
	assert.Equal(t, 1, dev.Submits)

	world := dev.LastFrame.Batches(core.SpaceWorld)
	require.Len(t, world, 1)
	axes := world[0]
	assert.Equal(t, core.TopologyLines, axes.State.Topology)
	require.Len(t, axes.Vertices, 6)

	// The X axis points toward -X around the focus.
	assert.InDelta(t, 9.5, axes.Vertices[0].Pos[0], 1e-5)
	assert.InDelta(t, 10.25, axes.Vertices[1].Pos[0], 1e-5)
	assert.InDelta(t, 2.5, axes.Vertices[2].Pos[1], 1e-5)
	assert.InDelta(t, 3.5, axes.Vertices[4].Pos[2], 1e-5)

	f := dev.LastFrame
	assert.Equal(t, 640, f.Width)
	assert.Equal(t, vp.Camera.ViewProjection(), f.ViewProj)
	assert.Equal(t, vp.Camera.Eye(), f.Eye)
}

func TestRenderFrameOrdersObjectsTextAndHUD(t *testing.T) {
	vp, dev := newViewport(t)
	d := &recordingDrawer{}
	vp.SetDrawer(d)

	require.NoError(t, vp.RenderFrame())
	assert.Equal(t, []string{"objects", "hud"}, d.order)

	cmds := dev.LastFrame.Commands
	require.NotEmpty(t, cmds)
	kinds := make([]string, 0, len(cmds))
	for _, c := range cmds {
		switch {
		case c.Kind == core.CommandBundle:
			kinds = append(kinds, "bundle")
		case c.Space == core.SpaceScreen:
			kinds = append(kinds, "hud")
		case c.Batch.State.Texture != core.NoTexture:
			kinds = append(kinds, "text")
		default:
			kinds = append(kinds, "live")
		}
	}
	assert.Equal(t, []string{"live", "bundle", "text", "text", "hud", "hud", "hud"}, kinds)

	assert.Equal(t, 1, vp.Camera.Stats.Objects.Samples)
	assert.Equal(t, 1, vp.Camera.Stats.HUD.Samples)
	assert.Zero(t, vp.Text().Pending('A'), "flushed before submit")
	assert.False(t, vp.NeedsRedraw())
}

func TestCachedGeometryIsBuiltOnce(t *testing.T) {
	vp, dev := newViewport(t)
	vp.SetDrawer(&recordingDrawer{})

	for range 3 {
		require.NoError(t, vp.RenderFrame())
	}
	assert.Equal(t, 1, vp.Cache().Builds("cube"))
	assert.Equal(t, 1, dev.BundlesCreated)
	assert.Len(t, dev.LastFrame.Bundles(), 1)
}

func TestFailedCacheBuildSkipsSlot(t *testing.T) {
	vp, dev := newViewport(t)
	vp.SetDrawer(&recordingDrawer{})
	dev.FailBundles = true

	require.NoError(t, vp.RenderFrame())
	assert.Empty(t, dev.LastFrame.Bundles())

	dev.FailBundles = false
	require.NoError(t, vp.RenderFrame())
	assert.Len(t, dev.LastFrame.Bundles(), 1)
}

func TestInputRequestsRedraw(t *testing.T) {
	vp, _ := newViewport(t)
	d := &recordingDrawer{}
	vp.SetDrawer(d)
	require.NoError(t, vp.RenderFrame())
	assert.False(t, vp.Tick())

	vp.HandleMouseMove(5, 5)
	assert.False(t, vp.Tick(), "hover alone")

	assert.True(t, vp.HandleKeyDown(core.KeyC), "drawer binding")
	assert.Equal(t, []core.Key{core.KeyC}, d.keys)
	assert.True(t, vp.Tick())
	require.NoError(t, vp.RenderFrame())

	assert.True(t, vp.HandleKeyDown(core.KeyW))
	require.NoError(t, vp.RenderFrame())
	assert.True(t, vp.Tick(), "held key keeps moving")
	vp.HandleKeyUp(core.KeyW)
	require.NoError(t, vp.RenderFrame())
	assert.False(t, vp.Tick())

	vp.HandleWheel(120)
	assert.True(t, vp.NeedsRedraw())
	assert.Equal(t, float32(70), vp.Camera.Pose.Range)
}

func TestApplyConfig(t *testing.T) {
	vp, dev := newViewport(t)
	cfg := levelview.DefaultConfig()
	cfg.FieldOfView = 90
	cfg.FarClip = 800
	cfg.ClearColor = levelview.HexColor{1, 0, 0, 1}

	vp.ApplyConfig(cfg)
	assert.InDelta(t, 1.5708, vp.Camera.FieldOfView, 1e-4)
	assert.Equal(t, float32(800), vp.Camera.Far)

	require.NoError(t, vp.RenderFrame())
	assert.Equal(t, core.Color{1, 0, 0, 1}, dev.LastFrame.Clear)
}

func TestDisposeReleasesEverythingOnce(t *testing.T) {
	vp, dev := newViewport(t)
	d := &recordingDrawer{}
	vp.SetDrawer(d)
	require.NoError(t, vp.RenderFrame())
	require.NotZero(t, dev.TexturesCreated)

	vp.Dispose()
	vp.Dispose()
	assert.Equal(t, 1, d.disposed)
	assert.Empty(t, dev.Bundles)
	assert.Empty(t, dev.Textures)
	assert.True(t, vp.Disposed())
	assert.ErrorIs(t, vp.RenderFrame(), app.ErrDisposed)
	assert.False(t, vp.Tick())
}
