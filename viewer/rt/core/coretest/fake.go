// Package coretest provides in-memory stand-ins for the GPU device and the
// font service so viewer code can be tested without a window or adapter.
package coretest

import (
	"errors"
	"fmt"
	"image"

	"github.com/gekko3d/levelview/viewer/rt/core"
)

var ErrInjected = errors.New("injected device failure")

// Device records every call and keeps copies of live bundles and textures.
type Device struct {
	Bundles  map[core.BundleHandle]*core.Geometry
	Labels   map[core.BundleHandle]string
	Textures map[core.TextureHandle]image.Rectangle

	BundlesCreated   int
	BundlesReleased  int
	TexturesCreated  int
	TexturesReleased int
	Submits          int
	LastFrame        core.Frame

	// FailBundles makes CreateBundle return ErrInjected.
	FailBundles bool

	next uint64
}

func NewDevice() *Device {
	return &Device{
		Bundles:  make(map[core.BundleHandle]*core.Geometry),
		Labels:   make(map[core.BundleHandle]string),
		Textures: make(map[core.TextureHandle]image.Rectangle),
	}
}

func (d *Device) CreateBundle(label string, g *core.Geometry) (core.BundleHandle, error) {
	if d.FailBundles {
		return core.NoBundle, ErrInjected
	}
	d.next++
	h := core.BundleHandle(d.next)
	d.Bundles[h] = copyGeometry(g)
	d.Labels[h] = label
	d.BundlesCreated++
	return h, nil
}

func (d *Device) ReleaseBundle(h core.BundleHandle) {
	if _, ok := d.Bundles[h]; !ok {
		return
	}
	delete(d.Bundles, h)
	delete(d.Labels, h)
	d.BundlesReleased++
}

func (d *Device) CreateTexture(label string, img *image.RGBA) (core.TextureHandle, error) {
	d.next++
	h := core.TextureHandle(d.next)
	d.Textures[h] = img.Bounds()
	d.TexturesCreated++
	return h, nil
}

func (d *Device) ReleaseTexture(h core.TextureHandle) {
	if _, ok := d.Textures[h]; !ok {
		return
	}
	delete(d.Textures, h)
	d.TexturesReleased++
}

func (d *Device) Submit(f *core.Frame) error {
	d.Submits++
	d.LastFrame = *f
	d.LastFrame.Commands = make([]core.Command, len(f.Commands))
	for i, c := range f.Commands {
		if c.Kind == core.CommandBundle {
			if _, ok := d.Bundles[c.Bundle]; !ok {
				return fmt.Errorf("submit: bundle %d is not live", c.Bundle)
			}
		}
		c.Batch.Vertices = append([]core.Vertex(nil), c.Batch.Vertices...)
		d.LastFrame.Commands[i] = c
	}
	return nil
}

// BundleFor returns the live bundle created under label, if any.
func (d *Device) BundleFor(label string) (*core.Geometry, core.BundleHandle, bool) {
	for h, l := range d.Labels {
		if l == label {
			return d.Bundles[h], h, true
		}
	}
	return nil, core.NoBundle, false
}

func copyGeometry(g *core.Geometry) *core.Geometry {
	out := &core.Geometry{}
	for _, b := range g.Batches {
		out.Batches = append(out.Batches, core.Batch{
			State:    b.State,
			Vertices: append([]core.Vertex(nil), b.Vertices...),
		})
	}
	return out
}

// Fonts is a fixed-metric font: every glyph is Cell pixels wide and
// 2*Cell tall unless Overrides gives it another advance.
type Fonts struct {
	PointSize float32
	Cell      int
	Overrides map[rune]core.GlyphMetrics
	Missing   map[rune]bool

	Rasterized map[rune]int
}

func NewFonts() *Fonts {
	return &Fonts{
		PointSize:  24,
		Cell:       12,
		Overrides:  make(map[rune]core.GlyphMetrics),
		Missing:    make(map[rune]bool),
		Rasterized: make(map[rune]int),
	}
}

func (f *Fonts) Size() float32 {
	return f.PointSize
}

func (f *Fonts) Rasterize(r rune) (*image.RGBA, error) {
	if f.Missing[r] {
		return nil, fmt.Errorf("%w: %q", core.ErrNoGlyph, r)
	}
	f.Rasterized[r]++
	m := f.Overrides[r]
	w := f.Cell
	if m.AdvanceX > 0 {
		w = int(m.AdvanceX)
	}
	return image.NewRGBA(image.Rect(0, 0, w, 2*f.Cell)), nil
}

func (f *Fonts) Metrics(r rune) (core.GlyphMetrics, error) {
	if f.Missing[r] {
		return core.GlyphMetrics{}, fmt.Errorf("%w: %q", core.ErrNoGlyph, r)
	}
	if m, ok := f.Overrides[r]; ok {
		return m, nil
	}
	return core.GlyphMetrics{
		AdvanceX: float32(f.Cell),
		BearingX: 0,
		BearingY: float32(f.Cell) * 1.5,
		Height:   float32(f.Cell) * 1.5,
	}, nil
}
