package core

import (
	"image"

	"github.com/go-gl/mathgl/mgl32"
)

// BundleHandle names a recorded, GPU-resident geometry bundle. Handles are
// issued by a Device and owned by the DrawCache that requested them.
type BundleHandle uint64

// TextureHandle names a GPU texture. The zero value means "no texture".
type TextureHandle uint64

const (
	NoBundle  BundleHandle  = 0
	NoTexture TextureHandle = 0
)

// Device is the GPU boundary of the viewer. All methods run on the render
// thread. CreateBundle and CreateTexture copy their input, which the caller
// may reuse afterwards. Releasing an unknown or already released handle is
// a no-op.
type Device interface {
	CreateBundle(label string, g *Geometry) (BundleHandle, error)
	ReleaseBundle(h BundleHandle)
	CreateTexture(label string, img *image.RGBA) (TextureHandle, error)
	ReleaseTexture(h TextureHandle)
	Submit(f *Frame) error
}

// Space selects the transform a command is drawn with.
type Space uint8

const (
	SpaceWorld Space = iota
	SpaceScreen
)

type CommandKind uint8

const (
	CommandBundle CommandKind = iota
	CommandBatch
)

type Command struct {
	Kind   CommandKind
	Space  Space
	Bundle BundleHandle
	Batch  Batch
}

// Frame is the ordered list of draws for one presented image.
type Frame struct {
	Width    int
	Height   int
	Clear    Color
	ViewProj mgl32.Mat4
	Overlay  mgl32.Mat4
	Eye      mgl32.Vec3
	Commands []Command
}

func (f *Frame) Reset(width, height int) {
	f.Width, f.Height = width, height
	f.Commands = f.Commands[:0]
}

// Replay draws a cached bundle. NoBundle is ignored.
func (f *Frame) Replay(h BundleHandle) {
	if h == NoBundle {
		return
	}
	f.Commands = append(f.Commands, Command{Kind: CommandBundle, Space: SpaceWorld, Bundle: h})
}

// Draw appends every non-empty batch of g. The frame keeps references to
// the vertex slices, so g must not be reused before the frame is submitted.
func (f *Frame) Draw(space Space, g *Geometry) {
	for _, b := range g.Batches {
		f.DrawBatch(space, b)
	}
}

func (f *Frame) DrawBatch(space Space, b Batch) {
	if len(b.Vertices) == 0 {
		return
	}
	f.Commands = append(f.Commands, Command{Kind: CommandBatch, Space: space, Batch: b})
}

// Bundles lists the replayed bundle handles in draw order.
func (f *Frame) Bundles() []BundleHandle {
	var out []BundleHandle
	for _, c := range f.Commands {
		if c.Kind == CommandBundle {
			out = append(out, c.Bundle)
		}
	}
	return out
}

// Batches lists the live batches drawn in the given space.
func (f *Frame) Batches(space Space) []Batch {
	var out []Batch
	for _, c := range f.Commands {
		if c.Kind == CommandBatch && c.Space == space {
			out = append(out, c.Batch)
		}
	}
	return out
}
