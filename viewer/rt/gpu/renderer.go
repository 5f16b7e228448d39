package gpu

import (
	"errors"
	"fmt"
	"image"

	"github.com/gekko3d/levelview"
	"github.com/gekko3d/levelview/viewer/rt/core"
	"github.com/gekko3d/levelview/viewer/rt/shaders"

	"github.com/cogentcore/webgpu/wgpu"
	"github.com/cogentcore/webgpu/wgpuglfw"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"
)

var ErrReleased = errors.New("renderer released")

const depthFormat = wgpu.TextureFormatDepth24Plus

type gpuBundle struct {
	label  string
	buffer *wgpu.Buffer
	draws  []drawRange
}

type gpuTexture struct {
	texture   *wgpu.Texture
	view      *wgpu.TextureView
	bindGroup *wgpu.BindGroup
}

func (t *gpuTexture) release() {
	t.bindGroup.Release()
	t.view.Release()
	t.texture.Release()
}

// Renderer is the WebGPU implementation of core.Device. It owns the
// surface, the four scene pipelines and every bundle and texture handed
// out to the viewer.
type Renderer struct {
	Instance *wgpu.Instance
	Adapter  *wgpu.Adapter
	Device   *wgpu.Device
	Queue    *wgpu.Queue
	Surface  *wgpu.Surface
	Config   *wgpu.SurfaceConfiguration

	logger levelview.Logger

	pipelines  map[pipelineKey]*wgpu.RenderPipeline
	cameraBGL  *wgpu.BindGroupLayout
	textureBGL *wgpu.BindGroupLayout
	sampler    *wgpu.Sampler

	worldBuf  *wgpu.Buffer
	screenBuf *wgpu.Buffer
	worldBG   *wgpu.BindGroup
	screenBG  *wgpu.BindGroup

	depthTexture *wgpu.Texture
	depthView    *wgpu.TextureView

	white    *gpuTexture
	bundles  map[core.BundleHandle]*gpuBundle
	textures map[core.TextureHandle]*gpuTexture
	next     uint64

	stream    *wgpu.Buffer
	streamCap uint64
	scratch   []core.Vertex
	released  bool
}

func NewRenderer(window *glfw.Window, logger levelview.Logger) (*Renderer, error) {
	r := &Renderer{
		logger:    levelview.OrNop(logger),
		pipelines: make(map[pipelineKey]*wgpu.RenderPipeline),
		bundles:   make(map[core.BundleHandle]*gpuBundle),
		textures:  make(map[core.TextureHandle]*gpuTexture),
	}

	r.Instance = wgpu.CreateInstance(nil)
	r.Surface = r.Instance.CreateSurface(wgpuglfw.GetSurfaceDescriptor(window))

	adapter, err := r.Instance.RequestAdapter(&wgpu.RequestAdapterOptions{
		CompatibleSurface: r.Surface,
		PowerPreference:   wgpu.PowerPreferenceHighPerformance,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to request adapter: %w", err)
	}
	r.Adapter = adapter

	r.Device, err = adapter.RequestDevice(nil)
	if err != nil {
		return nil, fmt.Errorf("failed to request device: %w", err)
	}
	r.Queue = r.Device.GetQueue()

	width, height := window.GetFramebufferSize()
	caps := r.Surface.GetCapabilities(adapter)
	r.Config = &wgpu.SurfaceConfiguration{
		Usage:       wgpu.TextureUsageRenderAttachment,
		Format:      caps.Formats[0],
		Width:       uint32(max(width, 1)),
		Height:      uint32(max(height, 1)),
		PresentMode: wgpu.PresentModeFifo,
		AlphaMode:   caps.AlphaModes[0],
	}
	r.Surface.Configure(adapter, r.Device, r.Config)

	if err := r.setupPipelines(); err != nil {
		return nil, err
	}
	if err := r.setupCamera(); err != nil {
		return nil, err
	}
	if err := r.setupDepth(); err != nil {
		return nil, err
	}

	white := image.NewRGBA(image.Rect(0, 0, 1, 1))
	copy(white.Pix, []byte{255, 255, 255, 255})
	r.white, err = r.uploadTexture("white", white)
	if err != nil {
		return nil, err
	}

	r.logger.Infof("renderer ready: %dx%d, format %v", r.Config.Width, r.Config.Height, r.Config.Format)
	return r, nil
}

func (r *Renderer) setupPipelines() error {
	module, err := r.Device.CreateShaderModule(&wgpu.ShaderModuleDescriptor{
		Label:          "SceneShader",
		WGSLDescriptor: &wgpu.ShaderModuleWGSLDescriptor{Code: shaders.SceneWGSL},
	})
	if err != nil {
		return fmt.Errorf("failed to create scene shader: %w", err)
	}

	r.cameraBGL, err = r.Device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "SceneCameraBGL",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageVertex | wgpu.ShaderStageFragment,
				Buffer: wgpu.BufferBindingLayout{
					Type:           wgpu.BufferBindingTypeUniform,
					MinBindingSize: cameraUniformSize,
				},
			},
		},
	})
	if err != nil {
		return err
	}

	r.textureBGL, err = r.Device.CreateBindGroupLayout(&wgpu.BindGroupLayoutDescriptor{
		Label: "SceneTextureBGL",
		Entries: []wgpu.BindGroupLayoutEntry{
			{
				Binding:    0,
				Visibility: wgpu.ShaderStageFragment,
				Texture: wgpu.TextureBindingLayout{
					SampleType:    wgpu.TextureSampleTypeFloat,
					ViewDimension: wgpu.TextureViewDimension2D,
				},
			},
			{
				Binding:    1,
				Visibility: wgpu.ShaderStageFragment,
				Sampler: wgpu.SamplerBindingLayout{
					Type: wgpu.SamplerBindingTypeFiltering,
				},
			},
		},
	})
	if err != nil {
		return err
	}

	layout, err := r.Device.CreatePipelineLayout(&wgpu.PipelineLayoutDescriptor{
		Label:            "ScenePipelineLayout",
		BindGroupLayouts: []*wgpu.BindGroupLayout{r.cameraBGL, r.textureBGL},
	})
	if err != nil {
		return err
	}

	r.sampler, err = r.Device.CreateSampler(&wgpu.SamplerDescriptor{
		AddressModeU:  wgpu.AddressModeClampToEdge,
		AddressModeV:  wgpu.AddressModeClampToEdge,
		AddressModeW:  wgpu.AddressModeClampToEdge,
		MinFilter:     wgpu.FilterModeLinear,
		MagFilter:     wgpu.FilterModeLinear,
		MaxAnisotropy: 1,
	})
	if err != nil {
		return err
	}

	for _, topo := range []core.Topology{core.TopologyTriangles, core.TopologyLines} {
		for _, depth := range []bool{true, false} {
			key := pipelineKey{topology: topo, depthTest: depth}
			p, err := r.createPipeline(module, layout, key)
			if err != nil {
				return fmt.Errorf("failed to create pipeline %+v: %w", key, err)
			}
			r.pipelines[key] = p
		}
	}
	return nil
}

func (r *Renderer) createPipeline(module *wgpu.ShaderModule, layout *wgpu.PipelineLayout, key pipelineKey) (*wgpu.RenderPipeline, error) {
	topology := wgpu.PrimitiveTopologyTriangleList
	if key.topology == core.TopologyLines {
		topology = wgpu.PrimitiveTopologyLineList
	}
	compare := wgpu.CompareFunctionAlways
	if key.depthTest {
		compare = wgpu.CompareFunctionLessEqual
	}

	return r.Device.CreateRenderPipeline(&wgpu.RenderPipelineDescriptor{
		Label:  fmt.Sprintf("ScenePipeline(lines=%v depth=%v)", key.topology == core.TopologyLines, key.depthTest),
		Layout: layout,
		Vertex: wgpu.VertexState{
			Module:     module,
			EntryPoint: "vs_main",
			Buffers: []wgpu.VertexBufferLayout{
				{
					ArrayStride: vertexStride,
					StepMode:    wgpu.VertexStepModeVertex,
					Attributes: []wgpu.VertexAttribute{
						{Format: wgpu.VertexFormatFloat32x3, Offset: 0, ShaderLocation: 0},
						{Format: wgpu.VertexFormatFloat32x3, Offset: 12, ShaderLocation: 1},
						{Format: wgpu.VertexFormatFloat32x2, Offset: 24, ShaderLocation: 2},
						{Format: wgpu.VertexFormatFloat32x4, Offset: 32, ShaderLocation: 3},
					},
				},
			},
		},
		Fragment: &wgpu.FragmentState{
			Module:     module,
			EntryPoint: "fs_main",
			Targets: []wgpu.ColorTargetState{
				{
					Format:    r.Config.Format,
					WriteMask: wgpu.ColorWriteMaskAll,
					Blend: &wgpu.BlendState{
						Color: wgpu.BlendComponent{
							Operation: wgpu.BlendOperationAdd,
							SrcFactor: wgpu.BlendFactorSrcAlpha,
							DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
						},
						Alpha: wgpu.BlendComponent{
							Operation: wgpu.BlendOperationAdd,
							SrcFactor: wgpu.BlendFactorOne,
							DstFactor: wgpu.BlendFactorOneMinusSrcAlpha,
						},
					},
				},
			},
		},
		Primitive: wgpu.PrimitiveState{
			Topology:  topology,
			FrontFace: wgpu.FrontFaceCCW,
			CullMode:  wgpu.CullModeNone,
		},
		DepthStencil: &wgpu.DepthStencilState{
			Format:            depthFormat,
			DepthWriteEnabled: key.depthTest,
			DepthCompare:      compare,
			StencilFront:      wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways},
			StencilBack:       wgpu.StencilFaceState{Compare: wgpu.CompareFunctionAlways},
		},
		Multisample: wgpu.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
}

func (r *Renderer) setupCamera() error {
	var err error
	newCamera := func(label string) (*wgpu.Buffer, *wgpu.BindGroup, error) {
		buf, err := r.Device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: label,
			Size:  cameraUniformSize,
			Usage: wgpu.BufferUsageUniform | wgpu.BufferUsageCopyDst,
		})
		if err != nil {
			return nil, nil, err
		}
		bg, err := r.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
			Label:  label + "BG",
			Layout: r.cameraBGL,
			Entries: []wgpu.BindGroupEntry{
				{Binding: 0, Buffer: buf, Size: cameraUniformSize},
			},
		})
		if err != nil {
			buf.Release()
			return nil, nil, err
		}
		return buf, bg, nil
	}
	r.worldBuf, r.worldBG, err = newCamera("WorldCamera")
	if err != nil {
		return fmt.Errorf("failed to create world camera: %w", err)
	}
	r.screenBuf, r.screenBG, err = newCamera("OverlayCamera")
	if err != nil {
		return fmt.Errorf("failed to create overlay camera: %w", err)
	}
	return nil
}

func (r *Renderer) setupDepth() error {
	if r.depthTexture != nil {
		r.depthView.Release()
		r.depthTexture.Release()
	}
	var err error
	r.depthTexture, err = r.Device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         "SceneDepth",
		Size:          wgpu.Extent3D{Width: r.Config.Width, Height: r.Config.Height, DepthOrArrayLayers: 1},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     wgpu.TextureDimension2D,
		Format:        depthFormat,
		Usage:         wgpu.TextureUsageRenderAttachment,
	})
	if err != nil {
		return fmt.Errorf("failed to create depth texture: %w", err)
	}
	r.depthView, err = r.depthTexture.CreateView(nil)
	if err != nil {
		return fmt.Errorf("failed to create depth view: %w", err)
	}
	return nil
}

// Resize reconfigures the surface and depth target. Zero sizes (a
// minimized window) are ignored.
func (r *Renderer) Resize(width, height int) error {
	if width <= 0 || height <= 0 || r.released {
		return nil
	}
	r.Config.Width = uint32(width)
	r.Config.Height = uint32(height)
	r.Surface.Configure(r.Adapter, r.Device, r.Config)
	return r.setupDepth()
}

func (r *Renderer) CreateBundle(label string, g *core.Geometry) (core.BundleHandle, error) {
	if r.released {
		return core.NoBundle, ErrReleased
	}
	vertices, draws := packBatches(nil, g.Batches)
	b := &gpuBundle{label: label, draws: draws}
	if len(vertices) > 0 {
		size := uint64(len(vertices)) * vertexStride
		buf, err := r.Device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: "Bundle " + label,
			Size:  size,
			Usage: wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst,
		})
		if err != nil {
			return core.NoBundle, fmt.Errorf("failed to create bundle buffer: %w", err)
		}
		r.Queue.WriteBuffer(buf, 0, vertexBytes(vertices))
		b.buffer = buf
	}
	r.next++
	h := core.BundleHandle(r.next)
	r.bundles[h] = b
	return h, nil
}

func (r *Renderer) ReleaseBundle(h core.BundleHandle) {
	b, ok := r.bundles[h]
	if !ok {
		return
	}
	if b.buffer != nil {
		b.buffer.Release()
	}
	delete(r.bundles, h)
}

func (r *Renderer) CreateTexture(label string, img *image.RGBA) (core.TextureHandle, error) {
	if r.released {
		return core.NoTexture, ErrReleased
	}
	t, err := r.uploadTexture(label, img)
	if err != nil {
		return core.NoTexture, err
	}
	r.next++
	h := core.TextureHandle(r.next)
	r.textures[h] = t
	return h, nil
}

func (r *Renderer) uploadTexture(label string, img *image.RGBA) (*gpuTexture, error) {
	w, h := img.Bounds().Dx(), img.Bounds().Dy()
	if w == 0 || h == 0 {
		return nil, fmt.Errorf("texture %s is empty", label)
	}
	size := wgpu.Extent3D{Width: uint32(w), Height: uint32(h), DepthOrArrayLayers: 1}
	tex, err := r.Device.CreateTexture(&wgpu.TextureDescriptor{
		Label:         label,
		Size:          size,
		Format:        wgpu.TextureFormatRGBA8Unorm,
		Usage:         wgpu.TextureUsageTextureBinding | wgpu.TextureUsageCopyDst,
		Dimension:     wgpu.TextureDimension2D,
		MipLevelCount: 1,
		SampleCount:   1,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create texture %s: %w", label, err)
	}
	pix := img.Pix[img.PixOffset(img.Rect.Min.X, img.Rect.Min.Y):]
	r.Queue.WriteTexture(tex.AsImageCopy(), pix, &wgpu.TextureDataLayout{
		Offset:       0,
		BytesPerRow:  uint32(img.Stride),
		RowsPerImage: uint32(h),
	}, &size)

	view, err := tex.CreateView(nil)
	if err != nil {
		tex.Release()
		return nil, fmt.Errorf("failed to create view for %s: %w", label, err)
	}
	bg, err := r.Device.CreateBindGroup(&wgpu.BindGroupDescriptor{
		Label:  label,
		Layout: r.textureBGL,
		Entries: []wgpu.BindGroupEntry{
			{Binding: 0, TextureView: view},
			{Binding: 1, Sampler: r.sampler},
		},
	})
	if err != nil {
		view.Release()
		tex.Release()
		return nil, fmt.Errorf("failed to create bind group for %s: %w", label, err)
	}
	return &gpuTexture{texture: tex, view: view, bindGroup: bg}, nil
}

func (r *Renderer) ReleaseTexture(h core.TextureHandle) {
	t, ok := r.textures[h]
	if !ok {
		return
	}
	t.release()
	delete(r.textures, h)
}

func (r *Renderer) textureGroup(h core.TextureHandle) *wgpu.BindGroup {
	if t, ok := r.textures[h]; ok {
		return t.bindGroup
	}
	return r.white.bindGroup
}

// streamLive uploads the vertices of every live batch in f into the
// per-frame stream buffer and returns a draw range per command index.
func (r *Renderer) streamLive(f *core.Frame) (map[int]drawRange, error) {
	ranges := make(map[int]drawRange)
	r.scratch = r.scratch[:0]
	for i, c := range f.Commands {
		if c.Kind != core.CommandBatch {
			continue
		}
		var draws []drawRange
		r.scratch, draws = packBatches(r.scratch, []core.Batch{c.Batch})
		if len(draws) == 1 {
			ranges[i] = draws[0]
		}
	}
	if len(r.scratch) == 0 {
		return ranges, nil
	}

	need := uint64(len(r.scratch)) * vertexStride
	if r.stream == nil || r.streamCap < need {
		if r.stream != nil {
			r.stream.Release()
		}
		r.streamCap = growCapacity(r.streamCap, need)
		var err error
		r.stream, err = r.Device.CreateBuffer(&wgpu.BufferDescriptor{
			Label: "LiveVertexStream",
			Size:  r.streamCap,
			Usage: wgpu.BufferUsageVertex | wgpu.BufferUsageCopyDst,
		})
		if err != nil {
			r.stream, r.streamCap = nil, 0
			return nil, fmt.Errorf("failed to grow live vertex stream: %w", err)
		}
	}
	r.Queue.WriteBuffer(r.stream, 0, vertexBytes(r.scratch))
	return ranges, nil
}

// Submit encodes f into one render pass and presents it.
func (r *Renderer) Submit(f *core.Frame) error {
	if r.released {
		return ErrReleased
	}
	r.Queue.WriteBuffer(r.worldBuf, 0, packCamera(f.ViewProj, f.Eye))
	r.Queue.WriteBuffer(r.screenBuf, 0, packCamera(f.Overlay, mgl32.Vec3{}))

	live, err := r.streamLive(f)
	if err != nil {
		return err
	}

	nextTexture, err := r.Surface.GetCurrentTexture()
	if err != nil {
		return fmt.Errorf("failed to acquire surface texture: %w", err)
	}
	defer nextTexture.Release()

	view, err := nextTexture.CreateView(nil)
	if err != nil {
		return fmt.Errorf("failed to create surface view: %w", err)
	}
	defer view.Release()

	encoder, err := r.Device.CreateCommandEncoder(nil)
	if err != nil {
		return fmt.Errorf("failed to create command encoder: %w", err)
	}

	pass := encoder.BeginRenderPass(&wgpu.RenderPassDescriptor{
		ColorAttachments: []wgpu.RenderPassColorAttachment{{
			View:       view,
			LoadOp:     wgpu.LoadOpClear,
			StoreOp:    wgpu.StoreOpStore,
			ClearValue: wgpu.Color{R: float64(f.Clear[0]), G: float64(f.Clear[1]), B: float64(f.Clear[2]), A: float64(f.Clear[3])},
		}},
		DepthStencilAttachment: &wgpu.RenderPassDepthStencilAttachment{
			View:            r.depthView,
			DepthLoadOp:     wgpu.LoadOpClear,
			DepthStoreOp:    wgpu.StoreOpStore,
			DepthClearValue: 1,
		},
	})

	for i, c := range f.Commands {
		camera := r.worldBG
		if c.Space == core.SpaceScreen {
			camera = r.screenBG
		}
		switch c.Kind {
		case core.CommandBundle:
			b, ok := r.bundles[c.Bundle]
			if !ok {
				r.logger.Warnf("skipping released bundle %d", c.Bundle)
				continue
			}
			if b.buffer == nil {
				continue
			}
			for _, d := range b.draws {
				r.draw(pass, camera, b.buffer, d)
			}
		case core.CommandBatch:
			if d, ok := live[i]; ok {
				r.draw(pass, camera, r.stream, d)
			}
		}
	}

	if err := pass.End(); err != nil {
		return fmt.Errorf("render pass failed: %w", err)
	}
	cmd, err := encoder.Finish(nil)
	if err != nil {
		return fmt.Errorf("failed to finish command encoder: %w", err)
	}
	r.Queue.Submit(cmd)
	r.Surface.Present()
	return nil
}

func (r *Renderer) draw(pass *wgpu.RenderPassEncoder, camera *wgpu.BindGroup, buf *wgpu.Buffer, d drawRange) {
	pass.SetPipeline(r.pipelines[keyFor(d.state)])
	pass.SetBindGroup(0, camera, nil)
	pass.SetBindGroup(1, r.textureGroup(d.state.Texture), nil)
	pass.SetVertexBuffer(0, buf, 0, wgpu.WholeSize)
	pass.Draw(d.count, 1, d.first, 0)
}

// Release frees every GPU object. Handles still held by callers become
// unknown and releasing them is a no-op.
func (r *Renderer) Release() {
	if r.released {
		return
	}
	r.released = true
	for h := range r.bundles {
		r.ReleaseBundle(h)
	}
	for h := range r.textures {
		r.ReleaseTexture(h)
	}
	if r.white != nil {
		r.white.release()
	}
	if r.stream != nil {
		r.stream.Release()
	}
	if r.depthTexture != nil {
		r.depthView.Release()
		r.depthTexture.Release()
	}
	for _, p := range r.pipelines {
		p.Release()
	}
	r.worldBG.Release()
	r.screenBG.Release()
	r.worldBuf.Release()
	r.screenBuf.Release()
	r.sampler.Release()
	r.Surface.Release()
	r.Device.Release()
	r.Adapter.Release()
	r.Instance.Release()
}

var _ core.Device = (*Renderer)(nil)
