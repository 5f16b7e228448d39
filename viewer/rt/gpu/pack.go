package gpu

import (
	"encoding/binary"
	"math"
	"unsafe"

	"github.com/gekko3d/levelview/viewer/rt/core"

	"github.com/go-gl/mathgl/mgl32"
)

const (
	// Struct Camera {
	//   view_proj: mat4x4<f32>; -- 64
	//   eye: vec4<f32>;         -- 80
	// }
	cameraUniformSize = 80

	vertexStride = uint64(unsafe.Sizeof(core.Vertex{}))
)

func packCamera(viewProj mgl32.Mat4, eye mgl32.Vec3) []byte {
	buf := make([]byte, cameraUniformSize)
	for i, v := range viewProj {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	binary.LittleEndian.PutUint32(buf[64:], math.Float32bits(eye[0]))
	binary.LittleEndian.PutUint32(buf[68:], math.Float32bits(eye[1]))
	binary.LittleEndian.PutUint32(buf[72:], math.Float32bits(eye[2]))
	binary.LittleEndian.PutUint32(buf[76:], math.Float32bits(1))
	return buf
}

// drawRange is one draw call over a contiguous run of a vertex buffer.
type drawRange struct {
	state core.DrawState
	first uint32
	count uint32
}

// packBatches appends the vertices of every non-empty batch to dst and
// returns the grown slice plus one draw range per batch.
func packBatches(dst []core.Vertex, batches []core.Batch) ([]core.Vertex, []drawRange) {
	var draws []drawRange
	for _, b := range batches {
		if len(b.Vertices) == 0 {
			continue
		}
		draws = append(draws, drawRange{
			state: b.State,
			first: uint32(len(dst)),
			count: uint32(len(b.Vertices)),
		})
		dst = append(dst, b.Vertices...)
	}
	return dst, draws
}

func vertexBytes(vertices []core.Vertex) []byte {
	if len(vertices) == 0 {
		return nil
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(&vertices[0])), uint64(len(vertices))*vertexStride)
}

// pipelineKey selects one of the four scene pipelines. Line width is not
// part of it: WebGPU rasterizes every line one pixel wide.
type pipelineKey struct {
	topology  core.Topology
	depthTest bool
}

func keyFor(st core.DrawState) pipelineKey {
	return pipelineKey{topology: st.Topology, depthTest: st.DepthTest}
}

// growCapacity returns a buffer size of at least need bytes, doubling from
// current so streaming buffers are not recreated every frame.
func growCapacity(current, need uint64) uint64 {
	if current >= need {
		return current
	}
	c := max(current, 64*vertexStride)
	for c < need {
		c *= 2
	}
	return c
}
