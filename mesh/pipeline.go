package mesh

import (
	_ "embed"
	"fmt"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/naga"
)

//go:embed shaders/glyph.wgsl
var glyphShaderSource string

//go:embed shaders/glyph_color.wgsl
var glyphColorShaderSource string

// Per-vertex strides of the separate attribute streams.
const (
	positionStride = 8  // vec2<f32>
	uvStride       = 8  // vec2<f32>
	colorStride    = 16 // vec4<f32>
)

// IndexFormat is the index type of every segment.
const IndexFormat = gputypes.IndexFormatUint16

// VertexUsage and IndexUsage are the buffer usages a renderer creates
// segment buffers with.
const (
	VertexUsage = gputypes.BufferUsageVertex | gputypes.BufferUsageCopyDst
	IndexUsage  = gputypes.BufferUsageIndex | gputypes.BufferUsageCopyDst
)

// VertexLayouts returns one buffer layout per attribute stream, matching
// VertexInput in the shader ShaderSource(hasColor) returns:
//
//	buffer 0, location 0: position (vec2<f32>)
//	buffer 1, location 1: uv (vec2<f32>)
//	buffer 2, location 2: color (vec4<f32>), coloured batches only
func VertexLayouts(hasColor bool) []gputypes.VertexBufferLayout {
	layouts := []gputypes.VertexBufferLayout{
		{
			ArrayStride: positionStride,
			StepMode:    gputypes.VertexStepModeVertex,
			Attributes: []gputypes.VertexAttribute{
				{Format: gputypes.VertexFormatFloat32x2, Offset: 0, ShaderLocation: 0},
			},
		},
		{
			ArrayStride: uvStride,
			StepMode:    gputypes.VertexStepModeVertex,
			Attributes: []gputypes.VertexAttribute{
				{Format: gputypes.VertexFormatFloat32x2, Offset: 0, ShaderLocation: 1},
			},
		},
	}
	if hasColor {
		layouts = append(layouts, gputypes.VertexBufferLayout{
			ArrayStride: colorStride,
			StepMode:    gputypes.VertexStepModeVertex,
			Attributes: []gputypes.VertexAttribute{
				{Format: gputypes.VertexFormatFloat32x4, Offset: 0, ShaderLocation: 2},
			},
		})
	}
	return layouts
}

// ShaderSource returns the WGSL source for a batch.
func ShaderSource(hasColor bool) string {
	if hasColor {
		return glyphColorShaderSource
	}
	return glyphShaderSource
}

// CompileShader compiles the batch shader to SPIR-V words.
func CompileShader(hasColor bool) ([]uint32, error) {
	spirvBytes, err := naga.Compile(ShaderSource(hasColor))
	if err != nil {
		return nil, fmt.Errorf("mesh: compile glyph shader: %w", err)
	}

	// SPIR-V is little-endian 32-bit words.
	words := make([]uint32, len(spirvBytes)/4)
	for i := range words {
		words[i] = uint32(spirvBytes[i*4]) |
			uint32(spirvBytes[i*4+1])<<8 |
			uint32(spirvBytes[i*4+2])<<16 |
			uint32(spirvBytes[i*4+3])<<24
	}
	return words, nil
}
