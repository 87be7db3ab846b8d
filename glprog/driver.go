package glprog

import (
	"fmt"

	"github.com/soypat/geometry/ms2"
	"github.com/soypat/geometry/ms3"
)

// Opaque handles allocated by a Driver. A zero handle is never valid.
type (
	ShaderID  uint32
	ProgramID uint32
	BufferID  uint32
)

// Driver is the narrow upload contract to the graphics layer. All calls are
// synchronous; compilation and linking may block the caller. Programs built
// by [Program] talk to the GPU exclusively through this interface.
type Driver interface {
	// CompileShader compiles source for one pipeline stage. The returned
	// error contains the compiler diagnostic text on failure.
	CompileShader(stage Stage, source string) (ShaderID, error)
	// LinkProgram links a compiled vertex and fragment shader pair.
	LinkProgram(vertex, fragment ShaderID) (ProgramID, error)
	// CreateBuffer uploads vertex data and returns a handle to it.
	CreateBuffer(data []float32) (BufferID, error)
	// SetUniform uploads a single value to the named program uniform.
	SetUniform(p ProgramID, name string, value any) error
	// BindAttribute points the named vertex attribute at buf, reading comps
	// float32 scalars per vertex.
	BindAttribute(p ProgramID, name string, buf BufferID, comps int) error
	// Draw issues a draw call with the given topology and vertex count.
	// Returns [InvalidPrimitiveError] if the topology is rejected for the
	// given vertex count.
	Draw(p ProgramID, mode Primitive, vertexCount int) error
	// LineWidth sets the rasterized line width state for subsequent draws.
	LineWidth(width float32)
}

// Buffer stages attribute records CPU-side until the owning program draws.
// Data is flat float32 scalars, comps scalars per vertex record.
type Buffer struct {
	data  []float32
	comps int
}

// NewBuffer wraps flat vertex data with comps scalars per record.
func NewBuffer(data []float32, comps int) (*Buffer, error) {
	if comps < 1 || comps > 4 {
		return nil, fmt.Errorf("buffer record arity %d outside 1..4", comps)
	} else if len(data) == 0 || len(data)%comps != 0 {
		return nil, fmt.Errorf("buffer length %d not a positive multiple of arity %d", len(data), comps)
	}
	return &Buffer{data: data, comps: comps}, nil
}

// BufferVec2 stages 2-component vertex records.
func BufferVec2(v []ms2.Vec) *Buffer {
	data := make([]float32, 0, 2*len(v))
	for _, p := range v {
		data = append(data, p.X, p.Y)
	}
	return &Buffer{data: data, comps: 2}
}

// BufferVec3 stages 3-component vertex records.
func BufferVec3(v []ms3.Vec) *Buffer {
	data := make([]float32, 0, 3*len(v))
	for _, p := range v {
		data = append(data, p.X, p.Y, p.Z)
	}
	return &Buffer{data: data, comps: 3}
}

// BufferVec4 stages 4-component vertex records.
func BufferVec4(v [][4]float32) *Buffer {
	data := make([]float32, 0, 4*len(v))
	for _, p := range v {
		data = append(data, p[0], p[1], p[2], p[3])
	}
	return &Buffer{data: data, comps: 4}
}

// Len returns the number of vertex records staged.
func (b *Buffer) Len() int { return len(b.data) / b.comps }

// Comps returns the number of float32 scalars per vertex record.
func (b *Buffer) Comps() int { return b.comps }

// Floats returns the flat staged data. The caller must not modify it.
func (b *Buffer) Floats() []float32 { return b.data }
