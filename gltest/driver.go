// Package gltest provides an in-memory glprog.Driver for exercising shader
// composition and draw plumbing without a GPU context.
package gltest

import (
	"errors"
	"fmt"

	"github.com/glvis/glvis/glprog"
)

// CompiledShader records one CompileShader call.
type CompiledShader struct {
	Stage  glprog.Stage
	Source string
}

// AttribBinding records the latest BindAttribute call for one attribute name.
type AttribBinding struct {
	Buffer glprog.BufferID
	Comps  int
}

// DrawCall records one successful Draw call.
type DrawCall struct {
	Program glprog.ProgramID
	Mode    glprog.Primitive
	Count   int
}

// RecordDriver implements glprog.Driver in memory, recording all GPU traffic.
// Compilation can be made to fail per stage to exercise error paths.
type RecordDriver struct {
	// FailCompile maps a stage to the diagnostic text returned as a compile
	// error for that stage. Empty text compiles normally.
	FailCompile map[glprog.Stage]string
	// FailLink, when non-empty, makes LinkProgram fail with this text.
	FailLink string

	Compiles []CompiledShader
	Links    int
	Buffers  map[glprog.BufferID][]float32
	Uniforms map[string]any
	Attribs  map[string]AttribBinding
	Draws    []DrawCall
	Width    float32

	next uint32
}

var _ glprog.Driver = (*RecordDriver)(nil)

func NewRecordDriver() *RecordDriver {
	return &RecordDriver{
		FailCompile: make(map[glprog.Stage]string),
		Buffers:     make(map[glprog.BufferID][]float32),
		Uniforms:    make(map[string]any),
		Attribs:     make(map[string]AttribBinding),
		Width:       1,
	}
}

func (d *RecordDriver) id() uint32 {
	d.next++
	return d.next
}

func (d *RecordDriver) CompileShader(stage glprog.Stage, source string) (glprog.ShaderID, error) {
	if log := d.FailCompile[stage]; log != "" {
		return 0, errors.New(log)
	}
	d.Compiles = append(d.Compiles, CompiledShader{Stage: stage, Source: source})
	return glprog.ShaderID(d.id()), nil
}

func (d *RecordDriver) LinkProgram(vertex, fragment glprog.ShaderID) (glprog.ProgramID, error) {
	if vertex == 0 || fragment == 0 {
		return 0, errors.New("link with invalid shader handle")
	}
	if d.FailLink != "" {
		return 0, errors.New(d.FailLink)
	}
	d.Links++
	return glprog.ProgramID(d.id()), nil
}

func (d *RecordDriver) CreateBuffer(data []float32) (glprog.BufferID, error) {
	if len(data) == 0 {
		return 0, errors.New("empty buffer data")
	}
	id := glprog.BufferID(d.id())
	d.Buffers[id] = append([]float32{}, data...)
	return id, nil
}

func (d *RecordDriver) SetUniform(p glprog.ProgramID, name string, value any) error {
	if p == 0 {
		return errors.New("set uniform on invalid program handle")
	}
	d.Uniforms[name] = value
	return nil
}

func (d *RecordDriver) BindAttribute(p glprog.ProgramID, name string, buf glprog.BufferID, comps int) error {
	if p == 0 {
		return errors.New("bind attribute on invalid program handle")
	}
	if _, ok := d.Buffers[buf]; !ok {
		return fmt.Errorf("attribute %q bound to unknown buffer %d", name, buf)
	}
	d.Attribs[name] = AttribBinding{Buffer: buf, Comps: comps}
	return nil
}

func (d *RecordDriver) Draw(p glprog.ProgramID, mode glprog.Primitive, vertexCount int) error {
	if p == 0 {
		return errors.New("draw on invalid program handle")
	}
	if err := validateTopology(mode, vertexCount); err != nil {
		return err
	}
	d.Draws = append(d.Draws, DrawCall{Program: p, Mode: mode, Count: vertexCount})
	return nil
}

func (d *RecordDriver) LineWidth(width float32) { d.Width = width }

func validateTopology(mode glprog.Primitive, count int) error {
	reject := func(reason string) error {
		return &glprog.InvalidPrimitiveError{Primitive: mode, Count: count, Reason: reason}
	}
	switch mode {
	case glprog.Points:
		if count < 1 {
			return reject("need at least 1 vertex")
		}
	case glprog.Lines:
		if count < 2 || count%2 != 0 {
			return reject("need a positive multiple of 2 vertices")
		}
	case glprog.LineStrip:
		if count < 2 {
			return reject("need at least 2 vertices")
		}
	case glprog.Triangles:
		if count < 3 || count%3 != 0 {
			return reject("need a positive multiple of 3 vertices")
		}
	case glprog.TriangleStrip:
		if count < 3 {
			return reject("need at least 3 vertices")
		}
	default:
		return reject("unknown primitive")
	}
	return nil
}
