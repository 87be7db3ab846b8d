//go:build !tinygo && cgo

// Package gl33 implements glprog.Driver on an OpenGL core-profile context.
// A current context is required before calling New, see glvisaux.
package gl33

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-gl/gl/all-core/gl"
	"github.com/soypat/geometry/ms2"
	"github.com/soypat/geometry/ms3"

	"github.com/glvis/glvis/glprog"
)

// Driver talks to the GPU through go-gl. It owns a single vertex array
// object shared by all programs it serves.
type Driver struct {
	vao uint32
}

var _ glprog.Driver = (*Driver)(nil)

// New initializes OpenGL function pointers and allocates the shared VAO.
// The calling goroutine must hold a current GL context.
func New() (*Driver, error) {
	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("initialize OpenGL: %w", err)
	}
	d := &Driver{}
	gl.GenVertexArrays(1, &d.vao)
	gl.BindVertexArray(d.vao)
	return d, nil
}

func (d *Driver) CompileShader(stage glprog.Stage, source string) (glprog.ShaderID, error) {
	var xtype uint32
	switch stage {
	case glprog.VertexStage:
		xtype = gl.VERTEX_SHADER
	case glprog.FragmentStage:
		xtype = gl.FRAGMENT_SHADER
	default:
		return 0, fmt.Errorf("unsupported shader stage %d", stage)
	}
	shader := gl.CreateShader(xtype)
	csources, free := gl.Strs(source + "\x00")
	gl.ShaderSource(shader, 1, csources, nil)
	free()
	gl.CompileShader(shader)

	var status int32
	gl.GetShaderiv(shader, gl.COMPILE_STATUS, &status)
	if status == gl.FALSE {
		var logLen int32
		gl.GetShaderiv(shader, gl.INFO_LOG_LENGTH, &logLen)
		log := strings.Repeat("\x00", int(logLen+1))
		gl.GetShaderInfoLog(shader, logLen, nil, gl.Str(log))
		gl.DeleteShader(shader)
		return 0, errors.New(strings.TrimRight(log, "\x00"))
	}
	return glprog.ShaderID(shader), nil
}

func (d *Driver) LinkProgram(vertex, fragment glprog.ShaderID) (glprog.ProgramID, error) {
	program := gl.CreateProgram()
	gl.AttachShader(program, uint32(vertex))
	gl.AttachShader(program, uint32(fragment))
	gl.LinkProgram(program)

	var status int32
	gl.GetProgramiv(program, gl.LINK_STATUS, &status)
	if status == gl.FALSE {
		var logLen int32
		gl.GetProgramiv(program, gl.INFO_LOG_LENGTH, &logLen)
		log := strings.Repeat("\x00", int(logLen+1))
		gl.GetProgramInfoLog(program, logLen, nil, gl.Str(log))
		gl.DeleteProgram(program)
		return 0, errors.New(strings.TrimRight(log, "\x00"))
	}
	gl.DeleteShader(uint32(vertex))
	gl.DeleteShader(uint32(fragment))
	return glprog.ProgramID(program), nil
}

func (d *Driver) CreateBuffer(data []float32) (glprog.BufferID, error) {
	if len(data) == 0 {
		return 0, errors.New("empty buffer data")
	}
	var vbo uint32
	gl.GenBuffers(1, &vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, vbo)
	gl.BufferData(gl.ARRAY_BUFFER, 4*len(data), gl.Ptr(data), gl.STATIC_DRAW)
	return glprog.BufferID(vbo), nil
}

func (d *Driver) SetUniform(p glprog.ProgramID, name string, value any) error {
	gl.UseProgram(uint32(p))
	loc := gl.GetUniformLocation(uint32(p), gl.Str(name+"\x00"))
	if loc < 0 {
		// Uniform was optimized out of the linked program. Not an error:
		// the staged value is simply unused by the final shader.
		return nil
	}
	switch v := value.(type) {
	case float32:
		gl.Uniform1f(loc, v)
	case int32:
		gl.Uniform1i(loc, v)
	case ms2.Vec:
		gl.Uniform2f(loc, v.X, v.Y)
	case ms3.Vec:
		gl.Uniform3f(loc, v.X, v.Y, v.Z)
	case [4]float32:
		gl.Uniform4f(loc, v[0], v[1], v[2], v[3])
	case ms3.Mat4:
		arr := v.Array()
		gl.UniformMatrix4fv(loc, 1, false, &arr[0])
	default:
		return fmt.Errorf("uniform %q: unsupported value type %T", name, value)
	}
	return nil
}

func (d *Driver) BindAttribute(p glprog.ProgramID, name string, buf glprog.BufferID, comps int) error {
	gl.UseProgram(uint32(p))
	loc := gl.GetAttribLocation(uint32(p), gl.Str(name+"\x00"))
	if loc < 0 {
		return fmt.Errorf("attribute %q not found in linked program", name)
	}
	gl.BindVertexArray(d.vao)
	gl.BindBuffer(gl.ARRAY_BUFFER, uint32(buf))
	gl.EnableVertexAttribArray(uint32(loc))
	gl.VertexAttribPointer(uint32(loc), int32(comps), gl.FLOAT, false, 0, gl.PtrOffset(0))
	return nil
}

func (d *Driver) Draw(p glprog.ProgramID, mode glprog.Primitive, vertexCount int) error {
	var glmode uint32
	switch mode {
	case glprog.Points:
		glmode = gl.POINTS
	case glprog.Lines:
		glmode = gl.LINES
	case glprog.LineStrip:
		glmode = gl.LINE_STRIP
	case glprog.Triangles:
		glmode = gl.TRIANGLES
	case glprog.TriangleStrip:
		glmode = gl.TRIANGLE_STRIP
	default:
		return &glprog.InvalidPrimitiveError{Primitive: mode, Count: vertexCount, Reason: "unknown primitive"}
	}
	if err := validateTopology(mode, vertexCount); err != nil {
		return err
	}
	gl.UseProgram(uint32(p))
	gl.BindVertexArray(d.vao)
	gl.DrawArrays(glmode, 0, int32(vertexCount))
	return nil
}

func (d *Driver) LineWidth(width float32) { gl.LineWidth(width) }

// validateTopology rejects draws whose vertex count cannot form the
// requested primitives, before any GL state is touched.
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
	}
	return nil
}
