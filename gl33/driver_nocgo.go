//go:build tinygo || !cgo

// Package gl33 implements glprog.Driver on an OpenGL core-profile context.
// A current context is required before calling New, see glvisaux.
package gl33

import (
	"errors"

	"github.com/glvis/glvis/glprog"
)

var errNoCGO = errors.New("GPU drawing requires CGo and is not supported on TinyGo")

// Driver talks to the GPU through go-gl. Without CGo every method fails.
type Driver struct{}

var _ glprog.Driver = (*Driver)(nil)

// New initializes OpenGL function pointers and allocates the shared VAO.
func New() (*Driver, error) { return nil, errNoCGO }

func (d *Driver) CompileShader(stage glprog.Stage, source string) (glprog.ShaderID, error) {
	return 0, errNoCGO
}

func (d *Driver) LinkProgram(vertex, fragment glprog.ShaderID) (glprog.ProgramID, error) {
	return 0, errNoCGO
}

func (d *Driver) CreateBuffer(data []float32) (glprog.BufferID, error) {
	return 0, errNoCGO
}

func (d *Driver) SetUniform(p glprog.ProgramID, name string, value any) error {
	return errNoCGO
}

func (d *Driver) BindAttribute(p glprog.ProgramID, name string, buf glprog.BufferID, comps int) error {
	return errNoCGO
}

func (d *Driver) Draw(p glprog.ProgramID, mode glprog.Primitive, vertexCount int) error {
	return errNoCGO
}

func (d *Driver) LineWidth(width float32) {}
