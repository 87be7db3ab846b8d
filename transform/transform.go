// Package transform supplies interchangeable implementations of the
// map_local_to_nd shader hook: any value that can express its mapping as a
// single GLSL vec4 -> vec4 function plugs into a visual's program.
package transform

import (
	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms2"
	"github.com/soypat/geometry/ms3"

	"github.com/glvis/glvis/glprog"
)

// Transform maps a visual's local coordinates to normalized device
// coordinates through a bindable shader function.
type Transform interface {
	// BindMap returns a function instance implementing the named hook with
	// signature vec4(vec4).
	BindMap(name string) (*glprog.Instance, error)
	// Stage restages the transform's current parameters into an instance
	// previously returned by BindMap. Parameter changes therefore never
	// force a shader rebuild, only a uniform upload at the next draw.
	Stage(fn *glprog.Instance) error
}

var nullTmpl = glprog.MustTemplate(`
vec4 $func_name(vec4 local) {
    return local;
}
`)

// Null maps local coordinates straight through to device coordinates.
type Null struct{}

func (Null) BindMap(name string) (*glprog.Instance, error) {
	return nullTmpl.Bind(name, nil)
}

func (Null) Stage(fn *glprog.Instance) error { return nil }

var stTmpl = glprog.MustTemplate(`
vec4 $func_name(vec4 local) {
    return vec4(local.xyz * $scale + $offset, local.w);
}
`, "scale", "offset")

// ST scales and then translates coordinates componentwise.
type ST struct {
	Scale  ms3.Vec
	Offset ms3.Vec
}

// NewST returns the identity scale-translate transform.
func NewST() *ST {
	return &ST{Scale: ms3.Vec{X: 1, Y: 1, Z: 1}}
}

// epstol guards against badly conditioned spans used for normalization.
const epstol = 6e-7

// Fit2D maps the rectangle spanned by pmin and pmax onto the full
// [-1,1] device square, leaving z untouched.
func Fit2D(pmin, pmax ms2.Vec) *ST {
	span := ms2.Sub(pmax, pmin)
	sx := 2 / math32.Max(span.X, epstol)
	sy := 2 / math32.Max(span.Y, epstol)
	return &ST{
		Scale:  ms3.Vec{X: sx, Y: sy, Z: 1},
		Offset: ms3.Vec{X: -1 - pmin.X*sx, Y: -1 - pmin.Y*sy},
	}
}

func (t *ST) BindMap(name string) (*glprog.Instance, error) {
	fn, err := stTmpl.Bind(name, map[string]glprog.Role{
		"scale":  glprog.Var(glprog.Uniform, glprog.Vec3, "u_st_scale"),
		"offset": glprog.Var(glprog.Uniform, glprog.Vec3, "u_st_offset"),
	})
	if err != nil {
		return nil, err
	}
	return fn, t.Stage(fn)
}

func (t *ST) Stage(fn *glprog.Instance) error {
	if err := fn.Set("u_st_scale", t.Scale); err != nil {
		return err
	}
	return fn.Set("u_st_offset", t.Offset)
}

var matrixTmpl = glprog.MustTemplate(`
vec4 $func_name(vec4 local) {
    return $mat * local;
}
`, "mat")

// Matrix applies an arbitrary homogeneous transformation matrix.
type Matrix struct {
	Mat ms3.Mat4
}

func NewMatrix(m ms3.Mat4) *Matrix { return &Matrix{Mat: m} }

// Rotation returns a Matrix rotating radians about axis.
func Rotation(radians float32, axis ms3.Vec) *Matrix {
	return &Matrix{Mat: ms3.RotationMat4(radians, axis)}
}

func (t *Matrix) BindMap(name string) (*glprog.Instance, error) {
	fn, err := matrixTmpl.Bind(name, map[string]glprog.Role{
		"mat": glprog.Var(glprog.Uniform, glprog.Mat4, "u_transform"),
	})
	if err != nil {
		return nil, err
	}
	return fn, t.Stage(fn)
}

func (t *Matrix) Stage(fn *glprog.Instance) error {
	return fn.Set("u_transform", t.Mat)
}
