package glprog

import (
	"fmt"

	"github.com/soypat/geometry/ms2"
	"github.com/soypat/geometry/ms3"
)

// Type is a GLSL type name as used in variable declarations and function signatures.
type Type string

const (
	Void  Type = "void"
	Float Type = "float"
	Int   Type = "int"
	Vec2  Type = "vec2"
	Vec3  Type = "vec3"
	Vec4  Type = "vec4"
	Mat4  Type = "mat4"
)

func (t Type) valid() bool {
	switch t {
	case Float, Int, Vec2, Vec3, Vec4, Mat4:
		return true
	}
	return false
}

// components returns the number of float32 scalars per attribute record of type t.
// Zero for types that cannot back a vertex attribute.
func (t Type) components() int {
	switch t {
	case Float:
		return 1
	case Vec2:
		return 2
	case Vec3:
		return 3
	case Vec4:
		return 4
	}
	return 0
}

// TypeOf returns the GLSL type equivalent to the CPU-side value v.
func TypeOf(v any) (Type, error) {
	switch v.(type) {
	case float32:
		return Float, nil
	case int32:
		return Int, nil
	case ms2.Vec:
		return Vec2, nil
	case ms3.Vec:
		return Vec3, nil
	case [4]float32:
		return Vec4, nil
	case ms3.Mat4:
		return Mat4, nil
	}
	return "", fmt.Errorf("equivalent GLSL type not implemented for %T", v)
}

// StorageClass says where a shader variable lives and how it is fed.
type StorageClass uint8

const (
	// Attribute is per-vertex input, valid in the vertex stage only.
	Attribute StorageClass = iota + 1
	// Uniform is a single value constant over one draw call.
	Uniform
	// Varying is written by the vertex stage and interpolated into the fragment stage.
	Varying
	// Constant is folded into the generated source as a const declaration.
	Constant
)

func (c StorageClass) String() string {
	switch c {
	case Attribute:
		return "attribute"
	case Uniform:
		return "uniform"
	case Varying:
		return "varying"
	case Constant:
		return "constant"
	}
	return "storageclass(" + string(rune('0'+c)) + ")"
}

// Binding ties a shader variable name to its storage class and GLSL type.
type Binding struct {
	Class StorageClass
	Type  Type
	Name  string
}

func (b Binding) validate() error {
	if b.Name == "" {
		return fmt.Errorf("%s binding with empty name", b.Class)
	} else if !b.Type.valid() {
		return fmt.Errorf("%s %q: invalid GLSL type %q", b.Class, b.Name, string(b.Type))
	}
	switch b.Class {
	case Attribute, Uniform, Varying, Constant:
	default:
		return fmt.Errorf("binding %q: unknown storage class", b.Name)
	}
	if b.Class == Attribute && b.Type.components() == 0 {
		return fmt.Errorf("attribute %q: type %s cannot back a vertex attribute", b.Name, b.Type)
	}
	return nil
}

// Role assigns a template placeholder either a literal substitution or a
// variable Binding. The zero Role is invalid.
type Role struct {
	lit   string
	isLit bool
	bind  Binding
}

// Lit substitutes the placeholder with text verbatim.
func Lit(text string) Role { return Role{lit: text, isLit: true} }

// Var substitutes the placeholder with name and declares it with the given
// storage class and type in the generated program.
func Var(class StorageClass, typ Type, name string) Role {
	return Role{bind: Binding{Class: class, Type: typ, Name: name}}
}

func (r Role) text() string {
	if r.isLit {
		return r.lit
	}
	return r.bind.Name
}

// Stage identifies one of the two programmable pipeline stages.
type Stage uint8

const (
	VertexStage Stage = iota
	FragmentStage
)

func (s Stage) String() string {
	if s == VertexStage {
		return "vertex"
	}
	return "fragment"
}

// Primitive is the topology of a draw call.
type Primitive uint8

const (
	Points Primitive = iota + 1
	Lines
	LineStrip
	Triangles
	TriangleStrip
)

func (p Primitive) String() string {
	switch p {
	case Points:
		return "points"
	case Lines:
		return "lines"
	case LineStrip:
		return "line-strip"
	case Triangles:
		return "triangles"
	case TriangleStrip:
		return "triangle-strip"
	}
	return "primitive(invalid)"
}
