package glprog

import (
	"bytes"
	"fmt"
	"strconv"

	"github.com/soypat/geometry/ms2"
	"github.com/soypat/geometry/ms3"
)

// appendVarDecl appends a storage declaration for b as seen from stage.
// Varyings are "out" in the vertex stage and "in" in the fragment stage.
func appendVarDecl(dst []byte, stage Stage, b Binding) []byte {
	switch b.Class {
	case Attribute:
		dst = append(dst, "in "...)
	case Uniform:
		dst = append(dst, "uniform "...)
	case Varying:
		if stage == VertexStage {
			dst = append(dst, "out "...)
		} else {
			dst = append(dst, "in "...)
		}
	}
	dst = append(dst, b.Type...)
	dst = append(dst, ' ')
	dst = append(dst, b.Name...)
	dst = append(dst, ';', '\n')
	return dst
}

// appendConstDecl appends a const declaration for b with the staged value v.
func appendConstDecl(dst []byte, b Binding, v any) ([]byte, error) {
	lit, err := appendValue(nil, v)
	if err != nil {
		return dst, fmt.Errorf("constant %q: %w", b.Name, err)
	}
	dst = append(dst, "const "...)
	dst = append(dst, b.Type...)
	dst = append(dst, ' ')
	dst = append(dst, b.Name...)
	dst = append(dst, '=')
	dst = append(dst, lit...)
	dst = append(dst, ';', '\n')
	return dst, nil
}

// appendValue appends v as a GLSL literal expression.
func appendValue(dst []byte, v any) ([]byte, error) {
	switch c := v.(type) {
	case float32:
		dst = appendFloat(dst, c)
	case int32:
		dst = strconv.AppendInt(dst, int64(c), 10)
	case ms2.Vec:
		dst = append(dst, "vec2("...)
		dst = appendFloats(dst, c.X, c.Y)
		dst = append(dst, ')')
	case ms3.Vec:
		dst = append(dst, "vec3("...)
		dst = appendFloats(dst, c.X, c.Y, c.Z)
		dst = append(dst, ')')
	case [4]float32:
		dst = append(dst, "vec4("...)
		dst = appendFloats(dst, c[0], c[1], c[2], c[3])
		dst = append(dst, ')')
	default:
		return dst, fmt.Errorf("value of type %T not expressible as GLSL literal", v)
	}
	return dst, nil
}

const decimalDigits = 9

// appendFloat formats v with fixed precision and trims trailing zeroes.
func appendFloat(dst []byte, v float32) []byte {
	start := len(dst)
	dst = strconv.AppendFloat(dst, float64(v), 'f', decimalDigits, 32)
	idx := bytes.IndexByte(dst[start:], '.')
	end := len(dst)
	for i := len(dst) - 1; idx >= 0 && i > start+idx+1 && dst[i] == '0'; i-- {
		end--
	}
	return dst[:end]
}

func appendFloats(dst []byte, s ...float32) []byte {
	for i, v := range s {
		dst = appendFloat(dst, v)
		if i != len(s)-1 {
			dst = append(dst, ',')
		}
	}
	return dst
}
