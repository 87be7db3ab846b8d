package glvis

import (
	"errors"
	"fmt"

	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms2"
	"github.com/soypat/geometry/ms3"

	"github.com/glvis/glvis/glprog"
	"github.com/glvis/glvis/transform"
)

// Templates for reading vertex position data. The 2-component variant takes
// the depth as an extra uniform; the 3-component variant needs none.
var (
	xyPosTmpl = glprog.MustTemplate(`
vec4 $func_name(void) {
    return vec4($xy_pos, $z_pos, 1.0);
}
`, "xy_pos", "z_pos")

	xyzPosTmpl = glprog.MustTemplate(`
vec4 $func_name(void) {
    return vec4($xyz_pos, 1.0);
}
`, "xyz_pos")
)

// Color source functions: a single uniform color, or a per-vertex attribute
// forwarded to the fragment stage through one linked varying.
var (
	rgbaUniformTmpl = glprog.MustTemplate(`
vec4 $func_name(void) {
    return $rgba;
}
`, "rgba")

	rgbaAttributeFn = &glprog.TwoStage{
		Frag: glprog.MustTemplate(`
vec4 $func_name(void) {
    return $rgba;
}
`, "rgba"),
		Vertex: glprog.MustTemplate(`
void $func_name(void) {
    $output = $input;
}
`, "input", "output"),
		Links: []glprog.Link{{Type: glprog.Vec4, VertexVar: "output", FragVar: "rgba"}},
	}
)

// LineData is a partial update for a Line visual. Nil slices and zero width
// leave the previous value in place.
type LineData struct {
	// Pos2 sets 2-component vertex positions. Clears any 3-component data.
	Pos2 []ms2.Vec
	// Pos3 sets 3-component vertex positions. Clears any 2-component data.
	Pos3 []ms3.Vec
	// Color sets a single RGB or RGBA color for the whole line and clears
	// any per-vertex colors.
	Color []float32
	// Colors sets one RGBA color per vertex and clears the uniform color.
	Colors [][4]float32
	// Width sets the rasterized line width in pixels.
	Width float32
}

// Line draws a polyline through its positions as a single line strip. The
// position arity and color shape select which shader functions are composed
// into the program; changing either discards the program so the next Paint
// rebuilds it, while width changes only touch rasterization state.
type Line struct {
	drv glprog.Driver
	tr  transform.Transform

	pos2   []ms2.Vec
	pos3   []ms3.Vec
	color  [4]float32
	colors [][4]float32
	width  float32

	posBuf *glprog.Buffer
	colBuf *glprog.Buffer
	prog   *glprog.Program
	trFn   *glprog.Instance
}

var _ Visual = (*Line)(nil)

// NewLine returns an empty white line of width 1 with the identity transform.
func NewLine(drv glprog.Driver) *Line {
	return &Line{
		drv:   drv,
		tr:    transform.Null{},
		color: [4]float32{1, 1, 1, 1},
		width: 1,
	}
}

// SetTransform replaces the coordinate transform and discards the program.
func (l *Line) SetTransform(t transform.Transform) {
	l.tr = t
	l.trFn = nil
	l.prog = nil
}

// Transform returns the current coordinate transform.
func (l *Line) Transform() transform.Transform { return l.tr }

// SetData applies a partial update. Position or color changes invalidate the
// staged buffers and the compiled program; a width-only change keeps both.
func (l *Line) SetData(d LineData) error {
	if d.Pos2 != nil && d.Pos3 != nil {
		return errors.New("set either 2- or 3-component positions, not both")
	}
	if err := validateData(d); err != nil {
		return err
	}
	if d.Pos2 != nil {
		l.pos2, l.pos3 = d.Pos2, nil
		l.invalidate()
	}
	if d.Pos3 != nil {
		l.pos3, l.pos2 = d.Pos3, nil
		l.invalidate()
	}
	if d.Colors != nil {
		l.colors = d.Colors
		l.invalidate()
	}
	if d.Color != nil {
		c, err := rgba(d.Color)
		if err != nil {
			return err
		}
		l.color = c
		l.colors = nil
		l.invalidate()
	}
	if d.Width > 0 {
		l.width = d.Width
	}
	return nil
}

func (l *Line) invalidate() {
	l.posBuf = nil
	l.colBuf = nil
	l.prog = nil
	l.trFn = nil
}

// Paint is a no-op without position data. Otherwise it ensures the program
// is built, restages transform parameters and draws the line strip with the
// current width state.
func (l *Line) Paint() error {
	if len(l.pos2) == 0 && len(l.pos3) == 0 {
		return nil
	}
	if l.prog == nil {
		if err := l.buildProgram(); err != nil {
			return err
		}
	}
	if err := l.tr.Stage(l.trFn); err != nil {
		return fmt.Errorf("stage transform: %w", err)
	}
	l.drv.LineWidth(l.width)
	return l.prog.Draw(glprog.LineStrip)
}

func (l *Line) vertexCount() int {
	if l.pos2 != nil {
		return len(l.pos2)
	}
	return len(l.pos3)
}

func (l *Line) buildProgram() error {
	if err := l.stageBuffers(); err != nil {
		return err
	}
	prog, err := glprog.NewProgram(l.drv, vertexMain, fragmentMain)
	if err != nil {
		return err
	}
	posFn, err := l.positionFunc()
	if err != nil {
		return err
	}
	if err := prog.SetHook("local_position", posFn); err != nil {
		return err
	}
	trFn, err := l.tr.BindMap("map_local_to_nd")
	if err != nil {
		return fmt.Errorf("bind transform: %w", err)
	}
	if err := prog.SetHook("map_local_to_nd", trFn); err != nil {
		return err
	}
	colorFn, err := l.colorFunc()
	if err != nil {
		return err
	}
	if err := prog.SetHook("frag_color", colorFn); err != nil {
		return err
	}
	l.prog = prog
	l.trFn = trFn
	return nil
}

func (l *Line) stageBuffers() error {
	if l.posBuf == nil {
		if l.pos2 != nil {
			l.posBuf = glprog.BufferVec2(l.pos2)
		} else {
			l.posBuf = glprog.BufferVec3(l.pos3)
		}
	}
	if l.colors != nil && l.colBuf == nil {
		if len(l.colors) != l.vertexCount() {
			return fmt.Errorf("%d per-vertex colors for %d vertices", len(l.colors), l.vertexCount())
		}
		l.colBuf = glprog.BufferVec4(l.colors)
	}
	return nil
}

// positionFunc selects the position input function by position arity.
func (l *Line) positionFunc() (*glprog.Instance, error) {
	if l.pos2 != nil {
		fn, err := xyPosTmpl.Bind("local_position", map[string]glprog.Role{
			"xy_pos": glprog.Var(glprog.Attribute, glprog.Vec2, "input_xy_pos"),
			"z_pos":  glprog.Var(glprog.Uniform, glprog.Float, "input_z_pos"),
		})
		if err != nil {
			return nil, err
		}
		if err := fn.Set("input_xy_pos", l.posBuf); err != nil {
			return nil, err
		}
		if err := fn.Set("input_z_pos", float32(0)); err != nil {
			return nil, err
		}
		return fn, nil
	}
	fn, err := xyzPosTmpl.Bind("local_position", map[string]glprog.Role{
		"xyz_pos": glprog.Var(glprog.Attribute, glprog.Vec3, "input_xyz_pos"),
	})
	if err != nil {
		return nil, err
	}
	if err := fn.Set("input_xyz_pos", l.posBuf); err != nil {
		return nil, err
	}
	return fn, nil
}

// colorFunc selects the uniform- or attribute-input color function.
func (l *Line) colorFunc() (*glprog.Instance, error) {
	if l.colors != nil {
		fn, err := rgbaAttributeFn.Bind("frag_color", map[string]glprog.Role{
			"input": glprog.Var(glprog.Attribute, glprog.Vec4, "input_color"),
		})
		if err != nil {
			return nil, err
		}
		if err := fn.Set("input_color", l.colBuf); err != nil {
			return nil, err
		}
		return fn, nil
	}
	fn, err := rgbaUniformTmpl.Bind("frag_color", map[string]glprog.Role{
		"rgba": glprog.Var(glprog.Uniform, glprog.Vec4, "input_color"),
	})
	if err != nil {
		return nil, err
	}
	if err := fn.Set("input_color", l.color); err != nil {
		return nil, err
	}
	return fn, nil
}

// rgba widens a 3- or 4-component color to RGBA.
func rgba(c []float32) ([4]float32, error) {
	switch len(c) {
	case 3:
		return [4]float32{c[0], c[1], c[2], 1}, nil
	case 4:
		return [4]float32{c[0], c[1], c[2], c[3]}, nil
	}
	return [4]float32{}, fmt.Errorf("color needs 3 or 4 components, got %d", len(c))
}

func validateData(d LineData) error {
	for _, p := range d.Pos2 {
		if !finite(p.X) || !finite(p.Y) {
			return errors.New("non-finite 2D position data")
		}
	}
	for _, p := range d.Pos3 {
		if !finite(p.X) || !finite(p.Y) || !finite(p.Z) {
			return errors.New("non-finite 3D position data")
		}
	}
	for _, c := range d.Color {
		if !finite(c) {
			return errors.New("non-finite color data")
		}
	}
	for _, c := range d.Colors {
		if !finite(c[0]) || !finite(c[1]) || !finite(c[2]) || !finite(c[3]) {
			return errors.New("non-finite per-vertex color data")
		}
	}
	return nil
}

func finite(v float32) bool {
	return !math32.IsNaN(v) && !math32.IsInf(v, 0)
}
