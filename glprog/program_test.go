package glprog_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/glvis/glvis/glprog"
	"github.com/glvis/glvis/gltest"
)

const (
	vmain = `
vec4 local_position(void);
vec4 map_local_to_nd(vec4);
void post_hook(void);

void main(void) {
    gl_Position = map_local_to_nd(local_position());
    post_hook();
}
`
	fmain = `
vec4 frag_color(void);
out vec4 fragColor;

void main(void) {
    fragColor = frag_color();
}
`
)

var (
	posTmpl = glprog.MustTemplate(`
vec4 $func_name(void) {
    return vec4($xy_pos, $z_pos, 1.0);
}
`, "xy_pos", "z_pos")

	identTmpl = glprog.MustTemplate(`
vec4 $func_name(vec4 local) {
    return local;
}
`)

	colorTmpl = glprog.MustTemplate(`
vec4 $func_name(void) {
    return $rgba;
}
`, "rgba")
)

// bindFullProgram binds all three required hooks of a vmain/fmain program.
func bindFullProgram(t *testing.T, p *glprog.Program) {
	t.Helper()
	pos, err := posTmpl.Bind("local_position", map[string]glprog.Role{
		"xy_pos": glprog.Var(glprog.Attribute, glprog.Vec2, "input_xy_pos"),
		"z_pos":  glprog.Var(glprog.Uniform, glprog.Float, "input_z_pos"),
	})
	if err != nil {
		t.Fatal(err)
	}
	buf, err := glprog.NewBuffer([]float32{0, 0, 1, 0, 1, 1}, 2)
	if err != nil {
		t.Fatal(err)
	}
	if err := pos.Set("input_xy_pos", buf); err != nil {
		t.Fatal(err)
	}
	if err := pos.Set("input_z_pos", float32(0)); err != nil {
		t.Fatal(err)
	}
	tr, err := identTmpl.Bind("map_local_to_nd", nil)
	if err != nil {
		t.Fatal(err)
	}
	color, err := colorTmpl.Bind("frag_color", map[string]glprog.Role{
		"rgba": glprog.Var(glprog.Uniform, glprog.Vec4, "input_color"),
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := color.Set("input_color", [4]float32{1, 1, 1, 1}); err != nil {
		t.Fatal(err)
	}
	for hook, fn := range map[string]*glprog.Instance{
		"local_position":  pos,
		"map_local_to_nd": tr,
		"frag_color":      color,
	} {
		if err := p.SetHook(hook, fn); err != nil {
			t.Fatalf("set hook %s: %v", hook, err)
		}
	}
}

func TestMasterBodyCallsAreNotHooks(t *testing.T) {
	// A zero-arg hook invoked as a statement inside main looks a lot like a
	// forward declaration; the parser must not choke on it.
	p, err := glprog.NewProgram(gltest.NewRecordDriver(), vmain, fmain)
	if err != nil {
		t.Fatalf("master template with hook call statements rejected: %v", err)
	}
	err = p.Build()
	var incomplete *glprog.IncompleteProgramError
	if !errors.As(err, &incomplete) {
		t.Fatalf("want IncompleteProgramError for unbound hooks, got %v", err)
	}
	for _, missing := range incomplete.Missing {
		if missing == "main" || strings.HasSuffix(missing, "()") {
			t.Errorf("call statement %q parsed as a hook", missing)
		}
	}
}

func TestUnknownHook(t *testing.T) {
	p, err := glprog.NewProgram(gltest.NewRecordDriver(), vmain, fmain)
	if err != nil {
		t.Fatal(err)
	}
	fn, err := identTmpl.Bind("nd", nil)
	if err != nil {
		t.Fatal(err)
	}
	err = p.SetHook("no_such_hook", fn)
	var unknown *glprog.UnknownHookError
	if !errors.As(err, &unknown) {
		t.Fatalf("want UnknownHookError, got %v", err)
	}
	if unknown.Hook != "no_such_hook" {
		t.Errorf("unexpected hook name %q", unknown.Hook)
	}
}

func TestSignatureMismatch(t *testing.T) {
	p, err := glprog.NewProgram(gltest.NewRecordDriver(), vmain, fmain)
	if err != nil {
		t.Fatal(err)
	}
	// identTmpl has signature vec4(vec4), local_position wants vec4(void).
	fn, err := identTmpl.Bind("local_position", nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := p.SetHook("local_position", fn); err == nil {
		t.Error("expected signature mismatch error")
	}
}

func TestIncompleteProgram(t *testing.T) {
	drv := gltest.NewRecordDriver()
	p, err := glprog.NewProgram(drv, vmain, fmain)
	if err != nil {
		t.Fatal(err)
	}
	err = p.Build()
	var incomplete *glprog.IncompleteProgramError
	if !errors.As(err, &incomplete) {
		t.Fatalf("want IncompleteProgramError, got %v", err)
	}
	// post_hook is optional and must not be reported missing.
	want := []string{"local_position", "map_local_to_nd", "frag_color"}
	if len(incomplete.Missing) != len(want) {
		t.Fatalf("missing hooks %v, want %v", incomplete.Missing, want)
	}
	for i := range want {
		if incomplete.Missing[i] != want[i] {
			t.Errorf("missing[%d] = %q, want %q", i, incomplete.Missing[i], want[i])
		}
	}
	if len(drv.Compiles) != 0 {
		t.Error("incomplete program must not reach the compiler")
	}
}

func TestBuildIdempotent(t *testing.T) {
	drv := gltest.NewRecordDriver()
	p, err := glprog.NewProgram(drv, vmain, fmain)
	if err != nil {
		t.Fatal(err)
	}
	bindFullProgram(t, p)
	if got := p.State(); got != "hooks-bound" {
		t.Errorf("state %q before build, want hooks-bound", got)
	}
	if err := p.Build(); err != nil {
		t.Fatal(err)
	}
	if got := p.State(); got != "compiled" {
		t.Errorf("state %q after build, want compiled", got)
	}
	handle := p.Handle()
	if err := p.Build(); err != nil {
		t.Fatal(err)
	}
	if len(drv.Compiles) != 2 || drv.Links != 1 {
		t.Errorf("repeated build recompiled: %d compiles, %d links", len(drv.Compiles), drv.Links)
	}
	if p.Handle() != handle {
		t.Error("repeated build did not return cached handle")
	}
}

func TestRebindRecompilesOnce(t *testing.T) {
	drv := gltest.NewRecordDriver()
	p, err := glprog.NewProgram(drv, vmain, fmain)
	if err != nil {
		t.Fatal(err)
	}
	bindFullProgram(t, p)
	if err := p.Build(); err != nil {
		t.Fatal(err)
	}
	color, err := colorTmpl.Bind("frag_color", map[string]glprog.Role{
		"rgba": glprog.Var(glprog.Uniform, glprog.Vec4, "input_color"),
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := color.Set("input_color", [4]float32{1, 0, 0, 1}); err != nil {
		t.Fatal(err)
	}
	if err := p.SetHook("frag_color", color); err != nil {
		t.Fatal(err)
	}
	if got := p.State(); got != "hooks-bound" {
		t.Errorf("state %q after rebind, want hooks-bound", got)
	}
	if err := p.Draw(glprog.LineStrip); err != nil {
		t.Fatal(err)
	}
	if err := p.Draw(glprog.LineStrip); err != nil {
		t.Fatal(err)
	}
	// One rebuild exactly: two builds total over the program's lifetime.
	if len(drv.Compiles) != 4 || drv.Links != 2 {
		t.Errorf("want 4 compiles and 2 links, got %d and %d", len(drv.Compiles), drv.Links)
	}
}

func TestGeneratedNamesDistinctForSharedTemplate(t *testing.T) {
	// Two hooks filled from the same template must emit under distinct
	// function names with a single shared uniform declaration.
	fmainTwo := `
vec4 color_a(void);
vec4 color_b(void);
out vec4 fragColor;

void main(void) {
    fragColor = color_a() * color_b();
}
`
	drv := gltest.NewRecordDriver()
	p, err := glprog.NewProgram(drv, vmain, fmainTwo)
	if err != nil {
		t.Fatal(err)
	}
	for _, hook := range []string{"color_a", "color_b"} {
		fn, err := colorTmpl.Bind(hook, map[string]glprog.Role{
			"rgba": glprog.Var(glprog.Uniform, glprog.Vec4, "shade"),
		})
		if err != nil {
			t.Fatal(err)
		}
		if err := fn.Set("shade", [4]float32{1, 1, 1, 1}); err != nil {
			t.Fatal(err)
		}
		if err := p.SetHook(hook, fn); err != nil {
			t.Fatal(err)
		}
	}
	pos, err := posTmpl.Bind("local_position", map[string]glprog.Role{
		"xy_pos": glprog.Var(glprog.Attribute, glprog.Vec2, "input_xy_pos"),
		"z_pos":  glprog.Var(glprog.Uniform, glprog.Float, "input_z_pos"),
	})
	if err != nil {
		t.Fatal(err)
	}
	tr, err := identTmpl.Bind("map_local_to_nd", nil)
	if err != nil {
		t.Fatal(err)
	}
	if err := p.SetHook("local_position", pos); err != nil {
		t.Fatal(err)
	}
	if err := p.SetHook("map_local_to_nd", tr); err != nil {
		t.Fatal(err)
	}
	_, fsrc, err := p.Sources()
	if err != nil {
		t.Fatal(err)
	}
	for _, decl := range []string{"vec4 color_a(void)", "vec4 color_b(void)"} {
		if n := strings.Count(fsrc, decl); n != 2 { // forward declaration + definition
			t.Errorf("want 2 occurrences of %q, got %d in\n%s", decl, n, fsrc)
		}
	}
	if n := strings.Count(fsrc, "uniform vec4 shade;"); n != 1 {
		t.Errorf("want exactly one shared uniform declaration, got %d in\n%s", n, fsrc)
	}
}

func TestVariableTypeConflictAcrossHooks(t *testing.T) {
	drv := gltest.NewRecordDriver()
	p, err := glprog.NewProgram(drv, vmain, fmain)
	if err != nil {
		t.Fatal(err)
	}
	bindFullProgram(t, p)
	// input_z_pos is linked as a float uniform by local_position; reusing
	// the name with another type must fail immediately at SetHook.
	color, err := colorTmpl.Bind("frag_color", map[string]glprog.Role{
		"rgba": glprog.Var(glprog.Uniform, glprog.Vec4, "input_z_pos"),
	})
	if err != nil {
		t.Fatal(err)
	}
	err = p.SetHook("frag_color", color)
	var mismatch *glprog.TypeMismatchError
	if !errors.As(err, &mismatch) {
		t.Fatalf("want TypeMismatchError, got %v", err)
	}
	if mismatch.Name != "input_z_pos" {
		t.Errorf("conflict on %q, want input_z_pos", mismatch.Name)
	}
	// The failed rebind must not clobber the previous valid binding.
	if err := p.Build(); err != nil {
		t.Errorf("program no longer buildable after rejected SetHook: %v", err)
	}
}

func TestCompileErrorCarriesSource(t *testing.T) {
	drv := gltest.NewRecordDriver()
	drv.FailCompile[glprog.FragmentStage] = "0:12(3): error: syntax error"
	p, err := glprog.NewProgram(drv, vmain, fmain)
	if err != nil {
		t.Fatal(err)
	}
	bindFullProgram(t, p)
	err = p.Draw(glprog.LineStrip)
	var compileErr *glprog.CompileError
	if !errors.As(err, &compileErr) {
		t.Fatalf("want CompileError, got %v", err)
	}
	if compileErr.Stage != glprog.FragmentStage {
		t.Errorf("failed stage %s, want fragment", compileErr.Stage)
	}
	if !strings.Contains(compileErr.Source, "frag_color") {
		t.Error("compile error does not carry the generated source")
	}
	if !strings.Contains(compileErr.Error(), "syntax error") {
		t.Error("compile error does not carry the driver diagnostics")
	}
	if got := p.State(); got == "compiled" {
		t.Error("failed build must leave the program uncompiled")
	}
	// Fix the driver and rebuild explicitly: no automatic retry happened.
	delete(drv.FailCompile, glprog.FragmentStage)
	if err := p.Draw(glprog.LineStrip); err != nil {
		t.Fatal(err)
	}
}

func TestLinkError(t *testing.T) {
	drv := gltest.NewRecordDriver()
	drv.FailLink = "varying frag_color_link0 not written by vertex shader"
	p, err := glprog.NewProgram(drv, vmain, fmain)
	if err != nil {
		t.Fatal(err)
	}
	bindFullProgram(t, p)
	err = p.Build()
	var linkErr *glprog.LinkError
	if !errors.As(err, &linkErr) {
		t.Fatalf("want LinkError, got %v", err)
	}
	if linkErr.Vertex == "" || linkErr.Fragment == "" {
		t.Error("link error does not carry both generated sources")
	}
}

func TestInvalidPrimitiveLeavesProgramIntact(t *testing.T) {
	drv := gltest.NewRecordDriver()
	p, err := glprog.NewProgram(drv, vmain, fmain)
	if err != nil {
		t.Fatal(err)
	}
	bindFullProgram(t, p) // 3 vertices staged.
	err = p.Draw(glprog.Lines)
	var invalid *glprog.InvalidPrimitiveError
	if !errors.As(err, &invalid) {
		t.Fatalf("want InvalidPrimitiveError, got %v", err)
	}
	if got := p.State(); got != "compiled" {
		t.Errorf("state %q after rejected draw, want compiled", got)
	}
	if err := p.Draw(glprog.LineStrip); err != nil {
		t.Errorf("valid draw after rejected primitive: %v", err)
	}
	if len(drv.Draws) != 1 {
		t.Errorf("want exactly one successful draw, got %d", len(drv.Draws))
	}
}

func TestConstantRoleFoldedIntoSource(t *testing.T) {
	drv := gltest.NewRecordDriver()
	p, err := glprog.NewProgram(drv, vmain, fmain)
	if err != nil {
		t.Fatal(err)
	}
	bindFullProgram(t, p)
	color, err := colorTmpl.Bind("frag_color", map[string]glprog.Role{
		"rgba": glprog.Var(glprog.Constant, glprog.Vec4, "base_color"),
	})
	if err != nil {
		t.Fatal(err)
	}
	if err := p.SetHook("frag_color", color); err != nil {
		t.Fatal(err)
	}
	// A constant with no staged value cannot be folded into the source.
	if _, _, err := p.Sources(); err == nil {
		t.Error("expected error generating source with unstaged constant")
	}
	if err := color.Set("base_color", [4]float32{1, 0.5, 0, 1}); err != nil {
		t.Fatal(err)
	}
	_, fsrc, err := p.Sources()
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(fsrc, "const vec4 base_color=vec4(1.0,0.5,0.0,1.0);") {
		t.Errorf("constant not folded as a const declaration:\n%s", fsrc)
	}
	if err := p.Draw(glprog.LineStrip); err != nil {
		t.Fatal(err)
	}
	// Constants live in the source, never in the uniform upload path.
	if _, ok := drv.Uniforms["base_color"]; ok {
		t.Error("constant uploaded as a uniform")
	}
}

func TestDrawUploadsStagedValues(t *testing.T) {
	drv := gltest.NewRecordDriver()
	p, err := glprog.NewProgram(drv, vmain, fmain)
	if err != nil {
		t.Fatal(err)
	}
	bindFullProgram(t, p)
	if err := p.Build(); err != nil {
		t.Fatal(err)
	}
	// Staging is deferred: nothing reaches the driver until the draw.
	if len(drv.Uniforms) != 0 || len(drv.Attribs) != 0 {
		t.Fatal("staged values uploaded before draw")
	}
	if err := p.Draw(glprog.LineStrip); err != nil {
		t.Fatal(err)
	}
	if got := drv.Uniforms["input_z_pos"]; got != float32(0) {
		t.Errorf("input_z_pos = %v, want 0", got)
	}
	if got := drv.Uniforms["input_color"]; got != ([4]float32{1, 1, 1, 1}) {
		t.Errorf("input_color = %v, want opaque white", got)
	}
	ab, ok := drv.Attribs["input_xy_pos"]
	if !ok || ab.Comps != 2 {
		t.Fatalf("input_xy_pos attribute binding missing or wrong arity: %+v", ab)
	}
	if len(drv.Buffers[ab.Buffer]) != 6 {
		t.Errorf("uploaded buffer has %d floats, want 6", len(drv.Buffers[ab.Buffer]))
	}
	if len(drv.Draws) != 1 || drv.Draws[0].Count != 3 || drv.Draws[0].Mode != glprog.LineStrip {
		t.Errorf("unexpected draw calls %+v", drv.Draws)
	}
	// Second draw reuses the uploaded buffer.
	if err := p.Draw(glprog.LineStrip); err != nil {
		t.Fatal(err)
	}
	if len(drv.Buffers) != 1 {
		t.Errorf("draw re-uploaded an unchanged buffer: %d buffers", len(drv.Buffers))
	}
}
