package glprog

import (
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"
)

const versionStr = "#version 330 core\n"

// postHookName is the optional vertex-stage hook used to chain side-effect
// snippets such as the vertex half of a two-stage function. When the master
// vertex template declares it, Build synthesizes its body from all chained
// snippets; binding it explicitly is allowed but not required.
const postHookName = "post_hook"

// hook is a fixed-signature call site declared in a master template. It must
// be filled by a bound function instance before the program can build.
type hook struct {
	name     string
	stage    Stage
	ret      Type
	params   []Type
	optional bool
}

// buildState is the explicit program lifecycle: unbuilt -> hooks-bound ->
// compiled, returning to unbuilt on any invalidation.
type buildState uint8

const (
	stateUnbuilt buildState = iota
	stateHooksBound
	stateCompiled
)

func (s buildState) String() string {
	switch s {
	case stateUnbuilt:
		return "unbuilt"
	case stateHooksBound:
		return "hooks-bound"
	case stateCompiled:
		return "compiled"
	}
	return "state(invalid)"
}

// Program owns a master vertex and fragment template with unresolved hook
// call sites. Bound function instances are stitched together with their
// storage declarations into one source per stage, compiled and linked
// through the Driver, and cached until invalidated. Programs are not safe
// for concurrent use; one render thread drives the whole
// invalidate -> rebuild -> draw cycle.
type Program struct {
	drv   Driver
	vmain string
	fmain string

	hooks     map[string]*hook
	hookOrder []string
	bound     map[string]*Instance

	state  buildState
	handle ProgramID
	vsrc   string
	fsrc   string
}

// NewProgram parses the hook forward declarations of both master templates.
// Hook names must be unique across stages.
func NewProgram(drv Driver, vmain, fmain string) (*Program, error) {
	if drv == nil {
		return nil, errors.New("nil driver")
	}
	p := &Program{
		drv:   drv,
		vmain: vmain,
		fmain: fmain,
		hooks: make(map[string]*hook),
		bound: make(map[string]*Instance),
	}
	if err := p.parseHooks(VertexStage, vmain); err != nil {
		return nil, err
	}
	if err := p.parseHooks(FragmentStage, fmain); err != nil {
		return nil, err
	}
	if len(p.hooks) == 0 {
		return nil, errors.New("master templates declare no hooks")
	}
	return p, nil
}

// parseHooks scans master for forward declarations of the form
// "ret name(args);". Declarations always precede the first function body, so
// scanning stops at the first opening brace; this keeps hook call statements
// inside main from being mistaken for declarations.
func (p *Program) parseHooks(stage Stage, master string) error {
	if body := strings.IndexByte(master, '{'); body >= 0 {
		master = master[:body]
	}
	for _, line := range strings.Split(master, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || strings.HasPrefix(line, "//") || strings.HasPrefix(line, "#") {
			continue
		}
		if !strings.HasSuffix(line, ";") || !strings.Contains(line, "(") || strings.ContainsAny(line, "{}=") {
			continue
		}
		ret, name, params, err := parseSignature(strings.TrimSuffix(line, ";"))
		if err != nil {
			return fmt.Errorf("%s master template %q: %w", stage, line, err)
		}
		if name == "main" {
			continue
		}
		if _, exists := p.hooks[name]; exists {
			return fmt.Errorf("hook %q declared more than once in master templates", name)
		}
		p.hooks[name] = &hook{
			name:     name,
			stage:    stage,
			ret:      ret,
			params:   params,
			optional: name == postHookName && stage == VertexStage,
		}
		p.hookOrder = append(p.hookOrder, name)
	}
	return nil
}

// State reports the program lifecycle state: "unbuilt", "hooks-bound" or "compiled".
func (p *Program) State() string { return p.state.String() }

// SetHook binds fn to the named hook, overwriting any prior binding, and
// invalidates the compiled handle. Binding-time errors (unknown hook,
// signature mismatch, storage conflicts) surface here, never at draw time.
func (p *Program) SetHook(hookName string, fn *Instance) error {
	h, ok := p.hooks[hookName]
	if !ok {
		return &UnknownHookError{Hook: hookName}
	}
	if fn == nil {
		return fmt.Errorf("hook %q: nil function instance", hookName)
	}
	if fn.ret != h.ret || !slices.Equal(fn.params, h.params) {
		return fmt.Errorf("hook %q: bound function signature %s does not match declared %s",
			hookName, signatureString(fn.ret, fn.params), signatureString(h.ret, h.params))
	}
	if fn.companion != nil {
		if _, ok := p.hooks[postHookName]; !ok {
			return fmt.Errorf("hook %q: two-stage function requires a %s call site in the vertex master template", hookName, postHookName)
		}
		if fn.companion.ret != Void || len(fn.companion.params) != 0 {
			return fmt.Errorf("hook %q: vertex-stage companion must have signature void(), got %s",
				hookName, signatureString(fn.companion.ret, fn.companion.params))
		}
	}
	if err := p.checkVars(hookName, fn); err != nil {
		return err
	}
	p.bound[hookName] = fn
	p.invalidate()
	return nil
}

// Invalidate discards the compiled handle, forcing a rebuild on next draw.
func (p *Program) Invalidate() { p.invalidate() }

func (p *Program) invalidate() {
	p.handle = 0
	if len(p.missingHooks()) == 0 {
		p.state = stateHooksBound
	} else {
		p.state = stateUnbuilt
	}
}

func (p *Program) missingHooks() (missing []string) {
	for _, name := range p.hookOrder {
		if p.hooks[name].optional {
			continue
		}
		if _, ok := p.bound[name]; !ok {
			missing = append(missing, name)
		}
	}
	return missing
}

// checkVars rebuilds the program-wide variable name table with fn replacing
// whatever is bound to hookName, and rejects storage conflicts.
func (p *Program) checkVars(hookName string, fn *Instance) error {
	vars := make(map[string]Binding)
	merge := func(stage Stage, in *Instance) error {
		for in != nil {
			for _, b := range in.bindings {
				if b.Class == Attribute && stage == FragmentStage {
					return fmt.Errorf("attribute %q referenced from fragment stage", b.Name)
				}
				prev, exists := vars[b.Name]
				if exists && (prev.Type != b.Type || prev.Class != b.Class) {
					return &TypeMismatchError{Name: b.Name, Want: prev.Type, Got: b.Type}
				}
				vars[b.Name] = b
			}
			in = in.companion
			stage = VertexStage
		}
		return nil
	}
	for _, name := range p.hookOrder {
		if name == hookName {
			continue
		}
		if bound, ok := p.bound[name]; ok {
			if err := merge(p.hooks[name].stage, bound); err != nil {
				return err
			}
		}
	}
	return merge(p.hooks[hookName].stage, fn)
}

// namedInstance pairs an instance with the final function name it is emitted
// under. Final names derive from the hook name so that instances of one
// template never collide inside a program.
type namedInstance struct {
	emitName string
	fn       *Instance
}

// stageInstances returns the instances emitted into stage in deterministic
// hook-declaration order. For the vertex stage this includes the post_hook
// chain: the explicitly bound post instance (if any) followed by the vertex
// companions of every bound two-stage function.
func (p *Program) stageInstances(stage Stage) (list []namedInstance, postChain []namedInstance) {
	for _, name := range p.hookOrder {
		h := p.hooks[name]
		fn, ok := p.bound[name]
		if !ok {
			continue
		}
		if h.stage == stage && name != postHookName {
			list = append(list, namedInstance{emitName: name, fn: fn})
		}
	}
	if stage != VertexStage {
		return list, nil
	}
	if fn, ok := p.bound[postHookName]; ok {
		postChain = append(postChain, namedInstance{fn: fn})
	}
	for _, name := range p.hookOrder {
		if fn, ok := p.bound[name]; ok && fn.companion != nil {
			postChain = append(postChain, namedInstance{fn: fn.companion})
		}
	}
	for i := range postChain {
		postChain[i].emitName = postHookName + "_" + strconv.Itoa(i)
	}
	return list, postChain
}

// generate stitches declarations, bound function sources and the master
// template into the final source for one stage.
func (p *Program) generate(stage Stage) (string, error) {
	master := p.vmain
	if stage == FragmentStage {
		master = p.fmain
	}
	list, postChain := p.stageInstances(stage)
	all := append(append([]namedInstance{}, list...), postChain...)

	b := make([]byte, 0, 1024)
	b = append(b, versionStr...)
	b = append(b, '\n')
	// Storage declarations, deduplicated program-wide by generated name so
	// linked varying pairs resolve to a single declaration.
	seen := make(map[string]bool)
	var err error
	for _, ni := range all {
		for _, bnd := range ni.fn.bindings {
			if seen[bnd.Name] {
				continue
			}
			seen[bnd.Name] = true
			if bnd.Class == Constant {
				v, ok := ni.fn.value(bnd.Name)
				if !ok {
					return "", fmt.Errorf("constant %q has no staged value", bnd.Name)
				}
				b, err = appendConstDecl(b, bnd, v)
				if err != nil {
					return "", err
				}
				continue
			}
			b = appendVarDecl(b, stage, bnd)
		}
	}
	b = append(b, '\n')
	for _, ni := range all {
		b = append(b, strings.TrimSpace(ni.fn.Source(ni.emitName))...)
		b = append(b, '\n', '\n')
	}
	if stage == VertexStage {
		if _, ok := p.hooks[postHookName]; ok {
			b = append(b, "void "...)
			b = append(b, postHookName...)
			b = append(b, "(void) {\n"...)
			for _, ni := range postChain {
				b = append(b, '\t')
				b = append(b, ni.emitName...)
				b = append(b, "();\n"...)
			}
			b = append(b, "}\n\n"...)
		}
	}
	b = append(b, strings.TrimSpace(master)...)
	b = append(b, '\n')
	return string(b), nil
}

// Sources generates both stage sources without compiling them. Fails with
// [IncompleteProgramError] when a required hook is unbound.
func (p *Program) Sources() (vertex, fragment string, err error) {
	if missing := p.missingHooks(); len(missing) > 0 {
		return "", "", &IncompleteProgramError{Missing: missing}
	}
	vertex, err = p.generate(VertexStage)
	if err != nil {
		return "", "", err
	}
	fragment, err = p.generate(FragmentStage)
	if err != nil {
		return "", "", err
	}
	return vertex, fragment, nil
}

// Build generates, compiles and links the program. Calling Build on a
// compiled program is a no-op returning the cached handle. A failed build
// leaves the program unbuilt; the caller must correct the binding and
// trigger a rebuild.
func (p *Program) Build() error {
	if p.state == stateCompiled {
		return nil
	}
	vsrc, fsrc, err := p.Sources()
	if err != nil {
		return err
	}
	p.vsrc, p.fsrc = vsrc, fsrc
	vs, err := p.drv.CompileShader(VertexStage, vsrc)
	if err != nil {
		return &CompileError{Stage: VertexStage, Log: err.Error(), Source: vsrc}
	}
	fs, err := p.drv.CompileShader(FragmentStage, fsrc)
	if err != nil {
		return &CompileError{Stage: FragmentStage, Log: err.Error(), Source: fsrc}
	}
	handle, err := p.drv.LinkProgram(vs, fs)
	if err != nil {
		return &LinkError{Log: err.Error(), Vertex: vsrc, Fragment: fsrc}
	}
	p.handle = handle
	p.state = stateCompiled
	return nil
}

// Handle returns the compiled program handle, zero when not compiled.
func (p *Program) Handle() ProgramID { return p.handle }

// Draw builds the program if needed, uploads every staged uniform and
// attribute value from all bound instances and issues the draw call. The
// vertex count is the smallest record count over all bound attributes.
func (p *Program) Draw(mode Primitive) error {
	if err := p.Build(); err != nil {
		return err
	}
	vlist, postChain := p.stageInstances(VertexStage)
	flist, _ := p.stageInstances(FragmentStage)
	count := -1
	for _, ni := range append(append(vlist, postChain...), flist...) {
		n, err := p.upload(ni)
		if err != nil {
			return err
		}
		if n >= 0 && (count < 0 || n < count) {
			count = n
		}
	}
	if count < 0 {
		return errors.New("draw: no vertex attributes bound")
	}
	err := p.drv.Draw(p.handle, mode, count)
	var invalid *InvalidPrimitiveError
	if errors.As(err, &invalid) {
		return err
	} else if err != nil {
		return fmt.Errorf("draw: %w", err)
	}
	return nil
}

// upload stages ni's values on the GPU and returns the smallest attribute
// record count seen, -1 when ni binds no attributes.
func (p *Program) upload(ni namedInstance) (count int, err error) {
	count = -1
	fn := ni.fn
	for _, bnd := range fn.bindings {
		switch bnd.Class {
		case Uniform:
			v, ok := fn.value(bnd.Name)
			if !ok {
				return count, fmt.Errorf("uniform %q of function %q has no staged value", bnd.Name, fn.name)
			}
			if err := p.drv.SetUniform(p.handle, bnd.Name, v); err != nil {
				return count, fmt.Errorf("upload uniform %q: %w", bnd.Name, err)
			}
		case Attribute:
			v, ok := fn.value(bnd.Name)
			if !ok {
				return count, fmt.Errorf("attribute %q of function %q has no staged buffer", bnd.Name, fn.name)
			}
			buf := v.(*Buffer)
			id, ok := fn.bufIDs[bnd.Name]
			if !ok {
				id, err = p.drv.CreateBuffer(buf.Floats())
				if err != nil {
					return count, fmt.Errorf("upload attribute %q: %w", bnd.Name, err)
				}
				fn.bufIDs[bnd.Name] = id
			}
			if err := p.drv.BindAttribute(p.handle, bnd.Name, id, buf.Comps()); err != nil {
				return count, fmt.Errorf("bind attribute %q: %w", bnd.Name, err)
			}
			if count < 0 || buf.Len() < count {
				count = buf.Len()
			}
		}
	}
	return count, nil
}
