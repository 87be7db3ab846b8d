package glprog

import "fmt"

// Instance is a Template bound to concrete variable roles plus a CPU-side
// value slot per variable. Values staged with Set are uploaded in batch when
// the owning program is drawn, never immediately.
type Instance struct {
	tmpl     *Template
	name     string
	roles    map[string]Role
	bindings []Binding // variable roles, template declaration order.
	ret      Type
	params   []Type

	values map[string]any
	bufIDs map[string]BufferID // attribute buffers uploaded by the owning program.

	// companion is the vertex-stage side of a two-stage function. It is
	// emitted through the master template's post_hook call site.
	companion *Instance
}

// Name returns the function name given at bind time.
func (f *Instance) Name() string { return f.name }

// Companion returns the vertex-stage side of a two-stage function, or nil.
func (f *Instance) Companion() *Instance { return f.companion }

// Bindings returns the instance's variable bindings in declaration order.
func (f *Instance) Bindings() []Binding {
	return append([]Binding{}, f.bindings...)
}

// Source renders the instance's GLSL function under funcName. An empty
// funcName renders under the bind-time name.
func (f *Instance) Source(funcName string) string {
	if funcName == "" {
		funcName = f.name
	}
	return f.tmpl.render(funcName, f.roles)
}

// Set stages a CPU value for the named variable. The value is uploaded on
// the next draw of the owning program; staging has no GPU side effect.
// Attributes take a *Buffer, uniforms take a scalar/vector/matrix value and
// constants take any value expressible as a GLSL literal.
func (f *Instance) Set(name string, value any) error {
	b, ok := f.binding(name)
	if !ok {
		if f.companion != nil {
			return f.companion.Set(name, value)
		}
		return fmt.Errorf("instance %q has no variable %q", f.name, name)
	}
	switch b.Class {
	case Attribute:
		buf, ok := value.(*Buffer)
		if ok && buf != nil && buf.Comps() != b.Type.components() {
			ok = false
		}
		if !ok {
			return fmt.Errorf("attribute %q requires a %d-component *Buffer, got %T", name, b.Type.components(), value)
		}
		delete(f.bufIDs, name) // force re-upload of restaged data.
	case Uniform, Constant:
		got, err := TypeOf(value)
		if err != nil {
			return fmt.Errorf("stage %q: %w", name, err)
		}
		if got != b.Type {
			return &TypeMismatchError{Name: name, Want: b.Type, Got: got}
		}
	default:
		return fmt.Errorf("cannot stage a value for %s %q", b.Class, name)
	}
	f.values[name] = value
	return nil
}

func (f *Instance) binding(name string) (Binding, bool) {
	for _, b := range f.bindings {
		if b.Name == name {
			return b, true
		}
	}
	return Binding{}, false
}

func (f *Instance) value(name string) (any, bool) {
	v, ok := f.values[name]
	return v, ok
}
