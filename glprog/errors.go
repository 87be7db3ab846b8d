package glprog

import (
	"fmt"
	"strings"
)

// UnboundPlaceholderError reports a declared template variable that was given
// no role assignment when binding.
type UnboundPlaceholderError struct {
	Func        string // function name passed to Bind.
	Placeholder string
}

func (e *UnboundPlaceholderError) Error() string {
	return fmt.Sprintf("bind %q: placeholder $%s has no role assignment", e.Func, e.Placeholder)
}

// TypeMismatchError reports a variable whose declared type or storage class
// conflicts with a previous use of the same generated name in the program, or
// a staged value whose CPU type does not match the variable's GLSL type.
type TypeMismatchError struct {
	Name string
	Want Type
	Got  Type
}

func (e *TypeMismatchError) Error() string {
	return fmt.Sprintf("variable %q: type %s conflicts with previously linked type %s", e.Name, e.Got, e.Want)
}

// LinkTypeError reports a two-stage function whose linked vertex output and
// fragment input do not agree on one varying type.
type LinkTypeError struct {
	VertexVar string
	FragVar   string
	Want      Type
	Got       Type
}

func (e *LinkTypeError) Error() string {
	return fmt.Sprintf("linked pair (%s -> %s): type %s does not match varying type %s", e.VertexVar, e.FragVar, e.Got, e.Want)
}

// UnknownHookError reports a SetHook call naming a hook the master templates
// never declare.
type UnknownHookError struct {
	Hook string
}

func (e *UnknownHookError) Error() string {
	return fmt.Sprintf("hook %q not declared in master shader templates", e.Hook)
}

// IncompleteProgramError reports a build attempt with unbound hooks.
type IncompleteProgramError struct {
	Missing []string
}

func (e *IncompleteProgramError) Error() string {
	return "program not buildable, unbound hooks: " + strings.Join(e.Missing, ", ")
}

// CompileError carries the driver diagnostics together with the full
// generated source, which the caller never sees otherwise.
type CompileError struct {
	Stage  Stage
	Log    string
	Source string
}

func (e *CompileError) Error() string {
	return fmt.Sprintf("%s shader compile failed: %s\ngenerated source:\n%s", e.Stage, e.Log, e.Source)
}

// LinkError reports a program link failure with both generated sources.
type LinkError struct {
	Log      string
	Vertex   string
	Fragment string
}

func (e *LinkError) Error() string {
	return fmt.Sprintf("program link failed: %s\nvertex source:\n%s\nfragment source:\n%s", e.Log, e.Vertex, e.Fragment)
}

// InvalidPrimitiveError reports a draw call whose topology is rejected by the
// graphics layer given the current vertex data arity. The program remains
// compiled; a subsequent draw with a valid primitive is unaffected.
type InvalidPrimitiveError struct {
	Primitive Primitive
	Count     int
	Reason    string
}

func (e *InvalidPrimitiveError) Error() string {
	return fmt.Sprintf("cannot draw %s with %d vertices: %s", e.Primitive, e.Count, e.Reason)
}
