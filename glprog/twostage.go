package glprog

import (
	"fmt"
	"strconv"
)

// Link declares that a vertex-stage output variable and a fragment-stage
// input variable refer to the same underlying varying storage.
type Link struct {
	Type      Type
	VertexVar string
	FragVar   string
}

// TwoStage expresses a computation that spans both shader stages and shares
// state through varyings, such as forwarding a per-vertex color attribute to
// the fragment stage. Frag supplies the hook function; Vertex is a
// side-effect snippet emitted through the master template's post_hook call
// site. Each Link allocates exactly one varying declaration shared by both
// snippets.
type TwoStage struct {
	Frag   *Template
	Vertex *Template
	Links  []Link
}

// Bind resolves both snippets' roles and returns the fragment-stage
// instance carrying its vertex-stage companion. Linked variables must not be
// assigned conflicting roles; doing so fails with [LinkTypeError].
func (ts *TwoStage) Bind(name string, roles map[string]Role) (*Instance, error) {
	if ts.Frag == nil || ts.Vertex == nil {
		return nil, fmt.Errorf("two-stage bind %q: missing stage template", name)
	}
	linked := make(map[string]Type, 2*len(ts.Links))
	fragRoles := make(map[string]Role)
	vertRoles := make(map[string]Role)
	for i, l := range ts.Links {
		if !l.Type.valid() {
			return nil, fmt.Errorf("two-stage bind %q: link %d has invalid type %q", name, i, string(l.Type))
		}
		if prev, ok := linked[l.VertexVar]; ok && prev != l.Type {
			return nil, &LinkTypeError{VertexVar: l.VertexVar, FragVar: l.FragVar, Want: prev, Got: l.Type}
		}
		if prev, ok := linked[l.FragVar]; ok && prev != l.Type {
			return nil, &LinkTypeError{VertexVar: l.VertexVar, FragVar: l.FragVar, Want: prev, Got: l.Type}
		}
		linked[l.VertexVar] = l.Type
		linked[l.FragVar] = l.Type
		// One generated varying backs both ends of the pair.
		varying := Var(Varying, l.Type, name+"_link"+strconv.Itoa(i))
		vertRoles[l.VertexVar] = varying
		fragRoles[l.FragVar] = varying
	}
	for k, r := range roles {
		if want, ok := linked[k]; ok {
			if r.isLit || r.bind.Type != want {
				got := r.bind.Type
				if r.isLit {
					got = Type("literal")
				}
				return nil, &LinkTypeError{VertexVar: k, FragVar: k, Want: want, Got: got}
			}
			continue // redundant role for a linked variable, varying wins.
		}
		inFrag := ts.Frag.declares(k)
		inVert := ts.Vertex.declares(k)
		if !inFrag && !inVert {
			return nil, fmt.Errorf("two-stage bind %q: role %q is not declared by either stage template", name, k)
		}
		if inFrag {
			fragRoles[k] = r
		}
		if inVert {
			vertRoles[k] = r
		}
	}
	vert, err := ts.Vertex.Bind(name+"_vert", vertRoles)
	if err != nil {
		return nil, err
	}
	frag, err := ts.Frag.Bind(name, fragRoles)
	if err != nil {
		return nil, err
	}
	frag.companion = vert
	return frag, nil
}
