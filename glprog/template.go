package glprog

import (
	"errors"
	"fmt"
	"strings"
)

// funcNamePlaceholder is reserved in every template for the function name
// chosen at bind time. It must not appear in the declared variable list.
const funcNamePlaceholder = "func_name"

// Template is an immutable shader-source snippet with $name placeholders.
// The text is parsed once into alternating literal and placeholder segments
// so that binding is a pure substitution over the segment list rather than
// repeated string splicing. A template is reusable across many binds.
type Template struct {
	src  string
	vars []string
	segs []segment
}

// segment is one piece of parsed template text. name is empty for literals.
type segment struct {
	lit  string
	name string
}

// NewTemplate parses src and declares vars as its bindable placeholders.
// Every declared variable must appear at least once in the text and every
// $placeholder in the text must be declared (or be $func_name).
func NewTemplate(src string, vars ...string) (*Template, error) {
	declared := make(map[string]bool, len(vars)+1)
	declared[funcNamePlaceholder] = true
	for _, v := range vars {
		if v == "" || v == funcNamePlaceholder {
			return nil, fmt.Errorf("template declares reserved or empty variable %q", v)
		} else if declared[v] {
			return nil, fmt.Errorf("template declares variable %q twice", v)
		}
		declared[v] = true
	}
	t := &Template{src: src, vars: vars}
	seen := make(map[string]bool)
	lit := 0
	for i := 0; i < len(src); {
		if src[i] != '$' {
			i++
			continue
		}
		name := placeholderAt(src[i+1:])
		if name == "" {
			return nil, fmt.Errorf("stray $ at offset %d of template", i)
		}
		if !declared[name] {
			return nil, fmt.Errorf("template references undeclared placeholder $%s", name)
		}
		if i > lit {
			t.segs = append(t.segs, segment{lit: src[lit:i]})
		}
		t.segs = append(t.segs, segment{name: name})
		seen[name] = true
		i += 1 + len(name)
		lit = i
	}
	if lit < len(src) {
		t.segs = append(t.segs, segment{lit: src[lit:]})
	}
	if !seen[funcNamePlaceholder] {
		return nil, errors.New("template has no $func_name placeholder")
	}
	for _, v := range vars {
		if !seen[v] {
			return nil, fmt.Errorf("declared variable %q does not appear in template", v)
		}
	}
	return t, nil
}

// MustTemplate is NewTemplate that panics on error. For package-level template variables.
func MustTemplate(src string, vars ...string) *Template {
	t, err := NewTemplate(src, vars...)
	if err != nil {
		panic(err)
	}
	return t
}

// placeholderAt returns the identifier starting at s, or "" if s does not
// start with an identifier character.
func placeholderAt(s string) string {
	n := 0
	for n < len(s) && (isAlpha(s[n]) || s[n] == '_' || (n > 0 && isDigit(s[n]))) {
		n++
	}
	return s[:n]
}

func isAlpha(c byte) bool { return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z' }
func isDigit(c byte) bool { return c >= '0' && c <= '9' }

// Vars returns the declared placeholder names in declaration order.
func (t *Template) Vars() []string {
	return append([]string{}, t.vars...)
}

// Bind resolves every declared placeholder to a role and returns the
// resulting function instance. name fills $func_name and is the instance's
// default function name; the owning program may emit it under a final name
// derived from the hook it fills. Bind never mutates the template.
func (t *Template) Bind(name string, roles map[string]Role) (*Instance, error) {
	if name == "" {
		return nil, errors.New("bind requires a function name")
	}
	for _, v := range t.vars {
		if _, ok := roles[v]; !ok {
			return nil, &UnboundPlaceholderError{Func: name, Placeholder: v}
		}
	}
	for k := range roles {
		if !t.declares(k) {
			return nil, fmt.Errorf("bind %q: role %q is not declared by the template", name, k)
		}
	}
	f := &Instance{
		tmpl:   t,
		name:   name,
		roles:  make(map[string]Role, len(roles)),
		values: make(map[string]any),
		bufIDs: make(map[string]BufferID),
	}
	for _, v := range t.vars {
		r := roles[v]
		if !r.isLit {
			if err := r.bind.validate(); err != nil {
				return nil, fmt.Errorf("bind %q: %w", name, err)
			}
			f.bindings = append(f.bindings, r.bind)
		}
		f.roles[v] = r
	}
	var err error
	f.ret, _, f.params, err = parseSignature(f.Source(""))
	if err != nil {
		return nil, fmt.Errorf("bind %q: %w", name, err)
	}
	return f, nil
}

func (t *Template) declares(name string) bool {
	for _, v := range t.vars {
		if v == name {
			return true
		}
	}
	return false
}

// render substitutes placeholders using roles and writes the function under funcName.
func (t *Template) render(funcName string, roles map[string]Role) string {
	b := make([]byte, 0, len(t.src)+32)
	for _, s := range t.segs {
		switch {
		case s.name == "":
			b = append(b, s.lit...)
		case s.name == funcNamePlaceholder:
			b = append(b, funcName...)
		default:
			b = append(b, roles[s.name].text()...)
		}
	}
	return string(b)
}

// parseSignature extracts the return type, name and parameter types of the
// first function declared in src. A sole "void" parameter is equivalent to
// an empty parameter list.
func parseSignature(src string) (ret Type, name string, params []Type, err error) {
	src = strings.TrimSpace(src)
	open := strings.IndexByte(src, '(')
	if open < 0 {
		return "", "", nil, errors.New("no function declaration found")
	}
	head := strings.Fields(src[:open])
	if len(head) < 2 {
		return "", "", nil, errors.New("unable to parse function return type and name")
	}
	ret = Type(head[0])
	name = head[len(head)-1]
	closing := strings.IndexByte(src[open:], ')')
	if closing < 0 {
		return "", "", nil, errors.New("unterminated parameter list")
	}
	list := strings.TrimSpace(src[open+1 : open+closing])
	if list == "" || list == "void" {
		return ret, name, nil, nil
	}
	for _, param := range strings.Split(list, ",") {
		words := strings.Fields(param)
		if len(words) == 0 {
			return "", "", nil, errors.New("empty parameter in list")
		}
		params = append(params, Type(words[0]))
	}
	return ret, name, params, nil
}

// signatureString formats a signature for error messages.
func signatureString(ret Type, params []Type) string {
	var sb strings.Builder
	sb.WriteString(string(ret))
	sb.WriteByte('(')
	for i, p := range params {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString(string(p))
	}
	sb.WriteByte(')')
	return sb.String()
}
