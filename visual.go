// Package glvis draws visuals whose shader programs are assembled at
// runtime from small hook-bound function fragments. A visual declares what
// computation it needs (position mapping, coordinate transform, color
// source) and the glprog composition engine stitches the bound pieces into
// one linked vertex/fragment pipeline per draw configuration.
package glvis

// Visual is a drawable element that owns its geometry data, its shader
// program and all GPU staging derived from them.
type Visual interface {
	// Paint ensures the visual's program is built and issues its draw call.
	// Painting with no data set is a no-op.
	Paint() error
}

// Master shader templates shared by all visuals. The forward declarations
// are the hook contract: every hook must be filled by a bound function
// instance before the program can compile. post_hook is optional and chains
// vertex-stage side effects such as varying writes.
const (
	vertexMain = `
// local_position returns the current vertex position in the visual's local
// coordinate system.
vec4 local_position(void);

// map_local_to_nd transforms from the visual's local coordinate system to
// normalized device coordinates.
vec4 map_local_to_nd(vec4);

// generic hook for executing code after the vertex position has been set.
void post_hook(void);

void main(void) {
    vec4 local_pos = local_position();
    vec4 nd_pos = map_local_to_nd(local_pos);
    gl_Position = nd_pos;
    post_hook();
}
`

	fragmentMain = `
// frag_color returns the color for this fragment.
vec4 frag_color(void);

out vec4 fragColor;

void main(void) {
    fragColor = frag_color();
}
`
)
