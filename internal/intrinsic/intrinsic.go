// Package intrinsic is the single source of truth for the built-in
// operator table spec.md §4.5 dispatches on: binding resolution seeds
// the module scope with these names, the inferencer specializes their
// call-site types, and the code generator lowers them to C before
// falling back to a general closure call.
package intrinsic

// Category groups intrinsics by which runtime facility they lower to.
type Category int

const (
	Arithmetic Category = iota
	Comparison
	Vector
	Autodiff
	SchemeCompat
)

// Spec describes one recognized intrinsic name.
type Spec struct {
	Name     string
	Category Category
}

var table = []Spec{
	{"+", Arithmetic}, {"-", Arithmetic}, {"*", Arithmetic}, {"/", Arithmetic},
	{"=", Comparison}, {"<", Comparison}, {">", Comparison}, {"<=", Comparison}, {">=", Comparison},

	{"vector", Vector}, {"v+", Vector}, {"v-", Vector}, {"v*", Vector},
	{"dot", Vector}, {"cross", Vector}, {"norm", Vector}, {"vector-ref", Vector},

	{"gradient", Autodiff}, {"divergence", Autodiff}, {"curl", Autodiff}, {"laplacian", Autodiff},
	{"autodiff-forward", Autodiff}, {"autodiff-reverse", Autodiff},
	{"autodiff-forward-gradient", Autodiff}, {"autodiff-reverse-gradient", Autodiff},
	{"autodiff-jacobian", Autodiff}, {"autodiff-hessian", Autodiff}, {"derivative", Autodiff},

	{"display", SchemeCompat}, {"newline", SchemeCompat}, {"string-append", SchemeCompat},
	{"number->string", SchemeCompat}, {"printf", SchemeCompat},
}

var byName map[string]Spec

func init() {
	byName = make(map[string]Spec, len(table))
	for _, s := range table {
		byName[s.Name] = s
	}
}

// Lookup reports whether name is a recognized intrinsic and its spec.
func Lookup(name string) (Spec, bool) {
	s, ok := byName[name]
	return s, ok
}

// Names returns every recognized intrinsic name, table order.
func Names() []string {
	names := make([]string, len(table))
	for i, s := range table {
		names[i] = s.Name
	}
	return names
}

// VectorScalarResult reports whether a Vector-category name yields a
// scalar (dot, norm, vector-ref) rather than a Vector(Float) (vector.h
// returns float for vector_f_dot/vector_f_magnitude/vector_f_get; the
// rest return VectorF).
func VectorScalarResult(name string) bool {
	return name == "dot" || name == "norm" || name == "vector-ref"
}
