package codegen

import "github.com/eskemec-lang/eskemec/internal/types"

// ctype renders a solved Type as the C type used to store it: ground
// types map to the obvious C primitive, Vector(Float) to the opaque
// runtime VectorF*, Function to the generic closure descriptor, and
// Unknown (gradual, no static shape) to void*.
func ctype(t types.Type) string {
	switch v := t.(type) {
	case *types.Ground:
		switch v.Kind {
		case types.Integer:
			return "int64_t"
		case types.Float:
			return "double"
		case types.Bool:
			return "bool"
		case types.String:
			return "const char*"
		case types.Char:
			return "char"
		case types.Symbol:
			return "const char*"
		case types.Void:
			return "void"
		}
		return "void*"
	case *types.Unknown:
		return "void*"
	case *types.Vector:
		return "VectorF*"
	case *types.Matrix:
		return "VectorF**"
	case *types.Function:
		return "Closure*"
	case *types.Pair:
		// No cons-cell runtime type is named in the header contract;
		// pairs only ever appear as quoted data in practice, never as a
		// general runtime value, so the erased representation suffices.
		return "void*"
	default:
		return "void*"
	}
}

// zeroValue renders the C zero-initializer literal for t, used for
// letrec placeholder slots before their real value is computed.
func zeroValue(t types.Type) string {
	switch ctype(t) {
	case "bool":
		return "false"
	case "int64_t":
		return "0"
	case "double":
		return "0.0"
	case "char":
		return "0"
	default:
		return "0" // pointer types: NULL is 0 in every C implementation we target
	}
}
