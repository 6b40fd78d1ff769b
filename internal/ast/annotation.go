package ast

// TypeAnnotation is the sum type for source-level type syntax (spec.md
// §3): ground types, Unknown, and the composite forms Pair/Vector/
// Function. A type-variable placeholder belongs to internal/types, not
// here, since it only exists during inference, never in source syntax.
type TypeAnnotation interface {
	annotationNode()
}

type (
	IntegerAnnotation struct{}
	FloatAnnotation   struct{}
	BoolAnnotation    struct{}
	StringAnnotation  struct{}
	CharAnnotation    struct{}
	SymbolAnnotation  struct{}
	VoidAnnotation    struct{}
	UnknownAnnotation struct{}

	PairAnnotation struct {
		Car, Cdr TypeAnnotation
	}
	VectorAnnotation struct {
		Element TypeAnnotation
	}
	FunctionAnnotation struct {
		Params []TypeAnnotation
		Return TypeAnnotation
	}
)

func (*IntegerAnnotation) annotationNode() {}
func (*FloatAnnotation) annotationNode()   {}
func (*BoolAnnotation) annotationNode()    {}
func (*StringAnnotation) annotationNode()  {}
func (*CharAnnotation) annotationNode()    {}
func (*SymbolAnnotation) annotationNode()  {}
func (*VoidAnnotation) annotationNode()    {}
func (*UnknownAnnotation) annotationNode() {}
func (*PairAnnotation) annotationNode()    {}
func (*VectorAnnotation) annotationNode()  {}
func (*FunctionAnnotation) annotationNode() {}

// ParseAnnotationName maps a bare type-name identifier to its ground
// annotation, or nil if name isn't one of the atomic spellings (the
// caller then tries the composite forms `pair`, `vector`, `->`).
func ParseAnnotationName(name string) TypeAnnotation {
	switch name {
	case "integer":
		return &IntegerAnnotation{}
	case "float":
		return &FloatAnnotation{}
	case "bool":
		return &BoolAnnotation{}
	case "string":
		return &StringAnnotation{}
	case "char":
		return &CharAnnotation{}
	case "symbol":
		return &SymbolAnnotation{}
	case "void":
		return &VoidAnnotation{}
	case "unknown":
		return &UnknownAnnotation{}
	default:
		return nil
	}
}
