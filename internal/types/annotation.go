package types

import "github.com/eskemec-lang/eskemec/internal/ast"

// FromAnnotation converts a source-level type annotation into the
// inferencer's Type; nil (unannotated) becomes Unknown rather than a
// fresh variable, since a missing annotation is gradual, not
// inference-pending in the caller's sense (callers that want a fresh
// variable for an absent annotation check for nil before calling this).
func FromAnnotation(ann ast.TypeAnnotation) Type {
	switch v := ann.(type) {
	case nil:
		return TypeUnknown
	case *ast.IntegerAnnotation:
		return TypeInteger
	case *ast.FloatAnnotation:
		return TypeFloat
	case *ast.BoolAnnotation:
		return TypeBool
	case *ast.StringAnnotation:
		return TypeString
	case *ast.CharAnnotation:
		return TypeChar
	case *ast.SymbolAnnotation:
		return TypeSymbol
	case *ast.VoidAnnotation:
		return TypeVoid
	case *ast.UnknownAnnotation:
		return TypeUnknown
	case *ast.PairAnnotation:
		return &Pair{Car: FromAnnotation(v.Car), Cdr: FromAnnotation(v.Cdr)}
	case *ast.VectorAnnotation:
		return &Vector{Elem: FromAnnotation(v.Element)}
	case *ast.FunctionAnnotation:
		params := make([]Type, len(v.Params))
		for i, p := range v.Params {
			params[i] = FromAnnotation(p)
		}
		return &Function{Params: params, Return: FromAnnotation(v.Return)}
	default:
		return TypeUnknown
	}
}
