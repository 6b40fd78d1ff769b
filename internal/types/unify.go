package types

import "fmt"

// Substitute walks t, replacing every Var bound in subst with its
// solved type, recursively through composite types.
func Substitute(t Type, subst map[int]Type) Type {
	if t == nil {
		return nil
	}
	switch v := t.(type) {
	case *Var:
		if repl, ok := subst[v.ID]; ok {
			return Substitute(repl, subst)
		}
		return v
	case *Pair:
		return &Pair{Car: Substitute(v.Car, subst), Cdr: Substitute(v.Cdr, subst)}
	case *Vector:
		return &Vector{Elem: Substitute(v.Elem, subst)}
	case *Matrix:
		return &Matrix{Elem: Substitute(v.Elem, subst)}
	case *Function:
		params := make([]Type, len(v.Params))
		for i, p := range v.Params {
			params[i] = Substitute(p, subst)
		}
		return &Function{Params: params, Return: Substitute(v.Return, subst)}
	default:
		return t
	}
}

// occurs reports whether var id appears free anywhere inside t (after
// substitution), guarding against infinite types.
func occurs(id int, t Type, subst map[int]Type) bool {
	switch v := Substitute(t, subst).(type) {
	case *Var:
		return v.ID == id
	case *Pair:
		return occurs(id, v.Car, subst) || occurs(id, v.Cdr, subst)
	case *Vector:
		return occurs(id, v.Elem, subst)
	case *Matrix:
		return occurs(id, v.Elem, subst)
	case *Function:
		for _, p := range v.Params {
			if occurs(id, p, subst) {
				return true
			}
		}
		return occurs(id, v.Return, subst)
	default:
		return false
	}
}

// MismatchError carries both solved sides of a failed unification, for
// a TypeMismatch diagnostic (spec.md §4.4).
type MismatchError struct {
	Left, Right Type
}

func (e *MismatchError) Error() string {
	return fmt.Sprintf("cannot unify %s with %s", e.Left, e.Right)
}

// OccursError reports an infinite type (spec.md §7, AmbiguousType-
// adjacent but structurally distinct: a var unifying with a type that
// contains itself).
type OccursError struct {
	Var Type
	In  Type
}

func (e *OccursError) Error() string {
	return fmt.Sprintf("occurs check failed: %s occurs in %s", e.Var, e.In)
}

// Unify solves t1 ~ t2 against subst in place. Unknown absorbs either
// side without binding a variable (gradual typing, spec.md §4.4); a
// bind that would create an infinite type fails with OccursError;
// anything else that doesn't structurally match fails with
// MismatchError.
func Unify(t1, t2 Type, subst map[int]Type) error {
	t1 = Substitute(t1, subst)
	t2 = Substitute(t2, subst)

	if _, ok := t1.(*Unknown); ok {
		return nil
	}
	if _, ok := t2.(*Unknown); ok {
		return nil
	}

	if v, ok := t1.(*Var); ok {
		if v2, ok2 := t2.(*Var); ok2 && v2.ID == v.ID {
			return nil
		}
		return bind(v.ID, t2, subst)
	}
	if v, ok := t2.(*Var); ok {
		return bind(v.ID, t1, subst)
	}

	switch a := t1.(type) {
	case *Ground:
		if b, ok := t2.(*Ground); ok && a.Kind == b.Kind {
			return nil
		}
	case *Pair:
		if b, ok := t2.(*Pair); ok {
			if err := Unify(a.Car, b.Car, subst); err != nil {
				return err
			}
			return Unify(a.Cdr, b.Cdr, subst)
		}
	case *Vector:
		if b, ok := t2.(*Vector); ok {
			return Unify(a.Elem, b.Elem, subst)
		}
	case *Matrix:
		if b, ok := t2.(*Matrix); ok {
			return Unify(a.Elem, b.Elem, subst)
		}
	case *Function:
		if b, ok := t2.(*Function); ok {
			if len(a.Params) != len(b.Params) {
				return &MismatchError{Left: t1, Right: t2}
			}
			for i := range a.Params {
				if err := Unify(a.Params[i], b.Params[i], subst); err != nil {
					return err
				}
			}
			return Unify(a.Return, b.Return, subst)
		}
	}
	return &MismatchError{Left: t1, Right: t2}
}

func bind(id int, t Type, subst map[int]Type) error {
	if occurs(id, t, subst) {
		return &OccursError{Var: &Var{ID: id}, In: t}
	}
	subst[id] = t
	return nil
}
