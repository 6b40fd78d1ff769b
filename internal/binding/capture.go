package binding

import "github.com/eskemec-lang/eskemec/internal/ast"

// analyzeCaptures is pass 2 of spec.md §4.3: for every lambda, compute
// its ordered free-binding list and flag each free binding `captured`.
func (r *Resolver) analyzeCaptures() {
	for _, lam := range r.lambdas {
		lamScope := r.table.Scopes[lam.IntroducedScope]

		var idents []*ast.Identifier
		collectIdentifiers(lam.Body, &idents)

		seen := make(map[int]bool)
		var free []int
		for _, id := range idents {
			if id.BindingID < 0 {
				continue
			}
			b := r.table.Bindings[id.BindingID]
			if b == nil || seen[b.ID] || b.IsIntrinsic {
				continue
			}
			if !b.scope.isStrictAncestorOf(lamScope) {
				continue
			}
			seen[b.ID] = true
			free = append(free, b.ID)
			b.Captured = true
		}
		lam.FreeBindings = free
	}
}

// computeBoxed flags every binding that is both mutable and captured
// (spec.md §4.3, §9): these need a heap cell indirection in codegen.
func (r *Resolver) computeBoxed() {
	for _, b := range r.table.Bindings {
		if b.Mutable && b.Captured {
			b.Boxed = true
		}
	}
}

// collectIdentifiers walks n's expression subtree collecting every
// Identifier occurrence, including those inside nested lambdas: an
// outer lambda's free-binding set must see references made indirectly
// through a lambda it encloses.
func collectIdentifiers(n ast.Node, out *[]*ast.Identifier) {
	if n == nil {
		return
	}
	if id, ok := n.(*ast.Identifier); ok {
		*out = append(*out, id)
	}
	for _, c := range ast.Children(n) {
		collectIdentifiers(c, out)
	}
}
