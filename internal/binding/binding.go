// Package binding implements the two-pass lexical binding resolver of
// spec.md §4.3: scope construction with binding introduction, then
// capture analysis computing each lambda's free-binding set and flagging
// captured/boxed bindings.
package binding

import "github.com/eskemec-lang/eskemec/internal/ast"

// ScopeKind classifies what introduced a Scope.
type ScopeKind int

const (
	ScopeModule ScopeKind = iota
	ScopeLambda
	ScopeLet
	ScopeLetRec
)

// Scope is one node in the parent-chain forest rooted at the module
// scope (spec.md §3).
type Scope struct {
	ID                int
	Parent            *Scope
	IntroducingNodeID ast.NodeID
	Kind              ScopeKind

	names map[string]*Binding
	order []string
}

func newScope(id int, parent *Scope, introducing ast.NodeID, kind ScopeKind) *Scope {
	return &Scope{ID: id, Parent: parent, IntroducingNodeID: introducing, Kind: kind, names: make(map[string]*Binding)}
}

func (s *Scope) define(b *Binding) {
	if _, exists := s.names[b.Name]; !exists {
		s.order = append(s.order, b.Name)
	}
	s.names[b.Name] = b
}

// lookup resolves name by walking the scope stack innermost-outward.
func (s *Scope) lookup(name string) *Binding {
	for cur := s; cur != nil; cur = cur.Parent {
		if b, ok := cur.names[name]; ok {
			return b
		}
	}
	return nil
}

// lookupLocal resolves name in s alone, without walking outward.
func (s *Scope) lookupLocal(name string) *Binding {
	return s.names[name]
}

// isStrictAncestorOf reports whether s is a strict ancestor of other in
// the parent chain.
func (s *Scope) isStrictAncestorOf(other *Scope) bool {
	for cur := other.Parent; cur != nil; cur = cur.Parent {
		if cur == s {
			return true
		}
	}
	return false
}

// Binding is a named, scoped slot (spec.md §3).
type Binding struct {
	ID             int
	ScopeID        int
	Name           string
	Mutable        bool
	Captured       bool
	Boxed          bool
	Parameter      bool
	IsIntrinsic    bool
	DefiningNodeID ast.NodeID

	scope              *Scope
	beingInitialized   bool // true inside a letrec binding's own initializer
}

// Table is the resolver's output: every scope and binding allocated
// during a compilation, indexed by id.
type Table struct {
	Scopes   map[int]*Scope
	Bindings map[int]*Binding
	Module   *Scope
}
