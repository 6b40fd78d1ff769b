// Package arena implements the compilation-unit-scoped bump allocator
// that owns every AST node, binding, scope, and type object produced
// during a single compilation (spec.md §3 Lifecycles, §5 Shared-resource
// policy). A second compilation must use a fresh Arena.
package arena

// Arena is a whole-region allocator: individual allocations are never
// freed, only the region as a whole, via Release. Go's own runtime
// already manages the underlying memory; Arena's job is to give the
// pipeline a single place that owns monotonic id counters and retains
// the objects it handed out until the compilation is done with them,
// modeling the bump-allocate/whole-region-free discipline the spec
// describes for the native implementation.
type Arena struct {
	nextNodeID    int
	nextBindingID int
	nextScopeID   int
	retained      []any
	released      bool
}

// New creates a fresh Arena for one compilation.
func New() *Arena {
	return &Arena{}
}

// NextNodeID returns the next monotonic AST node id.
func (a *Arena) NextNodeID() int {
	a.checkLive()
	id := a.nextNodeID
	a.nextNodeID++
	return id
}

// NextBindingID returns the next monotonic binding id.
func (a *Arena) NextBindingID() int {
	a.checkLive()
	id := a.nextBindingID
	a.nextBindingID++
	return id
}

// NextScopeID returns the next monotonic scope id.
func (a *Arena) NextScopeID() int {
	a.checkLive()
	id := a.nextScopeID
	a.nextScopeID++
	return id
}

// Retain records that the arena is the owner of v for the lifetime of
// the compilation. Retained values are dropped on Release.
func (a *Arena) Retain(v any) {
	a.checkLive()
	a.retained = append(a.retained, v)
}

// Released reports whether Release has already been called.
func (a *Arena) Released() bool {
	return a.released
}

// Release invalidates the arena. Every id counter stops advancing and
// every retained allocation is dropped, mirroring the native
// implementation's whole-region free; Go's garbage collector reclaims
// the underlying memory once nothing else references it.
func (a *Arena) Release() {
	a.released = true
	a.retained = nil
}

func (a *Arena) checkLive() {
	if a.released {
		panic("arena: use after Release")
	}
}
