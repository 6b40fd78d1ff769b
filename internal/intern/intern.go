// Package intern implements the string interner external collaborator
// named in spec.md §1: a map from text to a stable integer id. One table
// is created per compilation, next to (not inside) the arena, and shared
// read-mostly across every compiler stage.
package intern

// ID is a stable identifier for an interned string.
type ID int

// Table interns strings to small integer ids.
type Table struct {
	ids     map[string]ID
	strings []string
}

// New creates an empty interning table.
func New() *Table {
	return &Table{ids: make(map[string]ID)}
}

// Intern returns the stable id for s, assigning a fresh one if s has
// never been seen by this table.
func (t *Table) Intern(s string) ID {
	if id, ok := t.ids[s]; ok {
		return id
	}
	id := ID(len(t.strings))
	t.strings = append(t.strings, s)
	t.ids[s] = id
	return id
}

// Lookup returns the text for id. It panics if id was never produced by
// this table, since that indicates a compiler bug rather than bad input.
func (t *Table) Lookup(id ID) string {
	if int(id) < 0 || int(id) >= len(t.strings) {
		panic("intern: id out of range")
	}
	return t.strings[id]
}

// Len returns the number of distinct strings interned so far.
func (t *Table) Len() int {
	return len(t.strings)
}
