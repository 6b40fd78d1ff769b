package intern

import "testing"

func TestInternIsStable(t *testing.T) {
	tbl := New()
	a := tbl.Intern("foo")
	b := tbl.Intern("bar")
	c := tbl.Intern("foo")

	if a != c {
		t.Fatalf("expected repeated Intern(\"foo\") to return the same id, got %d and %d", a, c)
	}
	if a == b {
		t.Fatalf("expected distinct strings to get distinct ids")
	}
	if got := tbl.Lookup(a); got != "foo" {
		t.Fatalf("Lookup(%d) = %q, want %q", a, got, "foo")
	}
	if got := tbl.Lookup(b); got != "bar" {
		t.Fatalf("Lookup(%d) = %q, want %q", b, got, "bar")
	}
	if tbl.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", tbl.Len())
	}
}

func TestLookupOutOfRangePanics(t *testing.T) {
	tbl := New()
	defer func() {
		if recover() == nil {
			t.Fatal("expected panic for out-of-range id")
		}
	}()
	tbl.Lookup(42)
}
