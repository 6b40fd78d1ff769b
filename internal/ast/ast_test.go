package ast

import (
	"testing"

	"github.com/eskemec-lang/eskemec/internal/arena"
	"github.com/eskemec-lang/eskemec/internal/lexer"
)

func TestFactoryAssignsMonotonicIDs(t *testing.T) {
	f := NewFactory(arena.New())
	a := f.NewIntegerLiteral(1)
	b := f.NewIntegerLiteral(2)
	c := f.NewBoolLiteral(true)

	if a.ID() != 0 || b.ID() != 1 || c.ID() != 2 {
		t.Fatalf("got ids %d %d %d, want 0 1 2", a.ID(), b.ID(), c.ID())
	}
}

func TestChildrenOrderForIf(t *testing.T) {
	f := NewFactory(arena.New())
	test := f.NewBoolLiteral(true)
	cons := f.NewIntegerLiteral(1)
	alt := f.NewIntegerLiteral(2)
	ifNode := f.NewIf(test, cons, alt)

	children := Children(ifNode)
	if len(children) != 3 || children[0] != test || children[1] != cons || children[2] != alt {
		t.Fatalf("unexpected children: %v", children)
	}
}

func TestChildrenOmitsNilAlternate(t *testing.T) {
	f := NewFactory(arena.New())
	ifNode := f.NewIf(f.NewBoolLiteral(true), f.NewIntegerLiteral(1), nil)
	if len(Children(ifNode)) != 2 {
		t.Fatalf("expected 2 children when alternate is nil, got %d", len(Children(ifNode)))
	}
}

func TestSetSpanRoundTrips(t *testing.T) {
	f := NewFactory(arena.New())
	n := f.NewIntegerLiteral(42)
	n.SetSpan(lexer.Span{Line: 7, Column: 1})
	if n.Span().Line != 7 {
		t.Fatalf("Span().Line = %d, want 7", n.Span().Line)
	}
}
