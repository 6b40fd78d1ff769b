package diag

import "testing"

func TestMemorySinkAccumulatesAndStampsSession(t *testing.T) {
	sink := NewMemorySink("session-1")
	if sink.HasErrors() {
		t.Fatal("fresh sink should have no errors")
	}

	sink.Report(Diagnostic{
		Stage:    StageLexer,
		Severity: SeverityWarning,
		Code:     CodeLexMalformedNumber,
		Message:  "leading zero in decimal literal",
	})
	if sink.HasErrors() {
		t.Fatal("warning-only sink should not report HasErrors")
	}

	sink.Report(Diagnostic{
		Stage:    StageTypes,
		Severity: SeverityError,
		Code:     CodeTypeMismatch,
		Message:  "expected int, found string",
	})
	if !sink.HasErrors() {
		t.Fatal("expected HasErrors after an error-severity diagnostic")
	}
	if sink.Session != "session-1" {
		t.Fatalf("Session = %q, want %q", sink.Session, "session-1")
	}
	if len(sink.Diagnostics) != 2 {
		t.Fatalf("len(Diagnostics) = %d, want 2", len(sink.Diagnostics))
	}
}

func TestDiagnosticBuildersChain(t *testing.T) {
	d := Diagnostic{
		Stage:    StageTypes,
		Severity: SeverityError,
		Code:     CodeTypeMismatch,
		Message:  "type mismatch",
	}.
		WithPrimarySpan(Span{Line: 1, Column: 1}, "expected int").
		WithSecondarySpan(Span{Line: 2, Column: 3}, "annotated here").
		WithNote("gradual typing does not rescue this").
		WithHelp("annotate the parameter as float")

	if len(d.LabeledSpans) != 2 {
		t.Fatalf("len(LabeledSpans) = %d, want 2", len(d.LabeledSpans))
	}
	if d.LabeledSpans[0].Style != "primary" || d.LabeledSpans[1].Style != "secondary" {
		t.Fatal("expected first span primary, second secondary")
	}
	if len(d.Notes) != 1 || d.Help == "" {
		t.Fatal("expected note and help to be set")
	}
}
