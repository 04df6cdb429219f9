package grammar

import (
	"testing"

	_ "github.com/latticeforge/cdc/grammar/dialect"
	"github.com/npillmayer/schuko/tracing/gotestingadapter"
)

const arithSource = "" +
	"sum ::= sum PLUS term | term ;\n" +
	"term ::= NUMBER ;\n" +
	"PLUS := `\\+` ;\n" +
	"NUMBER := `[0-9]+` ;\n"

func TestCompileSimpleArith(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "cdc.grammar")
	defer teardown()

	cg, err := Compile(arithSource, "ebnf", TokenizerRef{ID: "test-vocab"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cg.Hash == "" {
		t.Fatalf("expected a non-empty compiled grammar hash")
	}
	if cg.Grammar.Start().Name != "sum" {
		t.Fatalf("expected start symbol 'sum', got %q", cg.Grammar.Start().Name)
	}
}

func TestCompileUnknownDialectRejected(t *testing.T) {
	_, err := Compile(arithSource, "no-such-dialect", TokenizerRef{ID: "test-vocab"})
	if err == nil {
		t.Fatalf("expected an error for an unregistered dialect")
	}
	gerr, ok := err.(*Error)
	if !ok || gerr.Kind != ErrKindUnsupportedDialect {
		t.Fatalf("expected ErrKindUnsupportedDialect, got %v", err)
	}
}

func TestCompileRejectsInlineRegexInRuleBody(t *testing.T) {
	src := "start ::= `[0-9]+` ;\n"
	_, err := Compile(src, "ebnf", TokenizerRef{ID: "test-vocab"})
	if err == nil {
		t.Fatalf("expected an error for an inline terminal literal in a rule body")
	}
	gerr, ok := err.(*Error)
	if !ok || gerr.Kind != ErrKindMalformed {
		t.Fatalf("expected ErrKindMalformed, got %v", err)
	}
}

func TestCompileRejectsInlineRepetitionOperator(t *testing.T) {
	src := "start ::= NUMBER* ;\nNUMBER := `[0-9]+` ;\n"
	_, err := Compile(src, "ebnf", TokenizerRef{ID: "test-vocab"})
	if err == nil {
		t.Fatalf("expected an error for an inline repetition operator")
	}
	gerr, ok := err.(*Error)
	if !ok || gerr.Kind != ErrKindUnsupportedInline {
		t.Fatalf("expected ErrKindUnsupportedInline, got %v", err)
	}
}
