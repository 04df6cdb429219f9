package earley

import (
	"testing"

	"github.com/latticeforge/cdc"
	"github.com/latticeforge/cdc/grammar"
	"github.com/npillmayer/schuko/tracing/gotestingadapter"
)

// buildArith compiles a tiny left-recursive arithmetic grammar:
//
//	sum  ::= sum PLUS term | term
//	term ::= NUMBER
func buildArith(t *testing.T) *grammar.CompiledGrammar {
	t.Helper()
	b := grammar.NewBuilder("arith")
	b.LHS("sum").N("sum").T("PLUS", `\+`).N("term").End()
	b.LHS("sum").N("term").End()
	b.LHS("term").T("NUMBER", `[0-9]+`).End()
	g, err := b.Grammar()
	if err != nil {
		t.Fatalf("unexpected builder error: %v", err)
	}
	cg, err := grammar.Build(g)
	if err != nil {
		t.Fatalf("unexpected build error: %v", err)
	}
	return cg
}

func TestBeginPredictsLeadingTerminal(t *testing.T) {
	teardown := gotestingadapter.QuickConfig(t, "cdc.grammar.earley")
	defer teardown()

	cg := buildArith(t)
	ps := Begin(cg)
	if ps.Done() {
		t.Fatalf("expected a fresh parser state over a non-empty grammar not to be done")
	}
	found := false
	for _, term := range ps.PredictedTerminals() {
		if term.Name == "NUMBER" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected NUMBER to be a predicted terminal from the initial state")
	}
}

func TestAdvanceAcceptsSingleNumber(t *testing.T) {
	cg := buildArith(t)
	ps := Begin(cg)
	next, err := ps.Advance([]byte("42"))
	if err != nil {
		t.Fatalf("unexpected error advancing over '42': %v", err)
	}
	if !next.Done() {
		t.Fatalf("expected parser state to be accepting after a single number")
	}
}

func TestAdvanceAcrossPlusChainsTerms(t *testing.T) {
	cg := buildArith(t)
	ps := Begin(cg)
	for _, piece := range []string{"1", "+", "2"} {
		next, err := ps.Advance([]byte(piece))
		if err != nil {
			t.Fatalf("unexpected error advancing over %q: %v", piece, err)
		}
		ps = next
	}
	if !ps.Done() {
		t.Fatalf("expected parser state to be accepting after '1+2'")
	}
}

func TestAdvanceRejectsPieceNoTerminalCanConsume(t *testing.T) {
	cg := buildArith(t)
	ps := Begin(cg)
	if _, err := ps.Advance([]byte("+")); err == nil {
		t.Fatalf("expected an error advancing over a piece no predicted terminal accepts")
	}
}

// TestAdvanceAcceptsMultiPieceTerminal exercises a terminal whose first
// accepting automaton state isn't reached until its second byte (an exact
// two-character literal), so its single completion spans two separate
// vocabulary pieces.
func TestAdvanceAcceptsMultiPieceTerminal(t *testing.T) {
	b := grammar.NewBuilder("keyword")
	b.LHS("start").T("IF", `if`).End()
	g, err := b.Grammar()
	if err != nil {
		t.Fatalf("unexpected builder error: %v", err)
	}
	cg, err := grammar.Build(g)
	if err != nil {
		t.Fatalf("unexpected build error: %v", err)
	}
	ps := Begin(cg)
	mid, err := ps.Advance([]byte("i"))
	if err != nil {
		t.Fatalf("unexpected error advancing over 'i': %v", err)
	}
	if mid.Done() {
		t.Fatalf("did not expect the parser to be accepting after only the first byte of 'if'")
	}
	end, err := mid.Advance([]byte("f"))
	if err != nil {
		t.Fatalf("unexpected error completing the literal across a second piece: %v", err)
	}
	if !end.Done() {
		t.Fatalf("expected parser state to be accepting once 'if' is complete across two pieces")
	}
}

func TestMaskAllowsOnlyPiecesSomePredictedTerminalSurvives(t *testing.T) {
	cg := buildArith(t)
	ps := Begin(cg)
	vocab := cdc.NewVocabulary("test-vocab", []string{"1", "+", "abc", ""}, 3)
	mask := ps.Mask(vocab)
	if !mask.IsAllowed(0) {
		t.Fatalf("expected '1' to be allowed from the initial state (NUMBER is predicted)")
	}
	if mask.IsAllowed(1) {
		t.Fatalf("did not expect '+' to be allowed before any term has been scanned")
	}
	if mask.IsAllowed(2) {
		t.Fatalf("did not expect 'abc' (no digit prefix) to be allowed")
	}
}

func TestMaskAllowsEOSOnlyWhenAccepting(t *testing.T) {
	cg := buildArith(t)
	ps := Begin(cg)
	vocab := cdc.NewVocabulary("test-vocab", []string{"1", "+"}, 1)
	if mask := ps.Mask(vocab); mask.IsAllowed(vocab.EOS()) {
		t.Fatalf("did not expect EOS to be allowed before any input has been consumed")
	}
	next, err := ps.Advance([]byte("1"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if mask := next.Mask(vocab); !mask.IsAllowed(vocab.EOS()) {
		t.Fatalf("expected EOS to be allowed once the parser state is accepting")
	}
}

func TestFingerprintStableAcrossEquivalentPaths(t *testing.T) {
	cg := buildArith(t)
	ps := Begin(cg)
	a, err := ps.Advance([]byte("7"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := Begin(cg).Advance([]byte("7"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a.Fingerprint() != b.Fingerprint() {
		t.Fatalf("expected two parser states reached by the same single-piece path to fingerprint identically")
	}
}

func TestBoostsNeverExceedAllowedSet(t *testing.T) {
	cg := buildArith(t)
	ps := Begin(cg)
	vocab := cdc.NewVocabulary("test-vocab", []string{"1", "+"}, 1)
	mask := ps.Mask(vocab)
	boosts := ps.Boosts(vocab, mask, func(string) float32 { return 2.0 })
	for i := 0; i < vocab.Size(); i++ {
		idx := cdc.VocabIndex(i)
		if !mask.IsAllowed(idx) && boosts[i] != 1.0 {
			t.Errorf("expected neutral boost for a masked-out piece %d, got %v", i, boosts[i])
		}
	}
}
