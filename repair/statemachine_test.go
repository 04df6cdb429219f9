package repair

import (
	"context"
	"testing"
	"time"

	"github.com/latticeforge/cdc"
	"github.com/latticeforge/cdc/acs"
	"github.com/latticeforge/cdc/cache"
	"github.com/latticeforge/cdc/decode"
	_ "github.com/latticeforge/cdc/grammar/dialect"
	"github.com/latticeforge/cdc/provider"
	"github.com/latticeforge/cdc/reqcompile"
	"github.com/latticeforge/cdc/validate"
)

const testGrammarSource = "start ::= A ;\nA := `a` ;\n"

func newTestOrchestrator(t *testing.T) *decode.Orchestrator {
	t.Helper()
	grammars, err := cache.NewCompiledGrammarCache(4)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	masks, err := cache.NewMaskCache(2, 16)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return decode.NewOrchestrator(grammars, masks, acs.NewStore())
}

// acceptingProvider favors emitting 'a' until the artifact is non-empty,
// then favors EOS — regardless of the Fake's internal step counter, so it
// behaves the same across repeated Drive attempts that reuse one Provider.
func acceptingProvider() *provider.Fake {
	vocab := cdc.NewVocabulary("test-vocab", []string{"a", ""}, 1)
	return provider.NewFake(vocab, func(step int, prefix string, emitted []cdc.VocabIndex) []float32 {
		if len(emitted) == 0 {
			return []float32{10.0, -10.0}
		}
		return []float32{-10.0, 10.0}
	})
}

func TestDriveSucceedsWithoutRepair(t *testing.T) {
	orch := newTestOrchestrator(t)
	weights := acs.NewStore()
	prov := acceptingProvider()
	validator := validate.Func(func(ctx context.Context, text string) ([]validate.Diagnostic, error) {
		return nil, nil
	})
	plan := &reqcompile.Plan{ID: "p1", Language: "test", GrammarRef: testGrammarSource,
		Temperature: 0, MaxTokens: 5, Timeout: 2 * time.Second}

	result := Drive(context.Background(), orch, decode.Inline{Dialect: "ebnf"}, prov, validator, nil, weights,
		plan, "", RefinementOptions{})

	if result.Phase != PhaseDone {
		t.Fatalf("expected PhaseDone, got %v (err=%v)", result.Phase, result.Err)
	}
	if len(result.Attempts) != 1 {
		t.Fatalf("expected exactly 1 attempt when validation passes immediately, got %d", len(result.Attempts))
	}
}

func TestDriveRepairsThenSucceedsAndPromotesRung(t *testing.T) {
	orch := newTestOrchestrator(t)
	weights := acs.NewStore()
	prov := acceptingProvider()
	calls := 0
	validator := validate.Func(func(ctx context.Context, text string) ([]validate.Diagnostic, error) {
		calls++
		if calls == 1 {
			return []validate.Diagnostic{{Kind: validate.KindTypeMismatch, Level: validate.LevelError, Message: "bad shape"}}, nil
		}
		return nil, nil
	})
	plan := &reqcompile.Plan{ID: "p2", Language: "test", GrammarRef: testGrammarSource,
		Temperature: 0, MaxTokens: 5, Timeout: 2 * time.Second}
	opts := RefinementOptions{TypeNarrowed: testGrammarSource}

	result := Drive(context.Background(), orch, decode.Inline{Dialect: "ebnf"}, prov, validator, nil, weights,
		plan, "", opts)

	if result.Phase != PhaseDone {
		t.Fatalf("expected PhaseDone after one repair cycle, got %v (err=%v)", result.Phase, result.Err)
	}
	if len(result.Attempts) != 2 {
		t.Fatalf("expected 2 attempts (one failed validation, one repaired success), got %d", len(result.Attempts))
	}
	if result.Attempts[0].Rung != "type-narrowing" {
		t.Fatalf("expected the first attempt's recorded rung to be type-narrowing, got %q", result.Attempts[0].Rung)
	}
	w := weights.Weight(acs.Key{GrammarHash: testGrammarSource, Terminal: "type-narrowing"})
	if w <= 0 {
		t.Fatalf("expected the winning rung to be promoted to a positive SoftConstraint weight, got %v", w)
	}
}

func TestDriveFailsWhenLadderHasNoConfiguredRungs(t *testing.T) {
	orch := newTestOrchestrator(t)
	weights := acs.NewStore()
	prov := acceptingProvider()
	validator := validate.Func(func(ctx context.Context, text string) ([]validate.Diagnostic, error) {
		return []validate.Diagnostic{{Kind: validate.KindConstraint, Level: validate.LevelError}}, nil
	})
	plan := &reqcompile.Plan{ID: "p3", Language: "test", GrammarRef: testGrammarSource,
		Temperature: 0, MaxTokens: 5, Timeout: 2 * time.Second}

	result := Drive(context.Background(), orch, decode.Inline{Dialect: "ebnf"}, prov, validator, nil, weights,
		plan, "", RefinementOptions{})

	if result.Phase != PhaseFailed {
		t.Fatalf("expected PhaseFailed when no ladder rungs are configured, got %v", result.Phase)
	}
	if len(result.Attempts) != 1 {
		t.Fatalf("expected exactly 1 attempt before the ladder gives up, got %d", len(result.Attempts))
	}
}

func TestDriveFailsImmediatelyWithBudgetDiagnosticWhenMaxTokensIsZero(t *testing.T) {
	orch := newTestOrchestrator(t)
	weights := acs.NewStore()
	prov := acceptingProvider()
	validator := validate.Func(func(ctx context.Context, text string) ([]validate.Diagnostic, error) {
		t.Fatalf("validator should never run when decode fails on the zero-budget guard")
		return nil, nil
	})
	plan := &reqcompile.Plan{ID: "p6", Language: "test", GrammarRef: testGrammarSource,
		Temperature: 0, MaxTokens: 0, Timeout: 2 * time.Second}

	result := Drive(context.Background(), orch, decode.Inline{Dialect: "ebnf"}, prov, validator, nil, weights,
		plan, "", RefinementOptions{})

	if result.Phase != PhaseFailed {
		t.Fatalf("expected PhaseFailed for an explicit max_tokens=0, got %v", result.Phase)
	}
	if len(result.Attempts) != 1 {
		t.Fatalf("expected exactly 1 attempt, no repair-ladder cycling, got %d", len(result.Attempts))
	}
	diags := result.Attempts[0].Diagnostics
	if len(diags) != 1 || diags[0].Kind != validate.KindBudget {
		t.Fatalf("expected a single budget diagnostic, got %+v", diags)
	}
}

func TestDriveFailsWhenAttemptCeilingReached(t *testing.T) {
	orch := newTestOrchestrator(t)
	weights := acs.NewStore()
	prov := acceptingProvider()
	validator := validate.Func(func(ctx context.Context, text string) ([]validate.Diagnostic, error) {
		return []validate.Diagnostic{{Kind: validate.KindConstraint, Level: validate.LevelError}}, nil
	})
	plan := &reqcompile.Plan{ID: "p4", Language: "test", GrammarRef: testGrammarSource,
		Temperature: 0, MaxTokens: 5, Timeout: 2 * time.Second}
	opts := RefinementOptions{
		ConstraintTightened: testGrammarSource,
		TypeNarrowed:        testGrammarSource,
		ExampleInjected:     testGrammarSource,
		TemplateFallback:    testGrammarSource,
		Simplified:          testGrammarSource,
	}

	result := Drive(context.Background(), orch, decode.Inline{Dialect: "ebnf"}, prov, validator, nil, weights,
		plan, "", opts)

	if result.Phase != PhaseFailed {
		t.Fatalf("expected PhaseFailed once the attempt ceiling is reached, got %v", result.Phase)
	}
	if len(result.Attempts) != defaultMaxAttempts {
		t.Fatalf("expected exactly %d recorded attempts before giving up, got %d", defaultMaxAttempts, len(result.Attempts))
	}
}
