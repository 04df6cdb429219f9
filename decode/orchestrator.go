/*
Package decode implements the Decode Orchestrator (DO, §4.4): it drives one
generation request from a reqcompile.Plan to a terminal Outcome by looping
{get logits from Provider → mask via the IPM → blend in ACS weights →
sample → advance parser}, the same request/response/retry loop shape gorgo
drives over its own scanner/parser pair, generalized here to a streaming,
cancellable LLM decode.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2021–2026 The LatticeForge Authors
*/
package decode

import (
	"context"
	"errors"
	"math/rand"
	"strings"
	"time"

	"github.com/npillmayer/schuko/tracing"

	"github.com/latticeforge/cdc"
	"github.com/latticeforge/cdc/acs"
	"github.com/latticeforge/cdc/cache"
	"github.com/latticeforge/cdc/grammar"
	"github.com/latticeforge/cdc/grammar/earley"
	"github.com/latticeforge/cdc/provider"
	"github.com/latticeforge/cdc/reqcompile"
)

// tracer traces with key 'cdc.decode'.
func tracer() tracing.Trace {
	return tracing.Select("cdc.decode")
}

var errNoLegalToken = errors.New("decode: no vocabulary index survives the current mask")

// ErrZeroBudget is the terminal error when a Plan carries an explicit
// max_tokens of 0 (§8 boundary behavior: "max_tokens = 0 produces an
// immediate validation failure with diagnostic kind budget"): no token may
// ever be emitted, so Run fails before doing any Provider or grammar work.
var ErrZeroBudget = errors.New("decode: plan.MaxTokens is 0, no tokens may be emitted")

// Status is the terminal disposition of a Run call.
type Status string

const (
	StatusAccepted  Status = "accepted"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// Outcome is what Run returns: either a completed artifact ready for
// validation, or the reason decoding stopped short of one.
type Outcome struct {
	Status    Status
	Artifact  string
	Emitted   []cdc.VocabIndex
	TokenCount int
	Err       error
}

// Orchestrator owns the shared, process-wide resources a decode loop reads
// from: the compiled-grammar cache, the mask cache, and the ACS weight
// store (§5 "Shared-resource policy" — these are the only three things
// that outlive a single request).
type Orchestrator struct {
	Grammars *cache.CompiledGrammarCache
	Masks    *cache.MaskCache
	Weights  *acs.Store
	Penalty  acs.PenaltyConfig
	Rand     *rand.Rand // nil uses a package-level default source
}

// NewOrchestrator wires an Orchestrator against the given shared caches and
// constraint store.
func NewOrchestrator(grammars *cache.CompiledGrammarCache, masks *cache.MaskCache, weights *acs.Store) *Orchestrator {
	return &Orchestrator{Grammars: grammars, Masks: masks, Weights: weights, Penalty: acs.DefaultPenaltyConfig()}
}

// grammarSource resolves a plan's GrammarRef to compilable source text and
// a dialect tag. Kept as a seam (rather than assuming plan.GrammarRef is
// always literal source) so callers can back it with a registry, a file,
// or an inline string without this package caring which.
type GrammarSource interface {
	Resolve(ref string) (source, dialect string, err error)
}

// Run drives one request (§4.4 contract: run(plan, prompt, provider) →
// Outcome) to a terminal outcome. The returned ParserState, if any internal
// one survived, is never exposed — ownership of *earley.ParserState never
// crosses a goroutine boundary (SPEC_FULL.md §5), it lives and dies inside
// this call.
func (o *Orchestrator) Run(ctx context.Context, plan *reqcompile.Plan, prompt string, src GrammarSource, prov provider.Provider) Outcome {
	if plan.MaxTokens == 0 {
		return Outcome{Status: StatusFailed, Err: ErrZeroBudget}
	}

	deadline := time.Now().Add(plan.Timeout)
	runCtx, cancel := context.WithDeadline(ctx, deadline)
	defer cancel()

	vocab, err := prov.BindTokenizer(runCtx)
	if err != nil {
		return Outcome{Status: StatusFailed, Err: err}
	}

	source, dialect, err := src.Resolve(plan.GrammarRef)
	if err != nil {
		return Outcome{Status: StatusFailed, Err: err}
	}
	cacheKey := plan.GrammarRef + "|" + vocab.ID
	cg, _, err := o.Grammars.GetOrCompile(cacheKey, func() (*grammar.CompiledGrammar, error) {
		return grammar.Compile(source, dialect, grammar.TokenizerRef{ID: vocab.ID})
	})
	if err != nil {
		return Outcome{Status: StatusFailed, Err: err}
	}

	state := earley.Begin(cg)
	rng := o.Rand
	if rng == nil {
		rng = rand.New(rand.NewSource(1))
	}
	sampleCfg := SampleConfig{Temperature: plan.Temperature}

	var b strings.Builder
	var emitted []cdc.VocabIndex

	for {
		select {
		case <-runCtx.Done():
			return Outcome{Status: StatusCancelled, Artifact: b.String(), Emitted: emitted, TokenCount: len(emitted), Err: runCtx.Err()}
		default:
		}
		if plan.MaxTokens > 0 && len(emitted) >= plan.MaxTokens {
			return Outcome{Status: StatusFailed, Artifact: b.String(), Emitted: emitted, TokenCount: len(emitted),
				Err: errors.New("decode: max_tokens budget exhausted before an accepting state")}
		}

		mask := o.maskFor(cg, state, vocab)

		logits, err := prov.NextLogits(runCtx, prompt+b.String(), emitted)
		// A Retryable provider error is retried up to 3 times, waiting 50ms
		// and doubling the wait each time; a non-retryable one ends the run.
		for retry, backoff := 0, 50*time.Millisecond; err != nil && retry < 3; retry, backoff = retry+1, 2*backoff {
			var perr *provider.Error
			if !errors.As(err, &perr) || !perr.Retryable {
				break
			}
			select {
			case <-runCtx.Done():
				return Outcome{Status: StatusCancelled, Artifact: b.String(), Emitted: emitted, TokenCount: len(emitted), Err: runCtx.Err()}
			case <-time.After(backoff):
			}
			logits, err = prov.NextLogits(runCtx, prompt+b.String(), emitted)
		}
		if err != nil {
			return Outcome{Status: StatusFailed, Artifact: b.String(), Emitted: emitted, TokenCount: len(emitted), Err: err}
		}

		boosts := o.boostsFor(cg, state, mask, vocab)
		idx, err := Sample(logits, mask, boosts, sampleCfg, rng)
		if err != nil {
			return Outcome{Status: StatusFailed, Artifact: b.String(), Emitted: emitted, TokenCount: len(emitted), Err: err}
		}

		if idx == vocab.EOS() {
			if state.Done() {
				return Outcome{Status: StatusAccepted, Artifact: b.String(), Emitted: emitted, TokenCount: len(emitted)}
			}
			return Outcome{Status: StatusFailed, Artifact: b.String(), Emitted: emitted, TokenCount: len(emitted),
				Err: errors.New("decode: sampled EOS outside an accepting parser state")}
		}

		piece := vocab.Piece(idx)
		next, err := state.Advance([]byte(piece))
		if err != nil {
			return Outcome{Status: StatusFailed, Artifact: b.String(), Emitted: emitted, TokenCount: len(emitted), Err: err}
		}
		state = next
		b.WriteString(piece)
		emitted = append(emitted, idx)
	}
}

// maskFor computes (or reuses a cached) AllowMask for state, keyed by the
// compiled grammar's identity plus the parser state's own fingerprint
// (§4.3 invariant: a mask-cache hit is only valid against the same
// CompiledGrammar identity, so the key must embed it).
func (o *Orchestrator) maskFor(cg *grammar.CompiledGrammar, state *earley.ParserState, vocab *cdc.Vocabulary) *cdc.AllowMask {
	key := cg.Hash + "|" + vocab.ID + "|" + state.Fingerprint()
	if o.Masks != nil {
		if hit, ok := o.Masks.Get(key); ok {
			return hit
		}
	}
	mask := state.Mask(vocab)
	if o.Masks != nil {
		o.Masks.Put(key, mask)
	}
	return mask
}

// boostsFor derives a per-vocabulary-index multiplier from the ACS
// snapshot (§4.6), delegating the per-terminal piece-walk to
// earley.ParserState.Boosts so the mask and boost computations share one
// "which terminal accepts this piece" primitive.
func (o *Orchestrator) boostsFor(cg *grammar.CompiledGrammar, state *earley.ParserState, mask *cdc.AllowMask, vocab *cdc.Vocabulary) []float32 {
	if o.Weights == nil {
		return nil
	}
	snapshot := o.Weights.Snapshot()
	if len(snapshot) == 0 {
		return nil
	}
	return state.Boosts(vocab, mask, func(terminal string) float32 {
		w, ok := snapshot[acs.Key{GrammarHash: cg.Hash, Terminal: terminal}]
		if !ok {
			return 1.0
		}
		return acs.Blend(w, o.Penalty)
	})
}
