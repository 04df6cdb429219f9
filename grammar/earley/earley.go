/*
Package earley implements the Incremental Parser/Mask Engine's (IPM)
recognizer core: an Earley chart parser adapted from "accept or reject a
whole input" to "extend by one more LLM vocabulary piece, and report which
pieces are admissible next."

The chart-building algorithm (scan/predict/complete over per-token Earley
sets) is gorgo's lr/earley/earley.go, unchanged in its bones. What differs
is the granularity at which "scan" operates: gorgo scans whole pre-lexed
tokens; here, a terminal may be completed in the middle of an LLM vocabulary
piece, or may span several pieces, so each ParserState additionally tracks
the in-progress byte position within every terminal the current Earley set
predicts (via grammar.TerminalAutomaton), and only folds scan/predict/complete
into the chart once some terminal's automaton actually accepts.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2021–2026 The LatticeForge Authors
*/
package earley

import (
	"fmt"
	"sort"

	"github.com/cnf/structhash"
	"github.com/npillmayer/schuko/tracing"

	"github.com/latticeforge/cdc/grammar"
	"github.com/latticeforge/cdc/grammar/iteratable"
)

// tracer traces with key 'cdc.grammar.earley'.
func tracer() tracing.Trace {
	return tracing.Select("cdc.grammar.earley")
}

// ParserState is an immutable snapshot of an in-progress recognition: the
// Earley chart built so far, plus the partial byte-level progress through
// every terminal currently predicted but not yet completed. ParserStates
// are cheap to fork (Advance never mutates its receiver), matching §3
// invariant 2 (branch-safe state).
type ParserState struct {
	cg      *grammar.CompiledGrammar
	states  []*iteratable.Set // Earley sets S0..Si, one per completed terminal
	partial map[*grammar.Symbol]*grammar.TerminalState
	done    bool // true once an accepting item has been observed in the last set
}

// Begin creates the initial ParserState for cg: S0 = closure({[S'->•S, 0]}),
// with every terminal predicted from S0 starting at its automaton's initial
// state (gorgo's earley.Parser.Parse, before the first NextToken call).
func Begin(cg *grammar.CompiledGrammar) *ParserState {
	g := cg.Grammar
	startItems := g.FindNonTermRules(g.Start())
	s0 := cg.Analysis().Closure(startItems)
	ps := &ParserState{
		cg:      cg,
		states:  []*iteratable.Set{s0},
		partial: map[*grammar.Symbol]*grammar.TerminalState{},
	}
	ps.refreshPartials()
	ps.done = ps.checkAccept()
	return ps
}

// Done reports whether the start symbol has been fully recognized at the
// current position (an accepting Earley item exists in the latest set).
func (ps *ParserState) Done() bool { return ps.done }

// PredictedTerminals returns the distinct terminal symbols the current
// Earley set expects next (the symbols directly after the dot in some item
// of the last set) — the mask engine only needs to walk these terminals'
// automata, not the whole grammar, on every step (§4.2).
func (ps *ParserState) PredictedTerminals() []*grammar.Symbol {
	last := ps.states[len(ps.states)-1]
	seen := map[*grammar.Symbol]bool{}
	var out []*grammar.Symbol
	for _, v := range last.Values() {
		it := v.(grammar.Item)
		if s := it.PeekSymbol(); s != nil && s.IsTerminal() && !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

func (ps *ParserState) refreshPartials() {
	for _, t := range ps.PredictedTerminals() {
		if _, ok := ps.partial[t]; !ok {
			auto := ps.cg.TerminalAutomatonFor(t)
			if auto != nil {
				ps.partial[t] = auto.Begin()
			}
		}
	}
}

// StepResult describes what happened when extending a ParserState with one
// more byte, for one candidate terminal.
type StepResult int

const (
	// StepAlive: the automaton consumed the byte and remains viable, but
	// has not yet reached an accepting state.
	StepAlive StepResult = iota
	// StepAccepted: the automaton consumed the byte and is now in an
	// accepting state (the terminal is complete at this position).
	StepAccepted
	// StepDead: the automaton rejects the byte; this terminal cannot
	// extend across it.
	StepDead
)

// StepTerminal advances the partial match for terminal t by one byte,
// without mutating ps (callers build the next ParserState from the
// returned results). It is a single-byte version of the piece-walk that
// Mask and Boosts run through pieceSurvives (grammar/earley/mask.go); they
// do not call it.
func (ps *ParserState) StepTerminal(t *grammar.Symbol, b byte) (StepResult, *grammar.TerminalState) {
	auto := ps.cg.TerminalAutomatonFor(t)
	if auto == nil {
		return StepDead, nil
	}
	cur, ok := ps.partial[t]
	if !ok {
		cur = auto.Begin()
	}
	next := auto.Step(cur, b)
	if next == nil {
		return StepDead, nil
	}
	if auto.Accepting(next) {
		return StepAccepted, next
	}
	return StepAlive, next
}

// Advance commits a fully-chosen vocabulary piece (its raw bytes) to the
// parser state. Every predicted terminal is walked across the whole piece;
// any terminal that reaches acceptance exactly at the piece boundary
// triggers a scan/predict/complete step advancing the Earley chart. A
// terminal that is still alive (but not yet accepting) at the piece
// boundary carries its partial match forward into the returned state. If no
// predicted terminal can consume the piece at all, Advance returns a
// *grammar.ParserError — callers must never reach this if the mask was
// honored (§4.2, §7).
func (ps *ParserState) Advance(piece []byte) (*ParserState, error) {
	type outcome struct {
		term   *grammar.Symbol
		result StepResult
		state  *grammar.TerminalState
	}
	outcomes := make([]outcome, 0, len(ps.partial))
	any := false
	for t := range ps.partial {
		cur := ps.partial[t]
		auto := ps.cg.TerminalAutomatonFor(t)
		dead := false
		for _, b := range piece {
			next := auto.Step(cur, b)
			if next == nil {
				dead = true
				break
			}
			cur = next
		}
		if dead {
			outcomes = append(outcomes, outcome{t, StepDead, nil})
			continue
		}
		any = true
		if auto.Accepting(cur) {
			outcomes = append(outcomes, outcome{t, StepAccepted, cur})
		} else {
			outcomes = append(outcomes, outcome{t, StepAlive, cur})
		}
	}
	if !any {
		return nil, &grammar.ParserError{Message: fmt.Sprintf("no predicted terminal accepts piece %q", piece)}
	}

	next := &ParserState{cg: ps.cg, states: ps.states, partial: map[*grammar.Symbol]*grammar.TerminalState{}}
	completedAny := false
	for _, o := range outcomes {
		switch o.result {
		case StepAccepted:
			completedAny = true
		case StepAlive:
			next.partial[o.term] = o.state
		}
	}

	if !completedAny {
		// No terminal finished within this piece: the chart itself doesn't
		// advance yet, only the partial byte progress does.
		next.done = false
		return next, nil
	}

	// At least one terminal completed: fold every completed terminal into
	// the Earley chart as a scanned token, then predict/complete.
	last := next.states[len(next.states)-1]
	newSet := iteratable.NewSet(last.Size())
	for _, o := range outcomes {
		if o.result != StepAccepted {
			continue
		}
		scan(last, newSet, o.term)
	}
	i := len(next.states) - 1
	closeSet(next.cg.Analysis(), newSet, next.states, i)
	next.states = append(append([]*iteratable.Set{}, next.states...), newSet)
	next.refreshPartials()
	next.done = next.checkAccept()
	return next, nil
}

// scan implements the Earley Scanner step: for every item [A->...*a..., j]
// in S with a==term, add [A->...a*..., j] to S1.
func scan(S, S1 *iteratable.Set, term *grammar.Symbol) {
	for _, v := range S.Values() {
		it := v.(grammar.Item)
		if it.PeekSymbol() == term {
			S1.Add(it.Advance())
		}
	}
}

// closeSet runs predict/complete to a fixed point over the newly scanned
// set S (gorgo's earley.Parser.innerLoop, restricted to the predict and
// complete halves since scan already ran above).
func closeSet(a *grammar.LRAnalysis, S *iteratable.Set, priorStates []*iteratable.Set, i int) {
	S.IterateOnce()
	for S.Next() {
		item := S.Item().(grammar.Item)
		predict(a, S, item, i+1)
		complete(a, S, priorStates, item, i+1)
	}
}

func predict(a *grammar.LRAnalysis, S *iteratable.Set, item grammar.Item, i int) {
	B := item.PeekSymbol()
	if B == nil || B.IsTerminal() {
		return
	}
	for _, start := range a.Grammar().FindNonTermRules(B) {
		start.Origin = i
		S.Add(start)
	}
	if a.DerivesEpsilon(B) {
		S.Add(item.Advance())
	}
}

func complete(a *grammar.LRAnalysis, S *iteratable.Set, priorStates []*iteratable.Set, item grammar.Item, i int) {
	if item.PeekSymbol() != nil {
		return
	}
	A := item.Rule.LHS
	j := item.Origin
	var Sj *iteratable.Set
	if j < len(priorStates) {
		Sj = priorStates[j]
	} else {
		Sj = S
	}
	for _, v := range Sj.Values() {
		jt := v.(grammar.Item)
		if jt.PeekSymbol() == A {
			S.Add(jt.Advance())
		}
	}
}

func (ps *ParserState) checkAccept() bool {
	last := ps.states[len(ps.states)-1]
	g := ps.cg.Grammar
	for _, v := range last.Values() {
		it := v.(grammar.Item)
		if it.PeekSymbol() == nil && it.Rule.LHS == g.Start() && it.Origin == 0 {
			return true
		}
	}
	return false
}

// Fingerprint returns a stable content hash of the parser state (chart size,
// terminal partial-match states), suitable as part of a cache key for the
// mask cache (§4.3, §6) — two ParserStates with equal fingerprints are
// guaranteed to compute identical masks.
func (ps *ParserState) Fingerprint() string {
	type partialEntry struct {
		Term string
		Fp   string
	}
	entries := make([]partialEntry, 0, len(ps.partial))
	for t, s := range ps.partial {
		entries = append(entries, partialEntry{t.Name, s.Fingerprint()})
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Term < entries[j].Term })
	h, err := structhash.Hash(struct {
		Depth    int
		Partials []partialEntry
		Done     bool
	}{len(ps.states), entries, ps.done}, 1)
	if err != nil {
		tracer().Errorf("parser-state fingerprint failed: %v", err)
		return fmt.Sprintf("depth:%d", len(ps.states))
	}
	return h
}
