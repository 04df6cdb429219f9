package grammar

import (
	"fmt"
	"sort"

	"github.com/cnf/structhash"

	"github.com/latticeforge/cdc/grammar/iteratable"
	"github.com/latticeforge/cdc/grammar/sparse"
)

// CompiledGrammar is the GC's output (§4.1): a characteristic finite state
// machine (CFSM) over *non-deterministic* item sets — unlike gorgo's
// canonical-LR table generator, states here are not required to be
// conflict-free, since the Earley recognizer in package grammar/earley
// consumes ambiguity rather than rejecting it at compile time. States and
// transitions are stored in a sparse.IntMatrix, exactly as gorgo's
// TableGenerator stores its ACTION/GOTO tables.
type CompiledGrammar struct {
	Grammar *Grammar
	Hash    string // content hash of grammar source + dialect (§3 invariant 6, §6 cache key)

	states   []*iteratable.Set // states[i] = closed item set for state i
	goTo     *sparse.IntMatrix // state x symbolIndex -> next state (NullValue = absent)
	symIndex map[*Symbol]uint
	symByIdx []*Symbol

	terminalAutomata map[*Symbol]*TerminalAutomaton
	analysis         *LRAnalysis
}

// StateCount returns the number of automaton states.
func (cg *CompiledGrammar) StateCount() int { return len(cg.states) }

// InitialState returns state 0, the closure over the start symbol's rules.
func (cg *CompiledGrammar) InitialState() int { return 0 }

// Items returns the item set for state i.
func (cg *CompiledGrammar) Items(i int) *iteratable.Set { return cg.states[i] }

// Transition returns the successor state reached from state i via symbol X,
// or (-1, false) if no such transition exists.
func (cg *CompiledGrammar) Transition(i int, X *Symbol) (int, bool) {
	idx, ok := cg.symIndex[X]
	if !ok {
		return -1, false
	}
	v := cg.goTo.Value(uint(i), idx)
	if v == cg.goTo.NullValue() {
		return -1, false
	}
	return int(v), true
}

// TerminalAutomatonFor returns the compiled byte-level automaton for a
// terminal symbol, used by the mask engine to walk candidate token pieces.
func (cg *CompiledGrammar) TerminalAutomatonFor(t *Symbol) *TerminalAutomaton {
	return cg.terminalAutomata[t]
}

// Analysis exposes the FIRST-set/closure analysis backing this automaton,
// needed by the Earley recognizer for prediction.
func (cg *CompiledGrammar) Analysis() *LRAnalysis { return cg.analysis }

// Build constructs a CompiledGrammar from a parsed Grammar: compiles every
// terminal's regex, then performs a breadth-first characteristic-automaton
// construction over item-set closures (gorgo's lr/tables.go buildCFSM,
// generalized to keep every item-set state instead of collapsing to a
// conflict-free subset).
func Build(g *Grammar) (*CompiledGrammar, error) {
	analysis := Analyze(g)

	terminalAutomata := make(map[*Symbol]*TerminalAutomaton)
	var termErr error
	g.EachSymbol(func(s *Symbol) {
		if s.IsTerminal() && s.Pattern() != "" && termErr == nil {
			auto, err := CompileTerminal(s.Pattern())
			if err != nil {
				termErr = err
				return
			}
			s.auto = auto
			terminalAutomata[s] = auto
		}
	})
	if termErr != nil {
		return nil, termErr
	}

	symIndex := map[*Symbol]uint{}
	var symByIdx []*Symbol
	assign := func(s *Symbol) {
		if _, ok := symIndex[s]; !ok {
			symIndex[s] = uint(len(symByIdx))
			symByIdx = append(symByIdx, s)
		}
	}
	g.EachSymbol(assign)

	cg := &CompiledGrammar{
		Grammar:          g,
		symIndex:         symIndex,
		symByIdx:         symByIdx,
		terminalAutomata: terminalAutomata,
		analysis:         analysis,
	}

	startItems := g.FindNonTermRules(g.Start())
	initial := analysis.Closure(startItems)
	cg.states = append(cg.states, initial)
	fingerprints := map[string]int{fingerprintOf(initial): 0}

	n := uint(len(symByIdx))
	cg.goTo = sparse.NewIntMatrix(0, n, sparse.DefaultNullValue)

	for stateID := 0; stateID < len(cg.states); stateID++ {
		if uint(len(cg.states)) > cg.goTo.M() {
			// grow row count lazily as states get discovered, matching the
			// BFS order gorgo's buildCFSM uses
			cg.goTo = growRows(cg.goTo, uint(len(cg.states)))
		}
		items := cg.states[stateID]
		shiftable := collectShiftSymbols(items)
		for _, X := range shiftable {
			next := analysis.Goto(items, X)
			if next.Empty() {
				continue
			}
			fp := fingerprintOf(next)
			target, seen := fingerprints[fp]
			if !seen {
				target = len(cg.states)
				fingerprints[fp] = target
				cg.states = append(cg.states, next)
			}
			cg.goTo.Set(uint(stateID), symIndex[X], int32(target))
		}
	}

	cg.Hash = fmt.Sprintf("%x", structhash.Sha1(struct {
		Name    string
		Dialect string
		Source  string
	}{g.Name, g.Dialect, g.Source}, 1))

	tracer().Debugf("built automaton for %q: %d states, %d symbols", g.Name, len(cg.states), n)
	return cg, nil
}

func growRows(m *sparse.IntMatrix, rows uint) *sparse.IntMatrix {
	grown := sparse.NewIntMatrix(rows, m.N(), m.NullValue())
	for i := uint(0); i < m.M(); i++ {
		for j := uint(0); j < m.N(); j++ {
			if v := m.Value(i, j); v != m.NullValue() {
				grown.Set(i, j, v)
			}
		}
	}
	return grown
}

// collectShiftSymbols returns the distinct symbols that appear immediately
// after the dot across items, in a deterministic (name-sorted) order so
// automaton construction is reproducible across runs (important: the Hash
// above is supposed to be a function of grammar *source*, not of map
// iteration order leaking into structurally-different-but-equivalent
// automata).
func collectShiftSymbols(items *iteratable.Set) []*Symbol {
	seen := map[*Symbol]bool{}
	var out []*Symbol
	for _, v := range items.Values() {
		it := v.(Item)
		if s := it.PeekSymbol(); s != nil && !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// fingerprintOf returns a canonical string identity for an item set,
// independent of insertion order, used to dedup automaton states during
// construction (gorgo's buildCFSM does the equivalent with a map keyed by
// a rendered item-set string).
func fingerprintOf(items *iteratable.Set) string {
	vals := items.Values()
	parts := make([]string, len(vals))
	for i, v := range vals {
		parts[i] = v.(Item).String()
	}
	sort.Strings(parts)
	out := ""
	for _, p := range parts {
		out += p + "|"
	}
	return out
}
