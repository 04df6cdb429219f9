package grammar

import (
	"github.com/latticeforge/cdc/grammar/iteratable"
)

// LRAnalysis holds the static analysis results over a Grammar that both the
// LR-style automaton builder (automaton.go) and the Earley recognizer need:
// closures of item sets and FIRST sets per symbol. This generalizes gorgo's
// lr/tables.go closure/FIRST-set machinery, which originally only served a
// canonical-LR table generator, to also serve Earley prediction.
type LRAnalysis struct {
	g              *Grammar
	first          map[*Symbol]*iteratable.Set // Symbol -> FIRST set of terminals (epsilon is tracked in derivesEpsilon, not here)
	derivesEpsilon map[*Symbol]bool
}

// Analyze computes FIRST sets for every symbol of g via the standard
// fixed-point iteration.
func Analyze(g *Grammar) *LRAnalysis {
	a := &LRAnalysis{g: g, first: map[*Symbol]*iteratable.Set{}, derivesEpsilon: map[*Symbol]bool{}}
	a.computeFirstSets()
	return a
}

// Grammar returns the analyzed grammar.
func (a *LRAnalysis) Grammar() *Grammar { return a.g }

// DerivesEpsilon reports whether a non-terminal can derive the empty
// string, needed by the Earley predictor to also advance an item across a
// nullable symbol without waiting for an explicit scan (gorgo's
// lr/earley/earley.go predict()).
func (a *LRAnalysis) DerivesEpsilon(s *Symbol) bool { return a.derivesEpsilon[s] }

func (a *LRAnalysis) computeFirstSets() {
	g := a.g
	derivesEpsilon := a.derivesEpsilon
	g.EachSymbol(func(s *Symbol) {
		a.first[s] = iteratable.NewSet(4)
		if s.IsTerminal() {
			a.first[s].Add(s)
		}
	})
	for _, r := range g.rules {
		if len(r.RHS) == 0 {
			derivesEpsilon[r.LHS] = true
		}
	}
	changed := true
	for changed {
		changed = false
		for _, r := range g.rules {
			lhsFirst := a.first[r.LHS]
			allEpsilonSoFar := true
			for _, sym := range r.RHS {
				before := lhsFirst.Size()
				lhsFirst.Union(a.first[sym])
				if lhsFirst.Size() != before {
					changed = true
				}
				if !derivesEpsilon[sym] && !sym.IsTerminal() {
					allEpsilonSoFar = false
					break
				}
				if sym.IsTerminal() {
					allEpsilonSoFar = false
					break
				}
			}
			if allEpsilonSoFar && len(r.RHS) > 0 && !derivesEpsilon[r.LHS] {
				derivesEpsilon[r.LHS] = true
				changed = true
			}
		}
	}
}

// First returns the FIRST set of terminal symbols for sym (a non-terminal
// or terminal), as a plain slice.
func (a *LRAnalysis) First(sym *Symbol) []*Symbol {
	vals := a.first[sym].Values()
	out := make([]*Symbol, len(vals))
	for i, v := range vals {
		out[i] = v.(*Symbol)
	}
	return out
}

// Closure computes the closure of an item set: repeatedly, for every item
// [A -> α•Bβ] in the set with B a non-terminal, add [B -> •γ] for every rule
// B -> γ. This is gorgo's lr/tables.go closureSet generalized over Item.
func (a *LRAnalysis) Closure(items []Item) *iteratable.Set {
	set := iteratable.NewSet(len(items) * 2)
	for _, it := range items {
		set.Add(it)
	}
	set.IterateOnce()
	for set.Next() {
		it := set.Item().(Item)
		peek := it.PeekSymbol()
		if peek == nil || peek.IsTerminal() {
			continue
		}
		for _, newItem := range a.g.FindNonTermRules(peek) {
			set.Add(newItem)
		}
	}
	return set
}

// Goto computes the item set reached from `from` by shifting over symbol X:
// every item [A -> α•Xβ] becomes [A -> αX•β], closed over non-terminals.
func (a *LRAnalysis) Goto(from *iteratable.Set, X *Symbol) *iteratable.Set {
	var moved []Item
	vals := from.Values()
	for _, v := range vals {
		it := v.(Item)
		if it.PeekSymbol() == X {
			moved = append(moved, it.Advance())
		}
	}
	if len(moved) == 0 {
		return iteratable.NewSet(0)
	}
	return a.Closure(moved)
}
