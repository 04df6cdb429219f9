/*
Package grammar implements the Grammar Compiler (GC): it turns a
declarative grammar — EBNF with regex terminals, or a %schema directive —
into a CompiledGrammar automaton suitable for incremental recognition by
package grammar/earley.

Building a Grammar

Grammars are specified using a grammar builder object, exactly as gorgo's
own lr.GrammarBuilder works: clients add rules consisting of non-terminal
symbols and terminals, and terminals carry a regex pattern.

	b := grammar.NewBuilder("arith")
	b.LHS("start").T("NUMBER", `[0-9]+`).End()
	g, err := b.Grammar()

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2021–2026 The LatticeForge Authors
*/
package grammar

import (
	"fmt"

	"github.com/npillmayer/schuko/tracing"
)

// tracer traces with key 'cdc.grammar'.
func tracer() tracing.Trace {
	return tracing.Select("cdc.grammar")
}

// Symbol is a grammar symbol: either a terminal (bound to a regex pattern)
// or a non-terminal (the LHS of one or more rules).
type Symbol struct {
	Name     string
	Value    int32 // terminal token value (1-based); 0 for non-terminals
	terminal bool
	pattern  string             // terminal regex source, empty for non-terminals
	auto     *TerminalAutomaton // compiled lazily by Compile
}

// IsTerminal reports whether s is a terminal symbol.
func (s *Symbol) IsTerminal() bool { return s.terminal }

// TokenType returns the symbol's token-type value. The GOTO table of a
// CompiledGrammar is indexed by symbol position, not by this value.
func (s *Symbol) TokenType() int32 { return s.Value }

// Pattern returns the terminal's regex source ("" for non-terminals).
func (s *Symbol) Pattern() string { return s.pattern }

func (s *Symbol) String() string { return s.Name }

// Rule is a production LHS -> RHS (RHS empty denotes an epsilon rule).
type Rule struct {
	Serial int
	LHS    *Symbol
	RHS    []*Symbol
}

func (r *Rule) String() string {
	return fmt.Sprintf("%d: [%s] ::= %v", r.Serial, r.LHS.Name, r.RHS)
}

// Item is a dotted rule position ("Earley item" / "LR item"): a rule plus a
// cursor into its RHS. Items are the common substrate for both GC's
// reachability analysis and earley's chart entries.
type Item struct {
	Rule   *Rule
	Dot    int
	Origin int // Earley set index this item was predicted in; unused (always 0) by LR-style closures
}

// StartItem returns the item for `rule` with the dot before its first
// symbol, plus the first symbol itself (nil if the rule is an epsilon
// production).
func StartItem(rule *Rule) (Item, *Symbol) {
	it := Item{Rule: rule, Dot: 0}
	return it, it.PeekSymbol()
}

// PeekSymbol returns the RHS symbol immediately after the dot, or nil if the
// dot has reached the end of the RHS (the item is "complete").
func (i Item) PeekSymbol() *Symbol {
	if i.Dot >= len(i.Rule.RHS) {
		return nil
	}
	return i.Rule.RHS[i.Dot]
}

// Advance returns the item with the dot moved one position to the right.
func (i Item) Advance() Item {
	return Item{Rule: i.Rule, Dot: i.Dot + 1, Origin: i.Origin}
}

// Prefix returns the RHS symbols already consumed (left of the dot).
func (i Item) Prefix() []*Symbol {
	return i.Rule.RHS[:i.Dot]
}

// Complete reports whether the dot has reached the end of the RHS.
func (i Item) Complete() bool {
	return i.Dot >= len(i.Rule.RHS)
}

func (i Item) String() string {
	rhs := make([]string, 0, len(i.Rule.RHS)+1)
	for k, s := range i.Rule.RHS {
		if k == i.Dot {
			rhs = append(rhs, "•")
		}
		rhs = append(rhs, s.Name)
	}
	if i.Dot == len(i.Rule.RHS) {
		rhs = append(rhs, "•")
	}
	return fmt.Sprintf("[%s -> %v]", i.Rule.LHS.Name, rhs)
}

// Grammar is a compiled-from-source set of productions over terminal and
// non-terminal symbols, with rules[0] designated the start rule (matching
// gorgo's "G.rules[0]" convention).
type Grammar struct {
	Name         string
	Dialect      string
	Source       string // normalized grammar text, hashed for cache keys
	rules        []*Rule
	terminals    map[string]*Symbol
	nonterminals map[string]*Symbol
	start        *Symbol
}

// Rules returns all productions, in declaration order.
func (g *Grammar) Rules() []*Rule { return g.rules }

// Start returns the grammar's start symbol.
func (g *Grammar) Start() *Symbol { return g.start }

// Terminal looks up a terminal symbol by name.
func (g *Grammar) Terminal(name string) (*Symbol, bool) {
	s, ok := g.terminals[name]
	return s, ok
}

// NonTerminal looks up a non-terminal symbol by name.
func (g *Grammar) NonTerminal(name string) (*Symbol, bool) {
	s, ok := g.nonterminals[name]
	return s, ok
}

// EachSymbol calls f once for every terminal and non-terminal symbol.
func (g *Grammar) EachSymbol(f func(*Symbol)) {
	for _, s := range g.terminals {
		f(s)
	}
	for _, s := range g.nonterminals {
		f(s)
	}
}

// EachNonTerminal calls f once per non-terminal, keyed by name.
func (g *Grammar) EachNonTerminal(f func(name string, sym *Symbol)) {
	for name, s := range g.nonterminals {
		f(name, s)
	}
}

// FindNonTermRules returns, as an item set with the dot at position 0, every
// rule whose LHS is A. This is gorgo's closure-construction primitive
// (lr/tables.go closureSet), generalized to any Grammar.
func (g *Grammar) FindNonTermRules(A *Symbol) []Item {
	var items []Item
	for _, r := range g.rules {
		if r.LHS == A {
			items = append(items, Item{Rule: r, Dot: 0})
		}
	}
	return items
}

// MatchesRHS returns the rule (and its index) whose LHS is lhs and whose
// RHS equals prefix exactly, or (nil, -1) if none matches. Used when an
// item's dot has reached the end of a RHS and the automaton needs to know
// which rule to reduce (gorgo's lr/tables.go matchesRHS).
func (g *Grammar) MatchesRHS(lhs *Symbol, prefix []*Symbol) (*Rule, int) {
	for idx, r := range g.rules {
		if r.LHS != lhs || len(r.RHS) != len(prefix) {
			continue
		}
		match := true
		for i, s := range r.RHS {
			if s != prefix[i] {
				match = false
				break
			}
		}
		if match {
			return r, idx
		}
	}
	return nil, -1
}

// Dump renders the grammar's rules, one per line (gorgo's Grammar.Dump()).
func (g *Grammar) Dump() string {
	out := ""
	for _, r := range g.rules {
		out += r.String() + "\n"
	}
	return out
}
