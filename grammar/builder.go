package grammar

import (
	"fmt"
	"sort"
)

// GrammarBuilder accumulates rules and terminal definitions and then
// resolves them into a Grammar. Usage mirrors gorgo's lr.GrammarBuilder:
//
//	b := grammar.NewBuilder("arith")
//	b.LHS("sum").N("sum").T("PLUS", `\+`).N("term").End()
//	b.LHS("sum").N("term").End()
//	b.LHS("term").T("NUMBER", `[0-9]+`).End()
//	g, err := b.Grammar()
//
// The first LHS seen becomes the grammar's start symbol, exactly as gorgo
// treats rules[0].LHS as the start production.
type GrammarBuilder struct {
	name      string
	ruleSpecs []*ruleSpec
	termPat   map[string]string // terminal name -> regex pattern, first definition wins
	startName string
	err       error
}

type ruleSpec struct {
	lhs  string
	rhs  []rhsRef
	kind refKind
}

type refKind int

const (
	refNone refKind = iota
	refEpsilon
	refEOF
)

type rhsRef struct {
	name       string
	isTerminal bool
}

// NewBuilder creates an empty GrammarBuilder for a grammar named name.
func NewBuilder(name string) *GrammarBuilder {
	return &GrammarBuilder{name: name, termPat: map[string]string{}}
}

// RuleBuilder accumulates the RHS of a single rule under construction.
type RuleBuilder struct {
	b    *GrammarBuilder
	spec *ruleSpec
}

// LHS starts a new rule with the given left-hand-side non-terminal name.
func (b *GrammarBuilder) LHS(name string) *RuleBuilder {
	if b.startName == "" {
		b.startName = name
	}
	spec := &ruleSpec{lhs: name}
	b.ruleSpecs = append(b.ruleSpecs, spec)
	return &RuleBuilder{b: b, spec: spec}
}

// N appends a non-terminal reference to the rule's RHS.
func (r *RuleBuilder) N(name string) *RuleBuilder {
	r.spec.rhs = append(r.spec.rhs, rhsRef{name: name, isTerminal: false})
	return r
}

// T appends a terminal reference to the rule's RHS, defining pattern as its
// regex the first time name is used. Later calls with a different pattern
// for the same name are a builder error surfaced at Grammar().
func (r *RuleBuilder) T(name, pattern string) *RuleBuilder {
	if existing, ok := r.b.termPat[name]; ok {
		if existing != pattern && r.b.err == nil {
			r.b.err = &Error{Kind: ErrKindMalformed,
				Message: fmt.Sprintf("terminal %q redefined with a different pattern", name)}
		}
	} else {
		r.b.termPat[name] = pattern
	}
	r.spec.rhs = append(r.spec.rhs, rhsRef{name: name, isTerminal: true})
	return r
}

// Epsilon marks the rule as an empty production. Must be the only call on
// the RHS.
func (r *RuleBuilder) Epsilon() *RuleBuilder {
	r.spec.kind = refEpsilon
	return r
}

// EOF appends the distinguished end-of-input terminal to the RHS.
func (r *RuleBuilder) EOF() *RuleBuilder {
	r.spec.rhs = append(r.spec.rhs, rhsRef{name: "#eof", isTerminal: true})
	if _, ok := r.b.termPat["#eof"]; !ok {
		r.b.termPat["#eof"] = ""
	}
	return r
}

// DeclareTerminal registers a terminal's name and regex pattern without
// attaching it to any rule's RHS yet, for dialects (like grammar/dialect)
// that declare terminals as standalone statements separate from the rules
// that reference them by name.
func (b *GrammarBuilder) DeclareTerminal(name, pattern string) *GrammarBuilder {
	if existing, ok := b.termPat[name]; ok {
		if existing != pattern && b.err == nil {
			b.err = &Error{Kind: ErrKindMalformed,
				Message: fmt.Sprintf("terminal %q redefined with a different pattern", name)}
		}
		return b
	}
	b.termPat[name] = pattern
	return b
}

// End finishes the current rule and returns the builder for the next LHS.
func (r *RuleBuilder) End() *GrammarBuilder {
	return r.b
}

// Grammar resolves all accumulated rules into an immutable Grammar,
// assigning each terminal a dense TokenType value and verifying every
// non-terminal reference resolves to some LHS (ErrKindUnresolvedRule) and
// that the start symbol can reach every other non-terminal
// (ErrKindUnreachableStart).
func (b *GrammarBuilder) Grammar() (*Grammar, error) {
	if b.err != nil {
		return nil, b.err
	}
	if len(b.ruleSpecs) == 0 {
		return nil, &Error{Kind: ErrKindMalformed, Message: "grammar has no rules"}
	}

	nonterminals := map[string]*Symbol{}
	for _, rs := range b.ruleSpecs {
		if _, ok := nonterminals[rs.lhs]; !ok {
			nonterminals[rs.lhs] = &Symbol{Name: rs.lhs, terminal: false}
		}
	}
	for _, rs := range b.ruleSpecs {
		for _, ref := range rs.rhs {
			if !ref.isTerminal {
				if _, ok := nonterminals[ref.name]; !ok {
					return nil, &Error{Kind: ErrKindUnresolvedRule,
						Message: fmt.Sprintf("non-terminal %q referenced in rule for %q has no productions", ref.name, rs.lhs)}
				}
			}
		}
	}

	termNames := make([]string, 0, len(b.termPat))
	for name := range b.termPat {
		termNames = append(termNames, name)
	}
	sort.Strings(termNames) // deterministic TokenType assignment
	terminals := map[string]*Symbol{}
	for i, name := range termNames {
		terminals[name] = &Symbol{Name: name, terminal: true, pattern: b.termPat[name], Value: int32(i + 1)}
	}

	g := &Grammar{
		Name:         b.name,
		terminals:    terminals,
		nonterminals: nonterminals,
		start:        nonterminals[b.startName],
	}

	for serial, rs := range b.ruleSpecs {
		rule := &Rule{Serial: serial, LHS: nonterminals[rs.lhs]}
		if rs.kind != refEpsilon {
			rule.RHS = make([]*Symbol, len(rs.rhs))
			for i, ref := range rs.rhs {
				if ref.isTerminal {
					rule.RHS[i] = terminals[ref.name]
				} else {
					rule.RHS[i] = nonterminals[ref.name]
				}
			}
		}
		g.rules = append(g.rules, rule)
	}

	if err := checkReachable(g); err != nil {
		return nil, err
	}
	tracer().Debugf("compiled grammar %q: %d rules, %d terminals, %d non-terminals",
		g.Name, len(g.rules), len(terminals), len(nonterminals))
	return g, nil
}

// checkReachable verifies every non-terminal is reachable from the start
// symbol by walking the rule graph breadth-first (ErrKindUnreachableStart
// guards against dead productions the dialect parser accidentally admits).
func checkReachable(g *Grammar) error {
	reached := map[*Symbol]bool{g.start: true}
	queue := []*Symbol{g.start}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, r := range g.rules {
			if r.LHS != cur {
				continue
			}
			for _, s := range r.RHS {
				if !s.IsTerminal() && !reached[s] {
					reached[s] = true
					queue = append(queue, s)
				}
			}
		}
	}
	for name, s := range g.nonterminals {
		if !reached[s] {
			return &Error{Kind: ErrKindUnreachableStart,
				Message: fmt.Sprintf("non-terminal %q is unreachable from start symbol %q", name, g.start.Name)}
		}
	}
	return nil
}
