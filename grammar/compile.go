package grammar

import "fmt"

// DialectParser turns one grammar dialect's surface syntax into a
// GrammarBuilder. Package grammar/dialect registers the EBNF-with-regex-
// terminals dialect under the name "ebnf" via RegisterDialect; additional
// dialects (e.g. a future PEG variant) can register under other names
// without grammar.Compile itself changing.
type DialectParser interface {
	Parse(source string) (*GrammarBuilder, error)
}

var dialects = map[string]DialectParser{}

// RegisterDialect makes a DialectParser available to Compile under name.
// Called from dialect-package init()s; not meant for runtime use.
func RegisterDialect(name string, p DialectParser) {
	dialects[name] = p
}

// TokenizerRef identifies the tokenizer a compiled grammar's masking phase
// must align terminal byte-ranges against (§2, §4.2) — CDC treats the
// vocabulary as an external fact about the serving LLM, not something GC
// computes.
type TokenizerRef struct {
	ID       string
	Checksum string
}

// Compile turns grammar source text into a CompiledGrammar, by dispatching
// to the registered DialectParser for `dialect`, building the Grammar, and
// constructing its automaton (§4.1 steps 1-3: parse surface syntax into
// rules, factor terminals into byte automata, build the CFSM). It does not
// itself consult any cache — package cache wraps Compile with the
// compiled-grammar LRU and singleflight coalescing (§6).
func Compile(source, dialect string, tokenizer TokenizerRef) (*CompiledGrammar, error) {
	parser, ok := dialects[dialect]
	if !ok {
		return nil, &Error{Kind: ErrKindUnsupportedDialect,
			Message: fmt.Sprintf("no grammar dialect registered under %q", dialect)}
	}
	builder, err := parser.Parse(source)
	if err != nil {
		return nil, err
	}
	g, err := builder.Grammar()
	if err != nil {
		return nil, err
	}
	g.Dialect = dialect
	g.Source = source

	cg, err := Build(g)
	if err != nil {
		return nil, err
	}
	tracer().Infof("compiled grammar %q (dialect=%s, tokenizer=%s): hash=%s",
		g.Name, dialect, tokenizer.ID, cg.Hash)
	return cg, nil
}
