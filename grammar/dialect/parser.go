package dialect

import (
	"fmt"

	"github.com/latticeforge/cdc/grammar"
)

// Parser implements grammar.DialectParser for the default EBNF-with-regex-
// terminals surface syntax. It is registered under the name "ebnf".
type Parser struct{}

func init() {
	grammar.RegisterDialect("ebnf", &Parser{})
}

// Parse implements grammar.DialectParser.
func (Parser) Parse(source string) (*grammar.GrammarBuilder, error) {
	toks, err := tokenize(source)
	if err != nil {
		return nil, &grammar.Error{Kind: grammar.ErrKindMalformed, Message: err.Error()}
	}
	p := &parser{toks: toks, src: source, b: grammar.NewBuilder(""), terminals: map[string]string{}}
	p.prescanTerminals()
	if err := p.program(); err != nil {
		return nil, err
	}
	return p.b, nil
}

type parser struct {
	toks      []*token
	pos       int
	src       string // original source text, needed so schemaDirective can recover the raw (non-tokenized) JSON body
	b         *grammar.GrammarBuilder
	terminals map[string]string // name -> regex pattern, collected up front so rule bodies can forward-reference terminals
}

// prescanTerminals walks the token stream once looking for "NAME := `regex`"
// declarations, so sequence() can tell a terminal reference from a
// non-terminal reference regardless of declaration order.
func (p *parser) prescanTerminals() {
	for i := 0; i+2 < len(p.toks); i++ {
		if p.toks[i].kind == tokIdent && p.toks[i+1].kind == tokAssignTerm && p.toks[i+2].kind == tokRegexLit {
			name := p.toks[i].text
			pat := p.toks[i+2].text
			p.terminals[name] = pat[1 : len(pat)-1]
		}
	}
}

func (p *parser) cur() *token  { return p.toks[p.pos] }
func (p *parser) advance() *token {
	t := p.toks[p.pos]
	if p.pos < len(p.toks)-1 {
		p.pos++
	}
	return t
}

func (p *parser) expect(k tokKind, what string) (*token, error) {
	if p.cur().kind != k {
		return nil, p.errf("expected %s", what)
	}
	return p.advance(), nil
}

func (p *parser) errf(format string, args ...interface{}) error {
	return &grammar.Error{Kind: grammar.ErrKindMalformed,
		Position: p.cur().pos, Message: fmt.Sprintf(format, args...)}
}

func (p *parser) program() error {
	for p.cur().kind != tokEOF {
		switch p.cur().kind {
		case tokPercentSchema:
			if err := p.schemaDirective(); err != nil {
				return err
			}
		case tokIdent:
			if err := p.declaration(); err != nil {
				return err
			}
		default:
			return p.errf("unexpected token %q at top level", p.cur().text)
		}
	}
	return nil
}

// declaration disambiguates "NAME ::= ..." (a rule) from "NAME := regex"
// (a terminal declaration) by looking one token ahead.
func (p *parser) declaration() error {
	name := p.advance().text
	switch p.cur().kind {
	case tokAssignRule:
		p.advance()
		return p.rule(name)
	case tokAssignTerm:
		p.advance()
		return p.terminalDecl(name)
	default:
		return p.errf("expected ::= or := after %q", name)
	}
}

func (p *parser) rule(lhsName string) error {
	for {
		rb := p.b.LHS(lhsName)
		if err := p.sequence(rb); err != nil {
			return err
		}
		rb.End()
		if p.cur().kind == tokBar {
			p.advance()
			continue
		}
		break
	}
	_, err := p.expect(tokSemi, "';' to terminate rule")
	return err
}

// sequence parses one alternative's RHS. An empty sequence (next token is
// '|' or ';') with no "epsilon" keyword is itself an error: the dialect
// requires an explicit epsilon marker so an empty RHS can never be
// mistaken for an omitted one.
func (p *parser) sequence(rb *grammar.RuleBuilder) error {
	if p.cur().kind == tokEpsilon {
		p.advance()
		rb.Epsilon()
		return nil
	}
	count := 0
	for {
		switch p.cur().kind {
		case tokIdent:
			name := p.advance().text
			if pat, isTerm := p.terminals[name]; isTerm {
				rb.T(name, pat)
			} else {
				rb.N(name)
			}
			count++
		case tokRegexLit:
			return p.errf("inline terminal literal %s not permitted in a rule body; declare it with NAME := %s;",
				p.cur().text, p.cur().text)
		case tokLParen:
			return p.errf("inline grouping '(...)' is not a supported grammar construct")
		case tokEnd:
			p.advance()
			rb.EOF()
			count++
		default:
			if count == 0 {
				return p.errf("empty rule body without an explicit 'epsilon' marker")
			}
			return nil
		}
		if p.cur().kind == tokStar || p.cur().kind == tokPlus || p.cur().kind == tokQuestion {
			return &grammar.Error{Kind: grammar.ErrKindUnsupportedInline, Position: p.cur().pos,
				Message: "inline repetition operators (*, +, ?) require desugaring into a fresh rule; write the repetition out explicitly"}
		}
	}
}

func (p *parser) terminalDecl(name string) error {
	tok, err := p.expect(tokRegexLit, "a backtick-quoted regex pattern")
	if err != nil {
		return err
	}
	pattern := tok.text[1 : len(tok.text)-1]
	p.b.DeclareTerminal(name, pattern)
	_, err = p.expect(tokSemi, "';' to terminate terminal declaration")
	return err
}

// schemaDirective captures a %schema "<pointer>" { <raw body> } block and
// hands the raw body off to grammar.ExpandSchemaDirective, which expands it
// into rules on p.b by a recursive walk over the schema (grammar/schema.go).
func (p *parser) schemaDirective() error {
	p.advance() // %schema
	ptrTok, err := p.expect(tokStringLit, "a JSON-pointer string")
	if err != nil {
		return err
	}
	pointer := ptrTok.text[1 : len(ptrTok.text)-1]
	open, err := p.expect(tokLBrace, "'{' to open schema body")
	if err != nil {
		return err
	}
	bodyStart := open.pos + 1 // byte position right after the opening '{'
	depth := 1
	for depth > 0 {
		switch p.cur().kind {
		case tokLBrace:
			depth++
		case tokRBrace:
			depth--
		case tokEOF:
			return p.errf("unterminated %%schema block for %q", pointer)
		}
		p.advance()
	}
	closeTok := p.toks[p.pos-1] // the matching '}' just consumed
	// The body is recovered as a byte slice of the original source, not a
	// re-rendering of tokens: the %schema body is JSON, and JSON's own
	// punctuation (':', ',', '[', ']') isn't part of this dialect's token
	// alphabet, so tokenizing it would silently drop characters. Brace
	// tokens alone are enough to find the extent; the content in between is
	// handed to ExpandSchemaDirective verbatim.
	body := p.src[bodyStart:closeTok.pos]
	return grammar.ExpandSchemaDirective(p.b, pointer, body)
}
