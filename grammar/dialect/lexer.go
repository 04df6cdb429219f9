/*
Package dialect implements the default grammar surface syntax: EBNF-style
productions over named non-terminals, with terminals factored out as
separate `NAME := <regex>;` declarations, plus a `%schema "<pointer>" { ... }`
directive for JSON-Schema-driven rule expansion (§4.1 step 1).

Inline terminal literals inside a production's RHS (e.g. writing a bare
regex where a terminal reference belongs) are deliberately rejected with
ErrKindMalformed; an inline repetition operator after a symbol is rejected
with ErrKindUnsupportedInline — terminals must be declared once, by name, so a
CompiledGrammar's terminal automata can be interned and shared across rules
(§3 invariant 6, §4.3).

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2021–2026 The LatticeForge Authors
*/
package dialect

import (
	"github.com/npillmayer/schuko/tracing"
	"github.com/timtadh/lexmachine"
	"github.com/timtadh/lexmachine/machines"
)

// tracer traces with key 'cdc.grammar.dialect'.
func tracer() tracing.Trace {
	return tracing.Select("cdc.grammar.dialect")
}

type tokKind int

const (
	tokIdent tokKind = iota
	tokRegexLit
	tokStringLit
	tokAssignRule  // ::=
	tokAssignTerm  // :=
	tokBar         // |
	tokSemi        // ;
	tokLParen      // (
	tokRParen      // )
	tokStar        // *
	tokPlus        // +
	tokQuestion    // ?
	tokLBrace      // {
	tokRBrace      // }
	tokPercentSchema
	tokEnd     // $end
	tokEpsilon // epsilon keyword
	tokEOF
)

type token struct {
	kind tokKind
	text string
	pos  int
}

var lexerOnce *lexmachine.Lexer

func buildLexer() (*lexmachine.Lexer, error) {
	lex := lexmachine.NewLexer()
	add := func(pattern string, k tokKind) {
		lex.Add([]byte(pattern), func(s *lexmachine.Scanner, m *machines.Match) (interface{}, error) {
			return &token{kind: k, text: string(m.Bytes), pos: m.TC}, nil
		})
	}
	skip := func(pattern string) {
		lex.Add([]byte(pattern), func(*lexmachine.Scanner, *machines.Match) (interface{}, error) {
			return nil, nil
		})
	}

	skip(`[ \t\n\r]+`)
	skip(`//[^\n]*`)

	add("::=", tokAssignRule)
	add(":=", tokAssignTerm)
	add(`\|`, tokBar)
	add(";", tokSemi)
	add(`\(`, tokLParen)
	add(`\)`, tokRParen)
	add(`\*`, tokStar)
	add(`\+`, tokPlus)
	add(`\?`, tokQuestion)
	add(`\{`, tokLBrace)
	add(`\}`, tokRBrace)
	add(`%schema`, tokPercentSchema)
	add(`\$end`, tokEnd)
	add("epsilon", tokEpsilon)
	add("`[^`]*`", tokRegexLit)
	add(`"([^"\\]|\\.)*"`, tokStringLit)
	add(`[A-Za-z_][A-Za-z0-9_]*`, tokIdent)

	if err := lex.Compile(); err != nil {
		return nil, err
	}
	return lex, nil
}

func init() {
	lex, err := buildLexer()
	if err != nil {
		tracer().Errorf("dialect lexer failed to compile: %v", err)
		return
	}
	lexerOnce = lex
}

// tokenize lexes source into a flat token slice terminated by a tokEOF.
func tokenize(source string) ([]*token, error) {
	if lexerOnce == nil {
		relexed, err := buildLexer()
		if err != nil {
			return nil, err
		}
		lexerOnce = relexed
	}
	scan, err := lexerOnce.Scanner([]byte(source))
	if err != nil {
		return nil, err
	}
	var toks []*token
	for {
		tok, err, eof := scan.Next()
		if eof {
			break
		}
		if err != nil {
			if ui, is := err.(*machines.UnconsumedInput); is {
				scan.TC = ui.FailTC
				continue
			}
			return nil, err
		}
		if tok != nil {
			toks = append(toks, tok.(*token))
		}
	}
	toks = append(toks, &token{kind: tokEOF, pos: len(source)})
	return toks, nil
}
