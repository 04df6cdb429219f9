package validate

import (
	"context"

	"golang.org/x/tools/imports"
)

// GoSyntax validates generated Go source by running it through
// golang.org/x/tools/imports.Process — the same formatter/import-fixer
// gorgo itself depends on, repointed here from development tooling to a
// runtime syntax check: a parse failure surfaces as a single KindSyntax
// Diagnostic instead of a formatting side effect.
type GoSyntax struct {
	Filename string // used only to pick import-grouping heuristics; may be ""
}

var _ Validator = (*GoSyntax)(nil)

// Validate implements Validator.
func (g *GoSyntax) Validate(ctx context.Context, text string) ([]Diagnostic, error) {
	_, err := imports.Process(g.Filename, []byte(text), nil)
	if err == nil {
		return []Diagnostic{}, nil
	}
	return []Diagnostic{{
		Kind:    KindSyntax,
		Level:   LevelError,
		Message: err.Error(),
	}}, nil
}
