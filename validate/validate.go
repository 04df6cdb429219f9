/*
Package validate defines the Validator contract the Validation-Repair Loop
(§4.5) drives: a grammar-accepted generation may still be semantically
wrong (a Go snippet that doesn't compile, a JSON document that fails a
business-rule check beyond what the grammar encodes), and Validator is
CDC's boundary to whatever external checker catches that — concrete test
execution sandboxes are out of scope (§1 Non-goals); this package only
defines the contract and ships one concrete, in-scope validator
(gosyntax.go, a pure-syntax check).

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2021–2026 The LatticeForge Authors
*/
package validate

import "context"

// Level is a Diagnostic's severity.
type Level string

const (
	LevelError   Level = "error"
	LevelWarning Level = "warning"
	LevelInfo    Level = "info"
)

// Kind categorizes what a Diagnostic is complaining about. The repair
// ladder (§4.5) does not route on it — repair.Repair always takes the first
// rung not yet attempted — but repair's penaltyFor uses it to size the
// weight penalty, and KindBudget marks a failure no rung is tried for.
type Kind string

const (
	KindSyntax       Kind = "syntax"
	KindTypeMismatch Kind = "type-mismatch"
	KindConstraint   Kind = "constraint"
	KindIncomplete   Kind = "incomplete"
	// KindBudget marks a failure caused by the decode budget itself (§8
	// boundary behavior: max_tokens=0), not by anything the generated text
	// got wrong.
	KindBudget Kind = "budget"
)

// Location points at the offending span within the generated text, in
// bytes, for tooling that wants to highlight it.
type Location struct {
	Offset int
	Length int
}

// Diagnostic is one Validator finding.
type Diagnostic struct {
	Kind         Kind
	Level        Level
	Location     Location
	Message      string
	SuggestedFix string // optional: a textual hint the repair ladder may use directly
	Code         string // optional: a stable machine-readable diagnostic code
}

// Validator checks a completed (or partially completed) generation beyond
// what the grammar mask alone enforces.
type Validator interface {
	// Validate returns every diagnostic found in text. An empty, non-nil
	// slice means "checked, nothing wrong"; nil alone is ambiguous and
	// callers should treat it the same as empty.
	Validate(ctx context.Context, text string) ([]Diagnostic, error)
}

// Func adapts a plain function to the Validator interface.
type Func func(ctx context.Context, text string) ([]Diagnostic, error)

// Validate implements Validator.
func (f Func) Validate(ctx context.Context, text string) ([]Diagnostic, error) {
	return f(ctx, text)
}
