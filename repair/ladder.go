/*
Package repair implements the Validation–Repair Loop (VRL, §4.5): after a
decode stream ends, an external validate.Validator checks the artifact;
on failure, the five-strategy repair ladder refines the request's plan and
the caller reruns decode.Run, up to a bounded attempt count.

Because invariant 4 (mask monotonicity under grammar refinement) holds for
every grammar GC ever compiles, each rung of the ladder is only asked to
name a *strictly narrower* grammar than the one before it — it never needs
to prove that itself, GC and the CFSM already guarantee it.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2021–2026 The LatticeForge Authors
*/
package repair

import (
	"github.com/npillmayer/schuko/tracing"

	"github.com/latticeforge/cdc/reqcompile"
	"github.com/latticeforge/cdc/validate"
)

// tracer traces with key 'cdc.repair'.
func tracer() tracing.Trace {
	return tracing.Select("cdc.repair")
}

// RefinementOptions names, in ladder order, the alternative grammar refs
// a request may fall back to (§4.5 strategy ladder). A caller populates
// whichever rungs its grammar registry actually has refinements for;
// leaving a field empty skips that rung rather than failing it. These are
// refs a GrammarSource (decode.GrammarSource) resolves, not literal
// source text — the ladder reasons about *which* grammar to try next, not
// how to synthesize one from diagnostics.
type RefinementOptions struct {
	// ConstraintTightened names a grammar ref with additional forbidden
	// alternatives or stricter terminal patterns derived from recurring
	// syntax diagnostics.
	ConstraintTightened string
	// TypeNarrowed names a grammar ref restricted to inhabitants of a
	// narrower type, per an external type-checker's diagnostic.
	TypeNarrowed string
	// ExampleInjected names a grammar ref with a positive example
	// anchored in as a literal skeleton.
	ExampleInjected string
	// TemplateFallback names a conservative, high-structure template
	// grammar for the same target.
	TemplateFallback string
	// Simplified names a grammar ref with optional complexity (e.g.
	// generics) dropped.
	Simplified string
}

// rung is one ordered step of the ladder: a name, for RepairRecord
// bookkeeping, and the ref it falls back to.
type rung struct {
	name string
	ref  string
}

func (r RefinementOptions) rungs() []rung {
	return []rung{
		{"constraint-tightening", r.ConstraintTightened},
		{"type-narrowing", r.TypeNarrowed},
		{"example-injection", r.ExampleInjected},
		{"template-fallback", r.TemplateFallback},
		{"simplify", r.Simplified},
	}
}

// Action is what Repair decided to do with a failed attempt.
type Action string

const (
	ActionAccept Action = "accept"
	ActionRetry  Action = "retry"
	ActionFail   Action = "fail"
)

// Decision is the result of one Repair call: repair(plan, artifact,
// diagnostics) → NextAction ∈ {accept, retry(plan'), fail(kind)} (§4.5).
type Decision struct {
	Action Action
	Plan   *reqcompile.Plan // populated only when Action == ActionRetry
	Rung   string           // which ladder rung produced Plan, for RepairRecord
	Reason string           // populated when Action == ActionFail
}

// Repair applies the next unused rung of the ladder to plan, given the
// diagnostics the last attempt produced. attempted lists the rung names
// already tried for this request (each rung applies at most once per
// attempt, §4.5), so repeated calls walk the ladder forward rather than
// retrying the same rung.
func Repair(plan *reqcompile.Plan, diagnostics []validate.Diagnostic, opts RefinementOptions, attempted map[string]bool) Decision {
	if len(diagnostics) == 0 {
		return Decision{Action: ActionAccept}
	}
	for _, r := range opts.rungs() {
		if r.ref == "" || attempted[r.name] {
			continue
		}
		next := *plan
		next.GrammarRef = r.ref
		tracer().Infof("repair: advancing to rung %q for plan %s", r.name, plan.ID)
		return Decision{Action: ActionRetry, Plan: &next, Rung: r.name}
	}
	return Decision{Action: ActionFail, Reason: "repair ladder exhausted with diagnostics still outstanding"}
}
