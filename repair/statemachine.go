package repair

import (
	"context"
	"errors"

	"github.com/latticeforge/cdc/acs"
	"github.com/latticeforge/cdc/decode"
	"github.com/latticeforge/cdc/persist"
	"github.com/latticeforge/cdc/provider"
	"github.com/latticeforge/cdc/reqcompile"
	"github.com/latticeforge/cdc/validate"
)

// Phase is one state of the VRL state machine (design note §9): `Running →
// Validating → Repairing → Running | Done | Failed`.
type Phase string

const (
	PhaseRunning    Phase = "running"
	PhaseValidating Phase = "validating"
	PhaseRepairing  Phase = "repairing"
	PhaseDone       Phase = "done"
	PhaseFailed     Phase = "failed"
)

// Result is the final disposition of a full Drive call: the accepted
// artifact plus the phase it ended in, and every repair attempt recorded
// along the way.
type Result struct {
	Phase    Phase
	Artifact string
	Attempts []Attempt
	Err      error
}

// Attempt records one trip through Running→Validating (and, on failure,
// the rung of the ladder tried next).
type Attempt struct {
	AttemptNumber int
	Outcome       decode.Outcome
	Diagnostics   []validate.Diagnostic
	Rung          string
}

const defaultMaxAttempts = 3

// Drive runs the full VRL state machine for one request: decode, validate,
// and — on validator failure — repair and retry, up to a hard ceiling on
// attempts (default 3, §4.5 "Termination"). On a successful validation, it
// persists the RepairRecord chain (if any repairs occurred) and promotes
// the final rung's grammar ref to a SoftConstraint (§4.5 "Learning").
func Drive(ctx context.Context, orch *decode.Orchestrator, src decode.GrammarSource, prov provider.Provider,
	validator validate.Validator, store *persist.Store, weights *acs.Store,
	plan *reqcompile.Plan, prompt string, opts RefinementOptions) Result {

	phase := PhaseRunning
	attempted := map[string]bool{}
	var attempts []Attempt
	currentPlan := plan
	lastRung := ""

	for attemptN := 1; ; attemptN++ {
		if attemptN > defaultMaxAttempts {
			phase = PhaseFailed
			return finish(phase, "", attempts, weights, currentPlan, lastRung, false,
				errTooManyAttempts)
		}

		phase = PhaseRunning
		outcome := orch.Run(ctx, currentPlan, prompt, src, prov)
		if outcome.Status != decode.StatusAccepted {
			phase = PhaseFailed
			attempt := Attempt{AttemptNumber: attemptN, Outcome: outcome}
			if errors.Is(outcome.Err, decode.ErrZeroBudget) {
				// §8 boundary behavior: max_tokens=0 is an immediate
				// validation failure with diagnostic kind budget, not
				// something the repair ladder gets a turn at fixing.
				attempt.Diagnostics = []validate.Diagnostic{
					{Kind: validate.KindBudget, Level: validate.LevelError, Message: outcome.Err.Error()},
				}
			} else {
				penalizeRung(weights, currentPlan, lastRung, basePenaltyDelta)
			}
			attempts = append(attempts, attempt)
			return finish(phase, outcome.Artifact, attempts, weights, currentPlan, lastRung, false, outcome.Err)
		}

		phase = PhaseValidating
		diags, verr := validator.Validate(ctx, outcome.Artifact)
		if verr != nil {
			phase = PhaseFailed
			attempts = append(attempts, Attempt{AttemptNumber: attemptN, Outcome: outcome})
			return finish(phase, outcome.Artifact, attempts, weights, currentPlan, lastRung, false, verr)
		}
		if len(diags) == 0 {
			attempts = append(attempts, Attempt{AttemptNumber: attemptN, Outcome: outcome})
			if store != nil && lastRung != "" {
				_ = store.RecordRepair(currentPlan.ID, currentPlan.GrammarRef, lastRung, attemptN, true, nil)
			}
			return finish(PhaseDone, outcome.Artifact, attempts, weights, currentPlan, lastRung, true, nil)
		}

		penalizeRung(weights, currentPlan, lastRung, penaltyFor(diags))

		phase = PhaseRepairing
		decision := Repair(currentPlan, diags, opts, attempted)
		attempts = append(attempts, Attempt{AttemptNumber: attemptN, Outcome: outcome, Diagnostics: diags, Rung: decision.Rung})
		if store != nil {
			_ = store.RecordRepair(currentPlan.ID, currentPlan.GrammarRef, decision.Rung, attemptN, decision.Action == ActionAccept, diags)
		}
		switch decision.Action {
		case ActionAccept:
			return finish(PhaseDone, outcome.Artifact, attempts, weights, currentPlan, lastRung, true, nil)
		case ActionRetry:
			attempted[decision.Rung] = true
			lastRung = decision.Rung
			currentPlan = decision.Plan
			continue
		default:
			phase = PhaseFailed
			return finish(phase, outcome.Artifact, attempts, weights, currentPlan, lastRung, false, errLadderExhausted)
		}
	}
}

// promotionDelta is the initial weight a successful refinement is promoted
// with — the score derivation spec.md §4.6 names ("initial weight derived
// from the outcome score") is simplified here to a flat reward, since this
// module does not itself compute an outcome score (that would require
// scoring external validator output, which is out of scope).
const promotionDelta = 0.2

// basePenaltyDelta is the default weight-update magnitude for a failed
// rung (§4.6 `w ← max(0, w − α·p)`). securityPenaltyDelta is applied
// instead when a failure's diagnostics carry validate.KindConstraint — this
// codebase's closest analogue to spec.md §4.6's "security-critical
// failures carry the largest penalty", since validate.Kind has no
// dedicated security category and a business-rule/constraint violation is
// the diagnostic kind most likely to represent one.
const (
	basePenaltyDelta     = 0.1
	securityPenaltyDelta = 0.4
)

// penaltyFor picks the weight-update magnitude for a failed attempt's
// diagnostics, per the basePenaltyDelta/securityPenaltyDelta distinction
// above.
func penaltyFor(diags []validate.Diagnostic) float32 {
	for _, d := range diags {
		if d.Kind == validate.KindConstraint {
			return securityPenaltyDelta
		}
	}
	return basePenaltyDelta
}

// penalizeRung learns from a failed attempt by lowering the weight of the
// rung that produced currentPlan (§4.6, §4.5) — the same
// Key{GrammarHash: GrammarRef, Terminal: rung} scheme finish's Reward call
// promotes on success. The very first attempt uses no rung yet
// (rung == ""), so there is nothing to penalize: a ladder-level weight is
// only meaningful once a specific rung has actually been tried.
func penalizeRung(weights *acs.Store, plan *reqcompile.Plan, rung string, delta float32) {
	if weights == nil || rung == "" {
		return
	}
	weights.Penalize(acs.Key{GrammarHash: plan.GrammarRef, Terminal: rung}, delta)
}

// finish assembles a Result and, on a successful request that needed at
// least one repair, promotes the rung that fixed it to a SoftConstraint
// (§4.5 "Learning"). The repair ladder operates at whole-grammar
// granularity (it swaps GrammarRef, not individual terminals), so the
// promoted Key uses the grammar ref as GrammarHash and the rung name as
// Terminal — a deliberate simplification of the per-terminal ACS model
// for a ladder that reasons about whole grammars, not individual rules.
func finish(phase Phase, artifact string, attempts []Attempt, weights *acs.Store, plan *reqcompile.Plan,
	rung string, success bool, err error) Result {
	if success && rung != "" && weights != nil {
		weights.Reward(acs.Key{GrammarHash: plan.GrammarRef, Terminal: rung}, promotionDelta)
	}
	return Result{Phase: phase, Artifact: artifact, Attempts: attempts, Err: err}
}

var errTooManyAttempts = decodeErr("repair: attempt ceiling reached with diagnostics still outstanding")
var errLadderExhausted = decodeErr("repair: ladder exhausted")

type decodeErr string

func (e decodeErr) Error() string { return string(e) }
