package acs

import "math"

// PenaltyConfig parameterizes soft-weight blending (SPEC_FULL.md §9): weights
// are blended in with a configurable temperature. It is set in code —
// DefaultPenaltyConfig, or a caller assigning decode.Orchestrator.Penalty —
// and is not read from reqcompile's policy YAML. Only Temperature is used
// (by Blend); the repair loop's reward and penalty sizes are constants in
// package repair, not RewardDelta and PenaltyDelta.
type PenaltyConfig struct {
	Temperature  float32 `yaml:"temperature"`
	RewardDelta  float32 `yaml:"reward_delta"`
	PenaltyDelta float32 `yaml:"penalty_delta"`
}

// DefaultPenaltyConfig is used wherever no policy override applies.
func DefaultPenaltyConfig() PenaltyConfig {
	return PenaltyConfig{Temperature: 1.0, RewardDelta: 0.05, PenaltyDelta: 0.15}
}

// Blend combines a terminal's hard-mask eligibility (always true here: the
// caller only ever calls Blend for terminals the hard mask already allows)
// with its current soft weight, producing a boost in (0, +inf) that
// decode.Sample adds to a token's logit (as a log) before sampling. A
// weight of 0 yields a boost of 1 (neutral, log(1)=0 — no change);
// Store.clampWeight keeps every stored weight within spec.md §3's
// `weight ∈ [0,1]`, so Blend only ever has to push the boost at or above
// neutral, never below it — soft weights promote a rung's standing, they
// never suppress one, preserving the hard-mask/soft-weight separation
// invariant.
func Blend(weight float32, cfg PenaltyConfig) float32 {
	t := cfg.Temperature
	if t <= 0 {
		t = 1.0
	}
	return float32(math.Exp(float64(weight / t)))
}
