package decode

import (
	"math"
	"math/rand"
	"sort"

	"github.com/latticeforge/cdc"
)

// SampleConfig holds the per-step sampling knobs (§4.7, §9 "Per-token
// sampling control"). Orchestrator.Run fills only Temperature, from the
// reqcompile.Plan; a Plan carries no TopK or TopP, so Run leaves both at 0.
type SampleConfig struct {
	Temperature float32 // 0 means greedy (argmax)
	TopK        int     // 0 disables top-k filtering
	TopP        float32 // 0 or 1 disables nucleus filtering
}

// Sample picks one vocabulary index from logits, restricted to the indices
// mask allows and adjusted by boosts (a per-index ACS multiplier in
// (0, +inf), §4.6 — pass a nil boosts to skip soft-weight blending
// entirely). The only randomness comes from the supplied rng, so this
// function is otherwise pure and reproducible for a fixed seed — isolating
// randomness was an explicit design goal (SPEC_FULL.md §9).
//
// Disallowed indices (mask bit 0) never enter the candidate set regardless
// of logits or boosts, preserving the hard-mask/soft-weight separation
// invariant (§3 invariant 5). Boosts are blended additively — effective
// score = logit + log(boost) — rather than as a multiplier on the raw
// logit: multiplying would invert the intended direction for any
// candidate with a negative logit (a boost > 1 would make it more
// negative, a boost < 1 less negative), which is common in real logit
// vectors. log(boost) is 0 at the neutral boost of 1 and positive above it
// (it would be negative only for a boost below 1, which acs.Blend never
// returns), so it only ever shifts a score by the amount ACS actually
// learned, independent of the raw logit's sign.
func Sample(logits []float32, mask *cdc.AllowMask, boosts []float32, cfg SampleConfig, rng *rand.Rand) (cdc.VocabIndex, error) {
	type cand struct {
		idx   cdc.VocabIndex
		score float32
	}
	cands := make([]cand, 0, len(logits))
	for i, lg := range logits {
		idx := cdc.VocabIndex(i)
		if !mask.IsAllowed(idx) {
			continue
		}
		score := lg
		if boosts != nil && i < len(boosts) && boosts[i] > 0 {
			score += float32(math.Log(float64(boosts[i])))
		}
		cands = append(cands, cand{idx, score})
	}
	if len(cands) == 0 {
		return cdc.EOSIndex, errNoLegalToken
	}

	if cfg.Temperature <= 0 {
		best := cands[0]
		for _, c := range cands[1:] {
			if c.score > best.score {
				best = c
			}
		}
		return best.idx, nil
	}

	sort.Slice(cands, func(i, j int) bool { return cands[i].score > cands[j].score })
	if cfg.TopK > 0 && cfg.TopK < len(cands) {
		cands = cands[:cfg.TopK]
	}

	probs := make([]float64, len(cands))
	var sum float64
	for i, c := range cands {
		p := math.Exp(float64(c.score) / float64(cfg.Temperature))
		probs[i] = p
		sum += p
	}
	for i := range probs {
		probs[i] /= sum
	}

	if cfg.TopP > 0 && cfg.TopP < 1 {
		var cum float64
		cut := len(probs)
		for i, p := range probs {
			cum += p
			if cum >= float64(cfg.TopP) {
				cut = i + 1
				break
			}
		}
		cands = cands[:cut]
		probs = probs[:cut]
		sum = 0
		for _, p := range probs {
			sum += p
		}
		for i := range probs {
			probs[i] /= sum
		}
	}

	r := rng.Float64()
	var cum float64
	for i, p := range probs {
		cum += p
		if r <= cum {
			return cands[i].idx, nil
		}
	}
	return cands[len(cands)-1].idx, nil
}
