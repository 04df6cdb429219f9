package decode

import (
	"math"
	"math/rand"
	"testing"

	"github.com/latticeforge/cdc"
)

func allowAll(n int) *cdc.AllowMask {
	m := cdc.NewAllowMask(n)
	for i := 0; i < n; i++ {
		m.Allow(cdc.VocabIndex(i))
	}
	return m
}

func TestSampleGreedyPicksArgmax(t *testing.T) {
	logits := []float32{0.1, 5.0, 2.0}
	mask := allowAll(3)
	idx, err := Sample(logits, mask, nil, SampleConfig{Temperature: 0}, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if idx != 1 {
		t.Fatalf("expected greedy sampling to pick index 1, got %d", idx)
	}
}

func TestSampleRespectsMask(t *testing.T) {
	logits := []float32{10.0, 0.0}
	mask := cdc.NewAllowMask(2)
	mask.Allow(1)
	idx, err := Sample(logits, mask, nil, SampleConfig{Temperature: 0}, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if idx != 1 {
		t.Fatalf("expected masking to exclude the higher-logit but forbidden index, got %d", idx)
	}
}

func TestSampleReturnsErrorWhenNothingAllowed(t *testing.T) {
	logits := []float32{1.0, 2.0}
	mask := cdc.NewAllowMask(2)
	_, err := Sample(logits, mask, nil, SampleConfig{Temperature: 0}, rand.New(rand.NewSource(1)))
	if err == nil {
		t.Fatalf("expected an error when no index is allowed")
	}
}

func TestSampleBoostsInfluenceGreedyChoice(t *testing.T) {
	logits := []float32{5.0, 4.0}
	mask := allowAll(2)
	// log(boosts[1]) == 2.0, enough to overcome the 1.0 logit gap additively.
	boosts := []float32{1.0, float32(math.Exp(2.0))}
	idx, err := Sample(logits, mask, boosts, SampleConfig{Temperature: 0}, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if idx != 1 {
		t.Fatalf("expected the boosted lower-logit index to win, got %d", idx)
	}
}

// TestSampleBoostsNeverInvertNegativeLogits guards against the additive
// blend regressing back into a multiplier: a boost must make a negative
// logit *less* negative, never more, or flip the winner in the wrong
// direction.
func TestSampleBoostsNeverInvertNegativeLogits(t *testing.T) {
	logits := []float32{-9.5, -10.0}
	mask := allowAll(2)
	// log(boosts[1]) == 1.0: -10.0 + 1.0 == -9.0, which should now beat -9.5.
	boosts := []float32{1.0, float32(math.Exp(1.0))}
	idx, err := Sample(logits, mask, boosts, SampleConfig{Temperature: 0}, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if idx != 1 {
		t.Fatalf("expected the rewarded negative-logit candidate to win by becoming less negative, got %d", idx)
	}
}

func TestSampleZeroBoostLeavesLogitUnchanged(t *testing.T) {
	logits := []float32{-10.0, -10.5}
	mask := allowAll(2)
	boosts := []float32{0, 0} // boost <= 0 is ignored, not log'd (log(0) is -inf)
	idx, err := Sample(logits, mask, boosts, SampleConfig{Temperature: 0}, rand.New(rand.NewSource(1)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if idx != 0 {
		t.Fatalf("expected an unboosted comparison to still pick the higher raw logit, got %d", idx)
	}
}

func TestSampleDeterministicForFixedSeed(t *testing.T) {
	logits := []float32{1.0, 1.0, 1.0, 1.0}
	mask := allowAll(4)
	cfg := SampleConfig{Temperature: 1.0}
	a, err := Sample(logits, mask, nil, cfg, rand.New(rand.NewSource(42)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, err := Sample(logits, mask, nil, cfg, rand.New(rand.NewSource(42)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if a != b {
		t.Fatalf("expected identical seeds to produce identical samples, got %d and %d", a, b)
	}
}

func TestSampleTopKRestrictsToBestKCandidates(t *testing.T) {
	logits := []float32{10.0, 9.0, -100.0}
	mask := allowAll(3)
	cfg := SampleConfig{Temperature: 1.0, TopK: 2}
	for i := 0; i < 20; i++ {
		idx, err := Sample(logits, mask, nil, cfg, rand.New(rand.NewSource(int64(i))))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if idx == 2 {
			t.Fatalf("expected top-k=2 filtering to exclude the worst candidate, got index %d", idx)
		}
	}
}

func TestSampleNeverReturnsMaskedIndexUnderTemperature(t *testing.T) {
	logits := []float32{100.0, 1.0, 1.0}
	mask := cdc.NewAllowMask(3)
	mask.Allow(1)
	mask.Allow(2)
	cfg := SampleConfig{Temperature: 1.0}
	for i := 0; i < 30; i++ {
		idx, err := Sample(logits, mask, nil, cfg, rand.New(rand.NewSource(int64(i))))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if idx == 0 {
			t.Fatalf("expected the masked-out high-logit index never to be sampled, got it at seed %d", i)
		}
	}
}
