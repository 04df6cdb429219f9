package acs

import "testing"

func TestBlendNeutralAtZeroWeight(t *testing.T) {
	got := Blend(0, DefaultPenaltyConfig())
	if got != 1.0 {
		t.Fatalf("Blend(0, ...) = %v, want 1.0 (neutral multiplier)", got)
	}
}

func TestBlendMonotoneInWeight(t *testing.T) {
	cfg := DefaultPenaltyConfig()
	low := Blend(-0.5, cfg)
	mid := Blend(0, cfg)
	high := Blend(0.5, cfg)
	if !(low < mid && mid < high) {
		t.Fatalf("expected Blend to be strictly increasing in weight, got low=%v mid=%v high=%v", low, mid, high)
	}
	if low <= 0 {
		t.Fatalf("expected Blend to stay strictly positive even for a negative weight, got %v", low)
	}
}

func TestBlendRejectsNonPositiveTemperature(t *testing.T) {
	cfg := PenaltyConfig{Temperature: 0, RewardDelta: 0.1, PenaltyDelta: 0.1}
	got := Blend(1.0, cfg)
	want := Blend(1.0, PenaltyConfig{Temperature: 1.0})
	if got != want {
		t.Fatalf("expected a non-positive temperature to fall back to 1.0, got %v want %v", got, want)
	}
}
