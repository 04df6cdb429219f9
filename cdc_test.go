package cdc

import "testing"

func TestAllowMaskAllowForbid(t *testing.T) {
	m := NewAllowMask(130)
	m.Allow(5)
	m.Allow(129)
	if !m.IsAllowed(5) || !m.IsAllowed(129) {
		t.Fatalf("expected indices 5 and 129 to be allowed")
	}
	if m.IsAllowed(6) {
		t.Fatalf("expected index 6 to be forbidden")
	}
	m.Forbid(5)
	if m.IsAllowed(5) {
		t.Fatalf("expected index 5 to be forbidden after Forbid")
	}
	if got, want := m.Count(), 1; got != want {
		t.Fatalf("Count() = %d, want %d", got, want)
	}
}

func TestAllowMaskUnionIntersectSubsetOf(t *testing.T) {
	a := NewAllowMask(64)
	b := NewAllowMask(64)
	a.Allow(1)
	a.Allow(2)
	b.Allow(2)
	b.Allow(3)

	union := NewAllowMask(64)
	union.Union(a)
	union.Union(b)
	for _, i := range []VocabIndex{1, 2, 3} {
		if !union.IsAllowed(i) {
			t.Errorf("expected union to allow %d", i)
		}
	}

	inter := NewAllowMask(64)
	inter.Union(a)
	inter.Intersect(b)
	if inter.IsAllowed(1) || !inter.IsAllowed(2) || inter.IsAllowed(3) {
		t.Fatalf("intersection mismatch: %v", inter)
	}

	if !inter.SubsetOf(a) {
		t.Errorf("expected intersection to be a subset of a")
	}
	if a.SubsetOf(inter) {
		t.Errorf("did not expect a to be a subset of its own intersection with b")
	}
}

func TestSpanExtend(t *testing.T) {
	s := Span{2, 5}
	s = s.Extend(Span{0, 3})
	if s.From() != 0 || s.To() != 5 {
		t.Fatalf("Extend produced %v, want (0,5)", s)
	}
}

func TestVocabularyPieceOutOfRange(t *testing.T) {
	v := NewVocabulary("test", []string{"a", "b"}, 1)
	if v.Piece(5) != "" {
		t.Errorf("expected out-of-range Piece to return empty string")
	}
	if v.EOS() != 1 {
		t.Errorf("EOS() = %d, want 1", v.EOS())
	}
}
