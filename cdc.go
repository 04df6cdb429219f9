package cdc

import "fmt"

// TokType is a category type for a vocabulary entry. No code in this module
// assigns TokType values: grammar terminals carry their own int32 Value, and
// a Provider's vocabulary pieces are indexed by VocabIndex.
type TokType int

// TokTypeStringer is provided by a grammar/tokenizer pairing to print token
// categories for debugging.
type TokTypeStringer func(TokType) string

// VocabIndex identifies one entry (a "piece") in a Provider's vocabulary.
// It is the unit AllowMask bits are indexed by.
type VocabIndex int32

// EOSIndex is a sentinel used by callers that have not yet bound a
// Vocabulary; real EOS indices come from Vocabulary.EOS().
const EOSIndex VocabIndex = -1

// Span is a half-open interval [From, To) over an input token run. Every
// terminal and non-terminal recognized during a decode is tagged with the
// span of emitted text it covers.
type Span [2]uint64

// From returns the start offset of the span.
func (s Span) From() uint64 { return s[0] }

// To returns the end offset of the span (exclusive).
func (s Span) To() uint64 { return s[1] }

// Len returns the length of the span.
func (s Span) Len() uint64 { return s[1] - s[0] }

// IsNull reports whether the span is the zero span.
func (s Span) IsNull() bool { return s == Span{} }

// Extend grows s so that it also covers other.
func (s Span) Extend(other Span) Span {
	if other[0] < s[0] {
		s[0] = other[0]
	}
	if other[1] > s[1] {
		s[1] = other[1]
	}
	return s
}

func (s Span) String() string {
	return fmt.Sprintf("(%d…%d)", s[0], s[1])
}

// Vocabulary is the ordered list of string token pieces a Provider emits,
// plus the index of its end-of-sequence marker. It is process-wide and
// read-only after BindTokenizer returns it.
type Vocabulary struct {
	ID     string
	Pieces []string
	eos    VocabIndex
}

// NewVocabulary builds a Vocabulary from an ordered piece list and the index
// of the end-of-sequence piece.
func NewVocabulary(id string, pieces []string, eos VocabIndex) *Vocabulary {
	return &Vocabulary{ID: id, Pieces: pieces, eos: eos}
}

// Size returns the number of pieces in the vocabulary.
func (v *Vocabulary) Size() int { return len(v.Pieces) }

// EOS returns the vocabulary index of the end-of-sequence marker.
func (v *Vocabulary) EOS() VocabIndex { return v.eos }

// Piece returns the text of vocabulary entry i.
func (v *Vocabulary) Piece(i VocabIndex) string {
	if int(i) < 0 || int(i) >= len(v.Pieces) {
		return ""
	}
	return v.Pieces[i]
}

// AllowMask is a bitset over a Vocabulary, with an optional companion score
// vector used when soft weights are blended in (§4.6). A zero-value
// AllowMask (nil bits) denotes "no mask computed yet", never "all allowed".
type AllowMask struct {
	bits   []uint64 // one bit per vocabulary index
	Scores []float32
}

// NewAllowMask allocates a mask sized for a vocabulary of n pieces.
func NewAllowMask(n int) *AllowMask {
	return &AllowMask{bits: make([]uint64, (n+63)/64)}
}

// Allow sets the bit for vocabulary index i.
func (m *AllowMask) Allow(i VocabIndex) {
	m.bits[i/64] |= 1 << uint(i%64)
}

// Forbid clears the bit for vocabulary index i.
func (m *AllowMask) Forbid(i VocabIndex) {
	m.bits[i/64] &^= 1 << uint(i%64)
}

// IsAllowed reports whether vocabulary index i is set.
func (m *AllowMask) IsAllowed(i VocabIndex) bool {
	if m == nil || int(i/64) >= len(m.bits) || i < 0 {
		return false
	}
	return m.bits[i/64]&(1<<uint(i%64)) != 0
}

// Count returns the number of set bits.
func (m *AllowMask) Count() int {
	n := 0
	for _, w := range m.bits {
		n += popcount(w)
	}
	return n
}

// Union sets m to the bitwise union of m and other. Used to implement the
// "nondeterministic union" masking rule (§4.2): a piece is allowed if any
// rule-automaton path accepts it.
func (m *AllowMask) Union(other *AllowMask) {
	for i := range m.bits {
		if i < len(other.bits) {
			m.bits[i] |= other.bits[i]
		}
	}
}

// Intersect sets m to the bitwise intersection of m and other. Used to
// implement monotonicity under grammar refinement (invariant 4): the mask
// for a refined grammar is always a subset of the mask for its parent.
func (m *AllowMask) Intersect(other *AllowMask) {
	for i := range m.bits {
		if i < len(other.bits) {
			m.bits[i] &= other.bits[i]
		} else {
			m.bits[i] = 0
		}
	}
}

// SubsetOf reports whether every bit set in m is also set in other —
// the check behind invariant 4 (monotonicity under refinement).
func (m *AllowMask) SubsetOf(other *AllowMask) bool {
	for i := range m.bits {
		var ow uint64
		if i < len(other.bits) {
			ow = other.bits[i]
		}
		if m.bits[i]&^ow != 0 {
			return false
		}
	}
	return true
}

func popcount(w uint64) int {
	n := 0
	for w != 0 {
		w &= w - 1
		n++
	}
	return n
}
