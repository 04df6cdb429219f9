package earley

import (
	"github.com/latticeforge/cdc"
	"github.com/latticeforge/cdc/grammar"
)

// Mask computes the AllowMask for ps against vocab (§4.2): a vocabulary
// piece is allowed iff walking every currently-predicted terminal's
// automaton across the piece's bytes, starting from that terminal's
// current partial-match state, does not reject outright — the
// "nondeterministic union" rule, since more than one predicted terminal
// may separately accept the same piece. EOS is allowed iff ps is already
// in an accepting Earley set (§4.2 "accepting-only is the only legal place
// to end a generation").
func (ps *ParserState) Mask(vocab *cdc.Vocabulary) *cdc.AllowMask {
	mask := cdc.NewAllowMask(vocab.Size())
	if ps.done && vocab.EOS() >= 0 {
		mask.Allow(vocab.EOS())
	}
	for _, l := range ps.liveTerminals() {
		for i, piece := range vocab.Pieces {
			idx := cdc.VocabIndex(i)
			if idx == vocab.EOS() || piece == "" || mask.IsAllowed(idx) {
				continue
			}
			if pieceSurvives(l.auto, l.start, piece) {
				mask.Allow(idx)
			}
		}
	}
	return mask
}

type liveTerminal struct {
	term  *grammar.Symbol
	auto  *grammar.TerminalAutomaton
	start *grammar.TerminalState
}

func (ps *ParserState) liveTerminals() []liveTerminal {
	predicted := ps.PredictedTerminals()
	lives := make([]liveTerminal, 0, len(predicted))
	for _, t := range predicted {
		auto := ps.cg.TerminalAutomatonFor(t)
		if auto == nil {
			continue
		}
		start, ok := ps.partial[t]
		if !ok {
			// Begin and every completing Advance seed a partial state for
			// each predicted terminal, so a missing entry is a terminal that
			// already died inside the current token; Advance will not
			// consider it either.
			continue
		}
		lives = append(lives, liveTerminal{t, auto, start})
	}
	return lives
}

// Boosts derives a per-vocabulary-index score multiplier from weightOf, a
// caller-supplied lookup from terminal name to a soft-constraint weight
// already blended into a multiplier (§4.6). Only pieces the mask already
// allows are considered (boosting never resurrects a forbidden piece); when
// more than one predicted terminal would boost the same piece, the
// strongest applicable multiplier wins, mirroring the "nondeterministic
// union" rule Mask applies for admissibility.
func (ps *ParserState) Boosts(vocab *cdc.Vocabulary, mask *cdc.AllowMask, weightOf func(terminal string) float32) []float32 {
	boosts := make([]float32, vocab.Size())
	for i := range boosts {
		boosts[i] = 1.0
	}
	for _, l := range ps.liveTerminals() {
		m := weightOf(l.term.Name)
		if m <= 1.0 {
			continue
		}
		for i, piece := range vocab.Pieces {
			idx := cdc.VocabIndex(i)
			if !mask.IsAllowed(idx) || piece == "" {
				continue
			}
			if pieceSurvives(l.auto, l.start, piece) && m > boosts[i] {
				boosts[i] = m
			}
		}
	}
	return boosts
}

// pieceSurvives reports whether walking auto across piece's bytes, starting
// from start, never rejects. A piece may finish mid-automaton (still alive,
// not yet accepting) and is still allowed: the remaining bytes simply carry
// forward as pending partial match on the next step (§4.2 "multi-byte
// tokenizer pieces may straddle terminal boundaries").
func pieceSurvives(auto *grammar.TerminalAutomaton, start *grammar.TerminalState, piece string) bool {
	cur := start
	for i := 0; i < len(piece); i++ {
		next := auto.Step(cur, piece[i])
		if next == nil {
			return false
		}
		cur = next
	}
	return true
}
