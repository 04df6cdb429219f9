package provider

import (
	"context"
	"math"

	"github.com/latticeforge/cdc"
)

// Fake is a deterministic in-memory Provider for tests: it returns a fixed
// logit distribution (or one supplied per call via Script) without ever
// touching the network, so grammar/mask/orchestrator tests never depend on
// a real backend being reachable.
type Fake struct {
	Vocab  *cdc.Vocabulary
	Script func(step int, prefix string, emitted []cdc.VocabIndex) []float32
	step   int
}

// NewFake creates a Fake bound to vocab. If script is nil, every step
// returns a uniform logit distribution.
func NewFake(vocab *cdc.Vocabulary, script func(step int, prefix string, emitted []cdc.VocabIndex) []float32) *Fake {
	return &Fake{Vocab: vocab, Script: script}
}

// BindTokenizer implements Provider.
func (f *Fake) BindTokenizer(ctx context.Context) (*cdc.Vocabulary, error) {
	return f.Vocab, nil
}

// SupportsGrammarHint implements Provider; the fake never uses the hint.
func (f *Fake) SupportsGrammarHint() bool { return false }

// NextLogits implements Provider.
func (f *Fake) NextLogits(ctx context.Context, prefix string, emitted []cdc.VocabIndex) ([]float32, error) {
	select {
	case <-ctx.Done():
		return nil, &Error{Kind: ErrKindCancelled, Message: ctx.Err().Error(), Retryable: false}
	default:
	}
	n := f.Vocab.Size()
	var logits []float32
	if f.Script != nil {
		logits = f.Script(f.step, prefix, emitted)
	}
	if logits == nil {
		logits = make([]float32, n)
		uniform := float32(math.Log(1.0 / float64(n)))
		for i := range logits {
			logits[i] = uniform
		}
	}
	f.step++
	return logits, nil
}
