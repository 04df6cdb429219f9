/*
Package provider defines CDC's boundary to an LLM backend (§2, §4.4): the
Decode Orchestrator calls NextLogits once per step and masks the result,
but never knows or cares how those logits were produced. Concrete backends
are an explicit Non-goal of this module (spec.md §1) — only the interface
and a couple of reference implementations (an in-memory fake for tests, and
an HTTP adapter skeleton) live here.

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2021–2026 The LatticeForge Authors
*/
package provider

import (
	"context"

	"github.com/latticeforge/cdc"
)

// Provider is the Decode Orchestrator's only view of an LLM backend. It is
// intentionally narrow: no streaming, no tool-calling, no chat-template
// concerns — those are the serving stack's job, not CDC's (§1 Non-goals,
// concrete LLM backends listed as external interfaces only).
type Provider interface {
	// BindTokenizer returns the Vocabulary this provider serves against.
	// Implementations should return the same *cdc.Vocabulary for the
	// lifetime of the Provider (§4.3: a changed vocabulary forces cache
	// invalidation, it is not expected mid-request).
	BindTokenizer(ctx context.Context) (*cdc.Vocabulary, error)

	// NextLogits returns one step's raw (unmasked) logits over the bound
	// vocabulary, given the prefix already committed to the model and the
	// pieces CDC has emitted so far in the current decode. Implementations
	// must return a *Error (ProviderError), not a bare error, on any backend
	// failure (§7) so the orchestrator can distinguish retryable
	// conditions from fatal ones.
	NextLogits(ctx context.Context, prefix string, emitted []cdc.VocabIndex) ([]float32, error)

	// SupportsGrammarHint reports whether this provider can accept a
	// precomputed AllowMask as a generation-time hint (some backends can
	// apply masks server-side more cheaply than CDC re-deriving them
	// client-side every step). Orchestrator treats this purely as an
	// optimization hint; correctness never depends on it.
	SupportsGrammarHint() bool
}

// ErrKind enumerates ProviderError failure modes (§7).
type ErrKind string

const (
	ErrKindTimeout      ErrKind = "timeout"
	ErrKindRateLimited  ErrKind = "rate-limited"
	ErrKindBackendFault ErrKind = "backend-fault"
	ErrKindCancelled    ErrKind = "cancelled"
)

// Error is ProviderError from §7: a structured backend failure, with a
// Retryable flag the orchestrator's backoff logic consults directly.
type Error struct {
	Kind      ErrKind
	Message   string
	Retryable bool
}

func (e *Error) Error() string { return "provider error [" + string(e.Kind) + "]: " + e.Message }
