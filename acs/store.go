/*
Package acs implements the Adaptive Constraint Store (§4.6): soft, learned
per-terminal weights blended with a grammar's hard mask, so that repeated
validation/repair cycles can steer the decoder away from terminals that
keep failing validation without ever letting a soft weight override a hard
grammar constraint (§3 invariant: soft weights bias among already-legal
continuations, never legalize an illegal one).

Readers take an atomic snapshot (atomic.Pointer) of the current weight
table; writers build a new table and swap it in, so decode's hot path never
blocks behind a write (§4.6 "snapshot-read / serialized-write").

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2021–2026 The LatticeForge Authors
*/
package acs

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/npillmayer/schuko/tracing"
)

// tracer traces with key 'cdc.acs'.
func tracer() tracing.Trace {
	return tracing.Select("cdc.acs")
}

// Key identifies one learned weight: a grammar hash plus the terminal name
// within that grammar the weight applies to. Weights do not transfer
// across different grammars even if a terminal name coincides.
type Key struct {
	GrammarHash string
	Terminal    string
}

// snapshot is an immutable weight table; Store never mutates one in place.
type snapshot struct {
	weights map[Key]float32
}

// Store holds the process-wide table of soft weights.
type Store struct {
	cur        atomic.Pointer[snapshot]
	writeMutex sync.Mutex // serializes writers; readers never take this
	stopDecay  chan struct{}
}

// NewStore creates an empty Store.
func NewStore() *Store {
	s := &Store{}
	s.cur.Store(&snapshot{weights: map[Key]float32{}})
	return s
}

// StartDecayLoop runs Decay(factor, floor) on a ticker until StopDecayLoop
// is called, implementing §4.6's "periodic exponential decay" as a
// background process rather than something a caller has to remember to
// invoke by hand — the same spawn-a-goroutine, select-on-a-stop-channel
// shape reqcompile.PolicyStore uses for its fsnotify hot-reload watcher,
// driven here by a ticker instead of file events. Calling it
// twice without an intervening StopDecayLoop replaces the previous loop.
func (s *Store) StartDecayLoop(interval time.Duration, factor, floor float32) {
	stop := make(chan struct{})
	s.stopDecay = stop
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				s.Decay(factor, floor)
			}
		}
	}()
}

// StopDecayLoop stops a loop started by StartDecayLoop. Safe to call even
// if no loop is running.
func (s *Store) StopDecayLoop() {
	if s.stopDecay != nil {
		close(s.stopDecay)
		s.stopDecay = nil
	}
}

// Snapshot returns the current weight table. The returned map must be
// treated as read-only by the caller.
func (s *Store) Snapshot() map[Key]float32 {
	return s.cur.Load().weights
}

// Weight returns the current soft weight for k, or 0 if none has been
// learned yet (a weight of 0 is neutral: it neither boosts nor penalizes).
func (s *Store) Weight(k Key) float32 {
	return s.cur.Load().weights[k]
}

// clampWeight keeps a weight within the [0,1] range the data model requires
// (spec.md §3: `SoftConstraint... weight ∈ [0,1]`). 0 is neutral — it
// blends to a no-op multiplier (acs.Blend(0, cfg) == 1) — so a penalized
// weight floors at 0 rather than going negative: a soft weight can only
// ever add boost on top of a candidate's raw logit (§4.6), never subtract
// from it, so there is nothing for a negative weight to express.
func clampWeight(w float32) float32 {
	if w < 0 {
		return 0
	}
	if w > 1 {
		return 1
	}
	return w
}

// Penalize lowers k's weight by delta (delta should be positive), learning
// from a repair-ladder failure attributed to terminal k.Terminal (§4.6,
// §4.5): `w ← max(0, w − α·p)`. Serialized against concurrent writers;
// readers are unaffected until the new snapshot is published.
func (s *Store) Penalize(k Key, delta float32) {
	s.mutate(func(w map[Key]float32) {
		w[k] = clampWeight(w[k] - delta)
	})
}

// Reward raises k's weight by delta, learning from a successful decode that
// used terminal k.Terminal where an alternative was also legal.
func (s *Store) Reward(k Key, delta float32) {
	s.mutate(func(w map[Key]float32) {
		w[k] = clampWeight(w[k] + delta)
	})
}

// Set overwrites k's weight outright, used by the repair ladder (§4.5) to
// promote a successful refinement straight to a SoftConstraint rather than
// accumulating it through repeated Reward calls.
func (s *Store) Set(k Key, weight float32) {
	s.mutate(func(w map[Key]float32) {
		w[k] = clampWeight(weight)
	})
}

// defaultDecayFloor is the weight below which Decay prunes an entry
// outright (§4.6 "periodic exponential decay... low-weight entries below a
// floor are pruned") rather than letting it linger as noise forever.
const defaultDecayFloor = 0.01

// Decay multiplies every weight by factor (0 < factor < 1 shrinks towards
// neutral) and prunes entries that fall below floor, implementing §4.6's
// periodic decay/pruning half of the learning rule. A factor of 1 is a
// no-op; callers on a ticker typically use something close to but below 1
// (e.g. 0.99 per tick) so unreinforced weights fade out over many ticks
// rather than vanishing on the first one.
func (s *Store) Decay(factor, floor float32) {
	if floor <= 0 {
		floor = defaultDecayFloor
	}
	s.mutate(func(w map[Key]float32) {
		for k, v := range w {
			v *= factor
			if v < floor {
				delete(w, k)
				continue
			}
			w[k] = v
		}
	})
	tracer().Debugf("acs decay applied, factor=%v floor=%v", factor, floor)
}

// LoadSnapshot replaces the entire weight table with persisted, restoring
// learned state at process start (persist.Store.LoadWeights supplies the
// map this expects).
func (s *Store) LoadSnapshot(persisted map[Key]float32) {
	s.mutate(func(w map[Key]float32) {
		for k := range w {
			delete(w, k)
		}
		for k, v := range persisted {
			w[k] = clampWeight(v)
		}
	})
}

// Reset clears every learned weight for grammarHash, e.g. when a grammar is
// recompiled and its prior terminals may no longer mean the same thing.
func (s *Store) Reset(grammarHash string) {
	s.mutate(func(w map[Key]float32) {
		for k := range w {
			if k.GrammarHash == grammarHash {
				delete(w, k)
			}
		}
	})
}

func (s *Store) mutate(f func(map[Key]float32)) {
	s.writeMutex.Lock()
	defer s.writeMutex.Unlock()
	old := s.cur.Load()
	next := make(map[Key]float32, len(old.weights))
	for k, v := range old.weights {
		next[k] = v
	}
	f(next)
	s.cur.Store(&snapshot{weights: next})
	tracer().Debugf("acs snapshot published, %d weights", len(next))
}
