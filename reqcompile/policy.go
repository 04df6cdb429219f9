/*
Package reqcompile implements the Request Compiler (RC, §4.7): it turns a
caller's raw request (target language, a prefix of already-written text, a
grammar reference) into a normalized Plan the Decode Orchestrator runs,
deciding along the way whether the request is a completion or a full
generation. Those classification cues are intentionally data (a YAML policy
table), not Go code, so operators can tune per-language behavior without a
rebuild — the same shape codenerd uses for its own hot-reloaded config,
grounded on that repo's fsnotify-driven watcher idiom (mangle_watcher.go).

License

Governed by a 3-Clause BSD license. License file may be found in the root
folder of this module.

Copyright © 2021–2026 The LatticeForge Authors
*/
package reqcompile

import (
	"os"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/npillmayer/schuko/tracing"
	"gopkg.in/yaml.v3"
)

// tracer traces with key 'cdc.reqcompile'.
func tracer() tracing.Trace {
	return tracing.Select("cdc.reqcompile")
}

// LanguagePolicy holds the completion/full-generation cues and decode
// defaults for one target language.
type LanguagePolicy struct {
	CompletionCues     []string `yaml:"completion_cues"`
	FullGenerationCues []string `yaml:"full_generation_cues"`
	MaxTokens          int      `yaml:"max_tokens"`
}

// Policy is the parsed policy.yaml document: one LanguagePolicy per
// supported language, plus a Default fallback.
type Policy struct {
	Languages map[string]LanguagePolicy `yaml:"languages"`
	Default   LanguagePolicy            `yaml:"default"`
}

// For returns the policy for language, falling back to Default if the
// language has no specific entry.
func (p *Policy) For(language string) LanguagePolicy {
	if lp, ok := p.Languages[language]; ok {
		return lp
	}
	return p.Default
}

// PolicyStore holds the current Policy and hot-reloads it from disk via
// fsnotify whenever the backing file changes, so operators can retune
// per-language cues without restarting the orchestrator.
type PolicyStore struct {
	mu      sync.RWMutex
	current *Policy
	path    string
	watcher *fsnotify.Watcher
	stopCh  chan struct{}
}

// LoadPolicyStore reads path once and starts watching it for changes.
func LoadPolicyStore(path string) (*PolicyStore, error) {
	p, err := loadPolicy(path)
	if err != nil {
		return nil, err
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(path); err != nil {
		w.Close()
		return nil, err
	}
	ps := &PolicyStore{current: p, path: path, watcher: w, stopCh: make(chan struct{})}
	go ps.watch()
	return ps, nil
}

func loadPolicy(path string) (*Policy, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var p Policy
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

func (ps *PolicyStore) watch() {
	debounce := map[string]time.Time{}
	for {
		select {
		case <-ps.stopCh:
			return
		case ev, ok := <-ps.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			now := time.Now()
			if last, seen := debounce[ev.Name]; seen && now.Sub(last) < 300*time.Millisecond {
				continue
			}
			debounce[ev.Name] = now
			p, err := loadPolicy(ps.path)
			if err != nil {
				tracer().Errorf("reqcompile: failed to reload policy %s: %v", ps.path, err)
				continue
			}
			ps.mu.Lock()
			ps.current = p
			ps.mu.Unlock()
			tracer().Infof("reqcompile: reloaded policy from %s", ps.path)
		case err, ok := <-ps.watcher.Errors:
			if !ok {
				return
			}
			tracer().Errorf("reqcompile: policy watcher error: %v", err)
		}
	}
}

// Current returns the currently loaded Policy, safe for concurrent use.
func (ps *PolicyStore) Current() *Policy {
	ps.mu.RLock()
	defer ps.mu.RUnlock()
	return ps.current
}

// Close stops the background watcher.
func (ps *PolicyStore) Close() error {
	close(ps.stopCh)
	return ps.watcher.Close()
}
