package reqcompile

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Mode distinguishes a bare continuation of an already-open construct from
// a free-form generation of a whole new artifact (§4.7).
type Mode string

const (
	ModeCompletion    Mode = "completion"
	ModeFullGeneration Mode = "full-generation"
)

// Request is a caller's raw ask, before normalization.
type Request struct {
	Language   string
	Prompt     string // the prefix of already-written text, possibly empty
	GrammarRef string // a grammar source or registry key; resolved by the caller's GC call
	SchemaRef  string // optional JSON-pointer into an attached schema overlay
	Temperature float32 // 0 means "use the language default"
	// MaxTokens is a pointer so "unset" (use the language default) and an
	// explicit 0 are distinguishable: a literal max_tokens=0 must reach the
	// Plan unchanged (§8 boundary behavior — decode.Run then fails it
	// immediately with decode.ErrZeroBudget), not get silently replaced by
	// the language's configured default the way a bare int zero value
	// would be indistinguishable from "not set."
	MaxTokens *int
	Timeout   time.Duration
}

// Plan is the normalized, immutable result of compiling a Request (the
// ConstraintPlan of §3's data model).
type Plan struct {
	ID          string
	Language    string
	Mode        Mode
	GrammarRef  string
	SchemaRef   string
	Temperature float32
	MaxTokens   int
	Timeout     time.Duration
}

// Refine produces a successor Plan with a fresh ID and the given
// MaxTokens/Timeout, all other fields copied. The repair ladder does not use
// it: repair.Repair copies the plan, keeps its ID and swaps only GrammarRef.
func (p *Plan) Refine(maxTokens int, timeout time.Duration) *Plan {
	next := *p
	next.ID = uuid.NewString()
	next.MaxTokens = maxTokens
	next.Timeout = timeout
	return &next
}

const defaultTemperature = float32(0.7)

// Compiler normalizes Requests into Plans using a PolicyStore's per-language
// cue tables instead of hard-coded heuristics.
type Compiler struct {
	policies *PolicyStore
}

// NewCompiler builds a Compiler backed by policies.
func NewCompiler(policies *PolicyStore) *Compiler {
	return &Compiler{policies: policies}
}

// Compile normalizes req into a Plan, classifying it as completion or
// full-generation by matching the language's cue lists against the tail of
// the supplied prompt.
func (c *Compiler) Compile(req Request) *Plan {
	lp := c.policies.Current().For(req.Language)

	mode := classify(req.Prompt, lp)

	temp := req.Temperature
	if temp == 0 {
		temp = defaultTemperature
	}
	maxTokens := lp.MaxTokens
	if req.MaxTokens != nil {
		maxTokens = *req.MaxTokens
	}
	timeout := req.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}

	return &Plan{
		ID:          uuid.NewString(),
		Language:    req.Language,
		Mode:        mode,
		GrammarRef:  req.GrammarRef,
		SchemaRef:   req.SchemaRef,
		Temperature: temp,
		MaxTokens:   maxTokens,
		Timeout:     timeout,
	}
}

// classify implements the RC's completion-vs-full-generation heuristic
// (§4.7): a prompt whose trailing, trimmed text ends with one of the
// language's completion cues (an open block marker, an open parameter
// list, a trailing colon), or whose last line contains one, is a
// completion request; one starting with a full-generation cue (a fresh
// top-level declaration marker) is a full generation. An empty prompt is
// always a full generation. A prompt
// matching neither defaults to full-generation, the more conservative
// choice since it constrains the decode with a complete-construct
// grammar rather than risking a body-only grammar on a prompt that isn't
// actually mid-construct.
func classify(prompt string, lp LanguagePolicy) Mode {
	trimmed := strings.TrimRight(prompt, " \t\r\n")
	if trimmed == "" {
		return ModeFullGeneration
	}
	for _, cue := range lp.CompletionCues {
		if strings.HasSuffix(trimmed, strings.TrimRight(cue, " ")) || strings.Contains(lastLine(trimmed), cue) {
			return ModeCompletion
		}
	}
	for _, cue := range lp.FullGenerationCues {
		if strings.HasPrefix(strings.TrimLeft(trimmed, " \t"), cue) {
			return ModeFullGeneration
		}
	}
	return ModeFullGeneration
}

func lastLine(s string) string {
	if i := strings.LastIndexByte(s, '\n'); i >= 0 {
		return s[i+1:]
	}
	return s
}
