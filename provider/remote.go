package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/npillmayer/schuko/tracing"

	"github.com/latticeforge/cdc"
)

// tracer traces with key 'cdc.provider'.
func tracer() tracing.Trace {
	return tracing.Select("cdc.provider")
}

// Remote is an HTTP-backed Provider adapter skeleton: a context-first,
// typed-request/typed-response client shape grounded on the provider layer
// of a production LLM SDK reference (context.Context as the first
// parameter on every blocking call, structured request/response types, a
// distinguishable error type instead of bare strings). It deliberately
// stops at "send a JSON request, decode a JSON response" — authentication
// and streaming belong to the concrete backend this module never
// implements (§1 Non-goals). Remote itself never retries; it marks
// transient failures Retryable and decode.Orchestrator.Run retries those.
type Remote struct {
	BaseURL string
	Client  *http.Client
	Model   string
	vocab   *cdc.Vocabulary
}

// NewRemote creates a Remote client. client may be nil to use
// http.DefaultClient.
func NewRemote(baseURL, model string, client *http.Client) *Remote {
	if client == nil {
		client = http.DefaultClient
	}
	return &Remote{BaseURL: baseURL, Client: client, Model: model}
}

// SupportsGrammarHint implements Provider and reports true. Remote sends no
// mask: its next-logits request carries only the model, prefix and emitted
// indices.
func (r *Remote) SupportsGrammarHint() bool { return true }

type bindTokenizerResponse struct {
	VocabID string   `json:"vocab_id"`
	Pieces  []string `json:"pieces"`
	EOS     int32    `json:"eos"`
}

// BindTokenizer implements Provider.
func (r *Remote) BindTokenizer(ctx context.Context) (*cdc.Vocabulary, error) {
	var resp bindTokenizerResponse
	if err := r.doJSON(ctx, "GET", "/v1/tokenizer", nil, &resp); err != nil {
		return nil, err
	}
	r.vocab = cdc.NewVocabulary(resp.VocabID, resp.Pieces, cdc.VocabIndex(resp.EOS))
	return r.vocab, nil
}

type nextLogitsRequest struct {
	Model   string            `json:"model"`
	Prefix  string            `json:"prefix"`
	Emitted []cdc.VocabIndex  `json:"emitted"`
}

type nextLogitsResponse struct {
	Logits []float32 `json:"logits"`
}

// NextLogits implements Provider.
func (r *Remote) NextLogits(ctx context.Context, prefix string, emitted []cdc.VocabIndex) ([]float32, error) {
	req := nextLogitsRequest{Model: r.Model, Prefix: prefix, Emitted: emitted}
	var resp nextLogitsResponse
	if err := r.doJSON(ctx, "POST", "/v1/next-logits", req, &resp); err != nil {
		return nil, err
	}
	return resp.Logits, nil
}

func (r *Remote) doJSON(ctx context.Context, method, path string, body, out interface{}) error {
	var rdr *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return &Error{Kind: ErrKindBackendFault, Message: err.Error(), Retryable: false}
		}
		rdr = bytes.NewReader(b)
	} else {
		rdr = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, r.BaseURL+path, rdr)
	if err != nil {
		return &Error{Kind: ErrKindBackendFault, Message: err.Error(), Retryable: false}
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := r.Client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return &Error{Kind: ErrKindCancelled, Message: err.Error(), Retryable: false}
		}
		return &Error{Kind: ErrKindTimeout, Message: err.Error(), Retryable: true}
	}
	defer resp.Body.Close()
	tracer().Debugf("%s %s -> %d (%s)", method, path, resp.StatusCode, time.Since(start))

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return &Error{Kind: ErrKindRateLimited, Message: "rate limited", Retryable: true}
	case resp.StatusCode >= 500:
		return &Error{Kind: ErrKindBackendFault, Message: fmt.Sprintf("status %d", resp.StatusCode), Retryable: true}
	case resp.StatusCode >= 400:
		return &Error{Kind: ErrKindBackendFault, Message: fmt.Sprintf("status %d", resp.StatusCode), Retryable: false}
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
