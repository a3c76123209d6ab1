package router

import (
	"strings"
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"github.com/relayhq/llmgateway/gateway"
)

// tokenEstimator gives the category classifier a rough prompt-size
// count for the longContext check (§4.3 step 1b). Modeled on the
// BaSui01-agentflow TiktokenTokenizer: lazily initialize the encoding
// once, fall back to a length/4 heuristic if the encoding table can't
// be loaded (offline, corrupted cache, etc.) rather than failing
// classification outright — an estimate that's occasionally off by a
// few percent is fine, a router that can't classify at all is not.
type tokenEstimator struct {
	once sync.Once
	enc  *tiktoken.Tiktoken
	err  error
}

func newTokenEstimator() *tokenEstimator {
	return &tokenEstimator{}
}

func (e *tokenEstimator) init() {
	e.once.Do(func() {
		enc, err := tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			e.err = err
			return
		}
		e.enc = enc
	})
}

// Estimate returns an approximate token count for the full request
// prompt: every message's text, plus tool descriptions since a
// tool-heavy request can push a short user message over the
// long-context threshold just as easily as a long one.
func (e *tokenEstimator) Estimate(req *gateway.Request) int {
	e.init()

	var sb strings.Builder
	for _, m := range req.Messages {
		sb.WriteString(m.Text)
		for _, p := range m.Parts {
			sb.WriteString(p.Text)
		}
	}
	for _, t := range req.Tools {
		sb.WriteString(t.Name)
		sb.WriteString(t.Description)
	}
	text := sb.String()

	if e.err != nil || e.enc == nil {
		return len(text) / 4
	}
	return len(e.enc.Encode(text, nil, nil))
}
