package transform

import (
	"github.com/relayhq/llmgateway/gateway"
)

// Transformer is one ordered pair (canonical ↔ wire_family): a pure
// forward function from canonical request to wire request, and a pure
// reverse function from wire response back to canonical response
// (§4.4). Implementations MUST NOT perform I/O, log, or consult time.
type Transformer interface {
	Forward(req *gateway.Request, caps gateway.Capabilities) (wireRequest any, err error)
	Reverse(wireResponse any, providerServed string) (*gateway.Response, error)
}

// Registry looks up the Transformer for a wire family.
type Registry struct {
	transformers map[gateway.WireFamily]Transformer
}

// NewRegistry builds a registry pre-populated with the built-in
// OpenAI, Anthropic, and Gemini transformers (§4.4's mapping tables).
func NewRegistry() *Registry {
	return &Registry{
		transformers: map[gateway.WireFamily]Transformer{
			gateway.WireOpenAI:    OpenAITransformer{},
			gateway.WireAnthropic: AnthropicTransformer{},
			gateway.WireGemini:    GeminiTransformer{},
		},
	}
}

// Register lets a caller add or override a transformer for a wire
// family, e.g. to plug in a CodeWhisperer transformer later
// without changing this package.
func (r *Registry) Register(family gateway.WireFamily, t Transformer) {
	r.transformers[family] = t
}

func (r *Registry) For(family gateway.WireFamily) (Transformer, error) {
	t, ok := r.transformers[family]
	if !ok {
		return nil, gateway.NewTransformError("no transformer registered for wire family " + string(family))
	}
	return t, nil
}
