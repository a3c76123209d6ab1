// Package preprocess implements the Preprocessor Selector (spec
// §4.5): an ordered, gated set of mutation rules applied to a
// canonical request before it reaches the transformer for its target
// wire family.
package preprocess

import "github.com/relayhq/llmgateway/gateway"

// Condition gates whether a Rule applies to a given request bound for
// a given wire family/provider variant.
type Condition func(wireFamily gateway.WireFamily, variant string, req *gateway.Request) bool

// Action mutates req in place. Actions never perform I/O and never
// fail on a request shape they don't recognize — an inapplicable
// action is a no-op, not an error (§4.5: "each rule either mutates the
// request in place or is skipped").
type Action func(req *gateway.Request)

// Rule is one named, gated, priority-ordered preprocessing step.
type Rule struct {
	Name      string
	Condition Condition
	Action    Action
	Priority  int
	Enabled   bool
}

// Always is the Condition every rule with no specific gating uses.
func Always(gateway.WireFamily, string, *gateway.Request) bool { return true }

// HasTools gates on the request declaring at least one tool.
func HasTools(_ gateway.WireFamily, _ string, req *gateway.Request) bool {
	return len(req.Tools) > 0
}

// IsStreaming gates on the request asking for a streamed response.
func IsStreaming(_ gateway.WireFamily, _ string, req *gateway.Request) bool {
	return req.Stream
}

// MissingMaxTokens gates on the request not having set a max_tokens.
func MissingMaxTokens(_ gateway.WireFamily, _ string, req *gateway.Request) bool {
	return req.Sampling.MaxTokens == nil
}

// HasMessages gates on the request having at least one message.
func HasMessages(_ gateway.WireFamily, _ string, req *gateway.Request) bool {
	return len(req.Messages) > 0
}

// ForVariant returns a Condition matching a specific provider variant
// string (e.g. a self-hosted OpenAI-compatible deployment identifier),
// regardless of wire family.
func ForVariant(variant string) Condition {
	return func(_ gateway.WireFamily, v string, _ *gateway.Request) bool {
		return v == variant
	}
}

// ForWireFamily returns a Condition matching a specific wire family.
func ForWireFamily(family gateway.WireFamily) Condition {
	return func(f gateway.WireFamily, _ string, _ *gateway.Request) bool {
		return f == family
	}
}
