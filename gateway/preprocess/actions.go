package preprocess

import "github.com/relayhq/llmgateway/gateway"

// MapModelName rewrites the request's VirtualModel through a lookup
// table, for OpenAI-compatible self-hosted variants that expect their
// own model identifiers rather than the gateway's virtual names
// (§4.5 "map_model_name").
func MapModelName(mapping map[string]string) Action {
	return func(req *gateway.Request) {
		if mapped, ok := mapping[req.VirtualModel]; ok {
			req.VirtualModel = mapped
		}
	}
}

// StripUnsupportedParameters clears tools, tool choice, and any
// annotation requesting a response_format, for self-hosted variants
// that silently ignore (or error on) those fields (§4.5
// "strip_unsupported_parameters").
func StripUnsupportedParameters() Action {
	return func(req *gateway.Request) {
		req.Tools = nil
		req.ToolChoice = nil
		delete(req.Metadata.Annotations, "response_format")
	}
}

// AddMaxTokensDefault sets Sampling.MaxTokens when the caller didn't
// supply one (§4.5 "add_max_tokens default"). Pair with
// MissingMaxTokens as the rule's Condition.
func AddMaxTokensDefault(def int) Action {
	return func(req *gateway.Request) {
		v := def
		req.Sampling.MaxTokens = &v
	}
}

// ValidateRoles drops any message whose role isn't in allowed — used
// for Anthropic (§4.5 "validate_roles"). This rule runs before the
// transformer, which is what hoists system messages into the top-level
// `system` field and turns tool messages into user-role tool_result
// blocks, so the Anthropic rule in Default allows system and tool
// alongside user and assistant.
func ValidateRoles(allowed ...gateway.Role) Action {
	allowedSet := make(map[gateway.Role]bool, len(allowed))
	for _, r := range allowed {
		allowedSet[r] = true
	}
	return func(req *gateway.Request) {
		kept := req.Messages[:0]
		for _, m := range req.Messages {
			if allowedSet[m.Role] {
				kept = append(kept, m)
			}
		}
		req.Messages = kept
	}
}

// ConvertToolSchema normalizes each tool's JSON schema to always
// declare "type": "object" at the root, the shape Anthropic's
// input_schema requires and OpenAI's function parameters conventionally
// carry but don't strictly enforce (§4.5 "convert_tool_schema").
func ConvertToolSchema() Action {
	return func(req *gateway.Request) {
		for i := range req.Tools {
			if req.Tools[i].Parameters == nil {
				req.Tools[i].Parameters = map[string]any{"type": "object", "properties": map[string]any{}}
				continue
			}
			if _, ok := req.Tools[i].Parameters["type"]; !ok {
				req.Tools[i].Parameters["type"] = "object"
			}
		}
	}
}

// SetDefaultToolChoice sets ToolChoice to auto when the request
// declares tools but left the choice unset (§4.5
// "set_default_tool_choice").
func SetDefaultToolChoice() Action {
	return func(req *gateway.Request) {
		if req.ToolChoice == nil {
			req.ToolChoice = &gateway.ToolChoice{Mode: gateway.ToolChoiceAuto}
		}
	}
}
