package transform

import (
	"encoding/json"
	"fmt"

	"github.com/relayhq/llmgateway/gateway"
)

// OpenAITransformer implements the canonical ↔ OpenAI-wire mapping
// table in §4.4, grounded on the shapes
// agent/adapters/openai_adapter.go's buildChatCompletionParams/
// convertMessages/convertTools/convertResponse already build and read,
// generalized here from the teacher's single-shot struct conversion
// into a standalone pure function pair.
type OpenAITransformer struct{}

func (OpenAITransformer) Forward(req *gateway.Request, caps gateway.Capabilities) (any, error) {
	wire := OpenAIRequest{
		Model:       req.VirtualModel,
		Temperature: req.Sampling.Temperature,
		TopP:        req.Sampling.TopP,
		Stop:        req.Sampling.Stop,
		MaxTokens:   req.Sampling.MaxTokens,
	}

	for _, m := range req.Messages {
		wm, err := openAIMessageFromCanonical(m, caps)
		if err != nil {
			return nil, err
		}
		wire.Messages = append(wire.Messages, wm)
	}

	for _, t := range req.Tools {
		wire.Tools = append(wire.Tools, OpenAITool{
			Type: "function",
			Function: OpenAIFunctionDef{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		})
	}

	if req.ToolChoice != nil {
		choice, err := openAIToolChoiceFromCanonical(*req.ToolChoice)
		if err != nil {
			return nil, err
		}
		wire.ToolChoice = choice
	}

	return wire, nil
}

func openAIMessageFromCanonical(m gateway.Message, caps gateway.Capabilities) (OpenAIMessage, error) {
	switch m.Role {
	case gateway.RoleTool:
		return OpenAIMessage{Role: "tool", Content: m.Text, ToolCallID: m.ToolCallID}, nil
	case gateway.RoleAssistant:
		wm := OpenAIMessage{Role: "assistant", Content: m.Text}
		for _, tc := range m.ToolCalls {
			wm.ToolCalls = append(wm.ToolCalls, OpenAIToolCall{
				ID:   tc.ID,
				Type: "function",
				Function: OpenAIFunctionCall{
					Name:      tc.Name,
					Arguments: tc.Arguments,
				},
			})
		}
		return wm, nil
	case gateway.RoleSystem:
		return OpenAIMessage{Role: "system", Content: m.Text}, nil
	default: // user
		if len(m.Parts) == 0 {
			return OpenAIMessage{Role: "user", Content: m.Text}, nil
		}
		for _, p := range m.Parts {
			if p.Type == gateway.ContentImage && !caps.Multimodal {
				return OpenAIMessage{}, gateway.NewTransformError("image content targeted at a non-multimodal worker")
			}
		}
		// Multi-part user content collapses to its text parts; image parts
		// are dropped, since OpenAIMessage carries string content only and
		// the adapter sends that string as is.
		var text string
		for _, p := range m.Parts {
			if p.Type == gateway.ContentText {
				text += p.Text
			}
		}
		return OpenAIMessage{Role: "user", Content: text}, nil
	}
}

func openAIToolChoiceFromCanonical(tc gateway.ToolChoice) (any, error) {
	switch tc.Mode {
	case gateway.ToolChoiceAuto:
		return "auto", nil
	case gateway.ToolChoiceNone:
		return "none", nil
	case gateway.ToolChoiceRequired:
		return "required", nil
	case gateway.ToolChoiceFunction:
		return map[string]any{
			"type":     "function",
			"function": map[string]any{"name": tc.FunctionName},
		}, nil
	default:
		return nil, gateway.NewTransformError(fmt.Sprintf("unknown tool choice mode %q", tc.Mode))
	}
}

func (OpenAITransformer) Reverse(wireResponse any, providerServed string) (*gateway.Response, error) {
	wire, ok := wireResponse.(OpenAIResponse)
	if !ok {
		return nil, gateway.NewTransformError("expected OpenAIResponse")
	}

	resp := &gateway.Response{
		ID:      wire.ID,
		Model:   wire.Model,
		Created: wire.Created,
		Usage: gateway.Usage{
			PromptTokens:     wire.Usage.PromptTokens,
			CompletionTokens: wire.Usage.CompletionTokens,
			TotalTokens:      wire.Usage.TotalTokens,
		},
		Metadata: gateway.ResponseMetadata{ProviderServed: providerServed},
	}

	for _, c := range wire.Choices {
		choice := gateway.Choice{
			Index:        c.Index,
			FinishReason: openAIFinishReason(c.FinishReason),
			Message: gateway.AssistantMessage{
				Role:    gateway.RoleAssistant,
				Content: c.Message.Content,
			},
		}
		for _, tc := range c.Message.ToolCalls {
			choice.Message.ToolCalls = append(choice.Message.ToolCalls, gateway.ToolCall{
				ID:        tc.ID,
				Type:      "function",
				Name:      tc.Function.Name,
				Arguments: tc.Function.Arguments,
			})
		}
		resp.Choices = append(resp.Choices, choice)
	}

	return resp, nil
}

func openAIFinishReason(wire string) gateway.FinishReason {
	switch wire {
	case "stop":
		return gateway.FinishStop
	case "length":
		return gateway.FinishLength
	case "tool_calls":
		return gateway.FinishToolCalls
	case "content_filter":
		return gateway.FinishContentFilter
	default:
		return gateway.FinishStop
	}
}

// marshalRoundTrip is a test helper exposed so the round-trip law test
// can push a wire request through JSON the way it would actually cross
// the network, rather than only exercising the in-memory struct.
func marshalRoundTrip(v any) ([]byte, error) {
	return json.Marshal(v)
}
