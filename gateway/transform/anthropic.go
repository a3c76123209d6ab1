package transform

import (
	"fmt"

	"github.com/relayhq/llmgateway/gateway"
)

// AnthropicTransformer implements the canonical ↔ Anthropic-wire
// mapping table in §4.4: system messages are hoisted to the top-level
// `system` field, tool results become user-role tool_result blocks,
// and max_tokens is mandatory (supplied by the preprocessor default
// when the caller didn't set one, per §4.4 "Anthropic requires it").
type AnthropicTransformer struct{}

const defaultAnthropicMaxTokens = 4096

func (AnthropicTransformer) Forward(req *gateway.Request, caps gateway.Capabilities) (any, error) {
	wire := AnthropicRequest{
		Model:         req.VirtualModel,
		Temperature:   req.Sampling.Temperature,
		TopP:          req.Sampling.TopP,
		StopSequences: req.Sampling.Stop,
		MaxTokens:     defaultAnthropicMaxTokens,
	}
	if req.Sampling.MaxTokens != nil {
		wire.MaxTokens = *req.Sampling.MaxTokens
	}

	for _, m := range req.Messages {
		if m.Role == gateway.RoleSystem {
			wire.System += m.Text
			continue
		}

		wm, err := anthropicMessageFromCanonical(m, caps)
		if err != nil {
			return nil, err
		}
		wire.Messages = append(wire.Messages, wm)
	}

	for _, t := range req.Tools {
		wire.Tools = append(wire.Tools, AnthropicTool{
			Name:        t.Name,
			Description: t.Description,
			InputSchema: t.Parameters,
		})
	}

	if req.ToolChoice != nil {
		choice, err := anthropicToolChoiceFromCanonical(*req.ToolChoice)
		if err != nil {
			return nil, err
		}
		// "none" is expressed by omitting tools entirely (§4.4).
		if req.ToolChoice.Mode == gateway.ToolChoiceNone {
			wire.Tools = nil
		} else {
			wire.ToolChoice = choice
		}
	}

	return wire, nil
}

func anthropicMessageFromCanonical(m gateway.Message, caps gateway.Capabilities) (AnthropicMessage, error) {
	role := "user"
	if m.Role == gateway.RoleAssistant {
		role = "assistant"
	}

	var blocks []AnthropicContentBlock

	if m.Role == gateway.RoleTool {
		return AnthropicMessage{
			Role: "user",
			Content: []AnthropicContentBlock{{
				Type:      "tool_result",
				ToolUseID: m.ToolCallID,
				Content:   m.Text,
			}},
		}, nil
	}

	if m.Text != "" {
		blocks = append(blocks, AnthropicContentBlock{Type: "text", Text: m.Text})
	}

	for _, p := range m.Parts {
		block, err := anthropicBlockFromPart(p, caps)
		if err != nil {
			return AnthropicMessage{}, err
		}
		blocks = append(blocks, block)
	}

	for _, tc := range m.ToolCalls {
		blocks = append(blocks, AnthropicContentBlock{
			Type:  "tool_use",
			ID:    tc.ID,
			Name:  tc.Name,
			Input: decodeToolArguments(tc.Arguments),
		})
	}

	return AnthropicMessage{Role: role, Content: blocks}, nil
}

func anthropicBlockFromPart(p gateway.ContentPart, caps gateway.Capabilities) (AnthropicContentBlock, error) {
	switch p.Type {
	case gateway.ContentText:
		return AnthropicContentBlock{Type: "text", Text: p.Text}, nil
	case gateway.ContentImage:
		if !caps.Multimodal {
			return AnthropicContentBlock{}, gateway.NewTransformError("image content targeted at a non-multimodal worker")
		}
		if p.ImageSource == nil {
			return AnthropicContentBlock{}, gateway.NewTransformError("image part missing source data for anthropic wire format")
		}
		return AnthropicContentBlock{
			Type: "image",
			Source: &AnthropicImageSource{
				Type:      "base64",
				MediaType: p.ImageSource.MediaType,
				Data:      p.ImageSource.Data,
			},
		}, nil
	case gateway.ContentToolResult:
		return AnthropicContentBlock{Type: "tool_result", ToolUseID: p.ToolResultID, Content: p.ToolResultContent}, nil
	default:
		return AnthropicContentBlock{}, gateway.NewTransformError(fmt.Sprintf("unsupported content part type %q for anthropic wire format", p.Type))
	}
}

func anthropicToolChoiceFromCanonical(tc gateway.ToolChoice) (map[string]any, error) {
	switch tc.Mode {
	case gateway.ToolChoiceAuto, gateway.ToolChoiceNone:
		return map[string]any{"type": "auto"}, nil
	case gateway.ToolChoiceRequired:
		return map[string]any{"type": "any"}, nil
	case gateway.ToolChoiceFunction:
		return map[string]any{"type": "tool", "name": tc.FunctionName}, nil
	default:
		return nil, gateway.NewTransformError(fmt.Sprintf("unknown tool choice mode %q", tc.Mode))
	}
}

func (AnthropicTransformer) Reverse(wireResponse any, providerServed string) (*gateway.Response, error) {
	wire, ok := wireResponse.(AnthropicResponse)
	if !ok {
		return nil, gateway.NewTransformError("expected AnthropicResponse")
	}

	resp := &gateway.Response{
		ID:    wire.ID,
		Model: wire.Model,
		Usage: gateway.Usage{
			PromptTokens:     wire.Usage.InputTokens,
			CompletionTokens: wire.Usage.OutputTokens,
			TotalTokens:      wire.Usage.InputTokens + wire.Usage.OutputTokens,
		},
		Metadata: gateway.ResponseMetadata{ProviderServed: providerServed},
	}

	choice := gateway.Choice{
		FinishReason: anthropicFinishReason(wire.StopReason),
		Message:      gateway.AssistantMessage{Role: gateway.RoleAssistant},
	}

	for _, block := range wire.Content {
		switch block.Type {
		case "text":
			choice.Message.Content += block.Text
		case "tool_use":
			choice.Message.ToolCalls = append(choice.Message.ToolCalls, gateway.ToolCall{
				ID:        block.ID,
				Type:      "function",
				Name:      block.Name,
				Arguments: encodeToolArguments(block.Input),
			})
		}
	}

	resp.Choices = []gateway.Choice{choice}
	return resp, nil
}

func anthropicFinishReason(wire string) gateway.FinishReason {
	switch wire {
	case "end_turn", "stop_sequence":
		return gateway.FinishStop
	case "max_tokens":
		return gateway.FinishLength
	case "tool_use":
		return gateway.FinishToolCalls
	default:
		return gateway.FinishStop
	}
}
