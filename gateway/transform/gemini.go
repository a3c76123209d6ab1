package transform

import (
	"github.com/relayhq/llmgateway/gateway"
)

// GeminiTransformer implements the canonical ↔ Gemini-wire mapping
// table in §4.4: system messages are hoisted into SystemInstruction
// (Gemini has no system turn), assistant turns use role "model" rather
// than "assistant", message content becomes "parts" rather than a flat
// string, and tool calls/results round-trip through FunctionCall/
// FunctionResponse parts instead of a dedicated tool role.
type GeminiTransformer struct{}

func (GeminiTransformer) Forward(req *gateway.Request, caps gateway.Capabilities) (any, error) {
	wire := GeminiRequest{Model: req.VirtualModel}

	cfg := &GeminiGenerationConfig{
		Temperature:   req.Sampling.Temperature,
		TopP:          req.Sampling.TopP,
		StopSequences: req.Sampling.Stop,
	}
	if req.Sampling.MaxTokens != nil {
		cfg.MaxOutputTokens = req.Sampling.MaxTokens
	}
	wire.GenerationConfig = cfg

	for _, m := range req.Messages {
		if m.Role == gateway.RoleSystem {
			if wire.SystemInstruction == nil {
				wire.SystemInstruction = &GeminiContent{}
			}
			wire.SystemInstruction.Parts = append(wire.SystemInstruction.Parts, GeminiPart{Text: m.Text})
			continue
		}
		wire.Contents = append(wire.Contents, geminiContentFromCanonical(m))
	}

	for _, t := range req.Tools {
		wire.Tools = append(wire.Tools, GeminiTool{
			FunctionDeclarations: []GeminiFunctionDecl{{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			}},
		})
	}

	return wire, nil
}

func geminiContentFromCanonical(m gateway.Message) GeminiContent {
	role := "user"
	if m.Role == gateway.RoleAssistant {
		role = "model"
	}

	if m.Role == gateway.RoleTool {
		return GeminiContent{
			Role: "user",
			Parts: []GeminiPart{{
				FunctionResponse: &GeminiFunctionResult{
					Name:     m.ToolCallID,
					Response: decodeToolArguments(m.Text),
				},
			}},
		}
	}

	var parts []GeminiPart
	if m.Text != "" {
		parts = append(parts, GeminiPart{Text: m.Text})
	}
	for _, tc := range m.ToolCalls {
		parts = append(parts, GeminiPart{
			FunctionCall: &GeminiFunctionCall{Name: tc.Name, Args: decodeToolArguments(tc.Arguments)},
		})
	}

	return GeminiContent{Role: role, Parts: parts}
}

func (GeminiTransformer) Reverse(wireResponse any, providerServed string) (*gateway.Response, error) {
	wire, ok := wireResponse.(GeminiResponse)
	if !ok {
		return nil, gateway.NewTransformError("expected GeminiResponse")
	}

	resp := &gateway.Response{
		Usage: gateway.Usage{
			PromptTokens:     wire.UsageMetadata.PromptTokenCount,
			CompletionTokens: wire.UsageMetadata.CandidatesTokenCount,
			TotalTokens:      wire.UsageMetadata.TotalTokenCount,
		},
		Metadata: gateway.ResponseMetadata{ProviderServed: providerServed},
	}

	for i, c := range wire.Candidates {
		choice := gateway.Choice{
			Index:        i,
			FinishReason: geminiFinishReason(c.FinishReason),
			Message:      gateway.AssistantMessage{Role: gateway.RoleAssistant},
		}
		for _, p := range c.Content.Parts {
			switch {
			case p.Text != "":
				choice.Message.Content += p.Text
			case p.FunctionCall != nil:
				choice.Message.ToolCalls = append(choice.Message.ToolCalls, gateway.ToolCall{
					Type:      "function",
					Name:      p.FunctionCall.Name,
					Arguments: encodeToolArguments(p.FunctionCall.Args),
				})
			}
		}
		resp.Choices = append(resp.Choices, choice)
	}

	return resp, nil
}

func geminiFinishReason(wire string) gateway.FinishReason {
	switch wire {
	case "STOP":
		return gateway.FinishStop
	case "MAX_TOKENS":
		return gateway.FinishLength
	default:
		return gateway.FinishStop
	}
}
