package transform

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relayhq/llmgateway/gateway"
)

var multimodalCaps = gateway.Capabilities{Multimodal: true, ToolCalls: true}
var plainCaps = gateway.Capabilities{}

func floatPtr(f float64) *float64 { return &f }
func intPtr(i int) *int           { return &i }

func TestOpenAITransformer_ForwardBasicRequest(t *testing.T) {
	req := &gateway.Request{
		VirtualModel: "gpt-4o",
		Messages: []gateway.Message{
			{Role: gateway.RoleSystem, Text: "be terse"},
			{Role: gateway.RoleUser, Text: "hi"},
		},
		Sampling: gateway.Sampling{Temperature: floatPtr(0.2), MaxTokens: intPtr(100)},
	}

	wireAny, err := OpenAITransformer{}.Forward(req, plainCaps)
	require.NoError(t, err)

	wire := wireAny.(OpenAIRequest)
	require.Len(t, wire.Messages, 2)
	assert.Equal(t, "system", wire.Messages[0].Role)
	assert.Equal(t, "user", wire.Messages[1].Role)
	assert.Equal(t, 0.2, *wire.Temperature)
	assert.Equal(t, 100, *wire.MaxTokens)
}

func TestOpenAITransformer_ForwardRejectsImageWithoutMultimodalCapability(t *testing.T) {
	req := &gateway.Request{
		VirtualModel: "gpt-4o",
		Messages: []gateway.Message{
			{Role: gateway.RoleUser, Parts: []gateway.ContentPart{{Type: gateway.ContentImage}}},
		},
	}

	_, err := OpenAITransformer{}.Forward(req, plainCaps)
	require.Error(t, err)
	var gwErr *gateway.Error
	require.ErrorAs(t, err, &gwErr)
	assert.Equal(t, gateway.KindTransformError, gwErr.Kind)
}

func TestOpenAITransformer_ReverseMapsToolCallsAndFinishReason(t *testing.T) {
	wire := OpenAIResponse{
		ID: "resp1", Model: "gpt-4o", Created: 100,
		Choices: []OpenAIChoice{{
			Index:        0,
			FinishReason: "tool_calls",
			Message: OpenAIMessage{
				Role: "assistant",
				ToolCalls: []OpenAIToolCall{{
					ID: "call1", Type: "function",
					Function: OpenAIFunctionCall{Name: "get_weather", Arguments: `{"city":"nyc"}`},
				}},
			},
		}},
		Usage: OpenAIUsage{PromptTokens: 10, CompletionTokens: 5, TotalTokens: 15},
	}

	resp, err := OpenAITransformer{}.Reverse(wire, "openai-worker-1")
	require.NoError(t, err)
	require.Len(t, resp.Choices, 1)
	assert.Equal(t, gateway.FinishToolCalls, resp.Choices[0].FinishReason)
	require.Len(t, resp.Choices[0].Message.ToolCalls, 1)
	assert.Equal(t, "get_weather", resp.Choices[0].Message.ToolCalls[0].Name)
	assert.Equal(t, "openai-worker-1", resp.Metadata.ProviderServed)
}

func TestAnthropicTransformer_ForwardHoistsSystemMessage(t *testing.T) {
	req := &gateway.Request{
		VirtualModel: "claude-3-opus",
		Messages: []gateway.Message{
			{Role: gateway.RoleSystem, Text: "be terse"},
			{Role: gateway.RoleUser, Text: "hi"},
		},
	}

	wireAny, err := AnthropicTransformer{}.Forward(req, plainCaps)
	require.NoError(t, err)

	wire := wireAny.(AnthropicRequest)
	assert.Equal(t, "be terse", wire.System)
	require.Len(t, wire.Messages, 1)
	assert.Equal(t, "user", wire.Messages[0].Role)
	assert.Equal(t, defaultAnthropicMaxTokens, wire.MaxTokens, "anthropic always needs max_tokens even when the caller didn't set one")
}

func TestAnthropicTransformer_ToolResultBecomesUserToolResultBlock(t *testing.T) {
	req := &gateway.Request{
		VirtualModel: "claude-3-opus",
		Messages: []gateway.Message{
			{Role: gateway.RoleTool, ToolCallID: "call1", Text: "72F and sunny"},
		},
	}

	wireAny, err := AnthropicTransformer{}.Forward(req, plainCaps)
	require.NoError(t, err)
	wire := wireAny.(AnthropicRequest)

	require.Len(t, wire.Messages, 1)
	assert.Equal(t, "user", wire.Messages[0].Role)
	require.Len(t, wire.Messages[0].Content, 1)
	assert.Equal(t, "tool_result", wire.Messages[0].Content[0].Type)
	assert.Equal(t, "call1", wire.Messages[0].Content[0].ToolUseID)
}

func TestAnthropicTransformer_ToolChoiceNoneOmitsTools(t *testing.T) {
	req := &gateway.Request{
		VirtualModel: "claude-3-opus",
		Messages:     []gateway.Message{{Role: gateway.RoleUser, Text: "hi"}},
		Tools:        []gateway.ToolDefinition{{Name: "get_weather"}},
		ToolChoice:   &gateway.ToolChoice{Mode: gateway.ToolChoiceNone},
	}

	wireAny, err := AnthropicTransformer{}.Forward(req, plainCaps)
	require.NoError(t, err)
	wire := wireAny.(AnthropicRequest)
	assert.Nil(t, wire.Tools)
}

func TestAnthropicTransformer_ReverseAssemblesTextAndToolUse(t *testing.T) {
	wire := AnthropicResponse{
		ID: "msg1", Model: "claude-3-opus", StopReason: "tool_use",
		Content: []AnthropicContentBlock{
			{Type: "text", Text: "checking now"},
			{Type: "tool_use", ID: "toolu_1", Name: "get_weather", Input: map[string]any{"city": "nyc"}},
		},
		Usage: AnthropicUsage{InputTokens: 20, OutputTokens: 8},
	}

	resp, err := AnthropicTransformer{}.Reverse(wire, "anthropic-worker-1")
	require.NoError(t, err)
	require.Len(t, resp.Choices, 1)
	assert.Equal(t, "checking now", resp.Choices[0].Message.Content)
	assert.Equal(t, gateway.FinishToolCalls, resp.Choices[0].FinishReason)
	require.Len(t, resp.Choices[0].Message.ToolCalls, 1)
	assert.Equal(t, "get_weather", resp.Choices[0].Message.ToolCalls[0].Name)
	assert.Equal(t, 28, resp.Usage.TotalTokens)
}

// TestRoundTripLaw_OpenAI exercises §4.4's round-trip law: pushing a
// canonical request through Forward, across JSON (as it would cross
// the network), into a synthetic echo response, and back through
// Reverse must preserve message text losslessly. The string<->object
// conversion of tool arguments is covered by
// TestRoundTripLaw_AnthropicToolArguments.
func TestRoundTripLaw_OpenAI(t *testing.T) {
	req := &gateway.Request{
		VirtualModel: "gpt-4o",
		Messages: []gateway.Message{
			{Role: gateway.RoleUser, Text: "what's the weather in nyc?"},
		},
	}

	wireAny, err := OpenAITransformer{}.Forward(req, plainCaps)
	require.NoError(t, err)

	raw, err := marshalRoundTrip(wireAny)
	require.NoError(t, err)

	var wireBack OpenAIRequest
	require.NoError(t, json.Unmarshal(raw, &wireBack))

	echoed := OpenAIResponse{
		ID: "echo", Model: wireBack.Model,
		Choices: []OpenAIChoice{{
			FinishReason: "stop",
			Message:      OpenAIMessage{Role: "assistant", Content: wireBack.Messages[0].Content},
		}},
	}

	resp, err := OpenAITransformer{}.Reverse(echoed, "worker")
	require.NoError(t, err)
	assert.Equal(t, req.Messages[0].Text, resp.Choices[0].Message.Content)
}

func TestRoundTripLaw_AnthropicToolArguments(t *testing.T) {
	args := map[string]any{"city": "nyc", "units": "imperial"}
	encoded := encodeToolArguments(args)
	decoded := decodeToolArguments(encoded)
	assert.Equal(t, args, decoded)
}

func TestGeminiTransformer_ForwardHoistsSystemInstruction(t *testing.T) {
	req := &gateway.Request{
		VirtualModel: "gemini-1.5-pro",
		Messages: []gateway.Message{
			{Role: gateway.RoleSystem, Text: "be terse"},
			{Role: gateway.RoleUser, Text: "hi"},
			{Role: gateway.RoleAssistant, Text: "hello"},
		},
	}

	wireAny, err := GeminiTransformer{}.Forward(req, plainCaps)
	require.NoError(t, err)

	wire := wireAny.(GeminiRequest)
	assert.Equal(t, "gemini-1.5-pro", wire.Model)
	require.NotNil(t, wire.SystemInstruction)
	require.Len(t, wire.SystemInstruction.Parts, 1)
	assert.Equal(t, "be terse", wire.SystemInstruction.Parts[0].Text)

	require.Len(t, wire.Contents, 2)
	assert.Equal(t, "user", wire.Contents[0].Role)
	assert.Equal(t, "model", wire.Contents[1].Role, `gemini calls the assistant turn "model", not "assistant"`)
}

func TestGeminiTransformer_ToolResultBecomesFunctionResponsePart(t *testing.T) {
	req := &gateway.Request{
		VirtualModel: "gemini-1.5-pro",
		Messages: []gateway.Message{
			{Role: gateway.RoleTool, ToolCallID: "get_weather", Text: `{"city":"nyc"}`},
		},
	}

	wireAny, err := GeminiTransformer{}.Forward(req, plainCaps)
	require.NoError(t, err)
	wire := wireAny.(GeminiRequest)

	require.Len(t, wire.Contents, 1)
	assert.Equal(t, "user", wire.Contents[0].Role)
	require.Len(t, wire.Contents[0].Parts, 1)
	require.NotNil(t, wire.Contents[0].Parts[0].FunctionResponse)
	assert.Equal(t, "get_weather", wire.Contents[0].Parts[0].FunctionResponse.Name)
}

func TestGeminiTransformer_ReverseAssemblesTextAndFunctionCall(t *testing.T) {
	wire := GeminiResponse{
		Candidates: []GeminiCandidate{{
			FinishReason: "STOP",
			Content: GeminiContent{
				Role: "model",
				Parts: []GeminiPart{
					{Text: "checking now"},
					{FunctionCall: &GeminiFunctionCall{Name: "get_weather", Args: map[string]any{"city": "nyc"}}},
				},
			},
		}},
		UsageMetadata: GeminiUsageMetadata{PromptTokenCount: 20, CandidatesTokenCount: 8, TotalTokenCount: 28},
	}

	resp, err := GeminiTransformer{}.Reverse(wire, "gemini-worker-1")
	require.NoError(t, err)
	require.Len(t, resp.Choices, 1)
	assert.Equal(t, "checking now", resp.Choices[0].Message.Content)
	assert.Equal(t, gateway.FinishStop, resp.Choices[0].FinishReason)
	require.Len(t, resp.Choices[0].Message.ToolCalls, 1)
	assert.Equal(t, "get_weather", resp.Choices[0].Message.ToolCalls[0].Name)
	assert.Equal(t, 28, resp.Usage.TotalTokens)
}

func TestGeminiTransformer_ReverseMapsMaxTokensFinishReason(t *testing.T) {
	wire := GeminiResponse{
		Candidates: []GeminiCandidate{{FinishReason: "MAX_TOKENS", Content: GeminiContent{Role: "model"}}},
	}

	resp, err := GeminiTransformer{}.Reverse(wire, "gemini-worker-1")
	require.NoError(t, err)
	assert.Equal(t, gateway.FinishLength, resp.Choices[0].FinishReason)
}
