// Package transform implements the Transformer Registry (spec §4.4):
// pure, side-effect-free functions between the canonical request/
// response shape and each wire family's JSON shape.
package transform

// The structs below are the wire-level JSON shapes this package
// converts to and from. They intentionally don't reuse the SDK
// request/response types the adapters package constructs its actual
// HTTP calls with — transformers must stay pure and never import an
// HTTP client, and marshaling straight to/from plain structs makes the
// round-trip law in §4.4 trivial to assert with encoding/json in
// tests. The adapters package maps these onto the concrete SDK param
// types at the call boundary.

// OpenAIRequest is the chat-completions request body shape.
type OpenAIRequest struct {
	Model       string           `json:"model"`
	Messages    []OpenAIMessage  `json:"messages"`
	Tools       []OpenAITool     `json:"tools,omitempty"`
	ToolChoice  any              `json:"tool_choice,omitempty"`
	Temperature *float64         `json:"temperature,omitempty"`
	TopP        *float64         `json:"top_p,omitempty"`
	Stop        []string         `json:"stop,omitempty"`
	MaxTokens   *int             `json:"max_tokens,omitempty"`
}

type OpenAIMessage struct {
	Role       string           `json:"role"`
	Content    string           `json:"content,omitempty"`
	ToolCalls  []OpenAIToolCall `json:"tool_calls,omitempty"`
	ToolCallID string           `json:"tool_call_id,omitempty"`
}

type OpenAIToolCall struct {
	ID       string             `json:"id"`
	Type     string             `json:"type"`
	Function OpenAIFunctionCall `json:"function"`
}

type OpenAIFunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

type OpenAITool struct {
	Type     string            `json:"type"`
	Function OpenAIFunctionDef `json:"function"`
}

type OpenAIFunctionDef struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

// OpenAIResponse is the chat-completions response body shape.
type OpenAIResponse struct {
	ID      string         `json:"id"`
	Model   string         `json:"model"`
	Created int64          `json:"created"`
	Choices []OpenAIChoice `json:"choices"`
	Usage   OpenAIUsage    `json:"usage"`
}

type OpenAIChoice struct {
	Index        int           `json:"index"`
	Message      OpenAIMessage `json:"message"`
	FinishReason string        `json:"finish_reason"`
}

type OpenAIUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// AnthropicRequest is the Messages API request body shape.
type AnthropicRequest struct {
	Model         string                 `json:"model"`
	System        string                 `json:"system,omitempty"`
	Messages      []AnthropicMessage     `json:"messages"`
	Tools         []AnthropicTool        `json:"tools,omitempty"`
	ToolChoice    map[string]any         `json:"tool_choice,omitempty"`
	Temperature   *float64               `json:"temperature,omitempty"`
	TopP          *float64               `json:"top_p,omitempty"`
	StopSequences []string               `json:"stop_sequences,omitempty"`
	MaxTokens     int                    `json:"max_tokens"`
}

type AnthropicMessage struct {
	Role    string                   `json:"role"`
	Content []AnthropicContentBlock  `json:"content"`
}

// AnthropicContentBlock is a tagged union over Anthropic's content
// block types; only the fields relevant to Type are populated.
type AnthropicContentBlock struct {
	Type string `json:"type"`

	Text string `json:"text,omitempty"`

	// tool_use fields
	ID    string         `json:"id,omitempty"`
	Name  string         `json:"name,omitempty"`
	Input map[string]any `json:"input,omitempty"`

	// tool_result fields
	ToolUseID string `json:"tool_use_id,omitempty"`
	Content   string `json:"content,omitempty"`

	// image fields
	Source *AnthropicImageSource `json:"source,omitempty"`
}

type AnthropicImageSource struct {
	Type      string `json:"type"`
	MediaType string `json:"media_type"`
	Data      string `json:"data"`
}

type AnthropicTool struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	InputSchema map[string]any `json:"input_schema"`
}

// AnthropicResponse is the Messages API response body shape.
type AnthropicResponse struct {
	ID         string                  `json:"id"`
	Model      string                  `json:"model"`
	StopReason string                  `json:"stop_reason"`
	Content    []AnthropicContentBlock `json:"content"`
	Usage      AnthropicUsage          `json:"usage"`
}

type AnthropicUsage struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// GeminiRequest is the generateContent request body shape. Gemini has
// no separate "system" message type on the wire — a system prompt
// rides in SystemInstruction — and turns use "parts", not a flat
// string, with role "model" standing in for "assistant".
type GeminiRequest struct {
	Model             string                  `json:"model"`
	Contents          []GeminiContent         `json:"contents"`
	SystemInstruction *GeminiContent          `json:"system_instruction,omitempty"`
	Tools             []GeminiTool            `json:"tools,omitempty"`
	GenerationConfig  *GeminiGenerationConfig `json:"generation_config,omitempty"`
}

type GeminiContent struct {
	Role  string       `json:"role,omitempty"`
	Parts []GeminiPart `json:"parts"`
}

// GeminiPart is a tagged union over text, a function call, or a
// function response; only the field matching the part's content is
// populated.
type GeminiPart struct {
	Text             string                `json:"text,omitempty"`
	FunctionCall     *GeminiFunctionCall   `json:"function_call,omitempty"`
	FunctionResponse *GeminiFunctionResult `json:"function_response,omitempty"`
}

type GeminiFunctionCall struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args,omitempty"`
}

type GeminiFunctionResult struct {
	Name     string         `json:"name"`
	Response map[string]any `json:"response"`
}

type GeminiTool struct {
	FunctionDeclarations []GeminiFunctionDecl `json:"function_declarations"`
}

type GeminiFunctionDecl struct {
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Parameters  map[string]any `json:"parameters,omitempty"`
}

type GeminiGenerationConfig struct {
	Temperature     *float64 `json:"temperature,omitempty"`
	TopP            *float64 `json:"top_p,omitempty"`
	StopSequences   []string `json:"stop_sequences,omitempty"`
	MaxOutputTokens *int     `json:"max_output_tokens,omitempty"`
}

// GeminiResponse is the generateContent response body shape.
type GeminiResponse struct {
	Candidates    []GeminiCandidate  `json:"candidates"`
	UsageMetadata GeminiUsageMetadata `json:"usage_metadata"`
}

type GeminiCandidate struct {
	Content      GeminiContent `json:"content"`
	FinishReason string        `json:"finish_reason"`
}

type GeminiUsageMetadata struct {
	PromptTokenCount     int `json:"prompt_token_count"`
	CandidatesTokenCount int `json:"candidates_token_count"`
	TotalTokenCount      int `json:"total_token_count"`
}
