// Package gateway holds the canonical request/response shapes, the
// configuration/derived-worker data model, and the generation lifecycle
// that the rest of the provider gateway (expand, registry, router,
// transform, preprocess, adapters, pipeline) is built around.
package gateway

import "time"

// Role is a closed variant type for message roles. Dynamic role strings
// in upstream wire formats are normalized to one of these at the
// canonical boundary.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// FinishReason is a closed variant type for why a completion stopped.
type FinishReason string

const (
	FinishStop          FinishReason = "stop"
	FinishLength        FinishReason = "length"
	FinishToolCalls     FinishReason = "tool_calls"
	FinishContentFilter FinishReason = "content_filter"
)

// WireFamily identifies the concrete message/response shape understood
// by an upstream provider.
type WireFamily string

const (
	WireOpenAI        WireFamily = "openai"
	WireAnthropic      WireFamily = "anthropic"
	WireGemini         WireFamily = "gemini"
	WireCodeWhisperer  WireFamily = "codewhisperer"
)

// Category is a virtual-model classification the router uses to pick a
// candidate worker list.
type Category string

const (
	CategoryDefault     Category = "default"
	CategoryBackground  Category = "background"
	CategoryReasoning   Category = "reasoning"
	CategoryLongContext Category = "longContext"
	CategoryWebSearch   Category = "webSearch"
	CategoryToolCall    Category = "toolcall"
)

// ContentPartType distinguishes the typed parts a message's content can
// be made of when it isn't a plain string.
type ContentPartType string

const (
	ContentText       ContentPartType = "text"
	ContentImage      ContentPartType = "image"
	ContentToolUse    ContentPartType = "tool_use"
	ContentToolResult ContentPartType = "tool_result"
)

// ContentPart is one element of a multi-part message content sequence.
type ContentPart struct {
	Type ContentPartType

	// Text holds the text for ContentText parts.
	Text string

	// ImageURL/ImageSource holds image data for ContentImage parts.
	// Exactly one of these is populated depending on how the caller
	// supplied the image. The Anthropic transformer uses ImageSource and
	// fails with TransformError when it is nil; the OpenAI transformer
	// carries no image data (it keeps only a message's text parts).
	ImageURL    string
	ImageSource *ImageSource

	// ToolUseID/ToolName/ToolInput are populated for ContentToolUse
	// parts (an assistant's request to invoke a tool). ToolInput is
	// the structured form. The built-in transformers do not map these
	// parts: Anthropic rejects them with TransformError, OpenAI and
	// Gemini leave them out; tool invocations cross the wire boundary
	// as Message.ToolCalls.
	ToolUseID string
	ToolName  string
	ToolInput map[string]any

	// ToolResultID/ToolResultContent are populated for ContentToolResult
	// parts (the outcome of a tool invocation fed back to the model).
	ToolResultID      string
	ToolResultContent string
}

// ImageSource carries inline image bytes, the shape Anthropic's wire
// format expects (base64 data + media type) as opposed to OpenAI's
// bare URL.
type ImageSource struct {
	MediaType string
	Data      string // base64-encoded
}

// ToolCall is an assistant's request to invoke a named tool. Arguments
// always cross component boundaries as a JSON string per the data
// model's invariant; callers that need the structured value parse it.
type ToolCall struct {
	ID        string
	Type      string // always "function" today
	Name      string
	Arguments string // JSON-encoded object
}

// Message is one turn of a canonical conversation.
type Message struct {
	Role Role

	// Content is either Text (plain-string form) or Parts (typed,
	// ordered form). Exactly one should be non-empty; transformers
	// treat a non-empty Text as shorthand for a single ContentText part.
	Text  string
	Parts []ContentPart

	ToolCallID string
	ToolCalls  []ToolCall
}

// ToolChoiceMode selects how the model should decide whether to call a
// tool.
type ToolChoiceMode string

const (
	ToolChoiceAuto     ToolChoiceMode = "auto"
	ToolChoiceNone     ToolChoiceMode = "none"
	ToolChoiceRequired ToolChoiceMode = "required"
	ToolChoiceFunction ToolChoiceMode = "function"
)

// ToolChoice selects auto/none/required, or pins a specific function.
type ToolChoice struct {
	Mode         ToolChoiceMode
	FunctionName string // only set when Mode == ToolChoiceFunction
}

// ToolDefinition describes one tool the model may call.
type ToolDefinition struct {
	Name        string
	Description string
	Parameters  map[string]any // JSON schema
}

// Sampling bundles the generation knobs common across providers.
type Sampling struct {
	Temperature *float64
	TopP        *float64
	Stop        []string
	MaxTokens   *int
}

// RequestMetadata carries the small typed fields every request needs
// plus a bounded bag for caller annotations (a typed struct plus a
// bounded map, not an arbitrary-keys dictionary).
type RequestMetadata struct {
	ReceivedAt time.Time
	Source     string
	Priority   int

	// Annotations is intentionally small; MaxAnnotations enforces the
	// bound at validation time.
	Annotations map[string]string
}

const MaxAnnotations = 32

// Request is the canonical shape every pipeline stage between intake
// and the wire boundary operates on.
type Request struct {
	ID           string
	VirtualModel string
	Messages     []Message
	Tools        []ToolDefinition
	ToolChoice   *ToolChoice
	Sampling     Sampling
	Stream       bool
	Metadata     RequestMetadata

	// RoutingHints lets a caller override the category classification,
	// the streaming mode, the validation level, or the error-handling
	// mode rather than
	// letting the router infer them (§4.3 step 1: "explicit hint
	// wins").
	RoutingHints RoutingHints
}

// RoutingHints are optional per-request overrides consulted before the
// router's classification heuristics.
type RoutingHints struct {
	CategoryOverride Category
	StreamPreference string // "force_non_streaming" | "native_streaming" | "simulated_streaming"
	ValidationLevel  string // "strict" | "lenient"
	ErrorHandling    string // reserved for caller-selected retry aggressiveness
}

// Choice is one candidate completion in a canonical response.
type Choice struct {
	Index        int
	Message      AssistantMessage
	FinishReason FinishReason
}

// AssistantMessage is the shape of a completion's returned message.
type AssistantMessage struct {
	Role      Role // always RoleAssistant
	Content   string
	ToolCalls []ToolCall
}

// Usage reports token accounting for a completed request.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// ResponseMetadata is stamped onto every canonical response by the
// pipeline orchestrator.
type ResponseMetadata struct {
	ProviderServed  string
	ProcessingSteps []string
	Timings         map[string]time.Duration
	RetryCount      int
}

// Response is the canonical shape returned to the caller, translated
// back from whichever wire family actually served the request.
type Response struct {
	ID       string
	Model    string
	Created  int64
	Choices  []Choice
	Usage    Usage
	Metadata ResponseMetadata
}
