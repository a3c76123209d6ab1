// Package anthropic adapts the transform package's wire-level
// Anthropic request/response shape onto
// github.com/anthropics/anthropic-sdk-go, the way the pack's
// goclaw AnthropicProvider (internal/llm/anthropic.go) wraps the same
// SDK.
package anthropic

import (
	"context"
	"errors"
	"fmt"

	anthropicsdk "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"

	"github.com/relayhq/llmgateway/gateway"
	"github.com/relayhq/llmgateway/gateway/adapters"
	"github.com/relayhq/llmgateway/gateway/transform"
)

const defaultMaxTokens = 4096

// Adapter wraps an anthropic-sdk-go client behind the adapters.Adapter
// contract; Call takes and returns the plain transform.AnthropicRequest/
// transform.AnthropicResponse shapes.
type Adapter struct {
	client      anthropicsdk.Client
	caps        gateway.Capabilities
	retryPolicy adapters.RetryPolicy
}

// New builds an Adapter for a single worker's endpoint and credential.
// baseURL may be empty to use Anthropic's default.
func New(baseURL string, cred gateway.Credential, caps gateway.Capabilities, retryPolicy adapters.RetryPolicy) *Adapter {
	opts := []option.RequestOption{option.WithAPIKey(cred.Key)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	for name, value := range cred.Headers {
		opts = append(opts, option.WithHeader(name, value))
	}

	return &Adapter{
		client:      anthropicsdk.NewClient(opts...),
		caps:        caps,
		retryPolicy: retryPolicy,
	}
}

func (a *Adapter) Capabilities() gateway.Capabilities { return a.caps }

// Close is a no-op: the SDK client owns no resources beyond its
// underlying http.Client, which we don't own.
func (a *Adapter) Close() error { return nil }

// Call sends wireRequest (a transform.AnthropicRequest value) and
// returns the decoded transform.AnthropicResponse value, retrying per
// adapters.WithRetry on retryable HTTP outcomes.
func (a *Adapter) Call(ctx context.Context, wireRequest any) (any, error) {
	req, ok := wireRequest.(transform.AnthropicRequest)
	if !ok {
		return nil, gateway.NewInternal(fmt.Sprintf("anthropic adapter: unexpected wire request type %T", wireRequest))
	}

	params := toSDKParams(req)

	result, err := adapters.WithRetry(ctx, a.retryPolicy, func(ctx context.Context) (any, int, error) {
		message, err := a.client.Messages.New(ctx, params)
		if err != nil {
			return nil, statusFromSDKError(err), err
		}
		return message, 200, nil
	})
	if err != nil {
		return nil, err
	}

	return *fromSDKMessage(result.(*anthropicsdk.Message)), nil
}

func statusFromSDKError(err error) int {
	var apiErr *anthropicsdk.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

func toSDKParams(req transform.AnthropicRequest) anthropicsdk.MessageNewParams {
	maxTokens := req.MaxTokens
	if maxTokens <= 0 {
		maxTokens = defaultMaxTokens
	}

	params := anthropicsdk.MessageNewParams{
		Model:     anthropicsdk.Model(req.Model),
		MaxTokens: int64(maxTokens),
		Messages:  toSDKMessages(req.Messages),
	}

	if req.System != "" {
		params.System = []anthropicsdk.TextBlockParam{{Text: req.System}}
	}
	if req.Temperature != nil {
		params.Temperature = anthropicsdk.Float(*req.Temperature)
	}
	if req.TopP != nil {
		params.TopP = anthropicsdk.Float(*req.TopP)
	}
	if len(req.StopSequences) > 0 {
		params.StopSequences = req.StopSequences
	}
	if len(req.Tools) > 0 {
		params.Tools = toSDKTools(req.Tools)
	}

	return params
}

func toSDKMessages(msgs []transform.AnthropicMessage) []anthropicsdk.MessageParam {
	out := make([]anthropicsdk.MessageParam, 0, len(msgs))
	for _, m := range msgs {
		role := anthropicsdk.MessageParamRoleUser
		if m.Role == "assistant" {
			role = anthropicsdk.MessageParamRoleAssistant
		}
		out = append(out, anthropicsdk.MessageParam{
			Role:    role,
			Content: toSDKBlocks(m.Content),
		})
	}
	return out
}

func toSDKBlocks(blocks []transform.AnthropicContentBlock) []anthropicsdk.ContentBlockParamUnion {
	out := make([]anthropicsdk.ContentBlockParamUnion, 0, len(blocks))
	for _, b := range blocks {
		switch b.Type {
		case "text":
			out = append(out, anthropicsdk.NewTextBlock(b.Text))
		case "tool_use":
			out = append(out, anthropicsdk.ContentBlockParamUnion{
				OfToolUse: &anthropicsdk.ToolUseBlockParam{
					ID:    b.ID,
					Name:  b.Name,
					Input: b.Input,
				},
			})
		case "tool_result":
			out = append(out, anthropicsdk.NewToolResultBlock(b.ToolUseID, b.Content, false))
		case "image":
			if b.Source != nil {
				out = append(out, anthropicsdk.NewImageBlockBase64(b.Source.MediaType, b.Source.Data))
			}
		}
	}
	return out
}

func toSDKTools(tools []transform.AnthropicTool) []anthropicsdk.ToolUnionParam {
	out := make([]anthropicsdk.ToolUnionParam, len(tools))
	for i, t := range tools {
		var properties any
		if props, ok := t.InputSchema["properties"]; ok {
			properties = props
		}
		out[i] = anthropicsdk.ToolUnionParam{
			OfTool: &anthropicsdk.ToolParam{
				Name:        t.Name,
				Description: anthropicsdk.String(t.Description),
				InputSchema: anthropicsdk.ToolInputSchemaParam{Properties: properties},
			},
		}
	}
	return out
}

func fromSDKMessage(m *anthropicsdk.Message) *transform.AnthropicResponse {
	resp := &transform.AnthropicResponse{
		ID:         m.ID,
		Model:      string(m.Model),
		StopReason: string(m.StopReason),
		Usage: transform.AnthropicUsage{
			InputTokens:  int(m.Usage.InputTokens),
			OutputTokens: int(m.Usage.OutputTokens),
		},
	}

	for _, block := range m.Content {
		switch variant := block.AsAny().(type) {
		case anthropicsdk.TextBlock:
			resp.Content = append(resp.Content, transform.AnthropicContentBlock{Type: "text", Text: variant.Text})
		case anthropicsdk.ToolUseBlock:
			input, _ := variant.Input.(map[string]any)
			resp.Content = append(resp.Content, transform.AnthropicContentBlock{
				Type:  "tool_use",
				ID:    variant.ID,
				Name:  variant.Name,
				Input: input,
			})
		}
	}

	return resp
}
