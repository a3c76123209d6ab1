// Package openai adapts the transform package's wire-level OpenAI
// request/response shape onto github.com/openai/openai-go/v3, the SDK
// the teacher's own OpenAIAdapter wraps (agent/adapters/openai_adapter.go).
package openai

import (
	"context"
	"errors"
	"fmt"

	openaisdk "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"

	"github.com/relayhq/llmgateway/gateway"
	"github.com/relayhq/llmgateway/gateway/adapters"
	"github.com/relayhq/llmgateway/gateway/transform"
)

// Adapter wraps an openai-go client behind the adapters.Adapter
// contract; Call takes and returns the plain transform.OpenAIRequest/
// transform.OpenAIResponse shapes so the pipeline never imports the
// SDK directly.
type Adapter struct {
	client       openaisdk.Client
	caps         gateway.Capabilities
	retryPolicy  adapters.RetryPolicy
}

// New builds an Adapter for a single worker's endpoint and credential.
// baseURL may be empty to use OpenAI's default; a non-empty one covers
// OpenAI-compatible self-hosted variants (Ollama, vLLM, Azure) the way
// the teacher's NewOpenAIAdapter does.
func New(baseURL string, cred gateway.Credential, caps gateway.Capabilities, retryPolicy adapters.RetryPolicy) *Adapter {
	opts := []option.RequestOption{option.WithAPIKey(cred.Key)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	for name, value := range cred.Headers {
		opts = append(opts, option.WithHeader(name, value))
	}

	return &Adapter{
		client:      openaisdk.NewClient(opts...),
		caps:        caps,
		retryPolicy: retryPolicy,
	}
}

func (a *Adapter) Capabilities() gateway.Capabilities { return a.caps }

// Close is a no-op: the SDK client owns no resources that need
// releasing beyond its underlying http.Client, which we don't own.
func (a *Adapter) Close() error { return nil }

// Call sends wireRequest (a transform.OpenAIRequest value) and returns
// the decoded transform.OpenAIResponse value, retrying per adapters.WithRetry on
// retryable HTTP outcomes.
func (a *Adapter) Call(ctx context.Context, wireRequest any) (any, error) {
	req, ok := wireRequest.(transform.OpenAIRequest)
	if !ok {
		return nil, gateway.NewInternal(fmt.Sprintf("openai adapter: unexpected wire request type %T", wireRequest))
	}

	params := toSDKParams(req)

	result, err := adapters.WithRetry(ctx, a.retryPolicy, func(ctx context.Context) (any, int, error) {
		completion, err := a.client.Chat.Completions.New(ctx, params)
		if err != nil {
			return nil, statusFromSDKError(err), err
		}
		return completion, 200, nil
	})
	if err != nil {
		return nil, err
	}

	return *fromSDKCompletion(result.(*openaisdk.ChatCompletion)), nil
}

// statusFromSDKError recovers the HTTP status code the SDK observed, if
// any, so ClassifyStatus can make the retry/fatal call. openai-go wraps
// transport-level failures in *openai.Error carrying StatusCode; a
// non-HTTP failure (DNS, dial timeout) has no status and is treated as
// non-retryable beyond the adapter's own dial timeout.
func statusFromSDKError(err error) int {
	var apiErr *openaisdk.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

func toSDKParams(req transform.OpenAIRequest) openaisdk.ChatCompletionNewParams {
	params := openaisdk.ChatCompletionNewParams{
		Model:    openaisdk.ChatModel(req.Model),
		Messages: toSDKMessages(req.Messages),
	}

	if req.Temperature != nil {
		params.Temperature = openaisdk.Float(*req.Temperature)
	}
	if req.TopP != nil {
		params.TopP = openaisdk.Float(*req.TopP)
	}
	if req.MaxTokens != nil {
		params.MaxTokens = openaisdk.Int(int64(*req.MaxTokens))
	}
	if len(req.Tools) > 0 {
		params.Tools = toSDKTools(req.Tools)
	}

	return params
}

func toSDKMessages(msgs []transform.OpenAIMessage) []openaisdk.ChatCompletionMessageParamUnion {
	out := make([]openaisdk.ChatCompletionMessageParamUnion, 0, len(msgs))
	for _, m := range msgs {
		switch m.Role {
		case "system":
			out = append(out, openaisdk.SystemMessage(m.Content))
		case "assistant":
			out = append(out, openaisdk.AssistantMessage(m.Content))
		case "tool":
			out = append(out, openaisdk.ToolMessage(m.ToolCallID, m.Content))
		default:
			out = append(out, openaisdk.UserMessage(m.Content))
		}
	}
	return out
}

func toSDKTools(tools []transform.OpenAITool) []openaisdk.ChatCompletionToolUnionParam {
	out := make([]openaisdk.ChatCompletionToolUnionParam, len(tools))
	for i, t := range tools {
		out[i] = openaisdk.ChatCompletionFunctionTool(openaisdk.FunctionDefinitionParam{
			Name:        t.Function.Name,
			Description: openaisdk.String(t.Function.Description),
			Parameters:  openaisdk.FunctionParameters(t.Function.Parameters),
		})
	}
	return out
}

func fromSDKCompletion(c *openaisdk.ChatCompletion) *transform.OpenAIResponse {
	resp := &transform.OpenAIResponse{
		ID:      c.ID,
		Model:   c.Model,
		Created: c.Created,
		Usage: transform.OpenAIUsage{
			PromptTokens:     int(c.Usage.PromptTokens),
			CompletionTokens: int(c.Usage.CompletionTokens),
			TotalTokens:      int(c.Usage.TotalTokens),
		},
	}

	resp.Choices = make([]transform.OpenAIChoice, len(c.Choices))
	for i, choice := range c.Choices {
		msg := transform.OpenAIMessage{
			Role:    string(choice.Message.Role),
			Content: choice.Message.Content,
		}
		if len(choice.Message.ToolCalls) > 0 {
			msg.ToolCalls = make([]transform.OpenAIToolCall, len(choice.Message.ToolCalls))
			for j, tc := range choice.Message.ToolCalls {
				msg.ToolCalls[j] = transform.OpenAIToolCall{
					ID:   tc.ID,
					Type: string(tc.Type),
					Function: transform.OpenAIFunctionCall{
						Name:      tc.Function.Name,
						Arguments: tc.Function.Arguments,
					},
				}
			}
		}
		resp.Choices[i] = transform.OpenAIChoice{
			Index:        int(choice.Index),
			Message:      msg,
			FinishReason: string(choice.FinishReason),
		}
	}

	return resp
}
