// Package gemini adapts the transform package's wire-level Gemini
// request/response shape onto github.com/google/generative-ai-go, the
// SDK the teacher's own GeminiAdapter wraps
// (agent/adapters/gemini_adapter.go).
package gemini

import (
	"context"
	"fmt"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"github.com/relayhq/llmgateway/gateway"
	"github.com/relayhq/llmgateway/gateway/adapters"
	"github.com/relayhq/llmgateway/gateway/transform"
)

// Adapter wraps a generative-ai-go client behind the adapters.Adapter
// contract; Call takes and returns the plain transform.GeminiRequest/
// transform.GeminiResponse shapes so the pipeline never imports the
// SDK directly.
type Adapter struct {
	client      *genai.Client
	caps        gateway.Capabilities
	retryPolicy adapters.RetryPolicy
}

// New builds an Adapter for a single worker's credential. endpoint may
// be empty to use Gemini's default API host; a non-empty one covers a
// proxied or regional Gemini endpoint via option.WithEndpoint.
func New(ctx context.Context, endpoint string, cred gateway.Credential, caps gateway.Capabilities, retryPolicy adapters.RetryPolicy) (*Adapter, error) {
	opts := []option.ClientOption{option.WithAPIKey(cred.Key)}
	if endpoint != "" {
		opts = append(opts, option.WithEndpoint(endpoint))
	}

	client, err := genai.NewClient(ctx, opts...)
	if err != nil {
		return nil, gateway.NewInternal(fmt.Sprintf("gemini adapter: failed to build client: %v", err))
	}

	return &Adapter{client: client, caps: caps, retryPolicy: retryPolicy}, nil
}

func (a *Adapter) Capabilities() gateway.Capabilities { return a.caps }

func (a *Adapter) Close() error { return a.client.Close() }

// Call sends wireRequest (a transform.GeminiRequest) and returns the
// decoded transform.GeminiResponse, retrying per adapters.WithRetry on
// retryable HTTP outcomes.
func (a *Adapter) Call(ctx context.Context, wireRequest any) (any, error) {
	req, ok := wireRequest.(transform.GeminiRequest)
	if !ok {
		return nil, gateway.NewInternal(fmt.Sprintf("gemini adapter: unexpected wire request type %T", wireRequest))
	}

	model := a.client.GenerativeModel(req.Model)
	configureModel(model, req)

	result, err := adapters.WithRetry(ctx, a.retryPolicy, func(ctx context.Context) (any, int, error) {
		resp, err := model.GenerateContent(ctx, toSDKParts(req.Contents)...)
		if err != nil {
			return nil, statusFromSDKError(err), err
		}
		return resp, 200, nil
	})
	if err != nil {
		return nil, err
	}

	return fromSDKResponse(result.(*genai.GenerateContentResponse)), nil
}

func configureModel(model *genai.GenerativeModel, req transform.GeminiRequest) {
	if req.SystemInstruction != nil {
		model.SystemInstruction = toSDKContent(*req.SystemInstruction)
	}
	if len(req.Tools) > 0 {
		model.Tools = toSDKTools(req.Tools)
	}
	if req.GenerationConfig == nil {
		return
	}
	cfg := req.GenerationConfig
	if cfg.Temperature != nil {
		model.SetTemperature(float32(*cfg.Temperature))
	}
	if cfg.TopP != nil {
		model.SetTopP(float32(*cfg.TopP))
	}
	if cfg.MaxOutputTokens != nil {
		model.SetMaxOutputTokens(int32(*cfg.MaxOutputTokens))
	}
	if len(cfg.StopSequences) > 0 {
		model.StopSequences = cfg.StopSequences
	}
}

// statusFromSDKError recovers the HTTP status code the SDK observed, if
// any, so ClassifyStatus can make the retry/fatal call. generative-ai-go
// surfaces transport-level failures as *googleapi.Error carrying Code; a
// non-HTTP failure (DNS, dial timeout) has no status and is treated as
// non-retryable beyond the adapter's own dial timeout.
func statusFromSDKError(err error) int {
	if apiErr, ok := err.(*googleapi.Error); ok {
		return apiErr.Code
	}
	return 0
}

func toSDKContent(c transform.GeminiContent) *genai.Content {
	return &genai.Content{Role: c.Role, Parts: toSDKParts([]transform.GeminiContent{c})}
}

func toSDKParts(contents []transform.GeminiContent) []genai.Part {
	var out []genai.Part
	for _, c := range contents {
		for _, p := range c.Parts {
			switch {
			case p.FunctionCall != nil:
				out = append(out, genai.FunctionCall{Name: p.FunctionCall.Name, Args: p.FunctionCall.Args})
			case p.FunctionResponse != nil:
				out = append(out, genai.FunctionResponse{Name: p.FunctionResponse.Name, Response: p.FunctionResponse.Response})
			default:
				out = append(out, genai.Text(p.Text))
			}
		}
	}
	return out
}

func toSDKTools(tools []transform.GeminiTool) []*genai.Tool {
	out := make([]*genai.Tool, 0, len(tools))
	for _, t := range tools {
		decls := make([]*genai.FunctionDeclaration, 0, len(t.FunctionDeclarations))
		for _, d := range t.FunctionDeclarations {
			decls = append(decls, &genai.FunctionDeclaration{
				Name:        d.Name,
				Description: d.Description,
				Parameters:  &genai.Schema{Type: genai.TypeObject},
			})
		}
		out = append(out, &genai.Tool{FunctionDeclarations: decls})
	}
	return out
}

func fromSDKResponse(resp *genai.GenerateContentResponse) transform.GeminiResponse {
	wire := transform.GeminiResponse{}
	if resp.UsageMetadata != nil {
		wire.UsageMetadata = transform.GeminiUsageMetadata{
			PromptTokenCount:     int(resp.UsageMetadata.PromptTokenCount),
			CandidatesTokenCount: int(resp.UsageMetadata.CandidatesTokenCount),
			TotalTokenCount:      int(resp.UsageMetadata.TotalTokenCount),
		}
	}

	for _, c := range resp.Candidates {
		candidate := transform.GeminiCandidate{FinishReason: c.FinishReason.String()}
		if c.Content != nil {
			candidate.Content.Role = c.Content.Role
			for _, part := range c.Content.Parts {
				switch v := part.(type) {
				case genai.Text:
					candidate.Content.Parts = append(candidate.Content.Parts, transform.GeminiPart{Text: string(v)})
				case genai.FunctionCall:
					candidate.Content.Parts = append(candidate.Content.Parts, transform.GeminiPart{
						FunctionCall: &transform.GeminiFunctionCall{Name: v.Name, Args: v.Args},
					})
				}
			}
		}
		wire.Candidates = append(wire.Candidates, candidate)
	}

	return wire
}
