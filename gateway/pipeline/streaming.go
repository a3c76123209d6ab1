package pipeline

import (
	"context"
	"encoding/json"
	"unicode/utf8"

	"github.com/relayhq/llmgateway/gateway"
)

// StreamChunk is one piece of a streamed completion delivered to the
// caller's callback (§4.8).
type StreamChunk struct {
	Delta     string
	ToolCalls []gateway.ToolCall
	Done      bool
	Final     *gateway.Response // set only on the last chunk
}

// simulatedChunkSize bounds how much text one simulated-streaming
// chunk carries; kept small enough that a caller driving a UI sees
// incremental output, not one giant chunk (§4.8 "SHOULD produce chunks
// resembling what native streaming would, not a single giant one").
const simulatedChunkSize = 24

// ExecuteStream runs req through the pipeline and delivers the
// completion to onChunk, honoring RoutingHints.StreamPreference
// (§4.8):
//
//   - "force_non_streaming": runs Execute and delivers the whole
//     response as a single chunk, for callers that don't need
//     incremental output.
//   - "native_streaming": not implemented — the adapters package
//     contract (§4.6) exposes one synchronous Call, not a streaming
//     variant, so this mode degrades to simulated streaming with a
//     logged note rather than silently behaving like
//     force_non_streaming (§1 zero-fallback: a caller that asked for
//     streaming still gets incremental chunks, just synthesized ones).
//   - anything else (including "simulated_streaming", the default):
//     runs Execute to get the full response, then re-delivers its
//     first choice's text in UTF-8-boundary-respecting pieces.
func (o *Orchestrator) ExecuteStream(ctx context.Context, req *gateway.Request, onChunk func(StreamChunk)) (*gateway.Response, error) {
	if req.RoutingHints.StreamPreference == "native_streaming" {
		o.logger.Warn(ctx, "native_streaming requested but not implemented, degrading to simulated streaming")
	}

	resp, err := o.Execute(ctx, req)
	if err != nil {
		return nil, err
	}

	if req.RoutingHints.StreamPreference == "force_non_streaming" || onChunk == nil {
		if onChunk != nil {
			onChunk(StreamChunk{Done: true, Final: resp})
		}
		return resp, nil
	}

	if len(resp.Choices) == 0 {
		onChunk(StreamChunk{Done: true, Final: resp})
		return resp, nil
	}

	text := resp.Choices[0].Message.Content
	for _, piece := range chunkUTF8(text, simulatedChunkSize) {
		onChunk(StreamChunk{Delta: piece})
	}
	if len(resp.Choices[0].Message.ToolCalls) > 0 {
		onChunk(StreamChunk{ToolCalls: resp.Choices[0].Message.ToolCalls})
	}
	onChunk(StreamChunk{Done: true, Final: resp})

	return resp, nil
}

// chunkUTF8 splits s into pieces of at most maxBytes bytes each,
// never cutting a multi-byte rune in half (§9 Open Questions
// "SHOULD split chunks on rune boundaries, never mid-codepoint").
func chunkUTF8(s string, maxBytes int) []string {
	if s == "" {
		return nil
	}
	var out []string
	for len(s) > 0 {
		if len(s) <= maxBytes {
			out = append(out, s)
			break
		}
		cut := maxBytes
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		if cut == 0 {
			_, size := utf8.DecodeRuneInString(s)
			cut = size
		}
		out = append(out, s[:cut])
		s = s[cut:]
	}
	return out
}

// ToolCallAssembler reassembles a streamed tool call's partial JSON
// argument fragments into the complete gateway.ToolCall the rest of
// the pipeline expects, the way native SSE tool-call deltas arrive as
// incremental string fragments that only parse once concatenated
// (§4.8 "partial JSON tool-call reassembly"). A real streaming adapter
// would feed this incrementally; it's exercised standalone here since
// no adapter in this gateway emits wire-level deltas yet.
type ToolCallAssembler struct {
	id, name string
	argsBuf  []byte
}

func NewToolCallAssembler(id, name string) *ToolCallAssembler {
	return &ToolCallAssembler{id: id, name: name}
}

// AddFragment appends one partial-arguments fragment.
func (a *ToolCallAssembler) AddFragment(fragment string) {
	a.argsBuf = append(a.argsBuf, fragment...)
}

// Complete reports whether the buffered fragments form valid JSON yet,
// and if so, the assembled ToolCall.
func (a *ToolCallAssembler) Complete() (gateway.ToolCall, bool) {
	if !json.Valid(a.argsBuf) {
		return gateway.ToolCall{}, false
	}
	return gateway.ToolCall{
		ID:        a.id,
		Type:      "function",
		Name:      a.name,
		Arguments: string(a.argsBuf),
	}, true
}
