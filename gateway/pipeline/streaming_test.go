package pipeline

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relayhq/llmgateway/gateway"
	"github.com/relayhq/llmgateway/gateway/preprocess"
	"github.com/relayhq/llmgateway/gateway/registry"
	"github.com/relayhq/llmgateway/gateway/router"
	"github.com/relayhq/llmgateway/gateway/transform"
)

func TestChunkUTF8_NeverSplitsAMultiByteRune(t *testing.T) {
	s := "héllo wörld 世界"
	chunks := chunkUTF8(s, 4)
	var rebuilt string
	for _, c := range chunks {
		rebuilt += c
	}
	assert.Equal(t, s, rebuilt)
	for _, c := range chunks {
		assert.True(t, len(c) <= 6, "chunk %q exceeded a reasonable byte bound", c)
	}
}

func TestChunkUTF8_EmptyStringYieldsNoChunks(t *testing.T) {
	assert.Nil(t, chunkUTF8("", 10))
}

func TestToolCallAssembler_ReportsIncompleteUntilValidJSON(t *testing.T) {
	a := NewToolCallAssembler("call_1", "get_weather")
	a.AddFragment(`{"locat`)
	_, complete := a.Complete()
	assert.False(t, complete)

	a.AddFragment(`ion":"Hanoi"}`)
	tc, complete := a.Complete()
	require.True(t, complete)
	assert.Equal(t, "call_1", tc.ID)
	assert.Equal(t, "get_weather", tc.Name)
	assert.JSONEq(t, `{"location":"Hanoi"}`, tc.Arguments)
}

func TestExecuteStream_ForceNonStreamingDeliversOneChunk(t *testing.T) {
	w := newOpenAIWorker("w1")
	table := map[gateway.Category][]gateway.Candidate{
		gateway.CategoryDefault: {{Worker: w, Priority: 1}},
	}
	adapter := &fakeAdapter{results: []fakeResult{{resp: openAISuccessPayload("streamed text")}}}
	resolver := &fakeResolver{byID: map[string]*fakeAdapter{"w1": adapter}}
	orch := newTestOrchestrator(t, []*gateway.Worker{w}, table, resolver)

	req := &gateway.Request{
		VirtualModel: "default",
		Messages:     []gateway.Message{{Role: gateway.RoleUser, Text: "hi"}},
		RoutingHints: gateway.RoutingHints{StreamPreference: "force_non_streaming"},
	}

	var chunks []StreamChunk
	_, err := orch.ExecuteStream(context.Background(), req, func(c StreamChunk) { chunks = append(chunks, c) })
	require.NoError(t, err)
	require.Len(t, chunks, 1)
	assert.True(t, chunks[0].Done)
	assert.Equal(t, "streamed text", chunks[0].Final.Choices[0].Message.Content)
}

func TestExecuteStream_SimulatedStreamingSplitsIntoMultipleChunks(t *testing.T) {
	w := newOpenAIWorker("w1")
	table := map[gateway.Category][]gateway.Candidate{
		gateway.CategoryDefault: {{Worker: w, Priority: 1}},
	}
	longText := "this response is long enough that simulated streaming should split it into more than one delta chunk for the caller"
	adapter := &fakeAdapter{results: []fakeResult{{resp: openAISuccessPayload(longText)}}}
	resolver := &fakeResolver{byID: map[string]*fakeAdapter{"w1": adapter}}
	orch := newTestOrchestrator(t, []*gateway.Worker{w}, table, resolver)

	req := &gateway.Request{
		VirtualModel: "default",
		Messages:     []gateway.Message{{Role: gateway.RoleUser, Text: "hi"}},
		RoutingHints: gateway.RoutingHints{StreamPreference: "simulated_streaming"},
	}

	var deltas []string
	var sawDone bool
	_, err := orch.ExecuteStream(context.Background(), req, func(c StreamChunk) {
		if c.Delta != "" {
			deltas = append(deltas, c.Delta)
		}
		if c.Done {
			sawDone = true
		}
	})
	require.NoError(t, err)
	assert.True(t, sawDone)
	assert.Greater(t, len(deltas), 1)

	var rebuilt string
	for _, d := range deltas {
		rebuilt += d
	}
	assert.Equal(t, longText, rebuilt)
}

func TestExecuteStream_NativeStreamingDegradesToSimulated(t *testing.T) {
	w := newOpenAIWorker("w1")
	table := map[gateway.Category][]gateway.Candidate{
		gateway.CategoryDefault: {{Worker: w, Priority: 1}},
	}
	adapter := &fakeAdapter{results: []fakeResult{{resp: openAISuccessPayload("short")}}}
	resolver := &fakeResolver{byID: map[string]*fakeAdapter{"w1": adapter}}

	gen := &gateway.Generation{
		Workers:      []*gateway.Worker{w},
		WorkersByID:  map[string]*gateway.Worker{"w1": w},
		RoutingTable: table,
	}
	store := gateway.NewGenerationStore(gen)
	reg := registry.New(registry.Config{}, nil, nil)
	require.NoError(t, reg.RegisterAll([]*gateway.Worker{w}))
	rt := router.New(reg, "round-robin", 60000, nil)
	orch := New(store, reg, rt, transform.NewRegistry(), preprocess.Default(), resolver, nil)

	req := &gateway.Request{
		VirtualModel: "default",
		Messages:     []gateway.Message{{Role: gateway.RoleUser, Text: "hi"}},
		RoutingHints: gateway.RoutingHints{StreamPreference: "native_streaming"},
	}

	var sawDone bool
	_, err := orch.ExecuteStream(context.Background(), req, func(c StreamChunk) {
		if c.Done {
			sawDone = true
		}
	})
	require.NoError(t, err)
	assert.True(t, sawDone)
}
