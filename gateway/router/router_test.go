package router

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/relayhq/llmgateway/gateway"
	"github.com/relayhq/llmgateway/gateway/registry"
)

func newGen(t *testing.T, reg *registry.Registry, table map[gateway.Category][]gateway.Candidate) *gateway.Generation {
	t.Helper()
	return &gateway.Generation{RoutingTable: table}
}

func candidate(id string, models []string, concrete map[string]string) gateway.Candidate {
	w := gateway.NewWorker(id, "p-"+id, 0, 1)
	w.Models = models
	w.ConcreteModels = concrete
	return gateway.Candidate{Worker: w, Priority: 1}
}

func TestRouter_ToolCallPresenceRoutesToToolCallCategory(t *testing.T) {
	reg := registry.New(registry.Config{}, nil, nil)
	table := map[gateway.Category][]gateway.Candidate{
		gateway.CategoryToolCall: {candidate("w1", []string{"gpt-4"}, nil)},
		gateway.CategoryDefault:  {candidate("w2", []string{"gpt-4"}, nil)},
	}
	gen := newGen(t, reg, table)
	rtr := New(reg, "round-robin", 60000, nil)

	req := &gateway.Request{
		VirtualModel: "default",
		Tools:        []gateway.ToolDefinition{{Name: "get_weather"}},
	}

	decision, err := rtr.Route(gen, req)
	require.NoError(t, err)
	assert.Equal(t, gateway.CategoryToolCall, decision.Category)
	assert.Equal(t, "w1", decision.Worker.WorkerID)
}

func TestRouter_LongContextClassifiesByTokenEstimate(t *testing.T) {
	reg := registry.New(registry.Config{}, nil, nil)
	table := map[gateway.Category][]gateway.Candidate{
		gateway.CategoryLongContext: {candidate("w1", []string{"gpt-4"}, nil)},
	}
	gen := newGen(t, reg, table)
	rtr := New(reg, "round-robin", 10, nil) // tiny threshold forces longContext

	req := &gateway.Request{
		VirtualModel: "default",
		Messages:     []gateway.Message{{Text: "this message is long enough to exceed a tiny token threshold easily"}},
	}

	decision, err := rtr.Route(gen, req)
	require.NoError(t, err)
	assert.Equal(t, gateway.CategoryLongContext, decision.Category)
}

func TestRouter_ReasoningMarkerInModelName(t *testing.T) {
	reg := registry.New(registry.Config{}, nil, nil)
	table := map[gateway.Category][]gateway.Candidate{
		gateway.CategoryReasoning: {candidate("w1", []string{"o1"}, nil)},
	}
	gen := newGen(t, reg, table)
	rtr := New(reg, "round-robin", 60000, nil)

	req := &gateway.Request{VirtualModel: "o1-reasoning"}

	decision, err := rtr.Route(gen, req)
	require.NoError(t, err)
	assert.Equal(t, gateway.CategoryReasoning, decision.Category)
}

func TestRouter_FallsBackToDefaultWhenCategoryMissing(t *testing.T) {
	reg := registry.New(registry.Config{}, nil, nil)
	table := map[gateway.Category][]gateway.Candidate{
		gateway.CategoryDefault: {candidate("w1", []string{"gpt-4"}, nil)},
	}
	gen := newGen(t, reg, table)
	rtr := New(reg, "round-robin", 60000, nil)

	req := &gateway.Request{VirtualModel: "reasoning-model-with-no-table-entry"}
	// force a category that has no table entry via hint
	req.RoutingHints.CategoryOverride = gateway.CategoryWebSearch

	decision, err := rtr.Route(gen, req)
	require.NoError(t, err)
	assert.Equal(t, gateway.CategoryDefault, decision.Category, "must fall back to default when the derived category has no candidates")
}

func TestRouter_NoRouteWhenNeitherCategoryNorDefaultExist(t *testing.T) {
	reg := registry.New(registry.Config{}, nil, nil)
	gen := newGen(t, reg, map[gateway.Category][]gateway.Candidate{})
	rtr := New(reg, "round-robin", 60000, nil)

	req := &gateway.Request{VirtualModel: "anything"}
	req.RoutingHints.CategoryOverride = gateway.CategoryWebSearch

	_, err := rtr.Route(gen, req)
	require.Error(t, err)
	var gwErr *gateway.Error
	require.ErrorAs(t, err, &gwErr)
	assert.Equal(t, gateway.KindNoRoute, gwErr.Kind)
}

func TestRouter_NoHealthyWorkerPropagatesVerbatim(t *testing.T) {
	reg := registry.New(registry.Config{RateLimitCooldown: time.Minute}, nil, nil)
	c := candidate("w1", []string{"gpt-4"}, nil)
	reg.MarkFailure(context.Background(), c.Worker, registry.ReasonRateLimited, 0)

	table := map[gateway.Category][]gateway.Candidate{gateway.CategoryDefault: {c}}
	gen := newGen(t, reg, table)
	rtr := New(reg, "round-robin", 60000, nil)

	_, err := rtr.Route(gen, &gateway.Request{VirtualModel: "default"})
	require.Error(t, err)
	var gwErr *gateway.Error
	require.ErrorAs(t, err, &gwErr)
	assert.Equal(t, gateway.KindNoHealthyWorker, gwErr.Kind)
}

func TestRouter_ResolvesConcreteModelFromMapping(t *testing.T) {
	reg := registry.New(registry.Config{}, nil, nil)
	c := candidate("w1", []string{"fallback-model"}, map[string]string{"default": "gpt-4o-2024"})
	table := map[gateway.Category][]gateway.Candidate{gateway.CategoryDefault: {c}}
	gen := newGen(t, reg, table)
	rtr := New(reg, "round-robin", 60000, nil)

	decision, err := rtr.Route(gen, &gateway.Request{VirtualModel: "default"})
	require.NoError(t, err)
	assert.Equal(t, "gpt-4o-2024", decision.TargetModel)
}

func TestRouter_ResolvesFirstAdvertisedModelWhenNoMapping(t *testing.T) {
	reg := registry.New(registry.Config{}, nil, nil)
	c := candidate("w1", []string{"first-model", "second-model"}, nil)
	table := map[gateway.Category][]gateway.Candidate{gateway.CategoryDefault: {c}}
	gen := newGen(t, reg, table)
	rtr := New(reg, "round-robin", 60000, nil)

	decision, err := rtr.Route(gen, &gateway.Request{VirtualModel: "default"})
	require.NoError(t, err)
	assert.Equal(t, "first-model", decision.TargetModel)
}

func TestRouter_FallbackWorkersExcludeSelected(t *testing.T) {
	reg := registry.New(registry.Config{}, nil, nil)
	c1 := candidate("w1", []string{"m"}, nil)
	c2 := candidate("w2", []string{"m"}, nil)
	table := map[gateway.Category][]gateway.Candidate{gateway.CategoryDefault: {c1, c2}}
	gen := newGen(t, reg, table)
	rtr := New(reg, "round-robin", 60000, nil)

	decision, err := rtr.Route(gen, &gateway.Request{VirtualModel: "default"})
	require.NoError(t, err)
	require.Len(t, decision.FallbackWorkers, 1)
	assert.NotEqual(t, decision.Worker.WorkerID, decision.FallbackWorkers[0].WorkerID)
}
