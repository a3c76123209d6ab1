// Package router implements the Router (spec §4.3): category
// derivation, candidate-list lookup, worker selection, and
// target-model resolution.
package router

import (
	"time"

	"github.com/relayhq/llmgateway/gateway"
	"github.com/relayhq/llmgateway/gateway/registry"
)

// RoutingDecision is what the orchestrator needs to make a call and,
// if it fails, retry within the same category (§4.3 step 5).
type RoutingDecision struct {
	Worker              *gateway.Worker
	TargetModel         string
	Category            gateway.Category
	Strategy            registry.Policy
	FallbackWorkers     []*gateway.Worker
	RequiresHealthCheck bool
}

// Router derives a request's category, asks the registry for an
// eligible worker, and resolves the concrete model to call.
type Router struct {
	reg               *registry.Registry
	policy            registry.Policy
	longContextTokens int
	estimator         *tokenEstimator
	logger            gateway.Logger
}

func New(reg *registry.Registry, selectionPolicy string, longContextTokens int, logger gateway.Logger) *Router {
	if logger == nil {
		logger = gateway.NoopLogger{}
	}
	if longContextTokens <= 0 {
		longContextTokens = 60000
	}
	return &Router{
		reg:               reg,
		policy:            registry.Policy(selectionPolicy),
		longContextTokens: longContextTokens,
		estimator:         newTokenEstimator(),
		logger:            logger,
	}
}

// Route runs the full algorithm in §4.3: classify, look up candidates
// (falling back to default once), select an eligible worker, resolve
// target_model, and package the result plus retry candidates.
func (r *Router) Route(gen *gateway.Generation, req *gateway.Request) (*RoutingDecision, error) {
	category := r.classify(req)

	candidates, usedCategory, err := r.candidatesFor(gen, category)
	if err != nil {
		return nil, err
	}

	worker, err := r.reg.SelectAvailable(candidates, string(usedCategory), r.policy)
	if err != nil {
		return nil, err
	}

	targetModel := resolveTargetModel(worker, req.VirtualModel)

	return &RoutingDecision{
		Worker:              worker,
		TargetModel:         targetModel,
		Category:            usedCategory,
		Strategy:            r.policy,
		FallbackWorkers:     otherEligibleWorkers(candidates, worker),
		RequiresHealthCheck: false,
	}, nil
}

// classify derives the category per §4.3 step 1: explicit hint wins;
// otherwise tool-call presence, then long-context token estimate, then
// reasoning markers, then web-search tools, then background markers,
// else default.
func (r *Router) classify(req *gateway.Request) gateway.Category {
	if req.RoutingHints.CategoryOverride != "" {
		return req.RoutingHints.CategoryOverride
	}

	if len(req.Tools) > 0 {
		return gateway.CategoryToolCall
	}

	if r.estimator.Estimate(req) > r.longContextTokens {
		return gateway.CategoryLongContext
	}

	if hasMarker(req.VirtualModel, reasoningMarkers) {
		return gateway.CategoryReasoning
	}

	if hasWebSearchTool(toolNames(req.Tools)) {
		return gateway.CategoryWebSearch
	}

	if hasMarker(req.VirtualModel, backgroundMarkers) {
		return gateway.CategoryBackground
	}

	return gateway.CategoryDefault
}

func toolNames(tools []gateway.ToolDefinition) []string {
	names := make([]string, len(tools))
	for i, t := range tools {
		names[i] = t.Name
	}
	return names
}

// candidatesFor looks up the routing table entry for category,
// falling back to CategoryDefault once; NoRoute if neither exists
// (§4.3 step 2).
func (r *Router) candidatesFor(gen *gateway.Generation, category gateway.Category) ([]gateway.Candidate, gateway.Category, error) {
	if c, ok := gen.RoutingTable[category]; ok && len(c) > 0 {
		return c, category, nil
	}
	if category != gateway.CategoryDefault {
		if c, ok := gen.RoutingTable[gateway.CategoryDefault]; ok && len(c) > 0 {
			return c, gateway.CategoryDefault, nil
		}
	}
	return nil, "", gateway.NewNoRoute(category)
}

// ResolveTargetModel exposes resolveTargetModel for callers (the
// pipeline orchestrator's within-category retry loop) that need to
// re-resolve a target model for a fallback worker without re-running
// the whole Route algorithm.
func ResolveTargetModel(w *gateway.Worker, virtualModel string) string {
	return resolveTargetModel(w, virtualModel)
}

// resolveTargetModel picks the concrete model a worker should be
// called with: its provider's mapping for the virtual name if one
// exists, otherwise the first model the worker advertises (§4.3
// step 4).
func resolveTargetModel(w *gateway.Worker, virtualModel string) string {
	if w.ConcreteModels != nil {
		if concrete, ok := w.ConcreteModels[virtualModel]; ok && concrete != "" {
			return concrete
		}
	}
	if len(w.Models) > 0 {
		return w.Models[0]
	}
	return virtualModel
}

// otherEligibleWorkers returns the category's remaining eligible
// (healthy, not cooling down) workers beside the one just selected, for
// the orchestrator's within-category retry (§4.3 "fallback_workers...
// never for cross-category masking").
func otherEligibleWorkers(candidates []gateway.Candidate, selected *gateway.Worker) []*gateway.Worker {
	now := time.Now()
	out := make([]*gateway.Worker, 0, len(candidates))
	for _, c := range candidates {
		if c.Worker != selected && c.Worker.Eligible(now) {
			out = append(out, c.Worker)
		}
	}
	return out
}
