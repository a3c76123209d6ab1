// Package expand implements the Expander (spec §4.1): it turns a flat
// list of logical provider configs into the concrete, independently
// routable workers the registry and router operate on.
package expand

import (
	"context"
	"fmt"

	"github.com/relayhq/llmgateway/gateway"
)

// Result is everything one Expand call produces: the workers plus any
// non-fatal warnings (e.g. a disabled provider contributing zero
// workers).
type Result struct {
	Workers  []*gateway.Worker
	Warnings []string
}

// Expand derives one worker per {provider, credential-index} pair.
// Expansion is deterministic given input order (§4.1): providers are
// walked in the order given, and credentials within a provider are
// walked in the order given, so re-running Expand on the same input
// always yields the same worker ids in the same order.
//
// It never merges providers of different wire families — each
// ProviderConfig expands independently regardless of what wire_family
// its neighbors declare.
func Expand(providers []gateway.ProviderConfig, logger gateway.Logger) (*Result, error) {
	if logger == nil {
		logger = gateway.NoopLogger{}
	}

	res := &Result{}

	for _, p := range providers {
		if p.Disabled {
			res.Warnings = append(res.Warnings, fmt.Sprintf("provider %s is disabled, emitting no workers", p.ID))
			continue
		}

		keys := p.Credentials.Keys
		if len(keys) == 0 {
			res.Warnings = append(res.Warnings, fmt.Sprintf("provider %s has zero credentials, emitting no workers", p.ID))
			continue
		}

		total := len(keys)
		for idx, key := range keys {
			workerID := fmt.Sprintf("%s:%d", p.ID, idx)
			w := gateway.NewWorker(workerID, p.ID, idx, total)
			w.WireFamily = p.WireFamily
			w.Endpoint = p.Endpoint
			w.Models = append([]string(nil), p.Models...)
			w.ConcreteModels = p.ConcreteModels
			w.Timeout = p.Timeout
			w.MaxRetries = p.MaxRetries
			w.Capabilities = p.Capabilities
			w.Credential = gateway.Credential{
				Key:        key,
				HeaderName: headerNameFor(p),
				Headers:    p.Credentials.Headers,
			}

			res.Workers = append(res.Workers, w)
		}
	}

	if len(res.Workers) == 0 {
		return res, gateway.ErrExpansionEmpty
	}

	ctx := context.Background()
	for _, warn := range res.Warnings {
		logger.Warn(ctx, warn)
	}

	return res, nil
}

func headerNameFor(p gateway.ProviderConfig) string {
	if p.Credentials.HeaderName != "" {
		return p.Credentials.HeaderName
	}
	switch p.WireFamily {
	case gateway.WireAnthropic:
		return "x-api-key"
	default:
		return "bearer"
	}
}

// RewriteRoutingTable substitutes every provider-id reference in a
// pre-expansion routing table with the expanded workers that belong to
// that provider, ordered by the entry's priority (descending; entries of
// equal priority keep their table order) and, within one entry, by
// credential index — giving the router a
// concrete, worker-level candidate list per category (§4.1 "a routing
// table rewrite that substitutes every reference to a logical provider
// with its expanded workers").
func RewriteRoutingTable(table map[gateway.Category][]gateway.CategoryEntry, workers []*gateway.Worker) map[gateway.Category][]gateway.Candidate {
	byProvider := make(map[string][]*gateway.Worker)
	for _, w := range workers {
		byProvider[w.ProviderID] = append(byProvider[w.ProviderID], w)
	}

	out := make(map[gateway.Category][]gateway.Candidate, len(table))
	for category, entries := range table {
		sorted := append([]gateway.CategoryEntry(nil), entries...)
		sortEntriesByPriorityDesc(sorted)

		var candidates []gateway.Candidate
		for _, e := range sorted {
			for _, w := range byProvider[e.ProviderID] {
				candidates = append(candidates, gateway.Candidate{
					Worker:           w,
					Priority:         e.Priority,
					Weight:           e.Weight,
					SecurityEnhanced: e.SecurityEnhanced,
				})
			}
		}
		out[category] = candidates
	}

	return out
}

func sortEntriesByPriorityDesc(entries []gateway.CategoryEntry) {
	for i := 1; i < len(entries); i++ {
		for j := i; j > 0 && entries[j].Priority > entries[j-1].Priority; j-- {
			entries[j], entries[j-1] = entries[j-1], entries[j]
		}
	}
}
