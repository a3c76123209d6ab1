// Package pipeline implements the Pipeline Orchestrator (spec §4.7):
// the per-request state machine that walks a canonical Request through
// VALIDATE, ROUTE, PREPROCESS, TRANSFORM_IN, CALL, TRANSFORM_OUT, and
// POSTPROCESS, binding to one Generation for its whole lifetime.
package pipeline

import (
	"context"
	"fmt"

	"github.com/relayhq/llmgateway/gateway"
	"github.com/relayhq/llmgateway/gateway/adapters"
	adapteranthropic "github.com/relayhq/llmgateway/gateway/adapters/anthropic"
	adaptergemini "github.com/relayhq/llmgateway/gateway/adapters/gemini"
	adapteropenai "github.com/relayhq/llmgateway/gateway/adapters/openai"
)

// AdapterResolver hands the orchestrator the Adapter bound to a
// worker's wire family and endpoint. Implementations are free to cache
// or pool adapters; WorkerAdapters below builds one adapter per worker
// up front, the way a worker's endpoint+credential never changes
// within a generation.
type AdapterResolver interface {
	Resolve(w *gateway.Worker) (adapters.Adapter, error)
}

// WorkerAdapters is an AdapterResolver that constructs and caches one
// concrete adapter per worker at generation-build time, keyed by
// worker id.
type WorkerAdapters struct {
	byWorkerID map[string]adapters.Adapter
}

// BuildAdapters constructs one adapter per worker, dispatching on
// WireFamily to the matching concrete package (§4.6). A worker whose
// wire family has no adapter implementation at all is a hard error —
// never a silent no-op.
func BuildAdapters(ctx context.Context, workers []*gateway.Worker, retryPolicy adapters.RetryPolicy) (*WorkerAdapters, error) {
	out := &WorkerAdapters{byWorkerID: make(map[string]adapters.Adapter, len(workers))}

	for _, w := range workers {
		a, err := buildOne(ctx, w, retryPolicy)
		if err != nil {
			return nil, err
		}
		out.byWorkerID[w.WorkerID] = a
	}

	return out, nil
}

func buildOne(ctx context.Context, w *gateway.Worker, retryPolicy adapters.RetryPolicy) (adapters.Adapter, error) {
	switch w.WireFamily {
	case gateway.WireOpenAI:
		return adapteropenai.New(w.Endpoint, w.Credential, w.Capabilities, retryPolicy), nil
	case gateway.WireAnthropic:
		return adapteranthropic.New(w.Endpoint, w.Credential, w.Capabilities, retryPolicy), nil
	case gateway.WireGemini:
		return adaptergemini.New(ctx, w.Endpoint, w.Credential, w.Capabilities, retryPolicy)
	default:
		return nil, gateway.NewInternal(fmt.Sprintf("no adapter implementation for wire family %q (worker %s)", w.WireFamily, w.WorkerID))
	}
}

func (r *WorkerAdapters) Resolve(w *gateway.Worker) (adapters.Adapter, error) {
	a, ok := r.byWorkerID[w.WorkerID]
	if !ok {
		return nil, gateway.NewInternal(fmt.Sprintf("no adapter bound for worker %s", w.WorkerID))
	}
	return a, nil
}
