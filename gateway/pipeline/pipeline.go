package pipeline

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/relayhq/llmgateway/gateway"
	"github.com/relayhq/llmgateway/gateway/preprocess"
	"github.com/relayhq/llmgateway/gateway/registry"
	"github.com/relayhq/llmgateway/gateway/router"
	"github.com/relayhq/llmgateway/gateway/transform"
)

// Orchestrator runs one request through the full stage sequence (§4.7):
// VALIDATE → ROUTE → PREPROCESS → TRANSFORM_IN → CALL → TRANSFORM_OUT
// → POSTPROCESS, with a RETRY_OR_FAIL branch around CALL that retries
// on a fallback worker within the same category (never across
// categories, and never by substituting default content — §1's
// zero-fallback guarantee applies to content, not to worker selection).
type Orchestrator struct {
	store      *gateway.GenerationStore
	registry   *registry.Registry
	router     *router.Router
	transforms *transform.Registry
	preprocess *preprocess.Selector
	adapters   AdapterResolver
	logger     gateway.Logger
}

// New builds an Orchestrator from the components each earlier package
// already provides; nothing here constructs its own routing, registry,
// or transform logic.
func New(
	store *gateway.GenerationStore,
	reg *registry.Registry,
	rt *router.Router,
	transforms *transform.Registry,
	pre *preprocess.Selector,
	adapterResolver AdapterResolver,
	logger gateway.Logger,
) *Orchestrator {
	if logger == nil {
		logger = gateway.NoopLogger{}
	}
	return &Orchestrator{
		store:      store,
		registry:   reg,
		router:     rt,
		transforms: transforms,
		preprocess: pre,
		adapters:   adapterResolver,
		logger:     logger,
	}
}

// stageTiming is one named stage's elapsed duration, kept as an
// ordered slice (rather than a map) so processing_steps reflects the
// actual stage sequence instead of random map iteration order.
type stageTiming struct {
	name     string
	duration time.Duration
}

// Execute runs req through the full pipeline and returns the canonical
// response, or the gateway.Error that ended it. Every returned error is
// surfaced to the caller exactly as the component that raised it
// produced it — the orchestrator never substitutes or masks one.
func (o *Orchestrator) Execute(ctx context.Context, req *gateway.Request) (*gateway.Response, error) {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	var stages []stageTiming

	t0 := time.Now()
	if err := validate(ctx, req, o.logger); err != nil {
		return nil, err
	}
	stages = append(stages, stageTiming{"validate", time.Since(t0)})

	gen := o.store.Current()
	gen.Acquire()
	defer gen.Release()

	t1 := time.Now()
	decision, err := o.router.Route(gen, req)
	if err != nil {
		return nil, err
	}
	stages = append(stages, stageTiming{"route", time.Since(t1)})

	candidates := append([]*gateway.Worker{decision.Worker}, decision.FallbackWorkers...)

	var lastErr error
	for attempt, worker := range candidates {
		resp, callStages, err := o.callOne(ctx, req, worker, decision)
		stages = append(stages, callStages...)

		if err == nil {
			o.registry.MarkSuccess(ctx, worker)
			stages = append(stages, stageTiming{"postprocess", 0})
			return postProcess(resp, attempt, stages), nil
		}

		lastErr = err
		reason := failureReasonFor(err)
		if gateway.IsRetryable(err) || reason == registry.ReasonAuth || reason == registry.ReasonRateLimited {
			o.registry.MarkFailure(ctx, worker, reason, 0)
		}

		if !gateway.IsRetryable(err) {
			return nil, err
		}

		o.logger.Warn(ctx, "worker call failed, trying fallback worker within category",
			gateway.F("worker_id", worker.WorkerID),
			gateway.F("category", string(decision.Category)),
			gateway.F("attempt", attempt),
			gateway.F("error", err.Error()),
		)
	}

	return nil, lastErr
}

// callOne runs PREPROCESS, TRANSFORM_IN, CALL, TRANSFORM_OUT for a
// single candidate worker.
func (o *Orchestrator) callOne(ctx context.Context, req *gateway.Request, worker *gateway.Worker, decision *router.RoutingDecision) (*gateway.Response, []stageTiming, error) {
	var stages []stageTiming

	callReq := *req
	callReq.VirtualModel = router.ResolveTargetModel(worker, decision.TargetModel)

	t := time.Now()
	o.preprocess.Apply(worker.WireFamily, worker.ProviderID, &callReq)
	stages = append(stages, stageTiming{"preprocess", time.Since(t)})

	transformer, err := o.transforms.For(worker.WireFamily)
	if err != nil {
		return nil, stages, err
	}

	t = time.Now()
	wireReq, err := transformer.Forward(&callReq, worker.Capabilities)
	if err != nil {
		return nil, stages, err
	}
	stages = append(stages, stageTiming{"transform_in", time.Since(t)})

	adapter, err := o.adapters.Resolve(worker)
	if err != nil {
		return nil, stages, err
	}

	o.registry.MarkBusy(worker)
	t = time.Now()
	wireResp, err := adapter.Call(ctx, wireReq)
	stages = append(stages, stageTiming{"call", time.Since(t)})
	o.registry.MarkIdle(worker)
	if err != nil {
		return nil, stages, err
	}

	t = time.Now()
	resp, err := transformer.Reverse(wireResp, worker.WorkerID)
	if err != nil {
		return nil, stages, err
	}
	stages = append(stages, stageTiming{"transform_out", time.Since(t)})

	resp.Model = callReq.VirtualModel
	return resp, stages, nil
}

// failureReasonFor maps a gateway.Error's kind to the registry's
// cooldown classification (§4.2).
func failureReasonFor(err error) registry.FailureReason {
	gwErr, ok := err.(*gateway.Error)
	if !ok {
		return registry.ReasonOther
	}
	switch gwErr.Kind {
	case gateway.KindRateLimited:
		return registry.ReasonRateLimited
	case gateway.KindAuthError:
		return registry.ReasonAuth
	default:
		return registry.ReasonOther
	}
}
