// Package registry implements the Key/Worker Registry (spec §4.2):
// per-worker health tracking, cooldowns, load accounting, and the
// selection policies the router asks it to apply.
package registry

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/relayhq/llmgateway/gateway"
)

// FailureReason classifies why a worker call failed, driving §4.2's
// cooldown rules.
type FailureReason string

const (
	ReasonRateLimited FailureReason = "rate-limited"
	ReasonAuth        FailureReason = "auth"
	ReasonOther       FailureReason = "other"
)

// Policy selects how SelectAvailable picks among eligible candidates.
type Policy string

const (
	PolicyRoundRobin  Policy = "round-robin"
	PolicyLeastLoaded Policy = "least-loaded"
	PolicyRandom      Policy = "random"
	PolicyPriority    Policy = "priority"
)

// Config tunes the registry's cooldown and backoff behavior.
type Config struct {
	RateLimitCooldown time.Duration // §4.2: cooldown on "rate-limited"
	AuthRetryCooldown time.Duration // §4.2: cooldown on "auth"

	// BackoffBase/BackoffMax drive exponential backoff for any other
	// failure reason: cooldown = min(BackoffMax, BackoffBase * 2^(n-1))
	// where n is the worker's consecutive_failures after this failure.
	BackoffBase time.Duration
	BackoffMax  time.Duration
}

func (c *Config) defaults() {
	if c.RateLimitCooldown == 0 {
		c.RateLimitCooldown = 60 * time.Second
	}
	if c.AuthRetryCooldown == 0 {
		c.AuthRetryCooldown = 5 * time.Minute
	}
	if c.BackoffBase == 0 {
		c.BackoffBase = 1 * time.Second
	}
	if c.BackoffMax == 0 {
		c.BackoffMax = 2 * time.Minute
	}
}

// Registry tracks health, load, and round-robin cursors for every
// worker in one generation. All mutations are serialized per worker
// (the worker's own mutex); SelectAvailable takes a short registry-wide
// read lock only to look up the group's round-robin cursor (§4.2
// Concurrency).
type Registry struct {
	cfg    Config
	logger gateway.Logger

	mu      sync.RWMutex
	workers map[string]*gateway.Worker
	cursors map[string]*int64 // groupKey -> round-robin cursor

	limiters *limiterSet
	cooldown CooldownStore
}

// New creates an empty registry. Workers are added with Register,
// typically once per worker right after Expand produces them.
func New(cfg Config, logger gateway.Logger, cooldown CooldownStore) *Registry {
	cfg.defaults()
	if logger == nil {
		logger = gateway.NoopLogger{}
	}
	if cooldown == nil {
		cooldown = noopCooldownStore{}
	}
	return &Registry{
		cfg:      cfg,
		logger:   logger,
		workers:  make(map[string]*gateway.Worker),
		cursors:  make(map[string]*int64),
		limiters: newLimiterSet(),
		cooldown: cooldown,
	}
}

// Register adds a worker to the registry. Idempotent within a
// generation is NOT assumed here — a duplicate id is an error, the way
// §4.2 specifies.
func (r *Registry) Register(w *gateway.Worker) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.workers[w.WorkerID]; exists {
		return gateway.NewInternal(fmt.Sprintf("duplicate worker id %q", w.WorkerID))
	}
	r.workers[w.WorkerID] = w
	return nil
}

// RegisterAll registers every worker, stopping at the first duplicate.
func (r *Registry) RegisterAll(workers []*gateway.Worker) error {
	for _, w := range workers {
		if err := r.Register(w); err != nil {
			return err
		}
	}
	return nil
}

// MarkBusy increments the worker's load. Must be paired with MarkIdle.
func (r *Registry) MarkBusy(w *gateway.Worker) { w.MarkBusy() }

// MarkIdle decrements the worker's load.
func (r *Registry) MarkIdle(w *gateway.Worker) { w.MarkIdle() }

// MarkSuccess resets the worker's failure streak and clears cooldown.
func (r *Registry) MarkSuccess(ctx context.Context, w *gateway.Worker) {
	w.MarkSuccess()
	r.cooldown.Clear(ctx, w.WorkerID)
}

// MarkFailure increments failure counters and sets cooldown per reason
// (§4.2): rate-limited uses the configured rate-limit window, auth uses
// the auth-retry window, anything else follows exponential backoff
// seeded from the worker's now-incremented consecutive-failure count.
func (r *Registry) MarkFailure(ctx context.Context, w *gateway.Worker, reason FailureReason, retryAfter time.Duration) {
	now := time.Now()

	var cooldown time.Duration
	switch reason {
	case ReasonRateLimited:
		cooldown = r.cfg.RateLimitCooldown
		if retryAfter > cooldown {
			cooldown = retryAfter
		}
	case ReasonAuth:
		cooldown = r.cfg.AuthRetryCooldown
	default:
		failures := w.Snapshot().ConsecutiveFailures + 1
		cooldown = exponentialBackoff(r.cfg.BackoffBase, r.cfg.BackoffMax, failures)
	}

	w.MarkFailure(now, cooldown)
	r.cooldown.Set(ctx, w.WorkerID, now.Add(cooldown))

	r.logger.Warn(ctx, "worker marked failed",
		gateway.F("worker_id", w.WorkerID),
		gateway.F("reason", string(reason)),
		gateway.F("cooldown", cooldown.String()),
	)
}

func exponentialBackoff(base, max time.Duration, failures int) time.Duration {
	d := base
	for i := 1; i < failures; i++ {
		d *= 2
		if d >= max {
			return max
		}
	}
	if d > max {
		return max
	}
	return d
}

// SelectAvailable returns one currently-eligible worker from candidates
// per policy, or NoHealthyWorker if none qualify (§4.2, §4.3 step 3).
// groupKey identifies the candidate set for round-robin cursor
// continuity (e.g. the category name) — callers must pass the same
// groupKey for the same logical candidate list across calls.
func (r *Registry) SelectAvailable(candidates []gateway.Candidate, groupKey string, policy Policy) (*gateway.Worker, error) {
	now := time.Now()

	eligible := make([]gateway.Candidate, 0, len(candidates))
	for _, c := range candidates {
		if c.Worker.Eligible(now) && r.limiters.allow(c.Worker) {
			eligible = append(eligible, c)
		}
	}

	if len(eligible) == 0 {
		return nil, gateway.NewNoHealthyWorker("")
	}

	switch policy {
	case PolicyLeastLoaded:
		return r.selectLeastLoaded(eligible, groupKey), nil
	case PolicyRandom:
		return selectRandom(eligible), nil
	case PolicyPriority:
		return r.selectPriority(eligible, groupKey), nil
	default:
		return r.selectRoundRobin(eligible, groupKey), nil
	}
}

// cursorFor returns (creating if needed) the shared cursor cell for a
// group key.
func (r *Registry) cursorFor(groupKey string) *int64 {
	r.mu.RLock()
	c, ok := r.cursors[groupKey]
	r.mu.RUnlock()
	if ok {
		return c
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if c, ok := r.cursors[groupKey]; ok {
		return c
	}
	c = new(int64)
	r.cursors[groupKey] = c
	return c
}

// SetRateLimit configures a per-worker concurrency ceiling and/or
// requests-per-minute cap; a saturated worker is treated as ineligible
// by SelectAvailable (§5 Backpressure).
func (r *Registry) SetRateLimit(workerID string, maxConcurrency int, requestsPerMinute int) {
	r.limiters.configure(workerID, maxConcurrency, requestsPerMinute)
}
