package gateway

import (
	"sync"
	"time"
)

// Health is the per-worker health state the registry maintains (§4.2).
type Health struct {
	Healthy             bool
	CurrentLoad         int
	ConsecutiveFailures int
	LastFailureAt       time.Time
	CooldownUntil       time.Time
}

// Worker is the smallest unit the router can select: a (logical
// provider, credential index) pair produced by the expander (§3
// "Derived worker").
type Worker struct {
	WorkerID         string
	ProviderID       string
	CredentialIndex  int
	TotalCredentials int

	WireFamily WireFamily
	Endpoint   string
	Models     []string
	ConcreteModels map[string]string

	Timeout    time.Duration
	MaxRetries int

	Credential Credential
	Capabilities Capabilities

	mu     sync.Mutex
	health Health
}

// Credential is the resolved, per-worker access material: a single key
// plus how to attach it.
type Credential struct {
	Key        string
	HeaderName string // "bearer" | "x-api-key" | arbitrary header; not read by the built-in adapters
	Headers    map[string]string
}

// NewWorker constructs a worker with fresh, healthy state (§4.2:
// "healthy ∈ {true, false}; starts true on registration").
func NewWorker(id, providerID string, credIdx, totalCreds int) *Worker {
	return &Worker{
		WorkerID:         id,
		ProviderID:       providerID,
		CredentialIndex:  credIdx,
		TotalCredentials: totalCreds,
		health:           Health{Healthy: true},
	}
}

// Snapshot returns a copy of the worker's current health, safe to read
// without holding the worker's lock afterward.
func (w *Worker) Snapshot() Health {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.health
}

// Eligible reports whether the worker can currently be selected: marked
// healthy and past its cooldown (§4.2).
func (w *Worker) Eligible(now time.Time) bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.health.Healthy && now.After(w.health.CooldownUntil)
}

// Load returns the worker's current in-flight request count.
func (w *Worker) Load() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.health.CurrentLoad
}

// MarkBusy increments current_load. Must be paired with MarkIdle.
func (w *Worker) MarkBusy() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.health.CurrentLoad++
}

// MarkIdle decrements current_load, floored at zero.
func (w *Worker) MarkIdle() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.health.CurrentLoad > 0 {
		w.health.CurrentLoad--
	}
}

// MarkSuccess resets consecutive_failures and clears any cooldown.
func (w *Worker) MarkSuccess() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.health.ConsecutiveFailures = 0
	w.health.CooldownUntil = time.Time{}
	w.health.Healthy = true
}

// MarkFailure increments the failure counters and sets cooldownUntil to
// now+cooldown. The caller (registry) computes cooldown from the
// failure reason per §4.2's rate-limited/auth/backoff rules.
func (w *Worker) MarkFailure(now time.Time, cooldown time.Duration) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.health.ConsecutiveFailures++
	w.health.LastFailureAt = now
	w.health.CooldownUntil = now.Add(cooldown)
}

// SetHealthy overrides the healthy flag directly; used by the
// health-check scheduler to downgrade or restore a worker outside the
// request path.
func (w *Worker) SetHealthy(healthy bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.health.Healthy = healthy
}
