package registry

import (
	"sync"

	"golang.org/x/time/rate"

	"github.com/relayhq/llmgateway/gateway"
)

// limiterSet holds an optional per-worker concurrency ceiling and an
// optional token-bucket limiter for requests-per-minute, the way the
// teacher's tokenBucketLimiter wraps golang.org/x/time/rate per key
// (agent/rate_limiter_token_bucket.go is the direct model; here the
// "key" is always a worker id rather than a caller-chosen string).
type limiterSet struct {
	mu       sync.Mutex
	ceilings map[string]int           // workerID -> max concurrency, 0 = unlimited
	buckets  map[string]*rate.Limiter // workerID -> requests/sec limiter
}

func newLimiterSet() *limiterSet {
	return &limiterSet{
		ceilings: make(map[string]int),
		buckets:  make(map[string]*rate.Limiter),
	}
}

func (s *limiterSet) configure(workerID string, maxConcurrency, requestsPerMinute int) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if maxConcurrency > 0 {
		s.ceilings[workerID] = maxConcurrency
	}
	if requestsPerMinute > 0 {
		rps := float64(requestsPerMinute) / 60.0
		burst := requestsPerMinute
		if burst < 1 {
			burst = 1
		}
		s.buckets[workerID] = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// allow reports whether w is currently under its configured
// concurrency ceiling and token-bucket allowance. A worker with no
// configuration is always allowed (§5 Backpressure: "A configured
// per-worker concurrency ceiling, when set, causes SelectAvailable to
// treat saturated workers as ineligible").
func (s *limiterSet) allow(w *gateway.Worker) bool {
	s.mu.Lock()
	ceiling, hasCeiling := s.ceilings[w.WorkerID]
	bucket, hasBucket := s.buckets[w.WorkerID]
	s.mu.Unlock()

	if hasCeiling && w.Load() >= ceiling {
		return false
	}
	if hasBucket && !bucket.Allow() {
		return false
	}
	return true
}
