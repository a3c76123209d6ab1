package gateway

import (
	"sync/atomic"
	"time"
)

// Generation is one immutable, fully-expanded configuration snapshot:
// the workers the expander produced and the routing table rewritten to
// reference them. Reload installs a new Generation atomically;
// in-flight requests bind to the Generation pointer they observed at
// ROUTE time and hold it until DONE, so a reload never invalidates a
// request mid-flight (§3 Lifecycles, §9 "Hot-swap of configurations").
type Generation struct {
	ID        int64
	CreatedAt time.Time

	Workers      []*Worker
	WorkersByID  map[string]*Worker
	RoutingTable map[Category][]Candidate

	refs int64
}

// Candidate is one routable entry in a category's candidate list: a
// worker plus the priority/weight/security-enhanced attributes the
// routing table assigned to its logical provider for that category
// (§3 "Routing table").
type Candidate struct {
	Worker           *Worker
	Priority         int
	Weight           float64
	SecurityEnhanced bool
}

// Acquire increments the generation's reference count. Call exactly
// once per request that binds to this generation at ROUTE time.
func (g *Generation) Acquire() { atomic.AddInt64(&g.refs, 1) }

// Release decrements the reference count. Call exactly once when a
// request bound to this generation reaches DONE (success or terminal
// failure).
func (g *Generation) Release() { atomic.AddInt64(&g.refs, -1) }

// RefCount returns the current number of in-flight requests still
// bound to this generation.
func (g *Generation) RefCount() int64 { return atomic.LoadInt64(&g.refs) }

// GenerationStore holds the single active Generation and swaps it
// atomically on reload. It is the explicit, threaded-through
// replacement for a source-side global registry singleton (§9 DESIGN
// NOTES).
type GenerationStore struct {
	current atomic.Pointer[Generation]
}

func NewGenerationStore(initial *Generation) *GenerationStore {
	s := &GenerationStore{}
	s.current.Store(initial)
	return s
}

// Current returns the active generation. Callers that will hold onto
// it across an await point should call Acquire immediately.
func (s *GenerationStore) Current() *Generation {
	return s.current.Load()
}

// Swap installs a new generation as current and returns the one it
// replaced, so the caller can decide how to wait for its refs to drain
// before discarding any resources it alone owned.
func (s *GenerationStore) Swap(next *Generation) *Generation {
	return s.current.Swap(next)
}
