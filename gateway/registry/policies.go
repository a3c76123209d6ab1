package registry

import (
	"math/rand"
	"sync/atomic"

	"github.com/relayhq/llmgateway/gateway"
)

// selectRoundRobin steps the group's shared cursor over the eligible
// subset. Advancing the cursor unconditionally (even past ineligible
// candidates that were filtered out before this call) keeps the
// sequence moving under contention rather than starving on a
// temporarily-busy front-runner (§5 "round-robin advances under
// contention").
func (r *Registry) selectRoundRobin(eligible []gateway.Candidate, groupKey string) *gateway.Worker {
	cursor := r.cursorFor(groupKey)
	idx := atomic.AddInt64(cursor, 1) - 1
	pick := int(idx % int64(len(eligible)))
	if pick < 0 {
		pick += len(eligible)
	}
	return eligible[pick].Worker
}

// selectLeastLoaded picks the minimum current_load; ties are broken by
// round-robin over the tied subset (§4.2).
func (r *Registry) selectLeastLoaded(eligible []gateway.Candidate, groupKey string) *gateway.Worker {
	minLoad := eligible[0].Worker.Load()
	for _, c := range eligible[1:] {
		if l := c.Worker.Load(); l < minLoad {
			minLoad = l
		}
	}

	var tied []gateway.Candidate
	for _, c := range eligible {
		if c.Worker.Load() == minLoad {
			tied = append(tied, c)
		}
	}
	if len(tied) == 1 {
		return tied[0].Worker
	}
	return r.selectRoundRobin(tied, groupKey+":least-loaded")
}

// selectRandom picks uniformly over the eligible set.
func selectRandom(eligible []gateway.Candidate) *gateway.Worker {
	return eligible[rand.Intn(len(eligible))].Worker
}

// selectPriority picks the highest-priority eligible candidate; ties
// are broken by round-robin (§4.2).
func (r *Registry) selectPriority(eligible []gateway.Candidate, groupKey string) *gateway.Worker {
	maxPriority := eligible[0].Priority
	for _, c := range eligible[1:] {
		if c.Priority > maxPriority {
			maxPriority = c.Priority
		}
	}

	var tied []gateway.Candidate
	for _, c := range eligible {
		if c.Priority == maxPriority {
			tied = append(tied, c)
		}
	}
	if len(tied) == 1 {
		return tied[0].Worker
	}
	return r.selectRoundRobin(tied, groupKey+":priority")
}
