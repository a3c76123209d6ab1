package registry

import (
	"context"
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
	"golang.org/x/sync/errgroup"

	"github.com/relayhq/llmgateway/gateway"
)

// Prober performs one health probe against a worker's upstream and
// reports whether it should currently be considered healthy. Adapters
// supply the concrete implementation (§4.6); the registry only needs
// the yes/no outcome.
type Prober func(ctx context.Context, w *gateway.Worker) error

// HealthChecker runs Prober against every worker on a cron-driven
// interval and downgrades/restores workers via SetHealthy. It never
// blocks the request path (§4.2: "A health-check scheduler wakes up on
// a fixed interval... and may downgrade or restore workers; health
// checks never block the request path") — replacing the teacher's
// ad-hoc time.Sleep loop (agent/multiprovider_health.go's Start) with
// a cron.Cron schedule, grounded on the pack's use of
// github.com/robfig/cron/v3 (mercator-hq-jupiter, roelfdiedericks-goclaw).
type HealthChecker struct {
	cronSched *cron.Cron
	entryID   cron.EntryID
	probe     Prober
	timeout   time.Duration
	logger    gateway.Logger
}

func NewHealthChecker(probe Prober, checkTimeout time.Duration, logger gateway.Logger) *HealthChecker {
	if logger == nil {
		logger = gateway.NoopLogger{}
	}
	if checkTimeout == 0 {
		checkTimeout = 5 * time.Second
	}
	return &HealthChecker{
		cronSched: cron.New(),
		probe:     probe,
		timeout:   checkTimeout,
		logger:    logger,
	}
}

// Start schedules periodic checks of workers on the given interval and
// begins the cron scheduler's own goroutine. Call Stop to shut it down.
func (h *HealthChecker) Start(interval time.Duration, workers []*gateway.Worker) error {
	spec := fmt.Sprintf("@every %s", interval.String())
	id, err := h.cronSched.AddFunc(spec, func() {
		h.runOnce(workers)
	})
	if err != nil {
		return fmt.Errorf("schedule health checks: %w", err)
	}
	h.entryID = id
	h.cronSched.Start()
	return nil
}

// Stop halts the scheduler and waits for any in-flight check round to
// finish.
func (h *HealthChecker) Stop() {
	ctx := h.cronSched.Stop()
	<-ctx.Done()
}

// runOnce probes every worker concurrently, bounded by an errgroup so
// one slow upstream doesn't stall the round for the others.
func (h *HealthChecker) runOnce(workers []*gateway.Worker) {
	ctx := context.Background()
	g, gctx := errgroup.WithContext(ctx)

	for _, w := range workers {
		w := w
		g.Go(func() error {
			checkCtx, cancel := context.WithTimeout(gctx, h.timeout)
			defer cancel()

			err := h.probe(checkCtx, w)
			healthy := err == nil
			w.SetHealthy(healthy)

			if !healthy {
				h.logger.Warn(ctx, "health check failed",
					gateway.F("worker_id", w.WorkerID), gateway.F("error", err.Error()))
			}
			return nil // a failed probe is a status change, not a scheduler error
		})
	}

	_ = g.Wait()
}
