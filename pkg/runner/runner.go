// Package runner provides the cooperative tick scheduler that drives a
// stage's worker pool (spec.md §4.6): each worker runs its own tick loop
// (run once; no sleep after a claim, a jittered PollInterval sleep when the
// queue is empty, ErrorBackoff after an error) and records liveness, while a
// separate loop reclaims expired leases every ReclaimInterval.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/artzaitsev/submission-scheduler/pkg/lifecycle"
	"github.com/artzaitsev/submission-scheduler/pkg/queue"
	"github.com/artzaitsev/submission-scheduler/pkg/work"
)

// Config parameterizes one Runner: worker count, poll cadence, lease and
// heartbeat durations, and how often expired leases are reclaimed.
type Config struct {
	WorkerCount       int
	PollInterval      time.Duration
	PollIntervalJitter time.Duration
	ErrorBackoff      time.Duration
	LeaseSeconds      int
	HeartbeatInterval time.Duration
	ReclaimInterval   time.Duration
}

// Health reports the current state of a Runner and its workers.
type Health struct {
	Stage          lifecycle.Stage    `json:"stage"`
	TotalWorkers   int                `json:"total_workers"`
	ActiveWorkers  int                `json:"active_workers"`
	Workers        []queue.WorkerHealth `json:"workers"`
	Ticks          int64              `json:"ticks_total"`
	Claims         int64              `json:"claims_total"`
	IdleTicks      int64              `json:"idle_ticks_total"`
	Errors         int64              `json:"errors_total"`
	LastReclaimAt  time.Time          `json:"last_reclaim_at"`
	ReclaimedTotal int64              `json:"reclaimed_total"`
}

// Runner owns one stage's pool of queue.Worker instances and the
// reclaim-expired-leases background loop.
type Runner struct {
	stage   lifecycle.Stage
	repo    work.Repository
	cfg     Config
	workers []*queue.Worker
	metrics *metrics

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup

	mu             sync.Mutex
	ticks          int64
	claims         int64
	idleTicks      int64
	errorsCount    int64
	lastReclaimAt  time.Time
	reclaimedTotal int64
}

// New constructs a Runner for stage with cfg.WorkerCount workers, each
// identified as "<podID>-<stage>-worker-<n>" and running process.
func New(podID string, stage lifecycle.Stage, repo work.Repository, process queue.StageProcessor, cfg Config) *Runner {
	r := &Runner{
		stage:   stage,
		repo:    repo,
		cfg:     cfg,
		stopCh:  make(chan struct{}),
		metrics: newMetrics(stage),
	}
	for i := 0; i < cfg.WorkerCount; i++ {
		workerID := fmt.Sprintf("%s-%s-worker-%d", podID, stage, i)
		r.workers = append(r.workers, queue.NewWorker(workerID, stage, repo, process, cfg.LeaseSeconds, cfg.HeartbeatInterval))
	}
	return r
}

// Start spawns one goroutine per worker plus the reclaim loop.
func (r *Runner) Start(ctx context.Context) {
	for _, w := range r.workers {
		r.wg.Add(1)
		go func(w *queue.Worker) {
			defer r.wg.Done()
			r.tickLoop(ctx, w)
		}(w)
	}

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		r.reclaimLoop(ctx)
	}()
}

// Stop signals every worker and the reclaim loop to stop, then waits.
func (r *Runner) Stop() {
	r.stopOnce.Do(func() { close(r.stopCh) })
	r.wg.Wait()
}

func (r *Runner) tickLoop(ctx context.Context, w *queue.Worker) {
	log := slog.With("stage", r.stage)
	for {
		select {
		case <-r.stopCh:
			return
		case <-ctx.Done():
			return
		default:
		}

		r.mu.Lock()
		r.ticks++
		r.mu.Unlock()
		r.metrics.ticks.Inc()

		err := w.RunOnce(ctx)
		switch {
		case err == nil:
			r.mu.Lock()
			r.claims++
			r.mu.Unlock()
			r.metrics.claims.Inc()
			continue
		case errors.Is(err, queue.ErrNoWorkAvailable):
			r.mu.Lock()
			r.idleTicks++
			r.mu.Unlock()
			r.metrics.idleTicks.Inc()
			r.sleep(r.pollInterval())
		default:
			log.Error("worker tick failed", "error", err)
			r.mu.Lock()
			r.errorsCount++
			r.mu.Unlock()
			r.metrics.errors.Inc()
			r.sleep(r.cfg.ErrorBackoff)
		}
	}
}

func (r *Runner) reclaimLoop(ctx context.Context) {
	ticker := time.NewTicker(r.cfg.ReclaimInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			count, err := r.repo.ReclaimExpiredClaims(ctx, r.stage)
			if err != nil {
				slog.Error("reclaim expired claims failed", "stage", r.stage, "error", err)
				continue
			}
			r.mu.Lock()
			r.lastReclaimAt = time.Now()
			r.reclaimedTotal += int64(count)
			r.mu.Unlock()
			if count > 0 {
				slog.Warn("reclaimed expired leases", "stage", r.stage, "count", count)
			}
		}
	}
}

func (r *Runner) sleep(d time.Duration) {
	select {
	case <-r.stopCh:
	case <-time.After(d):
	}
}

func (r *Runner) pollInterval() time.Duration {
	base := r.cfg.PollInterval
	jitter := r.cfg.PollIntervalJitter
	if jitter <= 0 {
		return base
	}
	offset := time.Duration(rand.Int64N(int64(2 * jitter)))
	return base - jitter + offset
}

// Health reports the runner's liveness counters and per-worker status.
func (r *Runner) Health() Health {
	r.mu.Lock()
	defer r.mu.Unlock()

	workerStats := make([]queue.WorkerHealth, len(r.workers))
	active := 0
	for i, w := range r.workers {
		stats := w.Health()
		workerStats[i] = stats
		if stats.Status == string(queue.WorkerStatusWorking) {
			active++
		}
	}

	return Health{
		Stage:          r.stage,
		TotalWorkers:   len(r.workers),
		ActiveWorkers:  active,
		Workers:        workerStats,
		Ticks:          r.ticks,
		Claims:         r.claims,
		IdleTicks:      r.idleTicks,
		Errors:         r.errorsCount,
		LastReclaimAt:  r.lastReclaimAt,
		ReclaimedTotal: r.reclaimedTotal,
	}
}
