package modelgen

import (
	"context"
	"fmt"
	"sync"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// DefaultResumeSchedule is how often stored jobs are checked for a missing poller.
const DefaultResumeSchedule = "@every 1m"

// Resumer re-attaches pollers to non-terminal jobs found in the store, so
// jobs outlive a process restart and a cancelled watcher can be picked up
// again on the next sweep.
type Resumer struct {
	orch     *Orchestrator
	store    JobStore
	schedule string
	cron     *cron.Cron
	logger   zerolog.Logger

	mu      sync.Mutex
	skipped map[string]bool
}

func NewResumer(orch *Orchestrator, store JobStore, schedule string) *Resumer {
	if schedule == "" {
		schedule = DefaultResumeSchedule
	}
	return &Resumer{
		orch:     orch,
		store:    store,
		schedule: schedule,
		cron:     cron.New(),
		logger:   orch.logger.With().Str("component", "resumer").Logger(),
		skipped:  make(map[string]bool),
	}
}

// Skip keeps the resumer away from an analysis' jobs, used once the
// analysis has been deleted or its polling explicitly stopped.
func (r *Resumer) Skip(analysisID string) {
	r.mu.Lock()
	r.skipped[analysisID] = true
	r.mu.Unlock()
}

// Unskip lets the resumer pick the analysis up again.
func (r *Resumer) Unskip(analysisID string) {
	r.mu.Lock()
	delete(r.skipped, analysisID)
	r.mu.Unlock()
}

// Sweep adopts every active stored job and starts a poller where none runs.
// It returns the number of pollers started.
func (r *Resumer) Sweep(ctx context.Context) (int, error) {
	jobs, err := r.store.ListActiveJobs(ctx)
	if err != nil {
		return 0, fmt.Errorf("listing active jobs: %w", err)
	}

	started := 0
	for _, job := range jobs {
		r.orch.Adopt(job)

		r.mu.Lock()
		skip := r.skipped[job.AnalysisID]
		r.mu.Unlock()
		if skip || r.orch.Watching(job.ID) {
			continue
		}
		if err := r.orch.Watch(ctx, job.ID); err != nil {
			r.logger.Warn().Err(err).Str("job_id", job.ID).Msg("could not resume job")
			continue
		}
		started++
	}
	if started > 0 {
		r.logger.Info().Int("resumed", started).Msg("resumed model generation polling")
	}
	return started, nil
}

// Start sweeps once, then on every schedule tick until ctx ends or Stop is called.
func (r *Resumer) Start(ctx context.Context) error {
	if _, err := r.Sweep(ctx); err != nil {
		return err
	}

	_, err := r.cron.AddFunc(r.schedule, func() {
		if _, err := r.Sweep(ctx); err != nil {
			r.logger.Warn().Err(err).Msg("resume sweep failed")
		}
	})
	if err != nil {
		return fmt.Errorf("invalid resume schedule %q: %w", r.schedule, err)
	}
	r.cron.Start()
	r.logger.Info().Str("schedule", r.schedule).Msg("model job resumer started")
	return nil
}

// Stop halts the cron runner and waits for a running sweep.
func (r *Resumer) Stop() {
	<-r.cron.Stop().Done()
}
