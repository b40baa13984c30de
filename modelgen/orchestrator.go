package modelgen

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"tirecheck/apperrors"
	"tirecheck/models"
)

const (
	DefaultPollInterval = 5 * time.Second
	// DefaultMaxRetries with the default interval gives a 10 minute ceiling.
	DefaultMaxRetries = 120
)

type Config struct {
	PollInterval time.Duration
	MaxRetries   int
}

type watcher struct {
	analysisID string
	cancel     context.CancelFunc
}

// Orchestrator drives jobs from pending to a terminal state. Per job all
// transitions are serialized by the registry entry lock, so a manual poll and
// a watcher tick never overlap.
type Orchestrator struct {
	provider Provider
	registry *Registry
	store    JobStore
	notifier Notifier
	cfg      Config
	logger   zerolog.Logger
	now      func() time.Time
	newID    func() string

	mu       sync.Mutex
	watchers map[string]*watcher
	wg       sync.WaitGroup
}

type Option func(*Orchestrator)

func WithStore(s JobStore) Option {
	return func(o *Orchestrator) { o.store = s }
}

func WithNotifier(n Notifier) Option {
	return func(o *Orchestrator) { o.notifier = n }
}

func WithLogger(l zerolog.Logger) Option {
	return func(o *Orchestrator) { o.logger = l }
}

func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) { o.now = now }
}

func WithIDGenerator(newID func() string) Option {
	return func(o *Orchestrator) { o.newID = newID }
}

func New(provider Provider, registry *Registry, cfg Config, opts ...Option) *Orchestrator {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if registry == nil {
		registry = NewRegistry()
	}
	o := &Orchestrator{
		provider: provider,
		registry: registry,
		cfg:      cfg,
		logger:   log.Logger,
		now:      time.Now,
		newID:    func() string { return uuid.New().String() },
		watchers: make(map[string]*watcher),
	}
	for _, opt := range opts {
		opt(o)
	}
	o.logger = o.logger.With().Str("component", "modelgen").Logger()
	return o
}

// Submit returns the active job for analysisID if there is one. Otherwise it
// creates a job and hands the image to the provider; a provider fault leaves
// the new job failed, never pending.
func (o *Orchestrator) Submit(ctx context.Context, analysisID, imagePath string) (models.ModelGenerationJob, error) {
	if analysisID == "" {
		return models.ModelGenerationJob{}, ErrEmptyAnalysisID
	}
	if imagePath == "" {
		return models.ModelGenerationJob{}, ErrEmptyImagePath
	}

	for {
		e, created := o.registry.claim(analysisID, func() models.ModelGenerationJob {
			now := o.now().UTC()
			return models.ModelGenerationJob{
				ID:         o.newID(),
				AnalysisID: analysisID,
				ImagePath:  imagePath,
				Status:     models.JobPending,
				CreatedAt:  now,
				UpdatedAt:  now,
			}
		})

		if !created {
			e.mu.Lock()
			job := e.job
			e.mu.Unlock()
			if job.Status.IsActive() {
				return job, nil
			}
			// finished between lookup and lock; its slot is already released
			continue
		}

		job := o.submitLocked(ctx, e)
		e.mu.Unlock()
		if job.Status.IsTerminal() {
			o.notify(ctx, job)
		}
		return job, nil
	}
}

func (o *Orchestrator) submitLocked(ctx context.Context, e *entry) models.ModelGenerationJob {
	o.commit(ctx, e)

	providerID, err := o.provider.Submit(ctx, e.job.ImagePath)
	now := o.now().UTC()
	e.job.UpdatedAt = now
	if err != nil {
		e.job.Status = models.JobFailed
		e.job.ErrorMessage = fmt.Sprintf("submit failed: %v", err)
		e.job.CompletedAt = &now
		o.registry.release(e.job.AnalysisID, e.job.ID)
		o.logger.Warn().Err(err).
			Str("job_id", e.job.ID).
			Str("analysis_id", e.job.AnalysisID).
			Msg("model generation submit failed")
	} else {
		e.job.ProviderJobID = providerID
		e.job.Status = models.JobProcessing
		o.logger.Info().
			Str("job_id", e.job.ID).
			Str("analysis_id", e.job.AnalysisID).
			Str("provider_job_id", providerID).
			Msg("model generation submitted")
	}
	o.commit(ctx, e)
	return e.job
}

// Poll advances the job by one provider query. Terminal jobs are returned
// unchanged. A poll on a job whose retry count already reached the maximum
// fails it with a timeout without asking the provider again.
func (o *Orchestrator) Poll(ctx context.Context, jobID string) (models.ModelGenerationJob, error) {
	e, err := o.entry(ctx, jobID)
	if err != nil {
		return models.ModelGenerationJob{}, err
	}

	e.mu.Lock()
	before := e.job.Status
	job, err := o.pollLocked(ctx, e)
	e.mu.Unlock()

	if job.Status.IsTerminal() && !before.IsTerminal() {
		o.notify(ctx, job)
	}
	return job, err
}

func (o *Orchestrator) pollLocked(ctx context.Context, e *entry) (models.ModelGenerationJob, error) {
	if e.job.Status.IsTerminal() {
		return e.job, nil
	}
	if e.job.Status == models.JobPending {
		// only reachable for a record persisted by a process that died mid-submit
		o.fail(ctx, e, "job was never accepted by the provider")
		return e.job, nil
	}
	if e.job.RetryCount >= o.cfg.MaxRetries {
		o.fail(ctx, e, fmt.Sprintf("timed out after %d polls without a result", e.job.RetryCount))
		return e.job, nil
	}

	res, err := o.provider.Poll(ctx, e.job.ProviderJobID)
	if err != nil && ctx.Err() != nil {
		return e.job, ctx.Err()
	}

	l := o.logger.With().
		Str("job_id", e.job.ID).
		Str("provider_job_id", e.job.ProviderJobID).
		Logger()

	switch {
	case err != nil:
		e.job.RetryCount++
		l.Warn().Err(err).Int("retry_count", e.job.RetryCount).Msg("provider poll failed, will retry")
	case res.Status == ProviderRunning:
		e.job.RetryCount++
		l.Debug().Int("retry_count", e.job.RetryCount).Msg("model still generating")
	case res.Status == ProviderCompleted && res.ModelURL != "":
		now := o.now().UTC()
		e.job.Status = models.JobCompleted
		e.job.ModelURL = res.ModelURL
		e.job.CompletedAt = &now
		e.job.UpdatedAt = now
		o.registry.release(e.job.AnalysisID, e.job.ID)
		l.Info().Str("model_url", res.ModelURL).Msg("model generation completed")
	case res.Status == ProviderFailed:
		reason := res.Reason
		if reason == "" {
			reason = "provider reported failure"
		}
		o.fail(ctx, e, reason)
		return e.job, nil
	default:
		e.job.RetryCount++
		l.Warn().
			Str("status", string(res.Status)).
			Int("retry_count", e.job.RetryCount).
			Msg("unexpected provider response, will retry")
	}

	if !e.job.Status.IsTerminal() {
		e.job.UpdatedAt = o.now().UTC()
	}
	o.commit(ctx, e)
	return e.job, nil
}

func (o *Orchestrator) fail(ctx context.Context, e *entry, reason string) {
	now := o.now().UTC()
	e.job.Status = models.JobFailed
	e.job.ErrorMessage = reason
	e.job.CompletedAt = &now
	e.job.UpdatedAt = now
	o.registry.release(e.job.AnalysisID, e.job.ID)
	o.logger.Warn().
		Str("job_id", e.job.ID).
		Str("analysis_id", e.job.AnalysisID).
		Int("retry_count", e.job.RetryCount).
		Str("reason", reason).
		Msg("model generation failed")
	o.commit(ctx, e)
}

// Job returns a snapshot of the job, loading it from the store when it is
// not held in memory.
func (o *Orchestrator) Job(ctx context.Context, jobID string) (models.ModelGenerationJob, error) {
	e, err := o.entry(ctx, jobID)
	if err != nil {
		return models.ModelGenerationJob{}, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.job, nil
}

// ActiveJob returns the pending or processing job for analysisID.
func (o *Orchestrator) ActiveJob(analysisID string) (models.ModelGenerationJob, bool) {
	return o.registry.ActiveJob(analysisID)
}

// Adopt registers a stored job so that later submits and polls see it.
func (o *Orchestrator) Adopt(job models.ModelGenerationJob) {
	o.registry.adopt(job)
}

func (o *Orchestrator) entry(ctx context.Context, jobID string) (*entry, error) {
	if e, ok := o.registry.get(jobID); ok {
		return e, nil
	}
	if o.store == nil {
		return nil, ErrJobNotFound
	}
	stored, err := o.store.GetJob(ctx, jobID)
	if err != nil {
		if apperrors.IsNotFound(err) {
			return nil, ErrJobNotFound
		}
		return nil, fmt.Errorf("load job %s: %w", jobID, err)
	}
	return o.registry.adopt(*stored), nil
}

// Watch starts the polling task for jobID unless one is already running.
// The task lives until the job is terminal, Cancel is called or ctx ends.
func (o *Orchestrator) Watch(ctx context.Context, jobID string) error {
	job, err := o.Job(ctx, jobID)
	if err != nil {
		return err
	}
	if job.Status.IsTerminal() {
		return nil
	}

	o.mu.Lock()
	if _, ok := o.watchers[jobID]; ok {
		o.mu.Unlock()
		return nil
	}
	wctx, cancel := context.WithCancel(ctx)
	w := &watcher{analysisID: job.AnalysisID, cancel: cancel}
	o.watchers[jobID] = w
	o.wg.Add(1)
	o.mu.Unlock()

	go o.run(wctx, jobID, w)
	return nil
}

func (o *Orchestrator) run(ctx context.Context, jobID string, w *watcher) {
	defer o.wg.Done()
	defer func() {
		w.cancel()
		o.mu.Lock()
		if o.watchers[jobID] == w {
			delete(o.watchers, jobID)
		}
		o.mu.Unlock()
	}()

	ticker := time.NewTicker(o.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			job, err := o.Poll(ctx, jobID)
			if err != nil {
				if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
					return
				}
				o.logger.Error().Err(err).Str("job_id", jobID).Msg("poll failed")
				continue
			}
			if job.Status.IsTerminal() {
				return
			}
		}
	}
}

// Watching reports whether a polling task is running for jobID.
func (o *Orchestrator) Watching(jobID string) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	_, ok := o.watchers[jobID]
	return ok
}

// Cancel stops polling every job of analysisID. Stored job status is left as
// is, so a later Watch resumes where polling stopped.
func (o *Orchestrator) Cancel(analysisID string) int {
	o.mu.Lock()
	defer o.mu.Unlock()

	n := 0
	for id, w := range o.watchers {
		if w.analysisID != analysisID {
			continue
		}
		w.cancel()
		delete(o.watchers, id)
		n++
	}
	if n > 0 {
		o.logger.Info().Str("analysis_id", analysisID).Int("stopped", n).Msg("model polling cancelled")
	}
	return n
}

// Shutdown stops all polling tasks and waits for them to return.
func (o *Orchestrator) Shutdown() {
	o.mu.Lock()
	for id, w := range o.watchers {
		w.cancel()
		delete(o.watchers, id)
	}
	o.mu.Unlock()
	o.wg.Wait()
}

// commit persists the entry's job. Once a terminal job is safely stored the
// entry is dropped from memory; later lookups read it back from the store.
// Without a store terminal jobs stay in memory, as it is their only copy.
func (o *Orchestrator) commit(ctx context.Context, e *entry) {
	if !o.persist(ctx, e.job) {
		return
	}
	if e.job.Status.IsTerminal() {
		o.registry.forget(e.job.ID)
	}
}

func (o *Orchestrator) persist(ctx context.Context, job models.ModelGenerationJob) bool {
	if o.store == nil {
		return false
	}
	// a cancelled caller must not lose a committed transition
	if err := o.store.SaveJob(context.WithoutCancel(ctx), &job); err != nil {
		o.logger.Error().Err(err).Str("job_id", job.ID).Msg("failed to persist model job")
		return false
	}
	return true
}

func (o *Orchestrator) notify(ctx context.Context, job models.ModelGenerationJob) {
	if o.notifier == nil {
		return
	}
	o.notifier.JobFinished(context.WithoutCancel(ctx), job)
}
