package modelgen

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"tirecheck/apperrors"
	"tirecheck/models"
)

var testNow = time.Date(2026, time.October, 19, 12, 0, 0, 0, time.UTC)

type step struct {
	res PollResult
	err error
}

type fakeProvider struct {
	mu          sync.Mutex
	submitErr   error
	submitDelay time.Duration
	script      []step
	submits     int
	polls       int
	inflight    int
	maxInflight int
}

func (f *fakeProvider) Submit(_ context.Context, _ string) (string, error) {
	if f.submitDelay > 0 {
		time.Sleep(f.submitDelay)
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submits++
	if f.submitErr != nil {
		return "", f.submitErr
	}
	return fmt.Sprintf("task-%d", f.submits), nil
}

func (f *fakeProvider) Poll(_ context.Context, _ string) (PollResult, error) {
	f.mu.Lock()
	f.inflight++
	f.maxInflight = max(f.maxInflight, f.inflight)
	f.polls++
	var s step
	switch {
	case len(f.script) == 0:
		s = step{res: PollResult{Status: ProviderRunning}}
	case len(f.script) == 1:
		s = f.script[0]
	default:
		s, f.script = f.script[0], f.script[1:]
	}
	f.mu.Unlock()

	time.Sleep(time.Millisecond)

	f.mu.Lock()
	f.inflight--
	f.mu.Unlock()
	return s.res, s.err
}

func (f *fakeProvider) counts() (submits, polls int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.submits, f.polls
}

type memStore struct {
	mu   sync.Mutex
	jobs map[string]models.ModelGenerationJob
}

func newMemStore() *memStore {
	return &memStore{jobs: make(map[string]models.ModelGenerationJob)}
}

func (m *memStore) SaveJob(_ context.Context, job *models.ModelGenerationJob) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.jobs[job.ID] = *job
	return nil
}

func (m *memStore) GetJob(_ context.Context, id string) (*models.ModelGenerationJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	job, ok := m.jobs[id]
	if !ok {
		return nil, apperrors.NewNotFoundError("job not found")
	}
	return &job, nil
}

func (m *memStore) ListActiveJobs(_ context.Context) ([]models.ModelGenerationJob, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []models.ModelGenerationJob
	for _, job := range m.jobs {
		if job.Status.IsActive() {
			out = append(out, job)
		}
	}
	return out, nil
}

type recordingNotifier struct {
	mu   sync.Mutex
	jobs []models.ModelGenerationJob
}

func (r *recordingNotifier) JobFinished(_ context.Context, job models.ModelGenerationJob) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.jobs = append(r.jobs, job)
}

func (r *recordingNotifier) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.jobs)
}

func newTestOrchestrator(p Provider, cfg Config, opts ...Option) *Orchestrator {
	base := []Option{
		WithClock(func() time.Time { return testNow }),
		WithLogger(zerolog.Nop()),
	}
	return New(p, NewRegistry(), cfg, append(base, opts...)...)
}

func TestSubmitCreatesProcessingJob(t *testing.T) {
	p := &fakeProvider{}
	store := newMemStore()
	o := newTestOrchestrator(p, Config{}, WithStore(store))

	job, err := o.Submit(context.Background(), "analysis-1", "/uploads/a.jpg")
	require.NoError(t, err)
	require.Equal(t, models.JobProcessing, job.Status)
	require.Equal(t, "task-1", job.ProviderJobID)
	require.Equal(t, testNow, job.CreatedAt)
	require.Zero(t, job.RetryCount)

	stored, err := store.GetJob(context.Background(), job.ID)
	require.NoError(t, err)
	require.Equal(t, models.JobProcessing, stored.Status)
}

func TestSubmitValidatesInput(t *testing.T) {
	o := newTestOrchestrator(&fakeProvider{}, Config{})

	_, err := o.Submit(context.Background(), "", "/uploads/a.jpg")
	require.ErrorIs(t, err, ErrEmptyAnalysisID)
	_, err = o.Submit(context.Background(), "analysis-1", "")
	require.ErrorIs(t, err, ErrEmptyImagePath)
}

func TestSubmitTwiceReturnsSameJob(t *testing.T) {
	p := &fakeProvider{}
	o := newTestOrchestrator(p, Config{})

	first, err := o.Submit(context.Background(), "analysis-1", "/uploads/a.jpg")
	require.NoError(t, err)
	second, err := o.Submit(context.Background(), "analysis-1", "/uploads/other.jpg")
	require.NoError(t, err)

	require.Equal(t, first.ID, second.ID)
	require.Equal(t, "/uploads/a.jpg", second.ImagePath)
	submits, _ := p.counts()
	require.Equal(t, 1, submits)
	require.Equal(t, 1, o.registry.Len())
}

func TestConcurrentSubmitCreatesOneJob(t *testing.T) {
	p := &fakeProvider{submitDelay: 20 * time.Millisecond}
	o := newTestOrchestrator(p, Config{})

	const n = 16
	ids := make([]string, n)
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			job, err := o.Submit(context.Background(), "analysis-1", "/uploads/a.jpg")
			ids[i], errs[i] = job.ID, err
		}(i)
	}
	wg.Wait()

	for i := range ids {
		require.NoError(t, errs[i])
		require.Equal(t, ids[0], ids[i])
	}
	submits, _ := p.counts()
	require.Equal(t, 1, submits)
	require.Equal(t, 1, o.registry.Len())
}

func TestSubmitFailureLeavesJobFailed(t *testing.T) {
	p := &fakeProvider{submitErr: errors.New("connection refused")}
	n := &recordingNotifier{}
	o := newTestOrchestrator(p, Config{}, WithNotifier(n))

	job, err := o.Submit(context.Background(), "analysis-1", "/uploads/a.jpg")
	require.NoError(t, err)
	require.Equal(t, models.JobFailed, job.Status)
	require.Contains(t, job.ErrorMessage, "connection refused")
	require.NotNil(t, job.CompletedAt)
	require.Equal(t, 1, n.count())

	_, active := o.ActiveJob("analysis-1")
	require.False(t, active)

	p.mu.Lock()
	p.submitErr = nil
	p.mu.Unlock()
	retried, err := o.Submit(context.Background(), "analysis-1", "/uploads/a.jpg")
	require.NoError(t, err)
	require.NotEqual(t, job.ID, retried.ID)
	require.Equal(t, models.JobProcessing, retried.Status)
}

func TestPollCompletes(t *testing.T) {
	p := &fakeProvider{script: []step{
		{res: PollResult{Status: ProviderRunning}},
		{res: PollResult{Status: ProviderCompleted, ModelURL: "https://cdn.example/model.glb"}},
	}}
	n := &recordingNotifier{}
	o := newTestOrchestrator(p, Config{}, WithNotifier(n))
	job, err := o.Submit(context.Background(), "analysis-1", "/uploads/a.jpg")
	require.NoError(t, err)

	job, err = o.Poll(context.Background(), job.ID)
	require.NoError(t, err)
	require.Equal(t, models.JobProcessing, job.Status)
	require.Equal(t, 1, job.RetryCount)

	job, err = o.Poll(context.Background(), job.ID)
	require.NoError(t, err)
	require.Equal(t, models.JobCompleted, job.Status)
	require.Equal(t, "https://cdn.example/model.glb", job.ModelURL)
	require.NotNil(t, job.CompletedAt)
	require.Equal(t, 1, n.count())

	again, err := o.Poll(context.Background(), job.ID)
	require.NoError(t, err)
	require.Equal(t, job, again)
	_, polls := p.counts()
	require.Equal(t, 2, polls)
	require.Equal(t, 1, n.count())
}

func TestPollProviderFailureIsFinal(t *testing.T) {
	p := &fakeProvider{script: []step{
		{res: PollResult{Status: ProviderFailed, Reason: "image too dark"}},
	}}
	o := newTestOrchestrator(p, Config{})
	job, err := o.Submit(context.Background(), "analysis-1", "/uploads/a.jpg")
	require.NoError(t, err)

	job, err = o.Poll(context.Background(), job.ID)
	require.NoError(t, err)
	require.Equal(t, models.JobFailed, job.Status)
	require.Equal(t, "image too dark", job.ErrorMessage)

	p.mu.Lock()
	p.script = []step{{res: PollResult{Status: ProviderCompleted, ModelURL: "https://late.example/m.glb"}}}
	p.mu.Unlock()
	job, err = o.Poll(context.Background(), job.ID)
	require.NoError(t, err)
	require.Equal(t, models.JobFailed, job.Status)
	require.Empty(t, job.ModelURL)
}

func TestPollTimesOutAfterMaxRetries(t *testing.T) {
	p := &fakeProvider{}
	o := newTestOrchestrator(p, Config{MaxRetries: 120})
	job, err := o.Submit(context.Background(), "analysis-1", "/uploads/a.jpg")
	require.NoError(t, err)

	for i := 1; i <= 120; i++ {
		job, err = o.Poll(context.Background(), job.ID)
		require.NoError(t, err)
		require.Equal(t, models.JobProcessing, job.Status)
		require.Equal(t, i, job.RetryCount)
	}

	job, err = o.Poll(context.Background(), job.ID)
	require.NoError(t, err)
	require.Equal(t, models.JobFailed, job.Status)
	require.Contains(t, job.ErrorMessage, "timed out")
	_, polls := p.counts()
	require.Equal(t, 120, polls)

	after, err := o.Poll(context.Background(), job.ID)
	require.NoError(t, err)
	require.Equal(t, job, after)
}

func TestUnexpectedResponsesAreTransient(t *testing.T) {
	p := &fakeProvider{script: []step{
		{err: fmt.Errorf("%w: status %q", ErrTransient, "QUEUED_SOMEWHERE")},
		{res: PollResult{Status: "paused"}},
		{res: PollResult{Status: ProviderCompleted}},
		{err: errors.New("i/o timeout")},
		{res: PollResult{Status: ProviderCompleted, ModelURL: "https://cdn.example/m.glb"}},
	}}
	o := newTestOrchestrator(p, Config{})
	job, err := o.Submit(context.Background(), "analysis-1", "/uploads/a.jpg")
	require.NoError(t, err)

	for i := 1; i <= 4; i++ {
		job, err = o.Poll(context.Background(), job.ID)
		require.NoError(t, err)
		require.Equal(t, models.JobProcessing, job.Status)
		require.Equal(t, i, job.RetryCount)
	}
	job, err = o.Poll(context.Background(), job.ID)
	require.NoError(t, err)
	require.Equal(t, models.JobCompleted, job.Status)
}

func TestTerminalJobsLeaveMemoryOnceStored(t *testing.T) {
	p := &fakeProvider{script: []step{
		{res: PollResult{Status: ProviderCompleted, ModelURL: "https://cdn.example/m.glb"}},
	}}
	store := newMemStore()
	o := newTestOrchestrator(p, Config{}, WithStore(store))
	ctx := context.Background()

	const runs = 50
	for i := 0; i < runs; i++ {
		job, err := o.Submit(ctx, fmt.Sprintf("analysis-%d", i), "/uploads/a.jpg")
		require.NoError(t, err)
		require.Equal(t, 1, o.registry.Len())

		job, err = o.Poll(ctx, job.ID)
		require.NoError(t, err)
		require.Equal(t, models.JobCompleted, job.Status)
		require.Zero(t, o.registry.Len())

		// reads come back from the store without being cached again
		got, err := o.Job(ctx, job.ID)
		require.NoError(t, err)
		require.Equal(t, models.JobCompleted, got.Status)
		again, err := o.Poll(ctx, job.ID)
		require.NoError(t, err)
		require.Equal(t, job.ModelURL, again.ModelURL)
		require.Zero(t, o.registry.Len())
	}
	_, polls := p.counts()
	require.Equal(t, runs, polls)

	p.mu.Lock()
	p.submitErr = errors.New("provider down")
	p.mu.Unlock()
	failed, err := o.Submit(ctx, "analysis-x", "/uploads/a.jpg")
	require.NoError(t, err)
	require.Equal(t, models.JobFailed, failed.Status)
	require.Zero(t, o.registry.Len())
}

func TestTerminalJobsStayInMemoryWithoutStore(t *testing.T) {
	p := &fakeProvider{script: []step{{res: PollResult{Status: ProviderFailed, Reason: "bad image"}}}}
	o := newTestOrchestrator(p, Config{})

	job, err := o.Submit(context.Background(), "analysis-1", "/uploads/a.jpg")
	require.NoError(t, err)
	job, err = o.Poll(context.Background(), job.ID)
	require.NoError(t, err)
	require.Equal(t, models.JobFailed, job.Status)
	require.Equal(t, 1, o.registry.Len())

	got, err := o.Job(context.Background(), job.ID)
	require.NoError(t, err)
	require.Equal(t, "bad image", got.ErrorMessage)
}

func TestPollUnknownJob(t *testing.T) {
	o := newTestOrchestrator(&fakeProvider{}, Config{}, WithStore(newMemStore()))
	_, err := o.Poll(context.Background(), "missing")
	require.ErrorIs(t, err, ErrJobNotFound)

	bare := newTestOrchestrator(&fakeProvider{}, Config{})
	_, err = bare.Job(context.Background(), "missing")
	require.ErrorIs(t, err, ErrJobNotFound)
}

func TestPollLoadsStoredJob(t *testing.T) {
	store := newMemStore()
	require.NoError(t, store.SaveJob(context.Background(), &models.ModelGenerationJob{
		ID:            "job-1",
		AnalysisID:    "analysis-1",
		ImagePath:     "/uploads/a.jpg",
		ProviderJobID: "task-9",
		Status:        models.JobProcessing,
		RetryCount:    7,
		CreatedAt:     testNow.Add(-time.Minute),
	}))
	p := &fakeProvider{script: []step{{res: PollResult{Status: ProviderCompleted, ModelURL: "https://cdn.example/9.glb"}}}}
	o := newTestOrchestrator(p, Config{}, WithStore(store))

	job, err := o.Poll(context.Background(), "job-1")
	require.NoError(t, err)
	require.Equal(t, models.JobCompleted, job.Status)
	require.Equal(t, 7, job.RetryCount)

	stored, err := store.GetJob(context.Background(), "job-1")
	require.NoError(t, err)
	require.Equal(t, models.JobCompleted, stored.Status)
	require.Equal(t, "https://cdn.example/9.glb", stored.ModelURL)
}

func TestPendingStoredJobFails(t *testing.T) {
	store := newMemStore()
	require.NoError(t, store.SaveJob(context.Background(), &models.ModelGenerationJob{
		ID:         "job-1",
		AnalysisID: "analysis-1",
		Status:     models.JobPending,
	}))
	p := &fakeProvider{}
	o := newTestOrchestrator(p, Config{}, WithStore(store))

	job, err := o.Poll(context.Background(), "job-1")
	require.NoError(t, err)
	require.Equal(t, models.JobFailed, job.Status)
	_, polls := p.counts()
	require.Zero(t, polls)
}

func TestAdoptedActiveJobBlocksDuplicateSubmit(t *testing.T) {
	p := &fakeProvider{}
	o := newTestOrchestrator(p, Config{})
	o.Adopt(models.ModelGenerationJob{
		ID:            "job-1",
		AnalysisID:    "analysis-1",
		ProviderJobID: "task-1",
		Status:        models.JobProcessing,
	})

	job, err := o.Submit(context.Background(), "analysis-1", "/uploads/a.jpg")
	require.NoError(t, err)
	require.Equal(t, "job-1", job.ID)
	submits, _ := p.counts()
	require.Zero(t, submits)
}

func TestWatchDrivesJobToCompletion(t *testing.T) {
	n := &recordingNotifier{}
	o := newTestOrchestrator(NewStubProvider(3), Config{PollInterval: 5 * time.Millisecond}, WithNotifier(n))
	defer o.Shutdown()

	job, err := o.Submit(context.Background(), "analysis-1", "/uploads/a.jpg")
	require.NoError(t, err)
	require.NoError(t, o.Watch(context.Background(), job.ID))

	require.Eventually(t, func() bool {
		j, err := o.Job(context.Background(), job.ID)
		return err == nil && j.Status == models.JobCompleted
	}, 2*time.Second, 5*time.Millisecond)
	require.Eventually(t, func() bool { return !o.Watching(job.ID) }, time.Second, 5*time.Millisecond)
	require.Equal(t, 1, n.count())

	// terminal jobs get no new watcher
	require.NoError(t, o.Watch(context.Background(), job.ID))
	require.False(t, o.Watching(job.ID))
}

func TestWatchNeverOverlapsPolls(t *testing.T) {
	p := &fakeProvider{}
	o := newTestOrchestrator(p, Config{PollInterval: time.Millisecond, MaxRetries: 1000})
	defer o.Shutdown()

	job, err := o.Submit(context.Background(), "analysis-1", "/uploads/a.jpg")
	require.NoError(t, err)
	require.NoError(t, o.Watch(context.Background(), job.ID))
	require.NoError(t, o.Watch(context.Background(), job.ID))

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _ = o.Poll(context.Background(), job.ID)
		}()
	}
	wg.Wait()

	require.Eventually(t, func() bool {
		_, polls := p.counts()
		return polls >= 10
	}, 2*time.Second, time.Millisecond)

	p.mu.Lock()
	defer p.mu.Unlock()
	require.Equal(t, 1, p.maxInflight)
}

func TestCancelStopsPollingWithoutChangingStatus(t *testing.T) {
	p := &fakeProvider{}
	store := newMemStore()
	o := newTestOrchestrator(p, Config{PollInterval: 2 * time.Millisecond, MaxRetries: 1000}, WithStore(store))

	job, err := o.Submit(context.Background(), "analysis-1", "/uploads/a.jpg")
	require.NoError(t, err)
	require.NoError(t, o.Watch(context.Background(), job.ID))
	require.Eventually(t, func() bool {
		_, polls := p.counts()
		return polls >= 2
	}, 2*time.Second, time.Millisecond)

	require.Equal(t, 1, o.Cancel("analysis-1"))
	require.False(t, o.Watching(job.ID))
	o.Shutdown()

	_, polls := p.counts()
	time.Sleep(20 * time.Millisecond)
	_, later := p.counts()
	require.Equal(t, polls, later)

	current, err := o.Job(context.Background(), job.ID)
	require.NoError(t, err)
	require.Equal(t, models.JobProcessing, current.Status)
	stored, err := store.GetJob(context.Background(), job.ID)
	require.NoError(t, err)
	require.Equal(t, models.JobProcessing, stored.Status)

	_, active := o.ActiveJob("analysis-1")
	require.True(t, active)
	require.Zero(t, o.Cancel("analysis-1"))
}
