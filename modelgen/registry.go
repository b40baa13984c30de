package modelgen

import (
	"sync"

	"tirecheck/models"
)

type entry struct {
	mu  sync.Mutex
	job models.ModelGenerationJob
}

// Registry holds the jobs known to one orchestrator and the
// analysis id -> active job mapping. The registry lock guards only the maps;
// each job is guarded by its own entry lock, always taken after the registry
// lock has been released (or, for a fresh entry, before it is published).
type Registry struct {
	mu     sync.Mutex
	active map[string]string
	jobs   map[string]*entry
}

func NewRegistry() *Registry {
	return &Registry{
		active: make(map[string]string),
		jobs:   make(map[string]*entry),
	}
}

// claim returns the active entry for analysisID, or publishes a new entry
// built by newJob. A new entry is returned locked.
func (r *Registry) claim(analysisID string, newJob func() models.ModelGenerationJob) (*entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if id, ok := r.active[analysisID]; ok {
		if e, ok := r.jobs[id]; ok {
			return e, false
		}
		delete(r.active, analysisID)
	}

	e := &entry{job: newJob()}
	e.mu.Lock()
	r.jobs[e.job.ID] = e
	r.active[analysisID] = e.job.ID
	return e, true
}

func (r *Registry) get(jobID string) (*entry, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.jobs[jobID]
	return e, ok
}

// adopt registers a job loaded from storage. A job already in memory wins.
// Terminal jobs never change again, so they get a detached entry that is not
// held by the registry.
func (r *Registry) adopt(job models.ModelGenerationJob) *entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.jobs[job.ID]; ok {
		return e
	}
	e := &entry{job: job}
	if job.Status.IsTerminal() {
		return e
	}
	r.jobs[job.ID] = e
	if job.Status.IsActive() {
		if _, taken := r.active[job.AnalysisID]; !taken {
			r.active[job.AnalysisID] = job.ID
		}
	}
	return e
}

// release frees the analysis slot if jobID still holds it.
func (r *Registry) release(analysisID, jobID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.active[analysisID] == jobID {
		delete(r.active, analysisID)
	}
}

// forget drops a job from memory along with any analysis slot it holds.
func (r *Registry) forget(jobID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.jobs[jobID]
	if !ok {
		return
	}
	delete(r.jobs, jobID)
	if r.active[e.job.AnalysisID] == jobID {
		delete(r.active, e.job.AnalysisID)
	}
}

// ActiveJob returns a snapshot of the active job for analysisID.
func (r *Registry) ActiveJob(analysisID string) (models.ModelGenerationJob, bool) {
	r.mu.Lock()
	id, ok := r.active[analysisID]
	e := r.jobs[id]
	r.mu.Unlock()
	if !ok || e == nil {
		return models.ModelGenerationJob{}, false
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	return e.job, true
}

// Len returns the number of jobs held.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.jobs)
}
