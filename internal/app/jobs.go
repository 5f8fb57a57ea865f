package service

import (
	"sync"
	"time"

	"github.com/okian/matchlog/internal/domain/model"
	"github.com/okian/matchlog/internal/domain/timeline"
)

// Summary describes a finished import.
type Summary struct {
	MatchID   uint             `json:"match_id"`
	Batch     string           `json:"batch"`
	Format    model.Format     `json:"format"`
	OurTeam   string           `json:"our_team"`
	Opponent  string           `json:"opponent,omitempty"`
	Events    int              `json:"events"`
	Players   int              `json:"players"`
	Discarded int              `json:"discarded"`
	Degraded  int              `json:"degraded"`
	Defects   []model.Defect   `json:"defects,omitempty"`
	Anchors   timeline.Anchors `json:"anchors"`
}

// JobView is the externally visible state of an import job.
type JobView struct {
	ID          string          `json:"id"`
	Status      model.JobStatus `json:"status"`
	Path        string          `json:"path"`
	Profile     string          `json:"profile"`
	Error       string          `json:"error,omitempty"`
	Summary     *Summary        `json:"summary,omitempty"`
	SubmittedAt time.Time       `json:"submitted_at"`
	StartedAt   *time.Time      `json:"started_at,omitempty"`
	FinishedAt  *time.Time      `json:"finished_at,omitempty"`
}

// jobRegistry keeps the most recent jobs. Once full, the oldest finished job
// is forgotten first.
type jobRegistry struct {
	mu    sync.RWMutex
	jobs  map[string]*JobView
	order []string
	limit int
}

func newJobRegistry(limit int) *jobRegistry {
	if limit < 1 {
		limit = 1
	}
	return &jobRegistry{jobs: make(map[string]*JobView), limit: limit}
}

func (r *jobRegistry) add(j model.ImportJob) JobView {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.order) >= r.limit {
		r.evict()
	}
	v := &JobView{ID: j.ID, Status: model.JobQueued, Path: j.Path, Profile: j.Profile, SubmittedAt: j.SubmittedAt}
	r.jobs[j.ID] = v
	r.order = append(r.order, j.ID)
	return *v
}

func (r *jobRegistry) evict() {
	for i, id := range r.order {
		if v := r.jobs[id]; v != nil && (v.Status == model.JobSucceeded || v.Status == model.JobFailed) {
			delete(r.jobs, id)
			r.order = append(r.order[:i], r.order[i+1:]...)
			return
		}
	}
}

func (r *jobRegistry) remove(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.jobs, id)
	for i, v := range r.order {
		if v == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			return
		}
	}
}

func (r *jobRegistry) update(id string, fn func(*JobView)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if v, ok := r.jobs[id]; ok {
		fn(v)
	}
}

func (r *jobRegistry) get(id string) (JobView, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	v, ok := r.jobs[id]
	if !ok {
		return JobView{}, false
	}
	return *v, true
}

func (r *jobRegistry) countByStatus() map[model.JobStatus]int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[model.JobStatus]int, 4)
	for _, v := range r.jobs {
		out[v.Status]++
	}
	return out
}
