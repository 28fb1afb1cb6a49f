package server

import (
	"sync"
	"time"

	"github.com/deepaksuthar40128/RemoteDx/pkg/report"
)

// Run is a finished diagnostics run kept for later retrieval.
type Run struct {
	ID        string         `json:"run_id"`
	CreatedAt time.Time      `json:"created_at"`
	Summary   report.Summary `json:"summary"`
	Rows      []report.Row   `json:"rows"`
	Skipped   []string       `json:"skipped"`
	Cancelled bool           `json:"cancelled,omitempty"`
}

// runStore keeps the most recent runs in memory, evicting the oldest.
type runStore struct {
	mu    sync.RWMutex
	runs  map[string]*Run
	order []string
	limit int
}

func newRunStore(limit int) *runStore {
	if limit <= 0 {
		limit = 1
	}
	return &runStore{runs: make(map[string]*Run), limit: limit}
}

func (s *runStore) put(r *Run) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.runs[r.ID]; !ok {
		s.order = append(s.order, r.ID)
	}
	s.runs[r.ID] = r
	for len(s.order) > s.limit {
		delete(s.runs, s.order[0])
		s.order = s.order[1:]
	}
}

func (s *runStore) get(id string) (*Run, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.runs[id]
	return r, ok
}

// list returns the stored runs, newest first.
func (s *runStore) list() []*Run {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*Run, 0, len(s.order))
	for i := len(s.order) - 1; i >= 0; i-- {
		out = append(out, s.runs[s.order[i]])
	}
	return out
}
