package service

import (
	"sync"
	"time"

	"github.com/acadgrid/timetable-api/internal/models"
)

// runStore keeps generation runs in memory with a TTL. It is the hot path
// for run lookups; the Redis mirror only serves restarts and other instances.
type runStore struct {
	mu   sync.RWMutex
	ttl  time.Duration
	runs map[string]*storedRun
}

type storedRun struct {
	run     *models.GenerationRun
	expires time.Time
}

func newRunStore(ttl time.Duration) *runStore {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &runStore{ttl: ttl, runs: make(map[string]*storedRun)}
}

func (s *runStore) put(run *models.GenerationRun) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.purgeLocked()
	s.runs[run.ID] = &storedRun{run: run, expires: time.Now().Add(s.ttl)}
}

// get returns a copy so callers never race with worker updates.
func (s *runStore) get(id string) (*models.GenerationRun, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.runs[id]
	if !ok || time.Now().After(entry.expires) {
		return nil, false
	}
	snapshot := *entry.run
	return &snapshot, true
}

// update mutates a run under the store lock. The callback must not block.
func (s *runStore) update(id string, fn func(*models.GenerationRun)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.runs[id]
	if !ok || time.Now().After(entry.expires) {
		return false
	}
	fn(entry.run)
	return true
}

func (s *runStore) pendingCount() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	n := 0
	for _, entry := range s.runs {
		if entry.run.Status == models.RunPending || entry.run.Status == models.RunRunning {
			n++
		}
	}
	return n
}

func (s *runStore) purgeLocked() {
	now := time.Now()
	for id, entry := range s.runs {
		if now.After(entry.expires) {
			delete(s.runs, id)
		}
	}
}
