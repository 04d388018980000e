package repository

import (
	"context"
	"fmt"
	"sync"

	"github.com/pitchline/pitchline/internal/domain/match"
)

// Default store configuration constants.
const (
	defaultCapacity = 1000
)

// MemoryStore implements Store with a map guarded by a RWMutex. A bounded
// capacity evicts the oldest result first so timelines from long-dead
// matches cannot grow the heap forever.
type MemoryStore struct {
	mu       sync.RWMutex
	results  map[string]*match.Result
	order    []string
	capacity int
}

// NewMemoryStore creates a MemoryStore with configuration options.
func NewMemoryStore(opts ...Option) *MemoryStore {
	s := &MemoryStore{
		results:  make(map[string]*match.Result),
		capacity: defaultCapacity,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Put stores a result, evicting the oldest when at capacity.
func (s *MemoryStore) Put(_ context.Context, result *match.Result) error {
	if result == nil || result.JobID == "" {
		return fmt.Errorf("put: %w", ErrInvalidResult)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.results[result.JobID]; !exists {
		for len(s.order) >= s.capacity {
			oldest := s.order[0]
			s.order = s.order[1:]
			delete(s.results, oldest)
		}
		s.order = append(s.order, result.JobID)
	}
	s.results[result.JobID] = result
	return nil
}

// Get returns the stored result for a job id.
func (s *MemoryStore) Get(_ context.Context, jobID string) (*match.Result, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result, ok := s.results[jobID]
	if !ok {
		return nil, fmt.Errorf("get %s: %w", jobID, ErrNotFound)
	}
	return result, nil
}

// Delete removes a stored result.
func (s *MemoryStore) Delete(_ context.Context, jobID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.results[jobID]; !ok {
		return
	}
	delete(s.results, jobID)
	for i, id := range s.order {
		if id == jobID {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
}

// Count returns the number of stored results.
func (s *MemoryStore) Count(_ context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.results)
}
