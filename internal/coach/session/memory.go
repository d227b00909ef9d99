package session

import (
	"context"
	"sync"
	"time"

	"github.com/skillup-bharat/server/internal/coach/model"
)

type entry struct {
	mu      sync.Mutex
	state   *model.SessionState
	removed bool
}

// MemoryStore keeps session state in process. The map is guarded by an
// RWMutex and every session carries its own mutex.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[string]*entry
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		entries: make(map[string]*entry),
		now:     time.Now,
	}
}

func (s *MemoryStore) entry(id string) *entry {
	s.mu.RLock()
	e, ok := s.entries[id]
	s.mu.RUnlock()
	if ok {
		return e
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if e, ok := s.entries[id]; ok {
		return e
	}
	e = &entry{}
	s.entries[id] = e
	return e
}

func (s *MemoryStore) Update(ctx context.Context, id string, fn func(*model.SessionState) error) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		e := s.entry(id)
		e.mu.Lock()
		if e.removed {
			// swept between lookup and lock
			e.mu.Unlock()
			continue
		}

		var next *model.SessionState
		if e.state == nil {
			next = model.NewSessionState(id, s.now())
		} else {
			next = e.state.Clone()
		}
		err := fn(next)
		if err == nil {
			e.state = next
		} else if e.state == nil {
			s.drop(id, e)
		}
		e.mu.Unlock()
		return err
	}
}

// drop removes a stateless entry. The caller holds e.mu.
func (s *MemoryStore) drop(id string, e *entry) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.entries[id] == e {
		delete(s.entries, id)
	}
	e.removed = true
}

func (s *MemoryStore) Get(_ context.Context, id string) (*model.SessionState, error) {
	s.mu.RLock()
	e, ok := s.entries[id]
	s.mu.RUnlock()
	if !ok {
		return nil, notFound(id)
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.removed || e.state == nil {
		return nil, notFound(id)
	}
	return e.state.Clone(), nil
}

// Sweep evicts sessions idle for longer than idleTTL and returns how many
// were removed. Sessions with a turn in flight are left alone.
func (s *MemoryStore) Sweep(idleTTL time.Duration) int {
	if idleTTL <= 0 {
		return 0
	}
	cutoff := s.now().Add(-idleTTL)

	s.mu.Lock()
	defer s.mu.Unlock()

	n := 0
	for id, e := range s.entries {
		if !e.mu.TryLock() {
			continue
		}
		if e.state == nil || e.state.LastActive.Before(cutoff) {
			e.removed = true
			delete(s.entries, id)
			n++
		}
		e.mu.Unlock()
	}
	return n
}

// Len returns the number of tracked sessions.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

var (
	_ Store   = (*MemoryStore)(nil)
	_ Sweeper = (*MemoryStore)(nil)
)
