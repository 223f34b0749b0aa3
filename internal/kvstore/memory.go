package kvstore

import (
	"context"
	"slices"
	"sync"
	"time"
)

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

// MemoryStore はプロセス内だけで完結する Store。テストや CLI のドライランで使う
type MemoryStore struct {
	mu      sync.Mutex
	values  map[string]memoryEntry
	members map[string]map[string]struct{}
	now     func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		values:  make(map[string]memoryEntry),
		members: make(map[string]map[string]struct{}),
		now:     time.Now,
	}
}

func (s *MemoryStore) Get(ctx context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.values[key]
	if !ok {
		return "", ErrNotFound
	}
	if !e.expiresAt.IsZero() && !s.now().Before(e.expiresAt) {
		delete(s.values, key)
		return "", ErrNotFound
	}
	return e.value, nil
}

func (s *MemoryStore) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	e := memoryEntry{value: value}
	if ttl > 0 {
		e.expiresAt = s.now().Add(ttl)
	}
	s.values[key] = e
	return nil
}

func (s *MemoryStore) Del(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.values, key)
	delete(s.members, key)
	return nil
}

func (s *MemoryStore) AddMember(ctx context.Context, key, member string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.members[key]; !ok {
		s.members[key] = make(map[string]struct{})
	}
	s.members[key][member] = struct{}{}
	return nil
}

func (s *MemoryStore) RemoveMember(ctx context.Context, key, member string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.members[key], member)
	return nil
}

func (s *MemoryStore) Members(ctx context.Context, key string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]string, 0, len(s.members[key]))
	for m := range s.members[key] {
		out = append(out, m)
	}
	slices.Sort(out)
	return out, nil
}
