// Package session binds browsing sessions to signup wizards.
package session

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"
)

var (
	// ErrNotFound is returned when a session id is unknown or expired.
	ErrNotFound = errors.New("session not found")
	// ErrInvalidToken is returned for cookies that fail signature or expiry checks.
	ErrInvalidToken = errors.New("invalid session token")
)

// Record is the persisted part of a session. Wizard progress is never stored.
type Record struct {
	ID           string
	ReferralCode string
	CreatedAt    time.Time
	ExpiresAt    time.Time
}

// Expired reports whether the record is no longer usable at now.
func (r Record) Expired(now time.Time) bool {
	return !r.ExpiresAt.After(now)
}

// Store persists session records.
type Store interface {
	Save(ctx context.Context, record Record) error
	Get(ctx context.Context, id string) (Record, error)
	Delete(ctx context.Context, id string) error
	PruneExpired(ctx context.Context, now time.Time) (int, error)
	Ping(ctx context.Context) error
}

// MemoryStore keeps records in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]Record
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore returns an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]Record)}
}

func (s *MemoryStore) Save(_ context.Context, record Record) error {
	if strings.TrimSpace(record.ID) == "" {
		return errors.New("session id is required")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records[record.ID] = record
	return nil
}

func (s *MemoryStore) Get(_ context.Context, id string) (Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.records[id]
	if !ok {
		return Record{}, ErrNotFound
	}
	return record, nil
}

func (s *MemoryStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.records, id)
	return nil
}

func (s *MemoryStore) PruneExpired(_ context.Context, now time.Time) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for id, record := range s.records {
		if record.Expired(now) {
			delete(s.records, id)
			removed++
		}
	}
	return removed, nil
}

func (s *MemoryStore) Ping(context.Context) error { return nil }
