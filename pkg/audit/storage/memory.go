// Package storage provides the audit persistence backends: an in-memory
// store for development and tests, and a SQLite store for deployments.
package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"veil-hq/relay/pkg/audit"
)

// MemoryStorage keeps turn records in memory. Records are lost on
// restart; intended for development and tests.
type MemoryStorage struct {
	mu      sync.RWMutex
	records []*audit.TurnRecord
}

// NewMemoryStorage creates an empty in-memory store.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{}
}

// Store appends a copy of the record.
func (s *MemoryStorage) Store(_ context.Context, record *audit.TurnRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *record
	s.records = append(s.records, &cp)
	return nil
}

// List returns records for a session, newest first.
func (s *MemoryStorage) List(_ context.Context, sessionID string, limit int) ([]*audit.TurnRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*audit.TurnRecord
	for _, rec := range s.records {
		if rec.SessionID == sessionID {
			cp := *rec
			out = append(out, &cp)
		}
	}

	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})

	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Count returns the number of stored records.
func (s *MemoryStorage) Count(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.records)), nil
}

// DeleteOlderThan removes records created before the cutoff.
func (s *MemoryStorage) DeleteOlderThan(_ context.Context, cutoff time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.records[:0]
	var deleted int64
	for _, rec := range s.records {
		if rec.CreatedAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, rec)
	}
	s.records = kept
	return deleted, nil
}

// Close is a no-op for the memory backend.
func (s *MemoryStorage) Close() error { return nil }
