package session

import (
	"sync"
	"time"
)

// Role identifies the author of a turn.
type Role string

const (
	// RoleUser marks a turn authored by the end user.
	RoleUser Role = "user"

	// RoleAssistant marks a turn authored by the generation backend.
	RoleAssistant Role = "assistant"
)

// Turn is one message in a session transcript. Turns are immutable once
// appended. For user turns, Content is always the masked text; the raw
// input is never retained past the masking call.
type Turn struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// DefaultMaxTurns bounds a session transcript when no limit is configured.
const DefaultMaxTurns = 20

// Store maps opaque session identifiers to bounded, ordered transcripts.
//
// Sessions are created lazily on first reference and live for the process
// lifetime; Reset is the only deletion primitive. Each session carries its
// own mutex so append+evict is atomic per session while traffic on other
// sessions proceeds without contention. The number of distinct session ids
// is unbounded; that is an accepted operational risk, not handled here.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*state
	maxTurns int
}

// state is the mutable per-session record. It is owned exclusively by the
// Store; no caller ever receives a reference to the live turns slice.
type state struct {
	mu        sync.Mutex
	turns     []Turn
	createdAt time.Time
}

// NewStore creates a session store capping each transcript at maxTurns.
// Non-positive values fall back to DefaultMaxTurns.
func NewStore(maxTurns int) *Store {
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}
	return &Store{
		sessions: make(map[string]*state),
		maxTurns: maxTurns,
	}
}

// getOrCreate returns the per-session state, creating it on first
// reference. Creation is atomic: concurrent first access for the same id
// yields one state object.
func (s *Store) getOrCreate(id string) *state {
	s.mu.RLock()
	st, ok := s.sessions[id]
	s.mu.RUnlock()
	if ok {
		return st
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if st, ok = s.sessions[id]; ok {
		return st
	}
	st = &state{createdAt: time.Now().UTC()}
	s.sessions[id] = st
	return st
}

// Touch ensures a session exists for id, creating an empty transcript on
// first reference.
func (s *Store) Touch(id string) {
	s.getOrCreate(id)
}

// Append adds a turn to the session's transcript, evicting the oldest
// turns once the transcript exceeds the configured cap. The append and any
// eviction are a single indivisible unit: a concurrent Snapshot never
// observes a partially updated transcript.
func (s *Store) Append(id string, turn Turn) {
	st := s.getOrCreate(id)

	st.mu.Lock()
	defer st.mu.Unlock()
	st.turns = append(st.turns, turn)
	if excess := len(st.turns) - s.maxTurns; excess > 0 {
		st.turns = append(st.turns[:0:0], st.turns[excess:]...)
	}
}

// Snapshot returns an immutable copy of the session's transcript in append
// order. Appends racing with the snapshot for the same session are ordered
// by the per-session lock; appends to other sessions are unaffected.
func (s *Store) Snapshot(id string) []Turn {
	st := s.getOrCreate(id)

	st.mu.Lock()
	defer st.mu.Unlock()
	out := make([]Turn, len(st.turns))
	copy(out, st.turns)
	return out
}

// Len returns the number of turns currently recorded for id without
// creating the session.
func (s *Store) Len(id string) int {
	s.mu.RLock()
	st, ok := s.sessions[id]
	s.mu.RUnlock()
	if !ok {
		return 0
	}
	st.mu.Lock()
	defer st.mu.Unlock()
	return len(st.turns)
}

// Count returns the number of distinct sessions, for monitoring.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// Reset discards every session. This is the only deletion primitive.
func (s *Store) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = make(map[string]*state)
}
