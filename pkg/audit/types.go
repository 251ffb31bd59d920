// Package audit persists one record per conversation turn: the masked
// prompt, the masked completion, token usage and latency. Only masked
// text ever enters a record; raw user input stays inside the process.
package audit

import (
	"context"
	"fmt"
	"time"
)

// TurnRecord captures a single conversation turn for the audit trail.
type TurnRecord struct {
	// ID is the record's unique identifier.
	ID string `json:"id"`

	// SessionID identifies the conversation.
	SessionID string `json:"session_id"`

	// Status is the final turn state: completed or failed.
	Status string `json:"status"`

	// MaskedPrompt is the user message after PII masking.
	MaskedPrompt string `json:"masked_prompt"`

	// MaskedCompletion is the assistant reply; replies pass through the
	// same masking as prompts before recording.
	MaskedCompletion string `json:"masked_completion"`

	// EntityTypes lists the PII entity types masked in this turn.
	EntityTypes []string `json:"entity_types,omitempty"`

	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`

	// Provider and Model identify the backend that served the turn.
	Provider string `json:"provider"`
	Model    string `json:"model"`

	// Latency is the end-to-end turn duration.
	Latency time.Duration `json:"latency"`

	// Error holds the failure classification for failed turns.
	Error string `json:"error,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// Storage persists turn records.
type Storage interface {
	// Store persists one record.
	Store(ctx context.Context, record *TurnRecord) error

	// List returns records for a session, newest first, up to limit.
	List(ctx context.Context, sessionID string, limit int) ([]*TurnRecord, error)

	// Count returns the total number of stored records.
	Count(ctx context.Context) (int64, error)

	// DeleteOlderThan removes records created before the cutoff and
	// returns how many were removed.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)

	// Close releases the backend.
	Close() error
}

// StorageError wraps a backend failure with its operation.
type StorageError struct {
	Backend   string
	Operation string
	Cause     error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("audit storage %s: %s failed: %v", e.Backend, e.Operation, e.Cause)
}

func (e *StorageError) Unwrap() error { return e.Cause }
