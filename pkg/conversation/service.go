// Package conversation drives the turn lifecycle: mask the user message,
// extend the session transcript, assemble the model context, generate,
// and record the outcome. The privacy boundary lives here: raw user text
// never survives past the masking step, so neither the session store, the
// provider, nor the audit trail ever sees it.
package conversation

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"veil-hq/relay/pkg/audit"
	"veil-hq/relay/pkg/masking"
	"veil-hq/relay/pkg/prompt"
	"veil-hq/relay/pkg/providers"
	"veil-hq/relay/pkg/session"
	"veil-hq/relay/pkg/telemetry/metrics"
	"veil-hq/relay/pkg/telemetry/tracing"
)

// TurnState tracks a turn through its lifecycle.
type TurnState string

const (
	StateReceived     TurnState = "received"
	StateMasked       TurnState = "masked"
	StateContextBuilt TurnState = "context_built"
	StateGenerating   TurnState = "generating"
	StateCompleted    TurnState = "completed"
	StateFailed       TurnState = "failed"
)

// Result is the outcome of one turn.
type Result struct {
	// SessionID is the conversation id, generated when the caller
	// submitted without one.
	SessionID string

	// Reply is the assistant text for completed turns.
	Reply string

	// MaskedMessage is the user message as the model saw it.
	MaskedMessage string

	// State is the terminal lifecycle state.
	State TurnState

	Usage   providers.Usage
	Model   string
	Latency time.Duration
}

// Status is the relay's health surface.
type Status struct {
	Status            string `json:"status"` // healthy or degraded
	Provider          string `json:"provider"`
	Model             string `json:"model"`
	PIIMaskingEnabled bool   `json:"pii_masking_enabled"`
}

// Config carries the generation parameters applied to every turn.
type Config struct {
	Temperature float64
	MaxTokens   int
}

// Service orchestrates conversation turns.
type Service struct {
	pipeline *masking.Pipeline
	sessions *session.Store
	provider providers.Provider
	prompts  *prompt.Source
	recorder *audit.Recorder
	metrics  *metrics.Collector
	tracer   *tracing.Tracer
	config   Config

	logger *slog.Logger
}

// New wires the service. The recorder, collector and tracer are optional;
// nil disables that concern.
func New(
	pipeline *masking.Pipeline,
	sessions *session.Store,
	provider providers.Provider,
	prompts *prompt.Source,
	recorder *audit.Recorder,
	collector *metrics.Collector,
	tracer *tracing.Tracer,
	config Config,
) *Service {
	return &Service{
		pipeline: pipeline,
		sessions: sessions,
		provider: provider,
		prompts:  prompts,
		recorder: recorder,
		metrics:  collector,
		tracer:   tracer,
		config:   config,
		logger:   slog.Default().With("component", "conversation"),
	}
}

// SubmitTurn runs one user message through the full lifecycle. An empty
// sessionID starts a new conversation.
//
// On generation failure the masked user turn stays in the transcript, no
// assistant turn is appended, and the typed provider error is returned
// alongside a Result in the failed state.
func (s *Service) SubmitTurn(ctx context.Context, sessionID, userMessage string) (*Result, error) {
	start := time.Now()

	if sessionID == "" {
		sessionID = uuid.NewString()
	}

	result := &Result{SessionID: sessionID, State: StateReceived}

	ctx, span := s.startSpan(ctx, "conversation.turn")
	defer span.end()

	// Masking happens before anything else can observe the raw text.
	masked, entities := s.pipeline.MaskEntities(userMessage)
	result.MaskedMessage = masked
	result.State = StateMasked
	for _, e := range entities {
		if s.metrics != nil {
			s.metrics.RecordMaskedEntity(string(e.Type))
		}
	}

	s.sessions.Append(sessionID, session.Turn{
		Role:      session.RoleUser,
		Content:   masked,
		Timestamp: time.Now().UTC(),
	})

	messages := s.buildContext(sessionID)
	result.State = StateContextBuilt

	result.State = StateGenerating
	reply, err := s.provider.Generate(ctx, &providers.Request{
		Messages:    messages,
		Temperature: s.config.Temperature,
		MaxTokens:   s.config.MaxTokens,
	})
	result.Latency = time.Since(start)

	if err != nil {
		result.State = StateFailed
		s.finishTurn(result, masked, "", entities, err)
		return result, err
	}

	s.sessions.Append(sessionID, session.Turn{
		Role:      session.RoleAssistant,
		Content:   reply.Text,
		Timestamp: time.Now().UTC(),
	})

	result.Reply = reply.Text
	result.Usage = reply.Usage
	result.Model = reply.Model
	result.State = StateCompleted

	// The caller gets the reply verbatim; the audit record gets it
	// through the same masking as the prompt.
	maskedReply, replyEntities := s.pipeline.MaskEntities(reply.Text)
	for _, e := range replyEntities {
		if s.metrics != nil {
			s.metrics.RecordMaskedEntity(string(e.Type))
		}
	}

	s.finishTurn(result, masked, maskedReply, append(entities, replyEntities...), nil)
	return result, nil
}

// buildContext assembles the model messages: the system prompt followed
// by the full session transcript (already masked).
func (s *Service) buildContext(sessionID string) []providers.Message {
	transcript := s.sessions.Snapshot(sessionID)

	messages := make([]providers.Message, 0, len(transcript)+1)
	messages = append(messages, providers.Message{
		Role:    providers.RoleSystem,
		Content: s.prompts.Get(),
	})
	for _, turn := range transcript {
		messages = append(messages, providers.Message{
			Role:    string(turn.Role),
			Content: turn.Content,
		})
	}
	return messages
}

// finishTurn emits telemetry and the audit record for a terminal state.
func (s *Service) finishTurn(result *Result, maskedPrompt, maskedCompletion string, entities []masking.Entity, turnErr error) {
	status := string(result.State)
	model := result.Model
	if model == "" {
		model = s.provider.Model()
	}

	if s.metrics != nil {
		s.metrics.RecordTurn(s.provider.Name(), model, status, result.Latency)
		s.metrics.RecordTokens(result.Usage.InputTokens, result.Usage.OutputTokens)
		s.metrics.SetActiveSessions(s.sessions.Count())
		if turnErr != nil {
			s.metrics.RecordProviderError(s.provider.Name(), ErrorCode(turnErr))
		}
	}

	if turnErr != nil {
		s.logger.Warn("turn failed",
			"session_id", result.SessionID,
			"provider", s.provider.Name(),
			"error_code", ErrorCode(turnErr),
			"error", turnErr,
		)
	} else {
		s.logger.Info("turn completed",
			"session_id", result.SessionID,
			"provider", s.provider.Name(),
			"model", model,
			"latency", result.Latency,
			"input_tokens", result.Usage.InputTokens,
			"output_tokens", result.Usage.OutputTokens,
		)
	}

	if s.recorder != nil {
		record := &audit.TurnRecord{
			SessionID:        result.SessionID,
			Status:           status,
			MaskedPrompt:     maskedPrompt,
			MaskedCompletion: maskedCompletion,
			InputTokens:      result.Usage.InputTokens,
			OutputTokens:     result.Usage.OutputTokens,
			Provider:         s.provider.Name(),
			Model:            model,
			Latency:          result.Latency,
		}
		for _, e := range entities {
			record.EntityTypes = append(record.EntityTypes, string(e.Type))
		}
		if turnErr != nil {
			record.Error = ErrorCode(turnErr)
		}
		s.recorder.Record(record)
	}
}

// Status reports the health surface: degraded when the provider is
// unhealthy, plus the masking toggle so operators notice a bypassed
// pipeline immediately.
func (s *Service) Status() Status {
	status := "healthy"
	if !s.provider.IsHealthy() {
		status = "degraded"
	}
	return Status{
		Status:            status,
		Provider:          s.provider.Name(),
		Model:             s.provider.Model(),
		PIIMaskingEnabled: s.pipeline.Enabled(),
	}
}

// SessionCount returns the number of live sessions.
func (s *Service) SessionCount() int {
	return s.sessions.Count()
}

// ResetSessions clears every session transcript.
func (s *Service) ResetSessions() {
	s.sessions.Reset()
	if s.metrics != nil {
		s.metrics.SetActiveSessions(0)
	}
	s.logger.Info("all sessions reset")
}

// Transcript returns a copy of one session's transcript.
func (s *Service) Transcript(sessionID string) []session.Turn {
	return s.sessions.Snapshot(sessionID)
}

// ErrorCode maps a provider error to its taxonomy label.
func ErrorCode(err error) string {
	var connErr *providers.ConnectionError
	var authErr *providers.AuthError
	var modelErr *providers.ModelError
	var rateErr *providers.RateLimitError
	var timeoutErr *providers.TimeoutError
	var parseErr *providers.ParseError
	var validationErr *providers.ValidationError
	var configErr *providers.ConfigError

	switch {
	case errors.As(err, &connErr):
		return "connection"
	case errors.As(err, &authErr):
		return "auth"
	case errors.As(err, &rateErr):
		return "rate_limit"
	case errors.As(err, &timeoutErr):
		return "timeout"
	case errors.As(err, &modelErr):
		return "model"
	case errors.As(err, &parseErr):
		return "parse"
	case errors.As(err, &validationErr):
		return "validation"
	case errors.As(err, &configErr):
		return "config"
	default:
		return "unknown"
	}
}

// span is a small indirection so tracing stays optional.
type span struct{ end func() }

func (s *Service) startSpan(ctx context.Context, name string) (context.Context, span) {
	if s.tracer == nil {
		return ctx, span{end: func() {}}
	}
	ctx, sp := s.tracer.Start(ctx, name)
	return ctx, span{end: func() { sp.End() }}
}
