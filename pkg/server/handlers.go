package server

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"veil-hq/relay/pkg/conversation"
	"veil-hq/relay/pkg/providers"
)

const (
	maxSessionIDLength = 100
	maxMessageLength   = 10000
)

// chatRequest is the POST /v1/chat payload.
type chatRequest struct {
	SessionID   string `json:"session_id"`
	UserMessage string `json:"user_message"`
}

// chatResponse is the successful chat reply.
type chatResponse struct {
	SessionID string    `json:"session_id"`
	Reply     string    `json:"reply"`
	Model     string    `json:"model"`
	Usage     usageInfo `json:"usage"`
	LatencyMs int64     `json:"latency_ms"`
}

type usageInfo struct {
	InputTokens  int `json:"input_tokens"`
	OutputTokens int `json:"output_tokens"`
}

// errorResponse is the uniform error envelope.
type errorResponse struct {
	Error errorBody `json:"error"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	var req chatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request", "request body must be valid JSON")
		return
	}

	if msg := validateChatRequest(&req); msg != "" {
		writeError(w, http.StatusBadRequest, "validation", msg)
		return
	}

	result, err := s.service.SubmitTurn(r.Context(), req.SessionID, req.UserMessage)
	if err != nil {
		code := conversation.ErrorCode(err)
		writeError(w, errorStatus(err), code, publicErrorMessage(code))
		return
	}

	writeJSON(w, http.StatusOK, chatResponse{
		SessionID: result.SessionID,
		Reply:     result.Reply,
		Model:     result.Model,
		Usage: usageInfo{
			InputTokens:  result.Usage.InputTokens,
			OutputTokens: result.Usage.OutputTokens,
		},
		LatencyMs: result.Latency.Milliseconds(),
	})
}

func validateChatRequest(req *chatRequest) string {
	if len(req.SessionID) > maxSessionIDLength {
		return "session_id must be at most 100 characters"
	}
	if req.UserMessage == "" {
		return "user_message is required"
	}
	if len(req.UserMessage) > maxMessageLength {
		return "user_message must be at most 10000 characters"
	}
	return ""
}

// errorStatus maps provider failures to HTTP status codes. Upstream
// throttling keeps 429 so callers can back off; everything else the
// relay could not complete is a bad gateway.
func errorStatus(err error) int {
	var rateErr *providers.RateLimitError
	if errors.As(err, &rateErr) {
		return http.StatusTooManyRequests
	}
	var timeoutErr *providers.TimeoutError
	if errors.As(err, &timeoutErr) {
		return http.StatusGatewayTimeout
	}
	return http.StatusBadGateway
}

// publicErrorMessage keeps upstream error bodies out of client responses.
func publicErrorMessage(code string) string {
	switch code {
	case "connection":
		return "the model backend is unreachable"
	case "auth":
		return "the relay could not authenticate with the model backend"
	case "rate_limit":
		return "the model backend is throttling requests"
	case "timeout":
		return "the model backend did not respond in time"
	case "model":
		return "the model backend rejected the request"
	case "parse":
		return "the model backend returned an unreadable response"
	default:
		return "the request could not be completed"
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.Status())
}

func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	st := s.service.Status()
	if st.Status != "healthy" {
		writeJSON(w, http.StatusServiceUnavailable, st)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleSessionCount(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]int{"count": s.service.SessionCount()})
}

func (s *Server) handleSessionReset(w http.ResponseWriter, r *http.Request) {
	cleared := s.service.SessionCount()
	s.service.ResetSessions()
	writeJSON(w, http.StatusOK, map[string]int{"cleared": cleared})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorResponse{Error: errorBody{Code: code, Message: message}})
}
