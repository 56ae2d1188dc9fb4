package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/aretw0/chatflow/internal/logging"
	"github.com/aretw0/chatflow/pkg/conversation"
	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/aretw0/chatflow/pkg/ports"
	"github.com/aretw0/chatflow/pkg/runner"
	"github.com/go-chi/chi/v5"
	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// maxBodyBytes caps request bodies; the message text has its own, smaller limit.
const maxBodyBytes = 64 << 10

// Conversations is the part of conversation.Processor the server exposes.
type Conversations interface {
	HandleMessage(ctx context.Context, msg conversation.InboundMessage) (*conversation.Outcome, error)
	Execution(ctx context.Context, conversationID string) (*domain.ExecutionState, error)
	Abandon(ctx context.Context, conversationID string) (bool, error)
}

// Server serves the conversation API.
type Server struct {
	conversations Conversations
	flows         ports.FlowRepository
	streams       *StreamManager
	logger        *slog.Logger
	maxInputSize  int
	rps           float64
	burst         int
	gatherer      prometheus.Gatherer
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the request logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithRateLimit limits each conversation to rps messages per second.
// A non-positive rps disables limiting.
func WithRateLimit(rps float64, burst int) Option {
	return func(s *Server) {
		s.rps = rps
		s.burst = burst
	}
}

// WithMaxInputSize sets the largest accepted message text in bytes.
func WithMaxInputSize(n int) Option {
	return func(s *Server) {
		s.maxInputSize = n
	}
}

// WithMetrics exposes the gatherer on GET /metrics.
func WithMetrics(g prometheus.Gatherer) Option {
	return func(s *Server) {
		s.gatherer = g
	}
}

// NewHandler creates the HTTP handler for the conversation API.
func NewHandler(conversations Conversations, flows ports.FlowRepository, opts ...Option) http.Handler {
	s := &Server{
		conversations: conversations,
		flows:         flows,
		logger:        logging.NewNop(),
		maxInputSize:  runner.DefaultMaxInputSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.streams = NewStreamManager(s.logger)

	r := chi.NewRouter()
	r.Get("/health", s.GetHealth)
	if s.gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/v1/tenants/{tenant}", func(r chi.Router) {
		r.Get("/flows", s.ListFlows)
		r.Route("/conversations/{conversation}", func(r chi.Router) {
			if s.rps > 0 {
				r.With(NewConversationRateLimiter(s.rps, s.burst, s.logger).Handler).Post("/messages", s.PostMessage)
			} else {
				r.Post("/messages", s.PostMessage)
			}
			r.Get("/execution", s.GetExecution)
			r.Delete("/execution", s.DeleteExecution)
			r.Get("/events", s.SubscribeEvents)
		})
	})

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// MessageRequest is the body of POST .../messages.
type MessageRequest struct {
	Text              string         `json:"text"`
	QuickReplyPayload string         `json:"quick_reply_payload,omitempty"`
	IsNewConversation bool           `json:"is_new_conversation,omitempty"`
	Intent            *domain.Intent `json:"intent,omitempty"`
}

// FlowSummary is one entry of GET .../flows.
type FlowSummary struct {
	ID             string                   `json:"id"`
	Name           string                   `json:"name,omitempty"`
	Priority       int                      `json:"priority"`
	Trigger        domain.TriggerDescriptor `json:"trigger"`
	TimesTriggered int64                    `json:"times_triggered"`
	TimesCompleted int64                    `json:"times_completed"`
}

// PostMessage handles POST /v1/tenants/{tenant}/conversations/{conversation}/messages.
func (s *Server) PostMessage(w http.ResponseWriter, r *http.Request) {
	var body MessageRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		s.logger.Warn("PostMessage: invalid request body", "error", err)
		return
	}

	text, err := runner.SanitizeInputLimit(body.Text, s.maxInputSize)
	if err == nil {
		body.QuickReplyPayload, err = runner.SanitizeInputLimit(body.QuickReplyPayload, s.maxInputSize)
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid input: %v", err))
		s.logger.Warn("PostMessage: input rejected", "error", err, "size", len(body.Text))
		return
	}

	msg := conversation.InboundMessage{
		TenantID:          chi.URLParam(r, "tenant"),
		ConversationID:    chi.URLParam(r, "conversation"),
		Text:              text,
		QuickReplyPayload: body.QuickReplyPayload,
		IsNewConversation: body.IsNewConversation,
		Intent:            body.Intent,
	}

	outcome, err := s.conversations.HandleMessage(r.Context(), msg)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "message processing failed")
		s.logger.Error("PostMessage failed", "error", err, "conversation_id", msg.ConversationID)
		return
	}

	if outcome.Diff != nil {
		if payload, err := json.Marshal(outcome.Diff); err == nil {
			s.streams.Broadcast(msg.TenantID, msg.ConversationID, string(payload))
		}
	}

	writeJSON(w, http.StatusOK, outcome)
}

// GetExecution handles GET .../execution.
func (s *Server) GetExecution(w http.ResponseWriter, r *http.Request) {
	tenant := chi.URLParam(r, "tenant")
	conv := chi.URLParam(r, "conversation")

	state, err := s.conversations.Execution(r.Context(), conv)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "execution lookup failed")
		s.logger.Error("GetExecution failed", "error", err, "conversation_id", conv)
		return
	}
	if state == nil || (state.TenantID != "" && state.TenantID != tenant) {
		writeError(w, http.StatusNotFound, "no running execution")
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// DeleteExecution handles DELETE .../execution by abandoning the running flow.
func (s *Server) DeleteExecution(w http.ResponseWriter, r *http.Request) {
	tenant := chi.URLParam(r, "tenant")
	conv := chi.URLParam(r, "conversation")

	state, err := s.conversations.Execution(r.Context(), conv)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "execution lookup failed")
		s.logger.Error("DeleteExecution failed", "error", err, "conversation_id", conv)
		return
	}
	if state == nil || (state.TenantID != "" && state.TenantID != tenant) {
		writeError(w, http.StatusNotFound, "no running execution")
		return
	}

	abandoned, err := s.conversations.Abandon(r.Context(), conv)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "abandon failed")
		s.logger.Error("DeleteExecution failed", "error", err, "conversation_id", conv)
		return
	}
	if !abandoned {
		writeError(w, http.StatusNotFound, "no running execution")
		return
	}

	if payload, err := json.Marshal(domain.Diff(conv, &domain.ExecutionState{}, nil)); err == nil {
		s.streams.Broadcast(tenant, conv, string(payload))
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListFlows handles GET /v1/tenants/{tenant}/flows.
func (s *Server) ListFlows(w http.ResponseWriter, r *http.Request) {
	tenant := chi.URLParam(r, "tenant")

	flows, err := s.flows.ActiveFlows(r.Context(), tenant)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "flow lookup failed")
		s.logger.Error("ListFlows failed", "error", err, "tenant_id", tenant)
		return
	}

	resp := make([]FlowSummary, 0, len(flows))
	for _, f := range flows {
		resp = append(resp, FlowSummary{
			ID:             f.ID,
			Name:           f.Name,
			Priority:       f.Priority,
			Trigger:        f.Trigger,
			TimesTriggered: f.TimesTriggered,
			TimesCompleted: f.TimesCompleted,
		})
	}
	writeJSON(w, http.StatusOK, resp)
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// SubscribeEvents handles GET .../events, streaming execution diffs as SSE.
// The optional "watch" query (node, variables, waiting, cleared) filters events.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming not supported")
		return
	}

	tenant := chi.URLParam(r, "tenant")
	conv := chi.URLParam(r, "conversation")
	var watch []string
	if q := r.URL.Query().Get("watch"); q != "" {
		watch = strings.Split(q, ",")
	}

	ch, cancel := s.streams.Subscribe(tenant, conv)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if len(watch) > 0 && !watched(msg, watch) {
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

func watched(msg string, fields []string) bool {
	var diff domain.StateDiff
	if err := json.Unmarshal([]byte(msg), &diff); err != nil {
		return true
	}
	for _, field := range fields {
		switch strings.TrimSpace(field) {
		case "node":
			if diff.CurrentNodeID != nil {
				return true
			}
		case "variables":
			if len(diff.Variables) > 0 {
				return true
			}
		case "waiting":
			if diff.WaitingForInput != nil {
				return true
			}
		case "cleared":
			if diff.Cleared {
				return true
			}
		}
	}
	return false
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Debug("response encode failed", "error", err)
	}
}
