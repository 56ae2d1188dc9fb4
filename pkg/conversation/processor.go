// Package conversation runs the per-message pipeline: load the conversation's
// execution, advance it or start a new flow, and persist the result.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aretw0/chatflow/internal/logging"
	"github.com/aretw0/chatflow/internal/trigger"
	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/aretw0/chatflow/pkg/ports"
	"github.com/aretw0/chatflow/pkg/session"
)

// InboundMessage is one message received from a channel.
type InboundMessage struct {
	TenantID          string         `json:"tenant_id"`
	ConversationID    string         `json:"conversation_id"`
	Text              string         `json:"text"`
	QuickReplyPayload string         `json:"quick_reply_payload,omitempty"`
	IsNewConversation bool           `json:"is_new_conversation,omitempty"`
	Intent            *domain.Intent `json:"intent,omitempty"`
}

// Outcome tells the channel what happened to a message.
type Outcome struct {
	// Handled is false when no flow took the message; the caller should route it
	// to its regular pipeline.
	Handled   bool             `json:"handled"`
	Messages  []domain.Message `json:"messages"`
	FlowID    string           `json:"flow_id,omitempty"`
	Completed bool             `json:"completed,omitempty"`
	Handoff   bool             `json:"handoff,omitempty"`
	// Diff describes how the persisted execution changed.
	Diff *domain.StateDiff `json:"diff,omitempty"`
}

// Matcher selects the flow a message starts.
type Matcher interface {
	Match(flows []domain.Flow, message string, tc domain.TriggerContext) (*domain.Flow, bool)
}

// Processor is safe for concurrent use. Messages of the same conversation are
// processed one at a time.
type Processor struct {
	flows     ports.FlowRepository
	store     ports.ExecutionStore
	engine    ports.Interpreter
	matcher   Matcher
	sessions  *session.Manager
	analytics ports.AnalyticsSink
	logger    *slog.Logger
	now       func() time.Time
}

// Option configures a Processor.
type Option func(*Processor)

// WithMatcher replaces the default trigger matcher.
func WithMatcher(m Matcher) Option {
	return func(p *Processor) {
		if m != nil {
			p.matcher = m
		}
	}
}

// WithSessionManager sets the manager serializing conversations. It must wrap the
// same store given to NewProcessor.
func WithSessionManager(m *session.Manager) Option {
	return func(p *Processor) {
		if m != nil {
			p.sessions = m
		}
	}
}

// WithAnalytics sets the sink receiving trigger and completion events.
func WithAnalytics(sink ports.AnalyticsSink) Option {
	return func(p *Processor) {
		p.analytics = sink
	}
}

// WithLogger sets the processor's logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Processor) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// NewProcessor wires a Processor.
func NewProcessor(flows ports.FlowRepository, store ports.ExecutionStore, engine ports.Interpreter, opts ...Option) *Processor {
	p := &Processor{
		flows:   flows,
		store:   store,
		engine:  engine,
		matcher: trigger.NewMatcher(),
		logger:  logging.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	if p.sessions == nil {
		p.sessions = session.NewManager(store, session.WithLogger(p.logger))
	}
	return p
}

// HandleMessage processes one inbound message. Errors are infrastructure failures
// (store or repository); flow problems end the execution instead.
func (p *Processor) HandleMessage(ctx context.Context, msg InboundMessage) (*Outcome, error) {
	if msg.ConversationID == "" {
		return nil, errors.New("conversation id is required")
	}

	var out *Outcome
	err := p.sessions.WithLock(ctx, msg.ConversationID, func(ctx context.Context) error {
		var err error
		out, err = p.handle(ctx, msg)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (p *Processor) handle(ctx context.Context, msg InboundMessage) (*Outcome, error) {
	state, err := p.store.Read(ctx, msg.ConversationID)
	if err != nil {
		return nil, fmt.Errorf("read execution: %w", err)
	}

	if state != nil && state.TenantID != "" && state.TenantID != msg.TenantID {
		// The store is keyed by conversation only; another tenant's execution is left alone.
		p.logger.Warn("conversation is running a flow of another tenant, ignoring message",
			"tenant_id", msg.TenantID,
			"conversation_id", msg.ConversationID)
		return &Outcome{Handled: false}, nil
	}

	if state != nil {
		flow, err := p.flows.GetFlow(ctx, msg.TenantID, state.FlowID)
		if errors.Is(err, domain.ErrFlowNotFound) {
			p.logger.Info("flow of the running execution is gone, clearing it",
				"conversation_id", msg.ConversationID,
				"flow_id", state.FlowID)
			if err := p.store.Write(ctx, msg.ConversationID, nil); err != nil {
				return nil, fmt.Errorf("clear execution: %w", err)
			}
			return &Outcome{Handled: false, Diff: domain.Diff(msg.ConversationID, state, nil)}, nil
		}
		if err != nil {
			return nil, fmt.Errorf("resolve flow %s: %w", state.FlowID, err)
		}

		res, err := p.engine.Step(ctx, state, input(msg), flow)
		if err != nil {
			return nil, err
		}
		return p.apply(ctx, msg, flow, state, res)
	}

	active, err := p.flows.ActiveFlows(ctx, msg.TenantID)
	if err != nil {
		return nil, fmt.Errorf("list active flows: %w", err)
	}
	flow, ok := p.matcher.Match(active, msg.Text, domain.TriggerContext{
		IsNewConversation: msg.IsNewConversation,
		QuickReplyPayload: msg.QuickReplyPayload,
		Intent:            msg.Intent,
	})
	if !ok {
		return &Outcome{Handled: false}, nil
	}

	p.logger.Info("flow triggered",
		"tenant_id", msg.TenantID,
		"conversation_id", msg.ConversationID,
		"flow_id", flow.ID)
	if p.analytics != nil {
		if err := p.analytics.FlowTriggered(ctx, msg.TenantID, flow.ID); err != nil {
			p.logger.Warn("failed to record flow trigger", "flow_id", flow.ID, "err", err)
		}
	}

	res, err := p.engine.Start(ctx, flow, msg.ConversationID)
	if err != nil {
		return nil, err
	}
	return p.apply(ctx, msg, flow, nil, res)
}

// apply persists the step result: completed executions are cleared and recorded,
// running ones are written back whole.
func (p *Processor) apply(ctx context.Context, msg InboundMessage, flow *domain.Flow, before *domain.ExecutionState, res *ports.StepResult) (*Outcome, error) {
	out := &Outcome{
		Handled:   true,
		Messages:  res.Messages,
		FlowID:    flow.ID,
		Completed: res.Completed,
		Handoff:   res.Handoff,
	}

	if !res.Completed {
		if err := p.store.Write(ctx, msg.ConversationID, res.State); err != nil {
			return nil, fmt.Errorf("write execution: %w", err)
		}
		out.Diff = domain.Diff(msg.ConversationID, before, res.State)
		return out, nil
	}

	if err := p.store.Write(ctx, msg.ConversationID, nil); err != nil {
		return nil, fmt.Errorf("clear execution: %w", err)
	}
	out.Diff = domain.Diff(msg.ConversationID, before, nil)

	if res.Handoff {
		if marker, ok := p.store.(ports.HandoffMarker); ok {
			if err := marker.MarkHandoff(ctx, msg.ConversationID); err != nil {
				p.logger.Warn("failed to flag conversation for human takeover",
					"conversation_id", msg.ConversationID, "err", err)
			}
		}
	}

	p.logger.Info("flow completed",
		"conversation_id", msg.ConversationID,
		"flow_id", flow.ID,
		"outcome", res.Outcome,
		"exit_node_id", res.ExitNodeID)
	if p.analytics != nil {
		if err := p.analytics.FlowCompleted(ctx, p.record(msg, flow, res)); err != nil {
			p.logger.Warn("failed to record flow completion", "flow_id", flow.ID, "err", err)
		}
	}
	return out, nil
}

func (p *Processor) record(msg InboundMessage, flow *domain.Flow, res *ports.StepResult) domain.ExecutionRecord {
	rec := domain.ExecutionRecord{
		FlowID:         flow.ID,
		TenantID:       msg.TenantID,
		ConversationID: msg.ConversationID,
		ExitNodeID:     res.ExitNodeID,
		Outcome:        res.Outcome,
		CompletedAt:    p.now().UTC(),
	}
	if res.Final != nil {
		rec.CorrelationID = res.Final.CorrelationID
		rec.StartedAt = res.Final.StartedAt
		rec.Variables = res.Final.Variables
	}
	return rec
}

// Execution returns the conversation's running execution, or nil.
func (p *Processor) Execution(ctx context.Context, conversationID string) (*domain.ExecutionState, error) {
	return p.sessions.Load(ctx, conversationID)
}

// Abandon clears the conversation's execution and reports whether one was running.
func (p *Processor) Abandon(ctx context.Context, conversationID string) (bool, error) {
	var existed bool
	err := p.sessions.WithLock(ctx, conversationID, func(ctx context.Context) error {
		state, err := p.store.Read(ctx, conversationID)
		if err != nil {
			return err
		}
		if state == nil {
			return nil
		}
		existed = true
		p.logger.Info("execution abandoned", "conversation_id", conversationID, "flow_id", state.FlowID)
		return p.store.Write(ctx, conversationID, nil)
	})
	return existed, err
}

// input is the text a parked node receives. A tapped quick reply may arrive
// with an empty text body.
func input(msg InboundMessage) string {
	if strings.TrimSpace(msg.Text) == "" && msg.QuickReplyPayload != "" {
		return msg.QuickReplyPayload
	}
	return msg.Text
}
