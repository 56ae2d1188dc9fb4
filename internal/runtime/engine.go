package runtime

import (
	"context"
	"log/slog"
	"time"

	"github.com/aretw0/chatflow/internal/logging"
	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/aretw0/chatflow/pkg/ports"
)

// DefaultMaxNodeVisits bounds the nodes visited by a single Start or Step call.
// Reaching it ends the execution, which guarantees termination on input-free cycles.
const DefaultMaxNodeVisits = 50

// Engine is the step interpreter. It holds no per-conversation state, so a single
// Engine serves every conversation concurrently.
type Engine struct {
	dispatcher ports.ActionDispatcher
	items      ports.ItemSource
	hooks      domain.LifecycleHooks
	logger     *slog.Logger
	maxVisits  int
	now        func() time.Time
}

// EngineOption defines a functional option for configuring the Engine.
type EngineOption func(*Engine)

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) EngineOption {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithLogger sets a custom structured logger for the engine.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithItemSource sets where show_items nodes fetch their items from.
// By default the dispatcher is used when it implements ports.ItemSource.
func WithItemSource(src ports.ItemSource) EngineOption {
	return func(e *Engine) {
		e.items = src
	}
}

// WithMaxNodeVisits overrides DefaultMaxNodeVisits.
func WithMaxNodeVisits(n int) EngineOption {
	return func(e *Engine) {
		if n > 0 {
			e.maxVisits = n
		}
	}
}

// NewEngine creates an interpreter that delegates api_action nodes to dispatcher.
// A nil dispatcher is allowed; api_action nodes then only record an error marker.
func NewEngine(dispatcher ports.ActionDispatcher, opts ...EngineOption) *Engine {
	e := &Engine{
		dispatcher: dispatcher,
		logger:     logging.NewNop(),
		maxVisits:  DefaultMaxNodeVisits,
		now:        time.Now,
	}
	if src, ok := dispatcher.(ports.ItemSource); ok {
		e.items = src
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

var _ ports.Interpreter = (*Engine)(nil)

// run carries the mutable data of one invocation.
type run struct {
	flow     *domain.Flow
	state    *domain.ExecutionState
	messages []domain.Message
}

func (r *run) say(text string) {
	if text != "" {
		r.messages = append(r.messages, domain.TextMessage(text))
	}
}

// Start creates a fresh execution positioned at the flow's trigger node and walks
// forward until the flow suspends or ends.
func (e *Engine) Start(ctx context.Context, flow *domain.Flow, conversationID string) (*ports.StepResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if flow == nil {
		return &ports.StepResult{Completed: true, Outcome: domain.OutcomeAborted}, nil
	}

	state := domain.NewExecutionState(flow, conversationID)
	r := &run{flow: flow, state: state}

	e.logger.Debug("flow started",
		"flow_id", flow.ID,
		"conversation_id", conversationID,
		"correlation_id", state.CorrelationID)
	if e.hooks.OnFlowStart != nil {
		e.hooks.OnFlowStart(ctx, &domain.FlowEvent{
			EventBase: e.event(domain.EventFlowStart, state),
			TenantID:  flow.TenantID,
		})
	}

	return e.walk(ctx, r)
}

// Step advances a suspended execution with one user message.
//
// Flow failures (broken graph, missing node, visit limit) never surface as errors:
// they end the execution with Completed set. The error return is reserved for
// context cancellation.
func (e *Engine) Step(ctx context.Context, state *domain.ExecutionState, message string, flow *domain.Flow) (*ports.StepResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if state == nil || flow == nil {
		return &ports.StepResult{Completed: true, Outcome: domain.OutcomeAborted}, nil
	}

	r := &run{flow: flow, state: state.Clone()}
	if r.state.Variables == nil {
		r.state.Variables = make(map[string]any)
	}

	node, ok := domain.FindNode(flow, r.state.CurrentNodeID)
	if !ok {
		e.logger.Warn("execution points to a missing node",
			"flow_id", flow.ID,
			"node_id", r.state.CurrentNodeID,
			"correlation_id", r.state.CorrelationID)
		return e.finish(ctx, r, r.state.CurrentNodeID, domain.OutcomeAborted, false), nil
	}

	if r.state.WaitingForInput {
		r.state.WaitingForInput = false
		if isInputNode(node.Type) {
			nextID, accepted := e.acceptInput(r, node, message)
			if !accepted {
				// Stay parked: same node, same variables.
				return &ports.StepResult{Messages: r.messages, State: state.Clone()}, nil
			}
			if nextID == "" {
				return e.finish(ctx, r, node.ID, domain.OutcomeCompleted, false), nil
			}
			r.state.CurrentNodeID = nextID
		} else {
			// The parked node is no longer an input node; leave it through its exit.
			nextID := e.nextFrom(r, node, "")
			if nextID == "" {
				return e.finish(ctx, r, node.ID, domain.OutcomeCompleted, false), nil
			}
			r.state.CurrentNodeID = nextID
		}
	}

	return e.walk(ctx, r)
}

// control tells the walk loop what to do after a node ran.
type control int

const (
	proceed control = iota
	suspend
	terminate
	handoff
)

// walk visits nodes starting at the current node until a suspension point, a
// terminal node, a dead end or the visit limit.
func (e *Engine) walk(ctx context.Context, r *run) (*ports.StepResult, error) {
	for visits := 0; ; visits++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if visits >= e.maxVisits {
			e.logger.Warn("node visit limit reached, ending execution",
				"flow_id", r.flow.ID,
				"node_id", r.state.CurrentNodeID,
				"limit", e.maxVisits,
				"correlation_id", r.state.CorrelationID)
			return e.finish(ctx, r, r.state.CurrentNodeID, domain.OutcomeAborted, false), nil
		}

		node, ok := domain.FindNode(r.flow, r.state.CurrentNodeID)
		if !ok {
			e.logger.Warn("transition to a missing node, ending execution",
				"flow_id", r.flow.ID,
				"node_id", r.state.CurrentNodeID,
				"correlation_id", r.state.CorrelationID)
			return e.finish(ctx, r, r.state.CurrentNodeID, domain.OutcomeAborted, false), nil
		}
		e.emitNodeEnter(ctx, r.state, node)

		nextID, ctl := e.execute(ctx, r, node)
		switch ctl {
		case suspend:
			r.state.WaitingForInput = true
			return &ports.StepResult{Messages: r.messages, State: r.state}, nil
		case terminate:
			return e.finish(ctx, r, node.ID, domain.OutcomeCompleted, false), nil
		case handoff:
			return e.finish(ctx, r, node.ID, domain.OutcomeHandoff, true), nil
		}

		if nextID == "" {
			e.logger.Debug("no outgoing edge, ending execution", "flow_id", r.flow.ID, "node_id", node.ID)
			return e.finish(ctx, r, node.ID, domain.OutcomeCompleted, false), nil
		}
		r.state.CurrentNodeID = nextID
	}
}

// finish builds the terminal result: no state to persist, Completed set.
func (e *Engine) finish(ctx context.Context, r *run, exitNodeID string, outcome domain.Outcome, isHandoff bool) *ports.StepResult {
	if e.hooks.OnFlowComplete != nil {
		e.hooks.OnFlowComplete(ctx, &domain.FlowEvent{
			EventBase:  e.event(domain.EventFlowComplete, r.state),
			TenantID:   r.flow.TenantID,
			ExitNodeID: exitNodeID,
			Outcome:    outcome,
		})
	}
	e.logger.Debug("flow finished",
		"flow_id", r.flow.ID,
		"exit_node_id", exitNodeID,
		"outcome", outcome,
		"correlation_id", r.state.CorrelationID)

	return &ports.StepResult{
		Messages:   r.messages,
		State:      nil,
		Completed:  true,
		Handoff:    isHandoff,
		ExitNodeID: exitNodeID,
		Outcome:    outcome,
		Final:      r.state,
	}
}

func (e *Engine) event(t domain.EventType, state *domain.ExecutionState) domain.EventBase {
	return domain.EventBase{
		Timestamp:     e.now(),
		Type:          t,
		FlowID:        state.FlowID,
		CorrelationID: state.CorrelationID,
	}
}

func (e *Engine) emitNodeEnter(ctx context.Context, state *domain.ExecutionState, node *domain.Node) {
	e.logger.Debug("node enter", "flow_id", state.FlowID, "node_id", node.ID, "type", node.Type)
	if e.hooks.OnNodeEnter != nil {
		e.hooks.OnNodeEnter(ctx, &domain.NodeEvent{
			EventBase: e.event(domain.EventNodeEnter, state),
			NodeID:    node.ID,
			NodeType:  node.Type,
		})
	}
}

func isInputNode(t domain.NodeType) bool {
	return t == domain.NodeAskQuestion || t == domain.NodeButtonChoice || t == domain.NodeShowItems
}
