package ports

import (
	"context"

	"github.com/aretw0/chatflow/pkg/domain"
)

// StepResult is the outcome of one interpreter invocation.
type StepResult struct {
	// Messages are the ordered output units for the channel adapter.
	Messages []domain.Message

	// State is the execution to persist, or nil when the execution ended.
	State *domain.ExecutionState

	Completed bool
	// Handoff asks the caller to mark the conversation for human takeover.
	Handoff bool

	// ExitNodeID and Outcome describe how a completed execution ended.
	ExitNodeID string
	Outcome    domain.Outcome
	// Final is the execution as it ended, kept for the completion record.
	// Only set when Completed.
	Final *domain.ExecutionState
}

// Interpreter is the step-execution core. It holds no per-conversation state:
// everything is passed in and returned.
type Interpreter interface {
	// Start creates a fresh execution at the flow's trigger node and runs it until
	// it suspends or ends.
	Start(ctx context.Context, flow *domain.Flow, conversationID string) (*StepResult, error)

	// Step advances a suspended execution with one user message.
	Step(ctx context.Context, state *domain.ExecutionState, message string, flow *domain.Flow) (*StepResult, error)
}

// AnalyticsSink receives usage events. Implementations increment the flow's usage
// counters and persist the write-once completion record.
type AnalyticsSink interface {
	FlowTriggered(ctx context.Context, tenantID, flowID string) error
	FlowCompleted(ctx context.Context, record domain.ExecutionRecord) error
}
