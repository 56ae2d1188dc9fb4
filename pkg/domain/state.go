package domain

import (
	"time"

	"github.com/google/uuid"
)

// ExecutionState is the suspended interpreter of one flow run for one conversation.
// It is the program counter (CurrentNodeID) plus the collected variables.
type ExecutionState struct {
	FlowID         string `json:"flow_id"`
	TenantID       string `json:"tenant_id,omitempty"`
	ConversationID string `json:"conversation_id,omitempty"`

	// CurrentNodeID is the node the interpreter is parked at or about to run.
	CurrentNodeID string `json:"current_node_id"`

	// Variables hold collected values. Entries are appended or overwritten, never removed mid-flow.
	Variables map[string]any `json:"variables"`

	// WaitingForInput is set when parked at an input node.
	WaitingForInput bool `json:"waiting_for_input"`

	StartedAt     time.Time `json:"started_at"`
	CorrelationID string    `json:"correlation_id"`
}

// NewExecutionState creates a running state positioned at the flow's trigger node.
func NewExecutionState(flow *Flow, conversationID string) *ExecutionState {
	start := ""
	if n, ok := TriggerNode(flow); ok {
		start = n.ID
	}
	return &ExecutionState{
		FlowID:         flow.ID,
		TenantID:       flow.TenantID,
		ConversationID: conversationID,
		CurrentNodeID:  start,
		Variables:      make(map[string]any),
		StartedAt:      time.Now().UTC(),
		CorrelationID:  uuid.NewString(),
	}
}

// Clone returns a copy with its own variable map so the original is never mutated.
func (s *ExecutionState) Clone() *ExecutionState {
	if s == nil {
		return nil
	}
	next := *s
	next.Variables = make(map[string]any, len(s.Variables))
	for k, v := range s.Variables {
		next.Variables[k] = v
	}
	return &next
}

// Intent is a label produced by the external intent classifier.
type Intent struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// TriggerContext is the ephemeral input to trigger matching. It is never persisted.
type TriggerContext struct {
	IsNewConversation bool
	QuickReplyPayload string
	Intent            *Intent
}

// Outcome describes how an execution ended.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeHandoff   Outcome = "handoff"
	// OutcomeAborted covers transitions to missing nodes and the visit limit.
	OutcomeAborted Outcome = "aborted"
)

// ExecutionRecord is the write-once analytics record stored when an execution ends.
type ExecutionRecord struct {
	FlowID         string         `json:"flow_id"`
	TenantID       string         `json:"tenant_id"`
	ConversationID string         `json:"conversation_id"`
	CorrelationID  string         `json:"correlation_id"`
	ExitNodeID     string         `json:"exit_node_id"`
	Outcome        Outcome        `json:"outcome"`
	Variables      map[string]any `json:"variables"`
	StartedAt      time.Time      `json:"started_at"`
	CompletedAt    time.Time      `json:"completed_at"`
}
