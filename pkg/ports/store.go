package ports

import (
	"context"

	"github.com/aretw0/chatflow/pkg/domain"
)

// ExecutionStore persists the suspended interpreter state of a conversation.
//
// Implementations store the state as one field of a larger per-conversation
// document and must preserve the sibling fields written by other subsystems.
// A Write must be visible to a subsequent Read.
type ExecutionStore interface {
	// Read returns the active execution of the conversation, or nil when there is none.
	Read(ctx context.Context, conversationID string) (*domain.ExecutionState, error)

	// Write replaces the active execution. A nil state clears it.
	Write(ctx context.Context, conversationID string, state *domain.ExecutionState) error
}

// HandoffMarker flags a conversation for human takeover.
// Stores that keep the conversation document usually implement it as well.
type HandoffMarker interface {
	MarkHandoff(ctx context.Context, conversationID string) error
}

// Fields of the per-conversation document touched by the engine.
const (
	FieldFlowExecution = "flow_execution"
	FieldHumanTakeover = "human_takeover"
)
