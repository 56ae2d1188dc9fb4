package runner

import (
	"context"

	"github.com/aretw0/chatflow/pkg/conversation"
)

// IOHandler defines the strategy for interacting with the user.
// This allows switching between Text (terminal) and JSON (structured) modes.
type IOHandler interface {
	// Output presents the outcome of one processed message.
	Output(ctx context.Context, outcome *conversation.Outcome) error

	// Input reads the next user message. Only Text and QuickReplyPayload are
	// read; the runner fills in the conversation fields.
	// Returns io.EOF when the input is exhausted.
	Input(ctx context.Context) (conversation.InboundMessage, error)

	// SystemOutput presents a meta-message (e.g. "no flow matched").
	// This is distinct from flow content.
	SystemOutput(ctx context.Context, msg string) error
}
