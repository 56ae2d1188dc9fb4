package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/aretw0/chatflow/internal/logging"
	"github.com/aretw0/chatflow/pkg/conversation"
	"github.com/google/uuid"
)

// CommandReset abandons the running execution instead of sending a message.
const CommandReset = "/reset"

// Processor is the part of conversation.Processor the runner needs.
type Processor interface {
	HandleMessage(ctx context.Context, msg conversation.InboundMessage) (*conversation.Outcome, error)
	Abandon(ctx context.Context, conversationID string) (bool, error)
}

// Runner handles the read, process, print loop of a single conversation.
type Runner struct {
	processor      Processor
	handler        IOHandler
	logger         *slog.Logger
	tenantID       string
	conversationID string
}

// New creates a Runner over the given processor. Without WithInputHandler it
// talks to Stdin and Stdout.
func New(processor Processor, opts ...Option) *Runner {
	r := &Runner{
		processor: processor,
		logger:    logging.NewNop(),
		tenantID:  DefaultTenant,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.handler == nil {
		r.handler = NewTextHandler(os.Stdin, os.Stdout)
	}
	if r.conversationID == "" {
		r.conversationID = uuid.NewString()
	}
	return r
}

// ConversationID returns the id every message is sent under.
func (r *Runner) ConversationID() string {
	return r.conversationID
}

// Run processes messages until the input is exhausted or ctx is canceled.
// A canceled context is not an error.
func (r *Runner) Run(ctx context.Context) error {
	first := true
	for {
		msg, err := r.handler.Input(ctx)
		if err != nil {
			if errors.Is(err, io.EOF) || ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("input error: %w", err)
		}

		if strings.TrimSpace(msg.Text) == CommandReset {
			if err := r.reset(ctx); err != nil {
				return err
			}
			first = true
			continue
		}

		msg.TenantID = r.tenantID
		msg.ConversationID = r.conversationID
		msg.IsNewConversation = first
		first = false

		outcome, err := r.processor.HandleMessage(ctx, msg)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			return fmt.Errorf("processing error: %w", err)
		}

		if !outcome.Handled {
			r.logger.Debug("message not handled", "conversation_id", r.conversationID)
			if err := r.handler.SystemOutput(ctx, "No flow matched this message."); err != nil {
				return fmt.Errorf("output error: %w", err)
			}
			continue
		}

		if err := r.handler.Output(ctx, outcome); err != nil {
			return fmt.Errorf("output error: %w", err)
		}

		switch {
		case outcome.Handoff:
			if err := r.handler.SystemOutput(ctx, "Conversation handed off to a human agent."); err != nil {
				return fmt.Errorf("output error: %w", err)
			}
		case outcome.Completed:
			if err := r.handler.SystemOutput(ctx, fmt.Sprintf("Flow %s completed.", outcome.FlowID)); err != nil {
				return fmt.Errorf("output error: %w", err)
			}
		}
	}
}

func (r *Runner) reset(ctx context.Context) error {
	abandoned, err := r.processor.Abandon(ctx, r.conversationID)
	if err != nil {
		return fmt.Errorf("reset error: %w", err)
	}
	msg := "Nothing to reset."
	if abandoned {
		msg = "Execution abandoned."
	}
	return r.handler.SystemOutput(ctx, msg)
}
