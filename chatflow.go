package chatflow

import (
	"context"
	"errors"
	"log/slog"

	"github.com/aretw0/chatflow/internal/logging"
	"github.com/aretw0/chatflow/internal/runtime"
	"github.com/aretw0/chatflow/internal/trigger"
	"github.com/aretw0/chatflow/pkg/adapters/memory"
	"github.com/aretw0/chatflow/pkg/conversation"
	"github.com/aretw0/chatflow/pkg/dispatch"
	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/aretw0/chatflow/pkg/observability"
	"github.com/aretw0/chatflow/pkg/ports"
	"github.com/aretw0/chatflow/pkg/session"
)

// Version is overridden at build time with -ldflags "-X github.com/aretw0/chatflow.Version=...".
var Version = "dev"

// Bot is the high-level entry point of the library.
// It wires the interpreter, the trigger matcher and the conversation processor
// around the adapters given as options.
type Bot struct {
	engine    *runtime.Engine
	processor *conversation.Processor
	flows     ports.FlowRepository
	store     ports.ExecutionStore
	logger    *slog.Logger

	dispatcher    ports.ActionDispatcher
	analytics     ports.AnalyticsSink
	locker        ports.DistributedLocker
	hooks         []domain.LifecycleHooks
	maxVisits     int
	minConfidence *float64
	substantive   []string
}

// Option defines a functional option for configuring the Bot.
type Option func(*Bot)

// WithStore sets where executions are persisted. Defaults to an in-memory store.
func WithStore(store ports.ExecutionStore) Option {
	return func(b *Bot) {
		b.store = store
	}
}

// WithDispatcher sets the api_action dispatcher. Defaults to dispatch.New()
// with no catalog and no record backend.
func WithDispatcher(d ports.ActionDispatcher) Option {
	return func(b *Bot) {
		b.dispatcher = d
	}
}

// WithAnalytics sets the sink receiving trigger counts and completion records.
func WithAnalytics(sink ports.AnalyticsSink) Option {
	return func(b *Bot) {
		b.analytics = sink
	}
}

// WithLocker serializes conversations across processes.
func WithLocker(l ports.DistributedLocker) Option {
	return func(b *Bot) {
		b.locker = l
	}
}

// WithLifecycleHooks registers observability hooks. May be repeated; hooks run
// in registration order.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(b *Bot) {
		b.hooks = append(b.hooks, hooks)
	}
}

// WithLogger sets a custom structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(b *Bot) {
		b.logger = logger
	}
}

// WithMaxNodeVisits bounds how many nodes one invocation may run.
func WithMaxNodeVisits(n int) Option {
	return func(b *Bot) {
		b.maxVisits = n
	}
}

// WithIntentPolicy sets the minimum confidence of intent_match triggers and the
// intents that count as substantive for new_conversation triggers. A zero
// minConfidence accepts intents of any confidence.
func WithIntentPolicy(minConfidence float64, substantive ...string) Option {
	return func(b *Bot) {
		b.minConfidence = &minConfidence
		b.substantive = substantive
	}
}

// New initializes a Bot serving the flows of repo.
func New(flows ports.FlowRepository, opts ...Option) (*Bot, error) {
	if flows == nil {
		return nil, errors.New("a flow repository is required")
	}
	b := &Bot{flows: flows}
	for _, opt := range opts {
		opt(b)
	}

	if b.logger == nil {
		b.logger = logging.NewNop()
	}
	if b.store == nil {
		b.store = memory.NewStore()
	}
	if b.dispatcher == nil {
		b.dispatcher = dispatch.New(dispatch.WithLogger(b.logger))
	}

	engineOpts := []runtime.EngineOption{runtime.WithLogger(b.logger)}
	if len(b.hooks) > 0 {
		engineOpts = append(engineOpts, runtime.WithLifecycleHooks(observability.Combine(b.hooks...)))
	}
	if b.maxVisits > 0 {
		engineOpts = append(engineOpts, runtime.WithMaxNodeVisits(b.maxVisits))
	}
	b.engine = runtime.NewEngine(b.dispatcher, engineOpts...)

	var matcherOpts []trigger.Option
	if b.minConfidence != nil {
		matcherOpts = append(matcherOpts, trigger.WithMinConfidence(*b.minConfidence))
	}
	if len(b.substantive) > 0 {
		matcherOpts = append(matcherOpts, trigger.WithSubstantiveIntents(b.substantive...))
	}

	sessionOpts := []session.Option{session.WithLogger(b.logger)}
	if b.locker != nil {
		sessionOpts = append(sessionOpts, session.WithLocker(b.locker))
	}

	procOpts := []conversation.Option{
		conversation.WithMatcher(trigger.NewMatcher(matcherOpts...)),
		conversation.WithSessionManager(session.NewManager(b.store, sessionOpts...)),
		conversation.WithLogger(b.logger),
	}
	if b.analytics != nil {
		procOpts = append(procOpts, conversation.WithAnalytics(b.analytics))
	}
	b.processor = conversation.NewProcessor(b.flows, b.store, b.engine, procOpts...)

	return b, nil
}

// HandleMessage runs one inbound message through the conversation pipeline.
func (b *Bot) HandleMessage(ctx context.Context, msg conversation.InboundMessage) (*conversation.Outcome, error) {
	return b.processor.HandleMessage(ctx, msg)
}

// Execution returns the conversation's running execution, or nil.
func (b *Bot) Execution(ctx context.Context, conversationID string) (*domain.ExecutionState, error) {
	return b.processor.Execution(ctx, conversationID)
}

// Abandon clears the conversation's execution and reports whether one was running.
func (b *Bot) Abandon(ctx context.Context, conversationID string) (bool, error) {
	return b.processor.Abandon(ctx, conversationID)
}

// Interpreter exposes the stateless step interpreter.
func (b *Bot) Interpreter() ports.Interpreter {
	return b.engine
}

// Flows returns the flow repository the bot was built with.
func (b *Bot) Flows() ports.FlowRepository {
	return b.flows
}

// Store returns the execution store.
func (b *Bot) Store() ports.ExecutionStore {
	return b.store
}
