package runner

import (
	"log/slog"
)

// DefaultTenant is used when no tenant is configured.
const DefaultTenant = "default"

// Option defines a functional option for configuring the Runner.
type Option func(*Runner)

// WithLogger configures the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Runner) {
		r.logger = logger
	}
}

// WithInputHandler configures a custom IOHandler.
func WithInputHandler(handler IOHandler) Option {
	return func(r *Runner) {
		r.handler = handler
	}
}

// WithTenant sets the tenant whose flows are matched.
func WithTenant(tenantID string) Option {
	return func(r *Runner) {
		r.tenantID = tenantID
	}
}

// WithConversationID pins the conversation id. Useful to resume an execution
// kept by a durable store. A random id is used otherwise.
func WithConversationID(id string) Option {
	return func(r *Runner) {
		r.conversationID = id
	}
}
