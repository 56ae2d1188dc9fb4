package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/chatflow/pkg/domain"
)

// LoggingHooks logs flow boundaries at info level and node visits at debug level.
func LoggingHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnFlowStart: func(ctx context.Context, e *domain.FlowEvent) {
			logger.InfoContext(ctx, "flow start",
				"tenant_id", e.TenantID,
				"flow_id", e.FlowID,
				"correlation_id", e.CorrelationID)
		},
		OnFlowComplete: func(ctx context.Context, e *domain.FlowEvent) {
			logger.InfoContext(ctx, "flow complete",
				"tenant_id", e.TenantID,
				"flow_id", e.FlowID,
				"outcome", e.Outcome,
				"exit_node_id", e.ExitNodeID,
				"correlation_id", e.CorrelationID)
		},
		OnNodeEnter: func(ctx context.Context, e *domain.NodeEvent) {
			logger.DebugContext(ctx, "node enter", "node_id", e.NodeID, "type", e.NodeType, "correlation_id", e.CorrelationID)
		},
		OnActionReturn: func(ctx context.Context, e *domain.ActionEvent) {
			logger.InfoContext(ctx, "action", "action_type", e.ActionType, "duration", e.Duration, "is_error", e.IsError)
		},
	}
}

// Combine fans every event out to all hook sets, in order.
func Combine(sets ...domain.LifecycleHooks) domain.LifecycleHooks {
	var out domain.LifecycleHooks
	for _, h := range sets {
		out.OnFlowStart = chain(out.OnFlowStart, h.OnFlowStart)
		out.OnFlowComplete = chain(out.OnFlowComplete, h.OnFlowComplete)
		out.OnNodeEnter = chain(out.OnNodeEnter, h.OnNodeEnter)
		out.OnActionCall = chain(out.OnActionCall, h.OnActionCall)
		out.OnActionReturn = chain(out.OnActionReturn, h.OnActionReturn)
	}
	return out
}

func chain[E any](a, b func(context.Context, E)) func(context.Context, E) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, e E) {
		a(ctx, e)
		b(ctx, e)
	}
}
