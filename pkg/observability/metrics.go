package observability

import (
	"context"
	"strconv"

	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the engine collectors.
type Metrics struct {
	FlowsStarted   *prometheus.CounterVec
	FlowsCompleted *prometheus.CounterVec
	NodeVisits     *prometheus.CounterVec
	ActionDuration *prometheus.HistogramVec
}

// NewMetrics creates the collectors and registers them on reg.
// A nil reg uses prometheus.DefaultRegisterer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		FlowsStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chatflow",
			Name:      "flows_started_total",
			Help:      "Executions started, by tenant and flow.",
		}, []string{"tenant_id", "flow_id"}),
		FlowsCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chatflow",
			Name:      "flows_completed_total",
			Help:      "Executions ended, by tenant, flow and outcome.",
		}, []string{"tenant_id", "flow_id", "outcome"}),
		NodeVisits: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "chatflow",
			Name:      "node_visits_total",
			Help:      "Nodes visited by the interpreter, by node type.",
		}, []string{"node_type"}),
		ActionDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "chatflow",
			Name:      "action_duration_seconds",
			Help:      "Latency of api_action dispatches.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"action_type", "error"}),
	}
	reg.MustRegister(m.FlowsStarted, m.FlowsCompleted, m.NodeVisits, m.ActionDuration)
	return m
}

// Hooks returns lifecycle hooks feeding the collectors.
func (m *Metrics) Hooks() domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnFlowStart: func(_ context.Context, e *domain.FlowEvent) {
			m.FlowsStarted.WithLabelValues(e.TenantID, e.FlowID).Inc()
		},
		OnFlowComplete: func(_ context.Context, e *domain.FlowEvent) {
			m.FlowsCompleted.WithLabelValues(e.TenantID, e.FlowID, string(e.Outcome)).Inc()
		},
		OnNodeEnter: func(_ context.Context, e *domain.NodeEvent) {
			m.NodeVisits.WithLabelValues(string(e.NodeType)).Inc()
		},
		OnActionReturn: func(_ context.Context, e *domain.ActionEvent) {
			m.ActionDuration.WithLabelValues(e.ActionType, strconv.FormatBool(e.IsError)).Observe(e.Duration.Seconds())
		},
	}
}
