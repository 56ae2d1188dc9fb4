package domain

import (
	"context"
	"time"
)

// EventType defines the category of the event.
type EventType string

const (
	EventFlowStart    EventType = "flow_start"
	EventFlowComplete EventType = "flow_complete"
	EventNodeEnter    EventType = "node_enter"
	EventActionCall   EventType = "action_call"
	EventActionReturn EventType = "action_return"
)

// EventBase contains common fields for all events.
type EventBase struct {
	Timestamp     time.Time `json:"timestamp"`
	Type          EventType `json:"type"`
	FlowID        string    `json:"flow_id"`
	CorrelationID string    `json:"correlation_id"`
}

// FlowEvent represents the start or the end of an execution.
type FlowEvent struct {
	EventBase
	TenantID   string  `json:"tenant_id"`
	ExitNodeID string  `json:"exit_node_id,omitempty"`
	Outcome    Outcome `json:"outcome,omitempty"`
}

// NodeEvent represents the interpreter visiting a node.
type NodeEvent struct {
	EventBase
	NodeID   string   `json:"node_id"`
	NodeType NodeType `json:"node_type"`
}

// ActionEvent represents an api_action dispatch.
type ActionEvent struct {
	EventBase
	NodeID     string        `json:"node_id"`
	ActionType string        `json:"action_type"`
	Duration   time.Duration `json:"duration,omitempty"`
	IsError    bool          `json:"is_error,omitempty"`
}

// LifecycleHooks defines callbacks for engine observability.
type LifecycleHooks struct {
	OnFlowStart    func(context.Context, *FlowEvent)
	OnFlowComplete func(context.Context, *FlowEvent)
	OnNodeEnter    func(context.Context, *NodeEvent)
	OnActionCall   func(context.Context, *ActionEvent)
	OnActionReturn func(context.Context, *ActionEvent)
}
