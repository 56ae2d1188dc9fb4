package domain

import "time"

// FlowStatus is the lifecycle status of a flow definition.
type FlowStatus string

const (
	FlowDraft    FlowStatus = "draft"
	FlowActive   FlowStatus = "active"
	FlowArchived FlowStatus = "archived"
)

// FlowOrigin tells whether a flow was authored in the designer or instantiated from a template.
type FlowOrigin string

const (
	OriginDesigner FlowOrigin = "designer"
	OriginTemplate FlowOrigin = "template"
)

// TriggerType selects how a flow is started.
type TriggerType string

const (
	TriggerKeyword         TriggerType = "keyword"
	TriggerNewConversation TriggerType = "new_conversation"
	TriggerButtonClick     TriggerType = "button_click"
	TriggerIntentMatch     TriggerType = "intent_match"
)

// Keyword match modes.
const (
	MatchAny = "any"
	MatchAll = "all"
)

// TriggerDescriptor describes the condition that starts a flow.
type TriggerDescriptor struct {
	Type      TriggerType `json:"type" yaml:"type"`
	Keywords  []string    `json:"keywords,omitempty" yaml:"keywords,omitempty"`
	MatchMode string      `json:"match_mode,omitempty" yaml:"match_mode,omitempty"`
	Payload   string      `json:"payload,omitempty" yaml:"payload,omitempty"`
	Intents   []string    `json:"intents,omitempty" yaml:"intents,omitempty"`
}

// Flow is a tenant-owned conversation script represented as a node/edge graph.
type Flow struct {
	ID       string            `json:"id" yaml:"id"`
	TenantID string            `json:"tenant_id" yaml:"tenant_id"`
	Name     string            `json:"name" yaml:"name"`
	Status   FlowStatus        `json:"status" yaml:"status"`
	Origin   FlowOrigin        `json:"origin,omitempty" yaml:"origin,omitempty"`
	Trigger  TriggerDescriptor `json:"trigger" yaml:"trigger"`
	Nodes    []Node            `json:"nodes" yaml:"nodes"`
	Edges    []Edge            `json:"edges" yaml:"edges"`
	// Priority orders trigger evaluation. Lower values are evaluated first.
	Priority int `json:"priority" yaml:"priority"`

	TimesTriggered int64     `json:"times_triggered" yaml:"times_triggered,omitempty"`
	TimesCompleted int64     `json:"times_completed" yaml:"times_completed,omitempty"`
	UpdatedAt      time.Time `json:"updated_at,omitempty" yaml:"updated_at,omitempty"`
}

// IsActive reports whether the flow may be triggered.
func (f *Flow) IsActive() bool {
	return f.Status == FlowActive
}
