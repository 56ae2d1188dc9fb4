package domain

import (
	"fmt"

	"github.com/mitchellh/mapstructure"
)

// NodeType selects the control flow behavior of a node.
type NodeType string

const (
	// NodeTrigger is the entry point of a flow. It passes through to its outgoing edge.
	NodeTrigger NodeType = "trigger"
	// NodeSendMessage interpolates and queues a text message (soft step).
	NodeSendMessage NodeType = "send_message"
	// NodeAskQuestion queues a question and suspends for free-text input (hard step).
	NodeAskQuestion NodeType = "ask_question"
	// NodeButtonChoice queues a prompt with quick replies and suspends (hard step).
	NodeButtonChoice NodeType = "button_choice"
	// NodeCondition branches on collected variables (silent step).
	NodeCondition NodeType = "condition"
	// NodeAPIAction delegates a side-effect to the ActionDispatcher.
	NodeAPIAction NodeType = "api_action"
	// NodeShowItems renders a bounded item list and optionally suspends for a selection.
	NodeShowItems NodeType = "show_items"
	// NodeHandoff hands the conversation over to a human and terminates.
	NodeHandoff NodeType = "handoff"
	// NodeDelay is a no-op for the interpreter; pacing is the channel's concern.
	NodeDelay NodeType = "delay"
	// NodeEnd terminates the flow with an optional closing message.
	NodeEnd NodeType = "end"
)

// Known reports whether t belongs to the closed set of node types.
func (t NodeType) Known() bool {
	switch t {
	case NodeTrigger, NodeSendMessage, NodeAskQuestion, NodeButtonChoice, NodeCondition,
		NodeAPIAction, NodeShowItems, NodeHandoff, NodeDelay, NodeEnd:
		return true
	}
	return false
}

// Node represents a step in the flow graph.
// Config holds the type-specific payload; use Decode to read it into the matching variant.
type Node struct {
	ID     string         `json:"id" yaml:"id"`
	Type   NodeType       `json:"type" yaml:"type"`
	Config map[string]any `json:"config,omitempty" yaml:"config,omitempty"`
}

// Decode reads the node configuration into out (a pointer to one of the *Config types).
func (n Node) Decode(out any) error {
	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:          "mapstructure",
		WeaklyTypedInput: true,
		Result:           out,
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(n.Config); err != nil {
		return fmt.Errorf("node %s: invalid %s config: %w", n.ID, n.Type, err)
	}
	return nil
}

// SendMessageConfig configures a send_message node.
type SendMessageConfig struct {
	Text string `mapstructure:"text"`
}

// AskQuestionConfig configures an ask_question node.
type AskQuestionConfig struct {
	Question     string `mapstructure:"question"`
	Variable     string `mapstructure:"variable"`
	Validation   string `mapstructure:"validation"`
	ErrorMessage string `mapstructure:"error_message"`
}

// Button is one quick-reply option of a button_choice node.
type Button struct {
	Label string `mapstructure:"label" json:"label" yaml:"label"`
	Value string `mapstructure:"value" json:"value,omitempty" yaml:"value,omitempty"`
}

// Answer returns the value stored when the button is chosen.
func (b Button) Answer() string {
	if b.Value != "" {
		return b.Value
	}
	return b.Label
}

// ButtonChoiceConfig configures a button_choice node.
type ButtonChoiceConfig struct {
	Text         string   `mapstructure:"text"`
	Variable     string   `mapstructure:"variable"`
	Buttons      []Button `mapstructure:"buttons"`
	ErrorMessage string   `mapstructure:"error_message"`
}

// Condition operators.
const (
	OpEquals      = "equals"
	OpContains    = "contains"
	OpGreaterThan = "greater_than"
	OpLessThan    = "less_than"
	OpExists      = "exists"
)

// ConditionRule is one ordered branch of a condition node.
type ConditionRule struct {
	Variable string `mapstructure:"variable"`
	Operator string `mapstructure:"operator"`
	Value    string `mapstructure:"value"`
	// Target is the node taken when the rule matches. When empty, the
	// condition_<i> edge is followed instead.
	Target string `mapstructure:"target"`
}

// ConditionConfig configures a condition node.
type ConditionConfig struct {
	Rules         []ConditionRule `mapstructure:"rules"`
	DefaultTarget string          `mapstructure:"default_target"`
}

// APIActionConfig configures an api_action node.
type APIActionConfig struct {
	ActionType string         `mapstructure:"action_type"`
	Config     map[string]any `mapstructure:"config"`
}

// Item sources and display modes for show_items.
const (
	ItemSourceAction   = "action"
	ItemSourceVariable = "variable"

	DisplayList  = "list"
	DisplayCards = "cards"
)

// ShowItemsConfig configures a show_items node.
type ShowItemsConfig struct {
	Source       string         `mapstructure:"source"`
	Variable     string         `mapstructure:"variable"`
	Query        map[string]any `mapstructure:"query"`
	Limit        int            `mapstructure:"limit"`
	Display      string         `mapstructure:"display"`
	Title        string         `mapstructure:"title"`
	EmptyMessage string         `mapstructure:"empty_message"`
	// SelectVariable, when set, suspends the flow until the user picks an item.
	SelectVariable string `mapstructure:"select_variable"`
	ErrorMessage   string `mapstructure:"error_message"`
}

// HandoffConfig configures a handoff node.
type HandoffConfig struct {
	Message string `mapstructure:"message"`
}

// DelayConfig configures a delay node. The interpreter does not wait.
type DelayConfig struct {
	Seconds float64 `mapstructure:"seconds"`
}

// EndConfig configures an end node.
type EndConfig struct {
	Message string `mapstructure:"message"`
}
