package dsl

import (
	"fmt"

	"github.com/aretw0/chatflow/pkg/domain"
)

// Builder manages the flow construction.
type Builder struct {
	flow  domain.Flow
	nodes []*NodeBuilder
	index map[string]*NodeBuilder
}

// New creates a builder for an active flow owned by tenantID. Without a trigger
// method the flow starts on a new conversation.
func New(id, tenantID string) *Builder {
	return &Builder{
		flow: domain.Flow{
			ID:       id,
			TenantID: tenantID,
			Status:   domain.FlowActive,
			Origin:   domain.OriginDesigner,
			Trigger:  domain.TriggerDescriptor{Type: domain.TriggerNewConversation},
		},
		index: make(map[string]*NodeBuilder),
	}
}

// Name sets the display name.
func (b *Builder) Name(name string) *Builder {
	b.flow.Name = name
	return b
}

// Priority sets the trigger evaluation order. Lower runs first.
func (b *Builder) Priority(p int) *Builder {
	b.flow.Priority = p
	return b
}

// Status overrides the default active status.
func (b *Builder) Status(s domain.FlowStatus) *Builder {
	b.flow.Status = s
	return b
}

// OnKeywords starts the flow when any keyword is present.
func (b *Builder) OnKeywords(keywords ...string) *Builder {
	b.flow.Trigger = domain.TriggerDescriptor{Type: domain.TriggerKeyword, Keywords: keywords}
	return b
}

// OnAllKeywords starts the flow only when every keyword is present.
func (b *Builder) OnAllKeywords(keywords ...string) *Builder {
	b.flow.Trigger = domain.TriggerDescriptor{Type: domain.TriggerKeyword, Keywords: keywords, MatchMode: "all"}
	return b
}

// OnNewConversation starts the flow on the first message of a conversation.
func (b *Builder) OnNewConversation() *Builder {
	b.flow.Trigger = domain.TriggerDescriptor{Type: domain.TriggerNewConversation}
	return b
}

// OnButton starts the flow when a quick reply with payload is tapped.
func (b *Builder) OnButton(payload string) *Builder {
	b.flow.Trigger = domain.TriggerDescriptor{Type: domain.TriggerButtonClick, Payload: payload}
	return b
}

// OnIntents starts the flow when the classified intent is one of intents.
func (b *Builder) OnIntents(intents ...string) *Builder {
	b.flow.Trigger = domain.TriggerDescriptor{Type: domain.TriggerIntentMatch, Intents: intents}
	return b
}

// Add creates a node of the given type.
// If the node already exists, it returns the existing builder.
func (b *Builder) Add(id string, typ domain.NodeType) *NodeBuilder {
	if nb, ok := b.index[id]; ok {
		return nb
	}
	nb := &NodeBuilder{
		node:    domain.Node{ID: id, Type: typ, Config: make(map[string]any)},
		builder: b,
	}
	b.nodes = append(b.nodes, nb)
	b.index[id] = nb
	return nb
}

// Trigger adds the entry node.
func (b *Builder) Trigger(id string) *NodeBuilder {
	return b.Add(id, domain.NodeTrigger)
}

// Message adds a send_message node.
func (b *Builder) Message(id, text string) *NodeBuilder {
	return b.Add(id, domain.NodeSendMessage).Set("text", text)
}

// Ask adds an ask_question node.
func (b *Builder) Ask(id, question string) *NodeBuilder {
	return b.Add(id, domain.NodeAskQuestion).Set("question", question)
}

// Buttons adds a button_choice node. Use Option to add the buttons.
func (b *Builder) Buttons(id, text string) *NodeBuilder {
	return b.Add(id, domain.NodeButtonChoice).Set("text", text)
}

// Condition adds a condition node. Use When and Otherwise for the branches.
func (b *Builder) Condition(id string) *NodeBuilder {
	return b.Add(id, domain.NodeCondition)
}

// Action adds an api_action node.
func (b *Builder) Action(id, actionType string, config map[string]any) *NodeBuilder {
	nb := b.Add(id, domain.NodeAPIAction).Set("action_type", actionType)
	if config != nil {
		nb.Set("config", config)
	}
	return nb
}

// Items adds a show_items node listing the items held in variable.
func (b *Builder) Items(id, variable string) *NodeBuilder {
	return b.Add(id, domain.NodeShowItems).
		Set("source", domain.ItemSourceVariable).
		Set("variable", variable)
}

// ItemsFromAction adds a show_items node fetching its items with query.
func (b *Builder) ItemsFromAction(id string, query map[string]any) *NodeBuilder {
	return b.Add(id, domain.NodeShowItems).
		Set("source", domain.ItemSourceAction).
		Set("query", query)
}

// Delay adds a delay node.
func (b *Builder) Delay(id string, seconds float64) *NodeBuilder {
	return b.Add(id, domain.NodeDelay).Set("seconds", seconds)
}

// Handoff adds a handoff node.
func (b *Builder) Handoff(id, message string) *NodeBuilder {
	return b.Add(id, domain.NodeHandoff).Set("message", message)
}

// End adds an end node.
func (b *Builder) End(id, message string) *NodeBuilder {
	return b.Add(id, domain.NodeEnd).Set("message", message)
}

// Build assembles and validates the flow.
func (b *Builder) Build() (*domain.Flow, error) {
	flow := b.flow
	flow.Nodes = make([]domain.Node, 0, len(b.nodes))
	flow.Edges = nil
	for _, nb := range b.nodes {
		node := nb.node
		if len(node.Config) == 0 {
			node.Config = nil
		}
		flow.Nodes = append(flow.Nodes, node)
		flow.Edges = append(flow.Edges, nb.edges...)
	}
	for i := range flow.Edges {
		flow.Edges[i].ID = fmt.Sprintf("e%d", i+1)
	}

	if err := domain.Validate(&flow); err != nil {
		return nil, err
	}
	return &flow, nil
}

// MustBuild is Build for statically known flows; it panics on an invalid flow.
func (b *Builder) MustBuild() *domain.Flow {
	flow, err := b.Build()
	if err != nil {
		panic(err)
	}
	return flow
}
