package dsl

import "github.com/aretw0/chatflow/pkg/domain"

// NodeBuilder provides a fluent API for configuring a node and its exits.
type NodeBuilder struct {
	node    domain.Node
	edges   []domain.Edge
	builder *Builder
}

// Set writes a raw configuration key.
func (n *NodeBuilder) Set(key string, value any) *NodeBuilder {
	n.node.Config[key] = value
	return n
}

// SaveTo sets the variable an input node stores the answer in.
// On show_items nodes it sets the selection variable and makes the node wait.
func (n *NodeBuilder) SaveTo(variable string) *NodeBuilder {
	if n.node.Type == domain.NodeShowItems {
		return n.Set("select_variable", variable)
	}
	return n.Set("variable", variable)
}

// Validate sets the validation rule of an ask_question node (e.g. "email").
func (n *NodeBuilder) Validate(rule, errorMessage string) *NodeBuilder {
	n.Set("validation", rule)
	if errorMessage != "" {
		n.Set("error_message", errorMessage)
	}
	return n
}

// Option appends a button. A non-empty target adds the button's exit edge.
func (n *NodeBuilder) Option(label, value, target string) *NodeBuilder {
	buttons, _ := n.node.Config["buttons"].([]any)
	i := len(buttons)
	n.node.Config["buttons"] = append(buttons, map[string]any{"label": label, "value": value})
	if target != "" {
		n.edge(target, domain.ButtonHandle(i))
	}
	return n
}

// When appends a condition rule leaving through its own handle to target.
func (n *NodeBuilder) When(variable, operator, value, target string) *NodeBuilder {
	rules, _ := n.node.Config["rules"].([]any)
	i := len(rules)
	n.node.Config["rules"] = append(rules, map[string]any{"variable": variable, "operator": operator, "value": value})
	n.edge(target, domain.ConditionHandle(i))
	return n
}

// Otherwise sets the exit taken when no rule matches.
func (n *NodeBuilder) Otherwise(target string) *NodeBuilder {
	return n.edge(target, domain.HandleDefault)
}

// Cards renders show_items as product cards instead of a numbered list.
func (n *NodeBuilder) Cards(title string) *NodeBuilder {
	n.Set("display", domain.DisplayCards)
	if title != "" {
		n.Set("title", title)
	}
	return n
}

// Limit caps the number of shown items.
func (n *NodeBuilder) Limit(limit int) *NodeBuilder {
	return n.Set("limit", limit)
}

// Go adds an unlabeled transition to the target node.
func (n *NodeBuilder) Go(target string) *NodeBuilder {
	return n.edge(target, "")
}

func (n *NodeBuilder) edge(target, handle string) *NodeBuilder {
	n.edges = append(n.edges, domain.Edge{Source: n.node.ID, Target: target, SourceHandle: handle})
	return n
}

// Then returns the flow builder to chain the next node.
func (n *NodeBuilder) Then() *Builder {
	return n.builder
}

// Build returns the underlying domain.Node.
func (n *NodeBuilder) Build() domain.Node {
	return n.node
}
