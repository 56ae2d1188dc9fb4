package domain

// FindNode returns the node with the given id.
func FindNode(flow *Flow, id string) (*Node, bool) {
	if flow == nil || id == "" {
		return nil, false
	}
	for i := range flow.Nodes {
		if flow.Nodes[i].ID == id {
			return &flow.Nodes[i], true
		}
	}
	return nil, false
}

// TriggerNode returns the node of type trigger, or the first node when the flow has none.
func TriggerNode(flow *Flow) (*Node, bool) {
	if flow == nil || len(flow.Nodes) == 0 {
		return nil, false
	}
	for i := range flow.Nodes {
		if flow.Nodes[i].Type == NodeTrigger {
			return &flow.Nodes[i], true
		}
	}
	return &flow.Nodes[0], true
}

// EdgesFrom returns the outgoing edges of a node in declaration order.
func EdgesFrom(flow *Flow, nodeID string) []Edge {
	var out []Edge
	for _, e := range flow.Edges {
		if e.Source == nodeID {
			out = append(out, e)
		}
	}
	return out
}

// FirstEdgeFrom resolves the outgoing edge of a node.
//
// Without a handle it prefers an unlabeled edge and otherwise takes the first edge.
// With a handle it prefers the edge carrying that handle, falls back to the node's
// sole unlabeled edge, and otherwise reports a dead end.
func FirstEdgeFrom(flow *Flow, nodeID, handle string) (*Edge, bool) {
	if flow == nil {
		return nil, false
	}
	edges := EdgesFrom(flow, nodeID)
	if len(edges) == 0 {
		return nil, false
	}

	var unlabeled []int
	for i, e := range edges {
		if e.SourceHandle == "" {
			unlabeled = append(unlabeled, i)
		}
	}

	if handle == "" {
		if len(unlabeled) > 0 {
			return &edges[unlabeled[0]], true
		}
		return &edges[0], true
	}

	for i, e := range edges {
		if e.SourceHandle == handle {
			return &edges[i], true
		}
	}
	if len(unlabeled) == 1 {
		return &edges[unlabeled[0]], true
	}
	return nil, false
}
