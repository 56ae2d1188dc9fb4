package graph

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/aretw0/chatflow/pkg/domain"
)

// GraphOverlay contains execution data to visualize on the graph.
type GraphOverlay struct {
	VisitedNodes []string
	CurrentNode  string
}

// OverlayFromState highlights the node an execution is parked at.
func OverlayFromState(state *domain.ExecutionState) *GraphOverlay {
	if state == nil {
		return nil
	}
	return &GraphOverlay{CurrentNode: state.CurrentNodeID}
}

// GenerateMermaid produces a Mermaid flowchart of a flow.
// It applies semantic styling:
// - Trigger: ((Circle))
// - API action: [[Subroutine]]
// - Input (question, buttons, selectable items): [/Parallelogram/]
// - Condition: {Rhombus}
// - Handoff and end: ([Stadium])
// - Default: [Rectangle]
// Edges leaving through a button or rule handle are labeled with the button
// label or the rule.
func GenerateMermaid(flow *domain.Flow, overlay *GraphOverlay) string {
	var sb strings.Builder
	sb.WriteString("graph TD\n")
	if flow == nil {
		return sb.String()
	}

	for _, node := range flow.Nodes {
		opener, closer := shape(node)
		fmt.Fprintf(&sb, "    %s%s\"%s <br/> <i>%s</i>\"%s\n",
			sanitizeMermaidID(node.ID), opener, escape(node.ID), node.Type, closer)
	}

	for _, e := range flow.Edges {
		arrow := "-->"
		if label := edgeLabel(flow, e); label != "" {
			arrow = fmt.Sprintf("-- \"%s\" -->", escape(label))
		}
		fmt.Fprintf(&sb, "    %s %s %s\n", sanitizeMermaidID(e.Source), arrow, sanitizeMermaidID(e.Target))
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		// Force black text (color:#000) for high-contrast on light backgrounds, regardless of theme.
		sb.WriteString("    classDef visited fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef current fill:#ffeb3b,stroke:#fbc02d,stroke-width:4px,color:#000;\n")

		visited := make(map[string]bool)
		for _, id := range overlay.VisitedNodes {
			safeID := sanitizeMermaidID(id)
			if !visited[safeID] && safeID != "" {
				visited[safeID] = true
				fmt.Fprintf(&sb, "    class %s visited;\n", safeID)
			}
		}
		if overlay.CurrentNode != "" {
			fmt.Fprintf(&sb, "    class %s current;\n", sanitizeMermaidID(overlay.CurrentNode))
		}
	}

	return sb.String()
}

func shape(node domain.Node) (string, string) {
	switch node.Type {
	case domain.NodeTrigger:
		return "((", "))"
	case domain.NodeAPIAction:
		return "[[", "]]"
	case domain.NodeAskQuestion, domain.NodeButtonChoice:
		return "[/", "/]"
	case domain.NodeShowItems:
		var cfg domain.ShowItemsConfig
		if node.Decode(&cfg) == nil && cfg.SelectVariable != "" {
			return "[/", "/]"
		}
	case domain.NodeCondition:
		return "{", "}"
	case domain.NodeHandoff, domain.NodeEnd:
		return "([", "])"
	}
	return "[", "]"
}

// edgeLabel describes the handle an edge leaves through.
func edgeLabel(flow *domain.Flow, e domain.Edge) string {
	handle := e.SourceHandle
	switch {
	case handle == "":
		return ""
	case handle == domain.HandleDefault:
		return "default"
	}

	node, ok := domain.FindNode(flow, e.Source)
	if !ok {
		return handle
	}

	if i, ok := handleIndex(handle, "button_"); ok && node.Type == domain.NodeButtonChoice {
		var cfg domain.ButtonChoiceConfig
		if node.Decode(&cfg) == nil && i < len(cfg.Buttons) {
			return cfg.Buttons[i].Label
		}
	}
	if i, ok := handleIndex(handle, "condition_"); ok && node.Type == domain.NodeCondition {
		var cfg domain.ConditionConfig
		if node.Decode(&cfg) == nil && i < len(cfg.Rules) {
			r := cfg.Rules[i]
			return strings.TrimSpace(fmt.Sprintf("%s %s %s", r.Variable, r.Operator, r.Value))
		}
	}
	return handle
}

func handleIndex(handle, prefix string) (int, bool) {
	if !strings.HasPrefix(handle, prefix) {
		return 0, false
	}
	i, err := strconv.Atoi(strings.TrimPrefix(handle, prefix))
	if err != nil || i < 0 {
		return 0, false
	}
	return i, true
}

// escape swaps double quotes, which would end a Mermaid label.
func escape(s string) string {
	return strings.ReplaceAll(s, "\"", "'")
}

func sanitizeMermaidID(id string) string {
	s := strings.ReplaceAll(id, ".", "_")
	s = strings.ReplaceAll(s, "-", "_")
	s = strings.ReplaceAll(s, "/", "_")
	s = strings.ReplaceAll(s, "\\", "_")
	s = strings.ReplaceAll(s, " ", "_")
	return s
}
