package graph_test

import (
	"strings"
	"testing"

	"github.com/aretw0/chatflow/internal/presentation/graph"
	"github.com/aretw0/chatflow/pkg/domain"
)

func TestGenerateMermaid(t *testing.T) {
	tests := []struct {
		name     string
		flow     domain.Flow
		overlay  *graph.GraphOverlay
		contains []string
		excludes []string
	}{
		{
			name: "Node Shapes",
			flow: domain.Flow{Nodes: []domain.Node{
				{ID: "start", Type: domain.NodeTrigger},
				{ID: "call", Type: domain.NodeAPIAction},
				{ID: "ask", Type: domain.NodeAskQuestion},
				{ID: "check", Type: domain.NodeCondition},
				{ID: "bye", Type: domain.NodeEnd},
				{ID: "say", Type: domain.NodeSendMessage},
				{ID: "list", Type: domain.NodeShowItems},
				{ID: "pick", Type: domain.NodeShowItems, Config: map[string]any{"select_variable": "product"}},
			}},
			contains: []string{
				`start(("start <br/> <i>trigger</i>"))`,
				`call[["call <br/> <i>api_action</i>"]]`,
				`ask[/"ask <br/> <i>ask_question</i>"/]`,
				`check{"check <br/> <i>condition</i>"}`,
				`bye(["bye <br/> <i>end</i>"])`,
				`say["say <br/> <i>send_message</i>"]`,
				`list["list <br/> <i>show_items</i>"]`,
				`pick[/"pick <br/> <i>show_items</i>"/]`,
			},
		},
		{
			name: "Button And Rule Labels",
			flow: domain.Flow{
				Nodes: []domain.Node{
					{ID: "size", Type: domain.NodeButtonChoice, Config: map[string]any{
						"buttons": []any{map[string]any{"label": "Small"}, map[string]any{"label": "Large \"XL\""}},
					}},
					{ID: "route", Type: domain.NodeCondition, Config: map[string]any{
						"rules": []any{map[string]any{"variable": "age", "operator": "greater_than", "value": "17"}},
					}},
					{ID: "a", Type: domain.NodeEnd},
					{ID: "b", Type: domain.NodeEnd},
				},
				Edges: []domain.Edge{
					{Source: "size", Target: "route", SourceHandle: "button_0"},
					{Source: "size", Target: "b", SourceHandle: "button_1"},
					{Source: "route", Target: "a", SourceHandle: "condition_0"},
					{Source: "route", Target: "b", SourceHandle: "default"},
					{Source: "a", Target: "b"},
				},
			},
			contains: []string{
				`size -- "Small" --> route`,
				`size -- "Large 'XL'" --> b`,
				`route -- "age greater_than 17" --> a`,
				`route -- "default" --> b`,
				`a --> b`,
			},
		},
		{
			name: "Unknown Handle Kept",
			flow: domain.Flow{
				Nodes: []domain.Node{{ID: "x", Type: domain.NodeButtonChoice}, {ID: "y", Type: domain.NodeEnd}},
				Edges: []domain.Edge{{Source: "x", Target: "y", SourceHandle: "button_9"}},
			},
			contains: []string{`x -- "button_9" --> y`},
		},
		{
			name: "ID Sanitization",
			flow: domain.Flow{
				Nodes: []domain.Node{{ID: "ask-name.v2"}, {ID: "next step"}},
				Edges: []domain.Edge{{Source: "ask-name.v2", Target: "next step"}},
			},
			contains: []string{`ask_name_v2 --> next_step`},
		},
		{
			name: "Overlay",
			flow: domain.Flow{Nodes: []domain.Node{{ID: "a"}, {ID: "b"}}},
			overlay: &graph.GraphOverlay{
				VisitedNodes: []string{"a", "a"},
				CurrentNode:  "b",
			},
			contains: []string{
				"classDef current",
				"class a visited;",
				"class b current;",
			},
		},
		{
			name:     "No Overlay",
			flow:     domain.Flow{Nodes: []domain.Node{{ID: "a"}}},
			excludes: []string{"classDef"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := graph.GenerateMermaid(&tt.flow, tt.overlay)
			if !strings.HasPrefix(got, "graph TD\n") {
				t.Errorf("missing header in:\n%s", got)
			}
			for _, want := range tt.contains {
				if !strings.Contains(got, want) {
					t.Errorf("expected output to contain %q, got:\n%s", want, got)
				}
			}
			for _, unwanted := range tt.excludes {
				if strings.Contains(got, unwanted) {
					t.Errorf("expected output not to contain %q, got:\n%s", unwanted, got)
				}
			}
			if n := strings.Count(got, "class a visited;"); n > 1 {
				t.Errorf("visited node styled %d times", n)
			}
		})
	}
}

func TestOverlayFromState(t *testing.T) {
	if graph.OverlayFromState(nil) != nil {
		t.Error("expected nil overlay for nil state")
	}
	o := graph.OverlayFromState(&domain.ExecutionState{CurrentNodeID: "q"})
	if o == nil || o.CurrentNode != "q" {
		t.Errorf("unexpected overlay %+v", o)
	}
}
