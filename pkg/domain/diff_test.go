package domain

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
)

func TestDiff(t *testing.T) {
	waiting := true

	tests := []struct {
		name     string
		old      *ExecutionState
		new      *ExecutionState
		wantDiff *StateDiff // nil means we expect no diff
	}{
		{
			name: "Flow Start (Old is Nil)",
			old:  nil,
			new: &ExecutionState{
				FlowID:        "welcome",
				CurrentNodeID: "ask_name",
				Variables:     map[string]any{"a": 1},
			},
			wantDiff: &StateDiff{
				ConversationID: "conv-1",
				CurrentNodeID:  &[]string{"ask_name"}[0],
				Variables:      map[string]any{"a": 1},
			},
		},
		{
			name: "No Changes",
			old: &ExecutionState{
				FlowID:        "welcome",
				CurrentNodeID: "ask_name",
				Variables:     map[string]any{"a": 1},
			},
			new: &ExecutionState{
				FlowID:        "welcome",
				CurrentNodeID: "ask_name",
				Variables:     map[string]any{"a": 1},
			},
			wantDiff: nil,
		},
		{
			name: "Variables Added & Modified",
			old: &ExecutionState{
				CurrentNodeID: "mid",
				Variables:     map[string]any{"a": 1, "b": "old"},
			},
			new: &ExecutionState{
				CurrentNodeID:   "mid",
				WaitingForInput: true,
				Variables:       map[string]any{"a": 1, "b": "new", "c": true},
			},
			wantDiff: &StateDiff{
				ConversationID:  "conv-1",
				WaitingForInput: &waiting,
				Variables:       map[string]any{"b": "new", "c": true},
			},
		},
		{
			name:     "Execution Cleared",
			old:      &ExecutionState{CurrentNodeID: "end"},
			new:      nil,
			wantDiff: &StateDiff{ConversationID: "conv-1", Cleared: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Diff("conv-1", tt.old, tt.new)
			if tt.wantDiff == nil {
				if got != nil {
					t.Errorf("Diff() = %v, want nil", got)
				}
				return
			}

			if got == nil {
				t.Fatalf("Diff() = nil, want %v", tt.wantDiff)
			}
			if got.ConversationID != tt.wantDiff.ConversationID {
				t.Errorf("Diff().ConversationID = %v, want %v", got.ConversationID, tt.wantDiff.ConversationID)
			}
			if !reflect.DeepEqual(got.Variables, tt.wantDiff.Variables) {
				t.Errorf("Diff().Variables = %v, want %v", got.Variables, tt.wantDiff.Variables)
			}
			if !equalPtr(got.CurrentNodeID, tt.wantDiff.CurrentNodeID) {
				t.Errorf("Diff().CurrentNodeID = %v, want %v", got.CurrentNodeID, tt.wantDiff.CurrentNodeID)
			}
			if !equalPtr(got.WaitingForInput, tt.wantDiff.WaitingForInput) {
				t.Errorf("Diff().WaitingForInput = %v, want %v", got.WaitingForInput, tt.wantDiff.WaitingForInput)
			}
			if got.Cleared != tt.wantDiff.Cleared {
				t.Errorf("Diff().Cleared = %v, want %v", got.Cleared, tt.wantDiff.Cleared)
			}
		})
	}
}

func TestDiffJSONSerialization(t *testing.T) {
	t.Run("Empty Variables Omitted", func(t *testing.T) {
		s1 := &ExecutionState{CurrentNodeID: "a", Variables: map[string]any{"x": 1}}
		s2 := &ExecutionState{CurrentNodeID: "b", Variables: map[string]any{"x": 1}}
		diff := Diff("conv", s1, s2)
		if diff == nil {
			t.Fatal("Expected diff, got nil")
		}

		bytes, _ := json.Marshal(diff)
		if strings.Contains(string(bytes), `"variables"`) {
			t.Errorf("JSON should not contain 'variables' when unchanged, got: %s", string(bytes))
		}
	})
}

func equalPtr[T comparable](a, b *T) bool {
	if a == nil && b == nil {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	return *a == *b
}
