package domain

import (
	"reflect"
)

// StateDiff represents the changes between two execution states of a conversation.
// It is designed to be serialized to JSON for operator consoles.
type StateDiff struct {
	// ConversationID is always present to identify the target.
	ConversationID string `json:"conversation_id"`

	CurrentNodeID   *string `json:"current_node_id,omitempty"`
	WaitingForInput *bool   `json:"waiting_for_input,omitempty"`

	// Variables contains only added or changed keys.
	Variables map[string]any `json:"variables,omitempty"`

	// Cleared is set when the execution ended and the state was removed.
	Cleared bool `json:"cleared,omitempty"`
}

// Diff calculates the difference between oldState and newState.
// If oldState is nil, it returns a diff representing the entire newState (flow start).
// If newState is nil while oldState is not, the diff marks the execution as cleared.
func Diff(conversationID string, oldState, newState *ExecutionState) *StateDiff {
	if oldState == nil && newState == nil {
		return nil
	}

	diff := &StateDiff{ConversationID: conversationID}

	if newState == nil {
		diff.Cleared = true
		return diff
	}

	if oldState == nil || oldState.CurrentNodeID != newState.CurrentNodeID || oldState.FlowID != newState.FlowID {
		diff.CurrentNodeID = &newState.CurrentNodeID
	}
	if oldState == nil || oldState.WaitingForInput != newState.WaitingForInput {
		diff.WaitingForInput = &newState.WaitingForInput
	}
	diff.Variables = diffVariables(oldState, newState)

	if diff.IsEmpty() {
		return nil
	}
	return diff
}

func diffVariables(old *ExecutionState, new *ExecutionState) map[string]any {
	delta := make(map[string]any)

	if old == nil {
		for k, v := range new.Variables {
			delta[k] = v
		}
	} else {
		for k, newVal := range new.Variables {
			oldVal, exists := old.Variables[k]
			if !exists || !reflect.DeepEqual(oldVal, newVal) {
				delta[k] = newVal
			}
		}
	}

	// Return nil if delta is empty so omitempty can remove the key
	if len(delta) == 0 {
		return nil
	}
	return delta
}

// IsEmpty checks if the diff contains any actionable changes.
func (d *StateDiff) IsEmpty() bool {
	return d.CurrentNodeID == nil &&
		d.WaitingForInput == nil &&
		len(d.Variables) == 0 &&
		!d.Cleared
}
