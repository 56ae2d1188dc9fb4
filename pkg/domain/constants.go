package domain

import "fmt"

// Reserved variable names written by the interpreter and the dispatcher.
const (
	// VarLastShownItems caches the items rendered by the last show_items node so a
	// later reply can select one of them by index.
	VarLastShownItems = "_last_shown_items"

	// VarActionError is set when an api_action could not be dispatched at all.
	VarActionError = "_action_error"
)

// Edge handles used by multi-exit nodes.
const (
	HandleDefault = "default"
)

// ButtonHandle returns the handle of the i-th (0-based) button exit.
func ButtonHandle(i int) string {
	return fmt.Sprintf("button_%d", i)
}

// ConditionHandle returns the handle of the i-th (0-based) condition rule exit.
func ConditionHandle(i int) string {
	return fmt.Sprintf("condition_%d", i)
}
