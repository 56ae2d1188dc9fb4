package domain

import (
	"fmt"
	"strings"
)

// ValidationError lists every structural problem found in a flow definition.
type ValidationError struct {
	FlowID   string
	Problems []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("flow '%s' is invalid: %s", e.FlowID, strings.Join(e.Problems, "; "))
}

// Unwrap allows errors.Is(err, ErrInvalidFlow).
func (e *ValidationError) Unwrap() error {
	return ErrInvalidFlow
}

// Validate checks the structural invariants of a flow: unique node ids, at most one
// trigger node and edges that reference existing nodes.
func Validate(flow *Flow) error {
	if flow == nil {
		return fmt.Errorf("%w: nil flow", ErrInvalidFlow)
	}

	var problems []string
	if flow.ID == "" {
		problems = append(problems, "missing id")
	}
	switch flow.Status {
	case FlowDraft, FlowActive, FlowArchived:
	default:
		problems = append(problems, fmt.Sprintf("unknown status '%s'", flow.Status))
	}
	switch flow.Trigger.Type {
	case TriggerKeyword, TriggerNewConversation, TriggerButtonClick, TriggerIntentMatch:
	default:
		problems = append(problems, fmt.Sprintf("unknown trigger type '%s'", flow.Trigger.Type))
	}
	if flow.Trigger.Type == TriggerKeyword && len(flow.Trigger.Keywords) == 0 {
		problems = append(problems, "keyword trigger without keywords")
	}

	ids := make(map[string]bool, len(flow.Nodes))
	triggers := 0
	for _, n := range flow.Nodes {
		if n.ID == "" {
			problems = append(problems, "node with empty id")
			continue
		}
		if ids[n.ID] {
			problems = append(problems, fmt.Sprintf("duplicate node id '%s'", n.ID))
		}
		ids[n.ID] = true
		if n.Type == NodeTrigger {
			triggers++
		}
	}
	if triggers > 1 {
		problems = append(problems, fmt.Sprintf("%d trigger nodes (at most one allowed)", triggers))
	}

	for _, e := range flow.Edges {
		if !ids[e.Source] {
			problems = append(problems, fmt.Sprintf("edge %s references unknown source '%s'", edgeLabel(e), e.Source))
		}
		if !ids[e.Target] {
			problems = append(problems, fmt.Sprintf("edge %s references unknown target '%s'", edgeLabel(e), e.Target))
		}
	}

	if len(problems) > 0 {
		return &ValidationError{FlowID: flow.ID, Problems: problems}
	}
	return nil
}

func edgeLabel(e Edge) string {
	if e.ID != "" {
		return e.ID
	}
	return e.Source + "->" + e.Target
}
