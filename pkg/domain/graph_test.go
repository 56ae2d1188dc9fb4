package domain_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aretw0/chatflow/pkg/domain"
)

func branchingFlow() *domain.Flow {
	return &domain.Flow{
		ID:      "sizes",
		Status:  domain.FlowActive,
		Trigger: domain.TriggerDescriptor{Type: domain.TriggerButtonClick, Payload: "SIZES"},
		Nodes: []domain.Node{
			{ID: "t", Type: domain.NodeTrigger},
			{ID: "pick", Type: domain.NodeButtonChoice},
			{ID: "small", Type: domain.NodeSendMessage},
			{ID: "fallback", Type: domain.NodeSendMessage},
		},
		Edges: []domain.Edge{
			{Source: "t", Target: "pick"},
			{Source: "pick", Target: "small", SourceHandle: "button_0"},
			{Source: "pick", Target: "fallback"},
		},
	}
}

func TestFindNode(t *testing.T) {
	flow := branchingFlow()

	n, ok := domain.FindNode(flow, "pick")
	require.True(t, ok)
	assert.Equal(t, domain.NodeButtonChoice, n.Type)

	_, ok = domain.FindNode(flow, "missing")
	assert.False(t, ok)

	_, ok = domain.FindNode(nil, "pick")
	assert.False(t, ok)
}

func TestFirstEdgeFrom(t *testing.T) {
	flow := branchingFlow()

	t.Run("Handle Match", func(t *testing.T) {
		e, ok := domain.FirstEdgeFrom(flow, "pick", "button_0")
		require.True(t, ok)
		assert.Equal(t, "small", e.Target)
	})

	t.Run("Handle Falls Back To Sole Unlabeled Edge", func(t *testing.T) {
		e, ok := domain.FirstEdgeFrom(flow, "pick", "button_7")
		require.True(t, ok)
		assert.Equal(t, "fallback", e.Target)
	})

	t.Run("No Handle Prefers Unlabeled", func(t *testing.T) {
		e, ok := domain.FirstEdgeFrom(flow, "pick", "")
		require.True(t, ok)
		assert.Equal(t, "fallback", e.Target)
	})

	t.Run("No Handle Takes Labeled When Alone", func(t *testing.T) {
		f := &domain.Flow{Edges: []domain.Edge{{Source: "a", Target: "b", SourceHandle: "out"}}}
		e, ok := domain.FirstEdgeFrom(f, "a", "")
		require.True(t, ok)
		assert.Equal(t, "b", e.Target)
	})

	t.Run("Dead End", func(t *testing.T) {
		f := &domain.Flow{Edges: []domain.Edge{{Source: "a", Target: "b", SourceHandle: "button_0"}}}
		_, ok := domain.FirstEdgeFrom(f, "a", "button_1")
		assert.False(t, ok)

		_, ok = domain.FirstEdgeFrom(flow, "small", "")
		assert.False(t, ok)
	})
}

func TestTriggerNode(t *testing.T) {
	n, ok := domain.TriggerNode(branchingFlow())
	require.True(t, ok)
	assert.Equal(t, "t", n.ID)

	noTrigger := &domain.Flow{Nodes: []domain.Node{{ID: "first", Type: domain.NodeSendMessage}}}
	n, ok = domain.TriggerNode(noTrigger)
	require.True(t, ok)
	assert.Equal(t, "first", n.ID)
}

func TestValidate(t *testing.T) {
	assert.NoError(t, domain.Validate(branchingFlow()))

	broken := branchingFlow()
	broken.Nodes = append(broken.Nodes, domain.Node{ID: "t2", Type: domain.NodeTrigger}, domain.Node{ID: "pick", Type: domain.NodeEnd})
	broken.Edges = append(broken.Edges, domain.Edge{Source: "pick", Target: "ghost"})

	err := domain.Validate(broken)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidFlow))

	var vErr *domain.ValidationError
	require.ErrorAs(t, err, &vErr)
	assert.Equal(t, "sizes", vErr.FlowID)
	assert.Len(t, vErr.Problems, 3)
}

func TestNodeDecode(t *testing.T) {
	node := domain.Node{
		ID:   "pick",
		Type: domain.NodeButtonChoice,
		Config: map[string]any{
			"text":     "Which size?",
			"variable": "size",
			"buttons": []any{
				map[string]any{"label": "Small", "value": "s"},
				map[string]any{"label": "Large"},
			},
		},
	}

	var cfg domain.ButtonChoiceConfig
	require.NoError(t, node.Decode(&cfg))
	assert.Equal(t, "Which size?", cfg.Text)
	require.Len(t, cfg.Buttons, 2)
	assert.Equal(t, "s", cfg.Buttons[0].Answer())
	assert.Equal(t, "Large", cfg.Buttons[1].Answer())
}

func TestExecutionStateClone(t *testing.T) {
	flow := branchingFlow()
	s := domain.NewExecutionState(flow, "conv-1")
	assert.Equal(t, "t", s.CurrentNodeID)
	assert.NotEmpty(t, s.CorrelationID)
	assert.Empty(t, s.Variables)

	s.Variables["name"] = "Ana"
	c := s.Clone()
	c.Variables["name"] = "Bea"
	assert.Equal(t, "Ana", s.Variables["name"])
}
