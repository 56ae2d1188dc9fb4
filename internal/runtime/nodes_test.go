package runtime_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/chatflow/internal/runtime"
	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockDispatcher struct {
	mock.Mock
}

func (m *mockDispatcher) Execute(ctx context.Context, actionType string, config, vars map[string]any) (map[string]any, error) {
	args := m.Called(ctx, actionType, config, vars)
	out, _ := args.Get(0).(map[string]any)
	return out, args.Error(1)
}

func (m *mockDispatcher) FetchItems(ctx context.Context, query, vars map[string]any) ([]domain.Item, error) {
	args := m.Called(ctx, query, vars)
	out, _ := args.Get(0).([]domain.Item)
	return out, args.Error(1)
}

func conditionFlow(rules ...map[string]any) *domain.Flow {
	list := make([]any, len(rules))
	for i, r := range rules {
		list[i] = r
	}
	return newFlow(
		[]domain.Node{
			node("c", domain.NodeCondition, map[string]any{"rules": list}),
			node("first", domain.NodeEnd, map[string]any{"message": "first"}),
			node("second", domain.NodeEnd, map[string]any{"message": "second"}),
			node("fallback", domain.NodeEnd, map[string]any{"message": "fallback"}),
		},
		edge("c", "first", "condition_0"),
		edge("c", "second", "condition_1"),
		edge("c", "fallback", "default"),
	)
}

func runWithVars(t *testing.T, flow *domain.Flow, vars map[string]any) []string {
	t.Helper()
	state := domain.NewExecutionState(flow, "c1")
	state.Variables = vars
	res, err := runtime.NewEngine(nil).Step(context.Background(), state, "", flow)
	require.NoError(t, err)
	return texts(res.Messages)
}

func TestCondition_Operators(t *testing.T) {
	tests := []struct {
		name string
		rule map[string]any
		vars map[string]any
		want string
	}{
		{"equals ignores case", map[string]any{"variable": "city", "operator": "equals", "value": "Lima"}, map[string]any{"city": "LIMA"}, "first"},
		{"equals mismatch", map[string]any{"variable": "city", "operator": "equals", "value": "Lima"}, map[string]any{"city": "Quito"}, "fallback"},
		{"contains", map[string]any{"variable": "msg", "operator": "contains", "value": "refund"}, map[string]any{"msg": "I want a Refund now"}, "first"},
		{"greater than", map[string]any{"variable": "qty", "operator": "greater_than", "value": "10"}, map[string]any{"qty": "12"}, "first"},
		{"greater than with float", map[string]any{"variable": "total", "operator": "greater_than", "value": "99,5"}, map[string]any{"total": 100.0}, "first"},
		{"less than false", map[string]any{"variable": "qty", "operator": "less_than", "value": "10"}, map[string]any{"qty": "12"}, "fallback"},
		{"not a number", map[string]any{"variable": "qty", "operator": "less_than", "value": "10"}, map[string]any{"qty": "few"}, "fallback"},
		{"exists", map[string]any{"variable": "email", "operator": "exists"}, map[string]any{"email": "a@b.co"}, "first"},
		{"exists empty string", map[string]any{"variable": "email", "operator": "exists"}, map[string]any{"email": "  "}, "fallback"},
		{"missing variable", map[string]any{"variable": "email", "operator": "equals", "value": ""}, map[string]any{}, "fallback"},
		{"unknown operator", map[string]any{"variable": "city", "operator": "matches", "value": "Lima"}, map[string]any{"city": "Lima"}, "fallback"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := runWithVars(t, conditionFlow(tt.rule), tt.vars)
			assert.Equal(t, []string{tt.want}, got)
		})
	}
}

func TestCondition_FirstMatchWins(t *testing.T) {
	flow := conditionFlow(
		map[string]any{"variable": "n", "operator": "greater_than", "value": "1"},
		map[string]any{"variable": "n", "operator": "greater_than", "value": "0"},
	)
	assert.Equal(t, []string{"first"}, runWithVars(t, flow, map[string]any{"n": "5"}))
	assert.Equal(t, []string{"second"}, runWithVars(t, flow, map[string]any{"n": "0.5"}))
}

func TestCondition_ExplicitTargets(t *testing.T) {
	flow := newFlow(
		[]domain.Node{
			node("c", domain.NodeCondition, map[string]any{
				"rules": []any{
					map[string]any{"variable": "vip", "operator": "equals", "value": "yes", "target": "second"},
				},
				"default_target": "first",
			}),
			node("first", domain.NodeEnd, map[string]any{"message": "first"}),
			node("second", domain.NodeEnd, map[string]any{"message": "second"}),
		},
	)
	assert.Equal(t, []string{"second"}, runWithVars(t, flow, map[string]any{"vip": "yes"}))
	assert.Equal(t, []string{"first"}, runWithVars(t, flow, map[string]any{"vip": "no"}))
}

func TestAPIAction_MergesResult(t *testing.T) {
	d := new(mockDispatcher)
	d.On("Execute", mock.Anything, "create_record", mock.Anything, mock.Anything).
		Return(map[string]any{"record_id": "R-1"}, nil).Once()

	flow := newFlow(
		[]domain.Node{
			node("a", domain.NodeAPIAction, map[string]any{
				"action_type": "create_record",
				"config":      map[string]any{"kind": "appointment"},
			}),
			node("s", domain.NodeSendMessage, map[string]any{"text": "Booked {{record_id}}"}),
		},
		edge("a", "s", ""),
	)

	var calls, returns int
	engine := runtime.NewEngine(d, runtime.WithLifecycleHooks(domain.LifecycleHooks{
		OnActionCall:   func(context.Context, *domain.ActionEvent) { calls++ },
		OnActionReturn: func(_ context.Context, e *domain.ActionEvent) { returns++; assert.False(t, e.IsError) },
	}))
	res, err := engine.Start(context.Background(), flow, "c1")
	require.NoError(t, err)
	assert.Equal(t, []string{"Booked R-1"}, texts(res.Messages))
	assert.Equal(t, 1, calls)
	assert.Equal(t, 1, returns)
	d.AssertExpectations(t)
}

func TestAPIAction_ErrorSetsMarker(t *testing.T) {
	d := new(mockDispatcher)
	d.On("Execute", mock.Anything, "webhook", mock.Anything, mock.Anything).
		Return(nil, errors.New("boom"))

	flow := newFlow(
		[]domain.Node{
			node("a", domain.NodeAPIAction, map[string]any{"action_type": "webhook"}),
			node("q", domain.NodeAskQuestion, map[string]any{"question": "Error was {{_action_error}}"}),
		},
		edge("a", "q", ""),
	)

	res, err := runtime.NewEngine(d).Start(context.Background(), flow, "c1")
	require.NoError(t, err)
	assert.Equal(t, []string{"Error was boom"}, texts(res.Messages))
	assert.Equal(t, "boom", res.State.Variables[domain.VarActionError])
}

func TestAPIAction_NoDispatcher(t *testing.T) {
	flow := newFlow(
		[]domain.Node{
			node("a", domain.NodeAPIAction, map[string]any{"action_type": "webhook"}),
			node("q", domain.NodeAskQuestion, map[string]any{"question": "next"}),
		},
		edge("a", "q", ""),
	)

	res, err := runtime.NewEngine(nil).Start(context.Background(), flow, "c1")
	require.NoError(t, err)
	assert.Contains(t, res.State.Variables, domain.VarActionError)
}

func menuItems() []domain.Item {
	return []domain.Item{
		{ID: "p1", Name: "Margherita", Price: 10},
		{ID: "p2", Name: "Pepperoni", Price: 12.5},
		{ID: "p3", Name: "Hawaiian"},
	}
}

func showItemsFlow(cfg map[string]any) *domain.Flow {
	return newFlow(
		[]domain.Node{
			node("items", domain.NodeShowItems, cfg),
			node("done", domain.NodeEnd, map[string]any{"message": "You chose {{pizza_name}} ({{pizza}})"}),
		},
		edge("items", "done", ""),
	)
}

func TestShowItems_SelectionByIndexAndName(t *testing.T) {
	d := new(mockDispatcher)
	d.On("FetchItems", mock.Anything, map[string]any{"category": "pizza"}, mock.Anything).Return(menuItems(), nil)

	flow := showItemsFlow(map[string]any{
		"source":          "action",
		"query":           map[string]any{"category": "{{wanted}}"},
		"title":           "Our pizzas:",
		"select_variable": "pizza",
	})
	engine := runtime.NewEngine(d)

	state := domain.NewExecutionState(flow, "c1")
	state.Variables["wanted"] = "pizza"
	res, err := engine.Step(context.Background(), state, "", flow)
	require.NoError(t, err)
	require.Len(t, res.Messages, 1)
	assert.Equal(t, "Our pizzas:\n1. Margherita - 10.00\n2. Pepperoni - 12.50\n3. Hawaiian", res.Messages[0].Text)
	require.NotNil(t, res.State)
	assert.True(t, res.State.WaitingForInput)
	assert.Len(t, res.State.Variables[domain.VarLastShownItems], 3)

	t.Run("By Index", func(t *testing.T) {
		next, err := engine.Step(context.Background(), res.State, "2", flow)
		require.NoError(t, err)
		assert.Equal(t, []string{"You chose Pepperoni (p2)"}, texts(next.Messages))
	})

	t.Run("By Name", func(t *testing.T) {
		next, err := engine.Step(context.Background(), res.State, "hawaiian please", flow)
		require.NoError(t, err)
		assert.Equal(t, []string{"You chose Hawaiian (p3)"}, texts(next.Messages))
	})

	t.Run("Invalid Selection", func(t *testing.T) {
		next, err := engine.Step(context.Background(), res.State, "9", flow)
		require.NoError(t, err)
		assert.False(t, next.Completed)
		assert.Equal(t, "items", next.State.CurrentNodeID)
	})
}

func TestShowItems_FromVariableAsCards(t *testing.T) {
	flow := showItemsFlow(map[string]any{
		"source":   "variable",
		"variable": "results",
		"display":  "cards",
		"limit":    2,
	})
	state := domain.NewExecutionState(flow, "c1")
	state.Variables["results"] = []any{
		map[string]any{"id": "a", "name": "A", "price": "3.5"},
		map[string]any{"id": "b", "name": "B"},
		map[string]any{"id": "c", "name": "C"},
	}

	res, err := runtime.NewEngine(nil).Step(context.Background(), state, "", flow)
	require.NoError(t, err)
	require.Len(t, res.Messages, 2)
	assert.Equal(t, domain.MessageProductCards, res.Messages[0].Type)
	assert.Len(t, res.Messages[0].Cards, 2)
	assert.Equal(t, 3.5, res.Messages[0].Cards[0].Price)
	assert.True(t, res.Completed, "without select_variable the walk continues")
}

func TestShowItems_EmptyMessage(t *testing.T) {
	d := new(mockDispatcher)
	d.On("FetchItems", mock.Anything, mock.Anything, mock.Anything).Return([]domain.Item{}, nil)

	flow := showItemsFlow(map[string]any{
		"empty_message":   "Nothing found",
		"select_variable": "pizza",
	})
	res, err := runtime.NewEngine(d).Start(context.Background(), flow, "c1")
	require.NoError(t, err)
	assert.Equal(t, "Nothing found", res.Messages[0].Text)
	assert.True(t, res.Completed)
	require.NotNil(t, res.Final)
	shown, ok := res.Final.Variables[domain.VarLastShownItems]
	require.True(t, ok)
	assert.Empty(t, shown)
}

func TestShowItems_EmptyResultResetsShownList(t *testing.T) {
	flow := newFlow(
		[]domain.Node{
			node("items", domain.NodeShowItems, map[string]any{
				"source": "variable", "variable": "results", "empty_message": "Nothing found",
			}),
			node("q", domain.NodeAskQuestion, map[string]any{"question": "Anything else?", "variable": "more"}),
		},
		edge("items", "q", ""),
	)
	state := domain.NewExecutionState(flow, "c1")
	state.Variables["results"] = []any{}
	state.Variables[domain.VarLastShownItems] = []any{map[string]any{"id": "old", "name": "Stale"}}

	res, err := runtime.NewEngine(nil).Step(context.Background(), state, "", flow)
	require.NoError(t, err)
	assert.Equal(t, []string{"Nothing found", "Anything else?"}, texts(res.Messages))
	require.NotNil(t, res.State)
	shown, ok := res.State.Variables[domain.VarLastShownItems]
	require.True(t, ok)
	assert.Empty(t, shown)
}

func TestShowItems_NumericIDsSelectByPosition(t *testing.T) {
	flow := showItemsFlow(map[string]any{
		"source":          "variable",
		"variable":        "results",
		"select_variable": "pizza",
	})
	state := domain.NewExecutionState(flow, "c1")
	state.Variables["results"] = []any{
		map[string]any{"id": "3", "name": "Margherita"},
		map[string]any{"id": "1", "name": "Pepperoni"},
		map[string]any{"id": "2", "name": "Hawaiian"},
	}
	engine := runtime.NewEngine(nil)

	res, err := engine.Step(context.Background(), state, "", flow)
	require.NoError(t, err)
	require.NotNil(t, res.State)

	next, err := engine.Step(context.Background(), res.State, "1", flow)
	require.NoError(t, err)
	assert.Equal(t, []string{"You chose Margherita (3)"}, texts(next.Messages))
}
