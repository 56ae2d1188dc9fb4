package chatflow_test

import (
	"context"
	"testing"

	"github.com/aretw0/chatflow"
	"github.com/aretw0/chatflow/pkg/adapters/memory"
	"github.com/aretw0/chatflow/pkg/conversation"
	"github.com/aretw0/chatflow/pkg/dispatch"
	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/aretw0/chatflow/pkg/dsl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RequiresFlows(t *testing.T) {
	_, err := chatflow.New(nil)
	assert.Error(t, err)
}

func TestBot_WiresAdapters(t *testing.T) {
	flow := dsl.New("order", "acme").
		OnKeywords("order").
		Trigger("start").Go("save").Then().
		Action("save", dispatch.ActionCreateRecord, map[string]any{
			"kind":   "order",
			"fields": map[string]any{"item": "pizza"},
			"prefix": "order",
		}).Go("done").Then().
		End("done", "Order {{order_id}} placed").Then().
		MustBuild()

	repo := memory.NewFlowRepository(*flow)
	records := memory.NewRecordBook()
	store := memory.NewStore()

	var started, completed int
	bot, err := chatflow.New(repo,
		chatflow.WithStore(store),
		chatflow.WithAnalytics(repo),
		chatflow.WithDispatcher(dispatch.New(dispatch.WithRecordCreator(records))),
		chatflow.WithLifecycleHooks(domain.LifecycleHooks{
			OnFlowStart: func(context.Context, *domain.FlowEvent) { started++ },
		}),
		chatflow.WithLifecycleHooks(domain.LifecycleHooks{
			OnFlowComplete: func(context.Context, *domain.FlowEvent) { completed++ },
		}),
		chatflow.WithMaxNodeVisits(10),
		chatflow.WithIntentPolicy(0.7, "order"),
	)
	require.NoError(t, err)
	assert.Same(t, store, bot.Store())
	assert.Equal(t, repo, bot.Flows())
	assert.NotNil(t, bot.Interpreter())

	out, err := bot.HandleMessage(context.Background(), conversation.InboundMessage{
		TenantID: "acme", ConversationID: "c1", Text: "I want to order",
	})
	require.NoError(t, err)
	assert.True(t, out.Completed)

	recs := records.Records()
	require.Len(t, recs, 1)
	assert.Equal(t, "order", recs[0].Kind)
	assert.Equal(t, "Order "+recs[0].ID+" placed", out.Messages[0].Text)

	assert.Equal(t, 1, started)
	assert.Equal(t, 1, completed)
	require.Len(t, repo.Records(), 1)
	assert.Equal(t, "done", repo.Records()[0].ExitNodeID)
}

func TestBot_Abandon(t *testing.T) {
	flow := dsl.New("ask", "acme").
		OnKeywords("ask").
		Ask("q", "Yes?").SaveTo("answer").Then().
		MustBuild()
	bot, err := chatflow.New(memory.NewFlowRepository(*flow))
	require.NoError(t, err)

	ctx := context.Background()
	_, err = bot.HandleMessage(ctx, conversation.InboundMessage{TenantID: "acme", ConversationID: "c1", Text: "ask"})
	require.NoError(t, err)

	state, err := bot.Execution(ctx, "c1")
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.Equal(t, "q", state.CurrentNodeID)

	ok, err := bot.Abandon(ctx, "c1")
	require.NoError(t, err)
	assert.True(t, ok)

	state, err = bot.Execution(ctx, "c1")
	require.NoError(t, err)
	assert.Nil(t, state)
}

func TestBot_IntentPolicy(t *testing.T) {
	flow := dsl.New("status", "acme").
		OnIntents("order_status").
		End("done", "Checking your order").Then().
		MustBuild()

	tests := []struct {
		name    string
		opts    []chatflow.Option
		handled bool
	}{
		{"Default Threshold", nil, false},
		{"Zero Threshold", []chatflow.Option{chatflow.WithIntentPolicy(0)}, true},
		{"Strict Threshold", []chatflow.Option{chatflow.WithIntentPolicy(0.9)}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bot, err := chatflow.New(memory.NewFlowRepository(*flow), tt.opts...)
			require.NoError(t, err)

			out, err := bot.HandleMessage(context.Background(), conversation.InboundMessage{
				TenantID: "acme", ConversationID: "c1", Text: "where is it",
				Intent: &domain.Intent{Label: "order_status", Confidence: 0.2},
			})
			require.NoError(t, err)
			assert.Equal(t, tt.handled, out.Handled)
		})
	}
}
