package conversation_test

import (
	"context"
	"errors"
	"testing"

	"github.com/aretw0/chatflow/internal/runtime"
	"github.com/aretw0/chatflow/pkg/adapters/memory"
	"github.com/aretw0/chatflow/pkg/conversation"
	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func bookingFlow() domain.Flow {
	return domain.Flow{
		ID:       "booking",
		TenantID: "acme",
		Status:   domain.FlowActive,
		Priority: 1,
		Trigger:  domain.TriggerDescriptor{Type: domain.TriggerKeyword, Keywords: []string{"reserva", "book"}},
		Nodes: []domain.Node{
			{ID: "start", Type: domain.NodeTrigger},
			{ID: "name", Type: domain.NodeAskQuestion, Config: map[string]any{"question": "Your name?", "variable": "name"}},
			{ID: "size", Type: domain.NodeButtonChoice, Config: map[string]any{
				"text":     "Table for how many, {{name}}?",
				"variable": "guests",
				"buttons":  []any{map[string]any{"label": "Two", "value": "2"}, map[string]any{"label": "Four", "value": "4"}},
			}},
			{ID: "done", Type: domain.NodeEnd, Config: map[string]any{"message": "Booked for {{guests}}, {{name}}!"}},
		},
		Edges: []domain.Edge{
			{Source: "start", Target: "name"},
			{Source: "name", Target: "size"},
			{Source: "size", Target: "done"},
		},
	}
}

func supportFlow() domain.Flow {
	return domain.Flow{
		ID:       "support",
		TenantID: "acme",
		Status:   domain.FlowActive,
		Priority: 2,
		Trigger:  domain.TriggerDescriptor{Type: domain.TriggerKeyword, Keywords: []string{"agent"}},
		Nodes: []domain.Node{
			{ID: "h", Type: domain.NodeHandoff, Config: map[string]any{"message": "Transferring you"}},
		},
	}
}

type fixture struct {
	repo      *memory.FlowRepository
	store     *memory.Store
	processor *conversation.Processor
}

func newFixture(flows ...domain.Flow) *fixture {
	repo := memory.NewFlowRepository(flows...)
	store := memory.NewStore()
	return &fixture{
		repo:  repo,
		store: store,
		processor: conversation.NewProcessor(repo, store, runtime.NewEngine(nil),
			conversation.WithAnalytics(repo)),
	}
}

func (f *fixture) send(t *testing.T, text string) *conversation.Outcome {
	t.Helper()
	out, err := f.processor.HandleMessage(context.Background(), conversation.InboundMessage{
		TenantID:       "acme",
		ConversationID: "c1",
		Text:           text,
	})
	require.NoError(t, err)
	return out
}

func texts(out *conversation.Outcome) []string {
	var s []string
	for _, m := range out.Messages {
		s = append(s, m.Text)
	}
	return s
}

func TestProcessor_FullConversation(t *testing.T) {
	f := newFixture(bookingFlow())
	ctx := context.Background()

	out := f.send(t, "Quiero hacer una RESERVA")
	assert.True(t, out.Handled)
	assert.Equal(t, "booking", out.FlowID)
	assert.Equal(t, []string{"Your name?"}, texts(out))
	require.NotNil(t, out.Diff)
	assert.Equal(t, "name", *out.Diff.CurrentNodeID)

	out = f.send(t, "Ana")
	assert.Equal(t, []string{"Table for how many, Ana?"}, texts(out))
	assert.Equal(t, "Ana", out.Diff.Variables["name"])

	out = f.send(t, "four")
	assert.True(t, out.Completed)
	assert.Equal(t, []string{"Booked for 4, Ana!"}, texts(out))
	assert.True(t, out.Diff.Cleared)

	state, err := f.store.Read(ctx, "c1")
	require.NoError(t, err)
	assert.Nil(t, state)

	flow, err := f.repo.GetFlow(ctx, "acme", "booking")
	require.NoError(t, err)
	assert.EqualValues(t, 1, flow.TimesTriggered)
	assert.EqualValues(t, 1, flow.TimesCompleted)

	records := f.repo.Records()
	require.Len(t, records, 1)
	assert.Equal(t, "done", records[0].ExitNodeID)
	assert.Equal(t, domain.OutcomeCompleted, records[0].Outcome)
	assert.Equal(t, "4", records[0].Variables["guests"])
	assert.NotEmpty(t, records[0].CorrelationID)
}

func TestProcessor_NotHandled(t *testing.T) {
	f := newFixture(bookingFlow())
	out := f.send(t, "what time is it?")
	assert.False(t, out.Handled)
	assert.Empty(t, out.Messages)
}

func TestProcessor_RunningExecutionWinsOverTriggers(t *testing.T) {
	f := newFixture(bookingFlow(), supportFlow())

	f.send(t, "book")
	out := f.send(t, "agent")
	assert.Equal(t, "booking", out.FlowID, "a parked execution consumes the message even if it matches another trigger")
	assert.Equal(t, []string{"Table for how many, agent?"}, texts(out))
}

func TestProcessor_DeletedFlowClearsState(t *testing.T) {
	f := newFixture(bookingFlow())
	f.send(t, "book")

	f.repo.Delete("acme", "booking")
	out := f.send(t, "Ana")
	assert.False(t, out.Handled)
	require.NotNil(t, out.Diff)
	assert.True(t, out.Diff.Cleared)

	state, err := f.store.Read(context.Background(), "c1")
	require.NoError(t, err)
	assert.Nil(t, state)
}

func TestProcessor_Handoff(t *testing.T) {
	f := newFixture(supportFlow())
	out := f.send(t, "I need an agent")
	assert.True(t, out.Handoff)
	assert.True(t, out.Completed)
	assert.Equal(t, []string{"Transferring you"}, texts(out))
	assert.True(t, f.store.HumanTakeover("c1"))
	assert.Equal(t, domain.OutcomeHandoff, f.repo.Records()[0].Outcome)
}

func TestProcessor_QuickReplyPayloadAsInput(t *testing.T) {
	f := newFixture(bookingFlow())
	f.send(t, "book")
	f.send(t, "Ana")

	out, err := f.processor.HandleMessage(context.Background(), conversation.InboundMessage{
		TenantID:          "acme",
		ConversationID:    "c1",
		QuickReplyPayload: "2",
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Booked for 2, Ana!"}, texts(out))
}

func TestProcessor_NewConversationTrigger(t *testing.T) {
	welcome := domain.Flow{
		ID: "welcome", TenantID: "acme", Status: domain.FlowActive,
		Trigger: domain.TriggerDescriptor{Type: domain.TriggerNewConversation},
		Nodes:   []domain.Node{{ID: "hi", Type: domain.NodeEnd, Config: map[string]any{"message": "Welcome!"}}},
	}
	f := newFixture(welcome)
	ctx := context.Background()

	out, err := f.processor.HandleMessage(ctx, conversation.InboundMessage{
		TenantID: "acme", ConversationID: "c1", Text: "where is my order?", IsNewConversation: true,
		Intent: &domain.Intent{Label: "order_status", Confidence: 0.93},
	})
	require.NoError(t, err)
	assert.False(t, out.Handled)

	out, err = f.processor.HandleMessage(ctx, conversation.InboundMessage{
		TenantID: "acme", ConversationID: "c2", Text: "hello", IsNewConversation: true,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"Welcome!"}, texts(out))
}

func TestProcessor_Abandon(t *testing.T) {
	f := newFixture(bookingFlow())
	ctx := context.Background()
	f.send(t, "book")

	state, err := f.processor.Execution(ctx, "c1")
	require.NoError(t, err)
	require.NotNil(t, state)

	existed, err := f.processor.Abandon(ctx, "c1")
	require.NoError(t, err)
	assert.True(t, existed)

	existed, err = f.processor.Abandon(ctx, "c1")
	require.NoError(t, err)
	assert.False(t, existed)

	out := f.send(t, "book")
	assert.Equal(t, []string{"Your name?"}, texts(out), "a new execution starts from scratch")
}

type failingStore struct{ memory.Store }

func (failingStore) Read(context.Context, string) (*domain.ExecutionState, error) {
	return nil, errors.New("store down")
}

func TestProcessor_StoreFailure(t *testing.T) {
	repo := memory.NewFlowRepository(bookingFlow())
	p := conversation.NewProcessor(repo, &failingStore{}, runtime.NewEngine(nil))
	_, err := p.HandleMessage(context.Background(), conversation.InboundMessage{TenantID: "acme", ConversationID: "c1", Text: "book"})
	assert.ErrorContains(t, err, "store down")
}

func TestProcessor_RequiresConversationID(t *testing.T) {
	f := newFixture(bookingFlow())
	_, err := f.processor.HandleMessage(context.Background(), conversation.InboundMessage{TenantID: "acme", Text: "book"})
	assert.Error(t, err)
}

func TestProcessor_OtherTenantLeavesExecutionAlone(t *testing.T) {
	f := newFixture(bookingFlow())
	ctx := context.Background()
	f.send(t, "book")

	out, err := f.processor.HandleMessage(ctx, conversation.InboundMessage{
		TenantID: "other", ConversationID: "c1", Text: "book",
	})
	require.NoError(t, err)
	assert.False(t, out.Handled)
	assert.Nil(t, out.Diff)

	state, err := f.store.Read(ctx, "c1")
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.Equal(t, "acme", state.TenantID)
	assert.Equal(t, "name", state.CurrentNodeID)

	out = f.send(t, "Ana")
	assert.Equal(t, []string{"Table for how many, Ana?"}, texts(out))
}

type unflaggableStore struct{ *memory.Store }

func (unflaggableStore) MarkHandoff(context.Context, string) error {
	return errors.New("flag write failed")
}

func TestProcessor_HandoffFlagFailureKeepsOutcome(t *testing.T) {
	repo := memory.NewFlowRepository(supportFlow())
	store := unflaggableStore{memory.NewStore()}
	p := conversation.NewProcessor(repo, store, runtime.NewEngine(nil))

	out, err := p.HandleMessage(context.Background(), conversation.InboundMessage{
		TenantID: "acme", ConversationID: "c1", Text: "agent please",
	})
	require.NoError(t, err)
	assert.True(t, out.Handoff)
	assert.True(t, out.Completed)
	assert.Equal(t, []string{"Transferring you"}, texts(out))

	state, err := store.Read(context.Background(), "c1")
	require.NoError(t, err)
	assert.Nil(t, state)
}
