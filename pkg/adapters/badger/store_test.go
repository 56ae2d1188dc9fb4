package badger_test

import (
	"context"
	"testing"

	"github.com/aretw0/chatflow/pkg/adapters/badger"
	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/aretw0/chatflow/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStore(t *testing.T) *badger.Store {
	t.Helper()
	store, err := badger.Open("")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestBadgerStore_Contract(t *testing.T) {
	ports.RunExecutionStoreContract(t, openStore(t))
}

func TestBadgerStore_HandoffKeepsDocument(t *testing.T) {
	store := openStore(t)
	ctx := context.Background()

	require.NoError(t, store.Write(ctx, "c1", &domain.ExecutionState{FlowID: "f1", CurrentNodeID: "n1"}))
	require.NoError(t, store.MarkHandoff(ctx, "c1"))
	require.NoError(t, store.Write(ctx, "c1", nil))

	doc, err := store.Document("c1")
	require.NoError(t, err)
	assert.JSONEq(t, "true", string(doc[ports.FieldHumanTakeover]))
	assert.NotContains(t, doc, ports.FieldFlowExecution)
}

func TestBadgerStore_PersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	store, err := badger.Open(dir)
	require.NoError(t, err)
	require.NoError(t, store.Write(ctx, "c1", &domain.ExecutionState{FlowID: "f1", CurrentNodeID: "ask"}))
	require.NoError(t, store.Close())

	store, err = badger.Open(dir)
	require.NoError(t, err)
	defer store.Close()

	state, err := store.Read(ctx, "c1")
	require.NoError(t, err)
	require.NotNil(t, state)
	assert.Equal(t, "ask", state.CurrentNodeID)
}
