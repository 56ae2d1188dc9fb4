package memory_test

import (
	"context"
	"testing"

	"github.com/aretw0/chatflow/pkg/adapters/memory"
	"github.com/aretw0/chatflow/pkg/domain"
	"github.com/aretw0/chatflow/pkg/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStore_Contract(t *testing.T) {
	store := memory.NewStore()
	ports.RunExecutionStoreContract(t, store)
}

func TestMemoryStore_PreservesSiblingFields(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()

	require.NoError(t, store.SetField(ctx, "c1", "customer_name", "Ana"))
	require.NoError(t, store.Write(ctx, "c1", &domain.ExecutionState{FlowID: "f1", CurrentNodeID: "n1"}))
	require.NoError(t, store.MarkHandoff(ctx, "c1"))
	require.NoError(t, store.Write(ctx, "c1", nil))

	raw, ok := store.Field("c1", "customer_name")
	require.True(t, ok)
	assert.JSONEq(t, `"Ana"`, string(raw))
	assert.True(t, store.HumanTakeover("c1"))

	_, ok = store.Field("c1", ports.FieldFlowExecution)
	assert.False(t, ok)
}

func TestMemoryStore_ReadIsACopy(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	require.NoError(t, store.Write(ctx, "c1", &domain.ExecutionState{FlowID: "f1", Variables: map[string]any{"a": "1"}}))

	first, err := store.Read(ctx, "c1")
	require.NoError(t, err)
	first.Variables["a"] = "changed"

	second, err := store.Read(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "1", second.Variables["a"])
}
