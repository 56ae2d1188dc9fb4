package session

import (
	"context"
	"fmt"
	"testing"

	"github.com/aretw0/chatflow/pkg/domain"
)

type nopStore struct{}

func (nopStore) Read(context.Context, string) (*domain.ExecutionState, error) { return nil, nil }
func (nopStore) Write(context.Context, string, *domain.ExecutionState) error  { return nil }

func TestManager_LockLifecycle(t *testing.T) {
	mgr := NewManager(nopStore{})
	ctx := context.Background()
	count := 10000

	for i := 0; i < count; i++ {
		id := fmt.Sprintf("conversation-%d", i)
		_ = mgr.Save(ctx, id, &domain.ExecutionState{})
		_ = mgr.Clear(ctx, id)
	}

	if lockCount := len(mgr.locks); lockCount != 0 {
		t.Errorf("Memory Leak Detected: %d locks remaining in memory after Clear", lockCount)
	}
}
