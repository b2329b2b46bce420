package session

import (
	"context"
	"fmt"
	"testing"

	"github.com/aretw0/stepwise/pkg/adapters/memory"
	"github.com/aretw0/stepwise/pkg/domain"
)

func TestManager_LockLifecycle(t *testing.T) {
	mgr := NewManager(memory.NewStore())
	ctx := context.Background()
	count := 10000

	for i := 0; i < count; i++ {
		key := fmt.Sprintf("session-%d", i)
		_ = mgr.Save(ctx, key, &domain.Snapshot{SessionKey: key})
		_ = mgr.Delete(ctx, key)
	}

	if n := len(mgr.locks); n != 0 {
		t.Errorf("Memory Leak Detected: %d locks remaining in memory after Delete", n)
	}
}
