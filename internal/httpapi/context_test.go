package httpapi

import (
	"context"
	"testing"
	"time"
)

func TestSetBaseContext_NilResetsToBackground(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	SetBaseContext(ctx)
	cancel()
	// nolint:staticcheck // SA1012: nil is the documented reset value
	SetBaseContext(nil)
	if serverBaseCtx.Err() != nil {
		t.Fatalf("expected live background context after reset")
	}
}

func TestJoinContexts_CancelsWhenEitherDone(t *testing.T) {
	for _, first := range []bool{true, false} {
		a, ac := context.WithCancel(context.Background())
		b, bc := context.WithCancel(context.Background())
		j, cancelJ := joinContexts(a, b)
		if first {
			ac()
		} else {
			bc()
		}
		select {
		case <-j.Done():
		case <-time.After(500 * time.Millisecond):
			t.Fatalf("joined context did not cancel (first parent=%v)", first)
		}
		cancelJ()
		ac()
		bc()
	}
}

func TestJoinContexts_CancelFuncReleases(t *testing.T) {
	a, ac := context.WithCancel(context.Background())
	defer ac()
	b, bc := context.WithCancel(context.Background())
	defer bc()
	j, cancelJ := joinContexts(a, b)
	cancelJ()
	if j.Err() == nil {
		t.Fatalf("expected joined context canceled by its own cancel func")
	}
	if a.Err() != nil || b.Err() != nil {
		t.Fatalf("parents must stay live")
	}
}
