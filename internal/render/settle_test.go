package render

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestWaitForRenderReady_ContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := waitForRenderReady(ctx, 10*time.Millisecond); err == nil {
		t.Fatalf("expected canceled-context error")
	}
}

func TestWaitForRenderReady_Elapses(t *testing.T) {
	start := time.Now()
	if err := waitForRenderReady(context.Background(), 20*time.Millisecond); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if time.Since(start) < 20*time.Millisecond {
		t.Fatalf("returned before the delay elapsed")
	}
	if err := waitForRenderReady(context.Background(), 0); err != nil {
		t.Fatalf("zero delay should return immediately: %v", err)
	}
}

type stuckPage struct {
	Page
	settleErr error
}

func (p stuckPage) WaitSettled(ctx context.Context) error {
	<-ctx.Done()
	return p.settleErr
}

func TestSettle_AssetTimeoutStillPrints(t *testing.T) {
	r := NewRenderer(Options{SettleTimeout: 10 * time.Millisecond, SettleDelay: time.Millisecond})
	if err := r.settle(context.Background(), stuckPage{settleErr: errors.New("images pending")}); err != nil {
		t.Fatalf("settle timeout must not fail the render: %v", err)
	}
}

func TestSettle_ParentCanceled(t *testing.T) {
	r := NewRenderer(Options{SettleTimeout: time.Second})
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := r.settle(ctx, stuckPage{settleErr: context.DeadlineExceeded}); err == nil {
		t.Fatalf("expected parent context error")
	}
}
