package resilience

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestBulkhead_RejectsWhenFull(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{MaxConcurrent: 2})
	ctx := context.Background()

	for i := range 2 {
		if err := b.Acquire(ctx); err != nil {
			t.Fatalf("Acquire(%d) error = %v", i, err)
		}
	}
	if err := b.Acquire(ctx); !errors.Is(err, ErrBulkheadFull) {
		t.Fatalf("Acquire() error = %v, want ErrBulkheadFull", err)
	}

	m := b.Metrics()
	if m.Active != 2 || m.Rejected != 1 || m.MaxConcurrent != 2 {
		t.Errorf("Metrics() = %+v", m)
	}

	b.Release()
	if err := b.Acquire(ctx); err != nil {
		t.Errorf("Acquire() after Release error = %v", err)
	}
}

func TestBulkhead_WaitsForSlot(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{MaxConcurrent: 1, MaxWait: time.Second})
	ctx := context.Background()
	if err := b.Acquire(ctx); err != nil {
		t.Fatal(err)
	}

	go func() {
		time.Sleep(10 * time.Millisecond)
		b.Release()
	}()
	if err := b.Acquire(ctx); err != nil {
		t.Errorf("Acquire() error = %v", err)
	}
}

func TestBulkhead_WaitTimesOut(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{MaxConcurrent: 1, MaxWait: 10 * time.Millisecond})
	ctx := context.Background()
	_ = b.Acquire(ctx)

	if err := b.Acquire(ctx); !errors.Is(err, ErrBulkheadFull) {
		t.Errorf("Acquire() error = %v, want ErrBulkheadFull", err)
	}
}

func TestBulkhead_CallerCanceled(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{MaxConcurrent: 1, MaxWait: time.Hour})
	_ = b.Acquire(context.Background())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := b.Acquire(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Acquire() error = %v, want context.DeadlineExceeded", err)
	}
	if got := b.Metrics().Rejected; got != 0 {
		t.Errorf("Rejected = %d, want 0", got)
	}
}

func TestBulkhead_ExecuteReleases(t *testing.T) {
	b := NewBulkhead(BulkheadConfig{MaxConcurrent: 1})
	opErr := errors.New("query failed")

	if err := b.Execute(context.Background(), func(context.Context) error { return opErr }); err != opErr {
		t.Fatalf("Execute() error = %v", err)
	}
	if got := b.Metrics().Active; got != 0 {
		t.Errorf("Active = %d, want 0", got)
	}
}
