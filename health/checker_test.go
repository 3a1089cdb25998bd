package health

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestStatus_String(t *testing.T) {
	tests := []struct {
		status Status
		want   string
	}{
		{StatusHealthy, "healthy"},
		{StatusDegraded, "degraded"},
		{StatusUnhealthy, "unhealthy"},
		{Status(42), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.status.String(); got != tt.want {
			t.Errorf("Status(%d).String() = %q, want %q", tt.status, got, tt.want)
		}
		text, err := tt.status.MarshalText()
		if err != nil || string(text) != tt.want {
			t.Errorf("MarshalText() = %q, %v", text, err)
		}
	}
}

func TestResultConstructors(t *testing.T) {
	cause := errors.New("boom")
	tests := []struct {
		name    string
		result  Result
		status  Status
		message string
		err     error
	}{
		{"healthy", Healthy("ok"), StatusHealthy, "ok", nil},
		{"degraded", Degraded("slow"), StatusDegraded, "slow", nil},
		{"unhealthy", Unhealthy("down", cause), StatusUnhealthy, "down", cause},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.result.Status != tt.status {
				t.Errorf("Status = %v, want %v", tt.result.Status, tt.status)
			}
			if tt.result.Message != tt.message {
				t.Errorf("Message = %q, want %q", tt.result.Message, tt.message)
			}
			if !errors.Is(tt.result.Error, tt.err) {
				t.Errorf("Error = %v, want %v", tt.result.Error, tt.err)
			}
			if tt.result.Timestamp.IsZero() {
				t.Error("Timestamp should be set")
			}
		})
	}
}

func TestResult_WithDetails(t *testing.T) {
	r := Healthy("ok").WithDetails(map[string]any{"generations": 2})
	if r.Details["generations"] != 2 {
		t.Errorf("Details = %v", r.Details)
	}
}

func TestCheckerFunc(t *testing.T) {
	c := NewCheckerFunc("cache", func(ctx context.Context) Result {
		return Degraded("disabled")
	})
	if c.Name() != "cache" {
		t.Errorf("Name() = %q, want cache", c.Name())
	}
	if got := c.Check(context.Background()); got.Status != StatusDegraded {
		t.Errorf("Check().Status = %v, want degraded", got.Status)
	}
}

type pingFunc func(ctx context.Context) error

func (f pingFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestPingChecker(t *testing.T) {
	t.Run("reachable", func(t *testing.T) {
		c := NewPingChecker("store", pingFunc(func(context.Context) error { return nil }), time.Second)
		r := c.Check(context.Background())
		if r.Status != StatusHealthy {
			t.Fatalf("Status = %v, want healthy", r.Status)
		}
		if _, ok := r.Details["latency"]; !ok {
			t.Error("expected latency detail")
		}
	})

	t.Run("unreachable", func(t *testing.T) {
		cause := errors.New("connection refused")
		c := NewPingChecker("store", pingFunc(func(context.Context) error { return cause }), time.Second)
		r := c.Check(context.Background())
		if r.Status != StatusUnhealthy {
			t.Fatalf("Status = %v, want unhealthy", r.Status)
		}
		if !errors.Is(r.Error, cause) {
			t.Errorf("Error = %v, want %v", r.Error, cause)
		}
	})

	t.Run("timeout applied", func(t *testing.T) {
		c := NewPingChecker("store", pingFunc(func(ctx context.Context) error {
			<-ctx.Done()
			return ctx.Err()
		}), 10*time.Millisecond)
		r := c.Check(context.Background())
		if !errors.Is(r.Error, context.DeadlineExceeded) {
			t.Errorf("Error = %v, want deadline exceeded", r.Error)
		}
	})
}
