package resilience

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func failN(cb *CircuitBreaker, n int) {
	for i := 0; i < n; i++ {
		_ = cb.Execute(context.Background(), func(_ context.Context) error {
			return errors.New("feed down")
		})
	}
}

func TestCircuitBreaker_ClosedPassesThrough(t *testing.T) {
	cb := NewCircuitBreaker(DefaultCircuitBreakerConfig())

	var calls int
	err := cb.Execute(context.Background(), func(_ context.Context) error {
		calls++
		return nil
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if calls != 1 {
		t.Errorf("expected 1 call, got %d", calls)
	}
	if cb.State() != CircuitClosed {
		t.Errorf("expected closed, got %s", cb.State())
	}
}

func TestCircuitBreaker_OpensAfterThreshold(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 3, ResetTimeout: time.Minute})
	failN(cb, 3)

	if cb.State() != CircuitOpen {
		t.Fatalf("expected open, got %s", cb.State())
	}
	err := cb.Execute(context.Background(), func(_ context.Context) error {
		t.Error("fn must not run while open")
		return nil
	})
	if !errors.Is(err, ErrCircuitOpen) {
		t.Errorf("expected ErrCircuitOpen, got %v", err)
	}
}

func TestCircuitBreaker_SuccessResetsFailures(t *testing.T) {
	cb := NewCircuitBreaker(CircuitBreakerConfig{FailureThreshold: 3})
	failN(cb, 2)
	_ = cb.Execute(context.Background(), func(_ context.Context) error { return nil })

	if cb.Failures() != 0 {
		t.Errorf("expected 0 failures, got %d", cb.Failures())
	}
	failN(cb, 2)
	if cb.State() != CircuitClosed {
		t.Errorf("expected closed, got %s", cb.State())
	}
}

func TestCircuitBreaker_HalfOpenProbe(t *testing.T) {
	now := time.Now()
	var transitions []string
	cb := NewCircuitBreaker(CircuitBreakerConfig{
		FailureThreshold: 1,
		ResetTimeout:     time.Second,
		OnStateChange: func(from, to CircuitState) {
			transitions = append(transitions, from.String()+"->"+to.String())
		},
	})
	cb.now = func() time.Time { return now }

	failN(cb, 1)
	if cb.State() != CircuitOpen {
		t.Fatalf("expected open, got %s", cb.State())
	}

	now = now.Add(2 * time.Second)
	if cb.State() != CircuitHalfOpen {
		t.Fatalf("expected half-open, got %s", cb.State())
	}

	// Failed probe reopens.
	failN(cb, 1)
	if cb.State() != CircuitOpen {
		t.Fatalf("expected reopened, got %s", cb.State())
	}

	now = now.Add(2 * time.Second)
	if err := cb.Execute(context.Background(), func(_ context.Context) error { return nil }); err != nil {
		t.Fatalf("probe: %v", err)
	}
	if cb.State() != CircuitClosed {
		t.Errorf("expected closed after probe, got %s", cb.State())
	}

	want := []string{"closed->open", "open->half-open", "half-open->open", "open->half-open", "half-open->closed"}
	if len(transitions) != len(want) {
		t.Fatalf("transitions = %v, want %v", transitions, want)
	}
	for i := range want {
		if transitions[i] != want[i] {
			t.Errorf("transition %d = %s, want %s", i, transitions[i], want[i])
		}
	}
}

func TestCircuitBreaker_ExecuteValConcurrent(t *testing.T) {
	cb := NewCircuitBreaker(DefaultCircuitBreakerConfig())

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := ExecuteVal(context.Background(), cb, func(_ context.Context) (int, error) { return i, nil })
			if err != nil || v != i {
				t.Errorf("ExecuteVal = %d, %v", v, err)
			}
		}()
	}
	wg.Wait()
}

func TestCircuitState_String(t *testing.T) {
	if CircuitState(9).String() != "unknown" {
		t.Error("expected unknown for out-of-range state")
	}
}
