package orchestrate

import (
	"context"
	"testing"
	"time"
)

func TestLimiter_New(t *testing.T) {
	if l := NewLimiter(10, 5); l.defaultBurst != 5 {
		t.Errorf("expected burst 5, got %d", l.defaultBurst)
	}
	if l := NewLimiter(10, -1); l.defaultBurst != 5 {
		t.Errorf("expected default burst 5 for negative input, got %d", l.defaultBurst)
	}
}

func TestLimiter_PerTool(t *testing.T) {
	limiter := NewLimiter(0.001, 1)

	if !limiter.Allow("calculator") {
		t.Fatal("first call should be allowed")
	}
	if limiter.Allow("calculator") {
		t.Error("second immediate call should be limited")
	}
	if !limiter.Allow("source_check") {
		t.Error("another tool has its own budget")
	}
}

func TestLimiter_WaitRespectsContext(t *testing.T) {
	limiter := NewLimiter(0.001, 1)
	limiter.Allow("llm_check")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if err := limiter.Wait(ctx, "llm_check"); err == nil {
		t.Error("expected wait to fail once the context expires")
	}
}

func TestLimiter_Unlimited(t *testing.T) {
	limiter := NewLimiter(0, 1)
	for i := 0; i < 100; i++ {
		if !limiter.Allow("calculator") {
			t.Fatalf("call %d limited with a non-positive rate", i)
		}
	}
}

func TestLimiter_NilNeverBlocks(t *testing.T) {
	var limiter *Limiter
	if err := limiter.Wait(context.Background(), "x"); err != nil {
		t.Errorf("nil limiter returned %v", err)
	}
	if !limiter.Allow("x") {
		t.Error("nil limiter should allow")
	}
}

func TestLimiter_SetToolRate(t *testing.T) {
	limiter := NewLimiter(0.001, 1)
	limiter.SetToolRate("calculator", 1000, 10)
	for i := 0; i < 10; i++ {
		if !limiter.Allow("calculator") {
			t.Fatalf("call %d limited despite override", i)
		}
	}
}
