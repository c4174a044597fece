package resilience

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestBackpressureBoundsConcurrency(t *testing.T) {
	const max = 3
	b := NewBackpressure(BackpressureConfig{MaxConcurrent: max, AcquireTimeout: time.Second})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := b.Acquire(context.Background()); err != nil {
				t.Errorf("Acquire() = %v", err)
				return
			}
			if cur := b.Metrics().Current; cur > max {
				t.Errorf("Current = %d, exceeds max %d", cur, max)
			}
			time.Sleep(5 * time.Millisecond)
			b.Release()
		}()
	}
	wg.Wait()

	m := b.Metrics()
	if m.Current != 0 {
		t.Errorf("Current after drain = %d, want 0", m.Current)
	}
	if m.Peak > max {
		t.Errorf("Peak = %d, exceeds max %d", m.Peak, max)
	}
	if m.TotalAcquired != 10 {
		t.Errorf("TotalAcquired = %d, want 10", m.TotalAcquired)
	}
}

func TestBackpressureBlocksUntilRelease(t *testing.T) {
	b := NewBackpressure(BackpressureConfig{MaxConcurrent: 1})

	if err := b.Acquire(context.Background()); err != nil {
		t.Fatalf("first Acquire() = %v", err)
	}

	done := make(chan error, 1)
	go func() {
		done <- b.Acquire(context.Background())
	}()

	select {
	case err := <-done:
		t.Fatalf("Acquire() = %v before a permit freed", err)
	case <-time.After(20 * time.Millisecond):
	}

	b.Release()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Acquire() after release = %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("Acquire() still blocked after a permit freed")
	}

	if b.Metrics().TotalRejected != 0 {
		t.Errorf("TotalRejected = %d, want 0 for a satisfied wait", b.Metrics().TotalRejected)
	}
	b.Release()
}

func TestBackpressureAcquireTimeout(t *testing.T) {
	b := NewBackpressure(BackpressureConfig{MaxConcurrent: 1, AcquireTimeout: 20 * time.Millisecond})

	if err := b.Acquire(context.Background()); err != nil {
		t.Fatalf("first Acquire() = %v", err)
	}

	start := time.Now()
	err := b.Acquire(context.Background())
	if !errors.Is(err, ErrBackpressureFull) {
		t.Errorf("Acquire() = %v, want ErrBackpressureFull after timeout", err)
	}
	if time.Since(start) < 15*time.Millisecond {
		t.Error("Acquire() returned before the configured wait elapsed")
	}
	b.Release()
}

func TestBackpressureCancelledAcquireHoldsNothing(t *testing.T) {
	b := NewBackpressure(BackpressureConfig{MaxConcurrent: 1})

	if err := b.Acquire(context.Background()); err != nil {
		t.Fatalf("first Acquire() = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	if err := b.Acquire(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Acquire() = %v, want context.Canceled", err)
	}

	b.Release()
	if cur := b.Metrics().Current; cur != 0 {
		t.Errorf("Current = %d after cancelled acquire, want 0", cur)
	}

	// The slot freed by Release must still be acquirable.
	if err := b.Acquire(context.Background()); err != nil {
		t.Errorf("Acquire() after cancellation = %v", err)
	}
	b.Release()
}

func TestBackpressureUnlimited(t *testing.T) {
	b := NewBackpressure(BackpressureConfig{})

	for i := 0; i < 100; i++ {
		if err := b.Acquire(context.Background()); err != nil {
			t.Fatalf("Acquire() #%d = %v, want unlimited admission", i, err)
		}
	}
	if b.Metrics().Current != 100 {
		t.Errorf("Current = %d, want 100", b.Metrics().Current)
	}
	for i := 0; i < 100; i++ {
		b.Release()
	}
}

func TestBackpressureRedundantReleaseIsNoop(t *testing.T) {
	b := NewBackpressure(BackpressureConfig{MaxConcurrent: 2})

	b.Release()
	if cur := b.Metrics().Current; cur != 0 {
		t.Errorf("Current = %d after spurious release, want 0", cur)
	}
}
