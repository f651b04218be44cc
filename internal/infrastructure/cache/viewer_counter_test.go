package cache

import (
	"sync"
	"testing"
)

func TestViewerCounter_IncrementDecrement(t *testing.T) {
	vc := NewViewerCounter()

	if got := vc.Increment(5); got != 1 {
		t.Errorf("Increment = %d, want 1", got)
	}
	if got := vc.Increment(5); got != 2 {
		t.Errorf("Increment = %d, want 2", got)
	}
	if got := vc.Decrement(5); got != 1 {
		t.Errorf("Decrement = %d, want 1", got)
	}
	if got := vc.Count(5); got != 1 {
		t.Errorf("Count = %d, want 1", got)
	}
}

func TestViewerCounter_FlooredAtZero(t *testing.T) {
	vc := NewViewerCounter()

	// Duplicate disconnects must clamp, not go negative.
	for i := 0; i < 3; i++ {
		if got := vc.Decrement(5); got != 0 {
			t.Errorf("Decrement from empty = %d, want 0", got)
		}
	}

	vc.Increment(5)
	vc.Decrement(5)
	if got := vc.Decrement(5); got != 0 {
		t.Errorf("Decrement past zero = %d, want 0", got)
	}
}

func TestViewerCounter_Reset(t *testing.T) {
	vc := NewViewerCounter()

	vc.Increment(5)
	vc.Increment(5)
	vc.Increment(6)

	vc.Reset(5)

	if got := vc.Count(5); got != 0 {
		t.Errorf("Count(5) after reset = %d, want 0", got)
	}
	if got := vc.Count(6); got != 1 {
		t.Errorf("Count(6) = %d, want 1", got)
	}
}

func TestViewerCounter_ConcurrentNoLostUpdates(t *testing.T) {
	vc := NewViewerCounter()

	const workers = 16
	const perWorker = 500

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				vc.Increment(5)
				vc.Increment(6)
			}
		}()
	}
	wg.Wait()

	want := int64(workers * perWorker)
	if got := vc.Count(5); got != want {
		t.Errorf("Count(5) = %d, want %d", got, want)
	}
	if got := vc.Count(6); got != want {
		t.Errorf("Count(6) = %d, want %d", got, want)
	}
}
