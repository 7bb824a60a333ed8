package lifecycle

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestForegroundRunsInPostOrder(t *testing.T) {
	fg := NewForeground(4)

	var got []int
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		i := i
		if !fg.Post(func() {
			got = append(got, i)
			wg.Done()
		}) {
			t.Fatalf("post %d rejected", i)
		}
	}
	wg.Wait()
	fg.Close()

	for i, v := range got {
		if v != i {
			t.Fatalf("out of order at %d: %v", i, got)
		}
	}
	if fg.Post(func() {}) {
		t.Fatalf("expected post after close to be rejected")
	}
}

func TestBackgroundLimitsConcurrency(t *testing.T) {
	bg := NewBackground(2)

	var running, peak atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := bg.Do(context.Background(), func(context.Context) {
				n := running.Add(1)
				for {
					p := peak.Load()
					if n <= p || peak.CompareAndSwap(p, n) {
						break
					}
				}
				time.Sleep(2 * time.Millisecond)
				running.Add(-1)
			})
			if err != nil {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()
	if peak.Load() > 2 {
		t.Fatalf("expected at most 2 concurrent calls, saw %d", peak.Load())
	}
}

func TestBackgroundSkipsCancelledContext(t *testing.T) {
	bg := NewBackground(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ran := false
	err := bg.Do(ctx, func(context.Context) { ran = true })
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if ran {
		t.Fatalf("fn ran with cancelled context")
	}
}
