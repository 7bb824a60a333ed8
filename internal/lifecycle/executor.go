// Package lifecycle runs store work off the UI path and publishes results
// on a single serial foreground, bound to the lifetime of a UI component.
package lifecycle

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

const (
	defaultForegroundBuffer = 64
	defaultBackgroundSlots  = 4
)

// Foreground executes posted closures one at a time, in post order, on a
// single goroutine. Published UI state is only mutated from here.
type Foreground struct {
	queue chan func()
	done  chan struct{}

	mu     sync.RWMutex
	closed bool
}

// NewForeground starts a foreground loop with the given queue size.
func NewForeground(buffer int) *Foreground {
	if buffer <= 0 {
		buffer = defaultForegroundBuffer
	}
	f := &Foreground{
		queue: make(chan func(), buffer),
		done:  make(chan struct{}),
	}
	go f.loop()
	return f
}

func (f *Foreground) loop() {
	for {
		select {
		case fn := <-f.queue:
			fn()
		case <-f.done:
			for {
				select {
				case fn := <-f.queue:
					fn()
				default:
					return
				}
			}
		}
	}
}

// Post enqueues fn. It reports false once the foreground is closed.
func (f *Foreground) Post(fn func()) bool {
	f.mu.RLock()
	defer f.mu.RUnlock()
	if f.closed {
		return false
	}
	f.queue <- fn
	return true
}

// Close stops accepting closures. Closures already queued still run.
func (f *Foreground) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.closed {
		return
	}
	f.closed = true
	close(f.done)
}

// Background bounds how many blocking store calls run at once.
type Background struct {
	sem *semaphore.Weighted
}

// NewBackground returns a pool allowing up to slots concurrent calls.
func NewBackground(slots int) *Background {
	if slots <= 0 {
		slots = defaultBackgroundSlots
	}
	return &Background{sem: semaphore.NewWeighted(int64(slots))}
}

// Do runs fn in the calling goroutine once a slot is free.
// It returns ctx.Err() without running fn if ctx ends first.
func (b *Background) Do(ctx context.Context, fn func(context.Context)) error {
	if err := b.sem.Acquire(ctx, 1); err != nil {
		return err
	}
	defer b.sem.Release(1)
	if err := ctx.Err(); err != nil {
		return err
	}
	fn(ctx)
	return nil
}
