package lifecycle

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func newTestScope(t *testing.T, opts ...Option) *Scope {
	t.Helper()
	fg := NewForeground(0)
	t.Cleanup(fg.Close)
	s := NewScope(context.Background(), fg, NewBackground(2), opts...)
	t.Cleanup(s.Close)
	return s
}

func waitJob(t *testing.T, job *Job) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	select {
	case <-job.Done():
		return job.Err()
	case <-ctx.Done():
		t.Fatalf("job %s did not finish", job.Name())
		return nil
	}
}

func TestLaunchPublishesOnForeground(t *testing.T) {
	s := newTestScope(t)

	var published atomic.Bool
	job := s.Launch("load", func(ctx context.Context) (func(), error) {
		return func() { published.Store(true) }, nil
	})
	if err := waitJob(t, job); err != nil {
		t.Fatalf("unexpected job error: %v", err)
	}
	if !published.Load() {
		t.Fatalf("expected publish step to run")
	}
}

func TestPublishStepsAreSerial(t *testing.T) {
	s := newTestScope(t)

	var running, overlaps atomic.Int32
	jobs := make([]*Job, 0, 20)
	for i := 0; i < 20; i++ {
		jobs = append(jobs, s.Launch("tick", func(ctx context.Context) (func(), error) {
			return func() {
				if running.Add(1) > 1 {
					overlaps.Add(1)
				}
				time.Sleep(time.Millisecond)
				running.Add(-1)
			}, nil
		}))
	}
	for _, job := range jobs {
		if err := waitJob(t, job); err != nil {
			t.Fatalf("unexpected job error: %v", err)
		}
	}
	if overlaps.Load() != 0 {
		t.Fatalf("publish steps overlapped %d times", overlaps.Load())
	}
}

func TestCloseDropsPendingPublish(t *testing.T) {
	s := newTestScope(t)

	release := make(chan struct{})
	var published atomic.Bool
	job := s.Launch("slow", func(ctx context.Context) (func(), error) {
		<-release
		return func() { published.Store(true) }, nil
	})

	s.Close()
	close(release)

	err := waitJob(t, job)
	if !errors.Is(err, ErrScopeClosed) {
		t.Fatalf("expected ErrScopeClosed, got %v", err)
	}
	if published.Load() {
		t.Fatalf("publish ran after close")
	}
}

func TestCloseCancelsBackgroundContext(t *testing.T) {
	s := newTestScope(t)

	started := make(chan struct{})
	var sawCancel atomic.Bool
	job := s.Launch("blocking", func(ctx context.Context) (func(), error) {
		close(started)
		<-ctx.Done()
		sawCancel.Store(true)
		return nil, ctx.Err()
	})
	<-started
	s.Close()

	if err := waitJob(t, job); !errors.Is(err, ErrScopeClosed) {
		t.Fatalf("expected ErrScopeClosed, got %v", err)
	}
	if !sawCancel.Load() {
		t.Fatalf("expected work to observe cancellation")
	}
}

func TestLaunchAfterCloseIsNoop(t *testing.T) {
	s := newTestScope(t)
	s.Close()
	s.Close()
	if !s.Closed() {
		t.Fatalf("expected scope to report closed")
	}

	var ran atomic.Bool
	job := s.Launch("late", func(ctx context.Context) (func(), error) {
		ran.Store(true)
		return nil, nil
	})
	if err := waitJob(t, job); !errors.Is(err, ErrScopeClosed) {
		t.Fatalf("expected ErrScopeClosed, got %v", err)
	}
	s.Wait()
	if ran.Load() {
		t.Fatalf("work ran on a closed scope")
	}
}

func TestErrorHandlerRunsOnFailure(t *testing.T) {
	var gotName atomic.Value
	var order []string
	s := newTestScope(t, WithErrorHandler(func(name string, err error) {
		gotName.Store(name)
		order = append(order, "handler")
	}))

	boom := errors.New("boom")
	job := s.Launch("write", func(ctx context.Context) (func(), error) {
		return func() { order = append(order, "publish") }, boom
	})
	if err := waitJob(t, job); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if name, _ := gotName.Load().(string); name != "write" {
		t.Fatalf("expected error handler for write, got %q", name)
	}
	if len(order) != 2 || order[0] != "publish" || order[1] != "handler" {
		t.Fatalf("unexpected failure order: %v", order)
	}
}

func TestForegroundCloseDropsPublish(t *testing.T) {
	fg := NewForeground(1)
	s := NewScope(context.Background(), fg, NewBackground(1))
	defer s.Close()
	fg.Close()
	fg.Close()

	job := s.Launch("orphan", func(ctx context.Context) (func(), error) {
		return func() {}, nil
	})
	if err := waitJob(t, job); !errors.Is(err, ErrScopeClosed) {
		t.Fatalf("expected ErrScopeClosed, got %v", err)
	}
}

func TestFinishedJob(t *testing.T) {
	job := Finished("noop", nil)
	if err := job.Wait(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if job.Name() != "noop" {
		t.Fatalf("unexpected name %q", job.Name())
	}
}

func TestPublishMayLaunch(t *testing.T) {
	s := newTestScope(t)

	inner := make(chan *Job, 1)
	outer := s.Launch("outer", func(ctx context.Context) (func(), error) {
		return func() {
			inner <- s.Launch("inner", func(ctx context.Context) (func(), error) {
				return func() {}, nil
			})
		}, nil
	})
	if err := waitJob(t, outer); err != nil {
		t.Fatalf("unexpected outer error: %v", err)
	}
	if err := waitJob(t, <-inner); err != nil {
		t.Fatalf("unexpected inner error: %v", err)
	}
}

func TestCloseWaitsForRunningPublish(t *testing.T) {
	s := newTestScope(t)

	entered := make(chan struct{})
	release := make(chan struct{})
	var finished atomic.Bool
	job := s.Launch("slow-publish", func(ctx context.Context) (func(), error) {
		return func() {
			close(entered)
			<-release
			finished.Store(true)
		}, nil
	})
	<-entered

	closed := make(chan struct{})
	go func() {
		s.Close()
		close(closed)
	}()
	select {
	case <-closed:
		t.Fatalf("close returned while a publish was running")
	case <-time.After(50 * time.Millisecond):
	}
	close(release)
	select {
	case <-closed:
	case <-time.After(5 * time.Second):
		t.Fatalf("close did not return")
	}
	if !finished.Load() {
		t.Fatalf("expected publish to complete before close returned")
	}
	if err := waitJob(t, job); err != nil {
		t.Fatalf("unexpected job error: %v", err)
	}
}
