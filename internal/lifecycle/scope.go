package lifecycle

import (
	"context"
	"errors"
	"sync"
)

// ErrScopeClosed is reported by jobs dropped because their scope was torn
// down, whichever phase they were in.
var ErrScopeClosed = errors.New("scope closed")

// Work is the background phase of a job. It returns the foreground phase,
// which may be nil when there is nothing to publish. A publish returned
// together with an error still runs, so callers can surface the failure.
type Work func(ctx context.Context) (publish func(), err error)

// ErrorHandler is run on the foreground, after the failure publish, when a
// job's background phase fails.
type ErrorHandler func(name string, err error)

// Option configures a Scope.
type Option func(*Scope)

// WithErrorHandler sets the handler for failed jobs.
func WithErrorHandler(fn ErrorHandler) Option {
	return func(s *Scope) {
		s.onError = fn
	}
}

// Scope submits jobs tied to one UI component. Close cancels in-flight
// background work and guarantees no publish runs after it returns.
type Scope struct {
	ctx    context.Context
	cancel context.CancelFunc
	fg     *Foreground
	bg     *Background

	onError ErrorHandler

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup

	// publishing is held while a publish step runs so Close can wait for it.
	publishing sync.Mutex
}

// NewScope derives a scope from parent. Cancelling parent tears the scope down too.
func NewScope(parent context.Context, fg *Foreground, bg *Background, opts ...Option) *Scope {
	ctx, cancel := context.WithCancel(parent)
	s := &Scope{
		ctx:    ctx,
		cancel: cancel,
		fg:     fg,
		bg:     bg,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Context returns the scope's context, done once the scope is closed.
func (s *Scope) Context() context.Context {
	return s.ctx
}

// Launch runs work on the background pool and its publish step on the foreground.
// Publish steps and the subscribers they notify may call Launch, but not Close.
func (s *Scope) Launch(name string, work Work) *Job {
	job := newJob(name)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		job.finish(ErrScopeClosed)
		return job
	}
	s.wg.Add(1)
	s.mu.Unlock()

	go func() {
		defer s.wg.Done()
		var (
			publish func()
			werr    error
		)
		if err := s.bg.Do(s.ctx, func(ctx context.Context) {
			publish, werr = work(ctx)
		}); err != nil {
			job.finish(ErrScopeClosed)
			return
		}
		if werr != nil {
			if s.ctx.Err() != nil {
				job.finish(ErrScopeClosed)
				return
			}
			s.post(job, werr, func() {
				if publish != nil {
					publish()
				}
				if s.onError != nil {
					s.onError(name, werr)
				}
			})
			return
		}
		s.post(job, nil, publish)
	}()
	return job
}

func (s *Scope) post(job *Job, result error, fn func()) {
	if s.ctx.Err() != nil {
		job.finish(ErrScopeClosed)
		return
	}
	ok := s.fg.Post(func() {
		s.publishing.Lock()
		defer s.publishing.Unlock()
		if s.Closed() {
			job.finish(ErrScopeClosed)
			return
		}
		if fn != nil {
			fn()
		}
		job.finish(result)
	})
	if !ok {
		job.finish(ErrScopeClosed)
	}
}

// Close tears the scope down and waits for a publish step already running.
// Safe to call more than once.
func (s *Scope) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return
	}
	s.closed = true
	s.mu.Unlock()
	s.cancel()

	s.publishing.Lock()
	defer s.publishing.Unlock()
}

// Closed reports whether Close has been called.
func (s *Scope) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Wait blocks until every launched job left the background phase.
func (s *Scope) Wait() {
	s.wg.Wait()
}

// Job is the handle of one launched unit of work.
type Job struct {
	name string
	done chan struct{}
	once sync.Once
	err  error
}

func newJob(name string) *Job {
	return &Job{name: name, done: make(chan struct{})}
}

func (j *Job) finish(err error) {
	j.once.Do(func() {
		j.err = err
		close(j.done)
	})
}

// Name returns the label the job was launched with.
func (j *Job) Name() string {
	return j.name
}

// Done is closed once the job published, failed, or was dropped.
func (j *Job) Done() <-chan struct{} {
	return j.done
}

// Err returns the job result. Only meaningful after Done is closed.
func (j *Job) Err() error {
	select {
	case <-j.done:
		return j.err
	default:
		return nil
	}
}

// Wait blocks until the job is done or ctx ends.
func (j *Job) Wait(ctx context.Context) error {
	select {
	case <-j.done:
		return j.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Finished returns an already completed job, used by operations that are no-ops.
func Finished(name string, err error) *Job {
	job := newJob(name)
	job.finish(err)
	return job
}
