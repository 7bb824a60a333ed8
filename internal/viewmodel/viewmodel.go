// Package viewmodel holds the presentation state of the tracker screens.
//
// Controllers never block their caller. Each operation launches a job on
// a lifecycle.Scope: the store call runs in the background, then the
// result is published on the foreground. Observers read the published
// state through observable.Readable and observable.Signal.
package viewmodel

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/verte-zerg/sleeptrack/internal/format"
	"github.com/verte-zerg/sleeptrack/internal/lifecycle"
	"github.com/verte-zerg/sleeptrack/internal/model"
	"github.com/verte-zerg/sleeptrack/internal/observable"
)

// QualityStore is the store surface used by QualityController.
type QualityStore interface {
	Get(ctx context.Context, id int64) (model.SessionRecord, error)
	Update(ctx context.Context, rec model.SessionRecord) error
}

// TrackerStore is the store surface used by TrackerController.
type TrackerStore interface {
	GetLatest(ctx context.Context) (model.SessionRecord, error)
	GetAll(ctx context.Context) ([]model.SessionRecord, error)
	Insert(ctx context.Context, rec model.SessionRecord) (int64, error)
	Update(ctx context.Context, rec model.SessionRecord) error
	Clear(ctx context.Context) error
	Revision() uint64
	Watch(fn func(rev uint64)) (stop func())
}

// Clock supplies timestamps for start and stop.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now() }

// Option configures a controller.
type Option func(*options)

type options struct {
	clock  Clock
	logf   func(format string, args ...any)
	layout string
}

func defaultOptions() options {
	return options{
		clock:  systemClock{},
		logf:   logErrf,
		layout: format.DefaultTimeLayout,
	}
}

// WithClock overrides the time source.
func WithClock(c Clock) Option {
	return func(o *options) {
		if c != nil {
			o.clock = c
		}
	}
}

// WithLogf overrides where failures are logged.
func WithLogf(fn func(format string, args ...any)) Option {
	return func(o *options) {
		if fn != nil {
			o.logf = fn
		}
	}
}

// WithTimeLayout sets the layout used for display text.
func WithTimeLayout(layout string) Option {
	return func(o *options) {
		if layout != "" {
			o.layout = layout
		}
	}
}

// base is the part shared by every controller: the scope, and the error
// signal failed store calls are reported on.
type base struct {
	scope  *lifecycle.Scope
	opts   options
	errors *observable.Event[error]
}

func newBase(scope *lifecycle.Scope, opts []Option) base {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return base{
		scope:  scope,
		opts:   o,
		errors: observable.NewEvent[error](),
	}
}

// launch wraps work so failures are logged and emitted on the error signal
// while the rest of the published state is left untouched.
func (b *base) launch(name string, work lifecycle.Work) *lifecycle.Job {
	return b.scope.Launch(name, func(ctx context.Context) (func(), error) {
		publish, err := work(ctx)
		if err != nil {
			err = fmt.Errorf("%s: %w", name, err)
			return func() {
				b.opts.logf("%v\n", err)
				b.errors.Emit(err)
			}, err
		}
		return publish, nil
	})
}

// Errors signals failed store operations.
func (b *base) Errors() observable.Signal[error] {
	return b.errors
}

// AcknowledgeError returns the error signal to rest.
func (b *base) AcknowledgeError() {
	b.errors.Acknowledge()
}

// Close tears down the controller's scope. Safe to call more than once.
func (b *base) Close() {
	b.scope.Close()
}

func logErrf(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		// Best-effort logging to stderr.
		_ = err
	}
}
