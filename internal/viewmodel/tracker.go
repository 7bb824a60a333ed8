package viewmodel

import (
	"context"
	"errors"

	"github.com/verte-zerg/sleeptrack/internal/format"
	"github.com/verte-zerg/sleeptrack/internal/lifecycle"
	"github.com/verte-zerg/sleeptrack/internal/model"
	"github.com/verte-zerg/sleeptrack/internal/observable"
)

// TrackerController owns the in-progress session and the session list.
type TrackerController struct {
	base
	store TrackerStore

	current  *observable.Value[*model.SessionRecord]
	sessions *observable.Value[[]model.SessionRecord]

	startVisible *observable.Value[bool]
	stopVisible  *observable.Value[bool]
	clearVisible *observable.Value[bool]
	displayText  *observable.Value[string]

	snackbar        *observable.Event[bool]
	proceedToRating *observable.Event[model.SessionRecord]

	// Store revisions of the last applied loads. Foreground only.
	currentRev  uint64
	sessionsRev uint64

	unwatch func()
	loaded  *lifecycle.Job
}

// NewTrackerController returns a controller and starts loading the latest
// session and the session list from st.
func NewTrackerController(scope *lifecycle.Scope, st TrackerStore, opts ...Option) *TrackerController {
	c := &TrackerController{
		base:            newBase(scope, opts),
		store:           st,
		current:         observable.NewValue[*model.SessionRecord](nil),
		sessions:        observable.NewValue[[]model.SessionRecord](nil),
		snackbar:        observable.NewEvent[bool](),
		proceedToRating: observable.NewEvent[model.SessionRecord](),
	}
	c.startVisible = observable.Map[*model.SessionRecord](c.current, func(r *model.SessionRecord) bool { return r == nil })
	c.stopVisible = observable.Map[*model.SessionRecord](c.current, func(r *model.SessionRecord) bool { return r != nil })
	c.clearVisible = observable.Map[[]model.SessionRecord](c.sessions, func(rs []model.SessionRecord) bool { return len(rs) > 0 })
	layout := c.opts.layout
	c.displayText = observable.Map[[]model.SessionRecord](c.sessions, func(rs []model.SessionRecord) string {
		return format.Sessions(rs, layout)
	})

	c.unwatch = st.Watch(func(uint64) {
		c.launch("reload-sessions", c.loadSessions)
	})
	c.loaded = c.launch("load", c.loadAll)
	return c
}

// Current is the in-progress session, nil when nothing is tracked.
func (c *TrackerController) Current() observable.Readable[*model.SessionRecord] {
	return c.current
}

// Sessions is every stored session, newest first.
func (c *TrackerController) Sessions() observable.Readable[[]model.SessionRecord] {
	return c.sessions
}

// StartVisible is true while no session is tracked.
func (c *TrackerController) StartVisible() observable.Readable[bool] {
	return c.startVisible
}

// StopVisible is true while a session is tracked.
func (c *TrackerController) StopVisible() observable.Readable[bool] {
	return c.stopVisible
}

// ClearVisible is true while any session is stored.
func (c *TrackerController) ClearVisible() observable.Readable[bool] {
	return c.clearVisible
}

// DisplayText is the formatted session list.
func (c *TrackerController) DisplayText() observable.Readable[string] {
	return c.displayText
}

// Snackbar signals that all sessions were cleared.
func (c *TrackerController) Snackbar() observable.Signal[bool] {
	return c.snackbar
}

// ProceedToRating carries the session just stopped.
func (c *TrackerController) ProceedToRating() observable.Signal[model.SessionRecord] {
	return c.proceedToRating
}

// Loaded is the initial load launched by the constructor.
func (c *TrackerController) Loaded() *lifecycle.Job {
	return c.loaded
}

// Refresh reconciles Current and Sessions with the store.
func (c *TrackerController) Refresh() *lifecycle.Job {
	return c.launch("refresh", c.loadAll)
}

// Start inserts a new in-progress session and reloads Current.
// It does nothing while a session is in progress.
func (c *TrackerController) Start() *lifecycle.Job {
	if cur := c.current.Get(); cur != nil && cur.InProgress() {
		return lifecycle.Finished("start", nil)
	}
	return c.launch("start", func(ctx context.Context) (func(), error) {
		rec := model.NewSessionRecord(c.opts.clock.Now())
		if _, err := c.store.Insert(ctx, rec); err != nil {
			return nil, err
		}
		return c.loadAll(ctx)
	})
}

// Stop ends the tracked session and signals ProceedToRating with it.
// Current keeps the stopped record until the next Refresh.
func (c *TrackerController) Stop() *lifecycle.Job {
	cur := c.current.Get()
	if cur == nil {
		return lifecycle.Finished("stop", nil)
	}
	rec := *cur
	return c.launch("stop", func(ctx context.Context) (func(), error) {
		rec.EndTime = c.opts.clock.Now()
		if err := c.store.Update(ctx, rec); err != nil {
			return nil, err
		}
		rev := c.store.Revision()
		return func() {
			stopped := rec
			c.applyCurrent(rev, &stopped)
			c.proceedToRating.Emit(rec)
		}, nil
	})
}

// Clear deletes every session and signals Snackbar.
func (c *TrackerController) Clear() *lifecycle.Job {
	return c.launch("clear", func(ctx context.Context) (func(), error) {
		if err := c.store.Clear(ctx); err != nil {
			return nil, err
		}
		rev := c.store.Revision()
		return func() {
			c.applyCurrent(rev, nil)
			c.applySessions(rev, nil)
			c.snackbar.Emit(true)
		}, nil
	})
}

// AcknowledgeSnackbar returns the Snackbar signal to rest.
func (c *TrackerController) AcknowledgeSnackbar() {
	c.snackbar.Acknowledge()
}

// AcknowledgeProceedToRating returns the ProceedToRating signal to rest.
func (c *TrackerController) AcknowledgeProceedToRating() {
	c.proceedToRating.Acknowledge()
}

// Close stops watching the store and tears down the scope.
func (c *TrackerController) Close() {
	c.unwatch()
	c.base.Close()
}

// loadAll reads the latest session and the list. A latest session that
// already ended is not adopted as Current.
func (c *TrackerController) loadAll(ctx context.Context) (func(), error) {
	rev := c.store.Revision()
	var cur *model.SessionRecord
	latest, err := c.store.GetLatest(ctx)
	switch {
	case errors.Is(err, model.ErrSessionNotFound):
	case err != nil:
		return nil, err
	case latest.InProgress():
		cur = &latest
	}
	all, err := c.store.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	return func() {
		c.applyCurrent(rev, cur)
		c.applySessions(rev, all)
	}, nil
}

func (c *TrackerController) loadSessions(ctx context.Context) (func(), error) {
	rev := c.store.Revision()
	all, err := c.store.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	return func() {
		c.applySessions(rev, all)
	}, nil
}

// applyCurrent and applySessions drop loads that started before the last
// applied one, so a slow read never overwrites newer state.
func (c *TrackerController) applyCurrent(rev uint64, cur *model.SessionRecord) {
	if rev < c.currentRev {
		return
	}
	c.currentRev = rev
	c.current.Set(cur)
}

func (c *TrackerController) applySessions(rev uint64, all []model.SessionRecord) {
	if rev < c.sessionsRev {
		return
	}
	c.sessionsRev = rev
	c.sessions.Set(all)
}
