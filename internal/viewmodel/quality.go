package viewmodel

import (
	"context"
	"errors"
	"fmt"

	"github.com/verte-zerg/sleeptrack/internal/lifecycle"
	"github.com/verte-zerg/sleeptrack/internal/model"
	"github.com/verte-zerg/sleeptrack/internal/observable"
)

// QualityController applies a rating to one stored session.
type QualityController struct {
	base
	store     QualityStore
	sessionID int64
	proceed   *observable.Event[bool]
}

// NewQualityController returns a controller rating the session sessionID.
func NewQualityController(scope *lifecycle.Scope, st QualityStore, sessionID int64, opts ...Option) *QualityController {
	return &QualityController{
		base:      newBase(scope, opts),
		store:     st,
		sessionID: sessionID,
		proceed:   observable.NewEvent[bool](),
	}
}

// SessionID returns the id of the rated session.
func (c *QualityController) SessionID() int64 {
	return c.sessionID
}

// Proceed signals that the rating was stored and the screen can be left.
func (c *QualityController) Proceed() observable.Signal[bool] {
	return c.proceed
}

// SetQuality stores rating on the session and then signals Proceed.
// A session that no longer exists, or is deleted before the write, is
// skipped without a signal.
func (c *QualityController) SetQuality(rating int) *lifecycle.Job {
	if !model.ValidQuality(rating) {
		err := fmt.Errorf("set quality %d: %w", rating, model.ErrInvalidQuality)
		c.opts.logf("%v\n", err)
		return lifecycle.Finished("set-quality", err)
	}
	return c.launch("set-quality", func(ctx context.Context) (func(), error) {
		rec, err := c.store.Get(ctx, c.sessionID)
		if errors.Is(err, model.ErrSessionNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		rec.Quality = rating
		err = c.store.Update(ctx, rec)
		if errors.Is(err, model.ErrSessionNotFound) {
			return nil, nil
		}
		if err != nil {
			return nil, err
		}
		return func() {
			c.proceed.Emit(true)
		}, nil
	})
}

// AcknowledgeProceed returns the Proceed signal to rest.
func (c *QualityController) AcknowledgeProceed() {
	c.proceed.Acknowledge()
}
