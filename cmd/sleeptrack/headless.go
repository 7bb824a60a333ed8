package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/verte-zerg/sleeptrack/internal/format"
	"github.com/verte-zerg/sleeptrack/internal/lifecycle"
	"github.com/verte-zerg/sleeptrack/internal/model"
	"github.com/verte-zerg/sleeptrack/internal/store"
	"github.com/verte-zerg/sleeptrack/internal/viewmodel"
)

// headless drives the controllers without a UI: every command waits for
// its job and then reads the published state.
type headless struct {
	cfg     model.Config
	store   *store.Store
	fg      *lifecycle.Foreground
	bg      *lifecycle.Background
	tracker *viewmodel.TrackerController
	now     func() time.Time
}

func openStore(cfg model.Config) (*store.Store, error) {
	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open db: %w", err)
	}
	return st, nil
}

func closeStore(st *store.Store) {
	if err := st.Close(); err != nil {
		logErrf("failed to close db: %v\n", err)
	}
}

func withTracker(cfg model.Config, fn func(h *headless) error) error {
	st, err := openStore(cfg)
	if err != nil {
		return err
	}
	defer closeStore(st)

	h, err := newHeadless(st, cfg)
	if err != nil {
		return err
	}
	defer h.close()
	return fn(h)
}

func newHeadless(st *store.Store, cfg model.Config, opts ...viewmodel.Option) (*headless, error) {
	h := &headless{
		cfg:   cfg,
		store: st,
		fg:    lifecycle.NewForeground(0),
		bg:    lifecycle.NewBackground(cfg.Workers),
		now:   time.Now,
	}
	h.tracker = viewmodel.NewTrackerController(h.scope(), st, h.options(opts)...)
	if err := h.tracker.Loaded().Wait(context.Background()); err != nil {
		h.close()
		return nil, fmt.Errorf("failed to load sessions: %w", err)
	}
	return h, nil
}

// options silences controller logging: failures reach the user through
// the returned job error.
func (h *headless) options(extra []viewmodel.Option) []viewmodel.Option {
	base := []viewmodel.Option{
		viewmodel.WithTimeLayout(h.cfg.TimeLayout),
		viewmodel.WithLogf(discardLogf),
	}
	return append(base, extra...)
}

func (h *headless) scope() *lifecycle.Scope {
	return lifecycle.NewScope(context.Background(), h.fg, h.bg)
}

func (h *headless) close() {
	h.tracker.Close()
	h.fg.Close()
}

func (h *headless) start(out io.Writer) error {
	if cur := h.tracker.Current().Get(); cur != nil && cur.InProgress() {
		_, err := fmt.Fprintf(out, "Already sleeping since %s (session %d).\n",
			cur.StartTime.Format(h.cfg.TimeLayout), cur.ID)
		return err
	}
	if err := h.tracker.Start().Wait(context.Background()); err != nil {
		return err
	}
	cur := h.tracker.Current().Get()
	if cur == nil {
		return fmt.Errorf("session was not recorded")
	}
	_, err := fmt.Fprintf(out, "Started session %d at %s. Sleep well.\n",
		cur.ID, cur.StartTime.Format(h.cfg.TimeLayout))
	return err
}

// stop ends the current session and, when quality is a valid rating,
// rates it in the same run.
func (h *headless) stop(out io.Writer, quality int) error {
	if quality != model.QualityUnset && !model.ValidQuality(quality) {
		return fmt.Errorf("--quality %d: %w", quality, model.ErrInvalidQuality)
	}
	if cur := h.tracker.Current().Get(); cur == nil || !cur.InProgress() {
		return fmt.Errorf("no sleep session in progress")
	}
	if err := h.tracker.Stop().Wait(context.Background()); err != nil {
		return err
	}
	rec, ok := h.tracker.ProceedToRating().Pending()
	if !ok {
		return fmt.Errorf("session was not stopped")
	}
	h.tracker.AcknowledgeProceedToRating()
	if _, err := fmt.Fprintf(out, "Stopped session %d after %s.\n", rec.ID, format.Duration(rec.Duration())); err != nil {
		return err
	}
	if quality == model.QualityUnset {
		_, err := fmt.Fprintf(out, "Rate it with: sleeptrack rate %d <%d-%d>\n", rec.ID, model.QualityMin, model.QualityMax)
		return err
	}
	return h.rate(out, rec.ID, quality)
}

func (h *headless) rate(out io.Writer, id int64, quality int) error {
	q := viewmodel.NewQualityController(h.scope(), h.store, id, h.options(nil)...)
	defer q.Close()
	if err := q.SetQuality(quality).Wait(context.Background()); err != nil {
		return err
	}
	if _, ok := q.Proceed().Pending(); !ok {
		return fmt.Errorf("session %d: %w", id, model.ErrSessionNotFound)
	}
	q.AcknowledgeProceed()
	_, err := fmt.Fprintf(out, "Rated session %d: %s.\n", id, format.QualityLabel(quality))
	return err
}

func (h *headless) clear(out io.Writer) error {
	if err := h.tracker.Clear().Wait(context.Background()); err != nil {
		return err
	}
	if _, ok := h.tracker.Snackbar().Pending(); !ok {
		return errors.New("sessions were not cleared")
	}
	h.tracker.AcknowledgeSnackbar()
	_, err := fmt.Fprintln(out, "All sleep data cleared.")
	return err
}

func (h *headless) list(out io.Writer) error {
	if _, err := fmt.Fprintln(out, h.tracker.DisplayText().Get()); err != nil {
		return err
	}
	if cur := h.tracker.Current().Get(); cur != nil && cur.InProgress() {
		_, err := fmt.Fprintf(out, "\nCurrently sleeping, started %s.\n", humanize.RelTime(cur.StartTime, h.now(), "ago", "from now"))
		return err
	}
	return nil
}

func discardLogf(string, ...any) {}
