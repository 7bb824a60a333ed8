// Package tui provides the Bubble Tea sleep tracker interface.
package tui

import (
	"context"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"

	"github.com/verte-zerg/sleeptrack/internal/lifecycle"
	"github.com/verte-zerg/sleeptrack/internal/model"
	"github.com/verte-zerg/sleeptrack/internal/store"
	"github.com/verte-zerg/sleeptrack/internal/viewmodel"
)

type screen int

const (
	screenTracker screen = iota
	screenQuality
)

const (
	snackbarDuration = 3 * time.Second
	tickInterval     = time.Second
	defaultRating    = 3
)

// Messages published by controllers reach the program through events.
type (
	eventMsg struct {
		msg tea.Msg
	}
	trackerChangedMsg struct{}
	snackbarMsg       struct{}
	ratingMsg         struct {
		rec model.SessionRecord
	}
	proceedMsg struct{}
	errorMsg   struct {
		err    error
		rating bool
	}
	snackbarExpiredMsg struct {
		seq int
	}
	tickMsg time.Time
)

// App is the root Bubble Tea model: a tracker screen and a rating screen.
type App struct {
	store *store.Store
	cfg   model.Config
	opts  []viewmodel.Option

	ctx    context.Context
	cancel context.CancelFunc
	fg     *lifecycle.Foreground
	bg     *lifecycle.Background

	tracker *viewmodel.TrackerController
	quality *viewmodel.QualityController

	events    *mailbox
	quit      chan struct{}
	closeOnce sync.Once

	keys     keyMap
	help     help.Model
	viewport viewport.Model

	screen screen
	width  int
	height int
	now    time.Time

	current      *model.SessionRecord
	startVisible bool
	stopVisible  bool
	clearVisible bool

	rated  model.SessionRecord
	rating int
	form   *huh.Form
	saving bool

	snackbar    string
	snackbarSeq int
	errMsg      string
}

// NewApp builds the tracker UI over st and starts the initial load.
// Call Close once the program has exited.
func NewApp(st *store.Store, cfg model.Config, opts ...viewmodel.Option) *App {
	ctx, cancel := context.WithCancel(context.Background())
	a := &App{
		store:    st,
		cfg:      cfg,
		opts:     append([]viewmodel.Option{viewmodel.WithTimeLayout(cfg.TimeLayout)}, opts...),
		ctx:      ctx,
		cancel:   cancel,
		fg:       lifecycle.NewForeground(0),
		bg:       lifecycle.NewBackground(cfg.Workers),
		events:   newMailbox(),
		quit:     make(chan struct{}),
		keys:     defaultKeys(),
		help:     help.New(),
		viewport: viewport.New(0, 0),
		now:      time.Now(),
	}
	a.tracker = viewmodel.NewTrackerController(lifecycle.NewScope(ctx, a.fg, a.bg), st, a.opts...)
	a.bindTracker()
	a.syncTracker()
	return a
}

func (a *App) bindTracker() {
	t := a.tracker
	t.Current().Subscribe(func(*model.SessionRecord) { a.emit(trackerChangedMsg{}) })
	t.DisplayText().Subscribe(func(string) { a.emit(trackerChangedMsg{}) })
	t.Snackbar().Subscribe(func(bool) { a.emit(snackbarMsg{}) })
	t.ProceedToRating().Subscribe(func(rec model.SessionRecord) { a.emit(ratingMsg{rec: rec}) })
	t.Errors().Subscribe(func(err error) { a.emit(errorMsg{err: err}) })
}

// emit runs on the foreground, inside a publish step. It must not block.
func (a *App) emit(msg tea.Msg) {
	a.events.push(eventMsg{msg: msg})
}

func (a *App) waitForEvent() tea.Cmd {
	return func() tea.Msg {
		msg, ok := a.events.next(a.quit)
		if !ok {
			return nil
		}
		return msg
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Close tears down the controllers and the foreground. Safe to call more than once.
func (a *App) Close() {
	a.closeOnce.Do(func() {
		close(a.quit)
		if a.quality != nil {
			a.quality.Close()
		}
		a.tracker.Close()
		a.cancel()
		a.fg.Close()
	})
}

// Init implements tea.Model.
func (a *App) Init() tea.Cmd {
	return tea.Batch(
		a.waitForEvent(),
		func() tea.Msg { return trackerChangedMsg{} },
		tickCmd(),
	)
}

// Update implements tea.Model.
func (a *App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.help.Width = msg.Width
		a.resizeViewport()
		if a.form != nil {
			a.form = a.form.WithWidth(msg.Width)
		}
		return a, nil
	case tickMsg:
		a.now = time.Time(msg)
		return a, tickCmd()
	case eventMsg:
		cmd := a.handleEvent(msg.msg)
		return a, tea.Batch(cmd, a.waitForEvent())
	case trackerChangedMsg:
		a.syncTracker()
		return a, nil
	case snackbarExpiredMsg:
		if msg.seq == a.snackbarSeq {
			a.snackbar = ""
		}
		return a, nil
	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			a.Close()
			return a, tea.Quit
		}
		if a.screen == screenQuality {
			return a.updateQuality(msg)
		}
		return a.updateTracker(msg)
	}
	if a.form != nil {
		return a.updateForm(msg)
	}
	return a, nil
}

func (a *App) handleEvent(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case trackerChangedMsg:
		a.syncTracker()
	case snackbarMsg:
		if _, ok := a.tracker.Snackbar().Pending(); !ok {
			return nil
		}
		a.tracker.AcknowledgeSnackbar()
		a.snackbarSeq++
		a.snackbar = "All sleep data cleared."
		seq := a.snackbarSeq
		return tea.Tick(snackbarDuration, func(time.Time) tea.Msg {
			return snackbarExpiredMsg{seq: seq}
		})
	case ratingMsg:
		if _, ok := a.tracker.ProceedToRating().Pending(); !ok {
			return nil
		}
		a.tracker.AcknowledgeProceedToRating()
		return a.openQuality(msg.rec)
	case proceedMsg:
		if a.quality == nil {
			return nil
		}
		if _, ok := a.quality.Proceed().Pending(); !ok {
			return nil
		}
		a.quality.AcknowledgeProceed()
		a.closeQuality()
	case errorMsg:
		a.errMsg = msg.err.Error()
		if msg.rating && a.quality != nil {
			a.quality.AcknowledgeError()
			a.saving = false
			a.form = newQualityForm(a.rated, &a.rating, a.cfg.TimeLayout)
			return a.form.Init()
		}
		a.tracker.AcknowledgeError()
	}
	return nil
}

func (a *App) updateTracker(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, a.keys.Quit):
		a.Close()
		return a, tea.Quit
	case key.Matches(msg, a.keys.Start):
		a.errMsg = ""
		a.tracker.Start()
		return a, nil
	case key.Matches(msg, a.keys.Stop):
		a.errMsg = ""
		a.tracker.Stop()
		return a, nil
	case key.Matches(msg, a.keys.Clear):
		a.errMsg = ""
		a.tracker.Clear()
		return a, nil
	case key.Matches(msg, a.keys.Refresh):
		a.tracker.Refresh()
		return a, nil
	case key.Matches(msg, a.keys.Help):
		a.help.ShowAll = !a.help.ShowAll
		a.resizeViewport()
		return a, nil
	}
	var cmd tea.Cmd
	a.viewport, cmd = a.viewport.Update(msg)
	return a, cmd
}

func (a *App) updateQuality(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if key.Matches(msg, a.keys.Skip) && !a.saving {
		a.closeQuality()
		return a, nil
	}
	if a.form == nil {
		return a, nil
	}
	return a.updateForm(msg)
}

func (a *App) updateForm(msg tea.Msg) (tea.Model, tea.Cmd) {
	form, cmd := a.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		a.form = f
	}
	switch a.form.State {
	case huh.StateCompleted:
		a.form = nil
		a.submitRating(a.rating)
		return a, nil
	case huh.StateAborted:
		a.closeQuality()
		return a, nil
	}
	return a, cmd
}

// openQuality switches to the rating screen for rec, on a fresh scope.
func (a *App) openQuality(rec model.SessionRecord) tea.Cmd {
	q := viewmodel.NewQualityController(lifecycle.NewScope(a.ctx, a.fg, a.bg), a.store, rec.ID, a.opts...)
	q.Proceed().Subscribe(func(bool) { a.emit(proceedMsg{}) })
	q.Errors().Subscribe(func(err error) { a.emit(errorMsg{err: err, rating: true}) })

	a.quality = q
	a.rated = rec
	a.rating = defaultRating
	a.saving = false
	a.screen = screenQuality
	a.form = newQualityForm(rec, &a.rating, a.cfg.TimeLayout)
	if a.width > 0 {
		a.form = a.form.WithWidth(a.width)
	}
	return a.form.Init()
}

func (a *App) submitRating(rating int) {
	if a.quality == nil {
		return
	}
	a.saving = true
	a.errMsg = ""
	a.quality.SetQuality(rating)
}

// closeQuality leaves the rating screen and reconciles the tracker with
// the store, since the stopped session is still held as current.
func (a *App) closeQuality() {
	if a.quality != nil {
		a.quality.Close()
		a.quality = nil
	}
	a.form = nil
	a.saving = false
	a.screen = screenTracker
	a.tracker.Refresh()
}

func (a *App) syncTracker() {
	a.current = a.tracker.Current().Get()
	a.startVisible = a.tracker.StartVisible().Get()
	a.stopVisible = a.tracker.StopVisible().Get()
	a.clearVisible = a.tracker.ClearVisible().Get()
	a.keys.setVisible(a.startVisible, a.stopVisible, a.clearVisible)
	a.viewport.SetContent(a.tracker.DisplayText().Get())
}

func (a *App) resizeViewport() {
	a.viewport.Width = a.width
	a.viewport.Height = max(1, a.height-a.chromeHeight())
}
