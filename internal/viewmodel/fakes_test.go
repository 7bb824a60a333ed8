package viewmodel

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/verte-zerg/sleeptrack/internal/lifecycle"
	"github.com/verte-zerg/sleeptrack/internal/model"
)

type fakeClock struct {
	mu     sync.Mutex
	values []time.Time
	idx    int
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.idx >= len(f.values) {
		return f.values[len(f.values)-1]
	}
	v := f.values[f.idx]
	f.idx++
	return v
}

// fakeStore is an in-memory store that records writes.
type fakeStore struct {
	mu       sync.Mutex
	records  map[int64]model.SessionRecord
	nextID   int64
	rev      uint64
	updates  []model.SessionRecord
	inserts  int
	clears   int
	watchers map[int]func(uint64)
	nextSub  int

	insertGate chan struct{}
	updateErr  error
}

func newFakeStore(records ...model.SessionRecord) *fakeStore {
	f := &fakeStore{
		records:  map[int64]model.SessionRecord{},
		watchers: map[int]func(uint64){},
	}
	for _, rec := range records {
		f.nextID++
		rec.ID = f.nextID
		f.records[rec.ID] = rec
	}
	return f
}

func (f *fakeStore) Get(_ context.Context, id int64) (model.SessionRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	rec, ok := f.records[id]
	if !ok {
		return model.SessionRecord{}, model.ErrSessionNotFound
	}
	return rec, nil
}

func (f *fakeStore) GetLatest(_ context.Context) (model.SessionRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var latest model.SessionRecord
	for id, rec := range f.records {
		if id > latest.ID {
			latest = rec
		}
	}
	if latest.ID == 0 {
		return model.SessionRecord{}, model.ErrSessionNotFound
	}
	return latest, nil
}

func (f *fakeStore) GetAll(_ context.Context) ([]model.SessionRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.SessionRecord, 0, len(f.records))
	for _, rec := range f.records {
		out = append(out, rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

func (f *fakeStore) Insert(ctx context.Context, rec model.SessionRecord) (int64, error) {
	if f.insertGate != nil {
		select {
		case <-f.insertGate:
		case <-ctx.Done():
		}
	}
	f.mu.Lock()
	f.nextID++
	rec.ID = f.nextID
	f.records[rec.ID] = rec
	f.inserts++
	f.mu.Unlock()
	f.changed()
	return rec.ID, nil
}

func (f *fakeStore) Update(_ context.Context, rec model.SessionRecord) error {
	f.mu.Lock()
	if f.updateErr != nil {
		f.mu.Unlock()
		return f.updateErr
	}
	if _, ok := f.records[rec.ID]; !ok {
		f.mu.Unlock()
		return model.ErrSessionNotFound
	}
	f.records[rec.ID] = rec
	f.updates = append(f.updates, rec)
	f.mu.Unlock()
	f.changed()
	return nil
}

func (f *fakeStore) Clear(_ context.Context) error {
	f.mu.Lock()
	f.records = map[int64]model.SessionRecord{}
	f.clears++
	f.mu.Unlock()
	f.changed()
	return nil
}

func (f *fakeStore) Revision() uint64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.rev
}

func (f *fakeStore) Watch(fn func(uint64)) func() {
	f.mu.Lock()
	id := f.nextSub
	f.nextSub++
	f.watchers[id] = fn
	f.mu.Unlock()
	return func() {
		f.mu.Lock()
		delete(f.watchers, id)
		f.mu.Unlock()
	}
}

func (f *fakeStore) changed() {
	f.mu.Lock()
	f.rev++
	rev := f.rev
	fns := make([]func(uint64), 0, len(f.watchers))
	for _, fn := range f.watchers {
		fns = append(fns, fn)
	}
	f.mu.Unlock()
	for _, fn := range fns {
		fn(rev)
	}
}

func (f *fakeStore) updateCalls() []model.SessionRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]model.SessionRecord(nil), f.updates...)
}

// newScope returns a scope on a fresh foreground that is torn down with the test.
func newScope(t *testing.T) *lifecycle.Scope {
	t.Helper()
	fg := lifecycle.NewForeground(0)
	scope := lifecycle.NewScope(context.Background(), fg, lifecycle.NewBackground(2))
	t.Cleanup(func() {
		scope.Close()
		scope.Wait()
		fg.Close()
	})
	return scope
}

func mustWait(t *testing.T, job *lifecycle.Job) error {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err := job.Wait(ctx)
	if ctx.Err() != nil {
		t.Fatalf("job %s timed out", job.Name())
	}
	return err
}

func discardLogf(string, ...any) {}
