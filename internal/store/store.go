// Package store handles SQLite persistence.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/verte-zerg/sleeptrack/internal/model"

	_ "modernc.org/sqlite" // SQLite driver.
)

// Store wraps SQLite access for sleep sessions.
type Store struct {
	db *sql.DB

	rev atomic.Uint64

	mu        sync.Mutex
	nextSubID int
	subs      map[int]func(uint64)
}

// Open opens or creates the SQLite database and applies migrations.
func Open(path string) (*Store, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating db dir: %w", err)
	}
	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(wal)&_pragma=synchronous(normal)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("opening db: %w", err)
	}
	store := &Store{db: db, subs: make(map[int]func(uint64))}
	if err := store.migrate(); err != nil {
		if cerr := db.Close(); cerr != nil {
			// Best-effort close on migration failure.
			_ = cerr
		}
		return nil, fmt.Errorf("migrating db: %w", err)
	}
	return store, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS sleep_sessions (
			id INTEGER PRIMARY KEY,
			start_time TEXT NOT NULL,
			end_time TEXT NOT NULL,
			quality INTEGER NOT NULL DEFAULT -1
		);`,
		`CREATE INDEX IF NOT EXISTS idx_sleep_sessions_start_time ON sleep_sessions(start_time);`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return err
		}
	}
	return nil
}

// Revision returns a counter bumped after every committed write.
func (s *Store) Revision() uint64 {
	return s.rev.Load()
}

// Watch registers fn to be called with the new revision after every write.
// The returned func removes the registration.
func (s *Store) Watch(fn func(rev uint64)) (stop func()) {
	s.mu.Lock()
	id := s.nextSubID
	s.nextSubID++
	s.subs[id] = fn
	s.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.mu.Lock()
			delete(s.subs, id)
			s.mu.Unlock()
		})
	}
}

func (s *Store) changed() {
	rev := s.rev.Add(1)
	s.mu.Lock()
	subs := make([]func(uint64), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()
	for _, fn := range subs {
		fn(rev)
	}
}

// Get returns the session with the given id.
func (s *Store) Get(ctx context.Context, id int64) (model.SessionRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, start_time, end_time, quality FROM sleep_sessions WHERE id = ?`, id)
	return scanRecord(row)
}

// GetLatest returns the most recently created session.
func (s *Store) GetLatest(ctx context.Context) (model.SessionRecord, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, start_time, end_time, quality FROM sleep_sessions ORDER BY id DESC LIMIT 1`)
	return scanRecord(row)
}

// GetAll returns every session, newest first.
func (s *Store) GetAll(ctx context.Context) ([]model.SessionRecord, error) {
	return s.queryRecords(ctx, `SELECT id, start_time, end_time, quality FROM sleep_sessions ORDER BY id DESC`)
}

// ListSince returns sessions started at or after since, oldest first.
// A nil since returns every session.
func (s *Store) ListSince(ctx context.Context, since *time.Time) ([]model.SessionRecord, error) {
	all, err := s.queryRecords(ctx, `SELECT id, start_time, end_time, quality FROM sleep_sessions ORDER BY id ASC`)
	if err != nil {
		return nil, err
	}
	if since == nil {
		return all, nil
	}
	filtered := all[:0]
	for _, rec := range all {
		if !rec.StartTime.Before(*since) {
			filtered = append(filtered, rec)
		}
	}
	return filtered, nil
}

func (s *Store) queryRecords(ctx context.Context, query string, args ...any) ([]model.SessionRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			// Best-effort rows close.
			_ = cerr
		}
	}()

	var result []model.SessionRecord
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

// Insert stores a new session and returns its assigned id.
func (s *Store) Insert(ctx context.Context, rec model.SessionRecord) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO sleep_sessions (start_time, end_time, quality) VALUES (?, ?, ?)`,
		rec.StartTime.Format(time.RFC3339Nano),
		rec.EndTime.Format(time.RFC3339Nano),
		rec.Quality,
	)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, err
	}
	s.changed()
	return id, nil
}

// Update overwrites the session matching rec.ID.
func (s *Store) Update(ctx context.Context, rec model.SessionRecord) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE sleep_sessions SET start_time = ?, end_time = ?, quality = ? WHERE id = ?`,
		rec.StartTime.Format(time.RFC3339Nano),
		rec.EndTime.Format(time.RFC3339Nano),
		rec.Quality,
		rec.ID,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return model.ErrSessionNotFound
	}
	s.changed()
	return nil
}

// Clear deletes every session.
func (s *Store) Clear(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM sleep_sessions`); err != nil {
		return err
	}
	s.changed()
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(sc scanner) (model.SessionRecord, error) {
	var rec model.SessionRecord
	var startTime, endTime string
	if err := sc.Scan(&rec.ID, &startTime, &endTime, &rec.Quality); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return model.SessionRecord{}, model.ErrSessionNotFound
		}
		return model.SessionRecord{}, err
	}
	start, err := time.Parse(time.RFC3339Nano, startTime)
	if err != nil {
		return model.SessionRecord{}, fmt.Errorf("parsing start_time: %w", err)
	}
	end, err := time.Parse(time.RFC3339Nano, endTime)
	if err != nil {
		return model.SessionRecord{}, fmt.Errorf("parsing end_time: %w", err)
	}
	rec.StartTime = start
	rec.EndTime = end
	return rec, nil
}
