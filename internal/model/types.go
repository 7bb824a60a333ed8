// Package model defines shared data structures.
package model

import (
	"errors"
	"time"
)

// Quality bounds for a rated session.
const (
	QualityUnset = -1
	QualityMin   = 0
	QualityMax   = 5
)

var (
	// ErrSessionNotFound is returned by stores when no matching session exists.
	ErrSessionNotFound = errors.New("session not found")
	// ErrInvalidQuality is returned when a rating is outside QualityMin..QualityMax.
	ErrInvalidQuality = errors.New("quality rating out of range")
)

// SessionRecord is one tracked sleep interval.
// A session is in progress while EndTime equals StartTime.
type SessionRecord struct {
	ID        int64
	StartTime time.Time
	EndTime   time.Time
	Quality   int
}

// NewSessionRecord returns an unsaved, in-progress, unrated session.
func NewSessionRecord(start time.Time) SessionRecord {
	return SessionRecord{
		StartTime: start,
		EndTime:   start,
		Quality:   QualityUnset,
	}
}

// InProgress reports whether the session has not been stopped yet.
func (r SessionRecord) InProgress() bool {
	return r.EndTime.Equal(r.StartTime)
}

// Rated reports whether the user assigned a quality rating.
func (r SessionRecord) Rated() bool {
	return r.Quality != QualityUnset
}

// Duration returns the slept time, zero while in progress.
func (r SessionRecord) Duration() time.Duration {
	if r.InProgress() {
		return 0
	}
	return r.EndTime.Sub(r.StartTime)
}

// ValidQuality reports whether q is an assignable rating.
func ValidQuality(q int) bool {
	return q >= QualityMin && q <= QualityMax
}

// Config defines tracker settings resolved from flags and the config file.
type Config struct {
	DBPath     string
	Workers    int
	TimeLayout string
}

// StatsConfig defines filters and options for stats output.
type StatsConfig struct {
	Since  *time.Time
	Last   int
	Window int
}
