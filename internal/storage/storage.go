// Package storage defines the log persistence contract the engine
// writes through, plus its error taxonomy.
package storage

import (
	"errors"
	"time"
)

// ErrCapacityExhausted marks a write that failed because the persistent
// store is full. It is fatal to the current logging session.
var ErrCapacityExhausted = errors.New("storage capacity exhausted")

// ErrNoOpenLog is returned by LastOpenLogID when no previous log can be
// resolved for continuation.
var ErrNoOpenLog = errors.New("no open log resolvable")

// LogStore is the only storage surface the positioning engine depends
// on. A session owns its log exclusively between CreateLog (or a
// continuation resolve) and the finalize/delete call.
type LogStore interface {
	// CreateLog creates a new log row and returns its assigned id.
	CreateLog(startTs, endTs time.Time, lengthMeters float64, text string, width float32, color string, visible bool) (int64, error)

	// AppendPoint appends one accepted track point to the given log.
	// A failed append reports ErrCapacityExhausted when the store is
	// full; any other error is a recoverable single-point failure.
	AppendPoint(logID int64, lon, lat, altim float64, timestampMs int64) error

	// SetEndTimestamp finalizes the log's end timestamp.
	SetEndTimestamp(logID int64, endTs time.Time) error

	// SetTrackLength finalizes the accumulated track length in meters.
	SetTrackLength(logID int64, meters float64) error

	// DeleteLog removes the log row and all of its points.
	DeleteLog(logID int64) error

	// LastOpenLogID resolves the most recent log id for continuation,
	// or ErrNoOpenLog.
	LastOpenLogID() (int64, error)
}
