// Package memory implements storage.LogStore entirely in memory. It
// backs tests and the offline mode where no database is reachable.
package memory

import (
	"sync"
	"time"

	"github.com/geopaparazzi/tracklog/internal/storage"
)

// Log is one in-memory log row.
type Log struct {
	ID           int64
	StartTs      time.Time
	EndTs        time.Time
	LengthMeters float64
	Text         string
	Width        float32
	Color        string
	Visible      bool
}

// Point is one in-memory track point.
type Point struct {
	LogID     int64
	Longitude float64
	Latitude  float64
	Altitude  float64
	TimeMs    int64
}

// Store is an in-memory LogStore.
type Store struct {
	mu     sync.Mutex
	nextID int64
	logs   map[int64]*Log
	points map[int64][]Point

	// FailAppend, when set, is returned by AppendPoint. Tests use it to
	// simulate write faults. FailAfter lets that many appends succeed
	// per log before the fault kicks in.
	FailAppend error
	FailAfter  int
}

var _ storage.LogStore = (*Store)(nil)

// New creates an empty in-memory store.
func New() *Store {
	return &Store{
		nextID: 1,
		logs:   make(map[int64]*Log),
		points: make(map[int64][]Point),
	}
}

// CreateLog creates a new log row and returns its assigned id.
func (s *Store) CreateLog(startTs, endTs time.Time, lengthMeters float64, text string, width float32, color string, visible bool) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.logs[id] = &Log{
		ID:           id,
		StartTs:      startTs,
		EndTs:        endTs,
		LengthMeters: lengthMeters,
		Text:         text,
		Width:        width,
		Color:        color,
		Visible:      visible,
	}
	return id, nil
}

// AppendPoint appends one accepted track point to the given log.
func (s *Store) AppendPoint(logID int64, lon, lat, altim float64, timestampMs int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailAppend != nil && len(s.points[logID]) >= s.FailAfter {
		return s.FailAppend
	}
	s.points[logID] = append(s.points[logID], Point{
		LogID:     logID,
		Longitude: lon,
		Latitude:  lat,
		Altitude:  altim,
		TimeMs:    timestampMs,
	})
	return nil
}

// SetEndTimestamp finalizes the log's end timestamp.
func (s *Store) SetEndTimestamp(logID int64, endTs time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok := s.logs[logID]; ok {
		l.EndTs = endTs
	}
	return nil
}

// SetTrackLength finalizes the accumulated track length in meters.
func (s *Store) SetTrackLength(logID int64, meters float64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if l, ok := s.logs[logID]; ok {
		l.LengthMeters = meters
	}
	return nil
}

// DeleteLog removes the log row and all of its points.
func (s *Store) DeleteLog(logID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.logs, logID)
	delete(s.points, logID)
	return nil
}

// LastOpenLogID resolves the most recent log id for continuation.
func (s *Store) LastOpenLogID() (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var last int64
	for id := range s.logs {
		if id > last {
			last = id
		}
	}
	if last == 0 {
		return 0, storage.ErrNoOpenLog
	}
	return last, nil
}

// Inspection helpers for tests and the offline status monitor.

// GetLog returns the log row for the given id.
func (s *Store) GetLog(logID int64) (Log, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	l, ok := s.logs[logID]
	if !ok {
		return Log{}, false
	}
	return *l, true
}

// GetPoints returns a copy of the points for the given log, in append order.
func (s *Store) GetPoints(logID int64) []Point {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Point, len(s.points[logID]))
	copy(out, s.points[logID])
	return out
}

// LogCount returns the number of log rows.
func (s *Store) LogCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.logs)
}
