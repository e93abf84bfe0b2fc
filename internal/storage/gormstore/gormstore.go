// Package gormstore implements the storage.LogStore interface on a GORM
// database handle, Postgres or SQLite alike. The only driver-specific
// concern is classifying full-disk write failures.
package gormstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/geopaparazzi/tracklog/internal/cache"
	"github.com/geopaparazzi/tracklog/internal/geo"
	"github.com/geopaparazzi/tracklog/internal/model"
	"github.com/geopaparazzi/tracklog/internal/storage"
)

// Store is a LogStore backed by a gorm.DB. Log rows pass through a
// cache so the continuation lookup and finalization updates skip the
// database where possible.
type Store struct {
	db   *gorm.DB
	logs *cache.LogCache
	log  zerolog.Logger
}

var _ storage.LogStore = (*Store)(nil)

// New creates a Store on the given database handle.
func New(db *gorm.DB, log zerolog.Logger) *Store {
	return &Store{db: db, logs: cache.NewLogCache(), log: log}
}

// logProperties is persisted as JSON in the gpslogs.properties column.
type logProperties struct {
	Width   float32 `json:"width"`
	Color   string  `json:"color"`
	Visible bool    `json:"visible"`
}

// CreateLog creates a new log row and returns its assigned id.
func (s *Store) CreateLog(startTs, endTs time.Time, lengthMeters float64, text string, width float32, color string, visible bool) (int64, error) {
	props, err := json.Marshal(logProperties{Width: width, Color: color, Visible: visible})
	if err != nil {
		return 0, fmt.Errorf("marshaling log properties: %w", err)
	}

	logRow := model.GpsLog{
		StartTs:      startTs,
		EndTs:        endTs,
		LengthMeters: lengthMeters,
		Text:         text,
		Width:        width,
		Color:        color,
		Visible:      visible,
		Properties:   datatypes.JSON(props),
	}
	if err := s.db.Create(&logRow).Error; err != nil {
		return 0, classify(err)
	}
	s.logs.SetLog(logRow)

	s.log.Debug().Int64("logId", logRow.ID).Str("text", text).Msg("Created gps log")
	return logRow.ID, nil
}

// AppendPoint appends one accepted track point to the given log.
func (s *Store) AppendPoint(logID int64, lon, lat, altim float64, timestampMs int64) error {
	point, err := geo.Coords3857From4326(lon, lat)
	if err != nil {
		return fmt.Errorf("projecting point: %w", err)
	}

	row := model.GpsLogPoint{
		LogID:     logID,
		Longitude: lon,
		Latitude:  lat,
		Altitude:  altim,
		TimeMs:    timestampMs,
		Position:  point,
	}
	if err := s.db.Create(&row).Error; err != nil {
		return classify(err)
	}
	return nil
}

// SetEndTimestamp finalizes the log's end timestamp.
func (s *Store) SetEndTimestamp(logID int64, endTs time.Time) error {
	err := s.db.Model(&model.GpsLog{}).Where("id = ?", logID).Update("end_ts", endTs).Error
	if err != nil {
		return classify(err)
	}
	if l, ok := s.logs.GetLog(logID); ok {
		l.EndTs = endTs
		s.logs.SetLog(l)
	}
	return nil
}

// SetTrackLength finalizes the accumulated track length in meters.
func (s *Store) SetTrackLength(logID int64, meters float64) error {
	err := s.db.Model(&model.GpsLog{}).Where("id = ?", logID).Update("length_meters", meters).Error
	if err != nil {
		return classify(err)
	}
	if l, ok := s.logs.GetLog(logID); ok {
		l.LengthMeters = meters
		s.logs.SetLog(l)
	}
	return nil
}

// DeleteLog removes the log row and all of its points.
func (s *Store) DeleteLog(logID int64) error {
	// points first, the cascade constraint is not guaranteed on SQLite
	if err := s.db.Where("log_id = ?", logID).Delete(&model.GpsLogPoint{}).Error; err != nil {
		return classify(err)
	}
	if err := s.db.Delete(&model.GpsLog{}, logID).Error; err != nil {
		return classify(err)
	}
	s.logs.DeleteLog(logID)
	s.log.Debug().Int64("logId", logID).Msg("Deleted gps log")
	return nil
}

// LastOpenLogID resolves the most recent log id for continuation.
func (s *Store) LastOpenLogID() (int64, error) {
	if id := s.logs.LastID(); id != 0 {
		return id, nil
	}
	var logRow model.GpsLog
	err := s.db.Order("id DESC").First(&logRow).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, storage.ErrNoOpenLog
	}
	if err != nil {
		return 0, classify(err)
	}
	s.logs.SetLog(logRow)
	return logRow.ID, nil
}

// classify maps driver-level full-disk failures onto
// storage.ErrCapacityExhausted and passes everything else through.
func classify(err error) error {
	if err == nil {
		return nil
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "database or disk is full") || // SQLITE_FULL
		strings.Contains(msg, "no space left on device") ||
		strings.Contains(msg, "disk full") { // postgres 53100
		return fmt.Errorf("%w: %v", storage.ErrCapacityExhausted, err)
	}
	return err
}
