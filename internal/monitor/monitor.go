// Package monitor periodically publishes the service state to a status
// file and to InfluxDB.
package monitor

import (
	"context"
	"encoding/json"
	"os"
	"sync"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/rs/zerolog"

	"github.com/geopaparazzi/tracklog/internal/influx"
	"github.com/geopaparazzi/tracklog/internal/notify"
	"github.com/geopaparazzi/tracklog/pkg/core"
)

const (
	sessionBucket = "session_metrics"
	qualityBucket = "position_quality"
	defaultPeriod = time.Second
)

// Dependencies holds all dependencies for the monitor service.
type Dependencies struct {
	Bus    *notify.Bus
	Influx *influx.Manager // nil disables metric shipping
	// StatusPath is the file rewritten with the latest snapshot JSON.
	// Empty disables the status file.
	StatusPath string
	Logger     zerolog.Logger
	Period     time.Duration
}

// Service drives the periodic status publishing.
type Service struct {
	deps      Dependencies
	isRunning bool
	mu        sync.RWMutex
	stopChan  chan struct{}
	wg        sync.WaitGroup
}

// NewService creates a new monitor service.
func NewService(deps Dependencies) *Service {
	if deps.Period <= 0 {
		deps.Period = defaultPeriod
	}
	return &Service{
		deps:     deps,
		stopChan: make(chan struct{}),
	}
}

// IsRunning returns whether the monitor is running.
func (s *Service) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// Start starts the monitor goroutine.
func (s *Service) Start() error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.stopChan = make(chan struct{})
	s.mu.Unlock()

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		defer func() {
			s.mu.Lock()
			s.isRunning = false
			s.mu.Unlock()
		}()

		s.deps.Logger.Debug().Msg("status monitor started")
		ticker := time.NewTicker(s.deps.Period)
		defer ticker.Stop()

		for {
			select {
			case <-s.stopChan:
				return
			case <-ticker.C:
			}

			snap := s.deps.Bus.Last()
			if snap == nil {
				continue
			}

			if s.deps.StatusPath != "" {
				s.writeStatusFile(snap)
			}
			if s.deps.Influx != nil {
				s.shipMetrics(snap)
			}
		}
	}()

	return nil
}

// Stop stops the monitor and waits for the goroutine to exit.
func (s *Service) Stop() {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return
	}
	close(s.stopChan)
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Service) writeStatusFile(snap *core.Snapshot) {
	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		s.deps.Logger.Error().Err(err).Msg("marshaling status snapshot")
		return
	}
	if err := os.WriteFile(s.deps.StatusPath, data, 0644); err != nil {
		s.deps.Logger.Error().Err(err).Str("path", s.deps.StatusPath).Msg("writing status file")
	}
}

func (s *Service) shipMetrics(snap *core.Snapshot) {
	ctx := context.Background()
	now := time.Now()

	session := influxdb2.NewPointWithMeasurement("session").
		AddTag("status", snap.Status.String()).
		AddField("logging", int(snap.Logging)).
		AddField("log_id", snap.CurrentLogID).
		SetTime(now)
	if err := s.deps.Influx.WritePoint(ctx, sessionBucket, session); err != nil {
		s.deps.Logger.Error().Err(err).Msg("writing session metric")
	}

	if snap.Position == nil {
		return
	}
	quality := influxdb2.NewPointWithMeasurement("position").
		AddField("lat", snap.Position.Latitude).
		AddField("lon", snap.Position.Longitude).
		AddField("elevation", snap.Position.Elevation).
		SetTime(now)
	if snap.Extras != nil {
		quality.AddField("accuracy", float64(snap.Extras.Accuracy)).
			AddField("speed", float64(snap.Extras.Speed))
	}
	if snap.Satellites != nil {
		quality.AddField("sats_visible", snap.Satellites.Visible).
			AddField("sats_used", snap.Satellites.UsedInFix)
	}
	if err := s.deps.Influx.WritePoint(ctx, qualityBucket, quality); err != nil {
		s.deps.Logger.Error().Err(err).Msg("writing position metric")
	}
}
