// Package gps owns the positioning service: it consumes a provider's
// sample and event streams, tracks fix state, runs track logging and
// position averaging, and publishes state snapshots.
package gps

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/geopaparazzi/tracklog/internal/averaging"
	"github.com/geopaparazzi/tracklog/internal/config"
	"github.com/geopaparazzi/tracklog/internal/fix"
	"github.com/geopaparazzi/tracklog/internal/geo"
	"github.com/geopaparazzi/tracklog/internal/notify"
	"github.com/geopaparazzi/tracklog/internal/provider"
	"github.com/geopaparazzi/tracklog/internal/recorder"
	"github.com/geopaparazzi/tracklog/internal/storage"
	"github.com/geopaparazzi/tracklog/pkg/core"
)

// lastPositionKey is the config key the last known position is saved
// under across restarts.
const lastPositionKey = "gps.lastKnownPosition"

// providerRetryInterval is how often a failed provider start is retried.
const providerRetryInterval = 5 * time.Second

// Service is the positioning front door. It owns the provider consume
// loop and coordinates the fix tracker, recorder and averaging session.
type Service struct {
	log  zerolog.Logger
	cfg  config.GpsConfig
	prov provider.Provider
	bus  *notify.Bus

	tracker *fix.Tracker
	rec     *recorder.Recorder
	avg     *averaging.Session

	mu         sync.Mutex
	lastSample *core.Sample
	// lastKnown is the position restored from config, shown until the
	// first live sample arrives.
	lastKnown *core.Position
	open      bool
	stop      chan struct{}
	wg        sync.WaitGroup
}

// New wires a Service from its parts. The bus may be shared with other
// publishers; the store is only used by the recorder.
func New(log zerolog.Logger, cfg config.GpsConfig, prov provider.Provider, store storage.LogStore, bus *notify.Bus) (*Service, error) {
	s := &Service{
		log:  log.With().Str("component", "gps").Logger(),
		cfg:  cfg,
		prov: prov,
		bus:  bus,
	}
	s.tracker = fix.New(cfg.FixTimeout, s.onFixLost)

	rec, err := recorder.New(
		log,
		store,
		cfg.MinDistanceMeters,
		cfg.PollInterval,
		cfg.MockMode,
		s.LastSample,
		s.tracker.HasFix,
		s.publish,
	)
	if err != nil {
		return nil, fmt.Errorf("creating recorder: %w", err)
	}
	s.rec = rec

	s.avg = averaging.NewSession(
		log,
		cfg.AvgSampleCount,
		cfg.AvgInterval,
		s.LastSample,
		s.publish,
	)

	if pos, err := geo.PositionFromString(viper.GetString(lastPositionKey)); err == nil {
		s.lastKnown = &pos
	}
	return s, nil
}

// Open starts the provider and the consume loop. Opening an open
// service is a no-op.
func (s *Service) Open() error {
	s.mu.Lock()
	if s.open {
		s.mu.Unlock()
		return nil
	}
	s.open = true
	s.stop = make(chan struct{})
	stop := s.stop
	s.mu.Unlock()

	s.log.Info().Msg("gps service opening")
	s.publish()

	s.wg.Add(1)
	go s.run(stop)
	return nil
}

// run starts the provider, retrying while it is unavailable, then
// consumes its streams until stopped.
func (s *Service) run(stop <-chan struct{}) {
	defer s.wg.Done()

	for {
		err := s.prov.Start()
		if err == nil {
			break
		}
		s.log.Warn().Err(err).Dur("retryIn", providerRetryInterval).Msg("provider unavailable")
		select {
		case <-stop:
			return
		case <-time.After(providerRetryInterval):
		}
	}

	s.tracker.OnProviderEnabled()
	s.tracker.SetListening(true)
	s.publish()

	samples := s.prov.Samples().Receive()
	events := s.prov.Events().Receive()
	for {
		select {
		case <-stop:
			return
		case smp, ok := <-samples:
			if !ok {
				samples = nil
				continue
			}
			s.onSample(smp)
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			s.onEvent(ev)
		}
		if samples == nil && events == nil {
			return
		}
	}
}

func (s *Service) onSample(smp *core.Sample) {
	if smp == nil {
		return
	}
	s.mu.Lock()
	if smp.Previous == nil && s.lastSample != nil {
		// link to an unchained copy, or a long session retains every
		// sample it ever saw
		cp := *s.lastSample
		cp.Previous = nil
		smp.Previous = &cp
	}
	s.lastSample = smp
	s.mu.Unlock()

	if smp.Previous != nil {
		s.log.Trace().
			Float64("deltaMeters", geo.SampleDistance(smp.Previous, smp)).
			Msg("position update")
	}
	s.tracker.OnSample()
	s.publish()
}

func (s *Service) onEvent(ev provider.StatusEvent) {
	switch ev.Kind {
	case core.EventStarted:
		s.tracker.OnProviderEnabled()
		s.tracker.SetListening(true)
	case core.EventStopped:
		s.tracker.OnProviderDisabled()
		s.tracker.SetListening(false)
	}
	s.tracker.OnStatusEvent(ev.Kind, ev.UsedInFix, ev.Visible, ev.Max)
	s.publish()
}

// onFixLost invalidates the cached sample; its coordinates are stale.
func (s *Service) onFixLost() {
	s.mu.Lock()
	s.lastSample = nil
	s.mu.Unlock()
	s.log.Info().Msg("fix lost")
	s.publish()
}

// Close stops logging and averaging, shuts the provider down, persists
// the last known position and joins the consume loop.
func (s *Service) Close() {
	s.mu.Lock()
	if !s.open {
		s.mu.Unlock()
		return
	}
	s.open = false
	close(s.stop)
	s.mu.Unlock()

	s.rec.Stop()
	s.avg.Stop()
	s.prov.Stop()
	s.wg.Wait()

	s.tracker.SetListening(false)
	s.tracker.OnProviderDisabled()
	s.persistLastPosition()
	s.publish()
	s.log.Info().Msg("gps service closed")
}

func (s *Service) persistLastPosition() {
	s.mu.Lock()
	smp := s.lastSample
	s.mu.Unlock()
	if smp == nil {
		return
	}
	viper.Set(lastPositionKey, fmt.Sprintf("%f,%f,%f", smp.Longitude, smp.Latitude, smp.Altitude))
	if err := viper.WriteConfig(); err != nil {
		s.log.Debug().Err(err).Msg("could not persist last position")
	}
}

// StartLogging begins a track logging session.
func (s *Service) StartLogging(opts recorder.Options) error {
	return s.rec.Start(opts)
}

// StopLogging ends the track logging session and waits for the log to
// be finalized.
func (s *Service) StopLogging() {
	s.rec.Stop()
}

// StartAveraging begins a position averaging run.
func (s *Service) StartAveraging() {
	s.avg.Start()
}

// StopAveraging aborts a running averaging run.
func (s *Service) StopAveraging() {
	s.avg.Stop()
}

// LastSample returns the latest sample with a valid fix, nil otherwise.
func (s *Service) LastSample() *core.Sample {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastSample
}

// HasFix reports the current fix state.
func (s *Service) HasFix() bool {
	return s.tracker.HasFix()
}

// Snapshot assembles the current service state.
func (s *Service) Snapshot() *core.Snapshot {
	s.mu.Lock()
	smp := s.lastSample
	lastKnown := s.lastKnown
	s.mu.Unlock()

	snap := &core.Snapshot{
		Status:       s.tracker.Status(),
		Logging:      s.rec.Logging(),
		CurrentLogID: s.rec.CurrentLogID(),
		TimeMs:       time.Now().UnixMilli(),
		Averaging:    s.avg.State(),
	}

	sats := s.tracker.Satellites()
	if sats != (core.SatelliteInfo{}) {
		snap.Satellites = &sats
	}

	if smp != nil {
		snap.Position = &core.Position{
			Longitude: smp.Longitude,
			Latitude:  smp.Latitude,
			Elevation: smp.Altitude,
		}
		snap.Extras = &core.PositionExtras{
			Accuracy: smp.Accuracy,
			Speed:    smp.Speed,
			Bearing:  smp.Bearing,
		}
		snap.TimeMs = smp.TimeMs
	} else if lastKnown != nil {
		snap.Position = lastKnown
	}
	return snap
}

// publish pushes a fresh snapshot onto the bus. It fires on every
// sample, status event, recorder change and averaging progress step.
func (s *Service) publish() {
	s.bus.Publish(s.Snapshot())
}
