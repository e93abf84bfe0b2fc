// Package recorder runs the track logging loop: it polls the latest
// position at a fixed cadence, decimates points closer than the
// configured minimum distance and appends the rest to a log store.
package recorder

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/metric"

	"github.com/geopaparazzi/tracklog/internal/geo"
	"github.com/geopaparazzi/tracklog/internal/storage"
	"github.com/geopaparazzi/tracklog/pkg/core"
)

// minPointsForValidLog is the threshold below which a freshly created
// log is deleted on stop instead of finalized. Continued logs are never
// deleted, they already hold earlier points.
const minPointsForValidLog = 4

// stopCheckInterval caps how long a stop request can go unnoticed while
// the loop sleeps between polls.
const stopCheckInterval = time.Second

// State is the recorder lifecycle state.
type State int32

const (
	StateIdle State = iota
	StateStarting
	StateRunning
	StateStopping
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateStarting:
		return "starting"
	case StateRunning:
		return "running"
	case StateStopping:
		return "stopping"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Options configures a recording session.
type Options struct {
	// Text is the display name of the new log.
	Text string
	// Width and Color are stored as rendering properties of the log.
	Width float32
	Color string
	// ContinueLast appends to the most recent existing log instead of
	// creating a new one. Falls back to creating when none exists.
	ContinueLast bool
}

// Recorder is the track logging engine. A single polling goroutine is
// active between Start and Stop; both calls are idempotent and Stop
// joins the goroutine before returning.
type Recorder struct {
	log   zerolog.Logger
	store storage.LogStore

	// sample returns the latest known position, nil when there is none.
	sample func() *core.Sample
	// hasFix gates recording; without a fix samples are stale.
	hasFix func() bool
	// onChange fires on every state or point-count change so the owner
	// can publish a fresh snapshot. May be nil.
	onChange func()

	minDistance  float64
	pollInterval time.Duration
	// mockMode records even without a fix, for simulated providers
	// that never report satellite status.
	mockMode bool

	mu           sync.Mutex
	state        State
	currentLogID int64
	continued    bool
	pointCount   int
	trackLength  float64
	stop         chan struct{}
	wg           sync.WaitGroup

	pointsRecorded  metric.Int64Counter
	pointsDecimated metric.Int64Counter
	sessionsAborted metric.Int64Counter
}

// New creates a Recorder. It uses the global OTel meter for metrics
// (no-op if not configured).
func New(log zerolog.Logger, store storage.LogStore, minDistance float64, pollInterval time.Duration, mockMode bool, sample func() *core.Sample, hasFix func() bool, onChange func()) (*Recorder, error) {
	if pollInterval <= 0 {
		pollInterval = time.Second
	}
	r := &Recorder{
		log:          log.With().Str("component", "recorder").Logger(),
		store:        store,
		sample:       sample,
		hasFix:       hasFix,
		onChange:     onChange,
		minDistance:  minDistance,
		pollInterval: pollInterval,
		mockMode:     mockMode,
	}

	m := meter()
	var err error
	r.pointsRecorded, err = m.Int64Counter(
		"recorder.points.recorded",
		metric.WithDescription("Total track points written to the store"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating recorded counter: %w", err)
	}
	r.pointsDecimated, err = m.Int64Counter(
		"recorder.points.decimated",
		metric.WithDescription("Total samples dropped for being closer than the minimum distance"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating decimated counter: %w", err)
	}
	r.sessionsAborted, err = m.Int64Counter(
		"recorder.sessions.aborted",
		metric.WithDescription("Total sessions aborted because the store ran out of capacity"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating aborted counter: %w", err)
	}
	_, err = m.Int64ObservableGauge(
		"recorder.session.state",
		metric.WithDescription("Current session state (0 idle, 1 starting, 2 running, 3 stopping)"),
		metric.WithInt64Callback(func(_ context.Context, o metric.Int64Observer) error {
			o.Observe(int64(r.State()))
			return nil
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("creating state gauge: %w", err)
	}
	return r, nil
}

// Start opens a log and launches the polling loop. Calling Start while
// a session is active is a no-op.
func (r *Recorder) Start(opts Options) error {
	r.mu.Lock()
	if r.state != StateIdle {
		r.mu.Unlock()
		r.log.Debug().Stringer("state", r.state).Msg("start ignored, session already active")
		return nil
	}
	r.state = StateStarting
	r.mu.Unlock()
	r.notify()

	logID, continued, err := r.openLog(opts)
	if err != nil {
		r.mu.Lock()
		r.state = StateIdle
		r.mu.Unlock()
		r.notify()
		return fmt.Errorf("opening log: %w", err)
	}

	r.mu.Lock()
	r.currentLogID = logID
	r.continued = continued
	r.pointCount = 0
	r.trackLength = 0
	r.stop = make(chan struct{})
	stop := r.stop
	r.state = StateRunning
	r.mu.Unlock()

	r.log.Info().
		Int64("logId", logID).
		Bool("continued", continued).
		Float64("minDistance", r.minDistance).
		Dur("pollInterval", r.pollInterval).
		Msg("track logging started")
	r.notify()

	r.wg.Add(1)
	go r.run(logID, stop)
	return nil
}

func (r *Recorder) openLog(opts Options) (int64, bool, error) {
	if opts.ContinueLast {
		id, err := r.store.LastOpenLogID()
		switch {
		case err == nil:
			return id, true, nil
		case errors.Is(err, storage.ErrNoOpenLog):
			r.log.Info().Msg("no log to continue, creating a new one")
		default:
			return 0, false, err
		}
	}
	now := time.Now()
	id, err := r.store.CreateLog(now, now, 0, opts.Text, opts.Width, opts.Color, true)
	if err != nil {
		return 0, false, err
	}
	return id, false, nil
}

// Stop requests shutdown and waits for the polling goroutine to
// finalize the log and exit. Calling Stop without an active session is
// a no-op.
func (r *Recorder) Stop() {
	r.mu.Lock()
	if r.state != StateRunning {
		r.mu.Unlock()
		return
	}
	r.state = StateStopping
	close(r.stop)
	r.mu.Unlock()
	r.notify()

	r.wg.Wait()
}

func (r *Recorder) run(logID int64, stop <-chan struct{}) {
	defer r.wg.Done()

	var prev *core.Sample
	aborted := false

loop:
	for {
		if !r.sleep(stop) {
			break
		}

		if !r.hasFix() && !r.mockMode {
			continue
		}
		s := r.sample()
		if s == nil {
			continue
		}
		if prev != nil && s.TimeMs == prev.TimeMs {
			// provider repeated the same reading
			continue
		}
		if prev == nil {
			// first usable sample seeds the distance reference
			prev = s
			continue
		}

		dist := geo.SampleDistance(prev, s)
		if dist < r.minDistance {
			r.pointsDecimated.Add(context.Background(), 1)
			continue
		}

		if err := r.store.AppendPoint(logID, s.Longitude, s.Latitude, s.Altitude, s.TimeMs); err != nil {
			if errors.Is(err, storage.ErrCapacityExhausted) {
				r.log.Error().Err(err).Int64("logId", logID).Msg("store capacity exhausted, aborting session")
				r.sessionsAborted.Add(context.Background(), 1)
				aborted = true
				break loop
			}
			r.log.Warn().Err(err).Int64("logId", logID).Msg("dropping point, write failed")
			continue
		}

		prev = s
		r.pointsRecorded.Add(context.Background(), 1)
		r.mu.Lock()
		r.pointCount++
		r.trackLength += dist
		r.mu.Unlock()
		r.notify()
	}

	r.finalize(logID, aborted)
}

// sleep waits one poll interval, waking early on stop. It returns false
// when the recorder should exit.
func (r *Recorder) sleep(stop <-chan struct{}) bool {
	remaining := r.pollInterval
	for remaining > 0 {
		chunk := stopCheckInterval
		if remaining < chunk {
			chunk = remaining
		}
		select {
		case <-stop:
			return false
		case <-time.After(chunk):
		}
		remaining -= chunk
	}
	return true
}

// finalize runs on the polling goroutine. Short logs that were started
// fresh are deleted; everything else gets its end timestamp and track
// length written. An aborted session leaves the log exactly as written:
// the store is out of capacity, so neither the delete nor the metadata
// updates can be trusted to land.
func (r *Recorder) finalize(logID int64, aborted bool) {
	r.mu.Lock()
	points := r.pointCount
	length := r.trackLength
	continued := r.continued
	r.mu.Unlock()

	if aborted {
		r.log.Error().Int64("logId", logID).Int("points", points).Msg("session aborted, log kept as written")
	} else if points < minPointsForValidLog && !continued {
		r.log.Info().Int64("logId", logID).Int("points", points).Msg("too few points, deleting log")
		if err := r.store.DeleteLog(logID); err != nil {
			r.log.Warn().Err(err).Int64("logId", logID).Msg("deleting short log failed")
		}
	} else {
		if err := r.store.SetEndTimestamp(logID, time.Now()); err != nil {
			r.log.Warn().Err(err).Int64("logId", logID).Msg("writing end timestamp failed")
		}
		if err := r.store.SetTrackLength(logID, length); err != nil {
			r.log.Warn().Err(err).Int64("logId", logID).Msg("writing track length failed")
		}
	}

	r.mu.Lock()
	r.state = StateIdle
	r.currentLogID = 0
	r.mu.Unlock()

	r.log.Info().
		Int64("logId", logID).
		Int("points", points).
		Float64("lengthMeters", length).
		Bool("aborted", aborted).
		Msg("track logging stopped")
	r.notify()
}

func (r *Recorder) notify() {
	if r.onChange != nil {
		r.onChange()
	}
}

// State returns the current lifecycle state.
func (r *Recorder) State() State {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

// Logging reports whether a session is active, in published form.
func (r *Recorder) Logging() core.LoggingStatus {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.state == StateRunning || r.state == StateStarting || r.state == StateStopping {
		return core.LoggingOn
	}
	return core.LoggingOff
}

// CurrentLogID returns the id of the log being recorded, 0 when idle.
func (r *Recorder) CurrentLogID() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.currentLogID
}

// PointCount returns the number of points written in this session.
func (r *Recorder) PointCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.pointCount
}

// TrackLength returns the accumulated track length in meters.
func (r *Recorder) TrackLength() float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.trackLength
}
