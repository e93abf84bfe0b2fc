package provider

import (
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/geopaparazzi/tracklog/internal/channel"
	"github.com/geopaparazzi/tracklog/pkg/core"
)

const (
	sampleChSize = 64
	eventChSize  = 16

	// walkSpeedMps is the simulated walking speed.
	walkSpeedMps = 1.4
	// headingJitterDeg bounds the per-step heading change.
	headingJitterDeg = 30.0
	// statusEvery emits a satellite status event every n samples.
	statusEvery = 5

	metersPerDegLat = 111_195.0
)

// MockConfig holds the mock provider settings.
type MockConfig struct {
	StartLat float64
	StartLon float64
	StartAlt float64
	Interval time.Duration
	// Seed fixes the random walk for reproducible runs; 0 picks a
	// time-based seed.
	Seed int64
}

// Mock simulates a walking receiver: a random-walk position stream at a
// fixed interval, with a first-fix event after the first sample and
// periodic satellite status events.
type Mock struct {
	cfg MockConfig
	log zerolog.Logger
	rng *rand.Rand

	samples channel.Channel[*core.Sample]
	events  channel.Channel[StatusEvent]

	mu      sync.Mutex
	running bool
	stop    chan struct{}
	wg      sync.WaitGroup
}

var _ Provider = (*Mock)(nil)

// NewMock creates a mock provider. Interval <= 0 selects one second.
func NewMock(log zerolog.Logger, cfg MockConfig) *Mock {
	if cfg.Interval <= 0 {
		cfg.Interval = time.Second
	}
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Mock{
		cfg:     cfg,
		log:     log.With().Str("component", "provider.mock").Logger(),
		rng:     rand.New(rand.NewSource(seed)),
		samples: channel.New[*core.Sample](sampleChSize),
		events:  channel.New[StatusEvent](eventChSize),
	}
}

// Start launches the walk loop.
func (m *Mock) Start() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.running {
		return nil
	}
	m.running = true
	m.stop = make(chan struct{})

	m.log.Info().
		Float64("lat", m.cfg.StartLat).
		Float64("lon", m.cfg.StartLon).
		Dur("interval", m.cfg.Interval).
		Msg("mock provider started")

	m.trySendEvent(StatusEvent{Kind: core.EventStarted})

	m.wg.Add(1)
	go m.walk(m.stop)
	return nil
}

// Stop ends the walk loop and closes both channels.
func (m *Mock) Stop() {
	m.mu.Lock()
	if !m.running {
		m.mu.Unlock()
		return
	}
	m.running = false
	close(m.stop)
	m.mu.Unlock()

	m.wg.Wait()
	m.samples.Close()
	m.events.Close()
	m.log.Info().Msg("mock provider stopped")
}

// Samples returns the sample stream.
func (m *Mock) Samples() channel.Receiver[*core.Sample] {
	return m.samples
}

// Events returns the status event stream.
func (m *Mock) Events() channel.Receiver[StatusEvent] {
	return m.events
}

func (m *Mock) walk(stop <-chan struct{}) {
	defer m.wg.Done()

	lat := m.cfg.StartLat
	lon := m.cfg.StartLon
	alt := m.cfg.StartAlt
	heading := m.rng.Float64() * 360

	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	var prev *core.Sample
	count := 0
	for {
		select {
		case <-stop:
			m.trySendEvent(StatusEvent{Kind: core.EventStopped})
			return
		case <-ticker.C:
		}

		heading += (m.rng.Float64() - 0.5) * 2 * headingJitterDeg
		stepMeters := walkSpeedMps * m.cfg.Interval.Seconds()
		rad := heading * math.Pi / 180
		lat += stepMeters * math.Cos(rad) / metersPerDegLat
		lon += stepMeters * math.Sin(rad) / (metersPerDegLat * math.Cos(lat*math.Pi/180))
		alt += (m.rng.Float64() - 0.5) * 0.5

		s := &core.Sample{
			Latitude:  lat,
			Longitude: lon,
			Altitude:  alt,
			Accuracy:  float32(3 + m.rng.Float64()*5),
			Speed:     float32(walkSpeedMps),
			Bearing:   float32(math.Mod(heading+360, 360)),
			TimeMs:    time.Now().UnixMilli(),
			Previous:  prev,
		}
		// the next sample links to an unchained copy, so holding any
		// sample never retains the walk's full history
		cp := *s
		cp.Previous = nil
		prev = &cp
		m.trySendSample(s)

		count++
		if count == 1 {
			m.trySendEvent(StatusEvent{Kind: core.EventFirstFix, UsedInFix: 4, Visible: 8, Max: 24})
		} else if count%statusEvery == 0 {
			used := 4 + m.rng.Intn(6)
			m.trySendEvent(StatusEvent{
				Kind:      core.EventSatelliteStatus,
				UsedInFix: used,
				Visible:   used + m.rng.Intn(4),
				Max:       24,
			})
		}
	}
}

// trySendSample drops the sample when the consumer is not keeping up
// instead of stalling the walk.
func (m *Mock) trySendSample(s *core.Sample) {
	if m.samples.Len() >= sampleChSize-1 {
		return
	}
	m.samples.Send(s)
}

func (m *Mock) trySendEvent(e StatusEvent) {
	if m.events.Len() >= eventChSize-1 {
		return
	}
	m.events.Send(e)
}
