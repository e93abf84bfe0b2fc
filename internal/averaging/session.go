package averaging

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/geopaparazzi/tracklog/pkg/core"
)

// Session collects a fixed number of samples at a fixed cadence and
// reports progress after every sample. Only one collection run is
// active at a time; starting a running session is a no-op.
type Session struct {
	log zerolog.Logger

	sampleCount int
	interval    time.Duration

	// sample returns the latest known position, nil when there is none.
	sample func() *core.Sample
	// onProgress fires after each collected sample and once more on
	// completion, so the owner can publish the averaging state.
	onProgress func()

	acc *Accumulator

	mu      sync.Mutex
	running bool
	done    bool
	current int
	stop    chan struct{}
	wg      sync.WaitGroup
}

// NewSession creates a Session collecting sampleCount samples spaced by
// interval. onProgress may be nil.
func NewSession(log zerolog.Logger, sampleCount int, interval time.Duration, sample func() *core.Sample, onProgress func()) *Session {
	if sampleCount <= 0 {
		sampleCount = 1
	}
	if interval <= 0 {
		interval = time.Second
	}
	return &Session{
		log:         log.With().Str("component", "averaging").Logger(),
		sampleCount: sampleCount,
		interval:    interval,
		sample:      sample,
		onProgress:  onProgress,
		acc:         NewAccumulator(),
	}
}

// Start begins a collection run on a background goroutine.
func (s *Session) Start() {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.done = false
	s.current = 0
	s.acc.Reset()
	s.stop = make(chan struct{})
	stop := s.stop
	s.mu.Unlock()

	s.log.Info().Int("samples", s.sampleCount).Dur("interval", s.interval).Msg("averaging run started")

	s.wg.Add(1)
	go s.run(stop)
}

// Stop aborts a running collection and waits for the goroutine to
// return. Stopping an idle session is a no-op.
func (s *Session) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	close(s.stop)
	s.mu.Unlock()
	s.wg.Wait()
}

func (s *Session) run(stop <-chan struct{}) {
	defer s.wg.Done()

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for i := 0; i < s.sampleCount; i++ {
		select {
		case <-stop:
			s.finish(false)
			return
		case <-ticker.C:
		}

		if smp := s.sample(); smp != nil {
			s.acc.Add(smp)
		}
		s.mu.Lock()
		s.current = i + 1
		s.mu.Unlock()
		if s.onProgress != nil {
			s.onProgress()
		}
	}
	s.finish(true)
}

func (s *Session) finish(completed bool) {
	s.mu.Lock()
	s.running = false
	s.done = completed
	s.mu.Unlock()

	if completed {
		pos, acc, ok := s.acc.Average()
		if ok {
			s.log.Info().
				Float64("lon", pos.Longitude).
				Float64("lat", pos.Latitude).
				Float64("accuracy", acc).
				Int("samples", s.acc.Size()).
				Msg("averaging run completed")
		} else {
			s.log.Warn().Msg("averaging run completed without samples")
		}
	} else {
		s.log.Info().Msg("averaging run aborted")
	}
	if s.onProgress != nil {
		s.onProgress()
	}
}

// Running reports whether a collection run is in progress.
func (s *Session) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// State returns the averaging state for publishing, or nil when the
// session never ran.
func (s *Session) State() *core.AveragingState {
	s.mu.Lock()
	running := s.running
	done := s.done
	current := s.current
	s.mu.Unlock()

	if !running && !done && current == 0 {
		return nil
	}
	st := &core.AveragingState{
		Current: current,
		Total:   s.sampleCount,
		Done:    done,
	}
	if pos, acc, ok := s.acc.Average(); ok {
		st.Position = &pos
		st.Accuracy = float32(acc)
	}
	return st
}
