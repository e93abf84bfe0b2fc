// Package averaging accumulates position samples into an
// accuracy-weighted average, used to pin down a single point from a
// noisy stream.
package averaging

import (
	"sync"

	"github.com/geopaparazzi/tracklog/internal/geo"
	"github.com/geopaparazzi/tracklog/pkg/core"
)

// Accumulator folds samples into a running weighted average in O(1)
// per sample. Samples with better (smaller) accuracy weigh more; a
// reported accuracy of zero is treated as 1 so it never dominates.
type Accumulator struct {
	mu sync.Mutex

	samples []*core.Sample

	weightedLatSum float64
	weightedLonSum float64
	weightSum      float64
	altSum         float64

	// distSum accumulates each sample's distance from the running
	// average at the time it was added; its mean is the reported
	// accuracy of the averaged position.
	distSum float64
}

// NewAccumulator returns an empty Accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{}
}

// Add folds a sample into the average.
func (a *Accumulator) Add(s *core.Sample) {
	if s == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()

	w := s.Weight()
	a.weightedLatSum += w * s.Latitude
	a.weightedLonSum += w * s.Longitude
	a.weightSum += w
	a.altSum += s.Altitude
	a.samples = append(a.samples, s)

	avgLat := a.weightedLatSum / a.weightSum
	avgLon := a.weightedLonSum / a.weightSum
	dist := geo.DistanceMeters(avgLat, avgLon, s.Latitude, s.Longitude)
	if dist == 0 {
		// first sample, or dead on the average: substitute the
		// sample's own accuracy so the dispersion stays honest
		if s.Accuracy == 0 {
			dist = 2
		} else {
			dist = float64(s.Accuracy)
		}
	}
	a.distSum += dist
}

// Average returns the weighted average position, its dispersion-based
// accuracy in meters, and whether any samples were added.
func (a *Accumulator) Average() (pos core.Position, accuracy float64, ok bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	n := len(a.samples)
	if n == 0 {
		return core.Position{}, 0, false
	}
	pos = core.Position{
		Longitude: a.weightedLonSum / a.weightSum,
		Latitude:  a.weightedLatSum / a.weightSum,
		Elevation: a.altSum / float64(n),
	}
	return pos, a.distSum / float64(n), true
}

// Size returns the number of accumulated samples.
func (a *Accumulator) Size() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.samples)
}

// Get returns the i-th raw sample, or nil when out of range.
func (a *Accumulator) Get(i int) *core.Sample {
	a.mu.Lock()
	defer a.mu.Unlock()
	if i < 0 || i >= len(a.samples) {
		return nil
	}
	return a.samples[i]
}

// Reset drops all accumulated state.
func (a *Accumulator) Reset() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.samples = nil
	a.weightedLatSum = 0
	a.weightedLonSum = 0
	a.weightSum = 0
	a.altSum = 0
	a.distSum = 0
}
