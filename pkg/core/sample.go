// Package core holds the shared positioning types: raw samples,
// service status and the notification snapshot.
package core

import "time"

// Sample is one raw positioning reading from the provider.
// Previous points at the reading that arrived before this one; it is
// only used to compute incremental distance and is never owned.
// Writers keep the chain one link deep so holding the newest sample
// never retains the full history.
type Sample struct {
	Latitude  float64
	Longitude float64
	Altitude  float64
	Accuracy  float32 // meters, 0 means unknown
	Speed     float32 // m/s
	Bearing   float32 // degrees
	TimeMs    int64   // wall-clock milliseconds

	Previous *Sample
}

// Time returns the sample timestamp as time.Time.
func (s *Sample) Time() time.Time {
	return time.UnixMilli(s.TimeMs)
}

// Weight returns the averaging weight 1/accuracy.
// An unknown accuracy of 0 is treated as 1 to avoid division by zero.
func (s *Sample) Weight() float64 {
	acc := float64(s.Accuracy)
	if acc == 0 {
		acc = 1
	}
	return 1 / acc
}
