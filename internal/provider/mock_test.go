package provider

import (
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/geopaparazzi/tracklog/internal/geo"
	"github.com/geopaparazzi/tracklog/pkg/core"
)

func TestMockEmitsSamples(t *testing.T) {
	m := NewMock(zerolog.Nop(), MockConfig{
		StartLat: 46.0,
		StartLon: 11.0,
		StartAlt: 230,
		Interval: 5 * time.Millisecond,
		Seed:     42,
	})
	if err := m.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer m.Stop()

	var got []*core.Sample
	timeout := time.After(3 * time.Second)
	for len(got) < 5 {
		select {
		case s := <-m.Samples().Receive():
			if s == nil {
				t.Fatal("nil sample")
			}
			got = append(got, s)
		case <-timeout:
			t.Fatalf("only %d samples before timeout", len(got))
		}
	}

	for i, s := range got {
		// each step is ~1.4 m/s * 5ms, so the walk stays near the start
		d := geo.DistanceMeters(46.0, 11.0, s.Latitude, s.Longitude)
		if d > 10 {
			t.Fatalf("sample %d wandered %v meters", i, d)
		}
		if s.Accuracy < 3 || s.Accuracy > 8 {
			t.Fatalf("accuracy = %v", s.Accuracy)
		}
	}
	for i := 1; i < len(got); i++ {
		p := got[i].Previous
		if p == nil || p.TimeMs != got[i-1].TimeMs || p.Latitude != got[i-1].Latitude {
			t.Fatal("samples should be back-linked to the prior reading")
		}
		// the chain stays one link deep so old samples can be collected
		if p.Previous != nil {
			t.Fatal("back links must not chain beyond one sample")
		}
	}
}

func TestMockEmitsStartAndFirstFix(t *testing.T) {
	m := NewMock(zerolog.Nop(), MockConfig{StartLat: 46, StartLon: 11, Interval: 5 * time.Millisecond, Seed: 1})
	if err := m.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer m.Stop()

	want := []core.ProviderEventKind{core.EventStarted, core.EventFirstFix}
	for _, kind := range want {
		select {
		case e := <-m.Events().Receive():
			if e.Kind != kind {
				t.Fatalf("event = %v, want %v", e.Kind, kind)
			}
		case <-time.After(3 * time.Second):
			t.Fatalf("timed out waiting for %v", kind)
		}
	}
}

func TestMockStopClosesChannels(t *testing.T) {
	m := NewMock(zerolog.Nop(), MockConfig{StartLat: 46, StartLon: 11, Interval: 5 * time.Millisecond, Seed: 1})
	if err := m.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	m.Stop()
	m.Stop() // idempotent

	deadline := time.After(time.Second)
	for {
		select {
		case _, ok := <-m.Samples().Receive():
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("samples channel not closed")
		}
	}
}

func TestMockDeterministicWithSeed(t *testing.T) {
	run := func() *core.Sample {
		m := NewMock(zerolog.Nop(), MockConfig{StartLat: 46, StartLon: 11, Interval: time.Millisecond, Seed: 7})
		if err := m.Start(); err != nil {
			t.Fatalf("Start: %v", err)
		}
		defer m.Stop()
		select {
		case s := <-m.Samples().Receive():
			return s
		case <-time.After(3 * time.Second):
			t.Fatal("no sample")
			return nil
		}
	}
	a, b := run(), run()
	if a.Latitude != b.Latitude || a.Longitude != b.Longitude {
		t.Fatalf("seeded walks diverged: (%v,%v) vs (%v,%v)", a.Latitude, a.Longitude, b.Latitude, b.Longitude)
	}
}
