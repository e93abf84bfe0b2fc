package core

import (
	"encoding/json"
	"testing"
	"time"
)

func TestSampleTime(t *testing.T) {
	s := &Sample{TimeMs: 1_700_000_000_000}
	want := time.UnixMilli(1_700_000_000_000)
	if !s.Time().Equal(want) {
		t.Fatalf("Time() = %v, want %v", s.Time(), want)
	}
}

func TestSampleWeight(t *testing.T) {
	cases := []struct {
		accuracy float32
		want     float64
	}{
		{0, 1},   // unknown accuracy counts as 1
		{1, 1},
		{4, 0.25},
	}
	for _, c := range cases {
		s := &Sample{Accuracy: c.accuracy}
		if got := s.Weight(); got != c.want {
			t.Fatalf("Weight(acc=%v) = %v, want %v", c.accuracy, got, c.want)
		}
	}
}

func TestServiceStatusString(t *testing.T) {
	cases := map[ServiceStatus]string{
		StatusOff:            "off",
		StatusOnNotListening: "on_not_listening",
		StatusListeningNoFix: "listening_no_fix",
		StatusHasFix:         "has_fix",
	}
	for status, want := range cases {
		if got := status.String(); got != want {
			t.Fatalf("%d.String() = %q, want %q", status, got, want)
		}
	}
}

func TestSnapshotJSONOmitsEmpty(t *testing.T) {
	snap := &Snapshot{Status: StatusListeningNoFix, TimeMs: 1}
	data, err := json.Marshal(snap)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if _, ok := m["position"]; ok {
		t.Fatal("nil position should be omitted")
	}
	if _, ok := m["averaging"]; ok {
		t.Fatal("nil averaging should be omitted")
	}
}
