package memory

import (
	"errors"
	"testing"
	"time"

	"github.com/geopaparazzi/tracklog/internal/storage"
)

func TestCreateAppendAndInspect(t *testing.T) {
	s := New()

	id, err := s.CreateLog(time.Now(), time.Now(), 0, "walk", 3, "red", true)
	if err != nil {
		t.Fatalf("CreateLog: %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := s.AppendPoint(id, 11.0, 46.0+float64(i)*0.001, 230, int64(i)); err != nil {
			t.Fatalf("AppendPoint: %v", err)
		}
	}

	log, ok := s.GetLog(id)
	if !ok || log.Text != "walk" {
		t.Fatalf("log = %+v, ok = %v", log, ok)
	}
	if got := len(s.GetPoints(id)); got != 3 {
		t.Fatalf("points = %d", got)
	}
}

func TestAppendToMissingLog(t *testing.T) {
	s := New()
	if err := s.AppendPoint(42, 11, 46, 0, 0); err == nil {
		t.Fatal("expected error for unknown log")
	}
}

func TestFinalizeAndDelete(t *testing.T) {
	s := New()
	id, _ := s.CreateLog(time.Now(), time.Now(), 0, "t", 1, "red", true)

	end := time.Now().Add(time.Minute)
	if err := s.SetEndTimestamp(id, end); err != nil {
		t.Fatalf("SetEndTimestamp: %v", err)
	}
	if err := s.SetTrackLength(id, 55.5); err != nil {
		t.Fatalf("SetTrackLength: %v", err)
	}
	log, _ := s.GetLog(id)
	if !log.EndTs.Equal(end) || log.LengthMeters != 55.5 {
		t.Fatalf("log = %+v", log)
	}

	if err := s.DeleteLog(id); err != nil {
		t.Fatalf("DeleteLog: %v", err)
	}
	if _, ok := s.GetLog(id); ok {
		t.Fatal("log should be gone")
	}
	if len(s.GetPoints(id)) != 0 {
		t.Fatal("points should be gone")
	}
}

func TestLastOpenLogID(t *testing.T) {
	s := New()
	if _, err := s.LastOpenLogID(); !errors.Is(err, storage.ErrNoOpenLog) {
		t.Fatalf("err = %v, want ErrNoOpenLog", err)
	}

	s.CreateLog(time.Now(), time.Now(), 0, "a", 1, "red", true)
	want, _ := s.CreateLog(time.Now(), time.Now(), 0, "b", 1, "red", true)

	got, err := s.LastOpenLogID()
	if err != nil {
		t.Fatalf("LastOpenLogID: %v", err)
	}
	if got != want {
		t.Fatalf("id = %d, want %d", got, want)
	}
}

func TestFailAppendInjection(t *testing.T) {
	s := New()
	id, _ := s.CreateLog(time.Now(), time.Now(), 0, "t", 1, "red", true)

	s.FailAppend = storage.ErrCapacityExhausted
	err := s.AppendPoint(id, 11, 46, 0, 0)
	if !errors.Is(err, storage.ErrCapacityExhausted) {
		t.Fatalf("err = %v", err)
	}
}
