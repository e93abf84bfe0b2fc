package geo

import (
	"errors"
	"math"
	"testing"
)

func TestDistanceMeters_SamePoint(t *testing.T) {
	d := DistanceMeters(46.0, 11.0, 46.0, 11.0)

	if d != 0 {
		t.Errorf("expected 0 distance for same point, got %f", d)
	}
}

func TestDistanceMeters_SmallLongitudeStep(t *testing.T) {
	// 0.00002 degrees of longitude at the equator is about 2.2 meters
	d := DistanceMeters(0, 0, 0, 0.00002)

	if d < 2.0 || d > 2.5 {
		t.Errorf("expected about 2.2m, got %f", d)
	}
}

func TestDistanceMeters_OneDegreeLatitude(t *testing.T) {
	// one degree of latitude is about 111.2 km regardless of longitude
	d := DistanceMeters(45, 7, 46, 7)

	if math.Abs(d-111195) > 300 {
		t.Errorf("expected about 111195m, got %f", d)
	}
}

func TestDistanceMeters_Symmetric(t *testing.T) {
	ab := DistanceMeters(46.5, 11.3, 46.6, 11.4)
	ba := DistanceMeters(46.6, 11.4, 46.5, 11.3)

	if math.Abs(ab-ba) > 1e-9 {
		t.Errorf("distance not symmetric: %f vs %f", ab, ba)
	}
}

func TestPositionFromString_ValidWithElevation(t *testing.T) {
	pos, err := PositionFromString("11.25,46.5,230.0")

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pos.Longitude != 11.25 {
		t.Errorf("expected lon=11.25, got %f", pos.Longitude)
	}
	if pos.Latitude != 46.5 {
		t.Errorf("expected lat=46.5, got %f", pos.Latitude)
	}
	if pos.Elevation != 230.0 {
		t.Errorf("expected elev=230.0, got %f", pos.Elevation)
	}
}

func TestPositionFromString_ValidWithoutElevation(t *testing.T) {
	pos, err := PositionFromString("-71.06,42.36")

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pos.Longitude != -71.06 {
		t.Errorf("expected lon=-71.06, got %f", pos.Longitude)
	}
	if pos.Elevation != 0 {
		t.Errorf("expected elev=0, got %f", pos.Elevation)
	}
}

func TestPositionFromString_InvalidTooFewComponents(t *testing.T) {
	_, err := PositionFromString("11.25")

	if err == nil {
		t.Fatal("expected error for invalid coordinates")
	}
	if !errors.Is(err, ErrInvalidCoordinates) {
		t.Errorf("expected ErrInvalidCoordinates, got %v", err)
	}
}

func TestPositionFromString_InvalidLongitude(t *testing.T) {
	_, err := PositionFromString("abc,46.5")

	if err == nil {
		t.Fatal("expected error for invalid longitude")
	}
	if !errors.Is(err, ErrInvalidCoordinates) {
		t.Errorf("expected ErrInvalidCoordinates, got %v", err)
	}
}

func TestPositionFromString_InvalidElevation(t *testing.T) {
	_, err := PositionFromString("11.25,46.5,notanumber")

	if err == nil {
		t.Fatal("expected error for invalid elevation")
	}
	if !errors.Is(err, ErrInvalidCoordinates) {
		t.Errorf("expected ErrInvalidCoordinates, got %v", err)
	}
}

func TestCoords3857From4326_Origin(t *testing.T) {
	point, err := Coords3857From4326(0, 0)

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	coords, ok := point.Coordinates()
	if !ok {
		t.Fatal("expected valid coordinates")
	}
	if coords.X != 0 {
		t.Errorf("expected X=0 at origin, got %f", coords.X)
	}
	if coords.Y != 0 {
		t.Errorf("expected Y=0 at origin, got %f", coords.Y)
	}
}

func TestCoords3857From4326_NorthEast(t *testing.T) {
	point, err := Coords3857From4326(11, 46)

	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	coords, ok := point.Coordinates()
	if !ok {
		t.Fatal("expected valid coordinates")
	}
	if coords.X <= 0 {
		t.Errorf("expected positive X, got %f", coords.X)
	}
	if coords.Y <= 0 {
		t.Errorf("expected positive Y, got %f", coords.Y)
	}
}
