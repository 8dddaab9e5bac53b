package geo

import (
	"math"
	"testing"
)

func TestHaversineMeters(t *testing.T) {
	// Los Angeles to San Francisco, roughly 559 km great-circle.
	la := [2]float64{34.0522, -118.2437}
	sf := [2]float64{37.7749, -122.4194}

	got := HaversineMeters(la[0], la[1], sf[0], sf[1])
	if math.Abs(got-559000) > 5000 {
		t.Errorf("LA-SF distance: got %.0f m, want about 559000 m", got)
	}

	if d := HaversineMeters(la[0], la[1], la[0], la[1]); d != 0 {
		t.Errorf("zero distance: got %v", d)
	}
}

func TestUnitConversions(t *testing.T) {
	if got := UnitMiles.FromMeters(1609.34); math.Abs(got-1) > 0.001 {
		t.Errorf("miles from meters: got %v", got)
	}
	if got := UnitKilometers.FromMeters(2500); got != 2.5 {
		t.Errorf("km from meters: got %v", got)
	}

	// Radius to radians uses a per-unit earth radius.
	if got := UnitMiles.Radians(3963.2); got != 1 {
		t.Errorf("miles radians: got %v", got)
	}
	if got := UnitKilometers.Radians(6378.1); got != 1 {
		t.Errorf("km radians: got %v", got)
	}
}

func TestWithinRadius(t *testing.T) {
	// Two points about 111 km apart (1 degree of latitude).
	if !WithinRadius(0, 0, 1, 0, 120, UnitKilometers) {
		t.Error("expected point inside 120 km radius")
	}
	if WithinRadius(0, 0, 1, 0, 100, UnitKilometers) {
		t.Error("expected point outside 100 km radius")
	}
}

func TestUnitValid(t *testing.T) {
	if !UnitMiles.Valid() || !UnitKilometers.Valid() {
		t.Error("expected mi and km to be valid")
	}
	if Unit("furlong").Valid() {
		t.Error("expected unknown unit to be invalid")
	}
}
