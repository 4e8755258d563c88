package utils

import (
	"math"
	"testing"
)

func TestGreatCircleDistance(t *testing.T) {
	if d := GreatCircleDistance(12.97, 77.59, 12.97, 77.59); d != 0 {
		t.Errorf("same point: expected 0, got %f", d)
	}

	// One degree of latitude is about 111.19 km.
	d := GreatCircleDistance(0, 0, 1, 0)
	if math.Abs(d-111.19) > 0.01 {
		t.Errorf("expected ~111.19 km, got %f", d)
	}

	if got := RoundDistance(3.14159); got != 3.14 {
		t.Errorf("expected 3.14, got %f", got)
	}
}
