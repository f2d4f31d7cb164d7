package features

import (
	"math"
	"testing"
)

func TestTyreDegradationSlope(t *testing.T) {
	// Lap times rising 0.05s per lap of tyre age.
	ages := []float64{1, 2, 3, 4, 5, 6, 7, 8}
	times := make([]float64, len(ages))
	for i, a := range ages {
		times[i] = 90.0 + 0.05*a
	}

	slope := TyreDegradation(times, ages)
	if math.Abs(slope-0.05) > 1e-6 {
		t.Fatalf("expected slope 0.05, got %f", slope)
	}
}

func TestTyreDegradationTooFewLaps(t *testing.T) {
	cases := [][]float64{
		nil,
		{90.0},
		{90.0, 90.1},
	}
	for _, times := range cases {
		ages := make([]float64, len(times))
		for i := range ages {
			ages[i] = float64(i + 1)
		}
		if got := TyreDegradation(times, ages); got != 0.0 {
			t.Fatalf("expected 0.0 for %d laps, got %f", len(times), got)
		}
	}
}

func TestTyreDegradationLengthMismatch(t *testing.T) {
	if got := TyreDegradation([]float64{90, 91, 92}, []float64{1, 2}); got != 0.0 {
		t.Fatalf("expected 0.0 on length mismatch, got %f", got)
	}
}

func TestSpeedPercentiles(t *testing.T) {
	speeds := make([]float64, 100)
	for i := range speeds {
		speeds[i] = float64(i + 1) // 1..100
	}

	stats := SpeedPercentiles(speeds)
	if stats.Max != 100 {
		t.Fatalf("expected max 100, got %f", stats.Max)
	}
	if stats.Median < 49 || stats.Median > 52 {
		t.Fatalf("median out of range: %f", stats.Median)
	}
	if stats.P95 < 94 || stats.P95 > 96 {
		t.Fatalf("p95 out of range: %f", stats.P95)
	}
}

func TestSpeedPercentilesEmpty(t *testing.T) {
	stats := SpeedPercentiles(nil)
	if stats.Median != 0 || stats.P95 != 0 || stats.Max != 0 {
		t.Fatalf("expected zero stats for empty trace, got %+v", stats)
	}
}

func TestSmoothnessBounds(t *testing.T) {
	flat := make([]float64, 50)
	for i := range flat {
		flat[i] = 80.0
	}
	perfect := ThrottleBrakeVariance(flat, flat)
	if perfect.Smoothness != 100.0 {
		t.Fatalf("constant inputs should score 100, got %f", perfect.Smoothness)
	}

	jagged := make([]float64, 50)
	for i := range jagged {
		if i%2 == 0 {
			jagged[i] = 100
		}
	}
	noisy := ThrottleBrakeVariance(jagged, jagged)
	if noisy.Smoothness <= 0 || noisy.Smoothness >= perfect.Smoothness {
		t.Fatalf("noisy smoothness %f should be in (0, 100)", noisy.Smoothness)
	}
}

func TestCorneringDeltasNoBraking(t *testing.T) {
	speed := make([]float64, 40)
	brake := make([]float64, 40)
	for i := range speed {
		speed[i] = 200.0
	}

	stats := CorneringDeltas(speed, nil, brake)
	if stats.Entry != 200.0 || stats.Apex != 200.0 || stats.Exit != 200.0 {
		t.Fatalf("expected whole-lap means, got %+v", stats)
	}
	if stats.Delta != 0 {
		t.Fatalf("expected zero delta, got %f", stats.Delta)
	}
}

func TestCorneringDeltasDetectsApex(t *testing.T) {
	// One clean corner: decelerate into sample 20, accelerate out.
	n := 41
	speed := make([]float64, n)
	brake := make([]float64, n)
	for i := range speed {
		speed[i] = 250.0 - 10.0*math.Max(0, 10.0-math.Abs(float64(i-20)))
		if i >= 14 && i <= 20 {
			brake[i] = 60.0
		}
	}

	stats := CorneringDeltas(speed, nil, brake)
	if stats.Apex >= stats.Entry {
		t.Fatalf("apex %f should be below entry %f", stats.Apex, stats.Entry)
	}
	if stats.Apex >= stats.Exit {
		t.Fatalf("apex %f should be below exit %f", stats.Apex, stats.Exit)
	}
}

func TestUncertaintyScoreClipped(t *testing.T) {
	score := UncertaintyScore(UncertaintyInputs{
		RegulationChanges: 3.0,
		DriverMoves:       2.0,
		TechnicalUpdates:  2.0,
		RaceRumours:       1.0,
	})
	if score != 1.0 {
		t.Fatalf("expected clipped score 1.0, got %f", score)
	}

	half := UncertaintyScore(UncertaintyInputs{RegulationChanges: 1.0})
	if math.Abs(half-0.4) > 1e-9 {
		t.Fatalf("expected 0.4, got %f", half)
	}
}
