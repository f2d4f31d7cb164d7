package ml

import (
	"math"
	"testing"
)

func TestFitScalerStandardizes(t *testing.T) {
	rows := [][]float64{{1, 100}, {2, 200}, {3, 300}}
	s := FitScaler(rows)

	if math.Abs(s.Mean[0]-2) > 1e-9 || math.Abs(s.Mean[1]-200) > 1e-9 {
		t.Fatalf("unexpected means: %v", s.Mean)
	}

	scaled := s.Transform(rows)
	for j := 0; j < 2; j++ {
		var sum, sq float64
		for i := range scaled {
			sum += scaled[i][j]
			sq += scaled[i][j] * scaled[i][j]
		}
		if math.Abs(sum) > 1e-9 {
			t.Fatalf("column %d not centered: sum=%f", j, sum)
		}
		if math.Abs(sq/float64(len(scaled))-1) > 1e-9 {
			t.Fatalf("column %d not unit variance: %f", j, sq/float64(len(scaled)))
		}
	}
}

func TestFitScalerZeroVariance(t *testing.T) {
	rows := [][]float64{{5, 1}, {5, 2}, {5, 3}}
	s := FitScaler(rows)

	scaled := s.TransformRow([]float64{5, 2})
	if scaled[0] != 0 {
		t.Fatalf("constant column should scale to 0, got %f", scaled[0])
	}
	if math.IsNaN(scaled[1]) || math.IsInf(scaled[1], 0) {
		t.Fatalf("scaling produced non-finite value: %f", scaled[1])
	}
}
