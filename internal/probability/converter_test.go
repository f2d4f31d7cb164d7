package probability

import (
	"math"
	"testing"
)

func TestFromPredictionSumsToOne(t *testing.T) {
	for _, predicted := range []float64{1, 5.5, 10, 20, -3, 35.2} {
		dist, err := FromPrediction(predicted, 20, 3.0)
		if err != nil {
			t.Fatalf("FromPrediction(%f) failed: %v", predicted, err)
		}
		if len(dist) != 20 {
			t.Fatalf("expected 20 entries, got %d", len(dist))
		}
		var sum float64
		for _, p := range dist {
			if p < 0 {
				t.Fatalf("negative probability %f for prediction %f", p, predicted)
			}
			sum += p
		}
		if math.Abs(sum-1) > 1e-6 {
			t.Fatalf("distribution for %f sums to %f", predicted, sum)
		}
	}
}

func TestFromPredictionModeAtPrediction(t *testing.T) {
	dist, err := FromPrediction(7, 20, 3.0)
	if err != nil {
		t.Fatalf("FromPrediction failed: %v", err)
	}
	mode := 0
	for i, p := range dist {
		if p > dist[mode] {
			mode = i
		}
	}
	if mode != 6 {
		t.Fatalf("expected mode at position 7, got %d", mode+1)
	}
}

func TestFromPredictionOutOfRange(t *testing.T) {
	// A prediction past the back of the grid piles mass on the last slot.
	dist, err := FromPrediction(30, 20, 3.0)
	if err != nil {
		t.Fatalf("FromPrediction failed: %v", err)
	}
	for i := 0; i < len(dist)-1; i++ {
		if dist[i] > dist[i+1] {
			t.Fatalf("mass should increase toward the back for an out-of-range prediction")
		}
	}
}

func TestFromPredictionInvalidField(t *testing.T) {
	if _, err := FromPrediction(5, 0, 3.0); err == nil {
		t.Fatal("expected error for empty field")
	}
}

func TestDistributionAggregates(t *testing.T) {
	dist, err := FromPrediction(1, 20, 3.0)
	if err != nil {
		t.Fatalf("FromPrediction failed: %v", err)
	}

	if dist.Win() != dist[0] {
		t.Fatalf("Win should be the first entry")
	}
	if dist.Podium() <= dist.Win() {
		t.Fatalf("Podium %f should exceed Win %f", dist.Podium(), dist.Win())
	}
	if dist.Top10() <= dist.Podium() {
		t.Fatalf("Top10 %f should exceed Podium %f", dist.Top10(), dist.Podium())
	}
	if dist.Top10() >= 1.0 {
		t.Fatalf("Top10 of a 20-car field should be below 1, got %f", dist.Top10())
	}

	short, err := FromPrediction(2, 6, 3.0)
	if err != nil {
		t.Fatalf("FromPrediction failed: %v", err)
	}
	if math.Abs(short.Top10()-1.0) > 1e-9 {
		t.Fatalf("Top10 of a 6-car field should be 1, got %f", short.Top10())
	}
}
