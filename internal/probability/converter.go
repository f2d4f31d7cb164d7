// Package probability turns point predictions of finishing position
// into full distributions over grid slots.
package probability

import (
	"fmt"
	"math"
)

// Distribution is a probability vector over finishing positions 1..N
// for one driver. Entry i is the probability of finishing in position
// i+1.
type Distribution []float64

// FromPrediction converts a predicted position into a softmax
// distribution over an N-position field. Positions closer to the
// prediction score higher; the temperature controls how sharply the
// mass concentrates. Fractional and out-of-range predictions are
// valid inputs and simply shift where the mode lands.
func FromPrediction(predicted float64, fieldSize int, temperature float64) (Distribution, error) {
	if fieldSize < 1 {
		return nil, fmt.Errorf("field size must be positive, got %d", fieldSize)
	}
	if temperature <= 0 {
		temperature = 1
	}

	scores := make([]float64, fieldSize)
	maxScore := math.Inf(-1)
	for i := range scores {
		pos := float64(i + 1)
		scores[i] = -math.Abs(pos-predicted) / temperature
		if scores[i] > maxScore {
			maxScore = scores[i]
		}
	}

	// Subtract the max before exponentiating for numerical stability.
	dist := make(Distribution, fieldSize)
	var sum float64
	for i, s := range scores {
		dist[i] = math.Exp(s - maxScore)
		sum += dist[i]
	}
	for i := range dist {
		dist[i] /= sum
	}
	return dist, nil
}

// Top10 is the probability mass on positions 1 through 10, or the
// whole field when it has fewer than 10 slots.
func (d Distribution) Top10() float64 {
	k := 10
	if len(d) < k {
		k = len(d)
	}
	var sum float64
	for i := 0; i < k; i++ {
		sum += d[i]
	}
	return sum
}

// Podium is the probability mass on the first three positions.
func (d Distribution) Podium() float64 {
	k := 3
	if len(d) < k {
		k = len(d)
	}
	var sum float64
	for i := 0; i < k; i++ {
		sum += d[i]
	}
	return sum
}

// Win is the probability of finishing first.
func (d Distribution) Win() float64 {
	if len(d) == 0 {
		return 0
	}
	return d[0]
}
