package evaluate

import (
	"fmt"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// RaceMetrics holds per-race evaluation results.
type RaceMetrics struct {
	Group    int     `json:"group"`
	Size     int     `json:"size"`
	MAE      float64 `json:"mae"`
	Spearman float64 `json:"spearman"`
	Top10Hit float64 `json:"top10_hit_rate"`
}

// Summary aggregates evaluation metrics across races.
type Summary struct {
	MAE          float64       `json:"mae"`
	Spearman     float64       `json:"spearman"`
	Top10HitRate float64       `json:"top10_hit_rate"`
	Races        []RaceMetrics `json:"races"`
}

// Evaluate compares predicted against actual finishing positions per
// race group and averages the per-race metrics. Grouping is by
// value, so rows of the same race need not be contiguous.
func Evaluate(predicted, actual []float64, groups []int) (*Summary, error) {
	if len(predicted) != len(actual) || len(predicted) != len(groups) {
		return nil, fmt.Errorf("metric input length mismatch: %d predicted, %d actual, %d groups",
			len(predicted), len(actual), len(groups))
	}
	if len(predicted) == 0 {
		return nil, fmt.Errorf("nothing to evaluate")
	}

	byGroup := make(map[int][]int)
	var order []int
	for i, g := range groups {
		if _, seen := byGroup[g]; !seen {
			order = append(order, g)
		}
		byGroup[g] = append(byGroup[g], i)
	}
	sort.Ints(order)

	s := &Summary{}
	for _, g := range order {
		idx := byGroup[g]
		pred := gather(predicted, idx)
		act := gather(actual, idx)

		rm := RaceMetrics{
			Group:    g,
			Size:     len(idx),
			MAE:      MAE(pred, act),
			Spearman: Spearman(pred, act),
			Top10Hit: Top10HitRate(pred, act),
		}
		s.Races = append(s.Races, rm)
		s.MAE += rm.MAE
		s.Spearman += rm.Spearman
		s.Top10HitRate += rm.Top10Hit
	}

	n := float64(len(s.Races))
	s.MAE /= n
	s.Spearman /= n
	s.Top10HitRate /= n
	return s, nil
}

// MAE is the mean absolute error between predicted and actual
// positions.
func MAE(predicted, actual []float64) float64 {
	if len(predicted) == 0 {
		return 0
	}
	var sum float64
	for i := range predicted {
		d := predicted[i] - actual[i]
		if d < 0 {
			d = -d
		}
		sum += d
	}
	return sum / float64(len(predicted))
}

// Spearman is the rank correlation between the two orderings. Ties
// are resolved by original index order so the result is
// deterministic across runs.
func Spearman(predicted, actual []float64) float64 {
	if len(predicted) < 2 {
		return 0
	}
	rp := ranks(predicted)
	ra := ranks(actual)
	rho := stat.Correlation(rp, ra, nil)
	return rho
}

// Top10HitRate is the fraction of the true top finishers that appear
// among the k smallest predictions, with k = min(10, field size).
// Ties in either ordering resolve by original index order.
func Top10HitRate(predicted, actual []float64) float64 {
	k := 10
	if len(predicted) < k {
		k = len(predicted)
	}
	if k == 0 {
		return 0
	}

	predTop := topKIndices(predicted, k)
	actTop := topKIndices(actual, k)

	inPred := make(map[int]bool, k)
	for _, i := range predTop {
		inPred[i] = true
	}
	hits := 0
	for _, i := range actTop {
		if inPred[i] {
			hits++
		}
	}
	return float64(hits) / float64(k)
}

// ranks maps values to 1-based ascending ranks with stable ties.
func ranks(vals []float64) []float64 {
	order := make([]int, len(vals))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return vals[order[a]] < vals[order[b]]
	})
	out := make([]float64, len(vals))
	for pos, i := range order {
		out[i] = float64(pos + 1)
	}
	return out
}

// topKIndices returns the indices of the k smallest values.
func topKIndices(vals []float64, k int) []int {
	order := make([]int, len(vals))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return vals[order[a]] < vals[order[b]]
	})
	return order[:k]
}

func gather(vals []float64, idx []int) []float64 {
	out := make([]float64, len(idx))
	for i, j := range idx {
		out[i] = vals[j]
	}
	return out
}
