// Package features derives per-driver, per-session numeric features from raw
// lap and telemetry records and assembles them into a race-grouped matrix.
//
// Every function here is deterministic and performs no I/O. Sparse inputs
// degrade to documented neutral values instead of failing: a single driver's
// missing telemetry must never abort a whole race's feature batch.
package features

import (
	"math"
	"sort"

	"github.com/sajari/regression"
	"gonum.org/v1/gonum/stat"
)

const (
	// outlierSigma is the cut for discarding traffic-affected laps before
	// fitting the degradation trend.
	outlierSigma = 3.0

	// brakeThreshold marks samples considered "braking" (percent of pedal).
	brakeThreshold = 10.0

	// apexSeparation is the minimum sample distance between detected apexes.
	apexSeparation = 5

	// NeutralPosition is the midfield fallback used whenever history is missing.
	NeutralPosition = 10.0
)

// TyreDegradation fits a linear model of lap time against tyre age and
// returns the slope in seconds per lap. Laps farther than three standard
// deviations from the mean lap time are discarded first; if fewer than three
// laps survive the filter the trend is unknowable and 0.0 is returned.
func TyreDegradation(lapTimes, tyreAges []float64) float64 {
	if len(lapTimes) < 3 || len(lapTimes) != len(tyreAges) {
		return 0.0
	}

	mean := stat.Mean(lapTimes, nil)
	sd := math.Sqrt(popVariance(lapTimes, mean))

	var times, ages []float64
	for i, t := range lapTimes {
		if math.Abs(t-mean) <= outlierSigma*sd {
			times = append(times, t)
			ages = append(ages, tyreAges[i])
		}
	}
	if len(times) < 3 {
		return 0.0
	}

	r := new(regression.Regression)
	r.SetObserved("lap_time")
	r.SetVar(0, "tyre_age")
	for i := range times {
		r.Train(regression.DataPoint(times[i], []float64{ages[i]}))
	}
	if err := r.Run(); err != nil {
		return 0.0
	}

	slope := r.Coeff(1)
	if math.IsNaN(slope) || math.IsInf(slope, 0) {
		return 0.0
	}
	return slope
}

// SpeedStats summarizes a speed trace.
type SpeedStats struct {
	Median float64
	P95    float64
	Max    float64
}

// SpeedPercentiles returns median, 95th percentile and maximum speed.
// Empty telemetry yields zeros, never an error.
func SpeedPercentiles(speeds []float64) SpeedStats {
	if len(speeds) == 0 {
		return SpeedStats{}
	}

	sorted := append([]float64(nil), speeds...)
	sort.Float64s(sorted)

	return SpeedStats{
		Median: stat.Quantile(0.5, stat.Empirical, sorted, nil),
		P95:    stat.Quantile(0.95, stat.Empirical, sorted, nil),
		Max:    sorted[len(sorted)-1],
	}
}

// PedalStats summarizes throttle and brake application.
type PedalStats struct {
	ThrottleVariance float64
	BrakeVariance    float64
	Smoothness       float64
}

// ThrottleBrakeVariance measures input variance and a smoothness score in
// (0,100] that decreases monotonically with combined variance. Empty input
// yields zeros.
func ThrottleBrakeVariance(throttle, brake []float64) PedalStats {
	if len(throttle) == 0 || len(brake) == 0 {
		return PedalStats{}
	}

	tv := popVariance(throttle, stat.Mean(throttle, nil))
	bv := popVariance(brake, stat.Mean(brake, nil))

	return PedalStats{
		ThrottleVariance: tv,
		BrakeVariance:    bv,
		Smoothness:       100.0 / (1.0 + (tv+bv)/200.0),
	}
}

// CornerStats summarizes cornering speed phases across one lap.
type CornerStats struct {
	Entry float64
	Apex  float64
	Exit  float64
	Delta float64
}

// CorneringDeltas locates braking zones and speed minima (apexes) and
// averages speeds around them. Entry and exit are the means of the three
// samples before and after each apex. Short or apex-free laps fall back to
// whole-lap means rather than erroring.
func CorneringDeltas(speed, distance, brake []float64) CornerStats {
	_ = distance // reserved for distance-bucketed corner identification

	if len(speed) < 10 {
		return CornerStats{}
	}

	var cornerIdx []int
	for i, b := range brake {
		if i < len(speed) && b > brakeThreshold {
			cornerIdx = append(cornerIdx, i)
		}
	}

	lapMean := stat.Mean(speed, nil)
	if len(cornerIdx) == 0 {
		return CornerStats{Entry: lapMean, Apex: lapMean, Exit: lapMean, Delta: 0}
	}

	apexes := findSpeedMinima(speed, apexSeparation)
	if len(apexes) == 0 {
		cornerSpeeds := make([]float64, len(cornerIdx))
		for i, idx := range cornerIdx {
			cornerSpeeds[i] = speed[idx]
		}
		cornerMean := stat.Mean(cornerSpeeds, nil)
		return CornerStats{Entry: cornerMean, Apex: minOf(speed), Exit: cornerMean, Delta: 0}
	}

	var entrySum, apexSum, exitSum float64
	for _, i := range apexes {
		entrySum += windowMean(speed, i-3, i-1)
		apexSum += speed[i]
		exitSum += windowMean(speed, i+1, i+3)
	}
	n := float64(len(apexes))
	entry := entrySum / n
	exit := exitSum / n

	return CornerStats{
		Entry: entry,
		Apex:  apexSum / n,
		Exit:  exit,
		Delta: exit - entry,
	}
}

// findSpeedMinima returns indices of local speed minima at least minSep
// samples apart, preferring the deeper minimum when two conflict.
func findSpeedMinima(speed []float64, minSep int) []int {
	var candidates []int
	for i := 1; i < len(speed)-1; i++ {
		if speed[i] < speed[i-1] && speed[i] <= speed[i+1] {
			candidates = append(candidates, i)
		}
	}
	if len(candidates) == 0 {
		return nil
	}

	// Deepest minima win when closer than the separation limit
	sort.Slice(candidates, func(a, b int) bool {
		return speed[candidates[a]] < speed[candidates[b]]
	})

	var kept []int
	for _, c := range candidates {
		ok := true
		for _, k := range kept {
			if abs(c-k) < minSep {
				ok = false
				break
			}
		}
		if ok {
			kept = append(kept, c)
		}
	}
	sort.Ints(kept)
	return kept
}

func windowMean(data []float64, lo, hi int) float64 {
	if lo < 0 {
		lo = 0
	}
	if hi > len(data)-1 {
		hi = len(data) - 1
	}
	if hi < lo {
		return 0
	}
	var sum float64
	for i := lo; i <= hi; i++ {
		sum += data[i]
	}
	return sum / float64(hi-lo+1)
}

// popVariance is the population variance (numpy semantics, divisor n)
func popVariance(data []float64, mean float64) float64 {
	if len(data) == 0 {
		return 0
	}
	var sum float64
	for _, v := range data {
		d := v - mean
		sum += d * d
	}
	return sum / float64(len(data))
}

func minOf(data []float64) float64 {
	m := data[0]
	for _, v := range data[1:] {
		if v < m {
			m = v
		}
	}
	return m
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
