package features

import (
	"math"
	"sort"
)

// RaceOutcome is one historical classified finish used for form calculation.
type RaceOutcome struct {
	RaceIndex    int
	DriverNumber int
	Position     float64
}

// DriverForm computes a time-decayed average of the driver's last `window`
// finishes strictly before currentRaceIndex. The i-th most recent race is
// weighted decay^i, normalized to sum to one. Races at or after
// currentRaceIndex are never consulted; using them would leak future results
// into a time-ordered evaluation. No prior history yields the neutral 10.0.
func DriverForm(history []RaceOutcome, driverNumber, currentRaceIndex, window int, decay float64) float64 {
	var recent []RaceOutcome
	for _, h := range history {
		if h.DriverNumber == driverNumber && h.RaceIndex < currentRaceIndex {
			recent = append(recent, h)
		}
	}
	if len(recent) == 0 {
		return NeutralPosition
	}

	sort.Slice(recent, func(a, b int) bool {
		return recent[a].RaceIndex > recent[b].RaceIndex
	})
	if len(recent) > window {
		recent = recent[:window]
	}

	var weightSum, weighted float64
	for i, h := range recent {
		w := math.Pow(decay, float64(i))
		weightSum += w
		weighted += h.Position * w
	}

	return weighted / weightSum
}

// DriverStats holds per-driver historical aggregates used as static features.
type DriverStats struct {
	AvgPosition  float64
	TotalRaces   float64
	RacesAtTrack float64
	TeamName     string
}

// TeamStats holds per-team historical aggregates.
type TeamStats struct {
	AvgPosition        float64
	AvgPositionAtTrack float64
}

// TrackStats holds static circuit characteristics.
type TrackStats struct {
	OvertakingDifficulty float64
}

// Interactions holds the crossed driver/team/track features.
type Interactions struct {
	DriverTrackExperience float64
	TeamTrackPerformance  float64
	DriverTeamSynergy     float64
}

// InteractionFeatures crosses driver, team and track aggregates:
// driver×track is exposure-weighted average position, team×track discounts
// by how hard the circuit is to overtake on, and driver×team synergy is the
// geometric mean of their average positions.
func InteractionFeatures(driver DriverStats, team TeamStats, track TrackStats) Interactions {
	return Interactions{
		DriverTrackExperience: driver.RacesAtTrack * driver.AvgPosition,
		TeamTrackPerformance:  team.AvgPositionAtTrack * (1.0 - track.OvertakingDifficulty),
		DriverTeamSynergy:     math.Sqrt(driver.AvgPosition * team.AvgPosition),
	}
}

// UncertaintyInputs are the season-context signals behind the uncertainty score.
type UncertaintyInputs struct {
	RegulationChanges float64
	DriverMoves       float64
	TechnicalUpdates  float64
	RaceRumours       float64
}

// UncertaintyScore combines season-context signals with fixed weights
// (0.4, 0.3, 0.2, 0.1), clipped to 1.0.
func UncertaintyScore(in UncertaintyInputs) float64 {
	score := 0.4*in.RegulationChanges + 0.3*in.DriverMoves + 0.2*in.TechnicalUpdates + 0.1*in.RaceRumours
	return math.Min(1.0, score)
}
