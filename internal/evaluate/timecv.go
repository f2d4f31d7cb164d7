package evaluate

import (
	"fmt"
	"sort"
)

// Fold is one step of expanding-window cross-validation: the model
// trains on TrainIdx rows and validates on ValIdx rows, where every
// validation race is strictly later than every training race.
type Fold struct {
	TrainIdx []int
	ValIdx   []int
}

// ExpandingWindowFolds partitions chronologically ordered race groups
// into k folds. The first fold trains on the earliest chunk of races
// and validates on the next; each subsequent fold extends the
// training window by one chunk. Groups must encode chronological
// order, with larger values meaning later races.
func ExpandingWindowFolds(groups []int, k int) ([]Fold, error) {
	if k < 1 {
		return nil, fmt.Errorf("fold count must be positive, got %d", k)
	}

	unique := uniqueSorted(groups)
	if len(unique) < k+1 {
		return nil, fmt.Errorf("need at least %d race groups for %d folds, have %d",
			k+1, k, len(unique))
	}

	byGroup := make(map[int][]int, len(unique))
	for i, g := range groups {
		byGroup[g] = append(byGroup[g], i)
	}

	// Split the unique group sequence into k+1 chunks of near-equal
	// size; chunk boundaries never cut through a race.
	chunks := chunkGroups(unique, k+1)

	folds := make([]Fold, 0, k)
	var trainGroups []int
	for f := 0; f < k; f++ {
		trainGroups = append(trainGroups, chunks[f]...)

		fold := Fold{}
		for _, g := range trainGroups {
			fold.TrainIdx = append(fold.TrainIdx, byGroup[g]...)
		}
		for _, g := range chunks[f+1] {
			fold.ValIdx = append(fold.ValIdx, byGroup[g]...)
		}
		folds = append(folds, fold)
	}

	return folds, nil
}

// HoldoutSplit keeps the last fraction of race groups as the test
// set. This is the single upstream split shared by every stage of a
// training run.
func HoldoutSplit(groups []int, testFraction float64) (trainIdx, testIdx []int, err error) {
	if testFraction <= 0 || testFraction >= 1 {
		return nil, nil, fmt.Errorf("test fraction must be in (0,1), got %g", testFraction)
	}

	unique := uniqueSorted(groups)
	nTest := int(float64(len(unique)) * testFraction)
	if nTest < 1 {
		nTest = 1
	}
	if nTest >= len(unique) {
		return nil, nil, fmt.Errorf("test fraction %g leaves no training races among %d",
			testFraction, len(unique))
	}

	cut := unique[len(unique)-nTest]
	for i, g := range groups {
		if g < cut {
			trainIdx = append(trainIdx, i)
		} else {
			testIdx = append(testIdx, i)
		}
	}
	return trainIdx, testIdx, nil
}

func uniqueSorted(groups []int) []int {
	seen := make(map[int]bool)
	var unique []int
	for _, g := range groups {
		if !seen[g] {
			seen[g] = true
			unique = append(unique, g)
		}
	}
	sort.Ints(unique)
	return unique
}

func chunkGroups(unique []int, parts int) [][]int {
	chunks := make([][]int, parts)
	base := len(unique) / parts
	extra := len(unique) % parts
	pos := 0
	for i := 0; i < parts; i++ {
		size := base
		if i < extra {
			size++
		}
		chunks[i] = unique[pos : pos+size]
		pos += size
	}
	return chunks
}
