package evaluate

import "testing"

func TestExpandingWindowFoldsChronology(t *testing.T) {
	// 12 races of 3 rows each.
	var groups []int
	for g := 0; g < 12; g++ {
		for i := 0; i < 3; i++ {
			groups = append(groups, g)
		}
	}

	folds, err := ExpandingWindowFolds(groups, 3)
	if err != nil {
		t.Fatalf("ExpandingWindowFolds failed: %v", err)
	}
	if len(folds) != 3 {
		t.Fatalf("expected 3 folds, got %d", len(folds))
	}

	for f, fold := range folds {
		if len(fold.TrainIdx) == 0 || len(fold.ValIdx) == 0 {
			t.Fatalf("fold %d has empty side: %d train, %d val", f, len(fold.TrainIdx), len(fold.ValIdx))
		}
		maxTrain := -1
		for _, i := range fold.TrainIdx {
			if groups[i] > maxTrain {
				maxTrain = groups[i]
			}
		}
		for _, i := range fold.ValIdx {
			if groups[i] <= maxTrain {
				t.Fatalf("fold %d validates on race %d, not after training race %d", f, groups[i], maxTrain)
			}
		}
	}

	// Training windows must expand.
	for f := 1; f < len(folds); f++ {
		if len(folds[f].TrainIdx) <= len(folds[f-1].TrainIdx) {
			t.Fatalf("fold %d training window did not expand: %d <= %d",
				f, len(folds[f].TrainIdx), len(folds[f-1].TrainIdx))
		}
	}
}

func TestExpandingWindowFoldsTooFewGroups(t *testing.T) {
	if _, err := ExpandingWindowFolds([]int{0, 1, 2}, 3); err == nil {
		t.Fatal("expected error with fewer groups than folds+1")
	}
	if _, err := ExpandingWindowFolds([]int{0, 1}, 0); err == nil {
		t.Fatal("expected error for non-positive fold count")
	}
}

func TestHoldoutSplitKeepsTail(t *testing.T) {
	var groups []int
	for g := 0; g < 10; g++ {
		groups = append(groups, g, g)
	}

	trainIdx, testIdx, err := HoldoutSplit(groups, 0.2)
	if err != nil {
		t.Fatalf("HoldoutSplit failed: %v", err)
	}
	if len(trainIdx)+len(testIdx) != len(groups) {
		t.Fatalf("split lost rows: %d + %d != %d", len(trainIdx), len(testIdx), len(groups))
	}

	maxTrain := -1
	for _, i := range trainIdx {
		if groups[i] > maxTrain {
			maxTrain = groups[i]
		}
	}
	for _, i := range testIdx {
		if groups[i] <= maxTrain {
			t.Fatalf("test race %d not after last training race %d", groups[i], maxTrain)
		}
	}
	if len(testIdx) != 4 {
		t.Fatalf("expected 2 test races (4 rows), got %d rows", len(testIdx))
	}
}

func TestHoldoutSplitInvalidFraction(t *testing.T) {
	for _, frac := range []float64{0, 1, -0.5, 1.5} {
		if _, _, err := HoldoutSplit([]int{0, 1, 2}, frac); err == nil {
			t.Fatalf("expected error for fraction %g", frac)
		}
	}
}
