package ml

import (
	"fmt"
	"math"
	"math/rand"
	"sort"

	"github.com/yourusername/gridline/internal/config"
	"github.com/yourusername/gridline/internal/features"
	"github.com/yourusername/gridline/internal/models"
)

// GroupedData is a race-ordered view of the training rows prepared
// for pairwise ranking: rows are stably sorted by (group, target),
// with one size per group so group boundaries never have to be
// rediscovered downstream.
type GroupedData struct {
	X          [][]float64
	Relevance  []float64
	GroupSizes []int
	Order      []int
}

// PrepareRankingData sorts rows by race group and finishing position
// and converts positions into relevance grades. Within a group of
// size n, the winner gets relevance n-1 and the last finisher 0, so
// larger relevance always means a better finish.
func PrepareRankingData(x [][]float64, target []float64, groups []int) (*GroupedData, error) {
	if len(x) != len(target) || len(x) != len(groups) {
		return nil, fmt.Errorf("ranking data length mismatch: %d rows, %d targets, %d groups",
			len(x), len(target), len(groups))
	}
	if len(x) == 0 {
		return nil, fmt.Errorf("%w: no rows to rank", models.ErrEmptyTrainingSet)
	}

	order := make([]int, len(x))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		if groups[order[a]] != groups[order[b]] {
			return groups[order[a]] < groups[order[b]]
		}
		return target[order[a]] < target[order[b]]
	})

	g := &GroupedData{
		X:         make([][]float64, len(order)),
		Relevance: make([]float64, len(order)),
		Order:     order,
	}

	start := 0
	for start < len(order) {
		end := start
		for end < len(order) && groups[order[end]] == groups[order[start]] {
			end++
		}
		size := end - start
		g.GroupSizes = append(g.GroupSizes, size)
		for i := start; i < end; i++ {
			g.X[i] = x[order[i]]
			g.Relevance[i] = float64(size) - target[order[i]]
			if g.Relevance[i] < 0 {
				g.Relevance[i] = 0
			}
		}
		start = end
	}

	return g, nil
}

// RankerCore is a LambdaRank gradient boosted ensemble. Internally
// the trees are fitted to maximize NDCG, so a raw tree sum means
// "more relevant". PredictRow negates that sum so the public contract
// stays position-like: smaller output, better expected finish.
type RankerCore struct {
	Trees        []*Tree
	LearningRate float64
	FeatureCount int
}

func (c *RankerCore) PredictRow(row []float64) float64 {
	return -c.rawScore(row)
}

func (c *RankerCore) rawScore(row []float64) float64 {
	var score float64
	for _, t := range c.Trees {
		score += c.LearningRate * t.PredictRow(row)
	}
	return score
}

func (c *RankerCore) Importance(nFeatures int) []float64 {
	totals := make([]float64, nFeatures)
	for _, t := range c.Trees {
		t.accumulateGain(totals)
	}
	return normalizeImportance(totals)
}

func (c *RankerCore) NumFeatures() int { return c.FeatureCount }

// TrainRanker fits a LambdaRank model over race groups with early
// stopping on validation NDCG. The validation split is taken from the
// tail of the group sequence, which is chronological by construction.
func TrainRanker(cfg config.RankerConfig, mx *features.Matrix) (*TrainedModel, error) {
	if mx.NumRows() == 0 {
		return nil, fmt.Errorf("%w: no rows to fit ranker", models.ErrEmptyTrainingSet)
	}

	scaler := FitScaler(mx.Rows)
	x := scaler.Transform(mx.Rows)

	grouped, err := PrepareRankingData(x, mx.Target, mx.Groups)
	if err != nil {
		return nil, err
	}

	core, err := fitLambdaRank(cfg, grouped, len(mx.Columns))
	if err != nil {
		return nil, err
	}

	return newTrainedModel(AlgorithmRanker, mx.Columns, scaler, columnMeans(mx.Rows), core), nil
}

func fitLambdaRank(cfg config.RankerConfig, g *GroupedData, nFeatures int) (*RankerCore, error) {
	train, val := splitGroups(g, cfg.ValFraction)

	core := &RankerCore{
		LearningRate: cfg.LearningRate,
		FeatureCount: nFeatures,
	}

	rng := rand.New(rand.NewSource(cfg.Seed))
	params := treeParams{
		maxDepth:       cfg.MaxDepth,
		minSamplesLeaf: 1,
		featureFrac:    1,
		rng:            rng,
	}

	scores := make([]float64, len(train.X))
	idx := allIndices(len(train.X))

	bestNDCG := math.Inf(-1)
	bestLen := 0
	patience := 0

	for n := 0; n < cfg.Estimators; n++ {
		lambdas := computeLambdas(train, scores)
		tree := growTree(train.X, lambdas, idx, params)
		core.Trees = append(core.Trees, tree)
		for i, row := range train.X {
			scores[i] += cfg.LearningRate * tree.PredictRow(row)
		}

		if val == nil {
			continue
		}
		ndcg := core.meanNDCG(val)
		if ndcg > bestNDCG+1e-9 {
			bestNDCG = ndcg
			bestLen = len(core.Trees)
			patience = 0
		} else {
			patience++
			if cfg.EarlyStopping > 0 && patience >= cfg.EarlyStopping {
				break
			}
		}
	}

	if val != nil && bestLen > 0 {
		core.Trees = core.Trees[:bestLen]
	}
	return core, nil
}

// splitGroups holds out the last valFraction of groups for early
// stopping. With too few groups the whole set trains and early
// stopping is disabled.
func splitGroups(g *GroupedData, valFraction float64) (train, val *GroupedData) {
	nGroups := len(g.GroupSizes)
	nVal := int(math.Floor(valFraction * float64(nGroups)))
	if nVal < 1 || nGroups-nVal < 1 {
		return g, nil
	}

	cut := 0
	for _, size := range g.GroupSizes[:nGroups-nVal] {
		cut += size
	}

	train = &GroupedData{
		X:          g.X[:cut],
		Relevance:  g.Relevance[:cut],
		GroupSizes: g.GroupSizes[:nGroups-nVal],
	}
	val = &GroupedData{
		X:          g.X[cut:],
		Relevance:  g.Relevance[cut:],
		GroupSizes: g.GroupSizes[nGroups-nVal:],
	}
	return train, val
}

// computeLambdas accumulates pairwise LambdaRank gradients within
// each group, weighting every swapped pair by the NDCG it would gain.
func computeLambdas(g *GroupedData, scores []float64) []float64 {
	lambdas := make([]float64, len(scores))

	start := 0
	for _, size := range g.GroupSizes {
		end := start + size
		maxDCG := idealDCG(g.Relevance[start:end])
		if maxDCG > 0 {
			rankOf := scoreRanks(scores[start:end])
			for i := start; i < end; i++ {
				for j := start; j < end; j++ {
					if g.Relevance[i] <= g.Relevance[j] {
						continue
					}
					rho := 1 / (1 + math.Exp(scores[i]-scores[j]))
					delta := swapDeltaNDCG(g.Relevance[i], g.Relevance[j],
						rankOf[i-start], rankOf[j-start], maxDCG)
					lambdas[i] += rho * delta
					lambdas[j] -= rho * delta
				}
			}
		}
		start = end
	}

	return lambdas
}

// scoreRanks returns the 1-based rank of each item when sorted by
// descending score, ties broken by original order.
func scoreRanks(scores []float64) []int {
	order := make([]int, len(scores))
	for i := range order {
		order[i] = i
	}
	sort.SliceStable(order, func(a, b int) bool {
		return scores[order[a]] > scores[order[b]]
	})
	ranks := make([]int, len(scores))
	for pos, i := range order {
		ranks[i] = pos + 1
	}
	return ranks
}

// swapDeltaNDCG is the absolute NDCG change from swapping items at
// the two ranks, using linear gain and logarithmic discount.
func swapDeltaNDCG(relHigh, relLow float64, rankHigh, rankLow int, maxDCG float64) float64 {
	dHigh := 1 / math.Log2(float64(rankHigh)+1)
	dLow := 1 / math.Log2(float64(rankLow)+1)
	return math.Abs((relHigh - relLow) * (dHigh - dLow) / maxDCG)
}

func idealDCG(rel []float64) float64 {
	sorted := append([]float64(nil), rel...)
	sort.Sort(sort.Reverse(sort.Float64Slice(sorted)))
	var dcg float64
	for i, r := range sorted {
		dcg += r / math.Log2(float64(i)+2)
	}
	return dcg
}

// meanNDCG scores held-out groups with the current ensemble.
func (c *RankerCore) meanNDCG(g *GroupedData) float64 {
	var sum float64
	var counted int

	start := 0
	for _, size := range g.GroupSizes {
		end := start + size
		maxDCG := idealDCG(g.Relevance[start:end])
		if maxDCG > 0 {
			scores := make([]float64, size)
			for i := start; i < end; i++ {
				scores[i-start] = c.rawScore(g.X[i])
			}
			ranks := scoreRanks(scores)
			var dcg float64
			for i := start; i < end; i++ {
				dcg += g.Relevance[i] / math.Log2(float64(ranks[i-start])+1)
			}
			sum += dcg / maxDCG
			counted++
		}
		start = end
	}

	if counted == 0 {
		return 0
	}
	return sum / float64(counted)
}
