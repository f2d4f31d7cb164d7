package ml

import (
	"math"
	"math/rand"
	"sort"
)

// TreeNode is a single node in a regression tree. Leaf nodes have
// Left and Right set to -1. Value holds the mean target of the
// training samples that reached the node, which doubles as the leaf
// prediction and as the baseline for additive path contributions.
type TreeNode struct {
	Feature   int
	Threshold float64
	Left      int
	Right     int
	Value     float64
	Gain      float64
}

// Tree is a flat-array regression tree grown by variance reduction.
type Tree struct {
	Nodes []TreeNode
}

type treeParams struct {
	maxDepth       int
	minSamplesLeaf int
	featureFrac    float64
	rng            *rand.Rand
}

type splitResult struct {
	feature   int
	threshold float64
	gain      float64
	leftIdx   []int
	rightIdx  []int
}

func growTree(x [][]float64, y []float64, idx []int, p treeParams) *Tree {
	t := &Tree{}
	t.grow(x, y, idx, 0, p)
	return t
}

func (t *Tree) grow(x [][]float64, y []float64, idx []int, depth int, p treeParams) int {
	node := TreeNode{
		Left:  -1,
		Right: -1,
		Value: meanAt(y, idx),
	}
	pos := len(t.Nodes)
	t.Nodes = append(t.Nodes, node)

	if depth >= p.maxDepth || len(idx) < 2*p.minSamplesLeaf {
		return pos
	}

	best := t.bestSplit(x, y, idx, p)
	if best == nil {
		return pos
	}

	t.Nodes[pos].Feature = best.feature
	t.Nodes[pos].Threshold = best.threshold
	t.Nodes[pos].Gain = best.gain
	t.Nodes[pos].Left = t.grow(x, y, best.leftIdx, depth+1, p)
	t.Nodes[pos].Right = t.grow(x, y, best.rightIdx, depth+1, p)
	return pos
}

// bestSplit scans candidate features for the threshold that maximizes
// weighted variance reduction. Candidate features are subsampled when
// featureFrac < 1, which is what differentiates forest trees from
// boosted trees.
func (t *Tree) bestSplit(x [][]float64, y []float64, idx []int, p treeParams) *splitResult {
	nFeatures := len(x[idx[0]])
	candidates := make([]int, nFeatures)
	for j := range candidates {
		candidates[j] = j
	}
	if p.featureFrac > 0 && p.featureFrac < 1 {
		k := int(math.Ceil(p.featureFrac * float64(nFeatures)))
		if k < 1 {
			k = 1
		}
		p.rng.Shuffle(nFeatures, func(a, b int) {
			candidates[a], candidates[b] = candidates[b], candidates[a]
		})
		candidates = candidates[:k]
	}

	total := float64(len(idx))
	parentSSE := sumSquaredError(y, idx)

	var best *splitResult
	sorted := make([]int, len(idx))

	for _, f := range candidates {
		copy(sorted, idx)
		sort.SliceStable(sorted, func(a, b int) bool {
			return x[sorted[a]][f] < x[sorted[b]][f]
		})

		// Prefix sums over the sorted order let every threshold be
		// evaluated in a single pass.
		var leftSum, leftSq float64
		rightSum, rightSq := sumAndSquares(y, sorted)

		for i := 0; i < len(sorted)-1; i++ {
			v := y[sorted[i]]
			leftSum += v
			leftSq += v * v
			rightSum -= v
			rightSq -= v * v

			if x[sorted[i]][f] == x[sorted[i+1]][f] {
				continue
			}
			nl := float64(i + 1)
			nr := total - nl
			if int(nl) < p.minSamplesLeaf || int(nr) < p.minSamplesLeaf {
				continue
			}

			sse := (leftSq - leftSum*leftSum/nl) + (rightSq - rightSum*rightSum/nr)
			gain := parentSSE - sse
			if best == nil || gain > best.gain {
				threshold := (x[sorted[i]][f] + x[sorted[i+1]][f]) / 2
				best = &splitResult{feature: f, threshold: threshold, gain: gain}
				best.leftIdx = append(best.leftIdx[:0], sorted[:i+1]...)
				best.rightIdx = append(best.rightIdx[:0], sorted[i+1:]...)
			}
		}
	}

	if best != nil && best.gain <= 1e-12 {
		return nil
	}
	if best != nil {
		best.leftIdx = append([]int(nil), best.leftIdx...)
		best.rightIdx = append([]int(nil), best.rightIdx...)
	}
	return best
}

// PredictRow walks the tree from the root to a leaf.
func (t *Tree) PredictRow(row []float64) float64 {
	node := 0
	for t.Nodes[node].Left >= 0 {
		if row[t.Nodes[node].Feature] <= t.Nodes[node].Threshold {
			node = t.Nodes[node].Left
		} else {
			node = t.Nodes[node].Right
		}
	}
	return t.Nodes[node].Value
}

// Contributions walks the decision path and attributes the change in
// node mean at every split to the feature that caused the split. The
// returned slice has one entry per feature; the root mean is the bias
// term and is returned separately.
func (t *Tree) Contributions(row []float64, nFeatures int) (bias float64, contrib []float64) {
	contrib = make([]float64, nFeatures)
	node := 0
	bias = t.Nodes[0].Value
	for t.Nodes[node].Left >= 0 {
		var next int
		if row[t.Nodes[node].Feature] <= t.Nodes[node].Threshold {
			next = t.Nodes[node].Left
		} else {
			next = t.Nodes[node].Right
		}
		contrib[t.Nodes[node].Feature] += t.Nodes[next].Value - t.Nodes[node].Value
		node = next
	}
	return bias, contrib
}

// accumulateGain adds each split's variance-reduction gain to the
// per-feature totals used for global importance.
func (t *Tree) accumulateGain(totals []float64) {
	for _, n := range t.Nodes {
		if n.Left >= 0 {
			totals[n.Feature] += n.Gain
		}
	}
}

func meanAt(y []float64, idx []int) float64 {
	if len(idx) == 0 {
		return 0
	}
	var sum float64
	for _, i := range idx {
		sum += y[i]
	}
	return sum / float64(len(idx))
}

func sumSquaredError(y []float64, idx []int) float64 {
	m := meanAt(y, idx)
	var sse float64
	for _, i := range idx {
		d := y[i] - m
		sse += d * d
	}
	return sse
}

func sumAndSquares(y []float64, idx []int) (sum, sq float64) {
	for _, i := range idx {
		sum += y[i]
		sq += y[i] * y[i]
	}
	return sum, sq
}

// normalizeImportance rescales gain totals so they sum to 1, leaving
// an all-zero vector untouched when no split ever fired.
func normalizeImportance(totals []float64) []float64 {
	var sum float64
	for _, v := range totals {
		sum += v
	}
	if sum > 0 {
		for j := range totals {
			totals[j] /= sum
		}
	}
	return totals
}
