package forecast

import (
	"math/rand/v2"
	"sort"
)

type treeConfig struct {
	maxDepth        int // 0 means unbounded
	minSamplesSplit int
	minSamplesLeaf  int
	maxFeatures     int // 0 means all
}

type treeNode struct {
	feature   int
	threshold float64
	value     float64
	left      *treeNode
	right     *treeNode
}

// regressionTree is a CART tree split on squared-error reduction.
type regressionTree struct {
	cfg  treeConfig
	rng  *rand.Rand
	root *treeNode
}

func newRegressionTree(cfg treeConfig, rng *rand.Rand) *regressionTree {
	if cfg.minSamplesSplit < 2 {
		cfg.minSamplesSplit = 2
	}
	if cfg.minSamplesLeaf < 1 {
		cfg.minSamplesLeaf = 1
	}
	return &regressionTree{cfg: cfg, rng: rng}
}

// fit grows the tree over the samples listed in idx, which may repeat.
func (t *regressionTree) fit(X [][]float64, y []float64, idx []int) {
	t.root = t.grow(X, y, idx, 0)
}

func (t *regressionTree) predict(x []float64) float64 {
	n := t.root
	for n.left != nil {
		if x[n.feature] <= n.threshold {
			n = n.left
		} else {
			n = n.right
		}
	}
	return n.value
}

func (t *regressionTree) grow(X [][]float64, y []float64, idx []int, depth int) *treeNode {
	node := &treeNode{value: meanAt(y, idx)}
	if len(idx) < t.cfg.minSamplesSplit || (t.cfg.maxDepth > 0 && depth >= t.cfg.maxDepth) {
		return node
	}

	feature, threshold, ok := t.bestSplit(X, y, idx)
	if !ok {
		return node
	}

	var left, right []int
	for _, i := range idx {
		if X[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	node.feature = feature
	node.threshold = threshold
	node.left = t.grow(X, y, left, depth+1)
	node.right = t.grow(X, y, right, depth+1)
	return node
}

func (t *regressionTree) bestSplit(X [][]float64, y []float64, idx []int) (int, float64, bool) {
	n := float64(len(idx))
	var sum, sumSq float64
	for _, i := range idx {
		sum += y[i]
		sumSq += y[i] * y[i]
	}
	best := sumSq - sum*sum/n
	if best <= 1e-12 {
		return 0, 0, false
	}

	var (
		bestFeature   int
		bestThreshold float64
		found         bool
	)
	sorted := make([]int, len(idx))
	for _, f := range t.candidateFeatures(len(X[idx[0]])) {
		copy(sorted, idx)
		sort.SliceStable(sorted, func(a, b int) bool {
			return X[sorted[a]][f] < X[sorted[b]][f]
		})

		var leftSum, leftSq float64
		for k := 0; k < len(sorted)-1; k++ {
			v := y[sorted[k]]
			leftSum += v
			leftSq += v * v

			nl, nr := k+1, len(sorted)-k-1
			if nl < t.cfg.minSamplesLeaf || nr < t.cfg.minSamplesLeaf {
				continue
			}
			x0, x1 := X[sorted[k]][f], X[sorted[k+1]][f]
			if x0 == x1 {
				continue
			}

			rightSum, rightSq := sum-leftSum, sumSq-leftSq
			sse := (leftSq - leftSum*leftSum/float64(nl)) + (rightSq - rightSum*rightSum/float64(nr))
			if sse < best-1e-12 {
				best = sse
				bestFeature = f
				bestThreshold = x0 + (x1-x0)/2
				if bestThreshold >= x1 {
					bestThreshold = x0
				}
				found = true
			}
		}
	}
	return bestFeature, bestThreshold, found
}

func (t *regressionTree) candidateFeatures(n int) []int {
	if t.cfg.maxFeatures <= 0 || t.cfg.maxFeatures >= n || t.rng == nil {
		all := make([]int, n)
		for i := range all {
			all[i] = i
		}
		return all
	}
	return t.rng.Perm(n)[:t.cfg.maxFeatures]
}

func meanAt(y []float64, idx []int) float64 {
	if len(idx) == 0 {
		return 0
	}
	var s float64
	for _, i := range idx {
		s += y[i]
	}
	return s / float64(len(idx))
}
