// Package regress implements the tree-based regressors the training
// stage fits: three gradient-boosting profiles, bagged forests and an
// adaptive booster, all built on a shared CART core. Every learner is
// deterministic given its seed and gob-serializable.
package regress

import (
	"errors"
	"math"
	"math/rand"
)

// ErrNoTrainingData is returned when Fit is called on an empty matrix.
var ErrNoTrainingData = errors.New("no training data")

// Regressor is one trainable price model.
type Regressor interface {
	Fit(X [][]float64, y []float64) error
	Predict(x []float64) float64
}

// TreeNode is one node of a regression tree. Leaves carry the mean
// target of their samples; internal nodes split on Feature < Threshold.
type TreeNode struct {
	Feature   int
	Threshold float64
	Left      *TreeNode
	Right     *TreeNode
	Value     float64
}

func (n *TreeNode) predict(x []float64) float64 {
	node := n
	for node.Left != nil && node.Right != nil {
		if x[node.Feature] < node.Threshold {
			node = node.Left
		} else {
			node = node.Right
		}
	}
	return node.Value
}

// treeConfig controls a single tree induction.
type treeConfig struct {
	maxDepth        int
	minSamplesSplit int
	// number of features considered per split; 0 means all
	maxFeatures int
	// pick one uniform threshold per feature instead of searching,
	// extra-trees style
	randomThreshold bool
	rng             *rand.Rand
}

// buildTree grows a CART regression tree over the rows in idx.
func buildTree(X [][]float64, y []float64, idx []int, depth int, cfg treeConfig) *TreeNode {
	node := &TreeNode{Value: meanAt(y, idx)}
	if depth >= cfg.maxDepth || len(idx) < cfg.minSamplesSplit {
		return node
	}

	feature, threshold, ok := bestSplit(X, y, idx, cfg)
	if !ok {
		return node
	}

	var left, right []int
	for _, i := range idx {
		if X[i][feature] < threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}
	if len(left) == 0 || len(right) == 0 {
		return node
	}

	node.Feature = feature
	node.Threshold = threshold
	node.Left = buildTree(X, y, left, depth+1, cfg)
	node.Right = buildTree(X, y, right, depth+1, cfg)
	return node
}

// bestSplit searches the candidate features for the split with the
// lowest total squared error.
func bestSplit(X [][]float64, y []float64, idx []int, cfg treeConfig) (int, float64, bool) {
	nFeatures := len(X[idx[0]])
	features := candidateFeatures(nFeatures, cfg)

	bestSSE := math.Inf(1)
	bestFeature, bestThreshold := -1, 0.0

	for _, f := range features {
		var threshold float64
		var sse float64
		var ok bool
		if cfg.randomThreshold {
			threshold, sse, ok = randomSplit(X, y, idx, f, cfg.rng)
		} else {
			threshold, sse, ok = exactSplit(X, y, idx, f)
		}
		if ok && sse < bestSSE {
			bestSSE = sse
			bestFeature = f
			bestThreshold = threshold
		}
	}
	return bestFeature, bestThreshold, bestFeature >= 0
}

func candidateFeatures(nFeatures int, cfg treeConfig) []int {
	if cfg.maxFeatures <= 0 || cfg.maxFeatures >= nFeatures {
		features := make([]int, nFeatures)
		for i := range features {
			features[i] = i
		}
		return features
	}
	return cfg.rng.Perm(nFeatures)[:cfg.maxFeatures]
}

// exactSplit scans every boundary between adjacent sorted values of
// feature f, using prefix sums so the scan stays linear after the sort.
func exactSplit(X [][]float64, y []float64, idx []int, f int) (float64, float64, bool) {
	n := len(idx)
	order := make([]int, n)
	copy(order, idx)
	sortByFeature(X, order, f)

	prefixSum := make([]float64, n+1)
	prefixSq := make([]float64, n+1)
	for i, row := range order {
		prefixSum[i+1] = prefixSum[i] + y[row]
		prefixSq[i+1] = prefixSq[i] + y[row]*y[row]
	}

	bestSSE := math.Inf(1)
	bestThreshold := 0.0
	found := false
	for i := 1; i < n; i++ {
		lo, hi := X[order[i-1]][f], X[order[i]][f]
		if lo == hi {
			continue
		}
		leftN, rightN := float64(i), float64(n-i)
		leftSum, rightSum := prefixSum[i], prefixSum[n]-prefixSum[i]
		leftSq, rightSq := prefixSq[i], prefixSq[n]-prefixSq[i]
		sse := (leftSq - leftSum*leftSum/leftN) + (rightSq - rightSum*rightSum/rightN)
		if sse < bestSSE {
			bestSSE = sse
			bestThreshold = (lo + hi) / 2
			found = true
		}
	}
	return bestThreshold, bestSSE, found
}

// randomSplit draws a single uniform threshold between the feature's
// min and max and scores it.
func randomSplit(X [][]float64, y []float64, idx []int, f int, rng *rand.Rand) (float64, float64, bool) {
	min, max := math.Inf(1), math.Inf(-1)
	for _, i := range idx {
		v := X[i][f]
		if v < min {
			min = v
		}
		if v > max {
			max = v
		}
	}
	if min == max {
		return 0, 0, false
	}
	threshold := min + rng.Float64()*(max-min)

	var leftSum, leftSq, leftN, rightSum, rightSq, rightN float64
	for _, i := range idx {
		v := y[i]
		if X[i][f] < threshold {
			leftSum += v
			leftSq += v * v
			leftN++
		} else {
			rightSum += v
			rightSq += v * v
			rightN++
		}
	}
	if leftN == 0 || rightN == 0 {
		return 0, 0, false
	}
	sse := (leftSq - leftSum*leftSum/leftN) + (rightSq - rightSum*rightSum/rightN)
	return threshold, sse, true
}

func sortByFeature(X [][]float64, order []int, f int) {
	quicksortByFeature(X, order, f, 0, len(order)-1)
}

func quicksortByFeature(X [][]float64, order []int, f, lo, hi int) {
	for lo < hi {
		pivot := X[order[(lo+hi)/2]][f]
		i, j := lo, hi
		for i <= j {
			for X[order[i]][f] < pivot {
				i++
			}
			for X[order[j]][f] > pivot {
				j--
			}
			if i <= j {
				order[i], order[j] = order[j], order[i]
				i++
				j--
			}
		}
		if j-lo < hi-i {
			quicksortByFeature(X, order, f, lo, j)
			lo = i
		} else {
			quicksortByFeature(X, order, f, i, hi)
			hi = j
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

func validateInput(X [][]float64, y []float64) error {
	if len(X) == 0 || len(y) == 0 || len(X) != len(y) {
		return ErrNoTrainingData
	}
	return nil
}
