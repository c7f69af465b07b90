package regress

import (
	"math"
	"math/rand"
)

// RandomForest bags bootstrap-sampled CART trees, each split drawn from
// a sqrt-sized feature subset.
type RandomForest struct {
	NEstimators     int
	MaxDepth        int
	MinSamplesSplit int
	Seed            int64
	Trees           []*TreeNode
}

func NewRandomForest(nEstimators, maxDepth int, seed int64) *RandomForest {
	return &RandomForest{
		NEstimators:     nEstimators,
		MaxDepth:        maxDepth,
		MinSamplesSplit: 2,
		Seed:            seed,
	}
}

func (f *RandomForest) Fit(X [][]float64, y []float64) error {
	if err := validateInput(X, y); err != nil {
		return err
	}
	rng := rand.New(rand.NewSource(f.Seed))
	n := len(X)
	maxFeatures := int(math.Max(1, math.Sqrt(float64(len(X[0])))))

	f.Trees = make([]*TreeNode, 0, f.NEstimators)
	for t := 0; t < f.NEstimators; t++ {
		idx := make([]int, n)
		for i := range idx {
			idx[i] = rng.Intn(n)
		}
		cfg := treeConfig{
			maxDepth:        f.MaxDepth,
			minSamplesSplit: f.MinSamplesSplit,
			maxFeatures:     maxFeatures,
			rng:             rng,
		}
		f.Trees = append(f.Trees, buildTree(X, y, idx, 0, cfg))
	}
	return nil
}

func (f *RandomForest) Predict(x []float64) float64 {
	var sum float64
	for _, tree := range f.Trees {
		sum += tree.predict(x)
	}
	return sum / float64(len(f.Trees))
}

// ExtraTrees bags fully-sampled trees whose split thresholds are drawn
// uniformly at random rather than searched.
type ExtraTrees struct {
	NEstimators     int
	MaxDepth        int
	MinSamplesSplit int
	Seed            int64
	Trees           []*TreeNode
}

func NewExtraTrees(nEstimators, maxDepth int, seed int64) *ExtraTrees {
	return &ExtraTrees{
		NEstimators:     nEstimators,
		MaxDepth:        maxDepth,
		MinSamplesSplit: 2,
		Seed:            seed,
	}
}

func (f *ExtraTrees) Fit(X [][]float64, y []float64) error {
	if err := validateInput(X, y); err != nil {
		return err
	}
	rng := rand.New(rand.NewSource(f.Seed))
	idx := make([]int, len(X))
	for i := range idx {
		idx[i] = i
	}

	f.Trees = make([]*TreeNode, 0, f.NEstimators)
	for t := 0; t < f.NEstimators; t++ {
		cfg := treeConfig{
			maxDepth:        f.MaxDepth,
			minSamplesSplit: f.MinSamplesSplit,
			randomThreshold: true,
			rng:             rng,
		}
		f.Trees = append(f.Trees, buildTree(X, y, idx, 0, cfg))
	}
	return nil
}

func (f *ExtraTrees) Predict(x []float64) float64 {
	var sum float64
	for _, tree := range f.Trees {
		sum += tree.predict(x)
	}
	return sum / float64(len(f.Trees))
}
