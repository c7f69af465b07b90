package regress

import (
	"encoding/gob"
	"math"
	"math/rand"
	"sort"
)

func init() {
	gob.Register(&GradientBoost{})
	gob.Register(&RandomForest{})
	gob.Register(&ExtraTrees{})
	gob.Register(&AdaBoostR2{})
}

// GradientBoost fits shallow CART trees to the running residual of a
// squared loss. RowSubsample and FeatureSubsample below 1.0 give the
// stochastic profiles of the roster.
type GradientBoost struct {
	NEstimators      int
	LearningRate     float64
	MaxDepth         int
	RowSubsample     float64
	FeatureSubsample float64
	Seed             int64

	BasePrediction float64
	Trees          []*TreeNode
}

func NewGradientBoost(nEstimators int, learningRate float64, maxDepth int, seed int64) *GradientBoost {
	return &GradientBoost{
		NEstimators:      nEstimators,
		LearningRate:     learningRate,
		MaxDepth:         maxDepth,
		RowSubsample:     1.0,
		FeatureSubsample: 1.0,
		Seed:             seed,
	}
}

func (g *GradientBoost) Fit(X [][]float64, y []float64) error {
	if err := validateInput(X, y); err != nil {
		return err
	}
	rng := rand.New(rand.NewSource(g.Seed))
	n := len(X)
	nFeatures := len(X[0])

	var sum float64
	for _, v := range y {
		sum += v
	}
	g.BasePrediction = sum / float64(n)

	pred := make([]float64, n)
	residual := make([]float64, n)
	for i := range pred {
		pred[i] = g.BasePrediction
	}

	maxFeatures := 0
	if g.FeatureSubsample > 0 && g.FeatureSubsample < 1 {
		maxFeatures = int(math.Max(1, g.FeatureSubsample*float64(nFeatures)))
	}

	g.Trees = make([]*TreeNode, 0, g.NEstimators)
	for t := 0; t < g.NEstimators; t++ {
		for i := range residual {
			residual[i] = y[i] - pred[i]
		}

		idx := g.sampleRows(n, rng)
		cfg := treeConfig{
			maxDepth:        g.MaxDepth,
			minSamplesSplit: 2,
			maxFeatures:     maxFeatures,
			rng:             rng,
		}
		tree := buildTree(X, residual, idx, 0, cfg)
		g.Trees = append(g.Trees, tree)

		for i := range pred {
			pred[i] += g.LearningRate * tree.predict(X[i])
		}
	}
	return nil
}

func (g *GradientBoost) sampleRows(n int, rng *rand.Rand) []int {
	if g.RowSubsample <= 0 || g.RowSubsample >= 1 {
		idx := make([]int, n)
		for i := range idx {
			idx[i] = i
		}
		return idx
	}
	k := int(math.Max(1, g.RowSubsample*float64(n)))
	return rng.Perm(n)[:k]
}

func (g *GradientBoost) Predict(x []float64) float64 {
	pred := g.BasePrediction
	for _, tree := range g.Trees {
		pred += g.LearningRate * tree.predict(x)
	}
	return pred
}

// AdaBoostR2 is the AdaBoost.R2 regressor: each round fits a tree on a
// weight-resampled training set, then reweights rows by their relative
// absolute error. Prediction is the weighted median of the rounds.
type AdaBoostR2 struct {
	NEstimators  int
	LearningRate float64
	MaxDepth     int
	Seed         int64

	Trees       []*TreeNode
	TreeWeights []float64
}

func NewAdaBoostR2(nEstimators int, learningRate float64, maxDepth int, seed int64) *AdaBoostR2 {
	return &AdaBoostR2{
		NEstimators:  nEstimators,
		LearningRate: learningRate,
		MaxDepth:     maxDepth,
		Seed:         seed,
	}
}

func (a *AdaBoostR2) Fit(X [][]float64, y []float64) error {
	if err := validateInput(X, y); err != nil {
		return err
	}
	rng := rand.New(rand.NewSource(a.Seed))
	n := len(X)

	weights := make([]float64, n)
	for i := range weights {
		weights[i] = 1.0 / float64(n)
	}

	a.Trees = nil
	a.TreeWeights = nil
	for t := 0; t < a.NEstimators; t++ {
		idx := sampleByWeight(weights, n, rng)
		cfg := treeConfig{
			maxDepth:        a.MaxDepth,
			minSamplesSplit: 2,
			rng:             rng,
		}
		tree := buildTree(X, y, idx, 0, cfg)

		// Relative absolute error per row
		maxErr := 0.0
		errs := make([]float64, n)
		for i := range errs {
			errs[i] = math.Abs(y[i] - tree.predict(X[i]))
			if errs[i] > maxErr {
				maxErr = errs[i]
			}
		}
		if maxErr == 0 {
			// Perfect fit; keep the tree with full confidence and stop
			a.Trees = append(a.Trees, tree)
			a.TreeWeights = append(a.TreeWeights, 1)
			break
		}

		var avgLoss float64
		for i := range errs {
			avgLoss += weights[i] * (errs[i] / maxErr)
		}
		if avgLoss >= 0.5 {
			if len(a.Trees) == 0 {
				a.Trees = append(a.Trees, tree)
				a.TreeWeights = append(a.TreeWeights, 1)
			}
			break
		}

		beta := avgLoss / (1 - avgLoss)
		a.Trees = append(a.Trees, tree)
		a.TreeWeights = append(a.TreeWeights, a.LearningRate*math.Log(1/beta))

		var total float64
		for i := range weights {
			weights[i] *= math.Pow(beta, a.LearningRate*(1-errs[i]/maxErr))
			total += weights[i]
		}
		for i := range weights {
			weights[i] /= total
		}
	}
	return nil
}

func sampleByWeight(weights []float64, n int, rng *rand.Rand) []int {
	cumulative := make([]float64, n)
	var running float64
	for i, w := range weights {
		running += w
		cumulative[i] = running
	}
	idx := make([]int, n)
	for i := range idx {
		r := rng.Float64() * running
		idx[i] = sort.SearchFloat64s(cumulative, r)
		if idx[i] >= n {
			idx[i] = n - 1
		}
	}
	return idx
}

// Predict returns the weighted median of the per-round predictions.
func (a *AdaBoostR2) Predict(x []float64) float64 {
	type weighted struct {
		pred   float64
		weight float64
	}
	preds := make([]weighted, len(a.Trees))
	var total float64
	for i, tree := range a.Trees {
		preds[i] = weighted{pred: tree.predict(x), weight: a.TreeWeights[i]}
		total += a.TreeWeights[i]
	}
	sort.Slice(preds, func(i, j int) bool { return preds[i].pred < preds[j].pred })

	var running float64
	for _, p := range preds {
		running += p.weight
		if running >= total/2 {
			return p.pred
		}
	}
	return preds[len(preds)-1].pred
}
