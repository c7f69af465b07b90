package regress

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// syntheticData builds a noisy linear target over three features so
// every learner has signal to find.
func syntheticData(n int, seed int64) ([][]float64, []float64) {
	rng := rand.New(rand.NewSource(seed))
	X := make([][]float64, n)
	y := make([]float64, n)
	for i := 0; i < n; i++ {
		a := rng.Float64() * 10
		b := rng.Float64() * 5
		c := float64(rng.Intn(4))
		X[i] = []float64{a, b, c}
		y[i] = 3*a + 2*b + 5*c + rng.NormFloat64()*0.5
	}
	return X, y
}

func testR2(model Regressor, X [][]float64, y []float64) float64 {
	var meanY float64
	for _, v := range y {
		meanY += v
	}
	meanY /= float64(len(y))

	var ssRes, ssTot float64
	for i := range X {
		pred := model.Predict(X[i])
		ssRes += (y[i] - pred) * (y[i] - pred)
		ssTot += (y[i] - meanY) * (y[i] - meanY)
	}
	return 1 - ssRes/ssTot
}

func TestLearnersFitSignal(t *testing.T) {
	X, y := syntheticData(200, 7)

	learners := map[string]Regressor{
		"GradientBoost": NewGradientBoost(100, 0.1, 4, 42),
		"RandomForest":  NewRandomForest(50, 8, 42),
		"ExtraTrees":    NewExtraTrees(50, 8, 42),
		"AdaBoostR2":    NewAdaBoostR2(30, 0.5, 4, 42),
	}

	for name, model := range learners {
		t.Run(name, func(t *testing.T) {
			require.NoError(t, model.Fit(X, y))
			r2 := testR2(model, X, y)
			assert.Greater(t, r2, 0.7, "%s should fit the training signal", name)
		})
	}
}

func TestGradientBoostSubsampledProfiles(t *testing.T) {
	X, y := syntheticData(150, 11)

	rowSub := NewGradientBoost(80, 0.1, 4, 42)
	rowSub.RowSubsample = 0.8
	featSub := NewGradientBoost(80, 0.1, 4, 42)
	featSub.FeatureSubsample = 0.8

	require.NoError(t, rowSub.Fit(X, y))
	require.NoError(t, featSub.Fit(X, y))

	assert.Greater(t, testR2(rowSub, X, y), 0.6)
	assert.Greater(t, testR2(featSub, X, y), 0.6)
}

func TestFitIsDeterministic(t *testing.T) {
	X, y := syntheticData(100, 3)
	probe := []float64{5, 2.5, 1}

	a := NewGradientBoost(50, 0.1, 4, 42)
	b := NewGradientBoost(50, 0.1, 4, 42)
	require.NoError(t, a.Fit(X, y))
	require.NoError(t, b.Fit(X, y))
	assert.Equal(t, a.Predict(probe), b.Predict(probe))

	f1 := NewRandomForest(20, 8, 42)
	f2 := NewRandomForest(20, 8, 42)
	require.NoError(t, f1.Fit(X, y))
	require.NoError(t, f2.Fit(X, y))
	assert.Equal(t, f1.Predict(probe), f2.Predict(probe))
}

func TestFitEmptyInput(t *testing.T) {
	learners := []Regressor{
		NewGradientBoost(10, 0.1, 3, 42),
		NewRandomForest(10, 5, 42),
		NewExtraTrees(10, 5, 42),
		NewAdaBoostR2(10, 0.5, 3, 42),
	}
	for _, model := range learners {
		assert.ErrorIs(t, model.Fit(nil, nil), ErrNoTrainingData)
	}
}

func TestConstantTarget(t *testing.T) {
	X := [][]float64{{1, 0, 0}, {2, 0, 0}, {3, 0, 0}, {4, 0, 0}}
	y := []float64{42, 42, 42, 42}

	model := NewGradientBoost(10, 0.1, 3, 42)
	require.NoError(t, model.Fit(X, y))
	assert.InDelta(t, 42, model.Predict([]float64{2.5, 0, 0}), 1e-9)

	ada := NewAdaBoostR2(10, 0.5, 3, 42)
	require.NoError(t, ada.Fit(X, y))
	assert.InDelta(t, 42, ada.Predict([]float64{2.5, 0, 0}), 1e-9)
}

func TestTreePredictDescendsSplits(t *testing.T) {
	tree := &TreeNode{
		Feature:   0,
		Threshold: 5,
		Left:      &TreeNode{Value: 10},
		Right:     &TreeNode{Value: 20},
	}
	assert.Equal(t, 10.0, tree.predict([]float64{4}))
	assert.Equal(t, 20.0, tree.predict([]float64{6}))
}

func TestExactSplitSeparatesClusters(t *testing.T) {
	X := [][]float64{{1}, {2}, {3}, {10}, {11}, {12}}
	y := []float64{5, 5, 5, 50, 50, 50}
	idx := []int{0, 1, 2, 3, 4, 5}

	threshold, sse, ok := exactSplit(X, y, idx, 0)
	require.True(t, ok)
	assert.InDelta(t, 6.5, threshold, 1e-9)
	assert.InDelta(t, 0, sse, 1e-9)
}

func TestMeanAt(t *testing.T) {
	y := []float64{10, 20, 30}
	assert.Equal(t, 20.0, meanAt(y, []int{0, 1, 2}))
	assert.Equal(t, 30.0, meanAt(y, []int{2}))
	assert.True(t, math.IsNaN(meanAt(y, nil)) == false)
	assert.Equal(t, 0.0, meanAt(y, nil))
}
