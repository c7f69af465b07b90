package training

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// Evaluate computes MAE, RMSE and R² of predictions against the
// held-out targets. R² is the coefficient of determination and may be
// negative for a model worse than predicting the mean; it is never
// clamped.
func Evaluate(predicted, actual []float64) (mae, rmse, r2 float64) {
	n := float64(len(actual))
	var absSum, sqSum float64
	for i := range actual {
		diff := actual[i] - predicted[i]
		absSum += math.Abs(diff)
		sqSum += diff * diff
	}
	mae = absSum / n
	rmse = math.Sqrt(sqSum / n)
	r2 = stat.RSquaredFrom(predicted, actual, nil)
	return mae, rmse, r2
}
