package training

import (
	"encoding/csv"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"

	"gharsense/internal/models"
	"gharsense/internal/regress"
)

// ModelFitError reports a base learner that failed to fit. Any fit
// failure is fatal to the whole run; a partial ranking is not a
// well-defined state.
type ModelFitError struct {
	Model string
	Err   error
}

func (e *ModelFitError) Error() string {
	return fmt.Sprintf("model %s failed to fit: %v", e.Model, e.Err)
}

func (e *ModelFitError) Unwrap() error { return e.Err }

// EncoderFileName is the persisted encoder bundle, written next to the
// model artifacts.
const EncoderFileName = "label_encoders.json"

// BestModelFileName is the convenience copy of the top-ranked artifact.
const BestModelFileName = "best_model.gob"

// ReportFileName is the tabular model comparison.
const ReportFileName = "model_comparison.csv"

// gradBoostFamily names the three gradient-boosting profiles the voting
// ensemble averages.
var gradBoostFamily = []string{"GradBoostA", "GradBoostB", "GradBoostC"}

// Trainer runs the training and selection stage.
type Trainer struct {
	testFraction float64
	seed         int64
	logger       *logrus.Logger
}

func NewTrainer(testFraction float64, seed int64, logger *logrus.Logger) *Trainer {
	if testFraction <= 0 || testFraction >= 1 {
		testFraction = 0.2
	}
	return &Trainer{
		testFraction: testFraction,
		seed:         seed,
		logger:       logger,
	}
}

// TrainResult is the ranked output of one training run.
type TrainResult struct {
	Ranked    []*Artifact
	TrainRows int
	TestRows  int
}

// Best returns the top-ranked artifact.
func (r *TrainResult) Best() *Artifact {
	return r.Ranked[0]
}

// Report returns the comparison rows in rank order.
func (r *TrainResult) Report() []models.ModelScore {
	report := make([]models.ModelScore, len(r.Ranked))
	for i, a := range r.Ranked {
		report[i] = a.Score
	}
	return report
}

// roster returns the seven base learners with their fixed
// hyperparameter profiles, in training order. Training order is also
// the ranking tiebreak, so the roster order is part of the contract.
func (t *Trainer) roster() []struct {
	name  string
	model regress.Regressor
} {
	return []struct {
		name  string
		model regress.Regressor
	}{
		{"GradBoostA", regress.NewGradientBoost(500, 0.05, 7, t.seed)},
		{"GradBoostB", func() regress.Regressor {
			g := regress.NewGradientBoost(500, 0.05, 7, t.seed)
			g.RowSubsample = 0.8
			return g
		}()},
		{"GradBoostC", func() regress.Regressor {
			g := regress.NewGradientBoost(500, 0.05, 7, t.seed)
			g.FeatureSubsample = 0.8
			return g
		}()},
		{"RandomForest", regress.NewRandomForest(300, 15, t.seed)},
		{"ExtraTrees", regress.NewExtraTrees(300, 15, t.seed)},
		{"GradientBoosting", regress.NewGradientBoost(200, 0.05, 7, t.seed)},
		{"AdaBoost", regress.NewAdaBoostR2(100, 0.5, 4, t.seed)},
	}
}

// TrainAndSelect splits the encoded matrix, fits the seven base
// learners, builds the two ensembles over test-set predictions, scores
// all nine on the held-out split and ranks them by R² descending.
func (t *Trainer) TrainAndSelect(matrix [][]float64, targets []float64) (*TrainResult, error) {
	if err := validateLeakageFree(); err != nil {
		return nil, err
	}

	trainIdx, testIdx, err := t.split(len(matrix))
	if err != nil {
		return nil, err
	}

	XTrain, yTrain := subset(matrix, targets, trainIdx)
	XTest, yTest := subset(matrix, targets, testIdx)
	t.logger.WithFields(logrus.Fields{
		"train_rows": len(XTrain),
		"test_rows":  len(XTest),
	}).Info("Split encoded matrix")

	var artifacts []*Artifact
	testPreds := make(map[string][]float64)

	for _, entry := range t.roster() {
		t.logger.WithField("model", entry.name).Info("Fitting base learner")
		if err := entry.model.Fit(XTrain, yTrain); err != nil {
			return nil, &ModelFitError{Model: entry.name, Err: err}
		}

		preds := make([]float64, len(XTest))
		for i := range XTest {
			preds[i] = entry.model.Predict(XTest[i])
		}
		testPreds[entry.name] = preds

		mae, rmse, r2 := Evaluate(preds, yTest)
		artifacts = append(artifacts, &Artifact{
			Name:  entry.name,
			Kind:  KindBase,
			Base:  entry.model,
			Score: models.ModelScore{Model: entry.name, MAE: mae, RMSE: rmse, R2: r2},
		})
		t.logger.WithFields(logrus.Fields{
			"model": entry.name,
			"r2":    r2,
			"rmse":  rmse,
			"mae":   mae,
		}).Info("Scored base learner")
	}

	artifacts = append(artifacts, t.votingEnsemble(artifacts, testPreds, yTest))
	artifacts = append(artifacts, t.weightedEnsemble(artifacts, testPreds, yTest))

	// Rank by R² descending; the stable sort keeps training order as
	// the tiebreak.
	sort.SliceStable(artifacts, func(i, j int) bool {
		return artifacts[i].Score.R2 > artifacts[j].Score.R2
	})
	for rank, a := range artifacts {
		a.Rank = rank + 1
	}

	t.logger.WithFields(logrus.Fields{
		"best_model": artifacts[0].Name,
		"best_r2":    artifacts[0].Score.R2,
	}).Info("Ranked models")

	return &TrainResult{
		Ranked:    artifacts,
		TrainRows: len(XTrain),
		TestRows:  len(XTest),
	}, nil
}

// validateLeakageFree re-checks the canonical feature list before any
// fitting happens.
func validateLeakageFree() error {
	for _, name := range models.TrainingFeatures {
		lower := strings.ToLower(name)
		if strings.Contains(lower, "price") || strings.Contains(lower, "cost") {
			return fmt.Errorf("training feature %q leaks the target", name)
		}
	}
	return nil
}

// split permutes row indexes from the fixed seed and carves off the
// test fraction. Deterministic given the same seed and row order.
func (t *Trainer) split(n int) (trainIdx, testIdx []int, err error) {
	nTest := int(float64(n) * t.testFraction)
	if nTest < 1 || n-nTest < 2 {
		return nil, nil, fmt.Errorf("not enough rows to split: %d rows at test fraction %.2f", n, t.testFraction)
	}
	perm := rand.New(rand.NewSource(t.seed)).Perm(n)
	return perm[nTest:], perm[:nTest], nil
}

func subset(matrix [][]float64, targets []float64, idx []int) ([][]float64, []float64) {
	X := make([][]float64, len(idx))
	y := make([]float64, len(idx))
	for i, row := range idx {
		X[i] = matrix[row]
		y[i] = targets[row]
	}
	return X, y
}

// votingEnsemble averages the three gradient-boosting-family test
// predictions with equal weight.
func (t *Trainer) votingEnsemble(base []*Artifact, testPreds map[string][]float64, yTest []float64) *Artifact {
	preds := make([]float64, len(yTest))
	for _, name := range gradBoostFamily {
		for i, p := range testPreds[name] {
			preds[i] += p / float64(len(gradBoostFamily))
		}
	}
	mae, rmse, r2 := Evaluate(preds, yTest)

	ensemble := &Artifact{
		Name:       "VotingEnsemble",
		Kind:       KindEnsemble,
		Components: append([]string(nil), gradBoostFamily...),
		Score:      models.ModelScore{Model: "VotingEnsemble", MAE: mae, RMSE: rmse, R2: r2},
	}
	ensemble.mustResolve(base)
	return ensemble
}

// weightedEnsemble combines the top-3 base learners by R², weighted in
// proportion to max(R², 0) and normalized to sum 1. Equal weights are
// the fallback when no top-3 learner has positive R², which keeps the
// weights non-negative in every case.
func (t *Trainer) weightedEnsemble(base []*Artifact, testPreds map[string][]float64, yTest []float64) *Artifact {
	ranked := make([]*Artifact, 0, len(base))
	for _, a := range base {
		if a.Kind == KindBase {
			ranked = append(ranked, a)
		}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Score.R2 > ranked[j].Score.R2
	})
	top := ranked[:3]

	weights := make([]float64, len(top))
	var total float64
	for i, a := range top {
		if a.Score.R2 > 0 {
			weights[i] = a.Score.R2
		}
		total += weights[i]
	}
	if total == 0 {
		for i := range weights {
			weights[i] = 1.0 / float64(len(weights))
		}
	} else {
		for i := range weights {
			weights[i] /= total
		}
	}

	preds := make([]float64, len(yTest))
	components := make([]string, len(top))
	for i, a := range top {
		components[i] = a.Name
		for j, p := range testPreds[a.Name] {
			preds[j] += weights[i] * p
		}
	}
	mae, rmse, r2 := Evaluate(preds, yTest)

	ensemble := &Artifact{
		Name:       "WeightedEnsemble",
		Kind:       KindEnsemble,
		Components: components,
		Weights:    weights,
		Score:      models.ModelScore{Model: "WeightedEnsemble", MAE: mae, RMSE: rmse, R2: r2},
	}
	ensemble.mustResolve(base)
	return ensemble
}

// mustResolve wires an ensemble built in-process; components are always
// present here.
func (a *Artifact) mustResolve(base []*Artifact) {
	byName := make(map[string]*Artifact, len(base))
	for _, candidate := range base {
		byName[candidate.Name] = candidate
	}
	if err := a.Resolve(byName); err != nil {
		panic(err)
	}
}

// Persist writes every ranked artifact, the best-model copy and the
// comparison report. Encoders are persisted by the caller alongside.
func (t *Trainer) Persist(result *TrainResult, modelsDir, reportsDir string) error {
	if err := os.MkdirAll(modelsDir, 0755); err != nil {
		return fmt.Errorf("failed to create models dir: %w", err)
	}
	if err := os.MkdirAll(reportsDir, 0755); err != nil {
		return fmt.Errorf("failed to create reports dir: %w", err)
	}

	for _, a := range result.Ranked {
		path := filepath.Join(modelsDir, ArtifactFileName(a.Rank, a.Name))
		if err := a.Save(path); err != nil {
			return err
		}
		t.logger.WithFields(logrus.Fields{
			"rank": a.Rank,
			"file": path,
		}).Info("Persisted model artifact")
	}

	if err := result.Best().Save(filepath.Join(modelsDir, BestModelFileName)); err != nil {
		return err
	}

	return t.writeReport(result, filepath.Join(reportsDir, ReportFileName))
}

// ArtifactFileName builds the per-rank artifact file name.
func ArtifactFileName(rank int, name string) string {
	return fmt.Sprintf("model_%d_%s.gob", rank, strings.ToLower(name))
}

func (t *Trainer) writeReport(result *TrainResult, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create report: %w", err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write([]string{"Model", "R2", "RMSE", "MAE"}); err != nil {
		return err
	}
	for _, score := range result.Report() {
		row := []string{
			score.Model,
			strconv.FormatFloat(score.R2, 'f', 4, 64),
			strconv.FormatFloat(score.RMSE, 'f', 2, 64),
			strconv.FormatFloat(score.MAE, 'f', 2, 64),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
