package inference

import (
	"math/rand"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"gharsense/config"
	"gharsense/internal/encoding"
	"gharsense/internal/features"
	"gharsense/internal/models"
	"gharsense/internal/training"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.WarnLevel)
	return logger
}

func testConfig(modelsDir string) *config.Config {
	cfg := &config.Config{}
	cfg.Pipeline.ModelsDir = modelsDir
	cfg.Pipeline.ReportsDir = modelsDir
	cfg.Pipeline.TestFraction = 0.2
	cfg.Pipeline.Seed = 42
	cfg.Pipeline.BucketWidth = 20
	return cfg
}

// syntheticTable builds the 50-row scenario: BHK 2-3, areas 600-1800,
// two localities, prices 30-90 with locality and size signal.
func syntheticTable(localities *config.Localities) []models.PropertyRecord {
	rng := rand.New(rand.NewSource(1))
	table := make([]models.PropertyRecord, 0, 50)
	for i := 0; i < 50; i++ {
		bhk := 2 + rng.Intn(2)
		area := 600 + rng.Float64()*1200
		locality := "Bopal"
		base := 55.0
		if i%2 == 1 {
			locality = "Naroda"
			base = 35.0
		}
		price := base + float64(bhk-2)*10 + area*0.01 + rng.NormFloat64()*2
		if price < 30 {
			price = 30
		}
		if price > 90 {
			price = 90
		}
		table = append(table, models.PropertyRecord{
			BHK:              bhk,
			AreaSqFt:         area,
			Locality:         locality,
			LocalityTier:     string(localities.TierFor(locality)),
			SellerType:       "Owner",
			PropertyType:     "Apartment",
			FurnishingStatus: "Semi-Furnished",
			AmenitiesCount:   rng.Intn(6),
			PriceLakhs:       price,
		})
	}
	return table
}

// trainScenario runs engineering, encoding, training and persistence
// into dir, returning the result.
func trainScenario(t *testing.T, dir string) *training.TrainResult {
	t.Helper()
	localities := config.NewLocalities()
	logger := testLogger()

	table := syntheticTable(localities)
	engineer := features.NewEngineer(localities, 20, logger)
	engineered := engineer.EngineerTable(table)

	require.NoError(t, features.ValidateNoLeakage(models.TrainingFeatures))

	encoders := encoding.FitTable(engineered, logger)
	matrix, targets := encoders.EncodeTable(engineered)

	trainer := training.NewTrainer(0.2, 42, logger)
	result, err := trainer.TrainAndSelect(matrix, targets)
	require.NoError(t, err)
	require.Len(t, result.Ranked, 9)

	require.NoError(t, trainer.Persist(result, dir, dir))
	require.NoError(t, encoders.Save(filepath.Join(dir, training.EncoderFileName)))
	return result
}

func TestEndToEndScenario(t *testing.T) {
	dir := t.TempDir()
	result := trainScenario(t, dir)

	for _, a := range result.Ranked {
		assert.LessOrEqual(t, a.Score.R2, 1.0)
	}

	predictor := NewPredictor(testConfig(dir), config.NewLocalities(), testLogger())
	prediction, err := predictor.PredictPrice(models.PropertyRecord{
		BHK:              3,
		AreaSqFt:         1500,
		Locality:         "Bopal",
		SellerType:       "Owner",
		PropertyType:     "Apartment",
		FurnishingStatus: "Semi-Furnished",
		AmenitiesCount:   3,
	})
	require.NoError(t, err)

	// Observed training prices span [30,90]; the estimate must land
	// within that range ±50%.
	assert.Greater(t, prediction.PriceLakhs, 15.0)
	assert.Less(t, prediction.PriceLakhs, 135.0)
	assert.Equal(t, "Tier 1", prediction.LocalityTier)
	assert.NotEmpty(t, prediction.PriceBand)
	assert.InDelta(t, prediction.PriceLakhs*0.9, prediction.IntervalLow, 1e-9)
	assert.InDelta(t, prediction.PriceLakhs*1.1, prediction.IntervalHigh, 1e-9)
}

func TestPredictWithChosenModel(t *testing.T) {
	dir := t.TempDir()
	result := trainScenario(t, dir)

	// Reports often share the models directory; files matching the
	// model_ prefix without the .gob suffix must not break component
	// resolution.
	require.NoError(t, os.WriteFile(filepath.Join(dir, "model_comparison.csv"), []byte("Model,R2,RMSE,MAE\n"), 0644))

	// Pick an ensemble explicitly to exercise component resolution
	var chosen *training.Artifact
	for _, a := range result.Ranked {
		if a.Kind == training.KindEnsemble {
			chosen = a
			break
		}
	}
	require.NotNil(t, chosen)

	predictor := NewPredictor(testConfig(dir), config.NewLocalities(), testLogger())
	prediction, err := predictor.PredictWithModel(models.PropertyRecord{
		BHK:              2,
		AreaSqFt:         900,
		Locality:         "Naroda",
		SellerType:       "Dealer",
		PropertyType:     "Apartment",
		FurnishingStatus: "Unfurnished",
		AmenitiesCount:   1,
	}, training.ArtifactFileName(chosen.Rank, chosen.Name))
	require.NoError(t, err)
	assert.Equal(t, chosen.Name, prediction.ModelName)
	assert.Greater(t, prediction.PriceLakhs, 0.0)
}

func TestPredictWithoutTrainedModel(t *testing.T) {
	predictor := NewPredictor(testConfig(t.TempDir()), config.NewLocalities(), testLogger())

	_, err := predictor.PredictPrice(models.PropertyRecord{
		BHK:              2,
		AreaSqFt:         900,
		Locality:         "Bopal",
		SellerType:       "Owner",
		PropertyType:     "Apartment",
		FurnishingStatus: "Furnished",
	})
	assert.ErrorIs(t, err, ErrModelNotTrained)
}

func TestPredictInvalidAttributes(t *testing.T) {
	dir := t.TempDir()
	trainScenario(t, dir)

	predictor := NewPredictor(testConfig(dir), config.NewLocalities(), testLogger())
	_, err := predictor.PredictPrice(models.PropertyRecord{
		BHK:              0,
		AreaSqFt:         900,
		Locality:         "Bopal",
		SellerType:       "Owner",
		PropertyType:     "Apartment",
		FurnishingStatus: "Furnished",
	})
	assert.ErrorContains(t, err, "invalid property attributes")
}

func TestBandLabel(t *testing.T) {
	tests := []struct {
		estimate float64
		expected string
	}{
		{0, "0-20L (Budget)"},
		{19.99, "0-20L (Budget)"},
		{20, "20-40L (Affordable)"},
		{55, "40-60L (Mid-Range)"},
		{99, "80-100L (Luxury)"},
		{119, "100-120L (High-End)"},
		{120, "120L+ (Ultra-Luxury)"},
		{4500, "120L+ (Ultra-Luxury)"},
		{-3, "0-20L (Budget)"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, BandLabel(tt.estimate), "estimate %.2f", tt.estimate)
	}
}

func TestIntervalArithmetic(t *testing.T) {
	// A point estimate of exactly 55 must band as 40-60 and carry a
	// (49.5, 60.5) interval.
	estimate := 55.0
	assert.Equal(t, "40-60L (Mid-Range)", BandLabel(estimate))
	assert.InDelta(t, 49.5, estimate*0.9, 1e-9)
	assert.InDelta(t, 60.5, estimate*1.1, 1e-9)
}
