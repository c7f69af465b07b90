package inference

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/sirupsen/logrus"

	"gharsense/config"
	"gharsense/internal/encoding"
	"gharsense/internal/features"
	"gharsense/internal/models"
	"gharsense/internal/training"
)

// ErrModelNotTrained is returned when prediction is requested before
// any training run has persisted artifacts.
var ErrModelNotTrained = errors.New("no trained model found: run `gharsense train` first")

// priceBands maps point estimates to the human-readable bands. Bounds
// are half-open [Low, High); the last band is open-ended.
var priceBands = []struct {
	Low   float64
	High  float64
	Label string
}{
	{0, 20, "0-20L (Budget)"},
	{20, 40, "20-40L (Affordable)"},
	{40, 60, "40-60L (Mid-Range)"},
	{60, 80, "60-80L (Premium)"},
	{80, 100, "80-100L (Luxury)"},
	{100, 120, "100-120L (High-End)"},
	{120, -1, "120L+ (Ultra-Luxury)"},
}

// Prediction is the structured result of a single-property estimate.
// IntervalLow/High form a naive ±10% band around the point estimate,
// not a statistically derived confidence interval.
type Prediction struct {
	ModelName    string  `json:"model_name"`
	PriceLakhs   float64 `json:"price_lakhs"`
	PriceBand    string  `json:"price_band"`
	IntervalLow  float64 `json:"interval_low"`
	IntervalHigh float64 `json:"interval_high"`
	LocalityTier string  `json:"locality_tier"`
}

// bundle holds everything needed to answer predictions for one model.
type bundle struct {
	artifact *training.Artifact
	encoders *encoding.EncoderSet
}

// Predictor answers single-property price estimates from persisted
// artifacts. Loaded bundles are cached with a TTL so the API surface
// does not re-read gob files on every request.
type Predictor struct {
	modelsDir  string
	localities *config.Localities
	engineer   *features.Engineer
	cache      *gocache.Cache
	logger     *logrus.Logger
}

func NewPredictor(cfg *config.Config, localities *config.Localities, logger *logrus.Logger) *Predictor {
	return &Predictor{
		modelsDir:  cfg.Pipeline.ModelsDir,
		localities: localities,
		engineer:   features.NewEngineer(localities, cfg.Pipeline.BucketWidth, logger),
		cache:      gocache.New(5*time.Minute, 10*time.Minute),
		logger:     logger,
	}
}

// PredictPrice estimates the price of one property with the best-ranked
// model.
func (p *Predictor) PredictPrice(record models.PropertyRecord) (*Prediction, error) {
	return p.PredictWithModel(record, "")
}

// PredictWithModel estimates with an explicitly chosen artifact file
// name, or the best-ranked model when name is empty. The record's
// locality tier is re-derived from the static lists; locality-aggregate
// features fall back to record-local defaults since no table is
// available at inference time.
func (p *Predictor) PredictWithModel(record models.PropertyRecord, name string) (*Prediction, error) {
	record.Locality = p.localities.Canonical(record.Locality)
	record.LocalityTier = string(p.localities.TierFor(record.Locality))
	// The price field is ignored at inference; neutralize it so the
	// contract check only covers the attributes that matter here.
	record.PriceLakhs = 1
	if err := record.Validate(); err != nil {
		return nil, fmt.Errorf("invalid property attributes: %w", err)
	}

	b, err := p.loadBundle(name)
	if err != nil {
		return nil, err
	}

	engineered := p.engineer.EngineerRecord(record)
	vector := b.encoders.EncodeRow(&engineered)

	estimate, err := b.artifact.Predict(vector)
	if err != nil {
		return nil, fmt.Errorf("prediction failed: %w", err)
	}

	result := &Prediction{
		ModelName:    b.artifact.Name,
		PriceLakhs:   estimate,
		PriceBand:    BandLabel(estimate),
		IntervalLow:  estimate * 0.9,
		IntervalHigh: estimate * 1.1,
		LocalityTier: record.LocalityTier,
	}
	p.logger.WithFields(logrus.Fields{
		"model":    result.ModelName,
		"locality": record.Locality,
		"estimate": result.PriceLakhs,
		"band":     result.PriceBand,
	}).Info("Predicted property price")
	return result, nil
}

// BandLabel returns the price band containing the estimate.
func BandLabel(estimate float64) string {
	for _, band := range priceBands {
		if estimate >= band.Low && (band.High < 0 || estimate < band.High) {
			return band.Label
		}
	}
	// Negative estimates from a pathological model fall into the
	// lowest band.
	return priceBands[0].Label
}

// loadBundle loads (or returns the cached) artifact + encoder pair.
func (p *Predictor) loadBundle(name string) (*bundle, error) {
	cacheKey := name
	if cacheKey == "" {
		cacheKey = training.BestModelFileName
	}
	if cached, ok := p.cache.Get(cacheKey); ok {
		return cached.(*bundle), nil
	}

	artifactPath := filepath.Join(p.modelsDir, cacheKey)
	artifact, err := training.LoadArtifact(artifactPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrModelNotTrained
		}
		return nil, fmt.Errorf("failed to load model artifact: %w", err)
	}

	if artifact.Kind == training.KindEnsemble {
		if err := p.resolveEnsemble(artifact); err != nil {
			return nil, err
		}
	}

	encoders, err := encoding.Load(filepath.Join(p.modelsDir, training.EncoderFileName), p.logger)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, ErrModelNotTrained
		}
		return nil, err
	}

	b := &bundle{artifact: artifact, encoders: encoders}
	p.cache.Set(cacheKey, b, gocache.DefaultExpiration)
	p.logger.WithField("model", artifact.Name).Info("Loaded inference bundle")
	return b, nil
}

// resolveEnsemble loads every persisted base artifact and wires the
// ensemble's components against it.
func (p *Predictor) resolveEnsemble(ensemble *training.Artifact) error {
	entries, err := os.ReadDir(p.modelsDir)
	if err != nil {
		return fmt.Errorf("failed to scan models dir: %w", err)
	}

	byName := make(map[string]*training.Artifact)
	for _, entry := range entries {
		name := entry.Name()
		// The comparison report shares the model_ prefix when reports
		// and models land in the same directory; only gob files are
		// artifacts.
		if entry.IsDir() || !strings.HasPrefix(name, "model_") || !strings.HasSuffix(name, ".gob") {
			continue
		}
		artifact, err := training.LoadArtifact(filepath.Join(p.modelsDir, name))
		if err != nil {
			return err
		}
		if artifact.Kind == training.KindBase {
			byName[artifact.Name] = artifact
		}
	}
	return ensemble.Resolve(byName)
}
