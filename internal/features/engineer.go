package features

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"

	"gharsense/config"
	"gharsense/internal/models"
)

// DefaultLocalityCount is the popularity assumed for a single record at
// inference time, when no table is available to count from.
const DefaultLocalityCount = 100

// LeakageError reports a candidate feature derived from the target.
type LeakageError struct {
	Feature string
}

func (e *LeakageError) Error() string {
	return fmt.Sprintf("feature %q leaks the price target into the model input", e.Feature)
}

// Engineer derives model-ready features from cleaned listings. It is a
// pure transform: aggregates are recomputed from whatever table is
// passed in, and the input is never mutated.
type Engineer struct {
	localities  *config.Localities
	bucketWidth float64
	logger      *logrus.Logger
}

func NewEngineer(localities *config.Localities, bucketWidth float64, logger *logrus.Logger) *Engineer {
	if bucketWidth <= 0 {
		bucketWidth = 20
	}
	return &Engineer{
		localities:  localities,
		bucketWidth: bucketWidth,
		logger:      logger,
	}
}

type localityAggregate struct {
	count       float64
	medianArea  float64
	commonBHK   float64
	medianPrice float64
}

// EngineerTable derives every feature for every row. An empty table
// yields an empty output rather than an error; downstream stages fail
// on their own terms.
func (e *Engineer) EngineerTable(table []models.PropertyRecord) []models.EngineeredRecord {
	if len(table) == 0 {
		return []models.EngineeredRecord{}
	}

	aggregates := e.aggregateByLocality(table)

	maxPrice := table[0].PriceLakhs
	for _, p := range table[1:] {
		if p.PriceLakhs > maxPrice {
			maxPrice = p.PriceLakhs
		}
	}
	numBuckets := int(math.Ceil(maxPrice / e.bucketWidth))
	if numBuckets < 1 {
		numBuckets = 1
	}

	engineered := make([]models.EngineeredRecord, 0, len(table))
	for _, p := range table {
		row := e.engineerRow(p)
		agg := aggregates[p.Locality]
		row.LocalityPropertyCount = agg.count
		row.LocalityMedianArea = agg.medianArea
		row.LocalityCommonBHK = agg.commonBHK
		row.LocalityMedianPrice = agg.medianPrice
		row.PriceCategory = e.BucketLabel(p.PriceLakhs, numBuckets)
		engineered = append(engineered, row)
	}

	e.logger.WithFields(logrus.Fields{
		"rows":        len(engineered),
		"max_price":   maxPrice,
		"num_buckets": numBuckets,
	}).Info("Engineered feature table")
	return engineered
}

// EngineerRecord derives features for one record at inference time.
// Locality aggregates fall back to record-local defaults (own area, own
// BHK, a fixed popularity) because no table is available; this is a
// deliberate approximation. Target-derived fields stay zero.
func (e *Engineer) EngineerRecord(p models.PropertyRecord) models.EngineeredRecord {
	row := e.engineerRow(p)
	row.LocalityPropertyCount = DefaultLocalityCount
	row.LocalityMedianArea = p.AreaSqFt
	row.LocalityCommonBHK = float64(p.BHK)
	return row
}

func (e *Engineer) engineerRow(p models.PropertyRecord) models.EngineeredRecord {
	row := models.EngineeredRecord{PropertyRecord: p}

	row.AreaPerBHK = p.AreaSqFt / float64(p.BHK)
	if p.BHK >= 4 {
		row.IsLargeApartment = 1
	}
	if p.LocalityTier == string(config.Tier1) {
		row.IsPremiumLocality = 1
	}
	if p.LocalityTier == string(config.Tier3) {
		row.IsBudgetLocality = 1
	}
	row.BHKAreaCombo = fmt.Sprintf("%d_%s", p.BHK, AreaSizeCategory(p.AreaSqFt))
	if p.AmenitiesCount >= 3 {
		row.HighAmenity = 1
	}
	if p.UnderConstruction {
		row.ConstructionCategory = "Under_Construction"
	} else {
		row.ConstructionCategory = "Ready_To_Move"
	}
	return row
}

// AreaSizeCategory bins an area into the four size classes used by the
// BHK interaction feature.
func AreaSizeCategory(areaSqFt float64) string {
	switch {
	case areaSqFt < 800:
		return "Small"
	case areaSqFt < 1500:
		return "Medium"
	case areaSqFt < 3000:
		return "Large"
	default:
		return "XLarge"
	}
}

// BucketLabel returns the 20L price bucket label for a price. Buckets
// are half-open [lo, hi) starting at 0; the very last bucket also
// claims its upper bound so the table maximum lands in a bucket.
func (e *Engineer) BucketLabel(price float64, numBuckets int) string {
	idx := int(math.Floor(price / e.bucketWidth))
	if idx >= numBuckets {
		idx = numBuckets - 1
	}
	if idx < 0 {
		idx = 0
	}
	lo := float64(idx) * e.bucketWidth
	return fmt.Sprintf("%d-%dL", int(lo), int(lo+e.bucketWidth))
}

func (e *Engineer) aggregateByLocality(table []models.PropertyRecord) map[string]localityAggregate {
	byLocality := make(map[string][]models.PropertyRecord)
	for _, p := range table {
		byLocality[p.Locality] = append(byLocality[p.Locality], p)
	}

	aggregates := make(map[string]localityAggregate, len(byLocality))
	for locality, rows := range byLocality {
		areas := make([]float64, len(rows))
		prices := make([]float64, len(rows))
		bhks := make([]float64, len(rows))
		for i, p := range rows {
			areas[i] = p.AreaSqFt
			prices[i] = p.PriceLakhs
			bhks[i] = float64(p.BHK)
		}
		aggregates[locality] = localityAggregate{
			count:       float64(len(rows)),
			medianArea:  median(areas),
			commonBHK:   modalBHK(bhks),
			medianPrice: median(prices),
		}
	}
	return aggregates
}

func median(values []float64) float64 {
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)
	return stat.Quantile(0.5, stat.Empirical, sorted, nil)
}

// modalBHK returns the most common BHK in a locality, falling back to
// the median when no single value dominates.
func modalBHK(bhks []float64) float64 {
	counts := make(map[float64]int)
	for _, b := range bhks {
		counts[b]++
	}
	best, bestCount, tied := 0.0, 0, false
	for value, count := range counts {
		switch {
		case count > bestCount:
			best, bestCount, tied = value, count, false
		case count == bestCount:
			tied = true
		}
	}
	if tied {
		return median(bhks)
	}
	return best
}

// ValidateNoLeakage rejects any candidate feature whose name carries a
// price or cost token, outside the analysis-only whitelist. It runs
// before training so leakage is caught up front, not post-hoc.
func ValidateNoLeakage(featureNames []string) error {
	for _, name := range featureNames {
		lower := strings.ToLower(name)
		if strings.Contains(lower, "price") || strings.Contains(lower, "cost") {
			return &LeakageError{Feature: name}
		}
	}
	return nil
}
