package encoding

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"sync/atomic"

	"github.com/sirupsen/logrus"

	"gharsense/internal/models"
)

// Encoder is a fitted label encoding for one categorical column: a
// bijection from the categories observed at fit time to small integers.
// The integers are arbitrary labels, not ranks. Immutable after fit.
type Encoder struct {
	Column  string   `json:"column"`
	Classes []string `json:"classes"`

	index       map[string]int
	unseenCount atomic.Int64
}

// Fit builds an encoder over the distinct values of a column. Classes
// are assigned indexes in sorted order so fitting is deterministic
// regardless of row order.
func Fit(column string, values []string) *Encoder {
	distinct := make(map[string]bool, len(values))
	for _, v := range values {
		distinct[v] = true
	}
	classes := make([]string, 0, len(distinct))
	for v := range distinct {
		classes = append(classes, v)
	}
	sort.Strings(classes)

	e := &Encoder{Column: column, Classes: classes}
	e.buildIndex()
	return e
}

func (e *Encoder) buildIndex() {
	e.index = make(map[string]int, len(e.Classes))
	for i, class := range e.Classes {
		e.index[class] = i
	}
}

// Transform maps a category to its fitted integer. A category unseen at
// fit time does not fail: it maps to 0, i.e. it is silently conflated
// with the first-seen class. This fallback is a preserved behavioral
// quirk of the original pipeline; every occurrence is counted so the
// accuracy loss stays visible.
func (e *Encoder) Transform(value string) int {
	if idx, ok := e.index[value]; ok {
		return idx
	}
	e.unseenCount.Add(1)
	return 0
}

// Inverse maps a fitted integer back to its category.
func (e *Encoder) Inverse(idx int) (string, error) {
	if idx < 0 || idx >= len(e.Classes) {
		return "", fmt.Errorf("index %d outside fitted classes of %s", idx, e.Column)
	}
	return e.Classes[idx], nil
}

// UnseenCount returns how many unseen categories this encoder has
// collapsed to the fallback since it was fitted or loaded.
func (e *Encoder) UnseenCount() int64 {
	return e.unseenCount.Load()
}

// EncoderSet holds the fitted encoder of every categorical column.
type EncoderSet struct {
	Encoders map[string]*Encoder `json:"encoders"`

	logger *logrus.Logger
}

// FitTable fits one encoder per categorical column over an engineered
// table.
func FitTable(table []models.EngineeredRecord, logger *logrus.Logger) *EncoderSet {
	set := &EncoderSet{
		Encoders: make(map[string]*Encoder, len(models.CategoricalFeatures)),
		logger:   logger,
	}
	for _, column := range models.CategoricalFeatures {
		values := make([]string, len(table))
		for i := range table {
			values[i] = CategoricalValue(&table[i], column)
		}
		set.Encoders[column] = Fit(column, values)
	}
	return set
}

// EncodeRow produces the numeric feature vector for one engineered
// record, in the canonical training-feature order. Unseen categories go
// through the documented fallback and are logged once per row.
func (s *EncoderSet) EncodeRow(row *models.EngineeredRecord) []float64 {
	vector := make([]float64, 0, len(models.TrainingFeatures))
	for _, feature := range models.TrainingFeatures {
		if encoder, ok := s.Encoders[feature]; ok {
			value := CategoricalValue(row, feature)
			before := encoder.UnseenCount()
			encoded := encoder.Transform(value)
			if encoder.UnseenCount() > before && s.logger != nil {
				s.logger.WithFields(logrus.Fields{
					"column": feature,
					"value":  value,
				}).Warn("Unseen category collapsed to fallback class")
			}
			vector = append(vector, float64(encoded))
			continue
		}
		vector = append(vector, NumericValue(row, feature))
	}
	return vector
}

// EncodeTable produces the full numeric matrix plus targets for an
// engineered table.
func (s *EncoderSet) EncodeTable(table []models.EngineeredRecord) ([][]float64, []float64) {
	matrix := make([][]float64, len(table))
	targets := make([]float64, len(table))
	for i := range table {
		matrix[i] = s.EncodeRow(&table[i])
		targets[i] = table[i].PriceLakhs
	}
	return matrix, targets
}

// TotalUnseen sums the unseen-category counters across all columns.
func (s *EncoderSet) TotalUnseen() int64 {
	var total int64
	for _, e := range s.Encoders {
		total += e.UnseenCount()
	}
	return total
}

// Save persists the fitted encoders as JSON.
func (s *EncoderSet) Save(path string) error {
	data, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal encoders: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write encoders: %w", err)
	}
	return nil
}

// Load reads a persisted encoder set.
func Load(path string, logger *logrus.Logger) (*EncoderSet, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read encoders: %w", err)
	}
	set := &EncoderSet{}
	if err := json.Unmarshal(data, set); err != nil {
		return nil, fmt.Errorf("failed to parse encoders: %w", err)
	}
	for _, e := range set.Encoders {
		e.buildIndex()
	}
	set.logger = logger
	return set, nil
}

// CategoricalValue extracts a categorical column from a record.
func CategoricalValue(row *models.EngineeredRecord, column string) string {
	switch column {
	case "Locality":
		return row.Locality
	case "Locality_Tier":
		return row.LocalityTier
	case "Seller_Type":
		return row.SellerType
	case "Property_Type":
		return row.PropertyType
	case "Furnishing_Status":
		return row.FurnishingStatus
	case "BHK_Area_Combo":
		return row.BHKAreaCombo
	case "Construction_Category":
		return row.ConstructionCategory
	}
	return ""
}

// NumericValue extracts a numeric column from a record.
func NumericValue(row *models.EngineeredRecord, column string) float64 {
	switch column {
	case "BHK":
		return float64(row.BHK)
	case "Area_SqFt":
		return row.AreaSqFt
	case "Under_Construction":
		if row.UnderConstruction {
			return 1
		}
		return 0
	case "Amenities_Count":
		return float64(row.AmenitiesCount)
	case "Area_Per_BHK":
		return row.AreaPerBHK
	case "Is_Large_Apartment":
		return float64(row.IsLargeApartment)
	case "Is_Premium_Locality":
		return float64(row.IsPremiumLocality)
	case "Is_Budget_Locality":
		return float64(row.IsBudgetLocality)
	case "High_Amenity":
		return float64(row.HighAmenity)
	case "Locality_Property_Count":
		return row.LocalityPropertyCount
	case "Locality_Median_Area":
		return row.LocalityMedianArea
	case "Locality_Common_BHK":
		return row.LocalityCommonBHK
	}
	return 0
}
