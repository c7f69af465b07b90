package models

import (
	"fmt"
	"time"
)

// PropertyRecord is one cleaned residential listing. The cleaned-table
// producer guarantees the column contract; Validate enforces it once at
// the ingestion boundary so the pipeline stages can trust typed fields.
type PropertyRecord struct {
	ID                int64     `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	BHK               int       `gorm:"column:bhk" json:"bhk"`
	AreaSqFt          float64   `gorm:"column:area_sqft" json:"area_sqft"`
	Locality          string    `gorm:"column:locality;index" json:"locality"`
	LocalityTier      string    `gorm:"column:locality_tier" json:"locality_tier"`
	SellerType        string    `gorm:"column:seller_type" json:"seller_type"`
	PropertyType      string    `gorm:"column:property_type" json:"property_type"`
	FurnishingStatus  string    `gorm:"column:furnishing_status" json:"furnishing_status"`
	UnderConstruction bool      `gorm:"column:under_construction" json:"under_construction"`
	AmenitiesCount    int       `gorm:"column:amenities_count" json:"amenities_count"`
	PriceLakhs        float64   `gorm:"column:price_lakhs" json:"price_lakhs"`
	SourceWebsite     string    `gorm:"column:source_website" json:"source_website"`
	CreatedAt         time.Time `gorm:"column:created_at" json:"created_at"`
}

func (PropertyRecord) TableName() string { return "properties" }

// Seller types accepted by the contract.
var SellerTypes = []string{"Owner", "Builder", "Dealer", "Agent", "Unknown"}

// Property types accepted by the contract.
var PropertyTypes = []string{
	"Apartment", "Villa", "Independent House", "Plot", "Penthouse", "Studio",
}

// Furnishing statuses accepted by the contract.
var FurnishingStatuses = []string{"Furnished", "Semi-Furnished", "Unfurnished"}

// Validate checks the listing against the cleaned-table contract.
func (p *PropertyRecord) Validate() error {
	if p.BHK < 1 || p.BHK > 10 {
		return fmt.Errorf("BHK out of range [1,10]: %d", p.BHK)
	}
	if p.AreaSqFt <= 0 {
		return fmt.Errorf("Area_SqFt must be positive: %.1f", p.AreaSqFt)
	}
	if p.Locality == "" {
		return fmt.Errorf("Locality must not be empty")
	}
	if p.PriceLakhs <= 0 {
		return fmt.Errorf("Price_Lakhs must be positive: %.2f", p.PriceLakhs)
	}
	if p.AmenitiesCount < 0 {
		return fmt.Errorf("Amenities_Count must be non-negative: %d", p.AmenitiesCount)
	}
	if !contains(SellerTypes, p.SellerType) {
		return fmt.Errorf("unrecognized Seller_Type: %q", p.SellerType)
	}
	if !contains(PropertyTypes, p.PropertyType) {
		return fmt.Errorf("unrecognized Property_Type: %q", p.PropertyType)
	}
	if !contains(FurnishingStatuses, p.FurnishingStatus) {
		return fmt.Errorf("unrecognized Furnishing_Status: %q", p.FurnishingStatus)
	}
	return nil
}

func contains(values []string, v string) bool {
	for _, candidate := range values {
		if candidate == v {
			return true
		}
	}
	return false
}

// EngineeredRecord is a PropertyRecord extended with the derived fields
// produced by the feature engineering stage.
type EngineeredRecord struct {
	PropertyRecord

	AreaPerBHK            float64 `json:"area_per_bhk"`
	IsLargeApartment      int     `json:"is_large_apartment"`
	IsPremiumLocality     int     `json:"is_premium_locality"`
	IsBudgetLocality      int     `json:"is_budget_locality"`
	BHKAreaCombo          string  `json:"bhk_area_combo"`
	HighAmenity           int     `json:"high_amenity"`
	ConstructionCategory  string  `json:"construction_category"`
	LocalityPropertyCount float64 `json:"locality_property_count"`
	LocalityMedianArea    float64 `json:"locality_median_area"`
	LocalityCommonBHK     float64 `json:"locality_common_bhk"`

	// LocalityMedianPrice is derived from the target and persisted for
	// analysis only; it never enters the training feature list.
	LocalityMedianPrice float64 `json:"locality_median_price"`

	// PriceCategory is the 20L bucket label for the listing's price.
	PriceCategory string `json:"price_category"`
}

// TrainingFeatures is the canonical model input order. The encoder and
// every persisted model depend on this ordering; do not reorder without
// retraining. Price_Lakhs, Price_Category and Locality_Median_Price are
// deliberately absent.
var TrainingFeatures = []string{
	"BHK", "Area_SqFt", "Locality", "Locality_Tier", "Seller_Type",
	"Property_Type", "Furnishing_Status", "Under_Construction", "Amenities_Count",
	"Area_Per_BHK", "Is_Large_Apartment", "Is_Premium_Locality", "Is_Budget_Locality",
	"BHK_Area_Combo", "High_Amenity", "Construction_Category", "Locality_Property_Count",
	"Locality_Median_Area", "Locality_Common_BHK",
}

// CategoricalFeatures are the columns that go through the label encoder.
var CategoricalFeatures = []string{
	"Locality", "Locality_Tier", "Seller_Type", "Property_Type",
	"Furnishing_Status", "BHK_Area_Combo", "Construction_Category",
}

// TargetColumn is the regression target.
const TargetColumn = "Price_Lakhs"

// ModelScore holds the held-out metrics for one trained model. All
// three metrics are in Lakhs except R2, which is the coefficient of
// determination and may be negative for a pathological model.
type ModelScore struct {
	Model string  `json:"model"`
	R2    float64 `json:"r2"`
	RMSE  float64 `json:"rmse"`
	MAE   float64 `json:"mae"`
}

// LocalityStats summarizes the listings of one locality in the store.
type LocalityStats struct {
	Locality      string  `json:"locality"`
	PropertyCount int     `json:"property_count"`
	AveragePrice  float64 `json:"average_price"`
	AverageArea   float64 `json:"average_area"`
}

// StoreStats summarizes the whole listing store.
type StoreStats struct {
	TotalProperties int     `json:"total_properties"`
	AveragePrice    float64 `json:"average_price"`
	MinPrice        float64 `json:"min_price"`
	MaxPrice        float64 `json:"max_price"`
	AvgAreaSqFt     float64 `json:"avg_area_sqft"`
	LocalityCount   int     `json:"locality_count"`
}
