package database

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"

	"gharsense/internal/models"
)

type Database struct {
	db *sql.DB
}

func NewDatabase(dbPath string) (*Database, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	// Enable foreign keys
	_, err = db.Exec("PRAGMA foreign_keys = ON")
	if err != nil {
		return nil, err
	}

	return &Database{db: db}, nil
}

func (d *Database) Close() error {
	return d.db.Close()
}

func (d *Database) GetDB() *sql.DB {
	return d.db
}

func (d *Database) RunMigrations() error {
	_, err := d.db.Exec(`
		CREATE TABLE IF NOT EXISTS properties (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			bhk INTEGER NOT NULL,
			area_sqft REAL NOT NULL,
			locality TEXT NOT NULL,
			locality_tier TEXT NOT NULL,
			seller_type TEXT NOT NULL,
			property_type TEXT NOT NULL,
			furnishing_status TEXT NOT NULL,
			under_construction BOOLEAN NOT NULL DEFAULT 0,
			amenities_count INTEGER NOT NULL DEFAULT 0,
			price_lakhs REAL NOT NULL,
			source_website TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		);
	`)
	if err != nil {
		return fmt.Errorf("failed to create properties table: %v", err)
	}

	_, err = d.db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_properties_locality
		ON properties(locality);
	`)
	if err != nil {
		return err
	}

	_, err = d.db.Exec(`
		CREATE UNIQUE INDEX IF NOT EXISTS idx_properties_listing
		ON properties(locality, bhk, area_sqft, price_lakhs, seller_type, source_website);
	`)
	if err != nil {
		return fmt.Errorf("failed to create listing index: %v", err)
	}

	return nil
}

// GetCleanedProperties returns every listing in insertion order. The
// order matters: the training split permutes row indexes from a fixed
// seed, so a stable read order keeps training runs reproducible.
func (d *Database) GetCleanedProperties() ([]models.PropertyRecord, error) {
	rows, err := d.db.Query(`
		SELECT id, bhk, area_sqft, locality, locality_tier, seller_type,
		       property_type, furnishing_status, under_construction,
		       amenities_count, price_lakhs, COALESCE(source_website, '')
		FROM properties
		ORDER BY id
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var properties []models.PropertyRecord
	for rows.Next() {
		var p models.PropertyRecord
		err := rows.Scan(
			&p.ID, &p.BHK, &p.AreaSqFt, &p.Locality, &p.LocalityTier,
			&p.SellerType, &p.PropertyType, &p.FurnishingStatus,
			&p.UnderConstruction, &p.AmenitiesCount, &p.PriceLakhs,
			&p.SourceWebsite,
		)
		if err != nil {
			return nil, err
		}
		properties = append(properties, p)
	}
	return properties, rows.Err()
}

// GetStoreStats returns aggregate statistics over all listings.
func (d *Database) GetStoreStats() (models.StoreStats, error) {
	var stats models.StoreStats
	err := d.db.QueryRow(`
		SELECT
			COUNT(*),
			COALESCE(AVG(price_lakhs), 0),
			COALESCE(MIN(price_lakhs), 0),
			COALESCE(MAX(price_lakhs), 0),
			COALESCE(AVG(area_sqft), 0),
			COUNT(DISTINCT locality)
		FROM properties
	`).Scan(
		&stats.TotalProperties,
		&stats.AveragePrice,
		&stats.MinPrice,
		&stats.MaxPrice,
		&stats.AvgAreaSqFt,
		&stats.LocalityCount,
	)
	return stats, err
}

// GetLocalityStats returns per-locality aggregates ordered by listing
// count, most listed first.
func (d *Database) GetLocalityStats(limit int) ([]models.LocalityStats, error) {
	rows, err := d.db.Query(`
		SELECT locality, COUNT(*) as property_count,
		       AVG(price_lakhs) as average_price,
		       AVG(area_sqft) as average_area
		FROM properties
		GROUP BY locality
		ORDER BY property_count DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var stats []models.LocalityStats
	for rows.Next() {
		var s models.LocalityStats
		if err := rows.Scan(&s.Locality, &s.PropertyCount, &s.AveragePrice, &s.AverageArea); err != nil {
			return nil, err
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

// CountProperties returns the number of stored listings.
func (d *Database) CountProperties() (int, error) {
	var count int
	err := d.db.QueryRow("SELECT COUNT(*) FROM properties").Scan(&count)
	return count, err
}
