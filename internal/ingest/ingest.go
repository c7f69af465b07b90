package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"gharsense/config"
	"gharsense/internal/models"
	"gharsense/internal/queue"
)

// SchemaError reports a violation of the cleaned-table column contract.
type SchemaError struct {
	Column string
	Reason string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("schema error in column %q: %s", e.Column, e.Reason)
}

// requiredColumns is the exact cleaned-table contract the upstream
// producer must emit. Source_Website is tracking metadata and optional.
var requiredColumns = []string{
	"Price_Lakhs", "Area_SqFt", "BHK", "Property_Type", "Furnishing_Status",
	"Locality", "Locality_Tier", "Seller_Type", "Under_Construction",
	"Amenities_Count",
}

// Ingester reads cleaned listing CSVs and feeds them to the store via
// the batch queue.
type Ingester struct {
	localities *config.Localities
	queue      *queue.ListingQueue
	batchSize  int
	logger     *logrus.Logger
}

func NewIngester(localities *config.Localities, q *queue.ListingQueue, batchSize int, logger *logrus.Logger) *Ingester {
	if batchSize <= 0 {
		batchSize = 100
	}
	return &Ingester{
		localities: localities,
		queue:      q,
		batchSize:  batchSize,
		logger:     logger,
	}
}

// IngestFile parses the cleaned CSV at path and pushes validated
// listings to the queue in batches. It returns the number of accepted
// and skipped rows. A missing required column is fatal; an invalid row
// is skipped and counted.
func (ing *Ingester) IngestFile(path string) (int, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to open cleaned table: %w", err)
	}
	defer f.Close()

	records, skipped, err := ing.Parse(f)
	if err != nil {
		return 0, 0, err
	}

	if skipped > 0 {
		ing.logger.WithFields(logrus.Fields{
			"file":    path,
			"skipped": skipped,
		}).Warn("Skipped rows failing the cleaned-table contract")
	}

	accepted := 0
	for start := 0; start < len(records); start += ing.batchSize {
		end := start + ing.batchSize
		if end > len(records) {
			end = len(records)
		}
		if err := ing.push(records[start:end]); err != nil {
			return accepted, skipped, fmt.Errorf("failed to enqueue listing batch: %w", err)
		}
		accepted += end - start
	}

	ing.logger.WithFields(logrus.Fields{
		"file":     path,
		"accepted": accepted,
	}).Info("Ingested cleaned table")
	return accepted, skipped, nil
}

// push enqueues a batch, waiting out transient back-pressure while the
// processor drains. A closed queue fails immediately.
func (ing *Ingester) push(batch []*models.PropertyRecord) error {
	const maxAttempts = 50
	for attempt := 0; ; attempt++ {
		err := ing.queue.Push(batch)
		if err == nil {
			return nil
		}
		if !errors.Is(err, queue.ErrQueueFull) || attempt >= maxAttempts {
			return err
		}
		time.Sleep(100 * time.Millisecond)
	}
}

// Parse reads a cleaned CSV stream into validated listings. The header
// must contain every required column; extra columns are ignored.
func (ing *Ingester) Parse(r io.Reader) ([]*models.PropertyRecord, int, error) {
	reader := csv.NewReader(r)
	header, err := reader.Read()
	if err != nil {
		return nil, 0, fmt.Errorf("failed to read header: %w", err)
	}

	index := make(map[string]int, len(header))
	for i, col := range header {
		index[strings.TrimSpace(col)] = i
	}
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			return nil, 0, &SchemaError{Column: col, Reason: "missing from header"}
		}
	}

	var listings []*models.PropertyRecord
	skipped := 0
	line := 1
	for {
		row, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, 0, fmt.Errorf("failed to read row %d: %w", line+1, err)
		}
		line++

		record, err := ing.parseRow(row, index)
		if err != nil {
			ing.logger.WithError(err).WithField("row", line).Debug("Rejected row")
			skipped++
			continue
		}
		listings = append(listings, record)
	}

	return listings, skipped, nil
}

func (ing *Ingester) parseRow(row []string, index map[string]int) (*models.PropertyRecord, error) {
	field := func(col string) string {
		return strings.TrimSpace(row[index[col]])
	}

	price, err := strconv.ParseFloat(field("Price_Lakhs"), 64)
	if err != nil {
		return nil, &SchemaError{Column: "Price_Lakhs", Reason: "not a number"}
	}
	area, err := strconv.ParseFloat(field("Area_SqFt"), 64)
	if err != nil {
		return nil, &SchemaError{Column: "Area_SqFt", Reason: "not a number"}
	}
	bhk, err := strconv.ParseFloat(field("BHK"), 64)
	if err != nil {
		return nil, &SchemaError{Column: "BHK", Reason: "not a number"}
	}
	amenities, err := strconv.Atoi(field("Amenities_Count"))
	if err != nil {
		return nil, &SchemaError{Column: "Amenities_Count", Reason: "not an integer"}
	}
	underConstruction, err := parseBool(field("Under_Construction"))
	if err != nil {
		return nil, &SchemaError{Column: "Under_Construction", Reason: "not a boolean"}
	}

	locality := ing.localities.Canonical(field("Locality"))

	record := &models.PropertyRecord{
		BHK:               int(bhk),
		AreaSqFt:          area,
		Locality:          locality,
		LocalityTier:      string(ing.localities.TierFor(locality)),
		SellerType:        normalizeEnum(field("Seller_Type"), models.SellerTypes, "Unknown"),
		PropertyType:      normalizeEnum(field("Property_Type"), models.PropertyTypes, "Apartment"),
		FurnishingStatus:  normalizeEnum(field("Furnishing_Status"), models.FurnishingStatuses, "Unfurnished"),
		UnderConstruction: underConstruction,
		AmenitiesCount:    amenities,
		PriceLakhs:        price,
	}
	if i, ok := index["Source_Website"]; ok && i < len(row) {
		record.SourceWebsite = strings.TrimSpace(row[i])
	}

	if err := record.Validate(); err != nil {
		return nil, err
	}
	return record, nil
}

func parseBool(v string) (bool, error) {
	switch strings.ToLower(v) {
	case "true", "1", "yes":
		return true, nil
	case "false", "0", "no", "":
		return false, nil
	}
	return false, fmt.Errorf("unrecognized boolean %q", v)
}

// normalizeEnum matches a raw value against the accepted set, ignoring
// case, and falls back when nothing matches.
func normalizeEnum(v string, accepted []string, fallback string) string {
	for _, candidate := range accepted {
		if strings.EqualFold(candidate, v) {
			return candidate
		}
	}
	return fallback
}
