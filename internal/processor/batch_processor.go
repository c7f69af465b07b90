package processor

import (
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"gharsense/config"
	"gharsense/internal/models"
	"gharsense/internal/queue"
)

// BatchProcessor drains listing batches from the queue and upserts them
// into the sqlite store inside a transaction, with retry on failure.
type BatchProcessor struct {
	db        *gorm.DB
	logger    *logrus.Logger
	config    *config.Config
	queue     *queue.ListingQueue
	waitGroup sync.WaitGroup
}

// NewBatchProcessor creates a new batch processor instance.
func NewBatchProcessor(db *gorm.DB, q *queue.ListingQueue, cfg *config.Config, logger *logrus.Logger) *BatchProcessor {
	return &BatchProcessor{
		db:     db,
		queue:  q,
		config: cfg,
		logger: logger,
	}
}

// Start begins draining the queue in the background.
func (p *BatchProcessor) Start() {
	p.waitGroup.Add(1)
	go p.processLoop()
}

// Wait blocks until the queue is closed and every batch is processed.
func (p *BatchProcessor) Wait() {
	p.waitGroup.Wait()
}

func (p *BatchProcessor) processLoop() {
	defer p.waitGroup.Done()

	for batch := range p.queue.Batches() {
		if err := p.processBatch(batch); err != nil {
			p.logger.WithError(err).Error("Dropping failed batch")
		}
	}
}

// processBatch stores a single batch with transaction and retry logic.
func (p *BatchProcessor) processBatch(batch []*models.PropertyRecord) error {
	var err error
	for attempt := 0; attempt <= p.config.Ingest.MaxRetries; attempt++ {
		if attempt > 0 {
			p.logger.Infof("Retrying batch processing, attempt %d of %d", attempt, p.config.Ingest.MaxRetries)
			time.Sleep(time.Duration(p.config.Ingest.RetryDelay) * time.Second)
		}

		err = p.db.Transaction(func(tx *gorm.DB) error {
			// Duplicate listings (same locality, size, price and
			// source) are skipped rather than duplicated.
			result := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(batch)
			if result.Error != nil {
				return fmt.Errorf("failed to upsert listing batch: %w", result.Error)
			}
			return nil
		})

		if err == nil {
			p.logger.Infof("Successfully processed batch of %d listings", len(batch))
			return nil
		}

		p.logger.Errorf("Batch processing failed: %v", err)
	}

	return fmt.Errorf("failed to process batch after %d attempts: %w", p.config.Ingest.MaxRetries, err)
}
