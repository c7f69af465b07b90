package queue

import (
	"errors"
	"sync"

	"github.com/sirupsen/logrus"

	"gharsense/internal/models"
)

var (
	ErrQueueFull   = errors.New("queue is full")
	ErrQueueClosed = errors.New("queue is closed")
)

// ListingQueue buffers batches of cleaned listings between the CSV
// ingester and the batch processor.
type ListingQueue struct {
	batches chan []*models.PropertyRecord
	mu      sync.RWMutex
	closed  bool
	logger  *logrus.Logger
}

// NewListingQueue creates a queue with the given batch buffer size.
func NewListingQueue(bufferSize int, logger *logrus.Logger) *ListingQueue {
	return &ListingQueue{
		batches: make(chan []*models.PropertyRecord, bufferSize),
		logger:  logger,
	}
}

// Push adds a batch of listings to the queue without blocking.
func (q *ListingQueue) Push(batch []*models.PropertyRecord) error {
	q.mu.RLock()
	if q.closed {
		q.mu.RUnlock()
		return ErrQueueClosed
	}
	q.mu.RUnlock()

	select {
	case q.batches <- batch:
		q.logger.WithField("batch_size", len(batch)).Debug("Pushed batch to queue")
		return nil
	default:
		return ErrQueueFull
	}
}

// Batches returns the channel consumers drain. The channel closes once
// Close is called and the remaining batches have been received.
func (q *ListingQueue) Batches() <-chan []*models.PropertyRecord {
	return q.batches
}

// Close stops the queue and prevents new batches from being added.
func (q *ListingQueue) Close() {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return
	}
	q.closed = true
	close(q.batches)
}

// Len returns the current number of buffered batches.
func (q *ListingQueue) Len() int {
	return len(q.batches)
}

// IsClosed returns whether the queue has been closed.
func (q *ListingQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
