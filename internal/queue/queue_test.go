package queue

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"

	"gharsense/internal/models"
)

func testBatch(n int) []*models.PropertyRecord {
	batch := make([]*models.PropertyRecord, n)
	for i := range batch {
		batch[i] = &models.PropertyRecord{BHK: 2, Locality: "Bopal"}
	}
	return batch
}

func TestPushAndDrain(t *testing.T) {
	q := NewListingQueue(2, logrus.New())

	assert.NoError(t, q.Push(testBatch(3)))
	assert.NoError(t, q.Push(testBatch(1)))
	assert.Equal(t, 2, q.Len())

	first := <-q.Batches()
	assert.Len(t, first, 3)
	second := <-q.Batches()
	assert.Len(t, second, 1)
}

func TestPushFullQueue(t *testing.T) {
	q := NewListingQueue(1, logrus.New())

	assert.NoError(t, q.Push(testBatch(1)))
	assert.ErrorIs(t, q.Push(testBatch(1)), ErrQueueFull)
}

func TestPushClosedQueue(t *testing.T) {
	q := NewListingQueue(1, logrus.New())
	q.Close()

	assert.True(t, q.IsClosed())
	assert.ErrorIs(t, q.Push(testBatch(1)), ErrQueueClosed)
}

func TestCloseDrainsRemaining(t *testing.T) {
	q := NewListingQueue(4, logrus.New())
	assert.NoError(t, q.Push(testBatch(2)))
	q.Close()

	var total int
	for batch := range q.Batches() {
		total += len(batch)
	}
	assert.Equal(t, 2, total)

	// Closing twice is a no-op
	q.Close()
}
