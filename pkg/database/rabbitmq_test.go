package database

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// channel 為 nil，只要碰到 broker 就會 panic
func newClaimOnlyQueue() *RabbitQueue {
	return &RabbitQueue{
		opts:    RabbitQueueOptions{Queue: "transcode", DeadLetter: "transcode.dlq"},
		pending: make(map[uint64]*time.Timer),
	}
}

func TestRabbitQueue_DeadLetterAfterWindowSkipsPublish(t *testing.T) {
	q := newClaimOnlyQueue()
	msg := &QueueMessage{ID: "m-1", Body: []byte("{}"), ReceiptHandle: "7"}

	// timer 已觸發並從 pending 移除
	err := q.DeadLetter(context.Background(), msg, "giving up")
	assert.ErrorIs(t, err, ErrVisibilityExpired)
}

func TestRabbitQueue_DeadLetterFiredTimerSkipsPublish(t *testing.T) {
	q := newClaimOnlyQueue()
	fired := time.AfterFunc(0, func() {})
	time.Sleep(10 * time.Millisecond)
	q.pending[7] = fired

	err := q.DeadLetter(context.Background(), &QueueMessage{ID: "m-1", ReceiptHandle: "7"}, "giving up")
	assert.ErrorIs(t, err, ErrVisibilityExpired)
	assert.Empty(t, q.pending)
}

func TestRabbitQueue_DeadLetterNotConfigured(t *testing.T) {
	q := newClaimOnlyQueue()
	q.opts.DeadLetter = ""
	q.pending[7] = time.AfterFunc(time.Minute, func() {})

	err := q.DeadLetter(context.Background(), &QueueMessage{ID: "m-1", ReceiptHandle: "7"}, "malformed")
	assert.ErrorIs(t, err, ErrNoDeadLetter)
	// 沒有 DLQ 時 timer 要留著，交給 Delete
	assert.Len(t, q.pending, 1)
	q.pending[7].Stop()
}

func TestRabbitQueue_ClaimInvalidHandle(t *testing.T) {
	q := newClaimOnlyQueue()
	_, err := q.claim(&QueueMessage{ReceiptHandle: "abc"})
	assert.ErrorContains(t, err, "invalid receipt handle")
}

func TestRabbitQueue_ClaimStopsTimer(t *testing.T) {
	q := newClaimOnlyQueue()
	requeued := make(chan struct{}, 1)
	q.pending[3] = time.AfterFunc(20*time.Millisecond, func() { requeued <- struct{}{} })

	tag, err := q.claim(&QueueMessage{ReceiptHandle: "3"})
	assert.NoError(t, err)
	assert.Equal(t, uint64(3), tag)

	select {
	case <-requeued:
		t.Fatal("claimed delivery was still released")
	case <-time.After(50 * time.Millisecond):
	}
	_, err = q.claim(&QueueMessage{ReceiptHandle: "3"})
	assert.ErrorIs(t, err, ErrVisibilityExpired)
}
