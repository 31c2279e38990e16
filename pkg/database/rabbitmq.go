package database

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"transcode_service/pkg/logger"

	"github.com/google/uuid"
	"github.com/streadway/amqp"
	"go.uber.org/zap"
)

// ErrNoDeadLetter dead-letter destination 未設定
var ErrNoDeadLetter = errors.New("dead-letter destination not configured")

// ErrVisibilityExpired 已超過 visibility window，訊息已重新排入 queue
var ErrVisibilityExpired = errors.New("visibility window expired, message already released")

// JobProducer 發布轉碼工作
type JobProducer interface {
	Enqueue(ctx context.Context, body []byte) error
}

// RabbitQueueOptions rabbitmq JobQueue setting
type RabbitQueueOptions struct {
	Queue      string
	DeadLetter string
	// Visibility 收到後多久未 ack 就 Nack(requeue)
	Visibility time.Duration
	// GetInterval long-poll 期間 basic.get 的間隔
	GetInterval time.Duration
}

// RabbitQueue JobQueue on rabbitmq
// basic.get 取一則訊息，visibility window 用 timer 到期 Nack(requeue) 模擬
type RabbitQueue struct {
	channel *amqp.Channel
	opts    RabbitQueueOptions

	mu      sync.Mutex
	pending map[uint64]*time.Timer
}

var (
	_ JobQueue    = (*RabbitQueue)(nil)
	_ JobProducer = (*RabbitQueue)(nil)
)

// ConnectRabbitMQWithRetry 嘗試連線到 RabbitMQ
func ConnectRabbitMQWithRetry(d Connection) (*amqp.Connection, error) {
	var conn *amqp.Connection
	var err error
	if d.RetryCount < 1 {
		d.RetryCount = 1
	}

	for attempt := 1; attempt <= d.RetryCount; attempt++ {
		conn, err = amqp.Dial(d.ConnectStr)
		if err == nil {
			logger.Log.Info("RabbitMQ connected", zap.Int("attempt", attempt))
			return conn, nil
		}

		logger.Log.Warn("RabbitMQ connect failed, retrying...",
			zap.Int("attempt", attempt),
			zap.Int("retry_count", d.RetryCount),
			zap.Error(err),
		)
		time.Sleep(d.RetryInterval * time.Second)
	}

	return nil, fmt.Errorf("無法連線 RabbitMQ，經過 %d 次嘗試: %w", d.RetryCount, err)
}

// GetRabbitMQChannelWithRetry 使用已有的 RabbitMQ 連線嘗試取得 Channel
func GetRabbitMQChannelWithRetry(conn *amqp.Connection, maxRetries int, baseDelay time.Duration) (*amqp.Channel, error) {
	var ch *amqp.Channel
	var err error

	for attempt := 1; attempt <= maxRetries; attempt++ {
		ch, err = conn.Channel()
		if err == nil {
			return ch, nil
		}

		logger.Log.Warn("RabbitMQ channel failed, retrying...", zap.Int("attempt", attempt), zap.Error(err))
		time.Sleep(baseDelay * time.Second)
	}

	return nil, fmt.Errorf("無法取得 RabbitMQ Channel，經過 %d 次嘗試: %w", maxRetries, err)
}

// NewRabbitQueue create RabbitQueue, queue 必須已存在 (passive declare)
func NewRabbitQueue(ch *amqp.Channel, opts RabbitQueueOptions) (*RabbitQueue, error) {
	if opts.GetInterval <= 0 {
		opts.GetInterval = 500 * time.Millisecond
	}
	if _, err := ch.QueueDeclarePassive(opts.Queue, true, false, false, false, nil); err != nil {
		return nil, fmt.Errorf("queue [%s] 不存在: %w", opts.Queue, err)
	}
	return &RabbitQueue{
		channel: ch,
		opts:    opts,
		pending: make(map[uint64]*time.Timer),
	}, nil
}

// Receive basic.get until a message arrives or wait elapses
func (q *RabbitQueue) Receive(ctx context.Context, wait time.Duration) (*QueueMessage, error) {
	deadline := time.Now().Add(wait)
	for {
		d, ok, err := q.channel.Get(q.opts.Queue, false)
		if err != nil {
			return nil, fmt.Errorf("basic.get [%s]: %w", q.opts.Queue, err)
		}
		if ok {
			return q.track(d), nil
		}
		if !time.Now().Before(deadline) {
			return nil, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(q.opts.GetInterval):
		}
	}
}

func (q *RabbitQueue) track(d amqp.Delivery) *QueueMessage {
	tag := d.DeliveryTag
	timer := time.AfterFunc(q.opts.Visibility, func() {
		q.mu.Lock()
		delete(q.pending, tag)
		q.mu.Unlock()
		if err := q.channel.Nack(tag, false, true); err != nil {
			logger.Log.Error("visibility expired, nack failed", zap.Uint64("delivery_tag", tag), zap.Error(err))
		}
	})

	q.mu.Lock()
	q.pending[tag] = timer
	q.mu.Unlock()

	return &QueueMessage{
		ID:            messageID(d),
		Body:          d.Body,
		ReceiptHandle: strconv.FormatUint(tag, 10),
		ReceiveCount:  deliveryCount(d),
	}
}

// Delete ack the delivery if it is still inside its visibility window
func (q *RabbitQueue) Delete(ctx context.Context, msg *QueueMessage) error {
	tag, err := q.claim(msg)
	if err != nil {
		return err
	}
	return q.channel.Ack(tag, false)
}

// DeadLetter publish body to dead-letter queue then ack the original
// 先搶下 visibility timer，window 已過就不發，避免同一則同時進 DLQ 又被 requeue
func (q *RabbitQueue) DeadLetter(ctx context.Context, msg *QueueMessage, reason string) error {
	if q.opts.DeadLetter == "" {
		return ErrNoDeadLetter
	}
	tag, err := q.claim(msg)
	if err != nil {
		return err
	}

	err = q.channel.Publish("", q.opts.DeadLetter, false, false, amqp.Publishing{
		ContentType: "application/json",
		MessageId:   msg.ID,
		Timestamp:   time.Now(),
		Headers:     amqp.Table{"x-dead-letter-reason": reason},
		Body:        msg.Body,
	})
	if err != nil {
		// timer 已停，交還給 queue
		if nackErr := q.channel.Nack(tag, false, true); nackErr != nil {
			logger.Log.Error("nack after dead-letter failure", zap.Uint64("delivery_tag", tag), zap.Error(nackErr))
		}
		return fmt.Errorf("publish dead-letter [%s]: %w", q.opts.DeadLetter, err)
	}
	return q.channel.Ack(tag, false)
}

// claim 停掉 visibility timer 並取回 delivery tag，timer 已觸發則回傳 ErrVisibilityExpired
func (q *RabbitQueue) claim(msg *QueueMessage) (uint64, error) {
	tag, err := strconv.ParseUint(msg.ReceiptHandle, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid receipt handle %q: %w", msg.ReceiptHandle, err)
	}

	q.mu.Lock()
	timer, ok := q.pending[tag]
	if ok {
		delete(q.pending, tag)
	}
	q.mu.Unlock()

	if !ok || !timer.Stop() {
		return 0, ErrVisibilityExpired
	}
	return tag, nil
}

// Enqueue publish a job message
func (q *RabbitQueue) Enqueue(ctx context.Context, body []byte) error {
	return q.channel.Publish("", q.opts.Queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Timestamp:    time.Now(),
		Body:         body,
	})
}

// messageID 優先用 producer 給的 MessageId，沒有就用 body hash，redeliver 時保持一致
func messageID(d amqp.Delivery) string {
	if d.MessageId != "" {
		return d.MessageId
	}
	sum := sha256.Sum256(d.Body)
	return hex.EncodeToString(sum[:16])
}

// deliveryCount quorum queue 才有 x-delivery-count
func deliveryCount(d amqp.Delivery) int {
	if v, ok := d.Headers["x-delivery-count"]; ok {
		switch n := v.(type) {
		case int64:
			return int(n) + 1
		case int32:
			return int(n) + 1
		case int:
			return n + 1
		}
	}
	return 0
}
