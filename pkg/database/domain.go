package database

import (
	"context"
	"errors"
	"time"
)

// ErrObjectNotFound bucket/key 不存在，其他錯誤 (網路、權限) 不會包這個
var ErrObjectNotFound = errors.New("object not found")

// Connection definition sql setting
type Connection struct {
	ConnectStr string

	RetryCount    int
	RetryInterval time.Duration
}

// MinIOConnection definition minio
type MinIOConnection struct {
	Endpoint string
	User     string
	Password string
	// BucketName 啟動時只檢查存在，不建立
	BucketName string
	UseSSL     bool

	RetryCount    int
	RetryInterval time.Duration
}

// KafkaConnection definition kafka
type KafkaConnection struct {
	Brokers       []string
	Topic         string
	RetryCount    int
	RetryInterval time.Duration
}

// ObjectInfo blob metadata
type ObjectInfo struct {
	Key          string    `json:"filename"`
	Size         int64     `json:"size"`
	ContentType  string    `json:"type"`
	LastModified time.Time `json:"lastModified"`
}

// BlobStore blob transfer, bucket 由呼叫端指定
// 這層不重試，重試交給呼叫端
type BlobStore interface {
	// Download streams bucket/key into localPath. 失敗時留下的 partial file 由呼叫端清除
	Download(ctx context.Context, bucket, key, localPath string) error
	// Upload writes localPath as a single object and returns the exact byte length written.
	Upload(ctx context.Context, bucket, key, localPath, contentType string) (int64, error)
	Stat(ctx context.Context, bucket, key string) (ObjectInfo, error)
}

// QueueMessage 從 queue 收到的一則訊息
type QueueMessage struct {
	ID            string
	Body          []byte
	ReceiptHandle string
	// ReceiveCount 已投遞次數，driver 不支援時為 0
	ReceiveCount int
}

// JobQueue at-least-once queue with visibility window
type JobQueue interface {
	// Receive long-polls for at most one message, waiting up to wait. (nil, nil) when empty.
	Receive(ctx context.Context, wait time.Duration) (*QueueMessage, error)
	// Delete acknowledges the message permanently.
	Delete(ctx context.Context, msg *QueueMessage) error
	// DeadLetter moves the message to the dead-letter destination and acknowledges it.
	// 未設定 dead-letter 時回傳 ErrNoDeadLetter
	DeadLetter(ctx context.Context, msg *QueueMessage, reason string) error
}

// AttemptTracker counts delivery attempts per message id
type AttemptTracker interface {
	Incr(ctx context.Context, messageID string) (int, error)
	Clear(ctx context.Context, messageID string) error
}

// EventPublisher publish domain events
type EventPublisher interface {
	Publish(ctx context.Context, key string, value []byte) error
	Close() error
}
