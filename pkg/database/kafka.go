package database

import (
	"context"
	"fmt"
	"time"

	"transcode_service/pkg/logger"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// kafkaPublisher EventPublisher on kafka topic
type kafkaPublisher struct {
	writer *kafka.Writer
}

// NewKafkaPublisherWithRetry 先確認 broker 可連線再建立 Writer
func NewKafkaPublisherWithRetry(k KafkaConnection) (EventPublisher, error) {
	var err error
	if k.RetryCount < 1 {
		k.RetryCount = 1
	}

	for attempt := 1; attempt <= k.RetryCount; attempt++ {
		var conn *kafka.Conn
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		conn, err = kafka.DialContext(ctx, "tcp", k.Brokers[0])
		cancel()
		if err == nil {
			conn.Close()
			logger.Log.Info("Kafka broker reachable", zap.Strings("brokers", k.Brokers), zap.Int("attempt", attempt))
			return &kafkaPublisher{
				writer: &kafka.Writer{
					Addr:         kafka.TCP(k.Brokers...),
					Topic:        k.Topic,
					Balancer:     &kafka.Hash{},
					RequiredAcks: kafka.RequireAll,
				},
			}, nil
		}

		logger.Log.Warn("Kafka connect failed, retrying...",
			zap.Int("attempt", attempt),
			zap.Int("retry_count", k.RetryCount),
			zap.Error(err),
		)
		time.Sleep(k.RetryInterval * time.Second)
	}

	return nil, fmt.Errorf("無法建立 Kafka Writer，經過 %d 次嘗試: %w", k.RetryCount, err)
}

// Publish write one message, key 決定 partition
func (p *kafkaPublisher) Publish(ctx context.Context, key string, value []byte) error {
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(key),
		Value: value,
	})
}

func (p *kafkaPublisher) Close() error {
	return p.writer.Close()
}
