package bootstrap

import (
	"context"
	"fmt"
	"time"

	"transcode_service/internal/transcode/repository"
	"transcode_service/pkg/config"
	"transcode_service/pkg/database"
	errprocess "transcode_service/pkg/err"
	"transcode_service/pkg/logger"

	"go.uber.org/zap"
)

// Queue JobQueue + JobProducer，rabbitmq 與 sqs 都實作
type Queue interface {
	database.JobQueue
	database.JobProducer
}

// Closer 關閉連線，依建立的相反順序呼叫
type Closer func()

// NewBlobStore 依 blob.driver 建立 BlobStore (minio | s3)
func NewBlobStore(ctx context.Context, cfg config.Transcode) (database.BlobStore, error) {
	switch cfg.Blob.Driver {
	case "minio":
		mc, err := database.NewMinIOConnection(database.MinIOConnection{
			Endpoint:   fmt.Sprintf("%s:%d", cfg.MinIO.Host, cfg.MinIO.Port),
			User:       cfg.MinIO.User,
			Password:   cfg.MinIO.Password,
			BucketName: cfg.Blob.Bucket,
			UseSSL:     cfg.MinIO.UseSSL,

			RetryCount:    cfg.MinIO.RetryCount,
			RetryInterval: time.Duration(cfg.MinIO.RetryInterval),
		})
		if err != nil {
			return nil, err
		}
		return mc, nil
	case "s3":
		awsCfg, err := database.LoadAWSConfig(ctx, cfg.AWS.Region)
		if err != nil {
			return nil, err
		}
		return database.NewS3Client(awsCfg), nil
	default:
		return nil, errprocess.Set(fmt.Sprintf("unknown blob driver %q", cfg.Blob.Driver))
	}
}

// NewQueue 依 queue.driver 建立 queue (rabbitmq | sqs)
func NewQueue(ctx context.Context, cfg config.Transcode) (Queue, Closer, error) {
	switch cfg.Queue.Driver {
	case "rabbitmq":
		rabbitURL := fmt.Sprintf("amqp://%s:%s@%s:%s/", cfg.RabbitMQ.User, cfg.RabbitMQ.Password, cfg.RabbitMQ.IP, cfg.RabbitMQ.Port)
		conn, err := database.ConnectRabbitMQWithRetry(database.Connection{
			ConnectStr:    rabbitURL,
			RetryCount:    cfg.RabbitMQ.RetryCount,
			RetryInterval: time.Duration(cfg.RabbitMQ.RetryInterval),
		})
		if err != nil {
			return nil, nil, err
		}

		ch, err := database.GetRabbitMQChannelWithRetry(conn, cfg.RabbitMQ.RetryCount, time.Duration(cfg.RabbitMQ.RetryInterval))
		if err != nil {
			conn.Close()
			return nil, nil, err
		}

		q, err := database.NewRabbitQueue(ch, database.RabbitQueueOptions{
			Queue:      cfg.Queue.Name,
			DeadLetter: cfg.Queue.DeadLetter,
			Visibility: cfg.Queue.VisibilityTimeout,
		})
		if err != nil {
			ch.Close()
			conn.Close()
			return nil, nil, err
		}
		return q, func() {
			ch.Close()
			conn.Close()
		}, nil
	case "sqs":
		awsCfg, err := database.LoadAWSConfig(ctx, cfg.AWS.Region)
		if err != nil {
			return nil, nil, err
		}
		return database.NewSQSQueue(awsCfg, cfg.Queue.URL, cfg.Queue.DeadLetter, cfg.Queue.VisibilityTimeout), func() {}, nil
	default:
		return nil, nil, errprocess.Set(fmt.Sprintf("unknown queue driver %q", cfg.Queue.Driver))
	}
}

// NewJobRepo pg 未設定時回傳 nil (不記錄 ledger)
func NewJobRepo(cfg config.Transcode) (repository.JobRepo, Closer, error) {
	if !cfg.PostgreSQL.Enabled() {
		logger.Log.Info("postgreSQL not configured, job ledger disabled")
		return nil, func() {}, nil
	}

	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%d sslmode=disable",
		cfg.PostgreSQL.Host, cfg.PostgreSQL.User, cfg.PostgreSQL.Password, cfg.PostgreSQL.Database, cfg.PostgreSQL.Port)
	db, err := database.NewPGConnection(database.Connection{
		ConnectStr:    dsn,
		RetryCount:    cfg.PostgreSQL.RetryCount,
		RetryInterval: time.Duration(cfg.PostgreSQL.RetryInterval),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("connect postgreSQL [%s:%d]: %w", cfg.PostgreSQL.Host, cfg.PostgreSQL.Port, err)
	}

	jobRepo := repository.NewJobRepo(db)
	if err := jobRepo.AutoMigrate(); err != nil {
		return nil, nil, errprocess.Wrap("資料表遷移失敗", err)
	}

	return jobRepo, func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	}, nil
}

// NewPublisher kafka 未設定時回傳 nil (不發完成事件)
func NewPublisher(cfg config.Transcode) (database.EventPublisher, Closer, error) {
	if !cfg.KafKa.Enabled() {
		logger.Log.Info("kafka not configured, completion events disabled")
		return nil, func() {}, nil
	}

	publisher, err := database.NewKafkaPublisherWithRetry(database.KafkaConnection{
		Brokers:       cfg.KafKa.Brokers,
		Topic:         cfg.KafKa.Topic,
		RetryCount:    cfg.KafKa.RetryCount,
		RetryInterval: time.Duration(cfg.KafKa.RetryInterval),
	})
	if err != nil {
		return nil, nil, err
	}
	return publisher, func() {
		if err := publisher.Close(); err != nil {
			logger.Log.Warn("close kafka writer failed", zap.Error(err))
		}
	}, nil
}

// NewAttemptTracker redis 未設定時回傳 nil (改用 queue 的 receive count)
func NewAttemptTracker(cfg config.Transcode) (database.AttemptTracker, Closer, error) {
	if !cfg.Redis.Enabled() {
		return nil, func() {}, nil
	}

	client, err := database.NewRedisClient(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.RedisDB)
	if err != nil {
		return nil, nil, err
	}
	return database.NewRedisAttemptTracker(client, cfg.Queue.Name, cfg.Redis.TTL), func() {
		client.Close()
	}, nil
}
