package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"transcode_service/internal/transcode/domain"
	"transcode_service/internal/transcode/repository"
	"transcode_service/pkg/database"
	"transcode_service/pkg/logger"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// 未設定對應的 backend
var (
	ErrLedgerDisabled = errors.New("job ledger not configured")
	ErrQueueDisabled  = errors.New("job queue producer not configured")
)

// TaskRunner 執行一次轉碼 (Task)
type TaskRunner interface {
	Run(ctx context.Context, req domain.TranscodeRequest, observe StateObserver) (*domain.TranscodeResult, error)
}

// TranscodeUseCase 轉碼服務對外提供的操作，HTTP 與 worker 共用
type TranscodeUseCase interface {
	// Execute 執行一次轉碼並記錄 ledger / 發出完成事件
	Execute(ctx context.Context, req domain.TranscodeRequest, source, messageID string) (*domain.TranscodeResult, error)
	Enqueue(ctx context.Context, msg domain.JobMessage) error
	GetJob(ctx context.Context, jobID string) (*domain.TranscodeJob, error)
	ListJobs(ctx context.Context, state domain.State, limit int) ([]domain.TranscodeJob, error)
	Stat(ctx context.Context, bucket, key string) (database.ObjectInfo, error)
}

type transcodeUseCase struct {
	task      TaskRunner
	blob      database.BlobStore
	jobRepo   repository.JobRepo      // nil = 不記錄
	publisher database.EventPublisher // nil = 不發事件
	producer  database.JobProducer    // nil = 不提供 enqueue
}

// NewTranscodeUseCase jobRepo / publisher / producer 可為 nil
func NewTranscodeUseCase(task TaskRunner,
	blob database.BlobStore,
	jobRepo repository.JobRepo,
	publisher database.EventPublisher,
	producer database.JobProducer,
) TranscodeUseCase {
	return &transcodeUseCase{
		task:      task,
		blob:      blob,
		jobRepo:   jobRepo,
		publisher: publisher,
		producer:  producer,
	}
}

// Execute ledger 與事件都是 bookkeeping，失敗只記 log，不影響轉碼結果
func (u *transcodeUseCase) Execute(ctx context.Context, req domain.TranscodeRequest, source, messageID string) (*domain.TranscodeResult, error) {
	jobID := uuid.NewString()
	log := logger.Log.With(zap.String("job_id", jobID), zap.String("source", source), zap.String("key", req.SourceKey))

	u.createJob(ctx, jobID, req, source, messageID)

	result, err := u.task.Run(ctx, req, func(s domain.State) {
		log.Debug("state", zap.String("state", string(s)))
		if s != domain.StateReceived {
			u.updateState(ctx, jobID, s)
		}
	})
	if err != nil {
		failedIn := domain.FailedState(err)
		log.Warn("transcode failed", zap.String("failed_in", string(failedIn)), zap.Error(err))
		if u.jobRepo != nil {
			if rErr := u.jobRepo.Fail(ctx, jobID, failedIn, err.Error()); rErr != nil {
				log.Error("ledger fail update failed", zap.Error(rErr))
			}
		}
		return nil, err
	}

	log.Info("transcode completed", zap.String("out_key", result.OutputKey), zap.Int64("size", result.SizeBytes))
	if u.jobRepo != nil {
		if rErr := u.jobRepo.Complete(ctx, jobID, *result); rErr != nil {
			log.Error("ledger complete update failed", zap.Error(rErr))
		}
	}
	u.publishCompleted(ctx, jobID, req, result)
	return result, nil
}

func (u *transcodeUseCase) createJob(ctx context.Context, jobID string, req domain.TranscodeRequest, source, messageID string) {
	if u.jobRepo == nil {
		return
	}
	job := &domain.TranscodeJob{
		JobID:        jobID,
		Source:       source,
		MessageID:    messageID,
		SourceBucket: req.SourceBucket,
		SourceKey:    req.SourceKey,
		OutputFormat: req.Format(),
		State:        domain.StateReceived,
		OwnerID:      req.OwnerID,
		UploadID:     req.UploadID,
		OriginalName: req.OriginalName,
		DisplayName:  req.DisplayName,
		Note:         req.Note,
	}
	if err := u.jobRepo.Create(ctx, job); err != nil {
		logger.Log.Error("ledger create failed", zap.String("job_id", jobID), zap.Error(err))
	}
}

func (u *transcodeUseCase) updateState(ctx context.Context, jobID string, s domain.State) {
	if u.jobRepo == nil {
		return
	}
	if err := u.jobRepo.UpdateState(ctx, jobID, s); err != nil {
		logger.Log.Error("ledger state update failed", zap.String("job_id", jobID), zap.Error(err))
	}
}

// publishCompleted 交給 catalog 建立紀錄，重複事件由 catalog 自行 dedupe
func (u *transcodeUseCase) publishCompleted(ctx context.Context, jobID string, req domain.TranscodeRequest, result *domain.TranscodeResult) {
	if u.publisher == nil {
		return
	}
	event := domain.CompletedEvent{
		JobID:        jobID,
		SourceBucket: req.SourceBucket,
		SourceKey:    req.SourceKey,
		OutKey:       result.OutputKey,
		Size:         result.SizeBytes,
		OwnerID:      req.OwnerID,
		UploadID:     req.UploadID,
		OriginalName: req.OriginalName,
		DisplayName:  req.DisplayName,
		Note:         req.Note,
	}
	body, err := json.Marshal(event)
	if err != nil {
		logger.Log.Error("marshal completed event failed", zap.String("job_id", jobID), zap.Error(err))
		return
	}
	if err := u.publisher.Publish(ctx, jobID, body); err != nil {
		logger.Log.Error("publish completed event failed", zap.String("job_id", jobID), zap.Error(err))
	}
}

// Enqueue 送一筆工作到 queue，讓 worker 非同步處理
func (u *transcodeUseCase) Enqueue(ctx context.Context, msg domain.JobMessage) error {
	if u.producer == nil {
		return ErrQueueDisabled
	}
	if _, err := Validate(msg.ToRequest(msg.BucketName)); err != nil {
		return err
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("marshal job message: %w", err)
	}
	return u.producer.Enqueue(ctx, body)
}

func (u *transcodeUseCase) GetJob(ctx context.Context, jobID string) (*domain.TranscodeJob, error) {
	if u.jobRepo == nil {
		return nil, ErrLedgerDisabled
	}
	return u.jobRepo.GetByJobID(ctx, jobID)
}

func (u *transcodeUseCase) ListJobs(ctx context.Context, state domain.State, limit int) ([]domain.TranscodeJob, error) {
	if u.jobRepo == nil {
		return nil, ErrLedgerDisabled
	}
	return u.jobRepo.FindByState(ctx, state, limit)
}

func (u *transcodeUseCase) Stat(ctx context.Context, bucket, key string) (database.ObjectInfo, error) {
	return u.blob.Stat(ctx, bucket, key)
}
