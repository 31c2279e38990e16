package repository

import (
	"context"
	"errors"
	"time"

	"transcode_service/internal/transcode/domain"

	"gorm.io/gorm"
)

// ErrJobNotFound job id 不存在
var ErrJobNotFound = errors.New("transcode job not found")

// JobRepo transcode job ledger
type JobRepo interface {
	AutoMigrate() error
	Create(ctx context.Context, job *domain.TranscodeJob) error
	UpdateState(ctx context.Context, jobID string, state domain.State) error
	Complete(ctx context.Context, jobID string, result domain.TranscodeResult) error
	Fail(ctx context.Context, jobID string, failedIn domain.State, cause string) error
	GetByJobID(ctx context.Context, jobID string) (*domain.TranscodeJob, error)
	FindByState(ctx context.Context, state domain.State, limit int) ([]domain.TranscodeJob, error)
}

type jobRepo struct {
	db *gorm.DB
}

// NewJobRepo create JobRepo
func NewJobRepo(db *gorm.DB) JobRepo {
	return &jobRepo{db: db}
}

func (r *jobRepo) AutoMigrate() error {
	return r.db.AutoMigrate(&domain.TranscodeJob{})
}

func (r *jobRepo) Create(ctx context.Context, job *domain.TranscodeJob) error {
	return r.db.WithContext(ctx).Create(job).Error
}

// UpdateState 只更新 state 欄位
func (r *jobRepo) UpdateState(ctx context.Context, jobID string, state domain.State) error {
	return r.updates(ctx, jobID, map[string]interface{}{"state": state})
}

func (r *jobRepo) Complete(ctx context.Context, jobID string, result domain.TranscodeResult) error {
	now := time.Now()
	return r.updates(ctx, jobID, map[string]interface{}{
		"state":        domain.StateCompleted,
		"output_key":   result.OutputKey,
		"size_bytes":   result.SizeBytes,
		"completed_at": &now,
	})
}

func (r *jobRepo) Fail(ctx context.Context, jobID string, failedIn domain.State, cause string) error {
	now := time.Now()
	return r.updates(ctx, jobID, map[string]interface{}{
		"state":        domain.StateFailed,
		"failed_in":    failedIn,
		"error":        cause,
		"completed_at": &now,
	})
}

// Updates with map 才會寫入 zero value
func (r *jobRepo) updates(ctx context.Context, jobID string, fields map[string]interface{}) error {
	res := r.db.WithContext(ctx).Model(&domain.TranscodeJob{}).Where("job_id = ?", jobID).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrJobNotFound
	}
	return nil
}

func (r *jobRepo) GetByJobID(ctx context.Context, jobID string) (*domain.TranscodeJob, error) {
	var job domain.TranscodeJob
	err := r.db.WithContext(ctx).Where("job_id = ?", jobID).First(&job).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, err
	}
	return &job, nil
}

// FindByState 依建立時間新到舊，state 為空時不過濾，limit <= 0 不限筆數
func (r *jobRepo) FindByState(ctx context.Context, state domain.State, limit int) ([]domain.TranscodeJob, error) {
	var jobs []domain.TranscodeJob
	q := r.db.WithContext(ctx).Order("created_at desc")
	if state != "" {
		q = q.Where("state = ?", state)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&jobs).Error; err != nil {
		return nil, err
	}
	return jobs, nil
}
