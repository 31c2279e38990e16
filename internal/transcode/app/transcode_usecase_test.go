package app

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"transcode_service/internal/transcode/domain"
	"transcode_service/pkg/database"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// 模擬 task 依序回報狀態
func observesStates(states ...domain.State) func(mock.Arguments) {
	return func(args mock.Arguments) {
		observe := args.Get(2).(StateObserver)
		for _, s := range states {
			observe(s)
		}
	}
}

func TestTranscodeUseCase_Execute_Success(t *testing.T) {
	ctx := context.Background()
	runner := new(MockTaskRunner)
	repo := new(MockJobRepo)
	publisher := new(MockPublisher)
	uc := NewTranscodeUseCase(runner, new(MockBlobStore), repo, publisher, nil)

	req := domain.TranscodeRequest{SourceBucket: "b", SourceKey: "a.mp4", OwnerID: "u1", Note: "hello"}
	result := &domain.TranscodeResult{OutputKey: "outputs/1-x-a.mp4", SizeBytes: 42}

	runner.On("Run", ctx, req, mock.Anything).
		Run(observesStates(domain.StateReceived, domain.StateDownloading, domain.StateEncoding, domain.StateUploading)).
		Return(result, nil)
	repo.On("Create", ctx, mock.MatchedBy(func(j *domain.TranscodeJob) bool {
		return j.State == domain.StateReceived && j.Source == domain.SourceHTTP && j.OwnerID == "u1" && j.OutputFormat == "mp4" && j.JobID != ""
	})).Return(nil)
	repo.On("UpdateState", ctx, mock.Anything, domain.StateDownloading).Return(nil).Once()
	repo.On("UpdateState", ctx, mock.Anything, domain.StateEncoding).Return(nil).Once()
	repo.On("UpdateState", ctx, mock.Anything, domain.StateUploading).Return(nil).Once()
	repo.On("Complete", ctx, mock.Anything, *result).Return(nil)

	var event domain.CompletedEvent
	publisher.On("Publish", ctx, mock.Anything, mock.Anything).Run(func(args mock.Arguments) {
		require.NoError(t, json.Unmarshal(args.Get(2).([]byte), &event))
	}).Return(nil)

	got, err := uc.Execute(ctx, req, domain.SourceHTTP, "")
	require.NoError(t, err)
	assert.Equal(t, result, got)

	assert.Equal(t, "outputs/1-x-a.mp4", event.OutKey)
	assert.Equal(t, int64(42), event.Size)
	assert.Equal(t, "u1", event.OwnerID)
	assert.Equal(t, "hello", event.Note)
	assert.NotEmpty(t, event.JobID)
	repo.AssertExpectations(t)
	publisher.AssertExpectations(t)
}

func TestTranscodeUseCase_Execute_Failed(t *testing.T) {
	ctx := context.Background()
	runner := new(MockTaskRunner)
	repo := new(MockJobRepo)
	publisher := new(MockPublisher)
	uc := NewTranscodeUseCase(runner, new(MockBlobStore), repo, publisher, nil)

	req := domain.TranscodeRequest{SourceBucket: "b", SourceKey: "missing.mp4"}
	taskErr := domain.NewTransferError(domain.StateDownloading, "download b/missing.mp4", errors.New("NoSuchKey"))

	runner.On("Run", ctx, req, mock.Anything).
		Run(observesStates(domain.StateReceived, domain.StateDownloading)).
		Return(nil, taskErr)
	repo.On("Create", ctx, mock.Anything).Return(nil)
	repo.On("UpdateState", ctx, mock.Anything, domain.StateDownloading).Return(nil)
	repo.On("Fail", ctx, mock.Anything, domain.StateDownloading, taskErr.Error()).Return(nil)

	got, err := uc.Execute(ctx, req, domain.SourceQueue, "m-1")
	assert.Nil(t, got)
	assert.Same(t, taskErr, err)
	repo.AssertExpectations(t)
	publisher.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything)
}

func TestTranscodeUseCase_Execute_BookkeepingErrorsIgnored(t *testing.T) {
	ctx := context.Background()
	runner := new(MockTaskRunner)
	repo := new(MockJobRepo)
	publisher := new(MockPublisher)
	uc := NewTranscodeUseCase(runner, new(MockBlobStore), repo, publisher, nil)

	req := domain.TranscodeRequest{SourceBucket: "b", SourceKey: "a.mp4"}
	result := &domain.TranscodeResult{OutputKey: "outputs/k.mp4", SizeBytes: 1}
	dbDown := errors.New("db down")

	runner.On("Run", ctx, req, mock.Anything).Run(observesStates(domain.StateEncoding)).Return(result, nil)
	repo.On("Create", ctx, mock.Anything).Return(dbDown)
	repo.On("UpdateState", ctx, mock.Anything, mock.Anything).Return(dbDown)
	repo.On("Complete", ctx, mock.Anything, mock.Anything).Return(dbDown)
	publisher.On("Publish", ctx, mock.Anything, mock.Anything).Return(errors.New("broker down"))

	got, err := uc.Execute(ctx, req, domain.SourceHTTP, "")
	require.NoError(t, err)
	assert.Equal(t, result, got)
}

func TestTranscodeUseCase_Execute_WithoutLedgerAndEvents(t *testing.T) {
	ctx := context.Background()
	runner := new(MockTaskRunner)
	uc := NewTranscodeUseCase(runner, new(MockBlobStore), nil, nil, nil)

	req := domain.TranscodeRequest{SourceBucket: "b", SourceKey: "a.mp4"}
	runner.On("Run", ctx, req, mock.Anything).
		Run(observesStates(domain.StateReceived, domain.StateDownloading)).
		Return(&domain.TranscodeResult{OutputKey: "k", SizeBytes: 1}, nil)

	got, err := uc.Execute(ctx, req, domain.SourceHTTP, "")
	require.NoError(t, err)
	assert.Equal(t, "k", got.OutputKey)
}

func TestTranscodeUseCase_Enqueue(t *testing.T) {
	ctx := context.Background()

	t.Run("no producer", func(t *testing.T) {
		uc := NewTranscodeUseCase(new(MockTaskRunner), new(MockBlobStore), nil, nil, nil)
		err := uc.Enqueue(ctx, domain.JobMessage{VideoKey: "a.mp4", BucketName: "b"})
		assert.ErrorIs(t, err, ErrQueueDisabled)
	})

	t.Run("invalid message", func(t *testing.T) {
		producer := new(MockProducer)
		uc := NewTranscodeUseCase(new(MockTaskRunner), new(MockBlobStore), nil, nil, producer)
		err := uc.Enqueue(ctx, domain.JobMessage{BucketName: "b"})
		assert.ErrorIs(t, err, domain.ErrValidation)
		producer.AssertNotCalled(t, "Enqueue", mock.Anything, mock.Anything)
	})

	t.Run("queued", func(t *testing.T) {
		producer := new(MockProducer)
		uc := NewTranscodeUseCase(new(MockTaskRunner), new(MockBlobStore), nil, nil, producer)
		producer.On("Enqueue", ctx, mock.MatchedBy(func(body []byte) bool {
			var m domain.JobMessage
			return json.Unmarshal(body, &m) == nil && m.VideoKey == "a.mp4" && m.OutputFormat == "mov"
		})).Return(nil)

		err := uc.Enqueue(ctx, domain.JobMessage{VideoKey: "a.mp4", OutputFormat: "mov", BucketName: "b"})
		require.NoError(t, err)
		producer.AssertExpectations(t)
	})
}

func TestTranscodeUseCase_Queries(t *testing.T) {
	ctx := context.Background()

	t.Run("ledger disabled", func(t *testing.T) {
		uc := NewTranscodeUseCase(new(MockTaskRunner), new(MockBlobStore), nil, nil, nil)
		_, err := uc.GetJob(ctx, "id")
		assert.ErrorIs(t, err, ErrLedgerDisabled)
		_, err = uc.ListJobs(ctx, domain.StateFailed, 10)
		assert.ErrorIs(t, err, ErrLedgerDisabled)
	})

	t.Run("ledger lookup", func(t *testing.T) {
		repo := new(MockJobRepo)
		uc := NewTranscodeUseCase(new(MockTaskRunner), new(MockBlobStore), repo, nil, nil)
		repo.On("GetByJobID", ctx, "id").Return(&domain.TranscodeJob{JobID: "id", State: domain.StateCompleted}, nil)
		repo.On("FindByState", ctx, domain.StateFailed, 10).Return([]domain.TranscodeJob{{JobID: "x"}}, nil)

		job, err := uc.GetJob(ctx, "id")
		require.NoError(t, err)
		assert.Equal(t, domain.StateCompleted, job.State)

		jobs, err := uc.ListJobs(ctx, domain.StateFailed, 10)
		require.NoError(t, err)
		assert.Len(t, jobs, 1)
	})

	t.Run("stat", func(t *testing.T) {
		blob := new(MockBlobStore)
		uc := NewTranscodeUseCase(new(MockTaskRunner), blob, nil, nil, nil)
		blob.On("Stat", ctx, "b", "a.mp4").Return(database.ObjectInfo{Key: "a.mp4", Size: 9}, nil)

		info, err := uc.Stat(ctx, "b", "a.mp4")
		require.NoError(t, err)
		assert.Equal(t, int64(9), info.Size)
	})
}
