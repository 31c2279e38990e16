package app

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"transcode_service/internal/transcode/domain"
	"transcode_service/pkg/database"
	"transcode_service/pkg/logger"

	"go.uber.org/zap"
)

// WorkerOptions worker 建構時注入，不在 loop 內讀環境變數
type WorkerOptions struct {
	// DefaultBucket message 沒帶 bucketName 時使用
	DefaultBucket string
	WaitTime      time.Duration
	PollInterval  time.Duration
	// MaxAttempts 0 = 不限次數，靠 visibility timeout 一直 redeliver
	MaxAttempts int
}

// Worker 一次只處理一則 message，要擴充就多開幾個 process
type Worker struct {
	queue   database.JobQueue
	usecase TranscodeUseCase
	tracker database.AttemptTracker
	opts    WorkerOptions
}

// NewWorker create Worker
func NewWorker(queue database.JobQueue, usecase TranscodeUseCase, tracker database.AttemptTracker, opts WorkerOptions) *Worker {
	if opts.PollInterval <= 0 {
		opts.PollInterval = 3 * time.Second
	}
	if opts.WaitTime <= 0 {
		opts.WaitTime = 10 * time.Second
	}
	// classic queue 沒有 x-delivery-count，不計數的話 max_attempts 永遠不會觸發
	if tracker == nil && opts.MaxAttempts > 0 {
		logger.Log.Warn("no attempt tracker configured, counting attempts in process",
			zap.Int("max_attempts", opts.MaxAttempts),
		)
		tracker = newLocalAttempts()
	}
	return &Worker{
		queue:   queue,
		usecase: usecase,
		tracker: tracker,
		opts:    opts,
	}
}

// Run poll until ctx is cancelled. 進行中的轉碼會做完才返回
func (w *Worker) Run(ctx context.Context) {
	logger.Log.Info("worker started",
		zap.Duration("wait_time", w.opts.WaitTime),
		zap.Duration("poll_interval", w.opts.PollInterval),
		zap.Int("max_attempts", w.opts.MaxAttempts),
	)

	for {
		if ctx.Err() != nil {
			logger.Log.Info("worker stopped")
			return
		}

		handled, err := w.pollOnce(ctx)
		if err != nil {
			logger.Log.Warn("receive failed", zap.Error(err))
		}
		if !handled {
			sleepCtx(ctx, w.opts.PollInterval)
		}
	}
}

// pollOnce receive and process at most one message. handled=false 代表沒收到
func (w *Worker) pollOnce(ctx context.Context) (bool, error) {
	msg, err := w.queue.Receive(ctx, w.opts.WaitTime)
	if err != nil {
		if ctx.Err() != nil {
			return false, nil
		}
		return false, err
	}
	if msg == nil {
		return false, nil
	}

	// shutdown 時讓手上這筆跑完再 ack
	w.handle(context.WithoutCancel(ctx), msg)
	return true, nil
}

func (w *Worker) handle(ctx context.Context, msg *database.QueueMessage) {
	log := logger.Log.With(zap.String("message_id", msg.ID))

	var job domain.JobMessage
	if err := json.Unmarshal(msg.Body, &job); err != nil {
		w.discard(ctx, msg, fmt.Sprintf("%v: %v", domain.ErrMalformedMessage, err))
		return
	}

	attempt := w.attempt(ctx, msg)
	if w.opts.MaxAttempts > 0 && attempt > w.opts.MaxAttempts {
		w.discard(ctx, msg, fmt.Sprintf("attempt %d exceeds max attempts %d", attempt, w.opts.MaxAttempts))
		return
	}

	log.Info("processing job", zap.String("video_key", job.VideoKey), zap.Int("attempt", attempt))
	req := job.ToRequest(w.opts.DefaultBucket)
	if _, err := w.usecase.Execute(ctx, req, domain.SourceQueue, msg.ID); err != nil {
		switch {
		case !domain.IsRetryable(err):
			w.discard(ctx, msg, err.Error())
		case w.opts.MaxAttempts > 0 && attempt >= w.opts.MaxAttempts:
			w.discard(ctx, msg, fmt.Sprintf("giving up after %d attempts: %v", attempt, err))
		default:
			// 不 ack，visibility window 過後重新投遞
			log.Warn("job failed, leaving message for redelivery", zap.Int("attempt", attempt), zap.Error(err))
		}
		return
	}

	if err := w.queue.Delete(ctx, msg); err != nil {
		if errors.Is(err, database.ErrVisibilityExpired) {
			log.Warn("job finished after visibility window, message will be redelivered", zap.Error(err))
		} else {
			log.Error("delete message failed", zap.Error(err))
		}
		return
	}
	w.clearAttempts(ctx, msg)
}

// attempt 第幾次投遞，取 tracker 與 queue receive count 較大者，0 = 未知
func (w *Worker) attempt(ctx context.Context, msg *database.QueueMessage) int {
	if w.tracker == nil {
		return msg.ReceiveCount
	}
	n, err := w.tracker.Incr(ctx, msg.ID)
	if err != nil {
		logger.Log.Warn("attempt tracker incr failed", zap.String("message_id", msg.ID), zap.Error(err))
		return msg.ReceiveCount
	}
	if msg.ReceiveCount > n {
		return msg.ReceiveCount
	}
	return n
}

func (w *Worker) clearAttempts(ctx context.Context, msg *database.QueueMessage) {
	if w.tracker == nil {
		return
	}
	if err := w.tracker.Clear(ctx, msg.ID); err != nil {
		logger.Log.Debug("attempt tracker clear failed", zap.String("message_id", msg.ID), zap.Error(err))
	}
}

// discard 不再重試的 message: 送 dead-letter，沒設定就直接刪除
func (w *Worker) discard(ctx context.Context, msg *database.QueueMessage, reason string) {
	err := w.queue.DeadLetter(ctx, msg, reason)
	if errors.Is(err, database.ErrNoDeadLetter) {
		logger.Log.Warn("no dead-letter destination, dropping message", zap.String("message_id", msg.ID), zap.String("reason", reason))
		err = w.queue.Delete(ctx, msg)
	} else if err == nil {
		logger.Log.Warn("message dead-lettered", zap.String("message_id", msg.ID), zap.String("reason", reason))
	}
	if errors.Is(err, database.ErrVisibilityExpired) {
		logger.Log.Warn("visibility window expired before discard, message will be redelivered", zap.String("message_id", msg.ID))
		return
	}
	if err != nil {
		logger.Log.Error("discard message failed", zap.String("message_id", msg.ID), zap.Error(err))
		return
	}
	w.clearAttempts(ctx, msg)
}

func sleepCtx(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
