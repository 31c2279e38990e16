package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"transcode_service/internal/transcode/app"
	"transcode_service/internal/transcode/bootstrap"
	"transcode_service/pkg/config"
	"transcode_service/pkg/logger"
	testtool "transcode_service/pkg/test_tool"

	"go.uber.org/zap"
)

func main() {
	logger.Log = logger.Initialize(config.EnvConfig.TranscodeWorker, config.EnvConfig.TranscodeWorkerLogPath)
	defer logger.Log.Sync()

	cfg := config.LoadConfig[config.Transcode](config.EnvConfig.TranscodeWorker, config.EnvConfig.TranscodeWorkerYAMLPath)
	cfg.ApplyDefaults()
	testtool.StartPprof()

	// SIGINT/SIGTERM 停止 poll，手上的工作做完才結束
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	blob, err := bootstrap.NewBlobStore(ctx, cfg)
	if err != nil {
		logger.Log.Fatal("Unable to init blob store", zap.String("driver", cfg.Blob.Driver), zap.Error(err))
	}

	queue, closeQueue, err := bootstrap.NewQueue(ctx, cfg)
	if err != nil {
		logger.Log.Fatal("Unable to init job queue", zap.String("driver", cfg.Queue.Driver), zap.Error(err))
	}
	defer closeQueue()

	tracker, closeTracker, err := bootstrap.NewAttemptTracker(cfg)
	if err != nil {
		logger.Log.Fatal("Unable to connect to redis", zap.String("addr", cfg.Redis.Addr), zap.Error(err))
	}
	defer closeTracker()

	jobRepo, closeRepo, err := bootstrap.NewJobRepo(cfg)
	if err != nil {
		logger.Log.Fatal("Unable to init job ledger", zap.Error(err))
	}
	defer closeRepo()

	publisher, closePublisher, err := bootstrap.NewPublisher(cfg)
	if err != nil {
		logger.Log.Fatal("Unable to init kafka publisher", zap.Error(err))
	}
	defer closePublisher()

	stager, err := app.NewStager(cfg.ScratchDir)
	if err != nil {
		logger.Log.Fatal("Unable to init scratch dir", zap.Error(err))
	}
	task := app.NewTask(blob, app.NewFFmpegEncoder(cfg.FFmpegPath), stager)
	usecase := app.NewTranscodeUseCase(task, blob, jobRepo, publisher, queue)

	worker := app.NewWorker(queue, usecase, tracker, app.WorkerOptions{
		DefaultBucket: cfg.Blob.Bucket,
		WaitTime:      cfg.Queue.WaitTime,
		PollInterval:  cfg.Queue.PollInterval,
		MaxAttempts:   cfg.Worker.MaxAttempts,
	})
	worker.Run(ctx)
}
