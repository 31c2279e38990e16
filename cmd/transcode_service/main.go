package main

import (
	"context"
	"fmt"
	"log"
	"os"

	_ "transcode_service/cmd/transcode_service/docs" // 引入生成的 Swagger 文档
	"transcode_service/internal/transcode/api/handlers"
	"transcode_service/internal/transcode/api/router"
	"transcode_service/internal/transcode/app"
	"transcode_service/internal/transcode/bootstrap"
	"transcode_service/pkg/config"
	"transcode_service/pkg/database"
	"transcode_service/pkg/logger"
	testtool "transcode_service/pkg/test_tool"

	"github.com/gofiber/fiber/v2"
	fiber_log "github.com/gofiber/fiber/v2/middleware/logger"
	"go.uber.org/zap"
)

func main() {
	logger.Log = logger.Initialize(config.EnvConfig.TranscodeService, config.EnvConfig.TranscodeServiceLogPath)
	defer logger.Log.Sync()

	cfg := config.LoadConfig[config.Transcode](config.EnvConfig.TranscodeService, config.EnvConfig.TranscodeServiceYAMLPath)
	cfg.ApplyDefaults()
	ctx := context.Background()
	testtool.StartPprof()

	// 1. blob store
	blob, err := bootstrap.NewBlobStore(ctx, cfg)
	if err != nil {
		logger.Log.Fatal("Unable to init blob store", zap.String("driver", cfg.Blob.Driver), zap.Error(err))
	}

	// 2. job ledger (optional)
	jobRepo, closeRepo, err := bootstrap.NewJobRepo(cfg)
	if err != nil {
		logger.Log.Fatal("Unable to init job ledger", zap.Error(err))
	}
	defer closeRepo()

	// 3. completion events (optional)
	publisher, closePublisher, err := bootstrap.NewPublisher(cfg)
	if err != nil {
		logger.Log.Fatal("Unable to init kafka publisher", zap.Error(err))
	}
	defer closePublisher()

	// 4. queue producer for /enqueue, queue.driver = none 時不提供
	var producer database.JobProducer
	if cfg.Queue.Driver != "none" {
		queue, closeQueue, err := bootstrap.NewQueue(ctx, cfg)
		if err != nil {
			logger.Log.Fatal("Unable to init job queue", zap.String("driver", cfg.Queue.Driver), zap.Error(err))
		}
		defer closeQueue()
		producer = queue
	}

	stager, err := app.NewStager(cfg.ScratchDir)
	if err != nil {
		logger.Log.Fatal("Unable to init scratch dir", zap.Error(err))
	}
	task := app.NewTask(blob, app.NewFFmpegEncoder(cfg.FFmpegPath), stager)
	usecase := app.NewTranscodeUseCase(task, blob, jobRepo, publisher, producer)
	transcodeHandler := handlers.NewTranscodeHandler(usecase, cfg.RequestTimeout, cfg.Blob.Bucket)

	// fiber 的 write timeout 要比 request timeout 長，504 才送得出去
	r := fiber.New(fiber.Config{
		ReadTimeout:  cfg.RequestTimeout,
		WriteTimeout: cfg.RequestTimeout + cfg.RequestTimeout/10,
	})
	file, err := os.OpenFile(fmt.Sprintf("%s/access.log", config.EnvConfig.TranscodeServiceLogPath), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0666)
	if err != nil {
		log.Fatalf("Failed to open log file: %v", err)
	}
	defer file.Close()

	r.Use(fiber_log.New(fiber_log.Config{
		Output: file,
	}))

	router.RegisterRoutes(r, transcodeHandler)

	logger.Log.Info(fmt.Sprintf("TranscodeService listening on : %s", cfg.Port), zap.String("scratch_dir", stager.Dir()))
	if err := r.Listen(cfg.IP + ":" + cfg.Port); err != nil {
		logger.Log.Fatal("Server failed to start", zap.Error(err))
	}
}
