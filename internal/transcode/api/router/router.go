package router

import (
	"transcode_service/internal/transcode/api/handlers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/swagger"
)

// RegisterRoutes 注册转码相关的路由
// @title Transcode Service API
// @version 1.0
// @description API documentation for Transcode Service
// @host localhost:8080
// @BasePath /
func RegisterRoutes(app *fiber.App, transcodeHandler *handlers.TranscodeHandler) {
	app.Get("/swagger/*", swagger.HandlerDefault)
	app.Get("/", handlers.ConnectCheck)
	app.Post("/debug", handlers.DebugLogFlag)

	if transcodeHandler == nil {
		return
	}
	app.Post("/start", transcodeHandler.Start)
	app.Post("/enqueue", transcodeHandler.Enqueue)
	app.Get("/metadata", transcodeHandler.Metadata)

	jobRoutes := app.Group("/jobs")
	jobRoutes.Get("/", transcodeHandler.ListJobs)
	// 要在 /:id 之前註冊
	jobRoutes.Get("/export", transcodeHandler.ExportJobs)
	jobRoutes.Get("/:id", transcodeHandler.GetJob)
}
