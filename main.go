package main

import (
	"transcode_service/internal/transcode/api/router"

	"github.com/gofiber/fiber/v2"
)

// 此程式用於 init swagger
// swag init -g main.go -o ./cmd/transcode_service/docs --parseDependency
func main() {
	app := fiber.New()

	router.RegisterRoutes(app, nil)
}
