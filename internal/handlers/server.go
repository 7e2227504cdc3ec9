package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/codebuildervaibhav/audio-quiz/internal/logger"
)

// NewApp wires middleware and routes.
func NewApp(quizHandler *QuizHandler, store Pinger, log *logger.Logger) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:               "audioquiz",
		DisableStartupMessage: true,
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New(fiberlogger.Config{
		Output: log.Zerolog(),
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept",
		AllowMethods: "GET",
	}))

	app.Get("/health", Health(store))
	app.Get("/api/audio-quiz", quizHandler.Handle)
	app.Get("/generate-quiz", quizHandler.Handle)
	return app
}
