package api

import (
	"ocreceipt/internal/api/handlers"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
)

func SetupRouter(receiptHandler *handlers.ReceiptHandler) *fiber.App {
	app := fiber.New(fiber.Config{
		// Screenshots from modern phones can be large.
		BodyLimit: 32 << 20,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept",
	}))
	app.Use(logger.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"service": "ocreceipt",
		})
	})

	api := app.Group("/api/v1")
	receipts := api.Group("/receipts")
	receipts.Post("/extract", receiptHandler.ExtractReceipt)
	receipts.Get("", receiptHandler.ListReceipts)

	return app
}
