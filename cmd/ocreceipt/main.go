package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"ocreceipt/internal/api"
	"ocreceipt/internal/api/handlers"
	"ocreceipt/internal/llm"
	"ocreceipt/internal/repository"
	"ocreceipt/internal/service"
	"ocreceipt/pkg/config"
	"ocreceipt/pkg/logger"

	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	appLogger, err := logger.New(cfg.Logger.Level)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	appLogger.Info("Starting ocreceipt service")

	ctx := context.Background()

	llmClient, err := llm.New(ctx, &cfg.LLM, appLogger)
	if err != nil {
		appLogger.Fatal("Failed to initialize LLM client", zap.Error(err))
	}
	defer llmClient.Close()

	ocrService := service.NewOCRService(&cfg.OCR, appLogger)
	defer ocrService.Close()

	structurer := service.NewStructuringService(llmClient, cfg.LLM.MaxTokens, appLogger)
	receiptService := service.NewReceiptService(ocrService, structurer, appLogger)

	history := repository.NewHistoryRepository(cfg.History.FilePath, appLogger)

	receiptHandler := handlers.NewReceiptHandler(receiptService, history, appLogger)

	app := api.SetupRouter(receiptHandler)

	go func() {
		addr := ":" + cfg.Server.Port
		appLogger.Info("Server starting", zap.String("address", addr))
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server")
	if err := app.Shutdown(); err != nil {
		appLogger.Error("Server shutdown error", zap.Error(err))
	}
}
