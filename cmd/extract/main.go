// Command extract runs the receipt pipeline once on an image file and prints
// the extracted transaction as JSON. With -debug it also dumps every
// intermediate preprocessing image as PNG files.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"ocreceipt/internal/llm"
	"ocreceipt/internal/repository"
	"ocreceipt/internal/service"
	"ocreceipt/pkg/config"
	"ocreceipt/pkg/logger"

	"github.com/disintegration/imaging"
	"go.uber.org/zap"
)

func main() {
	var (
		filePath     = flag.String("file", "", "path to a receipt screenshot (PNG/JPEG)")
		debug        = flag.Bool("debug", false, "dump intermediate preprocessing images")
		noPreprocess = flag.Bool("no-preprocess", false, "feed the raw image to OCR without enhancement")
		historyPath  = flag.String("out", "", "history file to append to (default from HISTORY_FILE)")
	)
	flag.Parse()

	if *filePath == "" {
		flag.Usage()
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if *historyPath != "" {
		cfg.History.FilePath = *historyPath
	}

	appLogger, err := logger.New(cfg.Logger.Level)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer appLogger.Sync()

	data, err := os.ReadFile(*filePath)
	if err != nil {
		appLogger.Fatal("Failed to read image", zap.Error(err))
	}

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

	result, err := receiptService.Process(ctx, data, service.ProcessOptions{
		Preprocess: !*noPreprocess,
		Debug:      *debug,
	})
	if err != nil {
		if result != nil && result.RawText != "" {
			fmt.Fprintf(os.Stderr, "raw OCR text:\n%s\n", result.RawText)
		}
		appLogger.Fatal("Pipeline failed", zap.Error(err))
	}

	if *debug && len(result.Trace) > 0 {
		dir := "trace-" + result.RunID
		if err := os.MkdirAll(dir, 0o755); err != nil {
			appLogger.Fatal("Failed to create trace directory", zap.Error(err))
		}
		for i, step := range result.Trace {
			name := filepath.Join(dir, fmt.Sprintf("%02d_%s.png", i, step.Name))
			if err := imaging.Save(step.Image, name); err != nil {
				appLogger.Warn("Failed to save trace image",
					zap.String("stage", step.Name),
					zap.Error(err),
				)
			}
		}
		appLogger.Info("Trace images written", zap.String("dir", dir))
	}

	history := repository.NewHistoryRepository(cfg.History.FilePath, appLogger)
	if err := history.Append(ctx, result.Record); err != nil {
		appLogger.Error("Failed to append to history", zap.Error(err))
	}

	out, err := json.MarshalIndent(result.Record, "", "  ")
	if err != nil {
		appLogger.Fatal("Failed to encode record", zap.Error(err))
	}
	fmt.Println(string(out))
}
