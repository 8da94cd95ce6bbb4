package handlers

import (
	"bytes"
	"encoding/base64"
	"errors"
	"io"

	"ocreceipt/internal/dto"
	"ocreceipt/internal/imgproc"
	"ocreceipt/internal/repository"
	"ocreceipt/internal/service"

	"github.com/disintegration/imaging"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

type ReceiptHandler struct {
	receiptService *service.ReceiptService
	history        *repository.HistoryRepository
	logger         *zap.Logger
}

func NewReceiptHandler(receiptService *service.ReceiptService, history *repository.HistoryRepository, logger *zap.Logger) *ReceiptHandler {
	return &ReceiptHandler{
		receiptService: receiptService,
		history:        history,
		logger:         logger,
	}
}

// ExtractReceipt accepts a multipart screenshot upload, runs the pipeline,
// persists the record, and returns it. Form fields: "file" (required),
// "preprocess" (default true), "debug" (default false, returns intermediate
// images). A structuring failure still returns the raw OCR text.
func (h *ReceiptHandler) ExtractReceipt(c *fiber.Ctx) error {
	file, err := c.FormFile("file")
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "File is required",
		})
	}

	src, err := file.Open()
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Failed to open file",
		})
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Failed to read file",
		})
	}

	opts := service.ProcessOptions{
		Preprocess: c.FormValue("preprocess", "true") != "false",
		Debug:      c.FormValue("debug") == "true",
	}

	result, err := h.receiptService.Process(c.Context(), data, opts)
	if err != nil {
		return h.respondProcessError(c, result, err)
	}

	resp := buildExtractResponse(result, opts.Debug)

	resp.Persisted = true
	if err := h.history.Append(c.Context(), result.Record); err != nil {
		// The record was produced; a failed write degrades, not fails.
		h.logger.Error("failed to persist transaction", zap.Error(err))
		resp.Persisted = false
		resp.Warning = "transaction extracted but could not be saved to history"
	}

	return c.JSON(resp)
}

// ListReceipts returns the persisted history in chronological order.
func (h *ReceiptHandler) ListReceipts(c *fiber.Ctx) error {
	records, err := h.history.List(c.Context())
	if err != nil {
		h.logger.Error("failed to list transactions", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to load transaction history",
		})
	}

	limit := c.QueryInt("limit", 50)
	offset := c.QueryInt("offset", 0)

	// Negative values would slice out of range.
	total := len(records)
	if offset < 0 {
		offset = 0
	}
	if offset > total {
		offset = total
	}
	end := offset + limit
	if limit <= 0 || end > total {
		end = total
	}

	return c.JSON(dto.HistoryResponse{
		Total:        total,
		Transactions: records[offset:end],
	})
}

func (h *ReceiptHandler) respondProcessError(c *fiber.Ctx, result *service.ProcessResult, err error) error {
	var decodeErr *imgproc.DecodeError
	var ocrErr *service.OCRError
	var malformedErr *service.MalformedResponseError
	var schemaErr *service.SchemaValidationError

	switch {
	case errors.As(err, &decodeErr):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Unreadable image: " + decodeErr.Error(),
		})
	case errors.As(err, &ocrErr):
		h.logger.Error("OCR failed", zap.Error(err))
		return c.Status(fiber.StatusBadGateway).JSON(fiber.Map{
			"error": "Text recognition failed",
		})
	case errors.As(err, &malformedErr), errors.As(err, &schemaErr):
		h.logger.Error("structuring failed", zap.Error(err))
		resp := buildExtractResponse(result, result != nil && len(result.Trace) > 0)
		resp.Warning = err.Error()
		return c.Status(fiber.StatusUnprocessableEntity).JSON(resp)
	default:
		h.logger.Error("pipeline failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to process receipt",
		})
	}
}

func buildExtractResponse(result *service.ProcessResult, includeSteps bool) dto.ExtractReceiptResponse {
	if result == nil {
		return dto.ExtractReceiptResponse{}
	}

	resp := dto.ExtractReceiptResponse{
		RunID:       result.RunID,
		Transaction: result.Record,
		RawOCRText:  result.RawText,
	}
	if result.Metrics != nil {
		resp.Quality = &dto.QualityMetricsResponse{
			Brightness:       result.Metrics.Brightness,
			Contrast:         result.Metrics.Contrast,
			NoiseLevel:       result.Metrics.NoiseLevel,
			IsBinary:         result.Metrics.IsBinary,
			NeedsEnhancement: result.Metrics.NeedsEnhancement,
		}
	}
	if includeSteps {
		for _, step := range result.Trace {
			var buf bytes.Buffer
			if err := imaging.Encode(&buf, step.Image, imaging.PNG); err != nil {
				continue
			}
			resp.Steps = append(resp.Steps, dto.PreprocessStepResponse{
				Name:     step.Name,
				ImagePNG: base64.StdEncoding.EncodeToString(buf.Bytes()),
			})
		}
	}
	return resp
}
