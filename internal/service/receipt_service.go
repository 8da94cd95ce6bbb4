package service

import (
	"context"
	"fmt"
	"image"

	"ocreceipt/internal/imgproc"
	"ocreceipt/internal/models"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ReceiptService orchestrates a single pipeline invocation: decode and
// preprocess the screenshot, recognize text, structure it into a record.
// Persistence is the caller's step so that a failed write can be reported
// separately from a successfully produced record.
type ReceiptService struct {
	ocr        TextRecognizer
	structurer *StructuringService
	logger     *zap.Logger
}

func NewReceiptService(ocr TextRecognizer, structurer *StructuringService, logger *zap.Logger) *ReceiptService {
	return &ReceiptService{
		ocr:        ocr,
		structurer: structurer,
		logger:     logger,
	}
}

type ProcessOptions struct {
	// Preprocess enables the adaptive enhancement pipeline; when false the
	// decoded image is fed to OCR as-is.
	Preprocess bool
	// Debug records every intermediate preprocessing image.
	Debug bool
}

// ProcessResult carries whatever the pipeline produced. On a structuring
// failure the raw OCR text, metrics, and trace are still populated so callers
// can present partial progress.
type ProcessResult struct {
	RunID   string
	Record  *models.TransactionRecord
	RawText string
	Metrics *imgproc.QualityMetrics
	Trace   []imgproc.Step
}

// Process runs the pipeline on raw image bytes. Unreadable bytes short-circuit
// with a DecodeError before any OCR or completion call is made.
func (s *ReceiptService) Process(ctx context.Context, data []byte, opts ProcessOptions) (*ProcessResult, error) {
	res := &ProcessResult{RunID: uuid.New().String()}

	log := s.logger.With(zap.String("run_id", res.RunID))
	log.Info("processing receipt",
		zap.Int("bytes", len(data)),
		zap.Bool("preprocess", opts.Preprocess),
		zap.Bool("debug", opts.Debug),
	)

	var img image.Image
	if opts.Preprocess {
		pre, err := imgproc.Preprocess(data, opts.Debug)
		if err != nil {
			return nil, err
		}
		res.Metrics = &pre.Metrics
		res.Trace = pre.Trace
		img = pre.Image
	} else {
		decoded, err := imgproc.Decode(data)
		if err != nil {
			return nil, err
		}
		img = decoded
	}

	text, err := s.ocr.Recognize(ctx, img)
	if err != nil {
		return res, fmt.Errorf("recognize: %w", err)
	}
	res.RawText = sanitizeUTF8(text)

	record, err := s.structurer.Structure(ctx, res.RawText)
	if err != nil {
		return res, fmt.Errorf("structure: %w", err)
	}
	res.Record = record

	log.Info("receipt processed", zap.Int("ocr_text_length", len(res.RawText)))
	return res, nil
}
