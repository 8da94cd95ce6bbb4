package service

import (
	"bytes"
	"context"
	"image"
	"image/png"
	"strings"
	"sync"

	"ocreceipt/pkg/config"

	"github.com/otiai10/gosseract/v2"
	"go.uber.org/zap"
)

// TextRecognizer converts a raster into recognized text.
type TextRecognizer interface {
	Recognize(ctx context.Context, img image.Image) (string, error)
	Close() error
}

// OCRService wraps a Tesseract engine handle. The handle is expensive to
// construct, so it is created lazily on first use and reused across
// invocations; the inference session is not reentrant, so the whole
// recognize path is serialized with a mutex.
type OCRService struct {
	language       string
	tessdataPrefix string
	logger         *zap.Logger

	mu     sync.Mutex
	client *gosseract.Client
}

func NewOCRService(cfg *config.OCRConfig, logger *zap.Logger) *OCRService {
	return &OCRService{
		language:       cfg.Language,
		tessdataPrefix: cfg.TessdataPrefix,
		logger:         logger,
	}
}

// Recognize runs detection and recognition on the given image and returns
// the recognized text in the engine's reading order. An image with no
// detectable text yields an empty string, not an error.
func (s *OCRService) Recognize(ctx context.Context, img image.Image) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return "", err
	}

	if s.client == nil {
		client, err := s.newClient()
		if err != nil {
			return "", &OCRError{Err: err}
		}
		s.client = client
		s.logger.Info("OCR engine initialized", zap.String("language", s.language))
	}

	// Tesseract takes encoded bytes; re-encode the (typically binarized)
	// raster as PNG.
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", &OCRError{Err: err}
	}
	if err := s.client.SetImageFromBytes(buf.Bytes()); err != nil {
		return "", &OCRError{Err: err}
	}

	text, err := s.client.Text()
	if err != nil {
		return "", &OCRError{Err: err}
	}

	text = strings.TrimSpace(text)
	s.logger.Info("OCR extraction completed", zap.Int("text_length", len(text)))
	return text, nil
}

func (s *OCRService) newClient() (*gosseract.Client, error) {
	client := gosseract.NewClient()
	if s.tessdataPrefix != "" {
		client.SetTessdataPrefix(s.tessdataPrefix)
	}
	if err := client.SetLanguage(s.language); err != nil {
		client.Close()
		return nil, err
	}
	return client, nil
}

func (s *OCRService) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.client == nil {
		return nil
	}
	err := s.client.Close()
	s.client = nil
	return err
}
