package dto

import "ocreceipt/internal/models"

type QualityMetricsResponse struct {
	Brightness       float64 `json:"brightness"`
	Contrast         float64 `json:"contrast"`
	NoiseLevel       float64 `json:"noise_level"`
	IsBinary         bool    `json:"is_binary"`
	NeedsEnhancement bool    `json:"needs_enhancement"`
}

// PreprocessStepResponse is one intermediate preprocessing image, PNG-encoded
// and base64-wrapped for transport. Step order matches pipeline order.
type PreprocessStepResponse struct {
	Name     string `json:"name"`
	ImagePNG string `json:"image_png_base64"`
}

type ExtractReceiptResponse struct {
	RunID       string                    `json:"run_id"`
	Transaction *models.TransactionRecord `json:"transaction,omitempty"`
	RawOCRText  string                    `json:"raw_ocr_text"`
	Quality     *QualityMetricsResponse   `json:"quality,omitempty"`
	Steps       []PreprocessStepResponse  `json:"preprocessing_steps,omitempty"`
	Persisted   bool                      `json:"persisted"`
	Warning     string                    `json:"warning,omitempty"`
}

type HistoryResponse struct {
	Total        int                        `json:"total"`
	Transactions []models.TransactionRecord `json:"transactions"`
}
