package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"ocreceipt/internal/llm"
	"ocreceipt/internal/models"

	"go.uber.org/zap"
)

const structuringSystemInstruction = "You are a transaction receipt parser. " +
	"You read raw OCR text from payment receipt screenshots and return the " +
	"extracted fields as a single valid JSON object, nothing else."

// StructuringService turns raw OCR text into a validated TransactionRecord
// through a single deterministic completion call. There is no retry: a failed
// call is terminal for the invocation.
type StructuringService struct {
	client    llm.Client
	maxTokens int
	logger    *zap.Logger
}

func NewStructuringService(client llm.Client, maxTokens int, logger *zap.Logger) *StructuringService {
	if maxTokens <= 0 {
		maxTokens = 1024
	}
	return &StructuringService{
		client:    client,
		maxTokens: maxTokens,
		logger:    logger,
	}
}

func buildPrompt(ocrText string) string {
	return fmt.Sprintf(`Below is the raw text extracted from a payment receipt screenshot using OCR.

RAW OCR TEXT:
%s

Analyze this text and extract transaction information in a structured JSON format.

Extract the following fields (use null if not found):
- transaction_status: (e.g., "Successful", "Failed", "Pending")
- sender_name: Full name of sender
- sender_account: Account number or ID of sender
- recipient_name: Full name of recipient
- recipient_account: Account number or ID of recipient
- amount: Numeric amount transferred (just the number)
- currency: Currency symbol or code (e.g., "Rs", "PKR", "USD")
- transaction_date: Date of transaction
- transaction_time: Time of transaction
- transaction_id: Transaction ID or reference number (like TID)
- payment_method: Method/platform used (e.g., "EasyPaisa", "JazzCash", "Bank Transfer")
- bank_name: Bank name if applicable
- notes: Any additional notes or messages
- fee: Transaction fee if mentioned
- any_other_details: Any other relevant information

Return ONLY a valid JSON object with these fields. Do not include any explanation or markdown formatting.`, ocrText)
}

// Structure extracts a transaction record from OCR text. The returned record
// carries the extraction timestamp (UTC, RFC 3339) and the verbatim input as
// provenance.
func (s *StructuringService) Structure(ctx context.Context, ocrText string) (*models.TransactionRecord, error) {
	req := llm.ChatRequest{
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: structuringSystemInstruction},
			{Role: llm.RoleUser, Content: buildPrompt(ocrText)},
		},
		Temperature:    0,
		MaxTokens:      s.maxTokens,
		ResponseFormat: &llm.ResponseFormat{Type: "json_object"},
	}

	content, err := s.client.Complete(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("completion: %w", err)
	}

	cleaned := stripCodeFence(content)

	// UseNumber keeps the model's numeric literals verbatim so coercion
	// preserves their exact lexical form.
	dec := json.NewDecoder(strings.NewReader(cleaned))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, &MalformedResponseError{RawResponse: content, Err: err}
	}

	coerceNumericFields(raw)

	rec, err := validateRecord(raw)
	if err != nil {
		return nil, err
	}

	rec.ExtractionTimestamp = time.Now().UTC().Format(time.RFC3339)
	rec.RawOCRText = ocrText

	s.logger.Info("receipt structured",
		zap.Bool("has_amount", rec.Amount != nil),
		zap.Bool("has_transaction_id", rec.TransactionID != nil),
	)
	return rec, nil
}

// coerceNumericFields normalizes amount and fee to strings; models emit them
// sometimes as numbers and sometimes as strings.
func coerceNumericFields(raw map[string]any) {
	for _, key := range []string{"amount", "fee"} {
		if n, ok := raw[key].(json.Number); ok {
			raw[key] = n.String()
		}
	}
}

// validateRecord maps the parsed object onto the fixed 15-field schema.
// Unknown fields are dropped, missing fields stay null, and any value that is
// not a string or null fails validation.
func validateRecord(raw map[string]any) (*models.TransactionRecord, error) {
	rec := &models.TransactionRecord{}
	fields := map[string]**string{
		"transaction_status": &rec.TransactionStatus,
		"sender_name":        &rec.SenderName,
		"sender_account":     &rec.SenderAccount,
		"recipient_name":     &rec.RecipientName,
		"recipient_account":  &rec.RecipientAccount,
		"amount":             &rec.Amount,
		"currency":           &rec.Currency,
		"transaction_date":   &rec.TransactionDate,
		"transaction_time":   &rec.TransactionTime,
		"transaction_id":     &rec.TransactionID,
		"payment_method":     &rec.PaymentMethod,
		"bank_name":          &rec.BankName,
		"notes":              &rec.Notes,
		"fee":                &rec.Fee,
		"any_other_details":  &rec.AnyOtherDetails,
	}

	for name, dst := range fields {
		v, ok := raw[name]
		if !ok || v == nil {
			continue
		}
		str, ok := v.(string)
		if !ok {
			return nil, &SchemaValidationError{
				Field:  name,
				Reason: fmt.Sprintf("expected string or null, got %T", v),
			}
		}
		*dst = &str
	}

	return rec, nil
}
