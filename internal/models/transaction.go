package models

// TransactionRecord is the validated output of the structuring engine.
// Every extracted field is either a string or explicit null; numeric-looking
// values (amount, fee) are coerced to strings after parsing so the schema
// stays uniform regardless of how the model emits them.
type TransactionRecord struct {
	TransactionStatus *string `json:"transaction_status"`
	SenderName        *string `json:"sender_name"`
	SenderAccount     *string `json:"sender_account"`
	RecipientName     *string `json:"recipient_name"`
	RecipientAccount  *string `json:"recipient_account"`
	Amount            *string `json:"amount"`
	Currency          *string `json:"currency"`
	TransactionDate   *string `json:"transaction_date"`
	TransactionTime   *string `json:"transaction_time"`
	TransactionID     *string `json:"transaction_id"`
	PaymentMethod     *string `json:"payment_method"`
	BankName          *string `json:"bank_name"`
	Notes             *string `json:"notes"`
	Fee               *string `json:"fee"`
	AnyOtherDetails   *string `json:"any_other_details"`

	// Provenance, always present.
	ExtractionTimestamp string `json:"extraction_timestamp"`
	RawOCRText          string `json:"raw_ocr_text"`
}
