package service

import "fmt"

// OCRError wraps engine initialization or inference failures. Fatal for the
// invocation; the engine never partially returns.
type OCRError struct {
	Err error
}

func (e *OCRError) Error() string {
	return fmt.Sprintf("ocr: %v", e.Err)
}

func (e *OCRError) Unwrap() error { return e.Err }

// MalformedResponseError reports a completion that could not be parsed as
// JSON even after fence stripping. The raw response is kept for diagnostics;
// the call is not retried.
type MalformedResponseError struct {
	RawResponse string
	Err         error
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed completion response: %v", e.Err)
}

func (e *MalformedResponseError) Unwrap() error { return e.Err }

// SchemaValidationError reports parsed JSON whose fields do not fit the
// transaction record schema.
type SchemaValidationError struct {
	Field  string
	Reason string
}

func (e *SchemaValidationError) Error() string {
	return fmt.Sprintf("schema validation: field %q %s", e.Field, e.Reason)
}
