package handlers_test

import (
	"bytes"
	"context"
	"encoding/json"
	"image"
	"image/png"
	"io"
	"mime/multipart"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"ocreceipt/internal/api"
	"ocreceipt/internal/api/handlers"
	"ocreceipt/internal/dto"
	"ocreceipt/internal/llm"
	"ocreceipt/internal/models"
	"ocreceipt/internal/repository"
	"ocreceipt/internal/service"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeRecognizer struct {
	text  string
	err   error
	calls int
}

func (f *fakeRecognizer) Recognize(_ context.Context, _ image.Image) (string, error) {
	f.calls++
	return f.text, f.err
}

func (f *fakeRecognizer) Close() error { return nil }

type fakeCompleter struct {
	response string
	err      error
}

func (f *fakeCompleter) Complete(_ context.Context, _ llm.ChatRequest) (string, error) {
	return f.response, f.err
}

func (f *fakeCompleter) Close() error { return nil }

func testApp(t *testing.T, recognizer *fakeRecognizer, completer *fakeCompleter, historyPath string) (*fiber.App, *repository.HistoryRepository) {
	t.Helper()
	if historyPath == "" {
		historyPath = filepath.Join(t.TempDir(), "transactions.json")
	}

	log := zap.NewNop()
	structurer := service.NewStructuringService(completer, 1024, log)
	receiptService := service.NewReceiptService(recognizer, structurer, log)
	history := repository.NewHistoryRepository(historyPath, log)
	handler := handlers.NewReceiptHandler(receiptService, history, log)
	return api.SetupRouter(handler), history
}

func receiptPNG(t *testing.T) []byte {
	t.Helper()
	img := image.NewGray(image.Rect(0, 0, 64, 64))
	for y := 0; y < 64; y++ {
		for x := 0; x < 64; x++ {
			if (x+y)%2 == 0 {
				img.Pix[y*img.Stride+x] = 255
			}
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func uploadRequest(t *testing.T, fileData []byte, fields map[string]string) (string, *bytes.Buffer) {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	if fileData != nil {
		part, err := w.CreateFormFile("file", "receipt.png")
		require.NoError(t, err)
		_, err = part.Write(fileData)
		require.NoError(t, err)
	}
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	require.NoError(t, w.Close())
	return w.FormDataContentType(), &body
}

func postExtract(t *testing.T, app *fiber.App, fileData []byte, fields map[string]string) (int, []byte) {
	t.Helper()
	contentType, body := uploadRequest(t, fileData, fields)
	req := httptest.NewRequest(fiber.MethodPost, "/api/v1/receipts/extract", body)
	req.Header.Set("Content-Type", contentType)

	resp, err := app.Test(req, 5000)
	require.NoError(t, err)
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return resp.StatusCode, respBody
}

func TestExtractRequiresFile(t *testing.T) {
	app, _ := testApp(t, &fakeRecognizer{}, &fakeCompleter{response: `{}`}, "")

	status, _ := postExtract(t, app, nil, nil)
	assert.Equal(t, fiber.StatusBadRequest, status)
}

func TestExtractUnreadableImage(t *testing.T) {
	recognizer := &fakeRecognizer{}
	app, _ := testApp(t, recognizer, &fakeCompleter{response: `{}`}, "")

	status, body := postExtract(t, app, []byte("not an image"), nil)
	assert.Equal(t, fiber.StatusBadRequest, status)
	assert.Contains(t, string(body), "Unreadable image")
	assert.Zero(t, recognizer.calls)
}

func TestExtractOCRFailure(t *testing.T) {
	recognizer := &fakeRecognizer{err: &service.OCRError{Err: assert.AnError}}
	app, _ := testApp(t, recognizer, &fakeCompleter{response: `{}`}, "")

	status, body := postExtract(t, app, receiptPNG(t), nil)
	assert.Equal(t, fiber.StatusBadGateway, status)
	assert.Contains(t, string(body), "recognition failed")
}

func TestExtractStructuringFailureReturnsRawText(t *testing.T) {
	recognizer := &fakeRecognizer{text: "Rs 40 sent to someone"}
	app, history := testApp(t, recognizer, &fakeCompleter{response: "sorry, no JSON"}, "")

	status, body := postExtract(t, app, receiptPNG(t), nil)
	assert.Equal(t, fiber.StatusUnprocessableEntity, status)

	var resp dto.ExtractReceiptResponse
	require.NoError(t, json.Unmarshal(body, &resp))
	assert.Equal(t, recognizer.text, resp.RawOCRText)
	assert.Nil(t, resp.Transaction)
	assert.NotEmpty(t, resp.Warning)

	records, err := history.List(context.Background())
	require.NoError(t, err)
	assert.Empty(t, records, "a failed extraction is never persisted")
}

func TestExtractSuccessPersists(t *testing.T) {
	recognizer := &fakeRecognizer{text: "Rs 1,500 sent to Ali Khan"}
	completer := &fakeCompleter{response: `{"amount": "1,500", "recipient_name": "Ali Khan"}`}
	app, history := testApp(t, recognizer, completer, "")

	status, body := postExtract(t, app, receiptPNG(t), nil)
	assert.Equal(t, fiber.StatusOK, status)

	var resp dto.ExtractReceiptResponse
	require.NoError(t, json.Unmarshal(body, &resp))
	assert.True(t, resp.Persisted)
	assert.Empty(t, resp.Warning)
	assert.NotEmpty(t, resp.RunID)
	require.NotNil(t, resp.Transaction)
	require.NotNil(t, resp.Transaction.RecipientName)
	assert.Equal(t, "Ali Khan", *resp.Transaction.RecipientName)
	require.NotNil(t, resp.Quality)
	assert.Nil(t, resp.Steps, "no trace without debug")

	records, err := history.List(context.Background())
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "Ali Khan", *records[0].RecipientName)
}

func TestExtractDebugReturnsTrace(t *testing.T) {
	recognizer := &fakeRecognizer{text: "text"}
	app, _ := testApp(t, recognizer, &fakeCompleter{response: `{}`}, "")

	status, body := postExtract(t, app, receiptPNG(t), map[string]string{"debug": "true"})
	assert.Equal(t, fiber.StatusOK, status)

	var resp dto.ExtractReceiptResponse
	require.NoError(t, json.Unmarshal(body, &resp))
	require.NotEmpty(t, resp.Steps)
	assert.Equal(t, "original", resp.Steps[0].Name)
	assert.Equal(t, "final", resp.Steps[len(resp.Steps)-1].Name)
	for _, step := range resp.Steps {
		assert.NotEmpty(t, step.ImagePNG)
	}
}

func TestExtractPersistFailureDegrades(t *testing.T) {
	recognizer := &fakeRecognizer{text: "text"}
	// A directory as the history path makes every read/write fail.
	app, _ := testApp(t, recognizer, &fakeCompleter{response: `{}`}, t.TempDir())

	status, body := postExtract(t, app, receiptPNG(t), nil)
	assert.Equal(t, fiber.StatusOK, status)

	var resp dto.ExtractReceiptResponse
	require.NoError(t, json.Unmarshal(body, &resp))
	assert.False(t, resp.Persisted)
	assert.NotEmpty(t, resp.Warning)
	require.NotNil(t, resp.Transaction)
}

func strPtr(s string) *string { return &s }

func seedHistory(t *testing.T, history *repository.HistoryRepository, ids ...string) {
	t.Helper()
	for _, id := range ids {
		rec := &models.TransactionRecord{
			TransactionID:       strPtr(id),
			ExtractionTimestamp: "2026-08-26T10:00:00Z",
		}
		require.NoError(t, history.Append(context.Background(), rec))
	}
}

func getReceipts(t *testing.T, app *fiber.App, query string) (int, dto.HistoryResponse) {
	t.Helper()
	req := httptest.NewRequest(fiber.MethodGet, "/api/v1/receipts"+query, nil)
	resp, err := app.Test(req, 5000)
	require.NoError(t, err)
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var hist dto.HistoryResponse
	if resp.StatusCode == fiber.StatusOK {
		require.NoError(t, json.Unmarshal(body, &hist))
	}
	return resp.StatusCode, hist
}

func TestListReceiptsPagination(t *testing.T) {
	app, history := testApp(t, &fakeRecognizer{}, &fakeCompleter{response: `{}`}, "")
	seedHistory(t, history, "TX1", "TX2", "TX3")

	tests := []struct {
		name    string
		query   string
		wantIDs []string
	}{
		{"default", "", []string{"TX1", "TX2", "TX3"}},
		{"window", "?offset=1&limit=1", []string{"TX2"}},
		{"limit past end", "?offset=2&limit=10", []string{"TX3"}},
		{"offset past end", "?offset=10", nil},
		{"negative offset", "?offset=-3", []string{"TX1", "TX2", "TX3"}},
		{"negative limit", "?limit=-1", []string{"TX1", "TX2", "TX3"}},
		{"both negative", "?offset=-1&limit=-1", []string{"TX1", "TX2", "TX3"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, hist := getReceipts(t, app, tt.query)
			require.Equal(t, fiber.StatusOK, status)
			assert.Equal(t, 3, hist.Total)

			ids := make([]string, 0, len(hist.Transactions))
			for _, rec := range hist.Transactions {
				ids = append(ids, *rec.TransactionID)
			}
			if tt.wantIDs == nil {
				assert.Empty(t, ids)
			} else {
				assert.Equal(t, tt.wantIDs, ids)
			}
		})
	}
}

func TestListReceiptsEmptyHistory(t *testing.T) {
	app, _ := testApp(t, &fakeRecognizer{}, &fakeCompleter{response: `{}`}, "")

	status, hist := getReceipts(t, app, "")
	require.Equal(t, fiber.StatusOK, status)
	assert.Zero(t, hist.Total)
	assert.Empty(t, hist.Transactions)
}

func TestHealth(t *testing.T) {
	app, _ := testApp(t, &fakeRecognizer{}, &fakeCompleter{response: `{}`}, "")

	req := httptest.NewRequest(fiber.MethodGet, "/health", nil)
	resp, err := app.Test(req, 5000)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
