package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"ocreceipt/internal/models"

	"go.uber.org/zap"
)

// PersistenceError reports a history file read or write failure. It is
// surfaced separately from pipeline success: the record was still produced.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("history %s: %v", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error { return e.Err }

// HistoryRepository persists transaction records as a pretty-printed JSON
// array in a single file. Appending reads the whole array, pushes, and
// rewrites the file; insertion order is chronological order.
type HistoryRepository struct {
	path   string
	mu     sync.Mutex
	logger *zap.Logger
}

func NewHistoryRepository(path string, logger *zap.Logger) *HistoryRepository {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			logger.Warn("failed to create history directory", zap.Error(err))
		}
	}
	return &HistoryRepository{
		path:   path,
		logger: logger,
	}
}

// Append adds a record to the end of the history file. A missing file is
// treated as an empty history.
func (r *HistoryRepository) Append(ctx context.Context, rec *models.TransactionRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return err
	}

	records, err := r.load()
	if err != nil {
		return err
	}
	records = append(records, *rec)

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return &PersistenceError{Op: "encode", Err: err}
	}
	if err := os.WriteFile(r.path, data, 0o644); err != nil {
		return &PersistenceError{Op: "write", Err: err}
	}

	r.logger.Info("transaction persisted",
		zap.String("file", r.path),
		zap.Int("total", len(records)),
	)
	return nil
}

// List returns all persisted records in insertion order.
func (r *HistoryRepository) List(ctx context.Context) ([]models.TransactionRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return r.load()
}

func (r *HistoryRepository) load() ([]models.TransactionRecord, error) {
	data, err := os.ReadFile(r.path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, &PersistenceError{Op: "read", Err: err}
	}

	var records []models.TransactionRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, &PersistenceError{Op: "decode", Err: err}
	}
	return records, nil
}
