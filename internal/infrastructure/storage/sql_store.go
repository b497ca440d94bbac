package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/AtRiskMedia/siteshell-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/siteshell-go/internal/infrastructure/persistence/database"
)

// SQLStore keeps values in the client_storage table (sqlite or Turso).
type SQLStore struct {
	db            *database.DB
	logger        *logging.ChanneledLogger
	slowThreshold time.Duration
}

// NewSQLStore creates a store over an already migrated database.
func NewSQLStore(db *database.DB, logger *logging.ChanneledLogger, slowThreshold time.Duration) *SQLStore {
	return &SQLStore{db: db, logger: logger, slowThreshold: slowThreshold}
}

func (s *SQLStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	const query = `SELECT value FROM client_storage WHERE storage_key = ?`
	start := time.Now()

	var value []byte
	err := s.db.QueryRowContext(ctx, query, key).Scan(&value)
	database.CheckAndLogSlowQuery(s.logger, query, time.Since(start), s.slowThreshold)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		s.logger.Database().Error("Failed to read client storage", "error", err.Error(), "key", key)
		return nil, false, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return value, true, nil
}

func (s *SQLStore) Set(ctx context.Context, key string, value []byte) error {
	const query = `
		INSERT INTO client_storage (storage_key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(storage_key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`
	start := time.Now()

	_, err := s.db.ExecContext(ctx, query, key, value, time.Now().UTC())
	database.CheckAndLogSlowQuery(s.logger, query, time.Since(start), s.slowThreshold)
	if err != nil {
		s.logger.Database().Error("Failed to write client storage", "error", err.Error(), "key", key)
		return fmt.Errorf("failed to write %s: %w", key, err)
	}
	return nil
}

func (s *SQLStore) Delete(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM client_storage WHERE storage_key = ?`, key); err != nil {
		return fmt.Errorf("failed to delete %s: %w", key, err)
	}
	return nil
}
