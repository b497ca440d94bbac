package offline

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/AtRiskMedia/siteshell-go/internal/infrastructure/observability/logging"
	"github.com/AtRiskMedia/siteshell-go/internal/infrastructure/persistence/database"
)

// SQLStorage persists buckets in the cache_buckets and cache_entries tables
// so a restarted process comes back with its precache intact.
type SQLStorage struct {
	db            *database.DB
	logger        *logging.ChanneledLogger
	slowThreshold time.Duration
}

func NewSQLStorage(db *database.DB, logger *logging.ChanneledLogger, slowThreshold time.Duration) *SQLStorage {
	return &SQLStorage{db: db, logger: logger, slowThreshold: slowThreshold}
}

func (s *SQLStorage) Keys(ctx context.Context) ([]string, error) {
	const query = `SELECT name FROM cache_buckets ORDER BY created_at, name`
	start := time.Now()
	rows, err := s.db.QueryContext(ctx, query)
	database.CheckAndLogSlowQuery(s.logger, query, time.Since(start), s.slowThreshold)
	if err != nil {
		return nil, fmt.Errorf("failed to list cache buckets: %w", err)
	}
	defer rows.Close()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan cache bucket: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (s *SQLStorage) Delete(ctx context.Context, bucket string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM cache_entries WHERE bucket = ?`, bucket); err != nil {
		return fmt.Errorf("failed to delete entries of %s: %w", bucket, err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM cache_buckets WHERE name = ?`, bucket); err != nil {
		return fmt.Errorf("failed to delete bucket %s: %w", bucket, err)
	}
	return tx.Commit()
}

func (s *SQLStorage) Match(ctx context.Context, url string) (Entry, bool, error) {
	const query = `
		SELECT e.url, e.status, e.headers, e.body, e.stored_at
		FROM cache_entries e JOIN cache_buckets b ON b.name = e.bucket
		WHERE e.url = ?
		ORDER BY b.created_at
		LIMIT 1`
	start := time.Now()

	var (
		entry   Entry
		headers string
	)
	err := s.db.QueryRowContext(ctx, query, url).Scan(&entry.URL, &entry.Status, &headers, &entry.Body, &entry.StoredAt)
	database.CheckAndLogSlowQuery(s.logger, query, time.Since(start), s.slowThreshold)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, false, nil
	}
	if err != nil {
		return Entry{}, false, fmt.Errorf("failed to match %s: %w", url, err)
	}
	entry.Header = http.Header{}
	if err := json.Unmarshal([]byte(headers), &entry.Header); err != nil {
		return Entry{}, false, fmt.Errorf("failed to decode headers for %s: %w", url, err)
	}
	return entry, true, nil
}

func (s *SQLStorage) Put(ctx context.Context, bucket string, entry Entry) error {
	return s.PutAll(ctx, bucket, []Entry{entry})
}

func (s *SQLStorage) PutAll(ctx context.Context, bucket string, entries []Entry) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	now := time.Now().UTC()
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO cache_buckets (name, created_at) VALUES (?, ?) ON CONFLICT(name) DO NOTHING`,
		bucket, now); err != nil {
		return fmt.Errorf("failed to open bucket %s: %w", bucket, err)
	}

	const upsert = `
		INSERT INTO cache_entries (bucket, url, status, headers, body, stored_at) VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(bucket, url) DO UPDATE SET
			status = excluded.status, headers = excluded.headers,
			body = excluded.body, stored_at = excluded.stored_at`
	for _, e := range entries {
		headers, err := json.Marshal(e.Header)
		if err != nil {
			return fmt.Errorf("failed to encode headers for %s: %w", e.URL, err)
		}
		storedAt := e.StoredAt
		if storedAt.IsZero() {
			storedAt = now
		}
		if _, err := tx.ExecContext(ctx, upsert, bucket, e.URL, e.Status, string(headers), e.Body, storedAt); err != nil {
			return fmt.Errorf("failed to store %s in %s: %w", e.URL, bucket, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit bucket %s: %w", bucket, err)
	}
	return nil
}
