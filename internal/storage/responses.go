package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/matsen/citeas/internal/fetch"
)

var _ fetch.Persister = (*DB)(nil)

// LoadResponse returns the response stored under key when it is younger
// than maxAge. A zero maxAge accepts any age.
func (d *DB) LoadResponse(ctx context.Context, key string, maxAge time.Duration) (*fetch.Entry, bool, error) {
	row := d.db.QueryRowContext(ctx, `
		SELECT url, status_code, header_json, body, fetched_at
		FROM responses WHERE cache_key = ?`, key)

	var (
		e          fetch.Entry
		headerJSON string
		fetchedAt  int64
	)
	if err := row.Scan(&e.URL, &e.StatusCode, &headerJSON, &e.Body, &fetchedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("loading response %s: %w", key, err)
	}

	e.FetchedAt = time.Unix(0, fetchedAt)
	if maxAge > 0 && time.Since(e.FetchedAt) > maxAge {
		return nil, false, nil
	}
	e.Header = make(http.Header)
	if err := json.Unmarshal([]byte(headerJSON), &e.Header); err != nil {
		return nil, false, fmt.Errorf("decoding headers for %s: %w", key, err)
	}
	return &e, true, nil
}

// SaveResponse stores e under key, replacing any previous response.
func (d *DB) SaveResponse(ctx context.Context, key string, e *fetch.Entry) error {
	headerJSON, err := json.Marshal(e.Header)
	if err != nil {
		return fmt.Errorf("encoding headers for %s: %w", key, err)
	}
	fetchedAt := e.FetchedAt
	if fetchedAt.IsZero() {
		fetchedAt = time.Now()
	}
	_, err = d.db.ExecContext(ctx, `
		INSERT INTO responses (cache_key, url, status_code, header_json, body, fetched_at)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(cache_key) DO UPDATE SET
			url = excluded.url,
			status_code = excluded.status_code,
			header_json = excluded.header_json,
			body = excluded.body,
			fetched_at = excluded.fetched_at`,
		key, e.URL, e.StatusCode, string(headerJSON), e.Body, fetchedAt.UnixNano())
	if err != nil {
		return fmt.Errorf("saving response %s: %w", key, err)
	}
	return nil
}

// Prune deletes responses older than maxAge and returns how many were
// removed.
func (d *DB) Prune(ctx context.Context, maxAge time.Duration) (int64, error) {
	cutoff := time.Now().Add(-maxAge).UnixNano()
	res, err := d.db.ExecContext(ctx, `DELETE FROM responses WHERE fetched_at < ?`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("pruning responses: %w", err)
	}
	return res.RowsAffected()
}
