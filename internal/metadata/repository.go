package metadata

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

const repoTimeout = 5 * time.Second

// pgxQuerier is the subset of *pgxpool.Pool the repository uses.
type pgxQuerier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

// Repository stores records in PostgreSQL (table image_metadata).
type Repository struct {
	pool pgxQuerier
}

// NewRepository builds a PostgreSQL-backed table, usually over a *pgxpool.Pool.
func NewRepository(pool pgxQuerier) *Repository {
	return &Repository{pool: pool}
}

// Name identifies the table in logs.
func (r *Repository) Name() string {
	return "image_metadata"
}

// Put upserts the record; a repeated key overwrites the previous row.
func (r *Repository) Put(ctx context.Context, rec Record) error {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	query := `
INSERT INTO image_metadata (object_key, size_bytes, content_type, uploaded_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (object_key)
DO UPDATE SET
    size_bytes   = EXCLUDED.size_bytes,
    content_type = EXCLUDED.content_type,
    uploaded_at  = EXCLUDED.uploaded_at,
    updated_at   = NOW();`

	if _, err := r.pool.Exec(ctx, query, rec.ObjectKey, int64(rec.SizeBytes), rec.ContentType, rec.UploadedAt); err != nil {
		return fmt.Errorf("put record: %w", err)
	}
	return nil
}

// Get fetches a record by exact key.
func (r *Repository) Get(ctx context.Context, key string) (Record, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	query := `
SELECT object_key, size_bytes, content_type, uploaded_at
FROM image_metadata
WHERE object_key = $1;`

	rec, err := scanRecord(r.pool.QueryRow(ctx, query, key))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Record{}, ErrRecordNotFound
		}
		return Record{}, fmt.Errorf("get record: %w", err)
	}
	return rec, nil
}

// ScanPage returns up to limit records with keys after cursor, in key order.
func (r *Repository) ScanPage(ctx context.Context, cursor string, limit int) (Page, error) {
	ctx, cancel := context.WithTimeout(ctx, repoTimeout)
	defer cancel()

	query := `
SELECT object_key, size_bytes, content_type, uploaded_at
FROM image_metadata
WHERE object_key > $1
ORDER BY object_key
LIMIT $2;`

	rows, err := r.pool.Query(ctx, query, cursor, limit)
	if err != nil {
		return Page{}, fmt.Errorf("scan records: %w", err)
	}
	defer rows.Close()

	var page Page
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return Page{}, fmt.Errorf("scan record: %w", err)
		}
		page.Records = append(page.Records, rec)
	}
	if err := rows.Err(); err != nil {
		return Page{}, fmt.Errorf("iterate records: %w", err)
	}

	// a full page may be the last one; the following call then returns no rows
	if limit > 0 && len(page.Records) == limit {
		page.Next = page.Records[len(page.Records)-1].ObjectKey
	}
	return page, nil
}

// Ping checks connectivity.
func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

func scanRecord(row pgx.Row) (Record, error) {
	var (
		rec  Record
		size pgtype.Numeric
	)
	if err := row.Scan(&rec.ObjectKey, &size, &rec.ContentType, &rec.UploadedAt); err != nil {
		return Record{}, err
	}

	f, err := size.Float64Value()
	if err != nil {
		return Record{}, fmt.Errorf("convert size: %w", err)
	}
	rec.SizeBytes = f.Float64
	return rec, nil
}
