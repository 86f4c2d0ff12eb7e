package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/FranksOps/seedcorpus/internal/storage"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ensure postgresBackend implements storage.Backend
var _ storage.Backend = (*postgresBackend)(nil)

type postgresBackend struct {
	pool *pgxpool.Pool
}

const schema = `
CREATE TABLE IF NOT EXISTS corpus_pages (
	seq BIGSERIAL PRIMARY KEY,
	id TEXT NOT NULL UNIQUE,
	run_id TEXT NOT NULL,
	query TEXT NOT NULL,
	url TEXT NOT NULL,
	rank INTEGER NOT NULL,
	status_code INTEGER NOT NULL,
	content_type TEXT NOT NULL DEFAULT '',
	headers JSONB NOT NULL,
	body BYTEA,
	text TEXT NOT NULL DEFAULT '',
	duration_ms BIGINT NOT NULL,
	accepted BOOLEAN NOT NULL,
	reason TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL,
	error TEXT NOT NULL DEFAULT ''
);
CREATE INDEX IF NOT EXISTS corpus_pages_run ON corpus_pages (run_id);
`

const columns = `id, run_id, query, url, rank, status_code, content_type, headers, body, text, duration_ms, accepted, reason, created_at, error`

// New connects to Postgres at dsn and ensures the schema exists.
func New(ctx context.Context, dsn string) (storage.Backend, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}

	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &postgresBackend{pool: pool}, nil
}

func (b *postgresBackend) Save(ctx context.Context, p *storage.Page) error {
	headersJSON, err := json.Marshal(p.Headers)
	if err != nil {
		return fmt.Errorf("encode headers: %w", err)
	}

	_, err = b.pool.Exec(ctx,
		`INSERT INTO corpus_pages (`+columns+`) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		p.ID,
		p.RunID,
		p.Query,
		p.URL,
		p.Rank,
		p.StatusCode,
		p.ContentType,
		headersJSON,
		p.Body,
		p.Text,
		p.Duration.Milliseconds(),
		p.Accepted,
		p.Reason,
		p.CreatedAt,
		p.Error,
	)
	if err != nil {
		return fmt.Errorf("insert page %s: %w", p.ID, err)
	}
	return nil
}

func (b *postgresBackend) Query(ctx context.Context, filter storage.Filter) ([]*storage.Page, error) {
	query := `SELECT ` + columns + ` FROM corpus_pages WHERE 1=1`
	args := pgx.NamedArgs{}

	if filter.RunID != "" {
		query += ` AND run_id = @run_id`
		args["run_id"] = filter.RunID
	}
	if filter.Query != "" {
		query += ` AND query = @query`
		args["query"] = filter.Query
	}
	if filter.URL != "" {
		query += ` AND url = @url`
		args["url"] = filter.URL
	}
	if filter.Accepted != nil {
		query += ` AND accepted = @accepted`
		args["accepted"] = *filter.Accepted
	}
	if filter.Since != nil {
		query += ` AND created_at >= @since`
		args["since"] = *filter.Since
	}

	query += ` ORDER BY seq DESC`

	if filter.Limit > 0 {
		query += ` LIMIT @limit`
		args["limit"] = filter.Limit
	}
	if filter.Offset > 0 {
		query += ` OFFSET @offset`
		args["offset"] = filter.Offset
	}

	rows, err := b.pool.Query(ctx, query, args)
	if err != nil {
		return nil, fmt.Errorf("query pages: %w", err)
	}

	pages, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (*storage.Page, error) {
		var (
			p           storage.Page
			headersJSON []byte
			durationMs  int64
		)
		err := row.Scan(
			&p.ID, &p.RunID, &p.Query, &p.URL, &p.Rank, &p.StatusCode, &p.ContentType,
			&headersJSON, &p.Body, &p.Text, &durationMs, &p.Accepted, &p.Reason, &p.CreatedAt, &p.Error,
		)
		if err != nil {
			return nil, err
		}
		p.Duration = time.Duration(durationMs) * time.Millisecond
		if err := json.Unmarshal(headersJSON, &p.Headers); err != nil {
			return nil, fmt.Errorf("decode headers of %s: %w", p.ID, err)
		}
		return &p, nil
	})
	if err != nil {
		return nil, fmt.Errorf("scan pages: %w", err)
	}

	return pages, nil
}

func (b *postgresBackend) Close() error {
	b.pool.Close()
	return nil
}
