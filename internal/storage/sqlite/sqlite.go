package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/FranksOps/seedcorpus/internal/storage"
	_ "modernc.org/sqlite"
)

// ensure sqliteBackend implements storage.Backend
var _ storage.Backend = (*sqliteBackend)(nil)

type sqliteBackend struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS corpus_pages (
	seq INTEGER PRIMARY KEY AUTOINCREMENT,
	id TEXT NOT NULL UNIQUE,
	run_id TEXT NOT NULL,
	query TEXT NOT NULL,
	url TEXT NOT NULL,
	rank INTEGER NOT NULL,
	status_code INTEGER NOT NULL,
	content_type TEXT,
	headers TEXT NOT NULL,
	body BLOB,
	text TEXT,
	duration_ms INTEGER NOT NULL,
	accepted BOOLEAN NOT NULL,
	reason TEXT,
	created_at DATETIME NOT NULL,
	error TEXT
);
CREATE INDEX IF NOT EXISTS corpus_pages_run ON corpus_pages (run_id);
`

const columns = `id, run_id, query, url, rank, status_code, content_type, headers, body, text, duration_ms, accepted, reason, created_at, error`

// New opens (or creates) an SQLite corpus store at dsn.
func New(dsn string) (storage.Backend, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// a single connection keeps ":memory:" databases shared and serializes writers
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	return &sqliteBackend{db: db}, nil
}

func (b *sqliteBackend) Save(ctx context.Context, p *storage.Page) error {
	headersJSON, err := json.Marshal(p.Headers)
	if err != nil {
		return fmt.Errorf("encode headers: %w", err)
	}

	_, err = b.db.ExecContext(ctx,
		`INSERT INTO corpus_pages (`+columns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID,
		p.RunID,
		p.Query,
		p.URL,
		p.Rank,
		p.StatusCode,
		p.ContentType,
		string(headersJSON),
		p.Body,
		p.Text,
		p.Duration.Milliseconds(),
		p.Accepted,
		p.Reason,
		p.CreatedAt.UTC(),
		p.Error,
	)
	if err != nil {
		return fmt.Errorf("insert page %s: %w", p.ID, err)
	}
	return nil
}

func (b *sqliteBackend) Query(ctx context.Context, filter storage.Filter) ([]*storage.Page, error) {
	query := `SELECT ` + columns + ` FROM corpus_pages WHERE 1=1`
	args := []any{}

	if filter.RunID != "" {
		query += ` AND run_id = ?`
		args = append(args, filter.RunID)
	}
	if filter.Query != "" {
		query += ` AND query = ?`
		args = append(args, filter.Query)
	}
	if filter.URL != "" {
		query += ` AND url = ?`
		args = append(args, filter.URL)
	}
	if filter.Accepted != nil {
		query += ` AND accepted = ?`
		args = append(args, *filter.Accepted)
	}
	if filter.Since != nil {
		query += ` AND created_at >= ?`
		args = append(args, filter.Since.UTC())
	}

	query += ` ORDER BY seq DESC`

	// sqlite needs a LIMIT before OFFSET; -1 means unbounded
	if filter.Limit > 0 || filter.Offset > 0 {
		limit := -1
		if filter.Limit > 0 {
			limit = filter.Limit
		}
		query += ` LIMIT ? OFFSET ?`
		args = append(args, limit, filter.Offset)
	}

	rows, err := b.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query pages: %w", err)
	}
	defer rows.Close()

	var pages []*storage.Page
	for rows.Next() {
		var (
			p           storage.Page
			headersJSON string
			durationMs  int64
			contentType sql.NullString
			text        sql.NullString
			reason      sql.NullString
			errText     sql.NullString
		)

		err := rows.Scan(
			&p.ID, &p.RunID, &p.Query, &p.URL, &p.Rank, &p.StatusCode, &contentType,
			&headersJSON, &p.Body, &text, &durationMs, &p.Accepted, &reason, &p.CreatedAt, &errText,
		)
		if err != nil {
			return nil, fmt.Errorf("scan page: %w", err)
		}

		p.ContentType = contentType.String
		p.Text = text.String
		p.Reason = reason.String
		p.Error = errText.String
		p.Duration = time.Duration(durationMs) * time.Millisecond
		if err := json.Unmarshal([]byte(headersJSON), &p.Headers); err != nil {
			return nil, fmt.Errorf("decode headers of %s: %w", p.ID, err)
		}

		pages = append(pages, &p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pages: %w", err)
	}

	return pages, nil
}

func (b *sqliteBackend) Close() error {
	return b.db.Close()
}
