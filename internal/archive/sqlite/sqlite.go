package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/FranksOps/sift/internal/archive"
	_ "modernc.org/sqlite"
)

// ensure sqliteBackend implements archive.Backend
var _ archive.Backend = (*sqliteBackend)(nil)

type sqliteBackend struct {
	db *sql.DB
}

const schema = `
CREATE TABLE IF NOT EXISTS search_records (
	id TEXT PRIMARY KEY,
	query TEXT NOT NULL,
	position INTEGER NOT NULL,
	shape TEXT NOT NULL,
	url TEXT,
	title TEXT NOT NULL,
	content TEXT,
	engine TEXT,
	engines TEXT NOT NULL,
	category TEXT,
	template TEXT,
	score REAL NOT NULL,
	published_date DATETIME,
	fetched_at DATETIME NOT NULL
);
`

// New creates a new SQLite-backed archive.Backend.
func New(dsn string) (archive.Backend, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("context: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("context: %w", err)
	}

	return &sqliteBackend{db: db}, nil
}

func (b *sqliteBackend) Save(ctx context.Context, record *archive.SearchRecord) error {
	enginesJSON, err := json.Marshal(record.Engines)
	if err != nil {
		return fmt.Errorf("context: %w", err)
	}

	query := `
	INSERT INTO search_records (
		id, query, position, shape, url, title, content, engine, engines, category, template, score, published_date, fetched_at
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	var published any
	if record.PublishedDate != nil {
		published = *record.PublishedDate
	}

	_, err = b.db.ExecContext(ctx, query,
		record.ID,
		record.Query,
		record.Position,
		record.Shape,
		record.URL,
		record.Title,
		record.Content,
		record.Engine,
		string(enginesJSON),
		record.Category,
		record.Template,
		record.Score,
		published,
		record.FetchedAt,
	)

	if err != nil {
		return fmt.Errorf("context: %w", err)
	}

	return nil
}

func (b *sqliteBackend) Query(ctx context.Context, filter archive.Filter) ([]*archive.SearchRecord, error) {
	query := `SELECT id, query, position, shape, url, title, content, engine, engines, category, template, score, published_date, fetched_at FROM search_records WHERE 1=1`
	args := []any{}

	if filter.Query != "" {
		query += ` AND query = ?`
		args = append(args, filter.Query)
	}
	if filter.Engine != "" {
		query += ` AND engine = ?`
		args = append(args, filter.Engine)
	}
	if filter.Category != "" {
		query += ` AND category = ?`
		args = append(args, filter.Category)
	}
	if filter.MinScore != nil {
		query += ` AND score >= ?`
		args = append(args, *filter.MinScore)
	}
	if filter.Since != nil {
		query += ` AND fetched_at >= ?`
		args = append(args, *filter.Since)
	}

	query += ` ORDER BY fetched_at DESC`

	if filter.Limit > 0 {
		query += ` LIMIT ?`
		args = append(args, filter.Limit)
	}
	if filter.Offset > 0 {
		query += ` OFFSET ?`
		args = append(args, filter.Offset)
	}

	rows, err := b.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("context: %w", err)
	}
	defer rows.Close()

	var records []*archive.SearchRecord
	for rows.Next() {
		var r archive.SearchRecord
		var enginesJSON string
		var published sql.NullTime

		err := rows.Scan(
			&r.ID, &r.Query, &r.Position, &r.Shape, &r.URL, &r.Title, &r.Content,
			&r.Engine, &enginesJSON, &r.Category, &r.Template, &r.Score,
			&published, &r.FetchedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("context: %w", err)
		}

		if published.Valid {
			t := published.Time
			r.PublishedDate = &t
		}
		if err := json.Unmarshal([]byte(enginesJSON), &r.Engines); err != nil {
			return nil, fmt.Errorf("context: %w", err)
		}

		records = append(records, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("context: %w", err)
	}

	return records, nil
}

func (b *sqliteBackend) Close() error {
	return b.db.Close()
}
