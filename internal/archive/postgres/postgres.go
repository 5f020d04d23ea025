package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/FranksOps/sift/internal/archive"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ensure postgresBackend implements archive.Backend
var _ archive.Backend = (*postgresBackend)(nil)

type postgresBackend struct {
	pool *pgxpool.Pool
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
	engines JSONB NOT NULL,
	category TEXT,
	template TEXT,
	score DOUBLE PRECISION NOT NULL,
	published_date TIMESTAMPTZ,
	fetched_at TIMESTAMPTZ NOT NULL
);
`

// New creates a new Postgres-backed archive.Backend.
func New(ctx context.Context, dsn string) (archive.Backend, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("context: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("context: %w", err)
	}

	_, err = pool.Exec(ctx, schema)
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("context: %w", err)
	}

	return &postgresBackend{pool: pool}, nil
}

func (b *postgresBackend) Save(ctx context.Context, record *archive.SearchRecord) error {
	enginesJSON, err := json.Marshal(record.Engines)
	if err != nil {
		return fmt.Errorf("context: %w", err)
	}

	query := `
	INSERT INTO search_records (
		id, query, position, shape, url, title, content, engine, engines, category, template, score, published_date, fetched_at
	) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`

	_, err = b.pool.Exec(ctx, query,
		record.ID,
		record.Query,
		record.Position,
		record.Shape,
		record.URL,
		record.Title,
		record.Content,
		record.Engine,
		enginesJSON,
		record.Category,
		record.Template,
		record.Score,
		record.PublishedDate,
		record.FetchedAt,
	)

	if err != nil {
		return fmt.Errorf("context: %w", err)
	}

	return nil
}

func (b *postgresBackend) Query(ctx context.Context, filter archive.Filter) ([]*archive.SearchRecord, error) {
	query := `SELECT id, query, position, shape, url, title, content, engine, engines, category, template, score, published_date, fetched_at FROM search_records WHERE 1=1`
	args := []any{}
	paramCount := 1

	if filter.Query != "" {
		query += fmt.Sprintf(` AND query = $%d`, paramCount)
		args = append(args, filter.Query)
		paramCount++
	}
	if filter.Engine != "" {
		query += fmt.Sprintf(` AND engine = $%d`, paramCount)
		args = append(args, filter.Engine)
		paramCount++
	}
	if filter.Category != "" {
		query += fmt.Sprintf(` AND category = $%d`, paramCount)
		args = append(args, filter.Category)
		paramCount++
	}
	if filter.MinScore != nil {
		query += fmt.Sprintf(` AND score >= $%d`, paramCount)
		args = append(args, *filter.MinScore)
		paramCount++
	}
	if filter.Since != nil {
		query += fmt.Sprintf(` AND fetched_at >= $%d`, paramCount)
		args = append(args, *filter.Since)
		paramCount++
	}

	query += ` ORDER BY fetched_at DESC`

	if filter.Limit > 0 {
		query += fmt.Sprintf(` LIMIT $%d`, paramCount)
		args = append(args, filter.Limit)
		paramCount++
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(` OFFSET $%d`, paramCount)
		args = append(args, filter.Offset)
		paramCount++
	}

	rows, err := b.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("context: %w", err)
	}
	defer rows.Close()

	var records []*archive.SearchRecord
	for rows.Next() {
		var r archive.SearchRecord
		var enginesJSON []byte

		err := rows.Scan(
			&r.ID, &r.Query, &r.Position, &r.Shape, &r.URL, &r.Title, &r.Content,
			&r.Engine, &enginesJSON, &r.Category, &r.Template, &r.Score,
			&r.PublishedDate, &r.FetchedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("context: %w", err)
		}

		if err := json.Unmarshal(enginesJSON, &r.Engines); err != nil {
			return nil, fmt.Errorf("context: %w", err)
		}

		records = append(records, &r)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("context: %w", err)
	}

	return records, nil
}

func (b *postgresBackend) Close() error {
	b.pool.Close()
	return nil
}
