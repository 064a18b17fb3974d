// Package repository implements the relational store adapters on PostgreSQL.
package repository

import (
	"context"
	"errors"
	"fmt"

	"criteria-analyzer/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type sourceRepository struct {
	pool *pgxpool.Pool
}

// NewSourceRepository creates a SourceRepository backed by the given pool.
func NewSourceRepository(pool *pgxpool.Pool) domain.SourceRepository {
	return &sourceRepository{pool: pool}
}

const sourceColumns = `id, source_hash, source_url, source_date, text_preview, ingest_ts, force_recheck, created_at, updated_at`

func (r *sourceRepository) GetByHash(ctx context.Context, sourceHash string) (*domain.Source, error) {
	query := `
		SELECT ` + sourceColumns + `
		FROM sources
		WHERE source_hash = $1
	`
	row := r.pool.QueryRow(ctx, query, sourceHash)

	var src domain.Source
	err := row.Scan(
		&src.ID,
		&src.SourceHash,
		&src.SourceURL,
		&src.SourceDate,
		&src.TextPreview,
		&src.IngestTS,
		&src.ForceRecheck,
		&src.CreatedAt,
		&src.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan source: %w", err)
	}
	return &src, nil
}

// Upsert inserts the source, or on a hash conflict refreshes the preview,
// force-recheck flag, and updated_at. The returned row reflects the stored
// state (original id and created_at survive a conflict).
func (r *sourceRepository) Upsert(ctx context.Context, source *domain.Source) (*domain.Source, error) {
	query := `
		INSERT INTO sources (` + sourceColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (source_hash) DO UPDATE SET
			updated_at = NOW(),
			force_recheck = EXCLUDED.force_recheck,
			text_preview = EXCLUDED.text_preview
		RETURNING ` + sourceColumns + `
	`
	row := r.pool.QueryRow(ctx, query,
		source.ID,
		source.SourceHash,
		source.SourceURL,
		source.SourceDate,
		source.TextPreview,
		source.IngestTS,
		source.ForceRecheck,
		source.CreatedAt,
		source.UpdatedAt,
	)

	var stored domain.Source
	err := row.Scan(
		&stored.ID,
		&stored.SourceHash,
		&stored.SourceURL,
		&stored.SourceDate,
		&stored.TextPreview,
		&stored.IngestTS,
		&stored.ForceRecheck,
		&stored.CreatedAt,
		&stored.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to upsert source: %w", err)
	}
	return &stored, nil
}

func (r *sourceRepository) ListRecent(ctx context.Context, limit int) ([]domain.Source, error) {
	query := `
		SELECT ` + sourceColumns + `
		FROM sources
		ORDER BY ingest_ts DESC
		LIMIT $1
	`
	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list sources: %w", err)
	}
	defer rows.Close()

	var sources []domain.Source
	for rows.Next() {
		var src domain.Source
		if err := rows.Scan(
			&src.ID,
			&src.SourceHash,
			&src.SourceURL,
			&src.SourceDate,
			&src.TextPreview,
			&src.IngestTS,
			&src.ForceRecheck,
			&src.CreatedAt,
			&src.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan source: %w", err)
		}
		sources = append(sources, src)
	}
	return sources, rows.Err()
}
