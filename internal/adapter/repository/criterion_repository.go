package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"criteria-analyzer/internal/domain"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type criterionRepository struct {
	pool *pgxpool.Pool
}

// NewCriterionRepository creates a CriterionRepository backed by the given pool.
func NewCriterionRepository(pool *pgxpool.Pool) domain.CriterionRepository {
	return &criterionRepository{pool: pool}
}

const criterionColumns = `id, criterion_text, version, is_active, threshold, created_at, updated_at`

func (r *criterionRepository) ListActive(ctx context.Context) ([]domain.Criterion, error) {
	return r.list(ctx, `
		SELECT `+criterionColumns+`
		FROM criteria
		WHERE is_active = TRUE
		ORDER BY id
	`)
}

func (r *criterionRepository) List(ctx context.Context) ([]domain.Criterion, error) {
	return r.list(ctx, `
		SELECT `+criterionColumns+`
		FROM criteria
		ORDER BY id
	`)
}

func (r *criterionRepository) list(ctx context.Context, query string) ([]domain.Criterion, error) {
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query criteria: %w", err)
	}
	defer rows.Close()

	var criteria []domain.Criterion
	for rows.Next() {
		var c domain.Criterion
		if err := rows.Scan(
			&c.ID,
			&c.CriterionText,
			&c.Version,
			&c.IsActive,
			&c.Threshold,
			&c.CreatedAt,
			&c.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan criterion: %w", err)
		}
		criteria = append(criteria, c)
	}
	return criteria, rows.Err()
}

func (r *criterionRepository) Get(ctx context.Context, id string) (*domain.Criterion, error) {
	query := `
		SELECT ` + criterionColumns + `
		FROM criteria
		WHERE id = $1
	`
	var c domain.Criterion
	err := r.pool.QueryRow(ctx, query, id).Scan(
		&c.ID,
		&c.CriterionText,
		&c.Version,
		&c.IsActive,
		&c.Threshold,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrCriterionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan criterion: %w", err)
	}
	return &c, nil
}

func (r *criterionRepository) Create(ctx context.Context, criterion *domain.Criterion) error {
	query := `
		INSERT INTO criteria (` + criterionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	now := time.Now().UTC()
	if criterion.CreatedAt.IsZero() {
		criterion.CreatedAt = now
	}
	if criterion.UpdatedAt.IsZero() {
		criterion.UpdatedAt = now
	}
	_, err := r.pool.Exec(ctx, query,
		criterion.ID,
		criterion.CriterionText,
		criterion.Version,
		criterion.IsActive,
		criterion.Threshold,
		criterion.CreatedAt,
		criterion.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert criterion: %w", err)
	}
	return nil
}

// Update rewrites the criterion text, threshold, and active flag, bumping the
// version number.
func (r *criterionRepository) Update(ctx context.Context, criterion *domain.Criterion) error {
	query := `
		UPDATE criteria
		SET criterion_text = $1, threshold = $2, is_active = $3,
		    version = version + 1, updated_at = NOW()
		WHERE id = $4
	`
	tag, err := r.pool.Exec(ctx, query,
		criterion.CriterionText,
		criterion.Threshold,
		criterion.IsActive,
		criterion.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update criterion: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrCriterionNotFound
	}
	return nil
}

func (r *criterionRepository) Deactivate(ctx context.Context, id string) error {
	query := `
		UPDATE criteria
		SET is_active = FALSE, updated_at = NOW()
		WHERE id = $1
	`
	tag, err := r.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to deactivate criterion: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrCriterionNotFound
	}
	return nil
}
