package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/peerpress/peerpress-api/internal/models"
)

// PaperRepository reads the paper facts the event engine depends on. Paper
// CRUD belongs to a different service; this is a read-only collaborator.
type PaperRepository struct {
	db *sqlx.DB
}

// NewPaperRepository constructs the repository.
func NewPaperRepository(db *sqlx.DB) *PaperRepository {
	return &PaperRepository{db: db}
}

// Get loads a paper with its authors and version history. Returns
// sql.ErrNoRows when the paper does not exist.
func (r *PaperRepository) Get(ctx context.Context, id string) (*models.Paper, error) {
	const paperQuery = `SELECT id, title, show_preprint, created_at FROM papers WHERE id = $1`

	var paper models.Paper
	if err := r.db.GetContext(ctx, &paper, paperQuery, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get paper: %w", err)
	}

	const authorsQuery = `SELECT paper_id, user_id, owner FROM paper_authors WHERE paper_id = $1 ORDER BY user_id`
	if err := r.db.SelectContext(ctx, &paper.Authors, authorsQuery, id); err != nil {
		return nil, fmt.Errorf("get paper authors: %w", err)
	}

	const versionsQuery = `SELECT paper_id, version, created_at FROM paper_versions WHERE paper_id = $1 ORDER BY version`
	if err := r.db.SelectContext(ctx, &paper.Versions, versionsQuery, id); err != nil {
		return nil, fmt.Errorf("get paper versions: %w", err)
	}

	return &paper, nil
}

// ListAuthorships returns every paper the user authors, with the owner flag
// marking corresponding authorship.
func (r *PaperRepository) ListAuthorships(ctx context.Context, userID string) ([]models.Authorship, error) {
	const query = `SELECT paper_id, owner FROM paper_authors WHERE user_id = $1`

	var authorships []models.Authorship
	if err := r.db.SelectContext(ctx, &authorships, query, userID); err != nil {
		return nil, fmt.Errorf("list authorships: %w", err)
	}
	return authorships, nil
}
