package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/peerpress/peerpress-api/internal/models"
)

// JournalRepository reads journal transparency models and membership facts.
type JournalRepository struct {
	db *sqlx.DB
}

// NewJournalRepository constructs the repository.
func NewJournalRepository(db *sqlx.DB) *JournalRepository {
	return &JournalRepository{db: db}
}

// GetModel returns the journal's transparency model. Returns sql.ErrNoRows
// when the journal does not exist.
func (r *JournalRepository) GetModel(ctx context.Context, journalID string) (models.JournalModel, error) {
	const query = `SELECT model FROM journals WHERE id = $1`

	var model models.JournalModel
	if err := r.db.GetContext(ctx, &model, query, journalID); err != nil {
		if err == sql.ErrNoRows {
			return "", err
		}
		return "", fmt.Errorf("get journal model: %w", err)
	}
	return model, nil
}

// GetMembership returns the user's membership row for a journal, or nil when
// the user is not a member.
func (r *JournalRepository) GetMembership(ctx context.Context, journalID, userID string) (*models.JournalMembership, error) {
	const query = `SELECT journal_id, user_id, permission FROM journal_members WHERE journal_id = $1 AND user_id = $2`

	var membership models.JournalMembership
	if err := r.db.GetContext(ctx, &membership, query, journalID, userID); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get journal membership: %w", err)
	}
	return &membership, nil
}

// ListMemberships returns every journal membership the user holds.
func (r *JournalRepository) ListMemberships(ctx context.Context, userID string) ([]models.JournalMembership, error) {
	const query = `SELECT journal_id, user_id, permission FROM journal_members WHERE user_id = $1`

	var memberships []models.JournalMembership
	if err := r.db.SelectContext(ctx, &memberships, query, userID); err != nil {
		return nil, fmt.Errorf("list journal memberships: %w", err)
	}
	return memberships, nil
}
