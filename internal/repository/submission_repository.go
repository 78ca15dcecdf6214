package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/peerpress/peerpress-api/internal/models"
)

// SubmissionRepository reads submission state and assignment facts.
type SubmissionRepository struct {
	db *sqlx.DB
}

// NewSubmissionRepository constructs the repository.
func NewSubmissionRepository(db *sqlx.DB) *SubmissionRepository {
	return &SubmissionRepository{db: db}
}

// GetActive returns the submission currently governing the paper, or nil when
// the paper is standalone. Withdrawn and rejected submissions do not govern.
func (r *SubmissionRepository) GetActive(ctx context.Context, paperID string) (*models.ActiveSubmission, error) {
	const query = `SELECT id, journal_id, status FROM submissions
WHERE paper_id = $1 AND status NOT IN ('withdrawn', 'rejected')
ORDER BY created_at DESC LIMIT 1`

	var submission models.ActiveSubmission
	if err := r.db.GetContext(ctx, &submission, query, paperID); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("get active submission: %w", err)
	}
	return &submission, nil
}

// Get loads a submission with its editor and reviewer assignment lists.
// Returns sql.ErrNoRows when absent.
func (r *SubmissionRepository) Get(ctx context.Context, id string) (*models.Submission, error) {
	const query = `SELECT id, paper_id, journal_id, status FROM submissions WHERE id = $1`

	var submission models.Submission
	if err := r.db.GetContext(ctx, &submission, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get submission: %w", err)
	}

	const assignmentsQuery = `SELECT user_id, role FROM submission_assignments WHERE submission_id = $1 ORDER BY user_id`
	rows := []struct {
		UserID string `db:"user_id"`
		Role   string `db:"role"`
	}{}
	if err := r.db.SelectContext(ctx, &rows, assignmentsQuery, id); err != nil {
		return nil, fmt.Errorf("get submission assignments: %w", err)
	}
	for _, row := range rows {
		switch row.Role {
		case models.AssignmentRoleEditor:
			submission.Editors = append(submission.Editors, row.UserID)
		case models.AssignmentRoleReviewer:
			submission.Reviewers = append(submission.Reviewers, row.UserID)
		}
	}

	return &submission, nil
}

// ListByJournal returns the ids of every submission to the journal.
func (r *SubmissionRepository) ListByJournal(ctx context.Context, journalID string) ([]string, error) {
	const query = `SELECT id FROM submissions WHERE journal_id = $1`

	ids := []string{}
	if err := r.db.SelectContext(ctx, &ids, query, journalID); err != nil {
		return nil, fmt.Errorf("list submissions by journal: %w", err)
	}
	return ids, nil
}

// ListAssignments returns every submission the user is assigned to, with the
// assignment role.
func (r *SubmissionRepository) ListAssignments(ctx context.Context, userID string) ([]models.SubmissionAssignment, error) {
	const query = `SELECT submission_id, role FROM submission_assignments WHERE user_id = $1`

	var assignments []models.SubmissionAssignment
	if err := r.db.SelectContext(ctx, &assignments, query, userID); err != nil {
		return nil, fmt.Errorf("list submission assignments: %w", err)
	}
	return assignments, nil
}
