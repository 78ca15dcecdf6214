package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/peerpress/peerpress-api/internal/models"
)

// ErrNoRowsAffected signals a write that touched zero rows; services map it
// onto the insert-failed / update-failure taxonomy.
var ErrNoRowsAffected = errors.New("no rows affected")

// PaperRoleClause grants visibility on all events of a paper whose stamped
// visibility intersects Roles.
type PaperRoleClause struct {
	PaperID string
	Roles   []string
}

// SubmissionRoleClause grants visibility on all events of a submission whose
// stamped visibility intersects Roles.
type SubmissionRoleClause struct {
	SubmissionID string
	Roles        []string
}

// AssignedReviewerClause grants the narrower assigned-reviewer visibility on
// a submission: events tagged assigned-reviewers where the viewer is actor or
// assignee, plus every new-version event on the paper under review.
type AssignedReviewerClause struct {
	SubmissionID string
}

// VisibilityCriteria is the storage-neutral description of which events a
// viewer may see. The role-union decision logic that builds it lives in the
// service layer; this package only translates it into one SQL query.
type VisibilityCriteria struct {
	ViewerID string // empty for anonymous viewers

	PaperClauses      []PaperRoleClause
	SubmissionClauses []SubmissionRoleClause
	ReviewerClauses   []AssignedReviewerClause
}

// EventPatch updates the only two mutable fields of a committed event.
type EventPatch struct {
	ID         string
	Visibility []string
	Status     *models.EventStatus
}

// EventRepository persists paper events.
type EventRepository struct {
	db *sqlx.DB
}

// NewEventRepository constructs the repository.
func NewEventRepository(db *sqlx.DB) *EventRepository {
	return &EventRepository{db: db}
}

const eventColumns = `id, paper_id, version, actor_id, type, visibility, status,
	assignee_id, review_id, review_comment_id, submission_id, new_status, paper_comment_id, event_date`

// Insert persists a new event. The id and event date are assigned here; the
// caller's struct is updated in place.
func (r *EventRepository) Insert(ctx context.Context, event *models.PaperEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	event.EventDate = time.Now().UTC()

	const query = `INSERT INTO paper_events
	(id, paper_id, version, actor_id, type, visibility, status,
	 assignee_id, review_id, review_comment_id, submission_id, new_status, paper_comment_id, event_date)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`

	res, err := r.db.ExecContext(ctx, query,
		event.ID, event.PaperID, event.Version, event.ActorID, event.Type,
		event.Visibility, event.Status,
		event.AssigneeID, event.ReviewID, event.ReviewCommentID,
		event.SubmissionID, event.NewStatus, event.PaperCommentID,
		event.EventDate,
	)
	if err != nil {
		return fmt.Errorf("insert paper event: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("insert paper event rows: %w", err)
	}
	if rows == 0 {
		return ErrNoRowsAffected
	}
	return nil
}

// Get fetches a single event by id. Returns sql.ErrNoRows when absent.
func (r *EventRepository) Get(ctx context.Context, id string) (*models.PaperEvent, error) {
	query := fmt.Sprintf(`SELECT %s FROM paper_events WHERE id = $1`, eventColumns)

	var event models.PaperEvent
	if err := r.db.GetContext(ctx, &event, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get paper event: %w", err)
	}
	return &event, nil
}

// Update patches the visibility and/or status of an event. Callers validate
// that at least one field is present and that the patch is authorized.
func (r *EventRepository) Update(ctx context.Context, patch EventPatch) error {
	sets := make([]string, 0, 2)
	args := make([]interface{}, 0, 3)

	if patch.Visibility != nil {
		args = append(args, pq.StringArray(patch.Visibility))
		sets = append(sets, fmt.Sprintf("visibility = $%d", len(args)))
	}
	if patch.Status != nil {
		args = append(args, *patch.Status)
		sets = append(sets, fmt.Sprintf("status = $%d", len(args)))
	}
	if len(sets) == 0 {
		return fmt.Errorf("event patch has no fields")
	}

	args = append(args, patch.ID)
	query := fmt.Sprintf("UPDATE paper_events SET %s WHERE id = $%d", strings.Join(sets, ", "), len(args))

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update paper event: %w", err)
	}

	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update paper event rows: %w", err)
	}
	if rows == 0 {
		return ErrNoRowsAffected
	}
	return nil
}

// VisibleIDs executes the criteria as one OR'd query and returns matching
// event ids.
func (r *EventRepository) VisibleIDs(ctx context.Context, criteria VisibilityCriteria) ([]string, error) {
	where, args := buildVisibilityWhere(criteria)
	query := fmt.Sprintf("SELECT id FROM paper_events WHERE %s ORDER BY event_date DESC", where)

	ids := []string{}
	if err := r.db.SelectContext(ctx, &ids, query, args...); err != nil {
		return nil, fmt.Errorf("select visible event ids: %w", err)
	}
	return ids, nil
}

// ListVisibleForPaper returns the events of one paper matching the criteria,
// oldest first, for timeline rendering.
func (r *EventRepository) ListVisibleForPaper(ctx context.Context, paperID string, criteria VisibilityCriteria) ([]models.PaperEvent, error) {
	where, args := buildVisibilityWhere(criteria)
	args = append(args, paperID)
	query := fmt.Sprintf(`SELECT %s FROM paper_events WHERE (%s) AND paper_id = $%d ORDER BY event_date ASC`,
		eventColumns, where, len(args))

	events := []models.PaperEvent{}
	if err := r.db.SelectContext(ctx, &events, query, args...); err != nil {
		return nil, fmt.Errorf("list paper timeline events: %w", err)
	}
	return events, nil
}

// buildVisibilityWhere translates criteria into an OR'd predicate. The
// baseline public+committed clause is always present; the rest only for an
// authenticated viewer.
func buildVisibilityWhere(criteria VisibilityCriteria) (string, []interface{}) {
	clauses := []string{"('public' = ANY(visibility) AND status = 'committed')"}
	args := []interface{}{}

	if criteria.ViewerID == "" {
		return strings.Join(clauses, "\n OR "), args
	}

	args = append(args, criteria.ViewerID)
	viewerArg := len(args)
	clauses = append(clauses, fmt.Sprintf("(actor_id = $%d)", viewerArg))

	for _, clause := range criteria.PaperClauses {
		args = append(args, clause.PaperID)
		paperArg := len(args)
		args = append(args, pq.StringArray(clause.Roles))
		clauses = append(clauses, fmt.Sprintf(
			"(paper_id = $%d AND visibility && $%d AND status = 'committed')",
			paperArg, len(args)))
	}

	for _, clause := range criteria.SubmissionClauses {
		args = append(args, clause.SubmissionID)
		subArg := len(args)
		args = append(args, pq.StringArray(clause.Roles))
		clauses = append(clauses, fmt.Sprintf(
			"(submission_id = $%d AND visibility && $%d AND status = 'committed')",
			subArg, len(args)))
	}

	for _, clause := range criteria.ReviewerClauses {
		args = append(args, clause.SubmissionID)
		clauses = append(clauses, fmt.Sprintf(
			"(submission_id = $%d AND '%s' = ANY(visibility) AND (actor_id = $%d OR assignee_id = $%d OR type = '%s') AND status = 'committed')",
			len(args), models.VisibilityAssignedReviewers, viewerArg, viewerArg, models.EventPaperNewVersion))
	}

	return strings.Join(clauses, "\n OR "), args
}
