package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/peerpress/peerpress-api/internal/dto"
	"github.com/peerpress/peerpress-api/internal/models"
	"github.com/peerpress/peerpress-api/internal/repository"
	appErrors "github.com/peerpress/peerpress-api/pkg/errors"
)

const (
	eventResource     = "paper_event"
	feedCacheKeyAnon  = "events:visible:anon"
	feedCachePrefix   = "events:visible:"
	feedCachePattern  = "events:visible:*"
	defaultFeedExpiry = time.Minute
)

type eventStore interface {
	Insert(ctx context.Context, event *models.PaperEvent) error
	Get(ctx context.Context, id string) (*models.PaperEvent, error)
	Update(ctx context.Context, patch repository.EventPatch) error
	VisibleIDs(ctx context.Context, criteria repository.VisibilityCriteria) ([]string, error)
	ListVisibleForPaper(ctx context.Context, paperID string, criteria repository.VisibilityCriteria) ([]models.PaperEvent, error)
}

type paperReader interface {
	Get(ctx context.Context, id string) (*models.Paper, error)
	ListAuthorships(ctx context.Context, userID string) ([]models.Authorship, error)
}

type journalReader interface {
	GetModel(ctx context.Context, journalID string) (models.JournalModel, error)
	GetMembership(ctx context.Context, journalID, userID string) (*models.JournalMembership, error)
	ListMemberships(ctx context.Context, userID string) ([]models.JournalMembership, error)
}

type submissionReader interface {
	GetActive(ctx context.Context, paperID string) (*models.ActiveSubmission, error)
	Get(ctx context.Context, id string) (*models.Submission, error)
	ListByJournal(ctx context.Context, journalID string) ([]string, error)
	ListAssignments(ctx context.Context, userID string) ([]models.SubmissionAssignment, error)
}

type feedCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

type eventPublisher interface {
	Publish(eventType string, payload interface{}) error
}

type auditLogger interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// EventServiceConfig carries the capability flags the engine needs. The
// journal permission-model behaviour is an explicit flag here so it is
// deterministic under test, not a shared flag-store lookup.
type EventServiceConfig struct {
	PermissionModels bool
	FeedCacheTTL     time.Duration
}

// EventService is the paper-event engine: it classifies incoming actions,
// stamps visibility, resolves per-viewer visible sets and authorizes edits.
type EventService struct {
	events      eventStore
	papers      paperReader
	journals    journalReader
	submissions submissionReader
	cache       feedCache
	bus         eventPublisher
	audit       auditLogger
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
	config      EventServiceConfig
}

// NewEventService builds an EventService with sane defaults. Cache, bus and
// audit are optional.
func NewEventService(
	events eventStore,
	papers paperReader,
	journals journalReader,
	submissions submissionReader,
	cache feedCache,
	bus eventPublisher,
	audit auditLogger,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	config EventServiceConfig,
) *EventService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if config.FeedCacheTTL <= 0 {
		config.FeedCacheTTL = defaultFeedExpiry
	}
	return &EventService{
		events:      events,
		papers:      papers,
		journals:    journals,
		submissions: submissions,
		cache:       cache,
		bus:         bus,
		audit:       audit,
		metrics:     metrics,
		validator:   validate,
		logger:      logger,
		config:      config,
	}
}

// Create records an action on a paper. The type is qualified from the actor's
// relationship to the paper, visibility is stamped once (explicit override
// wins over the policy table), and the event is persisted in a single insert.
func (s *EventService) Create(ctx context.Context, actor *models.JWTClaims, paperID string, req dto.CreateEventRequest) (*models.PaperEvent, error) {
	if actor == nil {
		return nil, appErrors.ErrUnauthorized
	}
	if paperID == "" {
		return nil, appErrors.Clone(appErrors.ErrMissingField, "paperId is required")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid event payload")
	}

	active, err := s.submissions.GetActive(ctx, paperID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve active submission")
	}

	paper, err := s.papers.Get(ctx, paperID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "paper not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load paper")
	}

	isAuthor := false
	for _, author := range paper.Authors {
		if author.UserID == actor.UserID {
			isAuthor = true
			break
		}
	}

	eventType, err := qualifyEventType(req.Type, isAuthor, active != nil)
	if err != nil {
		return nil, err
	}

	status := models.EventStatusCommitted
	if req.Status != "" {
		status = models.EventStatus(req.Status)
		if status != models.EventStatusCommitted && status != models.EventStatusInProgress {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown event status %q", req.Status))
		}
	}

	event := &models.PaperEvent{
		PaperID:         paperID,
		ActorID:         actor.UserID,
		Type:            eventType,
		Status:          status,
		AssigneeID:      req.AssigneeID,
		ReviewID:        req.ReviewID,
		ReviewCommentID: req.ReviewCommentID,
		SubmissionID:    req.SubmissionID,
		NewStatus:       req.NewStatus,
		PaperCommentID:  req.PaperCommentID,
	}
	if event.SubmissionID == nil && active != nil {
		event.SubmissionID = &active.ID
	}
	if req.Version != nil {
		event.Version = *req.Version
	} else {
		event.Version = paper.LatestVersion()
	}

	if len(req.Visibility) > 0 {
		override, err := parseVisibility(req.Visibility)
		if err != nil {
			return nil, err
		}
		event.SetVisibility(override)
	} else {
		visibility, err := s.assignVisibility(ctx, paper, active, eventType)
		if err != nil {
			return nil, err
		}
		event.SetVisibility(visibility)
	}

	insertStart := time.Now()
	err = s.events.Insert(ctx, event)
	s.metrics.ObserveDBQuery("event_insert", time.Since(insertStart))
	if err != nil {
		if errors.Is(err, repository.ErrNoRowsAffected) {
			return nil, appErrors.Clone(appErrors.ErrInsertFailed, "event insert affected no rows")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist event")
	}

	s.metrics.ObserveEventCreated(string(event.Type))
	s.invalidateFeeds(ctx)
	if event.Status == models.EventStatusCommitted {
		s.publish(event)
	}
	s.emitAudit(ctx, actor.UserID, models.AuditActionEventCreate, event)

	return event, nil
}

// assignVisibility computes the default role set for a new event. Precedence:
// submission-governed policy, then public preprint, then private draft.
func (s *EventService) assignVisibility(ctx context.Context, paper *models.Paper, active *models.ActiveSubmission, eventType models.EventType) (models.RoleSet, error) {
	if active != nil && s.config.PermissionModels {
		model, err := s.journals.GetModel(ctx, active.JournalID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrMissingJournal,
					fmt.Sprintf("journal %s not found for submission %s", active.JournalID, active.ID))
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load journal model")
		}
		return VisibilityFor(model, eventType)
	}

	if paper.ShowPreprint {
		return models.NewRoleSet(models.VisibilityPublic), nil
	}

	return models.NewRoleSet(models.VisibilityAuthors), nil
}

// VisibleEventIDs returns every event id the viewer may see. An empty viewer
// id means anonymous and yields the public committed baseline only.
func (s *EventService) VisibleEventIDs(ctx context.Context, viewerID string) ([]string, error) {
	key := feedCacheKeyAnon
	if viewerID != "" {
		key = feedCachePrefix + viewerID
	}

	if s.cache != nil {
		var cached []string
		if err := s.cache.Get(ctx, key, &cached); err == nil {
			s.metrics.RecordFeedCacheLookup(true)
			return cached, nil
		}
		s.metrics.RecordFeedCacheLookup(false)
	}

	criteria, err := s.buildCriteria(ctx, viewerID)
	if err != nil {
		return nil, err
	}

	queryStart := time.Now()
	ids, err := s.events.VisibleIDs(ctx, criteria)
	s.metrics.ObserveDBQuery("visible_event_ids", time.Since(queryStart))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve visible events")
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, key, ids, s.config.FeedCacheTTL); err != nil {
			s.logger.Warn("failed to cache visible event ids", zap.Error(err))
		}
	}

	return ids, nil
}

// buildCriteria assembles the role-union clauses of the visible-set query
// from the viewer's authorships, journal memberships and assignments. This is
// the decision logic; the repository only translates it to SQL.
func (s *EventService) buildCriteria(ctx context.Context, viewerID string) (repository.VisibilityCriteria, error) {
	criteria := repository.VisibilityCriteria{ViewerID: viewerID}
	if viewerID == "" {
		return criteria, nil
	}

	authorships, err := s.papers.ListAuthorships(ctx, viewerID)
	if err != nil {
		return criteria, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load authorships")
	}
	for _, authorship := range authorships {
		criteria.PaperClauses = append(criteria.PaperClauses, repository.PaperRoleClause{
			PaperID: authorship.PaperID,
			Roles:   authorVisibilityRoles(authorship.Owner).Strings(),
		})
	}

	memberships, err := s.journals.ListMemberships(ctx, viewerID)
	if err != nil {
		return criteria, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load journal memberships")
	}
	for _, membership := range memberships {
		roles := rolesForPermission(membership.Permission)
		if len(roles) == 0 {
			continue
		}
		submissionIDs, err := s.submissions.ListByJournal(ctx, membership.JournalID)
		if err != nil {
			return criteria, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load journal submissions")
		}
		for _, submissionID := range submissionIDs {
			criteria.SubmissionClauses = append(criteria.SubmissionClauses, repository.SubmissionRoleClause{
				SubmissionID: submissionID,
				Roles:        roles.Strings(),
			})
		}
	}

	assignments, err := s.submissions.ListAssignments(ctx, viewerID)
	if err != nil {
		return criteria, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load submission assignments")
	}
	for _, assignment := range assignments {
		switch assignment.Role {
		case models.AssignmentRoleReviewer:
			criteria.ReviewerClauses = append(criteria.ReviewerClauses, repository.AssignedReviewerClause{
				SubmissionID: assignment.SubmissionID,
			})
		case models.AssignmentRoleEditor:
			// Assigned editors match the assigned-editors audience on their
			// submission without the actor/assignee carve-out reviewers get.
			criteria.SubmissionClauses = append(criteria.SubmissionClauses, repository.SubmissionRoleClause{
				SubmissionID: assignment.SubmissionID,
				Roles:        []string{string(models.VisibilityAssignedEditors)},
			})
		}
	}

	return criteria, nil
}

// IsEventVisible answers the single-event visibility question with the same
// role-union logic as the feed, restricted to one event id.
func (s *EventService) IsEventVisible(ctx context.Context, eventID, viewerID string) (bool, error) {
	event, err := s.events.Get(ctx, eventID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, appErrors.Clone(appErrors.ErrMissingEvent, "event not found")
		}
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
	}

	visibility := event.VisibilityRoles()
	committed := event.Status == models.EventStatusCommitted

	if viewerID != "" && event.ActorID == viewerID {
		return true, nil
	}
	if committed && visibility.Contains(models.VisibilityPublic) {
		return true, nil
	}
	if viewerID == "" {
		return false, nil
	}

	paper, err := s.papers.Get(ctx, event.PaperID)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load paper")
	}
	if paper != nil {
		for _, author := range paper.Authors {
			if author.UserID != viewerID {
				continue
			}
			if committed && visibility.Intersects(authorVisibilityRoles(author.Owner)) {
				return true, nil
			}
		}
	}

	if event.SubmissionID == nil {
		return false, nil
	}
	submission, err := s.submissions.Get(ctx, *event.SubmissionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load submission")
	}

	membership, err := s.journals.GetMembership(ctx, submission.JournalID, viewerID)
	if err != nil {
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load journal membership")
	}
	if membership != nil && committed && visibility.Intersects(rolesForPermission(membership.Permission)) {
		return true, nil
	}

	if submission.HasEditor(viewerID) && committed && visibility.Contains(models.VisibilityAssignedEditors) {
		return true, nil
	}

	if submission.HasReviewer(viewerID) && committed && visibility.Contains(models.VisibilityAssignedReviewers) {
		if event.ActorID == viewerID ||
			(event.AssigneeID != nil && *event.AssigneeID == viewerID) ||
			event.Type == models.EventPaperNewVersion {
			return true, nil
		}
	}

	return false, nil
}

// CanViewAnonymous reports whether the event is in the anonymous baseline:
// committed with public visibility.
func (s *EventService) CanViewAnonymous(ctx context.Context, eventID string) (bool, error) {
	event, err := s.events.Get(ctx, eventID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, appErrors.Clone(appErrors.ErrMissingEvent, "event not found")
		}
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
	}
	return event.Status == models.EventStatusCommitted && event.VisibilityRoles().Contains(models.VisibilityPublic), nil
}

// GetVisible fetches an event, hiding its existence from viewers who may not
// see it.
func (s *EventService) GetVisible(ctx context.Context, eventID, viewerID string) (*models.PaperEvent, error) {
	visible, err := s.IsEventVisible(ctx, eventID, viewerID)
	if err != nil {
		return nil, err
	}
	if !visible {
		return nil, appErrors.Clone(appErrors.ErrMissingEvent, "event not found")
	}

	event, err := s.events.Get(ctx, eventID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
	}
	return event, nil
}

// CanEdit reports whether the user may edit the event: the actor always may;
// corresponding authors may edit paper-scoped version/preprint events;
// managing editors and specifically assigned editors may edit
// submission-scoped events. An absent event yields false.
func (s *EventService) CanEdit(ctx context.Context, user *models.JWTClaims, eventID string) (bool, error) {
	if user == nil {
		return false, appErrors.Clone(appErrors.ErrMissingContext, "authenticated user required")
	}

	event, err := s.events.Get(ctx, eventID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
	}

	return s.canEditEvent(ctx, user.UserID, event)
}

func (s *EventService) canEditEvent(ctx context.Context, userID string, event *models.PaperEvent) (bool, error) {
	if event.ActorID == userID {
		return true, nil
	}

	switch event.Type {
	case models.EventPaperNewVersion, models.EventPaperPreprintPosted:
		paper, err := s.papers.Get(ctx, event.PaperID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return false, nil
			}
			return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load paper")
		}
		for _, author := range paper.Authors {
			if author.UserID == userID && author.Owner {
				return true, nil
			}
		}
		return false, nil

	case models.EventSubmissionNew,
		models.EventSubmissionNewReview,
		models.EventSubmissionNewComment,
		models.EventSubmissionStatusChanged,
		models.EventSubmissionReviewerAssigned,
		models.EventSubmissionReviewerUnassigned,
		models.EventSubmissionEditorAssigned,
		models.EventSubmissionEditorUnassigned:
		if event.SubmissionID == nil {
			return false, nil
		}
		submission, err := s.submissions.Get(ctx, *event.SubmissionID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return false, nil
			}
			return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load submission")
		}
		membership, err := s.journals.GetMembership(ctx, submission.JournalID, userID)
		if err != nil {
			return false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load journal membership")
		}
		if membership == nil {
			return false, nil
		}
		if membership.Permission == models.JournalPermissionOwner {
			return true, nil
		}
		if membership.Permission == models.JournalPermissionEditor && submission.HasEditor(userID) {
			return true, nil
		}
		return false, nil

	default:
		return false, nil
	}
}

// Update patches the visibility and/or status of an event through the
// authorized edit path. Other fields are immutable after creation.
func (s *EventService) Update(ctx context.Context, user *models.JWTClaims, eventID string, req dto.UpdateEventRequest) (*models.PaperEvent, error) {
	if user == nil {
		return nil, appErrors.Clone(appErrors.ErrMissingContext, "authenticated user required")
	}
	if eventID == "" {
		return nil, appErrors.Clone(appErrors.ErrMissingField, "event id is required")
	}
	if req.Visibility == nil && req.Status == nil {
		return nil, appErrors.Clone(appErrors.ErrUpdateFailed, "nothing to update: provide visibility or status")
	}

	patch := repository.EventPatch{ID: eventID}
	if req.Visibility != nil {
		visibility, err := parseVisibility(req.Visibility)
		if err != nil {
			return nil, err
		}
		patch.Visibility = visibility.Strings()
	}
	if req.Status != nil {
		status := models.EventStatus(*req.Status)
		if status != models.EventStatusCommitted && status != models.EventStatusInProgress {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown event status %q", *req.Status))
		}
		patch.Status = &status
	}

	event, err := s.events.Get(ctx, eventID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrMissingEvent, "event not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load event")
	}

	allowed, err := s.canEditEvent(ctx, user.UserID, event)
	if err != nil {
		return nil, err
	}
	if !allowed {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "not allowed to edit this event")
	}

	wasCommitted := event.Status == models.EventStatusCommitted

	updateStart := time.Now()
	err = s.events.Update(ctx, patch)
	s.metrics.ObserveDBQuery("event_update", time.Since(updateStart))
	if err != nil {
		if errors.Is(err, repository.ErrNoRowsAffected) {
			return nil, appErrors.Clone(appErrors.ErrUpdateFailure, "event update affected no rows")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update event")
	}

	updated, err := s.events.Get(ctx, eventID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reload event")
	}

	s.invalidateFeeds(ctx)
	if !wasCommitted && updated.Status == models.EventStatusCommitted {
		s.publish(updated)
	}
	s.emitAudit(ctx, user.UserID, models.AuditActionEventUpdate, updated)

	return updated, nil
}

// PaperTimeline returns the events of one paper visible to the viewer, oldest
// first.
func (s *EventService) PaperTimeline(ctx context.Context, viewerID, paperID string) (*models.Paper, []models.PaperEvent, error) {
	if paperID == "" {
		return nil, nil, appErrors.Clone(appErrors.ErrMissingField, "paperId is required")
	}

	paper, err := s.papers.Get(ctx, paperID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "paper not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load paper")
	}

	criteria, err := s.buildCriteria(ctx, viewerID)
	if err != nil {
		return nil, nil, err
	}

	listStart := time.Now()
	events, err := s.events.ListVisibleForPaper(ctx, paperID, criteria)
	s.metrics.ObserveDBQuery("paper_timeline", time.Since(listStart))
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load paper timeline")
	}

	return paper, events, nil
}

// qualifyEventType turns a raw action into a fully-qualified event type. A
// review or comment by a paper author is paper activity; by anyone else in a
// live submission it is submission activity.
func qualifyEventType(raw string, isAuthor, hasSubmission bool) (models.EventType, error) {
	switch raw {
	case models.ActionNewReview:
		if !isAuthor && hasSubmission {
			return models.EventSubmissionNewReview, nil
		}
		return models.EventPaperNewReview, nil
	case models.ActionNewComment:
		if !isAuthor && hasSubmission {
			return models.EventSubmissionNewComment, nil
		}
		return models.EventPaperNewComment, nil
	case "comment-reply", "review-reply":
		return "", appErrors.Clone(appErrors.ErrNotImplemented, fmt.Sprintf("%s events are not implemented", raw))
	}

	eventType := models.EventType(raw)
	if !eventType.Valid() {
		return "", appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown event type %q", raw))
	}
	return eventType, nil
}

// parseVisibility validates a caller-supplied visibility override.
func parseVisibility(raw []string) (models.RoleSet, error) {
	if len(raw) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "visibility must not be empty")
	}
	roles := make([]models.VisibilityRole, 0, len(raw))
	for _, value := range raw {
		role := models.VisibilityRole(value)
		if !role.Valid() {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown visibility role %q", value))
		}
		roles = append(roles, role)
	}
	return models.NewRoleSet(roles...), nil
}

func (s *EventService) invalidateFeeds(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.DeleteByPattern(ctx, feedCachePattern); err != nil {
		s.logger.Warn("failed to invalidate visible event cache", zap.Error(err))
	}
}

func (s *EventService) publish(event *models.PaperEvent) {
	if s.bus == nil {
		return
	}
	if err := s.bus.Publish(string(event.Type), event); err != nil {
		s.logger.Warn("failed to publish event", zap.String("event_id", event.ID), zap.Error(err))
	}
}

func (s *EventService) emitAudit(ctx context.Context, userID, action string, event *models.PaperEvent) {
	if s.audit == nil {
		return
	}
	payload, _ := json.Marshal(map[string]interface{}{
		"paperId":    event.PaperID,
		"type":       event.Type,
		"status":     event.Status,
		"visibility": event.Visibility,
	})
	log := &models.AuditLog{
		UserID:     &userID,
		Action:     action,
		Resource:   eventResource,
		ResourceID: &event.ID,
		NewValues:  payload,
		IPAddress:  "system",
		UserAgent:  "event-service",
	}
	if err := s.audit.CreateAuditLog(ctx, log); err != nil {
		s.logger.Warn("failed to record event audit", zap.Error(err))
	}
}
