package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/peerpress/peerpress-api/internal/dto"
	"github.com/peerpress/peerpress-api/internal/models"
	"github.com/peerpress/peerpress-api/internal/repository"
	appErrors "github.com/peerpress/peerpress-api/pkg/errors"
)

type eventStoreStub struct {
	events    map[string]*models.PaperEvent
	inserted  []*models.PaperEvent
	insertErr error
	updateErr error
	patches   []repository.EventPatch

	visibleIDs   []string
	criteria     *repository.VisibilityCriteria
	visibleCalls int
	listEvents   []models.PaperEvent
}

func (s *eventStoreStub) Insert(ctx context.Context, event *models.PaperEvent) error {
	if s.insertErr != nil {
		return s.insertErr
	}
	s.inserted = append(s.inserted, event)
	if s.events == nil {
		s.events = map[string]*models.PaperEvent{}
	}
	s.events[event.ID] = event
	return nil
}

func (s *eventStoreStub) Get(ctx context.Context, id string) (*models.PaperEvent, error) {
	if event, ok := s.events[id]; ok {
		copied := *event
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (s *eventStoreStub) Update(ctx context.Context, patch repository.EventPatch) error {
	s.patches = append(s.patches, patch)
	if s.updateErr != nil {
		return s.updateErr
	}
	event, ok := s.events[patch.ID]
	if !ok {
		return repository.ErrNoRowsAffected
	}
	if patch.Visibility != nil {
		event.Visibility = pq.StringArray(patch.Visibility)
	}
	if patch.Status != nil {
		event.Status = *patch.Status
	}
	return nil
}

func (s *eventStoreStub) VisibleIDs(ctx context.Context, criteria repository.VisibilityCriteria) ([]string, error) {
	s.visibleCalls++
	s.criteria = &criteria
	return s.visibleIDs, nil
}

func (s *eventStoreStub) ListVisibleForPaper(ctx context.Context, paperID string, criteria repository.VisibilityCriteria) ([]models.PaperEvent, error) {
	s.criteria = &criteria
	return s.listEvents, nil
}

type paperReaderStub struct {
	papers      map[string]*models.Paper
	authorships []models.Authorship
}

func (s *paperReaderStub) Get(ctx context.Context, id string) (*models.Paper, error) {
	if paper, ok := s.papers[id]; ok {
		return paper, nil
	}
	return nil, sql.ErrNoRows
}

func (s *paperReaderStub) ListAuthorships(ctx context.Context, userID string) ([]models.Authorship, error) {
	return s.authorships, nil
}

type journalReaderStub struct {
	model       models.JournalModel
	modelErr    error
	membership  *models.JournalMembership
	memberships []models.JournalMembership
}

func (s *journalReaderStub) GetModel(ctx context.Context, journalID string) (models.JournalModel, error) {
	if s.modelErr != nil {
		return "", s.modelErr
	}
	return s.model, nil
}

func (s *journalReaderStub) GetMembership(ctx context.Context, journalID, userID string) (*models.JournalMembership, error) {
	return s.membership, nil
}

func (s *journalReaderStub) ListMemberships(ctx context.Context, userID string) ([]models.JournalMembership, error) {
	return s.memberships, nil
}

type submissionReaderStub struct {
	active      *models.ActiveSubmission
	submissions map[string]*models.Submission
	byJournal   []string
	assignments []models.SubmissionAssignment
}

func (s *submissionReaderStub) GetActive(ctx context.Context, paperID string) (*models.ActiveSubmission, error) {
	return s.active, nil
}

func (s *submissionReaderStub) Get(ctx context.Context, id string) (*models.Submission, error) {
	if submission, ok := s.submissions[id]; ok {
		return submission, nil
	}
	return nil, sql.ErrNoRows
}

func (s *submissionReaderStub) ListByJournal(ctx context.Context, journalID string) ([]string, error) {
	return s.byJournal, nil
}

func (s *submissionReaderStub) ListAssignments(ctx context.Context, userID string) ([]models.SubmissionAssignment, error) {
	return s.assignments, nil
}

type feedCacheStub struct {
	values   map[string][]byte
	sets     []string
	patterns []string
}

func (s *feedCacheStub) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := s.values[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (s *feedCacheStub) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if s.values == nil {
		s.values = map[string][]byte{}
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.values[key] = raw
	s.sets = append(s.sets, key)
	return nil
}

func (s *feedCacheStub) DeleteByPattern(ctx context.Context, pattern string) error {
	s.patterns = append(s.patterns, pattern)
	s.values = nil
	return nil
}

type publisherStub struct {
	subjects []string
}

func (s *publisherStub) Publish(eventType string, payload interface{}) error {
	s.subjects = append(s.subjects, eventType)
	return nil
}

type auditRecorderStub struct {
	logs []*models.AuditLog
}

func (s *auditRecorderStub) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	s.logs = append(s.logs, log)
	return nil
}

type eventFixture struct {
	store       *eventStoreStub
	papers      *paperReaderStub
	journals    *journalReaderStub
	submissions *submissionReaderStub
	cache       *feedCacheStub
	bus         *publisherStub
	audit       *auditRecorderStub
	service     *EventService
}

func newEventFixture(cfg EventServiceConfig) *eventFixture {
	f := &eventFixture{
		store:       &eventStoreStub{events: map[string]*models.PaperEvent{}},
		papers:      &paperReaderStub{papers: map[string]*models.Paper{}},
		journals:    &journalReaderStub{},
		submissions: &submissionReaderStub{submissions: map[string]*models.Submission{}},
		cache:       &feedCacheStub{},
		bus:         &publisherStub{},
		audit:       &auditRecorderStub{},
	}
	f.service = NewEventService(
		f.store, f.papers, f.journals, f.submissions,
		f.cache, f.bus, f.audit, nil, nil, zap.NewNop(), cfg)
	return f
}

func paperWithAuthors(id string, showPreprint bool, authors ...models.PaperAuthor) *models.Paper {
	return &models.Paper{
		ID:           id,
		Title:        "Spectral methods",
		ShowPreprint: showPreprint,
		Authors:      authors,
		Versions:     []models.PaperVersion{{PaperID: id, Version: 1}, {PaperID: id, Version: 2}},
	}
}

func actorClaims(id string) *models.JWTClaims {
	return &models.JWTClaims{UserID: id, Email: id + "@example.org"}
}

func TestCreateQualifiesReviewerActionIntoSubmissionScope(t *testing.T) {
	f := newEventFixture(EventServiceConfig{PermissionModels: true})
	f.papers.papers["paper-1"] = paperWithAuthors("paper-1", false,
		models.PaperAuthor{PaperID: "paper-1", UserID: "author-1", Owner: true})
	f.submissions.active = &models.ActiveSubmission{ID: "sub-1", JournalID: "journal-1", Status: "under-review"}
	f.journals.model = models.JournalModelClosed

	event, err := f.service.Create(context.Background(), actorClaims("reviewer-1"), "paper-1",
		dto.CreateEventRequest{Type: models.ActionNewReview})
	require.NoError(t, err)

	assert.Equal(t, models.EventSubmissionNewReview, event.Type)
	require.NotNil(t, event.SubmissionID)
	assert.Equal(t, "sub-1", *event.SubmissionID)
	assert.True(t, event.VisibilityRoles().Equal(models.NewRoleSet(
		models.VisibilityManagingEditors,
		models.VisibilityAssignedEditors,
	)))
	assert.Equal(t, 2, event.Version)
	assert.Equal(t, models.EventStatusCommitted, event.Status)

	require.Len(t, f.bus.subjects, 1)
	assert.Equal(t, string(models.EventSubmissionNewReview), f.bus.subjects[0])
	require.Len(t, f.audit.logs, 1)
	assert.Equal(t, models.AuditActionEventCreate, f.audit.logs[0].Action)
	assert.Contains(t, f.cache.patterns, "events:visible:*")
}

func TestCreateAuthorReviewStaysPaperScoped(t *testing.T) {
	f := newEventFixture(EventServiceConfig{PermissionModels: true})
	f.papers.papers["paper-1"] = paperWithAuthors("paper-1", false,
		models.PaperAuthor{PaperID: "paper-1", UserID: "author-1", Owner: true})
	f.submissions.active = &models.ActiveSubmission{ID: "sub-1", JournalID: "journal-1"}
	f.journals.model = models.JournalModelClosed

	event, err := f.service.Create(context.Background(), actorClaims("author-1"), "paper-1",
		dto.CreateEventRequest{Type: models.ActionNewComment})
	require.NoError(t, err)

	assert.Equal(t, models.EventPaperNewComment, event.Type)
	assert.True(t, event.VisibilityRoles().Equal(models.NewRoleSet(models.VisibilityAuthors)))
}

func TestCreatePreprintPaperDefaultsPublic(t *testing.T) {
	f := newEventFixture(EventServiceConfig{PermissionModels: true})
	f.papers.papers["paper-1"] = paperWithAuthors("paper-1", true,
		models.PaperAuthor{PaperID: "paper-1", UserID: "author-1", Owner: true})

	event, err := f.service.Create(context.Background(), actorClaims("author-1"), "paper-1",
		dto.CreateEventRequest{Type: string(models.EventPaperNewVersion)})
	require.NoError(t, err)

	assert.True(t, event.VisibilityRoles().Equal(models.NewRoleSet(models.VisibilityPublic)))
	assert.Nil(t, event.SubmissionID)
}

func TestCreatePrivateDraftDefaultsAuthors(t *testing.T) {
	f := newEventFixture(EventServiceConfig{PermissionModels: true})
	f.papers.papers["paper-1"] = paperWithAuthors("paper-1", false,
		models.PaperAuthor{PaperID: "paper-1", UserID: "author-1", Owner: true})

	event, err := f.service.Create(context.Background(), actorClaims("author-1"), "paper-1",
		dto.CreateEventRequest{Type: string(models.EventPaperNewVersion)})
	require.NoError(t, err)

	assert.True(t, event.VisibilityRoles().Equal(models.NewRoleSet(models.VisibilityAuthors)))
}

func TestCreateExplicitVisibilityOverrideWins(t *testing.T) {
	f := newEventFixture(EventServiceConfig{PermissionModels: true})
	f.papers.papers["paper-1"] = paperWithAuthors("paper-1", false,
		models.PaperAuthor{PaperID: "paper-1", UserID: "author-1", Owner: true})
	f.submissions.active = &models.ActiveSubmission{ID: "sub-1", JournalID: "journal-1"}
	f.journals.model = models.JournalModelClosed

	event, err := f.service.Create(context.Background(), actorClaims("author-1"), "paper-1",
		dto.CreateEventRequest{
			Type:       string(models.EventPaperNewVersion),
			Visibility: []string{"public", "authors"},
		})
	require.NoError(t, err)

	assert.True(t, event.VisibilityRoles().Equal(models.NewRoleSet(
		models.VisibilityPublic, models.VisibilityAuthors)))
}

func TestCreateRejectsUnknownVisibilityRole(t *testing.T) {
	f := newEventFixture(EventServiceConfig{PermissionModels: true})
	f.papers.papers["paper-1"] = paperWithAuthors("paper-1", false)

	_, err := f.service.Create(context.Background(), actorClaims("author-1"), "paper-1",
		dto.CreateEventRequest{
			Type:       string(models.EventPaperNewVersion),
			Visibility: []string{"everyone"},
		})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
}

func TestCreatePermissionModelsDisabledIgnoresSubmission(t *testing.T) {
	f := newEventFixture(EventServiceConfig{PermissionModels: false})
	f.papers.papers["paper-1"] = paperWithAuthors("paper-1", true,
		models.PaperAuthor{PaperID: "paper-1", UserID: "author-1", Owner: true})
	f.submissions.active = &models.ActiveSubmission{ID: "sub-1", JournalID: "journal-1"}
	f.journals.model = models.JournalModelClosed

	event, err := f.service.Create(context.Background(), actorClaims("author-1"), "paper-1",
		dto.CreateEventRequest{Type: string(models.EventPaperNewVersion)})
	require.NoError(t, err)

	assert.True(t, event.VisibilityRoles().Equal(models.NewRoleSet(models.VisibilityPublic)))
}

func TestCreateMissingPaperID(t *testing.T) {
	f := newEventFixture(EventServiceConfig{PermissionModels: true})
	_, err := f.service.Create(context.Background(), actorClaims("author-1"), "",
		dto.CreateEventRequest{Type: string(models.EventPaperNewVersion)})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrMissingField.Code, appErrors.FromError(err).Code)
}

func TestCreateUnknownPaper(t *testing.T) {
	f := newEventFixture(EventServiceConfig{PermissionModels: true})
	_, err := f.service.Create(context.Background(), actorClaims("author-1"), "paper-9",
		dto.CreateEventRequest{Type: string(models.EventPaperNewVersion)})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestCreateMissingJournal(t *testing.T) {
	f := newEventFixture(EventServiceConfig{PermissionModels: true})
	f.papers.papers["paper-1"] = paperWithAuthors("paper-1", false)
	f.submissions.active = &models.ActiveSubmission{ID: "sub-1", JournalID: "journal-ghost"}
	f.journals.modelErr = sql.ErrNoRows

	_, err := f.service.Create(context.Background(), actorClaims("author-1"), "paper-1",
		dto.CreateEventRequest{Type: string(models.EventPaperNewVersion)})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrMissingJournal.Code, appErrors.FromError(err).Code)
}

func TestCreateInsertAffectedNoRows(t *testing.T) {
	f := newEventFixture(EventServiceConfig{PermissionModels: true})
	f.papers.papers["paper-1"] = paperWithAuthors("paper-1", true)
	f.store.insertErr = repository.ErrNoRowsAffected

	_, err := f.service.Create(context.Background(), actorClaims("author-1"), "paper-1",
		dto.CreateEventRequest{Type: string(models.EventPaperNewVersion)})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInsertFailed.Code, appErrors.FromError(err).Code)
}

func TestCreateReplyActionsNotImplemented(t *testing.T) {
	f := newEventFixture(EventServiceConfig{PermissionModels: true})
	f.papers.papers["paper-1"] = paperWithAuthors("paper-1", true)

	for _, action := range []string{"comment-reply", "review-reply"} {
		_, err := f.service.Create(context.Background(), actorClaims("author-1"), "paper-1",
			dto.CreateEventRequest{Type: action})
		require.Error(t, err)
		assert.Equal(t, appErrors.ErrNotImplemented.Code, appErrors.FromError(err).Code)
	}
}

func TestCreateInProgressEventIsNotPublished(t *testing.T) {
	f := newEventFixture(EventServiceConfig{PermissionModels: true})
	f.papers.papers["paper-1"] = paperWithAuthors("paper-1", true)

	event, err := f.service.Create(context.Background(), actorClaims("author-1"), "paper-1",
		dto.CreateEventRequest{Type: string(models.EventPaperNewVersion), Status: "in-progress"})
	require.NoError(t, err)
	assert.Equal(t, models.EventStatusInProgress, event.Status)
	assert.Empty(t, f.bus.subjects)
}

func TestVisibleEventIDsAnonymousBaseline(t *testing.T) {
	f := newEventFixture(EventServiceConfig{PermissionModels: true})
	f.store.visibleIDs = []string{"event-1"}

	ids, err := f.service.VisibleEventIDs(context.Background(), "")
	require.NoError(t, err)
	assert.Equal(t, []string{"event-1"}, ids)

	require.NotNil(t, f.store.criteria)
	assert.Empty(t, f.store.criteria.ViewerID)
	assert.Empty(t, f.store.criteria.PaperClauses)
	assert.Empty(t, f.store.criteria.SubmissionClauses)
	assert.Empty(t, f.store.criteria.ReviewerClauses)
}

func TestVisibleEventIDsBuildsRoleUnionCriteria(t *testing.T) {
	f := newEventFixture(EventServiceConfig{PermissionModels: true})
	f.store.visibleIDs = []string{"event-1", "event-2"}
	f.papers.authorships = []models.Authorship{{PaperID: "paper-1", Owner: true}}
	f.journals.memberships = []models.JournalMembership{
		{JournalID: "journal-1", UserID: "user-1", Permission: models.JournalPermissionOwner},
	}
	f.submissions.byJournal = []string{"sub-1", "sub-2"}
	f.submissions.assignments = []models.SubmissionAssignment{
		{SubmissionID: "sub-3", Role: models.AssignmentRoleReviewer},
		{SubmissionID: "sub-4", Role: models.AssignmentRoleEditor},
	}

	ids, err := f.service.VisibleEventIDs(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Len(t, ids, 2)

	criteria := f.store.criteria
	require.NotNil(t, criteria)
	assert.Equal(t, "user-1", criteria.ViewerID)
	require.Len(t, criteria.PaperClauses, 1)
	assert.Contains(t, criteria.PaperClauses[0].Roles, string(models.VisibilityCorrespondingAuthors))
	require.Len(t, criteria.SubmissionClauses, 3)
	assert.Contains(t, criteria.SubmissionClauses[0].Roles, string(models.VisibilityManagingEditors))
	// The editor assignment grants only the assigned-editors audience on its
	// own submission.
	editorClause := criteria.SubmissionClauses[2]
	assert.Equal(t, "sub-4", editorClause.SubmissionID)
	assert.Equal(t, []string{string(models.VisibilityAssignedEditors)}, editorClause.Roles)
	require.Len(t, criteria.ReviewerClauses, 1)
	assert.Equal(t, "sub-3", criteria.ReviewerClauses[0].SubmissionID)

	assert.Contains(t, f.cache.sets, "events:visible:user-1")
}

func TestVisibleEventIDsServedFromCache(t *testing.T) {
	f := newEventFixture(EventServiceConfig{PermissionModels: true})
	require.NoError(t, f.cache.Set(context.Background(), "events:visible:user-1", []string{"cached"}, time.Minute))

	ids, err := f.service.VisibleEventIDs(context.Background(), "user-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"cached"}, ids)
	assert.Zero(t, f.store.visibleCalls)
}

func seedEvent(f *eventFixture, event *models.PaperEvent) *models.PaperEvent {
	f.store.events[event.ID] = event
	return event
}

func TestIsEventVisibleActorAlwaysSees(t *testing.T) {
	f := newEventFixture(EventServiceConfig{PermissionModels: true})
	seedEvent(f, &models.PaperEvent{
		ID: "event-1", PaperID: "paper-1", ActorID: "user-1",
		Type: models.EventSubmissionNewReview, Status: models.EventStatusInProgress,
		Visibility: []string{"managing-editors"},
	})

	visible, err := f.service.IsEventVisible(context.Background(), "event-1", "user-1")
	require.NoError(t, err)
	assert.True(t, visible)
}

func TestIsEventVisiblePublicCommittedForAnonymous(t *testing.T) {
	f := newEventFixture(EventServiceConfig{PermissionModels: true})
	seedEvent(f, &models.PaperEvent{
		ID: "event-1", PaperID: "paper-1", ActorID: "user-1",
		Type: models.EventPaperPreprintPosted, Status: models.EventStatusCommitted,
		Visibility: []string{"public"},
	})
	seedEvent(f, &models.PaperEvent{
		ID: "event-2", PaperID: "paper-1", ActorID: "user-1",
		Type: models.EventPaperPreprintPosted, Status: models.EventStatusInProgress,
		Visibility: []string{"public"},
	})

	visible, err := f.service.IsEventVisible(context.Background(), "event-1", "")
	require.NoError(t, err)
	assert.True(t, visible)

	visible, err = f.service.IsEventVisible(context.Background(), "event-2", "")
	require.NoError(t, err)
	assert.False(t, visible)
}

func TestIsEventVisibleAuthorAudience(t *testing.T) {
	f := newEventFixture(EventServiceConfig{PermissionModels: true})
	f.papers.papers["paper-1"] = paperWithAuthors("paper-1", false,
		models.PaperAuthor{PaperID: "paper-1", UserID: "author-2"})
	seedEvent(f, &models.PaperEvent{
		ID: "event-1", PaperID: "paper-1", ActorID: "author-1",
		Type: models.EventPaperNewReview, Status: models.EventStatusCommitted,
		Visibility: []string{"authors"},
	})

	visible, err := f.service.IsEventVisible(context.Background(), "event-1", "author-2")
	require.NoError(t, err)
	assert.True(t, visible)

	visible, err = f.service.IsEventVisible(context.Background(), "event-1", "stranger")
	require.NoError(t, err)
	assert.False(t, visible)
}

func TestIsEventVisibleAssignedReviewerRules(t *testing.T) {
	f := newEventFixture(EventServiceConfig{PermissionModels: true})
	subID := "sub-1"
	f.submissions.submissions[subID] = &models.Submission{
		ID: subID, PaperID: "paper-1", JournalID: "journal-1",
		Reviewers: []string{"reviewer-1", "reviewer-2"},
	}

	otherReview := seedEvent(f, &models.PaperEvent{
		ID: "review-by-2", PaperID: "paper-1", ActorID: "reviewer-2", SubmissionID: &subID,
		Type: models.EventSubmissionNewReview, Status: models.EventStatusCommitted,
		Visibility: []string{"assigned-reviewers"},
	})
	newVersion := seedEvent(f, &models.PaperEvent{
		ID: "new-version", PaperID: "paper-1", ActorID: "author-1", SubmissionID: &subID,
		Type: models.EventPaperNewVersion, Status: models.EventStatusCommitted,
		Visibility: []string{"assigned-reviewers", "authors"},
	})
	assigneeID := "reviewer-1"
	assignedTo1 := seedEvent(f, &models.PaperEvent{
		ID: "assignment", PaperID: "paper-1", ActorID: "editor-1", SubmissionID: &subID,
		AssigneeID: &assigneeID,
		Type:       models.EventSubmissionReviewerAssigned, Status: models.EventStatusCommitted,
		Visibility: []string{"assigned-reviewers"},
	})

	// A peer's review is not visible to a co-reviewer.
	visible, err := f.service.IsEventVisible(context.Background(), otherReview.ID, "reviewer-1")
	require.NoError(t, err)
	assert.False(t, visible)

	// New versions of the paper under review always are.
	visible, err = f.service.IsEventVisible(context.Background(), newVersion.ID, "reviewer-1")
	require.NoError(t, err)
	assert.True(t, visible)

	// Events naming the reviewer as assignee are.
	visible, err = f.service.IsEventVisible(context.Background(), assignedTo1.ID, "reviewer-1")
	require.NoError(t, err)
	assert.True(t, visible)
}

func TestIsEventVisibleAssignedEditorOnClosedModelReview(t *testing.T) {
	f := newEventFixture(EventServiceConfig{PermissionModels: true})
	subID := "sub-1"
	f.submissions.submissions[subID] = &models.Submission{
		ID: subID, PaperID: "paper-1", JournalID: "journal-1",
		Editors:   []string{"editor-1"},
		Reviewers: []string{"reviewer-1"},
	}
	review := seedEvent(f, &models.PaperEvent{
		ID: "review-1", PaperID: "paper-1", ActorID: "reviewer-1", SubmissionID: &subID,
		Type: models.EventSubmissionNewReview, Status: models.EventStatusCommitted,
		Visibility: []string{"managing-editors", "assigned-editors"},
	})

	// The assigned editor holds only a plain editor membership; the
	// assignment itself grants the assigned-editors audience.
	f.journals.membership = &models.JournalMembership{
		JournalID: "journal-1", UserID: "editor-1", Permission: models.JournalPermissionEditor,
	}
	visible, err := f.service.IsEventVisible(context.Background(), review.ID, "editor-1")
	require.NoError(t, err)
	assert.True(t, visible)

	// An unassigned journal reviewer stays excluded.
	f.journals.membership = &models.JournalMembership{
		JournalID: "journal-1", UserID: "reviewer-9", Permission: models.JournalPermissionReviewer,
	}
	visible, err = f.service.IsEventVisible(context.Background(), review.ID, "reviewer-9")
	require.NoError(t, err)
	assert.False(t, visible)
}

func TestIsEventVisibleMissingEvent(t *testing.T) {
	f := newEventFixture(EventServiceConfig{PermissionModels: true})
	_, err := f.service.IsEventVisible(context.Background(), "ghost", "user-1")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrMissingEvent.Code, appErrors.FromError(err).Code)
}

func TestCanViewAnonymous(t *testing.T) {
	f := newEventFixture(EventServiceConfig{PermissionModels: true})
	seedEvent(f, &models.PaperEvent{
		ID: "event-1", Status: models.EventStatusCommitted, Visibility: []string{"public"},
	})
	seedEvent(f, &models.PaperEvent{
		ID: "event-2", Status: models.EventStatusCommitted, Visibility: []string{"authors"},
	})

	ok, err := f.service.CanViewAnonymous(context.Background(), "event-1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.service.CanViewAnonymous(context.Background(), "event-2")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCanEditSelf(t *testing.T) {
	f := newEventFixture(EventServiceConfig{PermissionModels: true})
	seedEvent(f, &models.PaperEvent{ID: "event-1", ActorID: "user-1", Type: models.EventPaperNewComment})

	ok, err := f.service.CanEdit(context.Background(), actorClaims("user-1"), "event-1")
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCanEditCorrespondingAuthorOnVersionEvents(t *testing.T) {
	f := newEventFixture(EventServiceConfig{PermissionModels: true})
	f.papers.papers["paper-1"] = paperWithAuthors("paper-1", false,
		models.PaperAuthor{PaperID: "paper-1", UserID: "owner-1", Owner: true},
		models.PaperAuthor{PaperID: "paper-1", UserID: "author-2"})
	seedEvent(f, &models.PaperEvent{ID: "event-1", PaperID: "paper-1", ActorID: "author-2", Type: models.EventPaperNewVersion})

	ok, err := f.service.CanEdit(context.Background(), actorClaims("owner-1"), "event-1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = f.service.CanEdit(context.Background(), actorClaims("author-2"), "event-1")
	require.NoError(t, err)
	assert.True(t, ok) // actor

	ok, err = f.service.CanEdit(context.Background(), actorClaims("stranger"), "event-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCanEditSubmissionEvents(t *testing.T) {
	f := newEventFixture(EventServiceConfig{PermissionModels: true})
	subID := "sub-1"
	f.submissions.submissions[subID] = &models.Submission{
		ID: subID, JournalID: "journal-1", Editors: []string{"editor-1"},
	}
	seedEvent(f, &models.PaperEvent{
		ID: "event-1", PaperID: "paper-1", ActorID: "someone", SubmissionID: &subID,
		Type: models.EventSubmissionStatusChanged,
	})

	f.journals.membership = &models.JournalMembership{
		JournalID: "journal-1", UserID: "owner-1", Permission: models.JournalPermissionOwner,
	}
	ok, err := f.service.CanEdit(context.Background(), actorClaims("owner-1"), "event-1")
	require.NoError(t, err)
	assert.True(t, ok)

	f.journals.membership = &models.JournalMembership{
		JournalID: "journal-1", UserID: "editor-1", Permission: models.JournalPermissionEditor,
	}
	ok, err = f.service.CanEdit(context.Background(), actorClaims("editor-1"), "event-1")
	require.NoError(t, err)
	assert.True(t, ok)

	// Journal editor without an assignment on this submission may not edit.
	f.journals.membership = &models.JournalMembership{
		JournalID: "journal-1", UserID: "editor-2", Permission: models.JournalPermissionEditor,
	}
	ok, err = f.service.CanEdit(context.Background(), actorClaims("editor-2"), "event-1")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCanEditAbsentEvent(t *testing.T) {
	f := newEventFixture(EventServiceConfig{PermissionModels: true})
	ok, err := f.service.CanEdit(context.Background(), actorClaims("user-1"), "ghost")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestUpdateRequiresFields(t *testing.T) {
	f := newEventFixture(EventServiceConfig{PermissionModels: true})
	_, err := f.service.Update(context.Background(), actorClaims("user-1"), "event-1", dto.UpdateEventRequest{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUpdateFailed.Code, appErrors.FromError(err).Code)
}

func TestUpdateMissingID(t *testing.T) {
	f := newEventFixture(EventServiceConfig{PermissionModels: true})
	status := "committed"
	_, err := f.service.Update(context.Background(), actorClaims("user-1"), "", dto.UpdateEventRequest{Status: &status})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrMissingField.Code, appErrors.FromError(err).Code)
}

func TestUpdateMissingEvent(t *testing.T) {
	f := newEventFixture(EventServiceConfig{PermissionModels: true})
	status := "committed"
	_, err := f.service.Update(context.Background(), actorClaims("user-1"), "ghost", dto.UpdateEventRequest{Status: &status})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrMissingEvent.Code, appErrors.FromError(err).Code)
}

func TestUpdateForbiddenForNonEditor(t *testing.T) {
	f := newEventFixture(EventServiceConfig{PermissionModels: true})
	seedEvent(f, &models.PaperEvent{ID: "event-1", PaperID: "paper-1", ActorID: "someone", Type: models.EventPaperNewComment})

	status := "committed"
	_, err := f.service.Update(context.Background(), actorClaims("stranger"), "event-1", dto.UpdateEventRequest{Status: &status})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}

func TestUpdateZeroRowsIsFailure(t *testing.T) {
	f := newEventFixture(EventServiceConfig{PermissionModels: true})
	seedEvent(f, &models.PaperEvent{ID: "event-1", ActorID: "user-1", Type: models.EventPaperNewComment})
	f.store.updateErr = repository.ErrNoRowsAffected

	status := "committed"
	_, err := f.service.Update(context.Background(), actorClaims("user-1"), "event-1", dto.UpdateEventRequest{Status: &status})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrUpdateFailure.Code, appErrors.FromError(err).Code)
}

func TestUpdateCommitPublishesAndInvalidates(t *testing.T) {
	f := newEventFixture(EventServiceConfig{PermissionModels: true})
	seedEvent(f, &models.PaperEvent{
		ID: "event-1", ActorID: "user-1", Type: models.EventSubmissionNewReview,
		Status: models.EventStatusInProgress, Visibility: []string{"managing-editors"},
	})

	status := "committed"
	updated, err := f.service.Update(context.Background(), actorClaims("user-1"), "event-1",
		dto.UpdateEventRequest{Status: &status, Visibility: []string{"managing-editors", "assigned-editors"}})
	require.NoError(t, err)

	assert.Equal(t, models.EventStatusCommitted, updated.Status)
	assert.True(t, updated.VisibilityRoles().Contains(models.VisibilityAssignedEditors))
	require.Len(t, f.bus.subjects, 1)
	assert.Contains(t, f.cache.patterns, "events:visible:*")
	require.Len(t, f.audit.logs, 1)
	assert.Equal(t, models.AuditActionEventUpdate, f.audit.logs[0].Action)
}

func TestVisibleEventIDsObservesQueryDuration(t *testing.T) {
	metrics := NewMetricsService()
	store := &eventStoreStub{events: map[string]*models.PaperEvent{}, visibleIDs: []string{"event-1"}}
	svc := NewEventService(store, &paperReaderStub{}, &journalReaderStub{}, &submissionReaderStub{},
		nil, nil, nil, metrics, nil, zap.NewNop(), EventServiceConfig{})

	_, err := svc.VisibleEventIDs(context.Background(), "")
	require.NoError(t, err)

	w := httptest.NewRecorder()
	metrics.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Contains(t, w.Body.String(), `db_query_duration_seconds_count{query="visible_event_ids"} 1`)
}

func TestPaperTimelineListsVisibleEvents(t *testing.T) {
	f := newEventFixture(EventServiceConfig{PermissionModels: true})
	f.papers.papers["paper-1"] = paperWithAuthors("paper-1", true)
	f.store.listEvents = []models.PaperEvent{
		{ID: "event-1", PaperID: "paper-1", Type: models.EventPaperPreprintPosted},
	}

	paper, events, err := f.service.PaperTimeline(context.Background(), "", "paper-1")
	require.NoError(t, err)
	assert.Equal(t, "paper-1", paper.ID)
	require.Len(t, events, 1)

	_, _, err = f.service.PaperTimeline(context.Background(), "", "ghost")
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
