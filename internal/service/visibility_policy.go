package service

import (
	"fmt"

	"github.com/peerpress/peerpress-api/internal/models"
	appErrors "github.com/peerpress/peerpress-api/pkg/errors"
)

// defaultVisibility maps (journal transparency model, event type) to the role
// set stamped on a new event when no explicit override is supplied. The table
// is immutable and shared; ValidatePolicyTable checks it is exhaustive at
// startup so a missing entry can never surface mid-request.
var defaultVisibility = buildPolicyTable()

func buildPolicyTable() map[models.JournalModel]map[models.EventType]models.RoleSet {
	table := make(map[models.JournalModel]map[models.EventType]models.RoleSet, len(models.AllJournalModels()))

	// public journals: everything is in the open.
	public := make(map[models.EventType]models.RoleSet, len(models.AllEventTypes()))
	for _, eventType := range models.AllEventTypes() {
		public[eventType] = models.NewRoleSet(models.VisibilityPublic)
	}
	table[models.JournalModelPublic] = public

	// open-public and open-closed share defaults: editorial activity is
	// visible to the participants, preprint posting stays public. The two
	// models differ in post-publication widening, which is enforced outside
	// this table.
	openDefault := models.NewRoleSet(
		models.VisibilityAuthors,
		models.VisibilityReviewers,
		models.VisibilityEditors,
	)
	open := make(map[models.EventType]models.RoleSet, len(models.AllEventTypes()))
	for _, eventType := range models.AllEventTypes() {
		open[eventType] = openDefault
	}
	open[models.EventPaperPreprintPosted] = models.NewRoleSet(models.VisibilityPublic)
	table[models.JournalModelOpenPublic] = open
	table[models.JournalModelOpenClosed] = open

	// closed journals: tight scoping. Paper-scoped reviews and comments stay
	// with the authors; submission lifecycle activity stays with the editors
	// handling it; reviewer assignment changes also reach the assigned
	// reviewers themselves.
	editorsOnly := models.NewRoleSet(models.VisibilityManagingEditors, models.VisibilityAssignedEditors)
	table[models.JournalModelClosed] = map[models.EventType]models.RoleSet{
		models.EventPaperNewVersion: models.NewRoleSet(
			models.VisibilityAuthors,
			models.VisibilityManagingEditors,
			models.VisibilityAssignedEditors,
			models.VisibilityAssignedReviewers,
		),
		models.EventPaperPreprintPosted: models.NewRoleSet(models.VisibilityPublic),
		models.EventPaperNewReview:      models.NewRoleSet(models.VisibilityAuthors),
		models.EventPaperNewComment:     models.NewRoleSet(models.VisibilityAuthors),

		models.EventSubmissionNew:           editorsOnly,
		models.EventSubmissionNewReview:     editorsOnly,
		models.EventSubmissionNewComment:    editorsOnly,
		models.EventSubmissionStatusChanged: editorsOnly,

		models.EventSubmissionReviewerAssigned: models.NewRoleSet(
			models.VisibilityManagingEditors,
			models.VisibilityAssignedEditors,
			models.VisibilityAssignedReviewers,
		),
		models.EventSubmissionReviewerUnassigned: models.NewRoleSet(
			models.VisibilityManagingEditors,
			models.VisibilityAssignedEditors,
			models.VisibilityAssignedReviewers,
		),
		models.EventSubmissionEditorAssigned:   editorsOnly,
		models.EventSubmissionEditorUnassigned: editorsOnly,
	}

	return table
}

// VisibilityFor looks up the default role set for an event on a journal with
// the given transparency model. An undefined combination is a configuration
// defect, reported as MISSING_VISIBILITY.
func VisibilityFor(model models.JournalModel, eventType models.EventType) (models.RoleSet, error) {
	byType, ok := defaultVisibility[model]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrMissingVisibility,
			fmt.Sprintf("no visibility table for journal model %q", model))
	}
	roles, ok := byType[eventType]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrMissingVisibility,
			fmt.Sprintf("no visibility for %q under journal model %q", eventType, model))
	}
	return roles, nil
}

// ValidatePolicyTable verifies every (model, event type) combination is
// defined with a non-empty role set. Called once at startup; a failure is a
// deployment blocker, not a runtime condition.
func ValidatePolicyTable() error {
	for _, model := range models.AllJournalModels() {
		byType, ok := defaultVisibility[model]
		if !ok {
			return fmt.Errorf("visibility table missing journal model %q", model)
		}
		for _, eventType := range models.AllEventTypes() {
			roles, ok := byType[eventType]
			if !ok {
				return fmt.Errorf("visibility table missing %q under model %q", eventType, model)
			}
			if len(roles) == 0 {
				return fmt.Errorf("visibility table empty for %q under model %q", eventType, model)
			}
		}
	}
	return nil
}
