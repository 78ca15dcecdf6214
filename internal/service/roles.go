package service

import "github.com/peerpress/peerpress-api/internal/models"

// PaperRoles captures every role a user holds relative to a paper and its
// active submission. Roles accumulate: a journal editor who is also assigned
// to the submission keeps both facts.
type PaperRoles struct {
	Author              bool
	CorrespondingAuthor bool

	// JournalPermission is the standing journal membership role, empty when
	// the user is not a member of the submission's journal.
	JournalPermission models.JournalPermission

	AssignedEditor   bool
	AssignedReviewer bool
}

// ResolvePaperRoles computes the role facts from supplied data. Pure; callers
// load the paper, membership and submission through the repositories.
func ResolvePaperRoles(userID string, paper *models.Paper, membership *models.JournalMembership, submission *models.Submission) PaperRoles {
	roles := PaperRoles{}
	if userID == "" {
		return roles
	}

	if paper != nil {
		for _, author := range paper.Authors {
			if author.UserID != userID {
				continue
			}
			roles.Author = true
			if author.Owner {
				roles.CorrespondingAuthor = true
			}
		}
	}

	if membership != nil && membership.UserID == userID {
		roles.JournalPermission = membership.Permission
	}

	if submission != nil {
		roles.AssignedEditor = submission.HasEditor(userID)
		roles.AssignedReviewer = submission.HasReviewer(userID)
	}

	return roles
}

// rolesForPermission maps a standing journal permission onto the visibility
// roles it grants on submission events. A journal owner acts as managing
// editor and retains the plain editor audience.
func rolesForPermission(permission models.JournalPermission) models.RoleSet {
	switch permission {
	case models.JournalPermissionOwner:
		return models.NewRoleSet(models.VisibilityManagingEditors, models.VisibilityEditors)
	case models.JournalPermissionEditor:
		return models.NewRoleSet(models.VisibilityEditors)
	case models.JournalPermissionReviewer:
		return models.NewRoleSet(models.VisibilityReviewers)
	default:
		return nil
	}
}

// authorVisibilityRoles returns the audiences an author-side viewer matches
// on a paper's events.
func authorVisibilityRoles(owner bool) models.RoleSet {
	roles := []models.VisibilityRole{models.VisibilityPublic, models.VisibilityAuthors}
	if owner {
		roles = append(roles, models.VisibilityCorrespondingAuthors)
	}
	return models.NewRoleSet(roles...)
}
