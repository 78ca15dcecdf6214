package models

import (
	"sort"
	"strings"
	"time"

	"github.com/lib/pq"
)

// EventType classifies a recorded action on a paper. Types are namespaced by
// the context the action happened in: "paper:*" for standalone/preprint
// activity, "submission:*" for activity inside a journal submission pipeline.
type EventType string

const (
	EventPaperNewVersion     EventType = "paper:new-version"
	EventPaperPreprintPosted EventType = "paper:preprint-posted"
	EventPaperNewReview      EventType = "paper:new-review"
	EventPaperNewComment     EventType = "paper:new-comment"

	EventSubmissionNew                EventType = "submission:new"
	EventSubmissionNewReview          EventType = "submission:new-review"
	EventSubmissionNewComment         EventType = "submission:new-comment"
	EventSubmissionStatusChanged      EventType = "submission:status-changed"
	EventSubmissionReviewerAssigned   EventType = "submission:reviewer-assigned"
	EventSubmissionReviewerUnassigned EventType = "submission:reviewer-unassigned"
	EventSubmissionEditorAssigned     EventType = "submission:editor-assigned"
	EventSubmissionEditorUnassigned   EventType = "submission:editor-unassigned"
)

// Generic actions accepted by the creation endpoint. They are qualified into a
// paper:* or submission:* type from the actor's relationship to the paper.
const (
	ActionNewReview  = "new-review"
	ActionNewComment = "new-comment"
)

// AllEventTypes enumerates the closed event-type set.
func AllEventTypes() []EventType {
	return []EventType{
		EventPaperNewVersion,
		EventPaperPreprintPosted,
		EventPaperNewReview,
		EventPaperNewComment,
		EventSubmissionNew,
		EventSubmissionNewReview,
		EventSubmissionNewComment,
		EventSubmissionStatusChanged,
		EventSubmissionReviewerAssigned,
		EventSubmissionReviewerUnassigned,
		EventSubmissionEditorAssigned,
		EventSubmissionEditorUnassigned,
	}
}

// Valid reports whether the type belongs to the closed set.
func (t EventType) Valid() bool {
	for _, known := range AllEventTypes() {
		if t == known {
			return true
		}
	}
	return false
}

// PaperScoped reports whether the type records standalone paper activity.
func (t EventType) PaperScoped() bool {
	return strings.HasPrefix(string(t), "paper:")
}

// SubmissionScoped reports whether the type records journal pipeline activity.
func (t EventType) SubmissionScoped() bool {
	return strings.HasPrefix(string(t), "submission:")
}

// VisibilityRole tags an audience entitled to see an event.
type VisibilityRole string

const (
	VisibilityPublic               VisibilityRole = "public"
	VisibilityAuthors              VisibilityRole = "authors"
	VisibilityCorrespondingAuthors VisibilityRole = "corresponding-authors"
	VisibilityReviewers            VisibilityRole = "reviewers"
	VisibilityAssignedReviewers    VisibilityRole = "assigned-reviewers"
	VisibilityEditors              VisibilityRole = "editors"
	VisibilityAssignedEditors      VisibilityRole = "assigned-editors"
	VisibilityManagingEditors      VisibilityRole = "managing-editors"
)

// AllVisibilityRoles enumerates the closed role set.
func AllVisibilityRoles() []VisibilityRole {
	return []VisibilityRole{
		VisibilityPublic,
		VisibilityAuthors,
		VisibilityCorrespondingAuthors,
		VisibilityReviewers,
		VisibilityAssignedReviewers,
		VisibilityEditors,
		VisibilityAssignedEditors,
		VisibilityManagingEditors,
	}
}

// Valid reports whether the role belongs to the closed set.
func (r VisibilityRole) Valid() bool {
	for _, known := range AllVisibilityRoles() {
		if r == known {
			return true
		}
	}
	return false
}

// RoleSet is an unordered collection of visibility roles. Construction
// deduplicates and sorts so persistence and comparison are order-independent.
type RoleSet []VisibilityRole

// NewRoleSet builds a normalised role set.
func NewRoleSet(roles ...VisibilityRole) RoleSet {
	seen := make(map[VisibilityRole]struct{}, len(roles))
	set := make(RoleSet, 0, len(roles))
	for _, role := range roles {
		if _, ok := seen[role]; ok {
			continue
		}
		seen[role] = struct{}{}
		set = append(set, role)
	}
	sort.Slice(set, func(i, j int) bool { return set[i] < set[j] })
	return set
}

// Contains reports membership.
func (s RoleSet) Contains(role VisibilityRole) bool {
	for _, r := range s {
		if r == role {
			return true
		}
	}
	return false
}

// Intersects reports whether the two sets share any role.
func (s RoleSet) Intersects(other RoleSet) bool {
	for _, r := range other {
		if s.Contains(r) {
			return true
		}
	}
	return false
}

// Equal compares as sets, ignoring order.
func (s RoleSet) Equal(other RoleSet) bool {
	if len(NewRoleSet(s...)) != len(NewRoleSet(other...)) {
		return false
	}
	for _, r := range other {
		if !s.Contains(r) {
			return false
		}
	}
	return true
}

// Strings converts to the storage representation.
func (s RoleSet) Strings() []string {
	out := make([]string, len(s))
	for i, r := range s {
		out[i] = string(r)
	}
	return out
}

// RoleSetFromStrings parses a stored visibility array.
func RoleSetFromStrings(raw []string) RoleSet {
	roles := make([]VisibilityRole, len(raw))
	for i, r := range raw {
		roles[i] = VisibilityRole(r)
	}
	return NewRoleSet(roles...)
}

// EventStatus marks whether an event is provisional or final.
type EventStatus string

const (
	// EventStatusInProgress marks a provisional event (an unfinished review),
	// visible only to its actor.
	EventStatusInProgress EventStatus = "in-progress"
	// EventStatusCommitted marks a final event eligible for visibility queries.
	EventStatusCommitted EventStatus = "committed"
)

// PaperEvent records something that happened on a paper. Once committed it is
// immutable except for the visibility and status fields, which change only
// through the authorized edit path.
type PaperEvent struct {
	ID      string    `db:"id" json:"id"`
	PaperID string    `db:"paper_id" json:"paper_id"`
	Version int       `db:"version" json:"version"`
	ActorID string    `db:"actor_id" json:"actor_id"`
	Type    EventType `db:"type" json:"type"`

	Visibility pq.StringArray `db:"visibility" json:"visibility"`
	Status     EventStatus    `db:"status" json:"status"`

	AssigneeID      *string `db:"assignee_id" json:"assignee_id,omitempty"`
	ReviewID        *string `db:"review_id" json:"review_id,omitempty"`
	ReviewCommentID *string `db:"review_comment_id" json:"review_comment_id,omitempty"`
	SubmissionID    *string `db:"submission_id" json:"submission_id,omitempty"`
	NewStatus       *string `db:"new_status" json:"new_status,omitempty"`
	PaperCommentID  *string `db:"paper_comment_id" json:"paper_comment_id,omitempty"`

	EventDate time.Time `db:"event_date" json:"event_date"`
}

// VisibilityRoles returns the stamped visibility as a role set.
func (e *PaperEvent) VisibilityRoles() RoleSet {
	return RoleSetFromStrings(e.Visibility)
}

// SetVisibility stamps the visibility from a role set.
func (e *PaperEvent) SetVisibility(roles RoleSet) {
	e.Visibility = pq.StringArray(roles.Strings())
}
