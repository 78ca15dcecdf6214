package dto

// CreateEventRequest is the payload for recording an action on a paper. Type
// accepts either a fully-qualified event type or one of the generic actions
// ("new-review", "new-comment") that are qualified from the actor's role.
type CreateEventRequest struct {
	Type    string `json:"type" validate:"required"`
	Version *int   `json:"version,omitempty"`

	AssigneeID      *string `json:"assignee_id,omitempty"`
	ReviewID        *string `json:"review_id,omitempty"`
	ReviewCommentID *string `json:"review_comment_id,omitempty"`
	SubmissionID    *string `json:"submission_id,omitempty"`
	NewStatus       *string `json:"new_status,omitempty"`
	PaperCommentID  *string `json:"paper_comment_id,omitempty"`

	// Visibility, when present, overrides the policy-derived role set.
	Visibility []string `json:"visibility,omitempty"`
	// Status defaults to committed; pass "in-progress" for provisional events.
	Status string `json:"status,omitempty"`
}

// UpdateEventRequest patches a persisted event. Only visibility and status
// may change after creation.
type UpdateEventRequest struct {
	Visibility []string `json:"visibility,omitempty"`
	Status     *string  `json:"status,omitempty"`
}

// EventFeed lists the event ids visible to the caller.
type EventFeed struct {
	EventIDs []string `json:"event_ids"`
}

// EditableResponse answers the edit-permission probe.
type EditableResponse struct {
	Editable bool `json:"editable"`
}
