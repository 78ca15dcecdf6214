package models

// ActiveSubmission identifies the journal submission currently governing a
// paper, if any. Its absence means the paper is a standalone/preprint paper.
type ActiveSubmission struct {
	ID        string `db:"id" json:"id"`
	JournalID string `db:"journal_id" json:"journal_id"`
	Status    string `db:"status" json:"status"`
}

// Submission carries the assignment lists needed for role resolution and
// edit authorization.
type Submission struct {
	ID        string `db:"id" json:"id"`
	PaperID   string `db:"paper_id" json:"paper_id"`
	JournalID string `db:"journal_id" json:"journal_id"`
	Status    string `db:"status" json:"status"`

	Editors   []string `json:"editors"`
	Reviewers []string `json:"reviewers"`
}

// HasEditor reports whether the user is assigned as editor.
func (s *Submission) HasEditor(userID string) bool {
	for _, id := range s.Editors {
		if id == userID {
			return true
		}
	}
	return false
}

// HasReviewer reports whether the user is assigned as reviewer.
func (s *Submission) HasReviewer(userID string) bool {
	for _, id := range s.Reviewers {
		if id == userID {
			return true
		}
	}
	return false
}

// SubmissionAssignment is a per-user projection of submission assignments,
// used when building the visible-event criteria for a viewer.
type SubmissionAssignment struct {
	SubmissionID string `db:"submission_id" json:"submission_id"`
	Role         string `db:"role" json:"role"`
}

const (
	AssignmentRoleEditor   = "editor"
	AssignmentRoleReviewer = "reviewer"
)
