package models

// JournalModel is a journal's transparency model. It selects which default
// visibility table applies to events on submissions to that journal.
type JournalModel string

const (
	JournalModelPublic     JournalModel = "public"
	JournalModelOpenPublic JournalModel = "open-public"
	JournalModelOpenClosed JournalModel = "open-closed"
	JournalModelClosed     JournalModel = "closed"
)

// AllJournalModels enumerates the closed model set.
func AllJournalModels() []JournalModel {
	return []JournalModel{
		JournalModelPublic,
		JournalModelOpenPublic,
		JournalModelOpenClosed,
		JournalModelClosed,
	}
}

// Valid reports whether the model belongs to the closed set.
func (m JournalModel) Valid() bool {
	for _, known := range AllJournalModels() {
		if m == known {
			return true
		}
	}
	return false
}

// JournalPermission is a user's standing membership role in a journal.
type JournalPermission string

const (
	JournalPermissionOwner    JournalPermission = "owner"
	JournalPermissionEditor   JournalPermission = "editor"
	JournalPermissionReviewer JournalPermission = "reviewer"
)

// Journal is the read model for journal lookups.
type Journal struct {
	ID    string       `db:"id" json:"id"`
	Name  string       `db:"name" json:"name"`
	Model JournalModel `db:"model" json:"model"`
}

// JournalMembership links a user to a journal with a permission level.
type JournalMembership struct {
	JournalID  string            `db:"journal_id" json:"journal_id"`
	UserID     string            `db:"user_id" json:"user_id"`
	Permission JournalPermission `db:"permission" json:"permission"`
}
