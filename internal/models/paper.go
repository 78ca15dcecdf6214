package models

import "time"

// Paper is the read model consumed by the event engine: authorship, version
// history and preprint flag. Paper CRUD lives in a separate service.
type Paper struct {
	ID           string    `db:"id" json:"id"`
	Title        string    `db:"title" json:"title"`
	ShowPreprint bool      `db:"show_preprint" json:"show_preprint"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`

	Authors  []PaperAuthor  `json:"authors"`
	Versions []PaperVersion `json:"versions"`
}

// PaperAuthor links a user to a paper. Owner marks the corresponding author.
type PaperAuthor struct {
	PaperID string `db:"paper_id" json:"paper_id"`
	UserID  string `db:"user_id" json:"user_id"`
	Owner   bool   `db:"owner" json:"owner"`
}

// PaperVersion is one uploaded revision of a paper.
type PaperVersion struct {
	PaperID   string    `db:"paper_id" json:"paper_id"`
	Version   int       `db:"version" json:"version"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// LatestVersion returns the highest version number, or 0 for an empty history.
func (p *Paper) LatestVersion() int {
	latest := 0
	for _, v := range p.Versions {
		if v.Version > latest {
			latest = v.Version
		}
	}
	return latest
}

// Authorship is a per-user projection of paper membership, used when building
// the visible-event criteria for a viewer.
type Authorship struct {
	PaperID string `db:"paper_id" json:"paper_id"`
	Owner   bool   `db:"owner" json:"owner"`
}
