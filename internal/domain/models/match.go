package models

import "time"

type MatchStatus string

const (
	MatchNew       MatchStatus = "new"
	MatchSaved     MatchStatus = "saved"
	MatchDismissed MatchStatus = "dismissed"
	MatchApplied   MatchStatus = "applied"
)

// Match pairs a user with a scored job. The pipeline creates a row at most
// once per (user, job); status transitions belong to the review flow.
type Match struct {
	ID        string `gorm:"primaryKey"`
	UserID    string `gorm:"index:idx_matches_user_job,unique"`
	JobID     string `gorm:"index:idx_matches_user_job,unique"`
	Score     int
	Rationale string
	// Breakdown holds the per-category point breakdown as JSON.
	Breakdown string
	Refined   bool
	Status    MatchStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}
