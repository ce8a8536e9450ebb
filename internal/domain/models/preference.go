package models

import (
	"strconv"
	"strings"
	"time"

	"gorm.io/gorm"
)

type PreferenceStatus string

const (
	PreferencePending      PreferenceStatus = "pending"
	PreferenceAcknowledged PreferenceStatus = "acknowledged"
	PreferenceRejected     PreferenceStatus = "rejected"
)

type PatternKind string

const (
	PatternDismissed PatternKind = "dismissed"
	PatternSaved     PatternKind = "saved"
)

type PreferenceType string

const (
	PreferenceCompany        PreferenceType = "company"
	PreferenceLocation       PreferenceType = "location"
	PreferenceRemote         PreferenceType = "remote"
	PreferenceEmploymentType PreferenceType = "employment_type"
)

// LearnedPreference is a behaviorally mined pattern. Confidence is stored
// with 2 decimal places and never exceeds 0.95. Rejected patterns are
// soft-deleted and kept for audit.
type LearnedPreference struct {
	ID          string          `gorm:"primaryKey"`
	UserID      string          `gorm:"index:idx_prefs_user_pattern,unique"`
	Kind        PatternKind     `gorm:"index:idx_prefs_user_pattern,unique"`
	Type        PreferenceType  `gorm:"index:idx_prefs_user_pattern,unique"`
	Value       string          `gorm:"index:idx_prefs_user_pattern,unique"`
	Confidence  float64
	Occurrences int
	Status      PreferenceStatus
	CreatedAt   time.Time
	UpdatedAt   time.Time
	DeletedAt   gorm.DeletedAt
}

// MatchesJob reports whether the pattern's dimension value applies to the job.
func (p *LearnedPreference) MatchesJob(job Job) bool {
	switch p.Type {
	case PreferenceCompany:
		return strings.EqualFold(p.Value, job.Company)
	case PreferenceLocation:
		return strings.EqualFold(p.Value, job.Location)
	case PreferenceRemote:
		return p.Value == strconv.FormatBool(job.IsRemote())
	case PreferenceEmploymentType:
		return strings.EqualFold(p.Value, job.EmploymentType)
	default:
		return false
	}
}
