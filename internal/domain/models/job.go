package models

import "time"

// RawJob is a provider-sourced posting after normalization by the board
// adapter. It is transient: produced by the aggregator, consumed by dedup,
// never persisted as-is.
type RawJob struct {
	Provider       string
	Title          string
	Company        string
	Industry       string
	Location       string
	SalaryMin      *int
	SalaryMax      *int
	EmploymentType string
	Remote         *bool
	CompanySize    string
	Description    string
	URL            string
	RawPayload     string
}

// Job is the canonical posting keyed by its dedup fingerprint. Rows are
// created once and mutated in place when a newer RawJob with the same key
// carries non-empty fields; they are never deleted by the pipeline.
type Job struct {
	ID             string `gorm:"primaryKey"`
	DedupKey       string `gorm:"size:64;uniqueIndex"`
	Title          string
	Company        string
	Industry       string
	Location       string
	SalaryMin      *int
	SalaryMax      *int
	EmploymentType string
	Remote         *bool
	CompanySize    string
	Description    string
	URL            string
	FirstSource    string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// SalaryKnown reports whether the posting carries any salary figure.
func (j *Job) SalaryKnown() bool {
	return j.SalaryMin != nil || j.SalaryMax != nil
}

// BestSalary returns the highest known figure of the posting's range.
// Callers must check SalaryKnown first.
func (j *Job) BestSalary() int {
	if j.SalaryMax != nil {
		return *j.SalaryMax
	}
	if j.SalaryMin != nil {
		return *j.SalaryMin
	}
	return 0
}

// IsRemote treats an unknown remote flag as on-site.
func (j *Job) IsRemote() bool {
	return j.Remote != nil && *j.Remote
}
