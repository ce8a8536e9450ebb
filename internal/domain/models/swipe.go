package models

import "time"

type SwipeAction string

const (
	SwipeSaved     SwipeAction = "saved"
	SwipeDismissed SwipeAction = "dismissed"
)

// SwipeEvent is the append-only audit record of a save/dismiss action. Job
// attributes relevant to pattern mining are denormalized at swipe time so
// detection never needs a join. Rows are never updated or deleted.
type SwipeEvent struct {
	ID             string `gorm:"primaryKey"`
	UserID         string `gorm:"index"`
	MatchID        string
	JobID          string
	Action         SwipeAction
	Company        string
	Location       string
	Remote         bool
	SalaryMin      *int
	SalaryMax      *int
	EmploymentType string
	CreatedAt      time.Time
}
