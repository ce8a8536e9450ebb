package models

import (
	"fmt"
	"time"
)

// Tier is the per-user autonomy level. This subsystem reads it, never sets it.
type Tier int

const (
	// TierSuggest produces recommendation artifacts only.
	TierSuggest Tier = iota
	// TierDraft persists drafts requiring explicit user activation.
	TierDraft
	// TierApprove enqueues actions for user approval.
	TierApprove
	// TierExecute executes actions immediately.
	TierExecute
)

func (t Tier) String() string {
	return fmt.Sprintf("L%d", int(t))
}

// ParseTier accepts the L0..L3 form used in configuration and storage.
func ParseTier(s string) (Tier, error) {
	switch s {
	case "L0":
		return TierSuggest, nil
	case "L1":
		return TierDraft, nil
	case "L2":
		return TierApprove, nil
	case "L3":
		return TierExecute, nil
	default:
		return TierSuggest, fmt.Errorf("unknown autonomy tier %q", s)
	}
}

// AutonomyState is externally owned, read-mostly state: the user's tier and
// emergency brake flag. A missing row defaults to the most restrictive tier
// with the brake clear.
type AutonomyState struct {
	UserID       string `gorm:"primaryKey"`
	Tier         string
	BrakeEngaged bool
	UpdatedAt    time.Time
}

type ActionStatus string

const (
	ActionDrafted  ActionStatus = "drafted"
	ActionQueued   ActionStatus = "queued"
	ActionApproved ActionStatus = "approved"
	ActionRejected ActionStatus = "rejected"
	ActionExecuted ActionStatus = "executed"
)

// AgentAction is a persisted agent effect: a draft awaiting user activation,
// an approval-queue row, or the record of an executed action.
type AgentAction struct {
	ID          string `gorm:"primaryKey"`
	UserID      string `gorm:"index"`
	Kind        string
	Description string
	Payload     string
	Status      ActionStatus
	CreatedAt   time.Time
	ResolvedAt  *time.Time
}
