package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/ekazakov/job-matcher/internal/domain/models"
	"gorm.io/gorm"
)

var (
	ErrActionNotFound        = errors.New("agent action not found")
	ErrActionAlreadyResolved = errors.New("agent action already resolved")
)

type Actions struct {
	db *gorm.DB
}

func NewActionsRepository(db *gorm.DB) *Actions {
	return &Actions{db: db}
}

func (repo *Actions) Create(ctx context.Context, action *models.AgentAction) error {
	return repo.db.WithContext(ctx).Create(action).Error
}

func (repo *Actions) GetByID(ctx context.Context, id string) (*models.AgentAction, error) {

	var action models.AgentAction
	if err := repo.db.WithContext(ctx).First(&action, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrActionNotFound
		}
		return nil, err
	}
	return &action, nil
}

func (repo *Actions) GetPending(ctx context.Context, userID string) ([]models.AgentAction, error) {

	var actions []models.AgentAction
	if err := repo.db.WithContext(ctx).
		Order("created_at ASC").
		Find(&actions, "user_id = ? AND status = ?", userID, models.ActionQueued).Error; err != nil {
		return nil, err
	}
	return actions, nil
}

// Resolve transitions a queued action to approved or rejected. The update is
// guarded by the current status so two concurrent resolutions cannot both
// succeed.
func (repo *Actions) Resolve(ctx context.Context, id string, to models.ActionStatus) (*models.AgentAction, error) {

	if to != models.ActionApproved && to != models.ActionRejected {
		return nil, errors.New("resolution must be approved or rejected")
	}

	now := time.Now()
	result := repo.db.WithContext(ctx).Model(&models.AgentAction{}).
		Where("id = ? AND status = ?", id, models.ActionQueued).
		Updates(map[string]any{"status": to, "resolved_at": now})

	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		if _, err := repo.GetByID(ctx, id); err != nil {
			return nil, err
		}
		return nil, ErrActionAlreadyResolved
	}

	return repo.GetByID(ctx, id)
}

func (repo *Actions) MarkExecuted(ctx context.Context, id string) error {

	now := time.Now()
	return repo.db.WithContext(ctx).Model(&models.AgentAction{}).
		Where("id = ?", id).
		Updates(map[string]any{"status": models.ActionExecuted, "resolved_at": now}).Error
}
