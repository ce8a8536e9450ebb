package repositories

import (
	"context"
	"errors"

	"github.com/ekazakov/job-matcher/internal/domain/models"
	"gorm.io/gorm"
)

// States reads the externally owned autonomy tier and emergency brake flag.
// This subsystem never writes rows here. A missing row yields the most
// restrictive tier and a clear brake.
type States struct {
	db *gorm.DB
}

func NewStatesRepository(db *gorm.DB) *States {
	return &States{db: db}
}

func (repo *States) GetTier(ctx context.Context, userID string) (models.Tier, error) {

	var state models.AutonomyState
	if err := repo.db.WithContext(ctx).First(&state, "user_id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.TierSuggest, nil
		}
		return models.TierSuggest, err
	}
	return models.ParseTier(state.Tier)
}

func (repo *States) IsBrakeEngaged(ctx context.Context, userID string) (bool, error) {

	var state models.AutonomyState
	if err := repo.db.WithContext(ctx).First(&state, "user_id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return state.BrakeEngaged, nil
}
