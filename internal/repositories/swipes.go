package repositories

import (
	"context"

	"github.com/ekazakov/job-matcher/internal/domain/models"
	"gorm.io/gorm"
)

// Swipes is append-only: events are never updated or deleted.
type Swipes struct {
	db *gorm.DB
}

func NewSwipesRepository(db *gorm.DB) *Swipes {
	return &Swipes{db: db}
}

func (repo *Swipes) Add(ctx context.Context, event *models.SwipeEvent) error {
	return repo.db.WithContext(ctx).Create(event).Error
}

func (repo *Swipes) GetByUser(ctx context.Context, userID string) ([]models.SwipeEvent, error) {

	var swipeEvents []models.SwipeEvent
	if err := repo.db.WithContext(ctx).
		Order("created_at ASC").
		Find(&swipeEvents, "user_id = ?", userID).Error; err != nil {
		return nil, err
	}
	return swipeEvents, nil
}

func (repo *Swipes) DistinctUsers(ctx context.Context) ([]string, error) {

	var users []string
	if err := repo.db.WithContext(ctx).Model(&models.SwipeEvent{}).
		Distinct("user_id").
		Pluck("user_id", &users).Error; err != nil {
		return nil, err
	}
	return users, nil
}
