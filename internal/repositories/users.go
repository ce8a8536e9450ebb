package repositories

import (
	"context"
	"errors"

	"github.com/ekazakov/job-matcher/internal/domain/models"
	"gorm.io/gorm"
)

var ErrUserPreferencesNotFound = errors.New("user preferences not found")

type Users struct {
	db *gorm.DB
}

func NewUsersRepository(db *gorm.DB) *Users {
	return &Users{db: db}
}

func (repo *Users) GetPreferences(ctx context.Context, userID string) (*models.UserPreferences, error) {

	var preferences models.UserPreferences
	if err := repo.db.WithContext(ctx).First(&preferences, "user_id = ?", userID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserPreferencesNotFound
		}
		return nil, err
	}
	return &preferences, nil
}

func (repo *Users) SavePreferences(ctx context.Context, preferences *models.UserPreferences) error {
	return repo.db.WithContext(ctx).Save(preferences).Error
}

func (repo *Users) ListUserIDs(ctx context.Context) ([]string, error) {

	var users []string
	if err := repo.db.WithContext(ctx).Model(&models.UserPreferences{}).
		Pluck("user_id", &users).Error; err != nil {
		return nil, err
	}
	return users, nil
}
