package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/ekazakov/job-matcher/internal/domain/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var ErrPreferenceNotFound = errors.New("learned preference not found")

type Preferences struct {
	db *gorm.DB
}

func NewPreferencesRepository(db *gorm.DB) *Preferences {
	return &Preferences{db: db}
}

// UpsertDetected records a freshly recomputed pattern. Detection is a
// recompute over the full swipe log, so confidence and occurrences are
// overwritten, never incremented. The user-owned status is preserved, and
// rejected (soft-deleted) patterns are left untouched so re-detection cannot
// resurrect them.
func (repo *Preferences) UpsertDetected(ctx context.Context, detected models.LearnedPreference) (*models.LearnedPreference, error) {

	var existing models.LearnedPreference
	err := repo.db.WithContext(ctx).Unscoped().
		Where("user_id = ? AND kind = ? AND type = ? AND value = ?",
			detected.UserID, detected.Kind, detected.Type, detected.Value).
		First(&existing).Error

	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	if errors.Is(err, gorm.ErrRecordNotFound) {
		detected.ID = uuid.NewString()
		detected.Status = models.PreferencePending
		if err := repo.db.WithContext(ctx).Create(&detected).Error; err != nil {
			return nil, err
		}
		return &detected, nil
	}

	if existing.Status == models.PreferenceRejected {
		return &existing, nil
	}

	err = repo.db.WithContext(ctx).Model(&models.LearnedPreference{}).
		Where("id = ?", existing.ID).
		Updates(map[string]any{
			"confidence":  detected.Confidence,
			"occurrences": detected.Occurrences,
		}).Error
	if err != nil {
		return nil, err
	}

	existing.Confidence = detected.Confidence
	existing.Occurrences = detected.Occurrences
	return &existing, nil
}

func (repo *Preferences) GetByUser(ctx context.Context, userID string,
	statuses ...models.PreferenceStatus) ([]models.LearnedPreference, error) {

	query := repo.db.WithContext(ctx).Unscoped().Where("user_id = ?", userID)
	if len(statuses) > 0 {
		query = query.Where("status IN ?", statuses)
	}

	var preferences []models.LearnedPreference
	if err := query.Order("confidence DESC").Find(&preferences).Error; err != nil {
		return nil, err
	}
	return preferences, nil
}

// UpdateStatus transitions a pattern's review status. Rejection soft-deletes
// the row; the record stays in storage for audit.
func (repo *Preferences) UpdateStatus(ctx context.Context, id string, status models.PreferenceStatus) error {

	updates := map[string]any{"status": status}
	if status == models.PreferenceRejected {
		updates["deleted_at"] = time.Now()
	} else {
		updates["deleted_at"] = nil
	}

	result := repo.db.WithContext(ctx).Unscoped().Model(&models.LearnedPreference{}).
		Where("id = ?", id).
		Updates(updates)

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrPreferenceNotFound
	}
	return nil
}
