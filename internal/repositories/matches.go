package repositories

import (
	"context"
	"errors"

	"github.com/ekazakov/job-matcher/internal/domain/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Matches struct {
	db *gorm.DB
}

func NewMatchesRepository(db *gorm.DB) *Matches {
	return &Matches{db: db}
}

// CreateIfAbsent inserts the match unless a row for the same (user, job) pair
// already exists, reporting whether a row was created. Existing rows are
// never touched, so a dismissed match is never resurrected by a re-run.
func (repo *Matches) CreateIfAbsent(ctx context.Context, match *models.Match) (bool, error) {

	result := repo.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}, {Name: "job_id"}},
			DoNothing: true,
		}).
		Create(match)

	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (repo *Matches) GetByID(ctx context.Context, id string) (*models.Match, error) {

	var match models.Match
	if err := repo.db.WithContext(ctx).First(&match, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &match, nil
}

func (repo *Matches) Exists(ctx context.Context, userID, jobID string) (bool, error) {

	var count int64
	err := repo.db.WithContext(ctx).Model(&models.Match{}).
		Where("user_id = ? AND job_id = ?", userID, jobID).
		Count(&count).Error
	return count > 0, err
}

func (repo *Matches) UpdateStatus(ctx context.Context, id string, status models.MatchStatus) error {
	return repo.db.WithContext(ctx).Model(&models.Match{}).Where("id = ?", id).
		Update("status", status).Error
}

func (repo *Matches) GetByUser(ctx context.Context, userID string) ([]models.Match, error) {

	var matches []models.Match
	if err := repo.db.WithContext(ctx).
		Order("score DESC").
		Find(&matches, "user_id = ?", userID).Error; err != nil {
		return nil, err
	}
	return matches, nil
}
