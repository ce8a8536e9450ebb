package repositories

import (
	"context"
	"errors"

	"github.com/ekazakov/job-matcher/internal/domain/models"
	"gorm.io/gorm"
)

type Jobs struct {
	db *gorm.DB
}

func NewJobsRepository(db *gorm.DB) *Jobs {
	return &Jobs{db: db}
}

func (repo *Jobs) GetByID(ctx context.Context, id string) (*models.Job, error) {

	var job models.Job
	if err := repo.db.WithContext(ctx).First(&job, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &job, nil
}

func (repo *Jobs) GetByKeys(ctx context.Context, keys []string) (map[string]models.Job, error) {

	var jobs []models.Job
	if err := repo.db.WithContext(ctx).Find(&jobs, "dedup_key IN ?", keys).Error; err != nil {
		return nil, err
	}

	byKey := make(map[string]models.Job, len(jobs))
	for _, job := range jobs {
		byKey[job.DedupKey] = job
	}
	return byKey, nil
}

func (repo *Jobs) Create(ctx context.Context, job *models.Job) error {
	return repo.db.WithContext(ctx).Create(job).Error
}

func (repo *Jobs) Update(ctx context.Context, job *models.Job) error {
	return repo.db.WithContext(ctx).Save(job).Error
}
