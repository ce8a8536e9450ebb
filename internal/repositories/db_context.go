package repositories

import (
	"fmt"

	"github.com/ekazakov/job-matcher/internal/domain/models"
	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type DbContext struct {
	DB *gorm.DB
}

func NewDbContext(connectionString string) (*DbContext, error) {
	db, err := gorm.Open(sqlite.Open(connectionString), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Error),
	})
	if err != nil {
		return nil, err
	}

	return &DbContext{DB: db}, nil
}

func (c *DbContext) Migrate() error {

	entities := []any{
		models.Job{},
		models.Match{},
		models.SwipeEvent{},
		models.LearnedPreference{},
		models.AgentAction{},
		models.UserPreferences{},
		models.AutonomyState{},
	}

	for _, entity := range entities {
		if err := c.DB.AutoMigrate(entity); err != nil {
			return fmt.Errorf("failed to migrate %T: %w", entity, err)
		}
	}

	// AutoMigrate builds these from tags as well; the explicit statements keep
	// the integrity-critical indexes present even on partially migrated DBs.
	if err := c.DB.Exec("CREATE UNIQUE INDEX IF NOT EXISTS idx_jobs_dedup_key ON jobs (dedup_key); " +
		"CREATE UNIQUE INDEX IF NOT EXISTS idx_matches_user_job ON matches (user_id, job_id);").
		Error; err != nil {
		return fmt.Errorf("failed to create unique indexes: %w", err)
	}

	return nil
}

func (c *DbContext) Close() error {
	db, err := c.DB.DB()
	if err != nil {
		return err
	}

	return db.Close()
}
