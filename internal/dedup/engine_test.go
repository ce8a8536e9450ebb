package dedup

import (
	"context"
	"testing"

	"github.com/ekazakov/job-matcher/internal/domain/models"
	"github.com/stretchr/testify/assert"
)

type memoryJobs struct {
	byKey map[string]models.Job
}

func newMemoryJobs() *memoryJobs {
	return &memoryJobs{byKey: make(map[string]models.Job)}
}

func (m *memoryJobs) GetByKeys(ctx context.Context, keys []string) (map[string]models.Job, error) {
	found := make(map[string]models.Job)
	for _, key := range keys {
		if job, ok := m.byKey[key]; ok {
			found[key] = job
		}
	}
	return found, nil
}

func (m *memoryJobs) Create(ctx context.Context, job *models.Job) error {
	m.byKey[job.DedupKey] = *job
	return nil
}

func (m *memoryJobs) Update(ctx context.Context, job *models.Job) error {
	m.byKey[job.DedupKey] = *job
	return nil
}

func intPtr(v int) *int { return &v }

func Test_Fingerprint_PrefersNormalizedURL(t *testing.T) {

	a := models.RawJob{URL: "https://jobs.example.com/123", Title: "Go Dev"}
	b := models.RawJob{URL: "  HTTPS://jobs.example.com/123/?utm_source=feed ", Title: "Completely different"}

	assert.Equal(t, Fingerprint(a), Fingerprint(b))
	assert.Len(t, Fingerprint(a), 64)
}

func Test_Fingerprint_FallsBackToTitleCompanyLocation(t *testing.T) {

	a := models.RawJob{Title: "Go  Developer", Company: "Acme", Location: "Berlin"}
	b := models.RawJob{Title: "go developer", Company: " ACME ", Location: "berlin"}
	c := models.RawJob{Title: "go developer", Company: "Other Corp", Location: "berlin"}

	assert.Equal(t, Fingerprint(a), Fingerprint(b))
	assert.NotEqual(t, Fingerprint(a), Fingerprint(c))
}

func Test_Upsert_IsIdempotent(t *testing.T) {

	repo := newMemoryJobs()
	engine := NewEngine(repo)
	raw := models.RawJob{Provider: "adzuna", URL: "https://jobs.example.com/1", Title: "Go Dev", Company: "Acme"}

	for i := 0; i < 3; i++ {
		jobs, err := engine.Upsert(context.Background(), []models.RawJob{raw})
		assert.NoError(t, err)
		assert.Len(t, jobs, 1)
	}

	assert.Len(t, repo.byKey, 1)
}

func Test_Upsert_CollapsesCrossProviderDuplicates(t *testing.T) {

	repo := newMemoryJobs()
	engine := NewEngine(repo)

	first, err := engine.Upsert(context.Background(), []models.RawJob{
		{Provider: "adzuna", URL: "https://jobs.example.com/1", Title: "Go Dev"},
	})
	assert.NoError(t, err)

	second, err := engine.Upsert(context.Background(), []models.RawJob{
		{Provider: "remotive", URL: "https://jobs.example.com/1/", Title: "Go Dev"},
	})
	assert.NoError(t, err)

	assert.Equal(t, first[0].ID, second[0].ID)
	assert.Equal(t, "adzuna", second[0].FirstSource)
	assert.Len(t, repo.byKey, 1)
}

func Test_Upsert_BatchDuplicatesMergeLastWriterWins(t *testing.T) {

	repo := newMemoryJobs()
	engine := NewEngine(repo)

	jobs, err := engine.Upsert(context.Background(), []models.RawJob{
		{URL: "https://jobs.example.com/1", Title: "Go Dev", SalaryMin: intPtr(100000)},
		{URL: "https://jobs.example.com/1", Title: "Senior Go Dev"},
	})
	assert.NoError(t, err)
	assert.Len(t, jobs, 2)

	// both inputs map to the same canonical job
	assert.Equal(t, jobs[0].ID, jobs[1].ID)
	assert.Equal(t, "Senior Go Dev", jobs[0].Title)
	// the later duplicate carried no salary, so the earlier value survives
	assert.Equal(t, 100000, *jobs[0].SalaryMin)
}

func Test_Upsert_NeverOverwritesPopulatedFieldWithNull(t *testing.T) {

	repo := newMemoryJobs()
	engine := NewEngine(repo)

	_, err := engine.Upsert(context.Background(), []models.RawJob{
		{URL: "https://jobs.example.com/1", Title: "Go Dev", SalaryMin: intPtr(120000), Description: "full text"},
	})
	assert.NoError(t, err)

	updated, err := engine.Upsert(context.Background(), []models.RawJob{
		{URL: "https://jobs.example.com/1", Title: "Go Dev", SalaryMax: intPtr(150000)},
	})
	assert.NoError(t, err)

	job := updated[0]
	assert.Equal(t, 120000, *job.SalaryMin)
	assert.Equal(t, 150000, *job.SalaryMax)
	assert.Equal(t, "full text", job.Description)
}
