package tests

import (
	"context"
	"time"

	"github.com/ekazakov/job-matcher/internal/clients/boards"
	"github.com/ekazakov/job-matcher/internal/domain/models"
)

type mockProvider struct {
	name         string
	jobs         []models.RawJob
	err          error
	responseTime time.Duration
}

func (m *mockProvider) Name() string {
	return m.name
}

func (m *mockProvider) Search(ctx context.Context, query boards.Query) ([]models.RawJob, error) {

	if m.responseTime > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(m.responseTime):
		}
	}

	if m.err != nil {
		return nil, m.err
	}
	return m.jobs, nil
}

func rawJob(provider, title, company string, salary int, url string) models.RawJob {
	job := models.RawJob{
		Provider: provider,
		Title:    title,
		Company:  company,
		Location: "Berlin",
		URL:      url,
	}
	if salary > 0 {
		job.SalaryMin = &salary
	}
	return job
}

func generateRawJobs(provider string, n int) []models.RawJob {
	jobs := make([]models.RawJob, 0, n)
	for i := 0; i < n; i++ {
		jobs = append(jobs, rawJob(provider, "Golang Developer", "Acme", 130000,
			"https://jobs.example.com/"+provider+"/"+string(rune('a'+i))))
	}
	return jobs
}
