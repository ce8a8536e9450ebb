package dedup

import (
	"context"

	"github.com/ekazakov/job-matcher/internal/domain/models"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/samber/lo"
)

type jobRepository interface {
	GetByKeys(ctx context.Context, keys []string) (map[string]models.Job, error)
	Create(ctx context.Context, job *models.Job) error
	Update(ctx context.Context, job *models.Job) error
}

// Engine merges raw candidates into canonical Job rows keyed by fingerprint.
type Engine struct {
	jobs jobRepository
}

func NewEngine(jobs jobRepository) *Engine {
	return &Engine{jobs: jobs}
}

// Upsert deduplicates the batch against itself and against storage. Same-key
// candidates within the batch merge last-writer-wins; stored jobs are updated
// in place, where a populated field is never overwritten by an empty one.
// The returned slice holds the canonical Job for every input candidate, in
// batch order.
func (e *Engine) Upsert(ctx context.Context, candidates []models.RawJob) ([]models.Job, error) {

	if len(candidates) == 0 {
		return nil, nil
	}

	keys := lo.Map(candidates, func(raw models.RawJob, _ int) string {
		return Fingerprint(raw)
	})

	merged := make(map[string]models.RawJob)
	for i, raw := range candidates {
		key := keys[i]
		if existing, seen := merged[key]; seen {
			merged[key] = mergeRaw(existing, raw)
		} else {
			merged[key] = raw
		}
	}

	stored, err := e.jobs.GetByKeys(ctx, lo.Uniq(keys))
	if err != nil {
		return nil, errors.Wrap(err, "lookup jobs by dedup keys")
	}

	canonical := make(map[string]models.Job, len(merged))
	for key, raw := range merged {
		if existing, found := stored[key]; found {
			if applyRaw(&existing, raw) {
				if err := e.jobs.Update(ctx, &existing); err != nil {
					return nil, errors.Wrap(err, "update job")
				}
			}
			canonical[key] = existing
			continue
		}

		job := newJob(key, raw)
		if err := e.jobs.Create(ctx, &job); err != nil {
			return nil, errors.Wrap(err, "create job")
		}
		canonical[key] = job
	}

	result := make([]models.Job, len(candidates))
	for i := range candidates {
		result[i] = canonical[keys[i]]
	}
	return result, nil
}

func newJob(key string, raw models.RawJob) models.Job {
	return models.Job{
		ID:             uuid.NewString(),
		DedupKey:       key,
		Title:          raw.Title,
		Company:        raw.Company,
		Industry:       raw.Industry,
		Location:       raw.Location,
		SalaryMin:      raw.SalaryMin,
		SalaryMax:      raw.SalaryMax,
		EmploymentType: raw.EmploymentType,
		Remote:         raw.Remote,
		CompanySize:    raw.CompanySize,
		Description:    raw.Description,
		URL:            raw.URL,
		FirstSource:    raw.Provider,
	}
}

// mergeRaw resolves same-batch duplicates: the later candidate wins for every
// field it actually carries.
func mergeRaw(older, newer models.RawJob) models.RawJob {
	merged := older
	if newer.Title != "" {
		merged.Title = newer.Title
	}
	if newer.Company != "" {
		merged.Company = newer.Company
	}
	if newer.Industry != "" {
		merged.Industry = newer.Industry
	}
	if newer.Location != "" {
		merged.Location = newer.Location
	}
	if newer.SalaryMin != nil {
		merged.SalaryMin = newer.SalaryMin
	}
	if newer.SalaryMax != nil {
		merged.SalaryMax = newer.SalaryMax
	}
	if newer.EmploymentType != "" {
		merged.EmploymentType = newer.EmploymentType
	}
	if newer.Remote != nil {
		merged.Remote = newer.Remote
	}
	if newer.CompanySize != "" {
		merged.CompanySize = newer.CompanySize
	}
	if newer.Description != "" {
		merged.Description = newer.Description
	}
	if newer.URL != "" {
		merged.URL = newer.URL
	}
	return merged
}

// applyRaw folds new candidate data into a stored job, reporting whether any
// field changed. Populated fields are never cleared by missing data.
func applyRaw(job *models.Job, raw models.RawJob) bool {
	changed := false

	setString := func(dst *string, src string) {
		if src != "" && *dst != src {
			*dst = src
			changed = true
		}
	}
	setInt := func(dst **int, src *int) {
		if src != nil && (*dst == nil || **dst != *src) {
			*dst = src
			changed = true
		}
	}

	setString(&job.Title, raw.Title)
	setString(&job.Company, raw.Company)
	setString(&job.Industry, raw.Industry)
	setString(&job.Location, raw.Location)
	setString(&job.EmploymentType, raw.EmploymentType)
	setString(&job.CompanySize, raw.CompanySize)
	setString(&job.Description, raw.Description)
	setString(&job.URL, raw.URL)
	setInt(&job.SalaryMin, raw.SalaryMin)
	setInt(&job.SalaryMax, raw.SalaryMax)

	if raw.Remote != nil && (job.Remote == nil || *job.Remote != *raw.Remote) {
		job.Remote = raw.Remote
		changed = true
	}

	return changed
}
