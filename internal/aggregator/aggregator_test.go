package aggregator

import (
	"context"
	"testing"
	"time"

	"github.com/ekazakov/job-matcher/internal/clients/boards"
	"github.com/ekazakov/job-matcher/internal/domain/models"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

type fakeProvider struct {
	name       string
	candidates []models.RawJob
	err        error
	delay      time.Duration
}

func (f *fakeProvider) Name() string { return f.name }

func (f *fakeProvider) Search(ctx context.Context, query boards.Query) ([]models.RawJob, error) {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	return f.candidates, f.err
}

func makeCandidates(provider string, n int) []models.RawJob {
	candidates := make([]models.RawJob, n)
	for i := range candidates {
		candidates[i] = models.RawJob{Provider: provider, Title: "Go Developer", Company: "Acme"}
	}
	return candidates
}

func Test_Fetch_PartialFailureIsIsolated(t *testing.T) {

	agg := New([]boards.Provider{
		&fakeProvider{name: "one", candidates: makeCandidates("one", 5)},
		&fakeProvider{name: "two", err: errors.New("boom")},
		&fakeProvider{name: "three", candidates: makeCandidates("three", 7)},
	})

	result, err := agg.Fetch(context.Background(), boards.Query{Keywords: "golang"})
	assert.NoError(t, err)
	assert.Len(t, result.Candidates, 12)
	assert.Len(t, result.Failures, 1)
	assert.Equal(t, "two", result.Failures[0].Provider)
}

func Test_Fetch_SlowProviderTimesOutIndependently(t *testing.T) {

	agg := New([]boards.Provider{
		&fakeProvider{name: "slow", candidates: makeCandidates("slow", 3), delay: time.Second},
		&fakeProvider{name: "fast", candidates: makeCandidates("fast", 2)},
	}).WithTimeout(50 * time.Millisecond)

	result, err := agg.Fetch(context.Background(), boards.Query{Keywords: "golang"})
	assert.NoError(t, err)
	assert.Len(t, result.Candidates, 2)
	assert.Len(t, result.Failures, 1)
	assert.Equal(t, "slow", result.Failures[0].Provider)
}

func Test_Fetch_InvalidQueryIsRejected(t *testing.T) {

	agg := New(nil)

	_, err := agg.Fetch(context.Background(), boards.Query{})
	assert.Error(t, err)
}
