package aggregator

import (
	"context"
	"sync"
	"time"

	"github.com/ekazakov/job-matcher/internal/clients/boards"
	"github.com/ekazakov/job-matcher/internal/domain/models"
	"github.com/ekazakov/job-matcher/internal/logger"
	"github.com/ekazakov/job-matcher/internal/metrics"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

const defaultProviderTimeout = 30 * time.Second

// ProviderFailure is the per-provider error summary a fetch reports alongside
// the successful results.
type ProviderFailure struct {
	Provider string
	Err      error
}

// Result is the union of all successful provider responses. A failed provider
// contributes zero candidates and one failure entry; it never fails the fetch.
type Result struct {
	Candidates []models.RawJob
	Failures   []ProviderFailure
}

type Aggregator struct {
	providers []boards.Provider
	timeout   time.Duration
	validate  *validator.Validate
}

func New(providers []boards.Provider) *Aggregator {
	return &Aggregator{
		providers: providers,
		timeout:   defaultProviderTimeout,
		validate:  validator.New(),
	}
}

// WithTimeout overrides the per-provider timeout.
func (a *Aggregator) WithTimeout(timeout time.Duration) *Aggregator {
	a.timeout = timeout
	return a
}

// Fetch dispatches the query to every provider concurrently. Each call runs
// under its own timeout; a slow or failing provider never blocks the others.
// Candidates are returned grouped in provider registration order.
func (a *Aggregator) Fetch(ctx context.Context, query boards.Query) (*Result, error) {

	if err := a.validate.Struct(query); err != nil {
		return nil, errors.Wrap(err, "invalid search query")
	}

	type providerOutcome struct {
		candidates []models.RawJob
		err        error
	}

	outcomes := make([]providerOutcome, len(a.providers))

	var wg sync.WaitGroup
	for i, provider := range a.providers {
		wg.Add(1)
		go func(i int, provider boards.Provider) {
			defer wg.Done()

			providerCtx, cancel := context.WithTimeout(ctx, a.timeout)
			defer cancel()

			start := time.Now()
			candidates, err := provider.Search(providerCtx, query)
			metrics.StepDuration.WithLabelValues("provider_fetch").Observe(time.Since(start).Seconds())

			outcomes[i] = providerOutcome{candidates: candidates, err: err}
		}(i, provider)
	}
	wg.Wait()

	result := &Result{}
	for i, outcome := range outcomes {
		name := a.providers[i].Name()
		if outcome.err != nil {
			metrics.ProviderFailuresCounter.WithLabelValues(name).Inc()
			log.WithField(logger.ErrorTypeField, logger.ErrorTypeBoardApi).
				Errorf("provider %v failed: %v", name, outcome.err)
			result.Failures = append(result.Failures, ProviderFailure{Provider: name, Err: outcome.err})
			continue
		}
		result.Candidates = append(result.Candidates, outcome.candidates...)
	}

	log.Infof("aggregated %v candidates from %v providers, %v failed",
		len(result.Candidates), len(a.providers), len(result.Failures))

	return result, nil
}
