package boards

import (
	"context"
	"fmt"
	"io"
	"net/http"

	"github.com/ekazakov/job-matcher/internal/config"
	"github.com/ekazakov/job-matcher/internal/domain/models"
	"golang.org/x/time/rate"
)

// Query is the normalized search every provider receives. Adapters translate
// it into their provider's parameters.
type Query struct {
	Keywords  string `validate:"required"`
	Location  string
	Remote    bool
	MinSalary int `validate:"gte=0"`
	PageSize  int `validate:"gte=0,lte=100"`
}

// Provider is one external job board. Search returns normalized candidates
// and may fail or time out independently of other providers.
type Provider interface {
	Name() string
	Search(ctx context.Context, query Query) ([]models.RawJob, error)
}

// Registry assembles the configured provider set.
func Registry(cfg config.ProvidersConfig, maxRequestsPerSecond float32) []Provider {
	var providers []Provider

	if cfg.Adzuna.AppID != "" && cfg.Adzuna.AppKey != "" {
		adzuna := NewAdzunaClient(cfg.Adzuna.AppID, cfg.Adzuna.AppKey, cfg.Adzuna.Country)
		adzuna.SetRateLimit(maxRequestsPerSecond)
		providers = append(providers, adzuna)
	}

	if cfg.RemotiveEnabled {
		remotive := NewRemotiveClient()
		remotive.SetRateLimit(maxRequestsPerSecond)
		providers = append(providers, remotive)
	}

	return providers
}

type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// requester carries the HTTP plumbing shared by all board clients.
type requester struct {
	httpClient  HTTPClient
	rateLimiter *rate.Limiter
}

func newRequester() requester {
	return requester{httpClient: &http.Client{}}
}

func (r *requester) SetHTTPClient(client HTTPClient) {
	r.httpClient = client
}

func (r *requester) SetRateLimit(maxRequestsPerSecond float32) {
	if maxRequestsPerSecond > 0 {
		r.rateLimiter = rate.NewLimiter(rate.Limit(maxRequestsPerSecond), 1)
	}
}

func (r *requester) sendRequest(ctx context.Context, method string, url string, body io.Reader) ([]byte, error) {

	if r.rateLimiter != nil {
		err := r.rateLimiter.Wait(ctx)
		if err != nil {
			return nil, err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("error creating request: %v", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error sending request: %v", err)
	}
	defer resp.Body.Close()

	return r.handleResponse(resp)
}

func (r *requester) handleResponse(resp *http.Response) ([]byte, error) {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("error reading response body: %v", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("request failed with status %v, body: %v", resp.StatusCode, string(body))
	}

	return body, nil
}
