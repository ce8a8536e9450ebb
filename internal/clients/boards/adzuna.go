package boards

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/ekazakov/job-matcher/internal/domain/models"
)

const adzunaBaseURL = "https://api.adzuna.com/v1/api/jobs"

// AdzunaClient queries the Adzuna public search API.
type AdzunaClient struct {
	requester
	appID   string
	appKey  string
	country string
}

func NewAdzunaClient(appID, appKey, country string) *AdzunaClient {
	if country == "" {
		country = "us"
	}
	return &AdzunaClient{
		requester: newRequester(),
		appID:     appID,
		appKey:    appKey,
		country:   country,
	}
}

func (c *AdzunaClient) Name() string { return "adzuna" }

type adzunaSearchResponse struct {
	Results []adzunaResult `json:"results"`
}

type adzunaResult struct {
	ID           string  `json:"id"`
	Title        string  `json:"title"`
	Description  string  `json:"description"`
	SalaryMin    float64 `json:"salary_min"`
	SalaryMax    float64 `json:"salary_max"`
	RedirectURL  string  `json:"redirect_url"`
	ContractTime string  `json:"contract_time"`
	Company      struct {
		DisplayName string `json:"display_name"`
	} `json:"company"`
	Location struct {
		DisplayName string `json:"display_name"`
	} `json:"location"`
	Category struct {
		Label string `json:"label"`
	} `json:"category"`
}

func (c *AdzunaClient) Search(ctx context.Context, query Query) ([]models.RawJob, error) {

	pageSize := query.PageSize
	if pageSize == 0 {
		pageSize = 50
	}

	params := url.Values{}
	params.Set("app_id", c.appID)
	params.Set("app_key", c.appKey)
	params.Set("what", query.Keywords)
	params.Set("results_per_page", strconv.Itoa(pageSize))
	params.Set("content-type", "application/json")
	if query.Location != "" {
		params.Set("where", query.Location)
	}
	if query.MinSalary > 0 {
		params.Set("salary_min", strconv.Itoa(query.MinSalary))
	}

	endpoint := fmt.Sprintf("%s/%s/search/1?%s", adzunaBaseURL, c.country, params.Encode())

	body, err := c.sendRequest(ctx, "GET", endpoint, nil)
	if err != nil {
		return nil, err
	}

	var searchResponse adzunaSearchResponse
	if err := json.NewDecoder(bytes.NewReader(body)).Decode(&searchResponse); err != nil {
		return nil, fmt.Errorf("error decoding JSON response: %v", err)
	}

	jobs := make([]models.RawJob, 0, len(searchResponse.Results))
	for _, result := range searchResponse.Results {
		jobs = append(jobs, c.normalize(result))
	}
	return jobs, nil
}

func (c *AdzunaClient) normalize(result adzunaResult) models.RawJob {

	raw, _ := json.Marshal(result)

	job := models.RawJob{
		Provider:       c.Name(),
		Title:          result.Title,
		Company:        result.Company.DisplayName,
		Industry:       result.Category.Label,
		Location:       result.Location.DisplayName,
		EmploymentType: contractTimeToEmploymentType(result.ContractTime),
		Description:    result.Description,
		URL:            result.RedirectURL,
		RawPayload:     string(raw),
	}

	if result.SalaryMin > 0 {
		min := int(result.SalaryMin)
		job.SalaryMin = &min
	}
	if result.SalaryMax > 0 {
		max := int(result.SalaryMax)
		job.SalaryMax = &max
	}
	if strings.Contains(strings.ToLower(result.Title+" "+result.Description), "remote") {
		remote := true
		job.Remote = &remote
	}

	return job
}

func contractTimeToEmploymentType(contractTime string) string {
	switch contractTime {
	case "full_time":
		return "full-time"
	case "part_time":
		return "part-time"
	default:
		return contractTime
	}
}
