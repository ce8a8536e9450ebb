package boards

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/ekazakov/job-matcher/internal/domain/models"
)

const remotiveBaseURL = "https://remotive.com/api/remote-jobs"

// RemotiveClient queries the Remotive public API. Every posting it returns is
// remote by definition.
type RemotiveClient struct {
	requester
}

func NewRemotiveClient() *RemotiveClient {
	return &RemotiveClient{requester: newRequester()}
}

func (c *RemotiveClient) Name() string { return "remotive" }

type remotiveSearchResponse struct {
	Jobs []remotiveJob `json:"jobs"`
}

type remotiveJob struct {
	ID          int    `json:"id"`
	Title       string `json:"title"`
	CompanyName string `json:"company_name"`
	Category    string `json:"category"`
	JobType     string `json:"job_type"`
	Location    string `json:"candidate_required_location"`
	Salary      string `json:"salary"`
	URL         string `json:"url"`
	Description string `json:"description"`
}

func (c *RemotiveClient) Search(ctx context.Context, query Query) ([]models.RawJob, error) {

	params := url.Values{}
	params.Set("search", query.Keywords)
	if query.PageSize > 0 {
		params.Set("limit", strconv.Itoa(query.PageSize))
	}

	body, err := c.sendRequest(ctx, "GET", remotiveBaseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}

	var searchResponse remotiveSearchResponse
	if err := json.NewDecoder(bytes.NewReader(body)).Decode(&searchResponse); err != nil {
		return nil, fmt.Errorf("error decoding JSON response: %v", err)
	}

	jobs := make([]models.RawJob, 0, len(searchResponse.Jobs))
	for _, result := range searchResponse.Jobs {
		jobs = append(jobs, c.normalize(result))
	}
	return jobs, nil
}

func (c *RemotiveClient) normalize(job remotiveJob) models.RawJob {

	raw, _ := json.Marshal(job)
	remote := true

	normalized := models.RawJob{
		Provider:       c.Name(),
		Title:          job.Title,
		Company:        job.CompanyName,
		Industry:       job.Category,
		Location:       job.Location,
		EmploymentType: strings.ReplaceAll(job.JobType, "_", "-"),
		Remote:         &remote,
		Description:    job.Description,
		URL:            job.URL,
		RawPayload:     string(raw),
	}

	min, max := parseSalaryRange(job.Salary)
	normalized.SalaryMin = min
	normalized.SalaryMax = max

	return normalized
}

var salaryFigureRe = regexp.MustCompile(`\d[\d,]*`)

// parseSalaryRange extracts up to two figures from free-form salary strings
// like "$120,000 - $140,000" or "120k". Unparseable strings yield no salary.
func parseSalaryRange(salary string) (*int, *int) {
	if salary == "" {
		return nil, nil
	}

	kSuffix := strings.Contains(strings.ToLower(salary), "k")
	figures := salaryFigureRe.FindAllString(salary, 2)
	if len(figures) == 0 {
		return nil, nil
	}

	parse := func(s string) *int {
		v, err := strconv.Atoi(strings.ReplaceAll(s, ",", ""))
		if err != nil {
			return nil
		}
		if kSuffix && v < 1000 {
			v *= 1000
		}
		return &v
	}

	min := parse(figures[0])
	if len(figures) == 1 {
		return min, nil
	}
	return min, parse(figures[1])
}
