package scoring

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ekazakov/job-matcher/internal/costs"
	"github.com/ekazakov/job-matcher/internal/domain/models"
	"github.com/ekazakov/job-matcher/internal/logger"
	"github.com/ekazakov/job-matcher/internal/metrics"
	"github.com/google/generative-ai-go/genai"
	log "github.com/sirupsen/logrus"
)

type llmClient interface {
	GenerateStructured(ctx context.Context, prompt string, schema *genai.Schema,
		temperature float32, maxTokens int32) (string, error)
}

// Outcome is the refinement stage's result. Refined=false means the heuristic
// score and rationale passed through untouched; FallbackReason says why when
// the stage was enabled but degraded.
type Outcome struct {
	Score          int
	Rationale      string
	Refined        bool
	FallbackReason string
}

// Refiner optionally adjusts a heuristic score with one structured model
// call. It never fails the pipeline: any error, timeout or malformed payload
// degrades to the heuristic result.
type Refiner struct {
	client  llmClient
	tracker costs.Tracker
	enabled bool
	timeout time.Duration
}

func NewRefiner(client llmClient, tracker costs.Tracker, enabled bool, timeout time.Duration) *Refiner {
	if timeout <= 0 {
		timeout = 20 * time.Second
	}
	return &Refiner{client: client, tracker: tracker, enabled: enabled, timeout: timeout}
}

type refinementResponse struct {
	Score          int    `json:"score"`
	Justification  string `json:"justification"`
	TitleMatch     int    `json:"title_match"`
	SkillsOverlap  int    `json:"skills_overlap"`
	LocationMatch  int    `json:"location_match"`
	SalaryMatch    int    `json:"salary_match"`
	CompanySize    int    `json:"company_size"`
	SeniorityMatch int    `json:"seniority_match"`
}

var refinementSchema = &genai.Schema{
	Type: genai.TypeObject,
	Properties: map[string]*genai.Schema{
		"score":           {Type: genai.TypeInteger, Description: "overall fit 0-100"},
		"justification":   {Type: genai.TypeString, Description: "short free-text explanation"},
		"title_match":     {Type: genai.TypeInteger, Description: "0-100"},
		"skills_overlap":  {Type: genai.TypeInteger, Description: "0-100"},
		"location_match":  {Type: genai.TypeInteger, Description: "0-100"},
		"salary_match":    {Type: genai.TypeInteger, Description: "0-100"},
		"company_size":    {Type: genai.TypeInteger, Description: "0-100"},
		"seniority_match": {Type: genai.TypeInteger, Description: "0-100"},
	},
	Required: []string{"score", "justification"},
}

// Refine returns the heuristic result unchanged when disabled or on any
// failure. On success the model's score replaces the heuristic one and the
// justification is appended to the rationale.
func (r *Refiner) Refine(ctx context.Context, job models.Job, prefs models.UserPreferences,
	heuristic Result) Outcome {

	passthrough := Outcome{Score: heuristic.Score, Rationale: heuristic.Rationale}

	if !r.enabled {
		return passthrough
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	prompt := buildRefinementPrompt(job, prefs, heuristic)
	response, err := r.client.GenerateStructured(ctx, prompt, refinementSchema, 0.2, 512)
	r.tracker.Track(prefs.UserID, estimateTokens(prompt)+estimateTokens(response), "match_refinement")
	if err != nil {
		return r.fallback(passthrough, fmt.Sprintf("model call failed: %v", err))
	}

	var parsed refinementResponse
	if err := json.Unmarshal([]byte(response), &parsed); err != nil {
		return r.fallback(passthrough, fmt.Sprintf("malformed model response: %v", err))
	}

	score := coerceDimension(parsed.Score)
	justification := strings.TrimSpace(parsed.Justification)
	if justification == "" {
		justification = "no justification provided"
	}

	return Outcome{
		Score:     score,
		Rationale: fmt.Sprintf("%s; refined: %s", heuristic.Rationale, justification),
		Refined:   true,
	}
}

func (r *Refiner) fallback(passthrough Outcome, reason string) Outcome {
	metrics.RefinementFallbacksCounter.Inc()
	log.WithField("error_type", logger.ErrorTypeAiApi).Warnf("refinement fell back to heuristic: %s", reason)
	passthrough.FallbackReason = reason
	return passthrough
}

func buildRefinementPrompt(job models.Job, prefs models.UserPreferences, heuristic Result) string {

	var sb strings.Builder
	sb.WriteString("Assess how well this job posting fits the candidate's preferences. ")
	sb.WriteString("Rate each dimension 0-100 and give an overall score with a one-sentence justification.\n\n")

	sb.WriteString(fmt.Sprintf("Job: %s at %s (%s)\n", job.Title, job.Company, job.Location))
	if job.SalaryKnown() {
		sb.WriteString(fmt.Sprintf("Salary up to: %d\n", job.BestSalary()))
	}
	if job.EmploymentType != "" {
		sb.WriteString(fmt.Sprintf("Employment type: %s\n", job.EmploymentType))
	}
	if job.CompanySize != "" {
		sb.WriteString(fmt.Sprintf("Company size: %s\n", job.CompanySize))
	}
	sb.WriteString(fmt.Sprintf("Remote: %v\n", job.IsRemote()))
	if job.Description != "" {
		sb.WriteString(fmt.Sprintf("Description: %s\n", truncate(job.Description, 2000)))
	}

	sb.WriteString(fmt.Sprintf("\nCandidate wants titles: %s\n", orAny(prefs.DesiredTitles)))
	sb.WriteString(fmt.Sprintf("Locations: %s (remote only: %v)\n", orAny(prefs.Locations), prefs.RemoteOnly))
	if prefs.MinSalary != nil {
		sb.WriteString(fmt.Sprintf("Minimum salary: %d\n", *prefs.MinSalary))
	}
	sb.WriteString(fmt.Sprintf("Skills: %s\n", orAny(prefs.Skills)))
	sb.WriteString(fmt.Sprintf("Seniority: %s\n", orAny(prefs.Seniority)))
	sb.WriteString(fmt.Sprintf("Preferred company sizes: %s\n", orAny(prefs.CompanySizes)))

	sb.WriteString(fmt.Sprintf("\nA first-pass heuristic scored this %d/100.\n", heuristic.Score))
	return sb.String()
}

// coerceDimension defaults missing or out-of-range model output to values a
// downstream consumer can always use.
func coerceDimension(v int) int {
	if v <= 0 {
		return 50
	}
	return clamp(v, 0, 100)
}

func estimateTokens(text string) int {
	return len(text) / 4
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max]
}

func orAny(s string) string {
	if strings.TrimSpace(s) == "" {
		return "any"
	}
	return s
}
