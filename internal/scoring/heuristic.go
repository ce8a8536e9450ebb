package scoring

import (
	"fmt"
	"strings"

	"github.com/ekazakov/job-matcher/internal/domain/models"
	"github.com/samber/lo"
)

const (
	titleMax       = 25
	locationMax    = 20
	salaryMax      = 20
	skillsMax      = 20
	seniorityMax   = 15
	companySizeMax = 10
)

// CategoryScore is one line of the per-category breakdown.
type CategoryScore struct {
	Name   string `json:"name"`
	Earned int    `json:"earned"`
	Max    int    `json:"max"`
}

// Result is the heuristic stage's verdict for one (preferences, job) pair.
// When Reject is set no score is computed and no match should be created.
type Result struct {
	Score        int
	Rationale    string
	Breakdown    []CategoryScore
	Reject       bool
	RejectReason string
}

// Heuristic computes a category-weighted preference-fit score. The five base
// categories sum to 100 and company size adds up to 10 more; the working
// total is normalized back to a 0-100 scale by dividing by 1.1 with integer
// truncation, so a perfect 110 reports as 99.
type Heuristic struct{}

func NewHeuristic() *Heuristic {
	return &Heuristic{}
}

// Score runs deal-breaker checks first and short-circuits with Reject before
// any scoring. A category with no corresponding preference earns half its
// maximum: absence of a preference is not a penalty. Acknowledged learned
// patterns adjust the normalized score and the result is clamped to [0,100].
func (h *Heuristic) Score(prefs models.UserPreferences, job models.Job, learned []models.LearnedPreference) Result {

	if reason, rejected := h.checkDealBreakers(prefs, job); rejected {
		return Result{Reject: true, RejectReason: reason}
	}

	breakdown := []CategoryScore{
		{Name: "title", Earned: scoreTitle(prefs, job), Max: titleMax},
		{Name: "location", Earned: scoreLocation(prefs, job), Max: locationMax},
		{Name: "salary", Earned: scoreSalary(prefs, job), Max: salaryMax},
		{Name: "skills", Earned: scoreSkills(prefs, job), Max: skillsMax},
		{Name: "seniority", Earned: scoreSeniority(prefs, job), Max: seniorityMax},
		{Name: "company size", Earned: scoreCompanySize(prefs, job), Max: companySizeMax},
	}

	total := lo.SumBy(breakdown, func(c CategoryScore) int { return c.Earned })
	normalized := int(float64(total) / 1.1)

	adjustment := learnedAdjustment(learned, job)
	score := clamp(normalized+adjustment, 0, 100)

	return Result{
		Score:     score,
		Rationale: buildRationale(score, breakdown, adjustment),
		Breakdown: breakdown,
	}
}

func (h *Heuristic) checkDealBreakers(prefs models.UserPreferences, job models.Job) (string, bool) {

	if containsFold(prefs.ExcludedCompaniesAsArray(), job.Company) {
		return fmt.Sprintf("company %q is excluded", job.Company), true
	}
	if job.Industry != "" && containsFold(prefs.ExcludedIndustriesAsArray(), job.Industry) {
		return fmt.Sprintf("industry %q is excluded", job.Industry), true
	}
	// an unknown salary never rejects: only a known, sub-minimum one does
	if prefs.MinSalary != nil && job.SalaryKnown() && job.BestSalary() < *prefs.MinSalary {
		return fmt.Sprintf("salary %d is below minimum %d", job.BestSalary(), *prefs.MinSalary), true
	}
	return "", false
}

func scoreTitle(prefs models.UserPreferences, job models.Job) int {

	desired := prefs.DesiredTitlesAsArray()
	if len(desired) == 0 {
		return titleMax / 2
	}

	jobTitle := strings.ToLower(job.Title)
	best := 0
	for _, title := range desired {
		if strings.Contains(jobTitle, strings.ToLower(title)) {
			return titleMax
		}
		words := strings.Fields(strings.ToLower(title))
		matched := lo.CountBy(words, func(w string) bool { return strings.Contains(jobTitle, w) })
		if earned := titleMax * matched / len(words); earned > best {
			best = earned
		}
	}
	return best
}

func scoreLocation(prefs models.UserPreferences, job models.Job) int {

	locations := prefs.LocationsAsArray()
	if !prefs.RemoteOnly && len(locations) == 0 {
		return locationMax / 2
	}
	if job.IsRemote() {
		return locationMax
	}
	if prefs.RemoteOnly {
		return 0
	}

	jobLocation := strings.ToLower(job.Location)
	for _, loc := range locations {
		if strings.Contains(jobLocation, strings.ToLower(loc)) {
			return locationMax
		}
	}
	return 0
}

func scoreSalary(prefs models.UserPreferences, job models.Job) int {

	if prefs.MinSalary == nil || !job.SalaryKnown() {
		return salaryMax / 2
	}
	// a known sub-minimum salary rejected earlier, so anything left meets it
	return salaryMax
}

func scoreSkills(prefs models.UserPreferences, job models.Job) int {

	skills := prefs.SkillsAsArray()
	if len(skills) == 0 {
		return skillsMax / 2
	}

	text := strings.ToLower(job.Title + " " + job.Description)
	matched := lo.CountBy(skills, func(s string) bool {
		return strings.Contains(text, strings.ToLower(s))
	})
	return skillsMax * matched / len(skills)
}

func scoreSeniority(prefs models.UserPreferences, job models.Job) int {

	if prefs.Seniority == "" {
		return seniorityMax / 2
	}

	text := strings.ToLower(job.Title + " " + job.Description)
	if strings.Contains(text, strings.ToLower(prefs.Seniority)) {
		return seniorityMax
	}
	return 0
}

func scoreCompanySize(prefs models.UserPreferences, job models.Job) int {

	sizes := prefs.CompanySizesAsArray()
	if len(sizes) == 0 {
		return companySizeMax / 2
	}
	if job.CompanySize != "" && containsFold(sizes, job.CompanySize) {
		return companySizeMax
	}
	return 0
}

func learnedAdjustment(learned []models.LearnedPreference, job models.Job) int {

	adjustment := 0
	for _, pattern := range learned {
		if !pattern.MatchesJob(job) {
			continue
		}
		switch pattern.Kind {
		case models.PatternDismissed:
			adjustment -= int(15 * pattern.Confidence)
		case models.PatternSaved:
			adjustment += int(10 * (1 - pattern.Confidence))
		}
	}
	return adjustment
}

func buildRationale(score int, breakdown []CategoryScore, adjustment int) string {

	parts := lo.Map(breakdown, func(c CategoryScore, _ int) string {
		return fmt.Sprintf("%s (%d/%d)", c.Name, c.Earned, c.Max)
	})

	rationale := fmt.Sprintf("%d%% match: %s", score, strings.Join(parts, ", "))
	if adjustment != 0 {
		rationale += fmt.Sprintf(", swipe history (%+d)", adjustment)
	}
	return rationale
}

func containsFold(list []string, value string) bool {
	return lo.ContainsBy(list, func(item string) bool {
		return strings.EqualFold(item, value)
	})
}

func clamp(v, low, high int) int {
	if v < low {
		return low
	}
	if v > high {
		return high
	}
	return v
}
