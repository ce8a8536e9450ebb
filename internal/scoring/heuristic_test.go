package scoring

import (
	"testing"

	"github.com/ekazakov/job-matcher/internal/domain/models"
	"github.com/stretchr/testify/assert"
)

func fullFitPreferences() models.UserPreferences {
	minSalary := 100000
	return models.UserPreferences{
		UserID:        "user-1",
		DesiredTitles: "Go Developer",
		Locations:     "Berlin",
		MinSalary:     &minSalary,
		Skills:        "go",
		Seniority:     "senior",
		CompanySizes:  "startup",
	}
}

func fullFitJob() models.Job {
	salary := 130000
	return models.Job{
		ID:          "job-1",
		Title:       "Senior Go Developer",
		Company:     "Acme",
		Location:    "Berlin",
		SalaryMin:   &salary,
		CompanySize: "startup",
		Description: "we write go services",
	}
}

func Test_Score_PerfectFitNormalizesTo99(t *testing.T) {

	result := NewHeuristic().Score(fullFitPreferences(), fullFitJob(), nil)

	assert.False(t, result.Reject)
	// 110 working points divide down to 99, not 100
	assert.Equal(t, 99, result.Score)
	assert.Equal(t, "99% match: title (25/25), location (20/20), salary (20/20), skills (20/20), seniority (15/15), company size (10/10)", result.Rationale)
}

func Test_Score_NoPreferencesEarnsNeutralMidRange(t *testing.T) {

	result := NewHeuristic().Score(models.UserPreferences{UserID: "user-1"}, fullFitJob(), nil)

	assert.False(t, result.Reject)
	// halves of 25/20/20/20/15/10 sum to 54, normalized to 49
	assert.Equal(t, 49, result.Score)
}

func Test_Score_ExcludedCompanyRejectsBeforeScoring(t *testing.T) {

	prefs := fullFitPreferences()
	prefs.ExcludedCompanies = "BadCo, Acme"

	result := NewHeuristic().Score(prefs, fullFitJob(), nil)

	assert.True(t, result.Reject)
	assert.Contains(t, result.RejectReason, "Acme")
	assert.Zero(t, result.Score)
	assert.Empty(t, result.Rationale)
}

func Test_Score_ExcludedIndustryRejects(t *testing.T) {

	prefs := fullFitPreferences()
	prefs.ExcludedIndustries = "gambling"
	job := fullFitJob()
	job.Industry = "Gambling"

	result := NewHeuristic().Score(prefs, job, nil)

	assert.True(t, result.Reject)
	assert.Contains(t, result.RejectReason, "industry")
}

func Test_Score_KnownSubMinimumSalaryRejects(t *testing.T) {

	minSalary := 150000
	prefs := fullFitPreferences()
	prefs.MinSalary = &minSalary

	result := NewHeuristic().Score(prefs, fullFitJob(), nil)

	assert.True(t, result.Reject)
	assert.Contains(t, result.RejectReason, "below minimum")
}

func Test_Score_UnknownSalaryNeverRejects(t *testing.T) {

	minSalary := 150000
	prefs := fullFitPreferences()
	prefs.MinSalary = &minSalary
	job := fullFitJob()
	job.SalaryMin = nil
	job.SalaryMax = nil

	result := NewHeuristic().Score(prefs, job, nil)

	assert.False(t, result.Reject)
	// unknown salary earns the neutral half instead
	assert.Equal(t, 10, result.Breakdown[2].Earned)
}

func Test_Score_SalaryComparesHighestKnownFigure(t *testing.T) {

	minSalary := 150000
	low, high := 120000, 160000
	prefs := fullFitPreferences()
	prefs.MinSalary = &minSalary
	job := fullFitJob()
	job.SalaryMin = &low
	job.SalaryMax = &high

	result := NewHeuristic().Score(prefs, job, nil)

	assert.False(t, result.Reject)
}

func Test_Score_DismissedPatternSubtractsByConfidence(t *testing.T) {

	learned := []models.LearnedPreference{
		{Kind: models.PatternDismissed, Type: models.PreferenceCompany, Value: "Acme", Confidence: 0.80, Status: models.PreferenceAcknowledged},
	}

	result := NewHeuristic().Score(fullFitPreferences(), fullFitJob(), learned)

	// 99 - int(15*0.80) = 87
	assert.Equal(t, 87, result.Score)
	assert.Contains(t, result.Rationale, "swipe history (-12)")
}

func Test_Score_SavedPatternBoostsByInverseConfidence(t *testing.T) {

	learned := []models.LearnedPreference{
		{Kind: models.PatternSaved, Type: models.PreferenceLocation, Value: "Berlin", Confidence: 0.60, Status: models.PreferenceAcknowledged},
	}
	prefs := fullFitPreferences()
	prefs.Seniority = "staff" // drop below the cap so the boost is visible

	result := NewHeuristic().Score(prefs, fullFitJob(), learned)

	// 95 working points normalize to 86, then + int(10*0.40) = 90
	assert.Equal(t, 90, result.Score)
	assert.Contains(t, result.Rationale, "swipe history (+4)")
}

func Test_Score_AdjustedScoreStaysWithinBounds(t *testing.T) {

	learned := []models.LearnedPreference{
		{Kind: models.PatternSaved, Type: models.PreferenceCompany, Value: "Acme", Confidence: 0.0, Status: models.PreferenceAcknowledged},
	}

	result := NewHeuristic().Score(fullFitPreferences(), fullFitJob(), learned)

	assert.LessOrEqual(t, result.Score, 100)
	assert.GreaterOrEqual(t, result.Score, 0)
}

func Test_Score_NonMatchingPatternHasNoEffect(t *testing.T) {

	learned := []models.LearnedPreference{
		{Kind: models.PatternDismissed, Type: models.PreferenceCompany, Value: "OtherCo", Confidence: 0.95, Status: models.PreferenceAcknowledged},
	}

	result := NewHeuristic().Score(fullFitPreferences(), fullFitJob(), learned)

	assert.Equal(t, 99, result.Score)
}

func Test_Score_SameInputsProduceSameRationale(t *testing.T) {

	first := NewHeuristic().Score(fullFitPreferences(), fullFitJob(), nil)
	second := NewHeuristic().Score(fullFitPreferences(), fullFitJob(), nil)

	assert.Equal(t, first.Rationale, second.Rationale)
	assert.Equal(t, first.Breakdown, second.Breakdown)
}
