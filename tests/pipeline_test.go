package tests

import (
	"context"
	"testing"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/ekazakov/job-matcher/internal/aggregator"
	"github.com/ekazakov/job-matcher/internal/autonomy"
	"github.com/ekazakov/job-matcher/internal/clients/boards"
	"github.com/ekazakov/job-matcher/internal/costs"
	"github.com/ekazakov/job-matcher/internal/dedup"
	"github.com/ekazakov/job-matcher/internal/domain/models"
	"github.com/ekazakov/job-matcher/internal/engine"
	"github.com/ekazakov/job-matcher/internal/learning"
	"github.com/ekazakov/job-matcher/internal/repositories"
	"github.com/ekazakov/job-matcher/internal/scoring"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
)

func clearDb() {
	for _, table := range []string{"matches", "jobs", "swipe_events", "learned_preferences",
		"agent_actions", "user_preferences", "autonomy_states"} {
		dbCtx.DB.Exec("DELETE from " + table + " WHERE TRUE")
	}
}

type testEnv struct {
	engine  *engine.Engine
	learner *learning.Service
	bus     EventBus.Bus
}

func newTestEnv(t *testing.T, providers ...boards.Provider) *testEnv {

	bus := EventBus.New()
	swipes := repositories.NewSwipesRepository(dbCtx.DB)
	preferences := repositories.NewPreferencesRepository(dbCtx.DB)
	jobs := repositories.NewJobsRepository(dbCtx.DB)

	learner, err := learning.NewService(bus, swipes, preferences, "0 3 * * *")
	assert.NoError(t, err)
	t.Cleanup(learner.Stop)

	gate := autonomy.NewGate(
		repositories.NewCachedStates(repositories.NewStatesRepository(dbCtx.DB)),
		repositories.NewActionsRepository(dbCtx.DB),
		bus,
	)

	refiner := scoring.NewRefiner(nil, costs.NewLogTracker(), false, time.Second)

	eng := engine.New(bus, engine.Repositories{
		Users:       repositories.NewUsersRepository(dbCtx.DB),
		Jobs:        jobs,
		Matches:     repositories.NewMatchesRepository(dbCtx.DB),
		Swipes:      swipes,
		Preferences: preferences,
	}, aggregator.New(providers).WithTimeout(5*time.Second), dedup.NewEngine(jobs),
		refiner, learner, gate, 50, time.Hour)

	return &testEnv{engine: eng, learner: learner, bus: bus}
}

func seedUser(t *testing.T, userID string, tier string) {

	minSalary := 120000
	err := repositories.NewUsersRepository(dbCtx.DB).SavePreferences(context.Background(), &models.UserPreferences{
		UserID:            userID,
		Keywords:          "golang developer",
		MinSalary:         &minSalary,
		ExcludedCompanies: "BadCo",
	})
	assert.NoError(t, err)

	err = dbCtx.DB.Create(&models.AutonomyState{UserID: userID, Tier: tier}).Error
	assert.NoError(t, err)
}

func userMatches(t *testing.T, userID string) []models.Match {
	matches, err := repositories.NewMatchesRepository(dbCtx.DB).GetByUser(context.Background(), userID)
	assert.NoError(t, err)
	return matches
}

func Test_Pipeline_DealBreakerProducesNoMatch(t *testing.T) {

	defer clearDb()
	seedUser(t, "user-e2e", "L0")

	env := newTestEnv(t, &mockProvider{name: "board", jobs: []models.RawJob{
		rawJob("board", "Golang Developer", "Acme", 130000, "https://jobs.example.com/a"),
		rawJob("board", "Golang Developer", "BadCo", 140000, "https://jobs.example.com/b"),
	}})

	summary, err := env.engine.RunMatching(context.Background(), "user-e2e")

	assert.NoError(t, err)
	assert.Equal(t, 1, summary.MatchesCreated)
	assert.Zero(t, summary.ProvidersFailed)

	matches := userMatches(t, "user-e2e")
	assert.Len(t, matches, 1)

	job, err := repositories.NewJobsRepository(dbCtx.DB).GetByID(context.Background(), matches[0].JobID)
	assert.NoError(t, err)
	assert.Equal(t, "Acme", job.Company)
}

func Test_Pipeline_RerunCreatesNoDuplicates(t *testing.T) {

	defer clearDb()
	seedUser(t, "user-rerun", "L0")

	env := newTestEnv(t, &mockProvider{name: "board", jobs: []models.RawJob{
		rawJob("board", "Golang Developer", "Acme", 130000, "https://jobs.example.com/a"),
	}})

	first, err := env.engine.RunMatching(context.Background(), "user-rerun")
	assert.NoError(t, err)
	assert.Equal(t, 1, first.MatchesCreated)

	second, err := env.engine.RunMatching(context.Background(), "user-rerun")
	assert.NoError(t, err)
	assert.Zero(t, second.MatchesCreated)

	assert.Len(t, userMatches(t, "user-rerun"), 1)

	var jobCount int64
	dbCtx.DB.Model(&models.Job{}).Count(&jobCount)
	assert.Equal(t, int64(1), jobCount)
}

func Test_Pipeline_DismissedMatchIsNotResurrected(t *testing.T) {

	defer clearDb()
	seedUser(t, "user-dismiss", "L0")

	env := newTestEnv(t, &mockProvider{name: "board", jobs: []models.RawJob{
		rawJob("board", "Golang Developer", "Acme", 130000, "https://jobs.example.com/a"),
	}})

	_, err := env.engine.RunMatching(context.Background(), "user-dismiss")
	assert.NoError(t, err)

	matches := userMatches(t, "user-dismiss")
	_, err = env.engine.RecordSwipe(context.Background(), matches[0].ID, models.SwipeDismissed)
	assert.NoError(t, err)

	summary, err := env.engine.RunMatching(context.Background(), "user-dismiss")
	assert.NoError(t, err)
	assert.Zero(t, summary.MatchesCreated)

	matches = userMatches(t, "user-dismiss")
	assert.Len(t, matches, 1)
	assert.Equal(t, models.MatchDismissed, matches[0].Status)
}

func Test_Pipeline_PartialProviderFailure(t *testing.T) {

	defer clearDb()
	seedUser(t, "user-partial", "L0")

	fast := &mockProvider{name: "fast", jobs: generateRawJobs("fast", 5)}
	alsoFast := &mockProvider{name: "also-fast", jobs: generateRawJobs("also-fast", 7)}
	slow := &mockProvider{name: "slow", responseTime: 5 * time.Second}

	result, err := aggregator.New([]boards.Provider{fast, alsoFast, slow}).
		WithTimeout(100 * time.Millisecond).
		Fetch(context.Background(), boards.Query{Keywords: "golang"})

	assert.NoError(t, err)
	assert.Len(t, result.Candidates, 12)
	assert.Len(t, result.Failures, 1)
	assert.Equal(t, "slow", result.Failures[0].Provider)

	env := newTestEnv(t, fast, alsoFast, &mockProvider{name: "broken", err: errors.New("http 500")})

	summary, err := env.engine.RunMatching(context.Background(), "user-partial")
	assert.NoError(t, err)
	assert.Equal(t, 1, summary.ProvidersFailed)
	assert.Equal(t, 12, summary.MatchesCreated)
}

func Test_Pipeline_BrakeHaltsRunAndBlocksActions(t *testing.T) {

	defer clearDb()
	seedUser(t, "user-brake", "L3")

	env := newTestEnv(t, &mockProvider{name: "board", jobs: []models.RawJob{
		rawJob("board", "Golang Developer", "Acme", 130000, "https://jobs.example.com/a"),
	}})

	_, err := env.engine.RunMatching(context.Background(), "user-brake")
	assert.NoError(t, err)
	matches := userMatches(t, "user-brake")
	assert.Len(t, matches, 1)

	err = dbCtx.DB.Model(&models.AutonomyState{}).
		Where("user_id = ?", "user-brake").
		Update("brake_engaged", true).Error
	assert.NoError(t, err)

	_, err = env.engine.RunMatching(context.Background(), "user-brake")
	assert.ErrorIs(t, err, autonomy.ErrBrakeEngaged)

	decision, err := env.engine.AutoApply(context.Background(), matches[0].ID)
	assert.NoError(t, err)
	assert.Equal(t, autonomy.OutcomeBrakeBlocked, decision.Outcome)

	matches = userMatches(t, "user-brake")
	assert.Equal(t, models.MatchNew, matches[0].Status)
}

func Test_Pipeline_SwipesBecomeLearnedPreferences(t *testing.T) {

	defer clearDb()
	seedUser(t, "user-learn", "L0")

	jobs := make([]models.RawJob, 0, 5)
	for i := 0; i < 5; i++ {
		jobs = append(jobs, rawJob("board", "Golang Developer", "Acme", 130000,
			"https://jobs.example.com/"+string(rune('a'+i))))
	}
	env := newTestEnv(t, &mockProvider{name: "board", jobs: jobs})

	_, err := env.engine.RunMatching(context.Background(), "user-learn")
	assert.NoError(t, err)

	matches := userMatches(t, "user-learn")
	assert.Len(t, matches, 5)

	for i, match := range matches {
		action := models.SwipeDismissed
		if i >= 3 {
			action = models.SwipeSaved
		}
		_, err := env.engine.RecordSwipe(context.Background(), match.ID, action)
		assert.NoError(t, err)
	}

	patterns, err := env.learner.DetectPatterns(context.Background(), "user-learn")
	assert.NoError(t, err)

	var acme *models.LearnedPreference
	for i := range patterns {
		if patterns[i].Type == models.PreferenceCompany && patterns[i].Kind == models.PatternDismissed {
			acme = &patterns[i]
		}
	}
	assert.NotNil(t, acme)
	assert.Equal(t, "Acme", acme.Value)
	assert.Equal(t, 0.60, acme.Confidence)
	assert.Equal(t, models.PreferencePending, acme.Status)

	// pending patterns never affect live scoring
	live, err := env.learner.ApplyLearnedPreferences(context.Background(), "user-learn")
	assert.NoError(t, err)
	assert.Empty(t, live)

	err = env.engine.UpdateLearnedPreferenceStatus(context.Background(), acme.ID, models.PreferenceAcknowledged)
	assert.NoError(t, err)

	live, err = env.learner.ApplyLearnedPreferences(context.Background(), "user-learn")
	assert.NoError(t, err)
	assert.Len(t, live, 1)
	assert.Equal(t, acme.ID, live[0].ID)
}

func Test_Pipeline_ApprovalQueueRoundtrip(t *testing.T) {

	defer clearDb()
	seedUser(t, "user-approve", "L2")

	env := newTestEnv(t, &mockProvider{name: "board", jobs: []models.RawJob{
		rawJob("board", "Golang Developer", "Acme", 130000, "https://jobs.example.com/a"),
	}})

	_, err := env.engine.RunMatching(context.Background(), "user-approve")
	assert.NoError(t, err)
	matches := userMatches(t, "user-approve")

	decision, err := env.engine.AutoApply(context.Background(), matches[0].ID)
	assert.NoError(t, err)
	assert.Equal(t, autonomy.OutcomeQueued, decision.Outcome)

	pending, err := env.engine.ListPendingApprovals(context.Background(), "user-approve")
	assert.NoError(t, err)
	assert.Len(t, pending, 1)
	assert.Equal(t, decision.ActionID, pending[0].ID)

	resolved, err := env.engine.ResolveApproval(context.Background(), decision.ActionID, true)
	assert.NoError(t, err)
	assert.Equal(t, models.ActionExecuted, resolved.Status)

	matches = userMatches(t, "user-approve")
	assert.Equal(t, models.MatchApplied, matches[0].Status)

	_, err = env.engine.ResolveApproval(context.Background(), decision.ActionID, false)
	assert.ErrorIs(t, err, repositories.ErrActionAlreadyResolved)
}
