package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/ekazakov/job-matcher/internal/aggregator"
	"github.com/ekazakov/job-matcher/internal/autonomy"
	"github.com/ekazakov/job-matcher/internal/clients/boards"
	"github.com/ekazakov/job-matcher/internal/domain/models"
	"github.com/ekazakov/job-matcher/internal/events"
	"github.com/ekazakov/job-matcher/internal/logger"
	"github.com/ekazakov/job-matcher/internal/metrics"
	"github.com/ekazakov/job-matcher/internal/scoring"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/samber/lo"
	log "github.com/sirupsen/logrus"
)

const autoApplyActionKind = "auto_apply"

var ErrMatchNotFound = errors.New("match not found")

type fetcher interface {
	Fetch(ctx context.Context, query boards.Query) (*aggregator.Result, error)
}

type deduplicator interface {
	Upsert(ctx context.Context, candidates []models.RawJob) ([]models.Job, error)
}

type refiner interface {
	Refine(ctx context.Context, job models.Job, prefs models.UserPreferences,
		heuristic scoring.Result) scoring.Outcome
}

type learner interface {
	ApplyLearnedPreferences(ctx context.Context, userID string) ([]models.LearnedPreference, error)
}

type gatekeeper interface {
	Checkpoint(ctx context.Context, userID string) error
	Authorize(ctx context.Context, action autonomy.Action) (autonomy.Decision, error)
	ListPending(ctx context.Context, userID string) ([]models.AgentAction, error)
	ResolveApproval(ctx context.Context, actionID string, approve bool) (*models.AgentAction, error)
	RegisterExecutor(kind string, executor autonomy.Executor)
}

type userRepository interface {
	GetPreferences(ctx context.Context, userID string) (*models.UserPreferences, error)
	ListUserIDs(ctx context.Context) ([]string, error)
}

type jobRepository interface {
	GetByID(ctx context.Context, id string) (*models.Job, error)
}

type matchRepository interface {
	CreateIfAbsent(ctx context.Context, match *models.Match) (bool, error)
	GetByID(ctx context.Context, id string) (*models.Match, error)
	UpdateStatus(ctx context.Context, id string, status models.MatchStatus) error
}

type swipeRepository interface {
	Add(ctx context.Context, event *models.SwipeEvent) error
}

type preferenceRepository interface {
	GetByUser(ctx context.Context, userID string, statuses ...models.PreferenceStatus) ([]models.LearnedPreference, error)
	UpdateStatus(ctx context.Context, id string, status models.PreferenceStatus) error
}

// RunSummary is what every matching run ends with, even a run that produced
// nothing.
type RunSummary struct {
	MatchesCreated  int
	ProvidersFailed int
}

// Rationale is the structured score explanation backing UI detail views.
type Rationale struct {
	Score     int
	Summary   string
	Breakdown []scoring.CategoryScore
	Refined   bool
}

type Repositories struct {
	Users       userRepository
	Jobs        jobRepository
	Matches     matchRepository
	Swipes      swipeRepository
	Preferences preferenceRepository
}

// Engine orchestrates one user's pipeline: fetch, dedup, score, refine,
// persist matches. Stages run sequentially per user with a brake checkpoint
// between them; only the aggregator is concurrent inside.
type Engine struct {
	bus         EventBus.Bus
	repos       Repositories
	fetcher     fetcher
	dedup       deduplicator
	heuristic   *scoring.Heuristic
	refiner     refiner
	learner     learner
	gate        gatekeeper
	minScore    int
	runInterval time.Duration
}

func New(bus EventBus.Bus, repos Repositories, fetcher fetcher, dedup deduplicator,
	refiner refiner, learner learner, gate gatekeeper, minScore int, runInterval time.Duration) *Engine {

	e := &Engine{
		bus:         bus,
		repos:       repos,
		fetcher:     fetcher,
		dedup:       dedup,
		heuristic:   scoring.NewHeuristic(),
		refiner:     refiner,
		learner:     learner,
		gate:        gate,
		minScore:    minScore,
		runInterval: runInterval,
	}
	gate.RegisterExecutor(autoApplyActionKind, e.executeAutoApply)
	return e
}

// Run executes matching for all users on a fixed interval until the context
// is cancelled. Each run is independent: a failed user run is logged and the
// loop moves on.
func (e *Engine) Run(ctx context.Context) {

	for {
		startTime := time.Now()
		log.Infof("running matching at %v", startTime)

		e.runForAllUsers(ctx)

		executionTime := time.Since(startTime)
		metrics.RunDuration.Observe(executionTime.Seconds())
		log.Infof("matching ended after %v", executionTime)

		sleepTime := e.runInterval - executionTime
		if sleepTime < 0 {
			sleepTime = 0
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(sleepTime):
		}
	}
}

func (e *Engine) runForAllUsers(ctx context.Context) {

	users, err := e.repos.Users.ListUserIDs(ctx)
	if err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).Errorf("failed to list users: %v", err)
		return
	}

	for _, userID := range users {
		summary, err := e.RunMatching(ctx, userID)
		if err != nil {
			if errors.Is(err, autonomy.ErrBrakeEngaged) {
				log.Infof("matching run for user %v halted by emergency brake", userID)
				continue
			}
			log.Errorf("matching run for user %v failed: %v", userID, err)
			continue
		}
		log.Infof("matching run for user %v: %d matches created, %d providers failed",
			userID, summary.MatchesCreated, summary.ProvidersFailed)
	}
}

// RunMatching runs the full pipeline for one user. The brake is re-checked at
// every stage boundary and before each job's scoring, so an engaged brake
// halts the run mid-flight; the summary reflects whatever completed before
// the halt.
func (e *Engine) RunMatching(ctx context.Context, userID string) (RunSummary, error) {

	summary := RunSummary{}

	if err := e.gate.Checkpoint(ctx, userID); err != nil {
		return summary, err
	}

	prefs, err := e.repos.Users.GetPreferences(ctx, userID)
	if err != nil {
		return summary, errors.Wrap(err, "load user preferences")
	}

	fetched, err := e.timedFetch(ctx, *prefs)
	if err != nil {
		return summary, err
	}
	summary.ProvidersFailed = len(fetched.Failures)

	if err := e.gate.Checkpoint(ctx, userID); err != nil {
		return summary, err
	}

	stepStart := time.Now()
	jobs, err := e.dedup.Upsert(ctx, fetched.Candidates)
	if err != nil {
		return summary, errors.Wrap(err, "deduplicate candidates")
	}
	metrics.StepDuration.WithLabelValues("dedup").Observe(time.Since(stepStart).Seconds())

	learned, err := e.learner.ApplyLearnedPreferences(ctx, userID)
	if err != nil {
		return summary, errors.Wrap(err, "load learned preferences")
	}

	for _, job := range lo.UniqBy(jobs, func(j models.Job) string { return j.ID }) {

		if err := e.gate.Checkpoint(ctx, userID); err != nil {
			return summary, err
		}

		created, err := e.scoreAndStore(ctx, *prefs, job, learned)
		if err != nil {
			log.Errorf("failed to score job %v for user %v: %v", job.ID, userID, err)
			continue
		}
		if created {
			summary.MatchesCreated++
		}
	}

	return summary, nil
}

func (e *Engine) timedFetch(ctx context.Context, prefs models.UserPreferences) (*aggregator.Result, error) {

	query := boards.Query{
		Keywords: prefs.Keywords,
		Location: prefs.SearchLocation,
		Remote:   prefs.RemoteOnly,
	}
	if prefs.MinSalary != nil {
		query.MinSalary = *prefs.MinSalary
	}

	stepStart := time.Now()
	fetched, err := e.fetcher.Fetch(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, "fetch candidates")
	}
	metrics.StepDuration.WithLabelValues("fetch").Observe(time.Since(stepStart).Seconds())
	return fetched, nil
}

func (e *Engine) scoreAndStore(ctx context.Context, prefs models.UserPreferences,
	job models.Job, learned []models.LearnedPreference) (bool, error) {

	heuristic := e.heuristic.Score(prefs, job, learned)
	if heuristic.Reject {
		metrics.RejectedByDealBreakerCounter.Inc()
		log.Debugf("job %v rejected for user %v: %s", job.ID, prefs.UserID, heuristic.RejectReason)
		return false, nil
	}

	outcome := e.refiner.Refine(ctx, job, prefs, heuristic)
	if outcome.Score < e.minScore {
		return false, nil
	}

	breakdown, err := json.Marshal(heuristic.Breakdown)
	if err != nil {
		return false, errors.Wrap(err, "marshal score breakdown")
	}

	match := models.Match{
		ID:        uuid.NewString(),
		UserID:    prefs.UserID,
		JobID:     job.ID,
		Score:     outcome.Score,
		Rationale: outcome.Rationale,
		Breakdown: string(breakdown),
		Refined:   outcome.Refined,
		Status:    models.MatchNew,
	}

	created, err := e.repos.Matches.CreateIfAbsent(ctx, &match)
	if err != nil {
		return false, errors.Wrap(err, "create match")
	}
	if !created {
		return false, nil
	}

	metrics.MatchesCreatedCounter.Inc()
	e.bus.Publish(events.MatchFoundTopic, events.MatchFound{
		UserID:  prefs.UserID,
		MatchID: match.ID,
		Title:   job.Title,
		Company: job.Company,
		Score:   match.Score,
		URL:     job.URL,
	})
	return true, nil
}

// GetRationale returns the stored per-category breakdown and summary for a
// match.
func (e *Engine) GetRationale(ctx context.Context, matchID string) (*Rationale, error) {

	match, err := e.repos.Matches.GetByID(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if match == nil {
		return nil, ErrMatchNotFound
	}

	var breakdown []scoring.CategoryScore
	if match.Breakdown != "" {
		if err := json.Unmarshal([]byte(match.Breakdown), &breakdown); err != nil {
			return nil, errors.Wrap(err, "unmarshal score breakdown")
		}
	}

	return &Rationale{
		Score:     match.Score,
		Summary:   match.Rationale,
		Breakdown: breakdown,
		Refined:   match.Refined,
	}, nil
}

// RecordSwipe appends an immutable swipe event with the job attributes
// denormalized for pattern mining, updates the match status, and publishes
// the event for eventual (never synchronous) pattern re-detection.
func (e *Engine) RecordSwipe(ctx context.Context, matchID string, action models.SwipeAction) (*models.SwipeEvent, error) {

	if action != models.SwipeSaved && action != models.SwipeDismissed {
		return nil, fmt.Errorf("unknown swipe action %q", action)
	}

	match, err := e.repos.Matches.GetByID(ctx, matchID)
	if err != nil {
		return nil, err
	}
	if match == nil {
		return nil, ErrMatchNotFound
	}

	job, err := e.repos.Jobs.GetByID(ctx, match.JobID)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, errors.Errorf("job %v referenced by match %v not found", match.JobID, matchID)
	}

	event := models.SwipeEvent{
		ID:             uuid.NewString(),
		UserID:         match.UserID,
		MatchID:        match.ID,
		JobID:          job.ID,
		Action:         action,
		Company:        job.Company,
		Location:       job.Location,
		Remote:         job.IsRemote(),
		SalaryMin:      job.SalaryMin,
		SalaryMax:      job.SalaryMax,
		EmploymentType: job.EmploymentType,
	}

	if err := e.repos.Swipes.Add(ctx, &event); err != nil {
		return nil, errors.Wrap(err, "record swipe event")
	}

	status := models.MatchSaved
	if action == models.SwipeDismissed {
		status = models.MatchDismissed
	}
	if err := e.repos.Matches.UpdateStatus(ctx, match.ID, status); err != nil {
		return nil, errors.Wrap(err, "update match status")
	}

	e.bus.Publish(events.SwipeRecordedTopic, events.SwipeRecorded{
		UserID:  match.UserID,
		MatchID: match.ID,
		Action:  string(action),
	})
	return &event, nil
}

// AutoApply submits an application action for the match through the autonomy
// gate. Depending on the user's tier the application is executed, queued,
// drafted or merely suggested; the decision is always explicit.
func (e *Engine) AutoApply(ctx context.Context, matchID string) (autonomy.Decision, error) {

	match, err := e.repos.Matches.GetByID(ctx, matchID)
	if err != nil {
		return autonomy.Decision{}, err
	}
	if match == nil {
		return autonomy.Decision{}, ErrMatchNotFound
	}

	job, err := e.repos.Jobs.GetByID(ctx, match.JobID)
	if err != nil {
		return autonomy.Decision{}, err
	}
	if job == nil {
		return autonomy.Decision{}, errors.Errorf("job %v referenced by match %v not found", match.JobID, matchID)
	}

	payload, err := json.Marshal(map[string]string{"match_id": match.ID})
	if err != nil {
		return autonomy.Decision{}, errors.Wrap(err, "marshal action payload")
	}

	return e.gate.Authorize(ctx, autonomy.Action{
		UserID:      match.UserID,
		Kind:        autoApplyActionKind,
		Description: fmt.Sprintf("apply to %s at %s", job.Title, job.Company),
		Payload:     string(payload),
		Execute: func(ctx context.Context) error {
			return e.applyToMatch(ctx, match.ID)
		},
	})
}

// executeAutoApply performs a previously approved application from its queued
// payload.
func (e *Engine) executeAutoApply(ctx context.Context, action models.AgentAction) error {

	var payload struct {
		MatchID string `json:"match_id"`
	}
	if err := json.Unmarshal([]byte(action.Payload), &payload); err != nil {
		return errors.Wrap(err, "unmarshal action payload")
	}
	return e.applyToMatch(ctx, payload.MatchID)
}

func (e *Engine) applyToMatch(ctx context.Context, matchID string) error {
	return e.repos.Matches.UpdateStatus(ctx, matchID, models.MatchApplied)
}

// ListLearnedPreferences exposes mined patterns for review, optionally
// filtered by status.
func (e *Engine) ListLearnedPreferences(ctx context.Context, userID string,
	statuses ...models.PreferenceStatus) ([]models.LearnedPreference, error) {
	return e.repos.Preferences.GetByUser(ctx, userID, statuses...)
}

// UpdateLearnedPreferenceStatus acknowledges or rejects a mined pattern.
func (e *Engine) UpdateLearnedPreferenceStatus(ctx context.Context, id string,
	status models.PreferenceStatus) error {
	return e.repos.Preferences.UpdateStatus(ctx, id, status)
}

// ListPendingApprovals returns the user's approval queue.
func (e *Engine) ListPendingApprovals(ctx context.Context, userID string) ([]models.AgentAction, error) {
	return e.gate.ListPending(ctx, userID)
}

// ResolveApproval approves or rejects a queued action.
func (e *Engine) ResolveApproval(ctx context.Context, actionID string, approve bool) (*models.AgentAction, error) {
	return e.gate.ResolveApproval(ctx, actionID, approve)
}
