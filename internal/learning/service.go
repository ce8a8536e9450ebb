package learning

import (
	"context"
	"math"
	"strconv"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/ekazakov/job-matcher/internal/domain/models"
	"github.com/ekazakov/job-matcher/internal/events"
	"github.com/ekazakov/job-matcher/internal/logger"
	"github.com/patrickmn/go-cache"
	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"
)

const (
	minOccurrences = 3
	minRate        = 0.6
	confidenceCap  = 0.95

	swipeThrottleWindow = 5 * time.Minute
)

type swipeRepository interface {
	GetByUser(ctx context.Context, userID string) ([]models.SwipeEvent, error)
	DistinctUsers(ctx context.Context) ([]string, error)
}

type preferenceRepository interface {
	UpsertDetected(ctx context.Context, detected models.LearnedPreference) (*models.LearnedPreference, error)
	GetByUser(ctx context.Context, userID string, statuses ...models.PreferenceStatus) ([]models.LearnedPreference, error)
}

// Service mines the swipe log into confidence-scored patterns. Detection is a
// full-history recompute, so re-running it is always safe: confidences are
// derived from the log, never incremented.
type Service struct {
	swipes      swipeRepository
	preferences preferenceRepository
	cron        *cron.Cron
	// throttle collapses bursts of swipes into one detection pass per user
	throttle *cache.Cache
}

func NewService(bus EventBus.Bus, swipes swipeRepository, preferences preferenceRepository,
	schedule string) (*Service, error) {

	s := &Service{
		swipes:      swipes,
		preferences: preferences,
		cron:        cron.New(),
		throttle:    cache.New(swipeThrottleWindow, 10*time.Minute),
	}

	if err := bus.Subscribe(events.SwipeRecordedTopic, s.onSwipeRecorded); err != nil {
		return nil, errors.Wrap(err, "subscribe to swipe events")
	}

	if schedule == "" {
		schedule = "0 3 * * *"
	}
	if _, err := s.cron.AddFunc(schedule, s.detectForAllUsers); err != nil {
		return nil, errors.Wrap(err, "schedule pattern detection")
	}

	s.cron.Start()
	log.Infof("pattern detection scheduled: %s", schedule)
	return s, nil
}

func (s *Service) Stop() {
	s.cron.Stop()
}

// DetectPatterns recomputes the user's patterns from the full swipe history.
// A dimension value qualifies with at least 3 same-action swipes at a rate of
// 60% or more; confidence is the rate capped at 0.95 so a finite sample never
// becomes an absolute rule. New patterns start pending and rejected ones are
// never resurrected.
func (s *Service) DetectPatterns(ctx context.Context, userID string) ([]models.LearnedPreference, error) {

	swipes, err := s.swipes.GetByUser(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "load swipe history")
	}

	detected := minePatterns(userID, swipes)

	stored := make([]models.LearnedPreference, 0, len(detected))
	for _, pattern := range detected {
		saved, err := s.preferences.UpsertDetected(ctx, pattern)
		if err != nil {
			return nil, errors.Wrapf(err, "store pattern %s=%s", pattern.Type, pattern.Value)
		}
		stored = append(stored, *saved)
	}

	log.Debugf("pattern detection for user %v: %d swipes, %d patterns", userID, len(swipes), len(stored))
	return stored, nil
}

// ApplyLearnedPreferences returns the patterns allowed to affect live
// scoring: acknowledged ones only, never pending or rejected.
func (s *Service) ApplyLearnedPreferences(ctx context.Context, userID string) ([]models.LearnedPreference, error) {
	return s.preferences.GetByUser(ctx, userID, models.PreferenceAcknowledged)
}

func (s *Service) onSwipeRecorded(event events.SwipeRecorded) {

	if _, throttled := s.throttle.Get(event.UserID); throttled {
		return
	}
	s.throttle.SetDefault(event.UserID, struct{}{})

	go func() {
		if _, err := s.DetectPatterns(context.Background(), event.UserID); err != nil {
			log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).
				Errorf("pattern detection after swipe failed: %v", err)
		}
	}()
}

func (s *Service) detectForAllUsers() {

	ctx := context.Background()
	users, err := s.swipes.DistinctUsers(ctx)
	if err != nil {
		log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).
			Errorf("failed to list users for pattern detection: %v", err)
		return
	}

	for _, userID := range users {
		if _, err := s.DetectPatterns(ctx, userID); err != nil {
			log.WithField(logger.ErrorTypeField, logger.ErrorTypeDb).
				Errorf("scheduled pattern detection failed for user %v: %v", userID, err)
		}
	}
}

type dimensionKey struct {
	prefType models.PreferenceType
	value    string
}

type dimensionStats struct {
	total     int
	dismissed int
	saved     int
}

func minePatterns(userID string, swipes []models.SwipeEvent) []models.LearnedPreference {

	stats := make(map[dimensionKey]*dimensionStats)
	order := make([]dimensionKey, 0)

	record := func(prefType models.PreferenceType, value string, action models.SwipeAction) {
		if value == "" {
			return
		}
		key := dimensionKey{prefType: prefType, value: value}
		entry, ok := stats[key]
		if !ok {
			entry = &dimensionStats{}
			stats[key] = entry
			order = append(order, key)
		}
		entry.total++
		switch action {
		case models.SwipeDismissed:
			entry.dismissed++
		case models.SwipeSaved:
			entry.saved++
		}
	}

	for _, swipe := range swipes {
		record(models.PreferenceCompany, swipe.Company, swipe.Action)
		record(models.PreferenceLocation, swipe.Location, swipe.Action)
		record(models.PreferenceRemote, strconv.FormatBool(swipe.Remote), swipe.Action)
		record(models.PreferenceEmploymentType, swipe.EmploymentType, swipe.Action)
	}

	var patterns []models.LearnedPreference
	for _, key := range order {
		entry := stats[key]
		if pattern, ok := qualify(userID, key, models.PatternDismissed, entry.dismissed, entry.total); ok {
			patterns = append(patterns, pattern)
		}
		if pattern, ok := qualify(userID, key, models.PatternSaved, entry.saved, entry.total); ok {
			patterns = append(patterns, pattern)
		}
	}
	return patterns
}

func qualify(userID string, key dimensionKey, kind models.PatternKind,
	occurrences, total int) (models.LearnedPreference, bool) {

	if occurrences < minOccurrences {
		return models.LearnedPreference{}, false
	}
	rate := float64(occurrences) / float64(total)
	if rate < minRate {
		return models.LearnedPreference{}, false
	}

	return models.LearnedPreference{
		UserID:      userID,
		Kind:        kind,
		Type:        key.prefType,
		Value:       key.value,
		Confidence:  round2(math.Min(confidenceCap, rate)),
		Occurrences: occurrences,
		Status:      models.PreferencePending,
	}, true
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
