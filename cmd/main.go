package main

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/asaskevich/EventBus"
	"github.com/ekazakov/job-matcher/internal/aggregator"
	"github.com/ekazakov/job-matcher/internal/autonomy"
	"github.com/ekazakov/job-matcher/internal/clients/boards"
	"github.com/ekazakov/job-matcher/internal/clients/gemini"
	"github.com/ekazakov/job-matcher/internal/config"
	"github.com/ekazakov/job-matcher/internal/costs"
	"github.com/ekazakov/job-matcher/internal/dedup"
	"github.com/ekazakov/job-matcher/internal/engine"
	"github.com/ekazakov/job-matcher/internal/learning"
	"github.com/ekazakov/job-matcher/internal/logger"
	"github.com/ekazakov/job-matcher/internal/metrics"
	"github.com/ekazakov/job-matcher/internal/notify"
	"github.com/ekazakov/job-matcher/internal/repositories"
	"github.com/ekazakov/job-matcher/internal/scoring"
	log "github.com/sirupsen/logrus"
)

func newRefiner(ctx context.Context, cfg config.EngineConfig) *scoring.Refiner {

	if !cfg.RefinementEnabled {
		return scoring.NewRefiner(nil, costs.NewLogTracker(), false, cfg.RefinementTimeout)
	}

	aiClient, err := gemini.NewClient(ctx, cfg.AIKey, gemini.Model(cfg.AIModel))
	if err != nil {
		log.Fatalf("can't create AI client: %v", err)
	}
	aiClient.SetMinuteRateLimit(cfg.AIMaxRequestsPerMinute)
	aiClient.SetDayRateLimit(cfg.AIMaxRequestsPerDay)

	return scoring.NewRefiner(aiClient, costs.NewLogTracker(), true, cfg.RefinementTimeout)
}

func main() {

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg := config.Get()

	logger.Setup(cfg.Logger)
	defer logger.Cleanup()

	metrics.StartMetricsServer(":2112")

	dbContext, err := repositories.NewDbContext(cfg.DB.ConnectionString)
	if err != nil {
		log.Fatalf("can't create db context: %v", err)
	}
	defer dbContext.Close()

	if err = dbContext.Migrate(); err != nil {
		log.Fatalf("can't migrate db context: %v", err)
	}

	bus := EventBus.New()

	users := repositories.NewUsersRepository(dbContext.DB)
	jobs := repositories.NewJobsRepository(dbContext.DB)
	matches := repositories.NewMatchesRepository(dbContext.DB)
	swipes := repositories.NewSwipesRepository(dbContext.DB)
	preferences := repositories.NewPreferencesRepository(dbContext.DB)
	actions := repositories.NewActionsRepository(dbContext.DB)
	states := repositories.NewCachedStates(repositories.NewStatesRepository(dbContext.DB))

	providers := boards.Registry(cfg.Engine.Providers, cfg.Engine.BoardMaxRequestsPerSec)
	if len(providers) == 0 {
		log.Fatal("no job board providers configured")
	}
	fetcher := aggregator.New(providers).WithTimeout(cfg.Engine.ProviderTimeout)

	learner, err := learning.NewService(bus, swipes, preferences, cfg.Engine.PatternDetectionSchedule)
	if err != nil {
		log.Fatalf("can't create learning service: %v", err)
	}

	gate := autonomy.NewGate(states, actions, bus)

	matchingEngine := engine.New(bus, engine.Repositories{
		Users:       users,
		Jobs:        jobs,
		Matches:     matches,
		Swipes:      swipes,
		Preferences: preferences,
	}, fetcher, dedup.NewEngine(jobs), newRefiner(ctx, cfg.Engine), learner, gate,
		cfg.Engine.MinMatchScore, cfg.Engine.RunInterval)

	if cfg.Notifier.Token != "" {
		if _, err := notify.NewNotifier(cfg.Notifier.Token, cfg.Notifier.Chats, bus); err != nil {
			log.Fatalf("can't create notifier: %v", err)
		}
	}

	go matchingEngine.Run(ctx)

	<-ctx.Done()

	log.Info("Shutting down services...")
	learner.Stop()
	log.Info("Services stopped.")
}
