package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

var (
	ErrorsCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matcher_errors_total",
			Help: "Total number of occurred errors.",
		},
		[]string{"type"},
	)
	RunDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "matcher_run_duration_seconds",
			Help:    "Duration of each matching run in seconds.",
			Buckets: []float64{10, 30, 60, 300, 900, 1800},
		},
	)
	StepDuration = prometheus.NewSummaryVec(
		prometheus.SummaryOpts{
			Name:       "matcher_step_duration_seconds",
			Help:       "Duration of each pipeline step within a matching run.",
			Objectives: map[float64]float64{0.5: 0.05, 0.9: 0.01, 0.99: 0.001},
		},
		[]string{"step"},
	)
	ProviderFailuresCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matcher_provider_failures_total",
			Help: "Total number of failed provider fetches.",
		},
		[]string{"provider"},
	)
	MatchesCreatedCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "matcher_matches_created_total",
			Help: "Total number of match records created.",
		},
	)
	RejectedByDealBreakerCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "matcher_deal_breaker_rejections_total",
			Help: "Total number of jobs rejected before scoring.",
		},
	)
	RefinementFallbacksCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "matcher_refinement_fallbacks_total",
			Help: "Total number of refinement calls that fell back to the heuristic score.",
		},
	)
	BrakeBlocksCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "matcher_brake_blocks_total",
			Help: "Total number of agent effects halted by the emergency brake.",
		},
	)
	LLMTokensCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "matcher_llm_tokens_estimated_total",
			Help: "Estimated LLM token usage per task.",
		},
		[]string{"task"},
	)
)

func StartMetricsServer(address string) {

	prometheus.MustRegister(ErrorsCounter)
	prometheus.MustRegister(RunDuration)
	prometheus.MustRegister(StepDuration)
	prometheus.MustRegister(ProviderFailuresCounter)
	prometheus.MustRegister(MatchesCreatedCounter)
	prometheus.MustRegister(RejectedByDealBreakerCounter)
	prometheus.MustRegister(RefinementFallbacksCounter)
	prometheus.MustRegister(BrakeBlocksCounter)
	prometheus.MustRegister(LLMTokensCounter)

	http.Handle("/metrics", promhttp.Handler())
	go func() {
		log.Fatal(http.ListenAndServe(address, nil))
	}()
}
