package costs

import (
	"github.com/ekazakov/job-matcher/internal/metrics"
	log "github.com/sirupsen/logrus"
)

// Tracker receives estimated LLM token usage. Implementations must be
// fire-and-forget: callers never wait on or fail because of tracking.
type Tracker interface {
	Track(userID string, tokensEstimate int, taskName string)
}

type logTracker struct{}

// NewLogTracker returns a tracker that records usage in logs and metrics.
func NewLogTracker() Tracker {
	return &logTracker{}
}

func (t *logTracker) Track(userID string, tokensEstimate int, taskName string) {
	metrics.LLMTokensCounter.WithLabelValues(taskName).Add(float64(tokensEstimate))
	log.Debugf("tracked %v estimated tokens for user %v, task %v", tokensEstimate, userID, taskName)
}
