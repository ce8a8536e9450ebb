package autonomy

import (
	"context"
	"fmt"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/ekazakov/job-matcher/internal/domain/models"
	"github.com/ekazakov/job-matcher/internal/events"
	"github.com/ekazakov/job-matcher/internal/metrics"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

// ErrBrakeEngaged is returned by Checkpoint when the emergency brake is on.
// Multi-step runs must treat it as an immediate halt.
var ErrBrakeEngaged = errors.New("emergency brake engaged")

type stateProvider interface {
	GetTier(ctx context.Context, userID string) (models.Tier, error)
	IsBrakeEngaged(ctx context.Context, userID string) (bool, error)
}

type actionRepository interface {
	Create(ctx context.Context, action *models.AgentAction) error
	GetByID(ctx context.Context, id string) (*models.AgentAction, error)
	GetPending(ctx context.Context, userID string) ([]models.AgentAction, error)
	Resolve(ctx context.Context, id string, to models.ActionStatus) (*models.AgentAction, error)
	MarkExecuted(ctx context.Context, id string) error
}

type Outcome string

const (
	OutcomeExecuted     Outcome = "executed"
	OutcomeQueued       Outcome = "queued-for-approval"
	OutcomeDrafted      Outcome = "drafted"
	OutcomeSuggested    Outcome = "suggested"
	OutcomeBrakeBlocked Outcome = "brake-blocked"
	OutcomeTierDenied   Outcome = "tier-denied"
)

// Action is one agent effect submitted to the gate. Execute performs the
// effect and runs only when the user's tier allows immediate execution or
// after an explicit approval.
type Action struct {
	UserID      string
	Kind        string
	Description string
	Payload     string
	// MinTier is the lowest tier at which this action makes sense at all;
	// below it the gate denies rather than degrades.
	MinTier models.Tier
	Execute func(ctx context.Context) error
}

// Decision is the gate's verdict. Refusals (brake-blocked, tier-denied) are
// decisions too, never errors and never silent.
type Decision struct {
	Outcome  Outcome
	ActionID string
	Reason   string
}

// Executor performs a previously queued action after the user approves it.
type Executor func(ctx context.Context, action models.AgentAction) error

// Gate enforces the per-user autonomy tier and the emergency brake around
// every agent effect. The brake is checked before any tier logic and again at
// every step boundary via Checkpoint; tier state may be cached but brake
// reads always hit storage.
type Gate struct {
	states    stateProvider
	actions   actionRepository
	bus       EventBus.Bus
	executors map[string]Executor
}

func NewGate(states stateProvider, actions actionRepository, bus EventBus.Bus) *Gate {
	return &Gate{
		states:    states,
		actions:   actions,
		bus:       bus,
		executors: make(map[string]Executor),
	}
}

// RegisterExecutor binds an action kind to the function that performs it
// after approval. Registration happens at wiring time, before any approvals
// can resolve.
func (g *Gate) RegisterExecutor(kind string, executor Executor) {
	g.executors[kind] = executor
}

// Checkpoint re-reads the brake at a step boundary inside a multi-step run.
// Callers must stop on ErrBrakeEngaged so an engaged brake halts effects
// already in flight, not only new requests.
func (g *Gate) Checkpoint(ctx context.Context, userID string) error {

	engaged, err := g.states.IsBrakeEngaged(ctx, userID)
	if err != nil {
		return errors.Wrap(err, "read brake state")
	}
	if engaged {
		metrics.BrakeBlocksCounter.Inc()
		return ErrBrakeEngaged
	}
	return nil
}

// Authorize routes one action through the brake check and tier state machine.
// L0 logs the suggestion only, L1 persists a draft, L2 queues for approval
// and notifies, L3 executes immediately.
func (g *Gate) Authorize(ctx context.Context, action Action) (Decision, error) {

	engaged, err := g.states.IsBrakeEngaged(ctx, action.UserID)
	if err != nil {
		return Decision{}, errors.Wrap(err, "read brake state")
	}
	if engaged {
		metrics.BrakeBlocksCounter.Inc()
		log.Infof("action %q for user %v blocked by emergency brake", action.Kind, action.UserID)
		return Decision{Outcome: OutcomeBrakeBlocked, Reason: "emergency brake engaged"}, nil
	}

	tier, err := g.states.GetTier(ctx, action.UserID)
	if err != nil {
		return Decision{}, errors.Wrap(err, "read autonomy tier")
	}

	if tier < action.MinTier {
		return Decision{
			Outcome: OutcomeTierDenied,
			Reason:  fmt.Sprintf("action %q requires at least tier %s, user is at %s", action.Kind, action.MinTier, tier),
		}, nil
	}

	switch tier {
	case models.TierSuggest:
		log.Infof("suggestion for user %v: %s", action.UserID, action.Description)
		return Decision{Outcome: OutcomeSuggested}, nil

	case models.TierDraft:
		record := g.newRecord(action, models.ActionDrafted)
		if err := g.actions.Create(ctx, &record); err != nil {
			return Decision{}, errors.Wrap(err, "persist draft")
		}
		return Decision{Outcome: OutcomeDrafted, ActionID: record.ID}, nil

	case models.TierApprove:
		record := g.newRecord(action, models.ActionQueued)
		if err := g.actions.Create(ctx, &record); err != nil {
			return Decision{}, errors.Wrap(err, "enqueue for approval")
		}
		g.bus.Publish(events.ApprovalQueuedTopic, events.ApprovalQueued{
			UserID:      action.UserID,
			ActionID:    record.ID,
			Kind:        action.Kind,
			Description: action.Description,
		})
		return Decision{Outcome: OutcomeQueued, ActionID: record.ID}, nil

	default: // models.TierExecute
		if err := action.Execute(ctx); err != nil {
			return Decision{}, errors.Wrapf(err, "execute action %q", action.Kind)
		}
		record := g.newRecord(action, models.ActionExecuted)
		now := time.Now()
		record.ResolvedAt = &now
		if err := g.actions.Create(ctx, &record); err != nil {
			return Decision{}, errors.Wrap(err, "record executed action")
		}
		return Decision{Outcome: OutcomeExecuted, ActionID: record.ID}, nil
	}
}

// ListPending returns the user's approval queue.
func (g *Gate) ListPending(ctx context.Context, userID string) ([]models.AgentAction, error) {
	return g.actions.GetPending(ctx, userID)
}

// ResolveApproval settles a queued action. Approval runs the registered
// executor for the action's kind; resolution is status-guarded so a second
// concurrent resolution fails with ErrActionAlreadyResolved from the
// repository rather than executing twice.
func (g *Gate) ResolveApproval(ctx context.Context, actionID string, approve bool) (*models.AgentAction, error) {

	action, err := g.actions.GetByID(ctx, actionID)
	if err != nil {
		return nil, err
	}

	if err := g.Checkpoint(ctx, action.UserID); err != nil {
		return nil, err
	}

	to := models.ActionRejected
	if approve {
		to = models.ActionApproved
	}

	resolved, err := g.actions.Resolve(ctx, actionID, to)
	if err != nil {
		return nil, err
	}
	if !approve {
		return resolved, nil
	}

	executor, registered := g.executors[resolved.Kind]
	if !registered {
		return nil, fmt.Errorf("no executor registered for action kind %q", resolved.Kind)
	}
	if err := executor(ctx, *resolved); err != nil {
		return nil, errors.Wrapf(err, "execute approved action %q", resolved.Kind)
	}
	if err := g.actions.MarkExecuted(ctx, resolved.ID); err != nil {
		return nil, errors.Wrap(err, "mark action executed")
	}

	return g.actions.GetByID(ctx, resolved.ID)
}

func (g *Gate) newRecord(action Action, status models.ActionStatus) models.AgentAction {
	return models.AgentAction{
		ID:          uuid.NewString(),
		UserID:      action.UserID,
		Kind:        action.Kind,
		Description: action.Description,
		Payload:     action.Payload,
		Status:      status,
	}
}
