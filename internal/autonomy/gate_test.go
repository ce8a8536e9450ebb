package autonomy

import (
	"context"
	"testing"

	"github.com/asaskevich/EventBus"
	"github.com/ekazakov/job-matcher/internal/domain/models"
	"github.com/ekazakov/job-matcher/internal/events"
	"github.com/ekazakov/job-matcher/internal/repositories"
	"github.com/stretchr/testify/assert"
)

type fakeStates struct {
	tier         models.Tier
	brakeEngaged bool
}

func (f *fakeStates) GetTier(ctx context.Context, userID string) (models.Tier, error) {
	return f.tier, nil
}

func (f *fakeStates) IsBrakeEngaged(ctx context.Context, userID string) (bool, error) {
	return f.brakeEngaged, nil
}

type memoryActions struct {
	rows map[string]*models.AgentAction
}

func newMemoryActions() *memoryActions {
	return &memoryActions{rows: make(map[string]*models.AgentAction)}
}

func (m *memoryActions) Create(ctx context.Context, action *models.AgentAction) error {
	copied := *action
	m.rows[action.ID] = &copied
	return nil
}

func (m *memoryActions) GetByID(ctx context.Context, id string) (*models.AgentAction, error) {
	action, ok := m.rows[id]
	if !ok {
		return nil, repositories.ErrActionNotFound
	}
	copied := *action
	return &copied, nil
}

func (m *memoryActions) GetPending(ctx context.Context, userID string) ([]models.AgentAction, error) {
	var pending []models.AgentAction
	for _, action := range m.rows {
		if action.UserID == userID && action.Status == models.ActionQueued {
			pending = append(pending, *action)
		}
	}
	return pending, nil
}

func (m *memoryActions) Resolve(ctx context.Context, id string, to models.ActionStatus) (*models.AgentAction, error) {
	action, ok := m.rows[id]
	if !ok {
		return nil, repositories.ErrActionNotFound
	}
	if action.Status != models.ActionQueued {
		return nil, repositories.ErrActionAlreadyResolved
	}
	action.Status = to
	copied := *action
	return &copied, nil
}

func (m *memoryActions) MarkExecuted(ctx context.Context, id string) error {
	m.rows[id].Status = models.ActionExecuted
	return nil
}

func testAction(userID string, executed *bool) Action {
	return Action{
		UserID:      userID,
		Kind:        "auto_apply",
		Description: "apply to Go Developer at Acme",
		Payload:     `{"match_id":"match-1"}`,
		Execute: func(ctx context.Context) error {
			*executed = true
			return nil
		},
	}
}

func Test_Authorize_BrakeBlocksRegardlessOfTier(t *testing.T) {

	for _, tier := range []models.Tier{models.TierSuggest, models.TierDraft, models.TierApprove, models.TierExecute} {
		executed := false
		gate := NewGate(&fakeStates{tier: tier, brakeEngaged: true}, newMemoryActions(), EventBus.New())

		decision, err := gate.Authorize(context.Background(), testAction("user-1", &executed))

		assert.NoError(t, err)
		assert.Equal(t, OutcomeBrakeBlocked, decision.Outcome, "tier %s", tier)
		assert.NotEmpty(t, decision.Reason)
		assert.False(t, executed)
	}
}

func Test_Authorize_SuggestTierPersistsNothing(t *testing.T) {

	executed := false
	actions := newMemoryActions()
	gate := NewGate(&fakeStates{tier: models.TierSuggest}, actions, EventBus.New())

	decision, err := gate.Authorize(context.Background(), testAction("user-1", &executed))

	assert.NoError(t, err)
	assert.Equal(t, OutcomeSuggested, decision.Outcome)
	assert.Empty(t, decision.ActionID)
	assert.Empty(t, actions.rows)
	assert.False(t, executed)
}

func Test_Authorize_DraftTierPersistsDraft(t *testing.T) {

	executed := false
	actions := newMemoryActions()
	gate := NewGate(&fakeStates{tier: models.TierDraft}, actions, EventBus.New())

	decision, err := gate.Authorize(context.Background(), testAction("user-1", &executed))

	assert.NoError(t, err)
	assert.Equal(t, OutcomeDrafted, decision.Outcome)
	assert.Equal(t, models.ActionDrafted, actions.rows[decision.ActionID].Status)
	assert.False(t, executed)
}

func Test_Authorize_ApproveTierQueuesAndNotifies(t *testing.T) {

	executed := false
	actions := newMemoryActions()
	bus := EventBus.New()

	var notified events.ApprovalQueued
	err := bus.Subscribe(events.ApprovalQueuedTopic, func(event events.ApprovalQueued) {
		notified = event
	})
	assert.NoError(t, err)

	gate := NewGate(&fakeStates{tier: models.TierApprove}, actions, bus)

	decision, err := gate.Authorize(context.Background(), testAction("user-1", &executed))
	bus.WaitAsync()

	assert.NoError(t, err)
	assert.Equal(t, OutcomeQueued, decision.Outcome)
	assert.Equal(t, models.ActionQueued, actions.rows[decision.ActionID].Status)
	assert.Equal(t, decision.ActionID, notified.ActionID)
	assert.Equal(t, "auto_apply", notified.Kind)
	assert.False(t, executed)
}

func Test_Authorize_ExecuteTierRunsImmediately(t *testing.T) {

	executed := false
	actions := newMemoryActions()
	gate := NewGate(&fakeStates{tier: models.TierExecute}, actions, EventBus.New())

	decision, err := gate.Authorize(context.Background(), testAction("user-1", &executed))

	assert.NoError(t, err)
	assert.Equal(t, OutcomeExecuted, decision.Outcome)
	assert.True(t, executed)
	assert.Equal(t, models.ActionExecuted, actions.rows[decision.ActionID].Status)
	assert.NotNil(t, actions.rows[decision.ActionID].ResolvedAt)
}

func Test_Authorize_BelowMinTierIsDenied(t *testing.T) {

	executed := false
	gate := NewGate(&fakeStates{tier: models.TierDraft}, newMemoryActions(), EventBus.New())

	action := testAction("user-1", &executed)
	action.MinTier = models.TierApprove

	decision, err := gate.Authorize(context.Background(), action)

	assert.NoError(t, err)
	assert.Equal(t, OutcomeTierDenied, decision.Outcome)
	assert.Contains(t, decision.Reason, "L2")
	assert.False(t, executed)
}

func Test_Checkpoint_ReturnsTypedErrorWhenBrakeEngaged(t *testing.T) {

	states := &fakeStates{tier: models.TierExecute}
	gate := NewGate(states, newMemoryActions(), EventBus.New())

	assert.NoError(t, gate.Checkpoint(context.Background(), "user-1"))

	states.brakeEngaged = true
	assert.ErrorIs(t, gate.Checkpoint(context.Background(), "user-1"), ErrBrakeEngaged)
}

func Test_ResolveApproval_ApproveRunsExecutor(t *testing.T) {

	executed := false
	actions := newMemoryActions()
	gate := NewGate(&fakeStates{tier: models.TierApprove}, actions, EventBus.New())
	gate.RegisterExecutor("auto_apply", func(ctx context.Context, action models.AgentAction) error {
		executed = true
		return nil
	})

	var placeholder bool
	decision, err := gate.Authorize(context.Background(), testAction("user-1", &placeholder))
	assert.NoError(t, err)

	resolved, err := gate.ResolveApproval(context.Background(), decision.ActionID, true)

	assert.NoError(t, err)
	assert.True(t, executed)
	assert.Equal(t, models.ActionExecuted, resolved.Status)
}

func Test_ResolveApproval_RejectSkipsExecutor(t *testing.T) {

	executed := false
	actions := newMemoryActions()
	gate := NewGate(&fakeStates{tier: models.TierApprove}, actions, EventBus.New())
	gate.RegisterExecutor("auto_apply", func(ctx context.Context, action models.AgentAction) error {
		executed = true
		return nil
	})

	var placeholder bool
	decision, err := gate.Authorize(context.Background(), testAction("user-1", &placeholder))
	assert.NoError(t, err)

	resolved, err := gate.ResolveApproval(context.Background(), decision.ActionID, false)

	assert.NoError(t, err)
	assert.False(t, executed)
	assert.Equal(t, models.ActionRejected, resolved.Status)
}

func Test_ResolveApproval_SecondResolutionFails(t *testing.T) {

	actions := newMemoryActions()
	gate := NewGate(&fakeStates{tier: models.TierApprove}, actions, EventBus.New())
	gate.RegisterExecutor("auto_apply", func(ctx context.Context, action models.AgentAction) error {
		return nil
	})

	var placeholder bool
	decision, err := gate.Authorize(context.Background(), testAction("user-1", &placeholder))
	assert.NoError(t, err)

	_, err = gate.ResolveApproval(context.Background(), decision.ActionID, true)
	assert.NoError(t, err)

	_, err = gate.ResolveApproval(context.Background(), decision.ActionID, false)
	assert.ErrorIs(t, err, repositories.ErrActionAlreadyResolved)
}

func Test_ResolveApproval_BrakeBlocksResolution(t *testing.T) {

	actions := newMemoryActions()
	states := &fakeStates{tier: models.TierApprove}
	gate := NewGate(states, actions, EventBus.New())

	var placeholder bool
	decision, err := gate.Authorize(context.Background(), testAction("user-1", &placeholder))
	assert.NoError(t, err)

	states.brakeEngaged = true
	_, err = gate.ResolveApproval(context.Background(), decision.ActionID, true)

	assert.ErrorIs(t, err, ErrBrakeEngaged)
	assert.Equal(t, models.ActionQueued, actions.rows[decision.ActionID].Status)
}
