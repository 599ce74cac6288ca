package automation

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"bookingcore/internal/model"
)

type fakeRuleSource struct {
	rules []model.AutomationRule
	err   error
}

func (f *fakeRuleSource) ListActiveRules(ctx context.Context) ([]model.AutomationRule, error) {
	return f.rules, f.err
}

type fakeExecutionLog struct {
	rows []model.AutomationExecution
	err  error
}

func (f *fakeExecutionLog) InsertExecution(ctx context.Context, e *model.AutomationExecution) error {
	if f.err != nil {
		return f.err
	}
	f.rows = append(f.rows, *e)
	return nil
}

func activeRule(triggerType, actionType string) model.AutomationRule {
	return model.AutomationRule{
		ID:          1,
		Name:        "test rule",
		TriggerType: triggerType,
		ActionType:  actionType,
		IsActive:    true,
	}
}

func newTestEngine(rules *fakeRuleSource, log *fakeExecutionLog) *Engine {
	return NewEngine(rules, log, zap.NewNop()).
		WithClock(func() time.Time { return time.Date(2026, 9, 9, 8, 0, 0, 0, time.UTC) })
}

func TestEngineSuccessExecution(t *testing.T) {
	rules := &fakeRuleSource{rules: []model.AutomationRule{activeRule("always", "noop")}}
	log := &fakeExecutionLog{}

	var acted []Match
	engine := newTestEngine(rules, log)
	engine.RegisterTrigger("always", func(ctx context.Context, cfg map[string]string, now time.Time) ([]Match, error) {
		return []Match{{EntityID: 1, TenantID: 7}}, nil
	})
	engine.RegisterAction("noop", func(ctx context.Context, rule *model.AutomationRule, matches []Match) (int, error) {
		acted = matches
		return len(matches), nil
	})

	errCount, err := engine.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, errCount)
	assert.Len(t, acted, 1)
	require.Len(t, log.rows, 1)
	assert.Equal(t, model.ExecutionStatusSuccess, log.rows[0].Status)
	assert.Empty(t, log.rows[0].ErrorMessage)
}

func TestEngineSkippedWhenNothingMatches(t *testing.T) {
	rules := &fakeRuleSource{rules: []model.AutomationRule{activeRule("never", "noop")}}
	log := &fakeExecutionLog{}

	engine := newTestEngine(rules, log)
	engine.RegisterTrigger("never", func(ctx context.Context, cfg map[string]string, now time.Time) ([]Match, error) {
		return nil, nil
	})
	actionCalled := false
	engine.RegisterAction("noop", func(ctx context.Context, rule *model.AutomationRule, matches []Match) (int, error) {
		actionCalled = true
		return 0, nil
	})

	errCount, err := engine.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 0, errCount)
	assert.False(t, actionCalled)
	require.Len(t, log.rows, 1)
	assert.Equal(t, model.ExecutionStatusSkipped, log.rows[0].Status)
}

func TestEngineActionFailureRecordsErrorRow(t *testing.T) {
	rules := &fakeRuleSource{rules: []model.AutomationRule{activeRule("always", "boom")}}
	log := &fakeExecutionLog{}

	engine := newTestEngine(rules, log)
	engine.RegisterTrigger("always", func(ctx context.Context, cfg map[string]string, now time.Time) ([]Match, error) {
		return []Match{{EntityID: 1}}, nil
	})
	engine.RegisterAction("boom", func(ctx context.Context, rule *model.AutomationRule, matches []Match) (int, error) {
		return 0, errors.New("provider rejected the send")
	})

	errCount, err := engine.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, errCount)
	require.Len(t, log.rows, 1)
	assert.Equal(t, model.ExecutionStatusError, log.rows[0].Status)
	assert.Contains(t, log.rows[0].ErrorMessage, "provider rejected the send")
}

func TestEngineUnknownTriggerAndAction(t *testing.T) {
	rules := &fakeRuleSource{rules: []model.AutomationRule{
		activeRule("no_such_trigger", "noop"),
		activeRule("always", "no_such_action"),
	}}
	log := &fakeExecutionLog{}

	engine := newTestEngine(rules, log)
	engine.RegisterTrigger("always", func(ctx context.Context, cfg map[string]string, now time.Time) ([]Match, error) {
		return []Match{{EntityID: 1}}, nil
	})
	engine.RegisterAction("noop", func(ctx context.Context, rule *model.AutomationRule, matches []Match) (int, error) {
		return len(matches), nil
	})

	errCount, err := engine.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, errCount)
	require.Len(t, log.rows, 2)
	assert.Contains(t, log.rows[0].ErrorMessage, "unknown trigger type")
	assert.Contains(t, log.rows[1].ErrorMessage, "unknown action type")
}

func TestEngineOneBrokenRuleDoesNotBlockOthers(t *testing.T) {
	broken := activeRule("broken", "noop")
	broken.ID = 1
	healthy := activeRule("always", "noop")
	healthy.ID = 2

	rules := &fakeRuleSource{rules: []model.AutomationRule{broken, healthy}}
	log := &fakeExecutionLog{}

	engine := newTestEngine(rules, log)
	engine.RegisterTrigger("broken", func(ctx context.Context, cfg map[string]string, now time.Time) ([]Match, error) {
		return nil, errors.New("query timeout")
	})
	engine.RegisterTrigger("always", func(ctx context.Context, cfg map[string]string, now time.Time) ([]Match, error) {
		return []Match{{EntityID: 9}}, nil
	})
	engine.RegisterAction("noop", func(ctx context.Context, rule *model.AutomationRule, matches []Match) (int, error) {
		return len(matches), nil
	})

	errCount, err := engine.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, errCount)
	require.Len(t, log.rows, 2)
	assert.Equal(t, model.ExecutionStatusError, log.rows[0].Status)
	assert.Equal(t, model.ExecutionStatusSuccess, log.rows[1].Status)
}

func TestEngineRuleLoadFailure(t *testing.T) {
	rules := &fakeRuleSource{err: errors.New("db down")}
	engine := newTestEngine(rules, &fakeExecutionLog{})

	_, err := engine.Run(context.Background())
	assert.Error(t, err)
}
