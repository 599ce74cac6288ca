package automation

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"bookingcore/internal/model"
	"bookingcore/internal/service/render"
	"bookingcore/pkg/metrics"
)

// Match is one entity a trigger selected: who the action targets and the
// tokens its templates may substitute.
type Match struct {
	EntityID int64
	TenantID int64
	Email    string
	Name     string
	Tokens   render.Tokens
}

// TriggerEvaluator selects the entities a rule applies to for this run.
type TriggerEvaluator func(ctx context.Context, cfg map[string]string, now time.Time) ([]Match, error)

// ActionExecutor applies a rule's action to the matched entities. It returns
// the number of matches it actually acted on plus any per-match failures
// joined into one error.
type ActionExecutor func(ctx context.Context, rule *model.AutomationRule, matches []Match) (acted int, err error)

type RuleSource interface {
	ListActiveRules(ctx context.Context) ([]model.AutomationRule, error)
}

type ExecutionLog interface {
	InsertExecution(ctx context.Context, e *model.AutomationExecution) error
}

// Engine evaluates active AutomationRules against registered triggers and
// actions. New trigger or action kinds register themselves; the run loop
// never changes.
type Engine struct {
	rules      RuleSource
	executions ExecutionLog
	triggers   map[string]TriggerEvaluator
	actions    map[string]ActionExecutor
	logger     *zap.Logger
	now        func() time.Time
}

func NewEngine(rules RuleSource, executions ExecutionLog, logger *zap.Logger) *Engine {
	return &Engine{
		rules:      rules,
		executions: executions,
		triggers:   make(map[string]TriggerEvaluator),
		actions:    make(map[string]ActionExecutor),
		logger:     logger,
		now:        time.Now,
	}
}

func (e *Engine) RegisterTrigger(triggerType string, evaluator TriggerEvaluator) {
	e.triggers[triggerType] = evaluator
}

func (e *Engine) RegisterAction(actionType string, executor ActionExecutor) {
	e.actions[actionType] = executor
}

// WithClock overrides the time source for tests.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// Run evaluates every active rule once. Each rule gets exactly one execution
// row: skipped when nothing matched, error when the trigger or action failed,
// success otherwise. One broken rule never blocks the rest.
func (e *Engine) Run(ctx context.Context) (errCount int, err error) {
	rules, err := e.rules.ListActiveRules(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load automation rules: %w", err)
	}

	now := e.now()

	for i := range rules {
		if ctx.Err() != nil {
			return errCount, ctx.Err()
		}

		rule := &rules[i]
		if runErr := e.runRule(ctx, rule, now); runErr != nil {
			errCount++
		}
	}

	return errCount, nil
}

func (e *Engine) runRule(ctx context.Context, rule *model.AutomationRule, now time.Time) error {
	evaluator, ok := e.triggers[rule.TriggerType]
	if !ok {
		return e.record(ctx, rule, model.ExecutionStatusError,
			fmt.Sprintf("unknown trigger type %q", rule.TriggerType))
	}
	executor, ok := e.actions[rule.ActionType]
	if !ok {
		return e.record(ctx, rule, model.ExecutionStatusError,
			fmt.Sprintf("unknown action type %q", rule.ActionType))
	}

	matches, err := evaluator(ctx, rule.TriggerConfig, now)
	if err != nil {
		return e.record(ctx, rule, model.ExecutionStatusError,
			fmt.Sprintf("trigger evaluation failed: %s", err))
	}
	if len(matches) == 0 {
		return e.record(ctx, rule, model.ExecutionStatusSkipped, "")
	}

	acted, err := executor(ctx, rule, matches)
	if err != nil {
		return e.record(ctx, rule, model.ExecutionStatusError, truncateMessage(err.Error()))
	}

	e.logger.Info("Automation rule executed",
		zap.Int64("rule_id", rule.ID),
		zap.String("rule", rule.Name),
		zap.Int("matched", len(matches)),
		zap.Int("acted", acted),
	)
	return e.record(ctx, rule, model.ExecutionStatusSuccess, "")
}

// record writes the execution row and reports the rule outcome: a non-nil
// return means this rule counted as an error for the run summary.
func (e *Engine) record(ctx context.Context, rule *model.AutomationRule, status, message string) error {
	metrics.AutomationExecutionsTotal.WithLabelValues(status).Inc()

	execution := &model.AutomationExecution{
		RuleID:       rule.ID,
		Status:       status,
		ErrorMessage: message,
	}
	if err := e.executions.InsertExecution(ctx, execution); err != nil {
		e.logger.Error("Failed to record automation execution",
			zap.Int64("rule_id", rule.ID),
			zap.String("status", status),
			zap.Error(err),
		)
		return err
	}

	if status == model.ExecutionStatusError {
		e.logger.Error("Automation rule failed",
			zap.Int64("rule_id", rule.ID),
			zap.String("rule", rule.Name),
			zap.String("message", message),
		)
		return fmt.Errorf("rule %d: %s", rule.ID, message)
	}
	return nil
}

// truncateMessage keeps execution rows readable when a series action joins
// many per-match failures.
func truncateMessage(msg string) string {
	const limit = 1000
	if len(msg) <= limit {
		return msg
	}
	return strings.TrimSpace(msg[:limit]) + "..."
}
