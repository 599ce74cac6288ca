package repository

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"bookingcore/internal/model"
)

type AutomationRepository struct {
	db *pgxpool.Pool
}

func NewAutomationRepository(db *pgxpool.Pool) *AutomationRepository {
	return &AutomationRepository{db: db}
}

// ListActiveRules returns all active automation rules. Trigger and action
// configs are stored as flat jsonb maps.
func (r *AutomationRepository) ListActiveRules(ctx context.Context) ([]model.AutomationRule, error) {
	query := `
		SELECT id, name, trigger_type, trigger_config, action_type, action_config, is_active, created_at
		FROM automation_rules
		WHERE is_active = TRUE
		ORDER BY id
	`
	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query automation rules: %w", err)
	}
	defer rows.Close()

	var rules []model.AutomationRule
	for rows.Next() {
		var rule model.AutomationRule
		var triggerCfg, actionCfg []byte
		err := rows.Scan(
			&rule.ID,
			&rule.Name,
			&rule.TriggerType,
			&triggerCfg,
			&rule.ActionType,
			&actionCfg,
			&rule.IsActive,
			&rule.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan automation rule: %w", err)
		}
		if err := json.Unmarshal(triggerCfg, &rule.TriggerConfig); err != nil {
			return nil, fmt.Errorf("failed to decode trigger config for rule %d: %w", rule.ID, err)
		}
		if err := json.Unmarshal(actionCfg, &rule.ActionConfig); err != nil {
			return nil, fmt.Errorf("failed to decode action config for rule %d: %w", rule.ID, err)
		}
		rules = append(rules, rule)
	}

	return rules, rows.Err()
}

// InsertExecution appends one execution log row. The error_message column is
// the only place staff can see why an automated send failed.
func (r *AutomationRepository) InsertExecution(ctx context.Context, e *model.AutomationExecution) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO automation_executions (rule_id, status, error_message)
		VALUES ($1, $2, $3)
		RETURNING id, executed_at
	`, e.RuleID, e.Status, e.ErrorMessage).Scan(&e.ID, &e.ExecutedAt)
	if err != nil {
		return fmt.Errorf("failed to insert automation execution: %w", err)
	}
	return nil
}

// InsertTask stores an internal task produced by the create_task action.
func (r *AutomationRepository) InsertTask(ctx context.Context, t *model.InternalTask) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO internal_tasks (tenant_id, title, details, status)
		VALUES ($1, $2, $3, 'open')
		RETURNING id, created_at
	`, t.TenantID, t.Title, t.Details).Scan(&t.ID, &t.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert internal task: %w", err)
	}
	return nil
}
