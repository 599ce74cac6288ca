package model

import "time"

// Automation execution statuses.
const (
	ExecutionStatusSuccess = "success"
	ExecutionStatusError   = "error"
	ExecutionStatusSkipped = "skipped"
)

// AutomationRule pairs a trigger with an action. Created and toggled by
// platform staff; the scanner only reads it.
type AutomationRule struct {
	ID            int64
	Name          string
	TriggerType   string
	TriggerConfig map[string]string
	ActionType    string
	ActionConfig  map[string]string
	IsActive      bool
	CreatedAt     time.Time
}

// AutomationExecution is one append-only log row per rule evaluation attempt.
type AutomationExecution struct {
	ID           int64
	RuleID       int64
	Status       string
	ErrorMessage string
	ExecutedAt   time.Time
}

// InternalTask is a staff work item produced by the create_task action.
type InternalTask struct {
	ID        int64
	TenantID  int64
	Title     string
	Details   string
	Status    string
	CreatedAt time.Time
}
