package diligence

import (
	"time"

	"github.com/google/uuid"
)

// TaskCategory groups checklist items by review workstream.
type TaskCategory string

const (
	CategoryFinancial   TaskCategory = "financial"
	CategoryLegal       TaskCategory = "legal"
	CategoryTax         TaskCategory = "tax"
	CategoryOperational TaskCategory = "operational"
	CategoryCommercial  TaskCategory = "commercial"
	CategoryHR          TaskCategory = "hr"
)

// TaskPriority ranks how much an unfinished checklist item can hold up
// closing.
type TaskPriority string

const (
	PriorityLow    TaskPriority = "low"
	PriorityMedium TaskPriority = "medium"
	PriorityHigh   TaskPriority = "high"
)

// TaskStatus tracks a checklist item through review.
type TaskStatus string

const (
	TaskStatusPending    TaskStatus = "pending"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusCompleted  TaskStatus = "completed"
	TaskStatusWaived     TaskStatus = "waived"
)

// Severity grades a finding.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// FindingStatus tracks a finding from discovery to resolution.
type FindingStatus string

const (
	FindingStatusOpen     FindingStatus = "open"
	FindingStatusResolved FindingStatus = "resolved"
	FindingStatusAccepted FindingStatus = "accepted"
)

// RiskLevel is the aggregate risk grade of a review.
type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskMedium   RiskLevel = "medium"
	RiskHigh     RiskLevel = "high"
	RiskCritical RiskLevel = "critical"
)

// Project is the due-diligence review attached to a transaction.
type Project struct {
	ID            uuid.UUID  `json:"id" db:"id"`
	TransactionID uuid.UUID  `json:"transaction_id" db:"transaction_id"`
	Deadline      *time.Time `json:"deadline,omitempty" db:"deadline"`
	CreatedBy     uuid.UUID  `json:"created_by" db:"created_by"`
	CreatedAt     time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time  `json:"updated_at" db:"updated_at"`
}

// Task is one checklist item of a review. A task past its due date that is
// neither completed nor waived counts as overdue; overdue is derived on
// read, never stored.
type Task struct {
	ID          uuid.UUID    `json:"id" db:"id"`
	ProjectID   uuid.UUID    `json:"project_id" db:"project_id"`
	Category    TaskCategory `json:"category" db:"category"`
	Priority    TaskPriority `json:"priority" db:"priority"`
	Title       string       `json:"title" db:"title"`
	Description string       `json:"description" db:"description"`
	Status      TaskStatus   `json:"status" db:"status"`
	DueDate     time.Time    `json:"due_date" db:"due_date"`
	CompletedBy *uuid.UUID   `json:"completed_by,omitempty" db:"completed_by"`
	CompletedAt *time.Time   `json:"completed_at,omitempty" db:"completed_at"`
	CreatedAt   time.Time    `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at" db:"updated_at"`
}

// IsOverdue reports whether the task is past due and still open.
func (t *Task) IsOverdue(now time.Time) bool {
	if t.Status == TaskStatusCompleted || t.Status == TaskStatusWaived {
		return false
	}
	return t.DueDate.Before(now)
}

// Finding is an issue uncovered during review. Findings stay on the record;
// resolving one changes its status, never removes it.
type Finding struct {
	ID          uuid.UUID     `json:"id" db:"id"`
	ProjectID   uuid.UUID     `json:"project_id" db:"project_id"`
	TaskID      *uuid.UUID    `json:"task_id,omitempty" db:"task_id"`
	Severity    Severity      `json:"severity" db:"severity"`
	Title       string        `json:"title" db:"title"`
	Description string        `json:"description" db:"description"`
	Status      FindingStatus `json:"status" db:"status"`
	RaisedBy    uuid.UUID     `json:"raised_by" db:"raised_by"`
	ResolvedBy  *uuid.UUID    `json:"resolved_by,omitempty" db:"resolved_by"`
	ResolvedAt  *time.Time    `json:"resolved_at,omitempty" db:"resolved_at"`
	Resolution  *string       `json:"resolution,omitempty" db:"resolution"`
	CreatedAt   time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at" db:"updated_at"`
}

// Metrics aggregates the state of a review.
type Metrics struct {
	ProjectID         uuid.UUID `json:"project_id"`
	TotalTasks        int       `json:"total_tasks"`
	CompletedTasks    int       `json:"completed_tasks"`
	OverdueTaskCount  int       `json:"overdue_task_count"`
	CompletionPercent float64   `json:"completion_percent"`
	OpenFindings      int       `json:"open_findings"`
	TotalFindings     int       `json:"total_findings"`
	RiskLevel         RiskLevel `json:"risk_level"`
}
