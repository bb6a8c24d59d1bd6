package diligence

import (
	"time"

	"github.com/google/uuid"
)

type checklistItem struct {
	Category    TaskCategory
	Priority    TaskPriority
	DueDays     int
	Title       string
	Description string
}

// Every review starts from the same checklist; buyers waive what does not
// apply to the target instead of starting from a blank sheet. DueDays is
// the offset from review opening to each item's due date.
var standardChecklist = []checklistItem{
	{CategoryFinancial, PriorityHigh, 7, "Review annual financial statements", "Audited or compiled statements for the last three fiscal years."},
	{CategoryFinancial, PriorityHigh, 14, "Verify revenue recognition", "Sample invoices against bank deposits and the ledger."},
	{CategoryFinancial, PriorityMedium, 21, "Analyze working capital", "Normalize working capital and agree a peg for closing."},
	{CategoryTax, PriorityHigh, 14, "Confirm tax filings and payments", "Corporate, payroll and sales tax returns with proof of payment."},
	{CategoryLegal, PriorityHigh, 7, "Review corporate records", "Formation documents, ownership register, board minutes."},
	{CategoryLegal, PriorityHigh, 14, "Review material contracts", "Customer, supplier and lease agreements; flag change-of-control clauses."},
	{CategoryLegal, PriorityMedium, 21, "Check litigation and claims", "Pending or threatened litigation, regulatory actions, insurance claims."},
	{CategoryOperational, PriorityLow, 28, "Assess key systems and processes", "Core tooling, documented procedures, disaster recovery."},
	{CategoryOperational, PriorityMedium, 21, "Review supplier dependencies", "Concentration risk and terms of the top suppliers."},
	{CategoryCommercial, PriorityHigh, 14, "Analyze customer concentration", "Revenue share of the top ten customers and churn history."},
	{CategoryHR, PriorityMedium, 21, "Review employment agreements", "Key-person contracts, non-competes, accrued benefits."},
	{CategoryHR, PriorityMedium, 28, "Confirm payroll compliance", "Classification of contractors and payroll tax remittance."},
}

// BuildChecklist seeds the standard task list for a new review, with each
// item's due date computed from its day offset.
func BuildChecklist(projectID uuid.UUID, createdAt time.Time) []Task {
	tasks := make([]Task, len(standardChecklist))
	for i, item := range standardChecklist {
		tasks[i] = Task{
			ID:          uuid.New(),
			ProjectID:   projectID,
			Category:    item.Category,
			Priority:    item.Priority,
			Title:       item.Title,
			Description: item.Description,
			Status:      TaskStatusPending,
			DueDate:     createdAt.AddDate(0, 0, item.DueDays),
			CreatedAt:   createdAt,
			UpdatedAt:   createdAt,
		}
	}
	return tasks
}

// ComputeRiskLevel grades the review from its unresolved findings. Any
// critical finding dominates; three or more highs grade as high; a single
// high grades as medium.
func ComputeRiskLevel(findings []Finding) RiskLevel {
	var highs int
	for _, f := range findings {
		if f.Status != FindingStatusOpen {
			continue
		}
		switch f.Severity {
		case SeverityCritical:
			return RiskCritical
		case SeverityHigh:
			highs++
		}
	}
	switch {
	case highs >= 3:
		return RiskHigh
	case highs >= 1:
		return RiskMedium
	default:
		return RiskLow
	}
}
