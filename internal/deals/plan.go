package deals

import (
	"time"

	"github.com/google/uuid"
)

// planStep is one entry of the canonical milestone plan.
type planStep struct {
	Order       int
	Title       string
	Description string
	DueDays     int
	AssignedTo  DealRole
}

// The canonical 9-step plan every transaction is seeded with. Due dates are
// offsets in days from transaction creation.
var canonicalPlan = []planStep{
	{1, "LOI signed", "Letter of intent accepted by both parties", 0, DealRoleBoth},
	{2, "NDA in force", "Non-disclosure agreement countersigned", 3, DealRoleBoth},
	{3, "Due diligence started", "Buyer opens the due diligence review", 7, DealRoleBuyer},
	{4, "Due diligence report", "Buyer delivers the due diligence report", 30, DealRoleBuyer},
	{5, "SPA negotiation started", "First SPA draft circulated", 35, DealRoleBoth},
	{6, "SPA signed", "Share purchase agreement signed by both parties", 60, DealRoleBoth},
	{7, "Payment received", "Closing payment received in escrow", 75, DealRoleBuyer},
	{8, "Transfer registered", "Share transfer registered with the authorities", 85, DealRoleSeller},
	{9, "Deal closed", "Transaction completed and handover done", 90, DealRoleBoth},
}

// BuildMilestonePlan materializes the canonical plan for a transaction.
// Pure function of the offset table and the creation time. The first step is
// completed immediately: creating a transaction presupposes LOI acceptance.
func BuildMilestonePlan(transactionID uuid.UUID, createdAt time.Time) []Milestone {
	milestones := make([]Milestone, 0, len(canonicalPlan))
	for _, step := range canonicalPlan {
		m := Milestone{
			ID:            uuid.New(),
			TransactionID: transactionID,
			Title:         step.Title,
			Description:   step.Description,
			DueDate:       createdAt.AddDate(0, 0, step.DueDays),
			Order:         step.Order,
			AssignedTo:    step.AssignedTo,
		}
		if step.Order == 1 {
			completedAt := createdAt
			m.Completed = true
			m.CompletedAt = &completedAt
		}
		milestones = append(milestones, m)
	}
	return milestones
}

// BuildPaymentPlan splits the agreed price into the deposit and main payment
// legs. The main payment absorbs the division remainder.
func BuildPaymentPlan(transactionID uuid.UUID, agreedPrice int64, createdAt time.Time) []Payment {
	deposit := agreedPrice * depositPercent / 100
	return []Payment{
		{
			ID:            uuid.New(),
			TransactionID: transactionID,
			Kind:          PaymentDeposit,
			Amount:        deposit,
			Status:        PaymentStatusPending,
			DueDate:       createdAt.AddDate(0, 0, 7),
		},
		{
			ID:            uuid.New(),
			TransactionID: transactionID,
			Kind:          PaymentMain,
			Amount:        agreedPrice - deposit,
			Status:        PaymentStatusPending,
			DueDate:       createdAt.AddDate(0, 0, 75),
		},
	}
}
