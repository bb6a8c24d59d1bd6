package deals

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildMilestonePlan(t *testing.T) {
	txID := uuid.New()
	createdAt := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	milestones := BuildMilestonePlan(txID, createdAt)
	require.Len(t, milestones, 9)

	first := milestones[0]
	assert.Equal(t, 1, first.Order)
	assert.Equal(t, "LOI signed", first.Title)
	assert.True(t, first.Completed)
	require.NotNil(t, first.CompletedAt)
	assert.Equal(t, createdAt, *first.CompletedAt)

	for i, m := range milestones {
		assert.Equal(t, i+1, m.Order)
		assert.Equal(t, txID, m.TransactionID)
		if i > 0 {
			assert.False(t, m.Completed)
			assert.True(t, m.DueDate.After(milestones[i-1].DueDate) || m.DueDate.Equal(milestones[i-1].DueDate))
		}
	}

	// Spot-check offsets against the canonical table.
	assert.Equal(t, createdAt.AddDate(0, 0, 30), milestones[3].DueDate)
	assert.Equal(t, createdAt.AddDate(0, 0, 60), milestones[5].DueDate)
	assert.Equal(t, createdAt.AddDate(0, 0, 90), milestones[8].DueDate)

	assert.Equal(t, DealRoleBuyer, milestones[2].AssignedTo)
	assert.Equal(t, DealRoleSeller, milestones[7].AssignedTo)
	assert.Equal(t, DealRoleBoth, milestones[8].AssignedTo)
}

func TestBuildMilestonePlanIsDeterministic(t *testing.T) {
	createdAt := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	a := BuildMilestonePlan(uuid.New(), createdAt)
	b := BuildMilestonePlan(uuid.New(), createdAt)

	require.Equal(t, len(a), len(b))
	for i := range a {
		assert.Equal(t, a[i].Title, b[i].Title)
		assert.Equal(t, a[i].DueDate, b[i].DueDate)
		assert.Equal(t, a[i].AssignedTo, b[i].AssignedTo)
	}
}

func TestBuildPaymentPlan(t *testing.T) {
	txID := uuid.New()
	createdAt := time.Now()

	payments := BuildPaymentPlan(txID, 10_000_000, createdAt)
	require.Len(t, payments, 2)

	assert.Equal(t, PaymentDeposit, payments[0].Kind)
	assert.Equal(t, int64(1_000_000), payments[0].Amount)
	assert.Equal(t, PaymentMain, payments[1].Kind)
	assert.Equal(t, int64(9_000_000), payments[1].Amount)
	assert.Equal(t, PaymentStatusPending, payments[0].Status)
	assert.Equal(t, PaymentStatusPending, payments[1].Status)
}

func TestBuildPaymentPlanRemainderGoesToMainPayment(t *testing.T) {
	payments := BuildPaymentPlan(uuid.New(), 999_999, time.Now())

	require.Len(t, payments, 2)
	assert.Equal(t, int64(99_999), payments[0].Amount)
	assert.Equal(t, int64(900_000), payments[1].Amount)
	assert.Equal(t, int64(999_999), payments[0].Amount+payments[1].Amount)
}

func TestMilestoneIsOverdue(t *testing.T) {
	now := time.Now()
	m := Milestone{DueDate: now.Add(-time.Hour)}

	assert.True(t, m.IsOverdue(now))

	m.Completed = true
	assert.False(t, m.IsOverdue(now))

	future := Milestone{DueDate: now.Add(time.Hour)}
	assert.False(t, future.IsOverdue(now))
}
