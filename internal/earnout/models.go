package earnout

import (
	"time"

	"github.com/google/uuid"
)

// PaymentStatus tracks a single earnout period from target to payout.
type PaymentStatus string

const (
	PaymentStatusPending         PaymentStatus = "pending"
	PaymentStatusPendingApproval PaymentStatus = "pending_approval"
	PaymentStatusPaid            PaymentStatus = "paid"
	PaymentStatusDisputed        PaymentStatus = "disputed"
)

// Metric is the KPI an earnout is measured against.
type Metric string

const (
	MetricRevenue     Metric = "revenue"
	MetricEBITDA      Metric = "ebitda"
	MetricGrossProfit Metric = "gross_profit"
)

// IsValid reports whether the metric is one of the supported KPIs.
func (m Metric) IsValid() bool {
	switch m {
	case MetricRevenue, MetricEBITDA, MetricGrossProfit:
		return true
	}
	return false
}

// EarnOut is a post-closing contingent payment pool tied to a completed
// transaction. The pool is split over a fixed number of measurement
// periods against a single performance metric; each period carries its
// own target on its Payment row.
type EarnOut struct {
	ID            uuid.UUID `json:"id" db:"id"`
	TransactionID uuid.UUID `json:"transaction_id" db:"transaction_id"`
	TotalAmount   int64     `json:"total_amount" db:"total_amount"`
	Metric        Metric    `json:"metric" db:"metric"`
	Periods       int       `json:"periods" db:"periods"`
	StartDate     time.Time `json:"start_date" db:"start_date"`
	CreatedBy     uuid.UUID `json:"created_by" db:"created_by"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" db:"updated_at"`
}

// Payment is one measurement period of an earnout. Once a period is paid
// its accrual figures never change again.
type Payment struct {
	ID                 uuid.UUID     `json:"id" db:"id"`
	EarnOutID          uuid.UUID     `json:"earnout_id" db:"earnout_id"`
	PeriodNumber       int           `json:"period_number" db:"period_number"`
	PeriodEnd          time.Time     `json:"period_end" db:"period_end"`
	TargetValue        int64         `json:"target_value" db:"target_value"`
	ActualValue        *int64        `json:"actual_value,omitempty" db:"actual_value"`
	AchievementPercent float64       `json:"achievement_percent" db:"achievement_percent"`
	EarnedAmount       int64         `json:"earned_amount" db:"earned_amount"`
	Status             PaymentStatus `json:"status" db:"status"`
	RecordedBy         *uuid.UUID    `json:"recorded_by,omitempty" db:"recorded_by"`
	RecordedAt         *time.Time    `json:"recorded_at,omitempty" db:"recorded_at"`
	ApprovedBy         *uuid.UUID    `json:"approved_by,omitempty" db:"approved_by"`
	ApprovedAt         *time.Time    `json:"approved_at,omitempty" db:"approved_at"`
	DisputeReason      *string       `json:"dispute_reason,omitempty" db:"dispute_reason"`
	CreatedAt          time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt          time.Time     `json:"updated_at" db:"updated_at"`
}

// Summary aggregates the accrual state of an earnout pool.
type Summary struct {
	EarnOutID       uuid.UUID `json:"earnout_id"`
	TotalAmount     int64     `json:"total_amount"`
	TotalEarned     int64     `json:"total_earned"`
	TotalPaid       int64     `json:"total_paid"`
	RemainingAtRisk int64     `json:"remaining_at_risk"`
	PeriodsRecorded int       `json:"periods_recorded"`
	Periods         int       `json:"periods"`
}
