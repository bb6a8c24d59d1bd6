package deals

import (
	"time"

	"github.com/google/uuid"

	"bizmatch/deal-engine-backend/pkg/lifecycle"
)

// =====================================================
// Enums and Constants
// =====================================================

// DealRole is the side of a specific deal a user sits on.
type DealRole string

const (
	DealRoleBuyer   DealRole = "buyer"
	DealRoleSeller  DealRole = "seller"
	DealRoleAdvisor DealRole = "advisor"
	DealRoleBoth    DealRole = "both"
	DealRoleSystem  DealRole = "system"
	DealRoleNone    DealRole = "none"
)

// PaymentKind identifies a scheduled payment within a transaction.
type PaymentKind string

const (
	PaymentDeposit PaymentKind = "DEPOSIT"
	PaymentMain    PaymentKind = "MAIN_PAYMENT"
)

// PaymentStatus represents the state of a scheduled payment.
type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusReceived PaymentStatus = "received"
)

// ActivityType classifies an audit-log entry.
type ActivityType string

const (
	ActivityTransactionCreated ActivityType = "TRANSACTION_CREATED"
	ActivityStageChange        ActivityType = "STAGE_CHANGE"
	ActivityMilestoneCompleted ActivityType = "MILESTONE_COMPLETED"
	ActivityMilestoneReminder  ActivityType = "MILESTONE_REMINDER"
	ActivityDocumentRevised    ActivityType = "DOCUMENT_REVISED"
	ActivitySPASent            ActivityType = "SPA_SENT"
	ActivitySPASigned          ActivityType = "SPA_SIGNED"
	ActivitySPADeclined        ActivityType = "SPA_DECLINED"
	ActivityEarnoutCreated     ActivityType = "EARNOUT_CREATED"
	ActivityEarnoutRecorded    ActivityType = "EARNOUT_RECORDED"
	ActivityEarnoutApproved    ActivityType = "EARNOUT_APPROVED"
	ActivityDDProjectCreated   ActivityType = "DD_PROJECT_CREATED"
	ActivityDDFindingRecorded  ActivityType = "DD_FINDING_RECORDED"
)

// Deposit share of the agreed price, in percent. The main payment takes the
// rest, including any division remainder, so the two legs always sum to the
// agreed price.
const depositPercent = 10

// =====================================================
// Entities
// =====================================================

// Transaction is the root aggregate for one deal. It is never physically
// deleted; terminal business states are COMPLETED and CANCELLED.
type Transaction struct {
	ID          uuid.UUID       `json:"id" db:"id"`
	ListingID   uuid.UUID       `json:"listing_id" db:"listing_id"`
	BuyerID     uuid.UUID       `json:"buyer_id" db:"buyer_id"`
	SellerID    uuid.UUID       `json:"seller_id" db:"seller_id"`
	AdvisorID   *uuid.UUID      `json:"advisor_id,omitempty" db:"advisor_id"`
	AgreedPrice int64           `json:"agreed_price" db:"agreed_price"`
	Stage       lifecycle.Stage `json:"stage" db:"stage"`
	ClosingDate *time.Time      `json:"closing_date,omitempty" db:"closing_date"`
	Summary     *string         `json:"summary,omitempty" db:"summary"`
	CreatedAt   time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at" db:"updated_at"`
}

// RoleOf resolves which side of this deal a user is on.
func (t *Transaction) RoleOf(userID uuid.UUID) DealRole {
	switch {
	case userID == t.BuyerID:
		return DealRoleBuyer
	case userID == t.SellerID:
		return DealRoleSeller
	case t.AdvisorID != nil && userID == *t.AdvisorID:
		return DealRoleAdvisor
	default:
		return DealRoleNone
	}
}

// IsParty reports whether a user is buyer, seller or advisor on this deal.
func (t *Transaction) IsParty(userID uuid.UUID) bool {
	return t.RoleOf(userID) != DealRoleNone
}

// Milestone is a scheduled step within a transaction. Order values are
// unique per transaction and follow the canonical plan.
type Milestone struct {
	ID            uuid.UUID  `json:"id" db:"id"`
	TransactionID uuid.UUID  `json:"transaction_id" db:"transaction_id"`
	Title         string     `json:"title" db:"title"`
	Description   string     `json:"description" db:"description"`
	DueDate       time.Time  `json:"due_date" db:"due_date"`
	Order         int        `json:"order" db:"step_order"`
	AssignedTo    DealRole   `json:"assigned_to" db:"assigned_to"`
	Completed     bool       `json:"completed" db:"completed"`
	CompletedAt   *time.Time `json:"completed_at,omitempty" db:"completed_at"`
	CompletedBy   *uuid.UUID `json:"completed_by,omitempty" db:"completed_by"`
}

// IsOverdue is derived, never stored.
func (m *Milestone) IsOverdue(now time.Time) bool {
	return !m.Completed && m.DueDate.Before(now)
}

// Payment is a scheduled payment leg of a transaction.
type Payment struct {
	ID            uuid.UUID     `json:"id" db:"id"`
	TransactionID uuid.UUID     `json:"transaction_id" db:"transaction_id"`
	Kind          PaymentKind   `json:"kind" db:"kind"`
	Amount        int64         `json:"amount" db:"amount"`
	Status        PaymentStatus `json:"status" db:"status"`
	DueDate       time.Time     `json:"due_date" db:"due_date"`
	ReceivedAt    *time.Time    `json:"received_at,omitempty" db:"received_at"`
}

// Activity is one append-only audit-log entry. Rows are never mutated or
// deleted; they are the authoritative history of the deal.
type Activity struct {
	ID            uuid.UUID    `json:"id" db:"id"`
	TransactionID uuid.UUID    `json:"transaction_id" db:"transaction_id"`
	Type          ActivityType `json:"type" db:"type"`
	Title         string       `json:"title" db:"title"`
	Description   string       `json:"description" db:"description"`
	ActorID       *uuid.UUID   `json:"actor_id,omitempty" db:"actor_id"`
	ActorName     string       `json:"actor_name" db:"actor_name"`
	ActorRole     DealRole     `json:"actor_role" db:"actor_role"`
	CreatedAt     time.Time    `json:"created_at" db:"created_at"`
}
