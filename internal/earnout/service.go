package earnout

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"bizmatch/deal-engine-backend/internal/deals"
	"bizmatch/deal-engine-backend/internal/party"
	"bizmatch/deal-engine-backend/pkg/dealerr"
	"bizmatch/deal-engine-backend/pkg/lifecycle"
)

// Lifecycle is the slice of the deal orchestrator the earnout engine needs:
// party-gated deal lookups and the audit trail.
type Lifecycle interface {
	GetTransaction(ctx context.Context, id uuid.UUID, caller party.Caller) (*deals.Transaction, error)
	AppendActivity(ctx context.Context, transactionID uuid.UUID, activityType deals.ActivityType, title, description string, actor deals.Actor) (*deals.Activity, error)
}

const maxPeriods = 10

// Service manages post-closing earnout accrual.
type Service struct {
	repo      Repository
	lifecycle Lifecycle
	logger    *zap.Logger
}

// NewService creates a new earnout service
func NewService(repo Repository, lc Lifecycle, logger *zap.Logger) *Service {
	return &Service{
		repo:      repo,
		lifecycle: lc,
		logger:    logger,
	}
}

// CreateEarnOutRequest defines an earnout pool over a completed deal.
// TargetsByPeriod carries one KPI target per measurement period, in
// period order.
type CreateEarnOutRequest struct {
	TransactionID   uuid.UUID `json:"transaction_id" binding:"required"`
	TotalAmount     int64     `json:"total_amount" binding:"required"`
	Metric          Metric    `json:"metric" binding:"required"`
	TargetsByPeriod []int64   `json:"targets_by_period" binding:"required"`
	Periods         int       `json:"periods" binding:"required"`
	StartDate       time.Time `json:"start_date"`
}

// CreateEarnOut seeds an earnout pool with one pending payment row per
// measurement period, each carrying that period's own target. Earnouts
// only attach to completed deals.
func (s *Service) CreateEarnOut(ctx context.Context, caller party.Caller, req *CreateEarnOutRequest) (*EarnOut, error) {
	if req.TotalAmount <= 0 {
		return nil, dealerr.Validation("total amount must be positive, got %d", req.TotalAmount)
	}
	if !req.Metric.IsValid() {
		return nil, dealerr.Validation("unknown metric %q", req.Metric)
	}
	if req.Periods < 1 || req.Periods > maxPeriods {
		return nil, dealerr.Validation("periods must be between 1 and %d, got %d", maxPeriods, req.Periods)
	}
	if len(req.TargetsByPeriod) != req.Periods {
		return nil, dealerr.Validation("expected %d period targets, got %d", req.Periods, len(req.TargetsByPeriod))
	}
	for i, target := range req.TargetsByPeriod {
		if target <= 0 {
			return nil, dealerr.Validation("target for period %d must be positive, got %d", i+1, target)
		}
	}

	tx, err := s.lifecycle.GetTransaction(ctx, req.TransactionID, caller)
	if err != nil {
		return nil, err
	}
	if tx.Stage != lifecycle.StageCompleted {
		return nil, dealerr.InvalidState("earnouts attach to completed deals, transaction is in stage %s", tx.Stage)
	}

	existing, err := s.repo.GetEarnOutByTransaction(ctx, req.TransactionID)
	if err != nil {
		return nil, dealerr.Internal("failed to check for existing earnout", err)
	}
	if existing != nil {
		return nil, dealerr.InvalidState("transaction already has an earnout")
	}

	now := time.Now()
	start := req.StartDate
	if start.IsZero() {
		start = now
	}

	earnOut := &EarnOut{
		ID:            uuid.New(),
		TransactionID: req.TransactionID,
		TotalAmount:   req.TotalAmount,
		Metric:        req.Metric,
		Periods:       req.Periods,
		StartDate:     start,
		CreatedBy:     caller.UserID,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	payments := make([]Payment, req.Periods)
	for i := range payments {
		payments[i] = Payment{
			ID:           uuid.New(),
			EarnOutID:    earnOut.ID,
			PeriodNumber: i + 1,
			PeriodEnd:    start.AddDate(1+i, 0, 0),
			TargetValue:  req.TargetsByPeriod[i],
			Status:       PaymentStatusPending,
			CreatedAt:    now,
			UpdatedAt:    now,
		}
	}

	if err := s.repo.CreateEarnOut(ctx, earnOut, payments); err != nil {
		return nil, dealerr.Internal("failed to create earnout", err)
	}

	actor := deals.ActorFor(caller, tx)
	if _, err := s.lifecycle.AppendActivity(ctx, tx.ID, deals.ActivityEarnoutCreated,
		"Earnout created",
		fmt.Sprintf("Earnout of %d over %d periods on %s", earnOut.TotalAmount, earnOut.Periods, earnOut.Metric),
		actor); err != nil {
		s.logger.Warn("Failed to log earnout creation activity", zap.Error(err))
	}

	s.logger.Info("Earnout created",
		zap.String("earnout_id", earnOut.ID.String()),
		zap.String("transaction_id", tx.ID.String()),
		zap.Int64("total_amount", earnOut.TotalAmount))

	return earnOut, nil
}

// GetEarnOut returns the pool, gated on deal membership.
func (s *Service) GetEarnOut(ctx context.Context, id uuid.UUID, caller party.Caller) (*EarnOut, error) {
	earnOut, _, err := s.loadEarnOut(ctx, id, caller)
	return earnOut, err
}

// ListPayments returns the pool's periods in order.
func (s *Service) ListPayments(ctx context.Context, earnOutID uuid.UUID, caller party.Caller) ([]Payment, error) {
	if _, _, err := s.loadEarnOut(ctx, earnOutID, caller); err != nil {
		return nil, err
	}
	payments, err := s.repo.ListPayments(ctx, earnOutID)
	if err != nil {
		return nil, dealerr.Internal("failed to list earnout payments", err)
	}
	return payments, nil
}

// RecordActual books a period's actual metric value and accrues the earned
// amount. Only the seller or the deal's own advisor reports actuals; a
// platform-level advisor role on some other user grants nothing here. The
// accrual never pushes the pool total past the agreed cap.
func (s *Service) RecordActual(ctx context.Context, paymentID uuid.UUID, caller party.Caller, actual int64) (*Payment, error) {
	if actual < 0 {
		return nil, dealerr.Validation("actual value cannot be negative, got %d", actual)
	}

	payment, earnOut, tx, err := s.loadPayment(ctx, paymentID, caller)
	if err != nil {
		return nil, err
	}

	role := tx.RoleOf(caller.UserID)
	if role != deals.DealRoleSeller && role != deals.DealRoleAdvisor {
		return nil, dealerr.Forbidden("only the seller or the deal's advisor records earnout actuals")
	}
	if payment.Status == PaymentStatusPaid {
		return nil, dealerr.ImmutableRecord("period %d has been paid out and cannot be restated", payment.PeriodNumber)
	}

	pct := AchievementPercent(actual, payment.TargetValue)
	earned := EarnedAmount(earnOut.TotalAmount, pct, earnOut.Periods)

	// The pool is a hard cap across all periods.
	accrued, err := s.repo.SumEarned(ctx, earnOut.ID)
	if err != nil {
		return nil, dealerr.Internal("failed to total accrued earnout", err)
	}
	if payment.ActualValue != nil && payment.Status != PaymentStatusDisputed {
		accrued -= payment.EarnedAmount
	}
	if remaining := earnOut.TotalAmount - accrued; earned > remaining {
		earned = remaining
	}

	now := time.Now()
	payment.ActualValue = &actual
	payment.AchievementPercent = pct
	payment.EarnedAmount = earned
	payment.Status = PaymentStatusPendingApproval
	payment.RecordedBy = &caller.UserID
	payment.RecordedAt = &now
	payment.DisputeReason = nil
	payment.UpdatedAt = now

	if err := s.repo.UpdatePayment(ctx, payment); err != nil {
		return nil, dealerr.Internal("failed to record earnout actual", err)
	}

	actor := deals.ActorFor(caller, tx)
	if _, err := s.lifecycle.AppendActivity(ctx, tx.ID, deals.ActivityEarnoutRecorded,
		"Earnout actual recorded",
		fmt.Sprintf("Period %d: actual %d against target %d, earned %d", payment.PeriodNumber, actual, payment.TargetValue, earned),
		actor); err != nil {
		s.logger.Warn("Failed to log earnout record activity", zap.Error(err))
	}

	return payment, nil
}

// ApprovePayment releases a recorded period for payout. Only the deal's
// assigned advisor approves; buyer and seller never sign off their own
// numbers, whatever platform roles they happen to hold.
func (s *Service) ApprovePayment(ctx context.Context, paymentID uuid.UUID, caller party.Caller) (*Payment, *Summary, error) {
	payment, earnOut, tx, err := s.loadPayment(ctx, paymentID, caller)
	if err != nil {
		return nil, nil, err
	}
	if tx.RoleOf(caller.UserID) != deals.DealRoleAdvisor {
		return nil, nil, dealerr.Forbidden("only the deal's advisor approves earnout payouts")
	}
	if payment.Status == PaymentStatusPaid {
		return nil, nil, dealerr.ImmutableRecord("period %d has already been paid out", payment.PeriodNumber)
	}
	if payment.Status != PaymentStatusPendingApproval {
		return nil, nil, dealerr.InvalidState("period %d is %s, only recorded periods can be approved", payment.PeriodNumber, payment.Status)
	}

	now := time.Now()
	payment.Status = PaymentStatusPaid
	payment.ApprovedBy = &caller.UserID
	payment.ApprovedAt = &now
	payment.UpdatedAt = now

	if err := s.repo.UpdatePayment(ctx, payment); err != nil {
		return nil, nil, dealerr.Internal("failed to approve earnout payment", err)
	}

	summary, err := s.buildSummary(ctx, earnOut)
	if err != nil {
		return nil, nil, err
	}

	actor := deals.ActorFor(caller, tx)
	if _, err := s.lifecycle.AppendActivity(ctx, tx.ID, deals.ActivityEarnoutApproved,
		"Earnout payout approved",
		fmt.Sprintf("Period %d payout of %d approved", payment.PeriodNumber, payment.EarnedAmount),
		actor); err != nil {
		s.logger.Warn("Failed to log earnout approval activity", zap.Error(err))
	}

	return payment, summary, nil
}

// DisputePayment flags a recorded period. The accrued amount keeps its
// value for the record, but disputed periods count for nothing until the
// actual is re-recorded.
func (s *Service) DisputePayment(ctx context.Context, paymentID uuid.UUID, caller party.Caller, reason string) (*Payment, error) {
	if reason == "" {
		return nil, dealerr.Validation("a dispute needs a reason")
	}

	payment, _, tx, err := s.loadPayment(ctx, paymentID, caller)
	if err != nil {
		return nil, err
	}
	if !tx.IsParty(caller.UserID) {
		return nil, dealerr.Forbidden("only a deal party can dispute an earnout period")
	}
	if payment.Status == PaymentStatusPaid {
		return nil, dealerr.ImmutableRecord("period %d has been paid out and cannot be disputed", payment.PeriodNumber)
	}
	if payment.ActualValue == nil {
		return nil, dealerr.InvalidState("period %d has no recorded actual to dispute", payment.PeriodNumber)
	}

	now := time.Now()
	payment.Status = PaymentStatusDisputed
	payment.DisputeReason = &reason
	payment.UpdatedAt = now

	if err := s.repo.UpdatePayment(ctx, payment); err != nil {
		return nil, dealerr.Internal("failed to dispute earnout payment", err)
	}

	return payment, nil
}

// GetSummary aggregates the pool's accrual state.
func (s *Service) GetSummary(ctx context.Context, earnOutID uuid.UUID, caller party.Caller) (*Summary, error) {
	earnOut, _, err := s.loadEarnOut(ctx, earnOutID, caller)
	if err != nil {
		return nil, err
	}
	return s.buildSummary(ctx, earnOut)
}

func (s *Service) buildSummary(ctx context.Context, earnOut *EarnOut) (*Summary, error) {
	payments, err := s.repo.ListPayments(ctx, earnOut.ID)
	if err != nil {
		return nil, dealerr.Internal("failed to list earnout payments", err)
	}

	summary := &Summary{
		EarnOutID:   earnOut.ID,
		TotalAmount: earnOut.TotalAmount,
		Periods:     earnOut.Periods,
	}
	for _, p := range payments {
		if p.ActualValue == nil {
			continue
		}
		summary.PeriodsRecorded++
		if p.Status == PaymentStatusDisputed {
			continue
		}
		summary.TotalEarned += p.EarnedAmount
		if p.Status == PaymentStatusPaid {
			summary.TotalPaid += p.EarnedAmount
		}
	}
	summary.RemainingAtRisk = earnOut.TotalAmount - summary.TotalEarned

	return summary, nil
}

func (s *Service) loadEarnOut(ctx context.Context, id uuid.UUID, caller party.Caller) (*EarnOut, *deals.Transaction, error) {
	earnOut, err := s.repo.GetEarnOut(ctx, id)
	if err != nil {
		return nil, nil, dealerr.Internal("failed to load earnout", err)
	}
	if earnOut == nil {
		return nil, nil, dealerr.NotFound("earnout %s not found", id)
	}
	tx, err := s.lifecycle.GetTransaction(ctx, earnOut.TransactionID, caller)
	if err != nil {
		return nil, nil, err
	}
	return earnOut, tx, nil
}

func (s *Service) loadPayment(ctx context.Context, paymentID uuid.UUID, caller party.Caller) (*Payment, *EarnOut, *deals.Transaction, error) {
	payment, err := s.repo.GetPayment(ctx, paymentID)
	if err != nil {
		return nil, nil, nil, dealerr.Internal("failed to load earnout payment", err)
	}
	if payment == nil {
		return nil, nil, nil, dealerr.NotFound("earnout payment %s not found", paymentID)
	}
	earnOut, tx, err := s.loadEarnOut(ctx, payment.EarnOutID, caller)
	if err != nil {
		return nil, nil, nil, err
	}
	return payment, earnOut, tx, nil
}
