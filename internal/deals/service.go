package deals

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"bizmatch/deal-engine-backend/internal/party"
	"bizmatch/deal-engine-backend/pkg/dealerr"
	"bizmatch/deal-engine-backend/pkg/lifecycle"
)

// Actor identifies who performed a mutation, for the audit trail.
// A nil ID means the platform itself (webhook-driven completion).
type Actor struct {
	ID   *uuid.UUID
	Name string
	Role DealRole
}

// SystemActor is used for webhook- and orchestrator-driven mutations.
var SystemActor = Actor{Name: "system", Role: DealRoleSystem}

// ActorFor resolves the caller's side of a deal for audit purposes.
func ActorFor(caller party.Caller, tx *Transaction) Actor {
	id := caller.UserID
	return Actor{ID: &id, Name: caller.Name, Role: tx.RoleOf(caller.UserID)}
}

// Notifier dispatches fire-and-forget notifications about new activity.
// Delivery failures are the notifier's problem, never the deal's.
type Notifier interface {
	Notify(userID uuid.UUID, activity *Activity)
}

// Service is the deal lifecycle orchestrator. It owns the transaction
// aggregate, the milestone plan and the stage state machine, and is the only
// writer of STAGE_CHANGE activity rows.
type Service struct {
	repo     Repository
	sm       *lifecycle.StateMachine
	notifier Notifier
	logger   *zap.Logger
}

// NewService creates a new deals service
func NewService(repo Repository, notifier Notifier, logger *zap.Logger) *Service {
	return &Service{
		repo:     repo,
		sm:       lifecycle.NewStateMachine(),
		notifier: notifier,
		logger:   logger,
	}
}

// CreateTransactionRequest carries the inputs for a new transaction.
type CreateTransactionRequest struct {
	ListingID   uuid.UUID  `json:"listing_id" binding:"required"`
	BuyerID     uuid.UUID  `json:"buyer_id" binding:"required"`
	SellerID    uuid.UUID  `json:"seller_id" binding:"required"`
	AdvisorID   *uuid.UUID `json:"advisor_id,omitempty"`
	AgreedPrice int64      `json:"agreed_price" binding:"required"`
}

// =====================================================
// Transaction Operations
// =====================================================

// CreateTransaction seeds a transaction with its canonical milestone plan,
// its payment legs and the opening activity row, atomically.
func (s *Service) CreateTransaction(ctx context.Context, caller party.Caller, req *CreateTransactionRequest) (*Transaction, *Activity, error) {
	if req.AgreedPrice <= 0 {
		return nil, nil, dealerr.Validation("agreed price must be positive, got %d", req.AgreedPrice)
	}
	if req.BuyerID == req.SellerID {
		return nil, nil, dealerr.Validation("buyer and seller must be distinct parties")
	}

	now := time.Now()
	tx := &Transaction{
		ID:          uuid.New(),
		ListingID:   req.ListingID,
		BuyerID:     req.BuyerID,
		SellerID:    req.SellerID,
		AdvisorID:   req.AdvisorID,
		AgreedPrice: req.AgreedPrice,
		Stage:       lifecycle.StageLOISigned,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	milestones := BuildMilestonePlan(tx.ID, now)
	payments := BuildPaymentPlan(tx.ID, req.AgreedPrice, now)
	actor := ActorFor(caller, tx)
	activity := s.newActivity(tx.ID, ActivityTransactionCreated, "Transaction created",
		fmt.Sprintf("Deal opened at agreed price %d", req.AgreedPrice), actor, now)

	if err := s.repo.CreateTransactionBundle(ctx, tx, milestones, payments, activity); err != nil {
		return nil, nil, dealerr.Internal("failed to create transaction", err)
	}

	s.logger.Info("Transaction created",
		zap.String("transaction_id", tx.ID.String()),
		zap.String("listing_id", tx.ListingID.String()),
		zap.Int64("agreed_price", tx.AgreedPrice))

	s.notifyParties(tx, activity)
	return tx, activity, nil
}

// GetTransaction returns the aggregate, gated on deal membership.
func (s *Service) GetTransaction(ctx context.Context, id uuid.UUID, caller party.Caller) (*Transaction, error) {
	tx, err := s.loadTransaction(ctx, id)
	if err != nil {
		return nil, err
	}
	if !tx.IsParty(caller.UserID) {
		return nil, dealerr.Forbidden("caller is not a party to this deal")
	}
	return tx, nil
}

// GetStage returns the current stage without a party gate; used by sibling
// engines to check preconditions.
func (s *Service) GetStage(ctx context.Context, id uuid.UUID) (lifecycle.Stage, error) {
	tx, err := s.loadTransaction(ctx, id)
	if err != nil {
		return "", err
	}
	return tx.Stage, nil
}

// FindTransaction resolves the transaction linked to a listing/buyer pair.
// Returns nil when no transaction exists (the LOI is not yet accepted).
func (s *Service) FindTransaction(ctx context.Context, listingID, buyerID uuid.UUID) (*Transaction, error) {
	tx, err := s.repo.GetTransactionByListingBuyer(ctx, listingID, buyerID)
	if err != nil {
		return nil, dealerr.Internal("failed to look up transaction", err)
	}
	return tx, nil
}

// =====================================================
// Stage Transitions
// =====================================================

// AdvanceStage moves the deal to the target stage. Re-invoking a transition
// whose target already holds is a no-op and appends nothing.
func (s *Service) AdvanceStage(ctx context.Context, id uuid.UUID, target lifecycle.Stage, actor Actor, reason string) (*Transaction, *Activity, error) {
	tx, err := s.loadTransaction(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if tx.Stage == target {
		return tx, nil, nil
	}
	if !s.sm.CanTransition(tx.Stage, target) {
		return nil, nil, dealerr.InvalidState("cannot move deal from %s to %s", tx.Stage, target)
	}

	now := time.Now()
	old := tx.Stage
	tx.Stage = target
	tx.UpdatedAt = now
	activity := s.newActivity(tx.ID, ActivityStageChange, "Stage changed",
		fmt.Sprintf("%s -> %s: %s", old, target, reason), actor, now)

	if err := s.repo.UpdateTransaction(ctx, tx, activity); err != nil {
		return nil, nil, dealerr.Internal("failed to advance stage", err)
	}

	s.logger.Info("Stage advanced",
		zap.String("transaction_id", tx.ID.String()),
		zap.String("from", string(old)),
		zap.String("to", string(target)))

	s.notifyParties(tx, activity)
	return tx, activity, nil
}

// CloseTransaction completes the deal. Legal only from CLOSING; marks every
// remaining milestone completed and is the precondition for earnout creation.
func (s *Service) CloseTransaction(ctx context.Context, id uuid.UUID, caller party.Caller, closingDate time.Time, summary string) (*Transaction, *Activity, error) {
	tx, err := s.loadTransaction(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if !tx.IsParty(caller.UserID) {
		return nil, nil, dealerr.Forbidden("caller is not a party to this deal")
	}
	if tx.Stage == lifecycle.StageCompleted {
		return tx, nil, nil
	}
	if tx.Stage != lifecycle.StageClosing {
		return nil, nil, dealerr.InvalidState("deal in stage %s cannot be closed", tx.Stage)
	}

	now := time.Now()
	tx.Stage = lifecycle.StageCompleted
	tx.ClosingDate = &closingDate
	tx.Summary = &summary
	tx.UpdatedAt = now
	actor := ActorFor(caller, tx)
	activity := s.newActivity(tx.ID, ActivityStageChange, "Deal closed",
		fmt.Sprintf("%s -> %s: %s", lifecycle.StageClosing, lifecycle.StageCompleted, summary), actor, now)

	if err := s.repo.CloseTransaction(ctx, tx, caller.UserID, now, activity); err != nil {
		return nil, nil, dealerr.Internal("failed to close transaction", err)
	}

	s.logger.Info("Transaction closed", zap.String("transaction_id", tx.ID.String()))
	s.notifyParties(tx, activity)
	return tx, activity, nil
}

// CancelTransaction moves the deal into the terminal CANCELLED state.
// Reachable from any non-terminal stage.
func (s *Service) CancelTransaction(ctx context.Context, id uuid.UUID, caller party.Caller, reason string) (*Transaction, *Activity, error) {
	tx, err := s.loadTransaction(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if !tx.IsParty(caller.UserID) {
		return nil, nil, dealerr.Forbidden("caller is not a party to this deal")
	}
	return s.AdvanceStage(ctx, id, lifecycle.StageCancelled, ActorFor(caller, tx), reason)
}

// =====================================================
// Milestone Operations
// =====================================================

// CompleteMilestone marks a milestone done. Completing an already-completed
// milestone is an idempotent no-op that appends no activity.
func (s *Service) CompleteMilestone(ctx context.Context, milestoneID uuid.UUID, caller party.Caller) (*Milestone, *Activity, error) {
	milestone, err := s.repo.GetMilestone(ctx, milestoneID)
	if err != nil {
		return nil, nil, dealerr.Internal("failed to load milestone", err)
	}
	if milestone == nil {
		return nil, nil, dealerr.NotFound("milestone %s not found", milestoneID)
	}
	tx, err := s.loadTransaction(ctx, milestone.TransactionID)
	if err != nil {
		return nil, nil, err
	}
	if !tx.IsParty(caller.UserID) {
		return nil, nil, dealerr.Forbidden("caller is not a party to this deal")
	}
	if milestone.Completed {
		return milestone, nil, nil
	}
	return s.completeMilestone(ctx, tx, milestone, ActorFor(caller, tx))
}

// CompleteMilestoneByOrder completes a canonical plan step on behalf of the
// platform, e.g. "SPA signed" when the dual-signature gate opens.
func (s *Service) CompleteMilestoneByOrder(ctx context.Context, transactionID uuid.UUID, order int, actor Actor) (*Milestone, *Activity, error) {
	milestone, err := s.repo.GetMilestoneByOrder(ctx, transactionID, order)
	if err != nil {
		return nil, nil, dealerr.Internal("failed to load milestone", err)
	}
	if milestone == nil {
		return nil, nil, dealerr.NotFound("milestone %d not found on transaction %s", order, transactionID)
	}
	if milestone.Completed {
		return milestone, nil, nil
	}
	tx, err := s.loadTransaction(ctx, transactionID)
	if err != nil {
		return nil, nil, err
	}
	return s.completeMilestone(ctx, tx, milestone, actor)
}

func (s *Service) completeMilestone(ctx context.Context, tx *Transaction, milestone *Milestone, actor Actor) (*Milestone, *Activity, error) {
	now := time.Now()
	milestone.Completed = true
	milestone.CompletedAt = &now
	milestone.CompletedBy = actor.ID

	activity := s.newActivity(tx.ID, ActivityMilestoneCompleted, "Milestone completed",
		fmt.Sprintf("%q (step %d) completed", milestone.Title, milestone.Order), actor, now)

	if err := s.repo.CompleteMilestone(ctx, milestone, activity); err != nil {
		return nil, nil, dealerr.Internal("failed to complete milestone", err)
	}

	s.logger.Info("Milestone completed",
		zap.String("transaction_id", tx.ID.String()),
		zap.Int("order", milestone.Order))

	s.notifyParties(tx, activity)
	return milestone, activity, nil
}

// NextMilestones returns the n soonest incomplete milestones, due date
// ascending, ties broken by plan order.
func (s *Service) NextMilestones(ctx context.Context, transactionID uuid.UUID, n int, caller party.Caller) ([]Milestone, error) {
	tx, err := s.GetTransaction(ctx, transactionID, caller)
	if err != nil {
		return nil, err
	}
	milestones, err := s.repo.ListIncompleteMilestones(ctx, tx.ID, n)
	if err != nil {
		return nil, dealerr.Internal("failed to list milestones", err)
	}
	return milestones, nil
}

// ListMilestones returns the full plan for a deal.
func (s *Service) ListMilestones(ctx context.Context, transactionID uuid.UUID, caller party.Caller) ([]Milestone, error) {
	tx, err := s.GetTransaction(ctx, transactionID, caller)
	if err != nil {
		return nil, err
	}
	milestones, err := s.repo.ListMilestones(ctx, tx.ID)
	if err != nil {
		return nil, dealerr.Internal("failed to list milestones", err)
	}
	return milestones, nil
}

// ListPayments returns the payment legs for a deal.
func (s *Service) ListPayments(ctx context.Context, transactionID uuid.UUID, caller party.Caller) ([]Payment, error) {
	tx, err := s.GetTransaction(ctx, transactionID, caller)
	if err != nil {
		return nil, err
	}
	payments, err := s.repo.ListPayments(ctx, tx.ID)
	if err != nil {
		return nil, dealerr.Internal("failed to list payments", err)
	}
	return payments, nil
}

// =====================================================
// Activity Log
// =====================================================

// ListActivities returns the audit trail, newest first.
func (s *Service) ListActivities(ctx context.Context, transactionID uuid.UUID, caller party.Caller) ([]Activity, error) {
	tx, err := s.GetTransaction(ctx, transactionID, caller)
	if err != nil {
		return nil, err
	}
	activities, err := s.repo.ListActivities(ctx, tx.ID)
	if err != nil {
		return nil, dealerr.Internal("failed to list activities", err)
	}
	return activities, nil
}

// AppendActivity records an audit entry on behalf of a sibling engine
// (negotiation, earnout, diligence) and fans out notifications.
func (s *Service) AppendActivity(ctx context.Context, transactionID uuid.UUID, activityType ActivityType, title, description string, actor Actor) (*Activity, error) {
	tx, err := s.loadTransaction(ctx, transactionID)
	if err != nil {
		return nil, err
	}
	activity := s.newActivity(tx.ID, activityType, title, description, actor, time.Now())
	if err := s.repo.InsertActivity(ctx, activity); err != nil {
		return nil, dealerr.Internal("failed to append activity", err)
	}
	s.notifyParties(tx, activity)
	return activity, nil
}

// =====================================================
// Helpers
// =====================================================

func (s *Service) loadTransaction(ctx context.Context, id uuid.UUID) (*Transaction, error) {
	tx, err := s.repo.GetTransaction(ctx, id)
	if err != nil {
		return nil, dealerr.Internal("failed to load transaction", err)
	}
	if tx == nil {
		return nil, dealerr.NotFound("transaction %s not found", id)
	}
	return tx, nil
}

func (s *Service) newActivity(transactionID uuid.UUID, activityType ActivityType, title, description string, actor Actor, at time.Time) *Activity {
	return &Activity{
		ID:            uuid.New(),
		TransactionID: transactionID,
		Type:          activityType,
		Title:         title,
		Description:   description,
		ActorID:       actor.ID,
		ActorName:     actor.Name,
		ActorRole:     actor.Role,
		CreatedAt:     at,
	}
}

// notifyParties fans an activity out to every deal party except the actor.
// Best effort: the notifier owns delivery, the deal state is already durable.
func (s *Service) notifyParties(tx *Transaction, activity *Activity) {
	if s.notifier == nil || activity == nil {
		return
	}
	recipients := []uuid.UUID{tx.BuyerID, tx.SellerID}
	if tx.AdvisorID != nil {
		recipients = append(recipients, *tx.AdvisorID)
	}
	for _, userID := range recipients {
		if activity.ActorID != nil && *activity.ActorID == userID {
			continue
		}
		s.notifier.Notify(userID, activity)
	}
}
