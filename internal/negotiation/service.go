package negotiation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"bizmatch/deal-engine-backend/internal/deals"
	"bizmatch/deal-engine-backend/internal/party"
	"bizmatch/deal-engine-backend/pkg/dealerr"
	"bizmatch/deal-engine-backend/pkg/lifecycle"
)

// Lifecycle is the slice of the deal orchestrator the negotiation engine
// drives: stage advancement, milestone completion and the audit trail.
type Lifecycle interface {
	FindTransaction(ctx context.Context, listingID, buyerID uuid.UUID) (*deals.Transaction, error)
	AdvanceStage(ctx context.Context, id uuid.UUID, target lifecycle.Stage, actor deals.Actor, reason string) (*deals.Transaction, *deals.Activity, error)
	CompleteMilestoneByOrder(ctx context.Context, transactionID uuid.UUID, order int, actor deals.Actor) (*deals.Milestone, *deals.Activity, error)
	AppendActivity(ctx context.Context, transactionID uuid.UUID, activityType deals.ActivityType, title, description string, actor deals.Actor) (*deals.Activity, error)
}

// Plan order of the "SPA signed" milestone in the canonical plan.
const spaSignedMilestoneOrder = 6

// Service is the negotiation document engine for LOIs and SPAs.
type Service struct {
	repo      Repository
	lifecycle Lifecycle
	logger    *zap.Logger
}

// NewService creates a new negotiation service
func NewService(repo Repository, lc Lifecycle, logger *zap.Logger) *Service {
	return &Service{
		repo:      repo,
		lifecycle: lc,
		logger:    logger,
	}
}

// =====================================================
// Requests
// =====================================================

// CreateLOIRequest carries the terms of a fresh letter of intent.
type CreateLOIRequest struct {
	ListingID           uuid.UUID        `json:"listing_id" binding:"required"`
	SellerID            uuid.UUID        `json:"seller_id" binding:"required"`
	ProposedPrice       int64            `json:"proposed_price" binding:"required"`
	PriceBasis          PriceBasis       `json:"price_basis"`
	Multiple            *float64         `json:"multiple,omitempty"`
	MultipleBase        *string          `json:"multiple_base,omitempty"`
	CashAtClosing       int64            `json:"cash_at_closing"`
	EscrowHoldback      int64            `json:"escrow_holdback"`
	EarnoutAmount       int64            `json:"earnout_amount"`
	EarnoutStructure    EarnoutStructure `json:"earnout_structure"`
	ProposedClosingDate *time.Time       `json:"proposed_closing_date,omitempty"`
	ExclusivityDays     int              `json:"exclusivity_days"`
	NonCompeteMonths    int              `json:"non_compete_months"`
	ExpiresAt           *time.Time       `json:"expires_at,omitempty"`
}

// LOITerms are the fields a Propose call may change. Nil fields are left
// untouched.
type LOITerms struct {
	ProposedPrice       *int64            `json:"proposed_price,omitempty"`
	PriceBasis          *PriceBasis       `json:"price_basis,omitempty"`
	Multiple            *float64          `json:"multiple,omitempty"`
	MultipleBase        *string           `json:"multiple_base,omitempty"`
	CashAtClosing       *int64            `json:"cash_at_closing,omitempty"`
	EscrowHoldback      *int64            `json:"escrow_holdback,omitempty"`
	EarnoutAmount       *int64            `json:"earnout_amount,omitempty"`
	EarnoutStructure    *EarnoutStructure `json:"earnout_structure,omitempty"`
	ProposedClosingDate *time.Time        `json:"proposed_closing_date,omitempty"`
	ExclusivityDays     *int              `json:"exclusivity_days,omitempty"`
	NonCompeteMonths    *int              `json:"non_compete_months,omitempty"`
	ExpiresAt           *time.Time        `json:"expires_at,omitempty"`
}

// SPATerms are the fields an SPA proposal may change.
type SPATerms struct {
	PurchasePrice     *int64            `json:"purchase_price,omitempty"`
	ClosingDate       *time.Time        `json:"closing_date,omitempty"`
	CashAtClosing     *int64            `json:"cash_at_closing,omitempty"`
	EscrowHoldback    *int64            `json:"escrow_holdback,omitempty"`
	EarnoutAmount     *int64            `json:"earnout_amount,omitempty"`
	EarnoutStructure  *EarnoutStructure `json:"earnout_structure,omitempty"`
	Representations   *string           `json:"representations,omitempty"`
	Warranties        *string           `json:"warranties,omitempty"`
	Indemnification   *string           `json:"indemnification,omitempty"`
	ClosingConditions *string           `json:"closing_conditions,omitempty"`
}

// =====================================================
// LOI Operations
// =====================================================

// CreateLOI opens a draft proposal at version 1. Only the buyer creates an
// LOI; the seller responds through Propose.
func (s *Service) CreateLOI(ctx context.Context, caller party.Caller, req *CreateLOIRequest) (*LOI, error) {
	if req.ProposedPrice <= 0 {
		return nil, dealerr.Validation("proposed price must be positive, got %d", req.ProposedPrice)
	}
	if caller.UserID == req.SellerID {
		return nil, dealerr.Validation("buyer and seller must be distinct parties")
	}
	basis := req.PriceBasis
	if basis == "" {
		basis = PriceBasisFixed
	}

	now := time.Now()
	loi := &LOI{
		ID:                  uuid.New(),
		ListingID:           req.ListingID,
		BuyerID:             caller.UserID,
		SellerID:            req.SellerID,
		ProposedPrice:       req.ProposedPrice,
		PriceBasis:          basis,
		Multiple:            req.Multiple,
		MultipleBase:        req.MultipleBase,
		CashAtClosing:       req.CashAtClosing,
		EscrowHoldback:      req.EscrowHoldback,
		EarnoutAmount:       req.EarnoutAmount,
		EarnoutStructure:    req.EarnoutStructure,
		ProposedClosingDate: req.ProposedClosingDate,
		ExclusivityDays:     req.ExclusivityDays,
		NonCompeteMonths:    req.NonCompeteMonths,
		Status:              LOIStatusDraft,
		Version:             1,
		ExpiresAt:           req.ExpiresAt,
		CreatedAt:           now,
		UpdatedAt:           now,
	}

	if err := s.repo.CreateLOI(ctx, loi); err != nil {
		return nil, dealerr.Internal("failed to create LOI", err)
	}

	s.logger.Info("LOI created",
		zap.String("loi_id", loi.ID.String()),
		zap.String("listing_id", loi.ListingID.String()),
		zap.Int64("proposed_price", loi.ProposedPrice))

	return loi, nil
}

// GetLOI returns the proposal, lazily expiring it when its deadline passed.
func (s *Service) GetLOI(ctx context.Context, id uuid.UUID, caller party.Caller) (*LOI, error) {
	loi, err := s.loadLOI(ctx, id)
	if err != nil {
		return nil, err
	}
	if !loi.IsParty(caller.UserID) {
		return nil, dealerr.NotFound("LOI %s not found", id)
	}
	if err := s.expireIfDue(ctx, loi); err != nil {
		return nil, err
	}
	return loi, nil
}

// UpdateLOI applies changed terms as a new proposal round. The supplied
// version is the optimistic-concurrency token.
func (s *Service) UpdateLOI(ctx context.Context, id uuid.UUID, caller party.Caller, version int, terms *LOITerms) (*LOI, *Revision, error) {
	loi, err := s.loadLOI(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if !loi.IsParty(caller.UserID) {
		return nil, nil, dealerr.Forbidden("caller is not a party to this proposal")
	}
	if err := s.expireIfDue(ctx, loi); err != nil {
		return nil, nil, err
	}
	if loi.Status.IsTerminal() {
		return nil, nil, dealerr.InvalidState("LOI in status %s cannot be amended", loi.Status)
	}
	if loi.Version != version {
		return nil, nil, dealerr.StaleVersion("LOI is at version %d, caller read version %d", loi.Version, version)
	}

	changed := applyLOITerms(loi, terms)
	if len(changed) == 0 {
		return nil, nil, dealerr.Validation("no terms changed")
	}

	role := SignerBuyer
	if caller.UserID == loi.SellerID {
		role = SignerSeller
	}
	loi.Status = LOIStatusNegotiation
	revision, err := s.bumpLOI(ctx, loi, caller.UserID, caller.Name, string(role),
		"Changed "+strings.Join(changed, ", "))
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info("LOI amended",
		zap.String("loi_id", loi.ID.String()),
		zap.Int("version", loi.Version),
		zap.Strings("changed", changed))

	return loi, revision, nil
}

// WithdrawLOI moves the proposal to its terminal withdrawn state.
func (s *Service) WithdrawLOI(ctx context.Context, id uuid.UUID, caller party.Caller, version int) (*LOI, error) {
	loi, err := s.loadLOI(ctx, id)
	if err != nil {
		return nil, err
	}
	if caller.UserID != loi.BuyerID {
		return nil, dealerr.Forbidden("only the buyer can withdraw an LOI")
	}
	if loi.Status.IsTerminal() {
		return nil, dealerr.InvalidState("LOI in status %s cannot be withdrawn", loi.Status)
	}
	if loi.Version != version {
		return nil, dealerr.StaleVersion("LOI is at version %d, caller read version %d", loi.Version, version)
	}

	loi.Status = LOIStatusWithdrawn
	if _, err := s.bumpLOI(ctx, loi, caller.UserID, caller.Name, string(SignerBuyer), "LOI withdrawn"); err != nil {
		return nil, err
	}
	return loi, nil
}

// ListRevisions returns the immutable revision trail for a document along
// with the trail length. The document may be an LOI or an SPA; either way
// only its parties may read the trail, and non-parties see a not-found.
func (s *Service) ListRevisions(ctx context.Context, documentID uuid.UUID, caller party.Caller) ([]Revision, int, error) {
	if err := s.gateDocument(ctx, documentID, caller); err != nil {
		return nil, 0, err
	}
	revisions, err := s.repo.ListRevisions(ctx, documentID)
	if err != nil {
		return nil, 0, dealerr.Internal("failed to list revisions", err)
	}
	count, err := s.repo.CountRevisions(ctx, documentID)
	if err != nil {
		return nil, 0, dealerr.Internal("failed to count revisions", err)
	}
	return revisions, count, nil
}

// =====================================================
// SPA Operations
// =====================================================

// GenerateSPAFromLOI drafts the binding agreement from an accepted LOI.
// Acceptance is represented by the existence of a linked transaction for the
// LOI's listing/buyer pair. Price, escrow and earnout terms carry over;
// default representation and warranty templates are seeded.
func (s *Service) GenerateSPAFromLOI(ctx context.Context, loiID uuid.UUID, caller party.Caller) (*SPA, error) {
	loi, err := s.loadLOI(ctx, loiID)
	if err != nil {
		return nil, err
	}
	if !loi.IsParty(caller.UserID) {
		return nil, dealerr.Forbidden("caller is not a party to this proposal")
	}

	tx, err := s.lifecycle.FindTransaction(ctx, loi.ListingID, loi.BuyerID)
	if err != nil {
		return nil, err
	}
	if tx == nil {
		return nil, dealerr.InvalidState("LOI has not been accepted: no transaction exists for it")
	}

	existing, err := s.repo.GetSPAByTransaction(ctx, tx.ID)
	if err != nil {
		return nil, dealerr.Internal("failed to check for existing SPA", err)
	}
	if existing != nil {
		return nil, dealerr.InvalidState("an SPA already exists for transaction %s", tx.ID)
	}

	now := time.Now()
	spa := &SPA{
		ID:                uuid.New(),
		LOIID:             &loi.ID,
		TransactionID:     &tx.ID,
		ListingID:         loi.ListingID,
		BuyerID:           loi.BuyerID,
		SellerID:          loi.SellerID,
		PurchasePrice:     loi.ProposedPrice,
		ClosingDate:       loi.ProposedClosingDate,
		CashAtClosing:     loi.CashAtClosing,
		EscrowHoldback:    loi.EscrowHoldback,
		EarnoutAmount:     loi.EarnoutAmount,
		EarnoutStructure:  loi.EarnoutStructure,
		Representations:   defaultRepresentations,
		Warranties:        defaultWarranties,
		Indemnification:   defaultIndemnification,
		ClosingConditions: defaultClosingConds,
		Status:            SPAStatusDraft,
		Version:           1,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := s.repo.CreateSPA(ctx, spa); err != nil {
		return nil, dealerr.Internal("failed to create SPA", err)
	}

	// Freeze the LOI now that the binding document exists.
	if !loi.Status.IsTerminal() {
		loi.Status = LOIStatusAccepted
		if _, err := s.bumpLOI(ctx, loi, caller.UserID, caller.Name, string(deals.DealRoleSystem), "LOI accepted, SPA drafted"); err != nil {
			s.logger.Warn("Failed to mark LOI accepted", zap.String("loi_id", loi.ID.String()), zap.Error(err))
		}
	}

	actor := deals.ActorFor(caller, tx)
	if _, _, err := s.lifecycle.AdvanceStage(ctx, tx.ID, lifecycle.StageSPANegotiation, actor, "SPA drafted from LOI"); err != nil {
		return nil, err
	}

	s.logger.Info("SPA generated from LOI",
		zap.String("spa_id", spa.ID.String()),
		zap.String("loi_id", loi.ID.String()),
		zap.String("transaction_id", tx.ID.String()))

	return spa, nil
}

// SPAByTransaction resolves the agreement attached to a deal. Used by the
// signing webhook, which only knows the transaction reference. Returns nil
// when no SPA has been drafted yet.
func (s *Service) SPAByTransaction(ctx context.Context, transactionID uuid.UUID) (*SPA, error) {
	spa, err := s.repo.GetSPAByTransaction(ctx, transactionID)
	if err != nil {
		return nil, dealerr.Internal("failed to load SPA for transaction", err)
	}
	return spa, nil
}

// GetSPA returns the agreement, gated on deal membership.
func (s *Service) GetSPA(ctx context.Context, id uuid.UUID, caller party.Caller) (*SPA, error) {
	spa, err := s.loadSPA(ctx, id)
	if err != nil {
		return nil, err
	}
	if !spa.IsParty(caller.UserID) {
		return nil, dealerr.NotFound("SPA %s not found", id)
	}
	return spa, nil
}

// UpdateSPA applies changed terms as a new negotiation round. A signed SPA
// is immutable; substantive changes require a fresh draft.
func (s *Service) UpdateSPA(ctx context.Context, id uuid.UUID, caller party.Caller, version int, terms *SPATerms) (*SPA, *Revision, error) {
	spa, err := s.loadSPA(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if !spa.IsParty(caller.UserID) {
		return nil, nil, dealerr.Forbidden("caller is not a party to this agreement")
	}
	if spa.Status == SPAStatusSigned {
		return nil, nil, dealerr.ImmutableRecord("a signed SPA cannot be edited in place")
	}
	if spa.Version != version {
		return nil, nil, dealerr.StaleVersion("SPA is at version %d, caller read version %d", spa.Version, version)
	}

	changed := applySPATerms(spa, terms)
	if len(changed) == 0 {
		return nil, nil, dealerr.Validation("no terms changed")
	}

	// A new proposal round voids any partial signature.
	spa.BuyerSignedAt = nil
	spa.SellerSignedAt = nil
	spa.Status = SPAStatusNegotiation

	role := SignerBuyer
	if caller.UserID == spa.SellerID {
		role = SignerSeller
	}
	revision, err := s.bumpSPA(ctx, spa, caller.UserID, caller.Name, string(role),
		"Changed "+strings.Join(changed, ", "))
	if err != nil {
		return nil, nil, err
	}

	if spa.TransactionID != nil {
		actor := deals.Actor{ID: &caller.UserID, Name: caller.Name, Role: deals.DealRole(role)}
		if _, err := s.lifecycle.AppendActivity(ctx, *spa.TransactionID, deals.ActivityDocumentRevised,
			"SPA revised", revision.ChangeSummary, actor); err != nil {
			s.logger.Warn("Failed to log SPA revision activity", zap.Error(err))
		}
	}

	return spa, revision, nil
}

// FinalizeSPA records one side's signature. The deal only advances to
// CLOSING once both the buyer and the seller have signed; a single
// signature never completes the "SPA signed" milestone.
func (s *Service) FinalizeSPA(ctx context.Context, id uuid.UUID, role SignerRole, actor deals.Actor) (*SPA, error) {
	spa, err := s.loadSPA(ctx, id)
	if err != nil {
		return nil, err
	}
	if spa.Status == SPAStatusSigned && spa.FullySigned() {
		return spa, nil
	}

	now := time.Now()
	switch role {
	case SignerBuyer:
		if spa.BuyerSignedAt != nil {
			return spa, nil
		}
		spa.BuyerSignedAt = &now
	case SignerSeller:
		if spa.SellerSignedAt != nil {
			return spa, nil
		}
		spa.SellerSignedAt = &now
	default:
		return nil, dealerr.Validation("unknown signer role %q", role)
	}

	fully := spa.FullySigned()
	if fully {
		spa.Status = SPAStatusSigned
		spa.SignedAt = &now
	}
	spa.UpdatedAt = now

	if err := s.repo.UpdateSPASignatures(ctx, spa); err != nil {
		return nil, dealerr.Internal("failed to record signature", err)
	}

	if spa.TransactionID == nil {
		return spa, nil
	}

	if _, err := s.lifecycle.AppendActivity(ctx, *spa.TransactionID, deals.ActivitySPASigned,
		"SPA signature recorded", fmt.Sprintf("%s signature recorded on SPA", role), actor); err != nil {
		s.logger.Warn("Failed to log SPA signature activity", zap.Error(err))
	}

	if fully {
		if _, _, err := s.lifecycle.CompleteMilestoneByOrder(ctx, *spa.TransactionID, spaSignedMilestoneOrder, deals.SystemActor); err != nil {
			s.logger.Warn("Failed to complete SPA signed milestone", zap.Error(err))
		}
		if _, _, err := s.lifecycle.AdvanceStage(ctx, *spa.TransactionID, lifecycle.StageClosing, deals.SystemActor, "SPA fully signed"); err != nil {
			return nil, err
		}
		s.logger.Info("SPA fully signed",
			zap.String("spa_id", spa.ID.String()),
			zap.String("transaction_id", spa.TransactionID.String()))
	}

	return spa, nil
}

// =====================================================
// Helpers
// =====================================================

func (s *Service) loadLOI(ctx context.Context, id uuid.UUID) (*LOI, error) {
	loi, err := s.repo.GetLOI(ctx, id)
	if err != nil {
		return nil, dealerr.Internal("failed to load LOI", err)
	}
	if loi == nil {
		return nil, dealerr.NotFound("LOI %s not found", id)
	}
	return loi, nil
}

func (s *Service) loadSPA(ctx context.Context, id uuid.UUID) (*SPA, error) {
	spa, err := s.repo.GetSPA(ctx, id)
	if err != nil {
		return nil, dealerr.Internal("failed to load SPA", err)
	}
	if spa == nil {
		return nil, dealerr.NotFound("SPA %s not found", id)
	}
	return spa, nil
}

// gateDocument resolves a revision-bearing document (LOI or SPA) and hides
// its existence from non-parties.
func (s *Service) gateDocument(ctx context.Context, documentID uuid.UUID, caller party.Caller) error {
	loi, err := s.repo.GetLOI(ctx, documentID)
	if err != nil {
		return dealerr.Internal("failed to load document", err)
	}
	if loi != nil {
		if !loi.IsParty(caller.UserID) {
			return dealerr.NotFound("document %s not found", documentID)
		}
		return nil
	}
	spa, err := s.repo.GetSPA(ctx, documentID)
	if err != nil {
		return dealerr.Internal("failed to load document", err)
	}
	if spa == nil || !spa.IsParty(caller.UserID) {
		return dealerr.NotFound("document %s not found", documentID)
	}
	return nil
}

// expireIfDue lazily transitions a stale LOI to its expired state.
func (s *Service) expireIfDue(ctx context.Context, loi *LOI) error {
	if loi.Status.IsTerminal() || loi.ExpiresAt == nil || loi.ExpiresAt.After(time.Now()) {
		return nil
	}
	loi.Status = LOIStatusExpired
	_, err := s.bumpLOI(ctx, loi, loi.BuyerID, "system", string(deals.DealRoleSystem), "LOI expired")
	return err
}

// bumpLOI advances the version and writes the paired revision atomically.
func (s *Service) bumpLOI(ctx context.Context, loi *LOI, changedBy uuid.UUID, name, role, summary string) (*Revision, error) {
	expected := loi.Version
	loi.Version = expected + 1
	loi.UpdatedAt = time.Now()

	revision := newRevision(loi.ID, TypeLOI, loi.Version, changedBy, name, role, summary, snapshotOf(loi))
	if err := s.repo.UpdateLOIVersioned(ctx, loi, expected, revision); err != nil {
		loi.Version = expected
		if errors.Is(err, ErrVersionConflict) {
			return nil, dealerr.StaleVersion("LOI was modified concurrently")
		}
		return nil, dealerr.Internal("failed to update LOI", err)
	}
	return revision, nil
}

// bumpSPA advances the version and writes the paired revision atomically.
func (s *Service) bumpSPA(ctx context.Context, spa *SPA, changedBy uuid.UUID, name, role, summary string) (*Revision, error) {
	expected := spa.Version
	spa.Version = expected + 1
	spa.UpdatedAt = time.Now()

	revision := newRevision(spa.ID, TypeSPA, spa.Version, changedBy, name, role, summary, snapshotOf(spa))
	if err := s.repo.UpdateSPAVersioned(ctx, spa, expected, revision); err != nil {
		spa.Version = expected
		if errors.Is(err, ErrVersionConflict) {
			return nil, dealerr.StaleVersion("SPA was modified concurrently")
		}
		return nil, dealerr.Internal("failed to update SPA", err)
	}
	return revision, nil
}

func newRevision(documentID uuid.UUID, docType DocumentType, version int, changedBy uuid.UUID, name, role, summary string, snapshot Snapshot) *Revision {
	return &Revision{
		ID:            uuid.New(),
		DocumentID:    documentID,
		DocumentType:  docType,
		Version:       version,
		ChangedBy:     changedBy,
		ChangedByName: name,
		ChangedByRole: role,
		ChangeSummary: summary,
		Snapshot:      snapshot,
		CreatedAt:     time.Now(),
	}
}

func snapshotOf(doc interface{}) Snapshot {
	raw, err := json.Marshal(doc)
	if err != nil {
		return Snapshot{}
	}
	var snap Snapshot
	if err := json.Unmarshal(raw, &snap); err != nil {
		return Snapshot{}
	}
	return snap
}

func applyLOITerms(loi *LOI, terms *LOITerms) []string {
	var changed []string
	if terms.ProposedPrice != nil && *terms.ProposedPrice != loi.ProposedPrice {
		loi.ProposedPrice = *terms.ProposedPrice
		changed = append(changed, "proposed_price")
	}
	if terms.PriceBasis != nil && *terms.PriceBasis != loi.PriceBasis {
		loi.PriceBasis = *terms.PriceBasis
		changed = append(changed, "price_basis")
	}
	if terms.Multiple != nil {
		loi.Multiple = terms.Multiple
		changed = append(changed, "multiple")
	}
	if terms.MultipleBase != nil {
		loi.MultipleBase = terms.MultipleBase
		changed = append(changed, "multiple_base")
	}
	if terms.CashAtClosing != nil && *terms.CashAtClosing != loi.CashAtClosing {
		loi.CashAtClosing = *terms.CashAtClosing
		changed = append(changed, "cash_at_closing")
	}
	if terms.EscrowHoldback != nil && *terms.EscrowHoldback != loi.EscrowHoldback {
		loi.EscrowHoldback = *terms.EscrowHoldback
		changed = append(changed, "escrow_holdback")
	}
	if terms.EarnoutAmount != nil && *terms.EarnoutAmount != loi.EarnoutAmount {
		loi.EarnoutAmount = *terms.EarnoutAmount
		changed = append(changed, "earnout_amount")
	}
	if terms.EarnoutStructure != nil && *terms.EarnoutStructure != loi.EarnoutStructure {
		loi.EarnoutStructure = *terms.EarnoutStructure
		changed = append(changed, "earnout_structure")
	}
	if terms.ProposedClosingDate != nil {
		loi.ProposedClosingDate = terms.ProposedClosingDate
		changed = append(changed, "proposed_closing_date")
	}
	if terms.ExclusivityDays != nil && *terms.ExclusivityDays != loi.ExclusivityDays {
		loi.ExclusivityDays = *terms.ExclusivityDays
		changed = append(changed, "exclusivity_days")
	}
	if terms.NonCompeteMonths != nil && *terms.NonCompeteMonths != loi.NonCompeteMonths {
		loi.NonCompeteMonths = *terms.NonCompeteMonths
		changed = append(changed, "non_compete_months")
	}
	if terms.ExpiresAt != nil {
		loi.ExpiresAt = terms.ExpiresAt
		changed = append(changed, "expires_at")
	}
	return changed
}

func applySPATerms(spa *SPA, terms *SPATerms) []string {
	var changed []string
	if terms.PurchasePrice != nil && *terms.PurchasePrice != spa.PurchasePrice {
		spa.PurchasePrice = *terms.PurchasePrice
		changed = append(changed, "purchase_price")
	}
	if terms.ClosingDate != nil {
		spa.ClosingDate = terms.ClosingDate
		changed = append(changed, "closing_date")
	}
	if terms.CashAtClosing != nil && *terms.CashAtClosing != spa.CashAtClosing {
		spa.CashAtClosing = *terms.CashAtClosing
		changed = append(changed, "cash_at_closing")
	}
	if terms.EscrowHoldback != nil && *terms.EscrowHoldback != spa.EscrowHoldback {
		spa.EscrowHoldback = *terms.EscrowHoldback
		changed = append(changed, "escrow_holdback")
	}
	if terms.EarnoutAmount != nil && *terms.EarnoutAmount != spa.EarnoutAmount {
		spa.EarnoutAmount = *terms.EarnoutAmount
		changed = append(changed, "earnout_amount")
	}
	if terms.EarnoutStructure != nil && *terms.EarnoutStructure != spa.EarnoutStructure {
		spa.EarnoutStructure = *terms.EarnoutStructure
		changed = append(changed, "earnout_structure")
	}
	if terms.Representations != nil && *terms.Representations != spa.Representations {
		spa.Representations = *terms.Representations
		changed = append(changed, "representations")
	}
	if terms.Warranties != nil && *terms.Warranties != spa.Warranties {
		spa.Warranties = *terms.Warranties
		changed = append(changed, "warranties")
	}
	if terms.Indemnification != nil && *terms.Indemnification != spa.Indemnification {
		spa.Indemnification = *terms.Indemnification
		changed = append(changed, "indemnification")
	}
	if terms.ClosingConditions != nil && *terms.ClosingConditions != spa.ClosingConditions {
		spa.ClosingConditions = *terms.ClosingConditions
		changed = append(changed, "closing_conditions")
	}
	return changed
}
