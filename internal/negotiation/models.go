package negotiation

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// =====================================================
// Enums and Constants
// =====================================================

// DocumentType distinguishes the two negotiation document kinds.
type DocumentType string

const (
	TypeLOI DocumentType = "LOI"
	TypeSPA DocumentType = "SPA"
)

// LOIStatus is the lifecycle state of a letter of intent.
type LOIStatus string

const (
	LOIStatusDraft       LOIStatus = "draft"
	LOIStatusNegotiation LOIStatus = "negotiation"
	LOIStatusAccepted    LOIStatus = "accepted"
	LOIStatusExpired     LOIStatus = "expired"
	LOIStatusWithdrawn   LOIStatus = "withdrawn"
)

// IsTerminal reports whether no further proposals are legal.
func (s LOIStatus) IsTerminal() bool {
	return s == LOIStatusAccepted || s == LOIStatusExpired || s == LOIStatusWithdrawn
}

// SPAStatus is the lifecycle state of a share purchase agreement.
type SPAStatus string

const (
	SPAStatusDraft       SPAStatus = "draft"
	SPAStatusNegotiation SPAStatus = "negotiation"
	SPAStatusSigned      SPAStatus = "signed"
)

// PriceBasis states how the proposed price was derived.
type PriceBasis string

const (
	PriceBasisFixed    PriceBasis = "fixed"
	PriceBasisMultiple PriceBasis = "multiple"
)

// SignerRole identifies which side a signature belongs to.
type SignerRole string

const (
	SignerBuyer  SignerRole = "buyer"
	SignerSeller SignerRole = "seller"
)

// =====================================================
// JSON Types for JSONB columns
// =====================================================

// EarnoutStructure allocates the earnout pool across the three post-closing
// years as fractions summing to at most 1.
type EarnoutStructure struct {
	Year1Fraction float64 `json:"year1_fraction"`
	Year2Fraction float64 `json:"year2_fraction"`
	Year3Fraction float64 `json:"year3_fraction"`
}

// Value implements driver.Valuer
func (e EarnoutStructure) Value() (driver.Value, error) {
	return json.Marshal(e)
}

// Scan implements sql.Scanner
func (e *EarnoutStructure) Scan(value interface{}) error {
	if value == nil {
		*e = EarnoutStructure{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("cannot scan %T into EarnoutStructure", value)
	}
	return json.Unmarshal(bytes, e)
}

// Snapshot is the immutable JSONB copy of a document stored on a revision.
type Snapshot map[string]interface{}

// Value implements driver.Valuer
func (s Snapshot) Value() (driver.Value, error) {
	if s == nil {
		return json.Marshal(map[string]interface{}{})
	}
	return json.Marshal(s)
}

// Scan implements sql.Scanner
func (s *Snapshot) Scan(value interface{}) error {
	if value == nil {
		*s = Snapshot{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return fmt.Errorf("cannot scan %T into Snapshot", value)
	}
	return json.Unmarshal(bytes, s)
}

// =====================================================
// Entities
// =====================================================

// LOI is a non-binding proposed deal structure. The version counter is the
// optimistic-concurrency token: every mutation must present the version it
// read, and every successful mutation writes exactly one Revision.
type LOI struct {
	ID                  uuid.UUID        `json:"id" db:"id"`
	ListingID           uuid.UUID        `json:"listing_id" db:"listing_id"`
	BuyerID             uuid.UUID        `json:"buyer_id" db:"buyer_id"`
	SellerID            uuid.UUID        `json:"seller_id" db:"seller_id"`
	ProposedPrice       int64            `json:"proposed_price" db:"proposed_price"`
	PriceBasis          PriceBasis       `json:"price_basis" db:"price_basis"`
	Multiple            *float64         `json:"multiple,omitempty" db:"multiple"`
	MultipleBase        *string          `json:"multiple_base,omitempty" db:"multiple_base"`
	CashAtClosing       int64            `json:"cash_at_closing" db:"cash_at_closing"`
	EscrowHoldback      int64            `json:"escrow_holdback" db:"escrow_holdback"`
	EarnoutAmount       int64            `json:"earnout_amount" db:"earnout_amount"`
	EarnoutStructure    EarnoutStructure `json:"earnout_structure" db:"earnout_structure"`
	ProposedClosingDate *time.Time       `json:"proposed_closing_date,omitempty" db:"proposed_closing_date"`
	ExclusivityDays     int              `json:"exclusivity_days" db:"exclusivity_days"`
	NonCompeteMonths    int              `json:"non_compete_months" db:"non_compete_months"`
	Status              LOIStatus        `json:"status" db:"status"`
	Version             int              `json:"version" db:"version"`
	ExpiresAt           *time.Time       `json:"expires_at,omitempty" db:"expires_at"`
	CreatedAt           time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt           time.Time        `json:"updated_at" db:"updated_at"`
}

// IsParty reports whether a user is on either side of the proposal.
func (l *LOI) IsParty(userID uuid.UUID) bool {
	return userID == l.BuyerID || userID == l.SellerID
}

// SPA is the binding transfer contract. Once signed it is immutable except
// for system-driven signature metadata; substantive changes require a new
// draft, never an in-place edit.
type SPA struct {
	ID                uuid.UUID        `json:"id" db:"id"`
	LOIID             *uuid.UUID       `json:"loi_id,omitempty" db:"loi_id"`
	TransactionID     *uuid.UUID       `json:"transaction_id,omitempty" db:"transaction_id"`
	ListingID         uuid.UUID        `json:"listing_id" db:"listing_id"`
	BuyerID           uuid.UUID        `json:"buyer_id" db:"buyer_id"`
	SellerID          uuid.UUID        `json:"seller_id" db:"seller_id"`
	PurchasePrice     int64            `json:"purchase_price" db:"purchase_price"`
	ClosingDate       *time.Time       `json:"closing_date,omitempty" db:"closing_date"`
	CashAtClosing     int64            `json:"cash_at_closing" db:"cash_at_closing"`
	EscrowHoldback    int64            `json:"escrow_holdback" db:"escrow_holdback"`
	EarnoutAmount     int64            `json:"earnout_amount" db:"earnout_amount"`
	EarnoutStructure  EarnoutStructure `json:"earnout_structure" db:"earnout_structure"`
	Representations   string           `json:"representations" db:"representations"`
	Warranties        string           `json:"warranties" db:"warranties"`
	Indemnification   string           `json:"indemnification" db:"indemnification"`
	ClosingConditions string           `json:"closing_conditions" db:"closing_conditions"`
	Status            SPAStatus        `json:"status" db:"status"`
	Version           int              `json:"version" db:"version"`
	BuyerSignedAt     *time.Time       `json:"buyer_signed_at,omitempty" db:"buyer_signed_at"`
	SellerSignedAt    *time.Time       `json:"seller_signed_at,omitempty" db:"seller_signed_at"`
	SignedAt          *time.Time       `json:"signed_at,omitempty" db:"signed_at"`
	CreatedAt         time.Time        `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time        `json:"updated_at" db:"updated_at"`
}

// IsParty reports whether a user is on either side of the agreement.
func (s *SPA) IsParty(userID uuid.UUID) bool {
	return userID == s.BuyerID || userID == s.SellerID
}

// FullySigned reports whether both sides have signed.
func (s *SPA) FullySigned() bool {
	return s.BuyerSignedAt != nil && s.SellerSignedAt != nil
}

// Revision is an immutable snapshot of a negotiation document at the moment
// a mutation produced a new version. Rows are append-only.
type Revision struct {
	ID            uuid.UUID    `json:"id" db:"id"`
	DocumentID    uuid.UUID    `json:"document_id" db:"document_id"`
	DocumentType  DocumentType `json:"document_type" db:"document_type"`
	Version       int          `json:"version" db:"version"`
	ChangedBy     uuid.UUID    `json:"changed_by" db:"changed_by"`
	ChangedByName string       `json:"changed_by_name" db:"changed_by_name"`
	ChangedByRole string       `json:"changed_by_role" db:"changed_by_role"`
	ChangeSummary string       `json:"change_summary" db:"change_summary"`
	Snapshot      Snapshot     `json:"snapshot" db:"snapshot"`
	CreatedAt     time.Time    `json:"created_at" db:"created_at"`
}

// Default free-form legal blocks seeded into an SPA drafted from an LOI.
const (
	defaultRepresentations = "Seller represents that the company is duly organized, that the financial statements provided fairly present its condition, and that no undisclosed liabilities exist."
	defaultWarranties      = "Seller warrants good and marketable title to all shares and assets transferred, free of liens and encumbrances."
	defaultIndemnification = "Seller shall indemnify buyer for breaches of representations and warranties, capped at the escrow holdback, surviving for 18 months after closing."
	defaultClosingConds    = "Closing is conditional on completion of due diligence, release of the NDA escrow, and registration of the share transfer."
)
