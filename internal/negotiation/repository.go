package negotiation

import (
	"context"
	"database/sql"
	"errors"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// ErrVersionConflict is returned when a versioned update loses the race:
// the stored version no longer matches the version the caller read.
var ErrVersionConflict = errors.New("document version conflict")

// Repository defines data access for negotiation documents. Versioned
// updates persist the document and its revision row atomically, guarded by
// a compare-and-swap on the version column.
type Repository interface {
	CreateLOI(ctx context.Context, loi *LOI) error
	GetLOI(ctx context.Context, id uuid.UUID) (*LOI, error)
	UpdateLOIVersioned(ctx context.Context, loi *LOI, expectedVersion int, revision *Revision) error

	CreateSPA(ctx context.Context, spa *SPA) error
	GetSPA(ctx context.Context, id uuid.UUID) (*SPA, error)
	GetSPAByTransaction(ctx context.Context, transactionID uuid.UUID) (*SPA, error)
	UpdateSPAVersioned(ctx context.Context, spa *SPA, expectedVersion int, revision *Revision) error
	UpdateSPASignatures(ctx context.Context, spa *SPA) error

	ListRevisions(ctx context.Context, documentID uuid.UUID) ([]Revision, error)
	CountRevisions(ctx context.Context, documentID uuid.UUID) (int, error)
}

// PostgresRepository implements Repository using PostgreSQL
type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const insertRevisionQuery = `
	INSERT INTO document_revisions (
		id, document_id, document_type, version, changed_by, changed_by_name,
		changed_by_role, change_summary, snapshot, created_at
	) VALUES (
		:id, :document_id, :document_type, :version, :changed_by, :changed_by_name,
		:changed_by_role, :change_summary, :snapshot, :created_at
	)`

func (r *PostgresRepository) CreateLOI(ctx context.Context, loi *LOI) error {
	query := `
		INSERT INTO lois (
			id, listing_id, buyer_id, seller_id, proposed_price, price_basis,
			multiple, multiple_base, cash_at_closing, escrow_holdback,
			earnout_amount, earnout_structure, proposed_closing_date,
			exclusivity_days, non_compete_months, status, version, expires_at,
			created_at, updated_at
		) VALUES (
			:id, :listing_id, :buyer_id, :seller_id, :proposed_price, :price_basis,
			:multiple, :multiple_base, :cash_at_closing, :escrow_holdback,
			:earnout_amount, :earnout_structure, :proposed_closing_date,
			:exclusivity_days, :non_compete_months, :status, :version, :expires_at,
			:created_at, :updated_at
		)`
	_, err := r.db.NamedExecContext(ctx, query, loi)
	return err
}

func (r *PostgresRepository) GetLOI(ctx context.Context, id uuid.UUID) (*LOI, error) {
	var loi LOI
	err := r.db.GetContext(ctx, &loi, "SELECT * FROM lois WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return &loi, err
}

const updateLOIQuery = `
	UPDATE lois SET
		proposed_price = :proposed_price,
		price_basis = :price_basis,
		multiple = :multiple,
		multiple_base = :multiple_base,
		cash_at_closing = :cash_at_closing,
		escrow_holdback = :escrow_holdback,
		earnout_amount = :earnout_amount,
		earnout_structure = :earnout_structure,
		proposed_closing_date = :proposed_closing_date,
		exclusivity_days = :exclusivity_days,
		non_compete_months = :non_compete_months,
		status = :status,
		version = :version,
		expires_at = :expires_at,
		updated_at = :updated_at
	WHERE id = :id AND version = :expected_version`

func (r *PostgresRepository) UpdateLOIVersioned(ctx context.Context, loi *LOI, expectedVersion int, revision *Revision) error {
	dbTx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer dbTx.Rollback()

	params := struct {
		*LOI
		ExpectedVersion int `db:"expected_version"`
	}{loi, expectedVersion}

	res, err := dbTx.NamedExecContext(ctx, updateLOIQuery, params)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrVersionConflict
	}
	if _, err := dbTx.NamedExecContext(ctx, insertRevisionQuery, revision); err != nil {
		return err
	}
	return dbTx.Commit()
}

func (r *PostgresRepository) CreateSPA(ctx context.Context, spa *SPA) error {
	query := `
		INSERT INTO spas (
			id, loi_id, transaction_id, listing_id, buyer_id, seller_id,
			purchase_price, closing_date, cash_at_closing, escrow_holdback,
			earnout_amount, earnout_structure, representations, warranties,
			indemnification, closing_conditions, status, version,
			buyer_signed_at, seller_signed_at, signed_at, created_at, updated_at
		) VALUES (
			:id, :loi_id, :transaction_id, :listing_id, :buyer_id, :seller_id,
			:purchase_price, :closing_date, :cash_at_closing, :escrow_holdback,
			:earnout_amount, :earnout_structure, :representations, :warranties,
			:indemnification, :closing_conditions, :status, :version,
			:buyer_signed_at, :seller_signed_at, :signed_at, :created_at, :updated_at
		)`
	_, err := r.db.NamedExecContext(ctx, query, spa)
	return err
}

func (r *PostgresRepository) GetSPA(ctx context.Context, id uuid.UUID) (*SPA, error) {
	var spa SPA
	err := r.db.GetContext(ctx, &spa, "SELECT * FROM spas WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return &spa, err
}

func (r *PostgresRepository) GetSPAByTransaction(ctx context.Context, transactionID uuid.UUID) (*SPA, error) {
	var spa SPA
	err := r.db.GetContext(ctx, &spa,
		"SELECT * FROM spas WHERE transaction_id = $1 ORDER BY created_at DESC LIMIT 1", transactionID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return &spa, err
}

const updateSPAQuery = `
	UPDATE spas SET
		purchase_price = :purchase_price,
		closing_date = :closing_date,
		cash_at_closing = :cash_at_closing,
		escrow_holdback = :escrow_holdback,
		earnout_amount = :earnout_amount,
		earnout_structure = :earnout_structure,
		representations = :representations,
		warranties = :warranties,
		indemnification = :indemnification,
		closing_conditions = :closing_conditions,
		status = :status,
		version = :version,
		updated_at = :updated_at
	WHERE id = :id AND version = :expected_version`

func (r *PostgresRepository) UpdateSPAVersioned(ctx context.Context, spa *SPA, expectedVersion int, revision *Revision) error {
	dbTx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer dbTx.Rollback()

	params := struct {
		*SPA
		ExpectedVersion int `db:"expected_version"`
	}{spa, expectedVersion}

	res, err := dbTx.NamedExecContext(ctx, updateSPAQuery, params)
	if err != nil {
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrVersionConflict
	}
	if _, err := dbTx.NamedExecContext(ctx, insertRevisionQuery, revision); err != nil {
		return err
	}
	return dbTx.Commit()
}

// UpdateSPASignatures writes signature metadata only. Signature recording is
// system-driven and does not advance the document version.
func (r *PostgresRepository) UpdateSPASignatures(ctx context.Context, spa *SPA) error {
	query := `
		UPDATE spas SET
			status = :status,
			buyer_signed_at = :buyer_signed_at,
			seller_signed_at = :seller_signed_at,
			signed_at = :signed_at,
			updated_at = :updated_at
		WHERE id = :id`
	_, err := r.db.NamedExecContext(ctx, query, spa)
	return err
}

func (r *PostgresRepository) ListRevisions(ctx context.Context, documentID uuid.UUID) ([]Revision, error) {
	var revisions []Revision
	err := r.db.SelectContext(ctx, &revisions,
		"SELECT * FROM document_revisions WHERE document_id = $1 ORDER BY version DESC", documentID)
	return revisions, err
}

func (r *PostgresRepository) CountRevisions(ctx context.Context, documentID uuid.UUID) (int, error) {
	var count int
	err := r.db.GetContext(ctx, &count,
		"SELECT COUNT(*) FROM document_revisions WHERE document_id = $1", documentID)
	return count, err
}
