package deals

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Repository defines data access for transactions and their owned rows.
// Multi-row mutations commit atomically or not at all; a transaction with
// milestones but no payments must never be observable.
type Repository interface {
	CreateTransactionBundle(ctx context.Context, tx *Transaction, milestones []Milestone, payments []Payment, activity *Activity) error
	GetTransaction(ctx context.Context, id uuid.UUID) (*Transaction, error)
	GetTransactionByListingBuyer(ctx context.Context, listingID, buyerID uuid.UUID) (*Transaction, error)
	UpdateTransaction(ctx context.Context, tx *Transaction, activity *Activity) error
	CloseTransaction(ctx context.Context, tx *Transaction, completedBy uuid.UUID, closedAt time.Time, activity *Activity) error

	GetMilestone(ctx context.Context, id uuid.UUID) (*Milestone, error)
	GetMilestoneByOrder(ctx context.Context, transactionID uuid.UUID, order int) (*Milestone, error)
	ListMilestones(ctx context.Context, transactionID uuid.UUID) ([]Milestone, error)
	ListIncompleteMilestones(ctx context.Context, transactionID uuid.UUID, limit int) ([]Milestone, error)
	ListOverdueMilestones(ctx context.Context, now time.Time, limit int) ([]Milestone, error)
	CompleteMilestone(ctx context.Context, milestone *Milestone, activity *Activity) error

	ListPayments(ctx context.Context, transactionID uuid.UUID) ([]Payment, error)

	InsertActivity(ctx context.Context, activity *Activity) error
	ListActivities(ctx context.Context, transactionID uuid.UUID) ([]Activity, error)
}

// PostgresRepository implements Repository using PostgreSQL
type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const insertTransactionQuery = `
	INSERT INTO transactions (
		id, listing_id, buyer_id, seller_id, advisor_id, agreed_price,
		stage, closing_date, summary, created_at, updated_at
	) VALUES (
		:id, :listing_id, :buyer_id, :seller_id, :advisor_id, :agreed_price,
		:stage, :closing_date, :summary, :created_at, :updated_at
	)`

const insertMilestoneQuery = `
	INSERT INTO milestones (
		id, transaction_id, title, description, due_date, step_order,
		assigned_to, completed, completed_at, completed_by
	) VALUES (
		:id, :transaction_id, :title, :description, :due_date, :step_order,
		:assigned_to, :completed, :completed_at, :completed_by
	)`

const insertPaymentQuery = `
	INSERT INTO payments (
		id, transaction_id, kind, amount, status, due_date, received_at
	) VALUES (
		:id, :transaction_id, :kind, :amount, :status, :due_date, :received_at
	)`

const insertActivityQuery = `
	INSERT INTO activities (
		id, transaction_id, type, title, description, actor_id, actor_name, actor_role, created_at
	) VALUES (
		:id, :transaction_id, :type, :title, :description, :actor_id, :actor_name, :actor_role, :created_at
	)`

func (r *PostgresRepository) CreateTransactionBundle(ctx context.Context, tx *Transaction, milestones []Milestone, payments []Payment, activity *Activity) error {
	dbTx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer dbTx.Rollback()

	if _, err := dbTx.NamedExecContext(ctx, insertTransactionQuery, tx); err != nil {
		return err
	}
	for i := range milestones {
		if _, err := dbTx.NamedExecContext(ctx, insertMilestoneQuery, &milestones[i]); err != nil {
			return err
		}
	}
	for i := range payments {
		if _, err := dbTx.NamedExecContext(ctx, insertPaymentQuery, &payments[i]); err != nil {
			return err
		}
	}
	if _, err := dbTx.NamedExecContext(ctx, insertActivityQuery, activity); err != nil {
		return err
	}
	return dbTx.Commit()
}

func (r *PostgresRepository) GetTransaction(ctx context.Context, id uuid.UUID) (*Transaction, error) {
	var tx Transaction
	err := r.db.GetContext(ctx, &tx, "SELECT * FROM transactions WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return &tx, err
}

func (r *PostgresRepository) GetTransactionByListingBuyer(ctx context.Context, listingID, buyerID uuid.UUID) (*Transaction, error) {
	var tx Transaction
	err := r.db.GetContext(ctx, &tx,
		"SELECT * FROM transactions WHERE listing_id = $1 AND buyer_id = $2 ORDER BY created_at DESC LIMIT 1",
		listingID, buyerID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return &tx, err
}

// UpdateTransaction persists stage/summary changes together with the activity
// row the change produced, in one database transaction.
func (r *PostgresRepository) UpdateTransaction(ctx context.Context, tx *Transaction, activity *Activity) error {
	dbTx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer dbTx.Rollback()

	query := `
		UPDATE transactions SET
			stage = :stage,
			closing_date = :closing_date,
			summary = :summary,
			updated_at = :updated_at
		WHERE id = :id`
	if _, err := dbTx.NamedExecContext(ctx, query, tx); err != nil {
		return err
	}
	if activity != nil {
		if _, err := dbTx.NamedExecContext(ctx, insertActivityQuery, activity); err != nil {
			return err
		}
	}
	return dbTx.Commit()
}

// CloseTransaction marks the transaction completed and sweeps every
// remaining milestone in the same database transaction.
func (r *PostgresRepository) CloseTransaction(ctx context.Context, tx *Transaction, completedBy uuid.UUID, closedAt time.Time, activity *Activity) error {
	dbTx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer dbTx.Rollback()

	query := `
		UPDATE transactions SET
			stage = :stage,
			closing_date = :closing_date,
			summary = :summary,
			updated_at = :updated_at
		WHERE id = :id`
	if _, err := dbTx.NamedExecContext(ctx, query, tx); err != nil {
		return err
	}
	if _, err := dbTx.ExecContext(ctx, `
		UPDATE milestones SET completed = TRUE, completed_at = $1, completed_by = $2
		WHERE transaction_id = $3 AND completed = FALSE`,
		closedAt, completedBy, tx.ID); err != nil {
		return err
	}
	if _, err := dbTx.NamedExecContext(ctx, insertActivityQuery, activity); err != nil {
		return err
	}
	return dbTx.Commit()
}

func (r *PostgresRepository) GetMilestone(ctx context.Context, id uuid.UUID) (*Milestone, error) {
	var m Milestone
	err := r.db.GetContext(ctx, &m, "SELECT * FROM milestones WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return &m, err
}

func (r *PostgresRepository) GetMilestoneByOrder(ctx context.Context, transactionID uuid.UUID, order int) (*Milestone, error) {
	var m Milestone
	err := r.db.GetContext(ctx, &m,
		"SELECT * FROM milestones WHERE transaction_id = $1 AND step_order = $2", transactionID, order)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return &m, err
}

func (r *PostgresRepository) ListMilestones(ctx context.Context, transactionID uuid.UUID) ([]Milestone, error) {
	var milestones []Milestone
	err := r.db.SelectContext(ctx, &milestones,
		"SELECT * FROM milestones WHERE transaction_id = $1 ORDER BY step_order", transactionID)
	return milestones, err
}

func (r *PostgresRepository) ListIncompleteMilestones(ctx context.Context, transactionID uuid.UUID, limit int) ([]Milestone, error) {
	var milestones []Milestone
	err := r.db.SelectContext(ctx, &milestones, `
		SELECT * FROM milestones
		WHERE transaction_id = $1 AND completed = FALSE
		ORDER BY due_date, step_order
		LIMIT $2`, transactionID, limit)
	return milestones, err
}

func (r *PostgresRepository) ListOverdueMilestones(ctx context.Context, now time.Time, limit int) ([]Milestone, error) {
	var milestones []Milestone
	err := r.db.SelectContext(ctx, &milestones, `
		SELECT * FROM milestones
		WHERE completed = FALSE AND due_date < $1
		ORDER BY due_date
		LIMIT $2`, now, limit)
	return milestones, err
}

// CompleteMilestone persists the completion together with its activity row.
func (r *PostgresRepository) CompleteMilestone(ctx context.Context, milestone *Milestone, activity *Activity) error {
	dbTx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer dbTx.Rollback()

	query := `
		UPDATE milestones SET
			completed = :completed,
			completed_at = :completed_at,
			completed_by = :completed_by
		WHERE id = :id`
	if _, err := dbTx.NamedExecContext(ctx, query, milestone); err != nil {
		return err
	}
	if _, err := dbTx.NamedExecContext(ctx, insertActivityQuery, activity); err != nil {
		return err
	}
	return dbTx.Commit()
}

func (r *PostgresRepository) ListPayments(ctx context.Context, transactionID uuid.UUID) ([]Payment, error) {
	var payments []Payment
	err := r.db.SelectContext(ctx, &payments,
		"SELECT * FROM payments WHERE transaction_id = $1 ORDER BY due_date", transactionID)
	return payments, err
}

func (r *PostgresRepository) InsertActivity(ctx context.Context, activity *Activity) error {
	_, err := r.db.NamedExecContext(ctx, insertActivityQuery, activity)
	return err
}

func (r *PostgresRepository) ListActivities(ctx context.Context, transactionID uuid.UUID) ([]Activity, error) {
	var activities []Activity
	err := r.db.SelectContext(ctx, &activities,
		"SELECT * FROM activities WHERE transaction_id = $1 ORDER BY created_at DESC", transactionID)
	return activities, err
}
