package earnout

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
)

// Repository defines data access for earnout pools and their periods.
type Repository interface {
	CreateEarnOut(ctx context.Context, earnOut *EarnOut, payments []Payment) error
	GetEarnOut(ctx context.Context, id uuid.UUID) (*EarnOut, error)
	GetEarnOutByTransaction(ctx context.Context, transactionID uuid.UUID) (*EarnOut, error)

	GetPayment(ctx context.Context, id uuid.UUID) (*Payment, error)
	ListPayments(ctx context.Context, earnOutID uuid.UUID) ([]Payment, error)
	UpdatePayment(ctx context.Context, payment *Payment) error
	SumEarned(ctx context.Context, earnOutID uuid.UUID) (int64, error)
}

// PostgresRepository implements Repository using PostgreSQL
type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const insertEarnOutQuery = `
	INSERT INTO earnouts (
		id, transaction_id, total_amount, metric,
		periods, start_date, created_by, created_at, updated_at
	) VALUES (
		:id, :transaction_id, :total_amount, :metric,
		:periods, :start_date, :created_by, :created_at, :updated_at
	)`

const insertPaymentQuery = `
	INSERT INTO earnout_payments (
		id, earnout_id, period_number, period_end, target_value, actual_value,
		achievement_percent, earned_amount, status, recorded_by, recorded_at,
		approved_by, approved_at, dispute_reason, created_at, updated_at
	) VALUES (
		:id, :earnout_id, :period_number, :period_end, :target_value, :actual_value,
		:achievement_percent, :earned_amount, :status, :recorded_by, :recorded_at,
		:approved_by, :approved_at, :dispute_reason, :created_at, :updated_at
	)`

// CreateEarnOut persists the pool and its seeded periods in one transaction.
func (r *PostgresRepository) CreateEarnOut(ctx context.Context, earnOut *EarnOut, payments []Payment) error {
	dbTx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer dbTx.Rollback()

	if _, err := dbTx.NamedExecContext(ctx, insertEarnOutQuery, earnOut); err != nil {
		return err
	}
	for i := range payments {
		if _, err := dbTx.NamedExecContext(ctx, insertPaymentQuery, &payments[i]); err != nil {
			return err
		}
	}

	return dbTx.Commit()
}

func (r *PostgresRepository) GetEarnOut(ctx context.Context, id uuid.UUID) (*EarnOut, error) {
	var earnOut EarnOut
	err := r.db.GetContext(ctx, &earnOut, "SELECT * FROM earnouts WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return &earnOut, err
}

func (r *PostgresRepository) GetEarnOutByTransaction(ctx context.Context, transactionID uuid.UUID) (*EarnOut, error) {
	var earnOut EarnOut
	err := r.db.GetContext(ctx, &earnOut, "SELECT * FROM earnouts WHERE transaction_id = $1", transactionID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return &earnOut, err
}

func (r *PostgresRepository) GetPayment(ctx context.Context, id uuid.UUID) (*Payment, error) {
	var payment Payment
	err := r.db.GetContext(ctx, &payment, "SELECT * FROM earnout_payments WHERE id = $1", id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return &payment, err
}

func (r *PostgresRepository) ListPayments(ctx context.Context, earnOutID uuid.UUID) ([]Payment, error) {
	var payments []Payment
	err := r.db.SelectContext(ctx, &payments,
		"SELECT * FROM earnout_payments WHERE earnout_id = $1 ORDER BY period_number", earnOutID)
	return payments, err
}

const updatePaymentQuery = `
	UPDATE earnout_payments SET
		actual_value = :actual_value,
		achievement_percent = :achievement_percent,
		earned_amount = :earned_amount,
		status = :status,
		recorded_by = :recorded_by,
		recorded_at = :recorded_at,
		approved_by = :approved_by,
		approved_at = :approved_at,
		dispute_reason = :dispute_reason,
		updated_at = :updated_at
	WHERE id = :id`

func (r *PostgresRepository) UpdatePayment(ctx context.Context, payment *Payment) error {
	_, err := r.db.NamedExecContext(ctx, updatePaymentQuery, payment)
	return err
}

// SumEarned totals the accrued amounts of all recorded, undisputed periods.
func (r *PostgresRepository) SumEarned(ctx context.Context, earnOutID uuid.UUID) (int64, error) {
	var total int64
	err := r.db.GetContext(ctx, &total, `
		SELECT COALESCE(SUM(earned_amount), 0)
		FROM earnout_payments
		WHERE earnout_id = $1 AND actual_value IS NOT NULL AND status != $2`,
		earnOutID, PaymentStatusDisputed)
	return total, err
}
