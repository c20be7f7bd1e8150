package store

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/transfa/schoolfees-service/internal/domain"
)

const paymentColumns = `id, student_id, school_id, total_amount, school_amount, admin_amount, payment_status, payment_method, transaction_reference, paid_at, created_at, updated_at`

const transactionColumns = `id, amount, student_name, school_id, school_name, reference, created_at, updated_at`

func scanPayment(row pgx.Row) (*domain.Payment, error) {
	var p domain.Payment
	err := row.Scan(
		&p.ID,
		&p.StudentID,
		&p.SchoolID,
		&p.TotalAmount,
		&p.SchoolAmount,
		&p.AdminAmount,
		&p.PaymentStatus,
		&p.PaymentMethod,
		&p.TransactionReference,
		&p.PaidAt,
		&p.CreatedAt,
		&p.UpdatedAt,
	)
	if err != nil {
		return nil, translateError(err)
	}
	return &p, nil
}

func scanTransaction(row pgx.Row) (*domain.Transaction, error) {
	var t domain.Transaction
	err := row.Scan(&t.ID, &t.Amount, &t.StudentName, &t.SchoolID, &t.SchoolName, &t.Reference, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, translateError(err)
	}
	return &t, nil
}

// CreatePayment records a payment directly, without touching any wallet.
func (r *PostgresRepository) CreatePayment(ctx context.Context, input domain.PaymentInput) (*domain.Payment, error) {
	query := `
		INSERT INTO payments (student_id, school_id, total_amount, school_amount, admin_amount,
			payment_status, payment_method, transaction_reference, paid_at)
		VALUES ($1, $2, $3::numeric, $4::numeric, $5::numeric, $6, $7, $8, $9)
		RETURNING ` + paymentColumns
	return scanPayment(r.db.QueryRow(ctx, query,
		input.StudentID,
		input.SchoolID,
		input.TotalAmount,
		input.SchoolAmount,
		input.AdminAmount,
		input.PaymentStatus,
		input.PaymentMethod,
		strings.TrimSpace(input.TransactionReference),
		input.PaidAt,
	))
}

func (r *PostgresRepository) GetPayment(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE id = $1 AND ` + liveOnly
	return scanPayment(r.db.QueryRow(ctx, query, id))
}

func (r *PostgresRepository) GetPaymentByReference(ctx context.Context, reference string) (*domain.Payment, error) {
	query := `SELECT ` + paymentColumns + ` FROM payments WHERE transaction_reference = $1 AND ` + liveOnly
	return scanPayment(r.db.QueryRow(ctx, query, strings.TrimSpace(reference)))
}

func (r *PostgresRepository) ListPayments(ctx context.Context, filter domain.PaymentFilter) ([]domain.Payment, error) {
	query := `
		SELECT ` + paymentColumns + ` FROM payments
		WHERE ` + liveOnly + `
			AND ($1::uuid IS NULL OR school_id = $1)
			AND ($2::uuid IS NULL OR student_id = $2)
		ORDER BY created_at DESC
	`
	rows, err := r.db.Query(ctx, query, filter.SchoolID, filter.StudentID)
	if err != nil {
		return nil, translateError(err)
	}
	return collect(rows, scanPayment)
}

func (r *PostgresRepository) DeletePayment(ctx context.Context, id uuid.UUID) error {
	return softDelete(ctx, r.db, "payments", "id", id)
}

func (r *PostgresRepository) CreateTransaction(ctx context.Context, input domain.TransactionInput) (*domain.Transaction, error) {
	return insertTransaction(ctx, r.db, input)
}

func insertTransaction(ctx context.Context, q querier, input domain.TransactionInput) (*domain.Transaction, error) {
	query := `
		INSERT INTO transactions (amount, student_name, school_id, school_name, reference)
		VALUES ($1::numeric, $2, $3, $4, $5)
		RETURNING ` + transactionColumns
	return scanTransaction(q.QueryRow(ctx, query, input.Amount, input.StudentName, input.SchoolID, input.SchoolName, input.Reference))
}

func (r *PostgresRepository) GetTransaction(ctx context.Context, id uuid.UUID) (*domain.Transaction, error) {
	query := `SELECT ` + transactionColumns + ` FROM transactions WHERE id = $1 AND ` + liveOnly
	return scanTransaction(r.db.QueryRow(ctx, query, id))
}

func (r *PostgresRepository) ListTransactions(ctx context.Context) ([]domain.Transaction, error) {
	rows, err := r.db.Query(ctx, `SELECT `+transactionColumns+` FROM transactions WHERE `+liveOnly+` ORDER BY created_at DESC`)
	if err != nil {
		return nil, translateError(err)
	}
	return collect(rows, scanTransaction)
}

func (r *PostgresRepository) UpdateTransaction(ctx context.Context, id uuid.UUID, update domain.TransactionUpdate) (*domain.Transaction, error) {
	var b updateBuilder
	if update.Amount != nil {
		b.setCast("amount", *update.Amount, "::numeric")
	}
	if update.StudentName != nil {
		b.set("student_name", *update.StudentName)
	}
	if update.SchoolName != nil {
		b.set("school_name", *update.SchoolName)
	}
	if b.empty() {
		return r.GetTransaction(ctx, id)
	}
	query, args := b.build("transactions", "id", id, transactionColumns)
	return scanTransaction(r.db.QueryRow(ctx, query, args...))
}

func (r *PostgresRepository) DeleteTransaction(ctx context.Context, id uuid.UUID) error {
	return softDelete(ctx, r.db, "transactions", "id", id)
}
