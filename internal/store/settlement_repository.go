package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/transfa/schoolfees-service/internal/domain"
)

// SettlePayment records a successful gateway payment and credits the school and admin
// wallets. Every step runs in one transaction; any failure leaves no trace.
//
// A reference that was already settled, or whose payment was deleted, returns ErrAlreadySettled
// and changes nothing. A live pending or failed payment under the same reference is promoted to
// success and settled.
func (r *PostgresRepository) SettlePayment(ctx context.Context, s domain.Settlement) (*domain.Payment, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin settlement: %w", err)
	}
	defer tx.Rollback(ctx)

	insertPayment := `
		INSERT INTO payments (student_id, school_id, total_amount, school_amount, admin_amount,
			payment_status, payment_method, transaction_reference, paid_at)
		VALUES ($1, $2, $3::numeric, $4::numeric, $5::numeric, $6, $7, $8, $9)
		ON CONFLICT (transaction_reference) DO UPDATE
		SET student_id = EXCLUDED.student_id,
			school_id = EXCLUDED.school_id,
			total_amount = EXCLUDED.total_amount,
			school_amount = EXCLUDED.school_amount,
			admin_amount = EXCLUDED.admin_amount,
			payment_status = EXCLUDED.payment_status,
			payment_method = EXCLUDED.payment_method,
			paid_at = EXCLUDED.paid_at,
			updated_at = NOW()
		WHERE payments.payment_status <> EXCLUDED.payment_status AND payments.is_deleted = false
		RETURNING ` + paymentColumns
	payment, err := scanPayment(tx.QueryRow(ctx, insertPayment,
		s.StudentID,
		s.SchoolID,
		s.TotalAmount,
		s.SchoolAmount,
		s.AdminAmount,
		domain.PaymentStatusSuccess,
		domain.PaymentMethodMobileMoney,
		s.Reference,
		s.PaidAt,
	))
	if err != nil {
		if errors.Is(err, ErrNotFound) || errors.Is(err, ErrAlreadyExists) {
			return nil, ErrAlreadySettled
		}
		return nil, fmt.Errorf("failed to insert payment: %w", err)
	}

	creditSchool := `
		UPDATE school_wallets
		SET current_balance = current_balance + $1::numeric,
			total_earned = total_earned + $1::numeric,
			last_updated = NOW(),
			updated_at = NOW()
		WHERE school_id = $2 AND ` + liveOnly
	if err := execOne(ctx, tx, ErrSchoolWalletNotFound, creditSchool, s.SchoolAmount, s.SchoolID); err != nil {
		return nil, err
	}

	creditAdmin := `
		UPDATE admin_wallets
		SET balance = balance + $1::numeric, updated_at = NOW()
		WHERE id = $2 AND ` + liveOnly
	if err := execOne(ctx, tx, ErrAdminWalletNotFound, creditAdmin, s.AdminAmount, s.AdminWalletID); err != nil {
		return nil, err
	}

	if _, err := insertTransaction(ctx, tx, domain.TransactionInput{
		Amount:      s.TotalAmount,
		StudentName: s.StudentName,
		SchoolID:    s.SchoolID,
		SchoolName:  s.SchoolName,
		Reference:   s.Reference,
	}); err != nil {
		return nil, fmt.Errorf("failed to insert transaction: %w", err)
	}

	if s.StudentID != nil {
		markRegistration := `
			UPDATE students st
			SET registration_paid = true, updated_at = NOW()
			FROM schools sc
			WHERE st.id = $1 AND st.school_id = sc.id
				AND st.is_deleted = false AND st.registration_paid = false
				AND $2::numeric >= sc.registration_fee
		`
		if _, err := tx.Exec(ctx, markRegistration, *s.StudentID, s.TotalAmount); err != nil {
			return nil, fmt.Errorf("failed to mark registration paid: %w", translateError(err))
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit settlement: %w", err)
	}
	return payment, nil
}

// execOne runs an update that must touch exactly one row, returning missing otherwise.
func execOne(ctx context.Context, tx pgx.Tx, missing error, query string, args ...interface{}) error {
	tag, err := tx.Exec(ctx, query, args...)
	if err != nil {
		return translateError(err)
	}
	if tag.RowsAffected() == 0 {
		return missing
	}
	return nil
}
