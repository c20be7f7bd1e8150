package store

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/transfa/schoolfees-service/internal/domain"
)

const (
	schoolWalletColumns     = `id, school_admin_id, school_id, current_balance, total_earned, last_updated, created_at, updated_at`
	adminWalletColumns      = `id, admin_id, provider, account_number, balance, created_at, updated_at`
	superAdminWalletColumns = `id, user_id, current_balance, total_earned, created_at, updated_at`
)

func scanSchoolWallet(row pgx.Row) (*domain.SchoolWallet, error) {
	var w domain.SchoolWallet
	err := row.Scan(&w.ID, &w.SchoolAdminID, &w.SchoolID, &w.CurrentBalance, &w.TotalEarned, &w.LastUpdated, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return nil, translateError(err)
	}
	return &w, nil
}

func scanAdminWallet(row pgx.Row) (*domain.AdminWallet, error) {
	var w domain.AdminWallet
	err := row.Scan(&w.ID, &w.AdminID, &w.Provider, &w.AccountNumber, &w.Balance, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return nil, translateError(err)
	}
	return &w, nil
}

func scanSuperAdminWallet(row pgx.Row) (*domain.SuperAdminWallet, error) {
	var w domain.SuperAdminWallet
	err := row.Scan(&w.ID, &w.UserID, &w.CurrentBalance, &w.TotalEarned, &w.CreatedAt, &w.UpdatedAt)
	if err != nil {
		return nil, translateError(err)
	}
	return &w, nil
}

// School wallets

func (r *PostgresRepository) CreateSchoolWallet(ctx context.Context, input domain.SchoolWalletInput) (*domain.SchoolWallet, error) {
	query := `
		INSERT INTO school_wallets (school_admin_id, school_id, current_balance, total_earned)
		VALUES ($1, $2, $3::numeric, $4::numeric)
		RETURNING ` + schoolWalletColumns
	return scanSchoolWallet(r.db.QueryRow(ctx, query, input.SchoolAdminID, input.SchoolID, input.CurrentBalance, input.TotalEarned))
}

func (r *PostgresRepository) GetSchoolWallet(ctx context.Context, id uuid.UUID) (*domain.SchoolWallet, error) {
	query := `SELECT ` + schoolWalletColumns + ` FROM school_wallets WHERE id = $1 AND ` + liveOnly
	return scanSchoolWallet(r.db.QueryRow(ctx, query, id))
}

func (r *PostgresRepository) GetSchoolWalletBySchool(ctx context.Context, schoolID uuid.UUID) (*domain.SchoolWallet, error) {
	query := `SELECT ` + schoolWalletColumns + ` FROM school_wallets WHERE school_id = $1 AND ` + liveOnly
	return scanSchoolWallet(r.db.QueryRow(ctx, query, schoolID))
}

func (r *PostgresRepository) ListSchoolWallets(ctx context.Context) ([]domain.SchoolWallet, error) {
	rows, err := r.db.Query(ctx, `SELECT `+schoolWalletColumns+` FROM school_wallets WHERE `+liveOnly+` ORDER BY created_at`)
	if err != nil {
		return nil, translateError(err)
	}
	return collect(rows, scanSchoolWallet)
}

func (r *PostgresRepository) UpdateSchoolWallet(ctx context.Context, id uuid.UUID, update domain.SchoolWalletUpdate) (*domain.SchoolWallet, error) {
	var b updateBuilder
	if update.SchoolAdminID != nil {
		b.set("school_admin_id", *update.SchoolAdminID)
	}
	if update.CurrentBalance != nil {
		b.setCast("current_balance", *update.CurrentBalance, "::numeric")
	}
	if update.TotalEarned != nil {
		b.setCast("total_earned", *update.TotalEarned, "::numeric")
	}
	if b.empty() {
		return r.GetSchoolWallet(ctx, id)
	}
	b.sets = append(b.sets, "last_updated = NOW()")
	query, args := b.build("school_wallets", "id", id, schoolWalletColumns)
	return scanSchoolWallet(r.db.QueryRow(ctx, query, args...))
}

func (r *PostgresRepository) DeleteSchoolWallet(ctx context.Context, id uuid.UUID) error {
	return softDelete(ctx, r.db, "school_wallets", "id", id)
}

// Admin wallets

func (r *PostgresRepository) CreateAdminWallet(ctx context.Context, input domain.AdminWalletInput) (*domain.AdminWallet, error) {
	query := `
		INSERT INTO admin_wallets (admin_id, provider, account_number, balance)
		VALUES ($1, $2, $3, $4::numeric)
		RETURNING ` + adminWalletColumns
	return scanAdminWallet(r.db.QueryRow(ctx, query, input.AdminID, input.Provider, strings.TrimSpace(input.AccountNumber), input.Balance))
}

func (r *PostgresRepository) GetAdminWallet(ctx context.Context, id uuid.UUID) (*domain.AdminWallet, error) {
	query := `SELECT ` + adminWalletColumns + ` FROM admin_wallets WHERE id = $1 AND ` + liveOnly
	return scanAdminWallet(r.db.QueryRow(ctx, query, id))
}

// FindAdminWallet looks a wallet up by exactly one of id or account number.
func (r *PostgresRepository) FindAdminWallet(ctx context.Context, lookup domain.AdminWalletLookup) (*domain.AdminWallet, error) {
	accountNumber := strings.TrimSpace(lookup.AccountNumber)
	switch {
	case lookup.ID != nil && accountNumber == "":
		return r.GetAdminWallet(ctx, *lookup.ID)
	case lookup.ID == nil && accountNumber != "":
		query := `SELECT ` + adminWalletColumns + ` FROM admin_wallets WHERE account_number = $1 AND ` + liveOnly
		return scanAdminWallet(r.db.QueryRow(ctx, query, accountNumber))
	default:
		return nil, ErrInvalidSearchCriteria
	}
}

func (r *PostgresRepository) ListAdminWallets(ctx context.Context) ([]domain.AdminWallet, error) {
	rows, err := r.db.Query(ctx, `SELECT `+adminWalletColumns+` FROM admin_wallets WHERE `+liveOnly+` ORDER BY created_at`)
	if err != nil {
		return nil, translateError(err)
	}
	return collect(rows, scanAdminWallet)
}

func (r *PostgresRepository) UpdateAdminWalletBalance(ctx context.Context, id uuid.UUID, balance decimal.Decimal) (*domain.AdminWallet, error) {
	var b updateBuilder
	b.setCast("balance", balance, "::numeric")
	query, args := b.build("admin_wallets", "id", id, adminWalletColumns)
	return scanAdminWallet(r.db.QueryRow(ctx, query, args...))
}

func (r *PostgresRepository) DeleteAdminWallet(ctx context.Context, id uuid.UUID) error {
	return softDelete(ctx, r.db, "admin_wallets", "id", id)
}

// Super-admin wallets are keyed by their owner.

func (r *PostgresRepository) CreateSuperAdminWallet(ctx context.Context, input domain.SuperAdminWalletInput) (*domain.SuperAdminWallet, error) {
	query := `
		INSERT INTO super_admin_wallets (user_id, current_balance, total_earned)
		VALUES ($1, $2::numeric, $3::numeric)
		RETURNING ` + superAdminWalletColumns
	return scanSuperAdminWallet(r.db.QueryRow(ctx, query, input.UserID, input.CurrentBalance, input.TotalEarned))
}

func (r *PostgresRepository) GetSuperAdminWallet(ctx context.Context, userID uuid.UUID) (*domain.SuperAdminWallet, error) {
	query := `SELECT ` + superAdminWalletColumns + ` FROM super_admin_wallets WHERE user_id = $1 AND ` + liveOnly
	return scanSuperAdminWallet(r.db.QueryRow(ctx, query, userID))
}

func (r *PostgresRepository) ListSuperAdminWallets(ctx context.Context) ([]domain.SuperAdminWallet, error) {
	rows, err := r.db.Query(ctx, `SELECT `+superAdminWalletColumns+` FROM super_admin_wallets WHERE `+liveOnly+` ORDER BY created_at`)
	if err != nil {
		return nil, translateError(err)
	}
	return collect(rows, scanSuperAdminWallet)
}

func (r *PostgresRepository) UpdateSuperAdminWallet(ctx context.Context, userID uuid.UUID, update domain.SuperAdminWalletUpdate) (*domain.SuperAdminWallet, error) {
	var b updateBuilder
	if update.CurrentBalance != nil {
		b.setCast("current_balance", *update.CurrentBalance, "::numeric")
	}
	if update.TotalEarned != nil {
		b.setCast("total_earned", *update.TotalEarned, "::numeric")
	}
	if b.empty() {
		return r.GetSuperAdminWallet(ctx, userID)
	}
	query, args := b.build("super_admin_wallets", "user_id", userID, superAdminWalletColumns)
	return scanSuperAdminWallet(r.db.QueryRow(ctx, query, args...))
}

func (r *PostgresRepository) DeleteSuperAdminWallet(ctx context.Context, userID uuid.UUID) error {
	return softDelete(ctx, r.db, "super_admin_wallets", "user_id", userID)
}
