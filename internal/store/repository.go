/**
 * @description
 * This file defines the `Repository` interface, which specifies the contract for all
 * data access operations required by the schoolfees-service. Services depend on this
 * interface rather than on PostgreSQL directly, which keeps them testable with stubs.
 *
 * @notes
 * - Reads only ever see live rows (`is_deleted = false`). Deletes are soft.
 * - Errors are translated once, at this boundary, into the sentinels in errors.go.
 *
 * @dependencies
 * - github.com/google/uuid: Row identifiers.
 * - github.com/shopspring/decimal: Money columns.
 * - internal/domain: The service's domain models.
 */

package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/transfa/schoolfees-service/internal/domain"
)

// Repository defines the set of methods for interacting with the database.
type Repository interface {
	// Users and sessions
	CreateUser(ctx context.Context, user domain.NewUser) (*domain.User, error)
	GetUserByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetUserByEmail(ctx context.Context, email string) (*domain.User, error)
	ReplaceActiveRefreshToken(ctx context.Context, userID uuid.UUID, token string) error
	GetActiveRefreshToken(ctx context.Context, userID uuid.UUID) (*domain.RefreshToken, error)
	DeactivateRefreshTokens(ctx context.Context, userID uuid.UUID) error
	PurgeRefreshTokens(ctx context.Context, olderThan time.Time) (int64, error)

	// Roles and role assignments
	CreateRole(ctx context.Context, input domain.RoleInput) (*domain.Role, error)
	GetRole(ctx context.Context, id uuid.UUID) (*domain.Role, error)
	ListRoles(ctx context.Context) ([]domain.Role, error)
	UpdateRole(ctx context.Context, id uuid.UUID, input domain.RoleInput) (*domain.Role, error)
	DeleteRole(ctx context.Context, id uuid.UUID) error
	AssignUserRole(ctx context.Context, assignment domain.UserRoleAssignment) (*domain.UserRole, error)
	ListUserRolesByRole(ctx context.Context, roleID uuid.UUID) ([]domain.UserRole, error)
	RevokeUserRole(ctx context.Context, userID, roleID uuid.UUID) error

	// Schools and students
	CreateSchool(ctx context.Context, input domain.SchoolInput) (*domain.School, error)
	GetSchool(ctx context.Context, id uuid.UUID) (*domain.School, error)
	ListSchools(ctx context.Context, nameFilter string) ([]domain.School, error)
	UpdateSchool(ctx context.Context, id uuid.UUID, update domain.SchoolUpdate) (*domain.School, error)
	DeleteSchool(ctx context.Context, id uuid.UUID) error
	CreateStudent(ctx context.Context, input domain.StudentInput) (*domain.Student, error)
	GetStudent(ctx context.Context, id uuid.UUID) (*domain.Student, error)
	GetStudentByIndexNumber(ctx context.Context, indexNumber string) (*domain.Student, error)
	ListStudents(ctx context.Context, schoolID *uuid.UUID) ([]domain.Student, error)
	UpdateStudent(ctx context.Context, id uuid.UUID, update domain.StudentUpdate) (*domain.Student, error)
	DeleteStudent(ctx context.Context, id uuid.UUID) error

	// Payments and audit transactions
	CreatePayment(ctx context.Context, input domain.PaymentInput) (*domain.Payment, error)
	GetPayment(ctx context.Context, id uuid.UUID) (*domain.Payment, error)
	GetPaymentByReference(ctx context.Context, reference string) (*domain.Payment, error)
	ListPayments(ctx context.Context, filter domain.PaymentFilter) ([]domain.Payment, error)
	DeletePayment(ctx context.Context, id uuid.UUID) error
	CreateTransaction(ctx context.Context, input domain.TransactionInput) (*domain.Transaction, error)
	GetTransaction(ctx context.Context, id uuid.UUID) (*domain.Transaction, error)
	ListTransactions(ctx context.Context) ([]domain.Transaction, error)
	UpdateTransaction(ctx context.Context, id uuid.UUID, update domain.TransactionUpdate) (*domain.Transaction, error)
	DeleteTransaction(ctx context.Context, id uuid.UUID) error

	// Settlement credits both wallets and records the payment in one database transaction.
	SettlePayment(ctx context.Context, settlement domain.Settlement) (*domain.Payment, error)

	// Settings
	CreateSetting(ctx context.Context, input domain.SettingInput) (*domain.Setting, error)
	GetSetting(ctx context.Context, key string) (*domain.Setting, error)
	ListSettings(ctx context.Context, keyFilter string) ([]domain.Setting, error)
	UpdateSetting(ctx context.Context, key, value string) (*domain.Setting, error)
	DeleteSetting(ctx context.Context, key string) error

	// Wallets
	CreateSchoolWallet(ctx context.Context, input domain.SchoolWalletInput) (*domain.SchoolWallet, error)
	GetSchoolWallet(ctx context.Context, id uuid.UUID) (*domain.SchoolWallet, error)
	GetSchoolWalletBySchool(ctx context.Context, schoolID uuid.UUID) (*domain.SchoolWallet, error)
	ListSchoolWallets(ctx context.Context) ([]domain.SchoolWallet, error)
	UpdateSchoolWallet(ctx context.Context, id uuid.UUID, update domain.SchoolWalletUpdate) (*domain.SchoolWallet, error)
	DeleteSchoolWallet(ctx context.Context, id uuid.UUID) error
	CreateAdminWallet(ctx context.Context, input domain.AdminWalletInput) (*domain.AdminWallet, error)
	GetAdminWallet(ctx context.Context, id uuid.UUID) (*domain.AdminWallet, error)
	FindAdminWallet(ctx context.Context, lookup domain.AdminWalletLookup) (*domain.AdminWallet, error)
	ListAdminWallets(ctx context.Context) ([]domain.AdminWallet, error)
	UpdateAdminWalletBalance(ctx context.Context, id uuid.UUID, balance decimal.Decimal) (*domain.AdminWallet, error)
	DeleteAdminWallet(ctx context.Context, id uuid.UUID) error
	CreateSuperAdminWallet(ctx context.Context, input domain.SuperAdminWalletInput) (*domain.SuperAdminWallet, error)
	GetSuperAdminWallet(ctx context.Context, userID uuid.UUID) (*domain.SuperAdminWallet, error)
	ListSuperAdminWallets(ctx context.Context) ([]domain.SuperAdminWallet, error)
	UpdateSuperAdminWallet(ctx context.Context, userID uuid.UUID, update domain.SuperAdminWalletUpdate) (*domain.SuperAdminWallet, error)
	DeleteSuperAdminWallet(ctx context.Context, userID uuid.UUID) error
}
