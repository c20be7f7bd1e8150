/**
 * @description
 * AdminService backs the CRUD endpoints. Reads, lists and deletes pass straight through to
 * the repository; creates and updates are validated first so malformed input is rejected
 * with ErrValidation instead of reaching the database.
 */

package app

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/transfa/schoolfees-service/internal/domain"
	"github.com/transfa/schoolfees-service/internal/store"
	"go.uber.org/zap"
)

// Successful payments are only recorded by settlement, which also credits the wallets.
var manualPaymentStatuses = map[string]bool{
	domain.PaymentStatusPending: true,
	domain.PaymentStatusFailed:  true,
}

// AdminService exposes the repository to the CRUD handlers with input validation.
type AdminService struct {
	store.Repository
	logger *zap.Logger
}

func NewAdminService(repo store.Repository, logger *zap.Logger) *AdminService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdminService{Repository: repo, logger: logger.With(zap.String("component", "admin_service"))}
}

func (s *AdminService) CreateSchool(ctx context.Context, input domain.SchoolInput) (*domain.School, error) {
	input.Name = strings.TrimSpace(input.Name)
	if input.Name == "" {
		return nil, validationError("name is required")
	}
	if input.RegistrationFee.IsNegative() {
		return nil, validationError("registration_fee must not be negative")
	}
	return s.Repository.CreateSchool(ctx, input)
}

func (s *AdminService) UpdateSchool(ctx context.Context, id uuid.UUID, update domain.SchoolUpdate) (*domain.School, error) {
	if update.Name != nil && strings.TrimSpace(*update.Name) == "" {
		return nil, validationError("name must not be empty")
	}
	if update.RegistrationFee != nil && update.RegistrationFee.IsNegative() {
		return nil, validationError("registration_fee must not be negative")
	}
	return s.Repository.UpdateSchool(ctx, id, update)
}

func (s *AdminService) CreateStudent(ctx context.Context, input domain.StudentInput) (*domain.Student, error) {
	if strings.TrimSpace(input.IndexNumber) == "" || strings.TrimSpace(input.Name) == "" {
		return nil, validationError("index_number and name are required")
	}
	if input.SchoolID == uuid.Nil {
		return nil, validationError("school_id is required")
	}
	if err := validateDate("dob", input.DOB); err != nil {
		return nil, err
	}
	return s.Repository.CreateStudent(ctx, input)
}

func (s *AdminService) UpdateStudent(ctx context.Context, id uuid.UUID, update domain.StudentUpdate) (*domain.Student, error) {
	if update.DOB != nil {
		if err := validateDate("dob", *update.DOB); err != nil {
			return nil, err
		}
	}
	if update.IndexNumber != nil && strings.TrimSpace(*update.IndexNumber) == "" {
		return nil, validationError("index_number must not be empty")
	}
	return s.Repository.UpdateStudent(ctx, id, update)
}

func (s *AdminService) CreatePayment(ctx context.Context, input domain.PaymentInput) (*domain.Payment, error) {
	if input.SchoolID == uuid.Nil {
		return nil, validationError("school_id is required")
	}
	if strings.TrimSpace(input.TransactionReference) == "" {
		return nil, validationError("transaction_reference is required")
	}
	if !input.TotalAmount.IsPositive() || !input.SchoolAmount.IsPositive() || !input.AdminAmount.IsPositive() {
		return nil, validationError("amounts must be positive")
	}
	if !input.SchoolAmount.Add(input.AdminAmount).Equal(input.TotalAmount) {
		return nil, validationError("school_amount + admin_amount must equal total_amount")
	}
	if school, _ := domain.SplitAmount(input.TotalAmount); !input.SchoolAmount.Equal(school) {
		return nil, validationError("school_amount must be %s, the 80%% share of total_amount", school.StringFixed(2))
	}
	if input.PaymentStatus == "" {
		input.PaymentStatus = domain.PaymentStatusPending
	}
	if !manualPaymentStatuses[input.PaymentStatus] {
		return nil, validationError("payment_status must be pending or failed")
	}
	if input.PaymentMethod == "" {
		input.PaymentMethod = domain.PaymentMethodMobileMoney
	}
	return s.Repository.CreatePayment(ctx, input)
}

func (s *AdminService) CreateTransaction(ctx context.Context, input domain.TransactionInput) (*domain.Transaction, error) {
	if input.SchoolID == uuid.Nil {
		return nil, validationError("school_id is required")
	}
	if !input.Amount.IsPositive() {
		return nil, validationError("amount must be greater than zero")
	}
	return s.Repository.CreateTransaction(ctx, input)
}

func (s *AdminService) UpdateTransaction(ctx context.Context, id uuid.UUID, update domain.TransactionUpdate) (*domain.Transaction, error) {
	if update.Amount != nil && !update.Amount.IsPositive() {
		return nil, validationError("amount must be greater than zero")
	}
	return s.Repository.UpdateTransaction(ctx, id, update)
}

func (s *AdminService) CreateRole(ctx context.Context, input domain.RoleInput) (*domain.Role, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, validationError("name is required")
	}
	return s.Repository.CreateRole(ctx, input)
}

func (s *AdminService) UpdateRole(ctx context.Context, id uuid.UUID, input domain.RoleInput) (*domain.Role, error) {
	if strings.TrimSpace(input.Name) == "" {
		return nil, validationError("name is required")
	}
	return s.Repository.UpdateRole(ctx, id, input)
}

func (s *AdminService) AssignUserRole(ctx context.Context, assignment domain.UserRoleAssignment) (*domain.UserRole, error) {
	if assignment.UserID == uuid.Nil || strings.TrimSpace(assignment.RoleName) == "" {
		return nil, validationError("user_id and role_name are required")
	}
	ur, err := s.Repository.AssignUserRole(ctx, assignment)
	if err == nil {
		s.logger.Info("role assigned", zap.String("user_id", assignment.UserID.String()), zap.String("role", assignment.RoleName))
	}
	return ur, err
}

func (s *AdminService) CreateSetting(ctx context.Context, input domain.SettingInput) (*domain.Setting, error) {
	if strings.TrimSpace(input.Key) == "" {
		return nil, validationError("key is required")
	}
	return s.Repository.CreateSetting(ctx, input)
}

func (s *AdminService) CreateSchoolWallet(ctx context.Context, input domain.SchoolWalletInput) (*domain.SchoolWallet, error) {
	if input.SchoolID == uuid.Nil {
		return nil, validationError("school_id is required")
	}
	if err := nonNegative("current_balance", input.CurrentBalance, "total_earned", input.TotalEarned); err != nil {
		return nil, err
	}
	return s.Repository.CreateSchoolWallet(ctx, input)
}

func (s *AdminService) UpdateSchoolWallet(ctx context.Context, id uuid.UUID, update domain.SchoolWalletUpdate) (*domain.SchoolWallet, error) {
	if err := nonNegativePtr("current_balance", update.CurrentBalance, "total_earned", update.TotalEarned); err != nil {
		return nil, err
	}
	return s.Repository.UpdateSchoolWallet(ctx, id, update)
}

func (s *AdminService) CreateAdminWallet(ctx context.Context, input domain.AdminWalletInput) (*domain.AdminWallet, error) {
	if input.AdminID == uuid.Nil {
		return nil, validationError("admin_id is required")
	}
	if strings.TrimSpace(input.AccountNumber) == "" {
		return nil, validationError("account_number is required")
	}
	provider, err := domain.ParseNetworkProvider(input.Provider)
	if err != nil {
		return nil, validationError("provider must be one of MTN, ATL or VOD")
	}
	input.Provider = string(provider)
	if input.Balance.IsNegative() {
		return nil, validationError("balance must not be negative")
	}
	return s.Repository.CreateAdminWallet(ctx, input)
}

func (s *AdminService) UpdateAdminWalletBalance(ctx context.Context, id uuid.UUID, balance decimal.Decimal) (*domain.AdminWallet, error) {
	if balance.IsNegative() {
		return nil, validationError("balance must not be negative")
	}
	w, err := s.Repository.UpdateAdminWalletBalance(ctx, id, balance)
	if err == nil {
		s.logger.Info("admin wallet balance set", zap.String("wallet_id", id.String()), zap.String("balance", balance.StringFixed(2)))
	}
	return w, err
}

func (s *AdminService) CreateSuperAdminWallet(ctx context.Context, input domain.SuperAdminWalletInput) (*domain.SuperAdminWallet, error) {
	if input.UserID == uuid.Nil {
		return nil, validationError("user_id is required")
	}
	if err := nonNegative("current_balance", input.CurrentBalance, "total_earned", input.TotalEarned); err != nil {
		return nil, err
	}
	return s.Repository.CreateSuperAdminWallet(ctx, input)
}

func (s *AdminService) UpdateSuperAdminWallet(ctx context.Context, userID uuid.UUID, update domain.SuperAdminWalletUpdate) (*domain.SuperAdminWallet, error) {
	if err := nonNegativePtr("current_balance", update.CurrentBalance, "total_earned", update.TotalEarned); err != nil {
		return nil, err
	}
	return s.Repository.UpdateSuperAdminWallet(ctx, userID, update)
}

func validateDate(field, value string) error {
	if _, err := time.Parse(domain.DateLayout, strings.TrimSpace(value)); err != nil {
		return validationError("%s must be a date in YYYY-MM-DD format", field)
	}
	return nil
}

func nonNegative(nameA string, a decimal.Decimal, nameB string, b decimal.Decimal) error {
	return nonNegativePtr(nameA, &a, nameB, &b)
}

func nonNegativePtr(nameA string, a *decimal.Decimal, nameB string, b *decimal.Decimal) error {
	if a != nil && a.IsNegative() {
		return validationError("%s must not be negative", nameA)
	}
	if b != nil && b.IsNegative() {
		return validationError("%s must not be negative", nameB)
	}
	return nil
}
