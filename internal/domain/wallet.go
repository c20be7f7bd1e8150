package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SchoolWallet accumulates the school share of every settled payment for one school.
type SchoolWallet struct {
	ID             uuid.UUID       `json:"id"`
	SchoolAdminID  *uuid.UUID      `json:"school_admin_id,omitempty"`
	SchoolID       uuid.UUID       `json:"school_id"`
	CurrentBalance decimal.Decimal `json:"current_balance"`
	TotalEarned    decimal.Decimal `json:"total_earned"`
	LastUpdated    time.Time       `json:"last_updated"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

type SchoolWalletInput struct {
	SchoolAdminID  *uuid.UUID      `json:"school_admin_id,omitempty"`
	SchoolID       uuid.UUID       `json:"school_id"`
	CurrentBalance decimal.Decimal `json:"current_balance"`
	TotalEarned    decimal.Decimal `json:"total_earned"`
}

type SchoolWalletUpdate struct {
	SchoolAdminID  *uuid.UUID       `json:"school_admin_id,omitempty"`
	CurrentBalance *decimal.Decimal `json:"current_balance,omitempty"`
	TotalEarned    *decimal.Decimal `json:"total_earned,omitempty"`
}

// AdminWallet receives the platform share of settled payments.
type AdminWallet struct {
	ID            uuid.UUID       `json:"id"`
	AdminID       uuid.UUID       `json:"admin_id"`
	Provider      string          `json:"provider"`
	AccountNumber string          `json:"account_number"`
	Balance       decimal.Decimal `json:"balance"`
	CreatedAt     time.Time       `json:"created_at"`
	UpdatedAt     time.Time       `json:"updated_at"`
}

type AdminWalletInput struct {
	AdminID       uuid.UUID       `json:"admin_id"`
	Provider      string          `json:"provider"`
	AccountNumber string          `json:"account_number"`
	Balance       decimal.Decimal `json:"balance"`
}

type AdminWalletBalanceUpdate struct {
	Balance *decimal.Decimal `json:"balance"`
}

// AdminWalletLookup selects an admin wallet by exactly one of its keys.
type AdminWalletLookup struct {
	ID            *uuid.UUID
	AccountNumber string
}

type SuperAdminWallet struct {
	ID             uuid.UUID       `json:"id"`
	UserID         uuid.UUID       `json:"user_id"`
	CurrentBalance decimal.Decimal `json:"current_balance"`
	TotalEarned    decimal.Decimal `json:"total_earned"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

type SuperAdminWalletInput struct {
	UserID         uuid.UUID       `json:"user_id"`
	CurrentBalance decimal.Decimal `json:"current_balance"`
	TotalEarned    decimal.Decimal `json:"total_earned"`
}

type SuperAdminWalletUpdate struct {
	CurrentBalance *decimal.Decimal `json:"current_balance,omitempty"`
	TotalEarned    *decimal.Decimal `json:"total_earned,omitempty"`
}
