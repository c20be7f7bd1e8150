/**
 * @description
 * This file defines the payment-side domain models: payments, audit transactions, the
 * settlement instruction produced from a gateway webhook, and the DTOs of the USSD
 * charge endpoints.
 *
 * @notes
 * - Amounts are `decimal.Decimal` in cedis with two decimal places. The gateway works
 *   in pesewas; conversion happens only inside the Paystack client.
 * - The 80/20 school/admin split is computed once, when a charge is initiated, and
 *   travels with the charge metadata. Settlement validates it but never recomputes it.
 */

package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	PaymentStatusPending = "pending"
	PaymentStatusSuccess = "success"
	PaymentStatusFailed  = "failed"

	PaymentMethodMobileMoney = "mobile_money"

	Currency = "GHS"
)

// Custom metadata field names attached to every USSD charge and read back at settlement.
const (
	MetaStudentName  = "Student Name"
	MetaStudentID    = "Student ID"
	MetaSchoolName   = "School Name"
	MetaSchoolID     = "School ID"
	MetaAmountPaid   = "Amount paid"
	MetaSchoolAmount = "School amount"
	MetaAdminAmount  = "Admin amount"
	MetaPhoneNumber  = "Phone Number"
)

var (
	schoolShare = decimal.RequireFromString("0.80")

	// ErrUnknownProvider is returned for network providers outside MTN, AIRTEL/ATL and VODAFONE/VOD.
	ErrUnknownProvider = errors.New("unknown network provider")
)

// SplitAmount divides a total into the school's 80% and the platform's 20%.
// Rounding residue goes to the admin share, so school+admin always equals total.
func SplitAmount(total decimal.Decimal) (school, admin decimal.Decimal) {
	school = total.Mul(schoolShare).Round(2)
	admin = total.Sub(school)
	return school, admin
}

// NetworkProvider is the Paystack mobile money provider code.
type NetworkProvider string

const (
	ProviderMTN      NetworkProvider = "mtn"
	ProviderAirtel   NetworkProvider = "atl"
	ProviderVodafone NetworkProvider = "vod"
)

// ParseNetworkProvider accepts the provider names and codes used by clients.
func ParseNetworkProvider(raw string) (NetworkProvider, error) {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "MTN":
		return ProviderMTN, nil
	case "ATL", "AIRTEL", "AIRTELTIGO":
		return ProviderAirtel, nil
	case "VOD", "VODAFONE", "TELECEL":
		return ProviderVodafone, nil
	default:
		return "", ErrUnknownProvider
	}
}

// NewChargeReference derives a gateway reference from the payer's phone, the school and the time.
func NewChargeReference(phone, schoolID string, now time.Time) string {
	name := phone + "|" + schoolID + "|" + now.UTC().Format(time.RFC3339Nano)
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte(name)).String()
}

// USSDChargeRequest is the DTO for POST /paystack/ussd.
type USSDChargeRequest struct {
	PhoneNumber string          `json:"phone_number"`
	Amount      decimal.Decimal `json:"amount"`
	SchoolID    uuid.UUID       `json:"school_id"`
	SchoolName  string          `json:"school_name"`
	StudentName string          `json:"student_name"`
	StudentID   *uuid.UUID      `json:"student_id,omitempty"`
	Email       string          `json:"email,omitempty"`
	Provider    string          `json:"provider"`
}

// OTPRequest is the DTO for POST /paystack/ussd/otp.
type OTPRequest struct {
	Reference string `json:"reference"`
	OTP       string `json:"otp"`
}

// ChargeResponse is returned by the USSD and OTP endpoints.
type ChargeResponse struct {
	Reference   string `json:"reference"`
	Status      string `json:"status"`
	DisplayText string `json:"display_text,omitempty"`
}

type Payment struct {
	ID                   uuid.UUID       `json:"id"`
	StudentID            *uuid.UUID      `json:"student_id,omitempty"`
	SchoolID             uuid.UUID       `json:"school_id"`
	TotalAmount          decimal.Decimal `json:"total_amount"`
	SchoolAmount         decimal.Decimal `json:"school_amount"`
	AdminAmount          decimal.Decimal `json:"admin_amount"`
	PaymentStatus        string          `json:"payment_status"`
	PaymentMethod        string          `json:"payment_method"`
	TransactionReference string          `json:"transaction_reference"`
	PaidAt               *time.Time      `json:"paid_at,omitempty"`
	CreatedAt            time.Time       `json:"created_at"`
	UpdatedAt            time.Time       `json:"updated_at"`
}

// PaymentInput is used for manually recorded payments.
type PaymentInput struct {
	StudentID            *uuid.UUID      `json:"student_id,omitempty"`
	SchoolID             uuid.UUID       `json:"school_id"`
	TotalAmount          decimal.Decimal `json:"total_amount"`
	SchoolAmount         decimal.Decimal `json:"school_amount"`
	AdminAmount          decimal.Decimal `json:"admin_amount"`
	PaymentStatus        string          `json:"payment_status"`
	PaymentMethod        string          `json:"payment_method"`
	TransactionReference string          `json:"transaction_reference"`
	PaidAt               *time.Time      `json:"paid_at,omitempty"`
}

type PaymentFilter struct {
	SchoolID  *uuid.UUID
	StudentID *uuid.UUID
}

// Transaction is the audit record written alongside each settled payment.
type Transaction struct {
	ID          uuid.UUID       `json:"id"`
	Amount      decimal.Decimal `json:"amount"`
	StudentName string          `json:"student_name"`
	SchoolID    uuid.UUID       `json:"school_id"`
	SchoolName  string          `json:"school_name"`
	Reference   string          `json:"reference"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

type TransactionInput struct {
	Amount      decimal.Decimal `json:"amount"`
	StudentName string          `json:"student_name"`
	SchoolID    uuid.UUID       `json:"school_id"`
	SchoolName  string          `json:"school_name"`
	Reference   string          `json:"reference"`
}

type TransactionUpdate struct {
	Amount      *decimal.Decimal `json:"amount,omitempty"`
	StudentName *string          `json:"student_name,omitempty"`
	SchoolName  *string          `json:"school_name,omitempty"`
}

// Settlement is a validated instruction to record a gateway payment and credit both wallets.
type Settlement struct {
	Reference     string
	SchoolID      uuid.UUID
	SchoolName    string
	StudentID     *uuid.UUID
	StudentName   string
	PhoneNumber   string
	TotalAmount   decimal.Decimal
	SchoolAmount  decimal.Decimal
	AdminAmount   decimal.Decimal
	AdminWalletID uuid.UUID
	PaidAt        time.Time
}
