package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Routing keys published on the events exchange.
const (
	RoutingKeyPaymentSettled = "payment.settled"
	RoutingKeyUserSignedUp   = "user.signed_up"
)

// PaymentSettledEvent is published after a settlement commits.
type PaymentSettledEvent struct {
	PaymentID    uuid.UUID       `json:"payment_id"`
	Reference    string          `json:"reference"`
	SchoolID     uuid.UUID       `json:"school_id"`
	StudentName  string          `json:"student_name"`
	TotalAmount  decimal.Decimal `json:"total_amount"`
	SchoolAmount decimal.Decimal `json:"school_amount"`
	AdminAmount  decimal.Decimal `json:"admin_amount"`
	Currency     string          `json:"currency"`
	SettledAt    time.Time       `json:"settled_at"`
}

type UserSignedUpEvent struct {
	UserID    uuid.UUID `json:"user_id"`
	Email     string    `json:"email"`
	RoleName  string    `json:"role_name"`
	Timestamp time.Time `json:"timestamp"`
}
