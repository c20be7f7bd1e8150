package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DateLayout is the wire and storage format of calendar dates such as a student's dob.
const DateLayout = "2006-01-02"

type School struct {
	ID              uuid.UUID       `json:"id"`
	Name            string          `json:"name"`
	Location        string          `json:"location"`
	RegistrationFee decimal.Decimal `json:"registration_fee"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

type SchoolInput struct {
	Name            string          `json:"name"`
	Location        string          `json:"location"`
	RegistrationFee decimal.Decimal `json:"registration_fee"`
}

// SchoolUpdate carries a partial update; nil fields are left unchanged.
type SchoolUpdate struct {
	Name            *string          `json:"name,omitempty"`
	Location        *string          `json:"location,omitempty"`
	RegistrationFee *decimal.Decimal `json:"registration_fee,omitempty"`
}

type Student struct {
	ID               uuid.UUID `json:"id"`
	IndexNumber      string    `json:"index_number"`
	Name             string    `json:"name"`
	DOB              string    `json:"dob"`
	SchoolID         uuid.UUID `json:"school_id"`
	Location         string    `json:"location"`
	RegistrationPaid bool      `json:"registration_paid"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

type StudentInput struct {
	IndexNumber      string    `json:"index_number"`
	Name             string    `json:"name"`
	DOB              string    `json:"dob"`
	SchoolID         uuid.UUID `json:"school_id"`
	Location         string    `json:"location"`
	RegistrationPaid bool      `json:"registration_paid"`
}

type StudentUpdate struct {
	IndexNumber      *string    `json:"index_number,omitempty"`
	Name             *string    `json:"name,omitempty"`
	DOB              *string    `json:"dob,omitempty"`
	SchoolID         *uuid.UUID `json:"school_id,omitempty"`
	Location         *string    `json:"location,omitempty"`
	RegistrationPaid *bool      `json:"registration_paid,omitempty"`
}

type Setting struct {
	ID        uuid.UUID `json:"id"`
	Key       string    `json:"key"`
	Value     string    `json:"value"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type SettingInput struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}
