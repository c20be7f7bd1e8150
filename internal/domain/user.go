/**
 * @description
 * This file defines the identity models of the schoolfees-service: users, roles,
 * role assignments and refresh tokens, plus the request DTOs of the auth endpoints.
 */

package domain

import (
	"time"

	"github.com/google/uuid"
)

// Role names recognised by the role gate.
const (
	RoleSuperAdmin  = "super_admin"
	RoleAdmin       = "admin"
	RoleSchoolAdmin = "school_admin"
)

// DefaultRoles are seeded by the migrate command.
var DefaultRoles = []string{RoleSuperAdmin, RoleAdmin, RoleSchoolAdmin}

// User maps to the `users` table. HashedPassword is never serialised.
type User struct {
	ID             uuid.UUID  `json:"id"`
	FirstName      string     `json:"first_name"`
	LastName       string     `json:"last_name"`
	Email          string     `json:"email"`
	PhoneNumber    string     `json:"phone_number"`
	HashedPassword string     `json:"-"`
	RoleID         uuid.UUID  `json:"role_id"`
	SchoolID       *uuid.UUID `json:"school_id,omitempty"`
	Roles          []string   `json:"roles"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// HasRole reports whether the user holds the named role.
func (u *User) HasRole(role string) bool {
	if u == nil {
		return false
	}
	for _, r := range u.Roles {
		if r == role {
			return true
		}
	}
	return false
}

// SignupRequest is the DTO for POST /users/signup. It carries no role: public signups are
// always school admins, and other roles are granted through /user-roles.
type SignupRequest struct {
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	Email       string     `json:"email"`
	PhoneNumber string     `json:"phone_number"`
	Password    string     `json:"password"`
	SchoolID    *uuid.UUID `json:"school_id,omitempty"`
}

// NewUser is what the store persists for a signup; the password is already hashed.
type NewUser struct {
	FirstName      string
	LastName       string
	Email          string
	PhoneNumber    string
	HashedPassword string
	RoleName       string
	SchoolID       *uuid.UUID
}

// TokenPair is the result of a successful login.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"-"`
	TokenType    string `json:"token_type"`
}

type Role struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type RoleInput struct {
	Name string `json:"name"`
}

// UserRole is one live row of `user_roles`.
type UserRole struct {
	UserID    uuid.UUID `json:"user_id"`
	RoleID    uuid.UUID `json:"role_id"`
	RoleName  string    `json:"role_name"`
	CreatedAt time.Time `json:"created_at"`
}

// UserRoleAssignment assigns a role to a user by the role's name.
type UserRoleAssignment struct {
	UserID   uuid.UUID `json:"user_id"`
	RoleName string    `json:"role_name"`
}

// RefreshToken is the persisted refresh token; at most one per user is active.
type RefreshToken struct {
	ID        uuid.UUID
	Token     string
	UserID    uuid.UUID
	IsActive  bool
	CreatedAt time.Time
}
