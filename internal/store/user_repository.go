package store

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/transfa/schoolfees-service/internal/domain"
)

const userColumns = `id, first_name, last_name, email, phone_number, hashed_password, role_id, school_id, created_at, updated_at`

// CreateUser inserts a user with the role named in the request. Email is stored lowercased.
func (r *PostgresRepository) CreateUser(ctx context.Context, input domain.NewUser) (*domain.User, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	roleID, err := roleIDByName(ctx, tx, input.RoleName)
	if err != nil {
		return nil, err
	}

	query := `
		INSERT INTO users (first_name, last_name, email, phone_number, hashed_password, role_id, school_id)
		VALUES ($1, $2, lower(btrim($3)), $4, $5, $6, $7)
		RETURNING ` + userColumns
	user, err := scanUser(tx.QueryRow(ctx, query,
		input.FirstName, input.LastName, input.Email, input.PhoneNumber, input.HashedPassword, roleID, input.SchoolID,
	))
	if err != nil {
		return nil, err
	}
	if user.Roles, err = loadRoleNames(ctx, tx, user.ID); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit user creation: %w", err)
	}
	return user, nil
}

// GetUserByID returns a live user with its full role set.
func (r *PostgresRepository) GetUserByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 AND ` + liveOnly
	return r.getUser(ctx, query, id)
}

// GetUserByEmail looks a live user up case-insensitively.
func (r *PostgresRepository) GetUserByEmail(ctx context.Context, email string) (*domain.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = lower(btrim($1)) AND ` + liveOnly
	return r.getUser(ctx, query, email)
}

func (r *PostgresRepository) getUser(ctx context.Context, query string, arg interface{}) (*domain.User, error) {
	user, err := scanUser(r.db.QueryRow(ctx, query, arg))
	if err != nil {
		return nil, err
	}
	if user.Roles, err = loadRoleNames(ctx, r.db, user.ID); err != nil {
		return nil, err
	}
	return user, nil
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var user domain.User
	err := row.Scan(
		&user.ID,
		&user.FirstName,
		&user.LastName,
		&user.Email,
		&user.PhoneNumber,
		&user.HashedPassword,
		&user.RoleID,
		&user.SchoolID,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		return nil, translateError(err)
	}
	return &user, nil
}

// loadRoleNames returns the user's primary role plus every live role assignment.
func loadRoleNames(ctx context.Context, q querier, userID uuid.UUID) ([]string, error) {
	query := `
		SELECT r.name FROM users u JOIN roles r ON r.id = u.role_id
		WHERE u.id = $1 AND r.is_deleted = false
		UNION
		SELECT r.name FROM user_roles ur JOIN roles r ON r.id = ur.role_id
		WHERE ur.user_id = $1 AND ur.is_deleted = false AND r.is_deleted = false
		ORDER BY 1
	`
	rows, err := q.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load roles: %w", err)
	}
	defer rows.Close()

	roles := make([]string, 0, 2)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan role: %w", err)
		}
		roles = append(roles, name)
	}
	return roles, rows.Err()
}

func roleIDByName(ctx context.Context, q querier, name string) (uuid.UUID, error) {
	var id uuid.UUID
	err := q.QueryRow(ctx, `SELECT id FROM roles WHERE name = $1 AND `+liveOnly, strings.TrimSpace(name)).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return uuid.Nil, fmt.Errorf("%w: unknown role %q", ErrInvalidData, name)
		}
		return uuid.Nil, translateError(err)
	}
	return id, nil
}

// ReplaceActiveRefreshToken deactivates every active token of the user and stores the new one.
func (r *PostgresRepository) ReplaceActiveRefreshToken(ctx context.Context, userID uuid.UUID, token string) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `UPDATE refresh_tokens SET is_active = false, updated_at = NOW() WHERE user_id = $1 AND is_active = true`, userID); err != nil {
		return fmt.Errorf("failed to deactivate refresh tokens: %w", translateError(err))
	}
	if _, err := tx.Exec(ctx, `INSERT INTO refresh_tokens (token, user_id, is_active) VALUES ($1, $2, true)`, token, userID); err != nil {
		return fmt.Errorf("failed to store refresh token: %w", translateError(err))
	}
	return tx.Commit(ctx)
}

// GetActiveRefreshToken returns the user's single active token or ErrNotFound.
func (r *PostgresRepository) GetActiveRefreshToken(ctx context.Context, userID uuid.UUID) (*domain.RefreshToken, error) {
	var token domain.RefreshToken
	query := `
		SELECT id, token, user_id, is_active, created_at
		FROM refresh_tokens
		WHERE user_id = $1 AND is_active = true AND ` + liveOnly + `
		ORDER BY created_at DESC
		LIMIT 1
	`
	err := r.db.QueryRow(ctx, query, userID).Scan(&token.ID, &token.Token, &token.UserID, &token.IsActive, &token.CreatedAt)
	if err != nil {
		return nil, translateError(err)
	}
	return &token, nil
}

// DeactivateRefreshTokens ends every session of the user.
func (r *PostgresRepository) DeactivateRefreshTokens(ctx context.Context, userID uuid.UUID) error {
	_, err := r.db.Exec(ctx, `UPDATE refresh_tokens SET is_active = false, updated_at = NOW() WHERE user_id = $1 AND is_active = true`, userID)
	if err != nil {
		return fmt.Errorf("failed to deactivate refresh tokens: %w", translateError(err))
	}
	return nil
}

// PurgeRefreshTokens hard-deletes inactive or deleted tokens last touched before olderThan.
func (r *PostgresRepository) PurgeRefreshTokens(ctx context.Context, olderThan time.Time) (int64, error) {
	tag, err := r.db.Exec(ctx, `
		DELETE FROM refresh_tokens
		WHERE (is_active = false OR is_deleted = true) AND updated_at < $1
	`, olderThan)
	if err != nil {
		return 0, fmt.Errorf("failed to purge refresh tokens: %w", err)
	}
	return tag.RowsAffected(), nil
}
