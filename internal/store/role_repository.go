package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/transfa/schoolfees-service/internal/domain"
)

const roleColumns = `id, name, created_at, updated_at`

func scanRole(row pgx.Row) (*domain.Role, error) {
	var role domain.Role
	if err := row.Scan(&role.ID, &role.Name, &role.CreatedAt, &role.UpdatedAt); err != nil {
		return nil, translateError(err)
	}
	return &role, nil
}

func (r *PostgresRepository) CreateRole(ctx context.Context, input domain.RoleInput) (*domain.Role, error) {
	query := `INSERT INTO roles (name) VALUES ($1) RETURNING ` + roleColumns
	return scanRole(r.db.QueryRow(ctx, query, strings.TrimSpace(input.Name)))
}

func (r *PostgresRepository) GetRole(ctx context.Context, id uuid.UUID) (*domain.Role, error) {
	query := `SELECT ` + roleColumns + ` FROM roles WHERE id = $1 AND ` + liveOnly
	return scanRole(r.db.QueryRow(ctx, query, id))
}

func (r *PostgresRepository) ListRoles(ctx context.Context) ([]domain.Role, error) {
	rows, err := r.db.Query(ctx, `SELECT `+roleColumns+` FROM roles WHERE `+liveOnly+` ORDER BY name`)
	if err != nil {
		return nil, translateError(err)
	}
	return collect(rows, scanRole)
}

func (r *PostgresRepository) UpdateRole(ctx context.Context, id uuid.UUID, input domain.RoleInput) (*domain.Role, error) {
	var b updateBuilder
	b.set("name", strings.TrimSpace(input.Name))
	query, args := b.build("roles", "id", id, roleColumns)
	return scanRole(r.db.QueryRow(ctx, query, args...))
}

func (r *PostgresRepository) DeleteRole(ctx context.Context, id uuid.UUID) error {
	return softDelete(ctx, r.db, "roles", "id", id)
}

// AssignUserRole grants a role by name. Re-assigning a revoked role revives the assignment.
func (r *PostgresRepository) AssignUserRole(ctx context.Context, assignment domain.UserRoleAssignment) (*domain.UserRole, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	roleID, err := roleIDByName(ctx, tx, assignment.RoleName)
	if err != nil {
		return nil, err
	}

	var ur domain.UserRole
	query := `
		INSERT INTO user_roles (user_id, role_id)
		VALUES ($1, $2)
		ON CONFLICT (user_id, role_id) DO UPDATE
			SET is_deleted = false, updated_at = NOW()
			WHERE user_roles.is_deleted = true
		RETURNING user_id, role_id, created_at
	`
	err = tx.QueryRow(ctx, query, assignment.UserID, roleID).Scan(&ur.UserID, &ur.RoleID, &ur.CreatedAt)
	if err != nil {
		// No row comes back when the assignment is already live.
		if translateError(err) == ErrNotFound {
			return nil, fmt.Errorf("%w: role %q already assigned", ErrAlreadyExists, assignment.RoleName)
		}
		return nil, translateError(err)
	}
	ur.RoleName = strings.TrimSpace(assignment.RoleName)

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit role assignment: %w", err)
	}
	return &ur, nil
}

func (r *PostgresRepository) ListUserRolesByRole(ctx context.Context, roleID uuid.UUID) ([]domain.UserRole, error) {
	query := `
		SELECT ur.user_id, ur.role_id, r.name, ur.created_at
		FROM user_roles ur JOIN roles r ON r.id = ur.role_id
		WHERE ur.role_id = $1 AND ur.is_deleted = false AND r.is_deleted = false
		ORDER BY ur.created_at
	`
	rows, err := r.db.Query(ctx, query, roleID)
	if err != nil {
		return nil, translateError(err)
	}
	return collect(rows, func(row pgx.Row) (*domain.UserRole, error) {
		var ur domain.UserRole
		if err := row.Scan(&ur.UserID, &ur.RoleID, &ur.RoleName, &ur.CreatedAt); err != nil {
			return nil, translateError(err)
		}
		return &ur, nil
	})
}

func (r *PostgresRepository) RevokeUserRole(ctx context.Context, userID, roleID uuid.UUID) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE user_roles SET is_deleted = true, updated_at = NOW() WHERE user_id = $1 AND role_id = $2 AND `+liveOnly,
		userID, roleID,
	)
	if err != nil {
		return translateError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
