package store

import (
	"context"
	_ "embed"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/transfa/schoolfees-service/internal/domain"
)

//go:embed schema.sql
var schemaSQL string

// Migrate applies the idempotent schema and seeds the default roles.
func Migrate(ctx context.Context, db *pgxpool.Pool) error {
	if _, err := db.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to apply schema: %w", err)
	}
	for _, name := range domain.DefaultRoles {
		_, err := db.Exec(ctx, `
			INSERT INTO roles (name)
			SELECT $1::text
			WHERE NOT EXISTS (SELECT 1 FROM roles WHERE name = $1::text AND is_deleted = false)
		`, name)
		if err != nil {
			return fmt.Errorf("failed to seed role %s: %w", name, err)
		}
	}
	return nil
}
