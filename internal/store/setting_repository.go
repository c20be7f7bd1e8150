package store

import (
	"context"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/transfa/schoolfees-service/internal/domain"
)

const settingColumns = `id, key, value, created_at, updated_at`

func scanSetting(row pgx.Row) (*domain.Setting, error) {
	var s domain.Setting
	if err := row.Scan(&s.ID, &s.Key, &s.Value, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return nil, translateError(err)
	}
	return &s, nil
}

func (r *PostgresRepository) CreateSetting(ctx context.Context, input domain.SettingInput) (*domain.Setting, error) {
	query := `INSERT INTO settings (key, value) VALUES ($1, $2) RETURNING ` + settingColumns
	return scanSetting(r.db.QueryRow(ctx, query, strings.TrimSpace(input.Key), input.Value))
}

func (r *PostgresRepository) GetSetting(ctx context.Context, key string) (*domain.Setting, error) {
	query := `SELECT ` + settingColumns + ` FROM settings WHERE key = $1 AND ` + liveOnly
	return scanSetting(r.db.QueryRow(ctx, query, strings.TrimSpace(key)))
}

// ListSettings returns live settings whose key contains keyFilter (all when empty).
func (r *PostgresRepository) ListSettings(ctx context.Context, keyFilter string) ([]domain.Setting, error) {
	query := `SELECT ` + settingColumns + ` FROM settings WHERE ` + liveOnly + ` AND ($1 = '' OR key ILIKE $2 ESCAPE '\') ORDER BY key`
	rows, err := r.db.Query(ctx, query, strings.TrimSpace(keyFilter), containsPattern(keyFilter))
	if err != nil {
		return nil, translateError(err)
	}
	return collect(rows, scanSetting)
}

func (r *PostgresRepository) UpdateSetting(ctx context.Context, key, value string) (*domain.Setting, error) {
	var b updateBuilder
	b.set("value", value)
	query, args := b.build("settings", "key", strings.TrimSpace(key), settingColumns)
	return scanSetting(r.db.QueryRow(ctx, query, args...))
}

func (r *PostgresRepository) DeleteSetting(ctx context.Context, key string) error {
	return softDelete(ctx, r.db, "settings", "key", strings.TrimSpace(key))
}
