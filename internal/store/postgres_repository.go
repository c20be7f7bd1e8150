/**
 * @description
 * This file provides the PostgreSQL implementation of the `Repository` interface and
 * the helpers shared by every entity file: the live-row predicate, soft delete, and a
 * builder for partial updates.
 *
 * @dependencies
 * - github.com/jackc/pgx/v5: The PostgreSQL driver for database operations.
 */

package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// liveOnly is appended to every read so soft-deleted rows are never returned.
const liveOnly = "is_deleted = false"

// likeEscaper escapes LIKE wildcards so user filters match literally. Queries pair it with ESCAPE '\'.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern turns a filter into a substring pattern for ILIKE.
func containsPattern(filter string) string {
	return "%" + likeEscaper.Replace(strings.TrimSpace(filter)) + "%"
}

// querier is satisfied by both the pool and a pgx.Tx.
type querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

// PostgresRepository is a concrete implementation of the Repository interface for PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository creates a new instance of PostgresRepository.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// softDelete flags one live row as deleted. A row that is missing or already deleted yields ErrNotFound.
func softDelete(ctx context.Context, q querier, table, keyColumn string, key interface{}) error {
	query := fmt.Sprintf(`UPDATE %s SET is_deleted = true, updated_at = NOW() WHERE %s = $1 AND %s`, table, keyColumn, liveOnly)
	tag, err := q.Exec(ctx, query, key)
	if err != nil {
		return translateError(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// updateBuilder collects the SET clauses of a partial update.
type updateBuilder struct {
	sets []string
	args []interface{}
}

func (b *updateBuilder) set(column string, value interface{}) {
	b.setCast(column, value, "")
}

func (b *updateBuilder) setCast(column string, value interface{}, cast string) {
	b.args = append(b.args, value)
	b.sets = append(b.sets, fmt.Sprintf("%s = $%d%s", column, len(b.args), cast))
}

func (b *updateBuilder) empty() bool {
	return len(b.sets) == 0
}

// build renders `UPDATE table SET ... WHERE keyColumn = $n AND is_deleted = false RETURNING returning`.
func (b *updateBuilder) build(table, keyColumn string, key interface{}, returning string) (string, []interface{}) {
	args := append(b.args, key)
	query := fmt.Sprintf(`UPDATE %s SET %s, updated_at = NOW() WHERE %s = $%d AND %s RETURNING %s`,
		table, strings.Join(b.sets, ", "), keyColumn, len(args), liveOnly, returning)
	return query, args
}

// collect scans every row with scan and closes rows.
func collect[T any](rows pgx.Rows, scan func(pgx.Row) (*T, error)) ([]T, error) {
	defer rows.Close()
	items := make([]T, 0)
	for rows.Next() {
		item, err := scan(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *item)
	}
	if err := rows.Err(); err != nil {
		return nil, translateError(err)
	}
	return items, nil
}
