// Package leaderboard — repository.go агрегирует таблицу kudos.
package leaderboard

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"serotonyl.ru/kudos-bot/internal/features/kudos"
)

// Store считает рейтинг. limit == 0 — без ограничения.
type Store interface {
	Top(ctx context.Context, role kudos.Role, channelIDs []string, from, to time.Time, limit int) ([]kudos.Entry, error)
}

// Repository строит рейтинг запросом к PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт репозиторий рейтинга.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Top(ctx context.Context, role kudos.Role, channelIDs []string, from, to time.Time, limit int) ([]kudos.Entry, error) {
	col := role.Column()
	query := `
		SELECT ` + col + ` AS user_id, COUNT(*)::int AS count
		FROM kudos
		WHERE channel_id = ANY($1)
		  AND created_at >= $2 AND created_at < $3
		GROUP BY ` + col + `
		ORDER BY count DESC, user_id ASC
	`
	args := []any{channelIDs, from, to}
	if limit > 0 {
		query += ` LIMIT $4`
		args = append(args, limit)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("рейтинг (%s): %w", role, err)
	}
	entries, err := pgx.CollectRows(rows, pgx.RowToStructByName[kudos.Entry])
	if err != nil {
		return nil, fmt.Errorf("чтение рейтинга (%s): %w", role, err)
	}
	return entries, nil
}
