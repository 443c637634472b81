// Package status — repository.go читает сводку из таблицы kudos.
package status

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"serotonyl.ru/kudos-bot/internal/features/kudos"
)

// Store — сводные запросы для отчёта.
type Store interface {
	ActiveChannels(ctx context.Context) ([]string, error)
	// LastKudos возвращает последнее событие или nil, если их нет.
	LastKudos(ctx context.Context) (*kudos.Event, error)
	TotalKudos(ctx context.Context) (int64, error)
}

// Repository — сводка по PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт репозиторий статуса.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

func (r *Repository) ActiveChannels(ctx context.Context) ([]string, error) {
	rows, err := r.db.Query(ctx, `SELECT DISTINCT channel_id FROM kudos ORDER BY channel_id`)
	if err != nil {
		return nil, fmt.Errorf("активные каналы: %w", err)
	}
	return pgx.CollectRows(rows, pgx.RowTo[string])
}

func (r *Repository) LastKudos(ctx context.Context) (*kudos.Event, error) {
	query := `
		SELECT id, sender, receiver, channel_id, created_at
		FROM kudos ORDER BY created_at DESC, id DESC LIMIT 1
	`
	var e kudos.Event
	err := r.db.QueryRow(ctx, query).Scan(&e.ID, &e.Sender, &e.Receiver, &e.ChannelID, &e.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("последние kudos: %w", err)
	}
	return &e, nil
}

func (r *Repository) TotalKudos(ctx context.Context) (int64, error) {
	var n int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM kudos`).Scan(&n); err != nil {
		return 0, fmt.Errorf("общее число kudos: %w", err)
	}
	return n, nil
}
