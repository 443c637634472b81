// Package kudos — repository.go выполняет операции с таблицей kudos.
package kudos

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Store — операции с событиями kudos, нужные сервису.
type Store interface {
	Record(ctx context.Context, e Event) error
	// Count считает события пользователя в роли role по каналам channelIDs
	// в полуинтервале [from, to). Нулевое время — без ограничения.
	Count(ctx context.Context, role Role, userID string, channelIDs []string, from, to time.Time) (int, error)
}

// Purger удаляет старые события (kudosctl purge и задача очистки).
type Purger interface {
	// Purge удаляет события до before; channelID == "" — во всех каналах.
	Purge(ctx context.Context, before time.Time, channelID string) (int64, error)
	CountBefore(ctx context.Context, before time.Time, channelID string) (int64, error)
}

// Repository работает с таблицей kudos.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт репозиторий kudos.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// Record записывает одно событие. created_at ставит база.
func (r *Repository) Record(ctx context.Context, e Event) error {
	query := `INSERT INTO kudos (sender, receiver, channel_id) VALUES ($1, $2, $3)`
	if _, err := r.db.Exec(ctx, query, e.Sender, e.Receiver, e.ChannelID); err != nil {
		return fmt.Errorf("запись kudos %s → %s: %w", e.Sender, e.Receiver, err)
	}
	return nil
}

func (r *Repository) Count(ctx context.Context, role Role, userID string, channelIDs []string, from, to time.Time) (int, error) {
	// role.Column() возвращает только одну из двух констант
	query := `
		SELECT COUNT(*) FROM kudos
		WHERE ` + role.Column() + ` = $1
		  AND channel_id = ANY($2)
		  AND ($3::timestamptz IS NULL OR created_at >= $3)
		  AND ($4::timestamptz IS NULL OR created_at < $4)
	`
	var count int
	err := r.db.QueryRow(ctx, query, userID, channelIDs, NullTime(from), NullTime(to)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("подсчёт kudos (%s %s): %w", role, userID, err)
	}
	return count, nil
}

func (r *Repository) Purge(ctx context.Context, before time.Time, channelID string) (int64, error) {
	query := `DELETE FROM kudos WHERE created_at < $1 AND ($2 = '' OR channel_id = $2)`
	tag, err := r.db.Exec(ctx, query, before, channelID)
	if err != nil {
		return 0, fmt.Errorf("удаление старых kudos: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (r *Repository) CountBefore(ctx context.Context, before time.Time, channelID string) (int64, error) {
	query := `SELECT COUNT(*) FROM kudos WHERE created_at < $1 AND ($2 = '' OR channel_id = $2)`
	var n int64
	if err := r.db.QueryRow(ctx, query, before, channelID).Scan(&n); err != nil {
		return 0, fmt.Errorf("подсчёт старых kudos: %w", err)
	}
	return n, nil
}

// NullTime превращает нулевое время в NULL для SQL.
func NullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}
