// Package channels — repository.go выполняет операции с таблицей channel_configs.
package channels

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Store — всё, что сервису настроек нужно от хранилища.
type Store interface {
	Get(ctx context.Context, channelID string) (*Config, error)
	Save(ctx context.Context, u Update) error
	Delete(ctx context.Context, channelID string) error
	// ListInheriting возвращает каналы, у которых leaderboard_channel_id = targetID.
	ListInheriting(ctx context.Context, targetID string) ([]string, error)
	List(ctx context.Context) ([]Config, error)
}

// Repository работает с таблицей channel_configs.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository создаёт репозиторий настроек каналов.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

const configColumns = `channel_id, personality_name, monthly_quota, leaderboard_limit,
	timezone, leaderboard_channel_id, created_at, updated_at`

func scanConfig(row pgx.Row) (*Config, error) {
	var c Config
	err := row.Scan(
		&c.ChannelID, &c.Personality, &c.MonthlyQuota, &c.LeaderboardLimit,
		&c.Timezone, &c.LeaderboardChannelID, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &c, nil
}

// Get возвращает настройки канала или nil, если их нет.
func (r *Repository) Get(ctx context.Context, channelID string) (*Config, error) {
	query := `SELECT ` + configColumns + ` FROM channel_configs WHERE channel_id = $1`
	c, err := scanConfig(r.db.QueryRow(ctx, query, channelID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("получение настроек канала %s: %w", channelID, err)
	}
	return c, nil
}

// Save делает частичный upsert: NULL в параметрах не затирает
// сохранённые значения. leaderboard_channel_id меняется только
// если передан явно ($7 = true); пустая строка его сбрасывает.
func (r *Repository) Save(ctx context.Context, u Update) error {
	setOverride := u.LeaderboardChannelID != nil
	var override *string
	if setOverride && *u.LeaderboardChannelID != "" {
		override = u.LeaderboardChannelID
	}

	query := `
		INSERT INTO channel_configs (
			channel_id, personality_name, monthly_quota, leaderboard_limit,
			timezone, leaderboard_channel_id
		)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (channel_id) DO UPDATE SET
			personality_name  = COALESCE(EXCLUDED.personality_name, channel_configs.personality_name),
			monthly_quota     = COALESCE(EXCLUDED.monthly_quota, channel_configs.monthly_quota),
			leaderboard_limit = COALESCE(EXCLUDED.leaderboard_limit, channel_configs.leaderboard_limit),
			timezone          = COALESCE(EXCLUDED.timezone, channel_configs.timezone),
			leaderboard_channel_id = CASE WHEN $7::boolean
				THEN EXCLUDED.leaderboard_channel_id
				ELSE channel_configs.leaderboard_channel_id END,
			updated_at = NOW()
	`
	_, err := r.db.Exec(ctx, query,
		u.ChannelID, u.Personality, u.MonthlyQuota, u.LeaderboardLimit,
		u.Timezone, override, setOverride,
	)
	if err != nil {
		return fmt.Errorf("сохранение настроек канала %s: %w", u.ChannelID, err)
	}
	return nil
}

// Delete удаляет настройки канала (сброс к значениям по умолчанию).
func (r *Repository) Delete(ctx context.Context, channelID string) error {
	_, err := r.db.Exec(ctx, `DELETE FROM channel_configs WHERE channel_id = $1`, channelID)
	if err != nil {
		return fmt.Errorf("удаление настроек канала %s: %w", channelID, err)
	}
	return nil
}

func (r *Repository) ListInheriting(ctx context.Context, targetID string) ([]string, error) {
	query := `
		SELECT channel_id FROM channel_configs
		WHERE leaderboard_channel_id = $1 AND channel_id <> $1
		ORDER BY channel_id
	`
	rows, err := r.db.Query(ctx, query, targetID)
	if err != nil {
		return nil, fmt.Errorf("поиск наследующих каналов: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("чтение наследующих каналов: %w", err)
	}
	return ids, nil
}

// List возвращает все настроенные каналы (для /kk status).
func (r *Repository) List(ctx context.Context) ([]Config, error) {
	rows, err := r.db.Query(ctx, `SELECT `+configColumns+` FROM channel_configs ORDER BY channel_id`)
	if err != nil {
		return nil, fmt.Errorf("список настроек каналов: %w", err)
	}
	defer rows.Close()

	var out []Config
	for rows.Next() {
		c, err := scanConfig(rows)
		if err != nil {
			return nil, fmt.Errorf("чтение настроек канала: %w", err)
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}
