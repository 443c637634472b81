package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
)

// Migration — одна версия схемы.
type Migration struct {
	Version int
	Name    string
	SQL     string
}

// Migrate применяет все миграции по порядку. Возвращает число
// применённых в этот раз.
func Migrate(ctx context.Context, pool *pgxpool.Pool) (int, error) {
	if err := EnsureMigrationsTable(ctx, pool); err != nil {
		return 0, err
	}

	applied := 0
	for _, m := range Migrations {
		ok, err := ExecMigrationSQL(ctx, pool, m.Version, m.SQL)
		if err != nil {
			return applied, fmt.Errorf("миграция %d (%s): %w", m.Version, m.Name, err)
		}
		if ok {
			applied++
			log.WithFields(log.Fields{"version": m.Version, "name": m.Name}).Info("Миграция применена")
		}
	}
	return applied, nil
}

// ExecMigrationSQL выполняет одну миграцию в транзакции и записывает
// её версию в schema_migrations. Уже применённая миграция пропускается
// (applied == false).
func ExecMigrationSQL(ctx context.Context, pool *pgxpool.Pool, version int, sql string) (applied bool, err error) {
	tx, err := pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("ошибка начала транзакции: %w", err)
	}
	defer tx.Rollback(ctx)

	var exists bool
	err = tx.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = $1)", version,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("ошибка проверки миграции: %w", err)
	}
	if exists {
		return false, nil
	}

	if _, err := tx.Exec(ctx, sql); err != nil {
		return false, fmt.Errorf("ошибка выполнения миграции %d: %w", version, err)
	}

	if _, err := tx.Exec(ctx,
		"INSERT INTO schema_migrations (version) VALUES ($1)", version,
	); err != nil {
		return false, fmt.Errorf("ошибка записи версии миграции: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("ошибка фиксации миграции %d: %w", version, err)
	}
	return true, nil
}
