// Package main — kudosctl, административная утилита: миграции, очистка
// старых kudos и отчёт о состоянии без запуска бота.
package main

import (
	"context"
	"fmt"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/kudos-bot/internal/app"
	"serotonyl.ru/kudos-bot/internal/config"
	"serotonyl.ru/kudos-bot/internal/db/memory"
	"serotonyl.ru/kudos-bot/internal/db/postgres"
)

// backend — открытое хранилище и способ его закрыть.
type backend struct {
	stores app.Stores
	// pool == nil для APP_STORE=memory
	pool  *pgxpool.Pool
	close func()
}

// opener открывает хранилище; в тестах подменяется памятью.
type opener func(ctx context.Context) (*backend, error)

func openFromEnv(ctx context.Context) (*backend, error) {
	cfg, err := config.LoadStorage()
	if err != nil {
		return nil, err
	}
	if level, err := log.ParseLevel(cfg.AppLogLevel); err == nil {
		log.SetLevel(level)
	}

	if cfg.AppStore == config.StoreMemory {
		log.Warn("APP_STORE=memory: kudosctl видит только пустое хранилище")
		return &backend{stores: app.MemoryStores(memory.New()), close: func() {}}, nil
	}

	pool, err := postgres.NewPool(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("ошибка подключения к БД: %w", err)
	}
	return &backend{stores: app.PostgresStores(pool), pool: pool, close: pool.Close}, nil
}

func main() {
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	// stdout занят результатом команды
	log.SetOutput(os.Stderr)
	log.SetLevel(log.InfoLevel)

	if err := newRootCmd(openFromEnv).Execute(); err != nil {
		os.Exit(1)
	}
}
