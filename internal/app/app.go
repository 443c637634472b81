// Package app инициализирует все компоненты приложения.
// app.go — точка сборки: создаёт хранилище, кэш, клиент Slack, сервисы,
// обработчики и собирает всё в HTTP-сервер и планировщик.
package app

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
	"github.com/slack-go/slack"

	"serotonyl.ru/kudos-bot/internal/bot"
	"serotonyl.ru/kudos-bot/internal/bot/filters"
	"serotonyl.ru/kudos-bot/internal/cache"
	"serotonyl.ru/kudos-bot/internal/common"
	"serotonyl.ru/kudos-bot/internal/config"
	"serotonyl.ru/kudos-bot/internal/db/memory"
	"serotonyl.ru/kudos-bot/internal/db/postgres"
	"serotonyl.ru/kudos-bot/internal/features/channels"
	"serotonyl.ru/kudos-bot/internal/features/kudos"
	"serotonyl.ru/kudos-bot/internal/features/leaderboard"
	"serotonyl.ru/kudos-bot/internal/features/status"
	"serotonyl.ru/kudos-bot/internal/jobs"
	"serotonyl.ru/kudos-bot/internal/personality"
)

// App содержит все компоненты приложения.
type App struct {
	Server    *bot.Server
	Bot       *bot.Bot
	Scheduler *jobs.Scheduler
	// DB == nil при APP_STORE=memory
	DB    *pgxpool.Pool
	Cache cache.Store
}

// Stores — хранилища всех фич.
type Stores struct {
	Kudos       kudos.Store
	Purger      kudos.Purger
	Leaderboard leaderboard.Store
	Channels    channels.Store
	Status      status.Store
}

// PostgresStores — репозитории поверх пула.
func PostgresStores(pool *pgxpool.Pool) Stores {
	kudosRepo := kudos.NewRepository(pool)
	return Stores{
		Kudos:       kudosRepo,
		Purger:      kudosRepo,
		Leaderboard: leaderboard.NewRepository(pool),
		Channels:    channels.NewRepository(pool),
		Status:      status.NewRepository(pool),
	}
}

// MemoryStores — всё в памяти процесса (данные теряются при рестарте).
func MemoryStores(store *memory.Store) Stores {
	return Stores{
		Kudos:       store,
		Purger:      store,
		Leaderboard: store,
		Channels:    store,
		Status:      store,
	}
}

// New создаёт и инициализирует приложение.
// Порядок инициализации важен — компоненты зависят друг от друга.
func New(ctx context.Context, cfg *config.Config) (*App, error) {
	a := &App{}

	// === 1. Хранилище ===
	var stores Stores
	switch cfg.AppStore {
	case config.StoreMemory:
		log.Warn("APP_STORE=memory: kudos не переживут перезапуск")
		stores = MemoryStores(memory.New())
	default:
		pool, err := postgres.NewPool(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("ошибка подключения к БД: %w", err)
		}
		a.DB = pool
		if _, err := postgres.Migrate(ctx, pool); err != nil {
			a.Close()
			return nil, fmt.Errorf("ошибка миграций: %w", err)
		}
		stores = PostgresStores(pool)
	}

	// === 2. Кэш справочника ===
	if cfg.RedisURL != "" {
		redisCache, err := cache.NewRedis(ctx, cfg.RedisURL)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("ошибка подключения к Redis: %w", err)
		}
		a.Cache = redisCache
	} else {
		a.Cache = cache.NewMemory()
	}

	// === 3. Персонажности ===
	var catalog *personality.Catalog
	var err error
	if cfg.PersonalityDir != "" {
		catalog, err = personality.LoadWithDir(cfg.PersonalityDir, cfg.DefaultPersonality)
	} else {
		catalog, err = personality.LoadBuiltin(cfg.DefaultPersonality)
	}
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("ошибка загрузки персонажностей: %w", err)
	}

	// === 4. Slack Web API ===
	api := slack.New(cfg.SlackBotToken, slack.OptionDebug(cfg.AppEnv == "development" && cfg.AppLogLevel == "trace"))
	directory := bot.NewDirectory(api, a.Cache, cfg.DirectoryCacheTTL)
	botUserID, err := directory.BotUserID(ctx)
	if err != nil {
		a.Close()
		return nil, fmt.Errorf("ошибка авторизации в Slack: %w", err)
	}
	log.Infof("Авторизован как %s", common.UserMention(botUserID))

	replier := bot.NewReplier(api)
	modals := bot.NewModals(api, catalog)

	// === 5. Сервисы ===
	channelService := channels.NewService(stores.Channels, cfg.ChannelDefaults(), catalog)
	ledger := kudos.NewLedger(stores.Kudos, channelService)
	kudosService := kudos.NewService(stores.Kudos, ledger, channelService, directory)
	leaderboardService := leaderboard.NewService(stores.Leaderboard, channelService, directory, directory)
	statusService := status.NewService(stores.Status, channelService)

	// === 6. Обработчики ===
	handlers := bot.Handlers{
		Kudos:       kudos.NewHandler(kudosService, channelService, catalog, replier),
		Leaderboard: leaderboard.NewHandler(leaderboardService, catalog, replier),
		Channels:    channels.NewHandler(channelService, catalog, replier, modals),
		Status:      status.NewHandler(statusService, channelService, catalog, replier, cfg.BotVersion),
	}

	// === 7. Собираем бота и HTTP-сервер ===
	teamFilter := filters.NewTeamFilter(cfg.SlackTeamID)
	a.Bot = bot.New(cfg, handlers, teamFilter, replier, catalog)
	a.Server = bot.NewServer(bot.ServerDeps{
		Bot:           a.Bot,
		Modals:        modals,
		Channels:      handlers.Channels,
		Status:        handlers.Status,
		Replier:       replier,
		Filter:        teamFilter,
		SigningSecret: cfg.SlackSigningSecret,
	})

	// === 8. Планировщик задач ===
	loc, err := common.LoadLocation(cfg.AppTimezone)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.Scheduler = jobs.NewScheduler(loc, directory, stores.Purger, cfg.RetentionMonths)

	return a, nil
}

// Close освобождает ресурсы: бот, кэш, пул БД.
func (a *App) Close() {
	if a.Bot != nil {
		a.Bot.Close()
	}
	if a.Cache != nil {
		if err := a.Cache.Close(); err != nil {
			log.WithError(err).Warn("Ошибка закрытия кэша")
		}
	}
	if a.DB != nil {
		a.DB.Close()
	}
}
