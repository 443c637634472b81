// Package bot — транспорт Slack: HTTP-сервер для слэш-команд,
// интерактивов и событий, маршрутизация /kk и справочник воркспейса.
// bot.go принимает уже разобранные команды и раздаёт их обработчикам.
package bot

import (
	"context"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/kudos-bot/internal/bot/filters"
	"serotonyl.ru/kudos-bot/internal/bot/middleware"
	"serotonyl.ru/kudos-bot/internal/common"
	"serotonyl.ru/kudos-bot/internal/config"
	"serotonyl.ru/kudos-bot/internal/features/channels"
	"serotonyl.ru/kudos-bot/internal/features/kudos"
	"serotonyl.ru/kudos-bot/internal/features/leaderboard"
	"serotonyl.ru/kudos-bot/internal/features/status"
	"serotonyl.ru/kudos-bot/internal/personality"
)

// Handlers — обработчики фич, между которыми выбирает маршрутизатор.
type Handlers struct {
	Kudos       *kudos.Handler
	Leaderboard *leaderboard.Handler
	Channels    *channels.Handler
	Status      *status.Handler
}

// Bot — главная структура бота, объединяющая все компоненты.
type Bot struct {
	handlers Handlers
	filter   *filters.TeamFilter
	replier  common.Replier
	renderer personality.Renderer

	rateLimiter *middleware.RateLimiter
	timeout     time.Duration

	// ограничитель параллелизма обработки команд
	inflight chan struct{}
	wg       sync.WaitGroup
}

// New создаёт бота.
func New(
	cfg *config.Config,
	handlers Handlers,
	filter *filters.TeamFilter,
	replier common.Replier,
	renderer personality.Renderer,
) *Bot {
	maxInFlight := cfg.BotMaxInflight
	if maxInFlight <= 0 {
		maxInFlight = 64
	}
	timeout := cfg.BotCommandTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &Bot{
		handlers:    handlers,
		filter:      filter,
		replier:     replier,
		renderer:    renderer,
		rateLimiter: middleware.NewRateLimiter(cfg.RateLimitRequests, cfg.RateLimitWindow),
		timeout:     timeout,
		inflight:    make(chan struct{}, maxInFlight),
	}
}

// Dispatch обрабатывает команду в фоне: Slack ждёт ответа на HTTP
// не больше 3 секунд, а ответ пользователю уходит через response_url.
func (b *Bot) Dispatch(ctx context.Context, cmd *common.Command) {
	b.Go(ctx, cmd.RequestID, func(ctx context.Context) {
		b.Handle(ctx, cmd)
	})
}

// Go запускает фоновую работу под общим лимитом параллелизма.
// Работа не отменяется вместе с ctx, только по таймауту: ctx лишь
// не даёт начать новую, когда бот останавливается.
func (b *Bot) Go(ctx context.Context, requestID string, fn func(ctx context.Context)) {
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		defer middleware.RecoverFromPanic()

		// лимит параллелизма
		select {
		case b.inflight <- struct{}{}:
		case <-ctx.Done():
			log.WithField("request_id", requestID).Warn("Запрос отброшен: бот останавливается")
			return
		}
		defer func() { <-b.inflight }()

		workCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), b.timeout)
		defer cancel()
		fn(workCtx)
	}()
}

// Handle обрабатывает одну команду синхронно.
func (b *Bot) Handle(ctx context.Context, cmd *common.Command) {
	defer middleware.RecoverFromPanic()

	middleware.LogCommand(cmd)

	if !b.filter.CheckAccess(cmd) {
		return
	}

	if !b.rateLimiter.Allow(cmd.UserID) {
		log.WithFields(log.Fields{
			"request_id": cmd.RequestID,
			"user_id":    cmd.UserID,
		}).Info("rate limited")
		if err := b.replier.Reply(ctx, cmd, b.renderer.Render("", "errors.rate_limited", nil)); err != nil {
			log.WithError(err).WithField("request_id", cmd.RequestID).Warn("Ошибка отправки ответа")
		}
		return
	}

	route, args := ParseCommand(cmd.Text)
	log.WithFields(log.Fields{
		"request_id": cmd.RequestID,
		"route":      route,
		"args":       args,
	}).Debug("routing command")

	routed := *cmd
	routed.Text = args
	b.route(ctx, route, &routed)
}

// route маршрутизирует команду к нужному обработчику.
func (b *Bot) route(ctx context.Context, route Route, cmd *common.Command) {
	switch route {
	case RouteLeaderboard:
		b.handlers.Leaderboard.HandleLeaderboard(ctx, cmd)
	case RouteStats:
		b.handlers.Kudos.HandleStats(ctx, cmd)
	case RouteHelp:
		b.handlers.Status.HandleHelp(ctx, cmd)
	case RouteConfigShow:
		b.handlers.Channels.HandleShow(ctx, cmd)
	case RouteConfigEdit:
		b.handlers.Channels.HandleEdit(ctx, cmd)
	case RouteConfigDefault:
		b.handlers.Channels.HandleReset(ctx, cmd)
	case RouteStatus:
		b.handlers.Status.HandleStatus(ctx, cmd)
	case RouteVersion:
		b.handlers.Status.HandleVersion(ctx, cmd)
	default:
		b.handlers.Kudos.HandleGive(ctx, cmd)
	}
}

// Wait ждёт завершения всех команд в работе.
func (b *Bot) Wait() {
	b.wg.Wait()
}

// Close останавливает фоновые горутины бота.
func (b *Bot) Close() {
	b.rateLimiter.Close()
}
