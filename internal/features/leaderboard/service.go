// Package leaderboard — service.go собирает рейтинг за месяц.
package leaderboard

import (
	"context"
	"time"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/kudos-bot/internal/features/channels"
	"serotonyl.ru/kudos-bot/internal/features/kudos"
	"serotonyl.ru/kudos-bot/internal/period"
)

// ChannelResolver находит ID канала по имени. Ошибки:
// common.ErrChannelNotFound и common.ErrChannelAccessDenied.
type ChannelResolver interface {
	ChannelIDByName(ctx context.Context, name string) (string, error)
}

// ActiveUsers отдаёт ID активных (не удалённых) пользователей воркспейса.
type ActiveUsers interface {
	ActiveUserIDs(ctx context.Context) (map[string]bool, error)
}

// ConfigResolver отдаёт действующие настройки канала.
type ConfigResolver interface {
	Effective(ctx context.Context, channelID string) (*channels.Effective, error)
}

// Request — запрос лидерборда из канала ChannelID.
type Request struct {
	ChannelID string
	UserID    string
	Text      string
}

// Board — готовый к рендеру рейтинг.
type Board struct {
	Params    Params
	Effective *channels.Effective
	Period    period.Period
	Senders   []kudos.Entry
	Receivers []kudos.Entry
	// Leaders — все отправители с максимумом kudos, без обрезки по limit.
	Leaders     []string
	LeaderCount int
}

// Service строит лидерборды.
type Service struct {
	store    Store
	channels ConfigResolver
	names    ChannelResolver
	active   ActiveUsers
	now      func() time.Time
}

// NewService создаёт сервис лидербордов. active может быть nil —
// тогда удалённые пользователи не отфильтровываются.
func NewService(store Store, resolver ConfigResolver, names ChannelResolver, active ActiveUsers) *Service {
	return &Service{
		store:    store,
		channels: resolver,
		names:    names,
		active:   active,
		now:      time.Now,
	}
}

// Build разбирает аргументы, находит канал, период и считает рейтинг.
// Ошибка поиска канала по имени прерывает построение: подставлять
// текущий канал нельзя.
func (s *Service) Build(ctx context.Context, req Request) (*Board, error) {
	params := ParseParams(req.Text)

	channelID := req.ChannelID
	switch {
	case params.ChannelID != "":
		channelID = params.ChannelID
	case params.ChannelName != "":
		id, err := s.names.ChannelIDByName(ctx, params.ChannelName)
		if err != nil {
			return nil, err
		}
		channelID = id
	}

	month, year := period.Parse(params.DateText)
	if err := params.Validate(month, year); err != nil {
		return nil, err
	}

	eff, err := s.channels.Effective(ctx, channelID)
	if err != nil {
		return nil, err
	}

	p, err := period.Resolve(month, year, eff.Now(s.now()))
	if err != nil {
		return nil, err
	}

	limit := eff.LeaderboardLimit
	if params.Complete {
		limit = 0
	}

	active := s.activeUsers(ctx)
	senders, err := s.ranking(ctx, kudos.RoleSender, p, eff.Group, 0, active)
	if err != nil {
		return nil, err
	}
	receivers, err := s.ranking(ctx, kudos.RoleReceiver, p, eff.Group, limit, active)
	if err != nil {
		return nil, err
	}

	// ничья за первое место может не влезть в limit
	leaders, leaderCount := TopSenders(senders)

	return &Board{
		Params:      params,
		Effective:   eff,
		Period:      p,
		Senders:     truncate(senders, limit),
		Receivers:   receivers,
		Leaders:     leaders,
		LeaderCount: leaderCount,
	}, nil
}

// Aggregate считает отправителей и получателей за период по каналам.
// limit == 0 — полный список. Порядок: по убыванию числа kudos,
// при равенстве по ID пользователя.
func (s *Service) Aggregate(ctx context.Context, p period.Period, channelIDs []string, limit int) (senders, receivers []kudos.Entry, err error) {
	active := s.activeUsers(ctx)
	senders, err = s.ranking(ctx, kudos.RoleSender, p, channelIDs, limit, active)
	if err != nil {
		return nil, nil, err
	}
	receivers, err = s.ranking(ctx, kudos.RoleReceiver, p, channelIDs, limit, active)
	if err != nil {
		return nil, nil, err
	}
	return senders, receivers, nil
}

// activeUsers: nil — фильтр не применяется.
func (s *Service) activeUsers(ctx context.Context) map[string]bool {
	if s.active == nil {
		return nil
	}
	active, err := s.active.ActiveUserIDs(ctx)
	if err != nil {
		// без фильтра лучше, чем без лидерборда
		log.WithError(err).Warn("Не удалось получить активных пользователей, фильтр пропущен")
		return nil
	}
	return active
}

// ranking — рейтинг одной роли. С фильтром берём всех и обрезаем после.
func (s *Service) ranking(ctx context.Context, role kudos.Role, p period.Period, channelIDs []string, limit int, active map[string]bool) ([]kudos.Entry, error) {
	storeLimit := limit
	if active != nil {
		storeLimit = 0
	}
	entries, err := s.store.Top(ctx, role, channelIDs, p.Start(), p.End(), storeLimit)
	if err != nil {
		return nil, err
	}
	if active != nil {
		entries = truncate(filterActive(entries, active), limit)
	}
	return entries, nil
}

func filterActive(entries []kudos.Entry, active map[string]bool) []kudos.Entry {
	out := make([]kudos.Entry, 0, len(entries))
	for _, e := range entries {
		if active[e.UserID] {
			out = append(out, e)
		}
	}
	return out
}

func truncate(entries []kudos.Entry, limit int) []kudos.Entry {
	if limit > 0 && len(entries) > limit {
		return entries[:limit]
	}
	return entries
}
