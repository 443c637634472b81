// Package channels — service.go вычисляет действующие настройки канала.
package channels

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"time"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/kudos-bot/internal/common"
	"serotonyl.ru/kudos-bot/internal/config"
	"serotonyl.ru/kudos-bot/internal/period"
)

// channelIDPattern — ID каналов Slack: C…, G… (приватные), D… (личка).
var channelIDPattern = regexp.MustCompile(`^[CGD][A-Z0-9]{2,}$`)

// ValidChannelID проверяет формат ID канала.
func ValidChannelID(id string) bool {
	return channelIDPattern.MatchString(id)
}

// PersonalityChecker сообщает, есть ли персонажность с таким именем.
type PersonalityChecker interface {
	Has(name string) bool
}

// Service управляет настройками каналов.
type Service struct {
	store         Store
	defaults      config.Defaults
	personalities PersonalityChecker
	now           func() time.Time
}

// NewService создаёт сервис настроек.
func NewService(store Store, defaults config.Defaults, personalities PersonalityChecker) *Service {
	return &Service{
		store:         store,
		defaults:      defaults,
		personalities: personalities,
		now:           time.Now,
	}
}

// Defaults — глобальные значения.
func (s *Service) Defaults() config.Defaults {
	return s.defaults
}

// Raw возвращает сохранённые настройки канала как есть (nil, если их нет).
func (s *Service) Raw(ctx context.Context, channelID string) (*Config, error) {
	return s.store.Get(ctx, channelID)
}

// Effective вычисляет действующие настройки канала.
//
// Если у канала задан leaderboard_channel_id, все остальные его поля
// игнорируются: значения берутся из настроек целевого канала (ровно один
// шаг, ссылку цели дальше не разворачиваем). Каждое незаданное поле
// падает на глобальное значение по умолчанию.
func (s *Service) Effective(ctx context.Context, channelID string) (*Effective, error) {
	raw, err := s.store.Get(ctx, channelID)
	if err != nil {
		return nil, err
	}

	eff := &Effective{ChannelID: channelID, LeaderboardChannelID: channelID}
	source := raw
	if target, ok := raw.Override(); ok {
		eff.LeaderboardChannelID = target
		eff.Inherited = true
		source, err = s.store.Get(ctx, target)
		if err != nil {
			return nil, err
		}
	}

	s.apply(eff, source)

	eff.Group, err = s.group(ctx, eff.LeaderboardChannelID)
	if err != nil {
		return nil, err
	}
	return eff, nil
}

// apply заполняет поля из source, по одному падая на значения по умолчанию.
func (s *Service) apply(eff *Effective, source *Config) {
	eff.Personality = s.defaults.Personality
	eff.MonthlyQuota = s.defaults.MonthlyQuota
	eff.LeaderboardLimit = s.defaults.LeaderboardLimit
	eff.Timezone = s.defaults.Timezone

	if source != nil {
		if source.Personality != nil && *source.Personality != "" {
			eff.Personality = *source.Personality
		}
		if source.MonthlyQuota != nil && *source.MonthlyQuota > 0 {
			eff.MonthlyQuota = *source.MonthlyQuota
		}
		if source.LeaderboardLimit != nil && *source.LeaderboardLimit > 0 {
			eff.LeaderboardLimit = *source.LeaderboardLimit
		}
		if source.Timezone != nil && *source.Timezone != "" {
			eff.Timezone = *source.Timezone
		}
	}

	loc, err := common.LoadLocation(eff.Timezone)
	if err != nil {
		log.WithError(err).WithFields(log.Fields{
			"channel_id": eff.ChannelID,
			"timezone":   eff.Timezone,
		}).Warn("Некорректный часовой пояс в настройках, используем значение по умолчанию")
		eff.Timezone = s.defaults.Timezone
		loc, err = common.LoadLocation(eff.Timezone)
		if err != nil {
			loc = time.UTC
			eff.Timezone = "UTC"
		}
	}
	eff.Location = loc
}

// group: действующий канал первым, затем наследующие по алфавиту, без повторов.
func (s *Service) group(ctx context.Context, leaderboardChannelID string) ([]string, error) {
	inheriting, err := s.store.ListInheriting(ctx, leaderboardChannelID)
	if err != nil {
		return nil, err
	}
	sort.Strings(inheriting)

	out := []string{leaderboardChannelID}
	seen := map[string]bool{leaderboardChannelID: true}
	for _, id := range inheriting {
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out, nil
}

// SharedChannels возвращает каналы общего лидерборда для channelID.
func (s *Service) SharedChannels(ctx context.Context, channelID string) ([]string, error) {
	eff, err := s.Effective(ctx, channelID)
	if err != nil {
		return nil, err
	}
	return eff.Group, nil
}

// CurrentPeriod — текущий месяц в часовом поясе канала.
func (s *Service) CurrentPeriod(ctx context.Context, channelID string) (period.Period, error) {
	eff, err := s.Effective(ctx, channelID)
	if err != nil {
		return period.Period{}, err
	}
	return period.Current(eff.Now(s.now())), nil
}

// Save проверяет и сохраняет частичное обновление настроек.
func (s *Service) Save(ctx context.Context, u Update) (*Effective, error) {
	if err := s.validate(u); err != nil {
		return nil, err
	}
	if err := s.store.Save(ctx, u); err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"channel_id": u.ChannelID,
	}).Info("Настройки канала сохранены")
	return s.Effective(ctx, u.ChannelID)
}

func (s *Service) validate(u Update) error {
	if !channelIDPattern.MatchString(u.ChannelID) {
		return fmt.Errorf("%w: %q", common.ErrInvalidChannelID, u.ChannelID)
	}
	if u.MonthlyQuota != nil && *u.MonthlyQuota < 1 {
		return common.ErrInvalidQuota
	}
	if u.LeaderboardLimit != nil && *u.LeaderboardLimit < 1 {
		return common.ErrInvalidLimit
	}
	if u.Personality != nil && s.personalities != nil && !s.personalities.Has(*u.Personality) {
		return fmt.Errorf("%w: %q", common.ErrUnknownPersonality, *u.Personality)
	}
	if u.Timezone != nil {
		if _, err := common.LoadLocation(*u.Timezone); err != nil {
			return err
		}
	}
	if u.LeaderboardChannelID != nil && *u.LeaderboardChannelID != "" {
		target := *u.LeaderboardChannelID
		if target == u.ChannelID {
			return common.ErrSelfOverride
		}
		if !channelIDPattern.MatchString(target) {
			return fmt.Errorf("%w: %q", common.ErrInvalidChannelID, target)
		}
	}
	return nil
}

// Reset удаляет настройки канала.
func (s *Service) Reset(ctx context.Context, channelID string) error {
	if err := s.store.Delete(ctx, channelID); err != nil {
		return err
	}
	log.WithField("channel_id", channelID).Info("Настройки канала сброшены")
	return nil
}

// List возвращает все настроенные каналы.
func (s *Service) List(ctx context.Context) ([]Config, error) {
	return s.store.List(ctx)
}
