// Package status собирает отчёт /kk status: активные каналы,
// последние kudos, общее число и настроенные каналы.
package status

import (
	"context"
	"sort"
	"time"

	"serotonyl.ru/kudos-bot/internal/features/channels"
	"serotonyl.ru/kudos-bot/internal/features/kudos"
)

// ConfigLister отдаёт все сохранённые настройки каналов.
type ConfigLister interface {
	List(ctx context.Context) ([]channels.Config, error)
}

// Report — состояние бота.
type Report struct {
	CheckedAt      time.Time
	ActiveChannels []string
	Last           *kudos.Event
	Total          int64
	Configs        []channels.Config
}

// Service строит отчёт о состоянии.
type Service struct {
	store   Store
	configs ConfigLister
	now     func() time.Time
}

// NewService создаёт сервис статуса.
func NewService(store Store, configs ConfigLister) *Service {
	return &Service{store: store, configs: configs, now: time.Now}
}

// Report: активными считаются каналы, где были kudos или есть настройки.
func (s *Service) Report(ctx context.Context) (*Report, error) {
	kudosChannels, err := s.store.ActiveChannels(ctx)
	if err != nil {
		return nil, err
	}
	last, err := s.store.LastKudos(ctx)
	if err != nil {
		return nil, err
	}
	total, err := s.store.TotalKudos(ctx)
	if err != nil {
		return nil, err
	}
	configs, err := s.configs.List(ctx)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]bool)
	var active []string
	for _, id := range kudosChannels {
		if !seen[id] {
			seen[id] = true
			active = append(active, id)
		}
	}
	for _, c := range configs {
		if !seen[c.ChannelID] {
			seen[c.ChannelID] = true
			active = append(active, c.ChannelID)
		}
	}
	sort.Strings(active)

	return &Report{
		CheckedAt:      s.now().UTC(),
		ActiveChannels: active,
		Last:           last,
		Total:          total,
		Configs:        configs,
	}, nil
}
