// Package memory — хранилище в памяти процесса. Используется для
// локального запуска без PostgreSQL (APP_STORE=memory) и в тестах.
// Реализует те же интерфейсы, что и репозитории фич.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"serotonyl.ru/kudos-bot/internal/features/channels"
	"serotonyl.ru/kudos-bot/internal/features/kudos"
)

// Store хранит события kudos и настройки каналов.
type Store struct {
	mu      sync.RWMutex
	events  []kudos.Event
	configs map[string]*channels.Config
	nextID  int64
	now     func() time.Time
}

// New создаёт пустое хранилище.
func New() *Store {
	return &Store{
		configs: make(map[string]*channels.Config),
		now:     time.Now,
	}
}

// WithClock подменяет источник времени для created_at.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// --- kudos ---

func (s *Store) Record(_ context.Context, e kudos.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextID++
	e.ID = s.nextID
	e.CreatedAt = s.now()
	s.events = append(s.events, e)
	return nil
}

func (s *Store) Count(_ context.Context, role kudos.Role, userID string, channelIDs []string, from, to time.Time) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	in := set(channelIDs)
	n := 0
	for _, e := range s.events {
		if who(e, role) != userID || !in[e.ChannelID] || !within(e.CreatedAt, from, to) {
			continue
		}
		n++
	}
	return n, nil
}

func (s *Store) Purge(_ context.Context, before time.Time, channelID string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.events[:0]
	var removed int64
	for _, e := range s.events {
		if e.CreatedAt.Before(before) && (channelID == "" || e.ChannelID == channelID) {
			removed++
			continue
		}
		kept = append(kept, e)
	}
	s.events = kept
	return removed, nil
}

func (s *Store) CountBefore(_ context.Context, before time.Time, channelID string) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var n int64
	for _, e := range s.events {
		if e.CreatedAt.Before(before) && (channelID == "" || e.ChannelID == channelID) {
			n++
		}
	}
	return n, nil
}

// --- leaderboard ---

func (s *Store) Top(_ context.Context, role kudos.Role, channelIDs []string, from, to time.Time, limit int) ([]kudos.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	in := set(channelIDs)
	counts := make(map[string]int)
	for _, e := range s.events {
		if in[e.ChannelID] && within(e.CreatedAt, from, to) {
			counts[who(e, role)]++
		}
	}

	out := make([]kudos.Entry, 0, len(counts))
	for id, n := range counts {
		out = append(out, kudos.Entry{UserID: id, Count: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].UserID < out[j].UserID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// --- channels ---

func (s *Store) Get(_ context.Context, channelID string) (*channels.Config, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.configs[channelID]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (s *Store) Save(_ context.Context, u channels.Update) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	c, ok := s.configs[u.ChannelID]
	if !ok {
		c = &channels.Config{ChannelID: u.ChannelID, CreatedAt: now}
		s.configs[u.ChannelID] = c
	}
	if u.Personality != nil {
		c.Personality = clone(u.Personality)
	}
	if u.MonthlyQuota != nil {
		c.MonthlyQuota = clone(u.MonthlyQuota)
	}
	if u.LeaderboardLimit != nil {
		c.LeaderboardLimit = clone(u.LeaderboardLimit)
	}
	if u.Timezone != nil {
		c.Timezone = clone(u.Timezone)
	}
	if u.LeaderboardChannelID != nil {
		if *u.LeaderboardChannelID == "" {
			c.LeaderboardChannelID = nil
		} else {
			c.LeaderboardChannelID = clone(u.LeaderboardChannelID)
		}
	}
	c.UpdatedAt = now
	return nil
}

func (s *Store) Delete(_ context.Context, channelID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.configs, channelID)
	return nil
}

func (s *Store) ListInheriting(_ context.Context, targetID string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []string
	for id, c := range s.configs {
		if id != targetID && c.LeaderboardChannelID != nil && *c.LeaderboardChannelID == targetID {
			out = append(out, id)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *Store) List(_ context.Context) ([]channels.Config, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]channels.Config, 0, len(s.configs))
	for _, c := range s.configs {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ChannelID < out[j].ChannelID })
	return out, nil
}

// --- status ---

func (s *Store) ActiveChannels(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	seen := make(map[string]bool)
	var out []string
	for _, e := range s.events {
		if !seen[e.ChannelID] {
			seen[e.ChannelID] = true
			out = append(out, e.ChannelID)
		}
	}
	sort.Strings(out)
	return out, nil
}

func (s *Store) LastKudos(_ context.Context) (*kudos.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var last *kudos.Event
	for i := range s.events {
		e := s.events[i]
		if last == nil || !e.CreatedAt.Before(last.CreatedAt) {
			last = &e
		}
	}
	return last, nil
}

func (s *Store) TotalKudos(_ context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.events)), nil
}

func who(e kudos.Event, role kudos.Role) string {
	if role == kudos.RoleReceiver {
		return e.Receiver
	}
	return e.Sender
}

func within(t, from, to time.Time) bool {
	if !from.IsZero() && t.Before(from) {
		return false
	}
	if !to.IsZero() && !t.Before(to) {
		return false
	}
	return true
}

func set(ids []string) map[string]bool {
	m := make(map[string]bool, len(ids))
	for _, id := range ids {
		m[id] = true
	}
	return m
}

func clone[T any](v *T) *T {
	cp := *v
	return &cp
}
