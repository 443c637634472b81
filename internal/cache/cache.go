// Package cache — небольшой key/value кэш с TTL для справочника Slack
// (имя канала → ID, ID бота, активные пользователи).
// Две реализации: в памяти процесса и Redis (если задан REDIS_URL,
// кэш общий для всех реплик бота).
package cache

import (
	"context"
	"strings"
	"sync"
	"time"
)

// Store — кэш строк. Значение отсутствует — ok == false.
type Store interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	// Flush удаляет все ключи с префиксом prefix.
	Flush(ctx context.Context, prefix string) error
	Close() error
}

type item struct {
	value     string
	expiresAt time.Time
}

// Memory — кэш в памяти процесса.
type Memory struct {
	mu    sync.Mutex
	items map[string]item
	now   func() time.Time
}

// NewMemory создаёт кэш в памяти.
func NewMemory() *Memory {
	return &Memory{items: make(map[string]item), now: time.Now}
}

func (m *Memory) Get(_ context.Context, key string) (string, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	it, ok := m.items[key]
	if !ok {
		return "", false, nil
	}
	if !it.expiresAt.IsZero() && !m.now().Before(it.expiresAt) {
		delete(m.items, key)
		return "", false, nil
	}
	return it.value, true, nil
}

// Set: ttl <= 0 — без срока.
func (m *Memory) Set(_ context.Context, key, value string, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	it := item{value: value}
	if ttl > 0 {
		it.expiresAt = m.now().Add(ttl)
	}
	m.items[key] = it
	return nil
}

func (m *Memory) Flush(_ context.Context, prefix string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for key := range m.items {
		if strings.HasPrefix(key, prefix) {
			delete(m.items, key)
		}
	}
	return nil
}

func (m *Memory) Close() error { return nil }
