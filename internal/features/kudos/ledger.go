// Package kudos — ledger.go считает месячную квоту отправителя.
//
// Квота не хранится отдельно: она каждый раз вычисляется из событий
// за текущий месяц по всем каналам общего лидерборда. Проверка и запись
// не атомарны: две одновременные отправки у границы квоты могут пройти
// обе. Для kudos это допустимо.
package kudos

import (
	"context"
	"time"

	"serotonyl.ru/kudos-bot/internal/features/channels"
	"serotonyl.ru/kudos-bot/internal/period"
)

// ConfigResolver отдаёт действующие настройки канала.
type ConfigResolver interface {
	Effective(ctx context.Context, channelID string) (*channels.Effective, error)
}

// Ledger — учёт квоты.
type Ledger struct {
	store    Store
	channels ConfigResolver
	now      func() time.Time
}

// NewLedger создаёт учёт квоты.
func NewLedger(store Store, resolver ConfigResolver) *Ledger {
	return &Ledger{store: store, channels: resolver, now: time.Now}
}

// Status возвращает квоту и число отправленных kudos в текущем месяце
// (в часовом поясе канала).
func (l *Ledger) Status(ctx context.Context, senderID, channelID string) (*Quota, error) {
	eff, err := l.channels.Effective(ctx, channelID)
	if err != nil {
		return nil, err
	}
	return l.status(ctx, senderID, eff, period.Current(eff.Now(l.now())))
}

func (l *Ledger) status(ctx context.Context, senderID string, eff *channels.Effective, p period.Period) (*Quota, error) {
	used, err := l.store.Count(ctx, RoleSender, senderID, eff.Group, p.Start(), p.End())
	if err != nil {
		return nil, err
	}
	return &Quota{
		Limit:    eff.MonthlyQuota,
		Used:     used,
		Period:   p,
		Channels: eff.Group,
	}, nil
}

// Remaining — остаток квоты отправителя за период p.
func (l *Ledger) Remaining(ctx context.Context, senderID, channelID string, p period.Period) (int, error) {
	eff, err := l.channels.Effective(ctx, channelID)
	if err != nil {
		return 0, err
	}
	q, err := l.status(ctx, senderID, eff, p)
	if err != nil {
		return 0, err
	}
	return q.Remaining(), nil
}

// CanSubmit проверяет, хватит ли квоты на n получателей сразу:
// used + n <= limit.
func (l *Ledger) CanSubmit(ctx context.Context, senderID, channelID string, n int) (bool, *Quota, error) {
	q, err := l.Status(ctx, senderID, channelID)
	if err != nil {
		return false, nil, err
	}
	return q.Used+n <= q.Limit, q, nil
}
