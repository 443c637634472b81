// Package kudos — service.go содержит бизнес-логику отправки kudos.
package kudos

import (
	"context"
	"regexp"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/kudos-bot/internal/common"
	"serotonyl.ru/kudos-bot/internal/period"
)

// mentionPattern — упоминание пользователя Slack: <@U123> или <@U123|name>.
var mentionPattern = regexp.MustCompile(`<@([A-Z0-9]+)(?:\|[^>]*)?>`)

// BotIdentity возвращает ID самого бота.
type BotIdentity interface {
	BotUserID(ctx context.Context) (string, error)
}

// Service управляет отправкой kudos.
type Service struct {
	store    Store
	ledger   *Ledger
	channels ConfigResolver
	identity BotIdentity
	now      func() time.Time
}

// NewService создаёт сервис kudos.
func NewService(store Store, ledger *Ledger, resolver ConfigResolver, identity BotIdentity) *Service {
	return &Service{
		store:    store,
		ledger:   ledger,
		channels: resolver,
		identity: identity,
		now:      time.Now,
	}
}

// ExtractMentions возвращает уникальных упомянутых пользователей
// в порядке первого упоминания.
func ExtractMentions(text string) []string {
	var out []string
	seen := make(map[string]bool)
	for _, m := range mentionPattern.FindAllStringSubmatch(text, -1) {
		id := m[1]
		if seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

// StripMentions убирает упоминания и лишние пробелы.
func StripMentions(text string) string {
	return strings.Join(strings.Fields(mentionPattern.ReplaceAllString(text, " ")), " ")
}

// Give проверяет отправку и записывает по одному событию на получателя.
//
// Первая же блокирующая проверка завершает отправку целиком: если среди
// получателей есть сам отправитель или бот, не записывается никто.
// Запись по получателям независима: ошибки собираются в Result.Failed,
// успешные записи остаются.
func (s *Service) Give(ctx context.Context, sub Submission) (*Result, error) {
	logger := log.WithFields(log.Fields{
		"sender":     sub.SenderID,
		"channel_id": sub.ChannelID,
	})

	recipients := ExtractMentions(sub.Text)
	if len(recipients) == 0 {
		return nil, common.ErrNoMentions
	}

	for _, id := range recipients {
		if id == sub.SenderID {
			return nil, common.ErrSelfKudos
		}
	}

	botID, err := s.identity.BotUserID(ctx)
	if err != nil {
		// как и раньше: без ID бота проверку пропускаем
		logger.WithError(err).Warn("Не удалось определить ID бота, проверка пропущена")
	} else if botID != "" {
		for _, id := range recipients {
			if id == botID {
				return nil, common.ErrBotKudos
			}
		}
	}

	if StripMentions(sub.Text) == "" {
		return nil, common.ErrEmptyMessage
	}

	ok, quota, err := s.ledger.CanSubmit(ctx, sub.SenderID, sub.ChannelID, len(recipients))
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, &common.QuotaExceededError{
			Needed:    len(recipients),
			Remaining: quota.Remaining(),
		}
	}

	res := &Result{
		Recipients: recipients,
		Message:    strings.TrimSpace(sub.Text),
		Quota:      *quota,
	}
	for _, receiver := range recipients {
		err := s.store.Record(ctx, Event{
			Sender:    sub.SenderID,
			Receiver:  receiver,
			ChannelID: sub.ChannelID,
		})
		if err != nil {
			logger.WithError(err).WithField("receiver", receiver).Error("Ошибка записи kudos")
			res.Failed = append(res.Failed, receiver)
			continue
		}
		res.Recorded = append(res.Recorded, receiver)
	}

	after := Quota{Limit: quota.Limit, Used: quota.Used + len(res.Recorded)}
	res.Remaining = after.Remaining()

	logger.WithFields(log.Fields{
		"recorded":  len(res.Recorded),
		"failed":    len(res.Failed),
		"remaining": res.Remaining,
	}).Info("Kudos отправлены")
	return res, nil
}

// Stats возвращает статистику пользователя по каналам общего лидерборда.
func (s *Service) Stats(ctx context.Context, userID, channelID string) (*Stats, error) {
	eff, err := s.channels.Effective(ctx, channelID)
	if err != nil {
		return nil, err
	}
	p := period.Current(eff.Now(s.now()))

	st := &Stats{
		Period:   p,
		Channels: eff.Group,
		Quota:    eff.MonthlyQuota,
	}

	counts := []struct {
		dst      *int
		role     Role
		from, to time.Time
	}{
		{&st.MonthlySent, RoleSender, p.Start(), p.End()},
		{&st.MonthlyReceived, RoleReceiver, p.Start(), p.End()},
		{&st.TotalSent, RoleSender, time.Time{}, time.Time{}},
		{&st.TotalReceived, RoleReceiver, time.Time{}, time.Time{}},
	}
	for _, c := range counts {
		n, err := s.store.Count(ctx, c.role, userID, eff.Group, c.from, c.to)
		if err != nil {
			return nil, err
		}
		*c.dst = n
	}

	q := Quota{Limit: st.Quota, Used: st.MonthlySent}
	st.Remaining = q.Remaining()
	return st, nil
}
