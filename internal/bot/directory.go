package bot

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/slack-go/slack"

	"serotonyl.ru/kudos-bot/internal/cache"
	"serotonyl.ru/kudos-bot/internal/common"
)

// DirectoryPrefix — префикс всех ключей справочника в кэше.
const DirectoryPrefix = "kudos:dir:"

const (
	keyChannel     = DirectoryPrefix + "channel:"
	keyBotUserID   = DirectoryPrefix + "bot_user_id"
	keyActiveUsers = DirectoryPrefix + "active_users"
)

// Directory отвечает на вопросы о воркспейсе (ID канала по имени,
// ID бота, живые пользователи) и кэширует ответы Slack.
type Directory struct {
	api   SlackAPI
	cache cache.Store
	ttl   time.Duration
}

func NewDirectory(api SlackAPI, store cache.Store, ttl time.Duration) *Directory {
	return &Directory{api: api, cache: store, ttl: ttl}
}

// ChannelIDByName ищет канал по имени (без #, регистр не важен).
// Все каналы, встреченные при обходе, попадают в кэш.
func (d *Directory) ChannelIDByName(ctx context.Context, name string) (string, error) {
	name = strings.ToLower(strings.TrimPrefix(name, "#"))
	if id, ok := d.get(ctx, keyChannel+name); ok {
		return id, nil
	}

	params := &slack.GetConversationsParameters{
		ExcludeArchived: true,
		Limit:           1000,
		Types:           []string{"public_channel", "private_channel"},
	}
	found := ""
	for {
		channels, cursor, err := d.api.GetConversationsContext(ctx, params)
		if err != nil {
			if isMissingScope(err) {
				return "", fmt.Errorf("%w: %v", common.ErrChannelAccessDenied, err)
			}
			return "", fmt.Errorf("conversations.list: %w", err)
		}
		for _, ch := range channels {
			chName := strings.ToLower(ch.Name)
			d.set(ctx, keyChannel+chName, ch.ID)
			if chName == name {
				found = ch.ID
			}
		}
		if found != "" || cursor == "" {
			break
		}
		params.Cursor = cursor
	}

	if found == "" {
		return "", fmt.Errorf("%w: #%s", common.ErrChannelNotFound, name)
	}
	return found, nil
}

// BotUserID — ID пользователя, от имени которого работает бот.
func (d *Directory) BotUserID(ctx context.Context) (string, error) {
	if id, ok := d.get(ctx, keyBotUserID); ok {
		return id, nil
	}
	resp, err := d.api.AuthTestContext(ctx)
	if err != nil {
		return "", fmt.Errorf("auth.test: %w", err)
	}
	d.set(ctx, keyBotUserID, resp.UserID)
	return resp.UserID, nil
}

// ActiveUserIDs — пользователи, которые не удалены из воркспейса.
// nil — список пуст (лидерборд тогда не фильтруется).
func (d *Directory) ActiveUserIDs(ctx context.Context) (map[string]bool, error) {
	if joined, ok := d.get(ctx, keyActiveUsers); ok {
		return toSet(strings.Split(joined, ",")), nil
	}

	users, err := d.api.GetUsersContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("users.list: %w", err)
	}
	ids := make([]string, 0, len(users))
	for _, u := range users {
		if !u.Deleted {
			ids = append(ids, u.ID)
		}
	}
	if len(ids) == 0 {
		return nil, nil
	}
	d.set(ctx, keyActiveUsers, strings.Join(ids, ","))
	return toSet(ids), nil
}

// Invalidate сбрасывает весь кэш справочника.
func (d *Directory) Invalidate(ctx context.Context) error {
	return d.cache.Flush(ctx, DirectoryPrefix)
}

func (d *Directory) get(ctx context.Context, key string) (string, bool) {
	val, ok, err := d.cache.Get(ctx, key)
	if err != nil {
		// кэш недоступен, идём в Slack
		log.WithError(err).WithField("key", key).Warn("Ошибка чтения кэша справочника")
		return "", false
	}
	return val, ok && val != ""
}

func (d *Directory) set(ctx context.Context, key, val string) {
	if err := d.cache.Set(ctx, key, val, d.ttl); err != nil {
		log.WithError(err).WithField("key", key).Warn("Ошибка записи кэша справочника")
	}
}

func isMissingScope(err error) bool {
	var slackErr slack.SlackErrorResponse
	if errors.As(err, &slackErr) {
		return slackErr.Err == "missing_scope"
	}
	return strings.Contains(err.Error(), "missing_scope")
}

func toSet(ids []string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		if id != "" {
			set[id] = true
		}
	}
	return set
}
