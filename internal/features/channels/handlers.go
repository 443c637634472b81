// Package channels — handlers.go обрабатывает /kk config [edit|default]
// и отправку диалога настроек.
package channels

import (
	"context"
	"errors"
	"fmt"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/kudos-bot/internal/common"
	"serotonyl.ru/kudos-bot/internal/personality"
)

// Catalog — персонажности для рендера и для списка в диалоге.
type Catalog interface {
	personality.Renderer
	Names() []string
	Description(name string) string
}

// PersonalityOption — пункт выпадающего списка персонажностей.
type PersonalityOption struct {
	Name        string
	Description string
}

// Form — данные для диалога настроек канала.
type Form struct {
	ChannelID            string
	UserID               string
	Personality          string
	MonthlyQuota         int
	LeaderboardLimit     int
	Timezone             string
	LeaderboardChannelID string // "" — свой лидерборд
	Personalities        []PersonalityOption
	Timezones            []string
}

// ModalOpener открывает диалог настроек в Slack.
type ModalOpener interface {
	OpenConfigModal(ctx context.Context, triggerID string, form Form) error
}

// Handler обрабатывает команды настроек.
type Handler struct {
	service *Service
	catalog Catalog
	replier common.Replier
	modals  ModalOpener
}

// NewHandler создаёт обработчик настроек.
func NewHandler(service *Service, catalog Catalog, replier common.Replier, modals ModalOpener) *Handler {
	return &Handler{service: service, catalog: catalog, replier: replier, modals: modals}
}

// HandleShow — /kk config. Показывает действующие настройки канала.
func (h *Handler) HandleShow(ctx context.Context, cmd *common.Command) {
	raw, err := h.service.Raw(ctx, cmd.ChannelID)
	if err != nil {
		h.fail(ctx, cmd, "", err)
		return
	}
	eff, err := h.service.Effective(ctx, cmd.ChannelID)
	if err != nil {
		h.fail(ctx, cmd, "", err)
		return
	}

	params := personality.Params{
		"channel":     common.ChannelMention(cmd.ChannelID),
		"source":      common.ChannelMention(eff.LeaderboardChannelID),
		"personality": eff.Personality,
		"quota":       eff.MonthlyQuota,
		"limit":       eff.LeaderboardLimit,
		"timezone":    eff.Timezone,
	}

	slot := "config.current"
	switch {
	case raw == nil:
		slot = "config.none"
	case eff.Inherited:
		slot = "config.current_inherited"
	}
	h.reply(ctx, cmd, h.catalog.Render(eff.Personality, slot, params))
}

// HandleEdit — /kk config edit. Открывает диалог с текущими значениями.
func (h *Handler) HandleEdit(ctx context.Context, cmd *common.Command) {
	raw, err := h.service.Raw(ctx, cmd.ChannelID)
	if err != nil {
		h.fail(ctx, cmd, "", err)
		return
	}

	// Диалог показывает собственные значения канала, а не унаследованные.
	eff := &Effective{ChannelID: cmd.ChannelID}
	h.service.apply(eff, raw)

	form := Form{
		ChannelID:        cmd.ChannelID,
		UserID:           cmd.UserID,
		Personality:      eff.Personality,
		MonthlyQuota:     eff.MonthlyQuota,
		LeaderboardLimit: eff.LeaderboardLimit,
		Timezone:         eff.Timezone,
		Timezones:        TimezoneOptions(),
	}
	if target, ok := raw.Override(); ok {
		form.LeaderboardChannelID = target
	}
	for _, name := range h.catalog.Names() {
		form.Personalities = append(form.Personalities, PersonalityOption{
			Name:        name,
			Description: h.catalog.Description(name),
		})
	}

	if err := h.modals.OpenConfigModal(ctx, cmd.TriggerID, form); err != nil {
		h.fail(ctx, cmd, eff.Personality, err)
	}
}

// HandleReset — /kk config default.
func (h *Handler) HandleReset(ctx context.Context, cmd *common.Command) {
	if err := h.service.Reset(ctx, cmd.ChannelID); err != nil {
		h.fail(ctx, cmd, "", err)
		return
	}
	text := h.catalog.Render(h.service.Defaults().Personality, "config.reset", personality.Params{
		"channel": common.ChannelMention(cmd.ChannelID),
	})
	h.reply(ctx, cmd, text)
}

// HandleSubmit сохраняет значения из диалога и сообщает результат
// автору эфемерным сообщением в канале.
func (h *Handler) HandleSubmit(ctx context.Context, userID string, u Update) {
	logger := log.WithFields(log.Fields{"channel_id": u.ChannelID, "user_id": userID})

	eff, err := h.service.Save(ctx, u)
	if err != nil {
		var text string
		if common.IsValidation(err) {
			logger.WithError(err).Info("Некорректные настройки канала")
			text = h.catalog.Render("", ReasonSlot(err), nil)
		} else {
			logger.WithError(err).Error("Ошибка сохранения настроек канала")
			text = h.catalog.Render("", "errors.try_again", nil)
		}
		h.postEphemeral(ctx, u.ChannelID, userID, text)
		return
	}

	leaderboard := h.catalog.Render(eff.Personality, "config.leaderboard_self", nil)
	if eff.Inherited {
		leaderboard = common.ChannelMention(eff.LeaderboardChannelID)
	}
	text := h.catalog.Render(eff.Personality, "config.saved", personality.Params{
		"channel":     common.ChannelMention(u.ChannelID),
		"personality": eff.Personality,
		"quota":       eff.MonthlyQuota,
		"limit":       eff.LeaderboardLimit,
		"timezone":    eff.Timezone,
		"leaderboard": leaderboard,
	})
	h.postEphemeral(ctx, u.ChannelID, userID, text)
}

// ReasonSlot — слот с пояснением к ошибке настроек.
func ReasonSlot(err error) string {
	switch {
	case errors.Is(err, common.ErrSelfOverride):
		return "errors.invalid_config_self_override"
	case errors.Is(err, common.ErrInvalidChannelID):
		return "errors.invalid_config_channel"
	case errors.Is(err, common.ErrInvalidQuota):
		return "errors.invalid_config_quota"
	case errors.Is(err, common.ErrInvalidLimit):
		return "errors.invalid_config_limit"
	case errors.Is(err, common.ErrUnknownPersonality):
		return "errors.invalid_config_personality"
	case errors.Is(err, common.ErrInvalidTimezone):
		return "errors.invalid_config_timezone"
	}
	return "errors.invalid_config"
}

// TimezoneOptions — часовые пояса для диалога: UTC, UTC+1…UTC+14, UTC-1…UTC-12.
func TimezoneOptions() []string {
	out := []string{"UTC"}
	for i := 1; i <= 14; i++ {
		out = append(out, fmt.Sprintf("UTC+%d", i))
	}
	for i := 1; i <= 12; i++ {
		out = append(out, fmt.Sprintf("UTC-%d", i))
	}
	return out
}

func (h *Handler) fail(ctx context.Context, cmd *common.Command, personalityName string, err error) {
	log.WithError(err).WithFields(log.Fields{
		"request_id": cmd.RequestID,
		"channel_id": cmd.ChannelID,
	}).Error("Ошибка команды config")
	h.reply(ctx, cmd, h.catalog.Render(personalityName, "errors.try_again", nil))
}

func (h *Handler) reply(ctx context.Context, cmd *common.Command, text string) {
	if err := h.replier.Reply(ctx, cmd, text); err != nil {
		log.WithError(err).WithField("request_id", cmd.RequestID).Error("Ошибка отправки ответа")
	}
}

func (h *Handler) postEphemeral(ctx context.Context, channelID, userID, text string) {
	if err := h.replier.PostEphemeral(ctx, channelID, userID, text); err != nil {
		log.WithError(err).WithField("channel_id", channelID).Error("Ошибка отправки эфемерного сообщения")
	}
}
