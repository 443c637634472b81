// Package status — handlers.go обрабатывает /kk status, /kk version и /kk help.
package status

import (
	"context"
	"strings"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/kudos-bot/internal/common"
	"serotonyl.ru/kudos-bot/internal/features/kudos"
	"serotonyl.ru/kudos-bot/internal/personality"
)

// Handler обрабатывает служебные команды.
type Handler struct {
	service  *Service
	channels kudos.ConfigResolver
	renderer personality.Renderer
	replier  common.Replier
	version  string
}

// NewHandler создаёт обработчик служебных команд.
func NewHandler(service *Service, resolver kudos.ConfigResolver, renderer personality.Renderer, replier common.Replier, version string) *Handler {
	return &Handler{service: service, channels: resolver, renderer: renderer, replier: replier, version: version}
}

// personalityFor — персонажность канала; при ошибке пустая строка
// (рендер возьмёт персонажность по умолчанию).
func (h *Handler) personalityFor(ctx context.Context, channelID string) (string, int) {
	eff, err := h.channels.Effective(ctx, channelID)
	if err != nil {
		log.WithError(err).WithField("channel_id", channelID).Warn("Не удалось получить настройки канала")
		return "", 0
	}
	return eff.Personality, eff.MonthlyQuota
}

// HandleStatus — /kk status.
func (h *Handler) HandleStatus(ctx context.Context, cmd *common.Command) {
	p, _ := h.personalityFor(ctx, cmd.ChannelID)

	rep, err := h.service.Report(ctx)
	if err != nil {
		log.WithError(err).WithField("request_id", cmd.RequestID).Error("Ошибка построения статуса")
		h.reply(ctx, cmd, h.renderer.Render(p, "errors.try_again", nil))
		return
	}
	h.reply(ctx, cmd, h.Render(p, rep))
}

// Render собирает текст отчёта.
func (h *Handler) Render(p string, rep *Report) string {
	lines := []string{h.renderer.Render(p, "status.header", personality.Params{
		"checked": rep.CheckedAt.Format("2006-01-02 15:04:05 UTC"),
	})}

	if len(rep.ActiveChannels) > 0 {
		lines = append(lines, h.renderer.Render(p, "status.channels", personality.Params{
			"channels": strings.Join(common.ChannelMentions(rep.ActiveChannels), ", "),
		}))
	} else {
		lines = append(lines, h.renderer.Render(p, "status.no_channels", nil))
	}

	if rep.Last != nil {
		lines = append(lines, h.renderer.Render(p, "status.last_kudos", personality.Params{
			"ago":     common.FormatTimeAgo(rep.CheckedAt.Sub(rep.Last.CreatedAt)),
			"channel": common.ChannelMention(rep.Last.ChannelID),
		}))
	} else {
		lines = append(lines, h.renderer.Render(p, "status.no_last_kudos", nil))
	}

	lines = append(lines, h.renderer.Render(p, "status.total", personality.Params{
		"total": common.FormatNumber(rep.Total),
	}))

	if len(rep.Configs) == 0 {
		lines = append(lines, "", h.renderer.Render(p, "status.no_configs", nil))
		return strings.Join(lines, "\n")
	}

	lines = append(lines, "", h.renderer.Render(p, "status.configs_title", nil))
	for _, c := range rep.Configs {
		params := personality.Params{
			"channel":     common.ChannelMention(c.ChannelID),
			"personality": "default",
		}
		if c.Personality != nil && *c.Personality != "" {
			params["personality"] = *c.Personality
		}
		if c.MonthlyQuota != nil {
			params["quota"] = *c.MonthlyQuota
		}
		if target, ok := c.Override(); ok {
			params["leaderboard"] = common.ChannelMention(target)
		}
		lines = append(lines, h.renderer.Render(p, "status.config_line", params))
	}
	return strings.Join(lines, "\n")
}

// HandleHelp — /kk help и неизвестная одиночная команда.
func (h *Handler) HandleHelp(ctx context.Context, cmd *common.Command) {
	p, quota := h.personalityFor(ctx, cmd.ChannelID)
	h.reply(ctx, cmd, h.renderer.Render(p, "help.message", personality.Params{"quota": quota}))
}

// HandleVersion — /kk version.
func (h *Handler) HandleVersion(ctx context.Context, cmd *common.Command) {
	p, _ := h.personalityFor(ctx, cmd.ChannelID)
	h.reply(ctx, cmd, h.renderer.Render(p, "version", personality.Params{"version": h.version}))
}

// MentionReply — текст ответа на упоминание бота в канале.
func (h *Handler) MentionReply(ctx context.Context, channelID string) string {
	p, _ := h.personalityFor(ctx, channelID)
	return h.renderer.Render(p, "app_mention", nil)
}

func (h *Handler) reply(ctx context.Context, cmd *common.Command, text string) {
	if err := h.replier.Reply(ctx, cmd, text); err != nil {
		log.WithError(err).WithField("request_id", cmd.RequestID).Error("Ошибка отправки ответа")
	}
}
