// Package leaderboard — handlers.go обрабатывает /kk leaderboard.
package leaderboard

import (
	"context"
	"errors"
	"strings"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/kudos-bot/internal/common"
	"serotonyl.ru/kudos-bot/internal/features/kudos"
	"serotonyl.ru/kudos-bot/internal/personality"
)

// Handler обрабатывает команды лидерборда.
type Handler struct {
	service  *Service
	renderer personality.Renderer
	replier  common.Replier
}

// NewHandler создаёт обработчик лидерборда.
func NewHandler(service *Service, renderer personality.Renderer, replier common.Replier) *Handler {
	return &Handler{service: service, renderer: renderer, replier: replier}
}

// HandleLeaderboard — /kk leaderboard [месяц] [год] [#канал] [public] [complete].
func (h *Handler) HandleLeaderboard(ctx context.Context, cmd *common.Command) {
	logger := log.WithFields(log.Fields{
		"request_id": cmd.RequestID,
		"channel_id": cmd.ChannelID,
		"args":       cmd.Text,
	})

	// ошибки показываем в стиле канала, откуда пришла команда
	errPersonality := ""
	if eff, err := h.service.channels.Effective(ctx, cmd.ChannelID); err == nil {
		errPersonality = eff.Personality
	}

	board, err := h.service.Build(ctx, Request{
		ChannelID: cmd.ChannelID,
		UserID:    cmd.UserID,
		Text:      cmd.Text,
	})
	if err != nil {
		if common.IsValidation(err) {
			logger.WithError(err).Info("Лидерборд отклонён")
		} else {
			logger.WithError(err).Error("Ошибка построения лидерборда")
		}
		slot, params := errorSlot(err, ParseParams(cmd.Text))
		h.reply(ctx, cmd, h.renderer.Render(errPersonality, slot, params))
		return
	}

	text := h.Render(board)
	if board.Params.Public {
		if err := h.replier.Post(ctx, cmd.ChannelID, text); err != nil {
			logger.WithError(err).Error("Ошибка публикации лидерборда")
			h.reply(ctx, cmd, text)
		}
		return
	}
	h.reply(ctx, cmd, text)
}

func errorSlot(err error, params Params) (string, personality.Params) {
	name := params.ChannelName
	switch {
	case errors.Is(err, common.ErrCompleteWithDate):
		return "errors.complete_with_date", nil
	case errors.Is(err, common.ErrChannelNotFound):
		return "errors.channel_not_found", personality.Params{"channel_name": name}
	case errors.Is(err, common.ErrChannelAccessDenied):
		return "errors.channel_access_denied", personality.Params{"channel_name": name}
	case errors.Is(err, common.ErrInvalidMonth):
		return "errors.invalid_date", nil
	}
	return "errors.try_again", nil
}

// Render собирает текст лидерборда: компактный (получатели + лучшие
// отправители) или полный (complete).
func (h *Handler) Render(b *Board) string {
	p := b.Effective.Personality
	base := personality.Params{
		"channels":   Title(b.Effective.Group),
		"month_name": b.Period.String(),
	}

	var lines []string
	if b.Params.Complete {
		lines = append(lines, h.renderer.Render(p, "leaderboard.complete_title", base), "")
		lines = append(lines, h.section(p, "senders", b.Senders)...)
		lines = append(lines, "")
		lines = append(lines, h.section(p, "receivers", b.Receivers)...)
	} else {
		lines = append(lines, h.renderer.Render(p, "leaderboard.title", base), "")
		lines = append(lines, h.section(p, "receivers", b.Receivers)...)
		lines = append(lines, "")
		if len(b.Leaders) > 0 {
			lines = append(lines, h.renderer.Render(p, "leaderboard.top_senders", personality.Params{
				"users": common.JoinWithAnd(mentions(b.Leaders)),
				"count": b.LeaderCount,
			}))
		} else {
			lines = append(lines, h.renderer.Render(p, "leaderboard.no_senders", nil))
		}
	}
	lines = append(lines, "", h.renderer.Render(p, "leaderboard.footer", nil))
	return strings.Join(lines, "\n")
}

// section: заголовок и строки рейтинга для senders или receivers.
func (h *Handler) section(p, kind string, entries []kudos.Entry) []string {
	line := "leaderboard.sender_line"
	if kind == "receivers" {
		line = "leaderboard.receiver_line"
	}

	out := []string{h.renderer.Render(p, "leaderboard."+kind+"_title", nil)}
	if len(entries) == 0 {
		return append(out, h.renderer.Render(p, "leaderboard.no_"+kind, nil))
	}
	for i, e := range entries {
		out = append(out, h.renderer.Render(p, line, personality.Params{
			"rank":  i + 1,
			"user":  common.UserMention(e.UserID),
			"count": e.Count,
		}))
	}
	return out
}

func mentions(userIDs []string) []string {
	out := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		out = append(out, common.UserMention(id))
	}
	return out
}

func (h *Handler) reply(ctx context.Context, cmd *common.Command, text string) {
	if err := h.replier.Reply(ctx, cmd, text); err != nil {
		log.WithError(err).WithField("request_id", cmd.RequestID).Error("Ошибка отправки ответа")
	}
}
