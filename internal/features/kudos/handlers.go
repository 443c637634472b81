// Package kudos — handlers.go обрабатывает отправку kudos и /kk stats.
package kudos

import (
	"context"
	"errors"

	log "github.com/sirupsen/logrus"

	"serotonyl.ru/kudos-bot/internal/common"
	"serotonyl.ru/kudos-bot/internal/personality"
)

// Handler обрабатывает команды kudos.
type Handler struct {
	service  *Service
	channels ConfigResolver
	renderer personality.Renderer
	replier  common.Replier
}

// NewHandler создаёт обработчик kudos.
func NewHandler(service *Service, resolver ConfigResolver, renderer personality.Renderer, replier common.Replier) *Handler {
	return &Handler{service: service, channels: resolver, renderer: renderer, replier: replier}
}

// errorSlot — слот шаблона для ошибки валидации отправки.
func errorSlot(err error) (string, personality.Params) {
	var quotaErr *common.QuotaExceededError
	switch {
	case errors.As(err, &quotaErr):
		return "errors.quota_exceeded", personality.Params{
			"kudos_needed": quotaErr.Needed,
			"remaining":    quotaErr.Remaining,
		}
	case errors.Is(err, common.ErrNoMentions):
		return "errors.no_mentions", nil
	case errors.Is(err, common.ErrSelfKudos):
		return "errors.self_kudos", nil
	case errors.Is(err, common.ErrBotKudos):
		return "errors.bot_kudos", nil
	case errors.Is(err, common.ErrEmptyMessage):
		return "errors.empty_message", nil
	}
	return "errors.try_again", nil
}

// HandleGive — /kk @user сообщение.
func (h *Handler) HandleGive(ctx context.Context, cmd *common.Command) {
	logger := log.WithFields(log.Fields{
		"request_id": cmd.RequestID,
		"user_id":    cmd.UserID,
		"channel_id": cmd.ChannelID,
	})

	eff, err := h.channels.Effective(ctx, cmd.ChannelID)
	if err != nil {
		logger.WithError(err).Error("Ошибка получения настроек канала")
		h.reply(ctx, cmd, h.renderer.Render("", "errors.try_again", nil))
		return
	}
	p := eff.Personality

	res, err := h.service.Give(ctx, Submission{
		SenderID:  cmd.UserID,
		ChannelID: cmd.ChannelID,
		Text:      cmd.Text,
	})
	if err != nil {
		if common.IsValidation(err) {
			logger.WithError(err).Info("Kudos отклонены")
		} else {
			logger.WithError(err).Error("Ошибка отправки kudos")
		}
		slot, params := errorSlot(err)
		h.reply(ctx, cmd, h.renderer.Render(p, slot, params))
		return
	}

	if len(res.Recorded) > 0 {
		var announcement string
		if len(res.Recorded) == 1 {
			announcement = h.renderer.Render(p, "success.announcement_single", personality.Params{
				"sender":   common.UserMention(cmd.UserID),
				"receiver": common.UserMention(res.Recorded[0]),
				"message":  res.Message,
			})
		} else {
			announcement = h.renderer.Render(p, "success.announcement_multiple", personality.Params{
				"sender":    common.UserMention(cmd.UserID),
				"receivers": common.UserMentions(res.Recorded),
				"message":   res.Message,
			})
		}
		if err := h.replier.Post(ctx, cmd.ChannelID, announcement); err != nil {
			logger.WithError(err).Error("Ошибка публикации объявления")
		}

		slot := "success.kudos_single"
		if len(res.Recorded) > 1 {
			slot = "success.kudos_multiple"
		}
		h.reply(ctx, cmd, h.renderer.Render(p, slot, personality.Params{
			"count":     len(res.Recorded),
			"remaining": res.Remaining,
		}))
	}

	if len(res.Failed) > 0 {
		h.reply(ctx, cmd, h.renderer.Render(p, "errors.failed_kudos", personality.Params{
			"failed_mentions": common.UserMentions(res.Failed),
		}))
	}
}

// HandleStats — /kk stats.
func (h *Handler) HandleStats(ctx context.Context, cmd *common.Command) {
	eff, err := h.channels.Effective(ctx, cmd.ChannelID)
	if err != nil {
		h.fail(ctx, cmd, "", err)
		return
	}

	st, err := h.service.Stats(ctx, cmd.UserID, cmd.ChannelID)
	if err != nil {
		h.fail(ctx, cmd, eff.Personality, err)
		return
	}

	h.reply(ctx, cmd, h.renderer.Render(eff.Personality, "stats.message", personality.Params{
		"channels":         "in " + common.JoinWithAnd(common.ChannelMentions(st.Channels)),
		"month_name":       st.Period.String(),
		"monthly_sent":     st.MonthlySent,
		"monthly_received": st.MonthlyReceived,
		"remaining":        st.Remaining,
		"quota":            st.Quota,
		"total_sent":       common.FormatNumber(int64(st.TotalSent)),
		"total_received":   common.FormatNumber(int64(st.TotalReceived)),
	}))
}

func (h *Handler) fail(ctx context.Context, cmd *common.Command, personalityName string, err error) {
	log.WithError(err).WithFields(log.Fields{
		"request_id": cmd.RequestID,
		"user_id":    cmd.UserID,
	}).Error("Ошибка команды stats")
	h.reply(ctx, cmd, h.renderer.Render(personalityName, "errors.try_again", nil))
}

func (h *Handler) reply(ctx context.Context, cmd *common.Command, text string) {
	if err := h.replier.Reply(ctx, cmd, text); err != nil {
		log.WithError(err).WithField("request_id", cmd.RequestID).Error("Ошибка отправки ответа")
	}
}
