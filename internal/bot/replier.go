package bot

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"
	"github.com/slack-go/slack"

	"serotonyl.ru/kudos-bot/internal/common"
)

// Replier отправляет ответы обработчиков в Slack.
type Replier struct {
	api     SlackAPI
	webhook func(ctx context.Context, url string, msg *slack.WebhookMessage) error
}

var _ common.Replier = (*Replier)(nil)

func NewReplier(api SlackAPI) *Replier {
	return &Replier{api: api, webhook: slack.PostWebhookContext}
}

// Reply отвечает автору команды эфемерно через response_url.
// Если response_url нет или он протух — через chat.postEphemeral.
func (r *Replier) Reply(ctx context.Context, cmd *common.Command, text string) error {
	if cmd.ResponseURL != "" {
		err := r.webhook(ctx, cmd.ResponseURL, &slack.WebhookMessage{
			Text:         text,
			ResponseType: "ephemeral",
		})
		if err == nil {
			return nil
		}
		log.WithError(err).WithField("request_id", cmd.RequestID).Warn("response_url не сработал, отправляем через postEphemeral")
	}
	return r.PostEphemeral(ctx, cmd.ChannelID, cmd.UserID, text)
}

func (r *Replier) Post(ctx context.Context, channelID, text string) error {
	if _, _, err := r.api.PostMessageContext(ctx, channelID, slack.MsgOptionText(text, false)); err != nil {
		return fmt.Errorf("chat.postMessage %s: %w", channelID, err)
	}
	return nil
}

func (r *Replier) PostEphemeral(ctx context.Context, channelID, userID, text string) error {
	if _, err := r.api.PostEphemeralContext(ctx, channelID, userID, slack.MsgOptionText(text, false)); err != nil {
		return fmt.Errorf("chat.postEphemeral %s: %w", channelID, err)
	}
	return nil
}
