package common

import "context"

// Command — одна входящая команда /kk, уже разобранная транспортом.
type Command struct {
	RequestID   string
	TeamID      string
	ChannelID   string
	ChannelName string
	UserID      string
	// Text — всё, что после подкоманды (для kudos — весь текст)
	Text        string
	ResponseURL string
	TriggerID   string
}

// Replier отправляет ответы в Slack. Реализуется пакетом bot,
// в тестах подменяется фейком.
type Replier interface {
	// Reply — эфемерный ответ автору команды.
	Reply(ctx context.Context, cmd *Command, text string) error
	// Post — публичное сообщение в канал.
	Post(ctx context.Context, channelID, text string) error
	// PostEphemeral — эфемерное сообщение пользователю в канале
	// (когда response_url нет, например после отправки диалога).
	PostEphemeral(ctx context.Context, channelID, userID, text string) error
}
