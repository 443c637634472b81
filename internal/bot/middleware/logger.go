// Package middleware содержит промежуточные обработчики для логирования,
// восстановления после паники, проверки подписи Slack и rate-limiting.
package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/kudos-bot/internal/common"
)

// Ключи в gin.Context.
const (
	ContextKeyRequestID = "request_id"
	ContextKeySlackBody = "slack_body"
)

// HeaderRequestID — заголовок ответа с ID запроса.
const HeaderRequestID = "X-Request-ID"

// LogCommand логирует входящую команду.
// Записывает: request_id, user_id, channel_id, текст (первые 50 символов).
func LogCommand(cmd *common.Command) {
	if cmd == nil {
		return
	}

	text := []rune(cmd.Text)
	if len(text) > 50 {
		text = append(text[:50], []rune("...")...)
	}

	log.WithFields(log.Fields{
		"request_id": cmd.RequestID,
		"user_id":    cmd.UserID,
		"channel_id": cmd.ChannelID,
		"team_id":    cmd.TeamID,
		"text":       string(text),
	}).Debug("Входящая команда")
}

// RequestLogger присваивает запросу ID и пишет строку в лог по завершении.
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		requestID := c.GetHeader(HeaderRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(ContextKeyRequestID, requestID)
		c.Header(HeaderRequestID, requestID)

		c.Next()

		entry := log.WithFields(log.Fields{
			"request_id": requestID,
			"method":     c.Request.Method,
			"path":       c.FullPath(),
			"status":     c.Writer.Status(),
			"latency":    time.Since(start).String(),
		})
		if c.Writer.Status() >= 500 {
			entry.Error("HTTP запрос завершился ошибкой")
			return
		}
		entry.Debug("HTTP запрос")
	}
}

// GetRequestID достаёт ID запроса из gin.Context.
func GetRequestID(c *gin.Context) string {
	val, exists := c.Get(ContextKeyRequestID)
	if !exists {
		return ""
	}
	id, ok := val.(string)
	if !ok {
		return ""
	}
	return id
}
