package middleware

import (
	"bytes"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/slack-go/slack"
)

// VerifySlack проверяет подпись запроса (X-Slack-Signature) секретом
// приложения. Тело запроса читается один раз: оно кладётся обратно
// в Request.Body и в контекст под ключом ContextKeySlackBody.
func VerifySlack(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.AbortWithStatus(http.StatusBadRequest)
			return
		}

		verifier, err := slack.NewSecretsVerifier(c.Request.Header, secret)
		if err != nil {
			log.WithError(err).WithField("request_id", GetRequestID(c)).Warn("Нет заголовков подписи Slack")
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		if _, err := verifier.Write(body); err != nil {
			c.AbortWithStatus(http.StatusInternalServerError)
			return
		}
		if err := verifier.Ensure(); err != nil {
			log.WithError(err).WithField("request_id", GetRequestID(c)).Warn("Неверная подпись Slack")
			c.AbortWithStatus(http.StatusUnauthorized)
			return
		}

		c.Request.Body = io.NopCloser(bytes.NewReader(body))
		c.Set(ContextKeySlackBody, body)
		c.Next()
	}
}

// GetSlackBody возвращает проверенное тело запроса.
func GetSlackBody(c *gin.Context) []byte {
	val, exists := c.Get(ContextKeySlackBody)
	if !exists {
		return nil
	}
	body, ok := val.([]byte)
	if !ok {
		return nil
	}
	return body
}
