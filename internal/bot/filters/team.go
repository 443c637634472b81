// Package filters решает, обрабатывать ли входящий запрос Slack.
package filters

import (
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/kudos-bot/internal/common"
)

// TeamFilter пропускает только команды своего воркспейса.
// Пустой teamID — пропускать всех (одно приложение в одном воркспейсе).
type TeamFilter struct {
	teamID string
}

func NewTeamFilter(teamID string) *TeamFilter {
	return &TeamFilter{teamID: teamID}
}

// CheckAccess проверяет команду перед маршрутизацией.
func (f *TeamFilter) CheckAccess(cmd *common.Command) bool {
	if cmd == nil {
		log.WithField("component", "TeamFilter").Warn("nil command")
		return false
	}
	if cmd.UserID == "" || cmd.ChannelID == "" {
		log.WithFields(log.Fields{
			"component":  "TeamFilter",
			"request_id": cmd.RequestID,
		}).Warn("команда без user_id/channel_id")
		return false
	}
	if f.teamID != "" && cmd.TeamID != f.teamID {
		log.WithFields(log.Fields{
			"component":  "TeamFilter",
			"request_id": cmd.RequestID,
			"team_id":    cmd.TeamID,
			"allowed":    f.teamID,
		}).Info("deny: чужой воркспейс")
		return false
	}
	return true
}

// AllowEvent — то же для событий Events API. Сообщения ботов
// (в том числе наши собственные) игнорируются.
func (f *TeamFilter) AllowEvent(teamID, userID, botID string) bool {
	if botID != "" || userID == "" {
		return false
	}
	return f.teamID == "" || teamID == f.teamID
}
