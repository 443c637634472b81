// Package leaderboard строит рейтинги отправителей и получателей kudos.
// params.go разбирает аргументы /kk leaderboard.
package leaderboard

import (
	"regexp"
	"strings"

	"serotonyl.ru/kudos-bot/internal/common"
)

var (
	// <#C123> или <#C123|general>
	escapedChannelPattern = regexp.MustCompile(`<#([A-Z0-9]+)(?:\|([^>]*))?>`)
	// #general как отдельное слово
	rawChannelPattern = regexp.MustCompile(`(?:^|\s)#([\p{L}\p{N}_.-]+)`)
	flagPattern       = regexp.MustCompile(`(?i)\b(public|share|complete)\b`)
)

// Params — разобранные аргументы лидерборда.
type Params struct {
	// ChannelID — из экранированного упоминания, уже готовый ID.
	ChannelID string
	// ChannelName — сырое #name, ID надо найти через Slack.
	ChannelName string
	Public      bool
	Complete    bool
	// DateText — остаток текста в нижнем регистре для period.Parse.
	DateText string
}

// ParseParams извлекает канал, флаги и текст даты. Порядок слов не важен.
// Экранированное упоминание канала важнее сырого #name.
func ParseParams(text string) Params {
	var p Params

	if m := escapedChannelPattern.FindStringSubmatch(text); m != nil {
		p.ChannelID = m[1]
	}
	text = escapedChannelPattern.ReplaceAllString(text, " ")

	if m := rawChannelPattern.FindStringSubmatch(text); m != nil && p.ChannelID == "" {
		p.ChannelName = strings.ToLower(m[1])
	}
	text = rawChannelPattern.ReplaceAllString(text, " ")

	for _, m := range flagPattern.FindAllString(text, -1) {
		switch strings.ToLower(m) {
		case "public", "share":
			p.Public = true
		case "complete":
			p.Complete = true
		}
	}
	text = flagPattern.ReplaceAllString(text, " ")

	p.DateText = strings.Join(strings.Fields(strings.ToLower(text)), " ")
	return p
}

// HasChannel — запрошен ли чужой канал.
func (p Params) HasChannel() bool {
	return p.ChannelID != "" || p.ChannelName != ""
}

// Validate проверяет сочетание флагов с датой: complete работает
// только для текущего месяца.
func (p Params) Validate(month, year int) error {
	if p.Complete && (month != 0 || year != 0) {
		return common.ErrCompleteWithDate
	}
	return nil
}
