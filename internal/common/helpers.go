// Package common содержит общие утилиты, используемые во всём проекте.
// Сюда входят: форматирование упоминаний Slack, склейка списков,
// форматирование чисел и работа с часовыми поясами.
package common

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// UserMention возвращает упоминание пользователя в формате Slack: <@U123>.
func UserMention(userID string) string {
	return "<@" + userID + ">"
}

// ChannelMention возвращает упоминание канала в формате Slack: <#C123>.
func ChannelMention(channelID string) string {
	return "<#" + channelID + ">"
}

// ChannelMentions превращает ID каналов в упоминания.
func ChannelMentions(channelIDs []string) []string {
	out := make([]string, 0, len(channelIDs))
	for _, id := range channelIDs {
		out = append(out, ChannelMention(id))
	}
	return out
}

// UserMentions склеивает упоминания через пробел.
//
//	UserMentions([]string{"U1", "U2"}) → "<@U1> <@U2>"
func UserMentions(userIDs []string) string {
	out := make([]string, 0, len(userIDs))
	for _, id := range userIDs {
		out = append(out, UserMention(id))
	}
	return strings.Join(out, " ")
}

// JoinWithAnd склеивает список по-английски, без оксфордской запятой.
//
//	JoinWithAnd([]string{"a"})           → "a"
//	JoinWithAnd([]string{"a", "b"})      → "a and b"
//	JoinWithAnd([]string{"a", "b", "c"}) → "a, b and c"
func JoinWithAnd(items []string) string {
	switch len(items) {
	case 0:
		return ""
	case 1:
		return items[0]
	}
	last := len(items) - 1
	return strings.Join(items[:last], ", ") + " and " + items[last]
}

// FormatNumber форматирует число с разделителями тысяч (запятыми).
// Пример: FormatNumber(12350) → "12,350"
func FormatNumber(n int64) string {
	if n < 0 {
		return "-" + FormatNumber(-n)
	}
	if n < 1000 {
		return strconv.FormatInt(n, 10)
	}
	return fmt.Sprintf("%s,%03d", FormatNumber(n/1000), n%1000)
}

// FormatTimeAgo: "3h 12m ago" или "5m ago".
func FormatTimeAgo(since time.Duration) string {
	if since < 0 {
		since = 0
	}
	hours := int(since.Hours())
	minutes := int(since.Minutes()) % 60
	if hours > 0 {
		return fmt.Sprintf("%dh %dm ago", hours, minutes)
	}
	return fmt.Sprintf("%dm ago", minutes)
}

// LoadLocation понимает IANA-имена ("Europe/Moscow"), "UTC" и смещения
// вида "UTC+3" / "UTC-5", которые предлагает диалог настроек.
func LoadLocation(name string) (*time.Location, error) {
	name = strings.TrimSpace(name)
	if name == "" || strings.EqualFold(name, "UTC") {
		return time.UTC, nil
	}

	upper := strings.ToUpper(name)
	if strings.HasPrefix(upper, "UTC+") || strings.HasPrefix(upper, "UTC-") {
		hours, err := strconv.Atoi(upper[3:])
		if err != nil || hours < -12 || hours > 14 {
			return nil, fmt.Errorf("%w: %q", ErrInvalidTimezone, name)
		}
		return time.FixedZone(upper, hours*60*60), nil
	}

	loc, err := time.LoadLocation(name)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidTimezone, name)
	}
	return loc, nil
}
