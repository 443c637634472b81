// Package kudos реализует отправку kudos, месячную квоту и личную статистику.
// models.go описывает событие kudos и результаты операций.
package kudos

import (
	"time"

	"serotonyl.ru/kudos-bot/internal/period"
)

// Event — одна запись в таблице kudos. Никогда не изменяется.
type Event struct {
	ID        int64     `db:"id"`
	Sender    string    `db:"sender"`
	Receiver  string    `db:"receiver"`
	ChannelID string    `db:"channel_id"`
	CreatedAt time.Time `db:"created_at"`
}

// Role — по какой колонке считать события.
type Role string

const (
	RoleSender   Role = "sender"
	RoleReceiver Role = "receiver"
)

// Column возвращает имя колонки для роли.
func (r Role) Column() string {
	if r == RoleReceiver {
		return "receiver"
	}
	return "sender"
}

// Entry — строка рейтинга: пользователь и число kudos.
type Entry struct {
	UserID string `db:"user_id"`
	Count  int    `db:"count"`
}

// Quota — состояние квоты отправителя в текущем месяце.
type Quota struct {
	Limit    int
	Used     int
	Period   period.Period
	Channels []string
}

// Remaining — сколько kudos ещё можно отправить (не меньше нуля).
func (q *Quota) Remaining() int {
	if q.Used >= q.Limit {
		return 0
	}
	return q.Limit - q.Used
}

// Submission — входящая отправка kudos.
type Submission struct {
	SenderID  string
	ChannelID string
	Text      string
}

// Result — итог отправки.
type Result struct {
	// Recipients — уникальные получатели в порядке упоминания.
	Recipients []string
	Recorded   []string
	Failed     []string
	// Message — исходный текст команды вместе с упоминаниями.
	Message string
	Quota   Quota
	// Remaining считается от количества до отправки плюс успешно записанные.
	Remaining int
}

// Stats — личная статистика пользователя.
type Stats struct {
	Period          period.Period
	Channels        []string
	MonthlySent     int
	MonthlyReceived int
	Quota           int
	Remaining       int
	TotalSent       int
	TotalReceived   int
}
