// Package channels хранит настройки каналов и вычисляет действующие
// (effective) настройки с учётом наследования лидерборда.
// models.go описывает структуры настроек.
package channels

import "time"

// Config — строка таблицы channel_configs. nil — «не задано».
type Config struct {
	ChannelID            string    `db:"channel_id"`
	Personality          *string   `db:"personality_name"`
	MonthlyQuota         *int      `db:"monthly_quota"`
	LeaderboardLimit     *int      `db:"leaderboard_limit"`
	Timezone             *string   `db:"timezone"`
	LeaderboardChannelID *string   `db:"leaderboard_channel_id"`
	CreatedAt            time.Time `db:"created_at"`
	UpdatedAt            time.Time `db:"updated_at"`
}

// Override возвращает канал, у которого наследуется лидерборд.
// Ссылка на самого себя не считается наследованием.
func (c *Config) Override() (string, bool) {
	if c == nil || c.LeaderboardChannelID == nil {
		return "", false
	}
	target := *c.LeaderboardChannelID
	if target == "" || target == c.ChannelID {
		return "", false
	}
	return target, true
}

// Update — частичное обновление настроек. nil-поля не трогают
// сохранённые значения.
type Update struct {
	ChannelID        string
	Personality      *string
	MonthlyQuota     *int
	LeaderboardLimit *int
	Timezone         *string
	// LeaderboardChannelID: nil — не менять, "" — убрать наследование.
	LeaderboardChannelID *string
}

// Effective — настройки, которые реально действуют в канале.
type Effective struct {
	// ChannelID — канал, для которого запрашивали настройки.
	ChannelID string
	// LeaderboardChannelID — действующий канал лидерборда
	// (равен ChannelID, если наследования нет).
	LeaderboardChannelID string
	Inherited            bool

	Personality      string
	MonthlyQuota     int
	LeaderboardLimit int
	Timezone         string
	Location         *time.Location

	// Group — все каналы общего лидерборда: сначала действующий,
	// потом наследующие его по алфавиту.
	Group []string
}

// Now возвращает текущее время в часовом поясе канала.
func (e *Effective) Now(now time.Time) time.Time {
	if e.Location == nil {
		return now.UTC()
	}
	return now.In(e.Location)
}
