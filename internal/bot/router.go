package bot

import (
	"strings"
)

// Route — подкоманда /kk.
type Route string

const (
	RouteKudos         Route = "kudos"
	RouteLeaderboard   Route = "leaderboard"
	RouteStats         Route = "stats"
	RouteHelp          Route = "help"
	RouteConfigShow    Route = "config"
	RouteConfigEdit    Route = "config edit"
	RouteConfigDefault Route = "config default"
	RouteStatus        Route = "status"
	RouteVersion       Route = "version"
)

// ParseCommand разбирает текст /kk на подкоманду и её аргументы.
//
// Первое слово сравнивается без учёта регистра. Одиночное незнакомое
// слово показывает справку. Всё остальное (в том числе пустой текст)
// считается отправкой kudos, аргументы — весь текст.
func ParseCommand(text string) (Route, string) {
	text = strings.TrimSpace(text)
	parts := strings.Fields(text)
	if len(parts) == 0 {
		return RouteKudos, ""
	}

	first := strings.ToLower(parts[0])
	rest := strings.TrimSpace(text[len(parts[0]):])

	switch first {
	case "leaderboard":
		return RouteLeaderboard, rest
	case "stats":
		return RouteStats, rest
	case "help":
		return RouteHelp, rest
	case "status":
		return RouteStatus, rest
	case "version":
		return RouteVersion, rest
	case "config":
		if len(parts) > 1 {
			switch strings.ToLower(parts[1]) {
			case "edit":
				return RouteConfigEdit, ""
			case "default":
				return RouteConfigDefault, ""
			}
		}
		return RouteConfigShow, rest
	}

	if len(parts) == 1 {
		return RouteHelp, ""
	}
	return RouteKudos, text
}
