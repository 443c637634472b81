// Package period разбирает месяц и год из свободного текста
// и определяет, за какой месяц строить отчёт.
package period

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"serotonyl.ru/kudos-bot/internal/common"
)

// Period — календарный месяц в часовом поясе канала.
type Period struct {
	Month time.Month
	Year  int
	Loc   *time.Location
}

var (
	yearPattern      = regexp.MustCompile(`^\d{4}$`)
	shortYearPattern = regexp.MustCompile(`^\d{2}$`)
	monthMap         = buildMonthMap()
)

// buildMonthMap: "august", "aug", "8", "08" → 8.
func buildMonthMap() map[string]time.Month {
	m := make(map[string]time.Month, 48)
	for i := time.January; i <= time.December; i++ {
		name := strings.ToLower(i.String())
		m[name] = i
		m[name[:3]] = i
		m[strconv.Itoa(int(i))] = i
		m[fmt.Sprintf("%02d", int(i))] = i
	}
	return m
}

// Parse извлекает месяц и год из текста. 0 означает «не указано».
//
// Порядок проверок важен: сначала таблица месяцев, потом 4 цифры (год),
// потом 2 цифры (20xx). Поэтому "08" — это август, а не 2008 год.
// Годы до 2000 двумя цифрами не выразить.
func Parse(text string) (month, year int) {
	for _, part := range strings.Fields(strings.ToLower(text)) {
		switch {
		case monthMap[part] != 0:
			month = int(monthMap[part])
		case yearPattern.MatchString(part):
			year, _ = strconv.Atoi(part)
		case shortYearPattern.MatchString(part):
			v, _ := strconv.Atoi(part)
			year = 2000 + v
		}
	}
	return month, year
}

// Resolve превращает (month, year) в конкретный период.
// now должен быть уже в часовом поясе канала.
//
//   - ничего не указано → текущий месяц;
//   - только год → текущий месяц указанного года;
//   - только месяц → последнее наступившее вхождение этого месяца;
//   - оба → как есть.
func Resolve(month, year int, now time.Time) (Period, error) {
	loc := now.Location()
	if month == 0 && year == 0 {
		return Current(now), nil
	}
	if month < 0 || month > 12 {
		return Period{}, fmt.Errorf("%w: %d", common.ErrInvalidMonth, month)
	}
	if month == 0 {
		return Period{Month: now.Month(), Year: year, Loc: loc}, nil
	}
	if year == 0 {
		year = now.Year()
		today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, loc)
		if time.Date(year, time.Month(month), 1, 0, 0, 0, 0, loc).After(today) {
			year--
		}
	}
	return Period{Month: time.Month(month), Year: year, Loc: loc}, nil
}

// Current возвращает месяц, в котором находится now.
func Current(now time.Time) Period {
	return Period{Month: now.Month(), Year: now.Year(), Loc: now.Location()}
}

// Start — начало месяца (включительно).
func (p Period) Start() time.Time {
	return time.Date(p.Year, p.Month, 1, 0, 0, 0, 0, p.location())
}

// End — начало следующего месяца (не включительно).
func (p Period) End() time.Time {
	return p.Start().AddDate(0, 1, 0)
}

// Contains проверяет, попадает ли момент t в период.
func (p Period) Contains(t time.Time) bool {
	return !t.Before(p.Start()) && t.Before(p.End())
}

// String: "August 2024".
func (p Period) String() string {
	return fmt.Sprintf("%s %d", p.Month, p.Year)
}

func (p Period) location() *time.Location {
	if p.Loc == nil {
		return time.UTC
	}
	return p.Loc
}
