// Package common — errors.go определяет пользовательские ошибки,
// которые используются во всех модулях бота.
// Эти ошибки позволяют обработчикам различать ошибки валидации
// (их видит пользователь) и инфраструктурные сбои (БД, Slack API).
package common

import (
	"errors"
	"fmt"
)

// Ошибки отправки kudos
var (
	// ErrNoMentions — в команде нет ни одного упоминания получателя
	ErrNoMentions = errors.New("не указан ни один получатель")
	// ErrSelfKudos — попытка отправить kudos самому себе
	ErrSelfKudos = errors.New("нельзя отправлять kudos самому себе")
	// ErrBotKudos — попытка отправить kudos самому боту
	ErrBotKudos = errors.New("нельзя отправлять kudos боту")
	// ErrEmptyMessage — после упоминаний не осталось текста
	ErrEmptyMessage = errors.New("пустое сообщение")
	// ErrQuotaExceeded — месячная квота исчерпана (детали в QuotaExceededError)
	ErrQuotaExceeded = errors.New("месячная квота исчерпана")
)

// Ошибки лидерборда
var (
	// ErrCompleteWithDate — complete работает только для текущего месяца
	ErrCompleteWithDate = errors.New("complete нельзя сочетать с месяцем или годом")
	// ErrInvalidMonth — номер месяца вне диапазона 1..12
	ErrInvalidMonth = errors.New("некорректный месяц")
	// ErrChannelNotFound — канал с таким именем не найден
	ErrChannelNotFound = errors.New("канал не найден")
	// ErrChannelAccessDenied — у бота нет прав на поиск каналов
	ErrChannelAccessDenied = errors.New("нет доступа к списку каналов")
)

// Ошибки настроек канала
var (
	// ErrSelfOverride — канал не может наследовать лидерборд у самого себя
	ErrSelfOverride = errors.New("канал не может ссылаться на самого себя")
	// ErrInvalidChannelID — строка не похожа на ID канала Slack
	ErrInvalidChannelID = errors.New("некорректный ID канала")
	// ErrInvalidQuota — квота должна быть положительной
	ErrInvalidQuota = errors.New("квота должна быть положительной")
	// ErrInvalidLimit — размер лидерборда должен быть положительным
	ErrInvalidLimit = errors.New("размер лидерборда должен быть положительным")
	// ErrUnknownPersonality — такой персонажности нет в каталоге
	ErrUnknownPersonality = errors.New("неизвестная персонажность")
	// ErrInvalidTimezone — часовой пояс не удалось загрузить
	ErrInvalidTimezone = errors.New("некорректный часовой пояс")
)

// QuotaExceededError сообщает, сколько kudos запрошено и сколько осталось.
// errors.Is(err, ErrQuotaExceeded) == true.
type QuotaExceededError struct {
	Needed    int
	Remaining int
}

func (e *QuotaExceededError) Error() string {
	return fmt.Sprintf("%s: нужно %d, осталось %d", ErrQuotaExceeded, e.Needed, e.Remaining)
}

func (e *QuotaExceededError) Is(target error) bool {
	return target == ErrQuotaExceeded
}

var validationErrors = []error{
	ErrNoMentions,
	ErrSelfKudos,
	ErrBotKudos,
	ErrEmptyMessage,
	ErrQuotaExceeded,
	ErrCompleteWithDate,
	ErrInvalidMonth,
	ErrChannelNotFound,
	ErrChannelAccessDenied,
	ErrSelfOverride,
	ErrInvalidChannelID,
	ErrInvalidQuota,
	ErrInvalidLimit,
	ErrUnknownPersonality,
	ErrInvalidTimezone,
}

// IsValidation возвращает true для ошибок, которые надо показать пользователю
// как есть. Всё остальное считается инфраструктурным сбоем.
func IsValidation(err error) bool {
	if err == nil {
		return false
	}
	for _, v := range validationErrors {
		if errors.Is(err, v) {
			return true
		}
	}
	return false
}
