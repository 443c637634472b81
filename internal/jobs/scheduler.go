// Package jobs управляет фоновыми задачами (cron).
// scheduler.go настраивает расписание: ежечасный сброс кэша справочника
// Slack и ежедневное удаление старых kudos (если включено хранение по сроку).
package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"serotonyl.ru/kudos-bot/internal/features/kudos"
)

// DirectoryCache — кэш справочника, который надо периодически сбрасывать.
type DirectoryCache interface {
	Invalidate(ctx context.Context) error
}

// Scheduler управляет фоновыми задачами.
type Scheduler struct {
	cron            *cron.Cron
	loc             *time.Location
	directory       DirectoryCache
	purger          kudos.Purger
	retentionMonths int
	now             func() time.Time
}

// NewScheduler создаёт планировщик в часовом поясе loc.
// retentionMonths == 0 — старые kudos не удаляются.
func NewScheduler(loc *time.Location, directory DirectoryCache, purger kudos.Purger, retentionMonths int) *Scheduler {
	if loc == nil {
		loc = time.UTC
	}
	return &Scheduler{
		cron:            cron.New(cron.WithLocation(loc)),
		loc:             loc,
		directory:       directory,
		purger:          purger,
		retentionMonths: retentionMonths,
		now:             time.Now,
	}
}

// Start запускает все фоновые задачи.
func (s *Scheduler) Start(ctx context.Context) error {
	// Справочник каждый час: переименованные каналы, новые и удалённые пользователи
	if _, err := s.cron.AddFunc("0 * * * *", func() {
		log.Debug("[CRON] Сброс кэша справочника Slack")
		if err := s.directory.Invalidate(ctx); err != nil {
			log.WithError(err).Error("[CRON] Ошибка сброса кэша справочника")
		}
	}); err != nil {
		return err
	}

	if s.retentionMonths > 0 {
		// Ежедневно в 03:00
		if _, err := s.cron.AddFunc("0 3 * * *", func() {
			if _, err := s.PurgeExpired(ctx); err != nil {
				log.WithError(err).Error("[CRON] Ошибка удаления старых kudos")
			}
		}); err != nil {
			return err
		}
	}

	s.cron.Start()
	log.WithFields(log.Fields{
		"timezone":         s.loc.String(),
		"retention_months": s.retentionMonths,
	}).Info("Планировщик задач запущен")
	return nil
}

// Stop останавливает планировщик и ждёт задачи в работе.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Info("Планировщик задач остановлен")
}

// PurgeExpired удаляет kudos старше срока хранения.
func (s *Scheduler) PurgeExpired(ctx context.Context) (int64, error) {
	if s.retentionMonths <= 0 {
		return 0, nil
	}
	cutoff := RetentionCutoff(s.now().In(s.loc), s.retentionMonths)
	n, err := s.purger.Purge(ctx, cutoff, "")
	if err != nil {
		return 0, err
	}
	log.WithFields(log.Fields{
		"before":  cutoff.Format(time.RFC3339),
		"deleted": n,
	}).Info("[CRON] Старые kudos удалены")
	return n, nil
}

// RetentionCutoff — начало месяца, который был months месяцев назад.
// Текущий месяц и months предыдущих остаются целыми.
func RetentionCutoff(now time.Time, months int) time.Time {
	return time.Date(now.Year(), now.Month()-time.Month(months), 1, 0, 0, 0, 0, now.Location())
}
