// Package jobs управляет фоновыми задачами (cron).
// scheduler.go настраивает расписание: ежечасные напоминания о неоплаченных
// ссылках и ежедневный дайджест продаж создателям.
package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	log "github.com/sirupsen/logrus"

	"clickfix.ru/clickfix-bot/internal/common"
	"clickfix.ru/clickfix-bot/internal/config"
	"clickfix.ru/clickfix-bot/internal/features/sales"
)

// Scheduler управляет фоновыми задачами.
type Scheduler struct {
	cron         *cron.Cron
	salesService *sales.Service
	cfg          *config.Config
	sendFunc     func(userID int64, text string)
}

// NewScheduler создаёт планировщик задач в часовом поясе приложения.
func NewScheduler(salesService *sales.Service, cfg *config.Config, sendFunc func(userID int64, text string)) *Scheduler {
	loc := common.AppLocation(cfg.AppTimezone)
	c := cron.New(cron.WithLocation(loc))

	return &Scheduler{
		cron:         c,
		salesService: salesService,
		cfg:          cfg,
		sendFunc:     sendFunc,
	}
}

// Start запускает все фоновые задачи.
func (s *Scheduler) Start(ctx context.Context) {
	// Напоминания об оплате каждый час
	s.cron.AddFunc("30 * * * *", func() {
		log.Debug("[CRON] Проверка неоплаченных продаж")
		if err := s.salesService.SendReminders(ctx, s.cfg.ReminderAfter, s.sendFunc); err != nil {
			log.WithError(err).Error("[CRON] Ошибка напоминаний")
		}
	})

	// Дайджест продаж создателям в 09:00
	s.cron.AddFunc("0 9 * * *", func() {
		log.Info("[CRON] Дайджест продаж создателям")
		s.sendDigests(ctx)
	})

	s.cron.Start()
	log.WithField("tz", s.cfg.AppTimezone).Info("Планировщик задач запущен")
}

// sendDigests отправляет каждому создателю сводку оплат за сутки.
func (s *Scheduler) sendDigests(ctx context.Context) {
	since := time.Now().Add(-24 * time.Hour)
	for _, creatorID := range s.cfg.CreatorIDs {
		text, err := s.salesService.CreatorDashboard(ctx, creatorID, since)
		if err != nil {
			log.WithError(err).WithField("creator_id", creatorID).Error("[CRON] Ошибка дайджеста")
			continue
		}
		s.sendFunc(creatorID, "🗞 За последние сутки:\n\n"+text)
	}
}

// Stop останавливает планировщик.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Info("Планировщик задач остановлен")
}
