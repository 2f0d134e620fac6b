// services/scheduler.go
package services

import (
	"log"
	"time"

	"khatam-tracker/models"

	"github.com/go-co-op/gocron/v2"
)

// StartDeadlineSweep flips khatams past their deadline to closed once a
// minute. Handlers enforce the deadline against the clock; the flag exists
// for listings and operational visibility.
func (s *KhatamService) StartDeadlineSweep() {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	_, _ = sched.NewJob(
		gocron.DurationJob(1*time.Minute),
		gocron.NewTask(func() {
			if err := s.CloseExpiredKhatams(time.Now()); err != nil {
				log.Printf("[Sweep] DB error: %v", err)
			}
		}),
	)
}

// CloseExpiredKhatams marks every open khatam whose deadline has passed.
func (s *KhatamService) CloseExpiredKhatams(now time.Time) error {
	var khatams []models.Khatam
	err := s.DB.Where("is_closed = ? AND read_by_at <= ?", false, now).
		Find(&khatams).Error
	if err != nil {
		return err
	}

	for _, k := range khatams {
		k.IsClosed = true
		if err := s.DB.Save(&k).Error; err != nil {
			log.Printf("[Sweep] Failed to close khatam %s: %v", k.ID, err)
		} else {
			log.Printf("✅ Closed khatam past deadline: %s", k.Slug)
		}
	}
	return nil
}
