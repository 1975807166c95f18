// services/scheduler.go
package services

import (
	"context"
	"log"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// StartSweepScheduler runs the expiry sweep every minute: claim windows
// that closed without a claim become missed, ended validity periods become
// expired.
func (s *StatusService) StartSweepScheduler() {
	sched, _ := gocron.NewScheduler()
	sched.Start()

	_, _ = sched.NewJob(
		gocron.DurationJob(1*time.Minute),
		gocron.NewTask(func() {
			missed, expired, err := s.SweepExpirations(context.Background(), time.Now())
			if err != nil {
				log.Printf("[Sweeper] sweep failed: %v", err)
				return
			}
			if missed > 0 || expired > 0 {
				log.Printf("✅ [Sweeper] transitioned %d missed, %d expired", missed, expired)
			}
		}),
	)
}
