// Package scheduler runs the periodic session expiry sweep.
package scheduler

import (
	"fmt"
	"log"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/voxgo-dev/voxgo/pkg/chat"
)

// DefaultSweepSchedule runs the expiry sweep every ten minutes.
const DefaultSweepSchedule = "*/10 * * * *"

// Scheduler drives the background expiry sweep over live sessions.
type Scheduler struct {
	cron     *cron.Cron
	chat     *chat.Service
	maxAge   time.Duration
	schedule string
}

// New creates a scheduler sweeping sessions idle for longer than maxAge.
// schedule is a standard cron expression; empty means DefaultSweepSchedule.
func New(chatSvc *chat.Service, maxAge time.Duration, schedule string) *Scheduler {
	if schedule == "" {
		schedule = DefaultSweepSchedule
	}
	if maxAge <= 0 {
		maxAge = time.Hour
	}
	return &Scheduler{
		cron:     cron.New(cron.WithLocation(time.UTC)),
		chat:     chatSvc,
		maxAge:   maxAge,
		schedule: schedule,
	}
}

// Start registers the sweep job and starts the cron loop.
func (s *Scheduler) Start() error {
	_, err := s.cron.AddFunc(s.schedule, s.sweep)
	if err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", s.schedule, err)
	}

	s.cron.Start()
	log.Printf("scheduler: expiry sweep scheduled (%s), max idle age %s", s.schedule, s.maxAge)
	return nil
}

// Stop halts the cron loop and waits for a running sweep to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	log.Println("scheduler: stopped")
}

func (s *Scheduler) sweep() {
	removed := s.chat.CleanupExpired(s.maxAge)
	if removed > 0 {
		log.Printf("scheduler: removed %d expired sessions, %d active", removed, s.chat.ActiveSessions())
	}
}
