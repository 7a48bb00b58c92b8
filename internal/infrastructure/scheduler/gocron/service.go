package scheduler

import (
	"fmt"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/ordlaunch/launchpad/internal/core/ports"
)

type service struct {
	scheduler *gocron.Scheduler
}

func NewScheduler() ports.SchedulerService {
	svc := gocron.NewScheduler(time.UTC)
	return &service{svc}
}

func (s *service) Start() {
	s.scheduler.StartAsync()
}

func (s *service) Stop() {
	s.scheduler.Stop()
}

// ScheduleTask runs task every interval. A run still in progress when the
// next one is due makes the scheduler skip that tick.
func (s *service) ScheduleTask(interval time.Duration, immediate bool, task func()) error {
	if interval < time.Second {
		return fmt.Errorf("invalid interval %s, must be at least 1s", interval)
	}

	job := s.scheduler.Every(interval).SingletonMode()
	if !immediate {
		job = job.WaitForSchedule()
	}
	_, err := job.Do(task)
	return err
}
