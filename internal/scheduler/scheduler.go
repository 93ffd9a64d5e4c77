// internal/scheduler/scheduler.go
package scheduler

import (
	"log/slog"

	"github.com/robfig/cron/v3"
	"github.com/user/clawboard/internal/config"
)

// Handler is the callback invoked when a scheduled prompt fires.
type Handler func(name, prompt string)

// Scheduler fires configured recurring prompts through a handler callback.
// A fired prompt goes through the same start path as a manual one, budget
// gate included.
type Scheduler struct {
	schedules []config.Schedule
	handler   Handler
	cron      *cron.Cron
}

// cronParser accepts both standard 5-field cron expressions and 6-field
// expressions with an optional seconds field.
var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

// New creates a Scheduler for the given schedule entries.
func New(schedules []config.Schedule, handler Handler) *Scheduler {
	return &Scheduler{
		schedules: schedules,
		handler:   handler,
		cron:      cron.New(cron.WithParser(cronParser)),
	}
}

// Start registers enabled entries that have a cron expression and starts the
// ticker. Invalid expressions are logged and skipped.
func (s *Scheduler) Start() error {
	for _, entry := range s.schedules {
		if entry.Cron == "" || !entry.Enabled {
			continue
		}

		name := entry.Name
		prompt := entry.Prompt
		spec := entry.Cron

		_, err := s.cron.AddFunc(spec, func() {
			slog.Info("cron firing prompt", "name", name)
			s.handler(name, prompt)
		})
		if err != nil {
			slog.Error("invalid cron schedule", "name", name, "schedule", spec, "error", err)
			continue
		}
		slog.Info("scheduled prompt", "name", name, "schedule", spec)
	}

	s.cron.Start()
	return nil
}

// Stop stops the cron ticker.
func (s *Scheduler) Stop() {
	s.cron.Stop()
}
