package jobs

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"cleanhub/internal/config"
	"cleanhub/internal/events"
)

// Scheduler emits periodic maintenance events; the worker does the actual work.
type Scheduler struct {
	cron      *cron.Cron
	cfg       config.JobsConfig
	publisher events.Publisher
	log       zerolog.Logger
}

func NewScheduler(cfg config.JobsConfig, publisher events.Publisher, log zerolog.Logger) *Scheduler {
	return &Scheduler{
		cron:      cron.New(cron.WithSeconds()),
		cfg:       cfg,
		publisher: publisher,
		log:       log,
	}
}

// Start registers the jobs and starts the cron loop. An empty spec disables a job.
func (s *Scheduler) Start() error {
	jobs := []struct {
		spec  string
		event events.Type
	}{
		{s.cfg.PendingReminderSpec, events.PendingReminder},
		{s.cfg.DeviceTokenCleanupSpec, events.DeviceTokenCleanup},
	}
	for _, job := range jobs {
		if job.spec == "" {
			continue
		}
		t := job.event
		if _, err := s.cron.AddFunc(job.spec, func() { s.emit(t) }); err != nil {
			return err
		}
	}

	s.cron.Start()
	return nil
}

// Stop waits up to five seconds for running jobs to finish.
func (s *Scheduler) Stop() {
	select {
	case <-s.cron.Stop().Done():
	case <-time.After(5 * time.Second):
		s.log.Warn().Msg("scheduler stop timed out")
	}
}

func (s *Scheduler) emit(t events.Type) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	event := events.New(t, string(t))
	switch t {
	case events.PendingReminder:
		event.Data["olderThan"] = s.cfg.PendingReminderAge.String()
	case events.DeviceTokenCleanup:
		event.Data["maxIdle"] = s.cfg.DeviceTokenMaxIdle.String()
	}

	if err := s.publisher.Publish(ctx, event); err != nil {
		s.log.Error().Err(err).Str("event_type", string(t)).Msg("enqueue scheduled job failed")
		return
	}
	s.log.Info().Str("event_type", string(t)).Msg("scheduled job enqueued")
}
