// Package schedule triggers full dispatch runs on a cron expression, the
// same pass a manual `jobreach send` performs.
package schedule

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/shubhampawar7/JobReach/internal/config"
	"github.com/shubhampawar7/JobReach/internal/engine"
	"github.com/shubhampawar7/JobReach/pkg/logx"
)

type Service struct {
	eng *engine.Engine
	log logx.Logger

	spec  cron.Schedule
	c     *cron.Cron
	inRun atomic.Bool
}

// New parses cfg and prepares the cron runner. Standard 5-field specs and
// descriptors ("@daily", "@every 12h") are accepted.
func New(eng *engine.Engine, cfg config.ScheduleConfig, log logx.Logger) (*Service, error) {
	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)
	spec, err := parser.Parse(strings.TrimSpace(cfg.Cron))
	if err != nil {
		return nil, fmt.Errorf("schedule.cron: invalid spec %q: %w", cfg.Cron, err)
	}

	loc := time.Local
	if tz := strings.TrimSpace(cfg.Timezone); tz != "" {
		loc, err = time.LoadLocation(tz)
		if err != nil {
			return nil, fmt.Errorf("schedule.timezone: %w", err)
		}
	}

	return &Service{
		eng:  eng,
		log:  log,
		spec: spec,
		c:    cron.New(cron.WithLocation(loc), cron.WithParser(parser)),
	}, nil
}

// Start launches the cron loop; it runs until Stop.
func (s *Service) Start(ctx context.Context) {
	s.c.Schedule(s.spec, cron.FuncJob(func() { s.tick(ctx) }))
	s.c.Start()
	s.log.Info("schedule started", logx.Time("next", s.spec.Next(time.Now())))
}

// Stop halts the cron loop and waits for an in-flight tick to return.
func (s *Service) Stop() {
	<-s.c.Stop().Done()
}

// tick runs one full pass. A tick arriving while a run is still in flight
// is dropped; the next tick picks up whatever is still pending.
func (s *Service) tick(ctx context.Context) {
	if !s.inRun.CompareAndSwap(false, true) {
		s.log.Warn("scheduled run skipped; previous run still in flight")
		return
	}
	defer s.inRun.Store(false)

	res, err := s.eng.Run(ctx, engine.TriggerSchedule, nil)
	if err != nil {
		s.log.Error("scheduled run failed", logx.Err(err))
		return
	}
	s.log.Info("scheduled run complete",
		logx.Int("sent", res.Sent),
		logx.Int("errored", res.Errored),
		logx.Int("pending", res.Pending),
	)
}
