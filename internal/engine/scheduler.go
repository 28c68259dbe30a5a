package engine

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/VascoHenr/VaR-versus-ES-in-GCLT/pkg/utils/logger"
)

// Scheduler runs RecalculateAll on a cron schedule. A run still in progress
// makes the next tick a no-op.
type Scheduler struct {
	cron   *cron.Cron
	engine *Engine
	spec   string
	ctx    context.Context
	log    *logger.Logger
}

// ScheduleSpec returns schedule when set, otherwise an @every spec for
// interval
func ScheduleSpec(schedule string, interval time.Duration) string {
	if schedule != "" {
		return schedule
	}
	return "@every " + interval.String()
}

// NewScheduler validates spec and creates a stopped scheduler
func NewScheduler(engine *Engine, spec string) (*Scheduler, error) {
	s := &Scheduler{
		cron:   cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger))),
		engine: engine,
		spec:   spec,
		ctx:    context.Background(),
		log:    logger.GetLogger("engine.scheduler"),
	}

	if _, err := s.cron.AddFunc(spec, s.run); err != nil {
		return nil, err
	}
	return s, nil
}

// Start begins scheduling; runs use ctx
func (s *Scheduler) Start(ctx context.Context) {
	s.ctx = ctx
	s.log.Infof("Scheduling risk recalculation %q", s.spec)
	s.cron.Start()
}

// Stop stops scheduling and waits for a running recalculation
func (s *Scheduler) Stop() {
	<-s.cron.Stop().Done()
}

// Next returns the time of the next scheduled run
func (s *Scheduler) Next() time.Time {
	entries := s.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}

func (s *Scheduler) run() {
	start := time.Now()
	if err := s.engine.RecalculateAll(s.ctx); err != nil {
		s.log.Warnf("Scheduled recalculation finished with errors: %v", err)
	}
	s.log.Infof("Scheduled recalculation took %v", time.Since(start))
}
