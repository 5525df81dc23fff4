// Package scheduler runs the periodic travel completion sweep on gocron.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/travel-booking/internal/logging"
	"github.com/iliyamo/travel-booking/internal/service"
)

// JobName identifies the sweep in the scheduler and in logs.
const JobName = "travel-completion-sweep"

// Sweeper completes paid bookings whose travel date has passed.
type Sweeper interface {
	CompleteDueTravels(ctx context.Context) (service.SweepResult, error)
}

// TravelSweep runs a Sweeper every interval, starting immediately.  Runs
// never overlap: a run still in progress when the next one is due causes
// that one to be skipped.
type TravelSweep struct {
	sweeper  Sweeper
	interval time.Duration
	log      *logrus.Entry
}

// NewTravelSweep returns a sweep running every interval.
func NewTravelSweep(sweeper Sweeper, interval time.Duration) *TravelSweep {
	return &TravelSweep{
		sweeper:  sweeper,
		interval: interval,
		log:      logrus.WithField("job", JobName),
	}
}

// Run schedules the sweep and blocks until ctx is cancelled, then shuts
// the scheduler down and waits for a running sweep to finish.
func (t *TravelSweep) Run(ctx context.Context) error {
	if t.interval <= 0 {
		return fmt.Errorf("travel sweep: invalid interval %s", t.interval)
	}
	sched, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return fmt.Errorf("travel sweep: create scheduler: %w", err)
	}
	job, err := sched.NewJob(
		gocron.DurationJob(t.interval),
		gocron.NewTask(t.runOnce, ctx),
		gocron.WithName(JobName),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		_ = sched.Shutdown()
		return fmt.Errorf("travel sweep: schedule job: %w", err)
	}
	t.log.WithFields(logrus.Fields{"job_id": job.ID().String(), "interval": t.interval.String()}).Info("scheduled")

	sched.Start()
	<-ctx.Done()
	if err := sched.Shutdown(); err != nil {
		return fmt.Errorf("travel sweep: shutdown: %w", err)
	}
	return nil
}

func (t *TravelSweep) runOnce(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	ctx = logging.ToContext(ctx, t.log)
	start := time.Now()
	res, err := t.sweeper.CompleteDueTravels(ctx)
	log := t.log.WithField("duration", time.Since(start).String())
	if err != nil {
		log.WithError(err).Error("sweep failed")
		return
	}
	if res.Failed > 0 {
		log.WithField("failed", res.Failed).Warn("sweep left bookings for the next run")
	}
}
