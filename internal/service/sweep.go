package service

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/iliyamo/travel-booking/internal/logging"
	"github.com/iliyamo/travel-booking/internal/model"
)

// SweepResult counts what one travel completion sweep did.
type SweepResult struct {
	Completed int // bookings moved to TRAVEL_COMPLETED
	Skipped   int // bookings another transition changed first
	Failed    int // bookings that hit a store error
}

// CompleteDueTravels marks every paid booking whose travel date lies
// before today as TRAVEL_COMPLETED.  Bookings that change state while the
// sweep runs are skipped rather than reported.  Running the sweep again
// on the same day completes nothing new.
func (s *BookingService) CompleteDueTravels(ctx context.Context) (SweepResult, error) {
	var res SweepResult
	log := logging.FromContext(ctx).WithField("job", "travel-sweep")
	for {
		due, err := s.bookings.ListDueForCompletion(ctx, s.now(), s.batch)
		if err != nil {
			return res, err
		}
		progressed := false
		for _, b := range due {
			if err := ctx.Err(); err != nil {
				return res, err
			}
			_, err := s.MarkTravelCompleted(ctx, model.SystemActor, b.ID)
			switch {
			case err == nil:
				res.Completed++
				progressed = true
			case errors.Is(err, model.ErrInvalidTransition), errors.Is(err, model.ErrBookingNotFound):
				res.Skipped++
				progressed = true
			default:
				res.Failed++
				log.WithError(err).WithField("booking_id", b.ID).Warn("travel completion failed")
			}
		}
		// A short batch means nothing is left.  A batch without progress
		// would be returned again, so stop and retry on the next run.
		if len(due) < s.batch || !progressed {
			break
		}
	}
	log.WithFields(logrus.Fields{
		"completed": res.Completed,
		"skipped":   res.Skipped,
		"failed":    res.Failed,
	}).Info("travel sweep finished")
	return res, nil
}
