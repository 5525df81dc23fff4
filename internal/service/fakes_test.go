package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/iliyamo/travel-booking/internal/model"
	"github.com/iliyamo/travel-booking/internal/queue"
	"github.com/iliyamo/travel-booking/internal/repository"
)

// clock is a settable time source.
type clock struct {
	mu  sync.Mutex
	now time.Time
}

func newClock(y int, m time.Month, d int) *clock {
	return &clock{now: time.Date(y, m, d, 9, 0, 0, 0, time.UTC)}
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

// recordingPublisher keeps every published event.
type recordingPublisher struct {
	mu     sync.Mutex
	events []queue.BookingStatusChangedEvent
}

func (p *recordingPublisher) PublishStatusChanged(_ context.Context, ev queue.BookingStatusChangedEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) Events() []queue.BookingStatusChangedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]queue.BookingStatusChangedEvent(nil), p.events...)
}

// failingPublisher rejects every event.
type failingPublisher struct{ calls atomic.Int32 }

func (p *failingPublisher) PublishStatusChanged(context.Context, queue.BookingStatusChangedEvent) error {
	p.calls.Add(1)
	return errors.New("broker unavailable")
}

// barrierStore holds the first n GetBooking calls until all n have read,
// so n concurrent transitions observe the same prior state.
type barrierStore struct {
	*repository.MemoryStore
	reads   atomic.Int32
	n       int32
	arrived sync.WaitGroup
}

func newBarrierStore(inner *repository.MemoryStore, n int) *barrierStore {
	s := &barrierStore{MemoryStore: inner, n: int32(n)}
	s.arrived.Add(n)
	return s
}

func (s *barrierStore) GetBooking(ctx context.Context, id string) (model.Booking, error) {
	b, err := s.MemoryStore.GetBooking(ctx, id)
	if s.reads.Add(1) <= s.n {
		s.arrived.Done()
		s.arrived.Wait()
	}
	return b, err
}

// brokenStore fails every status update.
type brokenStore struct {
	*repository.MemoryStore
}

func (s brokenStore) UpdateBookingStatus(context.Context, model.StatusUpdate) (model.Booking, error) {
	return model.Booking{}, errors.New("connection reset")
}
