package repository

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/iliyamo/travel-booking/internal/model"
)

// MemoryStore keeps products and bookings in process memory.  It
// implements the same contract as the MySQL repositories, including the
// conditional status update, and is used by tests and by the memory
// store backend.  Values are copied on the way in and out so callers can
// never alias stored state.
type MemoryStore struct {
	mu       sync.RWMutex
	products map[string]model.Product
	bookings map[string]model.Booking
}

// NewMemoryStore returns a store preloaded with products.
func NewMemoryStore(products ...model.Product) *MemoryStore {
	s := &MemoryStore{
		products: make(map[string]model.Product, len(products)),
		bookings: make(map[string]model.Booking),
	}
	for _, p := range products {
		s.products[p.ID] = copyProduct(p)
	}
	return s
}

// Upsert inserts or replaces a product.
func (s *MemoryStore) Upsert(_ context.Context, p model.Product) error {
	if err := p.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID] = copyProduct(p)
	return nil
}

// GetProduct returns a product by id, active or not.
func (s *MemoryStore) GetProduct(_ context.Context, id string) (model.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	p, ok := s.products[id]
	if !ok {
		return model.Product{}, fmt.Errorf("%w: %s", model.ErrProductNotFound, id)
	}
	return copyProduct(p), nil
}

// SearchProducts filters active products with the same rules as the MySQL
// repository: exact category, case-insensitive substring on location and
// name, ordered by rating then id.
func (s *MemoryStore) SearchProducts(_ context.Context, q model.ProductSearchQuery) (model.ProductPage, error) {
	q = q.Normalize()
	loc := strings.ToLower(q.Location)
	kw := strings.ToLower(q.Keyword)

	s.mu.RLock()
	matches := make([]model.Product, 0)
	for _, p := range s.products {
		if !p.Active {
			continue
		}
		if q.Category != "" && p.Category() != q.Category {
			continue
		}
		if loc != "" && !strings.Contains(strings.ToLower(p.Location), loc) {
			continue
		}
		if kw != "" && !strings.Contains(strings.ToLower(p.Name), kw) {
			continue
		}
		matches = append(matches, copyProduct(p))
	}
	s.mu.RUnlock()

	sort.Slice(matches, func(i, j int) bool {
		if matches[i].Rating != matches[j].Rating {
			return matches[i].Rating > matches[j].Rating
		}
		return matches[i].ID < matches[j].ID
	})
	page := model.ProductPage{Items: []model.Product{}, Total: int64(len(matches)), Page: q.Page, PageSize: q.PageSize}
	if off := q.Offset(); off < len(matches) {
		end := off + q.PageSize
		if end > len(matches) {
			end = len(matches)
		}
		page.Items = matches[off:end]
	}
	return page, nil
}

// CreateBooking stores b.  Like the foreign key in MySQL, the referenced
// product must exist.
func (s *MemoryStore) CreateBooking(_ context.Context, b model.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.products[b.ProductID]; !ok {
		return fmt.Errorf("%w: %s", model.ErrProductNotFound, b.ProductID)
	}
	if _, ok := s.bookings[b.ID]; ok {
		return fmt.Errorf("%w: booking %s already exists", ErrConflict, b.ID)
	}
	s.bookings[b.ID] = copyBooking(b)
	return nil
}

// GetBooking returns a booking by id.
func (s *MemoryStore) GetBooking(_ context.Context, id string) (model.Booking, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b, ok := s.bookings[id]
	if !ok {
		return model.Booking{}, fmt.Errorf("%w: %s", model.ErrBookingNotFound, id)
	}
	return copyBooking(b), nil
}

// UpdateBookingStatus applies u while the booking is still in u.From.
func (s *MemoryStore) UpdateBookingStatus(_ context.Context, u model.StatusUpdate) (model.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b, ok := s.bookings[u.ID]
	if !ok {
		return model.Booking{}, fmt.Errorf("%w: %s", model.ErrBookingNotFound, u.ID)
	}
	if b.Status != u.From {
		return model.Booking{}, fmt.Errorf("%w: booking %s is %s, expected %s",
			model.ErrStatusConflict, u.ID, b.Status, u.From)
	}
	b.Status = u.To
	b.UpdatedAt = u.At.UTC()
	if u.Pricing != nil {
		u.Pricing.Apply(&b)
	}
	s.bookings[u.ID] = b
	return copyBooking(b), nil
}

// ListBookings returns one page of bookings, newest first.
func (s *MemoryStore) ListBookings(_ context.Context, f model.BookingFilter) ([]model.Booking, int64, error) {
	f = f.Normalize()
	all := s.collect(func(b model.Booking) bool { return f.Status == "" || b.Status == f.Status })
	sortNewestFirst(all)
	total := int64(len(all))
	off := (f.Page - 1) * f.PageSize
	if off >= len(all) {
		return []model.Booking{}, total, nil
	}
	end := off + f.PageSize
	if end > len(all) {
		end = len(all)
	}
	return all[off:end], total, nil
}

// ListByCustomer returns every booking of one customer, newest first.
func (s *MemoryStore) ListByCustomer(_ context.Context, customerID string) ([]model.Booking, error) {
	out := s.collect(func(b model.Booking) bool { return b.CustomerID == customerID })
	sortNewestFirst(out)
	return out, nil
}

// ListDueForCompletion returns up to limit paid bookings with a travel date
// strictly before the given date, oldest travel date first.
func (s *MemoryStore) ListDueForCompletion(_ context.Context, before time.Time, limit int) ([]model.Booking, error) {
	day := model.DateOf(before)
	out := s.collect(func(b model.Booking) bool {
		return b.Status == model.StatusPaymentCompleted && model.DateOf(b.TravelDate).Before(day)
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].TravelDate.Equal(out[j].TravelDate) {
			return out[i].TravelDate.Before(out[j].TravelDate)
		}
		return out[i].ID < out[j].ID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Summary aggregates every stored booking.
func (s *MemoryStore) Summary(_ context.Context) (model.BookingSummary, error) {
	return model.Summarize(s.collect(func(model.Booking) bool { return true })), nil
}

func (s *MemoryStore) collect(keep func(model.Booking) bool) []model.Booking {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.Booking, 0, len(s.bookings))
	for _, b := range s.bookings {
		if keep(b) {
			out = append(out, copyBooking(b))
		}
	}
	return out
}

func sortNewestFirst(bs []model.Booking) {
	sort.Slice(bs, func(i, j int) bool {
		if !bs[i].CreatedAt.Equal(bs[j].CreatedAt) {
			return bs[i].CreatedAt.After(bs[j].CreatedAt)
		}
		return bs[i].ID < bs[j].ID
	})
}

func copyProduct(p model.Product) model.Product { return p.Clone() }

func copyBooking(b model.Booking) model.Booking {
	if b.SpecialRequests != nil {
		s := *b.SpecialRequests
		b.SpecialRequests = &s
	}
	return b
}
