package model

import "math"

// DiscountRate returns the catalog discount of p in whole percent, rounded
// half away from zero.  Products without a list price have no discount.
func DiscountRate(p Product) int {
	if p.OriginalPrice <= 0 {
		return 0
	}
	return int(math.Round(float64(p.OriginalPrice-p.SalePrice) / float64(p.OriginalPrice) * 100))
}

// FinalPrice is the amount the customer pays for b.
func FinalPrice(b Booking) int64 { return b.TotalPrice }

// BookingSummary aggregates bookings for the admin dashboard.
type BookingSummary struct {
	Total   int            `json:"total"`
	Counts  map[Status]int `json:"counts"`
	Revenue int64          `json:"revenue"`
}

// StatusTotal is the number of bookings in one status and the sum of their
// total prices.
type StatusTotal struct {
	Status Status
	Count  int
	Amount int64
}

// paidStatus reports whether bookings in s count towards revenue.
func paidStatus(s Status) bool {
	return s == StatusPaymentCompleted || s == StatusTravelCompleted
}

// SummaryFromTotals builds the dashboard summary from per-status totals,
// e.g. the rows of a GROUP BY query.  Every status is present in Counts,
// even when zero.  Revenue only includes paid bookings.
func SummaryFromTotals(totals []StatusTotal) BookingSummary {
	s := BookingSummary{Counts: make(map[Status]int, len(Statuses))}
	for _, st := range Statuses {
		s.Counts[st] = 0
	}
	for _, t := range totals {
		s.Total += t.Count
		s.Counts[t.Status] += t.Count
		if paidStatus(t.Status) {
			s.Revenue += t.Amount
		}
	}
	return s
}

// Summarize is SummaryFromTotals over a slice of bookings.
func Summarize(bookings []Booking) BookingSummary {
	totals := make([]StatusTotal, 0, len(bookings))
	for _, b := range bookings {
		totals = append(totals, StatusTotal{Status: b.Status, Count: 1, Amount: FinalPrice(b)})
	}
	return SummaryFromTotals(totals)
}
