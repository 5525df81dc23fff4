package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"

	"github.com/iliyamo/travel-booking/internal/model"
)

// MySQL server error numbers the repository classifies.
const (
	mysqlErrDuplicateEntry  = 1062
	mysqlErrNoReferencedRow = 1452
)

// BookingRepo persists bookings in MySQL.  Status changes are conditional
// updates (UPDATE ... WHERE status = expected) so two concurrent
// transitions on one booking can never both succeed.
type BookingRepo struct {
	db *sql.DB
}

// NewBookingRepo returns a BookingRepo bound to db.
func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{db: db} }

const bookingColumns = `id, product_id, product_name, customer_id, customer_name, travel_date, travelers,
       original_price, discounted_amount, total_price, special_requests, status, created_at, updated_at`

// CreateBooking inserts b.  A product id that does not reference a
// catalog row is reported as model.ErrProductNotFound and a reused booking
// id as ErrConflict.
func (r *BookingRepo) CreateBooking(ctx context.Context, b model.Booking) error {
	const q = `INSERT INTO bookings (` + bookingColumns + `)
               VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	var special sql.NullString
	if b.SpecialRequests != nil {
		special = sql.NullString{String: *b.SpecialRequests, Valid: true}
	}
	_, err := r.db.ExecContext(ctx, q,
		b.ID, b.ProductID, b.ProductName, b.CustomerID, b.CustomerName,
		model.DateOf(b.TravelDate), b.Travelers,
		b.OriginalPrice, b.DiscountedAmount, b.TotalPrice, special,
		string(b.Status), b.CreatedAt.UTC(), b.UpdatedAt.UTC())
	return classifyWriteErr(err, b)
}

func classifyWriteErr(err error, b model.Booking) error {
	if err == nil {
		return nil
	}
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		switch me.Number {
		case mysqlErrDuplicateEntry:
			return fmt.Errorf("%w: booking %s already exists", ErrConflict, b.ID)
		case mysqlErrNoReferencedRow:
			return fmt.Errorf("%w: %s", model.ErrProductNotFound, b.ProductID)
		}
	}
	return err
}

// GetBooking returns the booking with the given id or
// model.ErrBookingNotFound.
func (r *BookingRepo) GetBooking(ctx context.Context, id string) (model.Booking, error) {
	return getBooking(ctx, r.db, id)
}

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getBooking(ctx context.Context, q queryer, id string) (model.Booking, error) {
	row := q.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = ?`, id)
	b, err := scanBooking(row)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Booking{}, fmt.Errorf("%w: %s", model.ErrBookingNotFound, id)
	}
	return b, err
}

// UpdateBookingStatus applies u only while the stored status still equals
// u.From.  When the booking has moved on in the meantime the update is
// not applied and model.ErrStatusConflict is returned.  Pricing, when
// present, is written in the same statement as the status change.
func (r *BookingRepo) UpdateBookingStatus(ctx context.Context, u model.StatusUpdate) (model.Booking, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Booking{}, err
	}
	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback()
		}
	}()

	var res sql.Result
	if u.Pricing != nil {
		const q = `UPDATE bookings
                   SET status = ?, original_price = ?, discounted_amount = ?, total_price = ?, updated_at = ?
                   WHERE id = ? AND status = ?`
		res, err = tx.ExecContext(ctx, q, string(u.To),
			u.Pricing.OriginalPrice, u.Pricing.DiscountedAmount, u.Pricing.TotalPrice,
			u.At.UTC(), u.ID, string(u.From))
	} else {
		const q = `UPDATE bookings SET status = ?, updated_at = ? WHERE id = ? AND status = ?`
		res, err = tx.ExecContext(ctx, q, string(u.To), u.At.UTC(), u.ID, string(u.From))
	}
	if err != nil {
		return model.Booking{}, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return model.Booking{}, err
	}
	if n == 0 {
		// Either the booking is gone or its status is no longer u.From.
		var current string
		err := tx.QueryRowContext(ctx, `SELECT status FROM bookings WHERE id = ?`, u.ID).Scan(&current)
		if errors.Is(err, sql.ErrNoRows) {
			return model.Booking{}, fmt.Errorf("%w: %s", model.ErrBookingNotFound, u.ID)
		}
		if err != nil {
			return model.Booking{}, err
		}
		return model.Booking{}, fmt.Errorf("%w: booking %s is %s, expected %s",
			model.ErrStatusConflict, u.ID, current, u.From)
	}

	b, err := getBooking(ctx, tx, u.ID)
	if err != nil {
		return model.Booking{}, err
	}
	if err := tx.Commit(); err != nil {
		return model.Booking{}, err
	}
	committed = true
	return b, nil
}

// ListBookings returns one page of bookings, newest first, optionally
// restricted to a status, together with the total number of matches.
func (r *BookingRepo) ListBookings(ctx context.Context, f model.BookingFilter) ([]model.Booking, int64, error) {
	f = f.Normalize()
	where := ""
	args := []any{}
	if f.Status != "" {
		where = " WHERE status = ?"
		args = append(args, string(f.Status))
	}
	var total int64
	if err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM bookings`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}
	if total == 0 {
		return []model.Booking{}, 0, nil
	}
	args = append(args, f.PageSize, (f.Page-1)*f.PageSize)
	out, err := r.query(ctx,
		`SELECT `+bookingColumns+` FROM bookings`+where+` ORDER BY created_at DESC, id ASC LIMIT ? OFFSET ?`,
		args...)
	if err != nil {
		return nil, 0, err
	}
	return out, total, nil
}

// ListByCustomer returns every booking of one customer, newest first.
func (r *BookingRepo) ListByCustomer(ctx context.Context, customerID string) ([]model.Booking, error) {
	return r.query(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE customer_id = ? ORDER BY created_at DESC, id ASC`,
		customerID)
}

// ListDueForCompletion returns up to limit paid bookings whose travel date
// lies strictly before the given date.
func (r *BookingRepo) ListDueForCompletion(ctx context.Context, before time.Time, limit int) ([]model.Booking, error) {
	return r.query(ctx,
		`SELECT `+bookingColumns+` FROM bookings
         WHERE status = ? AND travel_date < ?
         ORDER BY travel_date ASC, id ASC LIMIT ?`,
		string(model.StatusPaymentCompleted), model.DateOf(before), limit)
}

// StatusTotals returns the number of bookings and the sum of their totals
// per status.  Statuses without bookings are omitted.
func (r *BookingRepo) StatusTotals(ctx context.Context) ([]model.StatusTotal, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT status, COUNT(*), COALESCE(SUM(total_price), 0) FROM bookings GROUP BY status`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []model.StatusTotal
	for rows.Next() {
		var (
			st     string
			totals model.StatusTotal
		)
		if err := rows.Scan(&st, &totals.Count, &totals.Amount); err != nil {
			return nil, err
		}
		totals.Status = model.Status(st)
		out = append(out, totals)
	}
	return out, rows.Err()
}

// Summary aggregates every booking into the dashboard summary.
func (r *BookingRepo) Summary(ctx context.Context) (model.BookingSummary, error) {
	totals, err := r.StatusTotals(ctx)
	if err != nil {
		return model.BookingSummary{}, err
	}
	return model.SummaryFromTotals(totals), nil
}

func (r *BookingRepo) query(ctx context.Context, q string, args ...any) ([]model.Booking, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make([]model.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, b)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func scanBooking(s rowScanner) (model.Booking, error) {
	var (
		b       model.Booking
		special sql.NullString
		status  string
	)
	if err := s.Scan(&b.ID, &b.ProductID, &b.ProductName, &b.CustomerID, &b.CustomerName,
		&b.TravelDate, &b.Travelers, &b.OriginalPrice, &b.DiscountedAmount, &b.TotalPrice,
		&special, &status, &b.CreatedAt, &b.UpdatedAt); err != nil {
		return model.Booking{}, err
	}
	st, err := model.ParseStatus(status)
	if err != nil {
		return model.Booking{}, fmt.Errorf("booking %s: %w", b.ID, err)
	}
	b.Status = st
	b.TravelDate = model.DateOf(b.TravelDate)
	b.CreatedAt = b.CreatedAt.UTC()
	b.UpdatedAt = b.UpdatedAt.UTC()
	if special.Valid && strings.TrimSpace(special.String) != "" {
		s := special.String
		b.SpecialRequests = &s
	}
	return b, nil
}
