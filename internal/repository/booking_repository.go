package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/iliyamo/booking-marketplace/internal/model"
)

// BookingRepo provides persistence for the bookings table.  State changes go
// exclusively through Transition so that every status write is guarded by
// the expected prior status and the owning party.
type BookingRepo struct{ DB *sql.DB }

func NewBookingRepo(db *sql.DB) *BookingRepo { return &BookingRepo{DB: db} }

const bookingColumns = `id, user_id, provider_id, service_id, booking_date, status,
	workers_requested, estimated_hours, estimated_price, booking_details,
	accepted_at, started_at, completed_at, created_at`

func scanBooking(row interface{ Scan(...any) error }, extra ...any) (model.Booking, error) {
	var (
		b                               model.Booking
		details                         []byte
		accepted, started, completedAt sql.NullTime
	)
	dest := []any{&b.ID, &b.UserID, &b.ProviderID, &b.ServiceID, &b.BookingDate, &b.Status,
		&b.WorkersRequested, &b.EstimatedHours, &b.EstimatedPrice, &details,
		&accepted, &started, &completedAt, &b.CreatedAt}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return model.Booking{}, err
	}
	if len(details) > 0 {
		b.BookingDetails = json.RawMessage(details)
	}
	b.AcceptedAt = nullTimePtr(accepted)
	b.StartedAt = nullTimePtr(started)
	b.CompletedAt = nullTimePtr(completedAt)
	return b, nil
}

func nullTimePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

// Insert stores a new booking and fills b with the persisted row.  Status is
// forced to pending.
func (r *BookingRepo) Insert(ctx context.Context, b *model.Booking) error {
	var details any
	if len(b.BookingDetails) > 0 {
		details = string(b.BookingDetails)
	}
	res, err := r.DB.ExecContext(ctx,
		`INSERT INTO bookings (user_id, provider_id, service_id, booking_date, status,
		   workers_requested, estimated_hours, estimated_price, booking_details, created_at)
		 VALUES (?,?,?,?,?,?,?,?,?,?)`,
		b.UserID, b.ProviderID, b.ServiceID, b.BookingDate.UTC(), model.StatusPending,
		b.WorkersRequested, b.EstimatedHours, b.EstimatedPrice, details, now())
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	stored, err := r.GetByID(ctx, uint64(id))
	if err != nil {
		return err
	}
	*b = stored
	return nil
}

// GetByID fetches a booking by id.
func (r *BookingRepo) GetByID(ctx context.Context, id uint64) (model.Booking, error) {
	return scanBooking(r.DB.QueryRowContext(ctx, "SELECT "+bookingColumns+" FROM bookings WHERE id=?", id))
}

// Transition moves booking id along t, but only if the row is currently in
// t.From and its t.Owner column equals ownerID.  The check and the write are
// one UPDATE statement, so of several concurrent callers at most one sees
// applied=true.  A false result does not say whether the booking is missing,
// owned by someone else or in another state.
func (r *BookingRepo) Transition(ctx context.Context, id, ownerID uint64, t model.Transition) (model.Booking, bool, error) {
	if t.Owner != model.OwnerUser && t.Owner != model.OwnerProvider {
		return model.Booking{}, false, fmt.Errorf("transition %q: unknown owner column %q", t.Name, t.Owner)
	}
	if t.From.Terminal() || !t.To.Valid() {
		return model.Booking{}, false, fmt.Errorf("transition %q: %s -> %s is not a lifecycle edge", t.Name, t.From, t.To)
	}
	set := "status=?"
	args := []any{t.To}
	if t.Stamp != "" {
		set += ", " + t.Stamp + "=?"
		args = append(args, now())
	}
	q := "UPDATE bookings SET " + set + " WHERE id=? AND " + t.Owner + "=? AND status=?"
	args = append(args, id, ownerID, t.From)

	res, err := r.DB.ExecContext(ctx, q, args...)
	if err != nil {
		return model.Booking{}, false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return model.Booking{}, false, err
	}
	if n == 0 {
		return model.Booking{}, false, nil
	}
	b, err := r.GetByID(ctx, id)
	if err != nil {
		return model.Booking{}, true, err
	}
	return b, true, nil
}

// BookingFilter narrows the user and provider booking listings.  From and
// To bound booking_date inclusively.  CustomerName only applies to the
// provider listing.
type BookingFilter struct {
	Status       model.BookingStatus
	From         *time.Time
	To           *time.Time
	CustomerName string
	Page         Page
}

func (f BookingFilter) conditions(where []string, args []any) ([]string, []any) {
	if f.Status != "" {
		where = append(where, "b.status = ?")
		args = append(args, f.Status)
	}
	if f.From != nil {
		where = append(where, "b.booking_date >= ?")
		args = append(args, f.From.UTC())
	}
	if f.To != nil {
		where = append(where, "b.booking_date <= ?")
		args = append(args, f.To.UTC())
	}
	return where, args
}

// ListForUser returns the requester's bookings, newest booking date first.
func (r *BookingRepo) ListForUser(ctx context.Context, userID uint64, f BookingFilter) (Paged[model.BookingSummary], error) {
	where, args := f.conditions([]string{"b.user_id = ?"}, []any{userID})
	cond := whereClause(where)

	var total int
	if err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM bookings b WHERE "+cond, args...).Scan(&total); err != nil {
		return Paged[model.BookingSummary]{}, err
	}

	q := `SELECT b.id, s.name, b.booking_date, b.status, b.workers_requested, b.estimated_hours, b.estimated_price
		FROM bookings b
		JOIN services s ON s.id = b.service_id
		WHERE ` + cond + `
		ORDER BY b.booking_date DESC, b.id DESC
		LIMIT ? OFFSET ?`
	rows, err := r.DB.QueryContext(ctx, q, append(args, f.Page.Limit, f.Page.Offset())...)
	if err != nil {
		return Paged[model.BookingSummary]{}, err
	}
	defer rows.Close()

	out := make([]model.BookingSummary, 0, f.Page.Limit)
	for rows.Next() {
		var s model.BookingSummary
		if err := rows.Scan(&s.ID, &s.ServiceName, &s.BookingDate, &s.Status,
			&s.WorkersRequested, &s.EstimatedHours, &s.EstimatedPrice); err != nil {
			return Paged[model.BookingSummary]{}, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return Paged[model.BookingSummary]{}, err
	}
	return NewPaged(f.Page, total, out), nil
}

// ListForProvider returns bookings assigned to the provider together with the
// customer's name.
func (r *BookingRepo) ListForProvider(ctx context.Context, providerID uint64, f BookingFilter) (Paged[model.BookingSummary], error) {
	where, args := f.conditions([]string{"b.provider_id = ?"}, []any{providerID})
	if f.CustomerName != "" {
		where = append(where, "LOWER(u.name) LIKE ?")
		args = append(args, likeArg(f.CustomerName))
	}
	cond := whereClause(where)

	var total int
	if err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM bookings b JOIN users u ON u.id = b.user_id WHERE "+cond, args...).Scan(&total); err != nil {
		return Paged[model.BookingSummary]{}, err
	}

	q := `SELECT b.id, u.name, s.name, b.booking_date, b.status, b.workers_requested, b.estimated_hours, b.estimated_price
		FROM bookings b
		JOIN users u ON u.id = b.user_id
		JOIN services s ON s.id = b.service_id
		WHERE ` + cond + `
		ORDER BY b.booking_date DESC, b.id DESC
		LIMIT ? OFFSET ?`
	rows, err := r.DB.QueryContext(ctx, q, append(args, f.Page.Limit, f.Page.Offset())...)
	if err != nil {
		return Paged[model.BookingSummary]{}, err
	}
	defer rows.Close()

	out := make([]model.BookingSummary, 0, f.Page.Limit)
	for rows.Next() {
		var s model.BookingSummary
		if err := rows.Scan(&s.ID, &s.CustomerName, &s.ServiceName, &s.BookingDate, &s.Status,
			&s.WorkersRequested, &s.EstimatedHours, &s.EstimatedPrice); err != nil {
			return Paged[model.BookingSummary]{}, err
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return Paged[model.BookingSummary]{}, err
	}
	return NewPaged(f.Page, total, out), nil
}

// AdminBookingFilter narrows the admin booking listing.
type AdminBookingFilter struct {
	Status    model.BookingStatus
	SortBy    string
	SortOrder string
	Page      Page
}

var bookingSort = SortSpec{
	Columns: map[string]string{
		"id":              "b.id",
		"booking_date":    "b.booking_date",
		"status":          "b.status",
		"estimated_price": "b.estimated_price",
		"created_at":      "b.created_at",
		"user_name":       "u.name",
		"provider_name":   "p.name",
		"service_name":    "s.name",
	},
	Default: "id",
}

// ListAdmin returns bookings joined with both parties and the service.
func (r *BookingRepo) ListAdmin(ctx context.Context, f AdminBookingFilter) (Paged[model.AdminBooking], error) {
	where := []string{}
	args := []any{}
	if f.Status != "" {
		where = append(where, "b.status = ?")
		args = append(args, f.Status)
	}
	cond := whereClause(where)

	var total int
	if err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM bookings b WHERE "+cond, args...).Scan(&total); err != nil {
		return Paged[model.AdminBooking]{}, err
	}

	q := `SELECT b.id, b.user_id, b.provider_id, b.service_id, b.booking_date, b.status,
			b.workers_requested, b.estimated_hours, b.estimated_price, b.booking_details,
			b.accepted_at, b.started_at, b.completed_at, b.created_at,
			u.name, p.name, s.name
		FROM bookings b
		JOIN users u ON u.id = b.user_id
		JOIN users p ON p.id = b.provider_id
		JOIN services s ON s.id = b.service_id
		WHERE ` + cond + " " + ResolveSort(bookingSort, f.SortBy, f.SortOrder) + `
		LIMIT ? OFFSET ?`
	rows, err := r.DB.QueryContext(ctx, q, append(args, f.Page.Limit, f.Page.Offset())...)
	if err != nil {
		return Paged[model.AdminBooking]{}, err
	}
	defer rows.Close()

	out := make([]model.AdminBooking, 0, f.Page.Limit)
	for rows.Next() {
		var ab model.AdminBooking
		b, err := scanBooking(rows, &ab.UserName, &ab.ProviderName, &ab.ServiceName)
		if err != nil {
			return Paged[model.AdminBooking]{}, err
		}
		ab.Booking = b
		out = append(out, ab)
	}
	if err := rows.Err(); err != nil {
		return Paged[model.AdminBooking]{}, err
	}
	return NewPaged(f.Page, total, out), nil
}

// Delete removes a booking outright (admin escape hatch) and returns it.
func (r *BookingRepo) Delete(ctx context.Context, id uint64) (model.Booking, error) {
	b, err := r.GetByID(ctx, id)
	if err != nil {
		return model.Booking{}, err
	}
	res, err := r.DB.ExecContext(ctx, "DELETE FROM bookings WHERE id=?", id)
	if err != nil {
		return model.Booking{}, err
	}
	if err := affectedOrNoRows(res); err != nil {
		return model.Booking{}, err
	}
	return b, nil
}

// StatsForProvider counts a provider's bookings in one pass.
func (r *BookingRepo) StatsForProvider(ctx context.Context, providerID uint64) (model.ProviderStats, error) {
	var st model.ProviderStats
	err := r.DB.QueryRowContext(ctx,
		`SELECT COUNT(*),
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0)
		 FROM bookings WHERE provider_id = ?`,
		model.StatusCompleted, model.StatusPending, providerID,
	).Scan(&st.TotalBookings, &st.CompletedBookings, &st.PendingBookings)
	return st, err
}
