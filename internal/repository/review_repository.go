package repository

import (
	"context"
	"database/sql"
	"math"

	"github.com/iliyamo/booking-marketplace/internal/model"
)

type ReviewRepo struct{ DB *sql.DB }

func NewReviewRepo(db *sql.DB) *ReviewRepo { return &ReviewRepo{DB: db} }

// Create inserts a review.  The unique booking_id key turns a second review
// for the same booking into ErrDuplicateReview, even under a race.
func (r *ReviewRepo) Create(ctx context.Context, rv *model.Review) error {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO reviews (booking_id, user_id, provider_id, rating, comment, created_at) VALUES (?,?,?,?,?,?)",
		rv.BookingID, rv.UserID, rv.ProviderID, rv.Rating, rv.Comment, now())
	if err != nil {
		if isDuplicate(err) {
			return ErrDuplicateReview
		}
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	var comment sql.NullString
	err = r.DB.QueryRowContext(ctx,
		"SELECT id, booking_id, user_id, provider_id, rating, comment, created_at FROM reviews WHERE id=?", id,
	).Scan(&rv.ID, &rv.BookingID, &rv.UserID, &rv.ProviderID, &rv.Rating, &comment, &rv.CreatedAt)
	if err != nil {
		return err
	}
	rv.Comment = nullStringPtr(comment)
	return nil
}

// ExistsForBooking reports whether the booking already has a review.
func (r *ReviewRepo) ExistsForBooking(ctx context.Context, bookingID uint64) (bool, error) {
	var n int
	err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM reviews WHERE booking_id=?", bookingID).Scan(&n)
	return n > 0, err
}

// ListForService returns every review left on bookings of a service, newest
// first.
func (r *ReviewRepo) ListForService(ctx context.Context, serviceID uint64) ([]model.Review, error) {
	rows, err := r.DB.QueryContext(ctx,
		`SELECT r.id, r.booking_id, r.user_id, r.provider_id, r.rating, r.comment, r.created_at, u.name
		 FROM reviews r
		 JOIN bookings b ON b.id = r.booking_id
		 JOIN users u ON u.id = r.user_id
		 WHERE b.service_id = ?
		 ORDER BY r.created_at DESC, r.id DESC`, serviceID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := []model.Review{}
	for rows.Next() {
		var (
			rv      model.Review
			comment sql.NullString
		)
		if err := rows.Scan(&rv.ID, &rv.BookingID, &rv.UserID, &rv.ProviderID, &rv.Rating,
			&comment, &rv.CreatedAt, &rv.UserName); err != nil {
			return nil, err
		}
		rv.Comment = nullStringPtr(comment)
		out = append(out, rv)
	}
	return out, rows.Err()
}

// AverageForService returns the mean rating rounded to one decimal.
func (r *ReviewRepo) AverageForService(ctx context.Context, serviceID uint64) (model.RatingSummary, error) {
	var (
		avg sql.NullFloat64
		sum model.RatingSummary
	)
	err := r.DB.QueryRowContext(ctx,
		`SELECT AVG(r.rating), COUNT(*)
		 FROM reviews r
		 JOIN bookings b ON b.id = r.booking_id
		 WHERE b.service_id = ?`, serviceID).Scan(&avg, &sum.TotalReviews)
	if err != nil {
		return model.RatingSummary{}, err
	}
	if avg.Valid {
		v := math.Round(avg.Float64*10) / 10
		sum.AverageRating = &v
	}
	return sum, nil
}

// ProviderReviewFilter narrows a provider's received reviews.
type ProviderReviewFilter struct {
	MinRating int
	Page      Page
}

// ListForProvider returns reviews received by the provider, newest first.
func (r *ReviewRepo) ListForProvider(ctx context.Context, providerID uint64, f ProviderReviewFilter) (Paged[model.Review], error) {
	where := []string{"r.provider_id = ?"}
	args := []any{providerID}
	if f.MinRating > 0 {
		where = append(where, "r.rating >= ?")
		args = append(args, f.MinRating)
	}
	cond := whereClause(where)

	var total int
	if err := r.DB.QueryRowContext(ctx, "SELECT COUNT(*) FROM reviews r WHERE "+cond, args...).Scan(&total); err != nil {
		return Paged[model.Review]{}, err
	}

	q := `SELECT r.id, r.booking_id, r.user_id, r.provider_id, r.rating, r.comment, r.created_at,
			u.name, b.service_id, s.name
		FROM reviews r
		JOIN bookings b ON b.id = r.booking_id
		JOIN users u ON u.id = r.user_id
		JOIN services s ON s.id = b.service_id
		WHERE ` + cond + `
		ORDER BY r.created_at DESC, r.id DESC
		LIMIT ? OFFSET ?`
	rows, err := r.DB.QueryContext(ctx, q, append(args, f.Page.Limit, f.Page.Offset())...)
	if err != nil {
		return Paged[model.Review]{}, err
	}
	defer rows.Close()
	out := make([]model.Review, 0, f.Page.Limit)
	for rows.Next() {
		var (
			rv      model.Review
			comment sql.NullString
		)
		if err := rows.Scan(&rv.ID, &rv.BookingID, &rv.UserID, &rv.ProviderID, &rv.Rating, &comment,
			&rv.CreatedAt, &rv.UserName, &rv.ServiceID, &rv.ServiceName); err != nil {
			return Paged[model.Review]{}, err
		}
		rv.Comment = nullStringPtr(comment)
		out = append(out, rv)
	}
	if err := rows.Err(); err != nil {
		return Paged[model.Review]{}, err
	}
	return NewPaged(f.Page, total, out), nil
}

func nullStringPtr(s sql.NullString) *string {
	if !s.Valid {
		return nil
	}
	v := s.String
	return &v
}
