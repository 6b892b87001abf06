package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/iliyamo/booking-marketplace/internal/model"
	"github.com/iliyamo/booking-marketplace/internal/repository"
)

// BookingReader loads a single booking.
type BookingReader interface {
	GetByID(ctx context.Context, id uint64) (model.Booking, error)
}

// ReviewStore persists reviews.
type ReviewStore interface {
	ExistsForBooking(ctx context.Context, bookingID uint64) (bool, error)
	Create(ctx context.Context, rv *model.Review) error
}

// ReviewService lets a requester rate a completed booking once.
type ReviewService struct {
	Bookings BookingReader
	Reviews  ReviewStore
	Notifier Notifier
}

func NewReviewService(b BookingReader, r ReviewStore, n Notifier) *ReviewService {
	return &ReviewService{Bookings: b, Reviews: r, Notifier: n}
}

// Submit stores a review for bookingID written by userID and notifies the
// provider.
func (s *ReviewService) Submit(ctx context.Context, userID, bookingID uint64, rating int, comment string) (model.Review, error) {
	if rating < 1 || rating > 5 {
		return model.Review{}, invalid("Rating must be between 1 and 5")
	}
	b, err := s.Bookings.GetByID(ctx, bookingID)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Review{}, ErrReviewNotAllowed
	}
	if err != nil {
		return model.Review{}, fmt.Errorf("load booking %d: %w", bookingID, err)
	}
	if b.UserID != userID || b.Status != model.StatusCompleted {
		return model.Review{}, ErrReviewNotAllowed
	}

	exists, err := s.Reviews.ExistsForBooking(ctx, bookingID)
	if err != nil {
		return model.Review{}, fmt.Errorf("check review: %w", err)
	}
	if exists {
		return model.Review{}, ErrReviewExists
	}

	rv := model.Review{BookingID: bookingID, UserID: userID, ProviderID: b.ProviderID, Rating: rating}
	if c := strings.TrimSpace(comment); c != "" {
		rv.Comment = &c
	}
	if err := s.Reviews.Create(ctx, &rv); err != nil {
		if errors.Is(err, repository.ErrDuplicateReview) {
			return model.Review{}, ErrReviewExists
		}
		return model.Review{}, fmt.Errorf("create review: %w", err)
	}
	if s.Notifier != nil {
		s.Notifier.Notify(ctx, b.ProviderID,
			fmt.Sprintf("You received a new review for booking #%d: %d/5", bookingID, rating), model.NotificationReview)
	}
	return rv, nil
}
