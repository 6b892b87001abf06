// Package service holds the booking lifecycle and review rules.  Storage is
// reached through the small interfaces below, satisfied by the repository
// package.
package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/iliyamo/booking-marketplace/internal/model"
	"github.com/iliyamo/booking-marketplace/internal/queue"
	"github.com/iliyamo/booking-marketplace/internal/repository"
)

// ServiceReader loads the service a booking is made against.
type ServiceReader interface {
	GetByID(ctx context.Context, id uint64) (model.Service, error)
}

// BookingStore is the persistence the lifecycle needs.
type BookingStore interface {
	Insert(ctx context.Context, b *model.Booking) error
	Transition(ctx context.Context, id, ownerID uint64, t model.Transition) (model.Booking, bool, error)
	ListForUser(ctx context.Context, userID uint64, f repository.BookingFilter) (repository.Paged[model.BookingSummary], error)
	ListForProvider(ctx context.Context, providerID uint64, f repository.BookingFilter) (repository.Paged[model.BookingSummary], error)
}

// EventPublisher forwards booking events to the broker.
type EventPublisher interface {
	Publish(ctx context.Context, ev queue.BookingEvent) error
}

// BookingService implements creation, listing and every state transition of
// a booking.
type BookingService struct {
	Bookings  BookingStore
	Services  ServiceReader
	Notifier  Notifier
	Events    EventPublisher
	Estimator HoursEstimator
	// EventTimeout bounds a single publish; it does not follow the request.
	EventTimeout time.Duration
}

func NewBookingService(b BookingStore, s ServiceReader, n Notifier, ev EventPublisher) *BookingService {
	return &BookingService{Bookings: b, Services: s, Notifier: n, Events: ev, Estimator: BaseHoursEstimator{}}
}

// CreateBookingInput is the requester's booking request.  WorkersRequested
// nil means one worker.
type CreateBookingInput struct {
	ServiceID        uint64
	BookingDate      time.Time
	WorkersRequested *int
	BookingDetails   json.RawMessage
}

// Create validates the request, computes the estimate and stores a pending
// booking.  The provider is copied from the service.
func (s *BookingService) Create(ctx context.Context, userID uint64, in CreateBookingInput) (model.Booking, error) {
	if in.ServiceID == 0 || in.BookingDate.IsZero() {
		return model.Booking{}, invalid("Missing required fields")
	}
	requested := 1
	if in.WorkersRequested != nil {
		requested = *in.WorkersRequested
	}
	if requested < 1 {
		return model.Booking{}, invalid("workers_requested must be at least 1")
	}
	if len(in.BookingDetails) > 0 && !json.Valid(in.BookingDetails) {
		return model.Booking{}, invalid("booking_details must be valid JSON")
	}

	svc, err := s.Services.GetByID(ctx, in.ServiceID)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Booking{}, ErrServiceNotFound
	}
	if err != nil {
		return model.Booking{}, fmt.Errorf("load service %d: %w", in.ServiceID, err)
	}

	est := s.estimator().EstimateHours(in.BookingDetails, svc)
	e := ComputeEstimate(est, requested, svc.MaxWorkers, svc.Price)

	details := in.BookingDetails
	if len(details) == 0 {
		details = json.RawMessage(`{}`)
	}
	b := model.Booking{
		UserID:           userID,
		ProviderID:       svc.ProviderID,
		ServiceID:        svc.ID,
		BookingDate:      in.BookingDate.UTC(),
		Status:           model.StatusPending,
		WorkersRequested: e.Workers,
		EstimatedHours:   e.Hours,
		EstimatedPrice:   e.Price,
		BookingDetails:   details,
	}
	if err := s.Bookings.Insert(ctx, &b); err != nil {
		return model.Booking{}, fmt.Errorf("insert booking: %w", err)
	}
	s.publish(ctx, queue.EventBookingCreated, b)
	return b, nil
}

func (s *BookingService) estimator() HoursEstimator {
	if s.Estimator == nil {
		return BaseHoursEstimator{}
	}
	return s.Estimator
}

// ListForUser returns the requester's bookings.
func (s *BookingService) ListForUser(ctx context.Context, userID uint64, f repository.BookingFilter) (repository.Paged[model.BookingSummary], error) {
	f.CustomerName = ""
	return s.Bookings.ListForUser(ctx, userID, f)
}

// ListForProvider returns the bookings assigned to the provider.
func (s *BookingService) ListForProvider(ctx context.Context, providerID uint64, f repository.BookingFilter) (repository.Paged[model.BookingSummary], error) {
	return s.Bookings.ListForProvider(ctx, providerID, f)
}

// Cancel moves the requester's pending booking to cancelled.
func (s *BookingService) Cancel(ctx context.Context, userID, bookingID uint64) (model.Booking, error) {
	return s.apply(ctx, userID, bookingID, model.Cancel)
}

// Accept moves a pending booking of the provider to accepted.
func (s *BookingService) Accept(ctx context.Context, providerID, bookingID uint64) (model.Booking, error) {
	return s.apply(ctx, providerID, bookingID, model.Accept)
}

// Start moves an accepted booking of the provider to in-progress.
func (s *BookingService) Start(ctx context.Context, providerID, bookingID uint64) (model.Booking, error) {
	return s.apply(ctx, providerID, bookingID, model.Start)
}

// Complete moves an in-progress booking of the provider to completed.
func (s *BookingService) Complete(ctx context.Context, providerID, bookingID uint64) (model.Booking, error) {
	return s.apply(ctx, providerID, bookingID, model.Complete)
}

func (s *BookingService) apply(ctx context.Context, actorID, bookingID uint64, t model.Transition) (model.Booking, error) {
	b, ok, err := s.Bookings.Transition(ctx, bookingID, actorID, t)
	if err != nil {
		return model.Booking{}, fmt.Errorf("%s booking %d: %w", t.Name, bookingID, err)
	}
	if !ok {
		return model.Booking{}, ErrTransitionRejected
	}
	// The status change is committed; what follows must not fail the call.
	if t.Owner == model.OwnerProvider && s.Notifier != nil {
		s.Notifier.Notify(ctx, b.UserID, StatusMessage(b.ID, t.To), model.NotificationBooking)
	}
	s.publish(ctx, queue.EventBookingStatusChanged, b)
	return b, nil
}

// StatusMessage is the text sent to the requester after a provider moves
// their booking.
func StatusMessage(bookingID uint64, to model.BookingStatus) string {
	return fmt.Sprintf("Your booking #%d has been %s by the provider.", bookingID, strings.Replace(string(to), "-", " ", 1))
}

func (s *BookingService) publish(ctx context.Context, kind string, b model.Booking) {
	if s.Events == nil {
		return
	}
	pctx, cancel := detached(ctx, s.EventTimeout)
	defer cancel()
	ev := queue.BookingEvent{
		Type:           kind,
		BookingID:      b.ID,
		UserID:         b.UserID,
		ProviderID:     b.ProviderID,
		ServiceID:      b.ServiceID,
		Status:         string(b.Status),
		EstimatedPrice: b.EstimatedPrice,
		OccurredAt:     time.Now().UTC(),
	}
	if err := s.Events.Publish(pctx, ev); err != nil {
		log.Printf("rabbitmq: %s booking %d: %v", kind, b.ID, err)
	}
}
