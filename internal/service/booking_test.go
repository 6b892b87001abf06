package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/booking-marketplace/internal/model"
	"github.com/iliyamo/booking-marketplace/internal/queue"
	"github.com/iliyamo/booking-marketplace/internal/repository"
)

func intPtr(v int) *int { return &v }

func TestComputeEstimate(t *testing.T) {
	cases := []struct {
		name            string
		base            float64
		requested, maxW int
		price           float64
		workers, hours  int
		total           float64
	}{
		{"documented example", 4, 2, 3, 10, 2, 2, 40},
		{"clamped to max", 4, 5, 3, 10, 3, 2, 60},
		{"missing max counts as one", 5, 4, 0, 12.5, 1, 5, 62.5},
		{"rounds hours up", 5, 2, 2, 10, 2, 3, 60},
		{"fractional base", 1.5, 1, 1, 20, 1, 2, 40},
		{"sub-cent unit price is not rounded", 3, 1, 1, 0.333, 1, 3, 0.999},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			e := ComputeEstimate(tc.base, tc.requested, tc.maxW, tc.price)
			assert.Equal(t, tc.workers, e.Workers)
			assert.Equal(t, tc.hours, e.Hours)
			assert.InDelta(t, tc.total, e.Price, 1e-9)
		})
	}
}

func TestBaseHoursEstimator(t *testing.T) {
	est := BaseHoursEstimator{}
	assert.Equal(t, 4.0, est.EstimateHours(nil, model.Service{BaseHours: 4}))
	assert.Equal(t, 1.0, est.EstimateHours(json.RawMessage(`{"rooms":9}`), model.Service{}))
}

type fixedHours float64

func (f fixedHours) EstimateHours(json.RawMessage, model.Service) float64 { return float64(f) }

func TestCreateBooking(t *testing.T) {
	bookings := new(MockBookingStore)
	services := new(MockServiceReader)
	events := new(MockPublisher)
	svc := NewBookingService(bookings, services, nil, events)

	date := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	services.On("GetByID", mock.Anything, uint64(3)).
		Return(model.Service{ID: 3, ProviderID: 77, Price: 10, BaseHours: 4, MaxWorkers: 3}, nil)
	bookings.On("Insert", mock.Anything, mock.MatchedBy(func(b *model.Booking) bool {
		return b.UserID == 5 && b.ProviderID == 77 && b.Status == model.StatusPending &&
			b.WorkersRequested == 2 && b.EstimatedHours == 2 && b.EstimatedPrice == 40 &&
			string(b.BookingDetails) == `{}`
	})).Return(nil)
	events.On("Publish", mock.Anything, mock.MatchedBy(func(ev queue.BookingEvent) bool {
		return ev.Type == queue.EventBookingCreated && ev.BookingID == 101 && ev.ProviderID == 77
	})).Return(errBoom)

	b, err := svc.Create(context.Background(), 5, CreateBookingInput{ServiceID: 3, BookingDate: date, WorkersRequested: intPtr(2)})
	require.NoError(t, err, "publish failure is not the caller's problem")
	assert.Equal(t, uint64(101), b.ID)
	assert.Equal(t, uint64(77), b.ProviderID)
	bookings.AssertExpectations(t)
	events.AssertExpectations(t)
}

func TestCreateBookingUsesEstimator(t *testing.T) {
	bookings := new(MockBookingStore)
	services := new(MockServiceReader)
	svc := NewBookingService(bookings, services, nil, nil)
	svc.Estimator = fixedHours(9)

	services.On("GetByID", mock.Anything, uint64(3)).
		Return(model.Service{ID: 3, ProviderID: 77, Price: 10, BaseHours: 4, MaxWorkers: 2}, nil)
	bookings.On("Insert", mock.Anything, mock.Anything).Return(nil)

	b, err := svc.Create(context.Background(), 5, CreateBookingInput{ServiceID: 3, BookingDate: time.Now(), WorkersRequested: intPtr(2)})
	require.NoError(t, err)
	assert.Equal(t, 5, b.EstimatedHours)
	assert.InDelta(t, 100.0, b.EstimatedPrice, 0.001)
}

func TestCreateBookingRejects(t *testing.T) {
	bookings := new(MockBookingStore)
	services := new(MockServiceReader)
	svc := NewBookingService(bookings, services, nil, nil)
	ctx := context.Background()
	now := time.Now()

	_, err := svc.Create(ctx, 5, CreateBookingInput{BookingDate: now})
	assert.ErrorIs(t, err, ErrValidation)
	assert.EqualError(t, err, "Missing required fields")

	_, err = svc.Create(ctx, 5, CreateBookingInput{ServiceID: 3})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.Create(ctx, 5, CreateBookingInput{ServiceID: 3, BookingDate: now, WorkersRequested: intPtr(0)})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = svc.Create(ctx, 5, CreateBookingInput{ServiceID: 3, BookingDate: now, BookingDetails: json.RawMessage(`{`)})
	assert.ErrorIs(t, err, ErrValidation)

	services.On("GetByID", mock.Anything, uint64(404)).Return(model.Service{}, sql.ErrNoRows)
	_, err = svc.Create(ctx, 5, CreateBookingInput{ServiceID: 404, BookingDate: now})
	assert.ErrorIs(t, err, ErrServiceNotFound)

	bookings.AssertNotCalled(t, "Insert", mock.Anything, mock.Anything)
}

func TestProviderTransitionNotifiesRequester(t *testing.T) {
	bookings := new(MockBookingStore)
	notifier := new(MockNotifier)
	svc := NewBookingService(bookings, nil, notifier, nil)

	done := model.Booking{ID: 12, UserID: 5, ProviderID: 77, Status: model.StatusInProgress}
	bookings.On("Transition", mock.Anything, uint64(12), uint64(77), model.Start).Return(done, true, nil)
	notifier.On("Notify", mock.Anything, uint64(5), "Your booking #12 has been in progress by the provider.", model.NotificationBooking).Return()

	b, err := svc.Start(context.Background(), 77, 12)
	require.NoError(t, err)
	assert.Equal(t, model.StatusInProgress, b.Status)
	notifier.AssertExpectations(t)
}

func TestTransitionRejected(t *testing.T) {
	bookings := new(MockBookingStore)
	notifier := new(MockNotifier)
	svc := NewBookingService(bookings, nil, notifier, nil)
	ctx := context.Background()

	bookings.On("Transition", mock.Anything, uint64(12), uint64(77), model.Accept).Return(model.Booking{}, false, nil)
	bookings.On("Transition", mock.Anything, uint64(12), uint64(5), model.Cancel).Return(model.Booking{}, false, nil)
	bookings.On("Transition", mock.Anything, uint64(13), uint64(77), model.Complete).Return(model.Booking{}, false, errBoom)

	_, err := svc.Accept(ctx, 77, 12)
	assert.ErrorIs(t, err, ErrTransitionRejected)
	_, err = svc.Cancel(ctx, 5, 12)
	assert.ErrorIs(t, err, ErrTransitionRejected)
	_, err = svc.Complete(ctx, 77, 13)
	assert.ErrorIs(t, err, errBoom)
	assert.False(t, errors.Is(err, ErrTransitionRejected))

	notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestCancelDoesNotNotify(t *testing.T) {
	bookings := new(MockBookingStore)
	notifier := new(MockNotifier)
	svc := NewBookingService(bookings, nil, notifier, nil)

	bookings.On("Transition", mock.Anything, uint64(12), uint64(5), model.Cancel).
		Return(model.Booking{ID: 12, UserID: 5, Status: model.StatusCancelled}, true, nil)
	b, err := svc.Cancel(context.Background(), 5, 12)
	require.NoError(t, err)
	assert.Equal(t, model.StatusCancelled, b.Status)
	notifier.AssertNotCalled(t, "Notify", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
}

func TestNotificationFailureDoesNotFailTransition(t *testing.T) {
	bookings := new(MockBookingStore)
	writer := new(MockNotificationWriter)
	svc := NewBookingService(bookings, nil, NewNotificationEmitter(writer, time.Second), nil)

	bookings.On("Transition", mock.Anything, uint64(12), uint64(77), model.Accept).
		Return(model.Booking{ID: 12, UserID: 5, ProviderID: 77, Status: model.StatusAccepted}, true, nil)
	writer.On("Create", mock.Anything, uint64(5), "Your booking #12 has been accepted by the provider.", "booking").
		Return(0, errBoom)

	b, err := svc.Accept(context.Background(), 77, 12)
	require.NoError(t, err)
	assert.Equal(t, model.StatusAccepted, b.Status)
	writer.AssertExpectations(t)
}

func TestNotifierSurvivesCancelledRequest(t *testing.T) {
	writer := new(MockNotificationWriter)
	writer.On("Create", mock.MatchedBy(func(ctx context.Context) bool { return ctx.Err() == nil }),
		uint64(5), "hi", "booking").Return(1, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	NewNotificationEmitter(writer, time.Second).Notify(ctx, 5, "hi", "booking")
	writer.AssertExpectations(t)
}

func TestListForUserDropsCustomerFilter(t *testing.T) {
	bookings := new(MockBookingStore)
	svc := NewBookingService(bookings, nil, nil, nil)
	f := repository.BookingFilter{CustomerName: "bob", Page: repository.NewPage(1, 20, 20)}
	bookings.On("ListForUser", mock.Anything, uint64(5), repository.BookingFilter{Page: f.Page}).
		Return(repository.NewPaged[model.BookingSummary](f.Page, 0, nil), nil)

	out, err := svc.ListForUser(context.Background(), 5, f)
	require.NoError(t, err)
	assert.Empty(t, out.Data)
	bookings.AssertExpectations(t)
}
