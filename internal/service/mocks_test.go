package service

import (
	"context"
	"errors"

	"github.com/stretchr/testify/mock"

	"github.com/iliyamo/booking-marketplace/internal/model"
	"github.com/iliyamo/booking-marketplace/internal/queue"
	"github.com/iliyamo/booking-marketplace/internal/repository"
)

type MockBookingStore struct{ mock.Mock }

func (m *MockBookingStore) Insert(ctx context.Context, b *model.Booking) error {
	args := m.Called(ctx, b)
	if args.Error(0) == nil {
		b.ID = 101 // simulate DB insert
	}
	return args.Error(0)
}

func (m *MockBookingStore) GetByID(ctx context.Context, id uint64) (model.Booking, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.Booking), args.Error(1)
}

func (m *MockBookingStore) Transition(ctx context.Context, id, ownerID uint64, t model.Transition) (model.Booking, bool, error) {
	args := m.Called(ctx, id, ownerID, t)
	return args.Get(0).(model.Booking), args.Bool(1), args.Error(2)
}

func (m *MockBookingStore) ListForUser(ctx context.Context, userID uint64, f repository.BookingFilter) (repository.Paged[model.BookingSummary], error) {
	args := m.Called(ctx, userID, f)
	return args.Get(0).(repository.Paged[model.BookingSummary]), args.Error(1)
}

func (m *MockBookingStore) ListForProvider(ctx context.Context, providerID uint64, f repository.BookingFilter) (repository.Paged[model.BookingSummary], error) {
	args := m.Called(ctx, providerID, f)
	return args.Get(0).(repository.Paged[model.BookingSummary]), args.Error(1)
}

type MockServiceReader struct{ mock.Mock }

func (m *MockServiceReader) GetByID(ctx context.Context, id uint64) (model.Service, error) {
	args := m.Called(ctx, id)
	return args.Get(0).(model.Service), args.Error(1)
}

type MockNotifier struct{ mock.Mock }

func (m *MockNotifier) Notify(ctx context.Context, userID uint64, message, kind string) {
	m.Called(ctx, userID, message, kind)
}

type MockPublisher struct{ mock.Mock }

func (m *MockPublisher) Publish(ctx context.Context, ev queue.BookingEvent) error {
	return m.Called(ctx, ev).Error(0)
}

type MockNotificationWriter struct{ mock.Mock }

func (m *MockNotificationWriter) Create(ctx context.Context, userID uint64, message, kind string) (uint64, error) {
	args := m.Called(ctx, userID, message, kind)
	return uint64(args.Int(0)), args.Error(1)
}

type MockReviewStore struct{ mock.Mock }

func (m *MockReviewStore) ExistsForBooking(ctx context.Context, bookingID uint64) (bool, error) {
	args := m.Called(ctx, bookingID)
	return args.Bool(0), args.Error(1)
}

func (m *MockReviewStore) Create(ctx context.Context, rv *model.Review) error {
	args := m.Called(ctx, rv)
	if args.Error(0) == nil {
		rv.ID = 7
	}
	return args.Error(0)
}

var errBoom = errors.New("boom")
