package model

import "time"

// Review is a single rating left by a requester on one completed booking.
// booking_id is unique, so a booking carries at most one review.
type Review struct {
    ID          uint64    `json:"id"`
    BookingID   uint64    `json:"booking_id"`
    UserID      uint64    `json:"user_id"`
    ProviderID  uint64    `json:"provider_id"`
    Rating      int       `json:"rating"`
    Comment     *string   `json:"comment"`
    CreatedAt   time.Time `json:"created_at"`
    UserName    string    `json:"user_name,omitempty"`
    ServiceID   uint64    `json:"service_id,omitempty"`
    ServiceName string    `json:"service_name,omitempty"`
}

// RatingSummary is the aggregate rating of a service.  AverageRating is nil
// when the service has no reviews yet.
type RatingSummary struct {
    AverageRating *float64 `json:"average_rating"`
    TotalReviews  int      `json:"total_reviews"`
}
