package model

import (
    "encoding/json"
    "time"
)

// BookingStatus is the lifecycle state stored in bookings.status.
type BookingStatus string

const (
    StatusPending    BookingStatus = "pending"
    StatusAccepted   BookingStatus = "accepted"
    StatusInProgress BookingStatus = "in-progress"
    StatusCompleted  BookingStatus = "completed"
    StatusCancelled  BookingStatus = "cancelled"
)

// Valid reports whether s is one of the known statuses.
func (s BookingStatus) Valid() bool {
    switch s {
    case StatusPending, StatusAccepted, StatusInProgress, StatusCompleted, StatusCancelled:
        return true
    }
    return false
}

// Terminal reports whether no further transition can leave s.
func (s BookingStatus) Terminal() bool {
    return s == StatusCompleted || s == StatusCancelled
}

// Ownership columns a transition is guarded by.
const (
    OwnerUser     = "user_id"
    OwnerProvider = "provider_id"
)

// Transition describes one edge of the booking state machine.  A transition
// applies only when the stored status equals From and the row's Owner
// column equals the caller.  Stamp, when set, names the timestamp column
// written together with the new status.
type Transition struct {
    Name  string
    From  BookingStatus
    To    BookingStatus
    Owner string
    Stamp string
}

// The complete set of transitions.  Creation (none -> pending) is an insert
// and is not listed here.
var (
    Cancel   = Transition{Name: "cancel", From: StatusPending, To: StatusCancelled, Owner: OwnerUser}
    Accept   = Transition{Name: "accept", From: StatusPending, To: StatusAccepted, Owner: OwnerProvider, Stamp: "accepted_at"}
    Start    = Transition{Name: "start", From: StatusAccepted, To: StatusInProgress, Owner: OwnerProvider, Stamp: "started_at"}
    Complete = Transition{Name: "complete", From: StatusInProgress, To: StatusCompleted, Owner: OwnerProvider, Stamp: "completed_at"}
)

// Booking represents a row in the `bookings` table.
//
// Fields:
//  ID                – primary key identifier.
//  UserID            – requester who created the booking.
//  ProviderID        – provider copied from the service at creation time;
//                      never re-derived afterwards.
//  ServiceID         – service being booked.
//  BookingDate       – requested date/time of the job.
//  Status            – lifecycle state, see BookingStatus.
//  WorkersRequested  – worker count after clamping to the service maximum.
//  EstimatedHours    – hours per worker, rounded up.
//  EstimatedPrice    – hours * workers * service price.
//  BookingDetails    – free-form JSON supplied by the requester.
//  AcceptedAt, StartedAt, CompletedAt – stamped by the matching transition.
//  CreatedAt         – insert timestamp.
type Booking struct {
    ID               uint64          `json:"id"`
    UserID           uint64          `json:"user_id"`
    ProviderID       uint64          `json:"provider_id"`
    ServiceID        uint64          `json:"service_id"`
    BookingDate      time.Time       `json:"booking_date"`
    Status           BookingStatus   `json:"status"`
    WorkersRequested int             `json:"workers_requested"`
    EstimatedHours   int             `json:"estimated_hours"`
    EstimatedPrice   float64         `json:"estimated_price"`
    BookingDetails   json.RawMessage `json:"booking_details"`
    AcceptedAt       *time.Time      `json:"accepted_at"`
    StartedAt        *time.Time      `json:"started_at"`
    CompletedAt      *time.Time      `json:"completed_at"`
    CreatedAt        time.Time       `json:"created_at"`
}

// BookingSummary is the row shape returned by booking listings.
// CustomerName is only set on the provider's view.
type BookingSummary struct {
    ID               uint64        `json:"id"`
    CustomerName     string        `json:"customer_name,omitempty"`
    ServiceName      string        `json:"service_name"`
    BookingDate      time.Time     `json:"booking_date"`
    Status           BookingStatus `json:"status"`
    WorkersRequested int           `json:"workers_requested"`
    EstimatedHours   int           `json:"estimated_hours"`
    EstimatedPrice   float64       `json:"estimated_price"`
}

// AdminBooking is a booking joined with the names of both parties and the
// service, as listed on the admin console.
type AdminBooking struct {
    Booking
    UserName     string `json:"user_name"`
    ProviderName string `json:"provider_name"`
    ServiceName  string `json:"service_name"`
}

// ProviderStats aggregates a provider's booking counts.
type ProviderStats struct {
    TotalBookings     int `json:"totalBookings"`
    CompletedBookings int `json:"completedBookings"`
    PendingBookings   int `json:"pendingBookings"`
}
