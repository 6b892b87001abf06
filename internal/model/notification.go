package model

import "time"

// Notification types.
const (
    NotificationBooking = "booking"
    NotificationReview  = "review"
)

// Notification is an in-app message stored in the `notifications` table.
// Rows are only ever mutated by flipping ReadStatus.
type Notification struct {
    ID         uint64    `json:"id"`
    UserID     uint64    `json:"user_id"`
    Message    string    `json:"message"`
    Type       string    `json:"type"`
    ReadStatus bool      `json:"read_status"`
    CreatedAt  time.Time `json:"created_at"`
    UserName   string    `json:"user_name,omitempty"`
}
