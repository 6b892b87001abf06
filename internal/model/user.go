package model

import "time"

// Role names accepted by the access layer.  A role is assigned at
// registration and never changes afterwards.
const (
    RoleUser     = "user"
    RoleProvider = "provider"
    RoleAdmin    = "admin"
)

// User represents a row in the `users` table.  A user shows up on a booking
// either as the requester (user_id) or as the provider (provider_id).
//
// Fields:
//  ID           – primary key identifier of the user.
//  Name         – display name.
//  Email        – unique, lower-cased email address.
//  PasswordHash – bcrypt hash; never serialised.
//  Role         – one of user, provider or admin.
//  Phone, Bio   – optional provider profile fields (empty when unset).
//  CreatedAt    – timestamp of creation.
type User struct {
    ID           uint64    `json:"id"`
    Name         string    `json:"name"`
    Email        string    `json:"email"`
    PasswordHash string    `json:"-"`
    Role         string    `json:"role"`
    Phone        string    `json:"phone"`
    Bio          string    `json:"bio"`
    CreatedAt    time.Time `json:"created_at"`
}

// RefreshToken models an entry in the `refresh_tokens` table.  Only the
// SHA‑256 hash of the token is stored.
type RefreshToken struct {
    ID        uint64     // refresh_tokens.id
    UserID    uint64     // refresh_tokens.user_id
    TokenHash string     // refresh_tokens.token_hash
    ExpiresAt time.Time  // refresh_tokens.expires_at
    RevokedAt *time.Time // refresh_tokens.revoked_at (nullable)
    CreatedAt time.Time  // refresh_tokens.created_at
}
