package repository

import (
	"context"
	"database/sql"
)

// AuthLogRepo appends rows to the auth_logs audit table.
type AuthLogRepo struct{ DB *sql.DB }

func NewAuthLogRepo(db *sql.DB) *AuthLogRepo { return &AuthLogRepo{DB: db} }

// Record stores one audit entry.
func (r *AuthLogRepo) Record(ctx context.Context, userID uint64, action, ip string) error {
	_, err := r.DB.ExecContext(ctx,
		"INSERT INTO auth_logs (user_id, action, ip_address, created_at) VALUES (?,?,?,?)",
		userID, action, ip, now())
	return err
}
