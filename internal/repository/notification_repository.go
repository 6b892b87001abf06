package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/booking-marketplace/internal/model"
)

// NotificationRepo stores in-app notifications.
type NotificationRepo struct{ DB *sql.DB }

func NewNotificationRepo(db *sql.DB) *NotificationRepo { return &NotificationRepo{DB: db} }

// Create inserts an unread notification for userID.
func (r *NotificationRepo) Create(ctx context.Context, userID uint64, message, kind string) (uint64, error) {
	res, err := r.DB.ExecContext(ctx,
		"INSERT INTO notifications (user_id, message, type, read_status, created_at) VALUES (?,?,?,?,?)",
		userID, message, kind, false, now())
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	return uint64(id), err
}

// NotificationFilter narrows a notification listing.  A zero UserID lists
// every user's notifications (admin view).
type NotificationFilter struct {
	UserID     uint64
	ReadStatus *bool
	Type       string
	Page       Page
}

const notificationSelect = `SELECT n.id, n.user_id, n.message, n.type, n.read_status, n.created_at, u.name
	FROM notifications n
	JOIN users u ON u.id = n.user_id`

func scanNotification(row interface{ Scan(...any) error }) (model.Notification, error) {
	var n model.Notification
	err := row.Scan(&n.ID, &n.UserID, &n.Message, &n.Type, &n.ReadStatus, &n.CreatedAt, &n.UserName)
	return n, err
}

// List returns notifications newest first.
func (r *NotificationRepo) List(ctx context.Context, f NotificationFilter) (Paged[model.Notification], error) {
	where := []string{}
	args := []any{}
	if f.UserID != 0 {
		where = append(where, "n.user_id = ?")
		args = append(args, f.UserID)
	}
	if f.ReadStatus != nil {
		where = append(where, "n.read_status = ?")
		args = append(args, *f.ReadStatus)
	}
	if f.Type != "" {
		where = append(where, "n.type = ?")
		args = append(args, f.Type)
	}
	cond := whereClause(where)

	var total int
	if err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM notifications n JOIN users u ON u.id = n.user_id WHERE "+cond, args...).Scan(&total); err != nil {
		return Paged[model.Notification]{}, err
	}
	rows, err := r.DB.QueryContext(ctx,
		notificationSelect+" WHERE "+cond+" ORDER BY n.created_at DESC, n.id DESC LIMIT ? OFFSET ?",
		append(args, f.Page.Limit, f.Page.Offset())...)
	if err != nil {
		return Paged[model.Notification]{}, err
	}
	defer rows.Close()
	out := make([]model.Notification, 0, f.Page.Limit)
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return Paged[model.Notification]{}, err
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return Paged[model.Notification]{}, err
	}
	return NewPaged(f.Page, total, out), nil
}

// MarkRead flags one notification as read.  A non-zero userID restricts the
// update to that user's rows; nothing matching yields sql.ErrNoRows.
func (r *NotificationRepo) MarkRead(ctx context.Context, id, userID uint64) (model.Notification, error) {
	q := "UPDATE notifications SET read_status=? WHERE id=?"
	args := []any{true, id}
	sel := notificationSelect + " WHERE n.id=?"
	selArgs := []any{id}
	if userID != 0 {
		q += " AND user_id=?"
		args = append(args, userID)
		sel += " AND n.user_id=?"
		selArgs = append(selArgs, userID)
	}
	if _, err := r.DB.ExecContext(ctx, q, args...); err != nil {
		return model.Notification{}, err
	}
	return scanNotification(r.DB.QueryRowContext(ctx, sel, selArgs...))
}

// MarkAllRead flags every unread notification of userID (or of everyone when
// userID is zero) and returns how many rows changed.
func (r *NotificationRepo) MarkAllRead(ctx context.Context, userID uint64) (int64, error) {
	q := "UPDATE notifications SET read_status=? WHERE read_status=?"
	args := []any{true, false}
	if userID != 0 {
		q += " AND user_id=?"
		args = append(args, userID)
	}
	res, err := r.DB.ExecContext(ctx, q, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
