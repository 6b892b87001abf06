package handler

import (
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/booking-marketplace/internal/middleware"
	"github.com/iliyamo/booking-marketplace/internal/model"
	"github.com/iliyamo/booking-marketplace/internal/repository"
)

// NotificationHandler lists notifications and flags them read.  Admins act
// on every user's rows, everyone else on their own.
type NotificationHandler struct {
	Notifications *repository.NotificationRepo
	Timeout       time.Duration
}

func NewNotificationHandler(n *repository.NotificationRepo, timeout time.Duration) *NotificationHandler {
	return &NotificationHandler{Notifications: n, Timeout: timeout}
}

// scope returns the user id to filter on, 0 for admins.
func scope(c echo.Context) (uint64, bool) {
	uid, err := getUserID(c)
	if err != nil {
		return 0, false
	}
	if middleware.Role(c) == model.RoleAdmin {
		return 0, true
	}
	return uid, true
}

// List supports ?read_status=true|false, ?type and pagination.
func (h *NotificationHandler) List(c echo.Context) error {
	uid, ok := scope(c)
	if !ok {
		return message(c, http.StatusUnauthorized, "Unauthorized")
	}
	f := repository.NotificationFilter{
		UserID: uid,
		Type:   strings.TrimSpace(c.QueryParam("type")),
		Page:   pageFrom(c, listLimit),
	}
	if rs := c.QueryParam("read_status"); rs != "" {
		v := rs == "true"
		f.ReadStatus = &v
	}
	ctx, cancel := timeout(c, h.Timeout)
	defer cancel()

	out, err := h.Notifications.List(ctx, f)
	if err != nil {
		return serverError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *NotificationHandler) MarkRead(c echo.Context) error {
	uid, ok := scope(c)
	if !ok {
		return message(c, http.StatusUnauthorized, "Unauthorized")
	}
	id, ok := pathID(c, "id")
	if !ok {
		return message(c, http.StatusNotFound, "Notification not found or not allowed")
	}
	ctx, cancel := timeout(c, h.Timeout)
	defer cancel()

	n, err := h.Notifications.MarkRead(ctx, id, uid)
	if errors.Is(err, sql.ErrNoRows) {
		return message(c, http.StatusNotFound, "Notification not found or not allowed")
	}
	if err != nil {
		return serverError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Notification marked as read", "notification": n})
}

func (h *NotificationHandler) MarkAllRead(c echo.Context) error {
	uid, ok := scope(c)
	if !ok {
		return message(c, http.StatusUnauthorized, "Unauthorized")
	}
	ctx, cancel := timeout(c, h.Timeout)
	defer cancel()

	n, err := h.Notifications.MarkAllRead(ctx, uid)
	if err != nil {
		return serverError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "All notifications marked as read", "updatedCount": n})
}
