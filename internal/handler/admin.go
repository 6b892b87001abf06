package handler

import (
	"database/sql"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/booking-marketplace/internal/model"
	"github.com/iliyamo/booking-marketplace/internal/repository"
)

// AdminHandler serves the moderation listings and deletes.  Sorting goes
// through each repository's allow-list so ?sortColumn never reaches SQL
// verbatim.
type AdminHandler struct {
	Users    *repository.UserRepo
	Services *repository.ServiceRepo
	Bookings *repository.BookingRepo
	Tokens   *repository.TokenRepo
	Timeout  time.Duration
}

func NewAdminHandler(u *repository.UserRepo, s *repository.ServiceRepo, b *repository.BookingRepo, t *repository.TokenRepo, timeout time.Duration) *AdminHandler {
	return &AdminHandler{Users: u, Services: s, Bookings: b, Tokens: t, Timeout: timeout}
}

func (h *AdminHandler) ListUsers(c echo.Context) error {
	ctx, cancel := timeout(c, h.Timeout)
	defer cancel()
	out, err := h.Users.List(ctx, repository.AdminUserFilter{
		Name:      strings.TrimSpace(c.QueryParam("name")),
		SortBy:    c.QueryParam("sortColumn"),
		SortOrder: c.QueryParam("sortOrder"),
		Page:      pageFrom(c, adminLimit),
	})
	if err != nil {
		return serverError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AdminHandler) ListServices(c echo.Context) error {
	ctx, cancel := timeout(c, h.Timeout)
	defer cancel()
	out, err := h.Services.ListAdmin(ctx, repository.AdminServiceFilter{
		Name:      strings.TrimSpace(c.QueryParam("name")),
		SortBy:    c.QueryParam("sortColumn"),
		SortOrder: c.QueryParam("sortOrder"),
		Page:      pageFrom(c, adminLimit),
	})
	if err != nil {
		return serverError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AdminHandler) ListBookings(c echo.Context) error {
	f := repository.AdminBookingFilter{
		Status:    model.BookingStatus(strings.TrimSpace(c.QueryParam("status"))),
		SortBy:    c.QueryParam("sortColumn"),
		SortOrder: c.QueryParam("sortOrder"),
		Page:      pageFrom(c, adminLimit),
	}
	if f.Status != "" && !f.Status.Valid() {
		return message(c, http.StatusBadRequest, "Invalid status")
	}
	ctx, cancel := timeout(c, h.Timeout)
	defer cancel()
	out, err := h.Bookings.ListAdmin(ctx, f)
	if err != nil {
		return serverError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *AdminHandler) DeleteUser(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return message(c, http.StatusNotFound, "User not found")
	}
	ctx, cancel := timeout(c, h.Timeout)
	defer cancel()

	// Sessions are revoked before the account row goes.
	u, err := h.Users.GetByID(ctx, id)
	if err == nil {
		err = h.Tokens.RevokeAllForUser(ctx, id)
	}
	if err == nil {
		err = h.Users.Delete(ctx, id)
	}
	if errors.Is(err, sql.ErrNoRows) {
		return message(c, http.StatusNotFound, "User not found")
	}
	if err != nil {
		return serverError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "User deleted", "data": u})
}

func (h *AdminHandler) DeleteService(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return message(c, http.StatusNotFound, "Service not found")
	}
	ctx, cancel := timeout(c, h.Timeout)
	defer cancel()

	s, err := h.Services.Delete(ctx, id, 0)
	if errors.Is(err, sql.ErrNoRows) {
		return message(c, http.StatusNotFound, "Service not found")
	}
	if err != nil {
		return serverError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Service deleted", "data": s})
}

func (h *AdminHandler) DeleteBooking(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return message(c, http.StatusNotFound, "Booking not found")
	}
	ctx, cancel := timeout(c, h.Timeout)
	defer cancel()

	b, err := h.Bookings.Delete(ctx, id)
	if errors.Is(err, sql.ErrNoRows) {
		return message(c, http.StatusNotFound, "Booking not found")
	}
	if err != nil {
		return serverError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Booking deleted", "data": b})
}
