package handler

import (
	"database/sql"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/booking-marketplace/internal/model"
	"github.com/iliyamo/booking-marketplace/internal/repository"
)

// ProviderHandler serves the provider's own profile, statistics, reviews
// and availability windows.
type ProviderHandler struct {
	Users        *repository.UserRepo
	Bookings     *repository.BookingRepo
	Reviews      *repository.ReviewRepo
	Availability *repository.AvailabilityRepo
	Timeout      time.Duration
}

func NewProviderHandler(u *repository.UserRepo, b *repository.BookingRepo, r *repository.ReviewRepo, a *repository.AvailabilityRepo, timeout time.Duration) *ProviderHandler {
	return &ProviderHandler{Users: u, Bookings: b, Reviews: r, Availability: a, Timeout: timeout}
}

type profileReq struct {
	Name  *string `json:"name"`
	Phone *string `json:"phone"`
	Bio   *string `json:"bio"`
}

type availabilityReq struct {
	Date      string `json:"date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
}

func (h *ProviderHandler) Profile(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return message(c, http.StatusUnauthorized, "Unauthorized")
	}
	ctx, cancel := timeout(c, h.Timeout)
	defer cancel()

	u, err := h.Users.GetByID(ctx, uid)
	if errors.Is(err, sql.ErrNoRows) {
		return message(c, http.StatusNotFound, "Profile not found")
	}
	if err != nil {
		return serverError(c, err)
	}
	return c.JSON(http.StatusOK, u)
}

// UpdateProfile applies a partial update of name, phone and bio.
func (h *ProviderHandler) UpdateProfile(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return message(c, http.StatusUnauthorized, "Unauthorized")
	}
	var req profileReq
	if err := c.Bind(&req); err != nil {
		return message(c, http.StatusBadRequest, "Invalid request body")
	}
	p := repository.ProfilePatch{Name: req.Name, Phone: req.Phone, Bio: req.Bio}
	if p.Empty() {
		return message(c, http.StatusBadRequest, "No fields to update")
	}
	if p.Name != nil && strings.TrimSpace(*p.Name) == "" {
		return message(c, http.StatusBadRequest, "Name cannot be empty")
	}
	ctx, cancel := timeout(c, h.Timeout)
	defer cancel()

	u, err := h.Users.UpdateProfile(ctx, uid, p)
	if errors.Is(err, sql.ErrNoRows) {
		return message(c, http.StatusNotFound, "Profile not found")
	}
	if err != nil {
		return serverError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Profile updated", "profile": u})
}

// Stats returns total, completed and pending booking counts.
func (h *ProviderHandler) Stats(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return message(c, http.StatusUnauthorized, "Unauthorized")
	}
	ctx, cancel := timeout(c, h.Timeout)
	defer cancel()

	st, err := h.Bookings.StatsForProvider(ctx, uid)
	if err != nil {
		return serverError(c, err)
	}
	return c.JSON(http.StatusOK, st)
}

// ReviewsReceived pages through reviews left on the provider's bookings.
// ?minRating keeps only reviews rated at least that high.
func (h *ProviderHandler) ReviewsReceived(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return message(c, http.StatusUnauthorized, "Unauthorized")
	}
	minRating, _ := strconv.Atoi(c.QueryParam("minRating"))
	ctx, cancel := timeout(c, h.Timeout)
	defer cancel()

	out, err := h.Reviews.ListForProvider(ctx, uid, repository.ProviderReviewFilter{MinRating: minRating, Page: pageFrom(c, listLimit)})
	if err != nil {
		return serverError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

func (h *ProviderHandler) AddAvailability(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return message(c, http.StatusUnauthorized, "Unauthorized")
	}
	var req availabilityReq
	if err := c.Bind(&req); err != nil {
		return message(c, http.StatusBadRequest, "Invalid request body")
	}
	a := model.Availability{
		ProviderID: uid,
		Date:       strings.TrimSpace(req.Date),
		StartTime:  strings.TrimSpace(req.StartTime),
		EndTime:    strings.TrimSpace(req.EndTime),
	}
	if a.Date == "" || a.StartTime == "" || a.EndTime == "" {
		return message(c, http.StatusBadRequest, "Date, start_time, and end_time are required")
	}
	if msg := checkWindow(a); msg != "" {
		return message(c, http.StatusBadRequest, msg)
	}
	ctx, cancel := timeout(c, h.Timeout)
	defer cancel()

	if err := h.Availability.Create(ctx, &a); err != nil {
		return serverError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Availability added", "availability": a})
}

func (h *ProviderHandler) ListAvailability(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return message(c, http.StatusUnauthorized, "Unauthorized")
	}
	ctx, cancel := timeout(c, h.Timeout)
	defer cancel()

	out, err := h.Availability.ListForProvider(ctx, uid)
	if err != nil {
		return serverError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// DeleteAvailability removes one of the caller's own windows.
func (h *ProviderHandler) DeleteAvailability(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return message(c, http.StatusUnauthorized, "Unauthorized")
	}
	id, ok := pathID(c, "id")
	if !ok {
		return message(c, http.StatusNotFound, "Availability not found")
	}
	ctx, cancel := timeout(c, h.Timeout)
	defer cancel()

	a, err := h.Availability.Delete(ctx, id, uid)
	if errors.Is(err, sql.ErrNoRows) {
		return message(c, http.StatusNotFound, "Availability not found")
	}
	if err != nil {
		return serverError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Availability removed", "availability": a})
}

// checkWindow validates the date and HH:MM[:SS] times of a window.
func checkWindow(a model.Availability) string {
	if _, err := time.Parse(time.DateOnly, a.Date); err != nil {
		return "date must be YYYY-MM-DD"
	}
	start, err1 := parseClock(a.StartTime)
	end, err2 := parseClock(a.EndTime)
	if err1 != nil || err2 != nil {
		return "start_time and end_time must be HH:MM"
	}
	if !end.After(start) {
		return "end_time must be after start_time"
	}
	return ""
}

func parseClock(s string) (time.Time, error) {
	if t, err := time.Parse("15:04", s); err == nil {
		return t, nil
	}
	return time.Parse(time.TimeOnly, s)
}
