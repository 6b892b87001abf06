package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/booking-marketplace/internal/model"
	"github.com/iliyamo/booking-marketplace/internal/repository"
	"github.com/iliyamo/booking-marketplace/internal/service"
)

// BookingHandler serves the requester and provider booking endpoints.
type BookingHandler struct {
	Bookings *service.BookingService
	Reviews  *service.ReviewService
	Timeout  time.Duration
}

func NewBookingHandler(b *service.BookingService, r *service.ReviewService, timeout time.Duration) *BookingHandler {
	return &BookingHandler{Bookings: b, Reviews: r, Timeout: timeout}
}

type createBookingReq struct {
	ServiceID        uint64          `json:"service_id" validate:"required"`
	BookingDate      string          `json:"booking_date" validate:"required,notblank"`
	WorkersRequested *int            `json:"workers_requested"`
	BookingDetails   json.RawMessage `json:"booking_details"`
}

type reviewReq struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment"`
}

// Create stores a pending booking for the caller.
func (h *BookingHandler) Create(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return message(c, http.StatusUnauthorized, "Unauthorized")
	}
	var req createBookingReq
	if err := c.Bind(&req); err != nil {
		return message(c, http.StatusBadRequest, "Invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return message(c, http.StatusBadRequest, "Missing required fields")
	}
	in := service.CreateBookingInput{
		ServiceID:        req.ServiceID,
		WorkersRequested: req.WorkersRequested,
		BookingDetails:   req.BookingDetails,
	}
	if raw := strings.TrimSpace(req.BookingDate); raw != "" {
		if in.BookingDate, err = parseDate(raw); err != nil {
			return message(c, http.StatusBadRequest, "Invalid booking_date")
		}
	}
	if string(in.BookingDetails) == "null" {
		in.BookingDetails = nil
	}

	ctx, cancel := timeout(c, h.Timeout)
	defer cancel()

	b, err := h.Bookings.Create(ctx, uid, in)
	if err != nil {
		return bookingError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Booking created", "booking": b})
}

// List returns the caller's bookings.
func (h *BookingHandler) List(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return message(c, http.StatusUnauthorized, "Unauthorized")
	}
	f, bad := bookingFilter(c)
	if bad != "" {
		return message(c, http.StatusBadRequest, bad)
	}
	ctx, cancel := timeout(c, h.Timeout)
	defer cancel()

	out, err := h.Bookings.ListForUser(ctx, uid, f)
	if err != nil {
		return serverError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// ListProvider returns the bookings assigned to the calling provider.
func (h *BookingHandler) ListProvider(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return message(c, http.StatusUnauthorized, "Unauthorized")
	}
	f, bad := bookingFilter(c)
	if bad != "" {
		return message(c, http.StatusBadRequest, bad)
	}
	f.CustomerName = strings.TrimSpace(c.QueryParam("userName"))

	ctx, cancel := timeout(c, h.Timeout)
	defer cancel()

	out, err := h.Bookings.ListForProvider(ctx, uid, f)
	if err != nil {
		return serverError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// Cancel cancels one of the caller's pending bookings.
func (h *BookingHandler) Cancel(c echo.Context) error {
	return h.transition(c, h.Bookings.Cancel, "Booking cancelled",
		http.StatusNotFound, "Booking not found or cannot cancel")
}

func (h *BookingHandler) Accept(c echo.Context) error {
	return h.transition(c, h.Bookings.Accept, "Booking accepted",
		http.StatusBadRequest, "Booking not found or already accepted")
}

func (h *BookingHandler) Start(c echo.Context) error {
	return h.transition(c, h.Bookings.Start, "Booking started",
		http.StatusBadRequest, "Cannot start this booking")
}

func (h *BookingHandler) Complete(c echo.Context) error {
	return h.transition(c, h.Bookings.Complete, "Booking completed",
		http.StatusBadRequest, "Cannot complete this booking")
}

type transitionFunc func(ctx context.Context, actorID, bookingID uint64) (model.Booking, error)

func (h *BookingHandler) transition(c echo.Context, fn transitionFunc, ok string, rejectCode int, rejectMsg string) error {
	uid, err := getUserID(c)
	if err != nil {
		return message(c, http.StatusUnauthorized, "Unauthorized")
	}
	id, valid := pathID(c, "id")
	if !valid {
		return message(c, rejectCode, rejectMsg)
	}
	ctx, cancel := timeout(c, h.Timeout)
	defer cancel()

	b, err := fn(ctx, uid, id)
	if errors.Is(err, service.ErrTransitionRejected) {
		return message(c, rejectCode, rejectMsg)
	}
	if err != nil {
		return serverError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": ok, "booking": b})
}

// Review stores the caller's review of a completed booking.
func (h *BookingHandler) Review(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return message(c, http.StatusUnauthorized, "Unauthorized")
	}
	id, ok := pathID(c, "id")
	if !ok {
		return message(c, http.StatusBadRequest, "Booking not found or not completed")
	}
	var req reviewReq
	if err := c.Bind(&req); err != nil {
		return message(c, http.StatusBadRequest, "Invalid request body")
	}
	ctx, cancel := timeout(c, h.Timeout)
	defer cancel()

	rv, err := h.Reviews.Submit(ctx, uid, id, req.Rating, req.Comment)
	if err != nil {
		return bookingError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Review submitted", "review": rv})
}

// RedirectProvider sends the legacy /api/booking/provider/* paths to their
// current location, preserving method and body.
func RedirectProvider(c echo.Context) error {
	u := *c.Request().URL
	u.Path = "/api/bookings/provider" + strings.TrimPrefix(u.Path, "/api/booking/provider")
	return c.Redirect(http.StatusTemporaryRedirect, u.String())
}

// bookingFilter reads ?status, ?from, ?to and the page.  bad is the
// client-facing message for the first invalid parameter.
func bookingFilter(c echo.Context) (f repository.BookingFilter, bad string) {
	f.Page = pageFrom(c, listLimit)
	if s := strings.TrimSpace(c.QueryParam("status")); s != "" {
		f.Status = model.BookingStatus(s)
		if !f.Status.Valid() {
			return f, "Invalid status"
		}
	}
	var err error
	if f.From, err = queryDate(c, "from"); err != nil {
		return f, "Invalid from date"
	}
	if f.To, err = queryDate(c, "to"); err != nil {
		return f, "Invalid to date"
	}
	return f, ""
}

// bookingError maps service errors that carry a client-facing message.
func bookingError(c echo.Context, err error) error {
	var ve *service.ValidationError
	switch {
	case errors.As(err, &ve):
		return message(c, http.StatusBadRequest, ve.Msg)
	case errors.Is(err, service.ErrServiceNotFound):
		return message(c, http.StatusNotFound, "Service not found")
	case errors.Is(err, service.ErrReviewNotAllowed):
		return message(c, http.StatusBadRequest, "Booking not found or not completed")
	case errors.Is(err, service.ErrReviewExists):
		return message(c, http.StatusBadRequest, "Review already submitted for this booking")
	}
	return serverError(c, err)
}
