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

// CatalogHandler serves services, categories and the public review
// listings.
type CatalogHandler struct {
	Services   *repository.ServiceRepo
	Categories *repository.CategoryRepo
	Reviews    *repository.ReviewRepo
	Timeout    time.Duration
}

func NewCatalogHandler(s *repository.ServiceRepo, cat *repository.CategoryRepo, r *repository.ReviewRepo, timeout time.Duration) *CatalogHandler {
	return &CatalogHandler{Services: s, Categories: cat, Reviews: r, Timeout: timeout}
}

// serviceReq is shared by create (name and price required) and update
// (any subset).
// serviceReq carries create and partial-update bodies.  The validate tags
// only apply on create; updates leave absent fields untouched.
type serviceReq struct {
	Name        *string  `json:"name" validate:"required,notblank"`
	Description *string  `json:"description"`
	Price       *float64 `json:"price" validate:"required,ne=0"`
	BaseHours   *float64 `json:"base_hours"`
	MaxWorkers  *int     `json:"max_workers"`
	CategoryID  *uint64  `json:"category_id"`
}

func (r serviceReq) validNumbers() bool {
	return (r.Price == nil || *r.Price >= 0) &&
		(r.BaseHours == nil || *r.BaseHours >= 0) &&
		(r.MaxWorkers == nil || *r.MaxWorkers >= 1)
}

// CreateService adds a service owned by the calling provider.
func (h *CatalogHandler) CreateService(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return message(c, http.StatusUnauthorized, "Unauthorized")
	}
	var req serviceReq
	if err := c.Bind(&req); err != nil {
		return message(c, http.StatusBadRequest, "Invalid request body")
	}
	if err := c.Validate(&req); err != nil {
		return message(c, http.StatusBadRequest, "Name and price are required")
	}
	if !req.validNumbers() {
		return message(c, http.StatusBadRequest, "price and base_hours must be >= 0, max_workers >= 1")
	}
	in := repository.ServiceInput{
		ProviderID: uid,
		CategoryID: req.CategoryID,
		Name:       *req.Name,
		Price:      *req.Price,
	}
	if req.Description != nil {
		in.Description = *req.Description
	}
	if req.BaseHours != nil {
		in.BaseHours = *req.BaseHours
	}
	if req.MaxWorkers != nil {
		in.MaxWorkers = *req.MaxWorkers
	}

	ctx, cancel := timeout(c, h.Timeout)
	defer cancel()

	s, err := h.Services.Create(ctx, in)
	if err != nil {
		return serverError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Service created", "service": s})
}

// ListServices filters the catalogue by provider, category, price range and
// name.
func (h *CatalogHandler) ListServices(c echo.Context) error {
	f := repository.ServiceFilter{
		ProviderID: queryUint(c, "providerId"),
		CategoryID: queryUint(c, "categoryId"),
		MinPrice:   queryFloat(c, "minPrice"),
		MaxPrice:   queryFloat(c, "maxPrice"),
		Name:       strings.TrimSpace(c.QueryParam("name")),
		Page:       pageFrom(c, listLimit),
	}
	ctx, cancel := timeout(c, h.Timeout)
	defer cancel()

	out, err := h.Services.List(ctx, f)
	if err != nil {
		return serverError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// UpdateService patches a service.  Providers may only touch their own;
// admins may touch any.
func (h *CatalogHandler) UpdateService(c echo.Context) error {
	owner, ok := h.owner(c)
	if !ok {
		return message(c, http.StatusUnauthorized, "Unauthorized")
	}
	id, ok := pathID(c, "id")
	if !ok {
		return message(c, http.StatusNotFound, "Service not found or not allowed")
	}
	var req serviceReq
	if err := c.Bind(&req); err != nil {
		return message(c, http.StatusBadRequest, "Invalid request body")
	}
	p := repository.ServicePatch{
		Name:        req.Name,
		Description: req.Description,
		Price:       req.Price,
		BaseHours:   req.BaseHours,
		MaxWorkers:  req.MaxWorkers,
		CategoryID:  req.CategoryID,
	}
	if p.Empty() {
		return message(c, http.StatusBadRequest, "No fields to update")
	}
	if !req.validNumbers() || (req.Name != nil && strings.TrimSpace(*req.Name) == "") {
		return message(c, http.StatusBadRequest, "Invalid field value")
	}

	ctx, cancel := timeout(c, h.Timeout)
	defer cancel()

	s, err := h.Services.Update(ctx, id, owner, p)
	if errors.Is(err, sql.ErrNoRows) {
		return message(c, http.StatusNotFound, "Service not found or not allowed")
	}
	if err != nil {
		return serverError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Service updated", "service": s})
}

// DeleteService removes a service owned by the caller (any service for
// admins).
func (h *CatalogHandler) DeleteService(c echo.Context) error {
	owner, ok := h.owner(c)
	if !ok {
		return message(c, http.StatusUnauthorized, "Unauthorized")
	}
	id, ok := pathID(c, "id")
	if !ok {
		return message(c, http.StatusNotFound, "Service not found or not allowed")
	}
	ctx, cancel := timeout(c, h.Timeout)
	defer cancel()

	s, err := h.Services.Delete(ctx, id, owner)
	if errors.Is(err, sql.ErrNoRows) {
		return message(c, http.StatusNotFound, "Service not found or not allowed")
	}
	if err != nil {
		return serverError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "Service deleted", "service": s})
}

// owner is the ownership guard passed to the repository: the caller's id,
// or 0 for admins.
func (h *CatalogHandler) owner(c echo.Context) (uint64, bool) {
	uid, err := getUserID(c)
	if err != nil {
		return 0, false
	}
	if middleware.Role(c) == model.RoleAdmin {
		return 0, true
	}
	return uid, true
}

// ListCategories returns all categories ordered by name.
func (h *CatalogHandler) ListCategories(c echo.Context) error {
	ctx, cancel := timeout(c, h.Timeout)
	defer cancel()
	cats, err := h.Categories.List(ctx)
	if err != nil {
		return serverError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"data": cats})
}

// CreateCategory adds a category (admin).
func (h *CatalogHandler) CreateCategory(c echo.Context) error {
	var req struct {
		Name string `json:"name" validate:"required,max=100"`
	}
	if err := c.Bind(&req); err != nil {
		return message(c, http.StatusBadRequest, "Invalid request body")
	}
	req.Name = strings.TrimSpace(req.Name)
	if err := c.Validate(&req); err != nil {
		return message(c, http.StatusBadRequest, "Category name is required")
	}
	ctx, cancel := timeout(c, h.Timeout)
	defer cancel()

	cat, err := h.Categories.Create(ctx, req.Name)
	if errors.Is(err, repository.ErrConflict) {
		return message(c, http.StatusBadRequest, "Category already exists")
	}
	if err != nil {
		return serverError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"message": "Category created", "category": cat})
}

// ServiceReviews lists every review of a service, newest first.
func (h *CatalogHandler) ServiceReviews(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusOK, []model.Review{})
	}
	ctx, cancel := timeout(c, h.Timeout)
	defer cancel()
	out, err := h.Reviews.ListForService(ctx, id)
	if err != nil {
		return serverError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// AverageRating returns the rounded average and count for a service.
func (h *CatalogHandler) AverageRating(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return c.JSON(http.StatusOK, model.RatingSummary{})
	}
	ctx, cancel := timeout(c, h.Timeout)
	defer cancel()
	out, err := h.Reviews.AverageForService(ctx, id)
	if err != nil {
		return serverError(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
