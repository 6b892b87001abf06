package handler

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/booking-marketplace/internal/config"
	"github.com/iliyamo/booking-marketplace/internal/model"
	"github.com/iliyamo/booking-marketplace/internal/repository"
	"github.com/iliyamo/booking-marketplace/internal/utils"
)

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
	Cfg    config.Config
	Users  *repository.UserRepo
	Tokens *repository.TokenRepo
	Logs   *repository.AuthLogRepo
}

func NewAuthHandler(cfg config.Config, u *repository.UserRepo, t *repository.TokenRepo, l *repository.AuthLogRepo) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: u, Tokens: t, Logs: l}
}

// ----- DTOs -----

type registerReq struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	Role     string `json:"role"` // user | provider
}
type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}
type refreshReq struct {
	RefreshToken string `json:"refresh_token"`
}

type tokenResp struct {
	Success        bool       `json:"success"`
	Message        string     `json:"message,omitempty"`
	Token          string     `json:"token"`
	Expires        time.Time  `json:"expires"`
	RefreshToken   string     `json:"refresh_token"`
	RefreshExpires time.Time  `json:"refresh_expires"`
	User           model.User `json:"user"`
}

// Register creates a user or provider account.  Admins are never created
// through the API.
func (h *AuthHandler) Register(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return message(c, http.StatusBadRequest, "Invalid request body")
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Name == "" || req.Email == "" || req.Password == "" {
		return message(c, http.StatusBadRequest, "Name, email and password are required")
	}
	if err := c.Validate(struct {
		Email string `validate:"email"`
	}{req.Email}); err != nil {
		return message(c, http.StatusBadRequest, "Invalid email address")
	}
	role := strings.ToLower(strings.TrimSpace(req.Role))
	if role != model.RoleProvider {
		role = model.RoleUser
	}

	ctx, cancel := timeout(c, h.Cfg.RequestTimeout)
	defer cancel()

	u, err := h.Users.Create(ctx, req.Name, req.Email, req.Password, role, h.Cfg.BcryptCost)
	if errors.Is(err, repository.ErrEmailExists) {
		return message(c, http.StatusBadRequest, "Email already registered")
	}
	if err != nil {
		return serverError(c, err)
	}
	return c.JSON(http.StatusCreated, echo.Map{"success": true, "message": "Account created successfully", "user": u})
}

// Login verifies credentials and returns an access/refresh pair.  The
// audit row is best effort.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return message(c, http.StatusBadRequest, "Invalid request body")
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return message(c, http.StatusBadRequest, "Email and password are required")
	}

	ctx, cancel := timeout(c, h.Cfg.RequestTimeout)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return message(c, http.StatusBadRequest, "Invalid email or password")
	}
	if err != nil {
		return serverError(c, err)
	}
	if !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return message(c, http.StatusBadRequest, "Invalid email or password")
	}

	resp, err := h.issue(ctx, u)
	if err != nil {
		return serverError(c, err)
	}
	if h.Logs != nil {
		if err := h.Logs.Record(ctx, u.ID, "login", c.RealIP()); err != nil {
			log.Printf("auth-log: user %d: %v", u.ID, err)
		}
	}
	resp.Message = "Login successful"
	return c.JSON(http.StatusOK, resp)
}

// Refresh validates a refresh token by hash, revokes it and issues a new
// pair.
func (h *AuthHandler) Refresh(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return message(c, http.StatusBadRequest, "refresh_token is required")
	}
	hash := utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken))

	ctx, cancel := timeout(c, h.Cfg.RequestTimeout)
	defer cancel()

	userID, err := h.Tokens.ValidateRefresh(ctx, hash)
	if errors.Is(err, sql.ErrNoRows) {
		return message(c, http.StatusUnauthorized, "Invalid refresh token")
	}
	if err != nil {
		return serverError(c, err)
	}
	// A concurrent refresh with the same token loses here.
	revoked, err := h.Tokens.RevokeByHash(ctx, hash)
	if err != nil {
		return serverError(c, err)
	}
	if !revoked {
		return message(c, http.StatusUnauthorized, "Invalid refresh token")
	}

	u, err := h.Users.GetByID(ctx, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return message(c, http.StatusUnauthorized, "Invalid refresh token")
	}
	if err != nil {
		return serverError(c, err)
	}
	resp, err := h.issue(ctx, u)
	if err != nil {
		return serverError(c, err)
	}
	return c.JSON(http.StatusOK, resp)
}

// Logout revokes the presented refresh token.  Unknown tokens are not an
// error.
func (h *AuthHandler) Logout(c echo.Context) error {
	var req refreshReq
	if err := c.Bind(&req); err != nil || strings.TrimSpace(req.RefreshToken) == "" {
		return message(c, http.StatusBadRequest, "refresh_token is required")
	}
	ctx, cancel := timeout(c, h.Cfg.RequestTimeout)
	defer cancel()
	if _, err := h.Tokens.RevokeByHash(ctx, utils.HashRefreshRaw(strings.TrimSpace(req.RefreshToken))); err != nil {
		return serverError(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// Profile returns the caller's own user record.
func (h *AuthHandler) Profile(c echo.Context) error {
	uid, err := getUserID(c)
	if err != nil {
		return message(c, http.StatusUnauthorized, "Unauthorized")
	}
	ctx, cancel := timeout(c, h.Cfg.RequestTimeout)
	defer cancel()

	u, err := h.Users.GetByID(ctx, uid)
	if errors.Is(err, sql.ErrNoRows) {
		return message(c, http.StatusNotFound, "User not found")
	}
	if err != nil {
		return serverError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"success": true, "user": u})
}

func (h *AuthHandler) issue(ctx context.Context, u model.User) (tokenResp, error) {
	access, err := utils.NewAccessToken(h.Cfg.JWTSecret, u.ID, u.Role, h.Cfg.AccessTTL)
	if err != nil {
		return tokenResp{}, err
	}
	refresh, err := utils.NewRefreshToken(h.Cfg.RefreshTTL)
	if err != nil {
		return tokenResp{}, err
	}
	if err := h.Tokens.StoreRefresh(ctx, u.ID, utils.HashRefreshRaw(refresh.Raw), refresh.Exp); err != nil {
		return tokenResp{}, err
	}
	return tokenResp{
		Success:        true,
		Token:          access.Token,
		Expires:        access.Exp,
		RefreshToken:   refresh.Raw,
		RefreshExpires: refresh.Exp,
		User:           u,
	}, nil
}
