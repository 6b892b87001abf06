package router // package router defines how HTTP routes are registered for the API

import (
	"database/sql"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/iliyamo/booking-marketplace/internal/config"
	"github.com/iliyamo/booking-marketplace/internal/handler"
	"github.com/iliyamo/booking-marketplace/internal/middleware"
	"github.com/iliyamo/booking-marketplace/internal/model"
)

// Handlers groups every handler the API exposes.
type Handlers struct {
	Auth          *handler.AuthHandler
	Bookings      *handler.BookingHandler
	Catalog       *handler.CatalogHandler
	Provider      *handler.ProviderHandler
	Notifications *handler.NotificationHandler
	Admin         *handler.AdminHandler
}

// Options carries the cross-cutting settings applied while registering.
// A nil Redis client disables the response cache; the rate limiter then
// keeps its buckets in process.
type Options struct {
	JWTSecret string
	Cache     config.CacheConfig
	RateLimit config.RateLimitConfig
	Redis     *redis.Client
}

// RegisterRoutes registers routes that do not require authentication and
// sit outside the rate-limited /api tree.
func RegisterRoutes(e *echo.Echo, db *sql.DB) {
	e.GET("/healthz", handler.Healthz)
	e.GET("/health", handler.Health(db))
	// Old clients still call the singular prefix.
	e.Any("/api/booking/provider/*", handler.RedirectProvider)
}

// RegisterAPI registers everything under /api.
func RegisterAPI(e *echo.Echo, h Handlers, o Options) {
	api := e.Group("/api", middleware.OptionalIdentity(o.JWTSecret), middleware.NewTokenBucket(o.RateLimit, o.Redis))
	auth := middleware.JWTAuth(o.JWTSecret)
	cache := middleware.NewRedisCache(o.Cache, o.Redis)

	registerAuth(api, h.Auth, auth)
	registerBookings(api, h.Bookings, auth)
	registerCatalog(api, h.Catalog, auth, cache)
	registerProvider(api, h.Provider, auth)
	registerNotifications(api, h.Notifications, auth)
	registerAdmin(api, h.Admin, auth)
}

func registerAuth(api *echo.Group, a *handler.AuthHandler, auth echo.MiddlewareFunc) {
	g := api.Group("/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout)
	g.GET("/profile", a.Profile, auth)
}

// registerBookings wires the requester routes and the provider lifecycle
// routes.  Static /provider/... segments win over /:id in echo's router.
func registerBookings(api *echo.Group, b *handler.BookingHandler, auth echo.MiddlewareFunc) {
	user := middleware.RequireRole(model.RoleUser)
	provider := middleware.RequireRole(model.RoleProvider)

	g := api.Group("/bookings", auth)
	g.POST("", b.Create, user)
	g.GET("", b.List, user)
	g.PATCH("/:id/cancel", b.Cancel, user)
	g.POST("/:id/review", b.Review, user)

	g.GET("/provider/all", b.ListProvider, provider)
	g.PATCH("/provider/:id/accept", b.Accept, provider)
	g.PATCH("/provider/:id/start", b.Start, provider)
	g.PATCH("/provider/:id/complete", b.Complete, provider)
}

func registerCatalog(api *echo.Group, h *handler.CatalogHandler, auth, cache echo.MiddlewareFunc) {
	provider := middleware.RequireRole(model.RoleProvider)
	owner := middleware.RequireRole(model.RoleProvider, model.RoleAdmin)
	admin := middleware.RequireRole(model.RoleAdmin)

	api.GET("/services", h.ListServices, auth, cache)
	api.POST("/services", h.CreateService, auth, provider)
	api.PATCH("/services/:id", h.UpdateService, auth, owner)
	api.DELETE("/services/:id", h.DeleteService, auth, owner)
	api.GET("/services/:id/reviews", h.ServiceReviews)
	api.GET("/services/:id/average-rating", h.AverageRating)

	api.GET("/categories", h.ListCategories, auth, cache)
	api.POST("/categories", h.CreateCategory, auth, admin)
}

func registerProvider(api *echo.Group, h *handler.ProviderHandler, auth echo.MiddlewareFunc) {
	g := api.Group("/provider", auth, middleware.RequireRole(model.RoleProvider))
	g.GET("/profile", h.Profile)
	g.PATCH("/profile", h.UpdateProfile)
	g.GET("/stats", h.Stats)
	g.GET("/reviews", h.ReviewsReceived)
	g.POST("/availability", h.AddAvailability)
	g.GET("/availability", h.ListAvailability)
	g.DELETE("/availability/:id", h.DeleteAvailability)
}

func registerNotifications(api *echo.Group, h *handler.NotificationHandler, auth echo.MiddlewareFunc) {
	g := api.Group("/notifications", auth)
	g.GET("", h.List)
	g.PATCH("/read-all", h.MarkAllRead)
	g.PATCH("/:id/read", h.MarkRead)
}

func registerAdmin(api *echo.Group, h *handler.AdminHandler, auth echo.MiddlewareFunc) {
	g := api.Group("/admin", auth, middleware.RequireRole(model.RoleAdmin))
	g.GET("/users", h.ListUsers)
	g.GET("/services", h.ListServices)
	g.GET("/bookings", h.ListBookings)
	g.DELETE("/users/:id", h.DeleteUser)
	g.DELETE("/services/:id", h.DeleteService)
	g.DELETE("/bookings/:id", h.DeleteBooking)
}
