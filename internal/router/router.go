// Package router wires handlers, middleware and route groups onto
// the Echo instance. Grouping mirrors the API surface: public
// routes, authenticated /v1 routes and admin-only /v1/admin
// routes.
package router

import (
	"database/sql"

	"github.com/labstack/echo/v4"
	"github.com/redis/go-redis/v9"

	"github.com/ksrnb/reunion-ticketing/internal/config"
	"github.com/ksrnb/reunion-ticketing/internal/handler"
	"github.com/ksrnb/reunion-ticketing/internal/middleware"
)

// Handlers bundles every handler the router mounts.
type Handlers struct {
	Auth    *handler.AuthHandler
	Event   *handler.EventHandler
	Booking *handler.BookingHandler
	Payment *handler.PaymentHandler
	Admin   *handler.AdminHandler
}

// Register mounts all routes. The Redis client may be nil, in
// which case the cache and rate-limit middleware pass through.
func Register(e *echo.Echo, db *sql.DB, rdb *redis.Client, jwtSecret string, h Handlers) {
	e.GET("/healthz", handler.Health(db))

	// Public routes: event details render on the landing page
	// before login, behind the response cache.
	cacheCfg := h.Event.CacheCfg
	e.GET("/v1/event", h.Event.Get, middleware.NewRedisCache(cacheCfg, rdb))

	// Credential endpoints are the only unauthenticated writes, so
	// they carry the token-bucket limiter.
	limiter := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
	auth := e.Group("/v1/auth", limiter)
	auth.POST("/register", h.Auth.Register)
	auth.POST("/login", h.Auth.Login)

	// Authenticated routes.
	v1 := e.Group("/v1", middleware.JWTAuth(jwtSecret))
	v1.GET("/me", h.Auth.Me)

	v1.POST("/bookings", h.Booking.Create)
	v1.GET("/bookings", h.Booking.ListMine)
	v1.GET("/bookings/:id", h.Booking.Get)
	v1.POST("/bookings/:id/plus-one", h.Booking.PlusOne)
	v1.POST("/bookings/:id/receipt", h.Booking.UploadReceipt)
	v1.GET("/bookings/:id/ticket", h.Booking.Ticket)
	v1.POST("/bookings/:id/send-ticket", h.Booking.SendTicket)

	v1.POST("/payments/checkout", h.Payment.Checkout)
	v1.POST("/payments/dev/:id/confirm", h.Payment.DevConfirm)

	// The bank calls back without a token; the callback signature
	// is verified inside the handler.
	e.POST("/v1/payments/callback", h.Payment.Callback)

	// Organizer tooling. The event upsert lives on the public
	// path but is admin-gated.
	e.PUT("/v1/event", h.Event.Upsert, middleware.JWTAuth(jwtSecret), middleware.RequireAdmin())

	admin := e.Group("/v1/admin", middleware.JWTAuth(jwtSecret), middleware.RequireAdmin())
	admin.GET("/bookings", h.Admin.ListBookings)
	admin.POST("/bookings/:id/approve", h.Admin.Approve)
	admin.POST("/bookings/:id/receipt", h.Admin.VerifyReceipt)
	admin.GET("/users", h.Admin.ListUsers)
	admin.POST("/qr/validate", h.Admin.ValidateQR)
	admin.GET("/dashboard", h.Admin.Dashboard)
}
