package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/seinetours/booking-backend/internal/middleware"
	"github.com/seinetours/booking-backend/pkg/jwt"
	"github.com/sirupsen/logrus"
)

// Router bundles the API handlers
type Router struct {
	Catalog   *CatalogHandler
	Bookings  *BookingHandler
	Payments  *PaymentHandler
	AdminAuth *AdminAuthHandler
}

// Register mounts the /api routes on r. Operator routes require an access
// token carrying the admin role.
func (h *Router) Register(r gin.IRouter, jwtService *jwt.Service, logger *logrus.Logger) {
	requireAdmin := []gin.HandlerFunc{
		middleware.AuthMiddleware(jwtService, logger),
		middleware.RequireRole("admin"),
	}
	admin := func(handler gin.HandlerFunc) []gin.HandlerFunc {
		return append(append([]gin.HandlerFunc{}, requireAdmin...), handler)
	}

	api := r.Group("/api")

	tickets := api.Group("/tickets")
	{
		tickets.GET("", h.Catalog.ListTickets)
		tickets.GET("/:id", h.Catalog.GetTicket)
		tickets.POST("", admin(h.Catalog.CreateTicket)...)
		tickets.PUT("/:id", admin(h.Catalog.UpdateTicket)...)
		tickets.DELETE("/:id", admin(h.Catalog.DeleteTicket)...)
	}
	api.POST("/seed", admin(h.Catalog.Seed)...)

	bookings := api.Group("/bookings")
	{
		bookings.POST("", h.Bookings.CreateBooking)
		bookings.GET("", admin(h.Bookings.ListBookings)...)
		bookings.GET("/:id", h.Bookings.GetBooking)
		bookings.PATCH("/:id", admin(h.Bookings.CompleteTravel)...)
	}

	api.POST("/create-payment-intent", h.Payments.CreatePaymentIntent)
	api.POST("/confirm-payment", h.Payments.ConfirmPayment)
	api.POST("/confirmBooking", h.Payments.ConfirmPayment)
	api.POST("/payment-webhook", h.Payments.Webhook)
	api.POST("/resend-email", admin(h.Payments.ResendEmail)...)

	adminAuth := api.Group("/admin")
	{
		adminAuth.POST("/register", middleware.OptionalAuth(jwtService, logger), h.AdminAuth.Register)
		adminAuth.POST("/login", h.AdminAuth.Login)
		adminAuth.POST("/refresh", h.AdminAuth.RefreshToken)
		adminAuth.POST("/logout", h.AdminAuth.Logout)
		adminAuth.GET("/profile", admin(h.AdminAuth.GetProfile)...)
	}
}
