// internal/interfaces/http/routes/routes.go
package routes

import (
	"context"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/your-org/feedmarket-backend/internal/config"
	"github.com/your-org/feedmarket-backend/internal/domain/appointment"
	"github.com/your-org/feedmarket-backend/internal/domain/cart"
	"github.com/your-org/feedmarket-backend/internal/domain/checkout"
	"github.com/your-org/feedmarket-backend/internal/domain/order"
	"github.com/your-org/feedmarket-backend/internal/domain/payment"
	"github.com/your-org/feedmarket-backend/internal/domain/shipping"
	"github.com/your-org/feedmarket-backend/internal/domain/user"
	"github.com/your-org/feedmarket-backend/internal/interfaces/http/handlers"
	"github.com/your-org/feedmarket-backend/internal/interfaces/http/middleware"
	"github.com/your-org/feedmarket-backend/internal/pkg/email"
	"github.com/your-org/feedmarket-backend/internal/pkg/pdf"
	"gorm.io/gorm"
)

// SetupRoutes wires services, handlers and routes for the API
func SetupRoutes(rg *gin.RouterGroup, db *gorm.DB, redisClient *redis.Client, cfg *config.Config, logger *logrus.Logger) {
	// Domain services
	shippingProvider := shipping.NewHTTPProvider(cfg)
	shippingService := shipping.NewService(shippingProvider, logger, cfg)

	cartService := cart.NewService(db, cfg, logger)
	addressService := user.NewAddressService(db, cfg, shippingService)

	keyStore := order.NewRedisKeyStore(redisClient)
	orderService := order.NewService(db, cfg, logger, cartService, keyStore)

	checkoutService := checkout.NewService(db, redisClient, cfg, logger,
		cartService, addressService, shippingService, orderService)

	appointmentService := appointment.NewService(db, cfg, logger)

	// Payment stack: one session manager and one reconciler serve both
	// orders and appointments
	gateway := payment.NewSnapGateway(cfg)
	paymentStore := payment.NewStore(db)
	sessionManager := payment.NewSessionManager(paymentStore, gateway, redisClient, cfg, logger)
	reconciler := payment.NewReconciler(paymentStore, gateway, logger)

	mailer := email.NewMailer(cfg, logger)
	registerPaidHooks(reconciler, orderService, appointmentService, mailer, logger)

	pdfService := pdf.NewService(cfg)

	// Handlers
	cartHandler := handlers.NewCartHandler(cartService, cfg)
	addressHandler := handlers.NewAddressHandler(addressService, cfg)
	checkoutHandler := handlers.NewCheckoutHandler(checkoutService, cfg)
	orderHandler := handlers.NewOrderHandler(orderService, pdfService, reconciler, cfg)
	paymentHandler := handlers.NewPaymentHandler(sessionManager, reconciler, cfg)
	appointmentHandler := handlers.NewAppointmentHandler(appointmentService, reconciler, cfg)

	// Public endpoints
	rg.GET("/consultants", appointmentHandler.ListConsultants)
	rg.GET("/consultants/:id/slots", appointmentHandler.GetTakenSlots)
	rg.GET("/payments/return", paymentHandler.Return)
	rg.POST("/webhooks/payment", paymentHandler.Webhook)

	// Authenticated endpoints
	authed := rg.Group("")
	authed.Use(middleware.AuthMiddleware(cfg))
	{
		cartGroup := authed.Group("/cart")
		{
			cartGroup.GET("", cartHandler.GetCart)
			cartGroup.POST("/items", cartHandler.AddToCart)
			cartGroup.PUT("/items/:id", cartHandler.UpdateCartItem)
			cartGroup.DELETE("/items/:id", cartHandler.RemoveFromCart)
			cartGroup.DELETE("", cartHandler.ClearCart)
		}

		addresses := authed.Group("/addresses")
		{
			addresses.GET("", addressHandler.GetAddresses)
			addresses.POST("", addressHandler.CreateAddress)
			addresses.PUT("/:id", addressHandler.UpdateAddress)
			addresses.DELETE("/:id", addressHandler.DeleteAddress)
			addresses.PUT("/:id/primary", addressHandler.SetPrimaryAddress)
		}

		authed.GET("/locations", addressHandler.SearchLocations)
		authed.POST("/checkout/quotes", checkoutHandler.CreateQuote)

		orders := authed.Group("/orders")
		{
			orders.POST("", checkoutHandler.PlaceOrder)
			orders.GET("", orderHandler.GetOrders)
			orders.GET("/:code", orderHandler.GetOrder)
			orders.PUT("/:code/cancel", orderHandler.CancelOrder)
			orders.PUT("/:code/complete", orderHandler.Complete)
			orders.GET("/:code/invoice", orderHandler.GetInvoice)
			orders.POST("/:code/payment", paymentHandler.CreateSession)
			orders.POST("/:code/refresh", paymentHandler.Refresh)
		}

		// Seller's view of their store's incoming orders
		authed.GET("/store/orders", orderHandler.GetStoreOrders)

		appointments := authed.Group("/appointments")
		{
			appointments.POST("", appointmentHandler.Book)
			appointments.GET("", appointmentHandler.GetAppointments)
			appointments.GET("/:code", appointmentHandler.GetAppointment)
			appointments.PUT("/:code/cancel", appointmentHandler.Cancel)
			appointments.POST("/:code/payment", paymentHandler.CreateSession)
			appointments.POST("/:code/refresh", paymentHandler.Refresh)
		}
	}
}

// registerPaidHooks connects payment settlement to its side effects:
// paid orders start processing and get a confirmation email, paid
// bookings claim their slot
func registerPaidHooks(
	reconciler *payment.Reconciler,
	orders *order.Service,
	appointments *appointment.Service,
	mailer *email.Mailer,
	logger *logrus.Logger,
) {
	reconciler.RegisterPaidHook(func(ctx context.Context, code string) {
		if payment.IsAppointmentPayable(code) {
			if err := appointments.Confirm(ctx, code); err != nil {
				logger.WithError(err).WithField("appointment_code", code).
					Error("Failed to confirm paid appointment")
				return
			}
			go func() {
				if a, err := appointments.Lookup(context.Background(), code); err == nil {
					mailer.SendAppointmentConfirmation(context.Background(), a)
				}
			}()
			return
		}

		updated, err := orders.MarkProcessing(ctx, code)
		if err != nil {
			logger.WithError(err).WithField("order_code", code).
				Error("Failed to advance paid order to processing")
			return
		}
		go mailer.SendOrderConfirmation(context.Background(), updated)
	})
}
