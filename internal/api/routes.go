package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"firebase.google.com/go/v4/auth"

	"atqr-backend-go/internal/config"
	"atqr-backend-go/internal/core"
	"atqr-backend-go/internal/middleware"
)

// SetupRoutes configures all the application routes with their handlers and
// middleware. Global middleware (request ID, logging, recovery, CORS) is
// applied to the router before this function is called, in main.go.
func SetupRoutes(
	router *gin.Engine,
	appConfig *config.Config,
	logger *zap.Logger,
	authClient *auth.Client,
	userService core.UserService,
	entitlementService core.EntitlementService,
	qrService core.QRCodeService,
	redirectService core.RedirectService,
	billingService core.BillingService,
) {
	authMW := middleware.NewAuthMiddleware(authClient, logger)

	authHandler := NewAuthHandler(userService, logger)
	userHandler := NewUserHandler(userService, logger)
	qrHandler := NewQRCodeHandler(qrService, logger)
	trialHandler := NewTrialHandler(entitlementService, logger)
	billingHandler := NewBillingHandler(billingService, logger)
	redirectHandler := NewRedirectHandler(redirectService, appConfig.RedirectFallbackURL, logger)

	apiV1 := router.Group("/api/v1")
	{
		usersGroup := apiV1.Group("/users")
		{
			// Called after client-side Firebase login/signup to ensure the
			// backend profile exists.
			usersGroup.POST("/initialize", authMW.VerifyToken(), authHandler.InitializeUserProfile)
			usersGroup.GET("/me", authMW.VerifyToken(), userHandler.GetCurrentUserProfile)
		}

		apiV1.POST("/qrcodes", authMW.VerifyToken(), qrHandler.CreateQRCode)
		apiV1.POST("/trial/start", authMW.VerifyToken(), trialHandler.StartTrial)

		billingGroup := apiV1.Group("/billing")
		{
			billingGroup.POST("/checkout-session", authMW.VerifyToken(), billingHandler.CreateCheckoutSession)
			billingGroup.POST("/portal-session", authMW.VerifyToken(), billingHandler.CreatePortalSession)

			// Public webhook endpoint: Stripe authenticates via signature,
			// verified inside the billing service.
			billingGroup.POST("/webhooks/stripe", billingHandler.HandleStripeWebhook)
		}
	}

	// Public scan endpoint. No auth: anybody with a camera hits this.
	router.GET("/r/:slug", redirectHandler.HandleRedirect)

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "UP", "message": "atqr backend is healthy."})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	logger.Info("API routes configured successfully under /api/v1, /r and /health.")
}
