package routes

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"inkflow/handlers"
	"inkflow/middleware"
)

// Deps carries the handlers the router wires up.
type Deps struct {
	Webhook *handlers.WebhookHandler
	Health  *handlers.HealthHandler
	Legal   *handlers.LegalHandler

	MaxRequestsPerMin int
}

// RegisterRoutes centralizes registration of all endpoints and middleware.
func RegisterRoutes(r *gin.Engine, deps Deps) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type"},
		ExposeHeaders: []string{"Content-Length"},
		MaxAge:        12 * time.Hour,
	}))
	r.Use(middleware.RateLimitMiddleware(deps.MaxRequestsPerMin))

	r.GET("/webhook", deps.Webhook.Verify)
	r.POST("/webhook", deps.Webhook.Receive)

	r.GET("/health", deps.Health.Check)

	r.GET("/privacy-policy", deps.Legal.PrivacyPolicy)
	r.GET("/terms-of-service", deps.Legal.TermsOfService)
}
