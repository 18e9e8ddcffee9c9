// Package handlers exposes the POS services over HTTP.
package handlers

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/sumanshinde/Rpos/internal/app"
	"github.com/sumanshinde/Rpos/internal/auth"
	"github.com/sumanshinde/Rpos/internal/logging"
	"github.com/sumanshinde/Rpos/internal/validation"
)

func corsConfig(origins []string) cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{"GET", "POST", "PATCH", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Authorization", "Content-Type", "Idempotency-Key", logging.RequestIDHeader},
		ExposeHeaders: []string{"Content-Length", logging.RequestIDHeader, "Idempotent-Replayed"},
		MaxAge:        12 * time.Hour,
	}
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
		return cfg
	}
	cfg.AllowOrigins = origins
	cfg.AllowCredentials = true
	return cfg
}

// NewRouter builds the API with all routes and middleware.
func NewRouter(a *app.App) *gin.Engine {
	r := gin.New()
	r.Use(logging.Middleware(a.Log))
	r.Use(gin.CustomRecovery(recovery))
	r.Use(cors.New(corsConfig(a.Config.CORSOrigins)))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "paymentMode": a.Payments.Mode()})
	})
	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"status": "fail", "error": "not_found", "message": "Can't find " + c.Request.URL.Path + " on this server!"})
	})

	v := validation.New()
	authed := authenticate(a.Auth)

	registerAuthRoutes(r.Group("/auth"), a.Auth, v, authed, newIPLimiter(a.Config.LoginRatePerMinute))
	registerCustomerRoutes(r.Group("/customers", authed), a.Customers, v)
	registerOrdersRoutes(r.Group("/orders", authed), a.Orders, v)
	registerTableRoutes(r.Group("/tables", authed), a.Tables, v)
	registerCategoryRoutes(r.Group("/categories", authed), a.Catalog, v)
	registerProductRoutes(r.Group("/products", authed), a.Catalog, v)
	registerPaymentRoutes(r.Group("/payment", authed), a.Payments, a.Idempotency, v)
	registerKitchenRoutes(r.Group("/kitchen", authed, requireRoles(auth.RoleKitchen, auth.RoleAdmin, auth.RoleWaiter)), a.Kitchen)
	return r
}
