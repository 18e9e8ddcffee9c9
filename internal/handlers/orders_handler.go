package handlers

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"

	"github.com/sumanshinde/Rpos/internal/auth"
	"github.com/sumanshinde/Rpos/internal/orders"
	"github.com/sumanshinde/Rpos/internal/validation"
)

// registerOrdersRoutes registers routes for the order API.
func registerOrdersRoutes(g *gin.RouterGroup, svc *orders.Service, v *validatorv10.Validate) {
	g.GET("", func(c *gin.Context) {
		list, err := svc.ListOrders(c.Request.Context(), orders.Status(c.Query("status")))
		if err != nil {
			renderError(c, err)
			return
		}
		respondList(c, "orders", list, len(list))
	})

	g.POST("", func(c *gin.Context) {
		var req validation.CreateOrderRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			renderError(c, err)
			return
		}
		o, err := svc.CreateOrder(c.Request.Context(), req.ToInput(sessionUserID(c)))
		if err != nil {
			renderError(c, err)
			return
		}
		c.Header("Location", fmt.Sprintf("/orders/%s", o.ID))
		respond(c, http.StatusCreated, gin.H{"order": o})
	})

	// Totals for a cart, computed with the same formula as order creation.
	// Lines for the same product are merged first.
	g.POST("/quote", func(c *gin.Context) {
		var req validation.QuoteRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			renderError(c, err)
			return
		}
		ct := req.Cart()
		totals, err := svc.Quote(ct.Items(), ct.Discount(), nil)
		if err != nil {
			renderError(c, err)
			return
		}
		respond(c, http.StatusOK, gin.H{"items": ct.Lines(), "count": ct.Count(), "totals": totals})
	})

	g.GET("/:id", func(c *gin.Context) {
		o, err := svc.GetOrder(c.Request.Context(), c.Param("id"))
		if err != nil {
			renderError(c, err)
			return
		}
		respond(c, http.StatusOK, gin.H{"order": o})
	})

	g.PUT("/:id", func(c *gin.Context) {
		var req validation.UpdateOrderRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			renderError(c, err)
			return
		}
		o, err := svc.UpdateOrder(c.Request.Context(), c.Param("id"), req.ToInput())
		if err != nil {
			renderError(c, err)
			return
		}
		respond(c, http.StatusOK, gin.H{"order": o})
	})

	g.PATCH("/:id/status", func(c *gin.Context) {
		var req validation.OrderStatusRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			renderError(c, err)
			return
		}
		o, err := svc.UpdateOrderStatus(c.Request.Context(), c.Param("id"), orders.Status(req.Status))
		if err != nil {
			renderError(c, err)
			return
		}
		respond(c, http.StatusOK, gin.H{"order": o})
	})

	g.DELETE("/:id", requireRoles(auth.RoleAdmin, auth.RoleCashier), func(c *gin.Context) {
		if err := svc.DeleteOrder(c.Request.Context(), c.Param("id")); err != nil {
			renderError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	})
}
