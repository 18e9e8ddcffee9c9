package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"

	"github.com/sumanshinde/Rpos/internal/auth"
	"github.com/sumanshinde/Rpos/internal/customers"
	"github.com/sumanshinde/Rpos/internal/validation"
)

func registerCustomerRoutes(g *gin.RouterGroup, store *customers.Store, v *validatorv10.Validate) {
	g.GET("", func(c *gin.Context) {
		list, err := store.List(c.Request.Context())
		if err != nil {
			renderError(c, err)
			return
		}
		respondList(c, "customers", list, len(list))
	})

	g.POST("", func(c *gin.Context) {
		var req validation.CreateCustomerRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			renderError(c, err)
			return
		}
		cu, err := store.Create(c.Request.Context(), req.ToInput())
		if err != nil {
			renderError(c, err)
			return
		}
		respond(c, http.StatusCreated, gin.H{"customer": cu})
	})

	g.GET("/:id", func(c *gin.Context) {
		cu, err := store.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			renderError(c, err)
			return
		}
		respond(c, http.StatusOK, gin.H{"customer": cu})
	})

	g.PATCH("/:id", func(c *gin.Context) {
		var req validation.UpdateCustomerRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			renderError(c, err)
			return
		}
		cu, err := store.Update(c.Request.Context(), c.Param("id"), req.ToInput())
		if err != nil {
			renderError(c, err)
			return
		}
		respond(c, http.StatusOK, gin.H{"customer": cu})
	})

	g.DELETE("/:id", requireRoles(auth.RoleAdmin), func(c *gin.Context) {
		if err := store.Delete(c.Request.Context(), c.Param("id")); err != nil {
			renderError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	})
}
