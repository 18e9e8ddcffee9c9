package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"

	"github.com/sumanshinde/Rpos/internal/auth"
	"github.com/sumanshinde/Rpos/internal/tables"
	"github.com/sumanshinde/Rpos/internal/validation"
)

func registerTableRoutes(g *gin.RouterGroup, store *tables.Store, v *validatorv10.Validate) {
	admin := requireRoles(auth.RoleAdmin)

	g.GET("", func(c *gin.Context) {
		list, err := store.List(c.Request.Context())
		if err != nil {
			renderError(c, err)
			return
		}
		respondList(c, "tables", list, len(list))
	})

	g.POST("", admin, func(c *gin.Context) {
		var req validation.CreateTableRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			renderError(c, err)
			return
		}
		t, err := store.Create(c.Request.Context(), req.ToInput())
		if err != nil {
			renderError(c, err)
			return
		}
		respond(c, http.StatusCreated, gin.H{"table": t})
	})

	g.GET("/:id", func(c *gin.Context) {
		t, err := store.Get(c.Request.Context(), c.Param("id"))
		if err != nil {
			renderError(c, err)
			return
		}
		respond(c, http.StatusOK, gin.H{"table": t})
	})

	g.PUT("/:id", admin, func(c *gin.Context) {
		var req validation.UpdateTableRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			renderError(c, err)
			return
		}
		t, err := store.Update(c.Request.Context(), c.Param("id"), req.ToInput())
		if err != nil {
			renderError(c, err)
			return
		}
		respond(c, http.StatusOK, gin.H{"table": t})
	})

	g.PATCH("/:id/status", func(c *gin.Context) {
		var req validation.TableStatusRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			renderError(c, err)
			return
		}
		t, err := store.SetStatus(c.Request.Context(), c.Param("id"), tables.Status(req.Status))
		if err != nil {
			renderError(c, err)
			return
		}
		respond(c, http.StatusOK, gin.H{"table": t})
	})

	g.DELETE("/:id", admin, func(c *gin.Context) {
		if err := store.Delete(c.Request.Context(), c.Param("id")); err != nil {
			renderError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	})
}
