package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"

	"github.com/sumanshinde/Rpos/internal/apperr"
	"github.com/sumanshinde/Rpos/internal/auth"
	"github.com/sumanshinde/Rpos/internal/catalog"
	"github.com/sumanshinde/Rpos/internal/validation"
)

func registerCategoryRoutes(g *gin.RouterGroup, store *catalog.Store, v *validatorv10.Validate) {
	g.GET("", func(c *gin.Context) {
		list, err := store.ListCategories(c.Request.Context())
		if err != nil {
			renderError(c, err)
			return
		}
		respondList(c, "categories", list, len(list))
	})

	g.POST("", requireRoles(auth.RoleAdmin), func(c *gin.Context) {
		var req validation.CreateCategoryRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			renderError(c, err)
			return
		}
		cat, err := store.CreateCategory(c.Request.Context(), req.ToInput())
		if err != nil {
			renderError(c, err)
			return
		}
		respond(c, http.StatusCreated, gin.H{"category": cat})
	})
}

// productFilter reads ?is_available= and ?category=.
func productFilter(c *gin.Context) (catalog.ProductFilter, error) {
	f := catalog.ProductFilter{CategoryID: c.Query("category")}
	if raw, ok := c.GetQuery("is_available"); ok && raw != "" {
		b, err := strconv.ParseBool(raw)
		if err != nil {
			return f, apperr.Validation("invalid query").WithFields(map[string]string{"is_available": "Must be true or false"})
		}
		f.Available = &b
	}
	return f, nil
}

func registerProductRoutes(g *gin.RouterGroup, store *catalog.Store, v *validatorv10.Validate) {
	admin := requireRoles(auth.RoleAdmin)

	g.GET("", func(c *gin.Context) {
		f, err := productFilter(c)
		if err != nil {
			renderError(c, err)
			return
		}
		list, err := store.ListProducts(c.Request.Context(), f)
		if err != nil {
			renderError(c, err)
			return
		}
		respondList(c, "products", list, len(list))
	})

	g.POST("", admin, func(c *gin.Context) {
		var req validation.CreateProductRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			renderError(c, err)
			return
		}
		p, err := store.CreateProduct(c.Request.Context(), req.ToInput())
		if err != nil {
			renderError(c, err)
			return
		}
		respond(c, http.StatusCreated, gin.H{"product": p})
	})

	g.GET("/:id", func(c *gin.Context) {
		p, err := store.GetProduct(c.Request.Context(), c.Param("id"))
		if err != nil {
			renderError(c, err)
			return
		}
		respond(c, http.StatusOK, gin.H{"product": p})
	})

	g.PUT("/:id", admin, func(c *gin.Context) {
		var req validation.UpdateProductRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			renderError(c, err)
			return
		}
		p, err := store.UpdateProduct(c.Request.Context(), c.Param("id"), req.ToInput())
		if err != nil {
			renderError(c, err)
			return
		}
		respond(c, http.StatusOK, gin.H{"product": p})
	})

	g.DELETE("/:id", admin, func(c *gin.Context) {
		if err := store.DeleteProduct(c.Request.Context(), c.Param("id")); err != nil {
			renderError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
	})
}
