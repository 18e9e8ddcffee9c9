package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sumanshinde/Rpos/internal/kitchen"
	"github.com/sumanshinde/Rpos/internal/orders"
)

func registerKitchenRoutes(g *gin.RouterGroup, w *kitchen.Workflow) {
	g.GET("/board", func(c *gin.Context) {
		b, err := w.Board(c.Request.Context())
		if err != nil {
			renderError(c, err)
			return
		}
		respond(c, http.StatusOK, gin.H{"board": b})
	})

	actions := map[string]func(context.Context, string) (*orders.Order, error){
		"start":    w.Start,
		"complete": w.Complete,
		"serve":    w.Serve,
	}
	for verb, fn := range actions {
		fn := fn
		g.POST("/orders/:id/"+verb, func(c *gin.Context) {
			o, err := fn(c.Request.Context(), c.Param("id"))
			if err != nil {
				renderError(c, err)
				return
			}
			respond(c, http.StatusOK, gin.H{"order": o})
		})
	}
}
