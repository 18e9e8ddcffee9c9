package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"

	"github.com/sumanshinde/Rpos/internal/auth"
	"github.com/sumanshinde/Rpos/internal/validation"
)

func registerAuthRoutes(g *gin.RouterGroup, svc *auth.Service, v *validatorv10.Validate, authed gin.HandlerFunc, limiter *ipLimiter) {
	limited := rateLimit(limiter)

	g.POST("/register", limited, func(c *gin.Context) {
		var req validation.RegisterRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			renderError(c, err)
			return
		}
		res, err := svc.Register(c.Request.Context(), req.ToInput())
		if err != nil {
			renderError(c, err)
			return
		}
		respond(c, http.StatusCreated, gin.H{"token": res.Token, "expiresAt": res.ExpiresAt, "user": res.User})
	})

	g.POST("/login", limited, func(c *gin.Context) {
		var req validation.LoginRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			renderError(c, err)
			return
		}
		res, err := svc.Login(c.Request.Context(), req.Email, req.Password)
		if err != nil {
			renderError(c, err)
			return
		}
		respond(c, http.StatusOK, gin.H{"token": res.Token, "expiresAt": res.ExpiresAt, "user": res.User})
	})

	g.POST("/logout", authed, func(c *gin.Context) {
		if err := svc.Logout(c.Request.Context(), session(c)); err != nil {
			renderError(c, err)
			return
		}
		respond(c, http.StatusOK, gin.H{})
	})

	g.GET("/me", authed, func(c *gin.Context) {
		u, err := svc.Me(c.Request.Context(), session(c))
		if err != nil {
			renderError(c, err)
			return
		}
		respond(c, http.StatusOK, gin.H{"user": u})
	})

	g.PATCH("/updateMe", authed, func(c *gin.Context) {
		var req validation.UpdateMeRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			renderError(c, err)
			return
		}
		u, err := svc.UpdateMe(c.Request.Context(), session(c), req.ToInput())
		if err != nil {
			renderError(c, err)
			return
		}
		respond(c, http.StatusOK, gin.H{"user": u})
	})
}
