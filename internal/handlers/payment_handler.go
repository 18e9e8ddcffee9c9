package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	validatorv10 "github.com/go-playground/validator/v10"

	"github.com/sumanshinde/Rpos/internal/idempotency"
	"github.com/sumanshinde/Rpos/internal/payment"
	"github.com/sumanshinde/Rpos/internal/validation"
)

func registerPaymentRoutes(g *gin.RouterGroup, svc *payment.Service, idem *idempotency.Store, v *validatorv10.Validate) {
	guard := idempotency.Guard(idem, renderError)

	g.POST("/create-order", func(c *gin.Context) {
		var req validation.CreateIntentRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			renderError(c, err)
			return
		}
		in, err := svc.CreateIntent(c.Request.Context(), req.Amount, req.Currency)
		if err != nil {
			renderError(c, err)
			return
		}
		respond(c, http.StatusOK, gin.H{"order": in, "mode": svc.Mode()})
	})

	g.POST("/verify", guard, func(c *gin.Context) {
		var req validation.VerifyPaymentRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			renderError(c, err)
			return
		}
		if err := validation.CheckOrderData(v, req.OrderData); err != nil {
			renderError(c, err)
			return
		}
		o, err := svc.Verify(c.Request.Context(), payment.VerifyInput{
			IntentID:  req.OrderID,
			PaymentID: req.PaymentID,
			Signature: req.Signature,
			Order:     req.OrderData.ToInput(sessionUserID(c)),
		})
		if err != nil {
			renderError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"status":  "success",
			"message": "Payment verified and order saved",
			"data":    gin.H{"order": o},
		})
	})

	g.POST("/cash", guard, func(c *gin.Context) {
		var req validation.CashPaymentRequest
		if err := validation.BindAndValidate(c, &req, v); err != nil {
			renderError(c, err)
			return
		}
		if err := validation.CheckOrderData(v, req.OrderData); err != nil {
			renderError(c, err)
			return
		}
		o, err := svc.ProcessCash(c.Request.Context(), req.OrderData.ToInput(sessionUserID(c)))
		if err != nil {
			renderError(c, err)
			return
		}
		respond(c, http.StatusCreated, gin.H{"order": o, "invoiceNumber": o.InvoiceNumber})
	})

	g.GET("/invoice/:orderId", func(c *gin.Context) {
		o, err := svc.GetInvoice(c.Request.Context(), c.Param("orderId"))
		if err != nil {
			renderError(c, err)
			return
		}
		respond(c, http.StatusOK, gin.H{"order": o})
	})
}
