package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sumanshinde/Rpos/internal/apperr"
	"github.com/sumanshinde/Rpos/internal/logging"
)

func respond(c *gin.Context, status int, data gin.H) {
	c.JSON(status, gin.H{"status": "success", "data": data})
}

func respondList(c *gin.Context, name string, items interface{}, n int) {
	c.JSON(http.StatusOK, gin.H{"status": "success", "results": n, "data": gin.H{name: items}})
}

// renderError is the single place errors become responses. Unclassified
// errors are logged and hidden behind a generic 500.
func renderError(c *gin.Context, err error) {
	var ae *apperr.Error
	if !errors.As(err, &ae) {
		logging.FromContext(c.Request.Context()).WithError(err).Error("unhandled error")
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
			"status":  "error",
			"error":   "internal",
			"message": "Something went wrong",
		})
		return
	}

	status := ae.Status()
	body := gin.H{"status": "fail", "error": ae.Code, "message": ae.Message}
	if status >= http.StatusInternalServerError {
		body["status"] = "error"
	}
	if len(ae.Fields) > 0 {
		body["fields"] = ae.Fields
	}
	if ae.Err != nil {
		logging.FromContext(c.Request.Context()).WithError(ae.Err).Debug(ae.Message)
	}
	c.AbortWithStatusJSON(status, body)
}

func recovery(c *gin.Context, recovered interface{}) {
	logging.FromContext(c.Request.Context()).WithField("panic", recovered).Error("recovered from panic")
	c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{
		"status":  "error",
		"error":   "internal",
		"message": "Something went wrong",
	})
}
