package idempotency

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/sumanshinde/Rpos/internal/apperr"
	"github.com/sumanshinde/Rpos/internal/logging"
)

const (
	HeaderKey      = "Idempotency-Key"
	HeaderReplayed = "Idempotent-Replayed"
)

type captureWriter struct {
	gin.ResponseWriter
	body bytes.Buffer
}

func (w *captureWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *captureWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// Guard makes a route safe to retry when the client sends an Idempotency-Key
// header: the first response below 500 is stored and replayed for every
// repeat of the same request. Requests without the header pass through.
// Errors are written with render.
func Guard(store *Store, render func(*gin.Context, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.GetHeader(HeaderKey)
		if key == "" {
			c.Next()
			return
		}
		ctx := c.Request.Context()
		log := logging.FromContext(ctx).WithField("idempotency_key", key)

		body, err := io.ReadAll(c.Request.Body)
		if err != nil {
			render(c, apperr.Validation("could not read request body"))
			c.Abort()
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))
		sum := sha256.Sum256(body)
		scope := c.Request.Method + " " + c.FullPath()

		rec, created, err := store.Begin(ctx, key, scope, hex.EncodeToString(sum[:]))
		if err != nil {
			render(c, fmt.Errorf("idempotency check: %w", err))
			c.Abort()
			return
		}
		if !created {
			switch {
			case !rec.Matches(scope, hex.EncodeToString(sum[:])):
				render(c, apperr.Conflict("Idempotency-Key was already used for a different request"))
			case rec.Status == StatusDone:
				log.Info("replaying stored response")
				c.Header(HeaderReplayed, "true")
				c.Data(rec.ResponseStatus, "application/json; charset=utf-8", []byte(rec.ResponseBody))
			default:
				render(c, apperr.Conflict("a request with this Idempotency-Key is already in progress"))
			}
			c.Abort()
			return
		}

		w := &captureWriter{ResponseWriter: c.Writer}
		c.Writer = w
		// a panicking handler must not leave the key in progress until it expires
		defer func() {
			if r := recover(); r != nil {
				if err := store.MarkFailed(ctx, key, fmt.Sprint("panic: ", r)); err != nil {
					log.WithError(err).Error("mark idempotency key failed")
				}
				panic(r)
			}
		}()
		c.Next()

		if status := w.Status(); status >= http.StatusInternalServerError {
			if err := store.MarkFailed(ctx, key, http.StatusText(status)); err != nil {
				log.WithError(err).Error("mark idempotency key failed")
			}
			return
		}
		if err := store.MarkDone(ctx, key, w.body.String(), w.Status()); err != nil {
			log.WithError(err).Error("store idempotent response")
		}
	}
}
