package idempotency

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sumanshinde/Rpos/internal/apperr"
)

func testRender(c *gin.Context, err error) {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		c.JSON(ae.Status(), gin.H{"status": "fail", "message": ae.Message})
		return
	}
	c.JSON(http.StatusInternalServerError, gin.H{"status": "error"})
}

func newGuardedRouter(s *Store, status *int, calls *int) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/payment/cash", Guard(s, testRender), func(c *gin.Context) {
		*calls++
		c.JSON(*status, gin.H{"status": "success", "n": *calls})
	})
	return r
}

func do(r http.Handler, key, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/payment/cash", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set(HeaderKey, key)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestGuardReplaysStoredResponse(t *testing.T) {
	s, _ := newTestStore(t)
	status, calls := http.StatusCreated, 0
	r := newGuardedRouter(s, &status, &calls)

	first := do(r, "abc", `{"a":1}`)
	require.Equal(t, http.StatusCreated, first.Code)

	second := do(r, "abc", `{"a":1}`)
	assert.Equal(t, http.StatusCreated, second.Code)
	assert.Equal(t, "true", second.Header().Get(HeaderReplayed))
	assert.JSONEq(t, first.Body.String(), second.Body.String())
	assert.Equal(t, 1, calls)
}

func TestGuardRejectsDifferentBody(t *testing.T) {
	s, _ := newTestStore(t)
	status, calls := http.StatusCreated, 0
	r := newGuardedRouter(s, &status, &calls)

	do(r, "abc", `{"a":1}`)
	w := do(r, "abc", `{"a":2}`)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, 1, calls)
}

func TestGuardWithoutKeyPassesThrough(t *testing.T) {
	s, db := newTestStore(t)
	status, calls := http.StatusCreated, 0
	r := newGuardedRouter(s, &status, &calls)

	do(r, "", `{}`)
	do(r, "", `{}`)
	assert.Equal(t, 2, calls)
	assert.Equal(t, 0, db.Len("idempotency"))
}

func TestGuardServerErrorAllowsRetry(t *testing.T) {
	s, _ := newTestStore(t)
	status, calls := http.StatusInternalServerError, 0
	r := newGuardedRouter(s, &status, &calls)

	do(r, "k", `{}`)
	status = http.StatusCreated
	w := do(r, "k", `{}`)
	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Empty(t, w.Header().Get(HeaderReplayed))
	assert.Equal(t, 2, calls)
}

func TestGuardClientErrorIsReplayed(t *testing.T) {
	s, _ := newTestStore(t)
	status, calls := http.StatusBadRequest, 0
	r := newGuardedRouter(s, &status, &calls)

	do(r, "k", `{}`)
	w := do(r, "k", `{}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, 1, calls)
}

func TestGuardReleasesKeyWhenHandlerPanics(t *testing.T) {
	s, _ := newTestStore(t)
	gin.SetMode(gin.TestMode)
	calls := 0
	r := gin.New()
	r.Use(gin.CustomRecovery(func(c *gin.Context, _ interface{}) {
		c.AbortWithStatus(http.StatusInternalServerError)
	}))
	r.POST("/payment/cash", Guard(s, testRender), func(c *gin.Context) {
		calls++
		if calls == 1 {
			panic("boom")
		}
		c.JSON(http.StatusCreated, gin.H{"status": "success"})
	})

	first := do(r, "abc", `{"a":1}`)
	assert.Equal(t, http.StatusInternalServerError, first.Code)
	rec, err := s.Get(context.Background(), "abc")
	require.NoError(t, err)
	require.NotNil(t, rec)
	assert.Equal(t, StatusFailed, rec.Status)

	retry := do(r, "abc", `{"a":1}`)
	assert.Equal(t, http.StatusCreated, retry.Code)
	assert.Equal(t, 2, calls)
}
