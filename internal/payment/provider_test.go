package payment

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sumanshinde/Rpos/internal/apperr"
)

func TestSignAndVerify(t *testing.T) {
	sig := Sign("s3cret", "order_1", "pay_1")
	assert.Len(t, sig, 64)
	assert.True(t, VerifySignature("s3cret", "order_1", "pay_1", sig))
	assert.False(t, VerifySignature("s3cret", "order_1", "pay_2", sig))
	assert.False(t, VerifySignature("other", "order_1", "pay_1", sig))
	assert.False(t, VerifySignature("s3cret", "order_1", "pay_1", ""))
}

func TestGatewayCreateIntent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/orders", r.URL.Path)
		user, pass, ok := r.BasicAuth()
		assert.True(t, ok)
		assert.Equal(t, "key", user)
		assert.Equal(t, "secret", pass)

		var body createOrderRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, int64(11000), body.Amount)
		assert.Equal(t, "INR", body.Currency)

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"order_ABC","entity":"order","amount":11000,"amount_paid":0,"amount_due":11000,"currency":"INR","receipt":"r1","status":"created","attempts":0,"created_at":1700000000}`))
	}))
	defer srv.Close()

	g := NewGatewayProvider("key", "secret", srv.URL+"/v1", srv.Client())
	in, err := g.CreateIntent(context.Background(), 11000, "INR", "r1")
	require.NoError(t, err)
	assert.Equal(t, "order_ABC", in.ID)
	assert.Equal(t, int64(11000), in.AmountDue)
	assert.Equal(t, "created", in.Status)
}

func TestGatewayCreateIntentErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"code":"BAD_REQUEST_ERROR","description":"amount too small"}}`))
	}))
	defer srv.Close()

	g := NewGatewayProvider("key", "secret", srv.URL, srv.Client())
	_, err := g.CreateIntent(context.Background(), 1, "INR", "r")
	var ae *apperr.Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, apperr.KindValidation, ae.Kind)
	assert.Contains(t, ae.Message, "amount too small")

	down := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer down.Close()
	_, err = NewGatewayProvider("key", "secret", down.URL, down.Client()).CreateIntent(context.Background(), 100, "INR", "r")
	require.Error(t, err)
	var classified *apperr.Error
	assert.False(t, errors.As(err, &classified))
}

func TestGatewayVerify(t *testing.T) {
	g := NewGatewayProvider("key", "secret", "http://unused", nil)
	assert.NoError(t, g.Verify("o", "p", Sign("secret", "o", "p")))
	err := g.Verify("o", "p", "bad")
	var ae *apperr.Error
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, apperr.KindVerification, ae.Kind)
}
