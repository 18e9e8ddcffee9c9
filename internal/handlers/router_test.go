package handlers

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sumanshinde/Rpos/internal/app"
	"github.com/sumanshinde/Rpos/internal/aws"
	"github.com/sumanshinde/Rpos/internal/aws/awstest"
	"github.com/sumanshinde/Rpos/internal/config"
)

type env struct {
	t      *testing.T
	db     *awstest.Dynamo
	router *gin.Engine
}

func testConfig() *config.Config {
	return &config.Config{
		OrdersTable:        "orders",
		TablesTable:        "tables",
		CategoriesTable:    "categories",
		ProductsTable:      "products",
		CustomersTable:     "customers",
		UsersTable:         "users",
		CountersTable:      "counters",
		UniquesTable:       "uniques",
		IntentsTable:       "intents",
		IdempotencyTable:   "idempotency",
		IdempotencyTTL:     time.Hour,
		JWTSecret:          "test-secret",
		JWTExpiresIn:       time.Hour,
		PaymentProvider:    config.ProviderMock,
		IntentTTL:          time.Hour,
		Currency:           "INR",
		Timezone:           "UTC",
		CORSOrigins:        []string{"http://localhost:5173"},
		LoginRatePerMinute: 100,
	}
}

func newEnv(t *testing.T, mutate ...func(*config.Config)) *env {
	t.Helper()
	gin.SetMode(gin.TestMode)
	db := awstest.NewDynamo()
	for table, pk := range map[string]string{
		"orders": "order_id", "tables": "table_id", "customers": "customer_id",
		"users": "user_id", "counters": "counter_key", "uniques": "unique_key",
		"intents": "intent_id", "idempotency": "idempotency_key",
		"categories": "category_id", "products": "product_id",
	} {
		db.CreateTable(table, pk)
	}
	cfg := testConfig()
	for _, m := range mutate {
		m(cfg)
	}
	log := logrus.New()
	log.SetOutput(io.Discard)

	a, err := app.New(cfg, &aws.AWSClients{DynamoDB: db, SQS: &awstest.SQS{}, CloudWatch: &awstest.CloudWatch{}}, log, nil)
	require.NoError(t, err)
	return &env{t: t, db: db, router: NewRouter(a)}
}

type reply struct {
	Code    int                        `json:"-"`
	Header  http.Header                `json:"-"`
	Status  string                     `json:"status"`
	Error   string                     `json:"error"`
	Message string                     `json:"message"`
	Results int                        `json:"results"`
	Fields  map[string]string          `json:"fields"`
	Data    map[string]json.RawMessage `json:"data"`
}

func (e *env) do(method, path, token string, body interface{}, headers ...string) reply {
	e.t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(e.t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)

	out := reply{Code: w.Code, Header: w.Header()}
	if w.Body.Len() > 0 {
		require.NoError(e.t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	}
	return out
}

func (r reply) into(t *testing.T, name string, v interface{}) {
	t.Helper()
	raw, ok := r.Data[name]
	require.True(t, ok, "missing data.%s", name)
	require.NoError(t, json.Unmarshal(raw, v))
}

func (e *env) register(email, role string) string {
	e.t.Helper()
	res := e.do(http.MethodPost, "/auth/register", "", gin.H{"name": "Staff", "email": email, "password": "password123", "role": role})
	require.Equal(e.t, http.StatusCreated, res.Code, res.Message)
	var token string
	res.into(e.t, "token", &token)
	return token
}

type orderView struct {
	ID            string `json:"id"`
	OrderNumber   string `json:"orderNumber"`
	Status        string `json:"status"`
	Total         string `json:"total"`
	PaymentStatus string `json:"paymentStatus"`
	PaymentMethod string `json:"paymentMethod"`
	InvoiceNumber string `json:"invoiceNumber"`
}

func TestHealth(t *testing.T) {
	e := newEnv(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","paymentMode":"mock"}`, w.Body.String())
	assert.NotEmpty(t, w.Header().Get("X-Request-Id"))
}

func TestAuthFlow(t *testing.T) {
	e := newEnv(t)
	token := e.register("a@pos.test", "")

	me := e.do(http.MethodGet, "/auth/me", token, nil)
	require.Equal(t, http.StatusOK, me.Code)
	var u struct {
		Email string `json:"email"`
		Role  string `json:"role"`
	}
	me.into(t, "user", &u)
	assert.Equal(t, "a@pos.test", u.Email)
	assert.Equal(t, "cashier", u.Role)

	dup := e.do(http.MethodPost, "/auth/register", "", gin.H{"name": "X", "email": "a@pos.test", "password": "password123"})
	assert.Equal(t, http.StatusConflict, dup.Code)
	assert.Equal(t, "fail", dup.Status)

	bad := e.do(http.MethodPost, "/auth/login", "", gin.H{"email": "a@pos.test", "password": "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, bad.Code)

	pw := e.do(http.MethodPatch, "/auth/updateMe", token, gin.H{"password": "newpassword"})
	assert.Equal(t, http.StatusBadRequest, pw.Code)

	upd := e.do(http.MethodPatch, "/auth/updateMe", token, gin.H{"name": "Renamed"})
	assert.Equal(t, http.StatusOK, upd.Code)

	out := e.do(http.MethodPost, "/auth/logout", token, nil)
	require.Equal(t, http.StatusOK, out.Code)
	after := e.do(http.MethodGet, "/auth/me", token, nil)
	assert.Equal(t, http.StatusUnauthorized, after.Code)
}

func TestUnauthenticatedAndForbidden(t *testing.T) {
	e := newEnv(t)
	res := e.do(http.MethodGet, "/orders", "", nil)
	assert.Equal(t, http.StatusUnauthorized, res.Code)
	assert.Equal(t, "unauthorized", res.Error)

	cashier := e.register("c@pos.test", "cashier")
	res = e.do(http.MethodPost, "/tables", cashier, gin.H{"tableNumber": "1", "capacity": 4, "section": "Indoor"})
	assert.Equal(t, http.StatusForbidden, res.Code)

	res = e.do(http.MethodGet, "/kitchen/board", cashier, nil)
	assert.Equal(t, http.StatusForbidden, res.Code)
}

func TestValidationEnvelope(t *testing.T) {
	e := newEnv(t)
	token := e.register("v@pos.test", "")
	res := e.do(http.MethodPost, "/orders", token, gin.H{"items": []gin.H{}})
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Equal(t, "fail", res.Status)
	assert.Equal(t, "validation_failed", res.Error)
	assert.Contains(t, res.Fields, "waiter")
	assert.Contains(t, res.Fields, "items")
}

type productView struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Price       string `json:"price"`
	CategoryID  string `json:"categoryId"`
	IsAvailable bool   `json:"isAvailable"`
}

func TestCatalogRoutes(t *testing.T) {
	e := newEnv(t)
	admin := e.register("menu@pos.test", "admin")
	waiter := e.register("w@pos.test", "waiter")

	res := e.do(http.MethodPost, "/categories", waiter, gin.H{"name": "Mains"})
	assert.Equal(t, http.StatusForbidden, res.Code)

	res = e.do(http.MethodPost, "/categories", admin, gin.H{"name": "Mains"})
	require.Equal(t, http.StatusCreated, res.Code, res.Message)
	var cat struct {
		ID   string `json:"id"`
		Slug string `json:"slug"`
	}
	res.into(t, "category", &cat)
	assert.Equal(t, "mains", cat.Slug)

	res = e.do(http.MethodPost, "/categories", admin, gin.H{"name": "MAINS"})
	assert.Equal(t, http.StatusConflict, res.Code)

	res = e.do(http.MethodGet, "/categories", waiter, nil)
	assert.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, 1, res.Results)

	res = e.do(http.MethodPost, "/products", waiter, gin.H{"name": "Dal", "price": 120, "category": cat.ID})
	assert.Equal(t, http.StatusForbidden, res.Code)

	res = e.do(http.MethodPost, "/products", admin, gin.H{"name": "Dal", "price": 0})
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Contains(t, res.Fields, "price")
	assert.Contains(t, res.Fields, "category")

	res = e.do(http.MethodPost, "/products", admin, gin.H{"name": "Dal", "price": 120, "category": cat.ID})
	require.Equal(t, http.StatusCreated, res.Code, res.Message)
	var dal productView
	res.into(t, "product", &dal)
	assert.True(t, dal.IsAvailable)
	assert.Equal(t, "120", dal.Price)

	res = e.do(http.MethodPost, "/products", admin, gin.H{"name": "Biryani", "price": 220, "category": cat.ID, "is_available": false})
	require.Equal(t, http.StatusCreated, res.Code, res.Message)

	res = e.do(http.MethodGet, "/products?is_available=true", waiter, nil)
	require.Equal(t, http.StatusOK, res.Code)
	var avail []productView
	res.into(t, "products", &avail)
	require.Len(t, avail, 1)
	assert.Equal(t, "Dal", avail[0].Name)

	res = e.do(http.MethodGet, "/products?is_available=maybe", waiter, nil)
	assert.Equal(t, http.StatusBadRequest, res.Code)
	assert.Contains(t, res.Fields, "is_available")

	res = e.do(http.MethodPut, "/products/"+dal.ID, admin, gin.H{"price": "135.50", "is_available": false})
	require.Equal(t, http.StatusOK, res.Code, res.Message)
	res.into(t, "product", &dal)
	assert.Equal(t, "135.5", dal.Price)
	assert.False(t, dal.IsAvailable)

	res = e.do(http.MethodGet, "/products?is_available=true", waiter, nil)
	assert.Equal(t, 0, res.Results)

	res = e.do(http.MethodDelete, "/products/"+dal.ID, waiter, nil)
	assert.Equal(t, http.StatusForbidden, res.Code)

	res = e.do(http.MethodDelete, "/products/"+dal.ID, admin, nil)
	assert.Equal(t, http.StatusNoContent, res.Code)

	res = e.do(http.MethodGet, "/products/"+dal.ID, waiter, nil)
	assert.Equal(t, http.StatusNotFound, res.Code)
}

func TestDineInOrderLifecycle(t *testing.T) {
	e := newEnv(t)
	admin := e.register("admin@pos.test", "admin")
	kitchenToken := e.register("chef@pos.test", "kitchen")

	res := e.do(http.MethodPost, "/tables", admin, gin.H{"tableNumber": "7", "capacity": 4, "section": "Indoor"})
	require.Equal(t, http.StatusCreated, res.Code, res.Message)
	var tbl struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	}
	res.into(t, "table", &tbl)

	order := gin.H{
		"table":           tbl.ID,
		"waiter":          "Asha",
		"items":           []gin.H{{"name": "Thali", "quantity": 2, "price": 100}},
		"discountPercent": 10,
		"total":           198,
	}
	res = e.do(http.MethodPost, "/orders", admin, order)
	require.Equal(t, http.StatusCreated, res.Code, res.Message)
	var o orderView
	res.into(t, "order", &o)
	assert.Equal(t, "ORD-000001", o.OrderNumber)
	assert.Equal(t, "/orders/"+o.ID, res.Header.Get("Location"))

	res = e.do(http.MethodGet, "/tables/"+tbl.ID, admin, nil)
	res.into(t, "table", &tbl)
	assert.Equal(t, "occupied", tbl.Status)

	res = e.do(http.MethodPost, "/orders", admin, order)
	assert.Equal(t, http.StatusConflict, res.Code)

	res = e.do(http.MethodGet, "/kitchen/board", kitchenToken, nil)
	require.Equal(t, http.StatusOK, res.Code)
	var board struct {
		Pending []orderView `json:"pending"`
	}
	res.into(t, "board", &board)
	require.Len(t, board.Pending, 1)

	for _, verb := range []string{"start", "complete"} {
		res = e.do(http.MethodPost, "/kitchen/orders/"+o.ID+"/"+verb, kitchenToken, nil)
		require.Equal(t, http.StatusOK, res.Code, res.Message)
	}
	res = e.do(http.MethodGet, "/tables/"+tbl.ID, admin, nil)
	res.into(t, "table", &tbl)
	assert.Equal(t, "available", tbl.Status)

	res = e.do(http.MethodPatch, "/orders/"+o.ID+"/status", admin, gin.H{"status": "pending"})
	assert.Equal(t, http.StatusConflict, res.Code)

	res = e.do(http.MethodGet, "/orders?status=ready", admin, nil)
	require.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, 1, res.Results)
}

func TestQuote(t *testing.T) {
	e := newEnv(t)
	token := e.register("q@pos.test", "")
	res := e.do(http.MethodPost, "/orders/quote", token, gin.H{
		"items": []gin.H{
			{"productId": "tea", "name": "Tea", "quantity": 2, "price": "33.33"},
			{"productId": "tea", "name": "Tea", "quantity": 1, "price": "33.33", "notes": "less sugar"},
		},
		"discountPercent": 5,
	})
	require.Equal(t, http.StatusOK, res.Code, res.Message)
	var count int
	res.into(t, "count", &count)
	assert.Equal(t, 3, count)
	var lines []map[string]interface{}
	res.into(t, "items", &lines)
	require.Len(t, lines, 1)
	assert.Equal(t, "less sugar", lines[0]["notes"])
	var totals map[string]string
	res.into(t, "totals", &totals)
	assert.Equal(t, "99.99", totals["subtotal"])
	assert.Equal(t, "5", totals["discountAmount"])
}

func TestCashPaymentIdempotent(t *testing.T) {
	e := newEnv(t)
	token := e.register("cash@pos.test", "")
	body := gin.H{"orderData": gin.H{
		"waiter":    "Ravi",
		"orderType": "takeaway",
		"items":     []gin.H{{"name": "Dosa", "quantity": 1, "price": 100}},
		"customer":  gin.H{"name": "Meera", "phone": "9876543210"},
	}}

	first := e.do(http.MethodPost, "/payment/cash", token, body, "Idempotency-Key", "till-1-42")
	require.Equal(t, http.StatusCreated, first.Code, first.Message)
	var o orderView
	first.into(t, "order", &o)
	assert.Equal(t, "cash", o.PaymentMethod)
	assert.Equal(t, "completed", o.PaymentStatus)
	var invoiceNumber string
	first.into(t, "invoiceNumber", &invoiceNumber)
	assert.Equal(t, o.InvoiceNumber, invoiceNumber)

	again := e.do(http.MethodPost, "/payment/cash", token, body, "Idempotency-Key", "till-1-42")
	assert.Equal(t, http.StatusCreated, again.Code)
	assert.Equal(t, "true", again.Header.Get("Idempotent-Replayed"))
	var replayed orderView
	again.into(t, "order", &replayed)
	assert.Equal(t, o.ID, replayed.ID)
	assert.Equal(t, 1, e.db.Len("orders"))

	inv := e.do(http.MethodGet, "/payment/invoice/"+o.ID, token, nil)
	assert.Equal(t, http.StatusOK, inv.Code)

	missing := e.do(http.MethodPost, "/payment/cash", token, gin.H{})
	assert.Equal(t, http.StatusBadRequest, missing.Code)
}

func TestMockCardPayment(t *testing.T) {
	e := newEnv(t)
	token := e.register("card@pos.test", "")

	res := e.do(http.MethodPost, "/payment/create-order", token, gin.H{"amount": 110})
	require.Equal(t, http.StatusOK, res.Code, res.Message)
	var intent struct {
		ID     string `json:"id"`
		Amount int64  `json:"amount"`
	}
	res.into(t, "order", &intent)
	assert.Equal(t, int64(11000), intent.Amount)

	res = e.do(http.MethodPost, "/payment/verify", token, gin.H{
		"razorpay_order_id":   intent.ID,
		"razorpay_payment_id": "pay_mock_1",
		"orderData": gin.H{
			"waiter":        "Ravi",
			"orderType":     "takeaway",
			"paymentMethod": "qr",
			"items":         []gin.H{{"name": "Dosa", "quantity": 1, "price": 100}},
		},
	})
	require.Equal(t, http.StatusOK, res.Code, res.Message)
	var o orderView
	res.into(t, "order", &o)
	assert.Equal(t, "qr", o.PaymentMethod)
	assert.NotEmpty(t, o.InvoiceNumber)

	res = e.do(http.MethodPost, "/payment/create-order", token, gin.H{"amount": 0})
	assert.Equal(t, http.StatusBadRequest, res.Code)
}

func TestLoginRateLimited(t *testing.T) {
	e := newEnv(t, func(c *config.Config) { c.LoginRatePerMinute = 2 })
	for i := 0; i < 2; i++ {
		res := e.do(http.MethodPost, "/auth/login", "", gin.H{"email": "x@pos.test", "password": "whatever1"})
		assert.Equal(t, http.StatusUnauthorized, res.Code)
	}
	res := e.do(http.MethodPost, "/auth/login", "", gin.H{"email": "x@pos.test", "password": "whatever1"})
	assert.Equal(t, http.StatusTooManyRequests, res.Code)
	assert.Equal(t, "rate_limited", res.Error)
}

func TestNotFoundAndRecovery(t *testing.T) {
	e := newEnv(t)
	res := e.do(http.MethodGet, "/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, res.Code)
	assert.Equal(t, "fail", res.Status)

	r := gin.New()
	r.Use(gin.CustomRecovery(recovery))
	r.GET("/boom", func(*gin.Context) { panic("boom") })
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/boom", nil))
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"error"`)
}
