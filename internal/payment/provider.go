package payment

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/sumanshinde/Rpos/internal/apperr"
)

// Provider tags stored on intents.
const (
	ProviderMock    = "mock"
	ProviderGateway = "gateway"
)

// Intent is a payment order opened with a provider. Field names follow the
// gateway's wire format so the intent can be handed to its checkout widget
// unchanged.
type Intent struct {
	ID         string `json:"id" dynamodbav:"intent_id"` // PK
	Entity     string `json:"entity" dynamodbav:"entity"`
	Provider   string `json:"provider" dynamodbav:"provider"`
	Amount     int64  `json:"amount" dynamodbav:"amount"`
	AmountPaid int64  `json:"amount_paid" dynamodbav:"amount_paid"`
	AmountDue  int64  `json:"amount_due" dynamodbav:"amount_due"`
	Currency   string `json:"currency" dynamodbav:"currency"`
	Receipt    string `json:"receipt" dynamodbav:"receipt"`
	Status     string `json:"status" dynamodbav:"status"`
	Attempts   int    `json:"attempts" dynamodbav:"attempts"`
	CreatedAt  int64  `json:"created_at" dynamodbav:"created_at"`
	ExpiresAt  int64  `json:"-" dynamodbav:"expires_at"`
}

// Provider opens payment intents and checks payment confirmations.
type Provider interface {
	Name() string
	CreateIntent(ctx context.Context, amount int64, currency, receipt string) (*Intent, error)
	Verify(intentID, paymentID, signature string) error
}

// MockProvider accepts every payment and never leaves the process.
type MockProvider struct {
	nowFunc func() time.Time
}

func NewMockProvider() *MockProvider { return &MockProvider{nowFunc: time.Now} }

func (m *MockProvider) Name() string { return ProviderMock }

func (m *MockProvider) CreateIntent(_ context.Context, amount int64, currency, receipt string) (*Intent, error) {
	now := m.nowFunc()
	return &Intent{
		ID:        "order_mock_" + strconv.FormatInt(now.UnixNano(), 10),
		Entity:    "order",
		Amount:    amount,
		AmountDue: amount,
		Currency:  currency,
		Receipt:   receipt,
		Status:    "created",
		CreatedAt: now.Unix(),
	}, nil
}

func (m *MockProvider) Verify(string, string, string) error { return nil }

// GatewayProvider talks to a Razorpay-compatible orders API.
type GatewayProvider struct {
	keyID   string
	secret  string
	baseURL string
	client  *http.Client
}

func NewGatewayProvider(keyID, secret, baseURL string, client *http.Client) *GatewayProvider {
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	return &GatewayProvider{keyID: keyID, secret: secret, baseURL: strings.TrimRight(baseURL, "/"), client: client}
}

func (g *GatewayProvider) Name() string { return ProviderGateway }

type createOrderRequest struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
}

type gatewayError struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

func (g *GatewayProvider) CreateIntent(ctx context.Context, amount int64, currency, receipt string) (*Intent, error) {
	body, err := json.Marshal(createOrderRequest{Amount: amount, Currency: currency, Receipt: receipt})
	if err != nil {
		return nil, fmt.Errorf("marshal gateway order: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/orders", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build gateway request: %w", err)
	}
	req.SetBasicAuth(g.keyID, g.secret)
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gateway create order: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read gateway response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		var ge gatewayError
		if json.Unmarshal(raw, &ge) == nil && ge.Error.Description != "" {
			if resp.StatusCode == http.StatusBadRequest {
				return nil, apperr.Validation("payment gateway: %s", ge.Error.Description)
			}
			return nil, fmt.Errorf("gateway create order: %s: %s", resp.Status, ge.Error.Description)
		}
		return nil, fmt.Errorf("gateway create order: unexpected status %s", resp.Status)
	}

	var in Intent
	if err := json.Unmarshal(raw, &in); err != nil {
		return nil, fmt.Errorf("decode gateway order: %w", err)
	}
	if in.ID == "" {
		return nil, fmt.Errorf("gateway create order: response without id")
	}
	return &in, nil
}

// Verify checks the HMAC-SHA256 signature the gateway attaches to a
// successful payment.
func (g *GatewayProvider) Verify(intentID, paymentID, signature string) error {
	if !VerifySignature(g.secret, intentID, paymentID, signature) {
		return apperr.Verification("Invalid payment signature")
	}
	return nil
}

// Sign computes hex(HMAC-SHA256(secret, intentID + "|" + paymentID)).
func Sign(secret, intentID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(intentID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifySignature compares in constant time.
func VerifySignature(secret, intentID, paymentID, signature string) bool {
	expected := Sign(secret, intentID, paymentID)
	return hmac.Equal([]byte(expected), []byte(strings.ToLower(signature)))
}
