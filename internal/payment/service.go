// Package payment settles orders: it opens payment intents with a provider,
// verifies confirmations, records cash payments and issues invoice numbers.
package payment

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/sumanshinde/Rpos/internal/apperr"
	"github.com/sumanshinde/Rpos/internal/logging"
	"github.com/sumanshinde/Rpos/internal/orders"
	"github.com/sumanshinde/Rpos/internal/pricing"
)

// OrderSettler is the part of the order service settlement needs.
type OrderSettler interface {
	CreateSettledOrder(ctx context.Context, in orders.CreateInput, p orders.Payment, check func(*orders.Order) error) (*orders.Order, error)
	SettleOrder(ctx context.Context, id string, p orders.Payment, check func(*orders.Order) error) (*orders.Order, error)
	GetOrder(ctx context.Context, id string) (*orders.Order, error)
}

// InvoiceIssuer hands out invoice numbers.
type InvoiceIssuer interface {
	Next(ctx context.Context) (string, error)
}

// OrderData says what a payment pays for: an existing unpaid order when
// OrderID is set, otherwise a new order built from Create.
type OrderData struct {
	OrderID string
	Create  orders.CreateInput
}

type VerifyInput struct {
	IntentID  string
	PaymentID string
	Signature string
	Order     *OrderData
}

type Service struct {
	orders    OrderSettler
	invoices  InvoiceIssuer
	intents   *IntentStore
	provider  Provider
	verifiers map[string]Provider
	currency  string
}

// NewService wires settlement. provider opens new intents. Confirmations are
// checked by the provider named on the stored intent; secret is the gateway
// key secret used for gateway intents when provider is not the gateway
// itself, and may be empty in mock mode.
func NewService(o OrderSettler, invoices InvoiceIssuer, intents *IntentStore, provider Provider, secret, currency string) *Service {
	if currency == "" {
		currency = "INR"
	}
	verifiers := map[string]Provider{
		ProviderMock:    NewMockProvider(),
		ProviderGateway: NewGatewayProvider("", secret, "", nil),
	}
	verifiers[provider.Name()] = provider
	return &Service{orders: o, invoices: invoices, intents: intents, provider: provider, verifiers: verifiers, currency: currency}
}

// Mode is the active provider tag.
func (s *Service) Mode() string { return s.provider.Name() }

// CreateIntent opens a payment intent for amount in major units.
func (s *Service) CreateIntent(ctx context.Context, amount decimal.Decimal, currency string) (*Intent, error) {
	if !amount.IsPositive() {
		return nil, apperr.Validation("amount must be greater than zero")
	}
	if currency == "" {
		currency = s.currency
	}
	currency = strings.ToUpper(currency)
	minor := pricing.MinorUnits(amount)
	receipt := fmt.Sprintf("receipt_%d", s.intents.nowFunc().UnixMilli())

	in, err := s.provider.CreateIntent(ctx, minor, currency, receipt)
	if err != nil {
		return nil, err
	}
	in.Provider = s.provider.Name()
	if err := s.intents.Put(ctx, in); err != nil {
		return nil, err
	}
	logging.FromContext(ctx).WithFields(logrus.Fields{
		"intent_id": in.ID, "provider": in.Provider, "amount": in.Amount,
	}).Info("payment intent created")
	return in, nil
}

// Verify checks a payment confirmation and settles the order it pays for.
func (s *Service) Verify(ctx context.Context, in VerifyInput) (*orders.Order, error) {
	if in.IntentID == "" || in.PaymentID == "" {
		return nil, apperr.Validation("intent id and payment id are required")
	}
	if in.Order == nil {
		return nil, apperr.Validation("order data is required")
	}
	intent, err := s.intents.Get(ctx, in.IntentID)
	if err != nil {
		return nil, err
	}
	if intent == nil {
		return nil, apperr.NotFound("no payment intent found with id %s", in.IntentID)
	}

	log := logging.FromContext(ctx).WithField("intent_id", intent.ID)
	verifier, ok := s.verifiers[intent.Provider]
	if !ok {
		return nil, fmt.Errorf("intent %s has unknown provider %q", intent.ID, intent.Provider)
	}
	if err := verifier.Verify(intent.ID, in.PaymentID, in.Signature); err != nil {
		if apperr.Is(err, apperr.KindVerification) {
			if err := s.intents.IncrementAttempts(ctx, intent.ID); err != nil {
				log.WithError(err).Warn("count verification attempt")
			}
			log.WithField("provider", intent.Provider).Warn("payment signature rejected")
		}
		return nil, err
	}

	method := in.Order.Create.PaymentMethod
	switch method {
	case orders.MethodCard, orders.MethodQR:
	case "":
		method = orders.MethodCard
	default:
		return nil, apperr.Validation("payment method must be card or qr for online payments")
	}

	check := func(o *orders.Order) error {
		if pricing.MinorUnits(o.Total) != intent.Amount {
			return apperr.Verification("payment amount %d does not match order total %s", intent.Amount, o.Total.StringFixed(2))
		}
		return nil
	}
	o, err := s.settle(ctx, in.Order, orders.Payment{Method: method, ID: in.PaymentID}, check)
	if err != nil {
		return nil, err
	}
	if err := s.intents.Delete(ctx, intent.ID); err != nil {
		log.WithError(err).Warn("delete settled intent")
	}
	return o, nil
}

// ProcessCash records a cash payment.
func (s *Service) ProcessCash(ctx context.Context, data *OrderData) (*orders.Order, error) {
	if data == nil {
		return nil, apperr.Validation("order data is required")
	}
	return s.settle(ctx, data, orders.Payment{Method: orders.MethodCash}, nil)
}

// settle leaves the invoice number to the order service, which draws it only
// once the order has been priced and checked.
func (s *Service) settle(ctx context.Context, data *OrderData, p orders.Payment, check func(*orders.Order) error) (*orders.Order, error) {
	p.Invoice = s.invoices.Next
	if data.OrderID != "" {
		return s.orders.SettleOrder(ctx, data.OrderID, p, check)
	}
	in := data.Create
	in.PaymentMethod = p.Method
	return s.orders.CreateSettledOrder(ctx, in, p, check)
}

// GetInvoice returns the order a receipt is printed from.
func (s *Service) GetInvoice(ctx context.Context, orderID string) (*orders.Order, error) {
	return s.orders.GetOrder(ctx, orderID)
}
