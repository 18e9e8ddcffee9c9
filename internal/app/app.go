// Package app assembles the services from configuration and AWS clients.
package app

import (
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/sumanshinde/Rpos/internal/auth"
	"github.com/sumanshinde/Rpos/internal/catalog"
	"github.com/sumanshinde/Rpos/internal/aws"
	"github.com/sumanshinde/Rpos/internal/config"
	"github.com/sumanshinde/Rpos/internal/counters"
	"github.com/sumanshinde/Rpos/internal/customers"
	"github.com/sumanshinde/Rpos/internal/idempotency"
	"github.com/sumanshinde/Rpos/internal/invoice"
	"github.com/sumanshinde/Rpos/internal/kitchen"
	"github.com/sumanshinde/Rpos/internal/orders"
	"github.com/sumanshinde/Rpos/internal/payment"
	"github.com/sumanshinde/Rpos/internal/tables"
	"github.com/sumanshinde/Rpos/internal/uniqueness"
)

type App struct {
	Config      *config.Config
	Log         *logrus.Logger
	Auth        *auth.Service
	Customers   *customers.Store
	Tables      *tables.Store
	Catalog     *catalog.Store
	Orders      *orders.Service
	Payments    *payment.Service
	Kitchen     *kitchen.Workflow
	Idempotency *idempotency.Store
}

// New wires every service against clients. httpClient is used by the payment
// gateway and may be nil.
func New(cfg *config.Config, clients *aws.AWSClients, log *logrus.Logger, httpClient *http.Client) (*App, error) {
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	db := clients.DynamoDB

	uniq := uniqueness.NewStore(db, cfg.UniquesTable)
	seq := counters.NewStore(db, cfg.CountersTable)
	tbls := tables.NewStore(db, cfg.TablesTable, uniq)

	ord := orders.NewService(orders.Deps{
		Store:    orders.NewStore(db, cfg.OrdersTable),
		Tables:   tbls,
		Sequence: seq,
		Guards:   uniq,
		Events:   aws.NewPublisher(clients.SQS, cfg.QueueURL),
		Metrics:  aws.NewMetrics(clients.CloudWatch, cfg.MetricsNamespace),
	})

	var provider payment.Provider = payment.NewMockProvider()
	if cfg.EffectiveProvider() == config.ProviderGateway {
		provider = payment.NewGatewayProvider(cfg.RazorpayKeyID, cfg.RazorpayKeySecret, cfg.RazorpayBaseURL, httpClient)
	} else if cfg.PaymentProvider == config.ProviderGateway {
		log.Warn("payment gateway keys missing, settling in mock mode")
	}
	pay := payment.NewService(
		ord,
		invoice.NewGenerator(seq, loc),
		payment.NewIntentStore(db, cfg.IntentsTable, cfg.IntentTTL),
		provider,
		cfg.RazorpayKeySecret,
		cfg.Currency,
	)

	return &App{
		Config: cfg,
		Log:    log,
		Auth: auth.NewService(
			auth.NewUserStore(db, cfg.UsersTable, uniq),
			auth.NewTokens(cfg.JWTSecret, cfg.JWTExpiresIn),
			uniq,
		),
		Customers:   customers.NewStore(db, cfg.CustomersTable, uniq),
		Tables:      tbls,
		Catalog:     catalog.NewStore(db, cfg.CategoriesTable, cfg.ProductsTable, uniq),
		Orders:      ord,
		Payments:    pay,
		Kitchen:     kitchen.NewWorkflow(ord),
		Idempotency: idempotency.NewStore(db, cfg.IdempotencyTable, cfg.IdempotencyTTL),
	}, nil
}
