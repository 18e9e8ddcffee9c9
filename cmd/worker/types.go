package main

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/sumanshinde/Rpos/internal/customers"
)

// scope tags idempotency records written by the worker.
const scope = "worker"

// CustomerStats is the part of the customer store the worker updates.
type CustomerStats interface {
	RecordOrder(ctx context.Context, phone string, total decimal.Decimal) (*customers.Customer, error)
}

// Runner runs fn at most once per key.
type Runner interface {
	Once(ctx context.Context, key, scope string, fn func(ctx context.Context) error) (bool, error)
}
