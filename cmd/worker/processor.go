package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-lambda-go/events"
	"github.com/sirupsen/logrus"

	"github.com/sumanshinde/Rpos/internal/apperr"
	"github.com/sumanshinde/Rpos/internal/orders"
)

// Processor consumes order events from SQS and keeps customer loyalty stats
// in step with settled orders.
type Processor struct {
	customers CustomerStats
	once      Runner
	log       logrus.FieldLogger
}

func NewProcessor(c CustomerStats, once Runner, log logrus.FieldLogger) *Processor {
	return &Processor{customers: c, once: once, log: log}
}

// Handle processes a batch and reports the messages that should be retried.
// Other messages in the batch are acknowledged.
func (p *Processor) Handle(ctx context.Context, ev events.SQSEvent) (events.SQSEventResponse, error) {
	var resp events.SQSEventResponse
	for _, rec := range ev.Records {
		if err := p.processMessage(ctx, rec); err != nil {
			p.log.WithError(err).WithField("message_id", rec.MessageId).Error("worker error")
			resp.BatchItemFailures = append(resp.BatchItemFailures, events.SQSBatchItemFailure{ItemIdentifier: rec.MessageId})
		}
	}
	return resp, nil
}

func (p *Processor) processMessage(ctx context.Context, rec events.SQSMessage) error {
	var e orders.Event
	if err := json.Unmarshal([]byte(rec.Body), &e); err != nil {
		// a body that never parses would only loop through retries
		p.log.WithError(err).WithField("message_id", rec.MessageId).Warn("dropping malformed message")
		return nil
	}
	log := p.log.WithFields(logrus.Fields{"event_id": e.ID, "event_type": e.Type, "order_id": e.OrderID})

	if e.Type != orders.EventSettled || e.CustomerPhone == "" {
		log.Debug("nothing to do")
		return nil
	}
	if e.ID == "" {
		return fmt.Errorf("settled event for order %s has no id", e.OrderID)
	}

	ran, err := p.once.Once(ctx, "event#"+e.ID, scope, func(ctx context.Context) error {
		c, err := p.customers.RecordOrder(ctx, e.CustomerPhone, e.Total)
		if apperr.Is(err, apperr.KindNotFound) {
			log.Info("settled order has no registered customer")
			return nil
		}
		if err != nil {
			return err
		}
		log.WithFields(logrus.Fields{
			"customer_id": c.ID, "loyalty_points": c.LoyaltyPoints, "total_orders": c.TotalOrders,
		}).Info("customer stats updated")
		return nil
	})
	if err != nil {
		return err
	}
	if !ran {
		log.Info("duplicate event skipped")
	}
	return nil
}
