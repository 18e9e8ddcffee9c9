package main

import (
	"context"
	"os"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"

	"github.com/sumanshinde/Rpos/internal/aws"
	"github.com/sumanshinde/Rpos/internal/config"
	"github.com/sumanshinde/Rpos/internal/customers"
	"github.com/sumanshinde/Rpos/internal/idempotency"
	"github.com/sumanshinde/Rpos/internal/logging"
	"github.com/sumanshinde/Rpos/internal/uniqueness"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.New("pos-worker", "info").WithError(err).Fatal("load config")
	}
	log := logging.New("pos-worker", cfg.LogLevel)

	clients, err := aws.NewAWSClients(context.Background(), aws.Settings{
		Region:           cfg.AWSRegion,
		EndpointOverride: cfg.AWSEndpoint,
	})
	if err != nil {
		log.WithError(err).Fatal("failed to init aws clients")
	}

	db := clients.DynamoDB
	p := NewProcessor(
		customers.NewStore(db, cfg.CustomersTable, uniqueness.NewStore(db, cfg.UniquesTable)),
		idempotency.NewStore(db, cfg.IdempotencyTable, cfg.IdempotencyTTL),
		log,
	)

	// With RUN_LOCAL=true a single message body is taken from LOCAL_SQS_BODY.
	if cfg.RunLocal {
		body := os.Getenv("LOCAL_SQS_BODY")
		if body == "" {
			log.Fatal("LOCAL_SQS_BODY is empty")
		}
		resp, err := p.Handle(context.Background(), events.SQSEvent{
			Records: []events.SQSMessage{{MessageId: "local-1", Body: body}},
		})
		if err != nil || len(resp.BatchItemFailures) > 0 {
			log.WithError(err).Fatal("local handler error")
		}
		return
	}

	lambda.Start(p.Handle)
}
