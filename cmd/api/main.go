package main

import (
	"context"
	"net/http"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"
	"github.com/gin-gonic/gin"
	"github.com/shopspring/decimal"

	"github.com/sumanshinde/Rpos/internal/app"
	"github.com/sumanshinde/Rpos/internal/aws"
	"github.com/sumanshinde/Rpos/internal/config"
	"github.com/sumanshinde/Rpos/internal/handlers"
	"github.com/sumanshinde/Rpos/internal/logging"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logging.New("pos-api", "info").WithError(err).Fatal("load config")
	}
	log := logging.New("pos-api", cfg.LogLevel)

	// amounts go out as JSON numbers
	decimal.MarshalJSONWithoutQuotes = true

	clients, err := aws.NewAWSClients(context.Background(), aws.Settings{
		Region:           cfg.AWSRegion,
		EndpointOverride: cfg.AWSEndpoint,
	})
	if err != nil {
		log.WithError(err).Fatal("failed to init aws clients")
	}

	a, err := app.New(cfg, clients, log, &http.Client{Timeout: 10 * time.Second})
	if err != nil {
		log.WithError(err).Fatal("failed to build app")
	}
	if !cfg.RunLocal {
		gin.SetMode(gin.ReleaseMode)
	}
	r := handlers.NewRouter(a)

	if cfg.RunLocal {
		addr := ":" + cfg.Port
		log.WithField("addr", addr).Info("running local server")
		if err := r.Run(addr); err != nil {
			log.WithError(err).Fatal("failed to run local server")
		}
		return
	}

	adapter := ginadapter.New(r)
	lambda.Start(func(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
		return adapter.ProxyWithContext(ctx, req)
	})
}
