// Command pos-kitchen is the kitchen display for terminals: it watches the
// board and moves orders through preparation.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sumanshinde/Rpos/internal/logging"
)

func main() {
	log := logging.New("pos-kitchen", os.Getenv("LOG_LEVEL"))
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newApp(log).RunContext(ctx, os.Args); err != nil {
		log.WithError(err).Fatal("pos-kitchen")
	}
}

