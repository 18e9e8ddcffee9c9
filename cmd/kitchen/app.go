package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"

	"github.com/sumanshinde/Rpos/internal/kitchen"
	"github.com/sumanshinde/Rpos/internal/orders"
)

func newApp(log logrus.FieldLogger) *cli.App {
	return &cli.App{
		Name:  "pos-kitchen",
		Usage: "watch the kitchen board and advance orders",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "api-url", Value: "http://localhost:8080", EnvVars: []string{"POS_API_URL"}, Usage: "POS API base URL"},
			&cli.StringFlag{Name: "token", EnvVars: []string{"POS_TOKEN"}, Required: true, Usage: "bearer token of a kitchen, waiter or admin user"},
			&cli.DurationFlag{Name: "timeout", Value: 10 * time.Second, Usage: "HTTP request timeout"},
		},
		Commands: []*cli.Command{
			{
				Name:  "board",
				Usage: "print the board once",
				Action: func(c *cli.Context) error {
					b, err := client(c).Board(c.Context)
					if err != nil {
						return err
					}
					printBoard(c.App.Writer, b)
					return nil
				},
			},
			{
				Name:  "watch",
				Usage: "poll the board and print changes",
				Flags: []cli.Flag{
					&cli.DurationFlag{Name: "interval", Value: kitchen.DefaultInterval, Usage: "poll interval"},
				},
				Action: func(c *cli.Context) error {
					p := kitchen.NewPoller(client(c), c.Duration("interval"), log)
					err := p.Run(c.Context, func(b *kitchen.Board, changes []kitchen.Change) {
						for _, ch := range changes {
							fmt.Fprintf(c.App.Writer, "%s  %s: %s -> %s\n", b.GeneratedAt.Format("15:04:05"), ch.OrderNumber, orDash(ch.From), orDash(ch.To))
						}
					})
					if errors.Is(err, context.Canceled) {
						return nil
					}
					return err
				},
			},
			action("start", "start preparing an order", (*kitchen.Client).Start),
			action("complete", "mark an order ready", (*kitchen.Client).Complete),
			action("serve", "mark an order served", (*kitchen.Client).Serve),
		},
	}
}

func client(c *cli.Context) *kitchen.Client {
	return kitchen.NewClient(c.String("api-url"), c.String("token"), &http.Client{Timeout: c.Duration("timeout")})
}

func action(name, usage string, fn func(*kitchen.Client, context.Context, string) (*orders.Order, error)) *cli.Command {
	return &cli.Command{
		Name:      name,
		Usage:     usage,
		ArgsUsage: "<order-id>",
		Action: func(c *cli.Context) error {
			if c.NArg() != 1 {
				return fmt.Errorf("%s: expected exactly one order id", name)
			}
			o, err := fn(client(c), c.Context, c.Args().First())
			if err != nil {
				return err
			}
			fmt.Fprintf(c.App.Writer, "%s is now %s\n", o.OrderNumber, o.Status)
			return nil
		},
	}
}

func orDash(s orders.Status) string {
	if s == "" {
		return "-"
	}
	return string(s)
}

func printBoard(w io.Writer, b *kitchen.Board) {
	cols := []struct {
		title string
		list  []orders.Order
	}{
		{"PENDING", b.Pending},
		{"PREPARING", b.Preparing},
		{"READY", b.Ready},
	}
	for _, col := range cols {
		fmt.Fprintf(w, "%s (%d)\n", col.title, len(col.list))
		for _, o := range col.list {
			where := o.TableNumber
			if where == "" {
				where = string(o.OrderType)
			}
			fmt.Fprintf(w, "  %s  %-8s  %s\n", o.OrderNumber, where, o.ID)
			for _, it := range o.Items {
				fmt.Fprintf(w, "      %dx %s", it.Quantity, it.Name)
				if it.Notes != "" {
					fmt.Fprintf(w, " (%s)", it.Notes)
				}
				fmt.Fprintln(w)
			}
		}
	}
}
