package kitchen

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

const DefaultInterval = 15 * time.Second

// BoardSource is anything that can produce the current board: the workflow
// in process or the HTTP client against a running API.
type BoardSource interface {
	Board(ctx context.Context) (*Board, error)
}

// Poller pulls the board on a fixed interval and reports changes.
type Poller struct {
	source   BoardSource
	interval time.Duration
	log      logrus.FieldLogger
	last     *Board
}

func NewPoller(source BoardSource, interval time.Duration, log logrus.FieldLogger) *Poller {
	if interval <= 0 {
		interval = DefaultInterval
	}
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Poller{source: source, interval: interval, log: log}
}

// Poll fetches once and returns the board together with its changes since
// the previous successful poll.
func (p *Poller) Poll(ctx context.Context) (*Board, []Change, error) {
	b, err := p.source.Board(ctx)
	if err != nil {
		return nil, nil, err
	}
	changes := b.Diff(p.last)
	p.last = b
	return b, changes, nil
}

// Run polls immediately and then on every tick until ctx is done. Fetch
// errors are logged and the loop keeps going.
func (p *Poller) Run(ctx context.Context, onChange func(*Board, []Change)) error {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		b, changes, err := p.Poll(ctx)
		switch {
		case err != nil:
			if ctx.Err() != nil {
				return ctx.Err()
			}
			p.log.WithError(err).Warn("kitchen board poll failed")
		case len(changes) > 0 && onChange != nil:
			onChange(b, changes)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
