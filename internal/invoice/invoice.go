// Package invoice generates invoice numbers of the form INV-YYYYMMDD-NNNN.
package invoice

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"time"
)

const (
	prefix     = "INV"
	dateLayout = "20060102"
	// MaxSequence is the largest per-day sequence that fits the format.
	MaxSequence = 9999
)

var pattern = regexp.MustCompile(`^INV-(\d{8})-(\d{4})$`)

// Sequencer hands out per-key sequence numbers starting at 1.
type Sequencer interface {
	Next(ctx context.Context, key string) (int64, error)
}

// Generator derives the date part from the current time in loc and the
// sequence from a per-day counter, so two calls on one day yield N and N+1.
type Generator struct {
	seq     Sequencer
	loc     *time.Location
	nowFunc func() time.Time
}

func NewGenerator(seq Sequencer, loc *time.Location) *Generator {
	if loc == nil {
		loc = time.Local
	}
	return &Generator{seq: seq, loc: loc, nowFunc: time.Now}
}

// Next returns a fresh invoice number.
func (g *Generator) Next(ctx context.Context) (string, error) {
	day := g.nowFunc().In(g.loc)
	key := "invoice#" + day.Format(dateLayout)
	n, err := g.seq.Next(ctx, key)
	if err != nil {
		return "", fmt.Errorf("next invoice sequence: %w", err)
	}
	return Format(day, n)
}

// Format renders day and seq. Sequences outside 1..MaxSequence are rejected.
func Format(day time.Time, seq int64) (string, error) {
	if seq < 1 || seq > MaxSequence {
		return "", fmt.Errorf("invoice sequence %d out of range for %s", seq, day.Format(dateLayout))
	}
	return fmt.Sprintf("%s-%s-%04d", prefix, day.Format(dateLayout), seq), nil
}

// Parse splits an invoice number into its calendar date (midnight UTC) and
// sequence.
func Parse(number string) (time.Time, int, error) {
	m := pattern.FindStringSubmatch(number)
	if m == nil {
		return time.Time{}, 0, fmt.Errorf("malformed invoice number %q", number)
	}
	day, err := time.Parse(dateLayout, m[1])
	if err != nil {
		return time.Time{}, 0, fmt.Errorf("invoice date %q: %w", m[1], err)
	}
	seq, _ := strconv.Atoi(m[2])
	if seq < 1 {
		return time.Time{}, 0, fmt.Errorf("invoice sequence in %q must be positive", number)
	}
	return day, seq, nil
}
