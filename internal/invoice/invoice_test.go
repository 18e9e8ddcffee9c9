package invoice

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sumanshinde/Rpos/internal/aws/awstest"
	"github.com/sumanshinde/Rpos/internal/counters"
)

type fixedSeq struct {
	n   int64
	err error
}

func (f *fixedSeq) Next(context.Context, string) (int64, error) { return f.n, f.err }

func newGenerator(t *testing.T, now time.Time, loc *time.Location) *Generator {
	t.Helper()
	db := awstest.NewDynamo()
	db.CreateTable("counters", "counter_key")
	g := NewGenerator(counters.NewStore(db, "counters"), loc)
	g.nowFunc = func() time.Time { return now }
	return g
}

func TestNextIncrementsWithinDay(t *testing.T) {
	g := newGenerator(t, time.Date(2025, 1, 5, 10, 0, 0, 0, time.UTC), time.UTC)
	ctx := context.Background()

	first, err := g.Next(ctx)
	require.NoError(t, err)
	second, err := g.Next(ctx)
	require.NoError(t, err)

	assert.Equal(t, "INV-20250105-0001", first)
	assert.Equal(t, "INV-20250105-0002", second)
}

func TestNextRestartsOnNewDay(t *testing.T) {
	now := time.Date(2025, 1, 5, 23, 0, 0, 0, time.UTC)
	g := newGenerator(t, now, time.UTC)
	ctx := context.Background()

	_, err := g.Next(ctx)
	require.NoError(t, err)

	g.nowFunc = func() time.Time { return now.Add(2 * time.Hour) }
	got, err := g.Next(ctx)
	require.NoError(t, err)
	assert.Equal(t, "INV-20250106-0001", got)
}

func TestNextUsesConfiguredZone(t *testing.T) {
	ist := time.FixedZone("IST", 5*3600+1800)
	// 20:00 UTC on the 5th is already the 6th in IST.
	g := newGenerator(t, time.Date(2025, 1, 5, 20, 0, 0, 0, time.UTC), ist)
	got, err := g.Next(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "INV-20250106-0001", got)
}

func TestNextOverflow(t *testing.T) {
	g := NewGenerator(&fixedSeq{n: MaxSequence + 1}, time.UTC)
	_, err := g.Next(context.Background())
	assert.ErrorContains(t, err, "out of range")
}

func TestNextCounterError(t *testing.T) {
	g := NewGenerator(&fixedSeq{err: errors.New("boom")}, time.UTC)
	_, err := g.Next(context.Background())
	assert.ErrorContains(t, err, "boom")
}

func TestParse(t *testing.T) {
	day, seq, err := Parse("INV-20250105-0042")
	require.NoError(t, err)
	assert.Equal(t, 42, seq)
	assert.Equal(t, "2025-01-05", day.Format("2006-01-02"))

	for _, bad := range []string{"", "INV-2025015-0001", "INV-20250105-0000", "ORD-20250105-0001", "INV-20251305-0001"} {
		_, _, err := Parse(bad)
		assert.Error(t, err, bad)
	}
}

func TestFormatParseRoundTrip(t *testing.T) {
	day := time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC)
	s, err := Format(day, 7)
	require.NoError(t, err)
	gotDay, gotSeq, err := Parse(s)
	require.NoError(t, err)
	assert.True(t, day.Equal(gotDay))
	assert.Equal(t, 7, gotSeq)
}
