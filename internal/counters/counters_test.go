package counters

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sumanshinde/Rpos/internal/aws/awstest"
)

func newStore() (*Store, *awstest.Dynamo) {
	db := awstest.NewDynamo()
	db.CreateTable("counters", "counter_key")
	return NewStore(db, "counters"), db
}

func TestNextIsSequentialPerKey(t *testing.T) {
	s, _ := newStore()
	ctx := context.Background()

	for want := int64(1); want <= 3; want++ {
		got, err := s.Next(ctx, "order")
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	got, err := s.Next(ctx, "invoice#20250105")
	require.NoError(t, err)
	assert.Equal(t, int64(1), got)
}

func TestNextConcurrentCallsAreDistinct(t *testing.T) {
	s, _ := newStore()
	ctx := context.Background()

	var (
		mu   sync.Mutex
		seen = map[int64]bool{}
		wg   sync.WaitGroup
	)
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			n, err := s.Next(ctx, "order")
			assert.NoError(t, err)
			mu.Lock()
			seen[n] = true
			mu.Unlock()
		}()
	}
	wg.Wait()
	assert.Len(t, seen, 20)
}

func TestNextPropagatesErrors(t *testing.T) {
	s, db := newStore()
	db.FailNext("UpdateItem", errors.New("throttled"))
	_, err := s.Next(context.Background(), "order")
	assert.ErrorContains(t, err, "throttled")
}
