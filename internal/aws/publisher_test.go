package aws_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sumanshinde/Rpos/internal/aws"
	"github.com/sumanshinde/Rpos/internal/aws/awstest"
)

func TestPublisher_Publish(t *testing.T) {
	fake := &awstest.SQS{}
	p := aws.NewPublisher(fake, "https://sqs.local/orders")

	err := p.Publish(context.Background(), "order.created", map[string]string{"order_id": "o1"}, map[string]string{
		"order_id": "o1",
		"empty":    "",
	})
	require.NoError(t, err)

	msgs := fake.Messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, "https://sqs.local/orders", msgs[0].QueueURL)
	assert.Equal(t, "order.created", msgs[0].Attributes["event_type"])
	assert.Equal(t, "o1", msgs[0].Attributes["order_id"])
	assert.NotContains(t, msgs[0].Attributes, "empty")

	var body map[string]string
	require.NoError(t, json.Unmarshal([]byte(msgs[0].Body), &body))
	assert.Equal(t, "o1", body["order_id"])
}

func TestPublisher_DisabledWithoutQueue(t *testing.T) {
	fake := &awstest.SQS{}
	p := aws.NewPublisher(fake, "")

	require.NoError(t, p.Publish(context.Background(), "order.created", struct{}{}, nil))
	assert.Empty(t, fake.Messages())
}

func TestPublisher_SendError(t *testing.T) {
	fake := &awstest.SQS{Err: errors.New("boom")}
	p := aws.NewPublisher(fake, "q")

	err := p.Publish(context.Background(), "order.created", struct{}{}, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "send message")
}

func TestMetrics_CountAndNoop(t *testing.T) {
	cw := &awstest.CloudWatch{}
	m := aws.NewMetrics(cw, "RestaurantPOS")

	require.NoError(t, m.Count(context.Background(), "OrdersCreated", 1, map[string]string{"order_type": "dine-in"}))
	require.NoError(t, m.Amount(context.Background(), "Revenue", 198, nil))
	assert.Equal(t, 1.0, cw.Sum("OrdersCreated"))
	assert.Equal(t, 198.0, cw.Sum("Revenue"))

	var nilMetrics *aws.Metrics
	assert.NoError(t, nilMetrics.Count(context.Background(), "OrdersCreated", 1, nil))
}
