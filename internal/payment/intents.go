package payment

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/sumanshinde/Rpos/internal/aws"
)

// IntentStore keeps open intents until they are settled. Items carry an
// expires_at TTL attribute; expired items are treated as absent even before
// DynamoDB removes them.
type IntentStore struct {
	client    aws.DynamoDBAPI
	tableName string
	ttl       time.Duration
	nowFunc   func() time.Time
}

func NewIntentStore(client aws.DynamoDBAPI, tableName string, ttl time.Duration) *IntentStore {
	return &IntentStore{client: client, tableName: tableName, ttl: ttl, nowFunc: time.Now}
}

func intentKey(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{"intent_id": &types.AttributeValueMemberS{Value: id}}
}

func (s *IntentStore) Put(ctx context.Context, in *Intent) error {
	in.ExpiresAt = s.nowFunc().Add(s.ttl).Unix()
	item, err := attributevalue.MarshalMap(in)
	if err != nil {
		return fmt.Errorf("marshal intent: %w", err)
	}
	_, err = s.client.PutItem(ctx, &dyn.PutItemInput{
		TableName:           &s.tableName,
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(intent_id)"),
	})
	if err != nil {
		return fmt.Errorf("put intent %s: %w", in.ID, err)
	}
	return nil
}

// Get returns (nil, nil) for unknown or expired intents.
func (s *IntentStore) Get(ctx context.Context, id string) (*Intent, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName:      &s.tableName,
		Key:            intentKey(id),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("get intent: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var in Intent
	if err := attributevalue.UnmarshalMap(out.Item, &in); err != nil {
		return nil, fmt.Errorf("unmarshal intent: %w", err)
	}
	if in.ExpiresAt > 0 && in.ExpiresAt <= s.nowFunc().Unix() {
		return nil, nil
	}
	return &in, nil
}

// IncrementAttempts counts a failed verification.
func (s *IntentStore) IncrementAttempts(ctx context.Context, id string) error {
	_, err := s.client.UpdateItem(ctx, &dyn.UpdateItemInput{
		TableName:                 &s.tableName,
		Key:                       intentKey(id),
		UpdateExpression:          aws.String("ADD attempts :inc"),
		ConditionExpression:       aws.String("attribute_exists(intent_id)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{":inc": &types.AttributeValueMemberN{Value: "1"}},
	})
	if err != nil {
		return fmt.Errorf("increment intent attempts: %w", err)
	}
	return nil
}

func (s *IntentStore) Delete(ctx context.Context, id string) error {
	_, err := s.client.DeleteItem(ctx, &dyn.DeleteItemInput{TableName: &s.tableName, Key: intentKey(id)})
	if err != nil {
		return fmt.Errorf("delete intent: %w", err)
	}
	return nil
}
