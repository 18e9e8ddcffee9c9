// Package uniqueness enforces unique attribute values (emails, phones, table
// numbers, invoice numbers) with guard items in a dedicated DynamoDB table.
// A guard is written in the same transaction as the item that owns the value.
package uniqueness

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/sumanshinde/Rpos/internal/aws"
)

// Guard kinds used as key prefixes.
const (
	Email       = "email"
	Phone       = "phone"
	TableNumber = "table_number"
	Category    = "category_slug"
	Invoice     = "invoice"
	Revoked     = "revoked"
)

type record struct {
	UniqueKey string `dynamodbav:"unique_key"`
	OwnerID   string `dynamodbav:"owner_id"`
	ExpiresAt int64  `dynamodbav:"expires_at,omitempty"`
}

type Store struct {
	client    aws.DynamoDBAPI
	tableName string
	nowFunc   func() time.Time
}

func NewStore(client aws.DynamoDBAPI, tableName string) *Store {
	return &Store{client: client, tableName: tableName, nowFunc: time.Now}
}

// Key builds the guard key for a kind and value, e.g. "email#a@b.c".
func Key(kind, value string) string { return kind + "#" + value }

// PutItem claims key for owner. The transaction fails if another item
// already holds it.
func (s *Store) PutItem(key, owner string) types.TransactWriteItem {
	return types.TransactWriteItem{
		Put: &types.Put{
			TableName: &s.tableName,
			Item: map[string]types.AttributeValue{
				"unique_key": &types.AttributeValueMemberS{Value: key},
				"owner_id":   &types.AttributeValueMemberS{Value: owner},
			},
			ConditionExpression: aws.String("attribute_not_exists(unique_key)"),
		},
	}
}

// DeleteItem releases key.
func (s *Store) DeleteItem(key string) types.TransactWriteItem {
	return types.TransactWriteItem{
		Delete: &types.Delete{
			TableName: &s.tableName,
			Key:       map[string]types.AttributeValue{"unique_key": &types.AttributeValueMemberS{Value: key}},
		},
	}
}

// Owner returns the id holding key, or "" when it is free.
func (s *Store) Owner(ctx context.Context, key string) (string, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName: &s.tableName,
		Key:       map[string]types.AttributeValue{"unique_key": &types.AttributeValueMemberS{Value: key}},
	})
	if err != nil {
		return "", fmt.Errorf("get guard %s: %w", key, err)
	}
	if len(out.Item) == 0 {
		return "", nil
	}
	var rec record
	if err := attributevalue.UnmarshalMap(out.Item, &rec); err != nil {
		return "", fmt.Errorf("unmarshal guard %s: %w", key, err)
	}
	if rec.ExpiresAt > 0 && rec.ExpiresAt <= s.nowFunc().Unix() {
		return "", nil
	}
	return rec.OwnerID, nil
}

// PutExpiring writes key with a TTL, ignoring an existing holder. Used for
// entries that only need to exist for a while, such as revoked token ids.
func (s *Store) PutExpiring(ctx context.Context, key, owner string, expiresAt time.Time) error {
	_, err := s.client.PutItem(ctx, &dyn.PutItemInput{
		TableName: &s.tableName,
		Item: map[string]types.AttributeValue{
			"unique_key": &types.AttributeValueMemberS{Value: key},
			"owner_id":   &types.AttributeValueMemberS{Value: owner},
			"expires_at": &types.AttributeValueMemberN{Value: strconv.FormatInt(expiresAt.Unix(), 10)},
		},
	})
	if err != nil {
		return fmt.Errorf("put guard %s: %w", key, err)
	}
	return nil
}
