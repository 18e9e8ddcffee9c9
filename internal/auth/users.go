package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/sumanshinde/Rpos/internal/apperr"
	"github.com/sumanshinde/Rpos/internal/aws"
	"github.com/sumanshinde/Rpos/internal/uniqueness"
)

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleCashier Role = "cashier"
	RoleWaiter  Role = "waiter"
	RoleKitchen Role = "kitchen"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleCashier, RoleWaiter, RoleKitchen:
		return true
	}
	return false
}

// User is a staff account. PasswordHash never leaves the service.
type User struct {
	ID           string    `json:"id" dynamodbav:"user_id"` // PK
	Name         string    `json:"name" dynamodbav:"name"`
	Email        string    `json:"email" dynamodbav:"email"`
	Role         Role      `json:"role" dynamodbav:"role"`
	PasswordHash string    `json:"-" dynamodbav:"password_hash"`
	CreatedAt    time.Time `json:"createdAt" dynamodbav:"created_at"`
	UpdatedAt    time.Time `json:"updatedAt" dynamodbav:"updated_at"`
}

// UserStore persists users in DynamoDB with a unique email guard.
type UserStore struct {
	client    aws.DynamoDBAPI
	tableName string
	uniques   *uniqueness.Store
}

func NewUserStore(client aws.DynamoDBAPI, tableName string, uniques *uniqueness.Store) *UserStore {
	return &UserStore{client: client, tableName: tableName, uniques: uniques}
}

func emailKey(email string) string { return uniqueness.Key(uniqueness.Email, email) }

func userKey(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{"user_id": &types.AttributeValueMemberS{Value: id}}
}

func (s *UserStore) Create(ctx context.Context, u *User) error {
	item, err := attributevalue.MarshalMap(u)
	if err != nil {
		return fmt.Errorf("marshal user: %w", err)
	}
	_, err = s.client.TransactWriteItems(ctx, &dyn.TransactWriteItemsInput{TransactItems: []types.TransactWriteItem{
		{Put: &types.Put{TableName: &s.tableName, Item: item, ConditionExpression: aws.String("attribute_not_exists(user_id)")}},
		s.uniques.PutItem(emailKey(u.Email), u.ID),
	}})
	if err != nil {
		if aws.FirstFailedCondition(err) >= 0 {
			return apperr.Conflict("email %s is already registered", u.Email)
		}
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

func (s *UserStore) Get(ctx context.Context, id string) (*User, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{TableName: &s.tableName, Key: userKey(id)})
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, apperr.NotFound("no user found with id %s", id)
	}
	var u User
	if err := attributevalue.UnmarshalMap(out.Item, &u); err != nil {
		return nil, fmt.Errorf("unmarshal user: %w", err)
	}
	return &u, nil
}

func (s *UserStore) FindByEmail(ctx context.Context, email string) (*User, error) {
	id, err := s.uniques.Owner(ctx, emailKey(email))
	if err != nil {
		return nil, err
	}
	if id == "" {
		return nil, apperr.NotFound("no user found with email %s", email)
	}
	return s.Get(ctx, id)
}

// UpdateProfile stores a new name and email for cur, moving the email guard
// when the address changes.
func (s *UserStore) UpdateProfile(ctx context.Context, cur *User, name, email string, now time.Time) (*User, error) {
	items := []types.TransactWriteItem{{Update: &types.Update{
		TableName:                &s.tableName,
		Key:                      userKey(cur.ID),
		UpdateExpression:         aws.String("SET #n = :n, email = :e, updated_at = :ua"),
		ConditionExpression:      aws.String("attribute_exists(user_id)"),
		ExpressionAttributeNames: map[string]string{"#n": "name"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":n":  &types.AttributeValueMemberS{Value: name},
			":e":  &types.AttributeValueMemberS{Value: email},
			":ua": &types.AttributeValueMemberS{Value: now.UTC().Format(time.RFC3339Nano)},
		},
	}}}
	if email != cur.Email {
		items = append(items, s.uniques.PutItem(emailKey(email), cur.ID), s.uniques.DeleteItem(emailKey(cur.Email)))
	}
	_, err := s.client.TransactWriteItems(ctx, &dyn.TransactWriteItemsInput{TransactItems: items})
	if err != nil {
		switch aws.FirstFailedCondition(err) {
		case 0:
			return nil, apperr.NotFound("no user found with id %s", cur.ID)
		case 1:
			return nil, apperr.Conflict("email %s is already registered", email)
		}
		return nil, fmt.Errorf("update user: %w", err)
	}
	next := *cur
	next.Name, next.Email, next.UpdatedAt = name, email, now.UTC()
	return &next, nil
}
