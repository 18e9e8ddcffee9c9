// Package customers keeps the customer directory and the per-customer order
// statistics accumulated from settled orders.
package customers

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/sumanshinde/Rpos/internal/apperr"
	"github.com/sumanshinde/Rpos/internal/aws"
	"github.com/sumanshinde/Rpos/internal/uniqueness"
)

var (
	phonePattern = regexp.MustCompile(`^[0-9]{10}$`)
	emailPattern = regexp.MustCompile(`^\S+@\S+\.\S+$`)
	pointUnit    = decimal.NewFromInt(100)
)

type Store struct {
	client    aws.DynamoDBAPI
	tableName string
	uniques   *uniqueness.Store
	nowFunc   func() time.Time
}

func NewStore(client aws.DynamoDBAPI, tableName string, uniques *uniqueness.Store) *Store {
	return &Store{client: client, tableName: tableName, uniques: uniques, nowFunc: time.Now}
}

func key(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{"customer_id": &types.AttributeValueMemberS{Value: id}}
}

func phoneKey(phone string) string { return uniqueness.Key(uniqueness.Phone, phone) }

func validate(c *Customer) error {
	fields := map[string]string{}
	if c.Name == "" {
		fields["name"] = "Customer name is required"
	}
	if !phonePattern.MatchString(c.Phone) {
		fields["phone"] = "Phone number must be exactly 10 digits"
	}
	if c.Email != "" && !emailPattern.MatchString(c.Email) {
		fields["email"] = "Please use a valid email address"
	}
	if len(fields) > 0 {
		return apperr.Validation("invalid customer").WithFields(fields)
	}
	return nil
}

// Create adds a customer. Phone numbers are unique.
func (s *Store) Create(ctx context.Context, in CreateInput) (*Customer, error) {
	now := s.nowFunc().UTC()
	c := &Customer{
		ID:         uuid.NewString(),
		Name:       strings.TrimSpace(in.Name),
		Phone:      strings.TrimSpace(in.Phone),
		Email:      strings.ToLower(strings.TrimSpace(in.Email)),
		Address:    strings.TrimSpace(in.Address),
		TotalSpent: decimal.Zero,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := validate(c); err != nil {
		return nil, err
	}
	item, err := attributevalue.MarshalMap(toRecord(c))
	if err != nil {
		return nil, fmt.Errorf("marshal customer: %w", err)
	}
	_, err = s.client.TransactWriteItems(ctx, &dyn.TransactWriteItemsInput{TransactItems: []types.TransactWriteItem{
		{Put: &types.Put{TableName: &s.tableName, Item: item, ConditionExpression: aws.String("attribute_not_exists(customer_id)")}},
		s.uniques.PutItem(phoneKey(c.Phone), c.ID),
	}})
	if err != nil {
		if aws.FirstFailedCondition(err) >= 0 {
			return nil, apperr.Conflict("a customer with phone %s already exists", c.Phone)
		}
		return nil, fmt.Errorf("create customer: %w", err)
	}
	return c, nil
}

func (s *Store) Get(ctx context.Context, id string) (*Customer, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{TableName: &s.tableName, Key: key(id)})
	if err != nil {
		return nil, fmt.Errorf("get customer: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, apperr.NotFound("no customer found with id %s", id)
	}
	var r record
	if err := attributevalue.UnmarshalMap(out.Item, &r); err != nil {
		return nil, fmt.Errorf("unmarshal customer: %w", err)
	}
	return r.customer(), nil
}

// FindByPhone resolves a phone number through its uniqueness guard.
func (s *Store) FindByPhone(ctx context.Context, phone string) (*Customer, error) {
	id, err := s.uniques.Owner(ctx, phoneKey(phone))
	if err != nil {
		return nil, err
	}
	if id == "" {
		return nil, apperr.NotFound("no customer found with phone %s", phone)
	}
	return s.Get(ctx, id)
}

// List returns customers newest first.
func (s *Store) List(ctx context.Context) ([]Customer, error) {
	var (
		out   []Customer
		start map[string]types.AttributeValue
	)
	for {
		page, err := s.client.Scan(ctx, &dyn.ScanInput{TableName: &s.tableName, ExclusiveStartKey: start})
		if err != nil {
			return nil, fmt.Errorf("scan customers: %w", err)
		}
		var recs []record
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &recs); err != nil {
			return nil, fmt.Errorf("unmarshal customers: %w", err)
		}
		for _, r := range recs {
			out = append(out, *r.customer())
		}
		if len(page.LastEvaluatedKey) == 0 {
			break
		}
		start = page.LastEvaluatedKey
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

// Update changes contact details. A phone change moves the uniqueness guard
// in the same transaction.
func (s *Store) Update(ctx context.Context, id string, in UpdateInput) (*Customer, error) {
	cur, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	next := *cur
	if in.Name != nil {
		next.Name = strings.TrimSpace(*in.Name)
	}
	if in.Phone != nil {
		next.Phone = strings.TrimSpace(*in.Phone)
	}
	if in.Email != nil {
		next.Email = strings.ToLower(strings.TrimSpace(*in.Email))
	}
	if in.Address != nil {
		next.Address = strings.TrimSpace(*in.Address)
	}
	if err := validate(&next); err != nil {
		return nil, err
	}
	next.UpdatedAt = s.nowFunc().UTC()

	items := []types.TransactWriteItem{{Update: &types.Update{
		TableName:                &s.tableName,
		Key:                      key(id),
		UpdateExpression:         aws.String("SET #n = :n, phone = :p, email = :e, address = :a, updated_at = :ua"),
		ConditionExpression:      aws.String("attribute_exists(customer_id)"),
		ExpressionAttributeNames: map[string]string{"#n": "name"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":n":  &types.AttributeValueMemberS{Value: next.Name},
			":p":  &types.AttributeValueMemberS{Value: next.Phone},
			":e":  &types.AttributeValueMemberS{Value: next.Email},
			":a":  &types.AttributeValueMemberS{Value: next.Address},
			":ua": &types.AttributeValueMemberS{Value: next.UpdatedAt.Format(time.RFC3339Nano)},
		},
	}}}
	if next.Phone != cur.Phone {
		items = append(items, s.uniques.PutItem(phoneKey(next.Phone), id), s.uniques.DeleteItem(phoneKey(cur.Phone)))
	}
	_, err = s.client.TransactWriteItems(ctx, &dyn.TransactWriteItemsInput{TransactItems: items})
	if err != nil {
		switch aws.FirstFailedCondition(err) {
		case 0:
			return nil, apperr.NotFound("no customer found with id %s", id)
		case 1:
			return nil, apperr.Conflict("a customer with phone %s already exists", next.Phone)
		}
		return nil, fmt.Errorf("update customer: %w", err)
	}
	return &next, nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	cur, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	_, err = s.client.TransactWriteItems(ctx, &dyn.TransactWriteItemsInput{TransactItems: []types.TransactWriteItem{
		{Delete: &types.Delete{TableName: &s.tableName, Key: key(id), ConditionExpression: aws.String("attribute_exists(customer_id)")}},
		s.uniques.DeleteItem(phoneKey(cur.Phone)),
	}})
	if err != nil {
		if aws.FirstFailedCondition(err) >= 0 {
			return apperr.NotFound("no customer found with id %s", id)
		}
		return fmt.Errorf("delete customer: %w", err)
	}
	return nil
}

// LoyaltyPoints is one point per full 100 spent.
func LoyaltyPoints(total decimal.Decimal) int64 {
	if !total.IsPositive() {
		return 0
	}
	return total.Div(pointUnit).Floor().IntPart()
}

// RecordOrder adds one settled order of total to the stats of the customer
// with phone. The counters are incremented atomically and never recomputed.
func (s *Store) RecordOrder(ctx context.Context, phone string, total decimal.Decimal) (*Customer, error) {
	c, err := s.FindByPhone(ctx, phone)
	if err != nil {
		return nil, err
	}
	out, err := s.client.UpdateItem(ctx, &dyn.UpdateItemInput{
		TableName:           &s.tableName,
		Key:                 key(c.ID),
		UpdateExpression:    aws.String("ADD total_orders :one, total_spent :amt, loyalty_points :pts SET updated_at = :ua"),
		ConditionExpression: aws.String("attribute_exists(customer_id)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":one": &types.AttributeValueMemberN{Value: "1"},
			":amt": &types.AttributeValueMemberN{Value: total.String()},
			":pts": &types.AttributeValueMemberN{Value: fmt.Sprint(LoyaltyPoints(total))},
			":ua":  &types.AttributeValueMemberS{Value: s.nowFunc().UTC().Format(time.RFC3339Nano)},
		},
		ReturnValues: types.ReturnValueAllNew,
	})
	if err != nil {
		if aws.IsConditionFailed(err) {
			return nil, apperr.NotFound("no customer found with phone %s", phone)
		}
		return nil, fmt.Errorf("record order for customer %s: %w", c.ID, err)
	}
	var r record
	if err := attributevalue.UnmarshalMap(out.Attributes, &r); err != nil {
		return nil, fmt.Errorf("unmarshal customer: %w", err)
	}
	return r.customer(), nil
}
