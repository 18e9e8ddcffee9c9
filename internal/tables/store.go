// Package tables stores dining tables and coordinates their reservation by
// orders. Reservation and release are available both as direct calls and as
// transaction items that callers compose with their own writes.
package tables

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"

	"github.com/sumanshinde/Rpos/internal/apperr"
	"github.com/sumanshinde/Rpos/internal/aws"
	"github.com/sumanshinde/Rpos/internal/uniqueness"
)

// Store encapsulates operations on the tables table.
type Store struct {
	client    aws.DynamoDBAPI
	tableName string
	uniques   *uniqueness.Store
	nowFunc   func() time.Time
}

func NewStore(client aws.DynamoDBAPI, tableName string, uniques *uniqueness.Store) *Store {
	return &Store{
		client:    client,
		tableName: tableName,
		uniques:   uniques,
		nowFunc:   time.Now,
	}
}

func key(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{"table_id": &types.AttributeValueMemberS{Value: id}}
}

func str(s string) types.AttributeValue { return &types.AttributeValueMemberS{Value: s} }

func stamp(t time.Time) types.AttributeValue { return str(t.UTC().Format(time.RFC3339Nano)) }

// ReserveItem moves a table from available to occupied by orderID. The item
// fails its condition if the table is missing or not available.
func (s *Store) ReserveItem(tableID, orderID string) types.TransactWriteItem {
	return types.TransactWriteItem{Update: &types.Update{
		TableName:                &s.tableName,
		Key:                      key(tableID),
		UpdateExpression:         aws.String("SET #s = :occupied, current_order_id = :oid, updated_at = :ua"),
		ConditionExpression:      aws.String("#s = :available"),
		ExpressionAttributeNames: map[string]string{"#s": "status"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":occupied":  str(string(StatusOccupied)),
			":available": str(string(StatusAvailable)),
			":oid":       str(orderID),
			":ua":        stamp(s.nowFunc()),
		},
	}}
}

// ReleaseItem makes a table available again. With a non-empty orderID the
// item only applies while that order still holds the table.
func (s *Store) ReleaseItem(tableID, orderID string) types.TransactWriteItem {
	values := map[string]types.AttributeValue{
		":available": str(string(StatusAvailable)),
		":ua":        stamp(s.nowFunc()),
	}
	cond := "attribute_exists(table_id)"
	if orderID != "" {
		cond = "current_order_id = :oid"
		values[":oid"] = str(orderID)
	}
	return types.TransactWriteItem{Update: &types.Update{
		TableName:                 &s.tableName,
		Key:                       key(tableID),
		UpdateExpression:          aws.String("SET #s = :available, updated_at = :ua REMOVE current_order_id"),
		ConditionExpression:       aws.String(cond),
		ExpressionAttributeNames:  map[string]string{"#s": "status"},
		ExpressionAttributeValues: values,
	}}
}

// Reserve occupies an available table for orderID.
func (s *Store) Reserve(ctx context.Context, tableID, orderID string) error {
	return s.transact(ctx, tableID, s.ReserveItem(tableID, orderID))
}

// Release frees a table. Releasing an available table is a no-op.
func (s *Store) Release(ctx context.Context, tableID string) error {
	return s.transact(ctx, tableID, s.ReleaseItem(tableID, ""))
}

func (s *Store) transact(ctx context.Context, tableID string, items ...types.TransactWriteItem) error {
	_, err := s.client.TransactWriteItems(ctx, &dyn.TransactWriteItemsInput{TransactItems: items})
	if err == nil {
		return nil
	}
	if aws.FirstFailedCondition(err) < 0 {
		return fmt.Errorf("table %s: %w", tableID, err)
	}
	return s.ConditionError(ctx, tableID)
}

// ConditionError explains a failed condition on tableID: NotFound when the
// table is gone, Conflict otherwise.
func (s *Store) ConditionError(ctx context.Context, tableID string) error {
	t, err := s.find(ctx, tableID)
	if err != nil {
		return err
	}
	if t == nil {
		return apperr.NotFound("no table found with id %s", tableID)
	}
	return apperr.Conflict("table %s is %s", t.TableNumber, t.Status)
}

// Create adds a table. Table numbers are unique.
func (s *Store) Create(ctx context.Context, in CreateInput) (*Table, error) {
	in.TableNumber = strings.TrimSpace(in.TableNumber)
	if in.Status == "" {
		in.Status = StatusAvailable
	}
	if err := validate(in.TableNumber, in.Capacity, in.Section); err != nil {
		return nil, err
	}
	if !in.Status.Valid() {
		return nil, apperr.Validation("unknown table status %q", in.Status)
	}

	now := s.nowFunc().UTC()
	t := Table{
		ID:          uuid.NewString(),
		TableNumber: in.TableNumber,
		Capacity:    in.Capacity,
		Section:     in.Section,
		Status:      in.Status,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	item, err := attributevalue.MarshalMap(t)
	if err != nil {
		return nil, fmt.Errorf("marshal table: %w", err)
	}
	_, err = s.client.TransactWriteItems(ctx, &dyn.TransactWriteItemsInput{TransactItems: []types.TransactWriteItem{
		{Put: &types.Put{TableName: &s.tableName, Item: item, ConditionExpression: aws.String("attribute_not_exists(table_id)")}},
		s.uniques.PutItem(uniqueness.Key(uniqueness.TableNumber, t.TableNumber), t.ID),
	}})
	if err != nil {
		if aws.FirstFailedCondition(err) >= 0 {
			return nil, apperr.Conflict("table number %s already exists", t.TableNumber)
		}
		return nil, fmt.Errorf("create table: %w", err)
	}
	return &t, nil
}

func validate(number string, capacity int, section Section) error {
	fields := map[string]string{}
	if number == "" {
		fields["tableNumber"] = "A table must have a number"
	}
	if capacity < 1 {
		fields["capacity"] = "Capacity must be at least 1"
	}
	if !section.Valid() {
		fields["section"] = "Section is either: Indoor, Outdoor, or Bar"
	}
	if len(fields) > 0 {
		return apperr.Validation("invalid table").WithFields(fields)
	}
	return nil
}

// Get returns the table or a NotFound error.
func (s *Store) Get(ctx context.Context, id string) (*Table, error) {
	t, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, apperr.NotFound("no table found with id %s", id)
	}
	return t, nil
}

// find returns (nil, nil) when the table does not exist.
func (s *Store) find(ctx context.Context, id string) (*Table, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{TableName: &s.tableName, Key: key(id)})
	if err != nil {
		return nil, fmt.Errorf("get table: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var t Table
	if err := attributevalue.UnmarshalMap(out.Item, &t); err != nil {
		return nil, fmt.Errorf("unmarshal table: %w", err)
	}
	return &t, nil
}

// List returns all tables ordered by table number.
func (s *Store) List(ctx context.Context) ([]Table, error) {
	var (
		all   []Table
		start map[string]types.AttributeValue
	)
	for {
		out, err := s.client.Scan(ctx, &dyn.ScanInput{TableName: &s.tableName, ExclusiveStartKey: start})
		if err != nil {
			return nil, fmt.Errorf("scan tables: %w", err)
		}
		var page []Table
		if err := attributevalue.UnmarshalListOfMaps(out.Items, &page); err != nil {
			return nil, fmt.Errorf("unmarshal tables: %w", err)
		}
		all = append(all, page...)
		if len(out.LastEvaluatedKey) == 0 {
			break
		}
		start = out.LastEvaluatedKey
	}
	sort.SliceStable(all, func(i, j int) bool { return lessNumber(all[i].TableNumber, all[j].TableNumber) })
	return all, nil
}

// lessNumber orders "2" before "10" while still handling names like "B1".
func lessNumber(a, b string) bool {
	if len(a) != len(b) {
		return len(a) < len(b)
	}
	return a < b
}

// Update changes number, capacity or section. A number change moves the
// uniqueness guard in the same transaction.
func (s *Store) Update(ctx context.Context, id string, in UpdateInput) (*Table, error) {
	cur, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	next := *cur
	if in.TableNumber != nil {
		next.TableNumber = strings.TrimSpace(*in.TableNumber)
	}
	if in.Capacity != nil {
		next.Capacity = *in.Capacity
	}
	if in.Section != nil {
		next.Section = *in.Section
	}
	if err := validate(next.TableNumber, next.Capacity, next.Section); err != nil {
		return nil, err
	}
	next.UpdatedAt = s.nowFunc().UTC()

	items := []types.TransactWriteItem{{Update: &types.Update{
		TableName:                &s.tableName,
		Key:                      key(id),
		UpdateExpression:         aws.String("SET table_number = :n, capacity = :c, #sec = :sec, updated_at = :ua"),
		ConditionExpression:      aws.String("attribute_exists(table_id)"),
		ExpressionAttributeNames: map[string]string{"#sec": "section"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":n":   str(next.TableNumber),
			":c":   &types.AttributeValueMemberN{Value: fmt.Sprint(next.Capacity)},
			":sec": str(string(next.Section)),
			":ua":  stamp(next.UpdatedAt),
		},
	}}}
	if next.TableNumber != cur.TableNumber {
		items = append(items,
			s.uniques.PutItem(uniqueness.Key(uniqueness.TableNumber, next.TableNumber), id),
			s.uniques.DeleteItem(uniqueness.Key(uniqueness.TableNumber, cur.TableNumber)),
		)
	}
	_, err = s.client.TransactWriteItems(ctx, &dyn.TransactWriteItemsInput{TransactItems: items})
	if err != nil {
		switch aws.FirstFailedCondition(err) {
		case 0:
			return nil, apperr.NotFound("no table found with id %s", id)
		case 1:
			return nil, apperr.Conflict("table number %s already exists", next.TableNumber)
		}
		return nil, fmt.Errorf("update table: %w", err)
	}
	return &next, nil
}

// Delete removes a table that is not holding an order.
func (s *Store) Delete(ctx context.Context, id string) error {
	cur, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	_, err = s.client.TransactWriteItems(ctx, &dyn.TransactWriteItemsInput{TransactItems: []types.TransactWriteItem{
		{Delete: &types.Delete{
			TableName:           &s.tableName,
			Key:                 key(id),
			ConditionExpression: aws.String("attribute_exists(table_id) AND attribute_not_exists(current_order_id)"),
		}},
		s.uniques.DeleteItem(uniqueness.Key(uniqueness.TableNumber, cur.TableNumber)),
	}})
	if err != nil {
		if aws.FirstFailedCondition(err) >= 0 {
			t, ferr := s.find(ctx, id)
			if ferr != nil {
				return ferr
			}
			if t == nil {
				return apperr.NotFound("no table found with id %s", id)
			}
			return apperr.Conflict("table %s is holding order %s", t.TableNumber, t.CurrentOrderID)
		}
		return fmt.Errorf("delete table: %w", err)
	}
	return nil
}

// SetStatus applies a manual status change. occupied and reserved only apply
// to an available table; available releases any held order; cleaning is
// unconditional.
func (s *Store) SetStatus(ctx context.Context, id string, status Status) (*Table, error) {
	if !status.Valid() {
		return nil, apperr.Validation("unknown table status %q", status)
	}
	now := s.nowFunc()
	var item types.TransactWriteItem
	switch status {
	case StatusAvailable:
		item = s.ReleaseItem(id, "")
	case StatusCleaning:
		item = types.TransactWriteItem{Update: &types.Update{
			TableName:                 &s.tableName,
			Key:                       key(id),
			UpdateExpression:          aws.String("SET #s = :st, updated_at = :ua"),
			ConditionExpression:       aws.String("attribute_exists(table_id)"),
			ExpressionAttributeNames:  map[string]string{"#s": "status"},
			ExpressionAttributeValues: map[string]types.AttributeValue{":st": str(string(status)), ":ua": stamp(now)},
		}}
	default:
		item = types.TransactWriteItem{Update: &types.Update{
			TableName:                &s.tableName,
			Key:                      key(id),
			UpdateExpression:         aws.String("SET #s = :st, updated_at = :ua"),
			ConditionExpression:      aws.String("#s = :available"),
			ExpressionAttributeNames: map[string]string{"#s": "status"},
			ExpressionAttributeValues: map[string]types.AttributeValue{
				":st":        str(string(status)),
				":available": str(string(StatusAvailable)),
				":ua":        stamp(now),
			},
		}}
	}
	if err := s.transact(ctx, id, item); err != nil {
		return nil, err
	}
	return s.Get(ctx, id)
}
