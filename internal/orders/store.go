package orders

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	dyn "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/shopspring/decimal"

	"github.com/sumanshinde/Rpos/internal/aws"
)

// ErrStatusMismatch is returned when a conditional write on the order item
// itself fails: the order is gone or no longer in the expected state.
var ErrStatusMismatch = errors.New("status mismatch/conditional failed")

// Store encapsulates operations on the orders table. Writes are returned as
// transaction items so the service can combine them with table and
// uniqueness writes in one TransactWriteItems call.
type Store struct {
	client    aws.DynamoDBAPI
	tableName string
	nowFunc   func() time.Time
}

// NewStore creates a new orders Store.
func NewStore(client aws.DynamoDBAPI, tableName string) *Store {
	return &Store{
		client:    client,
		tableName: tableName,
		nowFunc:   time.Now,
	}
}

type itemRecord struct {
	ProductID string      `dynamodbav:"product_id,omitempty"`
	Name      string      `dynamodbav:"name"`
	Quantity  int         `dynamodbav:"quantity"`
	UnitPrice aws.Decimal `dynamodbav:"unit_price"`
	Notes     string      `dynamodbav:"notes,omitempty"`
}

type customerRecord struct {
	Name    string `dynamodbav:"name,omitempty"`
	Phone   string `dynamodbav:"phone,omitempty"`
	Address string `dynamodbav:"address,omitempty"`
}

// record is the shape persisted in the orders table.
type record struct {
	OrderID         string          `dynamodbav:"order_id"` // PK
	OrderNumber     string          `dynamodbav:"order_number"`
	TableID         string          `dynamodbav:"table_id,omitempty"`
	TableNumber     string          `dynamodbav:"table_number,omitempty"`
	Waiter          string          `dynamodbav:"waiter"`
	Items           []itemRecord    `dynamodbav:"items"`
	Status          Status          `dynamodbav:"status"`
	OrderType       OrderType       `dynamodbav:"order_type"`
	DiscountPercent aws.Decimal     `dynamodbav:"discount_percent"`
	Subtotal        aws.Decimal     `dynamodbav:"subtotal"`
	Discount        aws.Decimal     `dynamodbav:"discount"`
	Tax             aws.Decimal     `dynamodbav:"tax"`
	Total           aws.Decimal     `dynamodbav:"total"`
	PaymentMethod   PaymentMethod   `dynamodbav:"payment_method"`
	PaymentStatus   PaymentStatus   `dynamodbav:"payment_status"`
	PaymentID       string          `dynamodbav:"payment_id,omitempty"`
	InvoiceNumber   string          `dynamodbav:"invoice_number,omitempty"`
	Customer        *customerRecord `dynamodbav:"customer,omitempty"`
	CreatedBy       string          `dynamodbav:"created_by,omitempty"`
	CreatedAt       time.Time       `dynamodbav:"created_at"`
	UpdatedAt       time.Time       `dynamodbav:"updated_at"`
}

func toRecord(o *Order) record {
	r := record{
		OrderID:         o.ID,
		OrderNumber:     o.OrderNumber,
		TableID:         o.TableID,
		TableNumber:     o.TableNumber,
		Waiter:          o.Waiter,
		Status:          o.Status,
		OrderType:       o.OrderType,
		DiscountPercent: aws.NewDecimal(o.DiscountPercent),
		Subtotal:        aws.NewDecimal(o.Subtotal),
		Discount:        aws.NewDecimal(o.Discount),
		Tax:             aws.NewDecimal(o.Tax),
		Total:           aws.NewDecimal(o.Total),
		PaymentMethod:   o.PaymentMethod,
		PaymentStatus:   o.PaymentStatus,
		PaymentID:       o.PaymentID,
		InvoiceNumber:   o.InvoiceNumber,
		CreatedBy:       o.CreatedBy,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
	for _, it := range o.Items {
		r.Items = append(r.Items, itemRecord{
			ProductID: it.ProductID,
			Name:      it.Name,
			Quantity:  it.Quantity,
			UnitPrice: aws.NewDecimal(it.UnitPrice),
			Notes:     it.Notes,
		})
	}
	if o.Customer != nil {
		r.Customer = &customerRecord{Name: o.Customer.Name, Phone: o.Customer.Phone, Address: o.Customer.Address}
	}
	return r
}

func (r record) order() *Order {
	o := &Order{
		ID:              r.OrderID,
		OrderNumber:     r.OrderNumber,
		TableID:         r.TableID,
		TableNumber:     r.TableNumber,
		Waiter:          r.Waiter,
		Items:           make([]Item, 0, len(r.Items)),
		Status:          r.Status,
		OrderType:       r.OrderType,
		DiscountPercent: r.DiscountPercent.Decimal,
		Subtotal:        r.Subtotal.Decimal,
		Discount:        r.Discount.Decimal,
		Tax:             r.Tax.Decimal,
		Total:           r.Total.Decimal,
		PaymentMethod:   r.PaymentMethod,
		PaymentStatus:   r.PaymentStatus,
		PaymentID:       r.PaymentID,
		InvoiceNumber:   r.InvoiceNumber,
		CreatedBy:       r.CreatedBy,
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
	for _, it := range r.Items {
		o.Items = append(o.Items, Item{
			ProductID: it.ProductID,
			Name:      it.Name,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice.Decimal,
			Notes:     it.Notes,
		})
	}
	if r.Customer != nil {
		o.Customer = &Customer{Name: r.Customer.Name, Phone: r.Customer.Phone, Address: r.Customer.Address}
	}
	return o
}

func key(id string) map[string]types.AttributeValue {
	return map[string]types.AttributeValue{"order_id": &types.AttributeValueMemberS{Value: id}}
}

func str(s string) types.AttributeValue { return &types.AttributeValueMemberS{Value: s} }

func num(d decimal.Decimal) types.AttributeValue { return &types.AttributeValueMemberN{Value: d.String()} }

func (s *Store) stamp() types.AttributeValue {
	return str(s.nowFunc().UTC().Format(time.RFC3339Nano))
}

// PutItem creates o; the item fails if the order id is already taken.
func (s *Store) PutItem(o *Order) (types.TransactWriteItem, error) {
	item, err := attributevalue.MarshalMap(toRecord(o))
	if err != nil {
		return types.TransactWriteItem{}, fmt.Errorf("marshal order item: %w", err)
	}
	return types.TransactWriteItem{Put: &types.Put{
		TableName:           &s.tableName,
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(order_id)"),
	}}, nil
}

// ReplaceItem overwrites o while it is still pending and unpaid.
func (s *Store) ReplaceItem(o *Order) (types.TransactWriteItem, error) {
	item, err := attributevalue.MarshalMap(toRecord(o))
	if err != nil {
		return types.TransactWriteItem{}, fmt.Errorf("marshal order item: %w", err)
	}
	return types.TransactWriteItem{Put: &types.Put{
		TableName:                &s.tableName,
		Item:                     item,
		ConditionExpression:      aws.String("#s = :pending AND payment_status = :unpaid"),
		ExpressionAttributeNames: map[string]string{"#s": "status"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pending": str(string(StatusPending)),
			":unpaid":  str(string(PaymentPending)),
		},
	}}, nil
}

// StatusItem moves the order from expected to next.
func (s *Store) StatusItem(orderID string, expected, next Status) types.TransactWriteItem {
	return types.TransactWriteItem{Update: &types.Update{
		TableName:                &s.tableName,
		Key:                      key(orderID),
		UpdateExpression:         aws.String("SET #s = :new, updated_at = :ua"),
		ConditionExpression:      aws.String("#s = :expected"),
		ExpressionAttributeNames: map[string]string{"#s": "status"},
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":new":      str(string(next)),
			":expected": str(string(expected)),
			":ua":       s.stamp(),
		},
	}}
}

// SettleItem records a completed payment on an unpaid, uncancelled order
// whose total is still total.
func (s *Store) SettleItem(orderID string, p Payment, total decimal.Decimal) types.TransactWriteItem {
	values := map[string]types.AttributeValue{
		":completed": str(string(PaymentCompleted)),
		":unpaid":    str(string(PaymentPending)),
		":cancelled": str(string(StatusCancelled)),
		":method":    str(string(p.Method)),
		":inv":       str(p.InvoiceNumber),
		":total":     num(total),
		":ua":        s.stamp(),
	}
	update := "SET payment_status = :completed, payment_method = :method, invoice_number = :inv, updated_at = :ua"
	if p.ID != "" {
		update += ", payment_id = :pid"
		values[":pid"] = str(p.ID)
	}
	return types.TransactWriteItem{Update: &types.Update{
		TableName:                 &s.tableName,
		Key:                       key(orderID),
		UpdateExpression:          aws.String(update),
		ConditionExpression:       aws.String("payment_status = :unpaid AND #s <> :cancelled AND total = :total"),
		ExpressionAttributeNames:  map[string]string{"#s": "status"},
		ExpressionAttributeValues: values,
	}}
}

// DeleteItem removes an existing order.
func (s *Store) DeleteItem(orderID string) types.TransactWriteItem {
	return types.TransactWriteItem{Delete: &types.Delete{
		TableName:           &s.tableName,
		Key:                 key(orderID),
		ConditionExpression: aws.String("attribute_exists(order_id)"),
	}}
}

// Transact writes items atomically. A failed condition on the first item is
// reported as ErrStatusMismatch; failures on later items are returned as the
// underlying cancellation error.
func (s *Store) Transact(ctx context.Context, items ...types.TransactWriteItem) error {
	_, err := s.client.TransactWriteItems(ctx, &dyn.TransactWriteItemsInput{TransactItems: items})
	if err == nil {
		return nil
	}
	if aws.FirstFailedCondition(err) == 0 {
		return ErrStatusMismatch
	}
	return fmt.Errorf("transact write: %w", err)
}

// Get fetches an order by order_id. Returns (nil, nil) if not found.
func (s *Store) Get(ctx context.Context, orderID string) (*Order, error) {
	out, err := s.client.GetItem(ctx, &dyn.GetItemInput{
		TableName:      &s.tableName,
		Key:            key(orderID),
		ConsistentRead: aws.Bool(true),
	})
	if err != nil {
		return nil, fmt.Errorf("get item: %w", err)
	}
	if len(out.Item) == 0 {
		return nil, nil
	}
	var r record
	if err := attributevalue.UnmarshalMap(out.Item, &r); err != nil {
		return nil, fmt.Errorf("unmarshal order: %w", err)
	}
	return r.order(), nil
}

// List returns orders newest first, optionally only those in one of
// statuses.
func (s *Store) List(ctx context.Context, statuses ...Status) ([]Order, error) {
	in := &dyn.ScanInput{TableName: &s.tableName}
	if len(statuses) > 0 {
		in.ExpressionAttributeNames = map[string]string{"#s": "status"}
		in.ExpressionAttributeValues = map[string]types.AttributeValue{}
		filter := ""
		for i, st := range statuses {
			ph := fmt.Sprintf(":s%d", i)
			in.ExpressionAttributeValues[ph] = str(string(st))
			if i > 0 {
				filter += " OR "
			}
			filter += "#s = " + ph
		}
		in.FilterExpression = &filter
	}

	var out []Order
	for {
		page, err := s.client.Scan(ctx, in)
		if err != nil {
			return nil, fmt.Errorf("scan orders: %w", err)
		}
		var recs []record
		if err := attributevalue.UnmarshalListOfMaps(page.Items, &recs); err != nil {
			return nil, fmt.Errorf("unmarshal orders: %w", err)
		}
		for _, r := range recs {
			out = append(out, *r.order())
		}
		if len(page.LastEvaluatedKey) == 0 {
			break
		}
		in.ExclusiveStartKey = page.LastEvaluatedKey
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

