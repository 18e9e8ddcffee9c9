package orders

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/sumanshinde/Rpos/internal/apperr"
	"github.com/sumanshinde/Rpos/internal/aws"
	"github.com/sumanshinde/Rpos/internal/logging"
	"github.com/sumanshinde/Rpos/internal/pricing"
	"github.com/sumanshinde/Rpos/internal/tables"
	"github.com/sumanshinde/Rpos/internal/uniqueness"
)

// orderCounter is the counter key behind ORD-NNNNNN numbers.
const orderCounter = "order"

// TableCoordinator reserves and releases dining tables as part of order
// transactions.
type TableCoordinator interface {
	Get(ctx context.Context, id string) (*tables.Table, error)
	ReserveItem(tableID, orderID string) types.TransactWriteItem
	ReleaseItem(tableID, orderID string) types.TransactWriteItem
	ConditionError(ctx context.Context, tableID string) error
}

type Sequencer interface {
	Next(ctx context.Context, key string) (int64, error)
}

// GuardWriter claims unique values inside a transaction.
type GuardWriter interface {
	PutItem(key, owner string) types.TransactWriteItem
}

type EventPublisher interface {
	Publish(ctx context.Context, eventType string, payload interface{}, attributes map[string]string) error
}

type MetricsRecorder interface {
	Count(ctx context.Context, name string, value float64, dims map[string]string) error
	Amount(ctx context.Context, name string, value float64, dims map[string]string) error
}

// Deps groups the collaborators of the order service. Events and Metrics
// may be nil.
type Deps struct {
	Store    *Store
	Tables   TableCoordinator
	Sequence Sequencer
	Guards   GuardWriter
	Events   EventPublisher
	Metrics  MetricsRecorder
}

// Service owns the order lifecycle: creation with server-side totals,
// edits, status transitions and settlement bookkeeping.
type Service struct {
	store   *Store
	tables  TableCoordinator
	seq     Sequencer
	guards  GuardWriter
	events  EventPublisher
	metrics MetricsRecorder
	nowFunc func() time.Time
}

func NewService(d Deps) *Service {
	return &Service{
		store:   d.Store,
		tables:  d.Tables,
		seq:     d.Sequence,
		guards:  d.Guards,
		events:  d.Events,
		metrics: d.Metrics,
		nowFunc: time.Now,
	}
}

// txn collects transaction items together with a function explaining a
// failed condition on each of them.
type txn struct {
	items   []types.TransactWriteItem
	explain []func(context.Context) error
}

func (t *txn) add(item types.TransactWriteItem, explain func(context.Context) error) {
	t.items = append(t.items, item)
	t.explain = append(t.explain, explain)
}

func (s *Service) commit(ctx context.Context, t *txn) error {
	err := s.store.Transact(ctx, t.items...)
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrStatusMismatch) {
		return t.explain[0](ctx)
	}
	if i := aws.FirstFailedCondition(err); i > 0 && i < len(t.explain) {
		return t.explain[i](ctx)
	}
	return err
}

// Quote validates lines and returns their totals. A non-nil claimed must
// agree with the computed totals within pricing.Tolerance.
func (s *Service) Quote(items []Item, discountPercent decimal.Decimal, claimed *pricing.Totals) (pricing.Totals, error) {
	fields := map[string]string{}
	validateItems(items, fields)
	validateDiscount(discountPercent, fields)
	if len(fields) > 0 {
		return pricing.Totals{}, apperr.Validation("invalid order").WithFields(fields)
	}
	return checkTotals(items, discountPercent, claimed)
}

func checkTotals(items []Item, discountPercent decimal.Decimal, claimed *pricing.Totals) (pricing.Totals, error) {
	totals := pricing.ComputeTotals(Lines(items), discountPercent)
	if claimed != nil && !totals.Matches(*claimed) {
		return totals, apperr.Validation("submitted totals do not match the order").WithFields(map[string]string{
			"total": "expected " + totals.Total.StringFixed(2),
		})
	}
	return totals, nil
}

func validateItems(items []Item, fields map[string]string) {
	if len(items) == 0 {
		fields["items"] = "an order needs at least one item"
	}
	for i, it := range items {
		if strings.TrimSpace(it.Name) == "" {
			fields[fmt.Sprintf("items[%d].name", i)] = "name is required"
		}
		if it.Quantity < 1 {
			fields[fmt.Sprintf("items[%d].quantity", i)] = "quantity must be at least 1"
		}
		if it.UnitPrice.IsNegative() {
			fields[fmt.Sprintf("items[%d].price", i)] = "price cannot be negative"
		}
	}
}

func validateDiscount(p decimal.Decimal, fields map[string]string) {
	if p.IsNegative() || p.GreaterThan(decimal.NewFromInt(100)) {
		fields["discountPercent"] = "discount must be between 0 and 100"
	}
}

func normalize(in *CreateInput) error {
	fields := map[string]string{}
	validateItems(in.Items, fields)
	validateDiscount(in.DiscountPercent, fields)

	in.Waiter = strings.TrimSpace(in.Waiter)
	in.TableID = strings.TrimSpace(in.TableID)
	if in.Waiter == "" {
		fields["waiter"] = "waiter is required"
	}
	if in.OrderType == "" {
		in.OrderType = TypeDineIn
	}
	switch {
	case !in.OrderType.Valid():
		fields["orderType"] = "order type is one of dine-in, takeaway, delivery"
	case in.OrderType == TypeDineIn && in.TableID == "":
		fields["tableId"] = "a dine-in order needs a table"
	case in.OrderType != TypeDineIn:
		in.TableID = ""
	}
	if in.PaymentMethod == "" {
		in.PaymentMethod = MethodCard
	}
	if !in.PaymentMethod.Valid() {
		fields["paymentMethod"] = "payment method is one of cash, card, qr"
	}
	if len(fields) > 0 {
		return apperr.Validation("invalid order").WithFields(fields)
	}
	return nil
}

// newOrder validates in and builds an unsaved pending order.
func (s *Service) newOrder(ctx context.Context, in CreateInput) (*Order, error) {
	if err := normalize(&in); err != nil {
		return nil, err
	}
	totals, err := checkTotals(in.Items, in.DiscountPercent, in.Claimed)
	if err != nil {
		return nil, err
	}

	var tableNumber string
	if in.TableID != "" {
		tbl, err := s.tables.Get(ctx, in.TableID)
		if err != nil {
			return nil, err
		}
		if tbl.Status != tables.StatusAvailable {
			return nil, apperr.Conflict("table %s is %s", tbl.TableNumber, tbl.Status)
		}
		tableNumber = tbl.TableNumber
	}

	n, err := s.seq.Next(ctx, orderCounter)
	if err != nil {
		return nil, fmt.Errorf("order number: %w", err)
	}

	now := s.nowFunc().UTC()
	o := &Order{
		ID:              uuid.NewString(),
		OrderNumber:     fmt.Sprintf("ORD-%06d", n),
		TableID:         in.TableID,
		TableNumber:     tableNumber,
		Waiter:          in.Waiter,
		Items:           append([]Item(nil), in.Items...),
		Status:          StatusPending,
		OrderType:       in.OrderType,
		DiscountPercent: in.DiscountPercent,
		Subtotal:        totals.Subtotal,
		Discount:        totals.DiscountAmount,
		Tax:             totals.Tax,
		Total:           totals.Total,
		PaymentMethod:   in.PaymentMethod,
		PaymentStatus:   PaymentPending,
		CreatedBy:       in.CreatedBy,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	if in.Customer != nil {
		c := *in.Customer
		o.Customer = &c
	}
	return o, nil
}

// createTxn writes o and, for table orders, reserves the table.
func (s *Service) createTxn(o *Order) (*txn, error) {
	put, err := s.store.PutItem(o)
	if err != nil {
		return nil, err
	}
	t := &txn{}
	t.add(put, func(context.Context) error { return apperr.Conflict("order %s already exists", o.ID) })
	if o.TableID != "" {
		tableID := o.TableID
		t.add(s.tables.ReserveItem(tableID, o.ID), func(ctx context.Context) error {
			return s.tables.ConditionError(ctx, tableID)
		})
	}
	return t, nil
}

// CreateOrder persists a pending, unpaid order. Dine-in orders occupy their
// table in the same transaction.
func (s *Service) CreateOrder(ctx context.Context, in CreateInput) (*Order, error) {
	o, err := s.newOrder(ctx, in)
	if err != nil {
		return nil, err
	}
	t, err := s.createTxn(o)
	if err != nil {
		return nil, err
	}
	if err := s.commit(ctx, t); err != nil {
		return nil, err
	}

	logging.FromContext(ctx).WithFields(logrus.Fields{
		"order_id": o.ID, "order_number": o.OrderNumber, "table_id": o.TableID,
	}).Info("order created")
	s.publish(ctx, EventCreated, o, "")
	s.count(ctx, "OrdersCreated", map[string]string{"OrderType": string(o.OrderType)})
	return o, nil
}

// CreateSettledOrder persists an order that is paid at creation. check, if
// set, sees the priced order before anything is written.
func (s *Service) CreateSettledOrder(ctx context.Context, in CreateInput, p Payment, check func(*Order) error) (*Order, error) {
	if err := validatePayment(p); err != nil {
		return nil, err
	}
	o, err := s.newOrder(ctx, in)
	if err != nil {
		return nil, err
	}
	if check != nil {
		if err := check(o); err != nil {
			return nil, err
		}
	}
	if err := issueInvoice(ctx, &p); err != nil {
		return nil, err
	}
	o.PaymentMethod = p.Method
	o.PaymentStatus = PaymentCompleted
	o.PaymentID = p.ID
	o.InvoiceNumber = p.InvoiceNumber

	t, err := s.createTxn(o)
	if err != nil {
		return nil, err
	}
	s.addInvoiceGuard(t, o.ID, p.InvoiceNumber)
	if err := s.commit(ctx, t); err != nil {
		return nil, err
	}

	logging.FromContext(ctx).WithFields(logrus.Fields{
		"order_id": o.ID, "order_number": o.OrderNumber, "invoice": o.InvoiceNumber,
	}).Info("order created and settled")
	s.publish(ctx, EventCreated, o, "")
	s.publish(ctx, EventSettled, o, "")
	s.count(ctx, "OrdersCreated", map[string]string{"OrderType": string(o.OrderType)})
	s.settledMetrics(ctx, o)
	return o, nil
}

// SettleOrder records payment on an existing unpaid order. check, if set,
// sees the stored order; the write is conditional on the total it saw.
func (s *Service) SettleOrder(ctx context.Context, id string, p Payment, check func(*Order) error) (*Order, error) {
	if err := validatePayment(p); err != nil {
		return nil, err
	}
	o, err := s.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := settleable(o); err != nil {
		return nil, err
	}
	if check != nil {
		if err := check(o); err != nil {
			return nil, err
		}
	}
	if err := issueInvoice(ctx, &p); err != nil {
		return nil, err
	}

	t := &txn{}
	t.add(s.store.SettleItem(o.ID, p, o.Total), func(ctx context.Context) error {
		cur, err := s.GetOrder(ctx, id)
		if err != nil {
			return err
		}
		if err := settleable(cur); err != nil {
			return err
		}
		return apperr.Conflict("order %s changed during settlement", cur.OrderNumber)
	})
	s.addInvoiceGuard(t, o.ID, p.InvoiceNumber)
	if err := s.commit(ctx, t); err != nil {
		return nil, err
	}

	o.PaymentMethod = p.Method
	o.PaymentStatus = PaymentCompleted
	if p.ID != "" {
		o.PaymentID = p.ID
	}
	o.InvoiceNumber = p.InvoiceNumber
	o.UpdatedAt = s.nowFunc().UTC()

	logging.FromContext(ctx).WithFields(logrus.Fields{
		"order_id": o.ID, "invoice": o.InvoiceNumber,
	}).Info("order settled")
	s.publish(ctx, EventSettled, o, "")
	s.settledMetrics(ctx, o)
	return o, nil
}

func settleable(o *Order) error {
	if o.PaymentStatus == PaymentCompleted {
		return apperr.Conflict("order %s is already paid", o.OrderNumber)
	}
	if o.Status == StatusCancelled {
		return apperr.Conflict("order %s is cancelled", o.OrderNumber)
	}
	return nil
}

func validatePayment(p Payment) error {
	if !p.Method.Valid() {
		return apperr.Validation("unknown payment method %q", p.Method)
	}
	if p.InvoiceNumber == "" && p.Invoice == nil {
		return apperr.Validation("invoice number is required")
	}
	return nil
}

// issueInvoice fills p.InvoiceNumber from p.Invoice when it is still empty.
func issueInvoice(ctx context.Context, p *Payment) error {
	if p.InvoiceNumber != "" {
		return nil
	}
	n, err := p.Invoice(ctx)
	if err != nil {
		return fmt.Errorf("invoice number: %w", err)
	}
	p.InvoiceNumber = n
	return nil
}

func (s *Service) addInvoiceGuard(t *txn, orderID, number string) {
	t.add(s.guards.PutItem(uniqueness.Key(uniqueness.Invoice, number), orderID), func(context.Context) error {
		return apperr.Conflict("invoice %s already issued", number)
	})
}

// GetOrder returns the order or a NotFound error.
func (s *Service) GetOrder(ctx context.Context, id string) (*Order, error) {
	o, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if o == nil {
		return nil, apperr.NotFound("no order found with id %s", id)
	}
	return o, nil
}

// ListOrders returns orders newest first, filtered by status when set.
func (s *Service) ListOrders(ctx context.Context, status Status) ([]Order, error) {
	if status == "" {
		return s.store.List(ctx)
	}
	if !status.Valid() {
		return nil, apperr.Validation("unknown order status %q", status)
	}
	return s.store.List(ctx, status)
}

// OpenOrders returns orders still in the kitchen flow.
func (s *Service) OpenOrders(ctx context.Context) ([]Order, error) {
	return s.store.List(ctx, StatusPending, StatusPreparing, StatusReady)
}

// UpdateOrder edits a pending, unpaid order and recomputes its totals.
func (s *Service) UpdateOrder(ctx context.Context, id string, in UpdateInput) (*Order, error) {
	o, err := s.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.Status != StatusPending || o.PaymentStatus != PaymentPending {
		return nil, apperr.Conflict("only pending, unpaid orders can be edited")
	}

	fields := map[string]string{}
	if in.Waiter != nil {
		o.Waiter = strings.TrimSpace(*in.Waiter)
		if o.Waiter == "" {
			fields["waiter"] = "waiter is required"
		}
	}
	if in.Items != nil {
		validateItems(in.Items, fields)
		o.Items = append([]Item(nil), in.Items...)
	}
	if in.DiscountPercent != nil {
		validateDiscount(*in.DiscountPercent, fields)
		o.DiscountPercent = *in.DiscountPercent
	}
	if in.PaymentMethod != nil {
		if !in.PaymentMethod.Valid() {
			fields["paymentMethod"] = "payment method is one of cash, card, qr"
		}
		o.PaymentMethod = *in.PaymentMethod
	}
	if in.Customer != nil {
		c := *in.Customer
		o.Customer = &c
	}
	if len(fields) > 0 {
		return nil, apperr.Validation("invalid order").WithFields(fields)
	}

	totals := pricing.ComputeTotals(Lines(o.Items), o.DiscountPercent)
	o.Subtotal, o.Discount, o.Tax, o.Total = totals.Subtotal, totals.DiscountAmount, totals.Tax, totals.Total
	o.UpdatedAt = s.nowFunc().UTC()

	put, err := s.store.ReplaceItem(o)
	if err != nil {
		return nil, err
	}
	t := &txn{}
	t.add(put, func(ctx context.Context) error {
		if _, err := s.GetOrder(ctx, id); err != nil {
			return err
		}
		return apperr.Conflict("order %s changed concurrently", o.OrderNumber)
	})
	if err := s.commit(ctx, t); err != nil {
		return nil, err
	}
	return o, nil
}

// DeleteOrder removes an order and frees the table it holds.
func (s *Service) DeleteOrder(ctx context.Context, id string) error {
	o, err := s.GetOrder(ctx, id)
	if err != nil {
		return err
	}
	t := &txn{}
	t.add(s.store.DeleteItem(id), func(context.Context) error {
		return apperr.NotFound("no order found with id %s", id)
	})
	if err := s.addRelease(ctx, t, o); err != nil {
		return err
	}
	if err := s.commit(ctx, t); err != nil {
		return err
	}
	logging.FromContext(ctx).WithField("order_id", id).Info("order deleted")
	return nil
}

// UpdateOrderStatus applies a forward-only status change. Setting the
// current status again is a no-op. Entering ready or cancelled frees the
// order's table in the same transaction.
func (s *Service) UpdateOrderStatus(ctx context.Context, id string, next Status) (*Order, error) {
	if !next.Valid() {
		return nil, apperr.Validation("unknown order status %q", next)
	}
	o, err := s.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	if o.Status == next {
		return o, nil
	}
	if !CanTransition(o.Status, next) {
		return nil, apperr.Conflict("cannot move order %s from %s to %s", o.OrderNumber, o.Status, next)
	}

	prev := o.Status
	t := &txn{}
	t.add(s.store.StatusItem(id, prev, next), func(ctx context.Context) error {
		if _, err := s.GetOrder(ctx, id); err != nil {
			return err
		}
		return apperr.Conflict("order %s changed concurrently", o.OrderNumber)
	})
	if releasesTable(next) {
		if err := s.addRelease(ctx, t, o); err != nil {
			return nil, err
		}
	}
	if err := s.commit(ctx, t); err != nil {
		return nil, err
	}

	o.Status = next
	o.UpdatedAt = s.nowFunc().UTC()
	logging.FromContext(ctx).WithFields(logrus.Fields{
		"order_id": o.ID, "from": prev, "to": next,
	}).Info("order status changed")
	s.publish(ctx, EventStatusChanged, o, prev)
	s.count(ctx, "OrderStatusChanged", map[string]string{"Status": string(next)})
	return o, nil
}

// addRelease frees o's table if o still holds it.
func (s *Service) addRelease(ctx context.Context, t *txn, o *Order) error {
	if o.TableID == "" {
		return nil
	}
	tbl, err := s.tables.Get(ctx, o.TableID)
	if apperr.Is(err, apperr.KindNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if tbl.CurrentOrderID != o.ID {
		return nil
	}
	t.add(s.tables.ReleaseItem(tbl.ID, o.ID), func(context.Context) error {
		return apperr.Conflict("table %s changed concurrently", tbl.TableNumber)
	})
	return nil
}

func (s *Service) publish(ctx context.Context, eventType string, o *Order, prev Status) {
	if s.events == nil {
		return
	}
	ev := Event{
		ID:             uuid.NewString(),
		Type:           eventType,
		OrderID:        o.ID,
		OrderNumber:    o.OrderNumber,
		Status:         o.Status,
		PreviousStatus: prev,
		PaymentMethod:  o.PaymentMethod,
		InvoiceNumber:  o.InvoiceNumber,
		Total:          o.Total,
		OccurredAt:     s.nowFunc().UTC(),
	}
	if o.Customer != nil {
		ev.CustomerPhone = o.Customer.Phone
	}
	attrs := map[string]string{"order_id": o.ID, "event_id": ev.ID}
	if err := s.events.Publish(ctx, eventType, ev, attrs); err != nil {
		logging.FromContext(ctx).WithError(err).WithField("order_id", o.ID).Warn("publish order event")
	}
}

func (s *Service) count(ctx context.Context, name string, dims map[string]string) {
	if s.metrics == nil {
		return
	}
	if err := s.metrics.Count(ctx, name, 1, dims); err != nil {
		logging.FromContext(ctx).WithError(err).Warn("record metric")
	}
}

func (s *Service) settledMetrics(ctx context.Context, o *Order) {
	dims := map[string]string{"PaymentMethod": string(o.PaymentMethod)}
	s.count(ctx, "OrdersSettled", dims)
	if s.metrics == nil {
		return
	}
	if err := s.metrics.Amount(ctx, "SettledAmount", o.Total.InexactFloat64(), dims); err != nil {
		logging.FromContext(ctx).WithError(err).Warn("record metric")
	}
}
