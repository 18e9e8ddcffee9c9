// Package kitchen drives orders through preparation and keeps the kitchen
// display in sync.
package kitchen

import (
	"context"
	"sort"
	"time"

	"github.com/sumanshinde/Rpos/internal/apperr"
	"github.com/sumanshinde/Rpos/internal/orders"
)

// OrderFlow is the part of the order service the kitchen drives.
type OrderFlow interface {
	GetOrder(ctx context.Context, id string) (*orders.Order, error)
	UpdateOrderStatus(ctx context.Context, id string, next orders.Status) (*orders.Order, error)
	OpenOrders(ctx context.Context) ([]orders.Order, error)
}

type Workflow struct {
	orders  OrderFlow
	nowFunc func() time.Time
}

func NewWorkflow(o OrderFlow) *Workflow {
	return &Workflow{orders: o, nowFunc: time.Now}
}

// Start moves a pending order to preparing.
func (w *Workflow) Start(ctx context.Context, id string) (*orders.Order, error) {
	return w.advance(ctx, id, orders.StatusPending, orders.StatusPreparing)
}

// Complete marks a preparing order ready, which frees its table.
func (w *Workflow) Complete(ctx context.Context, id string) (*orders.Order, error) {
	return w.advance(ctx, id, orders.StatusPreparing, orders.StatusReady)
}

// Serve hands a ready order to the guest.
func (w *Workflow) Serve(ctx context.Context, id string) (*orders.Order, error) {
	return w.advance(ctx, id, orders.StatusReady, orders.StatusServed)
}

// advance is a no-op when the order already reached to; any other source
// status is a conflict.
func (w *Workflow) advance(ctx context.Context, id string, from, to orders.Status) (*orders.Order, error) {
	o, err := w.orders.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	switch o.Status {
	case to:
		return o, nil
	case from:
		return w.orders.UpdateOrderStatus(ctx, id, to)
	default:
		return nil, apperr.Conflict("order %s is %s, expected %s", o.OrderNumber, o.Status, from)
	}
}

// Board is the kitchen display: open orders per column, oldest first.
type Board struct {
	Pending     []orders.Order `json:"pending"`
	Preparing   []orders.Order `json:"preparing"`
	Ready       []orders.Order `json:"ready"`
	GeneratedAt time.Time      `json:"generatedAt"`
}

func (w *Workflow) Board(ctx context.Context) (*Board, error) {
	open, err := w.orders.OpenOrders(ctx)
	if err != nil {
		return nil, err
	}
	return NewBoard(open, w.nowFunc().UTC()), nil
}

// NewBoard groups orders by kitchen status. Orders outside the kitchen flow
// are dropped.
func NewBoard(list []orders.Order, at time.Time) *Board {
	sorted := make([]orders.Order, len(list))
	copy(sorted, list)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].CreatedAt.Before(sorted[j].CreatedAt) })

	b := &Board{Pending: []orders.Order{}, Preparing: []orders.Order{}, Ready: []orders.Order{}, GeneratedAt: at}
	for _, o := range sorted {
		switch o.Status {
		case orders.StatusPending:
			b.Pending = append(b.Pending, o)
		case orders.StatusPreparing:
			b.Preparing = append(b.Preparing, o)
		case orders.StatusReady:
			b.Ready = append(b.Ready, o)
		}
	}
	return b
}

// Len is the number of orders on the board.
func (b *Board) Len() int { return len(b.Pending) + len(b.Preparing) + len(b.Ready) }

// Change is one order moving on the board. From is empty for a new order,
// To is empty for an order that left the board.
type Change struct {
	OrderID     string        `json:"orderId"`
	OrderNumber string        `json:"orderNumber"`
	From        orders.Status `json:"from,omitempty"`
	To          orders.Status `json:"to,omitempty"`
}

func (b *Board) index() map[string]orders.Order {
	m := make(map[string]orders.Order, b.Len())
	for _, col := range [][]orders.Order{b.Pending, b.Preparing, b.Ready} {
		for _, o := range col {
			m[o.ID] = o
		}
	}
	return m
}

// Diff lists what changed from prev to b. A nil prev counts as empty.
func (b *Board) Diff(prev *Board) []Change {
	before := map[string]orders.Order{}
	if prev != nil {
		before = prev.index()
	}
	after := b.index()

	var out []Change
	for _, col := range [][]orders.Order{b.Pending, b.Preparing, b.Ready} {
		for _, o := range col {
			old, ok := before[o.ID]
			switch {
			case !ok:
				out = append(out, Change{OrderID: o.ID, OrderNumber: o.OrderNumber, To: o.Status})
			case old.Status != o.Status:
				out = append(out, Change{OrderID: o.ID, OrderNumber: o.OrderNumber, From: old.Status, To: o.Status})
			}
		}
	}
	if prev != nil {
		for _, col := range [][]orders.Order{prev.Pending, prev.Preparing, prev.Ready} {
			for _, o := range col {
				if _, ok := after[o.ID]; !ok {
					out = append(out, Change{OrderID: o.ID, OrderNumber: o.OrderNumber, From: o.Status})
				}
			}
		}
	}
	return out
}
