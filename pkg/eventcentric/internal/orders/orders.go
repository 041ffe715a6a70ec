// Package orders is a small order aggregate used by eventcentric tests.
package orders

import (
	"errors"
	"fmt"

	"github.com/randalmurphal/eventcentric/pkg/eventcentric/aggregate"
	"github.com/randalmurphal/eventcentric/pkg/eventcentric/contract"
	"github.com/randalmurphal/eventcentric/pkg/eventcentric/identity"
)

// Contract is the aggregate contract of Order ("orders.Order").
var Contract = contract.MustOf((*Order)(nil))

// ErrAlreadyPaid is returned when paying an order that is fully paid.
var ErrAlreadyPaid = errors.New("order already paid in full")

// OrderID identifies an order.
type OrderID = identity.ID

// ProductID identifies a product.
type ProductID = identity.ID

// ProductWasOrdered starts an order.
type ProductWasOrdered struct {
	OrderID   string `json:"order_id" yaml:"order_id"`
	ProductID string `json:"product_id" yaml:"product_id"`
	Price     int    `json:"price" yaml:"price"`
}

// PaymentWasMade records a (partial) payment.
type PaymentWasMade struct {
	OrderID string `json:"order_id" yaml:"order_id"`
	Amount  int    `json:"amount" yaml:"amount"`
}

// OrderWasPaidInFull is recorded once payments reach the price.
type OrderWasPaidInFull struct {
	OrderID string `json:"order_id" yaml:"order_id"`
}

// Events returns one sample of each event type, for serializer registration.
func Events() []any {
	return []any{ProductWasOrdered{}, PaymentWasMade{}, OrderWasPaidInFull{}}
}

// Order is an event-sourced order for a single product.
type Order struct {
	aggregate.Base

	id         OrderID
	productID  ProductID
	price      int
	paid       int
	paidInFull bool
}

// New returns an empty Order with its handlers registered.
func New() *Order {
	o := &Order{}
	aggregate.On(&o.Base, o.whenProductWasOrdered)
	aggregate.On(&o.Base, o.whenPaymentWasMade)
	aggregate.On(&o.Base, o.whenOrderWasPaidInFull)
	return o
}

// Factory builds empty orders for a Reconstituter.
func Factory() aggregate.Root {
	return New()
}

// OrderProduct places a new order.
func OrderProduct(id OrderID, productID ProductID, price int) (*Order, error) {
	if price <= 0 {
		return nil, fmt.Errorf("order product: price must be positive, got %d", price)
	}
	o := New()
	if err := o.Record(ProductWasOrdered{
		OrderID:   id.String(),
		ProductID: productID.String(),
		Price:     price,
	}); err != nil {
		return nil, err
	}
	return o, nil
}

// Pay records a payment, and OrderWasPaidInFull once the price is covered.
func (o *Order) Pay(amount int) error {
	if o.paidInFull {
		return ErrAlreadyPaid
	}
	if amount <= 0 {
		return fmt.Errorf("pay: amount must be positive, got %d", amount)
	}
	if err := o.Record(PaymentWasMade{OrderID: o.id.String(), Amount: amount}); err != nil {
		return err
	}
	if o.paid >= o.price {
		return o.Record(OrderWasPaidInFull{OrderID: o.id.String()})
	}
	return nil
}

// ID returns the order id.
func (o *Order) ID() OrderID { return o.id }

// ProductID returns the ordered product.
func (o *Order) ProductID() ProductID { return o.productID }

// Price returns the order price.
func (o *Order) Price() int { return o.price }

// Paid returns the total paid so far.
func (o *Order) Paid() int { return o.paid }

// IsPaidInFull reports whether the order is fully paid.
func (o *Order) IsPaidInFull() bool { return o.paidInFull }

func (o *Order) whenProductWasOrdered(e ProductWasOrdered) {
	o.id = OrderID(e.OrderID)
	o.productID = ProductID(e.ProductID)
	o.price = e.Price
}

func (o *Order) whenPaymentWasMade(e PaymentWasMade) {
	o.paid += e.Amount
}

func (o *Order) whenOrderWasPaidInFull(OrderWasPaidInFull) {
	o.paidInFull = true
}
