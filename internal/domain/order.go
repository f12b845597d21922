package domain

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/google/uuid"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "PENDING"
	OrderStatusConfirmed  OrderStatus = "CONFIRMED"
	OrderStatusProcessing OrderStatus = "PROCESSING"
	OrderStatusShipped    OrderStatus = "SHIPPED"
	OrderStatusDelivered  OrderStatus = "DELIVERED"
	OrderStatusCancelled  OrderStatus = "CANCELLED"
	OrderStatusRefunded   OrderStatus = "REFUNDED"
)

func (s OrderStatus) IsValid() bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusProcessing,
		OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled, OrderStatusRefunded:
		return true
	}
	return false
}

func (s OrderStatus) IsTerminal() bool {
	return s == OrderStatusDelivered || s == OrderStatusCancelled || s == OrderStatusRefunded
}

// CanTransitionTo enforces the order lifecycle. Only the status
// updater and admin surface move orders forward; shoppers never do.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	allowed, ok := orderTransitions[s]
	if !ok {
		return false
	}
	for _, a := range allowed {
		if a == next {
			return true
		}
	}
	return false
}

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusConfirmed, OrderStatusCancelled},
	OrderStatusConfirmed:  {OrderStatusProcessing, OrderStatusCancelled, OrderStatusRefunded},
	OrderStatusProcessing: {OrderStatusShipped, OrderStatusCancelled, OrderStatusRefunded},
	OrderStatusShipped:    {OrderStatusDelivered, OrderStatusRefunded},
	OrderStatusDelivered:  {OrderStatusRefunded},
}

// Customer is the contact block captured at checkout.
type Customer struct {
	Name  string
	Email string
	CPF   string
	Phone string
}

// Address is a Brazilian shipping address.
type Address struct {
	Street       string
	Number       string
	Complement   string
	Neighborhood string
	City         string
	State        string
	CEP          string
}

func (a Address) String() string {
	s := fmt.Sprintf("%s, %s", a.Street, a.Number)
	if a.Complement != "" {
		s += ", " + a.Complement
	}
	return fmt.Sprintf("%s, %s, %s - %s, CEP: %s", s, a.Neighborhood, a.City, a.State, a.CEP)
}

// ProductSnapshot preserves what was sold even if the catalog row is
// later edited or removed.
type ProductSnapshot struct {
	ProductName string    `json:"product_name"`
	SKUCode     string    `json:"sku_code"`
	Condition   Condition `json:"condition"`
	Language    Language  `json:"language"`
	Foil        bool      `json:"is_foil"`
	SetName     string    `json:"set_name"`
	Rarity      Rarity    `json:"rarity"`
}

type OrderItem struct {
	ID             uuid.UUID
	SKUID          uuid.UUID
	Quantity       int64
	UnitPriceCents int64
	LineTotalCents int64
	Snapshot       ProductSnapshot
}

// Order is an immutable snapshot of a submitted cart plus shopper
// data. Totals are computed server-side at creation; nothing mutates
// an order afterwards except its status.
type Order struct {
	ID            uuid.UUID
	Number        string
	Status        OrderStatus
	Customer      Customer
	Shipping      Address
	SubtotalCents int64
	ShippingCents int64
	DiscountCents int64
	TotalCents    int64
	Currency      string
	Notes         string
	TrackingCode  string
	Items         []OrderItem
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

func (o *Order) TotalItems() int64 {
	var count int64
	for i := range o.Items {
		count += o.Items[i].Quantity
	}
	return count
}

// NewOrderNumber builds a human-readable order number in the form
// NCH-YYYYMMDD-XXXXX. Uniqueness is enforced by the database; callers
// retry with a fresh number on collision.
func NewOrderNumber(now time.Time) string {
	digits := make([]byte, 5)
	for i := range digits {
		digits[i] = byte('0' + rand.Intn(10))
	}
	return fmt.Sprintf("NCH-%s-%s", now.Format("20060102"), digits)
}
