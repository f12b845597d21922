package domain

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewOrderNumber_Format(t *testing.T) {
	now := time.Date(2026, 3, 14, 10, 30, 0, 0, time.UTC)
	pattern := regexp.MustCompile(`^NCH-20260314-\d{5}$`)

	for i := 0; i < 50; i++ {
		number := NewOrderNumber(now)
		assert.Regexp(t, pattern, number)
	}
}

func TestOrderStatus_Transitions(t *testing.T) {
	tests := []struct {
		from, to OrderStatus
		ok       bool
	}{
		{OrderStatusPending, OrderStatusConfirmed, true},
		{OrderStatusPending, OrderStatusCancelled, true},
		{OrderStatusPending, OrderStatusShipped, false},
		{OrderStatusConfirmed, OrderStatusProcessing, true},
		{OrderStatusProcessing, OrderStatusShipped, true},
		{OrderStatusShipped, OrderStatusDelivered, true},
		{OrderStatusDelivered, OrderStatusRefunded, true},
		{OrderStatusCancelled, OrderStatusConfirmed, false},
		{OrderStatusRefunded, OrderStatusPending, false},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.ok, tt.from.CanTransitionTo(tt.to), "%s -> %s", tt.from, tt.to)
	}
}

func TestOrderStatus_Terminal(t *testing.T) {
	assert.True(t, OrderStatusCancelled.IsTerminal())
	assert.True(t, OrderStatusRefunded.IsTerminal())
	assert.False(t, OrderStatusPending.IsTerminal())
	assert.False(t, OrderStatusShipped.IsTerminal())
}

func TestAddress_String(t *testing.T) {
	addr := Address{
		Street:       "Rua Augusta",
		Number:       "1500",
		Complement:   "Apto 32",
		Neighborhood: "Consolação",
		City:         "São Paulo",
		State:        "SP",
		CEP:          "01304-001",
	}
	assert.Equal(t,
		"Rua Augusta, 1500, Apto 32, Consolação, São Paulo - SP, CEP: 01304-001",
		addr.String())
}

func TestSKU_EffectivePriceCents(t *testing.T) {
	sale := int64(750)
	sku := &SKU{PriceCents: 1000}
	assert.Equal(t, int64(1000), sku.EffectivePriceCents())

	sku.SalePriceCents = &sale
	assert.Equal(t, int64(750), sku.EffectivePriceCents())
}

func TestOrder_TotalItems(t *testing.T) {
	order := &Order{Items: []OrderItem{{Quantity: 2}, {Quantity: 3}}}
	assert.Equal(t, int64(5), order.TotalItems())
}
