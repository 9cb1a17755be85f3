package models

import (
	"fmt"
	"time"
)

// OrderStatus is the lifecycle state of a persisted order.
type OrderStatus string

const (
	StatusPending   OrderStatus = "pending"
	StatusActive    OrderStatus = "active"
	StatusDelay     OrderStatus = "delay"
	StatusCompleted OrderStatus = "completed"
	StatusCancelled OrderStatus = "cancelled"
)

// IsTerminal reports whether the status permits no further transitions.
func (s OrderStatus) IsTerminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// ValidStatus reports whether s is one of the known order statuses.
func ValidStatus(s OrderStatus) bool {
	switch s {
	case StatusPending, StatusActive, StatusDelay, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

type Order struct {
	ID              string      `json:"order_id" db:"id"`
	CustomerName    string      `json:"customer_name" db:"customer_name"`
	CustomerHandle  string      `json:"customer_handle" db:"customer_handle"`
	CustomerPhone   string      `json:"customer_phone" db:"customer_phone"`
	CustomerAddress string      `json:"customer_address" db:"customer_address"`
	Items           []LineItem  `json:"items"`
	Status          OrderStatus `json:"status" db:"status"`
	TotalAmount     float64     `json:"total_amount" db:"total_amount"`
	CourierID       string      `json:"courier_id" db:"courier_id"`
	CourierName     string      `json:"courier_name" db:"courier_name"`
	DeliveredAt     *time.Time  `json:"delivered_at" db:"delivered_at"`
	CreatedAt       time.Time   `json:"created_at" db:"created_at"`
}

// LineItem is the wire encoding of one ordered product, as stored in the
// order record's serialized line_items field.
type LineItem struct {
	Name       string  `json:"name"`
	Quantity   int     `json:"quantity"`
	UnitPrice  float64 `json:"unit_price"`
	TotalPrice float64 `json:"total_price"`
}

// Validate checks a decoded line item for structural sanity.
func (li LineItem) Validate() error {
	if li.Name == "" {
		return fmt.Errorf("line item: name cannot be empty")
	}
	if li.Quantity <= 0 {
		return fmt.Errorf("line item %q: quantity must be positive, got %d", li.Name, li.Quantity)
	}
	if li.UnitPrice < 0 {
		return fmt.Errorf("line item %q: unit price cannot be negative", li.Name)
	}
	return nil
}

// AggregateLineItems merges repeated entries for the same product into one
// summed quantity per product name, preserving first-seen order. The same
// product may appear in a cart more than once and must be decremented exactly
// once per unit, not once per occurrence.
func AggregateLineItems(items []LineItem) []LineItem {
	index := make(map[string]int, len(items))
	out := make([]LineItem, 0, len(items))
	for _, item := range items {
		if i, ok := index[item.Name]; ok {
			out[i].Quantity += item.Quantity
			out[i].TotalPrice += item.TotalPrice
			continue
		}
		index[item.Name] = len(out)
		out = append(out, item)
	}
	return out
}
