// Package cart holds the storefront's in-memory shopping cart.
package cart

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/shopspring/decimal"
)

// CurrencyPlaces is the number of decimals prices and totals are kept at
const CurrencyPlaces = 2

var (
	ErrEmptyName      = errors.New("line item name is required")
	ErrInvalidPrice   = errors.New("line item price must be positive")
	ErrPricePrecision = errors.New("line item price has more than 2 decimals")
)

// LineItem is a product in the cart. It is immutable once constructed.
type LineItem struct {
	name  string
	price decimal.Decimal
}

// NewLineItem validates and creates a line item
func NewLineItem(name string, price decimal.Decimal) (LineItem, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return LineItem{}, ErrEmptyName
	}
	if !price.IsPositive() {
		return LineItem{}, fmt.Errorf("%w: %s", ErrInvalidPrice, price)
	}
	if !price.Equal(price.Round(CurrencyPlaces)) {
		return LineItem{}, fmt.Errorf("%w: %s", ErrPricePrecision, price)
	}
	return LineItem{name: name, price: price}, nil
}

// ParseLineItem creates a line item from a decimal price string such as "0.20"
func ParseLineItem(name, price string) (LineItem, error) {
	p, err := decimal.NewFromString(strings.TrimSpace(price))
	if err != nil {
		return LineItem{}, fmt.Errorf("%w: %q", ErrInvalidPrice, price)
	}
	return NewLineItem(name, p)
}

// Name returns the product name
func (i LineItem) Name() string { return i.name }

// Price returns the product price
func (i LineItem) Price() decimal.Decimal { return i.price }

// MarshalJSON renders the item the way the order desk expects it
func (i LineItem) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Product string  `json:"product"`
		Price   float64 `json:"price"`
	}{
		Product: i.name,
		Price:   i.price.InexactFloat64(),
	})
}

// EventType identifies a cart change
type EventType string

const (
	EventAdded   EventType = "added"
	EventRemoved EventType = "removed"
	EventCleared EventType = "cleared"
)

// Event describes a cart change. Index is the position the item had.
type Event struct {
	Type  EventType
	Item  LineItem
	Index int
	Total decimal.Decimal
}

// ChangeHook is called after every cart change, outside the cart's lock
type ChangeHook func(Event)

// Cart is an ordered list of line items. Insertion order is display order.
// The total is always derived from the current items.
type Cart struct {
	mu    sync.RWMutex
	items []LineItem
	hooks []ChangeHook
}

// New creates an empty cart
func New() *Cart {
	return &Cart{}
}

// OnChange registers a hook called after each change
func (c *Cart) OnChange(hook ChangeHook) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hooks = append(c.hooks, hook)
}

// Add appends an item
func (c *Cart) Add(item LineItem) {
	c.mu.Lock()
	c.items = append(c.items, item)
	event := Event{Type: EventAdded, Item: item, Index: len(c.items) - 1, Total: c.totalLocked()}
	hooks := c.hooks
	c.mu.Unlock()

	notify(hooks, event)
}

// Remove deletes the item at index. An out-of-range index leaves the cart
// unchanged and returns false.
func (c *Cart) Remove(index int) bool {
	c.mu.Lock()
	if index < 0 || index >= len(c.items) {
		c.mu.Unlock()
		return false
	}
	item := c.items[index]
	c.items = append(c.items[:index:index], c.items[index+1:]...)
	event := Event{Type: EventRemoved, Item: item, Index: index, Total: c.totalLocked()}
	hooks := c.hooks
	c.mu.Unlock()

	notify(hooks, event)
	return true
}

// Clear empties the cart
func (c *Cart) Clear() {
	c.mu.Lock()
	c.items = nil
	hooks := c.hooks
	c.mu.Unlock()

	notify(hooks, Event{Type: EventCleared, Index: -1, Total: decimal.Zero})
}

// Total returns the sum of the current prices rounded to 2 decimals
func (c *Cart) Total() decimal.Decimal {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.totalLocked()
}

func (c *Cart) totalLocked() decimal.Decimal {
	return Sum(c.items)
}

// Sum returns the total of items rounded to 2 decimals
func Sum(items []LineItem) decimal.Decimal {
	total := decimal.Zero
	for _, item := range items {
		total = total.Add(item.price)
	}
	return total.Round(CurrencyPlaces)
}

// Items returns a copy of the current items
func (c *Cart) Items() []LineItem {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]LineItem, len(c.items))
	copy(out, c.items)
	return out
}

// Len returns the number of items
func (c *Cart) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// IsEmpty reports whether the cart has no items
func (c *Cart) IsEmpty() bool {
	return c.Len() == 0
}

// MarshalItems renders items as the 2-space indented JSON array submitted
// with orders. No items render as [].
func MarshalItems(items []LineItem) ([]byte, error) {
	if items == nil {
		items = []LineItem{}
	}
	return json.MarshalIndent(items, "", "  ")
}

// FormatTotal renders an amount with two decimals, e.g. "0.20"
func FormatTotal(total decimal.Decimal) string {
	return total.StringFixed(CurrencyPlaces)
}

func notify(hooks []ChangeHook, event Event) {
	for _, hook := range hooks {
		hook(event)
	}
}
