// Package bundle implements the custom gift bundle: a bounded, quantity
// tracked selection of individually sold products built up across the
// selection, review and checkout steps.
//
// Rejected mutations are silent: state is left untouched and the mutator
// reports false. Callers use CanAddMore and IsValidBundle to decide which
// actions to offer.
package bundle

import (
	"sync"
)

const (
	// MinItems is the default minimum number of units in a valid bundle.
	MinItems = 5

	// MaxItems is the default maximum number of units in a bundle.
	MaxItems = 20
)

// ProductType distinguishes individually sold products from pre-built sets.
type ProductType string

const (
	TypeProduct ProductType = "product"
	TypeBundle  ProductType = "bundle"
)

// Step is the position of the bundle in the checkout flow.
type Step string

const (
	StepSelection Step = "selection"
	StepReview    Step = "review"
	StepCheckout  Step = "checkout"
)

// Valid reports whether s is a known step.
func (s Step) Valid() bool {
	switch s {
	case StepSelection, StepReview, StepCheckout:
		return true
	}
	return false
}

// Product is the snapshot of a catalog product held by a bundle item.
type Product struct {
	ID     string      `json:"id"`
	SKU    string      `json:"sku,omitempty"`
	Name   string      `json:"name"`
	Price  float64     `json:"price"`
	Type   ProductType `json:"type"`
	Images []string    `json:"images,omitempty"`
}

// Item is one distinct product and how many units of it are selected.
type Item struct {
	Product  Product `json:"product"`
	Quantity int     `json:"quantity"`
}

// State is the serializable bundle state. Total and IsValid are derived from
// Items and recomputed on every accepted mutation.
type State struct {
	Items   []Item  `json:"items"`
	Total   float64 `json:"total"`
	IsValid bool    `json:"isValid"`
	Step    Step    `json:"step"`
}

// EmptyState returns the initial state.
func EmptyState() State {
	return State{Items: []Item{}, Step: StepSelection}
}

// TotalQuantity returns the number of units across all items.
func (s State) TotalQuantity() int {
	n := 0
	for _, item := range s.Items {
		n += item.Quantity
	}
	return n
}

// clone returns a copy that shares no slices with s.
func (s State) clone() State {
	out := s
	out.Items = make([]Item, len(s.Items))
	for i, item := range s.Items {
		out.Items[i] = item
		if item.Product.Images != nil {
			out.Items[i].Product.Images = append([]string(nil), item.Product.Images...)
		}
	}
	return out
}

// Limits bounds the total number of units in a bundle.
type Limits struct {
	Min int
	Max int
}

// DefaultLimits returns MinItems..MaxItems.
func DefaultLimits() Limits {
	return Limits{Min: MinItems, Max: MaxItems}
}

// Bundle is a goroutine-safe bundle state container.
type Bundle struct {
	mu     sync.Mutex
	limits Limits
	state  State
}

// New returns an empty bundle. Zero limits fall back to DefaultLimits.
func New(limits Limits) *Bundle {
	if limits.Min <= 0 || limits.Max <= 0 || limits.Min > limits.Max {
		limits = DefaultLimits()
	}
	return &Bundle{limits: limits, state: EmptyState()}
}

// Limits returns the bundle's unit bounds.
func (b *Bundle) Limits() Limits {
	return b.limits
}

// State returns a copy of the current state.
func (b *Bundle) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state.clone()
}

// TotalQuantity returns the number of selected units.
func (b *Bundle) TotalQuantity() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state.TotalQuantity()
}

// CanAddMore reports whether another unit may be added.
func (b *Bundle) CanAddMore() bool {
	return b.TotalQuantity() < b.limits.Max
}

// IsValidBundle reports whether the unit count is within limits.
func (b *Bundle) IsValidBundle() bool {
	return b.withinLimits(b.TotalQuantity())
}

func (b *Bundle) withinLimits(n int) bool {
	return n >= b.limits.Min && n <= b.limits.Max
}

// AddProduct adds one unit of p. Pre-built sets and additions past the
// maximum are rejected.
func (b *Bundle) AddProduct(p Product) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if p.Type != TypeProduct || p.ID == "" {
		return false
	}
	if b.state.TotalQuantity() >= b.limits.Max {
		return false
	}

	items := b.state.clone().Items
	if i := indexOf(items, p.ID); i >= 0 {
		items[i].Quantity++
	} else {
		items = append(items, Item{Product: p, Quantity: 1})
	}
	b.recalc(items)
	return true
}

// RemoveProduct drops the item for productID regardless of its quantity.
func (b *Bundle) RemoveProduct(productID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.removeLocked(productID)
}

func (b *Bundle) removeLocked(productID string) bool {
	i := indexOf(b.state.Items, productID)
	if i < 0 {
		return false
	}
	items := make([]Item, 0, len(b.state.Items)-1)
	items = append(items, b.state.Items[:i]...)
	items = append(items, b.state.Items[i+1:]...)
	b.recalc(items)
	return true
}

// UpdateQuantity sets the quantity of productID exactly. A quantity of zero
// or less removes the item. An increase that would pass the maximum is
// rejected as a whole.
func (b *Bundle) UpdateQuantity(productID string, quantity int) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	if quantity <= 0 {
		return b.removeLocked(productID)
	}
	i := indexOf(b.state.Items, productID)
	if i < 0 {
		return false
	}
	diff := quantity - b.state.Items[i].Quantity
	if diff == 0 {
		return false
	}
	if diff > 0 && b.state.TotalQuantity()+diff > b.limits.Max {
		return false
	}

	items := b.state.clone().Items
	items[i].Quantity = quantity
	b.recalc(items)
	return true
}

// Clear resets the bundle to its initial state.
func (b *Bundle) Clear() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = EmptyState()
	return true
}

// SetStep moves the bundle to step. Any known step may be set at any time.
func (b *Bundle) SetStep(step Step) bool {
	if !step.Valid() {
		return false
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state.Step == step {
		return false
	}
	b.state.Step = step
	return true
}

// Load replaces the state with s, recomputing the derived fields.
func (b *Bundle) Load(s State) {
	b.mu.Lock()
	defer b.mu.Unlock()
	step := s.Step
	if !step.Valid() {
		step = StepSelection
	}
	b.state.Step = step
	b.recalc(s.clone().Items)
}

// recalc installs items and recomputes Total and IsValid. Callers must hold the lock.
func (b *Bundle) recalc(items []Item) {
	total := 0.0
	units := 0
	for _, item := range items {
		total += item.Product.Price * float64(item.Quantity)
		units += item.Quantity
	}
	b.state.Items = items
	b.state.Total = total
	b.state.IsValid = b.withinLimits(units)
}

func indexOf(items []Item, productID string) int {
	for i, item := range items {
		if item.Product.ID == productID {
			return i
		}
	}
	return -1
}
