package bundle

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
)

// persisted is the outer shape of a stored bundle. Only items and step are
// read back; totals are always recomputed. Both fields stay raw so a field of
// the wrong type degrades to its default instead of failing the whole payload.
type persisted struct {
	Items json.RawMessage `json:"items"`
	Step  json.RawMessage `json:"step"`
}

// rawEntry covers both stored item shapes: {product, quantity} and a bare
// product object from the older format.
type rawEntry struct {
	Product  json.RawMessage `json:"product"`
	Quantity json.RawMessage `json:"quantity"`
}

// Decode parses a stored bundle. It accepts
//
//	{"items": [{"product": {...}, "quantity": 2}, ...], "step": "review"}
//	{"items": [{...product...}, ...]}
//	[ ...either entry shape... ]
//
// Entries for the same product are merged by summing quantities, entries
// without a product id are dropped, and a missing or non-positive quantity
// counts as 1. Unknown steps decode as StepSelection. The returned state has
// Total and IsValid computed with DefaultLimits; Bundle.Load recomputes them
// against its own limits.
func Decode(data []byte) (State, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 {
		return EmptyState(), fmt.Errorf("decode bundle: empty payload")
	}

	var p persisted
	if data[0] == '[' {
		p.Items = data
	} else if err := json.Unmarshal(data, &p); err != nil {
		return EmptyState(), fmt.Errorf("decode bundle: %w", err)
	}

	var entries []json.RawMessage
	if len(p.Items) > 0 {
		if err := json.Unmarshal(p.Items, &entries); err != nil && data[0] == '[' {
			return EmptyState(), fmt.Errorf("decode bundle items: %w", err)
		}
	}

	items := make([]Item, 0, len(entries))
	index := make(map[string]int, len(entries))
	for _, raw := range entries {
		item, ok := decodeEntry(raw)
		if !ok {
			continue
		}
		if i, seen := index[item.Product.ID]; seen {
			items[i].Quantity = addQuantity(items[i].Quantity, item.Quantity)
			continue
		}
		index[item.Product.ID] = len(items)
		items = append(items, item)
	}

	var step Step
	if len(p.Step) == 0 || json.Unmarshal(p.Step, &step) != nil || !step.Valid() {
		step = StepSelection
	}

	b := New(DefaultLimits())
	b.Load(State{Items: items, Step: step})
	return b.State(), nil
}

func decodeEntry(raw json.RawMessage) (Item, bool) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || raw[0] != '{' {
		return Item{}, false
	}

	var entry rawEntry
	if err := json.Unmarshal(raw, &entry); err != nil {
		return Item{}, false
	}

	productJSON := raw
	if len(entry.Product) > 0 && !bytes.Equal(bytes.TrimSpace(entry.Product), []byte("null")) {
		productJSON = entry.Product
	}

	var product Product
	if err := json.Unmarshal(productJSON, &product); err != nil || product.ID == "" {
		return Item{}, false
	}

	return Item{Product: product, Quantity: decodeQuantity(entry.Quantity)}, true
}

// maxStoredQuantity bounds a decoded quantity so totals can never overflow.
const maxStoredQuantity = math.MaxInt32

// decodeQuantity returns a positive whole quantity, defaulting to 1 for
// anything missing, non-numeric, below one or above maxStoredQuantity.
func decodeQuantity(raw json.RawMessage) int {
	var q float64
	if len(raw) == 0 || json.Unmarshal(raw, &q) != nil {
		return 1
	}
	if q < 1 || q > maxStoredQuantity || math.IsNaN(q) || math.IsInf(q, 0) {
		return 1
	}
	return int(q)
}

// addQuantity sums two decoded quantities, saturating at maxStoredQuantity.
func addQuantity(a, b int) int {
	if a > maxStoredQuantity-b {
		return maxStoredQuantity
	}
	return a + b
}

// Encode serializes s for storage.
func Encode(s State) ([]byte, error) {
	if s.Items == nil {
		s.Items = []Item{}
	}
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encode bundle: %w", err)
	}
	return data, nil
}
