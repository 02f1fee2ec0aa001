package transport

import (
	"encoding/json"
	"fmt"
)

const searchAllTotalKey = "total"

// SearchAllData is the data of POST /api/search/all: one item list per source
// plus a "total" key, flattened into a single JSON object.
type SearchAllData struct {
	Sources map[string][]MarketplaceItem
	Total   int
}

// MarshalJSON flattens the per-source lists next to the total.
func (d SearchAllData) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(d.Sources)+1)
	for id, items := range d.Sources {
		if items == nil {
			items = []MarketplaceItem{}
		}
		out[id] = items
	}
	out[searchAllTotalKey] = d.Total
	return json.Marshal(out)
}

// UnmarshalJSON reads the flattened object. Items that fail to decode are
// skipped rather than failing the whole payload.
func (d *SearchAllData) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	d.Sources = make(map[string][]MarketplaceItem, len(raw))
	for key, value := range raw {
		if key == searchAllTotalKey {
			if err := json.Unmarshal(value, &d.Total); err != nil {
				return fmt.Errorf("decode total: %w", err)
			}
			continue
		}
		items, _, err := DecodeItems(value)
		if err != nil {
			return fmt.Errorf("decode %s items: %w", key, err)
		}
		d.Sources[key] = items
	}
	return nil
}

// DecodeItems decodes a JSON array of items one element at a time.
// It returns the decoded items and how many elements were skipped.
// Only a payload that is not an array at all is an error.
func DecodeItems(data []byte) ([]MarketplaceItem, int, error) {
	var elems []json.RawMessage
	if err := json.Unmarshal(data, &elems); err != nil {
		return nil, 0, err
	}

	items := make([]MarketplaceItem, 0, len(elems))
	skipped := 0
	for _, elem := range elems {
		var item MarketplaceItem
		if err := json.Unmarshal(elem, &item); err != nil || item.Title == "" || item.Price < 0 {
			skipped++
			continue
		}
		items = append(items, item)
	}
	return items, skipped, nil
}
