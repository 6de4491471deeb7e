package catalog

import (
	"fmt"
	"sort"
)

// Table maps an item name to the ordered delivery methods able to ship it.
// Items missing from the table have no eligible method.
type Table map[string][]string

// Methods returns the delivery methods eligible for item.
func (t Table) Methods(item string) []string {
	return t[item]
}

// Len returns the number of items in the table.
func (t Table) Len() int {
	return len(t)
}

// Items returns the item names in lexicographic order.
func (t Table) Items() []string {
	items := make([]string, 0, len(t))
	for item := range t {
		items = append(items, item)
	}
	sort.Strings(items)
	return items
}

// Clone returns a deep copy of the table.
func (t Table) Clone() Table {
	if t == nil {
		return Table{}
	}

	out := make(Table, len(t))
	for item, methods := range t {
		cp := make([]string, len(methods))
		copy(cp, methods)
		out[item] = cp
	}
	return out
}

// Normalize validates the table and removes repeated methods per item,
// keeping the first occurrence so method order is preserved.
func Normalize(t Table) (Table, error) {
	out := make(Table, len(t))
	for item, methods := range t {
		if item == "" {
			return nil, ErrInvalidTable
		}

		seen := make(map[string]struct{}, len(methods))
		unique := make([]string, 0, len(methods))
		for _, method := range methods {
			if method == "" {
				return nil, fmt.Errorf("item %q: %w", item, ErrInvalidTable)
			}
			if _, ok := seen[method]; ok {
				continue
			}
			seen[method] = struct{}{}
			unique = append(unique, method)
		}
		out[item] = unique
	}
	return out, nil
}
