package splitter

import (
	"context"
	"sort"
)

// Grouping maps a delivery method to the items it ships.
type Grouping map[string][]string

// Len returns the number of groups.
func (g Grouping) Len() int {
	return len(g)
}

// MaxGroupSize returns the item count of the largest group, or 0 when empty.
func (g Grouping) MaxGroupSize() int {
	largest := 0
	for _, items := range g {
		if len(items) > largest {
			largest = len(items)
		}
	}
	return largest
}

// Methods returns the delivery methods of the grouping in lexicographic order.
func (g Grouping) Methods() []string {
	methods := make([]string, 0, len(g))
	for method := range g {
		methods = append(methods, method)
	}
	sort.Strings(methods)
	return methods
}

// ItemCount returns the total number of items across all groups.
func (g Grouping) ItemCount() int {
	total := 0
	for _, items := range g {
		total += len(items)
	}
	return total
}

// Result carries a grouping together with search statistics.
// Complete is false when the search stopped early on its node budget or
// context and Groups holds the best grouping found up to that point.
type Result struct {
	Groups   Grouping
	Complete bool
	Nodes    int
}

// Splitter describes the behaviour required from a basket splitter.
type Splitter interface {
	Split(ctx context.Context, items []string) (Grouping, error)
	SplitDetailed(ctx context.Context, items []string) (Result, error)
}
