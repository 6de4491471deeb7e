package splitter

import (
	"context"
	"math"
	"sort"

	"github.com/eugenenazirov/basket-splitter/internal/catalog"
)

// contextCheckInterval is how many search nodes are visited between context polls.
const contextCheckInterval = 256

// BasketSplitter splits baskets against a fixed eligibility table.
// It holds no per-call state and is safe for concurrent use.
type BasketSplitter struct {
	table    catalog.Table
	maxNodes int
}

// Option configures a BasketSplitter.
type Option func(*BasketSplitter)

// WithMaxNodes caps the number of search nodes visited per split once a
// first grouping has been found. Zero or a negative value disables the cap.
func WithMaxNodes(n int) Option {
	return func(s *BasketSplitter) {
		s.maxNodes = n
	}
}

// New creates a BasketSplitter bound to a copy of table.
func New(table catalog.Table, opts ...Option) *BasketSplitter {
	s := &BasketSplitter{
		table: compact(table),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Load reads the eligibility document at path and builds a BasketSplitter from it.
// Read and parse failures are returned as *catalog.LoadError.
func Load(path string, opts ...Option) (*BasketSplitter, error) {
	table, err := catalog.LoadTable(path)
	if err != nil {
		return nil, err
	}
	return New(table, opts...), nil
}

// Split returns the grouping of items that uses the fewest delivery methods,
// preferring the one with the largest single group when several tie.
func (s *BasketSplitter) Split(ctx context.Context, items []string) (Grouping, error) {
	res, err := s.SplitDetailed(ctx, items)
	if err != nil {
		return nil, err
	}
	return res.Groups, nil
}

// SplitDetailed is Split with search statistics.
//
// A search cut short by the node budget or by ctx still returns a valid
// grouping covering every item, with Complete set to false.
func (s *BasketSplitter) SplitDetailed(ctx context.Context, items []string) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	basket := uniqueSorted(items)
	if len(basket) == 0 {
		return Result{Groups: Grouping{}, Complete: true}, nil
	}

	if missing := s.unfulfillable(basket); len(missing) > 0 {
		return Result{}, &UnfulfillableItemError{Items: missing}
	}

	sr := newSearch(ctx, s.table, basket, s.maxNodes)
	sr.explore()

	return Result{
		Groups:   sr.best,
		Complete: !sr.stopped,
		Nodes:    sr.nodes,
	}, nil
}

func (s *BasketSplitter) unfulfillable(basket []string) []string {
	var missing []string
	for _, item := range basket {
		if len(s.table.Methods(item)) == 0 {
			missing = append(missing, item)
		}
	}
	return missing
}

// search holds the mutable state of a single split.
type search struct {
	ctx      context.Context
	table    catalog.Table
	basket   []string
	maxNodes int

	remaining map[string]struct{}
	current   map[string][]string

	best      Grouping
	bestCount int
	bestMax   int

	nodes   int
	stopped bool
}

func newSearch(ctx context.Context, table catalog.Table, basket []string, maxNodes int) *search {
	remaining := make(map[string]struct{}, len(basket))
	for _, item := range basket {
		remaining[item] = struct{}{}
	}

	return &search{
		ctx:       ctx,
		table:     table,
		basket:    basket,
		maxNodes:  maxNodes,
		remaining: remaining,
		current:   make(map[string][]string),
		bestCount: math.MaxInt,
	}
}

func (s *search) explore() {
	if s.halted() {
		return
	}
	s.nodes++

	if len(s.remaining) == 0 {
		s.consider()
		return
	}

	// Chosen groups never shrink, so this branch cannot beat the incumbent.
	if len(s.current) >= s.bestCount {
		return
	}

	coverage, methods := s.coverage()
	for _, method := range methods {
		undo := s.assign(method, coverage[method])
		s.explore()
		undo()

		if s.stopped {
			return
		}
	}
}

// halted reports whether the search must stop. Limits apply only once an
// incumbent exists so that a stopped search always has a grouping to return.
func (s *search) halted() bool {
	if s.stopped {
		return true
	}
	if s.best == nil {
		return false
	}
	if s.maxNodes > 0 && s.nodes >= s.maxNodes {
		s.stopped = true
	} else if s.nodes%contextCheckInterval == 0 && s.ctx.Err() != nil {
		s.stopped = true
	}
	return s.stopped
}

// coverage returns, for every method eligible for a remaining item, the
// remaining items it can ship, along with the methods in lexicographic order.
func (s *search) coverage() (map[string][]string, []string) {
	cov := make(map[string][]string)
	for _, item := range s.basket {
		if _, ok := s.remaining[item]; !ok {
			continue
		}
		for _, method := range s.table.Methods(item) {
			cov[method] = append(cov[method], item)
		}
	}

	methods := make([]string, 0, len(cov))
	for method := range cov {
		methods = append(methods, method)
	}
	sort.Strings(methods)

	return cov, methods
}

// assign gives items to method and returns the function restoring the previous state.
func (s *search) assign(method string, items []string) func() {
	s.current[method] = items
	for _, item := range items {
		delete(s.remaining, item)
	}

	return func() {
		for _, item := range items {
			s.remaining[item] = struct{}{}
		}
		delete(s.current, method)
	}
}

func (s *search) consider() {
	count := len(s.current)
	largest := 0
	for _, items := range s.current {
		if len(items) > largest {
			largest = len(items)
		}
	}

	if count < s.bestCount || (count == s.bestCount && largest > s.bestMax) {
		s.best = snapshot(s.current)
		s.bestCount = count
		s.bestMax = largest
	}
}

func snapshot(groups map[string][]string) Grouping {
	out := make(Grouping, len(groups))
	for method, items := range groups {
		cp := make([]string, len(items))
		copy(cp, items)
		out[method] = cp
	}
	return out
}

func uniqueSorted(items []string) []string {
	seen := make(map[string]struct{}, len(items))
	out := make([]string, 0, len(items))
	for _, item := range items {
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		out = append(out, item)
	}
	sort.Strings(out)
	return out
}

// compact copies table dropping repeated methods within an item.
func compact(table catalog.Table) catalog.Table {
	out := make(catalog.Table, len(table))
	for item, methods := range table {
		seen := make(map[string]struct{}, len(methods))
		unique := make([]string, 0, len(methods))
		for _, method := range methods {
			if _, ok := seen[method]; ok {
				continue
			}
			seen[method] = struct{}{}
			unique = append(unique, method)
		}
		out[item] = unique
	}
	return out
}
