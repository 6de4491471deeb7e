// Package cache keeps recently computed split results in memory so repeated
// baskets against an unchanged delivery options table skip the search.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/allegro/bigcache/v3"

	"github.com/eugenenazirov/basket-splitter/internal/splitter"
)

const (
	shards             = 64
	maxEntriesInWindow = 10_000
	maxEntrySize       = 512
)

// Splits is a TTL-bounded cache of complete split results.
// Entries are keyed by table generation, so bumping the generation on every
// table change makes older entries unreachable until they expire.
type Splits struct {
	cache *bigcache.BigCache
}

type entry struct {
	Groups splitter.Grouping `json:"g"`
	Nodes  int               `json:"n"`
}

// New creates a cache holding entries for ttl and using at most maxMB
// megabytes. A maxMB of zero leaves the size unbounded.
func New(ttl time.Duration, maxMB int) (*Splits, error) {
	if ttl <= 0 {
		return nil, errors.New("cache ttl must be positive")
	}

	cfg := bigcache.DefaultConfig(ttl)
	cfg.Shards = shards
	cfg.MaxEntriesInWindow = maxEntriesInWindow
	cfg.MaxEntrySize = maxEntrySize
	cfg.HardMaxCacheSize = maxMB
	cfg.CleanWindow = min(ttl, time.Minute)
	cfg.Verbose = false

	c, err := bigcache.New(context.Background(), cfg)
	if err != nil {
		return nil, fmt.Errorf("init split cache: %w", err)
	}
	return &Splits{cache: c}, nil
}

// Get returns the cached result for items under the given table generation.
func (s *Splits) Get(generation uint64, items []string) (splitter.Result, bool) {
	data, err := s.cache.Get(Key(generation, items))
	if err != nil {
		return splitter.Result{}, false
	}

	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		return splitter.Result{}, false
	}
	if e.Groups == nil {
		e.Groups = splitter.Grouping{}
	}
	return splitter.Result{Groups: e.Groups, Complete: true, Nodes: e.Nodes}, true
}

// Put stores res. Results from a search that stopped early are not cached.
func (s *Splits) Put(generation uint64, items []string, res splitter.Result) error {
	if !res.Complete {
		return nil
	}

	data, err := json.Marshal(entry{Groups: res.Groups, Nodes: res.Nodes})
	if err != nil {
		return fmt.Errorf("encode split result: %w", err)
	}
	return s.cache.Set(Key(generation, items), data)
}

// Len reports the number of stored entries.
func (s *Splits) Len() int {
	return s.cache.Len()
}

// Close stops the background cleaner and releases memory.
func (s *Splits) Close() error {
	return s.cache.Close()
}

// Key builds the lookup key for a basket. Item order and duplicates do not
// affect the key.
func Key(generation uint64, items []string) string {
	unique := make([]string, 0, len(items))
	seen := make(map[string]struct{}, len(items))
	for _, item := range items {
		if _, ok := seen[item]; ok {
			continue
		}
		seen[item] = struct{}{}
		unique = append(unique, item)
	}
	sort.Strings(unique)

	var b strings.Builder
	b.WriteString(strconv.FormatUint(generation, 10))
	for _, item := range unique {
		b.WriteByte(0)
		b.WriteString(item)
	}
	return b.String()
}
