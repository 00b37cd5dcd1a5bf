package lotto

import (
	"fmt"
	"sort"
	"time"
)

const (
	MinNumber  = 1
	MaxNumber  = 50
	TicketSize = 7

	// FrequencyPhase is the working set size below which every pass draws
	// from the frequency table before offering the group pools a turn.
	FrequencyPhase = 5

	DefaultDampingFactor = 0.8
	MaxLuckyNumbers      = TicketSize
)

// Category groups pools whose groups share a size.
type Category string

const (
	CategoryPairs    Category = "pairs"
	CategoryTriplets Category = "triplets"
	CategoryQuads    Category = "quads"
)

// PoolKind identifies one of the five common-group pools.
type PoolKind string

const (
	PoolPairs               PoolKind = "pairs"
	PoolConsecutivePairs    PoolKind = "consecutive_pairs"
	PoolTriplets            PoolKind = "triplets"
	PoolConsecutiveTriplets PoolKind = "consecutive_triplets"
	PoolQuads               PoolKind = "quads"
)

// PoolKinds lists the pools in draw priority order.
var PoolKinds = []PoolKind{
	PoolPairs,
	PoolConsecutivePairs,
	PoolTriplets,
	PoolConsecutiveTriplets,
	PoolQuads,
}

// Category returns the category a pool's groups count against.
func (k PoolKind) Category() Category {
	switch k {
	case PoolPairs, PoolConsecutivePairs:
		return CategoryPairs
	case PoolTriplets, PoolConsecutiveTriplets:
		return CategoryTriplets
	default:
		return CategoryQuads
	}
}

// GroupSize returns how many numbers every group of the pool holds.
func (k PoolKind) GroupSize() int {
	switch k.Category() {
	case CategoryPairs:
		return 2
	case CategoryTriplets:
		return 3
	default:
		return 4
	}
}

// Valid reports whether k names one of the five known pools.
func (k PoolKind) Valid() bool {
	for _, known := range PoolKinds {
		if k == known {
			return true
		}
	}
	return false
}

// Group is a set of numbers that historically came up together.
type Group struct {
	Numbers   []int `json:"numbers" yaml:"numbers"`
	Frequency int   `json:"frequency,omitempty" yaml:"frequency,omitempty"`
}

// Validate checks the group holds size distinct numbers in range.
func (g Group) Validate(size int) error {
	if len(g.Numbers) != size {
		return fmt.Errorf("group %v has %d numbers, want %d", g.Numbers, len(g.Numbers), size)
	}
	seen := make(map[int]bool, size)
	for _, n := range g.Numbers {
		if n < MinNumber || n > MaxNumber {
			return fmt.Errorf("group %v contains out of range number %d", g.Numbers, n)
		}
		if seen[n] {
			return fmt.Errorf("group %v contains duplicate number %d", g.Numbers, n)
		}
		seen[n] = true
	}
	return nil
}

// GroupPool is ordered most popular first.
type GroupPool []Group

// FrequencyTable maps every number to its historical draw count.
type FrequencyTable map[int]int

// TotalWeight sums the weights of all in-range numbers.
func (f FrequencyTable) TotalWeight() int {
	total := 0
	for n := MinNumber; n <= MaxNumber; n++ {
		total += f[n]
	}
	return total
}

// Validate checks all numbers are present with non-negative weights and
// that the table carries some weight.
func (f FrequencyTable) Validate() error {
	for n := MinNumber; n <= MaxNumber; n++ {
		w, ok := f[n]
		if !ok {
			return fmt.Errorf("frequency table is missing number %d", n)
		}
		if w < 0 {
			return fmt.Errorf("frequency table has negative weight %d for number %d", w, n)
		}
	}
	for n := range f {
		if n < MinNumber || n > MaxNumber {
			return fmt.Errorf("frequency table contains out of range number %d", n)
		}
	}
	if f.TotalWeight() <= 0 {
		return ErrInsufficientData
	}
	return nil
}

// UniformFrequencyTable gives every number the same weight.
func UniformFrequencyTable(weight int) FrequencyTable {
	table := make(FrequencyTable, MaxNumber)
	for n := MinNumber; n <= MaxNumber; n++ {
		table[n] = weight
	}
	return table
}

// Statistics is the read-only data set a run draws from. It is built once by
// a provider and shared by every ticket of the run; nothing mutates it after
// construction.
type Statistics struct {
	Frequency FrequencyTable         `json:"frequency" yaml:"frequency"`
	Pools     map[PoolKind]GroupPool `json:"pools" yaml:"pools"`
	Source    string                 `json:"source" yaml:"source"`
	FetchedAt time.Time              `json:"fetched_at" yaml:"fetched_at"`
}

// Pool returns the named pool, or nil when it is absent.
func (s *Statistics) Pool(kind PoolKind) GroupPool {
	if s == nil || s.Pools == nil {
		return nil
	}
	return s.Pools[kind]
}

// Validate checks the frequency table and every group of every pool.
func (s *Statistics) Validate() error {
	if s == nil {
		return ErrInsufficientData
	}
	if err := s.Frequency.Validate(); err != nil {
		return err
	}
	for kind, pool := range s.Pools {
		if !kind.Valid() {
			return fmt.Errorf("unknown group pool %q", kind)
		}
		for i, g := range pool {
			if err := g.Validate(kind.GroupSize()); err != nil {
				return fmt.Errorf("pool %s group %d: %w", kind, i, err)
			}
		}
	}
	return nil
}

// Sanitized returns a copy with malformed groups dropped. The second value
// lists one message per dropped group.
func (s *Statistics) Sanitized() (*Statistics, []string) {
	out := &Statistics{
		Frequency: make(FrequencyTable, len(s.Frequency)),
		Pools:     make(map[PoolKind]GroupPool, len(s.Pools)),
		Source:    s.Source,
		FetchedAt: s.FetchedAt,
	}
	for n, w := range s.Frequency {
		out.Frequency[n] = w
	}

	var dropped []string
	for kind, pool := range s.Pools {
		if !kind.Valid() {
			dropped = append(dropped, fmt.Sprintf("unknown pool %q with %d groups", kind, len(pool)))
			continue
		}
		kept := make(GroupPool, 0, len(pool))
		for i, g := range pool {
			if err := g.Validate(kind.GroupSize()); err != nil {
				dropped = append(dropped, fmt.Sprintf("pool %s group %d: %v", kind, i, err))
				continue
			}
			numbers := append([]int(nil), g.Numbers...)
			kept = append(kept, Group{Numbers: numbers, Frequency: g.Frequency})
		}
		out.Pools[kind] = kept
	}
	return out, dropped
}

// Summary condenses the statistics for display.
type Summary struct {
	Source      string           `json:"source"`
	FetchedAt   time.Time        `json:"fetched_at"`
	TotalWeight int              `json:"total_weight"`
	Hottest     []int            `json:"hottest"`
	Coldest     []int            `json:"coldest"`
	PoolSizes   map[PoolKind]int `json:"pool_sizes"`
}

// Summarize reports pool sizes and the top hot and cold numbers.
func (s *Statistics) Summarize(top int) Summary {
	numbers := make([]int, 0, MaxNumber)
	for n := MinNumber; n <= MaxNumber; n++ {
		numbers = append(numbers, n)
	}
	sort.SliceStable(numbers, func(i, j int) bool {
		return s.Frequency[numbers[i]] > s.Frequency[numbers[j]]
	})
	if top > len(numbers) {
		top = len(numbers)
	}

	coldest := make([]int, 0, top)
	for i := len(numbers) - 1; i >= len(numbers)-top; i-- {
		coldest = append(coldest, numbers[i])
	}

	sizes := make(map[PoolKind]int, len(PoolKinds))
	for _, kind := range PoolKinds {
		sizes[kind] = len(s.Pool(kind))
	}

	return Summary{
		Source:      s.Source,
		FetchedAt:   s.FetchedAt,
		TotalWeight: s.Frequency.TotalWeight(),
		Hottest:     append([]int(nil), numbers[:top]...),
		Coldest:     coldest,
		PoolSizes:   sizes,
	}
}
