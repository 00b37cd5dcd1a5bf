package lotto

import (
	"math/rand/v2"
	"sort"
)

const (
	ExtraMaxNumber = 99
	ExtraSetSize   = 4
	MaxExtraSets   = 10
)

// ExtraGenerator draws the optional Extra sets: unweighted, 4 distinct
// numbers in 1-99 per set.
type ExtraGenerator struct {
	rng *rand.Rand
}

func NewExtraGenerator(src rand.Source) *ExtraGenerator {
	return &ExtraGenerator{rng: rand.New(src)}
}

// Generate returns count sorted sets.
func (e *ExtraGenerator) Generate(count int) [][]int {
	sets := make([][]int, 0, count)
	for i := 0; i < count; i++ {
		perm := e.rng.Perm(ExtraMaxNumber)[:ExtraSetSize]
		set := make([]int, ExtraSetSize)
		for j, idx := range perm {
			set[j] = idx + 1
		}
		sort.Ints(set)
		sets = append(sets, set)
	}
	return sets
}
