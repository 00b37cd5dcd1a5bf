package lotto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrequencyTable_Validate(t *testing.T) {
	assert.NoError(t, UniformFrequencyTable(1).Validate())

	missing := UniformFrequencyTable(1)
	delete(missing, 33)
	assert.ErrorContains(t, missing.Validate(), "missing number 33")

	negative := UniformFrequencyTable(1)
	negative[4] = -2
	assert.ErrorContains(t, negative.Validate(), "negative weight")

	extra := UniformFrequencyTable(1)
	extra[51] = 3
	assert.ErrorContains(t, extra.Validate(), "out of range")

	assert.ErrorIs(t, UniformFrequencyTable(0).Validate(), ErrInsufficientData)
}

func TestStatistics_Validate(t *testing.T) {
	require.NoError(t, fullStats().Validate())

	stats := fullStats()
	stats.Pools[PoolTriplets] = append(stats.Pools[PoolTriplets], Group{Numbers: []int{1, 1, 2}})
	assert.ErrorContains(t, stats.Validate(), "duplicate number 1")

	stats = fullStats()
	stats.Pools[PoolQuads] = GroupPool{{Numbers: []int{1, 2, 3}}}
	assert.ErrorContains(t, stats.Validate(), "want 4")
}

func TestStatistics_SanitizedDropsBadGroups(t *testing.T) {
	stats := &Statistics{
		Frequency: UniformFrequencyTable(2),
		Pools: map[PoolKind]GroupPool{
			PoolPairs: {
				{Numbers: []int{1, 2}, Frequency: 9},
				{Numbers: []int{3, 3}},
				{Numbers: []int{4, 60}},
			},
		},
		Source: "unit",
	}

	clean, dropped := stats.Sanitized()
	require.NoError(t, clean.Validate())
	assert.Len(t, dropped, 2)
	assert.Equal(t, GroupPool{{Numbers: []int{1, 2}, Frequency: 9}}, clean.Pool(PoolPairs))
	assert.Equal(t, "unit", clean.Source)

	clean.Frequency[1] = 1000
	assert.Equal(t, 2, stats.Frequency[1], "sanitized copy must not alias the input")
}

func TestStatistics_Summarize(t *testing.T) {
	table := UniformFrequencyTable(5)
	table[12] = 40
	table[30] = 35
	table[8] = 0
	stats := &Statistics{Frequency: table, Pools: map[PoolKind]GroupPool{PoolPairs: disjointPool(1, 2, 3)}}

	summary := stats.Summarize(2)
	assert.Equal(t, []int{12, 30}, summary.Hottest)
	assert.Equal(t, 8, summary.Coldest[0])
	assert.Equal(t, 3, summary.PoolSizes[PoolPairs])
	assert.Zero(t, summary.PoolSizes[PoolQuads])
	assert.Equal(t, 47*5+40+35, summary.TotalWeight)
}

func TestPoolKind_Sizes(t *testing.T) {
	assert.Equal(t, 2, PoolConsecutivePairs.GroupSize())
	assert.Equal(t, 3, PoolConsecutiveTriplets.GroupSize())
	assert.Equal(t, 4, PoolQuads.GroupSize())
	assert.Equal(t, CategoryTriplets, PoolConsecutiveTriplets.Category())
	assert.False(t, PoolKind("sextets").Valid())
}

func TestExtraGenerator_Generate(t *testing.T) {
	sets := NewExtraGenerator(seeded(1)).Generate(MaxExtraSets)
	require.Len(t, sets, MaxExtraSets)

	for _, set := range sets {
		require.Len(t, set, ExtraSetSize)
		for i, n := range set {
			assert.GreaterOrEqual(t, n, 1)
			assert.LessOrEqual(t, n, ExtraMaxNumber)
			if i > 0 {
				assert.Less(t, set[i-1], n)
			}
		}
	}
	assert.Empty(t, NewExtraGenerator(seeded(2)).Generate(0))
}
