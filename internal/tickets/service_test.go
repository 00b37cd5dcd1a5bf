package tickets

import (
	"context"
	"errors"
	"io"
	"sort"
	"testing"
	"time"

	"github.com/alan-saberi/lotomax-canada/internal/lotto"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fixedStats struct {
	stats *lotto.Statistics
	err   error
}

func (f fixedStats) Current() (*lotto.Statistics, error) {
	return f.stats, f.err
}

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func testStatistics() *lotto.Statistics {
	freq := lotto.UniformFrequencyTable(100)
	freq[7] = 400
	return &lotto.Statistics{
		Frequency: freq,
		Pools: map[lotto.PoolKind]lotto.GroupPool{
			lotto.PoolPairs:               {{Numbers: []int{3, 19}}, {Numbers: []int{22, 45}}},
			lotto.PoolConsecutivePairs:    {{Numbers: []int{30, 31}}},
			lotto.PoolTriplets:            {{Numbers: []int{2, 14, 33}}},
			lotto.PoolConsecutiveTriplets: {{Numbers: []int{16, 17, 18}}},
			lotto.PoolQuads:               {{Numbers: []int{6, 13, 27, 44}}},
		},
		Source:    "fixture",
		FetchedAt: time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC),
	}
}

func newTestService(stats StatisticsSource) *Service {
	return NewService(stats, Config{MaxTickets: 20, MaxExtraSets: 10, DefaultDampingFactor: 0.8}, testLogger())
}

func uint64Ptr(v uint64) *uint64 { return &v }

func float64Ptr(v float64) *float64 { return &v }

func assertTicket(t *testing.T, numbers []int) {
	t.Helper()
	require.Len(t, numbers, lotto.TicketSize)
	assert.True(t, sort.IntsAreSorted(numbers))
	seen := map[int]bool{}
	for _, n := range numbers {
		assert.GreaterOrEqual(t, n, lotto.MinNumber)
		assert.LessOrEqual(t, n, lotto.MaxNumber)
		assert.False(t, seen[n], "duplicate %d in %v", n, numbers)
		seen[n] = true
	}
}

func TestGenerateBatch(t *testing.T) {
	svc := newTestService(fixedStats{stats: testStatistics()})

	batch, err := svc.GenerateBatch(context.Background(), BatchRequest{
		Count:        5,
		LuckyNumbers: []int{7, 21},
		ExtraSets:    3,
		Seed:         uint64Ptr(42),
	})
	require.NoError(t, err)

	assert.NotEmpty(t, batch.ID)
	assert.Equal(t, uint64(42), batch.Seed)
	assert.Equal(t, 0.8, batch.DampingFactor)
	assert.Equal(t, "fixture", batch.Source)
	assert.False(t, batch.GeneratedAt.IsZero())

	require.Len(t, batch.Tickets, 5)
	for i, ticket := range batch.Tickets {
		assert.Equal(t, i+1, ticket.Line)
		assertTicket(t, ticket.Numbers)
		assert.Contains(t, ticket.Numbers, 7)
		assert.Contains(t, ticket.Numbers, 21)
		assert.Equal(t, []int{7, 21}, ticket.LuckyNumbers)
		assert.Equal(t, lotto.SourceLucky, ticket.Contributions[0].Source)
	}

	require.Len(t, batch.Extras, 3)
	for _, set := range batch.Extras {
		require.Len(t, set, lotto.ExtraSetSize)
		assert.True(t, sort.IntsAreSorted(set))
		assert.GreaterOrEqual(t, set[0], 1)
		assert.LessOrEqual(t, set[3], lotto.ExtraMaxNumber)
	}
}

func TestGenerateBatch_SeedReproducible(t *testing.T) {
	svc := newTestService(fixedStats{stats: testStatistics()})
	req := BatchRequest{Count: 8, Seed: uint64Ptr(2024), DampingFactor: float64Ptr(0.5)}

	a, err := svc.GenerateBatch(context.Background(), req)
	require.NoError(t, err)
	b, err := svc.GenerateBatch(context.Background(), req)
	require.NoError(t, err)

	assert.NotEqual(t, a.ID, b.ID)
	for i := range a.Tickets {
		assert.Equal(t, a.Tickets[i].Numbers, b.Tickets[i].Numbers)
	}
}

func TestGenerateBatch_ExtrasDoNotShiftTickets(t *testing.T) {
	svc := newTestService(fixedStats{stats: testStatistics()})

	plain, err := svc.GenerateBatch(context.Background(), BatchRequest{Count: 3, Seed: uint64Ptr(9)})
	require.NoError(t, err)
	withExtras, err := svc.GenerateBatch(context.Background(), BatchRequest{Count: 3, Seed: uint64Ptr(9), ExtraSets: 10})
	require.NoError(t, err)

	for i := range plain.Tickets {
		assert.Equal(t, plain.Tickets[i].Numbers, withExtras.Tickets[i].Numbers)
	}
	assert.Empty(t, plain.Extras)
	assert.Len(t, withExtras.Extras, 10)
}

func TestGenerateBatch_RandomSeedWhenUnpinned(t *testing.T) {
	svc := newTestService(fixedStats{stats: testStatistics()})
	svc.seed = func() uint64 { return 777 }

	batch, err := svc.GenerateBatch(context.Background(), BatchRequest{Count: 1})
	require.NoError(t, err)
	assert.Equal(t, uint64(777), batch.Seed)
}

func TestGenerateBatch_PerTicketLuckyNumbers(t *testing.T) {
	svc := newTestService(fixedStats{stats: testStatistics()})

	batch, err := svc.GenerateBatch(context.Background(), BatchRequest{
		Count:              3,
		LuckyNumbers:       []int{1},
		TicketLuckyNumbers: [][]int{{5}, {}, {1, 2, 3, 4, 5, 6, 7}},
	})
	require.NoError(t, err)

	assert.Contains(t, batch.Tickets[0].Numbers, 5)
	assert.Empty(t, batch.Tickets[1].LuckyNumbers)
	assert.Equal(t, []int{1, 2, 3, 4, 5, 6, 7}, batch.Tickets[2].Numbers)
}

func TestGenerateBatch_InputErrors(t *testing.T) {
	svc := newTestService(fixedStats{stats: testStatistics()})

	tests := []struct {
		name  string
		req   BatchRequest
		field string
	}{
		{"zero tickets", BatchRequest{Count: 0}, "count"},
		{"too many tickets", BatchRequest{Count: 21}, "count"},
		{"damping above one", BatchRequest{Count: 1, DampingFactor: float64Ptr(1.5)}, "damping_factor"},
		{"damping zero", BatchRequest{Count: 1, DampingFactor: float64Ptr(0)}, "damping_factor"},
		{"lucky out of range", BatchRequest{Count: 1, LuckyNumbers: []int{51}}, "lucky_numbers"},
		{"lucky duplicate", BatchRequest{Count: 1, LuckyNumbers: []int{4, 4}}, "lucky_numbers"},
		{"eight lucky", BatchRequest{Count: 1, LuckyNumbers: []int{1, 2, 3, 4, 5, 6, 7, 8}}, "lucky_numbers"},
		{"too many extras", BatchRequest{Count: 1, ExtraSets: 11}, "extra_sets"},
		{"ticket lucky mismatch", BatchRequest{Count: 2, TicketLuckyNumbers: [][]int{{1}}}, "ticket_lucky_numbers"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.GenerateBatch(context.Background(), tt.req)
			var inputErr *lotto.InputValidationError
			require.True(t, errors.As(err, &inputErr), "got %v", err)
			assert.Equal(t, tt.field, inputErr.Field)
		})
	}
}

func TestGenerateBatch_ConfigurationErrors(t *testing.T) {
	ctx := context.Background()

	_, err := newTestService(fixedStats{err: errors.New("statistics not loaded")}).
		GenerateBatch(ctx, BatchRequest{Count: 1})
	assert.True(t, lotto.IsConfigurationError(err))
	assert.ErrorIs(t, err, lotto.ErrInsufficientData)

	empty := testStatistics()
	empty.Frequency = lotto.UniformFrequencyTable(0)
	_, err = newTestService(fixedStats{stats: empty}).GenerateBatch(ctx, BatchRequest{Count: 3})
	assert.True(t, lotto.IsConfigurationError(err))
	assert.ErrorIs(t, err, lotto.ErrInsufficientData)
}

func TestGenerateBatch_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := newTestService(fixedStats{stats: testStatistics()}).GenerateBatch(ctx, BatchRequest{Count: 2})
	assert.ErrorIs(t, err, context.Canceled)
}
