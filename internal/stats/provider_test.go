package stats

import (
	"context"
	"io"
	"sync"
	"time"

	"github.com/alan-saberi/lotomax-canada/internal/lotto"
	"github.com/sirupsen/logrus"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func testStatistics(source string) *lotto.Statistics {
	return &lotto.Statistics{
		Frequency: lotto.UniformFrequencyTable(10),
		Pools: map[lotto.PoolKind]lotto.GroupPool{
			lotto.PoolPairs:               {{Numbers: []int{3, 19}, Frequency: 41}},
			lotto.PoolConsecutivePairs:    {{Numbers: []int{4, 5}, Frequency: 20}},
			lotto.PoolTriplets:            {{Numbers: []int{2, 14, 33}, Frequency: 9}},
			lotto.PoolConsecutiveTriplets: {{Numbers: []int{16, 17, 18}, Frequency: 4}},
			lotto.PoolQuads:               {{Numbers: []int{6, 13, 27, 44}, Frequency: 2}},
		},
		Source:    source,
		FetchedAt: time.Date(2024, 9, 1, 0, 0, 0, 0, time.UTC),
	}
}

// stubProvider counts calls and returns a fixed result.
type stubProvider struct {
	mu        sync.Mutex
	stats     *lotto.Statistics
	err       error
	fetches   int
	refreshes int
}

func (p *stubProvider) Name() string { return "stub" }

func (p *stubProvider) Fetch(ctx context.Context) (*lotto.Statistics, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fetches++
	return p.stats, p.err
}

func (p *stubProvider) Refresh(ctx context.Context) (*lotto.Statistics, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.refreshes++
	return p.stats, p.err
}

func (p *stubProvider) set(stats *lotto.Statistics, err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.stats, p.err = stats, err
}

func (p *stubProvider) counts() (int, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fetches, p.refreshes
}
