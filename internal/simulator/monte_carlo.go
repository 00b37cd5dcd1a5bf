package simulator

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"runtime"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alan-saberi/lotomax-canada/internal/lotto"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gonum.org/v1/gonum/stat"
	"gonum.org/v1/gonum/stat/distuv"
)

// drawsPerBatch is the unit of work handed to a worker. Every batch draws
// from its own PCG stream keyed by the batch index, so results depend on
// the seed only and not on the worker count.
const drawsPerBatch = 500

const hottestCount = lotto.TicketSize

// SimulationConfig represents configuration for a Monte Carlo run
type SimulationConfig struct {
	NumDraws          int
	SimulationWorkers int
	DampingFactor     float64
	LuckyNumbers      []int
	Seed              uint64
}

// SimulationProgress represents progress of a simulation
type SimulationProgress struct {
	SimulationID           string        `json:"simulation_id"`
	TotalDraws             int           `json:"total_draws"`
	Completed              int           `json:"completed"`
	StartTime              time.Time     `json:"start_time"`
	EstimatedTimeRemaining time.Duration `json:"estimated_time_remaining"`
}

// SimulationResult aggregates every simulated draw.
type SimulationResult struct {
	SimulationID  string    `json:"simulation_id"`
	NumDraws      int       `json:"num_draws"`
	Workers       int       `json:"workers"`
	Seed          uint64    `json:"seed"`
	DampingFactor float64   `json:"damping_factor"`
	LuckyNumbers  []int     `json:"lucky_numbers,omitempty"`
	Source        string    `json:"statistics_source"`
	StartedAt     time.Time `json:"started_at"`
	Duration      string    `json:"duration"`

	NumberHits map[int]int     `json:"number_hits"`
	HitRates   map[int]float64 `json:"hit_rates"`
	Hottest    []int           `json:"hottest"`
	Coldest    []int           `json:"coldest"`

	// SourceShares is the fraction of all drawn numbers each source supplied.
	SourceShares map[lotto.Source]float64 `json:"source_shares"`
	// PoolFoldRates is the fraction of draws in which each pool folded a group.
	PoolFoldRates map[lotto.PoolKind]float64 `json:"pool_fold_rates"`

	// Uniformity of the numbers that were not forced in as lucky numbers.
	MeanHitRate      float64 `json:"mean_hit_rate"`
	HitRateStdDev    float64 `json:"hit_rate_std_dev"`
	ChiSquare        float64 `json:"chi_square"`
	DegreesOfFreedom int     `json:"degrees_of_freedom"`
	PValue           float64 `json:"p_value"`
}

type tally struct {
	hits    [lotto.MaxNumber + 1]int
	sources map[lotto.Source]int
	folds   map[lotto.PoolKind]int
}

func newTally() *tally {
	return &tally{
		sources: make(map[lotto.Source]int),
		folds:   make(map[lotto.PoolKind]int),
	}
}

func (t *tally) merge(other *tally) {
	for n, h := range other.hits {
		t.hits[n] += h
	}
	for s, c := range other.sources {
		t.sources[s] += c
	}
	for k, c := range other.folds {
		t.folds[k] += c
	}
}

// Simulator runs Monte Carlo draws against one Statistics value.
type Simulator struct {
	stats  *lotto.Statistics
	config SimulationConfig
	logger *logrus.Logger
	quiet  *logrus.Logger
}

// NewSimulator creates a new Monte Carlo simulator
func NewSimulator(stats *lotto.Statistics, config SimulationConfig, logger *logrus.Logger) *Simulator {
	if config.SimulationWorkers <= 0 {
		config.SimulationWorkers = runtime.NumCPU()
	}

	// Per-draw debug traces would swamp the log.
	quiet := logrus.New()
	quiet.SetOutput(io.Discard)

	return &Simulator{
		stats:  stats,
		config: config,
		logger: logger,
		quiet:  quiet,
	}
}

// Run draws NumDraws tickets across the worker pool. progressChan may be
// nil; sends to it never block the workers.
func (s *Simulator) Run(ctx context.Context, progressChan chan<- SimulationProgress) (*SimulationResult, error) {
	if s.config.NumDraws < 1 {
		return nil, &lotto.InputValidationError{Field: "num_draws", Reason: "must be positive"}
	}
	if err := lotto.ValidateLuckyNumbers(s.config.LuckyNumbers); err != nil {
		return nil, err
	}

	opts := lotto.DefaultOptions()
	opts.DampingFactor = s.config.DampingFactor
	// Fail fast on a bad table or damping before any worker starts.
	if _, err := lotto.NewGenerator(s.stats, opts, rand.NewPCG(s.config.Seed, 0), s.quiet); err != nil {
		return nil, err
	}

	simulationID := uuid.New().String()
	startTime := time.Now()
	numBatches := (s.config.NumDraws + drawsPerBatch - 1) / drawsPerBatch

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	batchChan := make(chan int, numBatches)
	for i := 0; i < numBatches; i++ {
		batchChan <- i
	}
	close(batchChan)

	var (
		completed int64
		total     = newTally()
		mu        sync.Mutex
		firstErr  error
		wg        sync.WaitGroup
	)

	reporterDone := make(chan struct{})
	if progressChan != nil {
		go s.reportProgress(ctx, simulationID, startTime, &completed, progressChan, reporterDone)
	} else {
		close(reporterDone)
	}

	for w := 0; w < s.config.SimulationWorkers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for batch := range batchChan {
				if ctx.Err() != nil {
					return
				}
				local, err := s.runBatch(ctx, batch, opts, &completed)
				mu.Lock()
				if err != nil {
					if firstErr == nil {
						firstErr = err
					}
					mu.Unlock()
					cancel()
					return
				}
				total.merge(local)
				mu.Unlock()
			}
		}()
	}

	wg.Wait()
	cancel()
	<-reporterDone

	if firstErr != nil {
		return nil, firstErr
	}
	if err := context.Cause(ctx); err != nil && int(atomic.LoadInt64(&completed)) < s.config.NumDraws {
		return nil, err
	}

	if progressChan != nil {
		progressChan <- SimulationProgress{
			SimulationID: simulationID,
			TotalDraws:   s.config.NumDraws,
			Completed:    s.config.NumDraws,
			StartTime:    startTime,
		}
	}

	result := s.aggregate(total)
	result.SimulationID = simulationID
	result.StartedAt = startTime
	result.Duration = time.Since(startTime).String()

	s.logger.WithFields(logrus.Fields{
		"simulation_id": simulationID,
		"draws":         result.NumDraws,
		"workers":       result.Workers,
		"chi_square":    result.ChiSquare,
		"p_value":       result.PValue,
		"duration":      result.Duration,
	}).Info("Simulation completed")

	return result, nil
}

func (s *Simulator) runBatch(ctx context.Context, batch int, opts lotto.Options, completed *int64) (*tally, error) {
	generator, err := lotto.NewGenerator(s.stats, opts, rand.NewPCG(s.config.Seed, uint64(batch)+1), s.quiet)
	if err != nil {
		return nil, err
	}

	first := batch * drawsPerBatch
	last := first + drawsPerBatch
	if last > s.config.NumDraws {
		last = s.config.NumDraws
	}

	local := newTally()
	for i := first; i < last; i++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		draw, err := generator.Generate(s.config.LuckyNumbers)
		if err != nil {
			return nil, err
		}
		for _, n := range draw.Numbers {
			local.hits[n]++
		}
		for _, c := range draw.Contributions {
			local.sources[c.Source] += len(c.Numbers)
			if kind := lotto.PoolKind(c.Source); kind.Valid() {
				local.folds[kind]++
			}
		}
		atomic.AddInt64(completed, 1)
	}
	return local, nil
}

func (s *Simulator) aggregate(t *tally) *SimulationResult {
	draws := float64(s.config.NumDraws)
	totalNumbers := draws * lotto.TicketSize

	result := &SimulationResult{
		NumDraws:      s.config.NumDraws,
		Workers:       s.config.SimulationWorkers,
		Seed:          s.config.Seed,
		DampingFactor: s.config.DampingFactor,
		LuckyNumbers:  append([]int(nil), s.config.LuckyNumbers...),
		Source:        s.stats.Source,
		NumberHits:    make(map[int]int, lotto.MaxNumber),
		HitRates:      make(map[int]float64, lotto.MaxNumber),
		SourceShares:  make(map[lotto.Source]float64, len(t.sources)),
		PoolFoldRates: make(map[lotto.PoolKind]float64, len(lotto.PoolKinds)),
	}

	lucky := make(map[int]bool, len(s.config.LuckyNumbers))
	for _, n := range s.config.LuckyNumbers {
		lucky[n] = true
	}

	numbers := make([]int, 0, lotto.MaxNumber)
	var rates, observed []float64
	for n := lotto.MinNumber; n <= lotto.MaxNumber; n++ {
		result.NumberHits[n] = t.hits[n]
		result.HitRates[n] = float64(t.hits[n]) / draws
		numbers = append(numbers, n)
		if !lucky[n] {
			rates = append(rates, result.HitRates[n])
			observed = append(observed, float64(t.hits[n]))
		}
	}

	sort.SliceStable(numbers, func(i, j int) bool {
		return t.hits[numbers[i]] > t.hits[numbers[j]]
	})
	result.Hottest = append([]int(nil), numbers[:hottestCount]...)
	for i := len(numbers) - 1; i >= len(numbers)-hottestCount; i-- {
		result.Coldest = append(result.Coldest, numbers[i])
	}

	for source, count := range t.sources {
		result.SourceShares[source] = float64(count) / totalNumbers
	}
	for _, kind := range lotto.PoolKinds {
		result.PoolFoldRates[kind] = float64(t.folds[kind]) / draws
	}

	if len(rates) > 0 {
		result.MeanHitRate, result.HitRateStdDev = stat.MeanStdDev(rates, nil)
	}
	result.ChiSquare, result.DegreesOfFreedom, result.PValue = uniformityTest(observed)

	return result
}

// uniformityTest compares observed counts with a uniform spread of their
// total. Fewer than two categories, or no observations, trivially pass.
func uniformityTest(observed []float64) (chi float64, df int, pValue float64) {
	sum := 0.0
	for _, o := range observed {
		sum += o
	}
	if len(observed) < 2 || sum == 0 {
		return 0, 0, 1
	}

	expected := make([]float64, len(observed))
	for i := range expected {
		expected[i] = sum / float64(len(observed))
	}

	chi = stat.ChiSquare(observed, expected)
	df = len(observed) - 1
	pValue = 1 - distuv.ChiSquared{K: float64(df)}.CDF(chi)
	return chi, df, pValue
}

func (s *Simulator) reportProgress(ctx context.Context, simulationID string, startTime time.Time, completed *int64, progressChan chan<- SimulationProgress, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			n := int(atomic.LoadInt64(completed))
			if n == 0 {
				continue
			}
			elapsed := time.Since(startTime)
			rate := float64(n) / elapsed.Seconds()
			remaining := s.config.NumDraws - n
			eta := time.Duration(float64(remaining)/rate) * time.Second

			progress := SimulationProgress{
				SimulationID:           simulationID,
				TotalDraws:             s.config.NumDraws,
				Completed:              n,
				StartTime:              startTime,
				EstimatedTimeRemaining: eta,
			}

			select {
			case progressChan <- progress:
			default:
				// Don't block if channel is full
			}
		}
	}
}

// String renders a short human summary.
func (r *SimulationResult) String() string {
	return fmt.Sprintf("%d draws, hottest %v, chi-square %.2f (df %d, p=%.4f)",
		r.NumDraws, r.Hottest, r.ChiSquare, r.DegreesOfFreedom, r.PValue)
}
