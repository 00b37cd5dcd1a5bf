package lotto

import (
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// DefaultMaxSampleAttempts bounds rejection sampling for one new number.
const DefaultMaxSampleAttempts = 256

// ValidateDamping rejects damping factors outside (0, 1]. NaN fails too.
func ValidateDamping(damping float64) error {
	if !(damping > 0 && damping <= 1) {
		return fmt.Errorf("%w: got %v", ErrInvalidDamping, damping)
	}
	return nil
}

// AdjustedWeights returns the damped, unnormalized weight of every number,
// indexed by number-1:
//
//	adjusted = (1 - damping) + damping * weight/total
func AdjustedWeights(table FrequencyTable, damping float64) ([]float64, error) {
	if err := ValidateDamping(damping); err != nil {
		return nil, configurationError("frequency sampler", err)
	}
	total := table.TotalWeight()
	if total <= 0 {
		return nil, configurationError("frequency table has zero total weight", ErrInsufficientData)
	}

	weights := make([]float64, MaxNumber)
	for n := MinNumber; n <= MaxNumber; n++ {
		w := table[n]
		if w < 0 {
			w = 0
		}
		raw := float64(w) / float64(total)
		weights[n-MinNumber] = (1 - damping) + damping*raw
	}
	return weights, nil
}

// FrequencySampler draws single numbers from the damped frequency
// distribution. It owns no state besides the immutable weights and the
// injected random source.
type FrequencySampler struct {
	weights     []float64
	dist        distuv.Categorical
	src         rand.Source
	maxAttempts int
}

// NewFrequencySampler precomputes the damped distribution for table.
func NewFrequencySampler(table FrequencyTable, damping float64, src rand.Source) (*FrequencySampler, error) {
	weights, err := AdjustedWeights(table, damping)
	if err != nil {
		return nil, err
	}
	return &FrequencySampler{
		weights:     weights,
		dist:        distuv.NewCategorical(weights, src),
		src:         src,
		maxAttempts: DefaultMaxSampleAttempts,
	}, nil
}

// Sample draws one number in [MinNumber, MaxNumber].
func (s *FrequencySampler) Sample() int {
	return int(s.dist.Rand()) + MinNumber
}

// Probability returns the normalized selection probability of n.
func (s *FrequencySampler) Probability(n int) float64 {
	if n < MinNumber || n > MaxNumber {
		return 0
	}
	return s.dist.Prob(float64(n - MinNumber))
}

// SampleNew draws a number that ws does not hold yet. Duplicates are
// rejected and redrawn up to the attempt limit. Past the limit the draw
// comes from the same distribution restricted to numbers not held, which is
// what rejection sampling converges to anyway. ErrInsufficientData is
// returned when no drawable number is left.
func (s *FrequencySampler) SampleNew(ws *WorkingSet) (int, error) {
	for attempt := 0; attempt < s.maxAttempts; attempt++ {
		n := s.Sample()
		if !ws.Contains(n) {
			return n, nil
		}
	}

	remaining := make([]float64, len(s.weights))
	total := 0.0
	for i, w := range s.weights {
		if ws.Contains(i + MinNumber) {
			continue
		}
		remaining[i] = w
		total += w
	}
	if total <= 0 {
		return 0, configurationError("no drawable numbers left", ErrInsufficientData)
	}
	return int(distuv.NewCategorical(remaining, s.src).Rand()) + MinNumber, nil
}
