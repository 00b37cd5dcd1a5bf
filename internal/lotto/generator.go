package lotto

import (
	"math/rand/v2"
	"sort"

	"github.com/sirupsen/logrus"
)

const defaultMaxPasses = 64

// Source names where a ticket's numbers came from.
type Source string

const (
	SourceLucky     Source = "lucky"
	SourceFrequency Source = "frequency"
	SourceFill      Source = "fill"
)

// PoolSource is the Source recorded for a group folded from kind.
func PoolSource(kind PoolKind) Source {
	return Source(kind)
}

// Contribution records numbers added to a draw in one step.
type Contribution struct {
	Source  Source `json:"source"`
	Numbers []int  `json:"numbers"`
}

// Draw is one finished ticket line.
type Draw struct {
	Numbers       []int          `json:"numbers"`
	Contributions []Contribution `json:"contributions"`
}

// Options tunes the draw orchestrator.
type Options struct {
	DampingFactor float64
	Plan          []PoolRule
	FoldsPerPool  int
	MaxPasses     int
}

func DefaultOptions() Options {
	return Options{
		DampingFactor: DefaultDampingFactor,
		Plan:          DefaultPlan,
		FoldsPerPool:  DefaultFoldsPerPool,
		MaxPasses:     defaultMaxPasses,
	}
}

// Generator synthesizes tickets from one Statistics value and one random
// stream. It is not safe for concurrent use; give each goroutine its own
// Generator over an independent source.
type Generator struct {
	stats    *Statistics
	opts     Options
	sampler  *FrequencySampler
	selector *GroupSelector
	logger   *logrus.Logger
}

// NewGenerator validates the damping factor and frequency table up front so
// a bad configuration fails before any ticket is drawn.
func NewGenerator(stats *Statistics, opts Options, src rand.Source, logger *logrus.Logger) (*Generator, error) {
	if stats == nil {
		return nil, configurationError("no statistics loaded", ErrInsufficientData)
	}
	if opts.Plan == nil {
		opts.Plan = DefaultPlan
	}
	if opts.FoldsPerPool <= 0 {
		opts.FoldsPerPool = DefaultFoldsPerPool
	}
	if opts.MaxPasses <= 0 {
		opts.MaxPasses = defaultMaxPasses
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	sampler, err := NewFrequencySampler(stats.Frequency, opts.DampingFactor, src)
	if err != nil {
		return nil, err
	}

	return &Generator{
		stats:    stats,
		opts:     opts,
		sampler:  sampler,
		selector: NewGroupSelector(src),
		logger:   logger,
	}, nil
}

// Sampler exposes the frequency sampler backing the generator.
func (g *Generator) Sampler() *FrequencySampler {
	return g.sampler
}

// Generate draws one ticket of TicketSize distinct numbers containing every
// lucky number. Lucky numbers are trusted as given.
//
// Each pass draws one frequency-weighted number while fewer than
// FrequencyPhase numbers are held, then offers every pool in plan order a
// chance to fold one whole group. Once the frequency phase is over and no
// pool can fold anything more, the remaining slots are filled from the
// frequency table.
func (g *Generator) Generate(lucky []int) (*Draw, error) {
	ws := NewWorkingSet(lucky)
	quota := NewQuota(g.opts.FoldsPerPool)
	draw := &Draw{}

	if ws.Len() > 0 {
		draw.Contributions = append(draw.Contributions, Contribution{Source: SourceLucky, Numbers: ws.Sorted()})
		g.trace(SourceLucky, ws.Sorted(), ws)
	}

	for pass := 0; ws.Len() < TicketSize && pass < g.opts.MaxPasses; pass++ {
		if ws.Len() < FrequencyPhase {
			n, err := g.sampler.SampleNew(ws)
			if err != nil {
				return nil, err
			}
			ws.Add(n)
			draw.Contributions = append(draw.Contributions, Contribution{Source: SourceFrequency, Numbers: []int{n}})
			g.trace(SourceFrequency, []int{n}, ws)
		}

		folded := false
		for _, rule := range g.opts.Plan {
			if ws.Len() >= TicketSize {
				break
			}
			group, ok := g.selector.TrySelect(rule, g.stats.Pool(rule.Kind), ws, TicketSize, quota)
			if !ok {
				continue
			}
			folded = true
			numbers := append([]int(nil), group.Numbers...)
			sort.Ints(numbers)
			draw.Contributions = append(draw.Contributions, Contribution{Source: PoolSource(rule.Kind), Numbers: numbers})
			g.trace(PoolSource(rule.Kind), numbers, ws)
		}

		if !folded && ws.Len() >= FrequencyPhase {
			break
		}
	}

	for ws.Len() < TicketSize {
		n, err := g.sampler.SampleNew(ws)
		if err != nil {
			return nil, err
		}
		ws.Add(n)
		draw.Contributions = append(draw.Contributions, Contribution{Source: SourceFill, Numbers: []int{n}})
		g.trace(SourceFill, []int{n}, ws)
	}

	draw.Numbers = ws.Sorted()
	g.logger.WithField("numbers", draw.Numbers).Debug("Generated draw")
	return draw, nil
}

func (g *Generator) trace(source Source, numbers []int, ws *WorkingSet) {
	if !g.logger.IsLevelEnabled(logrus.DebugLevel) {
		return
	}
	g.logger.WithFields(logrus.Fields{
		"source":      source,
		"numbers":     numbers,
		"working_set": ws.Sorted(),
	}).Debug("Added numbers to draw")
}
