package tickets

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/alan-saberi/lotomax-canada/internal/lotto"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Independent PCG streams derived from one batch seed.
const (
	ticketStream uint64 = 0x6c6f74746f
	extraStream  uint64 = 0x6578747261
)

// StatisticsSource hands out the statistics a new batch should draw from.
type StatisticsSource interface {
	Current() (*lotto.Statistics, error)
}

type Config struct {
	MaxTickets           int
	MaxExtraSets         int
	DefaultDampingFactor float64
}

// BatchRequest carries static limits as binding tags; limits that depend on
// Config or on several fields are checked by Validate.
type BatchRequest struct {
	Count         int      `json:"count" binding:"min=1"`
	DampingFactor *float64 `json:"damping_factor,omitempty" binding:"omitempty,gt=0,lte=1"`
	LuckyNumbers  []int    `json:"lucky_numbers,omitempty" binding:"omitempty,max=7,unique,dive,min=1,max=50"`
	// TicketLuckyNumbers, when set, gives each ticket its own lucky numbers
	// and must have Count entries. It takes precedence over LuckyNumbers.
	TicketLuckyNumbers [][]int `json:"ticket_lucky_numbers,omitempty" binding:"omitempty,dive,max=7,unique,dive,min=1,max=50"`
	ExtraSets          int     `json:"extra_sets,omitempty" binding:"min=0"`
	Seed               *uint64 `json:"seed,omitempty"`
}

type Ticket struct {
	Line          int                  `json:"line"`
	Numbers       []int                `json:"numbers"`
	LuckyNumbers  []int                `json:"lucky_numbers,omitempty"`
	Contributions []lotto.Contribution `json:"contributions"`
}

type Batch struct {
	ID            uuid.UUID `json:"id"`
	Seed          uint64    `json:"seed"`
	DampingFactor float64   `json:"damping_factor"`
	Source        string    `json:"statistics_source"`
	FetchedAt     time.Time `json:"statistics_fetched_at"`
	Tickets       []Ticket  `json:"tickets"`
	Extras        [][]int   `json:"extras,omitempty"`
	GeneratedAt   time.Time `json:"generated_at"`
}

// Service generates ticket batches. Each batch snapshots the current
// statistics once and draws all its tickets, in order, from a single
// seeded random stream.
type Service struct {
	stats  StatisticsSource
	cfg    Config
	logger *logrus.Logger
	seed   func() uint64
	now    func() time.Time
}

func NewService(stats StatisticsSource, cfg Config, logger *logrus.Logger) *Service {
	if cfg.MaxTickets <= 0 {
		cfg.MaxTickets = 100
	}
	if cfg.MaxExtraSets <= 0 || cfg.MaxExtraSets > lotto.MaxExtraSets {
		cfg.MaxExtraSets = lotto.MaxExtraSets
	}
	if cfg.DefaultDampingFactor == 0 {
		cfg.DefaultDampingFactor = lotto.DefaultDampingFactor
	}
	return &Service{
		stats:  stats,
		cfg:    cfg,
		logger: logger,
		seed:   rand.Uint64,
		now:    time.Now,
	}
}

func (s *Service) Config() Config {
	return s.cfg
}

// Validate checks a request without generating anything.
func (s *Service) Validate(req BatchRequest) error {
	if err := lotto.ValidateTicketCount(req.Count, s.cfg.MaxTickets); err != nil {
		return err
	}
	if req.DampingFactor != nil {
		if err := lotto.ValidateDampingInput(*req.DampingFactor); err != nil {
			return err
		}
	}
	if err := lotto.ValidateLuckyNumbers(req.LuckyNumbers); err != nil {
		return err
	}
	if len(req.TicketLuckyNumbers) > 0 {
		if len(req.TicketLuckyNumbers) != req.Count {
			return &lotto.InputValidationError{
				Field:  "ticket_lucky_numbers",
				Reason: fmt.Sprintf("need one entry per ticket (%d), got %d", req.Count, len(req.TicketLuckyNumbers)),
			}
		}
		for _, lucky := range req.TicketLuckyNumbers {
			if err := lotto.ValidateLuckyNumbers(lucky); err != nil {
				return err
			}
		}
	}
	return lotto.ValidateExtraSets(req.ExtraSets, s.cfg.MaxExtraSets)
}

// GenerateBatch validates req and draws its tickets. Input problems come back
// as *lotto.InputValidationError; unusable statistics or damping as
// *lotto.ConfigurationError, which aborts the whole batch.
func (s *Service) GenerateBatch(ctx context.Context, req BatchRequest) (*Batch, error) {
	if err := s.Validate(req); err != nil {
		return nil, err
	}

	stats, err := s.stats.Current()
	if err != nil {
		return nil, &lotto.ConfigurationError{Reason: err.Error(), Err: lotto.ErrInsufficientData}
	}

	damping := s.cfg.DefaultDampingFactor
	if req.DampingFactor != nil {
		damping = *req.DampingFactor
	}
	seed := s.seed()
	if req.Seed != nil {
		seed = *req.Seed
	}

	opts := lotto.DefaultOptions()
	opts.DampingFactor = damping

	batch := &Batch{
		ID:            uuid.New(),
		Seed:          seed,
		DampingFactor: damping,
		Source:        stats.Source,
		FetchedAt:     stats.FetchedAt,
		Tickets:       make([]Ticket, 0, req.Count),
	}
	log := s.logger.WithField("batch_id", batch.ID.String())

	generator, err := lotto.NewGenerator(stats, opts, rand.NewPCG(seed, ticketStream), s.logger)
	if err != nil {
		log.WithError(err).Error("Cannot generate tickets")
		return nil, err
	}

	for i := 0; i < req.Count; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		lucky := req.LuckyNumbers
		if len(req.TicketLuckyNumbers) > 0 {
			lucky = req.TicketLuckyNumbers[i]
		}

		draw, err := generator.Generate(lucky)
		if err != nil {
			log.WithError(err).WithField("line", i+1).Error("Ticket generation failed")
			return nil, err
		}
		batch.Tickets = append(batch.Tickets, Ticket{
			Line:          i + 1,
			Numbers:       draw.Numbers,
			LuckyNumbers:  append([]int(nil), lucky...),
			Contributions: draw.Contributions,
		})
	}

	if req.ExtraSets > 0 {
		batch.Extras = lotto.NewExtraGenerator(rand.NewPCG(seed, extraStream)).Generate(req.ExtraSets)
	}
	batch.GeneratedAt = s.now().UTC()

	log.WithFields(logrus.Fields{
		"tickets": len(batch.Tickets),
		"extras":  len(batch.Extras),
		"damping": damping,
		"seed":    seed,
		"source":  stats.Source,
	}).Info("Generated ticket batch")

	return batch, nil
}
