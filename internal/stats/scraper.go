package stats

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/alan-saberi/lotomax-canada/internal/lotto"
	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

const frequencyPage = "lottomax-statistics(1)"

// poolPages maps each group pool to its statistics page.
var poolPages = map[lotto.PoolKind]string{
	lotto.PoolPairs:               "lottomax-statistics(5)",
	lotto.PoolConsecutivePairs:    "lottomax-statistics(6)",
	lotto.PoolTriplets:            "lottomax-statistics(7)",
	lotto.PoolConsecutiveTriplets: "lottomax-statistics(8)",
	lotto.PoolQuads:               "lottomax-statistics(9)",
}

type ScraperConfig struct {
	BaseURL          string
	Timeout          time.Duration
	RateLimit        float64 // requests per second
	BreakerThreshold int
	BreakerTimeout   time.Duration
}

// Scraper builds Statistics from the public lottery statistics pages.
type Scraper struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker
	logger     *logrus.Logger
	now        func() time.Time
}

func NewScraper(cfg ScraperConfig, logger *logrus.Logger) *Scraper {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.BreakerThreshold <= 0 {
		cfg.BreakerThreshold = 5
	}
	if cfg.BreakerTimeout <= 0 {
		cfg.BreakerTimeout = time.Minute
	}

	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}

	threshold := uint32(cfg.BreakerThreshold)
	settings := gobreaker.Settings{
		Name:        "lottery-statistics",
		MaxRequests: 1,
		Timeout:     cfg.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"component": "circuit_breaker",
				"service":   name,
				"from":      from.String(),
				"to":        to.String(),
			}).Info("Circuit breaker state changed")
		},
	}

	return &Scraper{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/") + "/",
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(limit, 1),
		breaker:    gobreaker.NewCircuitBreaker(settings),
		logger:     logger,
		now:        time.Now,
	}
}

func (s *Scraper) Name() string {
	return "scrape"
}

// BreakerState reports the circuit breaker state for health checks.
func (s *Scraper) BreakerState() gobreaker.State {
	return s.breaker.State()
}

// Fetch downloads the frequency page and the five group pages. Any failed
// page fails the whole fetch.
func (s *Scraper) Fetch(ctx context.Context) (*lotto.Statistics, error) {
	start := s.now()

	body, err := s.fetchPage(ctx, frequencyPage)
	if err != nil {
		return nil, err
	}
	freq, err := ParseFrequencyTable(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", frequencyPage, err)
	}

	raw := &lotto.Statistics{
		Frequency: freq,
		Pools:     make(map[lotto.PoolKind]lotto.GroupPool, len(lotto.PoolKinds)),
		Source:    s.baseURL,
	}

	for _, kind := range lotto.PoolKinds {
		page := poolPages[kind]
		body, err := s.fetchPage(ctx, page)
		if err != nil {
			return nil, err
		}
		pool, skipped, err := ParseGroupPool(bytes.NewReader(body), kind.GroupSize())
		if err != nil {
			return nil, fmt.Errorf("%s: %w", page, err)
		}
		for _, reason := range skipped {
			s.logger.WithFields(logrus.Fields{
				"pool":   kind,
				"page":   page,
				"reason": reason,
			}).Warn("Skipping malformed group row")
		}
		raw.Pools[kind] = pool
	}
	raw.FetchedAt = s.now().UTC()

	stats, err := finalize(raw, s.logger)
	if err != nil {
		return nil, err
	}

	s.logger.WithFields(logrus.Fields{
		"source":       stats.Source,
		"total_weight": stats.Frequency.TotalWeight(),
		"duration":     s.now().Sub(start),
	}).Info("Scraped lottery statistics")

	return stats, nil
}

func (s *Scraper) fetchPage(ctx context.Context, page string) ([]byte, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	url := s.baseURL + page
	result, err := s.breaker.Execute(func() (interface{}, error) {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("User-Agent", "lotomax-canada/1.0")

		resp, err := s.httpClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("request failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
		}
		return io.ReadAll(resp.Body)
	})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch %s: %w", url, err)
	}

	s.logger.WithField("url", url).Debug("Fetched statistics page")
	return result.([]byte), nil
}
