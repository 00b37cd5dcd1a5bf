package stats

import (
	"context"
	"errors"
	"fmt"

	"github.com/alan-saberi/lotomax-canada/internal/lotto"
	"github.com/sirupsen/logrus"
)

var (
	// ErrCacheMiss is returned by Cache.Get when no statistics are cached.
	ErrCacheMiss = errors.New("statistics not cached")
	// ErrNoSnapshot is returned by Store.Latest when nothing was ever saved.
	ErrNoSnapshot = errors.New("no statistics snapshot stored")
	// ErrNotLoaded is returned by Refresher.Current before the first load.
	ErrNotLoaded = errors.New("statistics not loaded")
)

// Provider yields a complete, validated Statistics value.
type Provider interface {
	Name() string
	Fetch(ctx context.Context) (*lotto.Statistics, error)
}

// Refreshable providers can bypass any cached value they hold.
type Refreshable interface {
	Refresh(ctx context.Context) (*lotto.Statistics, error)
}

// forceFetch refreshes p when it supports it and fetches otherwise.
func forceFetch(ctx context.Context, p Provider) (*lotto.Statistics, error) {
	if r, ok := p.(Refreshable); ok {
		return r.Refresh(ctx)
	}
	return p.Fetch(ctx)
}

// finalize drops malformed groups, logging each one, and validates what is
// left. A bad frequency table is fatal.
func finalize(raw *lotto.Statistics, logger *logrus.Logger) (*lotto.Statistics, error) {
	clean, dropped := raw.Sanitized()
	for _, reason := range dropped {
		logger.WithFields(logrus.Fields{
			"source": raw.Source,
			"reason": reason,
		}).Warn("Dropping malformed statistics group")
	}
	if err := clean.Validate(); err != nil {
		return nil, fmt.Errorf("invalid statistics from %s: %w", raw.Source, err)
	}
	return clean, nil
}
