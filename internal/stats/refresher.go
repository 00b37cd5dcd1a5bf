package stats

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/alan-saberi/lotomax-canada/internal/lotto"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

const defaultJobTimeout = 2 * time.Minute

// Status describes the refresher for the statistics endpoint.
type Status struct {
	Provider     string    `json:"provider"`
	Loaded       bool      `json:"loaded"`
	LastRefresh  time.Time `json:"last_refresh,omitempty"`
	LastError    string    `json:"last_error,omitempty"`
	RefreshCount int       `json:"refresh_count"`
	Running      bool      `json:"running"`
	Jobs         []JobInfo `json:"jobs,omitempty"`
}

type JobInfo struct {
	Name     string    `json:"name"`
	Schedule string    `json:"schedule"`
	Next     time.Time `json:"next,omitempty"`
}

type scheduledJob struct {
	name     string
	schedule string
	id       cron.EntryID
}

// Refresher owns the current Statistics. Each refresh swaps in a new value;
// callers that already hold the previous one keep using it unchanged.
type Refresher struct {
	provider Provider
	logger   *logrus.Logger
	cron     *cron.Cron

	mu           sync.RWMutex
	current      *lotto.Statistics
	lastRefresh  time.Time
	lastError    error
	refreshCount int

	jobsMu    sync.Mutex
	jobs      []scheduledJob
	isRunning bool
}

func NewRefresher(provider Provider, logger *logrus.Logger) *Refresher {
	return &Refresher{
		provider: provider,
		logger:   logger,
		cron:     cron.New(cron.WithLogger(cron.VerbosePrintfLogger(logger))),
	}
}

// Load fetches through the provider chain, accepting cached values.
func (r *Refresher) Load(ctx context.Context) error {
	return r.update(ctx, r.provider.Fetch)
}

// Refresh bypasses caches and fetches fresh statistics.
func (r *Refresher) Refresh(ctx context.Context) error {
	return r.update(ctx, func(ctx context.Context) (*lotto.Statistics, error) {
		return forceFetch(ctx, r.provider)
	})
}

func (r *Refresher) update(ctx context.Context, fetch func(context.Context) (*lotto.Statistics, error)) error {
	stats, err := fetch(ctx)

	r.mu.Lock()
	defer r.mu.Unlock()

	if err != nil {
		r.lastError = err
		r.logger.WithError(err).WithField("provider", r.provider.Name()).Error("Failed to refresh statistics")
		return err
	}

	r.current = stats
	r.lastRefresh = time.Now().UTC()
	r.lastError = nil
	r.refreshCount++

	r.logger.WithFields(logrus.Fields{
		"provider":   r.provider.Name(),
		"source":     stats.Source,
		"fetched_at": stats.FetchedAt,
	}).Info("Statistics refreshed")
	return nil
}

// Current returns the statistics every new ticket batch should use.
func (r *Refresher) Current() (*lotto.Statistics, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.current == nil {
		return nil, ErrNotLoaded
	}
	return r.current, nil
}

// Schedule registers job to run on the cron spec. Jobs get their own
// timeout-bound context.
func (r *Refresher) Schedule(name, spec string, job func(ctx context.Context) error) error {
	r.jobsMu.Lock()
	defer r.jobsMu.Unlock()

	id, err := r.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), defaultJobTimeout)
		defer cancel()

		start := time.Now()
		if err := job(ctx); err != nil {
			r.logger.WithError(err).WithField("job", name).Error("Scheduled job failed")
			return
		}
		r.logger.WithFields(logrus.Fields{
			"job":      name,
			"duration": time.Since(start),
		}).Info("Scheduled job completed")
	})
	if err != nil {
		return fmt.Errorf("failed to schedule %s: %w", name, err)
	}

	r.jobs = append(r.jobs, scheduledJob{name: name, schedule: spec, id: id})
	return nil
}

// Start schedules the periodic refresh and starts the cron runner.
func (r *Refresher) Start(spec string) error {
	r.jobsMu.Lock()
	running := r.isRunning
	r.jobsMu.Unlock()
	if running {
		return fmt.Errorf("statistics refresher is already running")
	}

	if err := r.Schedule("statistics_refresh", spec, r.Refresh); err != nil {
		return err
	}

	r.jobsMu.Lock()
	defer r.jobsMu.Unlock()
	r.cron.Start()
	r.isRunning = true

	r.logger.WithField("schedule", spec).Info("Statistics refresher started")
	return nil
}

func (r *Refresher) Stop() {
	r.jobsMu.Lock()
	defer r.jobsMu.Unlock()

	if !r.isRunning {
		return
	}
	ctx := r.cron.Stop()
	<-ctx.Done()

	r.isRunning = false
	r.logger.Info("Statistics refresher stopped")
}

func (r *Refresher) Status() Status {
	r.mu.RLock()
	status := Status{
		Provider:     r.provider.Name(),
		Loaded:       r.current != nil,
		LastRefresh:  r.lastRefresh,
		RefreshCount: r.refreshCount,
	}
	if r.lastError != nil {
		status.LastError = r.lastError.Error()
	}
	r.mu.RUnlock()

	r.jobsMu.Lock()
	defer r.jobsMu.Unlock()
	status.Running = r.isRunning
	for _, job := range r.jobs {
		status.Jobs = append(status.Jobs, JobInfo{
			Name:     job.name,
			Schedule: job.schedule,
			Next:     r.cron.Entry(job.id).Next,
		})
	}
	return status
}
