package stats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/alan-saberi/lotomax-canada/internal/lotto"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Snapshot is one stored copy of the statistics a fetch returned.
type Snapshot struct {
	ID        uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	Source    string         `gorm:"not null" json:"source"`
	FetchedAt time.Time      `gorm:"index;not null" json:"fetched_at"`
	Frequency datatypes.JSON `json:"frequency"`
	Pools     datatypes.JSON `json:"pools"`
	CreatedAt time.Time      `json:"created_at"`
}

func (Snapshot) TableName() string {
	return "statistics_snapshots"
}

// Statistics decodes the snapshot back into the value that was saved.
func (s *Snapshot) Statistics() (*lotto.Statistics, error) {
	stats := &lotto.Statistics{
		Source:    s.Source,
		FetchedAt: s.FetchedAt,
	}
	if err := json.Unmarshal(s.Frequency, &stats.Frequency); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot frequency table: %w", err)
	}
	if err := json.Unmarshal(s.Pools, &stats.Pools); err != nil {
		return nil, fmt.Errorf("failed to decode snapshot pools: %w", err)
	}
	return stats, nil
}

// Store persists statistics snapshots through gorm.
type Store struct {
	db     *gorm.DB
	logger *logrus.Logger
}

func NewStore(db *gorm.DB, logger *logrus.Logger) *Store {
	return &Store{db: db, logger: logger}
}

func (s *Store) Migrate() error {
	if err := s.db.AutoMigrate(&Snapshot{}); err != nil {
		return fmt.Errorf("failed to migrate statistics snapshots: %w", err)
	}
	return nil
}

func (s *Store) Save(ctx context.Context, stats *lotto.Statistics) (*Snapshot, error) {
	frequency, err := json.Marshal(stats.Frequency)
	if err != nil {
		return nil, fmt.Errorf("failed to encode frequency table: %w", err)
	}
	pools, err := json.Marshal(stats.Pools)
	if err != nil {
		return nil, fmt.Errorf("failed to encode pools: %w", err)
	}

	snapshot := &Snapshot{
		ID:        uuid.New(),
		Source:    stats.Source,
		FetchedAt: stats.FetchedAt,
		Frequency: datatypes.JSON(frequency),
		Pools:     datatypes.JSON(pools),
	}
	if err := s.db.WithContext(ctx).Create(snapshot).Error; err != nil {
		return nil, fmt.Errorf("failed to save statistics snapshot: %w", err)
	}
	return snapshot, nil
}

func (s *Store) Latest(ctx context.Context) (*lotto.Statistics, error) {
	var snapshot Snapshot
	err := s.db.WithContext(ctx).
		Order("fetched_at DESC").
		Order("created_at DESC").
		First(&snapshot).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoSnapshot
		}
		return nil, fmt.Errorf("failed to load latest snapshot: %w", err)
	}
	return snapshot.Statistics()
}

// Prune deletes all but the keep most recent snapshots.
func (s *Store) Prune(ctx context.Context, keep int) (int64, error) {
	if keep < 1 {
		keep = 1
	}
	recent := s.db.Model(&Snapshot{}).
		Select("id").
		Order("fetched_at DESC").
		Order("created_at DESC").
		Limit(keep)

	result := s.db.WithContext(ctx).Where("id NOT IN (?)", recent).Delete(&Snapshot{})
	if result.Error != nil {
		return 0, fmt.Errorf("failed to prune statistics snapshots: %w", result.Error)
	}
	if result.RowsAffected > 0 {
		s.logger.WithField("deleted", result.RowsAffected).Info("Pruned old statistics snapshots")
	}
	return result.RowsAffected, nil
}

// Ping is used by the readiness probe.
func (s *Store) Ping(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

// SnapshotProvider saves every successful upstream fetch and serves the
// latest snapshot when the upstream fails.
type SnapshotProvider struct {
	next   Provider
	store  *Store
	logger *logrus.Logger
}

func NewSnapshotProvider(next Provider, store *Store, logger *logrus.Logger) *SnapshotProvider {
	return &SnapshotProvider{next: next, store: store, logger: logger}
}

func (p *SnapshotProvider) Name() string {
	return "snapshot:" + p.next.Name()
}

func (p *SnapshotProvider) Fetch(ctx context.Context) (*lotto.Statistics, error) {
	return p.fetch(ctx, p.next.Fetch)
}

func (p *SnapshotProvider) Refresh(ctx context.Context) (*lotto.Statistics, error) {
	return p.fetch(ctx, func(ctx context.Context) (*lotto.Statistics, error) {
		return forceFetch(ctx, p.next)
	})
}

func (p *SnapshotProvider) fetch(ctx context.Context, fetch func(context.Context) (*lotto.Statistics, error)) (*lotto.Statistics, error) {
	stats, err := fetch(ctx)
	if err == nil {
		if _, serr := p.store.Save(ctx, stats); serr != nil {
			p.logger.WithError(serr).Warn("Failed to save statistics snapshot")
		}
		return stats, nil
	}

	p.logger.WithError(err).WithField("provider", p.next.Name()).
		Warn("Statistics provider failed, falling back to latest snapshot")

	latest, serr := p.store.Latest(ctx)
	if serr != nil {
		return nil, fmt.Errorf("%w (no fallback: %v)", err, serr)
	}
	if verr := latest.Validate(); verr != nil {
		return nil, fmt.Errorf("%w (stored snapshot invalid: %v)", err, verr)
	}
	return latest, nil
}
