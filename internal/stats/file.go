package stats

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/alan-saberi/lotomax-canada/internal/lotto"
	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// FileProvider loads statistics from a YAML or JSON file. Files ending in
// .json are decoded as JSON, everything else as YAML.
type FileProvider struct {
	path   string
	logger *logrus.Logger
}

func NewFileProvider(path string, logger *logrus.Logger) *FileProvider {
	return &FileProvider{path: path, logger: logger}
}

func (p *FileProvider) Name() string {
	return "file"
}

func (p *FileProvider) Fetch(ctx context.Context) (*lotto.Statistics, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(p.path)
	if err != nil {
		return nil, fmt.Errorf("failed to read statistics file: %w", err)
	}

	var raw lotto.Statistics
	if strings.EqualFold(filepath.Ext(p.path), ".json") {
		err = json.Unmarshal(data, &raw)
	} else {
		err = yaml.Unmarshal(data, &raw)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to decode statistics file %s: %w", p.path, err)
	}

	if raw.Source == "" {
		raw.Source = "file:" + p.path
	}
	if raw.FetchedAt.IsZero() {
		if info, err := os.Stat(p.path); err == nil {
			raw.FetchedAt = info.ModTime().UTC()
		}
	}

	stats, err := finalize(&raw, p.logger)
	if err != nil {
		return nil, err
	}

	p.logger.WithFields(logrus.Fields{
		"path":         p.path,
		"total_weight": stats.Frequency.TotalWeight(),
	}).Info("Loaded statistics file")
	return stats, nil
}
