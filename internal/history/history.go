// Package history fetches temperature samples from the configured sources:
// a local sensor SQLite database, a TimescaleDB hypertable, or a remote HTTP
// history endpoint.
package history

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/yishaik/winter-wellness-bot/internal/log"
	"github.com/yishaik/winter-wellness-bot/internal/sessions"
	"github.com/yishaik/winter-wellness-bot/pkg/config"
)

// Source supplies temperature observations for a time window, ordered by
// timestamp. An empty result is not an error.
type Source interface {
	Fetch(ctx context.Context, from, to time.Time) ([]sessions.Observation, error)
	Name() string
}

// Chain tries sources in order and returns the first non-empty result.
// Failing sources are logged and skipped, matching the original bot's
// SQLite-then-HTTP fallback.
type Chain struct {
	sources []Source
}

// NewChain creates a chain over the given sources.
func NewChain(sources ...Source) *Chain {
	return &Chain{sources: sources}
}

// Fetch returns samples from the first source that produces any.
func (c *Chain) Fetch(ctx context.Context, from, to time.Time) ([]sessions.Observation, error) {
	for _, src := range c.sources {
		samples, err := src.Fetch(ctx, from, to)
		if err != nil {
			log.Warnf("history source %s failed: %v", src.Name(), err)
			continue
		}
		if len(samples) > 0 {
			return samples, nil
		}
	}
	return nil, nil
}

// Name implements Source.
func (c *Chain) Name() string {
	return "chain"
}

// Close closes every source that holds a connection.
func (c *Chain) Close() error {
	var firstErr error
	for _, src := range c.sources {
		if closer, ok := src.(io.Closer); ok {
			if err := closer.Close(); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

// NewChainFromConfig assembles the source chain described by the history
// configuration, in fallback order: SQLite, TimescaleDB, HTTP.
func NewChainFromConfig(cfg config.HistoryData) (*Chain, error) {
	var sources []Source

	if cfg.SQLitePath != "" {
		src, err := NewSQLiteSource(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite history source: %w", err)
		}
		sources = append(sources, src)
	}
	if cfg.TimescaleDSN != "" {
		src, err := NewTimescaleSource(cfg.TimescaleDSN)
		if err != nil {
			return nil, fmt.Errorf("connecting timescale history source: %w", err)
		}
		sources = append(sources, src)
	}
	if cfg.BaseURL != "" {
		sources = append(sources, NewHTTPSource(cfg.BaseURL))
	}

	if len(sources) == 0 {
		log.Warn("no history sources configured; session reports will be empty")
	}
	return NewChain(sources...), nil
}
