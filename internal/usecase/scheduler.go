package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"NewsShell/internal/domain"
	"NewsShell/internal/events"
	"NewsShell/internal/ports"
)

// ConfigSink stores a fetched master config and reports whether it changed.
type ConfigSink interface {
	Update(cfg domain.MasterConfig) bool
}

// ConfigRefresher pulls the master config from its remote source.
type ConfigRefresher struct {
	source  ports.MasterConfigSource
	sink    ConfigSink
	events  Publisher
	timeout time.Duration
	logger  *slog.Logger
}

// NewConfigRefresher builds a refresher; events may be nil.
func NewConfigRefresher(source ports.MasterConfigSource, sink ConfigSink, events Publisher, logger *slog.Logger) *ConfigRefresher {
	return &ConfigRefresher{
		source:  source,
		sink:    sink,
		events:  events,
		timeout: 15 * time.Second,
		logger:  logger,
	}
}

// Refresh fetches once. The new snapshot applies to sessions started afterwards.
func (r *ConfigRefresher) Refresh(ctx context.Context) (bool, error) {
	if r.source == nil || r.sink == nil {
		return false, nil
	}
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cfg, err := r.source.Fetch(ctx)
	if err != nil {
		return false, fmt.Errorf("fetch master config: %w", err)
	}
	changed := r.sink.Update(cfg)
	if changed {
		if r.logger != nil {
			r.logger.Info("master config updated", "root", cfg.RootDomain, "accepted", len(cfg.AcceptedDomains), "external", len(cfg.ExternalDomains))
		}
		if r.events != nil {
			r.events.Publish(events.TopicConfig, cfg)
		}
	}
	return changed, nil
}

// Scheduler wires the cron-like driver with the config refresher.
type Scheduler struct {
	driver    ports.Scheduler
	refresher *ConfigRefresher
	logger    *slog.Logger
}

// NewScheduler returns a helper to start/stop recurring refreshes.
func NewScheduler(driver ports.Scheduler, refresher *ConfigRefresher, logger *slog.Logger) *Scheduler {
	return &Scheduler{driver: driver, refresher: refresher, logger: logger}
}

// Start registers the refresh job with the provided scheduler.
func (s *Scheduler) Start(ctx context.Context) error {
	if s.driver == nil || s.refresher == nil {
		return nil
	}

	job := func(trigger time.Time) {
		if _, err := s.refresher.Refresh(ctx); err != nil && s.logger != nil {
			s.logger.Warn("scheduled config refresh failed", "trigger", trigger, "error", err)
		}
	}

	return s.driver.Start(ctx, job)
}

// Stop gracefully tears down the underlying scheduler.
func (s *Scheduler) Stop(ctx context.Context) error {
	if s.driver == nil {
		return nil
	}

	return s.driver.Stop(ctx)
}
