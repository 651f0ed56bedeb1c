package app

import (
	"context"

	"github.com/rs/zerolog/log"

	"github.com/ldrmon/ldrmon/internal/api"
	"github.com/ldrmon/ldrmon/internal/archive"
	"github.com/ldrmon/ldrmon/internal/config"
	"github.com/ldrmon/ldrmon/internal/feed"
)

// Services is a container for all application services.
// It manages service initialization order and dependencies.
type Services struct {
	cfg *config.Config

	// Core infrastructure
	Archive *archive.Store // nil when disabled

	// Clients
	Feed *feed.Client
	API  *api.Client

	// High-level services
	FeedSvc *FeedService
	Poller  *PollerService
	Health  *HealthService
}

// NewServices creates all services with proper dependency injection.
func NewServices(cfg *config.Config) (*Services, error) {
	s := &Services{cfg: cfg}

	// Initialize the local reading archive
	if cfg.Archive.Enabled {
		store, err := archive.Open(cfg.Archive.Path, cfg.Archive.MaxRecords)
		if err != nil {
			return nil, err
		}
		s.Archive = store
	}

	// Initialize the realtime feed client
	s.Feed = feed.New(feed.Config{
		URL:            cfg.Feed.URL,
		ConnectTimeout: cfg.Feed.ConnectTimeout.Duration(),
		PingInterval:   cfg.Feed.PingInterval.Duration(),
		ReconnectBase:  cfg.Feed.ReconnectBase.Duration(),
		ReconnectMax:   cfg.Feed.ReconnectMax.Duration(),
		ReconnectGrow:  cfg.Feed.ReconnectGrow,
		MaxReconnects:  cfg.Feed.MaxReconnects,
		SettleDelay:    cfg.Feed.SettleDelay.Duration(),
	})

	// Initialize the polling client
	s.API = api.New(api.Config{
		BaseURL:  cfg.API.BaseURL,
		Timeout:  cfg.API.Timeout.Duration(),
		CacheTTL: cfg.API.CacheTTL.Duration(),
	})

	// Initialize high-level services
	s.FeedSvc = NewFeedService(s.Feed, s.Archive)
	s.Poller = NewPollerService(cfg, s.API, s.Archive)
	s.Health = NewHealthService(cfg, s.Feed)

	return s, nil
}

// Start starts all services in the correct order. The feed and the poller run
// independently: if the feed drops, periodic polling keeps data fresh.
func (s *Services) Start(ctx context.Context) error {
	s.FeedSvc.Start(ctx)
	s.Poller.Start(ctx)
	s.Health.Start(ctx)
	return nil
}

// Stop gracefully shuts down all services.
func (s *Services) Stop() error {
	s.Feed.Close()

	if s.Archive != nil {
		if err := s.Archive.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close archive")
		}
	}

	return nil
}

// ClearArchive wipes the local reading archive.
func (s *Services) ClearArchive() error {
	if s.Archive == nil {
		return nil
	}
	return s.Archive.Clear()
}
