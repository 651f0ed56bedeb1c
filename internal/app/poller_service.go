package app

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/ldrmon/ldrmon/internal/api"
	"github.com/ldrmon/ldrmon/internal/archive"
	"github.com/ldrmon/ldrmon/internal/config"
)

// PollerService fetches periodic snapshots over REST. It is the redundancy
// path next to the realtime feed: both run for the page's lifetime and
// neither depends on the other.
type PollerService struct {
	cfg    *config.Config
	client *api.Client
	store  *archive.Store // nil when the archive is disabled

	lastArchived string // timestamp of the newest locally archived reading
}

// NewPollerService creates a PollerService.
func NewPollerService(cfg *config.Config, client *api.Client, store *archive.Store) *PollerService {
	return &PollerService{cfg: cfg, client: client, store: store}
}

// Start begins periodic snapshot polling if enabled.
func (s *PollerService) Start(ctx context.Context) {
	interval := s.cfg.Poll.Interval.Duration()
	if interval <= 0 {
		return
	}

	if s.store != nil {
		if latest, err := s.store.Latest(); err == nil && latest != nil {
			s.lastArchived = latest.Timestamp
		}
	}

	go s.run(ctx, interval)
}

func (s *PollerService) run(ctx context.Context, interval time.Duration) {
	log.Info().Dur("interval", interval).Msg("Starting snapshot poller")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.poll(ctx)
		}
	}
}

func (s *PollerService) poll(ctx context.Context) {
	snap := s.client.CompleteData(ctx, s.cfg.Poll.HistoryLimit)

	if snap.Latest != nil {
		log.Debug().
			Int("value", snap.Latest.Value).
			Str("timestamp", snap.Latest.Timestamp).
			Msg("Polled latest reading")
		s.archiveLatest(snap)
	}
	if snap.Latest == nil && snap.Stats == nil && len(snap.History) == 0 {
		log.Warn().Strs("errors", snap.Errors).Msg("Snapshot poll returned no data")
	}
}

// archiveLatest stores a polled reading when it is newer than the last one we
// archived, so the local archive keeps filling while the feed is down without
// duplicating feed-recorded rows.
func (s *PollerService) archiveLatest(snap api.CompleteData) {
	if s.store == nil || snap.Latest == nil {
		return
	}
	if snap.Latest.Timestamp == "" || snap.Latest.Timestamp == s.lastArchived {
		return
	}
	if err := s.store.Save(*snap.Latest); err != nil {
		log.Warn().Err(err).Msg("Failed to archive polled reading")
		return
	}
	s.lastArchived = snap.Latest.Timestamp
}
