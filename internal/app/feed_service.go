package app

import (
	"context"
	"errors"

	"github.com/rs/zerolog/log"

	"github.com/ldrmon/ldrmon/internal/archive"
	"github.com/ldrmon/ldrmon/internal/feed"
	"github.com/ldrmon/ldrmon/internal/reading"
)

// FeedService owns the realtime feed subscription: it wires the archive
// recorder and lifecycle logging onto the feed client and opens the
// connection. Exhausted reconnects are not fatal to the process; the poller
// keeps data fresh until an operator intervenes.
type FeedService struct {
	client *feed.Client
	store  *archive.Store // nil when the archive is disabled
}

// NewFeedService creates a FeedService around an unstarted feed client.
func NewFeedService(client *feed.Client, store *archive.Store) *FeedService {
	return &FeedService{client: client, store: store}
}

// Start registers listeners and opens the feed connection.
func (s *FeedService) Start(ctx context.Context) {
	s.client.On(feed.EventData, func(ev feed.Event) {
		update := ev.(feed.DataUpdate)
		log.Debug().
			Int("value", update.Reading.Value).
			Str("band", string(reading.Classify(update.Reading.Value))).
			Msg("Feed reading")

		if s.store != nil {
			if err := s.store.Save(update.Reading); err != nil {
				log.Warn().Err(err).Msg("Failed to archive feed reading")
			}
		}
	})

	s.client.On(feed.EventError, func(ev feed.Event) {
		fe := ev.(feed.Error)
		if errors.Is(fe.Err, feed.ErrMaxReconnectsExceeded) {
			log.Error().Msg("Feed gave up reconnecting; relying on polling until restart")
		}
	})

	go func() {
		if err := s.client.Connect(ctx); err != nil {
			log.Warn().Err(err).Msg("Initial feed connection failed; polling only")
		}
	}()
}
