package results

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// Sweeper drops result dialogs nobody dismissed
type Sweeper struct {
	store     *Store
	interval  time.Duration // Time between sweeps
	retention time.Duration
}

func NewSweeper(store *Store, retention time.Duration) *Sweeper {
	return &Sweeper{
		store:     store,
		interval:  time.Minute,
		retention: retention,
	}
}

// Start runs the sweep loop until ctx is cancelled
func (s *Sweeper) Start(ctx context.Context) {
	logger := log.With().Str("component", "result_sweeper").Logger()
	logger.Info().Dur("retention", s.retention).Msg("starting result sweeper")

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info().Msg("shutting down result sweeper")
			return
		case <-ticker.C:
			if err := s.sweep(time.Now()); err != nil {
				logger.Error().Err(err).Msg("failed to sweep result dialogs")
			}
		}
	}
}

func (s *Sweeper) sweep(now time.Time) error {
	dropped, err := s.store.DeleteOpenedBefore(now.Add(-s.retention))
	if err != nil {
		return err
	}
	if dropped > 0 {
		log.Debug().Str("component", "result_sweeper").Int64("dropped", dropped).Msg("dropped stale result dialogs")
	}
	return nil
}
