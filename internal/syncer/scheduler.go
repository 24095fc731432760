package syncer

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/log"

	"holesync/internal/config"
	"holesync/internal/support"
)

// StartScheduler runs the periodic sync loop until the context is done. With
// Redis enabled the loop only runs while holding the leadership lock, so one
// of several daemon replicas drives the schedule at a time.
func (s *Service) StartScheduler(ctx context.Context) {
	cfg := config.GetConfig()

	if !cfg.Redis.Enabled {
		s.runLoop(ctx)
		return
	}

	err := support.RunWithLeader(ctx, cfg.Redis.LockKey, support.DefaultLeadershipTTL, func(leaderCtx context.Context) {
		s.runLoop(leaderCtx)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		log.Error("Sync scheduler stopped", "error", err)
	}
}

func (s *Service) runLoop(ctx context.Context) {
	updates := config.SyncIntervalUpdates()
	current := <-updates

	ticker := time.NewTicker(current)
	defer ticker.Stop()

	if _, err := s.Run(ctx, "startup"); err != nil {
		log.Error("Startup sync failed", "error", err)
	}

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := s.Run(ctx, "scheduled"); err != nil {
				log.Error("Scheduled sync failed", "error", err)
			}
		case newInterval := <-updates:
			if newInterval <= 0 || newInterval == current {
				continue
			}
			drainTicker(ticker)
			current = newInterval
			ticker.Reset(current)
			log.Debug("Sync interval updated", "interval", current)
		}
	}
}

func drainTicker(ticker *time.Ticker) {
	for {
		select {
		case <-ticker.C:
		default:
			return
		}
	}
}
