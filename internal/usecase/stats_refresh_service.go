package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/panjf2000/ants/v2"

	"github.com/kfcrebrand/registration/internal/domain/player"
)

// OsuProfileFetcher loads a fresh osu profile for one user.
type OsuProfileFetcher interface {
	FetchUser(ctx context.Context, osuUserID int64) (OsuIdentity, error)
}

// RefreshResult summarizes one stats refresh sweep.
type RefreshResult struct {
	Total       int   `json:"total"`
	Succeeded   int   `json:"succeeded"`
	Failed      int   `json:"failed"`
	WorkerCount int   `json:"worker_count"`
	DurationMs  int64 `json:"duration_ms"`
}

const (
	defaultRefreshWorkers = 4
	// defaultFetchInterval paces profile fetches at two per second,
	// which is what the osu API tolerates sustained.
	defaultFetchInterval = 500 * time.Millisecond
)

// StatsRefreshService re-pulls rank and badge data for every registered
// player and rewrites the derived seeding values.
type StatsRefreshService struct {
	playerRepo player.Repository
	fetcher    OsuProfileFetcher
	logger     *slog.Logger
	now        func() time.Time

	workers       int
	fetchInterval time.Duration
}

func NewStatsRefreshService(
	playerRepo player.Repository,
	fetcher OsuProfileFetcher,
	workers int,
	fetchInterval time.Duration,
	logger *slog.Logger,
) *StatsRefreshService {
	if logger == nil {
		logger = slog.Default()
	}
	if workers <= 0 {
		workers = defaultRefreshWorkers
	}
	if fetchInterval <= 0 {
		fetchInterval = defaultFetchInterval
	}

	return &StatsRefreshService{
		playerRepo:    playerRepo,
		fetcher:       fetcher,
		logger:        logger,
		now:           time.Now,
		workers:       workers,
		fetchInterval: fetchInterval,
	}
}

// RefreshAll sweeps every registered player. Individual failures are
// counted, logged and skipped; the sweep itself only fails when the
// player list cannot be loaded or the pool cannot start.
func (s *StatsRefreshService) RefreshAll(ctx context.Context) (RefreshResult, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.StatsRefreshService.RefreshAll")
	defer span.End()

	players, err := s.playerRepo.List(ctx)
	if err != nil {
		return RefreshResult{}, fmt.Errorf("list players: %w", err)
	}

	pool, err := ants.NewPool(s.workers)
	if err != nil {
		return RefreshResult{}, fmt.Errorf("create worker pool: %w", err)
	}
	defer pool.Release()

	start := s.now()
	ticker := time.NewTicker(s.fetchInterval)
	defer ticker.Stop()

	var succeeded, failed atomic.Int32
	var workers sync.WaitGroup

	for _, p := range players {
		select {
		case <-ctx.Done():
			workers.Wait()
			return RefreshResult{}, ctx.Err()
		case <-ticker.C:
		}

		p := p
		workers.Add(1)
		if err := pool.Submit(func() {
			defer workers.Done()

			if err := s.refreshOne(ctx, p); err != nil {
				failed.Add(1)
				s.logger.WarnContext(ctx, "stats refresh failed",
					"player_id", p.ID,
					"osu_user_id", p.OsuUserID,
					"error", err,
				)
				return
			}
			succeeded.Add(1)
		}); err != nil {
			workers.Done()
			return RefreshResult{}, fmt.Errorf("submit refresh task: %w", err)
		}
	}

	workers.Wait()

	result := RefreshResult{
		Total:       len(players),
		Succeeded:   int(succeeded.Load()),
		Failed:      int(failed.Load()),
		WorkerCount: s.workers,
		DurationMs:  s.now().Sub(start).Milliseconds(),
	}

	s.logger.InfoContext(ctx, "stats refresh sweep finished",
		"total", result.Total,
		"succeeded", result.Succeeded,
		"failed", result.Failed,
	)

	return result, nil
}

func (s *StatsRefreshService) refreshOne(ctx context.Context, p player.Player) error {
	profile, err := s.fetcher.FetchUser(ctx, p.OsuUserID)
	if err != nil {
		return fmt.Errorf("fetch osu profile: %w", err)
	}

	storedBadges := FilterBadges(profile.Badges, DefaultBadgeDenylist, time.Time{})
	eligible := len(FilterBadges(profile.Badges, DefaultBadgeDenylist, DefaultBadgeCutoff))

	var rank, rankBWS *int64
	if profile.GlobalRank != nil {
		r := *profile.GlobalRank
		b := BWS(eligible, r)
		rank, rankBWS = &r, &b
	}

	if err := s.playerRepo.ReplaceStats(ctx, p.ID, rank, rankBWS, s.now().UTC(), storedBadges); err != nil {
		return fmt.Errorf("replace stats: %w", err)
	}

	return nil
}
