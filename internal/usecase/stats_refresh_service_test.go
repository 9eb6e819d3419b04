package usecase

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/kfcrebrand/registration/internal/domain/player"
	"github.com/kfcrebrand/registration/internal/infrastructure/repository/memory"
)

type stubProfileFetcher struct {
	mu       sync.Mutex
	fetched  []int64
	failFor  map[int64]bool
	profiles map[int64]OsuIdentity
}

func (f *stubProfileFetcher) FetchUser(_ context.Context, osuUserID int64) (OsuIdentity, error) {
	f.mu.Lock()
	f.fetched = append(f.fetched, osuUserID)
	f.mu.Unlock()

	if f.failFor[osuUserID] {
		return OsuIdentity{}, fmt.Errorf("profile %d unavailable", osuUserID)
	}
	if profile, ok := f.profiles[osuUserID]; ok {
		return profile, nil
	}
	return OsuIdentity{ID: osuUserID, Username: "someone", CountryCode: "CA"}, nil
}

func TestStatsRefreshService_RefreshAll(t *testing.T) {
	store := memory.NewStore()
	seedRegistrant(t, store, nil)

	newRank := int64(69727)
	fetcher := &stubProfileFetcher{
		profiles: map[int64]OsuIdentity{
			2: {
				ID:          2,
				Username:    "peppy",
				CountryCode: "AU",
				GlobalRank:  &newRank,
				Badges: []player.Badge{
					{Description: "Corsace Open 2023 Winning Team", AwardedAt: time.Date(2023, 9, 10, 0, 0, 0, 0, time.UTC)},
				},
			},
		},
	}

	service := NewStatsRefreshService(store.Players(), fetcher, 2, time.Millisecond, discardLogger())
	updatedAt := time.Date(2026, 3, 2, 8, 0, 0, 0, time.UTC)
	service.now = func() time.Time { return updatedAt }

	result, err := service.RefreshAll(t.Context())
	if err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	if result.Total != 1 || result.Succeeded != 1 || result.Failed != 0 {
		t.Fatalf("unexpected result: %+v", result)
	}

	refreshed, ok, err := store.Players().FindByOsuID(t.Context(), 2)
	if err != nil || !ok {
		t.Fatalf("player lookup failed: ok=%v err=%v", ok, err)
	}
	if refreshed.OsuRank == nil || *refreshed.OsuRank != 69727 {
		t.Fatalf("expected rank 69727, got %v", refreshed.OsuRank)
	}
	if refreshed.OsuRankBWS == nil || *refreshed.OsuRankBWS != 64996 {
		t.Fatalf("expected bws 64996 for one eligible badge, got %v", refreshed.OsuRankBWS)
	}
	if !refreshed.OsuStatsUpdated.Equal(updatedAt) {
		t.Fatalf("expected stats timestamp %v, got %v", updatedAt, refreshed.OsuStatsUpdated)
	}

	badges, err := store.Players().ListBadges(t.Context(), refreshed.ID)
	if err != nil {
		t.Fatalf("list badges failed: %v", err)
	}
	if len(badges) != 1 {
		t.Fatalf("expected badge set replaced with one badge, got %d", len(badges))
	}
}

func TestStatsRefreshService_RefreshAll_CountsFailures(t *testing.T) {
	store := memory.SeedStore()
	fetcher := &stubProfileFetcher{failFor: map[int64]bool{4003: true, 4011: true}}

	service := NewStatsRefreshService(store.Players(), fetcher, 4, time.Millisecond, discardLogger())

	result, err := service.RefreshAll(t.Context())
	if err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	if result.Total != 12 {
		t.Fatalf("expected 12 players swept, got %d", result.Total)
	}
	if result.Succeeded != 10 || result.Failed != 2 {
		t.Fatalf("expected 10 ok and 2 failed, got %+v", result)
	}
	if len(fetcher.fetched) != 12 {
		t.Fatalf("expected every player fetched once, got %d", len(fetcher.fetched))
	}
}

func TestStatsRefreshService_RefreshAll_ContextCancelled(t *testing.T) {
	store := memory.SeedStore()
	fetcher := &stubProfileFetcher{}

	service := NewStatsRefreshService(store.Players(), fetcher, 1, time.Hour, discardLogger())

	ctx, cancel := context.WithCancel(t.Context())
	cancel()

	if _, err := service.RefreshAll(ctx); err == nil {
		t.Fatal("expected context error")
	}
}
