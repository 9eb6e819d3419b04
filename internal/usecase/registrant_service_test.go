package usecase

import (
	"errors"
	"testing"
	"time"

	"github.com/kfcrebrand/registration/internal/domain/player"
	"github.com/kfcrebrand/registration/internal/infrastructure/events"
	"github.com/kfcrebrand/registration/internal/infrastructure/repository/memory"
)

func seedRegistrant(t *testing.T, store *memory.Store, badges []player.Badge) player.Player {
	t.Helper()

	osu := validOsu(5000)
	osu.Badges = badges
	created, err := NewIdentityService(store.Players(), events.NewCollector(), discardLogger()).
		Link(t.Context(), validDiscord(), osu)
	if err != nil {
		t.Fatalf("seed registrant failed: %v", err)
	}
	return created
}

func TestRegistrantService_Get_LookupKeys(t *testing.T) {
	store := memory.NewStore()
	created := seedRegistrant(t, store, nil)
	service := NewRegistrantService(store.Players(), discardLogger())

	cases := []struct {
		name string
		key  string
		id   string
	}{
		{"default key", "", "1"},
		{"pk key", "pk", "1"},
		{"discord key", "discord", created.DiscordUserID},
		{"osu key", "osu", "2"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			detail, err := service.Get(t.Context(), tc.key, tc.id, nil)
			if err != nil {
				t.Fatalf("get failed: %v", err)
			}
			if detail.Player.ID != created.ID {
				t.Fatalf("expected player %d, got %d", created.ID, detail.Player.ID)
			}
		})
	}

	if _, err := service.Get(t.Context(), "email", "x", nil); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for unknown key, got %v", err)
	}
	if _, err := service.Get(t.Context(), "pk", "not-a-number", nil); !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for non-integer id, got %v", err)
	}
	if _, err := service.Get(t.Context(), "pk", "999", nil); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRegistrantService_Get_BadgeCutoffView(t *testing.T) {
	store := memory.NewStore()
	created := seedRegistrant(t, store, []player.Badge{
		{Description: "Corsace Closed 2023 Winning Team", AwardedAt: time.Date(2023, 9, 10, 0, 0, 0, 0, time.UTC)},
		{Description: "Maple Cup 2015 Winner", AwardedAt: time.Date(2015, 9, 30, 0, 0, 0, 0, time.UTC)},
	})
	service := NewRegistrantService(store.Players(), discardLogger())

	// Default cutoff hides the stale badge.
	detail, err := service.Get(t.Context(), "", "1", nil)
	if err != nil {
		t.Fatalf("get failed: %v", err)
	}
	if len(detail.Badges) != 1 {
		t.Fatalf("expected one badge with default cutoff, got %d", len(detail.Badges))
	}

	// An epoch cutoff shows both.
	epoch := time.Unix(0, 0).UTC()
	detail, err = service.Get(t.Context(), "", "1", &epoch)
	if err != nil {
		t.Fatalf("get with cutoff failed: %v", err)
	}
	if len(detail.Badges) != 2 {
		t.Fatalf("expected two badges with epoch cutoff, got %d", len(detail.Badges))
	}
	_ = created
}

func TestRegistrantService_SetOrganizer(t *testing.T) {
	store := memory.NewStore()
	created := seedRegistrant(t, store, nil)
	service := NewRegistrantService(store.Players(), discardLogger())

	updated, err := service.SetOrganizer(t.Context(), created.ID, true)
	if err != nil {
		t.Fatalf("set organizer failed: %v", err)
	}
	if !updated.IsOrganizer {
		t.Fatal("expected organizer flag set")
	}

	updated, err = service.SetOrganizer(t.Context(), created.ID, false)
	if err != nil {
		t.Fatalf("clear organizer failed: %v", err)
	}
	if updated.IsOrganizer {
		t.Fatal("expected organizer flag cleared")
	}

	if _, err := service.SetOrganizer(t.Context(), 999, true); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestParseBadgeCutoff(t *testing.T) {
	if cutoff, err := ParseBadgeCutoff(""); err != nil || cutoff != nil {
		t.Fatalf("expected nil cutoff for empty value, got %v %v", cutoff, err)
	}

	cutoff, err := ParseBadgeCutoff("1609459200")
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	expected := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	if !cutoff.Equal(expected) {
		t.Fatalf("expected %v, got %v", expected, cutoff)
	}

	_, err = ParseBadgeCutoff("not-a-timestamp")
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if err.Error() != "invalid input: Invalid badge_cutoff_date provided, please provide a unix timestamp" {
		t.Fatalf("unexpected message: %q", err.Error())
	}
}
