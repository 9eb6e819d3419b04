package usecase

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/kfcrebrand/registration/internal/domain/player"
	"github.com/kfcrebrand/registration/internal/domain/registration"
	"github.com/kfcrebrand/registration/internal/infrastructure/events"
	"github.com/kfcrebrand/registration/internal/infrastructure/repository/memory"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func validDiscord() DiscordIdentity {
	return DiscordIdentity{ID: "123456789012345678", Username: "peppy", Discriminator: "0"}
}

func validOsu(rank int64) OsuIdentity {
	return OsuIdentity{
		ID:          2,
		Username:    "peppy",
		CountryCode: "AU",
		GlobalRank:  &rank,
	}
}

func TestIdentityService_Link_NewRegistration(t *testing.T) {
	store := memory.NewStore()
	sink := events.NewCollector()
	service := NewIdentityService(store.Players(), sink, discardLogger())

	now := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	service.now = func() time.Time { return now }

	created, err := service.Link(t.Context(), validDiscord(), validOsu(69727))
	if err != nil {
		t.Fatalf("link failed: %v", err)
	}

	if created.ID == 0 {
		t.Fatal("expected assigned player id")
	}
	if created.TeamID != "AU" {
		t.Fatalf("expected team AU, got %s", created.TeamID)
	}
	if created.DiscordUsername != "peppy" {
		t.Fatalf("expected plain username for discriminator 0, got %s", created.DiscordUsername)
	}
	if created.OsuRank == nil || *created.OsuRank != 69727 {
		t.Fatalf("expected rank 69727, got %v", created.OsuRank)
	}
	if created.OsuRankBWS == nil || *created.OsuRankBWS != 69727 {
		t.Fatalf("expected bws rank 69727 with zero badges, got %v", created.OsuRankBWS)
	}
	if !created.OsuStatsUpdated.Equal(now) {
		t.Fatalf("expected stats timestamp %v, got %v", now, created.OsuStatsUpdated)
	}

	if _, ok, _ := store.Teams().GetByFlag(t.Context(), "AU"); !ok {
		t.Fatal("expected team AU to be created")
	}

	published := sink.Events()
	if len(published) != 1 {
		t.Fatalf("expected one event, got %d", len(published))
	}
	event, ok := published[0].(registration.NewRegistration)
	if !ok {
		t.Fatalf("expected NewRegistration event, got %T", published[0])
	}
	if event.OsuUserID != 2 || event.Flag != "AU" {
		t.Fatalf("unexpected event payload: %+v", event)
	}
}

func TestIdentityService_Link_ExistingPairingIsIdempotent(t *testing.T) {
	store := memory.NewStore()
	sink := events.NewCollector()
	service := NewIdentityService(store.Players(), sink, discardLogger())

	first, err := service.Link(t.Context(), validDiscord(), validOsu(1000))
	if err != nil {
		t.Fatalf("first link failed: %v", err)
	}
	second, err := service.Link(t.Context(), validDiscord(), validOsu(1000))
	if err != nil {
		t.Fatalf("second link failed: %v", err)
	}

	if first.ID != second.ID {
		t.Fatalf("expected same player id, got %d and %d", first.ID, second.ID)
	}
	if got := len(sink.Events()); got != 1 {
		t.Fatalf("expected one event for repeated login, got %d", got)
	}
}

func TestIdentityService_Link_DiscordSwitch(t *testing.T) {
	store := memory.NewStore()
	sink := events.NewCollector()
	service := NewIdentityService(store.Players(), sink, discardLogger())

	original, err := service.Link(t.Context(), validDiscord(), validOsu(1000))
	if err != nil {
		t.Fatalf("initial link failed: %v", err)
	}

	switched, err := service.Link(t.Context(), DiscordIdentity{
		ID:            "999999999999999999",
		Username:      "peppy2",
		Discriminator: "1234",
	}, validOsu(1000))
	if err != nil {
		t.Fatalf("switch link failed: %v", err)
	}

	if switched.ID != original.ID {
		t.Fatalf("expected stable player id, got %d and %d", original.ID, switched.ID)
	}
	if switched.DiscordUserID != "999999999999999999" {
		t.Fatalf("expected new discord id, got %s", switched.DiscordUserID)
	}
	if switched.DiscordUsername != "peppy2#1234" {
		t.Fatalf("expected discriminator suffix, got %s", switched.DiscordUsername)
	}

	published := sink.Events()
	if len(published) != 2 {
		t.Fatalf("expected two events, got %d", len(published))
	}
	event, ok := published[1].(registration.DiscordSwitch)
	if !ok {
		t.Fatalf("expected DiscordSwitch event, got %T", published[1])
	}
	if event.OldDiscordUserID != "123456789012345678" || event.NewDiscordUserID != "999999999999999999" {
		t.Fatalf("unexpected switch payload: %+v", event)
	}
}

func TestIdentityService_Link_IncompleteIdentity(t *testing.T) {
	store := memory.NewStore()
	service := NewIdentityService(store.Players(), events.NewCollector(), discardLogger())

	cases := []struct {
		name    string
		discord DiscordIdentity
		osu     OsuIdentity
	}{
		{"missing discord id", DiscordIdentity{Username: "a", Discriminator: "0"}, validOsu(1)},
		{"missing discriminator", DiscordIdentity{ID: "1", Username: "a"}, validOsu(1)},
		{"missing osu username", validDiscord(), OsuIdentity{ID: 2, CountryCode: "AU"}},
		{"missing country code", validDiscord(), OsuIdentity{ID: 2, Username: "peppy"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := service.Link(t.Context(), tc.discord, tc.osu); !errors.Is(err, ErrIncompleteIdentity) {
				t.Fatalf("expected ErrIncompleteIdentity, got %v", err)
			}
		})
	}
}

func TestIdentityService_Link_Disqualified(t *testing.T) {
	store := memory.NewStore()
	store.Disqualify(2)
	service := NewIdentityService(store.Players(), events.NewCollector(), discardLogger())

	if _, err := service.Link(t.Context(), validDiscord(), validOsu(1000)); !errors.Is(err, ErrDisqualified) {
		t.Fatalf("expected ErrDisqualified, got %v", err)
	}
}

func TestIdentityService_Link_BadgeWeightedRank(t *testing.T) {
	store := memory.NewStore()
	service := NewIdentityService(store.Players(), events.NewCollector(), discardLogger())

	osu := validOsu(69727)
	osu.Badges = []player.Badge{
		{Description: "osu! World Cup 2022 2nd Place", AwardedAt: time.Date(2022, 12, 4, 0, 0, 0, 0, time.UTC)},
		{Description: "Corsace Open 2023 Winning Team", AwardedAt: time.Date(2023, 9, 10, 0, 0, 0, 0, time.UTC)},
		// Denylisted and stale badges must not change the count.
		{Description: "Longstanding commitment to World Cup Pooling (3 years)", AwardedAt: time.Date(2023, 7, 16, 0, 0, 0, 0, time.UTC)},
		{Description: "Maple Cup 2015 Winner", AwardedAt: time.Date(2015, 9, 30, 0, 0, 0, 0, time.UTC)},
	}

	created, err := service.Link(t.Context(), validDiscord(), osu)
	if err != nil {
		t.Fatalf("link failed: %v", err)
	}

	if created.OsuRankBWS == nil || *created.OsuRankBWS != 52783 {
		t.Fatalf("expected bws 52783 for two eligible badges, got %v", created.OsuRankBWS)
	}

	// Storage keeps everything that passes the denylist, dates included.
	badges, err := store.Players().ListBadges(t.Context(), created.ID)
	if err != nil {
		t.Fatalf("list badges failed: %v", err)
	}
	if len(badges) != 3 {
		t.Fatalf("expected three stored badges, got %d", len(badges))
	}
}

func TestIdentityService_DeleteAccount(t *testing.T) {
	store := memory.NewStore()
	sink := events.NewCollector()
	service := NewIdentityService(store.Players(), sink, discardLogger())

	created, err := service.Link(t.Context(), validDiscord(), validOsu(1000))
	if err != nil {
		t.Fatalf("link failed: %v", err)
	}

	if err := service.DeleteAccount(t.Context(), created.ID); err != nil {
		t.Fatalf("delete failed: %v", err)
	}
	if _, ok, _ := store.Players().GetByID(t.Context(), created.ID); ok {
		t.Fatal("expected player to be gone")
	}

	published := sink.Events()
	last, ok := published[len(published)-1].(registration.AccountDeleted)
	if !ok {
		t.Fatalf("expected AccountDeleted event, got %T", published[len(published)-1])
	}
	if last.OsuUserID != 2 {
		t.Fatalf("unexpected delete payload: %+v", last)
	}

	if err := service.DeleteAccount(t.Context(), created.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on second delete, got %v", err)
	}
}

// stalePairingRepo simulates the snapshot a racing login works from:
// the pairing and osu-id lookups miss a fixed number of times even
// though the row already exists in the shared store.
type stalePairingRepo struct {
	player.Repository
	pairingMisses int
	osuMisses     int
}

func (r *stalePairingRepo) GetByPairing(ctx context.Context, discordUserID string, osuUserID int64) (player.Player, bool, error) {
	if r.pairingMisses > 0 {
		r.pairingMisses--
		return player.Player{}, false, nil
	}
	return r.Repository.GetByPairing(ctx, discordUserID, osuUserID)
}

func (r *stalePairingRepo) FindByOsuID(ctx context.Context, osuUserID int64) (player.Player, bool, error) {
	if r.osuMisses > 0 {
		r.osuMisses--
		return player.Player{}, false, nil
	}
	return r.Repository.FindByOsuID(ctx, osuUserID)
}

func TestIdentityService_Link_RegistrationRaceResolvesToWinner(t *testing.T) {
	store := memory.NewStore()

	winner := NewIdentityService(store.Players(), events.NewCollector(), discardLogger())
	first, err := winner.Link(t.Context(), validDiscord(), validOsu(69727))
	if err != nil {
		t.Fatalf("winning link failed: %v", err)
	}

	// The losing call saw the world before the winner committed: both
	// lookups miss, the insert hits the pairing constraint, and the
	// retry must hand back the winner's row instead of an error.
	stale := &stalePairingRepo{Repository: store.Players(), pairingMisses: 1, osuMisses: 1}
	sink := events.NewCollector()
	loser := NewIdentityService(stale, sink, discardLogger())

	second, err := loser.Link(t.Context(), validDiscord(), validOsu(69727))
	if err != nil {
		t.Fatalf("losing link failed: %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("expected winner's player id %d, got %d", first.ID, second.ID)
	}

	players, err := store.Players().List(t.Context())
	if err != nil {
		t.Fatalf("list players: %v", err)
	}
	if len(players) != 1 {
		t.Fatalf("expected a single player row, got %d", len(players))
	}
	if published := sink.Events(); len(published) != 0 {
		t.Fatalf("losing link must not announce a registration, got %d events", len(published))
	}
}

func TestIdentityService_Link_ConcurrentSamePairing(t *testing.T) {
	store := memory.NewStore()
	service := NewIdentityService(store.Players(), events.NewCollector(), discardLogger())

	const callers = 4
	results := make([]player.Player, callers)
	errs := make([]error, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = service.Link(context.Background(), validDiscord(), validOsu(69727))
		}(i)
	}
	wg.Wait()

	for i := 0; i < callers; i++ {
		if errs[i] != nil {
			t.Fatalf("link %d failed: %v", i, errs[i])
		}
		if results[i].ID != results[0].ID {
			t.Fatalf("link %d resolved to player %d, link 0 to %d", i, results[i].ID, results[0].ID)
		}
	}

	players, err := store.Players().List(context.Background())
	if err != nil {
		t.Fatalf("list players: %v", err)
	}
	if len(players) != 1 {
		t.Fatalf("expected a single player row, got %d", len(players))
	}
}
