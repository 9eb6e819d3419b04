package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kfcrebrand/registration/internal/domain/player"
	"github.com/kfcrebrand/registration/internal/domain/registration"
)

// DiscordIdentity is the chat-side half of a login, as returned by the
// Discord identity endpoint.
type DiscordIdentity struct {
	ID            string
	Username      string
	Discriminator string
}

// DisplayName renders the historical discord handle. Accounts migrated
// to unique usernames carry the sentinel discriminator "0" and render
// without the suffix.
func (d DiscordIdentity) DisplayName() string {
	if d.Discriminator == "0" {
		return d.Username
	}
	return fmt.Sprintf("%s#%s", d.Username, d.Discriminator)
}

// OsuIdentity is the game-side half of a login, as returned by the osu
// "me" endpoint.
type OsuIdentity struct {
	ID          int64
	Username    string
	CountryCode string
	GlobalRank  *int64
	Badges      []player.Badge
}

// IdentityService links a discord identity and an osu identity into one
// player record.
type IdentityService struct {
	playerRepo player.Repository
	events     registration.EventSink
	logger     *slog.Logger
	now        func() time.Time
}

func NewIdentityService(
	playerRepo player.Repository,
	events registration.EventSink,
	logger *slog.Logger,
) *IdentityService {
	if logger == nil {
		logger = slog.Default()
	}

	return &IdentityService{
		playerRepo: playerRepo,
		events:     events,
		logger:     logger,
		now:        time.Now,
	}
}

// Link resolves the identity pair to a player, creating or re-pairing
// as needed. The resolution order is: exact pairing match, then osu id
// match (discord switch), then fresh registration.
func (s *IdentityService) Link(ctx context.Context, discord DiscordIdentity, osu OsuIdentity) (player.Player, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.IdentityService.Link")
	defer span.End()

	if err := validateIdentities(discord, osu); err != nil {
		return player.Player{}, err
	}

	disqualified, err := s.playerRepo.IsDisqualified(ctx, osu.ID)
	if err != nil {
		return player.Player{}, fmt.Errorf("check disqualification: %w", err)
	}
	if disqualified {
		return player.Player{}, ErrDisqualified
	}

	if existing, ok, err := s.playerRepo.GetByPairing(ctx, discord.ID, osu.ID); err != nil {
		return player.Player{}, fmt.Errorf("get player by pairing: %w", err)
	} else if ok {
		return existing, nil
	}

	// A known osu id paired with a new discord id means the player
	// switched discord accounts; keep the record and re-pair it. The
	// reverse direction (known discord id, new osu id) intentionally
	// falls through to a fresh registration.
	if existing, ok, err := s.playerRepo.FindByOsuID(ctx, osu.ID); err != nil {
		return player.Player{}, fmt.Errorf("find player by osu id: %w", err)
	} else if ok {
		return s.switchDiscord(ctx, existing, discord)
	}

	return s.register(ctx, discord, osu)
}

func (s *IdentityService) switchDiscord(ctx context.Context, existing player.Player, discord DiscordIdentity) (player.Player, error) {
	oldDiscordID := existing.DiscordUserID

	updated, err := s.playerRepo.SwitchDiscordIdentity(ctx, existing.ID, discord.ID, discord.DisplayName())
	if err != nil {
		return player.Player{}, fmt.Errorf("switch discord identity: %w", err)
	}

	s.publish(ctx, registration.DiscordSwitch{
		OldDiscordUserID: oldDiscordID,
		NewDiscordUserID: discord.ID,
	})

	s.logger.InfoContext(ctx, "discord identity switched",
		"player_id", updated.ID,
		"osu_user_id", updated.OsuUserID,
	)

	return updated, nil
}

func (s *IdentityService) register(ctx context.Context, discord DiscordIdentity, osu OsuIdentity) (player.Player, error) {
	storedBadges := FilterBadges(osu.Badges, DefaultBadgeDenylist, time.Time{})
	eligible := len(FilterBadges(osu.Badges, DefaultBadgeDenylist, DefaultBadgeCutoff))

	var rank, rankBWS *int64
	if osu.GlobalRank != nil {
		r := *osu.GlobalRank
		b := BWS(eligible, r)
		rank, rankBWS = &r, &b
	}

	candidate := player.Player{
		DiscordUserID:   discord.ID,
		DiscordUsername: discord.DisplayName(),
		OsuUserID:       osu.ID,
		OsuUsername:     osu.Username,
		OsuFlag:         osu.CountryCode,
		OsuRank:         rank,
		OsuRankBWS:      rankBWS,
		OsuStatsUpdated: s.now().UTC(),
		TeamID:          osu.CountryCode,
	}
	if err := candidate.Validate(); err != nil {
		return player.Player{}, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	created, err := s.playerRepo.Register(ctx, candidate, storedBadges)
	if err != nil {
		// The unique pairing constraint means a concurrent login for
		// the same pair committed between our lookup and the insert.
		// Resolve to the row that won instead of failing the login.
		if errors.Is(err, player.ErrPairingExists) {
			if existing, ok, lookupErr := s.playerRepo.GetByPairing(ctx, discord.ID, osu.ID); lookupErr == nil && ok {
				s.logger.InfoContext(ctx, "registration race resolved to existing player",
					"player_id", existing.ID,
					"osu_user_id", existing.OsuUserID,
				)
				return existing, nil
			}
		}
		return player.Player{}, fmt.Errorf("register player: %w", err)
	}

	s.publish(ctx, registration.NewRegistration{
		DiscordUserID:    created.DiscordUserID,
		OsuUserID:        created.OsuUserID,
		OsuUsername:      created.OsuUsername,
		OsuGlobalRank:    created.OsuRank,
		OsuGlobalRankBWS: created.OsuRankBWS,
		Flag:             created.TeamID,
		IsOrganizer:      created.IsOrganizer,
	})

	s.logger.InfoContext(ctx, "player registered",
		"player_id", created.ID,
		"osu_user_id", created.OsuUserID,
		"flag", created.TeamID,
		"eligible_badges", eligible,
	)

	return created, nil
}

// DeleteAccount removes the player and announces the removal so the
// chat side can drop its roles.
func (s *IdentityService) DeleteAccount(ctx context.Context, playerID int64) error {
	ctx, span := startUsecaseSpan(ctx, "usecase.IdentityService.DeleteAccount")
	defer span.End()

	existing, ok, err := s.playerRepo.GetByID(ctx, playerID)
	if err != nil {
		return fmt.Errorf("get player: %w", err)
	}
	if !ok {
		return fmt.Errorf("%w: player %d", ErrNotFound, playerID)
	}

	if err := s.playerRepo.Delete(ctx, playerID); err != nil {
		return fmt.Errorf("delete player: %w", err)
	}

	s.publish(ctx, registration.AccountDeleted{
		DiscordUserID: existing.DiscordUserID,
		OsuUserID:     existing.OsuUserID,
	})

	s.logger.InfoContext(ctx, "player account deleted",
		"player_id", playerID,
		"osu_user_id", existing.OsuUserID,
	)

	return nil
}

// publish is fire and forget: a dead bridge must not fail a login.
func (s *IdentityService) publish(ctx context.Context, event registration.Event) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "publish registration event failed",
			"event_type", event.EventType(),
			"error", err,
		)
	}
}

func validateIdentities(discord DiscordIdentity, osu OsuIdentity) error {
	if strings.TrimSpace(discord.ID) == "" ||
		strings.TrimSpace(discord.Username) == "" ||
		strings.TrimSpace(discord.Discriminator) == "" {
		return fmt.Errorf("%w: discord identity requires id, username and discriminator", ErrIncompleteIdentity)
	}
	if osu.ID <= 0 || strings.TrimSpace(osu.Username) == "" || strings.TrimSpace(osu.CountryCode) == "" {
		return fmt.Errorf("%w: osu identity requires id, username and country code", ErrIncompleteIdentity)
	}

	return nil
}
