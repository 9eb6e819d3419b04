package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/kfcrebrand/registration/internal/domain/player"
)

// Lookup keys accepted by RegistrantService.Get.
const (
	LookupByID      = "pk"
	LookupByDiscord = "discord"
	LookupByOsu     = "osu"
)

// RegistrantDetail is a player together with the cutoff-filtered view
// of their badges.
type RegistrantDetail struct {
	Player player.Player
	Badges []player.Badge
}

// RegistrantService serves the trusted registrant directory used by the
// Discord bridge.
type RegistrantService struct {
	playerRepo player.Repository
	logger     *slog.Logger
}

func NewRegistrantService(playerRepo player.Repository, logger *slog.Logger) *RegistrantService {
	if logger == nil {
		logger = slog.Default()
	}

	return &RegistrantService{
		playerRepo: playerRepo,
		logger:     logger,
	}
}

// List returns every registered player.
func (s *RegistrantService) List(ctx context.Context) ([]player.Player, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.RegistrantService.List")
	defer span.End()

	players, err := s.playerRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list players: %w", err)
	}

	return players, nil
}

// Get resolves one registrant by the requested key kind. An empty key
// defaults to the primary key lookup. The badge view is filtered by
// badgeCutoff when given, otherwise by the default cutoff.
func (s *RegistrantService) Get(ctx context.Context, key, id string, badgeCutoff *time.Time) (RegistrantDetail, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.RegistrantService.Get")
	defer span.End()

	found, ok, err := s.lookup(ctx, key, id)
	if err != nil {
		return RegistrantDetail{}, err
	}
	if !ok {
		return RegistrantDetail{}, fmt.Errorf("%w: registrant %s", ErrNotFound, id)
	}

	badges, err := s.playerRepo.ListBadges(ctx, found.ID)
	if err != nil {
		return RegistrantDetail{}, fmt.Errorf("list badges: %w", err)
	}

	cutoff := DefaultBadgeCutoff
	if badgeCutoff != nil {
		cutoff = *badgeCutoff
	}

	return RegistrantDetail{
		Player: found,
		Badges: FilterBadges(badges, nil, cutoff),
	}, nil
}

func (s *RegistrantService) lookup(ctx context.Context, key, id string) (player.Player, bool, error) {
	id = strings.TrimSpace(id)

	switch strings.TrimSpace(key) {
	case "", LookupByID, "id":
		pk, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			return player.Player{}, false, fmt.Errorf("%w: registrant id must be an integer", ErrInvalidInput)
		}
		return s.playerRepo.GetByID(ctx, pk)
	case LookupByDiscord:
		return s.playerRepo.FindByDiscordID(ctx, id)
	case LookupByOsu:
		osuID, err := strconv.ParseInt(id, 10, 64)
		if err != nil {
			return player.Player{}, false, fmt.Errorf("%w: osu user id must be an integer", ErrInvalidInput)
		}
		return s.playerRepo.FindByOsuID(ctx, osuID)
	default:
		return player.Player{}, false, fmt.Errorf("%w: key must be one of pk, discord, osu", ErrInvalidInput)
	}
}

// SetOrganizer flips the organizer flag on one registrant.
func (s *RegistrantService) SetOrganizer(ctx context.Context, playerID int64, organizer bool) (player.Player, error) {
	ctx, span := startUsecaseSpan(ctx, "usecase.RegistrantService.SetOrganizer")
	defer span.End()

	if _, ok, err := s.playerRepo.GetByID(ctx, playerID); err != nil {
		return player.Player{}, fmt.Errorf("get player: %w", err)
	} else if !ok {
		return player.Player{}, fmt.Errorf("%w: registrant %d", ErrNotFound, playerID)
	}

	updated, err := s.playerRepo.SetOrganizer(ctx, playerID, organizer)
	if err != nil {
		return player.Player{}, fmt.Errorf("set organizer: %w", err)
	}

	s.logger.InfoContext(ctx, "organizer flag updated",
		"player_id", playerID,
		"is_organizer", organizer,
	)

	return updated, nil
}

// ParseBadgeCutoff parses the optional badge_cutoff_date query value,
// a unix timestamp in seconds.
func ParseBadgeCutoff(value string) (*time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return nil, nil
	}

	seconds, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: Invalid badge_cutoff_date provided, please provide a unix timestamp", ErrInvalidInput)
	}

	cutoff := time.Unix(seconds, 0).UTC()
	return &cutoff, nil
}
