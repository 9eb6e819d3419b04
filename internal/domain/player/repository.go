package player

import (
	"context"
	"errors"
	"time"
)

// ErrPairingExists reports that a row already holds the same
// (discord_user_id, osu_user_id) pairing. Register returns it wrapped
// when a concurrent registration for the pair wins the race.
var ErrPairingExists = errors.New("pairing already registered")

// Repository describes player persistence needs from use cases.
// Lookups return (Player, false, nil) when no row matches.
type Repository interface {
	GetByID(ctx context.Context, id int64) (Player, bool, error)
	GetByPairing(ctx context.Context, discordUserID string, osuUserID int64) (Player, bool, error)
	FindByOsuID(ctx context.Context, osuUserID int64) (Player, bool, error)
	FindByDiscordID(ctx context.Context, discordUserID string) (Player, bool, error)
	List(ctx context.Context) ([]Player, error)

	// Register creates the player, its team when the flag is unknown, and
	// the initial badge set in a single transaction.
	Register(ctx context.Context, p Player, badges []Badge) (Player, error)

	// SwitchDiscordIdentity re-pairs an existing player with a new discord
	// identity, keeping the player id stable.
	SwitchDiscordIdentity(ctx context.Context, playerID int64, discordUserID, discordUsername string) (Player, error)

	SetOrganizer(ctx context.Context, playerID int64, organizer bool) (Player, error)

	// ReplaceStats overwrites rank fields and the whole badge set in a
	// single transaction.
	ReplaceStats(ctx context.Context, playerID int64, rank, rankBWS *int64, updatedAt time.Time, badges []Badge) error

	ListBadges(ctx context.Context, playerID int64) ([]Badge, error)

	Delete(ctx context.Context, playerID int64) error

	IsDisqualified(ctx context.Context, osuUserID int64) (bool, error)
}
