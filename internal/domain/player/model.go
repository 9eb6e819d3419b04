package player

import (
	"fmt"
	"time"
)

// Player is a registered tournament participant with both external
// identities linked into one record.
type Player struct {
	ID int64

	DiscordUserID   string
	DiscordUsername string

	OsuUserID   int64
	OsuUsername string
	OsuFlag     string

	OsuRank         *int64
	OsuRankBWS      *int64
	OsuStatsUpdated time.Time

	IsOrganizer    bool
	IsCaptain      bool
	InRoster       bool
	InBackupRoster bool

	TeamID string
}

// PairingKey identifies the unique linked account as the composite of
// both external identity ids.
func (p Player) PairingKey() string {
	return fmt.Sprintf("%s:%d", p.DiscordUserID, p.OsuUserID)
}

func (p Player) Validate() error {
	if p.DiscordUserID == "" {
		return fmt.Errorf("player discord user id is required")
	}
	if p.OsuUserID <= 0 {
		return fmt.Errorf("player osu user id must be greater than zero")
	}
	if p.OsuUsername == "" {
		return fmt.Errorf("player osu username is required")
	}
	if len(p.OsuFlag) > 4 {
		return fmt.Errorf("player osu flag cannot exceed 4 characters")
	}
	if p.InRoster && p.InBackupRoster {
		return fmt.Errorf("player cannot be in both roster and backup roster")
	}
	if p.IsCaptain && !p.InRoster {
		return fmt.Errorf("captain must be a roster member")
	}

	return nil
}

// Badge is an award attached to a player's osu profile. Badge sets are
// replaced wholesale on every stats refresh.
type Badge struct {
	Description string
	AwardedAt   time.Time
	URL         string
	ImageURL    string
	ImageURL2x  string
}
